package sales

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zaiko-kanri/zaiko/internal/shared"
	"github.com/zaiko-kanri/zaiko/internal/view"
)

const maxMemory = 8 << 20

// Handler wires HTTP endpoints for the sales import screen.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs the sales import handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers sales import routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/import_sales", h.showImport)
	r.Post("/import_sales/sync", h.handleSync)
	r.Post("/import_sales/async", h.handleAsync)
}

type importPageData struct {
	Summaries []MonthlySummary
	Errors    map[string]string
}

func (h *Handler) showImport(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)

	data := importPageData{Summaries: []MonthlySummary{}, Errors: map[string]string{}}
	summaries, err := h.service.LoadSummary(r.Context())
	if err != nil {
		h.logger.Error("load monthly summary", slog.Any("error", err))
		data.Errors["summary"] = shared.UserSafeMessage(err)
	} else {
		data.Summaries = summaries
	}

	viewData := view.TemplateData{
		Title:       "売上一括登録",
		CSRFToken:   csrfToken,
		Flash:       shared.PopFlash(r.Context()),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/import_sales.html", viewData); err != nil {
		h.logger.Error("render import sales", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, h.service.SubmitSyncFile, MsgSyncAccepted)
}

func (h *Handler) handleAsync(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, h.service.SubmitAsyncFile, MsgAsyncAccepted)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request, submit func(context.Context, *SyncFile) error, successMsg string) {
	file, err := h.readSyncFile(r)
	if file != nil {
		if c, ok := file.Content.(io.Closer); ok {
			defer c.Close()
		}
	}
	if err == nil {
		err = submit(r.Context(), file)
	}
	if err != nil {
		h.logger.Warn("upload rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
		shared.Notify(r.Context(), shared.KindError, shared.UserSafeMessage(err))
	} else {
		h.logger.Info("upload accepted", slog.String("path", r.URL.Path), slog.String("file", file.Name), slog.Int64("size", file.Size))
		shared.Notify(r.Context(), shared.KindSuccess, successMsg)
	}
	http.Redirect(w, r, "/inventory/import_sales", http.StatusSeeOther)
}

// readSyncFile returns a nil file when nothing was selected.
func (h *Handler) readSyncFile(r *http.Request) (*SyncFile, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, ErrFileTooLarge
		case errors.Is(err, http.ErrNotMultipart):
			return nil, nil
		default:
			return nil, err
		}
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	if header.Filename == "" {
		_ = f.Close()
		return nil, nil
	}
	return &SyncFile{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: contentType(header),
		Content:     f,
	}, nil
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
