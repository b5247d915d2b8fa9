package inventory

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/zaiko-kanri/zaiko/internal/observability"
	"github.com/zaiko-kanri/zaiko/internal/shared"
	"github.com/zaiko-kanri/zaiko/internal/view"
)

// Handler wires HTTP endpoints for the product inventory screen.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products/{id}", h.showProduct)
	r.Post("/products/{id}/purchase", h.handlePurchase)
	r.Post("/products/{id}/sell", h.handleSell)
}

type quantityForm struct {
	Quantity string
}

const quantityRule = "min=1,max=99999999"

type productPageData struct {
	RouteID string
	Product Product
	Events  []InventoryEvent
	Form    quantityForm
	Errors  map[string]string
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	h.renderProduct(w, r, quantityForm{}, map[string]string{}, http.StatusOK)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, func(productID, qty int64) Adjustment {
		return Purchase{ProductID: productID, Quantity: qty}
	}, MsgPurchased)
}

func (h *Handler) handleSell(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, func(productID, qty int64) Adjustment {
		return Sell{ProductID: productID, Quantity: qty}
	}, MsgSold)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, build func(productID, qty int64) Adjustment, successMsg string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := quantityForm{Quantity: r.PostFormValue("quantity")}
	qty, errs := h.parseQuantity(form)
	if len(errs) > 0 {
		h.renderProduct(w, r, form, errs, http.StatusBadRequest)
		return
	}

	adj := build(routeProductID(r), qty)
	outcome := h.service.Apply(r.Context(), adj)
	h.metrics.ObserveAdjustment(string(adj.Kind()), string(outcome.State))
	switch outcome.State {
	case StateApplied:
		h.logger.Info("adjustment applied",
			slog.String("kind", string(adj.Kind())),
			slog.Int64("product_id", adj.Product()),
			slog.Int64("quantity", adj.Qty()),
			slog.Int64("inventory", outcome.Event.Inventory))
		shared.Notify(r.Context(), shared.KindSuccess, successMsg)
	default:
		h.logger.Warn("adjustment rejected",
			slog.String("kind", string(adj.Kind())),
			slog.Int64("product_id", adj.Product()),
			slog.Any("error", outcome.Err))
		shared.Notify(r.Context(), shared.KindError, shared.UserSafeMessage(outcome.Err))
	}
	http.Redirect(w, r, productPath(r), http.StatusSeeOther)
}

func (h *Handler) parseQuantity(form quantityForm) (int64, map[string]string) {
	errs := make(map[string]string)
	raw := strings.TrimSpace(form.Quantity)
	qty, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errs["quantity"] = MsgInvalidQuantity
		return 0, errs
	}
	if err := h.validator.Var(qty, quantityRule); err != nil {
		h.logger.Debug("quantity rejected", slog.Int64("value", qty), slog.Any("error", err))
		errs["quantity"] = MsgInvalidQuantity
	}
	return qty, errs
}

func (h *Handler) renderProduct(w http.ResponseWriter, r *http.Request, form quantityForm, errs map[string]string, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)

	page, err := h.service.LoadProductPage(r.Context(), routeProductID(r))
	if err != nil {
		h.logger.Error("load product page", slog.Any("error", err))
		errs["history"] = MsgHistoryFailed
	}
	data := productPageData{
		RouteID: chi.URLParam(r, "id"),
		Product: page.Product,
		Events:  page.Events,
		Form:    form,
		Errors:  errs,
	}
	viewData := view.TemplateData{
		Title:       "商品在庫管理",
		CSRFToken:   csrfToken,
		Flash:       shared.PopFlash(r.Context()),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/product_inventory.html", viewData); err != nil {
		h.logger.Error("render product inventory", slog.Any("error", err))
	}
}

func routeProductID(r *http.Request) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func productPath(r *http.Request) string {
	return "/inventory/products/" + url.PathEscape(chi.URLParam(r, "id"))
}
