package httpx

import (
	"errors"
	"net/http"

	"github.com/zaiko-kanri/zaiko/internal/shared"
)

// ErrUnavailable marks a dependency that cannot serve the request.
var ErrUnavailable = errors.New("service unavailable")

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrCSRFTokenMissing), errors.Is(err, shared.ErrCSRFTokenMismatch):
		Problem(w, http.StatusForbidden, "Forbidden", "invalid csrf token")
	case errors.Is(err, shared.ErrSessionMissing):
		Problem(w, http.StatusBadRequest, "Bad Request", "session required")
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
