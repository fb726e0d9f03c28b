package httpx

import (
	"errors"
	"net/http"

	"github.com/akademi/egitim-portal/internal/backend"
)

// Sentinel errors for handlers that answer JSON.
var (
	ErrValidation = errors.New("validation failed")
)

// RespondError maps handler and backend errors to RFC7807 responses. Backend
// statuses below 500 pass through; anything else becomes a 502.
func RespondError(w http.ResponseWriter, err error) {
	if apiErr, ok := backend.AsAPIError(err); ok {
		status := apiErr.Status
		if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		Problem(w, status, http.StatusText(status), apiErr.Message)
		return
	}
	switch {
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, backend.ErrUnavailable):
		Problem(w, http.StatusBadGateway, "Backend Unavailable", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
