package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors matched with errors.Is against *APIError.
var (
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrForbidden    = errors.New("backend: forbidden")
	ErrNotFound     = errors.New("backend: not found")
	ErrConflict     = errors.New("backend: conflict")
	ErrBadRequest   = errors.New("backend: bad request")
	// ErrUnavailable wraps transport failures; the backend never answered.
	ErrUnavailable  = errors.New("backend: unavailable")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
	Code    string
	Path    string
}

func (e *APIError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.Code
	}
	if detail == "" {
		detail = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend: %s %d: %s", e.Path, e.Status, detail)
}

// Is maps the status onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest
	}
	return false
}

// AuthFailure reports whether the status triggers the implicit logout path.
func (e *APIError) AuthFailure() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// errorBody covers both the Spring default error body and the backend's ErrorResponse.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newAPIError(status int, path string, body []byte) *APIError {
	apiErr := &APIError{Status: status, Path: path}
	var parsed errorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		apiErr.Message = strings.TrimSpace(parsed.Message)
		apiErr.Code = strings.TrimSpace(parsed.Error)
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		apiErr.Message = text
	}
	return apiErr
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
