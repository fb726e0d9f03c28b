package events

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/akademi/egitim-portal/internal/platform/httpx"
)

// Handler accepts events raised by scripts in the rendered pages.
type Handler struct {
	recorder  *Recorder
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs the events endpoint.
func NewHandler(recorder *Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{recorder: recorder, logger: logger, validator: validator.New()}
}

// MountRoutes registers POST /events.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/events", h.record)
}

type eventRequest struct {
	Action  string `json:"action" validate:"required,max=64,uppercase"`
	Name    string `json:"name" validate:"max=200"`
	Details string `json:"details" validate:"max=1000"`
	Page    string `json:"page" validate:"omitempty,startswith=/,max=500"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Event", "body must be a JSON object")
		return
	}
	req.Action = strings.TrimSpace(req.Action)
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Event", err.Error())
		return
	}
	page := req.Page
	if page == "" {
		page = refererPath(r)
	}
	details := req.Details
	if req.Name != "" {
		details = Describe(req.Name, req.Details)
	}
	h.recorder.Record(r.Context(), req.Action, page, details)
	w.WriteHeader(http.StatusNoContent)
}

func refererPath(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" {
		return "/"
	}
	return ref.Path
}
