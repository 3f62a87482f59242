package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-calendar/internal/appointments"
	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

// PickerSource searches the backend for dialog picker options.
// *appointments.Client implements it.
type PickerSource interface {
	SearchPatients(ctx context.Context, query string) ([]appointments.PickerOption, error)
	SearchUsers(ctx context.Context, query, role string) ([]appointments.PickerOption, error)
}

// PickerHandler serves the patient and professional pickers.
type PickerHandler struct {
	source PickerSource
	logger *logging.Logger
}

// NewPickerHandler creates a picker handler.
func NewPickerHandler(source PickerSource, logger *logging.Logger) *PickerHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PickerHandler{source: source, logger: logger}
}

// Routes mounts the pickers under /api/pickers.
func (h *PickerHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/patients", h.Patients)
	r.Get("/users", h.Users)
	return r
}

type pickerResponse struct {
	Options []appointments.PickerOption `json:"options"`
	Error   string                      `json:"error,omitempty"`
}

// Patients handles GET /api/pickers/patients?q=.
func (h *PickerHandler) Patients(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	opts, err := h.source.SearchPatients(r.Context(), q)
	h.respond(w, "patients", opts, err)
}

// Users handles GET /api/pickers/users?q=&role=.
func (h *PickerHandler) Users(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	opts, err := h.source.SearchUsers(r.Context(), strings.TrimSpace(params.Get("q")), strings.TrimSpace(params.Get("role")))
	h.respond(w, "users", opts, err)
}

func (h *PickerHandler) respond(w http.ResponseWriter, picker string, opts []appointments.PickerOption, err error) {
	if err != nil {
		h.logger.Warn("picker search failed", "picker", picker, "error", err)
		writeJSON(w, http.StatusBadGateway, pickerResponse{Options: []appointments.PickerOption{}, Error: "search unavailable"})
		return
	}
	if opts == nil {
		opts = []appointments.PickerOption{}
	}
	writeJSON(w, http.StatusOK, pickerResponse{Options: opts})
}
