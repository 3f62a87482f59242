package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-calendar/internal/identity"
	"github.com/wolfman30/clinic-calendar/internal/preferences"
	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

// PreferenceStore persists per-user calendar defaults.
// *preferences.Repository implements it.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (*preferences.Preferences, error)
	Upsert(ctx context.Context, p preferences.Preferences) (*preferences.Preferences, error)
	Delete(ctx context.Context, userID string) error
}

// PreferencesHandler serves /api/preferences for the caller in X-User-ID.
type PreferencesHandler struct {
	store  PreferenceStore
	logger *logging.Logger
}

// NewPreferencesHandler creates a preferences handler.
func NewPreferencesHandler(store PreferenceStore, logger *logging.Logger) *PreferencesHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PreferencesHandler{store: store, logger: logger}
}

// Routes mounts the preferences endpoints under /api/preferences.
func (h *PreferencesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Put)
	r.Delete("/", h.Delete)
	return r
}

// Get handles GET /api/preferences.
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	prefs, err := h.store.Get(r.Context(), userID)
	if errors.Is(err, preferences.ErrNotFound) {
		writeError(w, http.StatusNotFound, "preferences not found")
		return
	}
	if err != nil {
		h.logger.Error("load preferences failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// Put handles PUT /api/preferences.
func (h *PreferencesHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var p preferences.Preferences
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.UserID = userID
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := h.store.Upsert(r.Context(), p)
	if err != nil {
		h.logger.Error("save preferences failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Delete handles DELETE /api/preferences.
func (h *PreferencesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	err := h.store.Delete(r.Context(), userID)
	if err != nil && !errors.Is(err, preferences.ErrNotFound) {
		h.logger.Error("delete preferences failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete preferences")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing "+identity.Header+" header")
		return "", false
	}
	return userID, true
}
