package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-calendar/internal/appointmentform"
	"github.com/wolfman30/clinic-calendar/internal/appointments"
	"github.com/wolfman30/clinic-calendar/internal/calendar"
	"github.com/wolfman30/clinic-calendar/internal/calendar/viewstate"
	"github.com/wolfman30/clinic-calendar/internal/identity"
	"github.com/wolfman30/clinic-calendar/internal/sessions"
	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

// SessionManager is the session registry used by SessionHandler.
// *sessions.Manager implements it.
type SessionManager interface {
	Create(ctx context.Context, userID string) (*sessions.Session, error)
	Get(ctx context.Context, id string) (*sessions.Session, error)
	Save(ctx context.Context, sess *sessions.Session) error
	Touch(id string) bool
	Delete(ctx context.Context, id string) error
}

// SessionHandler exposes the stateful calendar: navigation, dialogs and
// submissions of one browser session.
type SessionHandler struct {
	manager SessionManager
	logger  *logging.Logger
	now     func() time.Time
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(manager SessionManager, logger *logging.Logger) *SessionHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionHandler{manager: manager, logger: logger, now: time.Now}
}

// Routes mounts the session endpoints under /api/sessions.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Route("/{id}", func(s chi.Router) {
		s.Get("/", h.Get)
		s.Delete("/", h.Delete)
		s.Get("/stream", h.Stream)
		s.Post("/navigate", h.Navigate)
		s.Put("/settings", h.UpdateSettings)
		s.Post("/quick-add", h.QuickAdd)
		s.Post("/days/{date}/click", h.ClickDay)
		s.Post("/appointments/{appointmentID}/edit", h.OpenEdit)
		s.Post("/day-events/{appointmentID}/select", h.SelectDayEvent)
		s.Post("/dialog/close", h.CloseDialog)
		s.Get("/form", h.Form)
		s.Post("/submit", h.Submit)
	})
	return r
}

// SessionResponse is the view of a session returned by every endpoint.
type SessionResponse struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	Query     string            `json:"query"`
	State     viewstate.State   `json:"state"`
	Error     string            `json:"error,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func sessionResponse(sess *sessions.Session, st viewstate.State) SessionResponse {
	return SessionResponse{
		ID:        sess.ID,
		UserID:    sess.UserID,
		CreatedAt: sess.CreatedAt,
		Query:     st.QueryValues().Encode(),
		State:     st,
	}
}

type createSessionRequest struct {
	UserID string `json:"userId"`
}

// Create handles POST /api/sessions and performs the initial fetch.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID, _ = identity.UserIDFromContext(r.Context())
	}

	sess, err := h.manager.Create(r.Context(), userID)
	if err != nil && sess == nil {
		h.logger.Error("create calendar session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	if err != nil {
		h.logger.Warn("session snapshot not saved", "session_id", sess.ID, "error", err)
	}
	if _, err := sess.Controller.Refresh(r.Context()); err != nil {
		h.logger.Warn("initial calendar fetch failed", "session_id", sess.ID, "error", err)
	}
	h.persist(r.Context(), sess)
	writeJSON(w, http.StatusCreated, sessionResponse(sess, sess.Controller.State()))
}

// Get handles GET /api/sessions/{id}. ?date= and ?view= are applied to the
// session first. A restored session refetches its range because snapshots
// carry no events.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("date") != "" || q.Get("view") != "" {
		before := sess.Controller.State().QueryKey()
		st, _ := sess.Controller.ApplyQuery(r.Context(), q)
		if st.QueryKey() != before {
			h.persist(r.Context(), sess)
		}
		writeJSON(w, http.StatusOK, sessionResponse(sess, st))
		return
	}
	st := sess.Controller.State()
	if !st.Loading && st.LoadedKey != st.QueryKey() {
		st, _ = sess.Controller.Refresh(r.Context())
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess, st))
}

// Delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.Delete(r.Context(), id); err != nil {
		h.logger.Warn("delete calendar session failed", "session_id", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// NavigateRequest changes the visible range. Step is "prev", "next" or
// "today" and applies after View and Date.
type NavigateRequest struct {
	View      string `json:"view"`
	Date      string `json:"date"`
	DaysCount int    `json:"daysCount"`
	Step      string `json:"step"`
}

// Navigate handles POST /api/sessions/{id}/navigate.
func (h *SessionHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req NavigateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DaysCount < 0 {
		writeError(w, http.StatusBadRequest, "daysCount must be positive")
		return
	}

	st := sess.Controller.State()
	loc := st.SelectedDate.Location()
	nav := viewstate.Navigation{DaysCount: req.DaysCount}
	view := st.CurrentView
	if strings.TrimSpace(req.View) != "" {
		nav.View = calendar.ParseView(req.View)
		view = nav.View
	}
	date := st.SelectedDate
	if strings.TrimSpace(req.Date) != "" {
		d, err := parseDate(req.Date, loc, h.now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		date = d
		nav.Date = d
	}
	days := st.DaysCount
	if req.DaysCount > 0 {
		days = req.DaysCount
	}
	switch strings.ToLower(strings.TrimSpace(req.Step)) {
	case "":
	case "next":
		nav.Date = calendar.Step(date, view, days, 1)
	case "prev", "previous":
		nav.Date = calendar.Step(date, view, days, -1)
	case "today":
		nav.Date = calendar.StartOfDay(h.now().In(loc))
	default:
		writeError(w, http.StatusBadRequest, "step must be prev, next or today")
		return
	}

	next, err := sess.Controller.Navigate(r.Context(), nav)
	if err != nil {
		h.logger.Warn("calendar fetch failed", "session_id", sess.ID, "error", err)
	}
	h.persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, sessionResponse(sess, next))
}

// SettingsRequest updates display preferences of a session. Settings applies
// to View, or to the current view when View is empty.
type SettingsRequest struct {
	View           string                  `json:"view"`
	Settings       *viewstate.ViewSettings `json:"settings"`
	ViewMode       string                  `json:"viewMode"`
	TimeFormat     string                  `json:"timeFormat"`
	Locale         string                  `json:"locale"`
	FirstDayOfWeek string                  `json:"firstDayOfWeek"`
}

// UpdateSettings handles PUT /api/sessions/{id}/settings.
func (h *SessionHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var actions []viewstate.Action
	switch viewstate.ViewMode(req.ViewMode) {
	case "":
	case viewstate.ModeCalendar, viewstate.ModeList:
		actions = append(actions, viewstate.SetViewMode{Mode: viewstate.ViewMode(req.ViewMode)})
	default:
		writeError(w, http.StatusBadRequest, "viewMode must be calendar or list")
		return
	}
	switch viewstate.TimeFormat(req.TimeFormat) {
	case "":
	case viewstate.Format24h, viewstate.Format12h:
		actions = append(actions, viewstate.SetTimeFormat{Format: viewstate.TimeFormat(req.TimeFormat)})
	default:
		writeError(w, http.StatusBadRequest, "timeFormat must be 24h or 12h")
		return
	}
	if locale := strings.TrimSpace(req.Locale); locale != "" {
		actions = append(actions, viewstate.SetLocale{Locale: locale})
	}
	if raw := strings.TrimSpace(req.FirstDayOfWeek); raw != "" {
		day := calendar.ParseWeekday(raw, time.Weekday(-1))
		if day < 0 {
			writeError(w, http.StatusBadRequest, "invalid firstDayOfWeek")
			return
		}
		actions = append(actions, viewstate.SetFirstDayOfWeek{Day: day})
	}
	if req.Settings != nil {
		view := sess.Controller.State().CurrentView
		if strings.TrimSpace(req.View) != "" {
			view = calendar.ParseView(req.View)
		}
		actions = append(actions, viewstate.UpdateViewSettings{View: view, Settings: *req.Settings})
	}

	st := sess.Controller.State()
	for _, a := range actions {
		st = sess.Controller.Store().Dispatch(a)
	}
	h.persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, sessionResponse(sess, st))
}

// QuickAddRequest opens the create dialog. StartTime and EndTime are "HH:mm"
// and present for time-slot clicks.
type QuickAddRequest struct {
	Date      string                    `json:"date"`
	StartTime string                    `json:"startTime"`
	EndTime   string                    `json:"endTime"`
	Position  *appointmentform.Position `json:"position"`
}

// QuickAdd handles POST /api/sessions/{id}/quick-add.
func (h *SessionHandler) QuickAdd(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req QuickAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	loc := sess.Controller.State().SelectedDate.Location()
	date, err := parseDate(req.Date, loc, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, clock := range []string{req.StartTime, req.EndTime} {
		if clock == "" {
			continue
		}
		if _, err := time.Parse("15:04", clock); err != nil {
			writeError(w, http.StatusBadRequest, "times must be HH:mm")
			return
		}
	}

	st, err := sess.Controller.OpenQuickAdd(appointmentform.QuickAdd{
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Position:  req.Position,
	})
	if errors.Is(err, viewstate.ErrTimeSlotClickDisabled) {
		resp := sessionResponse(sess, st)
		resp.Error = "time slot click is disabled for this view"
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	if errors.Is(err, viewstate.ErrTimeBlockClickDisabled) {
		resp := sessionResponse(sess, st)
		resp.Error = "time block click is disabled for this view"
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	h.persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, sessionResponse(sess, st))
}

// DayClickResponse reports which dialog a month/year day click opened.
type DayClickResponse struct {
	SessionResponse
	Action calendar.DayClickAction `json:"action"`
}

// ClickDay handles POST /api/sessions/{id}/days/{date}/click.
func (h *SessionHandler) ClickDay(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	loc := sess.Controller.State().SelectedDate.Location()
	date, err := parseDate(chi.URLParam(r, "date"), loc, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, click := sess.Controller.ClickDay(date)
	h.persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, DayClickResponse{SessionResponse: sessionResponse(sess, st), Action: click.Action})
}

// OpenEdit handles POST /api/sessions/{id}/appointments/{appointmentID}/edit.
func (h *SessionHandler) OpenEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	st, err := sess.Controller.OpenEdit(r.Context(), chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.writeLoadFailure(w, sess, st, err)
		return
	}
	h.persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, sessionResponse(sess, st))
}

// SelectDayEvent handles POST /api/sessions/{id}/day-events/{appointmentID}/select.
func (h *SessionHandler) SelectDayEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	st, err := sess.Controller.SelectDayEvent(r.Context(), chi.URLParam(r, "appointmentID"))
	if errors.Is(err, viewstate.ErrNotInDayList) {
		resp := sessionResponse(sess, st)
		resp.Error = "day events dialog is not open"
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	if err != nil {
		h.writeLoadFailure(w, sess, st, err)
		return
	}
	h.persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, sessionResponse(sess, st))
}

// CloseDialog handles POST /api/sessions/{id}/dialog/close.
func (h *SessionHandler) CloseDialog(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	st := sess.Controller.Close()
	h.persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, sessionResponse(sess, st))
}

// FormResponse carries the initial values of the open dialog.
type FormResponse struct {
	Mode    appointmentform.Mode   `json:"mode"`
	Values  appointmentform.Values `json:"values"`
	EndTime string                 `json:"endTime"`
}

// Form handles GET /api/sessions/{id}/form.
func (h *SessionHandler) Form(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	values, err := sess.Controller.FormDefaults()
	if err != nil {
		writeError(w, http.StatusConflict, "no appointment dialog open")
		return
	}
	writeJSON(w, http.StatusOK, FormResponse{
		Mode:    sess.Controller.State().FormMode,
		Values:  values,
		EndTime: values.EndTime(),
	})
}

// SubmitResponse is the outcome of a successful submit.
type SubmitResponse struct {
	SessionResponse
	Appointment *appointments.Appointment `json:"appointment"`
}

// Submit handles POST /api/sessions/{id}/submit.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var values appointmentform.Values
	if err := decodeJSON(r, &values); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, st, err := sess.Controller.Submit(r.Context(), values)
	if err != nil {
		resp := sessionResponse(sess, st)
		var violations appointmentform.Violations
		switch {
		case errors.Is(err, viewstate.ErrNoDialog):
			resp.Error = "no appointment dialog open"
			writeJSON(w, http.StatusConflict, resp)
		case errors.As(err, &violations):
			resp.Error = "invalid appointment"
			resp.Fields = violations.Fields()
			writeJSON(w, http.StatusUnprocessableEntity, resp)
		default:
			resp.Error = st.DialogError
			writeJSON(w, http.StatusBadGateway, resp)
		}
		return
	}
	h.persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, SubmitResponse{SessionResponse: sessionResponse(sess, st), Appointment: saved})
}

func (h *SessionHandler) writeLoadFailure(w http.ResponseWriter, sess *sessions.Session, st viewstate.State, err error) {
	resp := sessionResponse(sess, st)
	resp.Error = st.Notice
	status := http.StatusBadGateway
	if errors.Is(err, appointments.ErrNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, resp)
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*sessions.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := h.manager.Get(r.Context(), id)
	if errors.Is(err, sessions.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("load calendar session failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) persist(ctx context.Context, sess *sessions.Session) {
	if err := h.manager.Save(ctx, sess); err != nil {
		h.logger.Warn("session snapshot not saved", "session_id", sess.ID, "error", err)
	}
}
