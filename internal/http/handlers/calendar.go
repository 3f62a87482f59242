package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-calendar/internal/appointmentform"
	"github.com/wolfman30/clinic-calendar/internal/calendar"
	"github.com/wolfman30/clinic-calendar/internal/calendar/viewstate"
	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

// EventSource lists events for a query. *calendar.Fetcher implements it.
type EventSource interface {
	List(ctx context.Context, q calendar.Query) ([]calendar.Event, error)
	Range(q calendar.Query) calendar.Range
	Location() *time.Location
}

// CalendarConfig configures CalendarHandler.
type CalendarConfig struct {
	Events         EventSource
	FirstDayOfWeek time.Weekday
	Settings       viewstate.Settings
	Layout         calendar.LayoutOptions
	CalendarName   string
	Logger         *logging.Logger
	Now            func() time.Time
}

// CalendarHandler serves the stateless calendar endpoints: ranges, events,
// day/week layouts, month/year grids and ICS export.
type CalendarHandler struct {
	events   EventSource
	firstDay time.Weekday
	settings viewstate.Settings
	layout   calendar.LayoutOptions
	name     string
	logger   *logging.Logger
	now      func() time.Time
}

// NewCalendarHandler creates a calendar handler.
func NewCalendarHandler(cfg CalendarConfig) *CalendarHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Settings == nil {
		cfg.Settings = viewstate.DefaultSettings()
	}
	if cfg.CalendarName == "" {
		cfg.CalendarName = "Agenda"
	}
	return &CalendarHandler{
		events:   cfg.Events,
		firstDay: cfg.FirstDayOfWeek,
		settings: cfg.Settings,
		layout:   cfg.Layout,
		name:     cfg.CalendarName,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

// Routes mounts the calendar endpoints; the router serves them under
// /api/calendar.
func (h *CalendarHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/range", h.GetRange)
	r.Get("/events", h.ListEvents)
	r.Get("/day", h.GetDay)
	r.Get("/week", h.GetWeek)
	r.Get("/month", h.GetMonth)
	r.Get("/year", h.GetYear)
	r.Get("/export.ics", h.ExportICS)
	r.Post("/repeat-preview", h.RepeatPreview)
	return r
}

// RangeResponse describes a resolved query range.
type RangeResponse struct {
	View  calendar.View   `json:"view"`
	Date  string          `json:"date"`
	Range calendar.Range  `json:"range"`
	Grid  *calendar.Range `json:"grid,omitempty"`
}

// EventsResponse is the event list of a range. Error is set, with an empty
// list, when the backend could not be reached.
type EventsResponse struct {
	View   calendar.View    `json:"view"`
	Range  calendar.Range   `json:"range"`
	Events []calendar.Event `json:"events"`
	Count  int              `json:"count"`
	Error  string           `json:"error,omitempty"`
}

// DayResponse is the day view layout.
type DayResponse struct {
	Date              string                 `json:"date"`
	Placements        []calendar.Placement   `json:"placements"`
	CurrentTimeOffset *float64               `json:"currentTimeOffset,omitempty"`
	Settings          viewstate.ViewSettings `json:"settings"`
}

// WeekResponse is the week or multi-day layout.
type WeekResponse struct {
	View     calendar.View          `json:"view"`
	Range    calendar.Range         `json:"range"`
	Days     []calendar.DayLayout   `json:"days"`
	Settings viewstate.ViewSettings `json:"settings"`
}

// GetRange handles GET /api/calendar/range.
func (h *CalendarHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r, calendar.ViewMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := RangeResponse{View: q.View, Date: calendar.DateKey(q.Date), Range: h.events.Range(q)}
	if q.View == calendar.ViewMonth {
		grid := calendar.MonthGridRange(q.Date, h.firstDayOf(r))
		resp.Grid = &grid
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListEvents handles GET /api/calendar/events.
func (h *CalendarHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r, calendar.ViewMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rng := h.events.Range(q)
	events, ok := h.fetch(w, r, q)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, EventsResponse{View: q.View, Range: rng, Events: events, Count: len(events)})
}

// GetDay handles GET /api/calendar/day.
func (h *CalendarHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r, calendar.ViewDay)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.View = calendar.ViewDay
	events, ok := h.fetch(w, r, q)
	if !ok {
		return
	}
	settings := h.settings.For(calendar.ViewDay)
	opts := h.layoutFor(settings)
	resp := DayResponse{
		Date:       calendar.DateKey(q.Date),
		Placements: calendar.LayoutDay(events, q.Date, opts),
		Settings:   settings,
	}
	if settings.ShowCurrentTimeIndicator {
		if offset, visible := calendar.CurrentTimeOffset(h.now(), q.Date, opts); visible {
			resp.CurrentTimeOffset = &offset
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetWeek handles GET /api/calendar/week. ?view=days with ?days=N lays out
// N consecutive days instead of the calendar week.
func (h *CalendarHandler) GetWeek(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r, calendar.ViewWeek)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.View != calendar.ViewDays {
		q.View = calendar.ViewWeek
	}
	events, ok := h.fetch(w, r, q)
	if !ok {
		return
	}
	rng := h.events.Range(q)
	settings := h.settings.For(q.View)
	writeJSON(w, http.StatusOK, WeekResponse{
		View:     q.View,
		Range:    rng,
		Days:     calendar.LayoutDays(events, rng.Days(), h.layoutFor(settings)),
		Settings: settings,
	})
}

// GetMonth handles GET /api/calendar/month.
func (h *CalendarHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r, calendar.ViewMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.View = calendar.ViewMonth
	limit, err := queryInt(r, "limit", h.settings.For(calendar.ViewMonth).EventLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.Limit = 0
	events, ok := h.fetch(w, r, q)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, calendar.BuildMonthGrid(q.Date, h.firstDayOf(r), events, limit))
}

// GetYear handles GET /api/calendar/year.
func (h *CalendarHandler) GetYear(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r, calendar.ViewYear)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.View = calendar.ViewYear
	preview, err := queryInt(r, "preview", h.settings.For(calendar.ViewYear).PreviewEventsPerMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.Limit = 0
	events, ok := h.fetch(w, r, q)
	if !ok {
		return
	}
	grid := calendar.BuildYearGrid(q.Date.Year(), h.events.Location(), h.firstDayOf(r), events, preview)
	writeJSON(w, http.StatusOK, grid)
}

// ExportICS handles GET /api/calendar/export.ics.
func (h *CalendarHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	q, err := h.query(r, calendar.ViewMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, ok := h.fetch(w, r, q)
	if !ok {
		return
	}
	body := calendar.ExportICS(events, h.name, h.now())
	filename := fmt.Sprintf("agenda-%s-%s.ics", q.View, calendar.DateKey(q.Date))
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// RepeatPreviewResponse lists the occurrences of a repeating block.
type RepeatPreviewResponse struct {
	Occurrences []time.Time `json:"occurrences"`
	Count       int         `json:"count"`
}

// RepeatPreview handles POST /api/calendar/repeat-preview.
func (h *CalendarHandler) RepeatPreview(w http.ResponseWriter, r *http.Request) {
	var values appointmentform.Values
	if err := decodeJSON(r, &values); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if vs := appointmentform.Validate(values); !vs.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid appointment", Fields: vs.Fields()})
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	occurrences, err := appointmentform.RepeatPreview(values, h.events.Location(), limit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if occurrences == nil {
		occurrences = []time.Time{}
	}
	writeJSON(w, http.StatusOK, RepeatPreviewResponse{Occurrences: occurrences, Count: len(occurrences)})
}

func (h *CalendarHandler) query(r *http.Request, fallback calendar.View) (calendar.Query, error) {
	params := r.URL.Query()
	loc := h.events.Location()
	date, err := parseDate(params.Get("date"), loc, h.now())
	if err != nil {
		return calendar.Query{}, err
	}
	view := fallback
	if raw := params.Get("view"); raw != "" {
		view = calendar.ParseView(raw)
	}
	days, err := queryInt(r, "days", 1)
	if err != nil {
		return calendar.Query{}, err
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return calendar.Query{}, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return calendar.Query{}, err
	}
	return calendar.Query{
		Date:      date,
		View:      view,
		DaysCount: days,
		Limit:     limit,
		Offset:    offset,
		Search:    params.Get("search"),
	}, nil
}

// fetch lists events or writes the 502 degraded response.
func (h *CalendarHandler) fetch(w http.ResponseWriter, r *http.Request, q calendar.Query) ([]calendar.Event, bool) {
	events, err := h.events.List(r.Context(), q)
	if err != nil {
		h.logger.Warn("calendar events unavailable", "view", string(q.View), "error", err)
		writeJSON(w, http.StatusBadGateway, EventsResponse{
			View:   q.View,
			Range:  h.events.Range(q),
			Events: []calendar.Event{},
			Error:  viewstate.NoticeFetchFailed,
		})
		return nil, false
	}
	return events, true
}

func (h *CalendarHandler) firstDayOf(r *http.Request) time.Weekday {
	return calendar.ParseWeekday(r.URL.Query().Get("firstDay"), h.firstDay)
}

func (h *CalendarHandler) layoutFor(settings viewstate.ViewSettings) calendar.LayoutOptions {
	opts := h.layout
	if settings.EndHour > settings.StartHour {
		opts.StartHour = settings.StartHour
		opts.EndHour = settings.EndHour
	}
	return opts
}
