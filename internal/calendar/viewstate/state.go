// Package viewstate holds the calendar view state: an immutable State value,
// a pure reducer over typed actions, a serialized Store and the Controller
// that drives fetches and dialog flows against the backend.
package viewstate

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/clinic-calendar/internal/appointmentform"
	"github.com/wolfman30/clinic-calendar/internal/appointments"
	"github.com/wolfman30/clinic-calendar/internal/calendar"
)

// Phase is the dialog state of the calendar.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseQuickAdd Phase = "quick_add"
	PhaseEditing  Phase = "editing"
	PhaseDayList  Phase = "day_list"
)

// ViewMode switches between the calendar grid and the agenda list.
type ViewMode string

const (
	ModeCalendar ViewMode = "calendar"
	ModeList     ViewMode = "list"
)

// TimeFormat is the clock format used by renderers.
type TimeFormat string

const (
	Format24h TimeFormat = "24h"
	Format12h TimeFormat = "12h"
)

// DayEventsDialog is the list dialog opened by clicking a day with events.
type DayEventsDialog struct {
	Open   bool             `json:"open"`
	Date   time.Time        `json:"date,omitempty"`
	Events []calendar.Event `json:"events,omitempty"`
}

// State is the whole calendar view state. Treat it as a value: Reduce never
// mutates its input and callers must not mutate slices or maps they read.
type State struct {
	CurrentView    calendar.View `json:"currentView"`
	DaysCount      int           `json:"daysCount"`
	SelectedDate   time.Time     `json:"selectedDate"`
	ViewMode       ViewMode      `json:"viewMode"`
	TimeFormat     TimeFormat    `json:"timeFormat"`
	Locale         string        `json:"locale"`
	FirstDayOfWeek time.Weekday  `json:"firstDayOfWeek"`
	ViewSettings   Settings      `json:"viewSettings"`

	Phase             Phase                      `json:"phase"`
	FormMode          appointmentform.Mode       `json:"formMode,omitempty"`
	AppointmentToEdit *appointments.Appointment  `json:"appointmentToEdit,omitempty"`
	QuickAddData      *appointmentform.QuickAdd  `json:"quickAddData,omitempty"`
	DayEvents         DayEventsDialog            `json:"dayEventsDialog"`
	Submitting        bool                       `json:"submitting"`
	DialogError       string                     `json:"dialogError,omitempty"`
	Violations        appointmentform.Violations `json:"violations,omitempty"`
	Notice            string                     `json:"notice,omitempty"`

	Events     []calendar.Event `json:"events"`
	Loading    bool             `json:"loading"`
	FetchError string           `json:"fetchError,omitempty"`
	// Generation is the id of the fetch whose result the state is waiting
	// for; results carrying any other generation are discarded.
	Generation uint64 `json:"generation"`
	LoadedKey  string `json:"loadedKey,omitempty"`
}

// Preferences seed a new State.
type Preferences struct {
	View           calendar.View
	DaysCount      int
	TimeFormat     TimeFormat
	Locale         string
	FirstDayOfWeek time.Weekday
	Settings       Settings
}

// New returns the idle initial state for date.
func New(date time.Time, prefs Preferences) State {
	s := State{
		CurrentView:    calendar.ParseView(string(prefs.View)),
		DaysCount:      prefs.DaysCount,
		SelectedDate:   date,
		ViewMode:       ModeCalendar,
		TimeFormat:     prefs.TimeFormat,
		Locale:         prefs.Locale,
		FirstDayOfWeek: prefs.FirstDayOfWeek,
		ViewSettings:   prefs.Settings,
		Phase:          PhaseIdle,
		Events:         []calendar.Event{},
	}
	if s.DaysCount <= 0 {
		s.DaysCount = 3
	}
	if s.TimeFormat == "" {
		s.TimeFormat = Format24h
	}
	if s.Locale == "" {
		s.Locale = "pt-BR"
	}
	if s.ViewSettings == nil {
		s.ViewSettings = DefaultSettings()
	}
	return s
}

// QueryKey identifies the (date, view) pair a fetch was issued for.
func (s State) QueryKey() string {
	key := fmt.Sprintf("%s|%s", s.CurrentView, calendar.DateKey(s.SelectedDate))
	if s.CurrentView == calendar.ViewDays {
		key += fmt.Sprintf("|%d", s.DaysCount)
	}
	return key
}

// Query is the fetch query for the current view and date.
func (s State) Query() calendar.Query {
	return calendar.Query{Date: s.SelectedDate, View: s.CurrentView, DaysCount: s.DaysCount}
}

// IsQuickAddDialogOpen reports whether the create/edit dialog is shown.
func (s State) IsQuickAddDialogOpen() bool {
	return s.Phase == PhaseQuickAdd || s.Phase == PhaseEditing
}

// IsDayEventsDialogOpen reports whether the day list dialog is shown.
func (s State) IsDayEventsDialogOpen() bool { return s.Phase == PhaseDayList }

// CurrentSettings returns the settings of the active view.
func (s State) CurrentSettings() ViewSettings { return s.ViewSettings.For(s.CurrentView) }

// Fresh reports whether the loaded events belong to the current query.
func (s State) Fresh() bool { return !s.Loading && s.LoadedKey == s.QueryKey() }

// QueryValues mirrors date and view into URL query parameters.
func (s State) QueryValues() url.Values {
	v := url.Values{}
	v.Set("date", calendar.DateKey(s.SelectedDate))
	v.Set("view", string(s.CurrentView))
	return v
}

// FromQuery applies ?date= and ?view= onto s. Missing or malformed values
// leave the state untouched; the URL is a mirror, never the authority.
func FromQuery(q url.Values, s State) State {
	if raw := strings.TrimSpace(q.Get("view")); raw != "" {
		s = Reduce(s, SetView{View: calendar.ParseView(raw)})
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		loc := s.SelectedDate.Location()
		if d, err := time.ParseInLocation(calendar.DateLayout, raw, loc); err == nil {
			s = Reduce(s, SetDate{Date: d})
		} else if t, err := time.Parse(time.RFC3339, raw); err == nil {
			s = Reduce(s, SetDate{Date: t.In(loc)})
		}
	}
	return s
}
