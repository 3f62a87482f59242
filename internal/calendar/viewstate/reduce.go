package viewstate

import (
	"time"

	"github.com/wolfman30/clinic-calendar/internal/appointmentform"
	"github.com/wolfman30/clinic-calendar/internal/appointments"
	"github.com/wolfman30/clinic-calendar/internal/calendar"
)

// Action is a state transition understood by Reduce.
type Action interface {
	actionName() string
}

type (
	SetView            struct{ View calendar.View }
	SetDate            struct{ Date time.Time }
	SetDaysCount       struct{ DaysCount int }
	SetViewMode        struct{ Mode ViewMode }
	SetTimeFormat      struct{ Format TimeFormat }
	SetLocale          struct{ Locale string }
	SetFirstDayOfWeek  struct{ Day time.Weekday }
	UpdateViewSettings struct {
		View     calendar.View
		Settings ViewSettings
	}

	OpenQuickAdd        struct{ Data appointmentform.QuickAdd }
	OpenAppointmentEdit struct{ Appointment appointments.Appointment }
	OpenDayEvents       struct {
		Date   time.Time
		Events []calendar.Event
	}
	CloseDialog   struct{}
	SubmitStarted struct{}
	SubmitFailed  struct {
		Error      string
		Violations appointmentform.Violations
	}

	FetchStarted   struct{ Generation uint64 }
	FetchSucceeded struct {
		Generation uint64
		Key        string
		Events     []calendar.Event
	}
	FetchFailed struct {
		Generation uint64
		Key        string
		Error      string
	}

	Notify      struct{ Message string }
	ClearNotice struct{}
)

func (SetView) actionName() string             { return "set_view" }
func (SetDate) actionName() string             { return "set_date" }
func (SetDaysCount) actionName() string        { return "set_days_count" }
func (SetViewMode) actionName() string         { return "set_view_mode" }
func (SetTimeFormat) actionName() string       { return "set_time_format" }
func (SetLocale) actionName() string           { return "set_locale" }
func (SetFirstDayOfWeek) actionName() string   { return "set_first_day_of_week" }
func (UpdateViewSettings) actionName() string  { return "update_view_settings" }
func (OpenQuickAdd) actionName() string        { return "open_quick_add" }
func (OpenAppointmentEdit) actionName() string { return "open_appointment_edit" }
func (OpenDayEvents) actionName() string       { return "open_day_events" }
func (CloseDialog) actionName() string         { return "close_dialog" }
func (SubmitStarted) actionName() string       { return "submit_started" }
func (SubmitFailed) actionName() string        { return "submit_failed" }
func (FetchStarted) actionName() string        { return "fetch_started" }
func (FetchSucceeded) actionName() string      { return "fetch_succeeded" }
func (FetchFailed) actionName() string         { return "fetch_failed" }
func (Notify) actionName() string              { return "notify" }
func (ClearNotice) actionName() string         { return "clear_notice" }

// ActionName returns the log/metric label of an action.
func ActionName(a Action) string {
	if a == nil {
		return "unknown"
	}
	return a.actionName()
}

// Reduce applies a to s and returns the next state. It is pure: s is not
// modified and nothing outside the returned value changes.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetView:
		s.CurrentView = calendar.ParseView(string(a.View))
	case SetDate:
		if !a.Date.IsZero() {
			s.SelectedDate = a.Date
		}
	case SetDaysCount:
		s.DaysCount = a.DaysCount
		if s.DaysCount <= 0 {
			s.DaysCount = 1
		}
	case SetViewMode:
		if a.Mode == ModeCalendar || a.Mode == ModeList {
			s.ViewMode = a.Mode
		}
	case SetTimeFormat:
		if a.Format == Format12h || a.Format == Format24h {
			s.TimeFormat = a.Format
		}
	case SetLocale:
		if a.Locale != "" {
			s.Locale = a.Locale
		}
	case SetFirstDayOfWeek:
		if a.Day >= time.Sunday && a.Day <= time.Saturday {
			s.FirstDayOfWeek = a.Day
		}
	case UpdateViewSettings:
		settings := s.ViewSettings.Clone()
		settings[calendar.ParseView(string(a.View))] = a.Settings
		s.ViewSettings = settings

	case OpenQuickAdd:
		s = closeDialog(s)
		data := a.Data
		s.Phase = PhaseQuickAdd
		s.FormMode = appointmentform.ModeCreate
		s.QuickAddData = &data
	case OpenAppointmentEdit:
		s = closeDialog(s)
		appt := a.Appointment
		s.Phase = PhaseEditing
		s.FormMode = appointmentform.ModeEdit
		s.AppointmentToEdit = &appt
	case OpenDayEvents:
		s = closeDialog(s)
		s.Phase = PhaseDayList
		s.DayEvents = DayEventsDialog{
			Open:   true,
			Date:   a.Date,
			Events: append([]calendar.Event{}, a.Events...),
		}
	case CloseDialog:
		s = closeDialog(s)
	case SubmitStarted:
		if s.IsQuickAddDialogOpen() {
			s.Submitting = true
			s.DialogError = ""
			s.Violations = nil
		}
	case SubmitFailed:
		if s.IsQuickAddDialogOpen() {
			s.Submitting = false
			s.DialogError = a.Error
			s.Violations = append(appointmentform.Violations(nil), a.Violations...)
		}

	case FetchStarted:
		if a.Generation <= s.Generation {
			return s
		}
		s.Generation = a.Generation
		s.Loading = true
		s.FetchError = ""
	case FetchSucceeded:
		if !s.accepts(a.Generation, a.Key) {
			return s
		}
		s.Loading = false
		s.FetchError = ""
		s.Events = append([]calendar.Event{}, a.Events...)
		s.LoadedKey = a.Key
	case FetchFailed:
		if !s.accepts(a.Generation, a.Key) {
			return s
		}
		s.Loading = false
		s.FetchError = a.Error
		s.Events = []calendar.Event{}
		s.LoadedKey = a.Key

	case Notify:
		s.Notice = a.Message
	case ClearNotice:
		s.Notice = ""
	}
	return s
}

// accepts reports whether a fetch result belongs to the active request and
// still matches the current (date, view) pair.
func (s State) accepts(generation uint64, key string) bool {
	return generation == s.Generation && key == s.QueryKey()
}

func closeDialog(s State) State {
	s.Phase = PhaseIdle
	s.FormMode = ""
	s.AppointmentToEdit = nil
	s.QuickAddData = nil
	s.DayEvents = DayEventsDialog{}
	s.Submitting = false
	s.DialogError = ""
	s.Violations = nil
	return s
}
