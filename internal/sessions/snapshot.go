package sessions

import (
	"time"

	"github.com/wolfman30/clinic-calendar/internal/calendar"
	"github.com/wolfman30/clinic-calendar/internal/calendar/viewstate"
)

// Snapshot is the persisted part of a session: navigation and display
// preferences. Dialogs, form values and loaded events are never stored.
type Snapshot struct {
	ID             string               `json:"id"`
	UserID         string               `json:"user_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	View           calendar.View        `json:"view"`
	DaysCount      int                  `json:"days_count"`
	SelectedDate   time.Time            `json:"selected_date"`
	ViewMode       viewstate.ViewMode   `json:"view_mode"`
	TimeFormat     viewstate.TimeFormat `json:"time_format"`
	Locale         string               `json:"locale"`
	FirstDayOfWeek time.Weekday         `json:"first_day_of_week"`
	ViewSettings   viewstate.Settings   `json:"view_settings,omitempty"`
}

// SnapshotOf captures st for session id.
func SnapshotOf(id, userID string, st viewstate.State, createdAt, now time.Time) Snapshot {
	return Snapshot{
		ID:             id,
		UserID:         userID,
		CreatedAt:      createdAt,
		UpdatedAt:      now,
		View:           st.CurrentView,
		DaysCount:      st.DaysCount,
		SelectedDate:   st.SelectedDate,
		ViewMode:       st.ViewMode,
		TimeFormat:     st.TimeFormat,
		Locale:         st.Locale,
		FirstDayOfWeek: st.FirstDayOfWeek,
		ViewSettings:   st.ViewSettings.Clone(),
	}
}

// State rebuilds an idle view state in loc.
func (s Snapshot) State(loc *time.Location) viewstate.State {
	if loc == nil {
		loc = time.Local
	}
	st := viewstate.New(s.SelectedDate.In(loc), viewstate.Preferences{
		View:           s.View,
		DaysCount:      s.DaysCount,
		TimeFormat:     s.TimeFormat,
		Locale:         s.Locale,
		FirstDayOfWeek: s.FirstDayOfWeek,
		Settings:       s.ViewSettings,
	})
	return viewstate.Reduce(st, viewstate.SetViewMode{Mode: s.ViewMode})
}
