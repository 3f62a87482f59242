// Package appointmentform derives, validates and maps the values of the
// appointment create/edit dialog.
package appointmentform

import (
	"fmt"
	"time"

	"github.com/wolfman30/clinic-calendar/internal/appointments"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"

	// DefaultDurationMinutes applies when no usable duration can be derived.
	DefaultDurationMinutes = 30
)

// Mode distinguishes create and edit dialogs.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Values is the form state of the appointment dialog. Ids are strings; an
// empty string means null.
type Values struct {
	Kind                appointments.Kind   `json:"kind"`
	Status              appointments.Status `json:"status"`
	PatientID           string              `json:"patientId"`
	UserID              string              `json:"userId"`
	InformFacility      bool                `json:"informFacility"`
	FacilityItemID      string              `json:"facilityItemId"`
	Date                string              `json:"date"`
	StartTime           string              `json:"startTime"`
	DurationMinutes     int                 `json:"durationMinutes"`
	FirstVisit          bool                `json:"firstVisit"`
	IsReturn            bool                `json:"isReturn"`
	AestheticEvaluation bool                `json:"aestheticEvaluation"`
	OnlineBooking       bool                `json:"onlineBooking"`
	OnlineBookingLink   string              `json:"onlineBookingLink"`
	RepeatEnabled       bool                `json:"repeatEnabled"`
	RepeatEndDate       string              `json:"repeatEndDate"`
	RepeatDays          []int               `json:"repeatDays"`
	Notes               string              `json:"notes"`
}

// QuickAdd is the context captured when an empty slot or day is clicked.
// StartTime/EndTime are "HH:mm" and may be empty.
type QuickAdd struct {
	Date      time.Time `json:"date"`
	StartTime string    `json:"startTime,omitempty"`
	EndTime   string    `json:"endTime,omitempty"`
	Position  *Position `json:"position,omitempty"`
}

// Position is the click position of a quick-add trigger, in pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultsInput collects everything the default derivation depends on.
type DefaultsInput struct {
	Mode     Mode
	QuickAdd *QuickAdd
	Existing *appointments.Appointment
	Now      time.Time
	Location *time.Location
}

// Defaults derives the initial form values. It is a pure function of its
// input; Now must be supplied by the caller.
func Defaults(in DefaultsInput) Values {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	if in.Mode == ModeEdit && in.Existing != nil {
		return fromAppointment(*in.Existing, loc)
	}

	v := Values{
		Kind:            appointments.KindConsultation,
		Status:          appointments.StatusScheduled,
		DurationMinutes: DefaultDurationMinutes,
		RepeatDays:      []int{},
	}

	now := in.Now.In(loc)
	date := now
	if in.QuickAdd != nil && !in.QuickAdd.Date.IsZero() {
		date = in.QuickAdd.Date.In(loc)
	}
	v.Date = date.Format(dateLayout)

	if qa := in.QuickAdd; qa != nil && qa.StartTime != "" {
		v.StartTime = qa.StartTime
		if qa.EndTime != "" {
			v.DurationMinutes = durationBetween(qa.StartTime, qa.EndTime)
		}
		return v
	}
	v.StartTime = RoundDownToHalfHour(now).Format(clockLayout)
	return v
}

func fromAppointment(a appointments.Appointment, loc *time.Location) Values {
	start := a.StartsAt.In(loc)
	v := Values{
		Kind:                a.Kind,
		Status:              a.Status,
		PatientID:           idString(a.PatientID),
		UserID:              idString(a.UserID),
		FacilityItemID:      idString(a.FacilityItemID),
		InformFacility:      a.FacilityItemID != nil && *a.FacilityItemID != "",
		Date:                start.Format(dateLayout),
		StartTime:           start.Format(clockLayout),
		DurationMinutes:     a.DurationMinutes,
		FirstVisit:          a.FirstVisit,
		IsReturn:            a.IsReturn,
		AestheticEvaluation: a.AestheticEvaluation,
		OnlineBooking:       a.OnlineBooking,
		OnlineBookingLink:   a.OnlineBookingLink,
		RepeatEnabled:       a.RepeatOptions != nil,
		RepeatDays:          []int{},
		Notes:               a.Notes,
	}
	if a.RepeatOptions != nil {
		v.RepeatEndDate = a.RepeatOptions.EndDate
		v.RepeatDays = append([]int{}, a.RepeatOptions.Days...)
	}
	return v
}

func idString(id *appointments.ID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// durationBetween returns end-start in minutes, or the default when the
// delta is non-positive or either clock is malformed.
func durationBetween(start, end string) int {
	s, err1 := time.Parse(clockLayout, start)
	e, err2 := time.Parse(clockLayout, end)
	if err1 != nil || err2 != nil {
		return DefaultDurationMinutes
	}
	minutes := int(e.Sub(s).Minutes())
	if minutes <= 0 {
		return DefaultDurationMinutes
	}
	return minutes
}

// RoundDownToHalfHour floors t to the previous :00 or :30 mark.
func RoundDownToHalfHour(t time.Time) time.Time {
	minute := (t.Minute() / 30) * 30
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

// StartsAt combines Date and StartTime in loc.
func (v Values) StartsAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(dateLayout+" "+clockLayout, v.Date+" "+v.StartTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("appointmentform: invalid date/start time %q %q: %w", v.Date, v.StartTime, err)
	}
	return t, nil
}

// EndsAt is StartsAt plus DurationMinutes.
func (v Values) EndsAt(loc *time.Location) (time.Time, error) {
	start, err := v.StartsAt(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(v.DurationMinutes) * time.Minute), nil
}

// EndTime is the "HH:mm" end derived from start and duration.
func (v Values) EndTime() string {
	start, err := time.Parse(clockLayout, v.StartTime)
	if err != nil {
		return ""
	}
	return start.Add(time.Duration(v.DurationMinutes) * time.Minute).Format(clockLayout)
}

// WithStartTime moves the start keeping the duration, so the end shifts.
func (v Values) WithStartTime(start string) Values {
	v.StartTime = start
	return v
}

// WithDuration changes the duration keeping the start.
func (v Values) WithDuration(minutes int) Values {
	v.DurationMinutes = minutes
	return v
}

// WithEndTime recomputes the duration from a new end time.
func (v Values) WithEndTime(end string) Values {
	v.DurationMinutes = durationBetween(v.StartTime, end)
	return v
}
