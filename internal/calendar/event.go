package calendar

import (
	"time"

	"github.com/wolfman30/clinic-calendar/internal/appointments"
)

// Color tokens used by the renderers.
const (
	ColorGray   = "gray"
	ColorGreen  = "green"
	ColorBlue   = "blue"
	ColorRed    = "red"
	ColorYellow = "yellow"
)

// Event is the render-ready projection of an appointment.
type Event struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Category      string              `json:"category"`
	Color         string              `json:"color"`
	Kind          appointments.Kind   `json:"kind"`
	Status        appointments.Status `json:"status"`
	StartDate     time.Time           `json:"startDate"`
	EndDate       time.Time           `json:"endDate"`
	StartTime     string              `json:"startTime"`
	EndTime       string              `json:"endTime"`
	IsRepeating   bool                `json:"isRepeating"`
	RepeatingType string              `json:"repeatingType,omitempty"`
}

// Duration is EndDate - StartDate; it may be non-positive for malformed rows.
func (e Event) Duration() time.Duration {
	return e.EndDate.Sub(e.StartDate)
}

// FromRecord maps a calendar row into an Event, converting instants into loc.
func FromRecord(rec appointments.CalendarRecord, loc *time.Location) Event {
	if loc == nil {
		loc = time.Local
	}
	start := rec.Start.In(loc)
	end := rec.End.In(loc)
	return Event{
		ID:        rec.ID.String(),
		Title:     rec.Title,
		Category:  CategoryLabel(rec.Kind),
		Color:     ColorFor(rec.Kind, rec.Status),
		Kind:      rec.Kind,
		Status:    rec.Status,
		StartDate: start,
		EndDate:   end,
		StartTime: start.Format(ClockLayout),
		EndTime:   end.Format(ClockLayout),
	}
}

// ClockLayout is the "HH:mm" format of Event.StartTime/EndTime.
const ClockLayout = "15:04"

// CategoryLabel returns the display label for an appointment kind.
func CategoryLabel(kind appointments.Kind) string {
	switch kind {
	case appointments.KindConsultation:
		return "Consulta"
	case appointments.KindProcedure:
		return "Procedimento"
	case appointments.KindBlock:
		return "Bloqueio"
	default:
		return string(kind)
	}
}

// ColorFor picks the color token; kind wins over status.
func ColorFor(kind appointments.Kind, status appointments.Status) string {
	switch {
	case kind == appointments.KindBlock:
		return ColorGray
	case kind == appointments.KindProcedure:
		return ColorGreen
	case status == appointments.StatusConfirmed:
		return ColorBlue
	case status == appointments.StatusCanceled:
		return ColorRed
	default:
		return ColorYellow
	}
}
