package calendar

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/wolfman30/clinic-calendar/internal/appointments"
)

const icsProductID = "-//clinic-calendar//agenda//PT"

// ExportICS serializes events as an iCalendar feed. Canceled appointments
// are kept with STATUS:CANCELLED so subscribers drop them.
func ExportICS(events []Event, name string, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	sorted := append([]Event(nil), events...)
	sortByStart(sorted)
	for _, e := range sorted {
		ev := cal.AddEvent(e.ID + "@clinic-calendar")
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(e.StartDate.UTC())
		end := e.EndDate
		if !end.After(e.StartDate) {
			end = e.StartDate.Add(DefaultMinDuration)
		}
		ev.SetEndAt(end.UTC())
		summary := e.Title
		if summary == "" {
			summary = e.Category
		}
		ev.SetSummary(summary)
		ev.SetProperty(ical.ComponentPropertyCategories, e.Category)
		ev.SetProperty(ical.ComponentProperty("COLOR"), e.Color)
		switch e.Status {
		case appointments.StatusCanceled:
			ev.SetStatus(ical.ObjectStatusCancelled)
		case appointments.StatusConfirmed:
			ev.SetStatus(ical.ObjectStatusConfirmed)
		default:
			ev.SetStatus(ical.ObjectStatusTentative)
		}
	}
	return cal.Serialize()
}
