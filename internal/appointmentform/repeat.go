package appointmentform

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/wolfman30/clinic-calendar/internal/appointments"
)

// DefaultRepeatPreviewLimit caps RepeatPreview when no limit is given.
const DefaultRepeatPreviewLimit = 366

var weekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// RepeatPreview expands a repeating block into the start instants it will
// occupy, from the form start through the repeat end date inclusive. It
// returns nil when the values do not describe a repeating block.
func RepeatPreview(v Values, loc *time.Location, limit int) ([]time.Time, error) {
	if v.Kind != appointments.KindBlock || !v.RepeatEnabled {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if limit <= 0 {
		limit = DefaultRepeatPreviewLimit
	}
	start, err := v.StartsAt(loc)
	if err != nil {
		return nil, err
	}
	endDate, err := time.ParseInLocation(dateLayout, v.RepeatEndDate, loc)
	if err != nil {
		return nil, fmt.Errorf("appointmentform: invalid repeat end date %q: %w", v.RepeatEndDate, err)
	}
	if len(v.RepeatDays) == 0 {
		return nil, fmt.Errorf("appointmentform: repeat days required")
	}

	byDay := make([]rrule.Weekday, 0, len(v.RepeatDays))
	for _, d := range v.RepeatDays {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("appointmentform: invalid weekday %d", d)
		}
		byDay = append(byDay, weekdays[d])
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   start,
		Until:     endDate.AddDate(0, 0, 1).Add(-time.Second),
		Byweekday: byDay,
		Count:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("appointmentform: build repeat rule: %w", err)
	}
	return r.All(), nil
}
