package calendar

import (
	"strings"
	"time"
)

// View is a calendar view type.
type View string

const (
	ViewDay   View = "day"
	ViewDays  View = "days"
	ViewWeek  View = "week"
	ViewMonth View = "month"
	ViewYear  View = "year"
)

// ParseView maps a query tag to a View. Unknown tags fall back to month.
func ParseView(s string) View {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewDay, ViewDays, ViewWeek, ViewMonth, ViewYear:
		return v
	}
	return ViewMonth
}

// Range is an inclusive [Start, End] window; End is the last instant of its day.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Days returns the start of every calendar day in the range.
func (r Range) Days() []time.Time {
	var days []time.Time
	for d := StartOfDay(r.Start); !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ResolveRange computes the query range for a view with ISO (Monday) weeks.
func ResolveRange(ref time.Time, view View, daysCount int) Range {
	return ResolveRangeWeekStart(ref, view, daysCount, time.Monday)
}

// ResolveRangeWeekStart is ResolveRange with an explicit first weekday for
// the week view.
func ResolveRangeWeekStart(ref time.Time, view View, daysCount int, weekStart time.Weekday) Range {
	switch view {
	case ViewDay:
		return Range{Start: StartOfDay(ref), End: EndOfDay(ref)}
	case ViewDays:
		if daysCount <= 0 {
			daysCount = 1
		}
		return Range{Start: StartOfDay(ref), End: EndOfDay(ref.AddDate(0, 0, daysCount-1))}
	case ViewWeek:
		return Range{Start: StartOfWeek(ref, weekStart), End: EndOfWeek(ref, weekStart)}
	case ViewYear:
		start := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())
		return Range{Start: start, End: EndOfDay(time.Date(ref.Year(), time.December, 31, 0, 0, 0, 0, ref.Location()))}
	default:
		return monthRange(ref)
	}
}

// MonthGridRange is the display range of a month grid: from the start of the
// week containing the 1st to the end of the week containing the last day.
func MonthGridRange(ref time.Time, firstDay time.Weekday) Range {
	month := monthRange(ref)
	return Range{Start: StartOfWeek(month.Start, firstDay), End: EndOfWeek(month.End, firstDay)}
}

func monthRange(ref time.Time) Range {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return Range{Start: start, End: EndOfDay(start.AddDate(0, 1, -1))}
}

// StartOfDay truncates t to local midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfWeek returns midnight of the first day of t's week.
func StartOfWeek(t time.Time, firstDay time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(firstDay) + 7) % 7
	return StartOfDay(t).AddDate(0, 0, -offset)
}

// EndOfWeek returns the last instant of t's week.
func EndOfWeek(t time.Time, firstDay time.Weekday) time.Time {
	return EndOfDay(StartOfWeek(t, firstDay).AddDate(0, 0, 6))
}

// ParseWeekday accepts english day names ("monday", "sun") or 0-6.
func ParseWeekday(s string, fallback time.Weekday) time.Weekday {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
		return time.Weekday(s[0] - '0')
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return d
		}
	}
	return fallback
}

// Step moves ref by n view-sized units: days for day, daysCount days for
// days, weeks, months or years. Month and year steps clamp the day so Jan 31
// steps to the end of February.
func Step(ref time.Time, view View, daysCount, n int) time.Time {
	switch view {
	case ViewDay:
		return ref.AddDate(0, 0, n)
	case ViewDays:
		if daysCount <= 0 {
			daysCount = 1
		}
		return ref.AddDate(0, 0, n*daysCount)
	case ViewWeek:
		return ref.AddDate(0, 0, 7*n)
	case ViewYear:
		return addMonthsClamped(ref, 12*n)
	default:
		return addMonthsClamped(ref, n)
	}
}

func addMonthsClamped(ref time.Time, months int) time.Time {
	first := time.Date(ref.Year(), ref.Month(), 1, ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
	target := first.AddDate(0, months, 0)
	last := target.AddDate(0, 1, -1).Day()
	day := ref.Day()
	if day > last {
		day = last
	}
	return target.AddDate(0, 0, day-1)
}
