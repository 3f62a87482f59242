package calendar

import (
	"sort"
	"time"
)

// DateLayout is the yyyy-MM-dd group key format.
const DateLayout = "2006-01-02"

// DateKey formats t as a group key in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// GroupByDate groups events by the date of StartDate only: a multi-day event
// appears under its start date and nowhere else.
func GroupByDate(events []Event) map[string][]Event {
	groups := make(map[string][]Event)
	for _, e := range events {
		key := DateKey(e.StartDate)
		groups[key] = append(groups[key], e)
	}
	for key := range groups {
		sortByStart(groups[key])
	}
	return groups
}

func sortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.Before(events[j].StartDate)
		}
		return events[i].ID < events[j].ID
	})
}

// DayCell is one square of a month grid.
type DayCell struct {
	Date    string    `json:"date"`
	Day     time.Time `json:"day"`
	InMonth bool      `json:"inMonth"`
	Count   int       `json:"count"`
	Events  []Event   `json:"events"`
	Visible []Event   `json:"visible"`
	More    int       `json:"more"`
}

// MonthGrid is a full month grid including adjacent-month days.
type MonthGrid struct {
	Year     int         `json:"year"`
	Month    time.Month  `json:"month"`
	FirstDay string      `json:"firstDay"`
	Range    Range       `json:"range"`
	Weeks    [][]DayCell `json:"weeks"`
}

// BuildMonthGrid enumerates every cell from the start of the week holding
// the 1st through the end of the week holding the last day. maxPerCell <= 0
// shows every event in a cell.
func BuildMonthGrid(ref time.Time, firstDay time.Weekday, events []Event, maxPerCell int) MonthGrid {
	groups := GroupByDate(events)
	return buildMonthGrid(ref, firstDay, groups, maxPerCell)
}

func buildMonthGrid(ref time.Time, firstDay time.Weekday, groups map[string][]Event, maxPerCell int) MonthGrid {
	r := MonthGridRange(ref, firstDay)
	grid := MonthGrid{
		Year:     ref.Year(),
		Month:    ref.Month(),
		FirstDay: firstDay.String(),
		Range:    r,
	}
	var week []DayCell
	for _, d := range r.Days() {
		key := DateKey(d)
		dayEvents := groups[key]
		visible, more := Truncate(dayEvents, maxPerCell)
		week = append(week, DayCell{
			Date:    key,
			Day:     d,
			InMonth: d.Month() == ref.Month() && d.Year() == ref.Year(),
			Count:   len(dayEvents),
			Events:  nonNil(dayEvents),
			Visible: nonNil(visible),
			More:    more,
		})
		if len(week) == 7 {
			grid.Weeks = append(grid.Weeks, week)
			week = nil
		}
	}
	return grid
}

// Truncate applies a "show N more" policy.
func Truncate(events []Event, limit int) ([]Event, int) {
	if limit <= 0 || len(events) <= limit {
		return events, 0
	}
	return events[:limit], len(events) - limit
}

// MonthSummary is one card of the year grid.
type MonthSummary struct {
	Month   time.Month         `json:"month"`
	Count   int                `json:"count"`
	ByDate  map[string][]Event `json:"byDate"`
	Preview []Event            `json:"preview"`
	More    int                `json:"more"`
	Weeks   [][]DayCell        `json:"weeks"`
}

// YearGrid holds the twelve month summaries of a year.
type YearGrid struct {
	Year   int            `json:"year"`
	Range  Range          `json:"range"`
	Months []MonthSummary `json:"months"`
}

// BuildYearGrid counts and groups events per month. An event counts toward a
// month only when its start date falls in that month of year.
func BuildYearGrid(year int, loc *time.Location, firstDay time.Weekday, events []Event, previewPerMonth int) YearGrid {
	if loc == nil {
		loc = time.Local
	}
	ref := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	grid := YearGrid{Year: year, Range: ResolveRange(ref, ViewYear, 0)}

	perMonth := make(map[time.Month][]Event, 12)
	for _, e := range events {
		start := e.StartDate.In(loc)
		if start.Year() != year {
			continue
		}
		perMonth[start.Month()] = append(perMonth[start.Month()], e)
	}

	for m := time.January; m <= time.December; m++ {
		monthEvents := perMonth[m]
		sortByStart(monthEvents)
		groups := GroupByDate(monthEvents)
		preview, more := Truncate(monthEvents, previewPerMonth)
		monthRef := time.Date(year, m, 1, 0, 0, 0, 0, loc)
		grid.Months = append(grid.Months, MonthSummary{
			Month:   m,
			Count:   len(monthEvents),
			ByDate:  groups,
			Preview: nonNil(preview),
			More:    more,
			Weeks:   buildMonthGrid(monthRef, firstDay, groups, 0).Weeks,
		})
	}
	return grid
}

// DayClickAction is the dialog a day click opens.
type DayClickAction string

const (
	OpenQuickAdd  DayClickAction = "quick_add"
	OpenDayEvents DayClickAction = "day_events"
)

// DayClick is the outcome of clicking a month/year day cell.
type DayClick struct {
	Action DayClickAction `json:"action"`
	Date   time.Time      `json:"date"`
	Events []Event        `json:"events"`
}

// ClickDay opens quick-add for an empty day and the day-events list when the
// day has at least one event starting on it.
func ClickDay(date time.Time, events []Event) DayClick {
	dayEvents := GroupByDate(events)[DateKey(date)]
	if len(dayEvents) == 0 {
		return DayClick{Action: OpenQuickAdd, Date: StartOfDay(date), Events: []Event{}}
	}
	return DayClick{Action: OpenDayEvents, Date: StartOfDay(date), Events: dayEvents}
}

func nonNil(events []Event) []Event {
	if events == nil {
		return []Event{}
	}
	return events
}
