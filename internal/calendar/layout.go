package calendar

import (
	"sort"
	"time"
)

const (
	// DefaultHourHeight is the pixel height of one hour in day/week views.
	DefaultHourHeight = 64.0
	// DefaultTrackWidth is the percentage of the day column available to
	// events; the remainder is the gutter on the right.
	DefaultTrackWidth = 95.0
	// DefaultMinDuration is the visual floor for short or malformed events.
	DefaultMinDuration = 15 * time.Minute
	// DefaultTitleThreshold is the duration below which titles are hidden.
	DefaultTitleThreshold = 30 * time.Minute
)

// LayoutOptions tunes the day-view geometry.
type LayoutOptions struct {
	HourHeight     float64
	TrackWidth     float64
	StartHour      int
	EndHour        int
	MinDuration    time.Duration
	TitleThreshold time.Duration
}

// DefaultLayoutOptions covers the full day at 64px per hour.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{
		HourHeight:     DefaultHourHeight,
		TrackWidth:     DefaultTrackWidth,
		StartHour:      0,
		EndHour:        24,
		MinDuration:    DefaultMinDuration,
		TitleThreshold: DefaultTitleThreshold,
	}
}

func (o LayoutOptions) normalized() LayoutOptions {
	def := DefaultLayoutOptions()
	if o.HourHeight <= 0 {
		o.HourHeight = def.HourHeight
	}
	if o.TrackWidth <= 0 || o.TrackWidth > 100 {
		o.TrackWidth = def.TrackWidth
	}
	if o.StartHour < 0 || o.StartHour > 23 {
		o.StartHour = 0
	}
	if o.EndHour <= o.StartHour || o.EndHour > 24 {
		o.EndHour = 24
	}
	if o.MinDuration <= 0 {
		o.MinDuration = def.MinDuration
	}
	if o.TitleThreshold < 0 {
		o.TitleThreshold = 0
	}
	return o
}

// MinHeight is the pixel floor derived from MinDuration.
func (o LayoutOptions) MinHeight() float64 {
	o = o.normalized()
	return o.MinDuration.Hours() * o.HourHeight
}

// Placement is an EventPosition: where one event renders in a day column.
// Left, Width and Right are percentages of the column.
type Placement struct {
	Event        Event   `json:"event"`
	Top          float64 `json:"top"`
	Height       float64 `json:"height"`
	Column       int     `json:"column"`
	TotalColumns int     `json:"totalColumns"`
	Left         float64 `json:"left"`
	Width        float64 `json:"width"`
	Right        float64 `json:"right"`
	ShowTitle    bool    `json:"showTitle"`
}

// DayLayout groups the placements of one day.
type DayLayout struct {
	Date       string      `json:"date"`
	Day        time.Time   `json:"day"`
	Placements []Placement `json:"placements"`
}

// OccursOn reports whether the event starts on, ends on, or spans the day
// starting at dayStart.
func OccursOn(e Event, dayStart time.Time) bool {
	dayEnd := dayStart.AddDate(0, 0, 1)
	if !e.StartDate.Before(dayEnd) {
		return false
	}
	if !e.StartDate.Before(dayStart) {
		return true
	}
	return e.EndDate.After(dayStart)
}

type packed struct {
	event     Event
	start     time.Time
	end       time.Time
	visualEnd time.Time
	column    int
}

// LayoutDay places the events touching day. Events are clipped to the
// visible hours; overlapping events are packed into columns and every event
// of a transitively overlapping cluster shares the cluster's column count.
func LayoutDay(events []Event, day time.Time, opts LayoutOptions) []Placement {
	opts = opts.normalized()
	dayStart := StartOfDay(day)
	visibleStart, visibleEnd := opts.visibleWindow(dayStart)

	items := make([]*packed, 0, len(events))
	for _, e := range events {
		if !OccursOn(e, dayStart) || !intersectsWindow(e, visibleStart, visibleEnd) {
			continue
		}
		start := maxTime(e.StartDate, visibleStart)
		end := minTime(e.EndDate, visibleEnd)
		if end.Before(start) {
			end = start
		}
		visualEnd := end
		if visualEnd.Sub(start) < opts.MinDuration {
			visualEnd = start.Add(opts.MinDuration)
		}
		items = append(items, &packed{event: e, start: start, end: end, visualEnd: visualEnd})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.start.Equal(b.start) {
			return a.start.Before(b.start)
		}
		if !a.visualEnd.Equal(b.visualEnd) {
			return a.visualEnd.After(b.visualEnd)
		}
		return a.event.ID < b.event.ID
	})

	totals := make([]int, len(items))
	var (
		columnEnds   []time.Time
		clusterFirst int
		clusterEnd   time.Time
	)
	closeCluster := func(upTo int) {
		for k := clusterFirst; k < upTo; k++ {
			totals[k] = len(columnEnds)
		}
	}

	for i, it := range items {
		if i > clusterFirst && !it.start.Before(clusterEnd) {
			closeCluster(i)
			clusterFirst = i
			columnEnds = columnEnds[:0]
		}
		col := -1
		for c, end := range columnEnds {
			if !end.After(it.start) {
				col = c
				break
			}
		}
		if col < 0 {
			col = len(columnEnds)
			columnEnds = append(columnEnds, it.visualEnd)
		} else {
			columnEnds[col] = it.visualEnd
		}
		it.column = col
		if i == clusterFirst || it.visualEnd.After(clusterEnd) {
			clusterEnd = it.visualEnd
		}
	}
	closeCluster(len(items))

	placements := make([]Placement, 0, len(items))
	for i, it := range items {
		total := totals[i]
		width := opts.TrackWidth / float64(total)
		left := float64(it.column) * width
		height := it.end.Sub(it.start).Hours() * opts.HourHeight
		if floor := opts.MinDuration.Hours() * opts.HourHeight; height < floor {
			height = floor
		}
		placements = append(placements, Placement{
			Event:        it.event,
			Top:          it.start.Sub(visibleStart).Hours() * opts.HourHeight,
			Height:       height,
			Column:       it.column,
			TotalColumns: total,
			Left:         left,
			Width:        width,
			Right:        opts.TrackWidth - (left + width),
			ShowTitle:    it.end.Sub(it.start) >= opts.TitleThreshold,
		})
	}
	return placements
}

// LayoutDays lays out each day independently, for the days and week views.
func LayoutDays(events []Event, days []time.Time, opts LayoutOptions) []DayLayout {
	out := make([]DayLayout, 0, len(days))
	for _, d := range days {
		out = append(out, DayLayout{
			Date:       DateKey(d),
			Day:        StartOfDay(d),
			Placements: LayoutDay(events, d, opts),
		})
	}
	return out
}

// CurrentTimeOffset is the pixel offset of the now-indicator, or false when
// now is outside the visible hours of day.
func CurrentTimeOffset(now, day time.Time, opts LayoutOptions) (float64, bool) {
	opts = opts.normalized()
	dayStart := StartOfDay(day)
	if !dayStart.Equal(StartOfDay(now.In(day.Location()))) {
		return 0, false
	}
	visibleStart, visibleEnd := opts.visibleWindow(dayStart)
	if now.Before(visibleStart) || !now.Before(visibleEnd) {
		return 0, false
	}
	return now.Sub(visibleStart).Hours() * opts.HourHeight, true
}

// visibleWindow builds the wall-clock window on dayStart's date so a DST
// change inside the day does not shift EndHour off local midnight.
func (o LayoutOptions) visibleWindow(dayStart time.Time) (time.Time, time.Time) {
	y, m, d := dayStart.Date()
	loc := dayStart.Location()
	return time.Date(y, m, d, o.StartHour, 0, 0, 0, loc), time.Date(y, m, d, o.EndHour, 0, 0, 0, loc)
}

// intersectsWindow reports whether e overlaps [from, to). Events without a
// positive duration count when their start lies inside the window.
func intersectsWindow(e Event, from, to time.Time) bool {
	if !e.StartDate.Before(to) {
		return false
	}
	if !e.EndDate.After(e.StartDate) {
		return !e.StartDate.Before(from)
	}
	return e.EndDate.After(from)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
