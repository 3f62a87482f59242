package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseView(t *testing.T) {
	assert.Equal(t, ViewWeek, ParseView(" Week "))
	assert.Equal(t, ViewDays, ParseView("days"))
	assert.Equal(t, ViewMonth, ParseView("agenda"))
	assert.Equal(t, ViewMonth, ParseView(""))
}

func TestResolveRange_ContainsReferenceForEveryView(t *testing.T) {
	ref := time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC) // Wednesday
	for _, view := range []View{ViewDay, ViewDays, ViewWeek, ViewMonth, ViewYear, View("bogus")} {
		r := ResolveRange(ref, view, 3)
		assert.Truef(t, !r.Start.After(ref) && !ref.After(r.End), "view %s: %v not in %v..%v", view, ref, r.Start, r.End)
		assert.Equal(t, 0, r.Start.Hour(), "view %s start-of-day", view)
		assert.Equal(t, 23, r.End.Hour(), "view %s end-of-day", view)
	}
}

func TestResolveRange_Units(t *testing.T) {
	ref := time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)

	day := ResolveRange(ref, ViewDay, 0)
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), day.Start)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), day.End.Add(time.Nanosecond))

	days := ResolveRange(ref, ViewDays, 4)
	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), days.End.Add(time.Nanosecond))
	assert.Len(t, days.Days(), 4)

	clamped := ResolveRange(ref, ViewDays, -2)
	assert.Equal(t, day, clamped)

	week := ResolveRange(ref, ViewWeek, 0)
	assert.Equal(t, time.Monday, week.Start.Weekday())
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), week.Start)
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), week.End.Add(time.Nanosecond))

	month := ResolveRange(ref, ViewMonth, 0)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), month.Start)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), month.End.Add(time.Nanosecond))

	year := ResolveRange(ref, ViewYear, 0)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), year.Start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), year.End.Add(time.Nanosecond))

	assert.Equal(t, month, ResolveRange(ref, View("unknown"), 0))
}

func TestResolveRange_WeekOnSunday(t *testing.T) {
	sunday := time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)
	iso := ResolveRange(sunday, ViewWeek, 0)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), iso.Start)

	us := ResolveRangeWeekStart(sunday, ViewWeek, 0, time.Sunday)
	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), us.Start)
}

func TestMonthGridRange_IncludesAdjacentMonthDays(t *testing.T) {
	ref := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)

	grid := MonthGridRange(ref, time.Sunday)
	assert.Equal(t, time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC), grid.Start)
	assert.Equal(t, time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC), grid.End.Add(time.Nanosecond))
	assert.Len(t, grid.Days(), 42)

	query := ResolveRange(ref, ViewMonth, 0)
	assert.True(t, grid.Start.Before(query.Start))
	assert.True(t, grid.End.After(query.End))

	monday := MonthGridRange(ref, time.Monday)
	assert.Equal(t, time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC), monday.Start)
	assert.Len(t, monday.Days(), 35)
}

func TestParseWeekday(t *testing.T) {
	assert.Equal(t, time.Sunday, ParseWeekday("sunday", time.Monday))
	assert.Equal(t, time.Sunday, ParseWeekday("0", time.Monday))
	assert.Equal(t, time.Tuesday, ParseWeekday("Tue", time.Monday))
	assert.Equal(t, time.Monday, ParseWeekday("", time.Monday))
	assert.Equal(t, time.Monday, ParseWeekday("xx", time.Monday))
}

func TestStep(t *testing.T) {
	ref := time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), Step(ref, ViewDay, 0, 1))
	assert.Equal(t, time.Date(2024, 1, 28, 9, 0, 0, 0, time.UTC), Step(ref, ViewDays, 3, -1))
	assert.Equal(t, time.Date(2024, 2, 7, 9, 0, 0, 0, time.UTC), Step(ref, ViewWeek, 0, 1))
	assert.Equal(t, time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC), Step(ref, ViewMonth, 0, 1))
	assert.Equal(t, time.Date(2023, 12, 31, 9, 0, 0, 0, time.UTC), Step(ref, ViewMonth, 0, -1))

	leap := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), Step(leap, ViewYear, 0, 1))
}
