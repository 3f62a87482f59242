package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-calendar/internal/appointments"
	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

// Source lists calendar rows for a range. *appointments.Client implements it.
type Source interface {
	ListCalendar(ctx context.Context, req appointments.ListRequest) ([]appointments.CalendarRecord, error)
}

// FetchObserver receives fetch outcomes; the metrics package implements it.
type FetchObserver interface {
	ObserveFetch(view string, status string, seconds float64)
}

// Query selects the events for a reference date and view.
type Query struct {
	Date      time.Time
	View      View
	DaysCount int
	Limit     int
	Offset    int
	Search    string
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Source    Source
	Location  *time.Location
	WeekStart time.Weekday
	Observer  FetchObserver
	Logger    *logging.Logger
}

// Fetcher resolves ranges and adapts backend rows into events.
type Fetcher struct {
	source    Source
	loc       *time.Location
	weekStart time.Weekday
	observer  FetchObserver
	logger    *logging.Logger
}

// NewFetcher creates a Fetcher. WeekStart defaults to Sunday's zero value, so
// callers wanting ISO weeks pass time.Monday explicitly.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Fetcher{
		source:    cfg.Source,
		loc:       loc,
		weekStart: cfg.WeekStart,
		observer:  cfg.Observer,
		logger:    logger,
	}
}

// Location is the display timezone events are converted into.
func (f *Fetcher) Location() *time.Location { return f.loc }

// Range resolves the query range for q.
func (f *Fetcher) Range(q Query) Range {
	return ResolveRangeWeekStart(q.Date.In(f.loc), q.View, q.DaysCount, f.weekStart)
}

// List issues a single backend request for the resolved range and maps every
// row. Any failure is returned as one error; no partial list is produced.
func (f *Fetcher) List(ctx context.Context, q Query) ([]Event, error) {
	if f == nil || f.source == nil {
		return nil, fmt.Errorf("calendar: fetcher not configured")
	}
	r := f.Range(q)
	started := time.Now()

	records, err := f.source.ListCalendar(ctx, appointments.ListRequest{
		Start:  r.Start,
		End:    r.End,
		Limit:  q.Limit,
		Offset: q.Offset,
		Search: q.Search,
	})
	elapsed := time.Since(started).Seconds()
	if err != nil {
		f.observe(q.View, "error", elapsed)
		f.logger.Warn("calendar fetch failed",
			"view", string(q.View),
			"range_start", r.Start.Format(time.RFC3339),
			"range_end", r.End.Format(time.RFC3339),
			"error", err,
		)
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}

	events := make([]Event, 0, len(records))
	for _, rec := range records {
		events = append(events, FromRecord(rec, f.loc))
	}
	f.observe(q.View, "ok", elapsed)
	f.logger.Debug("calendar fetch completed",
		"view", string(q.View),
		"range_start", r.Start.Format(time.RFC3339),
		"count", len(events),
	)
	return events, nil
}

func (f *Fetcher) observe(view View, status string, seconds float64) {
	if f.observer == nil {
		return
	}
	f.observer.ObserveFetch(string(view), status, seconds)
}
