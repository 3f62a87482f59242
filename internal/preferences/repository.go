// Package preferences stores per-user calendar defaults in Postgres.
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/clinic-calendar/internal/calendar"
	"github.com/wolfman30/clinic-calendar/internal/calendar/viewstate"
)

// ErrNotFound is returned when a user has no stored preferences.
var ErrNotFound = errors.New("preferences: not found")

type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Preferences are the stored calendar defaults of one user.
type Preferences struct {
	UserID         string               `json:"userId"`
	View           calendar.View        `json:"view"`
	DaysCount      int                  `json:"daysCount"`
	TimeFormat     viewstate.TimeFormat `json:"timeFormat"`
	Locale         string               `json:"locale"`
	FirstDayOfWeek int                  `json:"firstDayOfWeek"`
	ViewSettings   viewstate.Settings   `json:"viewSettings,omitempty"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// Validate normalizes p and reports invalid fields.
func (p *Preferences) Validate() error {
	p.UserID = strings.TrimSpace(p.UserID)
	if p.UserID == "" {
		return errors.New("preferences: user id required")
	}
	if p.View == "" {
		p.View = calendar.ViewMonth
	} else if calendar.ParseView(string(p.View)) != p.View {
		return fmt.Errorf("preferences: unknown view %q", p.View)
	}
	if p.DaysCount <= 0 {
		p.DaysCount = 3
	}
	switch p.TimeFormat {
	case "":
		p.TimeFormat = viewstate.Format24h
	case viewstate.Format12h, viewstate.Format24h:
	default:
		return fmt.Errorf("preferences: unknown time format %q", p.TimeFormat)
	}
	if p.Locale == "" {
		p.Locale = "pt-BR"
	}
	if p.FirstDayOfWeek < 0 || p.FirstDayOfWeek > 6 {
		return fmt.Errorf("preferences: first day of week %d out of range", p.FirstDayOfWeek)
	}
	return nil
}

// ViewState converts p into the seed of a new calendar session.
func (p Preferences) ViewState() viewstate.Preferences {
	return viewstate.Preferences{
		View:           p.View,
		DaysCount:      p.DaysCount,
		TimeFormat:     p.TimeFormat,
		Locale:         p.Locale,
		FirstDayOfWeek: time.Weekday(p.FirstDayOfWeek),
		Settings:       p.ViewSettings,
	}
}

// Repository reads and writes calendar_preferences.
type Repository struct {
	db db
}

// NewRepository accepts a *pgxpool.Pool or any compatible querier.
func NewRepository(db db) *Repository {
	if db == nil {
		panic("preferences: db required")
	}
	return &Repository{db: db}
}

const selectPreferences = `
SELECT user_id, default_view, days_count, time_format, locale, first_day_of_week, view_settings, updated_at
FROM calendar_preferences
WHERE user_id = $1`

const upsertPreferences = `
INSERT INTO calendar_preferences (user_id, default_view, days_count, time_format, locale, first_day_of_week, view_settings)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id) DO UPDATE SET
    default_view = EXCLUDED.default_view,
    days_count = EXCLUDED.days_count,
    time_format = EXCLUDED.time_format,
    locale = EXCLUDED.locale,
    first_day_of_week = EXCLUDED.first_day_of_week,
    view_settings = EXCLUDED.view_settings,
    updated_at = NOW()
RETURNING updated_at`

// Get loads the preferences of userID.
func (r *Repository) Get(ctx context.Context, userID string) (*Preferences, error) {
	var (
		p        Preferences
		view     string
		format   string
		settings []byte
	)
	err := r.db.QueryRow(ctx, selectPreferences, userID).Scan(
		&p.UserID, &view, &p.DaysCount, &format, &p.Locale, &p.FirstDayOfWeek, &settings, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("preferences: get %s: %w", userID, err)
	}
	p.View = calendar.ParseView(view)
	p.TimeFormat = viewstate.TimeFormat(format)
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &p.ViewSettings); err != nil {
			return nil, fmt.Errorf("preferences: decode view settings: %w", err)
		}
	}
	return &p, nil
}

// Upsert validates and stores p, returning the stored row.
func (r *Repository) Upsert(ctx context.Context, p Preferences) (*Preferences, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	settings := p.ViewSettings
	if settings == nil {
		settings = viewstate.Settings{}
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("preferences: encode view settings: %w", err)
	}
	err = r.db.QueryRow(ctx, upsertPreferences,
		p.UserID, string(p.View), p.DaysCount, string(p.TimeFormat), p.Locale, p.FirstDayOfWeek, raw,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("preferences: upsert %s: %w", p.UserID, err)
	}
	return &p, nil
}

// Delete removes the preferences of userID.
func (r *Repository) Delete(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM calendar_preferences WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("preferences: delete %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Lookup adapts Get for session seeding.
func (r *Repository) Lookup(ctx context.Context, userID string) (viewstate.Preferences, bool, error) {
	p, err := r.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return viewstate.Preferences{}, false, nil
	}
	if err != nil {
		return viewstate.Preferences{}, false, err
	}
	return p.ViewState(), true, nil
}
