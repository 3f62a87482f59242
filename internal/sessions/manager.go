// Package sessions maps browser sessions to calendar controllers. Controllers
// live in memory; their navigation state is snapshotted to Redis so a session
// survives eviction and restarts.
package sessions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-calendar/internal/calendar/viewstate"
	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

// DefaultIdleTimeout is how long an untouched controller stays in memory.
const DefaultIdleTimeout = 30 * time.Minute

// PreferenceSource returns stored preferences for a user. found is false
// when the user has none.
type PreferenceSource interface {
	Lookup(ctx context.Context, userID string) (prefs viewstate.Preferences, found bool, err error)
}

// Observer receives the number of in-memory sessions.
type Observer interface {
	SetActiveSessions(n int)
}

// Session is one browser calendar session.
type Session struct {
	ID         string
	UserID     string
	CreatedAt  time.Time
	Controller *viewstate.Controller

	mu       sync.Mutex
	lastSeen time.Time
}

// LastSeen is the last time the session was used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// Config configures a Manager.
type Config struct {
	Store        SnapshotStore
	Events       viewstate.EventLister
	Appointments viewstate.AppointmentService
	Preferences  PreferenceSource
	Defaults     viewstate.Preferences
	Controller   viewstate.Observer
	Observer     Observer
	IdleTimeout  time.Duration
	Logger       *logging.Logger
	Now          func() time.Time
}

// Manager owns the live sessions.
type Manager struct {
	cfg    Config
	logger *logging.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager.
func NewManager(cfg Config) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger.Component("sessions"),
		now:      now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session for userID (which may be empty) seeded from the
// user's stored preferences or the service defaults.
func (m *Manager) Create(ctx context.Context, userID string) (*Session, error) {
	prefs := m.cfg.Defaults
	if userID != "" && m.cfg.Preferences != nil {
		stored, found, err := m.cfg.Preferences.Lookup(ctx, userID)
		if err != nil {
			m.logger.Warn("load user preferences failed", "user_id", userID, "error", err)
		} else if found {
			prefs = mergePreferences(prefs, stored)
		}
	}

	now := m.now()
	st := viewstate.New(now.In(m.location()), prefs)
	sess, _ := m.attach(uuid.NewString(), userID, now, st)
	if err := m.Save(ctx, sess); err != nil {
		return sess, err
	}
	m.logger.Info("session created", "session_id", sess.ID, "user_id", userID)
	return sess, nil
}

// Get returns a live session or restores it from its snapshot.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		sess.touch(m.now())
		return sess, nil
	}
	if m.cfg.Store == nil {
		return nil, ErrNotFound
	}

	snap, err := m.cfg.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	sess, restored := m.attach(snap.ID, snap.UserID, snap.CreatedAt, snap.State(m.location()))
	if restored {
		m.logger.Debug("session restored", "session_id", id)
	}
	return sess, nil
}

// Save snapshots the session's current state and marks it used.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	now := m.now()
	sess.touch(now)
	if m.cfg.Store == nil {
		return nil
	}
	snap := SnapshotOf(sess.ID, sess.UserID, sess.Controller.State(), sess.CreatedAt, now)
	if err := m.cfg.Store.Save(ctx, snap); err != nil {
		return fmt.Errorf("sessions: save %s: %w", sess.ID, err)
	}
	return nil
}

// Touch marks a live session as used.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		sess.touch(m.now())
	}
	return ok
}

// Delete drops a session from memory and storage.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	m.observe(n)
	if m.cfg.Store == nil {
		return nil
	}
	return m.cfg.Store.Delete(ctx, id)
}

// EvictIdle drops controllers idle for longer than the idle timeout and
// returns their ids. Snapshots stay in the store until their TTL expires.
func (m *Manager) EvictIdle(now time.Time) []string {
	cutoff := now.Add(-m.cfg.IdleTimeout)
	m.mu.Lock()
	var evicted []string
	for id, sess := range m.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	sort.Strings(evicted)
	m.observe(n)
	return evicted
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// attach registers a controller for id. When another caller registered id
// first, that session is returned with false.
func (m *Manager) attach(id, userID string, createdAt time.Time, st viewstate.State) (*Session, bool) {
	controller := viewstate.NewController(viewstate.ControllerConfig{
		Store:        viewstate.NewStore(st, m.logger),
		Events:       m.cfg.Events,
		Appointments: m.cfg.Appointments,
		Observer:     m.cfg.Controller,
		Logger:       m.logger.With("session_id", id),
		Now:          m.now,
	})
	sess := &Session{ID: id, UserID: userID, CreatedAt: createdAt, Controller: controller, lastSeen: m.now()}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		existing.touch(m.now())
		return existing, false
	}
	m.sessions[id] = sess
	n := len(m.sessions)
	m.mu.Unlock()
	m.observe(n)
	return sess, true
}

func (m *Manager) location() *time.Location {
	if m.cfg.Events != nil {
		if loc := m.cfg.Events.Location(); loc != nil {
			return loc
		}
	}
	return time.Local
}

func (m *Manager) observe(n int) {
	if m.cfg.Observer != nil {
		m.cfg.Observer.SetActiveSessions(n)
	}
}

func mergePreferences(base, stored viewstate.Preferences) viewstate.Preferences {
	if stored.View != "" {
		base.View = stored.View
	}
	if stored.DaysCount > 0 {
		base.DaysCount = stored.DaysCount
	}
	if stored.TimeFormat != "" {
		base.TimeFormat = stored.TimeFormat
	}
	if stored.Locale != "" {
		base.Locale = stored.Locale
	}
	base.FirstDayOfWeek = stored.FirstDayOfWeek
	if len(stored.Settings) > 0 {
		merged := viewstate.DefaultSettings()
		for view, vs := range base.Settings {
			merged[view] = vs
		}
		for view, vs := range stored.Settings {
			merged[view] = vs
		}
		base.Settings = merged
	}
	return base
}
