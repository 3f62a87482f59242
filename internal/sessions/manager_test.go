package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-calendar/internal/appointmentform"
	"github.com/wolfman30/clinic-calendar/internal/appointments"
	"github.com/wolfman30/clinic-calendar/internal/calendar"
	"github.com/wolfman30/clinic-calendar/internal/calendar/viewstate"
	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

type stubEvents struct{}

func (stubEvents) List(context.Context, calendar.Query) ([]calendar.Event, error) {
	return []calendar.Event{}, nil
}

func (stubEvents) Location() *time.Location { return time.UTC }

type stubAppointments struct{}

func (stubAppointments) Get(context.Context, string) (*appointments.Appointment, error) {
	return nil, appointments.ErrNotFound
}

func (stubAppointments) Create(_ context.Context, p appointments.Payload) (*appointments.Appointment, error) {
	return &appointments.Appointment{ID: "1", Kind: p.Kind}, nil
}

func (stubAppointments) Update(_ context.Context, id string, p appointments.Payload) (*appointments.Appointment, error) {
	return &appointments.Appointment{ID: appointments.ID(id), Kind: p.Kind}, nil
}

type stubPreferences struct {
	prefs map[string]viewstate.Preferences
	err   error
}

func (s stubPreferences) Lookup(_ context.Context, userID string) (viewstate.Preferences, bool, error) {
	if s.err != nil {
		return viewstate.Preferences{}, false, s.err
	}
	p, ok := s.prefs[userID]
	return p, ok, nil
}

type gauge struct {
	mu sync.Mutex
	n  int
}

func (g *gauge) SetActiveSessions(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = n
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, store SnapshotStore, prefs PreferenceSource) (*Manager, *clock, *gauge) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)}
	g := &gauge{}
	m := NewManager(Config{
		Store:        store,
		Events:       stubEvents{},
		Appointments: stubAppointments{},
		Preferences:  prefs,
		Defaults:     viewstate.Preferences{View: calendar.ViewMonth, FirstDayOfWeek: time.Sunday},
		Observer:     g,
		IdleTimeout:  10 * time.Minute,
		Logger:       logging.Default(),
		Now:          clk.Now,
	})
	return m, clk, g
}

func TestManager_CreateUsesStoredPreferences(t *testing.T) {
	_, client := newTestRedis(t)
	prefs := stubPreferences{prefs: map[string]viewstate.Preferences{
		"u1": {View: calendar.ViewWeek, FirstDayOfWeek: time.Monday, TimeFormat: viewstate.Format12h},
	}}
	m, _, g := newTestManager(t, NewRedisStore(client, time.Hour), prefs)

	sess, err := m.Create(context.Background(), "u1")
	require.NoError(t, err)
	st := sess.Controller.State()
	assert.Equal(t, calendar.ViewWeek, st.CurrentView)
	assert.Equal(t, time.Monday, st.FirstDayOfWeek)
	assert.Equal(t, viewstate.Format12h, st.TimeFormat)
	assert.Equal(t, "2024-03-05", calendar.DateKey(st.SelectedDate))
	assert.Equal(t, 1, g.n)

	anon, err := m.Create(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, calendar.ViewMonth, anon.Controller.State().CurrentView)
	assert.NotEqual(t, sess.ID, anon.ID)
}

func TestManager_CreateToleratesPreferenceErrors(t *testing.T) {
	m, _, _ := newTestManager(t, nil, stubPreferences{err: errors.New("db down")})
	sess, err := m.Create(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, calendar.ViewMonth, sess.Controller.State().CurrentView)
}

func TestManager_EvictedSessionIsRestoredWithoutDialogs(t *testing.T) {
	_, client := newTestRedis(t)
	m, clk, g := newTestManager(t, NewRedisStore(client, time.Hour), nil)
	ctx := context.Background()

	sess, err := m.Create(ctx, "")
	require.NoError(t, err)
	_, err = sess.Controller.Navigate(ctx, viewstate.Navigation{View: calendar.ViewDay, Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = sess.Controller.OpenQuickAdd(appointmentform.QuickAdd{Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, sess))

	clk.Advance(11 * time.Minute)
	assert.Equal(t, []string{sess.ID}, m.EvictIdle(clk.Now()))
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, g.n)

	restored, err := m.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.NotSame(t, sess, restored)
	st := restored.Controller.State()
	assert.Equal(t, calendar.ViewDay, st.CurrentView)
	assert.Equal(t, "2024-05-01", calendar.DateKey(st.SelectedDate))
	assert.Equal(t, viewstate.PhaseIdle, st.Phase, "dialogs are not persisted")
	assert.Nil(t, st.QuickAddData)
	assert.Equal(t, 1, m.Len())

	again, err := m.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Same(t, restored, again)
}

// barrierStore holds every Load until n callers are waiting, so concurrent
// restores of one id race on attach.
type barrierStore struct {
	SnapshotStore
	n       int
	mu      sync.Mutex
	waiting int
	release chan struct{}
}

func (b *barrierStore) Load(ctx context.Context, id string) (Snapshot, error) {
	b.mu.Lock()
	b.waiting++
	if b.waiting == b.n {
		close(b.release)
	}
	b.mu.Unlock()
	<-b.release
	return b.SnapshotStore.Load(ctx, id)
}

func TestManager_ConcurrentRestoreSharesOneSession(t *testing.T) {
	_, client := newTestRedis(t)
	redisStore := NewRedisStore(client, time.Hour)
	seed, _, _ := newTestManager(t, redisStore, nil)
	ctx := context.Background()
	sess, err := seed.Create(ctx, "")
	require.NoError(t, err)

	const callers = 4
	store := &barrierStore{SnapshotStore: redisStore, n: callers, release: make(chan struct{})}
	m, _, g := newTestManager(t, store, nil)

	results := make([]*Session, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := m.Get(ctx, sess.ID)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	for _, got := range results[1:] {
		assert.Same(t, results[0], got)
	}
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, g.n)
}

func TestManager_TouchKeepsSessionAlive(t *testing.T) {
	m, clk, _ := newTestManager(t, nil, nil)
	sess, err := m.Create(context.Background(), "")
	require.NoError(t, err)

	clk.Advance(9 * time.Minute)
	assert.True(t, m.Touch(sess.ID))
	clk.Advance(9 * time.Minute)
	assert.Empty(t, m.EvictIdle(clk.Now()))
	assert.False(t, m.Touch("missing"))
}

func TestManager_GetUnknown(t *testing.T) {
	m, _, _ := newTestManager(t, nil, nil)
	_, err := m.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, client := newTestRedis(t)
	m, _, _ = newTestManager(t, NewRedisStore(client, time.Hour), nil)
	_, err = m.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_Delete(t *testing.T) {
	mr, client := newTestRedis(t)
	m, _, _ := newTestManager(t, NewRedisStore(client, time.Hour), nil)
	sess, err := m.Create(context.Background(), "")
	require.NoError(t, err)
	require.True(t, mr.Exists(sessionKey(sess.ID)))

	require.NoError(t, m.Delete(context.Background(), sess.ID))
	assert.False(t, mr.Exists(sessionKey(sess.ID)))
	assert.Equal(t, 0, m.Len())
}

func TestJanitor(t *testing.T) {
	m, clk, _ := newTestManager(t, nil, nil)
	_, err := NewJanitor(m, "not a schedule", nil)
	require.Error(t, err)

	j, err := NewJanitor(m, "@every 1h", logging.Default())
	require.NoError(t, err)
	j.Start()
	defer j.Stop(context.Background())

	_, err = m.Create(context.Background(), "")
	require.NoError(t, err)
	clk.Advance(time.Hour)
	j.RunOnce()
	assert.Equal(t, 0, m.Len())
}
