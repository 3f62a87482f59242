package viewstate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-calendar/internal/calendar"
)

func TestStore_DispatchPublishes(t *testing.T) {
	store := NewStore(initial(), nil)
	states, cancel := store.Subscribe(4)

	next := store.Dispatch(SetView{View: calendar.ViewWeek})
	assert.Equal(t, calendar.ViewWeek, next.CurrentView)
	assert.Equal(t, next, store.State())

	got := <-states
	assert.Equal(t, calendar.ViewWeek, got.CurrentView)

	cancel()
	cancel()
	_, open := <-states
	assert.False(t, open)

	// dispatch after cancel must not panic
	store.Dispatch(SetView{View: calendar.ViewDay})
}

func TestStore_SlowSubscriberKeepsNewest(t *testing.T) {
	store := NewStore(initial(), nil)
	states, cancel := store.Subscribe(1)
	defer cancel()

	store.Dispatch(SetView{View: calendar.ViewWeek})
	store.Dispatch(SetView{View: calendar.ViewDay})
	store.Dispatch(SetView{View: calendar.ViewYear})

	require.Len(t, states, 1)
	assert.Equal(t, calendar.ViewYear, (<-states).CurrentView)
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	store := NewStore(initial(), nil)
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(gen uint64) {
			defer wg.Done()
			store.Dispatch(FetchStarted{Generation: gen})
		}(uint64(i))
	}
	wg.Wait()
	assert.Equal(t, uint64(50), store.State().Generation)
}
