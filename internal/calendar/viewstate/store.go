package viewstate

import (
	"sync"

	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

// Store is the single writer of a State. Dispatch calls are serialized and
// every committed state is published to subscribers in commit order.
type Store struct {
	mu     sync.Mutex
	state  State
	logger *logging.Logger

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan State
}

// NewStore creates a store holding initial.
func NewStore(initial State, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{state: initial, logger: logger, subs: make(map[int]chan State)}
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces a into the store and returns the committed state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	next := Reduce(s.state, a)
	s.state = next
	s.publish(next)
	s.mu.Unlock()

	s.logger.Debug("view state action", "action", ActionName(a), "phase", string(next.Phase), "generation", next.Generation)
	return next
}

// Subscribe returns a channel receiving committed states. When a reader
// falls more than buffer states behind, the oldest unread state is dropped.
// cancel closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publish(st State) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		// drop the oldest unread state to make room
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}
