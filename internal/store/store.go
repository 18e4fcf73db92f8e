package store

import (
	"sort"
	"sync"
)

// Listener observes every dispatch. It runs on the dispatching goroutine
// and must not call Dispatch.
type Listener func(s State, a Action)

// Store is the single mutable holder of State. All mutation goes through
// Dispatch.
type Store struct {
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

func New(initial State) *Store {
	return &Store{state: initial, listeners: make(map[int]Listener)}
}

// Dispatch reduces a into the state, notifies listeners in subscription
// order and returns the new state.
func (s *Store) Dispatch(a Action) State {
	if a == nil {
		return s.Snapshot()
	}
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next, a)
	}
	return next
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn and returns a func that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}
