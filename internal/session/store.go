package session

import (
	"sync"

	"github.com/google/uuid"
)

// Store keeps one State per session ID in memory. Sessions do not survive
// a restart.
//
// Update holds the store lock for the whole transition, so every action
// runs to completion before the next one starts.
type Store struct {
	mu     sync.Mutex
	states map[string]State
}

func NewStore() *Store {
	return &Store{states: make(map[string]State)}
}

// Create registers a fresh session and returns its ID.
func (s *Store) Create() string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = Initial()
	return id
}

// Get returns the state for id and whether the session exists.
func (s *Store) Get(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	return st, ok
}

// Update replaces the state for id with fn's result. If fn fails, the
// stored state is left as it was.
func (s *Store) Update(id string, fn func(State) (State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		st = Initial()
	}
	next, err := fn(st)
	if err != nil {
		return err
	}
	s.states[id] = next
	return nil
}

// TakeNotices returns the pending notices for id and clears them.
func (s *Store) TakeNotices(id string) []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		return nil
	}
	notices := st.Notices
	st.Notices = nil
	s.states[id] = st
	return notices
}
