package runstate

import (
	"sync"

	"docintake/internal/refdata"
)

// Store serializes dispatches against a single State.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore returns a store in the selection step.
func NewStore(reference refdata.Data) *Store {
	return &Store{state: Initial(reference)}
}

// Dispatch applies action. On error the state is unchanged.
func (s *Store) Dispatch(action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Reduce(s.state, action)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// State returns a snapshot that later dispatches will not modify.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}
