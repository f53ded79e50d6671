package subscription

import "sync"

// Set owns a group of listener cancel functions so they can be detached together.
type Set struct {
	mu      sync.Mutex
	cancels []func()
}

func NewSet() *Set {
	return &Set{}
}

// Add registers cancel to be invoked on the next CloseAll.
func (s *Set) Add(cancel func()) {
	if cancel == nil {
		return
	}
	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()
}

// Len reports how many listeners are currently owned.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

// CloseAll detaches every owned listener and empties the set. The set stays
// usable afterwards.
func (s *Set) CloseAll() {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
