package directory

import (
	"context"
	"sync"
)

// Stub is an in-memory Directory for tests.
type Stub struct {
	Contacts map[string]Contact
	// FailuresBeforeSuccess makes the first N calls fail with Err.
	FailuresBeforeSuccess int
	Err                   error

	mu    sync.Mutex
	calls int
}

func (s *Stub) Fetch(ctx context.Context, ref string, fields Fields) (*Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls <= s.FailuresBeforeSuccess {
		return nil, s.Err
	}

	contact, ok := s.Contacts[ref]
	if !ok {
		return nil, ErrNotFound
	}

	if !fields.ImageBytes {
		contact.ImageBytes = nil
	}
	return &contact, nil
}

// Calls returns how many lookups were made.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
