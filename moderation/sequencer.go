package moderation

import (
	"context"
	"sync"
	"time"

	"eclipse-warden/utils/database/modstore"
)

// Sequencer hands out case ids. An id is only returned once the counter
// that covers it is durable, so ids are never reissued after a restart.
type Sequencer struct {
	mu      sync.Mutex
	store   modstore.Store
	timeout time.Duration
	last    int64
}

func NewSequencer(store modstore.Store, timeout time.Duration) *Sequencer {
	return &Sequencer{store: store, timeout: timeout}
}

// resume continues numbering above n.
func (s *Sequencer) resume(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.last {
		s.last = n
	}
}

// Next persists and returns the next case id.
func (s *Sequencer) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.last + 1
	err := persist(ctx, s.timeout, "save_case_counter", func(ctx context.Context) error {
		return s.store.SaveCaseCounter(ctx, n)
	})
	if err != nil {
		return 0, err
	}
	s.last = n
	return n, nil
}

// Current returns the last id handed out.
func (s *Sequencer) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
