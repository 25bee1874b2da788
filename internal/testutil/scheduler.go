package testutil

import (
	"sync"
	"time"
)

// ManualScheduler collects scheduled functions instead of running them on
// timers. Tests call Fire to run deferred work synchronously.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(_ time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, fn)
}

// Pending returns the number of scheduled functions not yet fired.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Fire runs every scheduled function in order and clears the queue.
// Functions scheduled while firing are queued for the next Fire.
func (s *ManualScheduler) Fire() {
	s.mu.Lock()
	fns := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
