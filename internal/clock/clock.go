package clock

import (
	"sync"
	"time"
)

// Clock supplies the current instant. Late fees and overdue days are always computed
// against a Clock so they can be pinned in tests.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a settable clock
type Fixed struct {
	mu  sync.RWMutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// Set moves the clock to t
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
