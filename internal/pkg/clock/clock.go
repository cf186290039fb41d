package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func NewRealClock() Clock {
	return &RealClock{}
}

// Now is always UTC so booking timestamps compare the same across stores.
func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}

// MockClock is safe for concurrent use; ledger tests share it across goroutines.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
	step        time.Duration
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

// NewSteppingClock advances by step after every Now call, which keeps
// creation order observable in tests.
func NewSteppingClock(t time.Time, step time.Duration) *MockClock {
	return &MockClock{currentTime: t, step: step}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.currentTime
	c.currentTime = c.currentTime.Add(c.step)
	return now
}

func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t
}

func (c *MockClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.Add(d)
}
