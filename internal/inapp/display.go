package inapp

import (
	"sync"
	"time"

	"github.com/tOgg1/inapp/internal/models"
)

// IntervalChecker allows a message to be shown when none has been shown
// yet or at least MinInterval has passed since the last one.
type IntervalChecker struct {
	mu        sync.Mutex
	interval  time.Duration
	lastShown time.Time
	now       func() time.Time
}

// NewIntervalChecker creates an IntervalChecker.
func NewIntervalChecker(minInterval time.Duration) *IntervalChecker {
	return &IntervalChecker{interval: minInterval, now: time.Now}
}

// WithNow overrides the clock. Used by tests.
func (c *IntervalChecker) WithNow(now func() time.Time) *IntervalChecker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now != nil {
		c.now = now
	}
	return c
}

// IsOkToShowNow implements DisplayChecker.
func (c *IntervalChecker) IsOkToShowNow(*models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastShown.IsZero() || c.interval <= 0 {
		return true
	}
	return c.now().Sub(c.lastShown) >= c.interval
}

// Restore seeds the last shown time from an earlier process, e.g. the
// newest persisted shown event. Older times than the current one are ignored.
func (c *IntervalChecker) Restore(lastShown time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lastShown.After(c.lastShown) {
		c.lastShown = lastShown
	}
}

// RecordShown notes that a message was just presented.
func (c *IntervalChecker) RecordShown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastShown = c.now()
}

// ReadyAt returns when the next message may be shown. It is zero when
// nothing has been shown or no interval applies.
func (c *IntervalChecker) ReadyAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastShown.IsZero() || c.interval <= 0 {
		return time.Time{}
	}
	return c.lastShown.Add(c.interval)
}
