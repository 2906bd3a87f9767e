// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock that only moves when Advance is called. It is
// safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	armed   *sync.Cond
	now     time.Time
	pending []fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	fire     chan time.Time
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.armed = sync.NewCond(&c.mu)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After arms a timer for d past the current fake time. A non-positive
// d is delivered immediately without arming anything.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	fire := make(chan time.Time, 1)
	if d <= 0 {
		fire <- c.now
		return fire
	}
	c.pending = append(c.pending, fakeTimer{deadline: c.now.Add(d), fire: fire})
	c.armed.Broadcast()
	return fire
}

// Advance moves the clock forward by d and delivers every timer whose
// deadline has been reached, earliest first.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []fakeTimer
	c.pending = slices.DeleteFunc(c.pending, func(timer fakeTimer) bool {
		if timer.deadline.After(now) {
			return false
		}
		due = append(due, timer)
		return true
	})
	c.mu.Unlock()

	slices.SortStableFunc(due, func(a, b fakeTimer) int { return a.deadline.Compare(b.deadline) })
	for _, timer := range due {
		timer.fire <- now
	}
}

// WaitForTimers blocks until at least n timers are armed.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) < n {
		c.armed.Wait()
	}
}

// PendingCount returns how many timers are armed.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
