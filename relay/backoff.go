// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"time"

	"github.com/jpillora/backoff"
)

// Default retry policy for Connector.
const (
	DefaultBackoffInitial = 2 * time.Second
	DefaultBackoffMax     = 15 * time.Second
)

// Backoff is a capped, unjittered exponential delay: Initial, doubling
// after each call to Next, never exceeding Max. With Initial=2s and
// Max=15s the sequence is 2s 4s 8s 15s 15s ...
//
// The Initiator keeps one Backoff for its whole lifetime and never
// resets it after a successful connection, so a flapping peer is
// retried at the capped delay.
type Backoff struct {
	backoff backoff.Backoff
}

// NewBackoff returns a Backoff starting at initial and capped at max.
func NewBackoff(initial, max time.Duration) *Backoff {
	return &Backoff{backoff: backoff.Backoff{
		Min:    initial,
		Max:    max,
		Factor: 2,
		Jitter: false,
	}}
}

// Next returns the current delay and advances to the following one.
func (b *Backoff) Next() time.Duration {
	return b.backoff.Duration()
}

// Attempt returns how many delays Next has handed out.
func (b *Backoff) Attempt() int {
	return int(b.backoff.Attempt())
}
