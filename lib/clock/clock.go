// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source used by the relay supervisors for retry
// delays, reconnect pauses, and shutdown grace periods.
type Clock interface {
	Now() time.Time

	// After delivers the clock's time on the returned channel once d
	// has passed. A non-positive d delivers at once.
	After(d time.Duration) <-chan time.Time
}
