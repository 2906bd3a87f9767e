// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets reconnect backoff, reconnect pauses, and
// termination grace periods run against a manual clock in tests.
//
// Components take a [Clock] and default to [Real]. Tests pass a
// [FakeClock] and move it by hand:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	connector := &relay.Connector{Clock: fake, ...}
//	go connector.Connect(ctx)
//	fake.WaitForTimers(1) // the connector is waiting out a failed dial
//	fake.Advance(2 * time.Second)
//
// WaitForTimers blocks until the code under test has armed its timer,
// so Advance never races ahead of it.
package clock
