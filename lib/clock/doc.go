// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Every protocol wait in this module (publish backpressure, write
// negotiation, close drain) is bounded by a response-timeout window
// scheduled with [Clock.AfterFunc]. Production code uses [Real]; tests
// use [Fake] and drive timeouts with [FakeClock.Advance], so no test
// sleeps.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	flow := repo.NewFlowController(repo.Options{Clock: c, ...})
//	go flow.Close(ctx)
//	c.WaitForTimers(1)        // Close has scheduled its window
//	c.Advance(4 * time.Second) // the window expires deterministically
package clock
