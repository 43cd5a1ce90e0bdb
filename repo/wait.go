// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"sync"
	"time"

	"github.com/bureau-foundation/repowrite/lib/clock"
)

// awaitLocked blocks on cond until ready returns true, one window of
// clk time passes, or ctx ends. The caller holds cond.L; it is held
// again on return. ready is re-evaluated after every wake.
//
// It reports true once ready holds, false if the window expired first,
// and ctx.Err() on cancellation. A non-positive window checks ready
// once without waiting.
func awaitLocked(ctx context.Context, cond *sync.Cond, clk clock.Clock, window time.Duration, ready func() bool) (bool, error) {
	if ready() {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if window <= 0 {
		return false, nil
	}

	expired := false
	timer := clk.AfterFunc(window, func() {
		cond.L.Lock()
		expired = true
		cond.Broadcast()
		cond.L.Unlock()
	})
	defer timer.Stop()

	stop := context.AfterFunc(ctx, func() {
		cond.L.Lock()
		cond.Broadcast()
		cond.L.Unlock()
	})
	defer stop()

	for !ready() {
		if expired {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		cond.Wait()
	}
	return true, nil
}
