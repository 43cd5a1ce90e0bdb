// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/repowrite/lib/clock"
	"github.com/bureau-foundation/repowrite/lib/content"
	"github.com/bureau-foundation/repowrite/lib/name"
)

// HoldingAreaOptions configures a HoldingArea.
type HoldingAreaOptions struct {
	// HighWater is the count above which inserting callers block.
	HighWater int

	// LowWater is the count at or below which blocked callers resume.
	LowWater int

	// Window bounds each individual wait. An expired window is logged
	// and, for publishers, the wait is re-entered.
	Window time.Duration

	// Clock drives the wait windows. Nil uses the real clock.
	Clock clock.Clock

	// Logger receives stall warnings. Nil uses slog.Default.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics
}

// HoldingArea is the set of published segments awaiting a repository
// acknowledgment, keyed by Name.
//
// Once an insertion takes the count above the high-water mark, the
// area is draining: the inserting caller blocks in AwaitLowWater and
// any other caller blocks in Insert before adding its segment, until
// acknowledgments bring the count to the low-water mark. The count
// therefore never exceeds HighWater+1.
//
// After Close, Insert refuses new segments and blocked callers are
// released; the entries already held stay until acknowledged, so Drain
// still accounts for them.
type HoldingArea struct {
	highWater int
	lowWater  int
	window    time.Duration
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *Metrics

	mu       sync.Mutex
	cond     *sync.Cond
	entries  map[string]*content.Segment
	draining bool
	closed   bool
}

// NewHoldingArea validates options and returns an empty area.
func NewHoldingArea(options HoldingAreaOptions) (*HoldingArea, error) {
	var errs []error
	if options.HighWater <= 0 {
		errs = append(errs, fmt.Errorf("high-water mark must be positive, got %d", options.HighWater))
	}
	if options.LowWater < 0 || options.LowWater > options.HighWater {
		errs = append(errs, fmt.Errorf("low-water mark must be in [0, %d], got %d", options.HighWater, options.LowWater))
	}
	if options.Window <= 0 {
		errs = append(errs, fmt.Errorf("wait window must be positive, got %s", options.Window))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("repo: invalid holding area options: %w", err)
	}

	area := &HoldingArea{
		highWater: options.HighWater,
		lowWater:  options.LowWater,
		window:    options.Window,
		clock:     options.Clock,
		logger:    options.Logger,
		metrics:   options.Metrics,
		entries:   make(map[string]*content.Segment),
	}
	if area.clock == nil {
		area.clock = clock.Real()
	}
	if area.logger == nil {
		area.logger = slog.Default()
	}
	area.cond = sync.NewCond(&area.mu)
	return area, nil
}

// Insert adds segment, replacing any pending entry with the same name.
// While the area is draining Insert first waits for it to reach the
// low-water mark. It reports whether this insertion took the count over
// the high-water mark, in which case the caller must call
// AwaitLowWater.
//
// If ctx ends while waiting, nothing is inserted. After Close, or if
// Close is called while waiting, Insert returns ErrClosed and inserts
// nothing.
func (h *HoldingArea) Insert(ctx context.Context, segment *content.Segment) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.waitDrainedLocked(ctx); err != nil {
		return false, err
	}
	if h.closed {
		return false, ErrClosed
	}

	h.entries[segment.Name.Key()] = segment
	h.metrics.setPending(len(h.entries))
	if len(h.entries) <= h.highWater {
		return false, nil
	}
	h.draining = true
	h.metrics.blockedPublish()
	return true, nil
}

// AwaitLowWater blocks until the count is at or below the low-water
// mark. Each expired window is logged and the wait continues; only
// ctx or Close ends it early. A wait ended by Close returns nil: the
// caller's segment is already held and Drain reports it.
func (h *HoldingArea) AwaitLowWater(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.waitDrainedLocked(ctx)
}

func (h *HoldingArea) waitDrainedLocked(ctx context.Context) error {
	for h.draining && !h.closed {
		drained, err := awaitLocked(ctx, h.cond, h.clock, h.window, func() bool { return !h.draining || h.closed })
		if err != nil {
			return err
		}
		if !drained {
			h.logger.Warn("publish blocked waiting for acknowledgments",
				"pending", len(h.entries),
				"high_water", h.highWater,
				"low_water", h.lowWater,
				"waited", h.window,
			)
		}
	}
	return nil
}

// Close stops Insert from accepting segments and releases every caller
// blocked in Insert or AwaitLowWater. It is idempotent.
func (h *HoldingArea) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.cond.Broadcast()
}

// Ack removes the entry named n. It reports whether an entry was
// removed; acknowledging a name that is not pending does nothing.
func (h *HoldingArea) Ack(n name.Name) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := n.Key()
	if _, ok := h.entries[key]; !ok {
		h.metrics.ack(false)
		return false
	}
	delete(h.entries, key)
	h.metrics.ack(true)
	h.metrics.setPending(len(h.entries))
	if h.draining && len(h.entries) <= h.lowWater {
		h.draining = false
	}
	h.cond.Broadcast()
	h.logger.Debug("write acknowledged", "name", n.String(), "pending", len(h.entries))
	return true
}

// Drain waits for every pending entry to be acknowledged. Each wait
// lasts one window; a window that passes without the count strictly
// decreasing ends the drain with a *WriteNotStableError naming the
// lowest pending name.
func (h *HoldingArea) Drain(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for len(h.entries) > 0 {
		before := len(h.entries)
		progressed, err := awaitLocked(ctx, h.cond, h.clock, h.window, func() bool {
			return len(h.entries) < before
		})
		if err != nil {
			return fmt.Errorf("repo: waiting for acknowledgments: %w", err)
		}
		if !progressed {
			return &WriteNotStableError{Name: h.firstLocked(), Pending: len(h.entries)}
		}
	}
	return nil
}

// Len returns the number of pending entries.
func (h *HoldingArea) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// PendingNames returns the pending names in name order.
func (h *HoldingArea) PendingNames() []name.Name {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]name.Name, 0, len(h.entries))
	for _, segment := range h.entries {
		names = append(names, segment.Name)
	}
	slices.SortFunc(names, name.Compare)
	return names
}

func (h *HoldingArea) firstLocked() name.Name {
	var first name.Name
	found := false
	for _, segment := range h.entries {
		if !found || name.Compare(segment.Name, first) < 0 {
			first = segment.Name
			found = true
		}
	}
	return first
}
