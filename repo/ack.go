// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/repowrite/lib/content"
	"github.com/bureau-foundation/repowrite/lib/name"
	"github.com/bureau-foundation/repowrite/transport"
)

const enumerationKey = "enumeration"

// AckTrackerOptions configures an AckTracker.
type AckTrackerOptions struct {
	Holding  *HoldingArea
	Registry *Registry

	// Enumerator enables the enumeration path. Nil leaves only direct
	// DATA replies as a source of acknowledgments.
	Enumerator transport.Enumerator

	// IntervalThreshold is the pending count above which enumeration
	// is requested after a publish.
	IntervalThreshold int

	// BatchSize is how many acknowledgments one enumeration
	// registration delivers before the next publish renews it.
	BatchSize int

	Logger  *slog.Logger
	Metrics *Metrics
}

// AckTracker turns repository replies into HoldingArea
// acknowledgments. DATA replies name stored segments directly. When
// many writes are pending, the tracker also registers an enumeration
// of the parent prefix of recent writes and acknowledges every child
// the repository reports.
type AckTracker struct {
	holding    *HoldingArea
	registry   *Registry
	enumerator transport.Enumerator
	batchSize  int
	logger     *slog.Logger
	metrics    *Metrics

	// registerMu serializes enumeration registration so the live
	// registration always belongs to the newest generation. stopped is
	// guarded by it.
	registerMu sync.Mutex
	stopped    bool

	mu         sync.Mutex
	threshold  int
	wasAbove   bool
	lastPrefix name.Name
	hasLast    bool
	active     name.Name
	hasActive  bool
	generation uint64
	delivered  int
}

// NewAckTracker returns a tracker feeding options.Holding.
func NewAckTracker(options AckTrackerOptions) *AckTracker {
	tracker := &AckTracker{
		holding:    options.Holding,
		registry:   options.Registry,
		enumerator: options.Enumerator,
		threshold:  options.IntervalThreshold,
		batchSize:  options.BatchSize,
		logger:     options.Logger,
		metrics:    options.Metrics,
	}
	if tracker.logger == nil {
		tracker.logger = slog.Default()
	}
	return tracker
}

// HandleRepositoryInfo applies a DATA reply received on session. Replies
// from any repository other than the one the session is bound to are
// ignored.
func (t *AckTracker) HandleRepositoryInfo(session SessionInfo, info RepositoryInfo) {
	if info.LocalName != session.LocalName || !info.GlobalPrefix.Equal(session.GlobalPrefix) {
		t.metrics.ignoredReply()
		t.logger.Debug("ignoring acknowledgments from another repository",
			"namespace", session.Namespace.String(),
			"repository", info.LocalName,
			"global_prefix", info.GlobalPrefix.String(),
		)
		return
	}
	for _, n := range info.Names {
		t.holding.Ack(n)
	}
}

// AfterPublish is called once segment has been handed to the network
// and pending is the holding area's count afterward. Above the interval
// threshold it makes sure an enumeration of the segment's parent prefix
// is live, registering a new generation when the count has just crossed
// the threshold, the prefix changed, or the current registration has
// delivered a full batch.
//
// Enumeration failures are logged; the publish itself has succeeded.
func (t *AckTracker) AfterPublish(ctx context.Context, segment *content.Segment, pending int) {
	if t.enumerator == nil {
		return
	}
	parent := segment.Name.Parent()

	t.mu.Lock()
	t.lastPrefix = parent
	t.hasLast = true
	above := pending > t.threshold
	crossed := above && !t.wasAbove
	t.wasAbove = above
	if !above {
		t.mu.Unlock()
		return
	}
	renew := crossed ||
		!t.hasActive ||
		!t.active.Equal(parent) ||
		t.delivered >= t.batchSize
	if !renew {
		t.mu.Unlock()
		return
	}
	generation := t.beginLocked(parent)
	t.mu.Unlock()

	t.register(ctx, parent, generation)
}

// PrepareClose drops the interval threshold to zero and renews the
// enumeration once, on the active prefix or else the most recently
// published one, so the close drain sees everything the repository
// holds.
func (t *AckTracker) PrepareClose(ctx context.Context) {
	if t.enumerator == nil {
		return
	}

	t.mu.Lock()
	t.threshold = 0
	var prefix name.Name
	switch {
	case t.hasActive:
		prefix = t.active
	case t.hasLast:
		prefix = t.lastPrefix
	default:
		t.mu.Unlock()
		return
	}
	generation := t.beginLocked(prefix)
	t.mu.Unlock()

	t.register(ctx, prefix, generation)
}

// Generation returns the generation of the newest enumeration
// registration, zero before the first.
func (t *AckTracker) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// Stop prevents any further enumeration registration. A registration
// in progress completes before Stop returns, so the caller can retract
// everything afterward knowing nothing new will appear.
func (t *AckTracker) Stop() {
	t.registerMu.Lock()
	defer t.registerMu.Unlock()
	t.stopped = true
}

func (t *AckTracker) beginLocked(prefix name.Name) uint64 {
	t.generation++
	t.active = prefix
	t.hasActive = true
	t.delivered = 0
	return t.generation
}

func (t *AckTracker) register(ctx context.Context, prefix name.Name, generation uint64) {
	t.registerMu.Lock()
	defer t.registerMu.Unlock()
	if t.stopped {
		return
	}

	t.mu.Lock()
	current := t.generation
	t.mu.Unlock()
	if generation != current {
		return
	}

	if err := t.registry.Retract(enumerationKey); err != nil {
		t.logger.Warn("retracting previous enumeration", "error", err)
	}
	registration, err := t.enumerator.Enumerate(ctx, prefix, func(batch transport.EnumerationBatch) {
		t.handleBatch(generation, batch)
	})
	if err != nil {
		t.logger.Warn("enumeration registration failed",
			"prefix", prefix.String(),
			"generation", generation,
			"error", err,
		)
		return
	}
	if err := t.registry.Add(enumerationKey, registration); err != nil {
		t.logger.Warn("replacing enumeration registration", "error", err)
	}
	t.metrics.enumerationRegistered()
	t.logger.Debug("enumeration registered", "prefix", prefix.String(), "generation", generation)
}

// handleBatch runs on the network's dispatch goroutine. Every child is
// acknowledged as prefix plus child; an empty child names the segment
// whose last component is empty. Only batches of the current generation
// count toward its exhaustion.
func (t *AckTracker) handleBatch(generation uint64, batch transport.EnumerationBatch) {
	for _, child := range batch.Children {
		t.holding.Ack(batch.Prefix.Append(child))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if generation == t.generation {
		t.delivered += len(batch.Children)
	}
}
