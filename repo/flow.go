// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/bureau-foundation/repowrite/lib/clock"
	"github.com/bureau-foundation/repowrite/lib/codec"
	"github.com/bureau-foundation/repowrite/lib/config"
	"github.com/bureau-foundation/repowrite/lib/content"
	"github.com/bureau-foundation/repowrite/lib/name"
	"github.com/bureau-foundation/repowrite/transport"
)

// Options configures a FlowController.
type Options struct {
	// Network carries start-write requests, segments, and replies.
	// Required.
	Network transport.Network

	// Enumerator enables the enumeration acknowledgment path. Optional.
	Enumerator transport.Enumerator

	// Codec decodes repository replies. Nil creates a default codec.
	Codec *codec.Codec

	// Clock drives every timeout. Nil uses the real clock.
	Clock clock.Clock

	// Logger is the base logger. Nil uses slog.Default.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics

	// Config holds the flow knobs; see config.DefaultFlow.
	Config config.FlowConfig
}

// FlowController publishes segments into repositories. In verified
// mode every published segment stays in a bounded holding area until a
// repository acknowledges it, publishers block when the area is full,
// and Close waits for the area to empty. In best-effort mode segments
// are sent and forgotten.
//
// A FlowController is safe for concurrent use.
type FlowController struct {
	network transport.Network
	codec   *codec.Codec
	clock   clock.Clock
	logger  *slog.Logger
	metrics *Metrics
	config  config.FlowConfig

	registry *Registry
	holding  *HoldingArea
	tracker  *AckTracker

	mu       sync.Mutex
	closed   bool
	sessions []*namespaceSession
	opening  map[string]chan struct{}
}

type namespaceSession struct {
	negotiator *Negotiator
	info       SessionInfo
}

// NewFlowController validates options and returns a controller with no
// open namespaces.
func NewFlowController(options Options) (*FlowController, error) {
	if options.Network == nil {
		return nil, errors.New("repo: flow controller requires a network")
	}
	if err := options.Config.Validate(); err != nil {
		return nil, fmt.Errorf("repo: invalid flow configuration: %w", err)
	}

	f := &FlowController{
		network:  options.Network,
		codec:    options.Codec,
		clock:    options.Clock,
		logger:   options.Logger,
		metrics:  options.Metrics,
		config:   options.Config,
		registry: NewRegistry(),
		opening:  make(map[string]chan struct{}),
	}
	if f.codec == nil {
		c, err := codec.New()
		if err != nil {
			return nil, err
		}
		f.codec = c
	}
	if f.clock == nil {
		f.clock = clock.Real()
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}

	holding, err := NewHoldingArea(HoldingAreaOptions{
		HighWater: f.config.HighWater,
		LowWater:  f.config.LowWater,
		Window:    f.config.ResponseTimeout,
		Clock:     f.clock,
		Logger:    f.logger,
		Metrics:   f.metrics,
	})
	if err != nil {
		return nil, err
	}
	f.holding = holding
	f.tracker = NewAckTracker(AckTrackerOptions{
		Holding:           holding,
		Registry:          f.registry,
		Enumerator:        options.Enumerator,
		IntervalThreshold: f.config.AckIntervalThreshold,
		BatchSize:         f.config.AckBatchSize,
		Logger:            f.logger,
		Metrics:           f.metrics,
	})
	return f, nil
}

// Open negotiates a write session for namespace. Segments can be
// published under namespace once Open returns. Opening a namespace
// that is already open returns its existing session; concurrent calls
// for one namespace share a single negotiation.
func (f *FlowController) Open(ctx context.Context, namespace name.Name) (SessionInfo, error) {
	key := namespace.Key()
	var done chan struct{}
	for done == nil {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return SessionInfo{}, ErrClosed
		}
		for _, session := range f.sessions {
			if session.info.Namespace.Equal(namespace) {
				info := session.info
				f.mu.Unlock()
				return info, nil
			}
		}
		inFlight, busy := f.opening[key]
		if !busy {
			done = make(chan struct{})
			f.opening[key] = done
		}
		f.mu.Unlock()

		// Another caller is negotiating this namespace. Its session is
		// reused on success; on failure this caller tries itself.
		if busy {
			select {
			case <-inFlight:
			case <-ctx.Done():
				return SessionInfo{}, fmt.Errorf("repo: opening write session for %s: %w", namespace, ctx.Err())
			}
		}
	}
	defer func() {
		f.mu.Lock()
		delete(f.opening, key)
		f.mu.Unlock()
		close(done)
	}()

	var onData DataHandler
	if !f.config.BestEffort {
		onData = f.tracker.HandleRepositoryInfo
	}
	negotiator, err := NewNegotiator(NegotiatorOptions{
		Network:         f.network,
		Registry:        f.registry,
		Codec:           f.codec,
		ResponseTimeout: f.config.ResponseTimeout,
		OnData:          onData,
		Clock:           f.clock,
		Logger:          f.logger,
		Metrics:         f.metrics,
	})
	if err != nil {
		return SessionInfo{}, err
	}
	info, err := negotiator.Open(ctx, namespace)
	if err != nil {
		return SessionInfo{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		if err := negotiator.Close(); err != nil {
			f.logger.Warn("closing session opened during Close", "namespace", namespace.String(), "error", err)
		}
		return SessionInfo{}, ErrClosed
	}
	f.sessions = append(f.sessions, &namespaceSession{negotiator: negotiator, info: info})
	return info, nil
}

// Publish hands segment to the network. The segment's name must fall
// under an open namespace; the longest matching namespace is used.
//
// In verified mode the segment is held until acknowledged. If holding
// it takes the count over the high-water mark, Publish blocks until
// acknowledgments bring the count to the low-water mark; only ctx
// cancellation ends that wait early, and the segment stays pending.
// A send failure is returned and also leaves the segment pending, so
// Close reports it if it is never acknowledged.
func (f *FlowController) Publish(ctx context.Context, segment *content.Segment) error {
	if segment == nil {
		return errors.New("repo: nil segment")
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	session := f.sessionForLocked(segment.Name)
	f.mu.Unlock()
	if session == nil {
		return fmt.Errorf("%w: %s", ErrNamespaceNotOpen, segment.Name)
	}

	if f.config.BestEffort {
		if err := f.network.Put(ctx, segment); err != nil {
			return fmt.Errorf("repo: sending %s: %w", segment.Name, err)
		}
		f.metrics.publishedSegment()
		return nil
	}

	overHigh, err := f.holding.Insert(ctx, segment)
	if err != nil {
		return fmt.Errorf("repo: publishing %s: %w", segment.Name, err)
	}
	if err := f.network.Put(ctx, segment); err != nil {
		return fmt.Errorf("repo: sending %s: %w", segment.Name, err)
	}
	f.metrics.publishedSegment()
	if !f.isClosed() {
		f.tracker.AfterPublish(ctx, segment, f.holding.Len())
	}

	if overHigh {
		if err := f.holding.AwaitLowWater(ctx); err != nil {
			return fmt.Errorf("repo: publishing %s: %w", segment.Name, err)
		}
	}
	return nil
}

func (f *FlowController) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FlowController) sessionForLocked(n name.Name) *namespaceSession {
	var best *namespaceSession
	for _, session := range f.sessions {
		if !n.HasPrefix(session.info.Namespace) {
			continue
		}
		if best == nil || session.info.Namespace.Len() > best.info.Namespace.Len() {
			best = session
		}
	}
	return best
}

// Ack records that a repository stored the segment named n. It reports
// whether a pending entry was removed.
func (f *FlowController) Ack(n name.Name) bool {
	return f.holding.Ack(n)
}

// FlushComplete reports whether every published segment has been
// acknowledged. It is always true in best-effort mode.
func (f *FlowController) FlushComplete() bool {
	if f.config.BestEffort {
		return true
	}
	return f.holding.Len() == 0
}

// Pending returns the number of unacknowledged segments.
func (f *FlowController) Pending() int {
	return f.holding.Len()
}

// PendingNames returns the unacknowledged segment names in name order.
func (f *FlowController) PendingNames() []name.Name {
	return f.holding.PendingNames()
}

// Sessions returns the established sessions in the order they were
// opened.
func (f *FlowController) Sessions() []SessionInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	infos := make([]SessionInfo, 0, len(f.sessions))
	for _, session := range f.sessions {
		infos = append(infos, session.info)
	}
	return infos
}

// Close stops accepting publishes and, in verified mode, waits for
// outstanding acknowledgments. The wait ends when a full response
// timeout passes without progress; the error is then a
// *WriteNotStableError. Every registration is retracted before Close
// returns, whatever the outcome. Calling Close again returns nil.
func (f *FlowController) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	sessions := f.sessions
	f.mu.Unlock()

	// Publishers still waiting to insert are turned away; segments
	// already held are covered by the drain.
	f.holding.Close()

	var result error
	if !f.config.BestEffort {
		f.tracker.PrepareClose(ctx)
		result = f.holding.Drain(ctx)
	}
	f.tracker.Stop()
	for _, session := range sessions {
		result = multierr.Append(result, session.negotiator.Close())
	}
	result = multierr.Append(result, f.registry.RetractAll())

	if result != nil {
		f.logger.Warn("flow controller closed with errors",
			"pending", f.holding.Len(),
			"error", result,
		)
	} else {
		f.logger.Info("flow controller closed", "sessions", len(sessions))
	}
	return result
}
