// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/repowrite/lib/clock"
	"github.com/bureau-foundation/repowrite/lib/codec"
	"github.com/bureau-foundation/repowrite/lib/name"
	"github.com/bureau-foundation/repowrite/transport"
)

// SessionState is the lifecycle of one write session:
// init, awaiting-info, then established or failed. Close moves any
// state to closed.
type SessionState int

const (
	StateInit SessionState = iota
	StateAwaitingInfo
	StateEstablished
	StateFailed
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitingInfo:
		return "awaiting-info"
	case StateEstablished:
		return "established"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// SessionInfo identifies the repository a write session is bound to.
type SessionInfo struct {
	Namespace    name.Name
	Nonce        []byte
	LocalName    string
	GlobalPrefix name.Name
}

// DataHandler receives DATA replies arriving on an established session.
type DataHandler func(session SessionInfo, info RepositoryInfo)

// NegotiatorOptions configures a Negotiator.
type NegotiatorOptions struct {
	Network  transport.Network
	Registry *Registry
	Codec    *codec.Codec

	// ResponseTimeout bounds the wait for the first INFO reply.
	ResponseTimeout time.Duration

	// OnData, if set, receives DATA replies once the session is
	// established.
	OnData DataHandler

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *Metrics
}

// Negotiator runs the start-write handshake for a single session: it
// asks the network for a repository willing to store a namespace and
// binds the session to the first one that answers.
type Negotiator struct {
	network  transport.Network
	registry *Registry
	codec    *codec.Codec
	timeout  time.Duration
	onData   DataHandler
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *Metrics

	mu    sync.Mutex
	cond  *sync.Cond
	state SessionState
	info  SessionInfo
	key   string
}

// NewNegotiator returns a Negotiator in StateInit. Network, Registry,
// and Codec are required.
func NewNegotiator(options NegotiatorOptions) (*Negotiator, error) {
	if options.Network == nil || options.Registry == nil || options.Codec == nil {
		return nil, errors.New("repo: negotiator requires a network, registry, and codec")
	}
	n := &Negotiator{
		network:  options.Network,
		registry: options.Registry,
		codec:    options.Codec,
		timeout:  options.ResponseTimeout,
		onData:   options.OnData,
		clock:    options.Clock,
		logger:   options.Logger,
		metrics:  options.Metrics,
	}
	if n.clock == nil {
		n.clock = clock.Real()
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	n.cond = sync.NewCond(&n.mu)
	return n, nil
}

// Open expresses a start-write request for namespace and waits for a
// repository to answer with its identity. If none answers within the
// response timeout, the request is retracted and the error wraps
// ErrNoRepositoryResponse. A Negotiator can be opened once.
func (n *Negotiator) Open(ctx context.Context, namespace name.Name) (SessionInfo, error) {
	nonce, err := NewNonce()
	if err != nil {
		return SessionInfo{}, err
	}

	n.mu.Lock()
	if n.state != StateInit {
		state := n.state
		n.mu.Unlock()
		return SessionInfo{}, fmt.Errorf("repo: negotiator for %s already used (state %s)", namespace, state)
	}
	n.state = StateAwaitingInfo
	n.info = SessionInfo{Namespace: namespace, Nonce: nonce}
	n.key = "start-write/" + hex.EncodeToString(nonce)
	key := n.key
	n.mu.Unlock()

	query := transport.Query{Name: StartWriteName(namespace, nonce)}
	registration, err := n.network.Express(ctx, query, n.handleReply)
	if err != nil {
		n.setState(StateFailed)
		return SessionInfo{}, fmt.Errorf("repo: expressing start-write for %s: %w", namespace, err)
	}
	if err := n.registry.Add(key, registration); err != nil {
		n.logger.Warn("replacing start-write registration", "error", err)
	}
	n.logger.Debug("start-write expressed", "namespace", namespace.String(), "query", query.Name.String())

	n.mu.Lock()
	_, waitErr := awaitLocked(ctx, n.cond, n.clock, n.timeout, func() bool {
		return n.state != StateAwaitingInfo
	})
	if n.state == StateEstablished {
		info := n.info
		n.mu.Unlock()
		n.metrics.session(sessionEstablished)
		n.logger.Info("write session established",
			"namespace", namespace.String(),
			"repository", info.LocalName,
			"global_prefix", info.GlobalPrefix.String(),
		)
		return info, nil
	}
	if n.state == StateAwaitingInfo {
		n.state = StateFailed
	}
	state := n.state
	n.mu.Unlock()

	retractErr := n.registry.Retract(key)
	switch {
	case waitErr != nil:
		n.metrics.session(sessionCancelled)
		return SessionInfo{}, joinRetract(fmt.Errorf("repo: opening write session for %s: %w", namespace, waitErr), retractErr)
	case state == StateClosed:
		return SessionInfo{}, joinRetract(fmt.Errorf("repo: write session for %s closed during negotiation", namespace), retractErr)
	default:
		n.metrics.session(sessionTimeout)
		n.logger.Warn("no repository answered start-write",
			"namespace", namespace.String(),
			"waited", n.timeout,
		)
		return SessionInfo{}, joinRetract(fmt.Errorf("%w: %s", ErrNoRepositoryResponse, namespace), retractErr)
	}
}

func joinRetract(err, retractErr error) error {
	if retractErr == nil {
		return err
	}
	return errors.Join(err, retractErr)
}

// State returns the current session state.
func (n *Negotiator) State() SessionState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Close retracts the start-write registration and marks the session
// closed. Replies that arrive afterward are dropped. Close is
// idempotent.
func (n *Negotiator) Close() error {
	n.mu.Lock()
	if n.state == StateClosed {
		n.mu.Unlock()
		return nil
	}
	n.state = StateClosed
	n.cond.Broadcast()
	key := n.key
	n.mu.Unlock()

	if key == "" {
		return nil
	}
	return n.registry.Retract(key)
}

func (n *Negotiator) setState(state SessionState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = state
	n.cond.Broadcast()
}

// handleReply runs on the network's dispatch goroutine.
func (n *Negotiator) handleReply(reply transport.Reply) {
	if reply.Kind != transport.KindData {
		n.logger.Debug("skipping non-data reply", "name", reply.Name.String(), "kind", reply.Kind.String())
		return
	}

	info, err := DecodeRepositoryInfo(n.codec, reply.Content)
	if err != nil {
		diagnostic, diagErr := codec.Diagnose(reply.Content)
		if diagErr != nil {
			diagnostic = hex.EncodeToString(reply.Content)
		}
		n.metrics.malformedReply()
		n.logger.Warn("malformed repository reply",
			"name", reply.Name.String(),
			"error", err,
			"content", diagnostic,
		)
		return
	}

	n.mu.Lock()
	switch n.state {
	case StateClosed, StateFailed:
		state := n.state
		n.mu.Unlock()
		n.metrics.ignoredReply()
		n.logger.Debug("dropping reply for ended session", "name", reply.Name.String(), "state", state.String())
		return
	}

	switch info.Type {
	case InfoTypeInfo:
		if n.state != StateAwaitingInfo {
			established := n.info
			n.mu.Unlock()
			n.metrics.ignoredReply()
			n.logger.Info("ignoring additional repository",
				"namespace", established.Namespace.String(),
				"repository", info.LocalName,
				"bound_to", established.LocalName,
			)
			return
		}
		n.info.LocalName = info.LocalName
		n.info.GlobalPrefix = info.GlobalPrefix
		n.state = StateEstablished
		n.cond.Broadcast()
		n.mu.Unlock()

	case InfoTypeData:
		if n.state != StateEstablished {
			n.mu.Unlock()
			n.metrics.ignoredReply()
			n.logger.Debug("dropping data reply before session established", "name", reply.Name.String())
			return
		}
		session := n.info
		n.mu.Unlock()
		if n.onData != nil {
			n.onData(session, info)
		}

	default:
		n.mu.Unlock()
	}
}
