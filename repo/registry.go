// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/multierr"

	"github.com/bureau-foundation/repowrite/transport"
)

// Registry tracks every live network registration a FlowController owns,
// keyed by purpose ("start-write/<nonce>", "enumeration"), so teardown
// can walk and retract them explicitly.
type Registry struct {
	mu      sync.Mutex
	entries map[string]transport.Registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]transport.Registration)}
}

// Add records registration under key. A registration already recorded
// under key is retracted first, and its retraction error is returned
// after the new registration is recorded.
func (r *Registry) Add(key string, registration transport.Registration) error {
	r.mu.Lock()
	previous := r.entries[key]
	r.entries[key] = registration
	r.mu.Unlock()

	if previous == nil {
		return nil
	}
	if err := previous.Retract(); err != nil {
		return fmt.Errorf("repo: retracting replaced registration %q: %w", key, err)
	}
	return nil
}

// Retract removes and retracts the registration under key. A missing
// key is not an error.
func (r *Registry) Retract(key string) error {
	r.mu.Lock()
	registration := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if registration == nil {
		return nil
	}
	if err := registration.Retract(); err != nil {
		return fmt.Errorf("repo: retracting registration %q: %w", key, err)
	}
	return nil
}

// RetractAll retracts every registration, in key order, and empties the
// registry. Every registration is attempted; the failures are combined.
func (r *Registry) RetractAll() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]transport.Registration)
	r.mu.Unlock()

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var result error
	for _, key := range keys {
		if err := entries[key].Retract(); err != nil {
			result = multierr.Append(result, fmt.Errorf("repo: retracting registration %q: %w", key, err))
		}
	}
	return result
}

// Keys returns the recorded keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
