// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"slices"
	"sync"

	"github.com/bureau-foundation/repowrite/lib/content"
	"github.com/bureau-foundation/repowrite/lib/name"
)

// Compile-time interface checks.
var (
	_ Network    = (*MemoryNetwork)(nil)
	_ Enumerator = (*MemoryNetwork)(nil)
)

// MemoryNetwork is an in-process Network and Enumerator for tests. It
// records every query, enumeration, and put, and lets the test play the
// repository: Respond and DeliverEnumeration dispatch to live
// registrations on the calling goroutine. Handlers are never called
// with the network's lock held, so a handler may call back into the
// network.
type MemoryNetwork struct {
	mu           sync.Mutex
	nextID       uint64
	queries      map[uint64]*memoryQuery
	enumerations map[uint64]*memoryEnumeration
	puts         []*content.Segment

	expressErr error
	putErr     error
	onExpress  func(Query)
	onPut      func(*content.Segment)
	changed    chan struct{}
}

type memoryQuery struct {
	query   Query
	handler ReplyHandler
}

type memoryEnumeration struct {
	prefix  name.Name
	handler EnumerationHandler
}

// NewMemoryNetwork creates an empty in-process network.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{
		queries:      make(map[uint64]*memoryQuery),
		enumerations: make(map[uint64]*memoryEnumeration),
		changed:      make(chan struct{}),
	}
}

// Express registers query. If an express hook is set it runs in a new
// goroutine after registration, standing in for a remote party that
// answers asynchronously.
func (n *MemoryNetwork) Express(_ context.Context, query Query, handler ReplyHandler) (Registration, error) {
	n.mu.Lock()
	if n.expressErr != nil {
		err := n.expressErr
		n.mu.Unlock()
		return nil, err
	}
	n.nextID++
	id := n.nextID
	n.queries[id] = &memoryQuery{query: query, handler: handler}
	hook := n.onExpress
	n.notifyLocked()
	n.mu.Unlock()

	if hook != nil {
		go hook(query)
	}
	return &memoryRegistration{network: n, id: id}, nil
}

// Put records segment. The put hook, if any, runs synchronously before
// Put returns.
func (n *MemoryNetwork) Put(_ context.Context, segment *content.Segment) error {
	n.mu.Lock()
	if n.putErr != nil {
		err := n.putErr
		n.mu.Unlock()
		return err
	}
	n.puts = append(n.puts, segment)
	hook := n.onPut
	n.notifyLocked()
	n.mu.Unlock()

	if hook != nil {
		hook(segment)
	}
	return nil
}

// Enumerate registers an enumeration of prefix.
func (n *MemoryNetwork) Enumerate(_ context.Context, prefix name.Name, handler EnumerationHandler) (Registration, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	n.enumerations[id] = &memoryEnumeration{prefix: prefix, handler: handler}
	n.notifyLocked()
	return &memoryRegistration{network: n, id: id}, nil
}

// Respond delivers reply to every live query whose name is a prefix of
// reply.Name and returns how many handlers received it.
func (n *MemoryNetwork) Respond(reply Reply) int {
	n.mu.Lock()
	var handlers []ReplyHandler
	for _, id := range sortedKeys(n.queries) {
		if reply.Name.HasPrefix(n.queries[id].query.Name) {
			handlers = append(handlers, n.queries[id].handler)
		}
	}
	n.mu.Unlock()

	for _, handler := range handlers {
		handler(reply)
	}
	return len(handlers)
}

// DeliverEnumeration sends a batch to every live enumeration of exactly
// prefix and returns how many handlers received it.
func (n *MemoryNetwork) DeliverEnumeration(prefix name.Name, children ...[]byte) int {
	n.mu.Lock()
	var handlers []EnumerationHandler
	for _, id := range sortedKeys(n.enumerations) {
		if n.enumerations[id].prefix.Equal(prefix) {
			handlers = append(handlers, n.enumerations[id].handler)
		}
	}
	n.mu.Unlock()

	batch := EnumerationBatch{Prefix: prefix, Children: children}
	for _, handler := range handlers {
		handler(batch)
	}
	return len(handlers)
}

// Queries returns the live queries in registration order.
func (n *MemoryNetwork) Queries() []Query {
	n.mu.Lock()
	defer n.mu.Unlock()
	var queries []Query
	for _, id := range sortedKeys(n.queries) {
		queries = append(queries, n.queries[id].query)
	}
	return queries
}

// Enumerations returns the prefixes of live enumerations in
// registration order. A prefix appears once per registration.
func (n *MemoryNetwork) Enumerations() []name.Name {
	n.mu.Lock()
	defer n.mu.Unlock()
	var prefixes []name.Name
	for _, id := range sortedKeys(n.enumerations) {
		prefixes = append(prefixes, n.enumerations[id].prefix)
	}
	return prefixes
}

// Outstanding returns the number of live registrations of either kind.
func (n *MemoryNetwork) Outstanding() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queries) + len(n.enumerations)
}

// Puts returns every segment put so far, in order.
func (n *MemoryNetwork) Puts() []*content.Segment {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.puts)
}

// Changed returns a channel that is closed at the next registration,
// retraction, or put. Tests use it to wait for the code under test to
// reach the network without polling.
func (n *MemoryNetwork) Changed() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.changed
}

// FailExpress makes subsequent Express calls return err. Nil restores
// normal behavior.
func (n *MemoryNetwork) FailExpress(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expressErr = err
}

// FailPuts makes subsequent Put calls return err without recording the
// segment. Nil restores normal behavior.
func (n *MemoryNetwork) FailPuts(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.putErr = err
}

// OnExpress sets a hook run in its own goroutine for every expressed
// query.
func (n *MemoryNetwork) OnExpress(hook func(Query)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onExpress = hook
}

// OnPut sets a hook run synchronously for every recorded put.
func (n *MemoryNetwork) OnPut(hook func(*content.Segment)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onPut = hook
}

func (n *MemoryNetwork) notifyLocked() {
	close(n.changed)
	n.changed = make(chan struct{})
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for id := range m {
		keys = append(keys, id)
	}
	slices.Sort(keys)
	return keys
}

type memoryRegistration struct {
	network *MemoryNetwork
	id      uint64
}

func (r *memoryRegistration) Retract() error {
	r.network.mu.Lock()
	defer r.network.mu.Unlock()
	_, isQuery := r.network.queries[r.id]
	_, isEnumeration := r.network.enumerations[r.id]
	if !isQuery && !isEnumeration {
		return nil
	}
	delete(r.network.queries, r.id)
	delete(r.network.enumerations, r.id)
	r.network.notifyLocked()
	return nil
}
