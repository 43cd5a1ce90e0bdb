// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/repowrite/lib/content"
	"github.com/bureau-foundation/repowrite/lib/name"
)

// Kind classifies a reply's payload.
type Kind uint8

const (
	// KindData carries application content. It is the only kind the
	// repository protocol consumes.
	KindData Kind = iota + 1
	// KindLink points at content stored under another name.
	KindLink
	// KindKey carries a public key.
	KindKey
	// KindNack is a negative reply: nothing matched the query.
	KindNack
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindLink:
		return "link"
	case KindKey:
		return "key"
	case KindNack:
		return "nack"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Query is an outstanding request for content under Name. Any reply
// whose name has Name as a prefix answers it.
type Query struct {
	Name name.Name
}

// Reply is one answer to a Query. A single query may draw zero, one, or
// many replies.
type Reply struct {
	Name    name.Name
	Kind    Kind
	Content []byte
}

// ReplyHandler receives replies for an expressed query. Handlers run on
// the network's dispatch goroutine and must return quickly: take a lock,
// update state, signal a waiter.
type ReplyHandler func(Reply)

// EnumerationBatch lists names a repository holds directly under
// Prefix. Each child is a single name component; the full name is
// Prefix.Append(child).
type EnumerationBatch struct {
	Prefix   name.Name
	Children [][]byte
}

// EnumerationHandler receives enumeration batches. It has the same
// dispatch constraints as ReplyHandler.
type EnumerationHandler func(EnumerationBatch)

// Registration is a live query or enumeration that keeps receiving
// replies until retracted.
type Registration interface {
	// Retract stops delivery. It is idempotent. A reply already being
	// dispatched when Retract is called may still reach the handler.
	Retract() error
}

// Network is the asynchronous query/reply exchange the writer runs on.
type Network interface {
	// Express registers query and delivers every matching reply to
	// handler until the registration is retracted.
	Express(ctx context.Context, query Query, handler ReplyHandler) (Registration, error)

	// Put makes segment available to the network, answering any
	// outstanding queries for its name. It does not wait for storage.
	Put(ctx context.Context, segment *content.Segment) error
}

// Enumerator asks repositories to report the one-level children they
// hold under a prefix.
type Enumerator interface {
	Enumerate(ctx context.Context, prefix name.Name, handler EnumerationHandler) (Registration, error)
}
