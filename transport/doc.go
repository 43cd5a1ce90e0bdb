// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport defines the network surface the repository writer
// runs on.
//
// The network is a content-centric query/reply exchange: a [Query]
// names a prefix, and any number of [Reply] values whose names fall
// under that prefix may arrive for it, at any time, until the
// [Registration] is retracted. There is no acknowledgment channel and
// no guarantee that any reply arrives at all. [Network] expresses
// queries and puts segments; [Enumerator] asks repositories to list the
// one-level children they hold under a prefix, delivered as
// [EnumerationBatch] values.
//
// Replies are dispatched on a goroutine owned by the network. Handlers
// must be short and must tolerate delivery after retraction, since a
// reply can be in flight when Retract returns.
//
// [MemoryNetwork] provides an in-process implementation for tests. The
// test plays the repository by calling [MemoryNetwork.Respond] and
// [MemoryNetwork.DeliverEnumeration], and inspects what the writer did
// with [MemoryNetwork.Queries], [MemoryNetwork.Puts], and
// [MemoryNetwork.Outstanding].
package transport
