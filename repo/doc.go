// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package repo implements the writer side of the repository protocol:
// pushing named segments into a repository that is reachable only
// through an asynchronous query/reply network with no acknowledgment
// channel of its own.
//
// A [FlowController] owns one write session per namespace. [Negotiator]
// establishes each session by expressing a start-write query
// (namespace/%C1.R.sw/nonce) and binding to the first repository that
// answers with an INFO [RepositoryInfo]. In verified mode every
// published segment waits in a [HoldingArea] until an acknowledgment
// removes it. Acknowledgments arrive two ways, both handled by
// [AckTracker]:
//
//   - DATA replies on the start-write registration list stored names
//     directly, and are accepted only from the bound repository.
//   - Once many writes are pending, the tracker registers a one-level
//     enumeration of the parent prefix of recent writes and
//     acknowledges prefix/child for every child reported.
//
// Publishers block when the area passes its high-water mark and resume
// at the low-water mark. Close waits for the area to empty, giving up
// with a [*WriteNotStableError] once a full response timeout passes
// without progress.
//
// Every wait in this package is a predicate loop on a sync.Cond,
// bounded by a [clock.Clock] window and the caller's context, so the
// timeout paths are testable with a fake clock:
//
//	fake := clock.Fake(start)
//	network := transport.NewMemoryNetwork()
//	flow, err := repo.NewFlowController(repo.Options{
//	    Network: network,
//	    Clock:   fake,
//	    Config:  config.DefaultFlow(),
//	})
//
// Network registrations are recorded in a [Registry] and retracted
// explicitly when a session fails or the controller closes.
package repo
