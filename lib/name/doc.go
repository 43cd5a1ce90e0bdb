// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package name implements content names: ordered sequences of opaque
// binary components that identify every segment a publisher pushes
// into a repository.
//
// A [Name] is immutable. Constructors copy their input and accessors
// return copies, so a Name can be shared between goroutines and used
// as the identity of a pending write without copying at the
// call sites.
//
// Names under a common prefix form a tree, but the tree is never
// materialized: a Name is the flat list of its components, and prefix
// relationships are computed on demand ([Name.HasPrefix],
// [Name.Parent]).
//
// # Ordering
//
// Names are totally ordered by [Compare]: components are compared
// pairwise with bytes.Compare, and a strict prefix sorts before any of
// its extensions. The holding area relies on this order to report the
// earliest unacknowledged segment.
//
// # URI form
//
// [Name.String] and [Parse] convert to and from a slash-separated URI
// form such as /parc/videos/%C1.R.sw. Every byte outside the
// unreserved set [A-Za-z0-9-._~] is percent-encoded. A component made
// only of periods (including the empty component) is written with
// three extra periods, so "", "." and ".." become "...", "...." and
// "....." and can never be confused with navigational path segments.
// The URI form is injective: Parse(n.String()) always equals n.
//
// [Name.Key] returns a compact injective string suitable for map keys;
// it is not human-readable and should not be logged.
package name
