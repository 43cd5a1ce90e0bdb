// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for repowrite packages.
//
// [RequireReceive], [RequireClosed], and [RequireNoReceive] bound
// every channel wait in a test with a wall-clock timeout, so a broken
// component fails the test instead of hanging it. These are the only place in the test
// suite where real wall-clock timeouts are used. Protocol timeouts are
// driven by the fake clock in lib/clock instead.
//
// [LogRecorder] is a slog.Handler that keeps every record so tests can
// assert on what a component logged. [DiscardLogger] is for tests that
// do not care.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no repowrite-internal dependencies.
package testutil
