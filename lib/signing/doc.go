// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package signing amortizes one public-key signature over a batch of
// content segments.
//
// [BatchSigner.SignBatch] computes a leaf digest for every segment,
// builds a [merkle.Tree] over the digests in batch order, and signs the
// root once. Each returned segment carries the root, the root
// signature, and its own authentication path, so [Verify] can check any
// single segment with nothing but the segment and the publisher's
// public key. Signing an N-segment batch costs one signature operation
// and roughly 2N hashes.
//
// Inputs are never modified. SignBatch returns signed clones, and on
// failure it returns none, so a partially signed batch is never
// observable.
package signing
