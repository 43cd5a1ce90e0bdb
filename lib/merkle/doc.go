// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package merkle builds binary Merkle trees over ordered leaf digests
// and produces the authentication path that lets any single leaf be
// checked against the root without the other leaves.
//
// Hashing is BLAKE3 in keyed mode with two domain keys: leaves are
// hashed with the leaf key ([HashLeaf]) and interior nodes with the
// node key ([HashPair]). Domain separation prevents an interior node
// from being presented as a leaf (the classic second-preimage attack
// on Merkle trees).
//
// # Tree shape
//
// The tree is built bottom-up. Adjacent digests are paired left to
// right and each pair is hashed into the next level. When a level has
// an odd count, the last digest is promoted to the next level
// unchanged: it is neither hashed alone nor duplicated. The shape is
// therefore a pure function of the leaf count, and a leaf's position
// in the input (its index) fixes its path. Verifiers must know the
// index and the count to reconstruct the shape; [Shape] returns the
// expected sibling sides for a given index and count.
//
// A promoted node contributes no step to the path at that level, so
// paths for different leaves of the same tree can have different
// lengths.
package merkle
