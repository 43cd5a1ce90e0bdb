// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package merkle

import (
	"errors"
	"fmt"
)

// ErrEmptyTree is returned by Build when given no leaves.
var ErrEmptyTree = errors.New("merkle: tree needs at least one leaf")

// Side records which side of the running digest a sibling sits on.
type Side uint8

const (
	// Left means the sibling is hashed before the running digest.
	Left Side = 1
	// Right means the sibling is hashed after the running digest.
	Right Side = 2
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

// Step is one element of an authentication path: a sibling digest and
// the side it is combined on.
type Step struct {
	Side Side `cbor:"side"`
	Hash Hash `cbor:"hash"`
}

// Tree holds every level of a Merkle tree, leaves first. It is built
// once and never modified.
type Tree struct {
	levels [][]Hash
}

// Build constructs a tree over leaves in the given order. The leaves
// slice is copied.
func Build(leaves []Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}

	level := make([]Hash, len(leaves))
	copy(level, leaves)
	levels := [][]Hash{level}

	for len(level) > 1 {
		next := make([]Hash, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			next[i/2] = HashPair(level[i], level[i+1])
		}
		// Odd node: promote without hashing.
		if len(level)%2 == 1 {
			next[len(next)-1] = level[len(level)-1]
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{levels: levels}, nil
}

// Root returns the root digest. For a single leaf this is the leaf.
func (t *Tree) Root() Hash {
	return t.levels[len(t.levels)-1][0]
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int {
	return len(t.levels[0])
}

// NodeCount returns the number of distinct digests in the tree. A
// promoted node is counted once, at the level where it was created.
func (t *Tree) NodeCount() int {
	count := 0
	for i, level := range t.levels {
		count += len(level)
		if i > 0 && len(t.levels[i-1])%2 == 1 {
			count--
		}
	}
	return count
}

// Path returns the authentication path for the leaf at index, ordered
// from the leaf toward the root.
func (t *Tree) Path(index int) ([]Step, error) {
	if index < 0 || index >= t.LeafCount() {
		return nil, fmt.Errorf("merkle: leaf index %d out of range [0, %d)", index, t.LeafCount())
	}

	var path []Step
	position := index
	for _, level := range t.levels[:len(t.levels)-1] {
		switch {
		case position%2 == 1:
			path = append(path, Step{Side: Left, Hash: level[position-1]})
		case position+1 < len(level):
			path = append(path, Step{Side: Right, Hash: level[position+1]})
		}
		position /= 2
	}
	return path, nil
}

// RootFromPath folds an authentication path onto a leaf digest and
// returns the implied root.
func RootFromPath(leaf Hash, path []Step) (Hash, error) {
	running := leaf
	for i, step := range path {
		switch step.Side {
		case Left:
			running = HashPair(step.Hash, running)
		case Right:
			running = HashPair(running, step.Hash)
		default:
			return Hash{}, fmt.Errorf("merkle: path step %d has invalid side %d", i, step.Side)
		}
	}
	return running, nil
}

// Shape returns the sibling sides a valid path must have for the leaf
// at index in a tree of count leaves.
func Shape(index, count int) ([]Side, error) {
	if count <= 0 {
		return nil, ErrEmptyTree
	}
	if index < 0 || index >= count {
		return nil, fmt.Errorf("merkle: leaf index %d out of range [0, %d)", index, count)
	}

	var sides []Side
	position, width := index, count
	for width > 1 {
		switch {
		case position%2 == 1:
			sides = append(sides, Left)
		case position+1 < width:
			sides = append(sides, Right)
		}
		position /= 2
		width = (width + 1) / 2
	}
	return sides, nil
}
