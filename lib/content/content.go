// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package content defines the named, immutable unit of publication
// (a [Segment]) and the signature metadata that batch signing attaches
// to it.
//
// A Segment is identified by its full [name.Name]. Once published a
// segment is never modified; the signer returns new segments rather
// than filling in a signature on the caller's copy.
package content

import (
	"bytes"
	"encoding/binary"

	"github.com/bureau-foundation/repowrite/lib/merkle"
	"github.com/bureau-foundation/repowrite/lib/name"
)

// AlgorithmMerkleEd25519 labels a signature made by signing a Merkle
// root once with Ed25519 and proving each segment's membership with a
// [Witness].
const AlgorithmMerkleEd25519 = "merkle-blake3-ed25519"

// Segment is one named, immutable piece of content.
type Segment struct {
	Name    name.Name `cbor:"name"`
	Payload []byte    `cbor:"payload"`

	// Publisher identifies the signing key: the publisher-domain
	// BLAKE3 digest of the encoded public key. Zero until signed.
	Publisher merkle.Hash `cbor:"publisher"`

	// Signature is nil for an unsigned segment.
	Signature *Signature `cbor:"signature,omitempty"`
}

// Signature is the per-segment view of a batch signature: the shared
// root, the one signature over it, and this segment's proof of
// membership.
type Signature struct {
	Algorithm string      `cbor:"algorithm"`
	Root      merkle.Hash `cbor:"root"`
	Value     []byte      `cbor:"value"`
	Witness   Witness     `cbor:"witness"`
}

// Witness locates a leaf in its tree. LeafIndex and LeafCount fix the
// tree shape; Path holds the sibling digests from the leaf toward the
// root.
type Witness struct {
	LeafIndex int           `cbor:"leaf_index"`
	LeafCount int           `cbor:"leaf_count"`
	Path      []merkle.Step `cbor:"path"`
}

// Clone returns a deep copy of s.
func (s *Segment) Clone() *Segment {
	clone := &Segment{
		Name:      s.Name,
		Payload:   bytes.Clone(s.Payload),
		Publisher: s.Publisher,
	}
	if s.Signature != nil {
		signature := *s.Signature
		signature.Value = bytes.Clone(s.Signature.Value)
		signature.Witness.Path = append([]merkle.Step(nil), s.Signature.Witness.Path...)
		clone.Signature = &signature
	}
	return clone
}

// DigestInput returns the bytes a leaf digest is computed over: the
// component count, each name component, the publisher key ID, and the
// payload, every variable-length field preceded by its uvarint length.
// Two segments with different names, publishers, or payloads never
// produce the same input.
func (s *Segment) DigestInput() []byte {
	components := s.Name.Components()
	size := binary.MaxVarintLen64 * (len(components) + 2)
	for _, component := range components {
		size += len(component)
	}
	size += len(s.Publisher) + len(s.Payload)

	buffer := make([]byte, 0, size)
	buffer = binary.AppendUvarint(buffer, uint64(len(components)))
	for _, component := range components {
		buffer = binary.AppendUvarint(buffer, uint64(len(component)))
		buffer = append(buffer, component...)
	}
	buffer = append(buffer, s.Publisher[:]...)
	buffer = binary.AppendUvarint(buffer, uint64(len(s.Payload)))
	buffer = append(buffer, s.Payload...)
	return buffer
}
