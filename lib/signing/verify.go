// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"crypto/ed25519"
	"fmt"

	"github.com/bureau-foundation/repowrite/lib/content"
	"github.com/bureau-foundation/repowrite/lib/merkle"
)

// Verify checks a single signed segment against publicKey. It needs no
// other segment of the batch.
func Verify(segment *content.Segment, publicKey ed25519.PublicKey) error {
	signature := segment.Signature
	if signature == nil {
		return fmt.Errorf("%s: %w", segment.Name, ErrUnsigned)
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%s: public key is %d bytes: %w", segment.Name, len(publicKey), ErrPublisherMismatch)
	}
	if signature.Algorithm != content.AlgorithmMerkleEd25519 {
		return fmt.Errorf("%s: algorithm %q: %w", segment.Name, signature.Algorithm, ErrBadSignature)
	}
	if segment.Publisher != merkle.HashPublicKey(publicKey) {
		return fmt.Errorf("%s: %w", segment.Name, ErrPublisherMismatch)
	}

	witness := signature.Witness
	sides, err := merkle.Shape(witness.LeafIndex, witness.LeafCount)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", segment.Name, ErrMalformedWitness, err)
	}
	if len(sides) != len(witness.Path) {
		return fmt.Errorf("%s: %w: path has %d steps, leaf %d of %d needs %d",
			segment.Name, ErrMalformedWitness, len(witness.Path), witness.LeafIndex, witness.LeafCount, len(sides))
	}
	for i, side := range sides {
		if witness.Path[i].Side != side {
			return fmt.Errorf("%s: %w: step %d is %s, want %s",
				segment.Name, ErrMalformedWitness, i, witness.Path[i].Side, side)
		}
	}

	root, err := merkle.RootFromPath(merkle.HashLeaf(segment.DigestInput()), witness.Path)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", segment.Name, ErrMalformedWitness, err)
	}
	if root != signature.Root {
		return fmt.Errorf("%s: %w", segment.Name, ErrRootMismatch)
	}

	if !ed25519.Verify(publicKey, rootMessage(signature.Root), signature.Value) {
		return fmt.Errorf("%s: %w", segment.Name, ErrBadSignature)
	}
	return nil
}
