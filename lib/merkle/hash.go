// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package merkle

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// domainKey is a 32-byte BLAKE3 key. The byte values are the ASCII
// domain name zero-padded to 32 bytes; changing them invalidates every
// signature made over trees in that domain.
type domainKey [32]byte

var (
	leafDomainKey = domainKey{
		'r', 'e', 'p', 'o', 'w', 'r', 'i', 't', 'e', '.', 'm', 'e', 'r', 'k', 'l', 'e',
		'.', 'l', 'e', 'a', 'f', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	nodeDomainKey = domainKey{
		'r', 'e', 'p', 'o', 'w', 'r', 'i', 't', 'e', '.', 'm', 'e', 'r', 'k', 'l', 'e',
		'.', 'n', 'o', 'd', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	keyDomainKey = domainKey{
		'r', 'e', 'p', 'o', 'w', 'r', 'i', 't', 'e', '.', 'p', 'u', 'b', 'l', 'i', 's',
		'h', 'e', 'r', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// HashLeaf computes the leaf-domain digest of data.
func HashLeaf(data []byte) Hash {
	return keyedHash(leafDomainKey, data)
}

// HashPair computes the node-domain digest of left || right.
func HashPair(left, right Hash) Hash {
	var combined [64]byte
	copy(combined[:32], left[:])
	copy(combined[32:], right[:])
	return keyedHash(nodeDomainKey, combined[:])
}

// HashPublicKey computes the publisher-domain digest of an encoded
// public key. Segments carry this digest to identify their signer.
func HashPublicKey(encoded []byte) Hash {
	return keyedHash(keyDomainKey, encoded)
}

// String returns the hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is all zero bytes.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing merkle hash: %w", err)
	}
	if len(decoded) != len(hash) {
		return hash, fmt.Errorf("merkle hash is %d bytes, want %d", len(decoded), len(hash))
	}
	copy(hash[:], decoded)
	return hash, nil
}

func keyedHash(key domainKey, data []byte) Hash {
	// NewKeyed only fails for a key of the wrong length, which
	// domainKey rules out.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("merkle: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}
