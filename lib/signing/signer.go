// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/repowrite/lib/content"
	"github.com/bureau-foundation/repowrite/lib/merkle"
)

// rootTag prefixes the root digest in the signed message so a batch
// signature cannot be replayed as a signature over anything else.
const rootTag = "repowrite.merkle.root\x00"

// BatchSigner signs batches of segments with a single Ed25519 key.
type BatchSigner struct {
	signer    crypto.Signer
	publicKey ed25519.PublicKey
	publisher merkle.Hash
	logger    *slog.Logger
}

// NewBatchSigner wraps signer, which must hold an Ed25519 key. An
// ed25519.PrivateKey satisfies crypto.Signer directly; hardware-backed
// signers work as long as Public returns an ed25519.PublicKey. A nil
// logger uses slog.Default.
func NewBatchSigner(signer crypto.Signer, logger *slog.Logger) (*BatchSigner, error) {
	publicKey, ok := signer.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("signing: signer public key is %T, want ed25519.PublicKey", signer.Public())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchSigner{
		signer:    signer,
		publicKey: publicKey,
		publisher: merkle.HashPublicKey(publicKey),
		logger:    logger,
	}, nil
}

// PublicKey returns the key verifiers need.
func (s *BatchSigner) PublicKey() ed25519.PublicKey {
	return s.publicKey
}

// Publisher returns the key ID stamped on every signed segment.
func (s *BatchSigner) Publisher() merkle.Hash {
	return s.publisher
}

// SignBatch returns signed copies of segments in the same order. The
// batch order fixes each segment's leaf index. An empty batch returns
// nil. If the signer fails the returned error is a *CryptoError and
// no segment is returned.
func (s *BatchSigner) SignBatch(segments []*content.Segment) ([]*content.Segment, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	signed := make([]*content.Segment, len(segments))
	leaves := make([]merkle.Hash, len(segments))
	for i, segment := range segments {
		if segment == nil {
			return nil, fmt.Errorf("signing: segment %d of batch is nil", i)
		}
		clone := segment.Clone()
		clone.Publisher = s.publisher
		clone.Signature = nil
		signed[i] = clone
		leaves[i] = merkle.HashLeaf(clone.DigestInput())
	}

	tree, err := merkle.Build(leaves)
	if err != nil {
		return nil, fmt.Errorf("signing: building tree: %w", err)
	}
	root := tree.Root()

	value, err := s.signer.Sign(rand.Reader, rootMessage(root), crypto.Hash(0))
	if err != nil {
		return nil, &CryptoError{Op: "sign root", Leaves: len(segments), Err: err}
	}
	if len(value) != ed25519.SignatureSize {
		return nil, &CryptoError{
			Op:     "sign root",
			Leaves: len(segments),
			Err:    fmt.Errorf("signature is %d bytes, want %d", len(value), ed25519.SignatureSize),
		}
	}

	for i, clone := range signed {
		path, err := tree.Path(i)
		if err != nil {
			return nil, fmt.Errorf("signing: path for leaf %d: %w", i, err)
		}
		clone.Signature = &content.Signature{
			Algorithm: content.AlgorithmMerkleEd25519,
			Root:      root,
			// Each segment owns its copy of the shared signature.
			Value: append([]byte(nil), value...),
			Witness: content.Witness{
				LeafIndex: i,
				LeafCount: len(signed),
				Path:      path,
			},
		}
	}

	s.logger.Info("signed batch",
		"leaves", tree.LeafCount(),
		"nodes", tree.NodeCount(),
		"root", root.String(),
	)
	return signed, nil
}

func rootMessage(root merkle.Hash) []byte {
	message := make([]byte, 0, len(rootTag)+len(root))
	message = append(message, rootTag...)
	return append(message, root[:]...)
}
