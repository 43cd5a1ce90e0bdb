// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"errors"
	"fmt"
)

// ErrCrypto is matched by every [*CryptoError].
var ErrCrypto = errors.New("signing: cryptographic operation failed")

// Errors returned by Verify.
var (
	ErrUnsigned          = errors.New("signing: segment has no signature")
	ErrMalformedWitness  = errors.New("signing: witness does not match the tree shape")
	ErrPublisherMismatch = errors.New("signing: segment publisher does not match the key")
	ErrRootMismatch      = errors.New("signing: authentication path does not lead to the signed root")
	ErrBadSignature      = errors.New("signing: invalid root signature")
)

// CryptoError reports a failure of the underlying signer while signing
// a batch. No segment of the batch is signed when one is returned.
type CryptoError struct {
	// Op names the step that failed, for example "sign root".
	Op string
	// Leaves is the size of the batch being signed.
	Leaves int
	Err    error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("signing: %s (batch of %d): %v", e.Op, e.Leaves, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCrypto) true for any CryptoError.
func (e *CryptoError) Is(target error) bool {
	return target == ErrCrypto
}
