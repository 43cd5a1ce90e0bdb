// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/repowrite/lib/name"
)

var (
	// ErrNoRepositoryResponse is returned by Open when no repository
	// answered the start-write request within the response timeout.
	ErrNoRepositoryResponse = errors.New("repo: no response from a repository")

	// ErrWriteNotStable is matched by every *WriteNotStableError.
	ErrWriteNotStable = errors.New("repo: unable to confirm writes are stable")

	// ErrNamespaceNotOpen is returned by Publish for a segment outside
	// every opened namespace.
	ErrNamespaceNotOpen = errors.New("repo: segment is not under an open namespace")

	// ErrClosed is returned by operations on a closed FlowController.
	ErrClosed = errors.New("repo: flow controller is closed")
)

// WriteNotStableError reports that Close gave up waiting for
// acknowledgments: a full response-timeout window passed with no
// progress while segments were still pending.
//
//	var unstable *repo.WriteNotStableError
//	if errors.As(err, &unstable) {
//	    log.Printf("first unacknowledged segment: %s", unstable.Name)
//	}
type WriteNotStableError struct {
	// Name is the lowest-ordered segment still pending.
	Name name.Name
	// Pending is how many segments were still unacknowledged.
	Pending int
}

func (e *WriteNotStableError) Error() string {
	return fmt.Sprintf("repo: unable to confirm writes are stable: timed out waiting for ack of %s (%d pending)",
		e.Name, e.Pending)
}

// Is makes errors.Is(err, ErrWriteNotStable) true for any
// WriteNotStableError.
func (e *WriteNotStableError) Is(target error) bool {
	return target == ErrWriteNotStable
}
