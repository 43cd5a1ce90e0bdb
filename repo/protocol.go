// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/bureau-foundation/repowrite/lib/codec"
	"github.com/bureau-foundation/repowrite/lib/name"
)

// StartWriteMarker is the name component that turns a query under a
// namespace into a start-write request. Repositories willing to accept
// writes for the namespace answer it with an INFO reply.
var StartWriteMarker = []byte{0xC1, '.', 'R', '.', 's', 'w'}

// ProtocolVersion is carried in every RepositoryInfo this package
// builds. Decoding accepts any version.
const ProtocolVersion = "1.1"

// InfoType distinguishes the two RepositoryInfo replies.
type InfoType uint8

const (
	// InfoTypeInfo announces a repository's identity in answer to a
	// start-write request.
	InfoTypeInfo InfoType = 1
	// InfoTypeData lists names the repository has durably stored.
	InfoTypeData InfoType = 2
)

func (t InfoType) String() string {
	switch t {
	case InfoTypeInfo:
		return "INFO"
	case InfoTypeData:
		return "DATA"
	}
	return fmt.Sprintf("InfoType(%d)", uint8(t))
}

// RepositoryInfo is the payload of every reply a repository sends on a
// start-write registration.
type RepositoryInfo struct {
	Type      InfoType `cbor:"type"`
	Version   string   `cbor:"version"`
	LocalName string   `cbor:"local_name"`

	// GlobalPrefix is the prefix under which the repository publishes
	// its own content. Together with LocalName it identifies the
	// repository instance.
	GlobalPrefix name.Name `cbor:"global_prefix"`

	// Names lists acknowledged segments. Only meaningful for DATA.
	Names []name.Name `cbor:"names,omitempty"`
}

// StartWriteName returns namespace/StartWriteMarker/nonce.
func StartWriteName(namespace name.Name, nonce []byte) name.Name {
	return namespace.Append(StartWriteMarker, nonce)
}

// NewNonce returns 16 random bytes for a start-write request.
func NewNonce() ([]byte, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("repo: generating nonce: %w", err)
	}
	return id[:], nil
}

// EncodeRepositoryInfo encodes info with c. Repositories and tests use
// it; the writer only decodes.
func EncodeRepositoryInfo(c *codec.Codec, info RepositoryInfo) ([]byte, error) {
	if info.Version == "" {
		info.Version = ProtocolVersion
	}
	return c.Marshal(info)
}

// DecodeRepositoryInfo decodes a reply payload and checks that it is a
// reply type this package understands.
func DecodeRepositoryInfo(c *codec.Codec, data []byte) (RepositoryInfo, error) {
	var info RepositoryInfo
	if err := c.Unmarshal(data, &info); err != nil {
		return RepositoryInfo{}, fmt.Errorf("repo: decoding repository info: %w", err)
	}
	switch info.Type {
	case InfoTypeInfo, InfoTypeData:
	default:
		return RepositoryInfo{}, fmt.Errorf("repo: repository info has unknown type %d", uint8(info.Type))
	}
	return info, nil
}
