// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used for repository
// protocol messages.
//
// A [Codec] is an explicit value built once by [New] and passed to the
// components that need it. There is no package-level encoder, so tests
// and embedders can run codecs side by side without shared state.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. Same
// logical data always produces identical bytes. Types implementing
// encoding.TextMarshaler (notably name.Name) travel as CBOR text
// strings in their URI form.
//
//	c, err := codec.New()
//	data, err := c.Marshal(info)
//	err = c.Unmarshal(data, &info)
//
// The decoder ignores unknown fields for forward compatibility but
// rejects duplicate map keys and bounds nesting and container sizes,
// since replies come from untrusted repositories.
package codec
