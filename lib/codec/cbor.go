// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Limits applied to every decode. Protocol messages are small; a reply
// that exceeds these is malformed.
const (
	maxNestedLevels = 16
	maxElements     = 1 << 16
)

// Codec encodes and decodes protocol messages. It is safe for
// concurrent use.
type Codec struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

// New builds a Codec with Core Deterministic Encoding.
func New() (*Codec, error) {
	encOptions := cbor.CoreDetEncOptions()
	// Without this, struct fields whose type keeps its data unexported
	// (name.Name) would serialize as empty CBOR maps.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err := encOptions.EncMode()
	if err != nil {
		return nil, fmt.Errorf("codec: CBOR encoder initialization: %w", err)
	}

	decMode, err := cbor.DecOptions{
		// any-typed targets decode maps as map[string]any instead of
		// map[interface{}]interface{}. Struct fields are unaffected.
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler:  cbor.TextUnmarshalerTextString,
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels:  maxNestedLevels,
		MaxArrayElements: maxElements,
		MaxMapPairs:      maxElements,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("codec: CBOR decoder initialization: %w", err)
	}

	return &Codec{encMode: encMode, decMode: decMode}, nil
}

// MustNew is New for package-level test fixtures. It panics on error,
// which only happens if the option set above is invalid.
func MustNew() *Codec {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

// Marshal encodes v to CBOR.
func (c *Codec) Marshal(v any) ([]byte, error) {
	return c.encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v. Trailing bytes after the first
// item are an error.
func (c *Codec) Unmarshal(data []byte, v any) error {
	return c.decMode.Unmarshal(data, v)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for
// data. Used when logging replies that failed to decode.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
