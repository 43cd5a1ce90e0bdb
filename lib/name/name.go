// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package name

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Name is an immutable ordered sequence of binary components. The zero
// value is the root name "/" with no components.
type Name struct {
	components [][]byte
}

// New returns a Name with a copy of each given component.
func New(components ...[]byte) Name {
	if len(components) == 0 {
		return Name{}
	}
	copied := make([][]byte, len(components))
	for i, component := range components {
		copied[i] = bytes.Clone(component)
		if copied[i] == nil {
			copied[i] = []byte{}
		}
	}
	return Name{components: copied}
}

// FromStrings returns a Name whose components are the UTF-8 bytes of
// the given strings, without any unescaping.
func FromStrings(components ...string) Name {
	raw := make([][]byte, len(components))
	for i, component := range components {
		raw[i] = []byte(component)
	}
	return New(raw...)
}

// Len returns the number of components.
func (n Name) Len() int {
	return len(n.components)
}

// IsRoot reports whether n has no components.
func (n Name) IsRoot() bool {
	return len(n.components) == 0
}

// Component returns a copy of the i'th component. Panics if i is out
// of range.
func (n Name) Component(i int) []byte {
	return bytes.Clone(n.components[i])
}

// Components returns copies of all components in order.
func (n Name) Components() [][]byte {
	copied := make([][]byte, len(n.components))
	for i, component := range n.components {
		copied[i] = bytes.Clone(component)
	}
	return copied
}

// Append returns a new Name with the given components added after
// n's. n is unchanged.
func (n Name) Append(components ...[]byte) Name {
	combined := make([][]byte, 0, len(n.components)+len(components))
	// Existing components are immutable and may be shared.
	combined = append(combined, n.components...)
	for _, component := range components {
		copied := bytes.Clone(component)
		if copied == nil {
			copied = []byte{}
		}
		combined = append(combined, copied)
	}
	return Name{components: combined}
}

// Join returns the concatenation of n and suffix.
func (n Name) Join(suffix Name) Name {
	if suffix.IsRoot() {
		return n
	}
	combined := make([][]byte, 0, len(n.components)+len(suffix.components))
	combined = append(combined, n.components...)
	combined = append(combined, suffix.components...)
	return Name{components: combined}
}

// Prefix returns the Name made of the first count components. Panics
// if count is negative or larger than n.Len().
func (n Name) Prefix(count int) Name {
	if count < 0 || count > len(n.components) {
		panic(fmt.Sprintf("name: prefix length %d out of range [0, %d]", count, len(n.components)))
	}
	if count == 0 {
		return Name{}
	}
	return Name{components: n.components[:count:count]}
}

// Parent returns n without its last component. The parent of the root
// is the root.
func (n Name) Parent() Name {
	if len(n.components) == 0 {
		return n
	}
	return n.Prefix(len(n.components) - 1)
}

// HasPrefix reports whether prefix is n or an ancestor of n.
func (n Name) HasPrefix(prefix Name) bool {
	if len(prefix.components) > len(n.components) {
		return false
	}
	for i, component := range prefix.components {
		if !bytes.Equal(component, n.components[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether n and other have identical components.
func (n Name) Equal(other Name) bool {
	return len(n.components) == len(other.components) && n.HasPrefix(other)
}

// Compare returns -1, 0, or +1 as a sorts before, equal to, or after
// b. Components are compared with bytes.Compare; a strict prefix sorts
// first.
func Compare(a, b Name) int {
	shared := min(len(a.components), len(b.components))
	for i := 0; i < shared; i++ {
		if order := bytes.Compare(a.components[i], b.components[i]); order != 0 {
			return order
		}
	}
	switch {
	case len(a.components) < len(b.components):
		return -1
	case len(a.components) > len(b.components):
		return 1
	}
	return 0
}

// Key returns an injective binary encoding of n for use as a map key:
// each component is a uvarint length followed by its bytes.
func (n Name) Key() string {
	size := 0
	for _, component := range n.components {
		size += binary.MaxVarintLen64 + len(component)
	}
	buffer := make([]byte, 0, size)
	for _, component := range n.components {
		buffer = binary.AppendUvarint(buffer, uint64(len(component)))
		buffer = append(buffer, component...)
	}
	return string(buffer)
}

// String returns the URI form of n, for example "/a/b/%00".
func (n Name) String() string {
	if len(n.components) == 0 {
		return "/"
	}
	var builder strings.Builder
	for _, component := range n.components {
		builder.WriteByte('/')
		writeComponent(&builder, component)
	}
	return builder.String()
}

// MarshalText encodes n in its URI form.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText decodes the URI form produced by MarshalText.
func (n *Name) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
