// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package name

import (
	"fmt"
	"strings"
)

const upperHex = "0123456789ABCDEF"

// Parse decodes the URI form of a name. The string must start with
// "/"; "/" alone is the root. A trailing slash is ignored.
func Parse(uri string) (Name, error) {
	if !strings.HasPrefix(uri, "/") {
		return Name{}, fmt.Errorf("name %q: must start with /", uri)
	}
	trimmed := strings.TrimPrefix(uri, "/")
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		return Name{}, nil
	}

	parts := strings.Split(trimmed, "/")
	components := make([][]byte, len(parts))
	for i, part := range parts {
		component, err := parseComponent(part)
		if err != nil {
			return Name{}, fmt.Errorf("name %q component %d: %w", uri, i, err)
		}
		components[i] = component
	}
	return Name{components: components}, nil
}

// MustParse is like Parse but panics on error. Intended for constants
// and tests.
func MustParse(uri string) Name {
	parsed, err := Parse(uri)
	if err != nil {
		panic(err)
	}
	return parsed
}

func parseComponent(part string) ([]byte, error) {
	if part == "" {
		return nil, fmt.Errorf("empty component (an empty component is written as ...)")
	}

	decoded := make([]byte, 0, len(part))
	for i := 0; i < len(part); i++ {
		character := part[i]
		if character != '%' {
			decoded = append(decoded, character)
			continue
		}
		if i+2 >= len(part) {
			return nil, fmt.Errorf("truncated percent escape at offset %d", i)
		}
		high, highOK := unhex(part[i+1])
		low, lowOK := unhex(part[i+2])
		if !highOK || !lowOK {
			return nil, fmt.Errorf("invalid percent escape %q", part[i:i+3])
		}
		decoded = append(decoded, high<<4|low)
		i += 2
	}

	if onlyPeriods(decoded) {
		if len(decoded) < 3 {
			return nil, fmt.Errorf("component %q is navigational, not a name component", part)
		}
		decoded = decoded[3:]
	}
	return decoded, nil
}

func writeComponent(builder *strings.Builder, component []byte) {
	if onlyPeriods(component) {
		builder.WriteString("...")
	}
	for _, character := range component {
		if isUnreserved(character) {
			builder.WriteByte(character)
			continue
		}
		builder.WriteByte('%')
		builder.WriteByte(upperHex[character>>4])
		builder.WriteByte(upperHex[character&0x0f])
	}
}

// onlyPeriods reports whether component is empty or consists solely of
// '.' bytes.
func onlyPeriods(component []byte) bool {
	for _, character := range component {
		if character != '.' {
			return false
		}
	}
	return true
}

func isUnreserved(character byte) bool {
	switch {
	case 'a' <= character && character <= 'z':
		return true
	case 'A' <= character && character <= 'Z':
		return true
	case '0' <= character && character <= '9':
		return true
	}
	return character == '-' || character == '.' || character == '_' || character == '~'
}

func unhex(character byte) (byte, bool) {
	switch {
	case '0' <= character && character <= '9':
		return character - '0', true
	case 'a' <= character && character <= 'f':
		return character - 'a' + 10, true
	case 'A' <= character && character <= 'F':
		return character - 'A' + 10, true
	}
	return 0, false
}
