// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keycodec derives the two storage keys of a disambiguation
// path: the constant symbol used by the direct channel and the file
// key used by the indirect channel.
//
// Both encodings are pure functions of the canonical path text.
//
// The symbol is the reserved prefix [SymbolPrefix] followed by the
// upper-cased final path segment. Only the final segment participates,
// so two paths that share a final segment map to the same symbol; the
// direct channel reports that as a duplicate registration.
//
// The file key covers every segment. It is a readable slug of the final
// segment followed by 128 bits of a BLAKE3 keyed hash of the canonical
// path, so distinct paths land in distinct files while a directory
// listing still shows what each file holds:
//
//	a::b::Widget  ->  widget-3f9c0e...  (32 hex characters)
package keycodec

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/fragport/lib/fragpath"
)

// SymbolPrefix is prepended to every direct-channel constant. It is an
// exported identifier so the constant is reachable from importing
// packages; the double underscore keeps it out of the way of names
// people write by hand.
const SymbolPrefix = "ExportedFragment__"

const (
	// maxSlugLength bounds the readable part of a file key so keys stay
	// well under common filename limits.
	maxSlugLength = 48

	// digestHexLength is the number of hex characters of the path
	// digest carried in a file key (128 bits).
	digestHexLength = 32
)

// pathDomainKey is the BLAKE3 key for path hashing: the ASCII domain
// name zero-padded to 32 bytes. Changing it re-keys every indirect
// record.
var pathDomainKey = [32]byte{
	'f', 'r', 'a', 'g', 'p', 'o', 'r', 't', '.', 'k', 'e', 'y', 'c', 'o', 'd', 'e',
	'c', '.', 'p', 'a', 't', 'h', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// FileKey names one indirect record inside the coordination root. The
// zero value is invalid.
type FileKey struct {
	slug   string
	digest string
}

// String returns the filename form "<slug>-<hex>".
func (k FileKey) String() string {
	if k.digest == "" {
		return ""
	}
	return k.slug + "-" + k.digest
}

// Slug returns the readable part of the key.
func (k FileKey) Slug() string { return k.slug }

// IsZero reports whether k is the zero key.
func (k FileKey) IsZero() bool { return k.digest == "" }

// EncodeSymbol returns the direct-channel constant name for path.
func EncodeSymbol(path fragpath.Path) string {
	return SymbolPrefix + strings.ToUpper(path.Name())
}

// EncodeFileKey returns the indirect-channel file key for path.
func EncodeFileKey(path fragpath.Path) FileKey {
	hasher, err := blake3.NewKeyed(pathDomainKey[:])
	if err != nil {
		// NewKeyed only fails for keys that are not 32 bytes long.
		panic("keycodec: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(path.String()))
	sum := hasher.Sum(nil)
	return FileKey{
		slug:   slugify(path.Name()),
		digest: hex.EncodeToString(sum[:digestHexLength/2]),
	}
}

// ParseFileKey parses the filename form of a key. Files in the
// coordination root that do not parse are not records.
func ParseFileKey(text string) (FileKey, error) {
	separator := strings.LastIndexByte(text, '-')
	if separator < 0 {
		return FileKey{}, fmt.Errorf("file key %q: missing '-' separator", text)
	}
	slug, digest := text[:separator], text[separator+1:]
	if slug == "" || len(slug) > maxSlugLength {
		return FileKey{}, fmt.Errorf("file key %q: slug must be 1 to %d characters", text, maxSlugLength)
	}
	for i := 0; i < len(slug); i++ {
		if !slugChar(slug[i]) {
			return FileKey{}, fmt.Errorf("file key %q: invalid slug character %q", text, slug[i])
		}
	}
	if len(digest) != digestHexLength {
		return FileKey{}, fmt.Errorf("file key %q: digest is %d characters, want %d", text, len(digest), digestHexLength)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return FileKey{}, fmt.Errorf("file key %q: digest is not hex: %w", text, err)
	}
	if strings.ToLower(digest) != digest {
		return FileKey{}, fmt.Errorf("file key %q: digest must be lower-case hex", text)
	}
	return FileKey{slug: slug, digest: digest}, nil
}

func slugify(name string) string {
	lowered := strings.ToLower(name)
	var builder strings.Builder
	for i := 0; i < len(lowered) && builder.Len() < maxSlugLength; i++ {
		c := lowered[i]
		if slugChar(c) {
			builder.WriteByte(c)
		} else {
			builder.WriteByte('_')
		}
	}
	if builder.Len() == 0 {
		return "_"
	}
	return builder.String()
}

func slugChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
}

// MarshalText implements encoding.TextMarshaler.
func (k FileKey) MarshalText() ([]byte, error) {
	if k.IsZero() {
		return nil, fmt.Errorf("marshaling zero file key")
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FileKey) UnmarshalText(data []byte) error {
	parsed, err := ParseFileKey(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
