// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fragpath

import (
	"errors"
	"fmt"
	"go/token"
	"strings"
)

// Separator joins path segments in the canonical form.
const Separator = "::"

// ErrInvalidPath is wrapped by every validation failure in this
// package, including a final segment that does not match the
// declaration it is attached to.
var ErrInvalidPath = errors.New("invalid disambiguation path")

// Path is a validated disambiguation path. The zero value is the empty
// path, which is never produced by a successful constructor.
type Path struct {
	segments  []string
	canonical string
}

// Parse parses the "::"-separated text form of a path. Whitespace
// around segments is trimmed, so "a :: b::Name" and "a::b::Name" are
// the same path.
func Parse(text string) (Path, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Path{}, fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	raw := strings.Split(trimmed, Separator)
	segments := make([]string, len(raw))
	for i, segment := range raw {
		segments[i] = strings.TrimSpace(segment)
	}
	return New(segments...)
}

// MustParse is like [Parse] but panics on error. Intended for
// constants in tests and generated code.
func MustParse(text string) Path {
	path, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return path
}

// New builds a path from individual segments. Each segment must be a
// valid Go identifier other than the blank identifier.
func New(segments ...string) (Path, error) {
	if len(segments) == 0 {
		return Path{}, fmt.Errorf("%w: path has no segments", ErrInvalidPath)
	}
	for i, segment := range segments {
		if err := validateSegment(segment); err != nil {
			return Path{}, fmt.Errorf("%w: segment %d: %v", ErrInvalidPath, i, err)
		}
	}
	owned := make([]string, len(segments))
	copy(owned, segments)
	return Path{segments: owned, canonical: strings.Join(owned, Separator)}, nil
}

// Default returns the single-segment path for a declaration with no
// explicit path: the bare identifier.
func Default(name string) (Path, error) {
	return New(name)
}

func validateSegment(segment string) error {
	if segment == "" {
		return fmt.Errorf("empty segment")
	}
	if segment == "_" {
		return fmt.Errorf("blank identifier cannot be exported")
	}
	if !token.IsIdentifier(segment) {
		return fmt.Errorf("%q is not a Go identifier", segment)
	}
	return nil
}

// Segments returns a copy of the path segments.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segments) }

// Name returns the final segment, which names the exported
// declaration. Empty for the zero path.
func (p Path) Name() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Qualifier returns the segments before the final one joined with the
// separator, or "" for a single-segment path.
func (p Path) Qualifier() string {
	if len(p.segments) < 2 {
		return ""
	}
	return strings.Join(p.segments[:len(p.segments)-1], Separator)
}

// String returns the canonical form.
func (p Path) String() string { return p.canonical }

// IsZero reports whether p is the empty path.
func (p Path) IsZero() bool { return len(p.segments) == 0 }

// Equal reports whether two paths have identical segments.
func (p Path) Equal(other Path) bool { return p.canonical == other.canonical }

// ValidateFor checks that the path may be attached to a declaration
// named name: the final segment must equal the identifier exactly.
func (p Path) ValidateFor(name string) error {
	if p.IsZero() {
		return fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	if p.Name() != name {
		return fmt.Errorf("%w: path %q ends in %q but the declaration is named %q",
			ErrInvalidPath, p.canonical, p.Name(), name)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	if p.IsZero() {
		return nil, fmt.Errorf("%w: cannot marshal the empty path", ErrInvalidPath)
	}
	return []byte(p.canonical), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
