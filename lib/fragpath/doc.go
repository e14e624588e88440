// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fragpath provides the disambiguation path: the symbolic key
// under which an exported declaration is published and resolved.
//
// A path is an ordered list of Go identifiers written with "::"
// separators, for example "codec::wire::Header". Only the final
// segment carries meaning: it must equal the identifier of the
// exported declaration. Earlier segments are free-form qualifiers used
// to keep two exports apart; they need not name real packages.
//
// Paths are validated once, at construction. A [Path] value is
// immutable and its canonical string form is pre-computed, so every
// resolver that re-derives a path from the same text arrives at the
// same key without further normalization.
//
// The canonical serialization is the "::"-joined form, exposed through
// encoding.TextMarshaler so paths travel through CBOR, JSON, and YAML
// as plain strings.
package fragpath
