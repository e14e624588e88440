// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds fragport's one CBOR configuration.
//
// Fragment files in the indirect store are raw source text and never
// pass through this package. CBOR is used only for the metadata sidecar
// written next to each indirect record (owner package, generation,
// digest, write time). The sidecar is advisory: collision warnings and
// pruning read it, resolution of the fragment itself does not.
//
//	data, err := codec.Marshal(meta)
//	err = codec.Unmarshal(data, &meta)
//
// # Struct Tag Rules
//
// A `cbor` tag marks a type that is only ever stored as CBOR. A `json`
// tag marks a type that is also printed by "fragport list --json";
// fxamacker/cbor reads `json` tags when `cbor` tags are absent, so one
// tag controls both formats. Never put both tags on one field.
package codec
