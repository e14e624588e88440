// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// metadata always produces the same sidecar bytes.
var encMode cbor.EncMode

// decMode ignores unknown fields, so sidecars written by a newer
// fragport remain readable by an older one.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Disambiguation paths, file keys, and fragment kinds implement
	// encoding.TextMarshaler and are stored as text strings.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	// Timestamps are stored as RFC 3339 text with nanoseconds so that
	// diagnostic output stays readable.
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for data.
// Used by "fragport list --diagnose" to show sidecars as written.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
