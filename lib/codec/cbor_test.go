// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/fragport/lib/fragpath"
)

type sidecar struct {
	Path      fragpath.Path `cbor:"path"`
	Package   string        `cbor:"package,omitempty"`
	WrittenAt time.Time     `cbor:"written_at"`
}

type listedSidecar struct {
	Generation string `json:"generation"`
	Size       int    `json:"size"`
}

func TestMarshalRoundTrip(t *testing.T) {
	original := sidecar{
		Path:      fragpath.MustParse("ui::controls::Widget"),
		Package:   "example.com/shapes",
		WrittenAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sidecar
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Path.Equal(original.Path) {
		t.Errorf("Path = %v, want %v", decoded.Path, original.Path)
	}
	if decoded.Package != original.Package {
		t.Errorf("Package = %q, want %q", decoded.Package, original.Package)
	}
	if !decoded.WrittenAt.Equal(original.WrittenAt) {
		t.Errorf("WrittenAt = %v, want %v", decoded.WrittenAt, original.WrittenAt)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"zeta": 1, "alpha": 2, "mid": "x"}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 5 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestPathEncodesAsText(t *testing.T) {
	data, err := Marshal(sidecar{
		Path:      fragpath.MustParse("a::b"),
		WrittenAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"path": "a::b"`) {
		t.Errorf("path not stored as text: %s", diagnostic)
	}
	if !strings.Contains(diagnostic, `"written_at": "2026-03-01T12:00:00Z"`) {
		t.Errorf("time not stored as RFC 3339 text: %s", diagnostic)
	}
}

func TestJSONTagFallback(t *testing.T) {
	data, err := Marshal(listedSidecar{Generation: "g1", Size: 12})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"generation"`) {
		t.Errorf("json tag not used as CBOR key: %s", diagnostic)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	data, err := Marshal(map[string]any{"package": "p", "future_field": true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sidecar
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Package != "p" {
		t.Errorf("Package = %q, want p", decoded.Package)
	}
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"k": map[string]any{"nested": 1}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	top, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if _, ok := top["k"].(map[string]any); !ok {
		t.Errorf("nested value %T, want map[string]any", top["k"])
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var decoded sidecar
	if err := Unmarshal([]byte{0xff, 0x00}, &decoded); err == nil {
		t.Error("Unmarshal of invalid CBOR should fail")
	}
}
