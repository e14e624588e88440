// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fragpath

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseValid(t *testing.T) {
	tests := []struct {
		input     string
		canonical string
		segments  []string
	}{
		{"foo_bar", "foo_bar", []string{"foo_bar"}},
		{"a::b::Widget", "a::b::Widget", []string{"a", "b", "Widget"}},
		{"  a :: b ::Widget ", "a::b::Widget", []string{"a", "b", "Widget"}},
		{"wire::Header2", "wire::Header2", []string{"wire", "Header2"}},
		{"paquete::Größe", "paquete::Größe", []string{"paquete", "Größe"}},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			path, err := Parse(test.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", test.input, err)
			}
			if path.String() != test.canonical {
				t.Errorf("String() = %q, want %q", path.String(), test.canonical)
			}
			if diff := cmp.Diff(test.segments, path.Segments()); diff != "" {
				t.Errorf("Segments() mismatch (-want +got):\n%s", diff)
			}
			if path.Len() != len(test.segments) {
				t.Errorf("Len() = %d, want %d", path.Len(), len(test.segments))
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"empty leading segment", "::Name"},
		{"empty trailing segment", "a::"},
		{"empty middle segment", "a::::Name"},
		{"blank identifier", "a::_"},
		{"keyword", "a::func"},
		{"leading digit", "a::1Name"},
		{"dotted", "a.b::Name"},
		{"slash", "a/b::Name"},
		{"inner space", "a::my name"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.input)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", test.input)
			}
			if !errors.Is(err, ErrInvalidPath) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidPath", test.input, err)
			}
		})
	}
}

func TestNameAndQualifier(t *testing.T) {
	path := MustParse("a::b::Widget")
	if path.Name() != "Widget" {
		t.Errorf("Name() = %q, want Widget", path.Name())
	}
	if path.Qualifier() != "a::b" {
		t.Errorf("Qualifier() = %q, want a::b", path.Qualifier())
	}

	single := MustParse("Widget")
	if single.Qualifier() != "" {
		t.Errorf("single-segment Qualifier() = %q, want empty", single.Qualifier())
	}
}

func TestDefault(t *testing.T) {
	path, err := Default("foo_bar")
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if !path.Equal(MustParse("foo_bar")) {
		t.Errorf("Default(foo_bar) = %q, want foo_bar", path)
	}

	if _, err := Default("_"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Default(_) error = %v, want ErrInvalidPath", err)
	}
}

func TestValidateFor(t *testing.T) {
	path := MustParse("a::b::Widget")
	if err := path.ValidateFor("Widget"); err != nil {
		t.Errorf("ValidateFor(Widget): %v", err)
	}
	if err := MustParse("a::b::NotWidget").ValidateFor("Widget"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("ValidateFor mismatch error = %v, want ErrInvalidPath", err)
	}
	if err := (Path{}).ValidateFor("Widget"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("zero path ValidateFor error = %v, want ErrInvalidPath", err)
	}
}

func TestSegmentsReturnsCopy(t *testing.T) {
	path := MustParse("a::Name")
	segments := path.Segments()
	segments[0] = "mutated"
	if path.String() != "a::Name" {
		t.Errorf("mutating Segments() changed the path to %q", path)
	}
}

func TestNewCopiesInput(t *testing.T) {
	input := []string{"a", "Name"}
	path, err := New(input...)
	if err != nil {
		t.Fatal(err)
	}
	input[0] = "mutated"
	if path.String() != "a::Name" {
		t.Errorf("mutating the input slice changed the path to %q", path)
	}
}

func TestTextRoundTrip(t *testing.T) {
	type envelope struct {
		Path Path `json:"path"`
	}
	original := envelope{Path: MustParse("x::y::Thing")}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"path":"x::y::Thing"}` {
		t.Errorf("Marshal = %s", data)
	}

	var decoded envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Path.Equal(original.Path) {
		t.Errorf("round trip = %q, want %q", decoded.Path, original.Path)
	}

	if err := json.Unmarshal([]byte(`{"path":"bad::"}`), &decoded); err == nil {
		t.Error("Unmarshal of an invalid path should fail")
	}
}

func TestMarshalZeroPath(t *testing.T) {
	if _, err := (Path{}).MarshalText(); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("MarshalText(zero) error = %v, want ErrInvalidPath", err)
	}
}
