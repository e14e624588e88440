// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fragment converts top-level Go declarations to and from the
// literal source text exchanged through the registry.
//
// A [Fragment] is the gofmt'd text of exactly one declaration plus the
// identifier it declares. Everything downstream of [FromDecl] treats the
// text as opaque bytes; only the consumer calls [Reparse] to get an
// ast.Decl back.
//
// Not every declaration can be exported. A fragment must declare
// exactly one named thing that another package could meaningfully
// reproduce, so the following are rejected with
// [ErrUnsupportedConstruct]:
//
//   - methods (the receiver type is the unit of export)
//   - init functions
//   - import declarations
//   - grouped declarations with more than one spec or name
//   - the blank identifier
package fragment

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
)

var (
	// ErrUnsupportedConstruct is wrapped when a declaration cannot be
	// turned into a fragment.
	ErrUnsupportedConstruct = errors.New("unsupported construct")

	// ErrMalformed is wrapped when fragment text fails to re-parse as
	// a single declaration.
	ErrMalformed = errors.New("malformed fragment")
)

// Kind is the declaration kind of a fragment.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFunc
	KindType
	KindConst
	KindVar
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindFunc:    "func",
	KindType:    "type",
	KindConst:   "const",
	KindVar:     "var",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind is the inverse of [Kind.String].
func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if Kind(kind) != KindInvalid && kindName == name {
			return Kind(kind), nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown fragment kind %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(data []byte) error {
	parsed, err := ParseKind(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Fragment is the serialized source of one exported declaration.
type Fragment struct {
	// Name is the identifier the declaration introduces.
	Name string `json:"name"`

	// Kind is the declaration kind.
	Kind Kind `json:"kind"`

	// Source is the gofmt'd declaration text, without a package
	// clause.
	Source string `json:"source"`
}

// FromDecl serializes a top-level declaration. The fset must be the one
// the declaration was parsed with; it drives line breaking in the
// formatted output.
func FromDecl(fset *token.FileSet, decl ast.Decl) (Fragment, error) {
	name, kind, err := DeclName(decl)
	if err != nil {
		return Fragment{}, err
	}
	var buffer bytes.Buffer
	if err := format.Node(&buffer, fset, decl); err != nil {
		return Fragment{}, fmt.Errorf("formatting %s %s: %w", kind, name, err)
	}
	return Fragment{Name: name, Kind: kind, Source: buffer.String()}, nil
}

// DeclName returns the identifier and kind introduced by decl, or an
// error wrapping [ErrUnsupportedConstruct].
func DeclName(decl ast.Decl) (string, Kind, error) {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		if d.Recv != nil {
			return "", KindInvalid, fmt.Errorf("%w: method %s (export the receiver type instead)",
				ErrUnsupportedConstruct, d.Name.Name)
		}
		if d.Name.Name == "init" {
			return "", KindInvalid, fmt.Errorf("%w: init functions cannot be referenced", ErrUnsupportedConstruct)
		}
		if d.Name.Name == "_" {
			return "", KindInvalid, fmt.Errorf("%w: blank function", ErrUnsupportedConstruct)
		}
		return d.Name.Name, KindFunc, nil

	case *ast.GenDecl:
		return genDeclName(d)

	case *ast.BadDecl:
		return "", KindInvalid, fmt.Errorf("%w: declaration did not parse", ErrUnsupportedConstruct)

	default:
		return "", KindInvalid, fmt.Errorf("%w: %T", ErrUnsupportedConstruct, decl)
	}
}

func genDeclName(d *ast.GenDecl) (string, Kind, error) {
	var kind Kind
	switch d.Tok {
	case token.TYPE:
		kind = KindType
	case token.CONST:
		kind = KindConst
	case token.VAR:
		kind = KindVar
	case token.IMPORT:
		return "", KindInvalid, fmt.Errorf("%w: import declarations", ErrUnsupportedConstruct)
	default:
		return "", KindInvalid, fmt.Errorf("%w: %s declaration", ErrUnsupportedConstruct, d.Tok)
	}

	if len(d.Specs) != 1 {
		return "", KindInvalid, fmt.Errorf("%w: grouped %s declaration with %d specs has no single name",
			ErrUnsupportedConstruct, d.Tok, len(d.Specs))
	}

	var name string
	switch spec := d.Specs[0].(type) {
	case *ast.TypeSpec:
		name = spec.Name.Name
	case *ast.ValueSpec:
		if len(spec.Names) != 1 {
			return "", KindInvalid, fmt.Errorf("%w: %s declaration introduces %d names",
				ErrUnsupportedConstruct, d.Tok, len(spec.Names))
		}
		name = spec.Names[0].Name
	default:
		return "", KindInvalid, fmt.Errorf("%w: %T", ErrUnsupportedConstruct, spec)
	}
	if name == "_" {
		return "", KindInvalid, fmt.Errorf("%w: blank %s", ErrUnsupportedConstruct, d.Tok)
	}
	return name, kind, nil
}

// fragmentPackage is the synthetic package clause fragments are parsed
// under. It never appears in stored text.
const fragmentPackage = "package fragment\n\n"

// Reparse parses fragment text back into a declaration. The returned
// FileSet owns the declaration's positions. Errors wrap [ErrMalformed].
func Reparse(text string) (ast.Decl, *token.FileSet, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "fragment.go", fragmentPackage+text,
		parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(file.Decls) != 1 {
		return nil, nil, fmt.Errorf("%w: want exactly one declaration, found %d", ErrMalformed, len(file.Decls))
	}
	return file.Decls[0], fset, nil
}

// Parse re-parses text and checks that it declares something the
// registry could have exported, returning the recovered fragment.
func Parse(text string) (Fragment, ast.Decl, *token.FileSet, error) {
	decl, fset, err := Reparse(text)
	if err != nil {
		return Fragment{}, nil, nil, err
	}
	name, kind, err := DeclName(decl)
	if err != nil {
		return Fragment{}, nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Fragment{Name: name, Kind: kind, Source: text}, decl, fset, nil
}
