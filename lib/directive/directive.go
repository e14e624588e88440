// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package directive finds declarations marked for export in Go source.
//
// A declaration is marked by a directive line in its doc comment:
//
//	//fragport:export
//	func Checksum(data []byte) uint32 { ... }
//
//	//fragport:export codec::wire::Header
//	type Header struct { ... }
//
// The optional argument is the explicit disambiguation path. It is
// returned unparsed; validating it against the declaration is the
// registry's job. The directive line itself is removed from the
// serialized fragment, other doc comment lines are kept.
package directive

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/bureau-foundation/fragport/lib/fragment"
)

// Marker is the directive prefix. Like other Go directives it has no
// space after the slashes.
const Marker = "//fragport:export"

// ErrDirective is wrapped for malformed directive lines.
var ErrDirective = errors.New("malformed export directive")

// Export is one marked declaration.
type Export struct {
	// Fragment is the serialized declaration.
	Fragment fragment.Fragment

	// ExplicitPath is the directive argument, or "" when the default
	// path applies.
	ExplicitPath string

	// Position locates the directive in the source file.
	Position token.Position
}

// Result is everything found in one file.
type Result struct {
	// Package is the package clause name of the scanned file.
	Package string

	Exports []Export
}

// ScanFile reads and scans a file from disk.
func ScanFile(filename string) (*Result, error) {
	return Scan(filename, nil)
}

// Scan parses src (or the named file when src is nil) and returns the
// marked declarations in source order. A marked declaration that cannot
// be exported fails the whole scan with an error wrapping
// [fragment.ErrUnsupportedConstruct] and naming its position.
func Scan(filename string, src any) (*Result, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}

	result := &Result{Package: file.Name.Name}
	for _, decl := range file.Decls {
		doc := declDoc(decl)
		directive, remaining, found := extract(doc)
		if !found {
			continue
		}
		position := fset.Position(directive.Slash)

		explicitPath, err := parseArguments(directive.Text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", position, err)
		}

		setDeclDoc(decl, remaining)
		exported, err := fragment.FromDecl(fset, decl)
		setDeclDoc(decl, doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", position, err)
		}

		result.Exports = append(result.Exports, Export{
			Fragment:     exported,
			ExplicitPath: explicitPath,
			Position:     position,
		})
	}
	return result, nil
}

// extract finds the directive in a doc comment and returns it together
// with a comment group holding the other lines (nil when none remain).
func extract(doc *ast.CommentGroup) (*ast.Comment, *ast.CommentGroup, bool) {
	if doc == nil {
		return nil, nil, false
	}
	var directive *ast.Comment
	var others []*ast.Comment
	for _, comment := range doc.List {
		if directive == nil && isDirective(comment.Text) {
			directive = comment
			continue
		}
		others = append(others, comment)
	}
	if directive == nil {
		return nil, doc, false
	}
	if len(others) == 0 {
		return directive, nil, true
	}
	return directive, &ast.CommentGroup{List: others}, true
}

func isDirective(text string) bool {
	if !strings.HasPrefix(text, Marker) {
		return false
	}
	rest := text[len(Marker):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// parseArguments returns the optional path argument of a directive.
func parseArguments(text string) (string, error) {
	fields := strings.Fields(text[len(Marker):])
	switch len(fields) {
	case 0:
		return "", nil
	case 1:
		return fields[0], nil
	default:
		return "", fmt.Errorf("%w: %s takes at most one path argument, got %d",
			ErrDirective, Marker, len(fields))
	}
}

func declDoc(decl ast.Decl) *ast.CommentGroup {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		return d.Doc
	case *ast.GenDecl:
		return d.Doc
	}
	return nil
}

func setDeclDoc(decl ast.Decl, doc *ast.CommentGroup) {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		d.Doc = doc
	case *ast.GenDecl:
		d.Doc = doc
	}
}
