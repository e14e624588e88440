// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package directstore

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bureau-foundation/fragport/lib/atomicfile"
	"github.com/bureau-foundation/fragport/lib/keycodec"
)

// ImportPath is the import path generated files use to reach Register.
const ImportPath = "github.com/bureau-foundation/fragport/lib/directstore"

// GeneratedHeader is the first line of every generated file. It matches
// the convention recognized by go vet and code review tools.
const GeneratedHeader = "// Code generated by fragport. DO NOT EDIT."

// GeneratedSuffix ends the name of every generated file.
const GeneratedSuffix = "_fragport.go"

// ErrNoRecords is returned by [Render] when there is nothing to render.
var ErrNoRecords = errors.New("no direct records to render")

// FileName returns the generated file name for a Go source file:
// "widget.go" becomes "widget_fragport.go" in the same directory.
func FileName(source string) string {
	return strings.TrimSuffix(source, ".go") + GeneratedSuffix
}

// IsGenerated reports whether name is a generated file name.
func IsGenerated(name string) bool {
	return strings.HasSuffix(name, GeneratedSuffix)
}

// Render returns the gofmt'd source of a generated file for package
// packageName holding records, in the given order. Each record is
// registered under its own Package, which is normally the import path
// of the package the file is generated into.
func Render(packageName string, records []Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	// One file declares every constant in one package scope, whatever
	// Package the records claim.
	seen := make(map[string]string, len(records))
	for _, record := range records {
		if !strings.HasPrefix(record.Symbol, keycodec.SymbolPrefix) || !token.IsIdentifier(record.Symbol) {
			return nil, fmt.Errorf("rendering %s: invalid direct symbol %q", packageName, record.Symbol)
		}
		if previous, ok := seen[record.Symbol]; ok {
			return nil, fmt.Errorf("rendering %s: %w: %s (paths %q and %q)",
				packageName, ErrDuplicateSymbol, record.Symbol, previous, record.Path)
		}
		seen[record.Symbol] = record.Path
	}

	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, "%s\n\npackage %s\n\nimport %q\n", GeneratedHeader, packageName, ImportPath)
	for _, record := range records {
		fmt.Fprintf(&buffer, "\n// %s holds the source of %s.\nconst %s = %s\n",
			record.Symbol, record.Path, record.Symbol, strconv.Quote(record.Text))
	}
	buffer.WriteString("\nfunc init() {\n")
	for _, record := range records {
		fmt.Fprintf(&buffer, "\tdirectstore.Register(%q, %q, %q, %s)\n",
			record.Package, record.Symbol, record.Path, record.Symbol)
	}
	buffer.WriteString("}\n")

	formatted, err := format.Source(buffer.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated source for %s: %w", packageName, err)
	}
	return formatted, nil
}

// WriteFile atomically writes generated source to path.
func WriteFile(path string, source []byte) error {
	return atomicfile.WriteFile(path, source, 0o644)
}

// LoadDir builds a table from the generated files in a package
// directory. This is how a generator that names the exporting package
// reads its direct records without linking it. A directory that does
// not exist or holds no generated files yields an empty table.
func LoadDir(dir string) (*Table, error) {
	return LoadDirs(dir)
}

// LoadDirs builds one table from the generated files of several package
// directories, as a program linking all of those packages would see the
// process table.
func LoadDirs(dirs ...string) (*Table, error) {
	table := NewTable()
	fset := token.NewFileSet()
	for _, dir := range dirs {
		if err := loadInto(table, fset, dir); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func loadInto(table *Table, fset *token.FileSet, dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+GeneratedSuffix))
	if err != nil {
		return err
	}
	for _, match := range matches {
		file, err := parser.ParseFile(fset, match, nil, parser.SkipObjectResolution)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading direct records: %w", err)
		}
		records, err := fileRecords(file)
		if err != nil {
			return fmt.Errorf("loading direct records from %s: %w", match, err)
		}
		for _, record := range records {
			if err := table.Add(record); err != nil {
				return fmt.Errorf("loading direct records from %s: %w", match, err)
			}
		}
	}
	return nil
}

// fileRecords extracts the fragment constants of one generated file and
// attaches the paths named by its Register calls.
func fileRecords(file *ast.File) ([]Record, error) {
	var records []Record
	index := make(map[string]int)

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.CONST {
				continue
			}
			for _, spec := range d.Specs {
				value := spec.(*ast.ValueSpec)
				for i, name := range value.Names {
					if !strings.HasPrefix(name.Name, keycodec.SymbolPrefix) || i >= len(value.Values) {
						continue
					}
					text, err := stringLiteral(value.Values[i])
					if err != nil {
						return nil, fmt.Errorf("constant %s: %w", name.Name, err)
					}
					index[name.Name] = len(records)
					records = append(records, Record{Symbol: name.Name, Text: text})
				}
			}
		case *ast.FuncDecl:
			if d.Recv != nil || d.Name.Name != "init" || d.Body == nil {
				continue
			}
			for _, statement := range d.Body.List {
				call, ok := registerCall(statement)
				if !ok {
					continue
				}
				if i, ok := index[call.Symbol]; ok {
					records[i].Package = call.Package
					records[i].Path = call.Path
				}
			}
		}
	}
	return records, nil
}

// registerCall recognizes
// directstore.Register("package", "symbol", "path", constant) and
// returns its literal arguments.
func registerCall(statement ast.Stmt) (Record, bool) {
	expression, ok := statement.(*ast.ExprStmt)
	if !ok {
		return Record{}, false
	}
	call, ok := expression.X.(*ast.CallExpr)
	if !ok || len(call.Args) != 4 {
		return Record{}, false
	}
	selector, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || selector.Sel.Name != "Register" {
		return Record{}, false
	}
	var literals [3]string
	for i := range literals {
		text, err := stringLiteral(call.Args[i])
		if err != nil {
			return Record{}, false
		}
		literals[i] = text
	}
	return Record{Package: literals[0], Symbol: literals[1], Path: literals[2]}, true
}

func stringLiteral(expression ast.Expr) (string, error) {
	literal, ok := expression.(*ast.BasicLit)
	if !ok || literal.Kind != token.STRING {
		return "", fmt.Errorf("value is not a string literal")
	}
	return strconv.Unquote(literal.Value)
}
