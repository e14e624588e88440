// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package directstore

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrDuplicateSymbol is wrapped when two records of one package claim
// one symbol.
var ErrDuplicateSymbol = errors.New("duplicate direct symbol")

// Record is one direct export: the exporting package, the constant
// symbol, the canonical disambiguation path it was exported under, and
// the fragment text.
type Record struct {
	// Package is the import path of the exporting package. Symbols are
	// unique within a package only, the same as the constants that
	// carry them.
	Package string `json:"package"`

	Symbol string `json:"symbol"`
	Path   string `json:"path"`
	Text   string `json:"text"`
}

// Source is anything a resolver can look symbols up in.
type Source interface {
	// Lookup returns every record holding symbol, one per exporting
	// package, ordered by package.
	Lookup(symbol string) []Record
}

type recordKey struct {
	pkg    string
	symbol string
}

// Table maps (package, symbol) pairs to records. It is safe for
// concurrent use.
type Table struct {
	mu       sync.RWMutex
	records  map[recordKey]Record
	bySymbol map[string][]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		records:  make(map[recordKey]Record),
		bySymbol: make(map[string][]string),
	}
}

// Add inserts record, failing with [ErrDuplicateSymbol] when its
// package already holds the symbol. The same symbol from another
// package is a separate record.
func (t *Table) Add(record Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := recordKey{pkg: record.Package, symbol: record.Symbol}
	if existing, ok := t.records[key]; ok {
		return fmt.Errorf("%w: %s in package %q (paths %q and %q)",
			ErrDuplicateSymbol, record.Symbol, record.Package, existing.Path, record.Path)
	}
	t.records[key] = record
	packages := append(t.bySymbol[record.Symbol], record.Package)
	slices.Sort(packages)
	t.bySymbol[record.Symbol] = packages
	return nil
}

// Lookup returns the records holding symbol, ordered by package. The
// result is empty when no package exports it.
func (t *Table) Lookup(symbol string) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	packages := t.bySymbol[symbol]
	if len(packages) == 0 {
		return nil
	}
	records := make([]Record, len(packages))
	for i, pkg := range packages {
		records[i] = t.records[recordKey{pkg: pkg, symbol: symbol}]
	}
	return records
}

// Records returns every record sorted by symbol, then package.
func (t *Table) Records() []Record {
	t.mu.RLock()
	records := make([]Record, 0, len(t.records))
	for _, record := range t.records {
		records = append(records, record)
	}
	t.mu.RUnlock()

	slices.SortFunc(records, func(a, b Record) int {
		return cmp.Or(cmp.Compare(a.Symbol, b.Symbol), cmp.Compare(a.Package, b.Package))
	})
	return records
}

// Len returns the number of records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// process is populated by the init functions of generated files.
var process = NewTable()

// Default returns the process-wide table.
func Default() *Table { return process }

// Register adds a record to the process-wide table. It is called from
// the init function of generated files. It panics only if pkg already
// registered symbol, which two generated files of one package can do
// when they were produced by separate exports.
func Register(pkg, symbol, path, text string) {
	record := Record{Package: pkg, Symbol: symbol, Path: path, Text: text}
	if err := process.Add(record); err != nil {
		panic("directstore: " + err.Error())
	}
}

// Lookup looks symbol up in the process-wide table.
func Lookup(symbol string) []Record { return process.Lookup(symbol) }

// Records returns the records of the process-wide table.
func Records() []Record { return process.Records() }
