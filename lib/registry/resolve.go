// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"log/slog"
	"strings"
	"time"

	"github.com/bureau-foundation/fragport/lib/coordroot"
	"github.com/bureau-foundation/fragport/lib/directstore"
	"github.com/bureau-foundation/fragport/lib/fragment"
	"github.com/bureau-foundation/fragport/lib/fragpath"
	"github.com/bureau-foundation/fragport/lib/indirectstore"
	"github.com/bureau-foundation/fragport/lib/keycodec"
)

// Mode selects the resolution channel.
type Mode string

const (
	ModeDirect   Mode = "direct"
	ModeIndirect Mode = "indirect"
)

// ParseMode parses "direct" or "indirect".
func ParseMode(text string) (Mode, error) {
	switch Mode(text) {
	case ModeDirect, ModeIndirect:
		return Mode(text), nil
	}
	return "", fmt.Errorf("unknown resolve mode %q (want %q or %q)", text, ModeDirect, ModeIndirect)
}

func (m Mode) String() string { return string(m) }

// Resolved is a fragment read back and parsed.
type Resolved struct {
	Path     fragpath.Path
	Mode     Mode
	Fragment fragment.Fragment

	// Decl is the parsed declaration; FileSet owns its positions.
	Decl    ast.Decl
	FileSet *token.FileSet

	// Meta is the indirect record's sidecar when one was present and
	// matched the text. Always nil for direct resolution.
	Meta *indirectstore.Meta
}

// Resolver reads fragments back. The zero value resolves directly from
// the process-wide table and cannot resolve indirectly.
type Resolver struct {
	// Direct is the symbol table for direct resolution. Nil means the
	// process-wide table populated by linked packages.
	Direct directstore.Source

	// Root yields the coordination root for indirect resolution.
	Root *coordroot.Handle

	// Generation, when set, is required of indirect records: a record
	// whose sidecar is missing, belongs to other text, or names another
	// generation is reported as not found.
	Generation string

	Logger *slog.Logger
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Resolve dispatches on mode.
func (r *Resolver) Resolve(pathText string, mode Mode) (*Resolved, error) {
	switch mode {
	case ModeDirect:
		return r.ResolveDirect(pathText)
	case ModeIndirect:
		return r.ResolveIndirect(pathText)
	}
	return nil, fmt.Errorf("resolving %s: unknown mode %q", pathText, mode)
}

// ResolveDirect looks the path's symbol up in the direct table. A
// missing symbol means the resolving program does not depend on the
// exporting package and fails with [ErrSymbolNotAccessible].
//
// Packages export independently, so several linked packages may hold
// the same symbol. The record exported under exactly the requested path
// wins; otherwise the records declaring the path's identifier are
// candidates, and more than one fails with [ErrPathCollision].
func (r *Resolver) ResolveDirect(pathText string) (*Resolved, error) {
	path, err := fragpath.Parse(pathText)
	if err != nil {
		return nil, newError(KindInvalidPath, pathText, err)
	}
	symbol := keycodec.EncodeSymbol(path)

	source := r.Direct
	if source == nil {
		source = directstore.Default()
	}
	records := source.Lookup(symbol)
	if len(records) == 0 {
		return nil, newErrorf(KindSymbolNotAccessible, path.String(),
			"no direct record %s; the resolving package must depend on the exporting package", symbol)
	}

	record, err := selectRecord(path, symbol, records)
	if err != nil {
		return nil, err
	}
	if record.Path != path.String() {
		r.logger().Debug("direct record exported under a different path",
			"path", path.String(), "record_path", record.Path, "package", record.Package)
	}

	resolved, err := parseFragment(path, record.Text)
	if err != nil {
		return nil, err
	}
	resolved.Mode = ModeDirect
	return resolved, nil
}

// selectRecord picks the record for path among the records sharing its
// symbol.
func selectRecord(path fragpath.Path, symbol string, records []directstore.Record) (directstore.Record, error) {
	var exact, named []directstore.Record
	for _, record := range records {
		recordPath, err := fragpath.Parse(record.Path)
		if err != nil {
			// A record without a readable path can only be matched by
			// its identifier, which the text itself declares.
			named = append(named, record)
			continue
		}
		if recordPath.Equal(path) {
			exact = append(exact, record)
		}
		if recordPath.Name() == path.Name() {
			named = append(named, record)
		}
	}

	candidates := exact
	if len(candidates) == 0 {
		candidates = named
	}
	switch len(candidates) {
	case 0:
		// Paths sharing a final segment up to case share a symbol. The
		// record knows its own path, so a case-folded match of a
		// different identifier is caught here rather than reported as
		// a parse mismatch.
		return directstore.Record{}, newErrorf(KindSymbolNotAccessible, path.String(),
			"direct symbol %s holds %s", symbol, describeRecords(records))
	case 1:
		return candidates[0], nil
	}
	return directstore.Record{}, newErrorf(KindPathCollision, path.String(),
		"direct symbol %s is exported by %d linked packages (%s); resolve by full path",
		symbol, len(candidates), describeRecords(candidates))
}

func describeRecords(records []directstore.Record) string {
	described := make([]string, len(records))
	for i, record := range records {
		described[i] = record.Path
		if record.Package != "" {
			described[i] += " from " + record.Package
		}
	}
	return strings.Join(described, ", ")
}

// ResolveIndirect reads the path's record from the coordination root.
// Absence fails with [ErrFragmentNotFound], which is ambiguous by
// nature: the producer may simply not have run yet.
func (r *Resolver) ResolveIndirect(pathText string) (*Resolved, error) {
	path, err := fragpath.Parse(pathText)
	if err != nil {
		return nil, newError(KindInvalidPath, pathText, err)
	}
	key := keycodec.EncodeFileKey(path)

	if r.Root == nil {
		return nil, newErrorf(KindNoCoordinationRoot, path.String(), "indirect resolution without a coordination root")
	}
	root, err := r.Root.Root()
	if err != nil {
		if errors.Is(err, coordroot.ErrNoCoordinationRoot) {
			return nil, newError(KindNoCoordinationRoot, path.String(), err)
		}
		return nil, fmt.Errorf("locating coordination root: %w", err)
	}
	store, err := indirectstore.OpenReadOnly(root)
	if err != nil {
		return nil, err
	}

	text, err := store.Get(key)
	if errors.Is(err, indirectstore.ErrNotFound) {
		return nil, newError(KindFragmentNotFound, path.String(), err)
	}
	if err != nil {
		return nil, err
	}

	meta, metaErr := store.Meta(key)
	var current *indirectstore.Meta
	if metaErr == nil && meta.Describes(text) {
		current = &meta
	}
	if r.Generation != "" {
		if err := checkGeneration(current, r.Generation); err != nil {
			return nil, newError(KindFragmentNotFound, path.String(), err)
		}
	}

	resolved, err := parseFragment(path, string(text))
	if err != nil {
		return nil, err
	}
	resolved.Mode = ModeIndirect
	resolved.Meta = current
	r.logger().Debug("resolved fragment", "path", path.String(), "key", key.String(), "root", root)
	return resolved, nil
}

// checkGeneration rejects a record that cannot be shown to belong to
// the wanted build generation.
func checkGeneration(meta *indirectstore.Meta, generation string) error {
	switch {
	case meta == nil:
		return fmt.Errorf("stale record: no metadata matches the stored text, want generation %q", generation)
	case meta.Generation != generation:
		return fmt.Errorf("stale record: written by generation %q at %s, want generation %q",
			meta.Generation, meta.WrittenAt.Format(time.RFC3339), generation)
	}
	return nil
}

// parseFragment turns record text into a Resolved, failing with
// [ErrMalformedFragment] when the text does not declare path's
// identifier.
func parseFragment(path fragpath.Path, text string) (*Resolved, error) {
	parsed, decl, fset, err := fragment.Parse(text)
	if err != nil {
		return nil, newError(KindMalformedFragment, path.String(), err)
	}
	if parsed.Name != path.Name() {
		return nil, newErrorf(KindMalformedFragment, path.String(),
			"record declares %s %s, not %s", parsed.Kind, parsed.Name, path.Name())
	}
	return &Resolved{Path: path, Fragment: parsed, Decl: decl, FileSet: fset}, nil
}
