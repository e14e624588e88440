// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/fragport/lib/clock"
	"github.com/bureau-foundation/fragport/lib/coordroot"
	"github.com/bureau-foundation/fragport/lib/directstore"
	"github.com/bureau-foundation/fragport/lib/fragment"
	"github.com/bureau-foundation/fragport/lib/fragpath"
	"github.com/bureau-foundation/fragport/lib/indirectstore"
	"github.com/bureau-foundation/fragport/lib/keycodec"
)

// Item is one construct handed to [Exporter.ExportAll].
type Item struct {
	Fragment fragment.Fragment

	// ExplicitPath is the disambiguation path text, or "" for the
	// default path (the construct's identifier).
	ExplicitPath string
}

// Collision describes a best-effort detected naming collision. The
// export still proceeds; on the indirect channel the later write wins.
type Collision struct {
	// Key is the contested file key.
	Key keycodec.FileKey `json:"key"`

	// PreviousPackage is the package that wrote the existing record.
	PreviousPackage string `json:"previous_package,omitempty"`

	// PreviousPath is the path the existing record was exported under.
	PreviousPath fragpath.Path `json:"previous_path"`

	Reason string `json:"reason"`
}

// EmissionPlan is what one export produced.
type EmissionPlan struct {
	Path   fragpath.Path    `json:"path"`
	Symbol string           `json:"symbol"`
	Key    keycodec.FileKey `json:"key"`

	// Direct is the direct-channel record. It is always planned; the
	// caller renders it into the package's generated file.
	Direct directstore.Record `json:"direct"`

	// IndirectWritten reports whether the indirect record was written.
	IndirectWritten bool `json:"indirect_written"`

	// Meta is the sidecar written with the indirect record.
	Meta *indirectstore.Meta `json:"meta,omitempty"`

	Collision *Collision `json:"collision,omitempty"`
}

// Exporter publishes fragments. The zero value exports on the direct
// channel only.
type Exporter struct {
	// Indirect enables the indirect channel. Root must be set.
	Indirect bool

	// Root yields the coordination root. Only consulted when Indirect
	// is set.
	Root *coordroot.Handle

	// Package identifies the exporting package in direct records,
	// record metadata and collision reports.
	Package string

	// Generation is stamped on indirect records.
	Generation string

	// Clock stamps indirect records. Nil means the real clock.
	Clock clock.Clock

	// Logger receives per-record debug output and collision warnings.
	// Nil discards.
	Logger *slog.Logger
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// Export publishes one construct under its default path or under
// explicitPath.
//
// The direct record is planned unconditionally. When Indirect is set,
// the record is also written to the coordination root; failing to find
// the root then fails the export with [ErrNoCoordinationRoot], and the
// returned plan still carries the direct record.
func (e *Exporter) Export(construct fragment.Fragment, explicitPath string) (EmissionPlan, error) {
	plan, err := Plan(construct, explicitPath)
	if err != nil {
		return EmissionPlan{}, err
	}
	plan.Direct.Package = e.Package
	if err := e.emit(&plan, construct); err != nil {
		return plan, err
	}
	return plan, nil
}

// ExportAll publishes every construct of one package. All plans are
// computed before anything is written: when two constructs claim the
// same direct symbol, which the generated file could not hold, the
// whole export fails with [ErrPathCollision] and nothing is written.
func (e *Exporter) ExportAll(items []Item) ([]EmissionPlan, error) {
	plans := make([]EmissionPlan, len(items))
	bySymbol := make(map[string]int, len(items))
	for i, item := range items {
		plan, err := Plan(item.Fragment, item.ExplicitPath)
		if err != nil {
			return nil, err
		}
		if previous, ok := bySymbol[plan.Symbol]; ok {
			return nil, newErrorf(KindPathCollision, plan.Path.String(),
				"%s and %s both map to direct symbol %s",
				plans[previous].Path, plan.Path, plan.Symbol)
		}
		bySymbol[plan.Symbol] = i
		plan.Direct.Package = e.Package
		plans[i] = plan
	}

	for i, item := range items {
		if err := e.emit(&plans[i], item.Fragment); err != nil {
			return plans, err
		}
	}
	return plans, nil
}

// Plan validates a construct and its path and computes both keys,
// without side effects. The direct record's Package is left empty.
func Plan(construct fragment.Fragment, explicitPath string) (EmissionPlan, error) {
	if construct.Name == "" {
		return EmissionPlan{}, newErrorf(KindUnsupportedConstruct, explicitPath, "construct has no identifier")
	}
	if construct.Kind == fragment.KindInvalid {
		return EmissionPlan{}, newErrorf(KindUnsupportedConstruct, explicitPath,
			"construct %s has no exportable kind", construct.Name)
	}

	// The text must round-trip to the construct it claims to be, or no
	// resolver could ever use it.
	parsed, _, _, err := fragment.Parse(construct.Source)
	if err != nil {
		return EmissionPlan{}, newError(KindUnsupportedConstruct, explicitPath,
			fmt.Errorf("%s does not reparse: %w", construct.Name, err))
	}
	if parsed.Name != construct.Name || parsed.Kind != construct.Kind {
		return EmissionPlan{}, newErrorf(KindUnsupportedConstruct, explicitPath,
			"text declares %s %s, not %s %s", parsed.Kind, parsed.Name, construct.Kind, construct.Name)
	}

	var path fragpath.Path
	if explicitPath == "" {
		path, err = fragpath.Default(construct.Name)
		if err != nil {
			return EmissionPlan{}, newError(KindUnsupportedConstruct, "", err)
		}
	} else {
		path, err = fragpath.Parse(explicitPath)
		if err != nil {
			return EmissionPlan{}, newError(KindInvalidPath, explicitPath, err)
		}
		if err := path.ValidateFor(construct.Name); err != nil {
			return EmissionPlan{}, newError(KindInvalidPath, explicitPath, err)
		}
	}

	symbol := keycodec.EncodeSymbol(path)
	return EmissionPlan{
		Path:   path,
		Symbol: symbol,
		Key:    keycodec.EncodeFileKey(path),
		Direct: directstore.Record{
			Symbol: symbol,
			Path:   path.String(),
			Text:   construct.Source,
		},
	}, nil
}

// emit writes the indirect record of a plan when the indirect channel
// is enabled.
func (e *Exporter) emit(plan *EmissionPlan, construct fragment.Fragment) error {
	logger := e.logger().With("path", plan.Path.String(), "symbol", plan.Symbol)
	if !e.Indirect {
		logger.Debug("exported fragment", "channel", "direct")
		return nil
	}

	store, err := e.openStore(plan.Path)
	if err != nil {
		return err
	}

	if existing, err := store.Meta(plan.Key); err == nil {
		plan.Collision = detectCollision(plan, existing, e.Package)
	} else if !errors.Is(err, indirectstore.ErrNotFound) {
		logger.Debug("ignoring unreadable record metadata", "key", plan.Key.String(), "error", err)
	}
	if plan.Collision != nil {
		logger.Warn("indirect record collision; overwriting",
			"key", plan.Key.String(),
			"previous_package", plan.Collision.PreviousPackage,
			"previous_path", plan.Collision.PreviousPath.String(),
			"reason", plan.Collision.Reason,
		)
	}

	meta, err := store.Write(plan.Key, []byte(construct.Source), indirectstore.Meta{
		Path:       plan.Path,
		Symbol:     plan.Symbol,
		Kind:       construct.Kind,
		Package:    e.Package,
		Generation: e.Generation,
	})
	if err != nil {
		return fmt.Errorf("exporting %s: %w", plan.Path, err)
	}
	plan.IndirectWritten = true
	plan.Meta = &meta
	logger.Debug("exported fragment", "channel", "indirect", "key", plan.Key.String(), "root", store.Root())
	return nil
}

func (e *Exporter) openStore(path fragpath.Path) (*indirectstore.Store, error) {
	if e.Root == nil {
		return nil, newErrorf(KindNoCoordinationRoot, path.String(), "indirect export enabled without a coordination root")
	}
	root, err := e.Root.Root()
	if err != nil {
		if errors.Is(err, coordroot.ErrNoCoordinationRoot) {
			return nil, newError(KindNoCoordinationRoot, path.String(), err)
		}
		return nil, fmt.Errorf("locating coordination root: %w", err)
	}
	store, err := indirectstore.Open(root)
	if err != nil {
		return nil, err
	}
	store.Clock = e.Clock
	return store, nil
}

// detectCollision compares the sidecar of an existing record with what
// is about to overwrite it. A record from the same package is a normal
// re-export, not a collision.
func detectCollision(plan *EmissionPlan, existing indirectstore.Meta, pkg string) *Collision {
	switch {
	case !existing.Path.IsZero() && !existing.Path.Equal(plan.Path):
		return &Collision{
			Key:             plan.Key,
			PreviousPackage: existing.Package,
			PreviousPath:    existing.Path,
			Reason:          "file key shared by different paths",
		}
	case existing.Package != "" && pkg != "" && existing.Package != pkg:
		return &Collision{
			Key:             plan.Key,
			PreviousPackage: existing.Package,
			PreviousPath:    existing.Path,
			Reason:          "path exported by another package",
		}
	}
	return nil
}
