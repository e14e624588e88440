// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/fragport/cmd/fragport/cli"
	"github.com/bureau-foundation/fragport/lib/coordroot"
	"github.com/bureau-foundation/fragport/lib/directive"
	"github.com/bureau-foundation/fragport/lib/directstore"
	"github.com/bureau-foundation/fragport/lib/registry"
)

type exportParams struct {
	cli.JSONOutput
	Runtime runtimeFlags

	Files      []string `flag:"file,f" desc:"Go source file to export from, repeatable (default $GOFILE)"`
	Indirect   bool     `flag:"indirect" desc:"also write fragments to the coordination root"`
	Generation string   `flag:"generation" desc:"build generation stamped on indirect records"`
}

// fileReport is the outcome of exporting one source file.
type fileReport struct {
	Source    string                  `json:"source"`
	Generated string                  `json:"generated,omitempty"`
	Removed   bool                    `json:"removed,omitempty"`
	Plans     []registry.EmissionPlan `json:"plans"`
}

// scannedFile is a source file after directive scanning.
type scannedFile struct {
	source string
	result *directive.Result
	items  []registry.Item
}

func exportCommand(env *Env) *cli.Command {
	var params exportParams

	return &cli.Command{
		Name:    "export",
		Summary: "Export marked declarations of Go source files",
		Description: `Scan Go source files for declarations marked with a //fragport:export
directive and publish each one.

For every source file F.go with marked declarations, F_fragport.go is
written next to it. It holds one constant per declaration and registers
them with the process-wide direct table when the package is linked. A
source file whose marks were all removed loses its generated file.

With --indirect (or export.indirect / $FRAGPORT_INDIRECT) each fragment
is also written to the coordination root, where packages that do not
import the exporting package can resolve it. Indirect export fails when
no coordination root can be found; the generated files are still
written first.

Without --file the command exports $GOFILE, so a single line per file
is enough:

    //go:generate fragport export`,
		Usage: "fragport export [flags]",
		Examples: []cli.Example{
			{
				Description: "Export two files explicitly, including the shared store",
				Command:     "fragport export --indirect -f widget.go -f layout.go",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("export", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments %v (source files are passed with --file)", args)
			}
			cfg, logger, err := params.Runtime.load(env, "export")
			if err != nil {
				return err
			}

			files := params.Files
			if len(files) == 0 {
				goFile := os.Getenv("GOFILE")
				if goFile == "" {
					return fmt.Errorf("no source files: pass --file or run under go generate")
				}
				files = []string{goFile}
			}

			indirect := params.Indirect || cfg.Export.Indirect
			generation := params.Generation
			if generation == "" {
				generation = cfg.Export.Generation
			}

			scanned, err := scanFiles(files)
			if err != nil {
				return err
			}
			if err := checkPackageSymbols(scanned); err != nil {
				return err
			}

			// One locator handle per package directory, shared by the
			// package's files.
			handles := make(map[string]*coordroot.Handle)
			for _, file := range scanned {
				dir := filepath.Dir(file.source)
				if handles[dir] == nil {
					handles[dir] = coordroot.NewHandle(cfg.Locator(), dir)
				}
			}

			reports := make([]fileReport, len(scanned))
			group := new(errgroup.Group)
			group.SetLimit(runtime.GOMAXPROCS(0))
			for i, file := range scanned {
				group.Go(func() error {
					dir := filepath.Dir(file.source)
					exporter := &registry.Exporter{
						Indirect:   indirect,
						Root:       handles[dir],
						Package:    packageIdentity(dir, file.result.Package),
						Generation: generation,
						Clock:      env.Clock,
						Logger:     logger.With("file", file.source),
					}
					report, err := exportFile(exporter, file)
					reports[i] = report
					return err
				})
			}
			if err := group.Wait(); err != nil {
				return err
			}

			for _, report := range reports {
				logger.Info("exported",
					"file", report.Source,
					"fragments", len(report.Plans),
					"indirect", indirect,
				)
			}
			if done, err := params.EmitJSON(env.Stdout, reports); done {
				return err
			}
			return nil
		},
	}
}

// scanFiles scans every source file concurrently. Generated files are
// rejected: their constants are outputs, not declarations to export.
func scanFiles(files []string) ([]scannedFile, error) {
	scanned := make([]scannedFile, len(files))
	group := new(errgroup.Group)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range files {
		group.Go(func() error {
			if directstore.IsGenerated(name) {
				return fmt.Errorf("%s is a generated file", name)
			}
			source, err := filepath.Abs(name)
			if err != nil {
				return err
			}
			// Scan errors carry the file name and position.
			result, err := directive.ScanFile(source)
			if err != nil {
				return err
			}
			items := make([]registry.Item, len(result.Exports))
			for j, export := range result.Exports {
				items[j] = registry.Item{Fragment: export.Fragment, ExplicitPath: export.ExplicitPath}
			}
			scanned[i] = scannedFile{source: source, result: result, items: items}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return scanned, nil
}

// checkPackageSymbols rejects two files of one package exporting the
// same direct symbol, which would not compile. Duplicates within one
// file are caught by [registry.Exporter.ExportAll].
func checkPackageSymbols(scanned []scannedFile) error {
	type owner struct {
		source string
		path   string
	}
	owners := make(map[string]owner)
	for _, file := range scanned {
		dir := filepath.Dir(file.source)
		seenInFile := make(map[string]bool)
		for _, item := range file.items {
			plan, err := registry.Plan(item.Fragment, item.ExplicitPath)
			if err != nil {
				return fmt.Errorf("%s: %w", file.source, err)
			}
			if seenInFile[plan.Symbol] {
				continue
			}
			seenInFile[plan.Symbol] = true
			key := dir + "\x00" + plan.Symbol
			if previous, ok := owners[key]; ok && previous.source != file.source {
				return &registry.Error{
					Kind: registry.KindPathCollision,
					Path: plan.Path.String(),
					Err: fmt.Errorf("%s (%s) and %s (%s) both map to direct symbol %s",
						previous.path, filepath.Base(previous.source), plan.Path, filepath.Base(file.source), plan.Symbol),
				}
			}
			owners[key] = owner{source: file.source, path: plan.Path.String()}
		}
	}
	return nil
}

// exportFile runs the exporter over one file's items and writes or
// removes its generated file.
func exportFile(exporter *registry.Exporter, file scannedFile) (fileReport, error) {
	report := fileReport{Source: file.source}
	generated := directstore.FileName(file.source)

	plans, err := exporter.ExportAll(file.items)
	report.Plans = plans
	if err != nil && !errors.Is(err, registry.ErrNoCoordinationRoot) {
		return report, fmt.Errorf("%s: %w", file.source, err)
	}
	// A missing root only fails the indirect channel: the direct
	// records are still written before the error is returned.
	indirectErr := err

	if len(plans) == 0 {
		if removeErr := os.Remove(generated); removeErr == nil {
			report.Removed = true
		} else if !errors.Is(removeErr, os.ErrNotExist) {
			return report, fmt.Errorf("removing stale %s: %w", generated, removeErr)
		}
		return report, nil
	}

	records := make([]directstore.Record, len(plans))
	for i, plan := range plans {
		records[i] = plan.Direct
	}
	sort.SliceStable(records, func(a, b int) bool { return records[a].Symbol < records[b].Symbol })

	source, err := directstore.Render(file.result.Package, records)
	if err != nil {
		return report, err
	}
	if err := directstore.WriteFile(generated, source); err != nil {
		return report, err
	}
	report.Generated = generated

	if indirectErr != nil {
		return report, fmt.Errorf("%s: %w", file.source, indirectErr)
	}
	return report, nil
}

var (
	identityMu    sync.Mutex
	identityCache = map[string]string{}
)

// packageIdentity names the exporting package in direct records and
// record metadata:
// the module-relative import path when the enclosing go.mod can be
// found, otherwise the directory itself.
func packageIdentity(dir, packageName string) string {
	identityMu.Lock()
	defer identityMu.Unlock()
	if identity, ok := identityCache[dir]; ok {
		return identity
	}
	identity := dir
	if modulePath, moduleDir, ok := enclosingModule(dir); ok {
		relative, err := filepath.Rel(moduleDir, dir)
		if err == nil {
			identity = modulePath
			if relative != "." {
				identity += "/" + filepath.ToSlash(relative)
			}
		}
	}
	if path.Base(filepath.ToSlash(identity)) != packageName && packageName != "main" {
		identity += " (" + packageName + ")"
	}
	identityCache[dir] = identity
	return identity
}
