// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fragport/cmd/fragport/cli"
	"github.com/bureau-foundation/fragport/lib/coordroot"
	"github.com/bureau-foundation/fragport/lib/directstore"
	"github.com/bureau-foundation/fragport/lib/fragment"
	"github.com/bureau-foundation/fragport/lib/indirectstore"
	"github.com/bureau-foundation/fragport/lib/registry"
)

type resolveParams struct {
	cli.JSONOutput
	Runtime runtimeFlags

	Mode       string   `flag:"mode,m" desc:"direct or indirect (default direct with --from, indirect otherwise)"`
	From       []string `flag:"from" desc:"package directory whose generated files hold direct records (repeatable)"`
	Dir        string   `flag:"dir" desc:"directory to discover the coordination root from (default current directory)"`
	Generation string   `flag:"generation" desc:"require indirect records of this build generation"`
}

// resolveOutput is the --json form of a resolved fragment.
type resolveOutput struct {
	Path   string              `json:"path"`
	Mode   registry.Mode       `json:"mode"`
	Name   string              `json:"name"`
	Kind   fragment.Kind       `json:"kind"`
	Source string              `json:"source"`
	Meta   *indirectstore.Meta `json:"meta,omitempty"`
}

func resolveCommand(env *Env) *cli.Command {
	var params resolveParams

	return &cli.Command{
		Name:    "resolve",
		Summary: "Print the fragment exported under a path",
		Description: `Resolve a disambiguation path to the source fragment exported under it
and print the fragment.

Direct resolution reads the generated files of the exporting packages,
named with --from. It fails with "symbol not accessible" when those
packages export nothing under the path, and with "path collision" when
several of them export the same identifier and the path does not pick
one.

Indirect resolution reads the coordination root. It fails with
"fragment not found" when no record exists yet, which may mean the
exporting package has not been generated in this build. That case exits
with status 2 so scripts can tell it apart from other failures.

Output is syntax highlighted when stdout is a terminal.`,
		Usage: "fragport resolve [flags] <path>",
		Examples: []cli.Example{
			{
				Description: "Resolve from the shared store",
				Command:     "fragport resolve ui::controls::Widget",
			},
			{
				Description: "Resolve from a package's generated files",
				Command:     "fragport resolve --from ../shapes Area",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("resolve", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: fragport resolve [flags] <path>")
			}
			cfg, logger, err := params.Runtime.load(env, "resolve")
			if err != nil {
				return err
			}

			mode := registry.ModeIndirect
			if len(params.From) > 0 {
				mode = registry.ModeDirect
			}
			if params.Mode != "" {
				if mode, err = registry.ParseMode(params.Mode); err != nil {
					return err
				}
			}

			generation := params.Generation
			if generation == "" {
				generation = cfg.Export.Generation
			}
			dir, err := workingDir(params.Dir)
			if err != nil {
				return err
			}

			resolver := &registry.Resolver{
				Root:       coordroot.NewHandle(cfg.Locator(), dir),
				Generation: generation,
				Logger:     logger,
			}
			if mode == registry.ModeDirect {
				if len(params.From) == 0 {
					return fmt.Errorf("direct resolution needs --from: this binary links no exporting packages")
				}
				table, err := directstore.LoadDirs(params.From...)
				if err != nil {
					return err
				}
				resolver.Direct = table
			}

			resolved, err := resolver.Resolve(args[0], mode)
			if err != nil {
				if errors.Is(err, registry.ErrFragmentNotFound) {
					return &cli.ExitError{Code: ExitNotFound, Err: err}
				}
				return err
			}

			if done, err := params.EmitJSON(env.Stdout, resolveOutput{
				Path:   resolved.Path.String(),
				Mode:   resolved.Mode,
				Name:   resolved.Fragment.Name,
				Kind:   resolved.Fragment.Kind,
				Source: resolved.Fragment.Source,
				Meta:   resolved.Meta,
			}); done {
				return err
			}
			return cli.WriteSource(env.Stdout, resolved.Fragment.Source)
		},
	}
}
