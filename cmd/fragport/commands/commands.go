// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the fragport command tree.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fragport/cmd/fragport/cli"
	"github.com/bureau-foundation/fragport/lib/clock"
	"github.com/bureau-foundation/fragport/lib/config"
	"github.com/bureau-foundation/fragport/lib/coordroot"
	"github.com/bureau-foundation/fragport/lib/indirectstore"
	"github.com/bureau-foundation/fragport/lib/registry"
	"github.com/bureau-foundation/fragport/lib/version"
)

// ExitNotFound is the exit status of "fragport resolve" when the
// fragment has not been produced.
const ExitNotFound = 2

// Env is what commands read and write besides their arguments.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	// Clock stamps and ages indirect records. Nil means the real clock.
	Clock clock.Clock
}

// OSEnv returns the process environment.
func OSEnv() *Env {
	return &Env{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Root returns the top-level fragport command.
func Root(env *Env) *cli.Command {
	return &cli.Command{
		Name:       "fragport",
		HelpOutput: env.Stderr,
		Description: `fragport: cross-package source fragment registry.

Packages mark declarations with a //fragport:export directive and run
"fragport export" from go generate. Every marked declaration is
published as a constant in a generated file of its own package (the
direct channel) and, when enabled, as a file under the coordination
root shared by the workspace (the indirect channel). Code generators in
other packages read the fragments back with "fragport resolve".`,
		Subcommands: []*cli.Command{
			exportCommand(env),
			resolveCommand(env),
			locateCommand(env),
			listCommand(env),
			pruneCommand(env),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Fprintf(env.Stdout, "fragport %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Export the marked declarations of the current file (in a //go:generate line)",
				Command:     "fragport export",
			},
			{
				Description: "Also publish to the shared store for packages that cannot import this one",
				Command:     "fragport export --indirect",
			},
			{
				Description: "Print a fragment exported anywhere in the workspace",
				Command:     "fragport resolve --mode indirect ui::controls::Widget",
			},
		},
	}
}

// runtimeFlags are shared by every command that touches configuration
// or the coordination root.
type runtimeFlags struct {
	ConfigPath string
	Root       string
}

func (r *runtimeFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&r.ConfigPath, "config", "", "configuration file, YAML or JSONC (default $"+config.EnvConfig+")")
	flagSet.StringVar(&r.Root, "root", "", "coordination root; skips discovery (default $"+config.EnvRoot+")")
}

// load reads the configuration with flag overrides applied and builds
// the command logger.
func (r *runtimeFlags) load(env *Env, command string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(r.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	if r.Root != "" {
		cfg.Root.Override = r.Root
	}
	logger, err := cli.NewCommandLogger(env.Stderr, cfg.SlogLevel(), cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.With("command", command), nil
}

// workingDir returns dir, or the current directory when dir is empty.
func workingDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// locateRoot finds the coordination root searching from dir.
func locateRoot(cfg *config.Config, dir string) (string, error) {
	root, err := coordroot.NewHandle(cfg.Locator(), dir).Root()
	if err != nil {
		if errors.Is(err, coordroot.ErrNoCoordinationRoot) {
			return "", &registry.Error{Kind: registry.KindNoCoordinationRoot, Err: err}
		}
		return "", err
	}
	return root, nil
}

// openStore locates the coordination root searching from dir and
// opens the indirect store there for writing.
func openStore(cfg *config.Config, dir string, clk clock.Clock) (*indirectstore.Store, error) {
	root, err := locateRoot(cfg, dir)
	if err != nil {
		return nil, err
	}
	store, err := indirectstore.Open(root)
	if err != nil {
		return nil, err
	}
	store.Clock = clk
	return store, nil
}

// openReader is openStore for commands that only read.
func openReader(cfg *config.Config, dir string) (*indirectstore.Store, error) {
	root, err := locateRoot(cfg, dir)
	if err != nil {
		return nil, err
	}
	return indirectstore.OpenReadOnly(root)
}
