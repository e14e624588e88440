// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fragport/cmd/fragport/cli"
	"github.com/bureau-foundation/fragport/lib/coordroot"
)

type locateParams struct {
	Runtime runtimeFlags
	Dir     string `flag:"dir" desc:"directory to search from (default current directory)"`
}

func locateCommand(env *Env) *cli.Command {
	var params locateParams

	return &cli.Command{
		Name:    "locate",
		Summary: "Print the coordination root",
		Description: `Print the coordination root that indirect export and resolution use
from a directory, creating it if needed. Every package of one workspace
prints the same root.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("locate", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments %v", args)
			}
			cfg, logger, err := params.Runtime.load(env, "locate")
			if err != nil {
				return err
			}
			dir, err := workingDir(params.Dir)
			if err != nil {
				return err
			}
			root, err := coordroot.NewHandle(cfg.Locator(), dir).Root()
			if err != nil {
				return err
			}
			logger.Debug("located coordination root", "dir", dir, "root", root)
			fmt.Fprintln(env.Stdout, root)
			return nil
		},
	}
}
