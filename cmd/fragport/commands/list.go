// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fragport/cmd/fragport/cli"
	"github.com/bureau-foundation/fragport/lib/codec"
	"github.com/bureau-foundation/fragport/lib/indirectstore"
)

type listParams struct {
	cli.JSONOutput
	Runtime runtimeFlags

	Dir      string `flag:"dir" desc:"directory to discover the coordination root from (default current directory)"`
	Diagnose bool   `flag:"diagnose" desc:"print each record's metadata sidecar in CBOR diagnostic notation"`
}

func listCommand(env *Env) *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List the records in the coordination root",
		Description: `List every indirect record under the coordination root with its
path, exporting package, generation and write time. Records without a
readable metadata sidecar are shown with "-" in those columns.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments %v", args)
			}
			cfg, _, err := params.Runtime.load(env, "list")
			if err != nil {
				return err
			}
			dir, err := workingDir(params.Dir)
			if err != nil {
				return err
			}
			store, err := openReader(cfg, dir)
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(env.Stdout, entries); done {
				return err
			}

			writer := tabwriter.NewWriter(env.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "PATH\tPACKAGE\tGENERATION\tWRITTEN\tSIZE\tKEY\n")
			for _, entry := range entries {
				path, pkg, generation, written := "-", "-", "-", entry.ModTime.UTC().Format(time.RFC3339)
				if entry.Meta != nil {
					path = entry.Meta.Path.String()
					pkg = orDash(entry.Meta.Package)
					generation = orDash(entry.Meta.Generation)
					written = entry.Meta.WrittenAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%d\t%s\n", path, pkg, generation, written, entry.Size, entry.Key)
			}
			if err := writer.Flush(); err != nil {
				return err
			}

			if params.Diagnose {
				return diagnoseEntries(env, store, entries)
			}
			return nil
		},
	}
}

func diagnoseEntries(env *Env, store *indirectstore.Store, entries []indirectstore.Entry) error {
	for _, entry := range entries {
		data, err := store.MetaBytes(entry.Key)
		if err != nil {
			fmt.Fprintf(env.Stdout, "\n%s: %v\n", entry.Key, err)
			continue
		}
		notation, err := codec.Diagnose(data)
		if err != nil {
			fmt.Fprintf(env.Stdout, "\n%s: %v\n", entry.Key, err)
			continue
		}
		fmt.Fprintf(env.Stdout, "\n%s:\n%s\n", entry.Key, notation)
	}
	return nil
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
