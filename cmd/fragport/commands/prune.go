// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fragport/cmd/fragport/cli"
	"github.com/bureau-foundation/fragport/lib/clock"
	"github.com/bureau-foundation/fragport/lib/indirectstore"
	"github.com/bureau-foundation/fragport/lib/keycodec"
)

type pruneParams struct {
	cli.JSONOutput
	Runtime runtimeFlags

	Dir        string        `flag:"dir" desc:"directory to discover the coordination root from (default current directory)"`
	Generation string        `flag:"generation" desc:"keep only records of this build generation"`
	OlderThan  time.Duration `flag:"older-than" desc:"remove records written longer ago than this"`
	DryRun     bool          `flag:"dry-run,n" desc:"report what would be removed without removing it"`
}

// pruneCriteria decides which records survive a prune.
type pruneCriteria struct {
	generation string
	cutoff     time.Time
}

// keep reports whether entry survives. A record with no readable
// sidecar cannot prove its generation and is kept only when no
// generation is required and its file is recent enough.
func (c pruneCriteria) keep(entry indirectstore.Entry) bool {
	written := entry.ModTime
	if entry.Meta != nil && !entry.Meta.WrittenAt.IsZero() {
		written = entry.Meta.WrittenAt
	}
	if !c.cutoff.IsZero() && written.Before(c.cutoff) {
		return false
	}
	if c.generation != "" && (entry.Meta == nil || entry.Meta.Generation != c.generation) {
		return false
	}
	return true
}

func pruneCommand(env *Env) *cli.Command {
	var params pruneParams

	return &cli.Command{
		Name:    "prune",
		Summary: "Remove stale records from the coordination root",
		Description: `Remove indirect records left behind by earlier builds. Records are
never removed implicitly: a record of a declaration that was renamed or
unmarked stays resolvable until it is pruned.

With --generation (or export.generation / $FRAGPORT_GENERATION) only
records stamped with that generation survive. With --older-than,
records written before the cutoff are removed. At least one criterion
is required. Staging files abandoned by crashed writers are removed
once they are older than the cutoff, or older than an hour when only a
generation is given. Run prune between builds, not concurrently with
exports.`,
		Usage: "fragport prune [flags]",
		Examples: []cli.Example{
			{
				Description: "After a full build, drop everything the build did not write",
				Command:     "fragport prune --generation \"$BUILD_ID\"",
			},
			{
				Description: "Preview removal of records older than a day",
				Command:     "fragport prune --older-than 24h --dry-run",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("prune", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments %v", args)
			}
			if params.OlderThan < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}
			cfg, logger, err := params.Runtime.load(env, "prune")
			if err != nil {
				return err
			}

			criteria := pruneCriteria{generation: params.Generation}
			if criteria.generation == "" {
				criteria.generation = cfg.Export.Generation
			}
			if params.OlderThan > 0 {
				criteria.cutoff = clock.OrReal(env.Clock).Now().Add(-params.OlderThan)
			}
			if criteria.generation == "" && criteria.cutoff.IsZero() {
				return fmt.Errorf("nothing to prune by: pass --generation or --older-than")
			}

			dir, err := workingDir(params.Dir)
			if err != nil {
				return err
			}
			store, err := openStore(cfg, dir, env.Clock)
			if err != nil {
				return err
			}

			// Without --older-than, staging files past the grace period
			// belong to writers that are gone.
			stagingCutoff := criteria.cutoff
			if stagingCutoff.IsZero() {
				stagingCutoff = clock.OrReal(env.Clock).Now().Add(-indirectstore.StagingGrace)
			}

			var removed []keycodec.FileKey
			if params.DryRun {
				entries, err := store.List()
				if err != nil {
					return err
				}
				for _, entry := range entries {
					if !criteria.keep(entry) {
						removed = append(removed, entry.Key)
					}
				}
			} else {
				removed, err = store.Prune(criteria.keep, stagingCutoff)
				if err != nil {
					return err
				}
			}
			logger.Info("pruned coordination root",
				"root", store.Root(),
				"removed", len(removed),
				"dry_run", params.DryRun,
			)

			if done, err := params.EmitJSON(env.Stdout, removed); done {
				return err
			}
			for _, key := range removed {
				fmt.Fprintln(env.Stdout, key)
			}
			return nil
		},
	}
}
