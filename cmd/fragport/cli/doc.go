// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the fragport CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree by the commands package
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3).
//
// Flags are usually declared as tagged parameter structs bound with
// [FlagsFromParams]; [JSONOutput] adds the shared --json flag. Output
// helpers pick their rendering from the destination: [NewCommandLogger]
// and [WriteSource] switch on whether the writer is a terminal.
package cli
