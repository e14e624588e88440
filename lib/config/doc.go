// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads fragport configuration.
//
// Configuration comes from at most one file, named by the --config flag
// or the FRAGPORT_CONFIG environment variable. There is no discovery:
// without either, [Default] applies. Files are YAML, or JSON with
// comments when the name ends in .json or .jsonc.
//
// fragport usually runs from a go:generate line where flags are awkward
// to vary per build, so a small set of FRAGPORT_* variables override
// file values after loading: FRAGPORT_ROOT, FRAGPORT_GENERATION and
// FRAGPORT_INDIRECT. ${VAR} and ${VAR:-default} are expanded in the
// root override.
//
// Key exports:
//
//   - [Config] -- root discovery, export, and logging settings
//   - [Load] -- file plus environment, validated
//   - [Config.Locator] -- the coordination root locator to use
package config
