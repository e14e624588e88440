// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version of the fragport binary.
//
// Four package-level variables can be injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/fragport/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When they are not injected, which is the normal case for a binary
// built with "go install" or run through "go run" from a go:generate
// line, the module version and VCS stamp embedded by the go command
// are used instead.
package version
