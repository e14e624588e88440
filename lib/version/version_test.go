// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

// withBuildInfo replaces the embedded build info and the ldflags
// variables for the duration of a test.
func withBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	savedRead := readBuildInfo
	savedCommit, savedDirty, savedTime, savedVersion := GitCommit, GitDirty, BuildTime, Version
	t.Cleanup(func() {
		readBuildInfo = savedRead
		GitCommit, GitDirty, BuildTime, Version = savedCommit, savedDirty, savedTime, savedVersion
	})
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	GitCommit, GitDirty, BuildTime, Version = "unknown", "false", "unknown", "0.1.0-dev"
}

func TestInfoFromLdflags(t *testing.T) {
	withBuildInfo(t, nil)
	GitCommit, GitDirty, BuildTime, Version = "abc1234", "true", "2026-02-10T00:00:00Z", "1.2.3"

	if got, want := Info(), "1.2.3 (abc1234-dirty, 2026-02-10T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
	if Short() != "1.2.3" {
		t.Errorf("Short() = %q, want 1.2.3", Short())
	}
}

func TestInfoFromBuildInfo(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "false"},
			{Key: "vcs.time", Value: "2026-05-01T10:00:00Z"},
		},
	})

	if got, want := Info(), "v0.4.0 (0123456789ab, 2026-05-01T10:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
}

func TestShortIgnoresDevelBuildInfo(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if Short() != "0.1.0-dev" {
		t.Errorf("Short() = %q, want 0.1.0-dev", Short())
	}
}

func TestFull(t *testing.T) {
	withBuildInfo(t, nil)
	full := Full()
	if !strings.Contains(full, "Go: go") || !strings.Contains(full, "Platform: ") {
		t.Errorf("Full() missing runtime details: %q", full)
	}
}
