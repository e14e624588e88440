// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// Tree creates a fresh temporary directory holding files, keyed by
// slash-separated relative path, and returns the directory.
//
//	root := testutil.Tree(t, map[string]string{
//	    "go.work":          "go 1.25\n",
//	    "producer/go.mod":  "module example.com/producer\n",
//	})
func Tree(t testing.TB, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(name)), content)
	}
	return root
}

// Workspace creates a two-module Go workspace: a go.work at the root
// listing modules "producer" and "consumer", each with a go.mod and an
// empty package directory. It returns the workspace root.
func Workspace(t testing.TB) string {
	t.Helper()
	root := Tree(t, map[string]string{
		"go.work":         "go 1.25\n\nuse (\n\t./producer\n\t./consumer\n)\n",
		"producer/go.mod": "module example.com/producer\n\ngo 1.25\n",
		"consumer/go.mod": "module example.com/consumer\n\ngo 1.25\n",
	})
	for _, dir := range []string{"producer/shapes", "consumer/gen"} {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755); err != nil {
			t.Fatalf("creating %s: %v", dir, err)
		}
	}
	return root
}
