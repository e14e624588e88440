// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// enclosingModule finds the nearest go.mod at or above dir and returns
// its module path and directory.
func enclosingModule(dir string) (string, string, bool) {
	current := dir
	for {
		data, err := os.ReadFile(filepath.Join(current, "go.mod"))
		if err == nil {
			if modulePath := modfile.ModulePath(data); modulePath != "" {
				return modulePath, current, true
			}
			return "", "", false
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", "", false
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", "", false
		}
		current = parent
	}
}
