// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile replaces files so that readers observe either the
// complete old content or the complete new content, never a prefix.
//
// Content is written to a temporary file on the same filesystem as the
// target, synced, closed, and renamed over the target. POSIX rename is
// atomic with respect to other processes opening the target path. The
// temporary file is removed on every failure path.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile atomically replaces path with data. The temporary file is
// created in the directory of path.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return WriteFileVia(filepath.Dir(path), path, data, perm)
}

// WriteFileVia atomically replaces path with data, staging the content
// in tempDir. tempDir must be on the same filesystem as path; rename
// across filesystems fails rather than silently degrading to a copy.
func WriteFileVia(tempDir, path string, data []byte, perm os.FileMode) error {
	file, err := os.CreateTemp(tempDir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := file.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(temporaryPath)
		}
	}()

	// Write, sync, close, in that order. If any step fails, the deferred
	// cleanup removes the temporary file.
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("writing temporary file for %s: %w", path, err)
	}
	if err := file.Chmod(perm); err != nil {
		file.Close()
		return fmt.Errorf("setting mode of temporary file for %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("syncing temporary file for %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing temporary file for %s: %w", path, err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}
	success = true

	// Sync the parent directory so the rename survives a power loss.
	// Failure here does not undo the write, so it is not reported.
	if parent, err := os.Open(filepath.Dir(path)); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}
