// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package coordroot locates the coordination root: the one directory
// shared by every package built as part of the same build graph.
//
// Participants never communicate the root to each other. Each one
// independently walks upward from its own package directory looking
// for a build-graph marker, so the search order is the contract that
// makes them agree:
//
//   - markers are tried in priority order, and each marker is searched
//     along the whole ancestry before the next one is considered. With
//     the default markers, a go.work anywhere above the package wins
//     over a nearer go.mod, so every module of a workspace lands on the
//     workspace root rather than on its own module root.
//   - the root is the marker's directory joined with a fixed
//     subdirectory (".fragport" by default), created on first use.
//
// An explicit override short-circuits discovery entirely. Build systems
// that know the root should pass it rather than rely on the walk.
//
// Only indirect export and resolution need a root. A failed lookup
// reports [ErrNoCoordinationRoot] and never affects the direct channel.
package coordroot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultSubdir is the coordination directory created next to the
// marker.
const DefaultSubdir = ".fragport"

// DefaultMarkers returns the marker files searched when a Locator has
// none configured: a workspace file first, then a module file.
func DefaultMarkers() []string {
	return []string{"go.work", "go.mod"}
}

// ErrNoCoordinationRoot is wrapped when the filesystem root is reached
// without finding any marker.
var ErrNoCoordinationRoot = errors.New("no coordination root")

// Locator holds the discovery rules. The zero value uses
// [DefaultMarkers] and [DefaultSubdir].
type Locator struct {
	// Markers are file names identifying the build-graph root, in
	// priority order.
	Markers []string

	// Subdir is joined to the marker directory to form the root.
	Subdir string

	// Override, when set, is used as the root without any search.
	Override string
}

// Locate returns the coordination root for a package whose build output
// directory is dir, creating the root directory if it does not exist.
func (l Locator) Locate(dir string) (string, error) {
	if l.Override != "" {
		root, err := filepath.Abs(l.Override)
		if err != nil {
			return "", fmt.Errorf("resolving coordination root override %q: %w", l.Override, err)
		}
		return root, ensureDir(root)
	}

	start, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving build directory %q: %w", dir, err)
	}

	markers := l.Markers
	if len(markers) == 0 {
		markers = DefaultMarkers()
	}
	subdir := l.Subdir
	if subdir == "" {
		subdir = DefaultSubdir
	}

	for _, marker := range markers {
		found, ok, err := findUpward(start, marker)
		if err != nil {
			return "", err
		}
		if ok {
			root := filepath.Join(found, subdir)
			return root, ensureDir(root)
		}
	}
	return "", fmt.Errorf("%w: none of %v found in %s or any parent directory",
		ErrNoCoordinationRoot, markers, start)
}

// findUpward walks from start to the filesystem root and returns the
// first directory containing a regular file named marker.
func findUpward(start, marker string) (string, bool, error) {
	current := start
	for {
		info, err := os.Stat(filepath.Join(current, marker))
		switch {
		case err == nil && !info.IsDir():
			return current, true, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", false, fmt.Errorf("checking for %s in %s: %w", marker, current, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false, nil
		}
		current = parent
	}
}

func ensureDir(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating coordination root %s: %w", root, err)
	}
	return nil
}

// Handle caches one discovery result for the lifetime of a process.
// The search runs on the first call to [Handle.Root]; every later call
// returns the same root or the same error. Orchestrators receive a
// Handle explicitly instead of rediscovering the root per operation.
type Handle struct {
	locator Locator
	dir     string
	once    func() (string, error)
}

// NewHandle returns a lazily evaluated handle for the package whose
// build output directory is dir.
func NewHandle(locator Locator, dir string) *Handle {
	handle := &Handle{locator: locator, dir: dir}
	handle.once = sync.OnceValues(func() (string, error) {
		return handle.locator.Locate(handle.dir)
	})
	return handle
}

// Fixed returns a handle that always yields root. Used when the root is
// injected by configuration or by tests.
func Fixed(root string) *Handle {
	return NewHandle(Locator{Override: root}, root)
}

// Root returns the cached coordination root.
func (h *Handle) Root() (string, error) {
	return h.once()
}

// Dir returns the build output directory the handle searches from.
func (h *Handle) Dir() string { return h.dir }
