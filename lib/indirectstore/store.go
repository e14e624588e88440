// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indirectstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/fragport/lib/atomicfile"
	"github.com/bureau-foundation/fragport/lib/clock"
	"github.com/bureau-foundation/fragport/lib/codec"
	"github.com/bureau-foundation/fragport/lib/fragment"
	"github.com/bureau-foundation/fragport/lib/fragpath"
	"github.com/bureau-foundation/fragport/lib/keycodec"
)

const (
	tmpDir   = "tmp"
	metaDir  = "meta"
	metaExt  = ".cbor"
	filePerm = 0o644
	dirPerm  = 0o755
)

// ErrNotFound is wrapped when a record (or its sidecar) does not exist.
// It is never reported as an empty success.
var ErrNotFound = errors.New("indirect record not found")

// ErrReadOnly is returned by the mutating methods of a store opened
// with [OpenReadOnly].
var ErrReadOnly = errors.New("indirect store is read-only")

// Meta is the advisory sidecar of one record.
type Meta struct {
	Path       fragpath.Path `json:"path"`
	Symbol     string        `json:"symbol,omitempty"`
	Kind       fragment.Kind `json:"kind,omitempty"`
	Package    string        `json:"package,omitempty"`
	Generation string        `json:"generation,omitempty"`
	WrittenAt  time.Time     `json:"written_at"`
	Size       int           `json:"size"`

	// Digest is the hex BLAKE3 digest of the fragment text the sidecar
	// was written for.
	Digest string `json:"digest"`
}

// Describes reports whether m was written for exactly text. A sidecar
// and fragment from two different concurrent writers can be paired on
// disk; such a sidecar describes someone else's text.
func (m Meta) Describes(text []byte) bool {
	return m.Digest != "" && m.Digest == Digest(text)
}

// Digest returns the hex BLAKE3 digest of fragment text.
func Digest(text []byte) string {
	sum := blake3.Sum256(text)
	return hex.EncodeToString(sum[:])
}

// Entry is one record found by [Store.List].
type Entry struct {
	Key     keycodec.FileKey `json:"key"`
	Size    int64            `json:"size"`
	ModTime time.Time        `json:"mod_time"`

	// Meta is nil when the sidecar is missing or unreadable.
	Meta *Meta `json:"meta,omitempty"`
}

// Store is an indirect fragment store rooted at a coordination root.
// A Store holds no state besides its root, so any number of processes
// may open the same root concurrently.
type Store struct {
	root     string
	readOnly bool

	// Clock stamps Meta.WrittenAt. Nil means the real clock.
	Clock clock.Clock
}

// Open prepares root for use, creating it and its staging and metadata
// directories as needed.
func Open(root string) (*Store, error) {
	for _, dir := range []string{root, filepath.Join(root, tmpDir), filepath.Join(root, metaDir)} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("opening indirect store: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// OpenReadOnly returns a store for reading root without creating
// anything under it. A root or record that does not exist yet reads as
// [ErrNotFound] (or an empty list), and every mutating method fails
// with [ErrReadOnly].
func OpenReadOnly(root string) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("opening indirect store: %w", err)
	}
	if err == nil && !info.IsDir() {
		return nil, fmt.Errorf("opening indirect store: %s is not a directory", root)
	}
	return &Store{root: root, readOnly: true}, nil
}

// Root returns the store's coordination root.
func (s *Store) Root() string { return s.root }

// FilePath returns the path of the fragment file for key.
func (s *Store) FilePath(key keycodec.FileKey) string {
	return filepath.Join(s.root, key.String())
}

func (s *Store) metaPath(key keycodec.FileKey) string {
	return filepath.Join(s.root, metaDir, key.String()+metaExt)
}

// Put atomically replaces the fragment file for key with text.
func (s *Store) Put(key keycodec.FileKey, text []byte) error {
	if key.IsZero() {
		return errors.New("indirect put: zero file key")
	}
	if s.readOnly {
		return fmt.Errorf("indirect put %s: %w", key, ErrReadOnly)
	}
	if err := atomicfile.WriteFileVia(filepath.Join(s.root, tmpDir), s.FilePath(key), text, filePerm); err != nil {
		return fmt.Errorf("indirect put %s: %w", key, err)
	}
	return nil
}

// Get returns the fragment text for key, or an error wrapping
// [ErrNotFound].
func (s *Store) Get(key keycodec.FileKey) ([]byte, error) {
	data, err := os.ReadFile(s.FilePath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("indirect get %s: %w", key, err)
	}
	return data, nil
}

// PutMeta atomically replaces the sidecar for key.
func (s *Store) PutMeta(key keycodec.FileKey, meta Meta) error {
	if s.readOnly {
		return fmt.Errorf("writing metadata for %s: %w", key, ErrReadOnly)
	}
	data, err := codec.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", key, err)
	}
	if err := atomicfile.WriteFileVia(filepath.Join(s.root, tmpDir), s.metaPath(key), data, filePerm); err != nil {
		return fmt.Errorf("writing metadata for %s: %w", key, err)
	}
	return nil
}

// Meta returns the sidecar for key, or an error wrapping [ErrNotFound].
func (s *Store) Meta(key keycodec.FileKey) (Meta, error) {
	data, err := s.MetaBytes(key)
	if err != nil {
		return Meta{}, err
	}
	var meta Meta
	if err := codec.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("decoding metadata for %s: %w", key, err)
	}
	return meta, nil
}

// MetaBytes returns the raw CBOR sidecar for key.
func (s *Store) MetaBytes(key keycodec.FileKey) ([]byte, error) {
	data, err := os.ReadFile(s.metaPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: metadata for %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata for %s: %w", key, err)
	}
	return data, nil
}

// Write stores text under key together with its sidecar. The sidecar is
// completed with the digest, size and write time of text and written
// first, then the fragment. The completed sidecar is returned.
func (s *Store) Write(key keycodec.FileKey, text []byte, meta Meta) (Meta, error) {
	meta.Digest = Digest(text)
	meta.Size = len(text)
	meta.WrittenAt = clock.OrReal(s.Clock).Now().UTC()
	if err := s.PutMeta(key, meta); err != nil {
		return Meta{}, err
	}
	if err := s.Put(key, text); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// List returns every record in the store sorted by key. Files whose
// names are not file keys are skipped, and a root that does not exist
// holds no records.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing indirect store: %w", err)
	}

	var entries []Entry
	for _, dirEntry := range dirEntries {
		if !dirEntry.Type().IsRegular() {
			continue
		}
		key, err := keycodec.ParseFileKey(dirEntry.Name())
		if err != nil {
			continue
		}
		info, err := dirEntry.Info()
		if errors.Is(err, os.ErrNotExist) {
			// Pruned by another process since ReadDir.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing indirect store: %w", err)
		}

		entry := Entry{Key: key, Size: info.Size(), ModTime: info.ModTime()}
		if meta, err := s.Meta(key); err == nil {
			entry.Meta = &meta
		}
		entries = append(entries, entry)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})
	return entries, nil
}

// Remove deletes the record for key and its sidecar. Removing a record
// that does not exist is not an error.
func (s *Store) Remove(key keycodec.FileKey) error {
	if s.readOnly {
		return fmt.Errorf("removing %s: %w", key, ErrReadOnly)
	}
	if err := os.Remove(s.FilePath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	if err := os.Remove(s.metaPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing metadata for %s: %w", key, err)
	}
	return nil
}

// StagingGrace is how long a staging file may sit in tmp/ before a
// prune without an explicit cutoff treats its writer as dead.
const StagingGrace = time.Hour

// Prune removes every record for which keep returns false and returns
// the removed keys. Sidecars with no fragment file are removed as well,
// and so are staging files last modified before stagingCutoff, which a
// writer that crashed between create and rename leaves behind. A zero
// stagingCutoff leaves tmp/ alone.
//
// Prune is meant to run between builds: a writer racing with it can
// lose its sidecar, never its fragment.
func (s *Store) Prune(keep func(Entry) bool, stagingCutoff time.Time) ([]keycodec.FileKey, error) {
	if s.readOnly {
		return nil, fmt.Errorf("pruning indirect store: %w", ErrReadOnly)
	}
	entries, err := s.List()
	if err != nil {
		return nil, err
	}

	var removed []keycodec.FileKey
	for _, entry := range entries {
		if keep(entry) {
			continue
		}
		if err := s.Remove(entry.Key); err != nil {
			return removed, err
		}
		removed = append(removed, entry.Key)
	}

	if err := s.removeOrphanedMeta(); err != nil {
		return removed, err
	}
	if !stagingCutoff.IsZero() {
		if err := s.removeStaleStaging(stagingCutoff); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (s *Store) removeStaleStaging(cutoff time.Time) error {
	staging := filepath.Join(s.root, tmpDir)
	dirEntries, err := os.ReadDir(staging)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("listing staging files: %w", err)
	}
	for _, dirEntry := range dirEntries {
		if !dirEntry.Type().IsRegular() {
			continue
		}
		info, err := dirEntry.Info()
		if errors.Is(err, os.ErrNotExist) {
			// Renamed into place since ReadDir.
			continue
		}
		if err != nil {
			return fmt.Errorf("listing staging files: %w", err)
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(staging, dirEntry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing staging file %s: %w", dirEntry.Name(), err)
		}
	}
	return nil
}

func (s *Store) removeOrphanedMeta() error {
	dirEntries, err := os.ReadDir(filepath.Join(s.root, metaDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("listing metadata: %w", err)
	}
	for _, dirEntry := range dirEntries {
		name, ok := strings.CutSuffix(dirEntry.Name(), metaExt)
		if !ok {
			continue
		}
		key, err := keycodec.ParseFileKey(name)
		if err != nil {
			continue
		}
		if _, err := os.Stat(s.FilePath(key)); errors.Is(err, os.ErrNotExist) {
			if err := os.Remove(s.metaPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("removing orphaned metadata for %s: %w", key, err)
			}
		}
	}
	return nil
}
