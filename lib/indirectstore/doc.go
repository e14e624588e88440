// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package indirectstore is the indirect channel: fragments stored as
// files in the coordination root shared by every package of a build.
//
// Layout under the root:
//
//	<root>/<slug>-<hex>            fragment text, raw bytes
//	<root>/meta/<slug>-<hex>.cbor  advisory metadata for the record
//	<root>/tmp/                    staging area for atomic writes
//
// Each fragment is written to tmp/, synced, and renamed over its final
// name, so a concurrent reader sees either the previous complete text
// or the new complete text. The last writer wins. There is no index:
// the file key is computed from the disambiguation path and the file
// is opened directly.
//
// The metadata sidecar records who wrote the fragment, when, under
// which build generation, and a digest of the text. It is written
// before the fragment. Resolution never requires it; collision
// detection, staleness checks, listing and pruning use it when it is
// present and consistent with the fragment ([Meta.Describes]).
//
// Writers use [Open], which creates the staging and metadata
// directories. Readers use [OpenReadOnly], which leaves the shared root
// untouched.
package indirectstore
