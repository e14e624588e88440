// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Fragport exports Go declarations as source fragments and resolves
// them from other packages at build time. It provides the export
// command run from go generate, resolve for reading fragments back,
// and locate, list and prune for inspecting and cleaning the shared
// coordination root.
package main
