// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for fragport packages.
//
// [Tree] and [Workspace] build throwaway source trees on disk, the
// latter a go.work workspace with a producer and a consumer module,
// which is the layout every cross-package scenario starts from.
// [UniqueID] names things registered in process-wide state.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no fragport-internal dependencies.
package testutil
