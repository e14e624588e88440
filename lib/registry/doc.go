// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry exports Go declarations under disambiguation paths
// and resolves those paths back to parsed declarations, across package
// and module boundaries of one build.
//
// An [Exporter] runs in the exporting package's go:generate step. For
// every construct it plans a direct record, rendered by the caller into
// the package's generated file, and optionally writes an indirect
// record into the coordination root shared by the whole build.
//
// A [Resolver] runs wherever the fragment is needed, typically another
// package's generator:
//
//   - [Resolver.ResolveDirect] reads the direct table. It succeeds only
//     when the resolving side depends on the exporting package, either
//     by linking it or by loading its generated files by directory.
//   - [Resolver.ResolveIndirect] reads the shared root. It needs no
//     dependency edge, but nothing orders the producer's build before
//     the consumer's: [ErrFragmentNotFound] means "not produced yet" as
//     often as "never produced", and the build configuration has to make
//     sure producers run first.
//
// Every failure is an *[Error] whose [ErrorKind] names the category;
// errors.Is against the package sentinels matches by kind.
//
// # Staleness
//
// Indirect records outlive the build that wrote them. An exporter
// configured with a generation stamps it into the record's sidecar, and
// a resolver configured with the same generation treats records from
// any other generation as not found. Without a generation, the most
// recent write is authoritative, however old.
package registry
