// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable wall clock.
//
// The indirect store stamps each record's metadata with the time it was
// written, and "fragport prune --older-than" compares those stamps with
// the current time. Both read the time through a Clock so tests can pin
// it:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store.Clock = c
//	// ... write records ...
//	c.Advance(2 * time.Hour)
//
// Types with an optional Clock field resolve nil through [OrReal].
package clock
