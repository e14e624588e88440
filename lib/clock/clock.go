// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the wall clock. Production code injects Real(); tests
// inject Fake() with deterministic time control.
//
// Every production function that calls time.Now or time.Since should
// accept a Clock (or be a method on a struct with a Clock field)
// instead of calling the time package directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Since returns the time elapsed since t according to c.
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// OrReal returns c, or Real() when c is nil. Types with an optional
// Clock field call this instead of checking for nil at every use.
func OrReal(c Clock) Clock {
	if c == nil {
		return Real()
	}
	return c
}
