// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
)

// ErrorKind classifies registry failures so that callers can decide
// what to do (fix the annotation, add a dependency, include the
// producer in the build) without parsing error text.
type ErrorKind string

const (
	// KindUnsupportedConstruct: the construct cannot be exported.
	KindUnsupportedConstruct ErrorKind = "unsupported_construct"

	// KindInvalidPath: the path is malformed, or its final segment is
	// not the construct's identifier.
	KindInvalidPath ErrorKind = "invalid_path"

	// KindSymbolNotAccessible: the direct channel has no record for the
	// path, because the resolving program does not depend on the
	// exporting package.
	KindSymbolNotAccessible ErrorKind = "symbol_not_accessible"

	// KindNoCoordinationRoot: no shared root could be found. Only
	// indirect operations report it.
	KindNoCoordinationRoot ErrorKind = "no_coordination_root"

	// KindFragmentNotFound: the indirect store has no current record
	// for the path. The producer may not have run yet, may not be part
	// of this build, or may have exported under another path; these
	// cases cannot be told apart.
	KindFragmentNotFound ErrorKind = "fragment_not_found"

	// KindMalformedFragment: a record was found but its text does not
	// parse back into the declaration it claims to be.
	KindMalformedFragment ErrorKind = "malformed_fragment"

	// KindPathCollision: two constructs claim the same path or symbol.
	KindPathCollision ErrorKind = "path_collision"
)

var kindMessages = map[ErrorKind]string{
	KindUnsupportedConstruct: "unsupported construct",
	KindInvalidPath:          "invalid disambiguation path",
	KindSymbolNotAccessible:  "symbol not accessible",
	KindNoCoordinationRoot:   "no coordination root",
	KindFragmentNotFound:     "fragment not found",
	KindMalformedFragment:    "malformed fragment",
	KindPathCollision:        "path collision",
}

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrUnsupportedConstruct = &Error{Kind: KindUnsupportedConstruct}
	ErrInvalidPath          = &Error{Kind: KindInvalidPath}
	ErrSymbolNotAccessible  = &Error{Kind: KindSymbolNotAccessible}
	ErrNoCoordinationRoot   = &Error{Kind: KindNoCoordinationRoot}
	ErrFragmentNotFound     = &Error{Kind: KindFragmentNotFound}
	ErrMalformedFragment    = &Error{Kind: KindMalformedFragment}
	ErrPathCollision        = &Error{Kind: KindPathCollision}
)

// Error is a categorized registry failure. It wraps the underlying
// cause, so errors.Is and errors.As also see through it to package
// sentinels such as indirectstore.ErrNotFound.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Path is the disambiguation path text the operation was given, if
	// any.
	Path string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	message := kindMessages[e.Kind]
	if message == "" {
		message = string(e.Kind)
	}
	if e.Path != "" {
		message += " " + e.Path
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when target carries no cause,
// which is the case for the package sentinels.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	return ok && sentinel.Err == nil && sentinel.Path == "" && sentinel.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var registryError *Error
	if errors.As(err, &registryError) {
		return registryError.Kind
	}
	return ""
}

func newError(kind ErrorKind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Err: cause}
}

func newErrorf(kind ErrorKind, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}
