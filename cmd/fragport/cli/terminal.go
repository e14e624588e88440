// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"golang.org/x/term"
)

// IsTerminal reports whether w is a file descriptor attached to a
// terminal. Buffers and pipes are not.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// WriteSource writes Go source to w, syntax highlighted when w is a
// terminal. Output always ends with a newline.
func WriteSource(w io.Writer, source string) error {
	if !strings.HasSuffix(source, "\n") {
		source += "\n"
	}
	if IsTerminal(w) {
		var buffer strings.Builder
		if err := quick.Highlight(&buffer, source, "go", "terminal256", "monokai"); err == nil {
			_, err := io.WriteString(w, buffer.String())
			return err
		}
	}
	_, err := io.WriteString(w, source)
	return err
}
