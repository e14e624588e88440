// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"log/slog"
)

// NewCommandLogger creates a structured logger writing to w. Format
// "text" and "json" select the handler directly; "auto" (or "") uses
// slog.TextHandler when w is a terminal and slog.JSONHandler when it is
// piped or redirected, as under go generate in CI.
//
// Callers scope the logger with command-specific context via With():
//
//	logger = logger.With("command", "export", "file", source)
func NewCommandLogger(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	options := &slog.HandlerOptions{Level: level}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, options)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, options)), nil
	case "", "auto":
		if IsTerminal(w) {
			return slog.New(slog.NewTextHandler(w, options)), nil
		}
		return slog.New(slog.NewJSONHandler(w, options)), nil
	}
	return nil, fmt.Errorf("unknown log format %q (want auto, text, or json)", format)
}
