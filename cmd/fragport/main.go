// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bureau-foundation/fragport/cmd/fragport/cli"
	"github.com/bureau-foundation/fragport/cmd/fragport/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that choose their own exit status return an
		// ExitError; one without a cause has printed its own output.
		var exitError *cli.ExitError
		if errors.As(err, &exitError) {
			if exitError.Err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", exitError.Err)
			}
			os.Exit(exitError.Code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root(commands.OSEnv()).Execute(os.Args[1:])
}
