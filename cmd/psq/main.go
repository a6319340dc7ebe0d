// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Command psq is the PartSignal query CLI.
//
// psq talks to a running partsd server and renders canonical responses
// as terminal tables and detail views.
//
// Usage:
//
//	psq ask "cross references for LM317 by Texas Instruments"
//	psq ask --server http://parts.internal:8080 "toshiba litigations"
//	psq tools
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// serverURL holds the --server flag value shared by all commands.
var serverURL string

func main() {
	rootCmd := &cobra.Command{
		Use:   "psq",
		Short: "Query the PartSignal resolution server",
		Long:  "psq resolves free-text electronic parts questions against a running partsd server.",
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "partsd server base URL")

	askCmd := &cobra.Command{
		Use:   "ask [query...]",
		Short: "Resolve a free-text query",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand,
	}

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the server's tool catalog",
		Run:   runToolsCommand,
	}

	rootCmd.AddCommand(askCmd, toolsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
