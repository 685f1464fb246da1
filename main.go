// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// Command-line entrypoint for Mnemy.
//
// Usage:
//
//	go run . [flags]
//	./mnemy [flags]
//
// This launches the Mnemy CLI. See --help for options.
package main

import (
	"os"

	"github.com/iamvanilka/mnemy/internal/logging"
	"github.com/iamvanilka/mnemy/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}
}
