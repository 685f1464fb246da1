// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Package cli implements the command-line interface for Mnemy using Cobra.
// It wires configuration, the registry database and the API client, and
// provides commands that delegate to the syncer and watcher packages. CLI
// code should remain thin and delegate business logic to internal packages.
package cli
