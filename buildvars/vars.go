// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// Package buildvars contains variables injected at build time.
package buildvars

// Version is set at link time via
// `-ldflags -X github.com/iamvanilka/mnemy/buildvars.Version=...`.
// It will be empty for local or development builds.
var Version string

// VersionOrDefault returns `Version` if set, otherwise returns the provided default.
func VersionOrDefault(def string) string {
	if len(Version) > 0 {
		return Version
	}
	return def
}
