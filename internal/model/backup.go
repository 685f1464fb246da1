// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later
package model

// RegistryExport is a container for a full dump of the local registry.
// It is what `mnemy export` writes and `mnemy import` reads, and is also
// used when migrating between database backends.
type RegistryExport struct {
	// SchemaVersion helps in handling migrations during import.
	SchemaVersion int `json:"schema_version"`

	Games      []Game         `json:"games"`
	SyncLog    []SyncLogEntry `json:"sync_log"`
	ServerHost string         `json:"server_host,omitempty"`
}
