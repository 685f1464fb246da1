// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// package model defines the core data structures shared across Mnemy:
// registered games, server-side backups and the local sync log.
package model

import (
	"fmt"
	"path/filepath"
	"time"
)

// Game is a locally registered game: where its executable lives and where
// it keeps its save data. GamePath may be empty for games adopted from the
// server that have not been located on this machine yet; such games are
// skipped by the process watcher.
type Game struct {
	ID           int
	Name         string
	SavesPath    string
	GamePath     string
	ImagePath    string
	LastSyncDate *time.Time
}

// String returns a short human-readable description of the game.
func (g Game) String() string {
	return fmt.Sprintf("%s (saves: %s)", g.Name, g.SavesPath)
}

// ExeName returns the basename of the game's executable, or "" when the
// executable path is not known. This is the name the process watcher
// matches against the process table.
func (g Game) ExeName() string {
	if g.GamePath == "" {
		return ""
	}
	return filepath.Base(filepath.ToSlash(g.GamePath))
}

// Watchable reports whether the game can be monitored for session end.
func (g Game) Watchable() bool {
	return g.GamePath != "" && g.SavesPath != ""
}

// GameUpdate describes a partial update to a registered game. Nil fields
// are left untouched.
type GameUpdate struct {
	Name      *string
	SavesPath *string
	GamePath  *string
	ImagePath *string
}

// Backup describes a point-in-time archive of a game's save directory as
// reported by the server.
type Backup struct {
	GameName  string
	Name      string
	Size      int64
	CreatedAt time.Time
}

// SyncLogEntry is one record in the client-side sync log. Timestamp is
// stored as RFC 3339 text, matching the registry schema.
type SyncLogEntry struct {
	ID        int
	Timestamp string
	Action    string
	GameName  string
	Details   string
}
