// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// package db provides the data access layer for the Mnemy game registry.
// This file contains the SQLite implementation of the registry store.
package db // import "github.com/iamvanilka/mnemy/internal/db"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iamvanilka/mnemy/internal/model"
	"github.com/uptrace/bun"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SqliteStore is the SQLite implementation of the Store interface. SQLite is
// the default backend for a single-machine client.
type SqliteStore struct {
	db  *sql.DB
	bun *bun.DB
}

// GetAllGames retrieves all registered games.
func (s *SqliteStore) GetAllGames() ([]model.Game, error) {
	return GetAllGamesBun(s.bun)
}

// GetGameByName retrieves a game by its unique name.
func (s *SqliteStore) GetGameByName(name string) (*model.Game, error) {
	return GetGameByNameBun(s.bun, name)
}

// AddGame registers a new game.
func (s *SqliteStore) AddGame(name, gamePath, savesPath, imagePath string) (int, error) {
	id, err := AddGameBun(s.bun, name, gamePath, savesPath, imagePath)
	if err == nil {
		_ = s.LogAction("ADD_GAME", name, fmt.Sprintf("saves: %s", savesPath))
	}
	return id, err
}

// UpdateGame applies a partial update to a game.
func (s *SqliteStore) UpdateGame(id int, upd model.GameUpdate) error {
	err := UpdateGameBun(s.bun, id, upd)
	if err == nil && upd.Name != nil {
		_ = s.LogAction("UPDATE_GAME", *upd.Name, fmt.Sprintf("id: %d", id))
	}
	return err
}

// RenameGame renames a game, keeping the rest of its registration intact.
func (s *SqliteStore) RenameGame(oldName, newName string) error {
	res, err := ExecRaw(context.Background(), s.bun, "UPDATE games SET name = ? WHERE name = ?", newName, oldName)
	if err != nil {
		return MapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	_ = s.LogAction("RENAME_GAME", newName, fmt.Sprintf("was: %s", oldName))
	return nil
}

// DeleteGame removes a game from the registry by its ID.
func (s *SqliteStore) DeleteGame(id int) error {
	// Get the name before deleting for logging.
	var name string
	nameErr := QueryRawInto(context.Background(), s.bun, &name, "SELECT name FROM games WHERE id = ?", id)
	err := DeleteGameBun(s.bun, id)
	if err == nil && nameErr == nil {
		_ = s.LogAction("DELETE_GAME", name, fmt.Sprintf("id: %d", id))
	}
	return err
}

// UpdateSyncTime stamps a game's last successful sync.
func (s *SqliteStore) UpdateSyncTime(id int, at time.Time) error {
	// Stamped after every sync; the sync itself is logged at a higher level.
	return UpdateSyncTimeBun(s.bun, id, at)
}

// LogAction appends a record to the sync log.
func (s *SqliteStore) LogAction(action, gameName, details string) error {
	return AppendSyncLogBun(s.bun, action, gameName, details)
}

// GetSyncLog returns the most recent sync log entries.
func (s *SqliteStore) GetSyncLog(limit int) ([]model.SyncLogEntry, error) {
	return GetSyncLogBun(s.bun, limit)
}
