// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package db

import (
	"time"

	"github.com/iamvanilka/mnemy/internal/model"
)

// Store defines the interface for all registry operations in Mnemy.
// This allows for multiple database backends to be implemented.
type Store interface {
	// Game methods
	GetAllGames() ([]model.Game, error)
	GetGameByName(name string) (*model.Game, error)
	AddGame(name, gamePath, savesPath, imagePath string) (int, error)
	UpdateGame(id int, upd model.GameUpdate) error
	RenameGame(oldName, newName string) error
	DeleteGame(id int) error
	UpdateSyncTime(id int, at time.Time) error

	// Sync log methods
	LogAction(action, gameName, details string) error
	GetSyncLog(limit int) ([]model.SyncLogEntry, error)
}
