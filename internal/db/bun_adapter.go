// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/iamvanilka/mnemy/internal/model"
	"github.com/uptrace/bun"
)

// GameModel maps the `games` table for Bun queries.
type GameModel struct {
	bun.BaseModel `bun:"table:games"`
	ID            int            `bun:"id,pk,autoincrement"`
	Name          string         `bun:"name"`
	SavesPath     sql.NullString `bun:"saves_path"`
	GamePath      sql.NullString `bun:"game_path"`
	ImagePath     sql.NullString `bun:"image_path"`
	LastSyncDate  sql.NullTime   `bun:"last_sync_date"`
}

// SyncLogModel maps the sync_log table.
type SyncLogModel struct {
	bun.BaseModel `bun:"table:sync_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Action        string `bun:"action"`
	GameName      string `bun:"game_name"`
	Details       string `bun:"details"`
}

// --- Mapping helpers (centralized conversions) ---

func gameModelToModel(g GameModel) model.Game {
	game := model.Game{
		ID:        g.ID,
		Name:      g.Name,
		SavesPath: g.SavesPath.String,
		GamePath:  g.GamePath.String,
		ImagePath: g.ImagePath.String,
	}
	if g.LastSyncDate.Valid {
		t := g.LastSyncDate.Time
		game.LastSyncDate = &t
	}
	return game
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// GetAllGamesBun returns all registered games ordered by name.
func GetAllGamesBun(bdb *bun.DB) ([]model.Game, error) {
	ctx := context.Background()

	var rows []GameModel
	if err := bdb.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, err
	}

	games := make([]model.Game, 0, len(rows))
	for _, r := range rows {
		games = append(games, gameModelToModel(r))
	}
	return games, nil
}

// GetGameByNameBun returns the game with the given name, or (nil, nil) when
// no such game is registered.
func GetGameByNameBun(bdb *bun.DB, name string) (*model.Game, error) {
	ctx := context.Background()

	var g GameModel
	err := bdb.NewSelect().Model(&g).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	m := gameModelToModel(g)
	return &m, nil
}

// AddGameBun inserts a new game and returns its ID. A name collision is
// reported as ErrDuplicate.
func AddGameBun(bdb *bun.DB, name, gamePath, savesPath, imagePath string) (int, error) {
	ctx := context.Background()

	g := &GameModel{
		Name:      name,
		SavesPath: nullString(savesPath),
		GamePath:  nullString(gamePath),
		ImagePath: nullString(imagePath),
	}
	if _, err := bdb.NewInsert().Model(g).Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return g.ID, nil
}

// UpdateGameBun applies a partial update to the given game.
func UpdateGameBun(bdb *bun.DB, id int, upd model.GameUpdate) error {
	ctx := context.Background()

	q := bdb.NewUpdate().Model((*GameModel)(nil)).Where("id = ?", id)
	changed := false
	if upd.Name != nil {
		q = q.Set("name = ?", *upd.Name)
		changed = true
	}
	if upd.SavesPath != nil {
		q = q.Set("saves_path = ?", nullString(*upd.SavesPath))
		changed = true
	}
	if upd.GamePath != nil {
		q = q.Set("game_path = ?", nullString(*upd.GamePath))
		changed = true
	}
	if upd.ImagePath != nil {
		q = q.Set("image_path = ?", nullString(*upd.ImagePath))
		changed = true
	}
	if !changed {
		return nil
	}
	_, err := q.Exec(ctx)
	return MapDBError(err)
}

// DeleteGameBun removes a game by ID.
func DeleteGameBun(bdb *bun.DB, id int) error {
	ctx := context.Background()

	_, err := bdb.NewDelete().Model((*GameModel)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// UpdateSyncTimeBun stamps a game's last sync date.
func UpdateSyncTimeBun(bdb *bun.DB, id int, at time.Time) error {
	ctx := context.Background()

	_, err := bdb.NewUpdate().Model((*GameModel)(nil)).
		Set("last_sync_date = ?", at.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// AppendSyncLogBun appends one sync log record.
func AppendSyncLogBun(bdb *bun.DB, action, gameName, details string) error {
	ctx := context.Background()

	entry := &SyncLogModel{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Action:    action,
		GameName:  gameName,
		Details:   details,
	}
	_, err := bdb.NewInsert().Model(entry).Exec(ctx)
	return err
}

// GetSyncLogBun returns the most recent sync log entries, newest first.
// A limit of 0 means no limit.
func GetSyncLogBun(bdb *bun.DB, limit int) ([]model.SyncLogEntry, error) {
	ctx := context.Background()

	var rows []SyncLogModel
	q := bdb.NewSelect().Model(&rows).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	entries := make([]model.SyncLogEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.SyncLogEntry{
			ID:        r.ID,
			Timestamp: r.Timestamp,
			Action:    r.Action,
			GameName:  r.GameName,
			Details:   r.Details,
		})
	}
	return entries, nil
}
