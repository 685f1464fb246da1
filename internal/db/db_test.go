// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package db

import (
	"errors"
	"testing"
	"time"

	"github.com/iamvanilka/mnemy/internal/model"
)

// newTestStore opens an in-memory SQLite store unique to the test.
func newTestStore(t *testing.T) Store {
	t.Helper()
	dsn := "file:test_" + t.Name() + "?mode=memory&cache=shared"
	s, err := NewStoreFromDSN("sqlite", dsn)
	if err != nil {
		t.Fatalf("NewStoreFromDSN: %v", err)
	}
	return s
}

func TestAddAndGetGame(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddGame("Hollow Knight", "/games/hk/hollow_knight.exe", "/saves/hk", "")
	if err != nil {
		t.Fatalf("AddGame: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	g, err := s.GetGameByName("Hollow Knight")
	if err != nil {
		t.Fatalf("GetGameByName: %v", err)
	}
	if g == nil {
		t.Fatal("expected game, got nil")
	}
	if g.SavesPath != "/saves/hk" {
		t.Errorf("SavesPath = %q", g.SavesPath)
	}
	if g.LastSyncDate != nil {
		t.Errorf("new game should have no sync date, got %v", g.LastSyncDate)
	}
	if !g.Watchable() {
		t.Error("game with exe and saves path should be watchable")
	}
}

func TestGetGameByNameMissing(t *testing.T) {
	s := newTestStore(t)

	g, err := s.GetGameByName("nope")
	if err != nil {
		t.Fatalf("GetGameByName: %v", err)
	}
	if g != nil {
		t.Fatalf("expected nil for missing game, got %+v", g)
	}
}

func TestAddGameDuplicate(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddGame("Celeste", "", "/saves/celeste", ""); err != nil {
		t.Fatalf("AddGame: %v", err)
	}
	_, err := s.AddGame("Celeste", "", "/other", "")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetAllGamesSorted(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"Zelda", "Axiom Verge", "Morrowind"} {
		if _, err := s.AddGame(name, "", "", ""); err != nil {
			t.Fatalf("AddGame(%s): %v", name, err)
		}
	}

	games, err := s.GetAllGames()
	if err != nil {
		t.Fatalf("GetAllGames: %v", err)
	}
	if len(games) != 3 {
		t.Fatalf("expected 3 games, got %d", len(games))
	}
	if games[0].Name != "Axiom Verge" || games[2].Name != "Zelda" {
		t.Errorf("games not sorted by name: %v, %v, %v", games[0].Name, games[1].Name, games[2].Name)
	}
}

func TestUpdateGame(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddGame("Factorio", "", "", "")
	if err != nil {
		t.Fatalf("AddGame: %v", err)
	}

	saves := "/saves/factorio"
	exe := "/games/factorio/bin/factorio"
	if err := s.UpdateGame(id, model.GameUpdate{SavesPath: &saves, GamePath: &exe}); err != nil {
		t.Fatalf("UpdateGame: %v", err)
	}

	g, err := s.GetGameByName("Factorio")
	if err != nil {
		t.Fatalf("GetGameByName: %v", err)
	}
	if g.SavesPath != saves || g.GamePath != exe {
		t.Errorf("update not applied: %+v", g)
	}
}

func TestRenameGame(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddGame("Old Name", "", "", ""); err != nil {
		t.Fatalf("AddGame: %v", err)
	}
	if err := s.RenameGame("Old Name", "New Name"); err != nil {
		t.Fatalf("RenameGame: %v", err)
	}

	if g, _ := s.GetGameByName("Old Name"); g != nil {
		t.Error("old name still present after rename")
	}
	if g, _ := s.GetGameByName("New Name"); g == nil {
		t.Error("new name not found after rename")
	}
}

func TestRenameGameMissing(t *testing.T) {
	s := newTestStore(t)
	if err := s.RenameGame("ghost", "phantom"); err == nil {
		t.Fatal("expected error renaming a missing game")
	}
}

func TestDeleteGame(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddGame("Doomed", "", "", "")
	if err != nil {
		t.Fatalf("AddGame: %v", err)
	}
	if err := s.DeleteGame(id); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}
	if g, _ := s.GetGameByName("Doomed"); g != nil {
		t.Error("game still present after delete")
	}
}

func TestUpdateSyncTime(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddGame("Stardew Valley", "", "/saves/sdv", "")
	if err != nil {
		t.Fatalf("AddGame: %v", err)
	}

	when := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	if err := s.UpdateSyncTime(id, when); err != nil {
		t.Fatalf("UpdateSyncTime: %v", err)
	}

	g, err := s.GetGameByName("Stardew Valley")
	if err != nil {
		t.Fatalf("GetGameByName: %v", err)
	}
	if g.LastSyncDate == nil {
		t.Fatal("sync date not set")
	}
	if !g.LastSyncDate.Equal(when) {
		t.Errorf("sync date = %v, want %v", g.LastSyncDate, when)
	}
}

func TestSyncLog(t *testing.T) {
	s := newTestStore(t)

	s.LogAction("sync", "Celeste", "uploaded 3 file(s)")
	s.LogAction("pull", "Celeste", "")
	s.LogAction("remove", "Doomed", "")

	entries, err := s.GetSyncLog(2)
	if err != nil {
		t.Fatalf("GetSyncLog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Action != "remove" {
		t.Errorf("entries[0].Action = %q, want remove", entries[0].Action)
	}

	all, err := s.GetSyncLog(0)
	if err != nil {
		t.Fatalf("GetSyncLog(0): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
}

func TestAddGameWritesSyncLog(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddGame("Logged", "", "", ""); err != nil {
		t.Fatalf("AddGame: %v", err)
	}
	entries, err := s.GetSyncLog(0)
	if err != nil {
		t.Fatalf("GetSyncLog: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected a sync-log entry for AddGame")
	}
	if entries[0].GameName != "Logged" {
		t.Errorf("GameName = %q", entries[0].GameName)
	}
}

func TestUnsupportedBackend(t *testing.T) {
	if _, err := NewStoreFromDSN("oracle", "whatever"); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}
