// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// package syncer orchestrates save synchronization between the local save
// directories tracked in the registry and the mnemy-server. The server is
// the source of truth for conflict resolution: when it reports its state is
// newer than our last sync, we pull instead of pushing.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/iamvanilka/mnemy/internal/api"
	"github.com/iamvanilka/mnemy/internal/archive"
	"github.com/iamvanilka/mnemy/internal/db"
	"github.com/iamvanilka/mnemy/internal/logging"
	"github.com/iamvanilka/mnemy/internal/model"
)

// ErrGameNotFound is returned when the named game is not in the registry.
var ErrGameNotFound = errors.New("game not found in registry")

// Result describes what a sync did for one game.
type Result struct {
	GameName string
	Uploaded int  // files pushed to the server
	Pulled   bool // true when the server state was newer and was downloaded
	UpToDate bool
}

// Syncer binds the registry store to the API client.
type Syncer struct {
	store  db.Store
	client *api.Client
}

func New(store db.Store, client *api.Client) *Syncer {
	return &Syncer{store: store, client: client}
}

// Sync compares the local save directory of a game against the server and
// pushes the differing files, or pulls when the server is newer.
func (s *Syncer) Sync(ctx context.Context, gameName string) (*Result, error) {
	game, err := s.store.GetGameByName(gameName)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameName)
	}

	manifest, err := archive.BuildManifest(game.SavesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("saves directory missing: %s", game.SavesPath)
		}
		return nil, err
	}

	toUpload, serverNewer, err := s.client.CheckFiles(ctx, game.Name, manifest, game.LastSyncDate)
	if err != nil {
		return nil, err
	}

	if serverNewer {
		logging.Infof("sync: server state for %q is newer, downloading", game.Name)
		if err := s.pull(ctx, game); err != nil {
			return nil, err
		}
		_ = s.store.LogAction("pull", game.Name, "server state was newer")
		return &Result{GameName: game.Name, Pulled: true}, nil
	}

	if len(toUpload) == 0 {
		logging.Debugf("sync: %q already up to date", game.Name)
		if err := s.stamp(game); err != nil {
			return nil, err
		}
		return &Result{GameName: game.Name, UpToDate: true}, nil
	}

	logging.Infof("sync: uploading %d file(s) for %q", len(toUpload), game.Name)
	body := archive.Pack(game.SavesPath, toUpload)
	defer func() { _ = body.Close() }()
	if err := s.client.Upload(ctx, game.Name, body); err != nil {
		return nil, err
	}
	if err := s.stamp(game); err != nil {
		return nil, err
	}
	_ = s.store.LogAction("sync", game.Name, fmt.Sprintf("uploaded %d file(s)", len(toUpload)))
	return &Result{GameName: game.Name, Uploaded: len(toUpload)}, nil
}

// Pull replaces the local save directory with the server's current state.
func (s *Syncer) Pull(ctx context.Context, gameName string) error {
	game, err := s.store.GetGameByName(gameName)
	if err != nil {
		return err
	}
	if game == nil {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameName)
	}
	if err := s.pull(ctx, game); err != nil {
		return err
	}
	_ = s.store.LogAction("pull", game.Name, "")
	return nil
}

func (s *Syncer) pull(ctx context.Context, game *model.Game) error {
	body, err := s.client.Download(ctx, game.Name)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()
	if err := archive.Unpack(body, game.SavesPath); err != nil {
		return fmt.Errorf("extracting saves for %q: %w", game.Name, err)
	}
	return s.stamp(game)
}

// Restore rolls a game back to a server-side backup and downloads the
// restored state into the local save directory.
func (s *Syncer) Restore(ctx context.Context, gameName, backupName string) error {
	game, err := s.store.GetGameByName(gameName)
	if err != nil {
		return err
	}
	if game == nil {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameName)
	}

	if err := s.client.RestoreBackup(ctx, game.Name, backupName); err != nil {
		return err
	}
	if err := s.pull(ctx, game); err != nil {
		return err
	}
	_ = s.store.LogAction("restore", game.Name, "backup "+backupName)
	return nil
}

// AdoptServerGames registers games that exist on the server but not locally.
// Adopted games get empty paths; the user fills those in before watching or
// syncing. Returns the names that were added.
func (s *Syncer) AdoptServerGames(ctx context.Context) ([]string, error) {
	serverGames, err := s.client.GamesData(ctx)
	if err != nil {
		return nil, err
	}

	var adopted []string
	for _, name := range serverGames {
		existing, err := s.store.GetGameByName(name)
		if err != nil {
			return adopted, err
		}
		if existing != nil {
			continue
		}
		if _, err := s.store.AddGame(name, "", "", ""); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				continue
			}
			return adopted, err
		}
		logging.Infof("adopted server game %q into local registry", name)
		adopted = append(adopted, name)
	}
	return adopted, nil
}

func (s *Syncer) stamp(game *model.Game) error {
	return s.store.UpdateSyncTime(game.ID, time.Now().UTC())
}
