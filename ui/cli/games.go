// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// games.go holds the registry management commands: add, list, remove,
// rename, fetch (adopt server-side games) and cover (cover art download).

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iamvanilka/mnemy/internal/api"
	"github.com/iamvanilka/mnemy/internal/db"
	"github.com/iamvanilka/mnemy/internal/i18n"
	"github.com/iamvanilka/mnemy/internal/logging"
	"github.com/iamvanilka/mnemy/internal/model"
)

var (
	addGamePath  string
	addSavesPath string
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a game in the local registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return errors.New(i18n.T("add.name_required"))
		}
		if addSavesPath != "" {
			if info, err := os.Stat(addSavesPath); err != nil || !info.IsDir() {
				return fmt.Errorf("%s", i18n.T("add.bad_saves_path", addSavesPath))
			}
		}

		id, err := db.Get().AddGame(name, addGamePath, addSavesPath, "")
		if err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return fmt.Errorf("%s", i18n.T("add.duplicate", name))
			}
			return err
		}
		fmt.Println(i18n.T("add.success", name, id))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the games in the local registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		games, err := db.Get().GetAllGames()
		if err != nil {
			return err
		}
		if len(games) == 0 {
			fmt.Println(i18n.T("list.empty"))
			return nil
		}
		for _, g := range games {
			lastSync := i18n.T("list.never_synced")
			if g.LastSyncDate != nil {
				lastSync = g.LastSyncDate.Local().Format("2006-01-02 15:04")
			}
			fmt.Printf("%-30s  %s\n", g.Name, lastSync)
			if g.SavesPath != "" {
				fmt.Printf("    %s\n", g.SavesPath)
			} else {
				fmt.Printf("    %s\n", i18n.T("list.no_saves_path"))
			}
		}
		return nil
	},
}

var (
	removeServerSide    bool
	removeServerBackups bool
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a game from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		game, err := requireGame(args[0])
		if err != nil {
			return err
		}
		if err := db.Get().DeleteGame(game.ID); err != nil {
			return err
		}
		_ = db.Get().LogAction("remove", game.Name, "")
		fmt.Println(i18n.T("remove.success", game.Name))

		if removeServerSide || removeServerBackups {
			if err := apiClient.DeleteGame(cmd.Context(), game.Name, removeServerBackups); err != nil {
				return fmt.Errorf("%s", i18n.T("remove.server_failed", err))
			}
			fmt.Println(i18n.T("remove.server_success", game.Name))
		}
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <old-name> <new-name>",
	Short: "Rename a game locally and on the server",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldName, newName := args[0], strings.TrimSpace(args[1])
		if newName == "" {
			return errors.New(i18n.T("add.name_required"))
		}
		if err := db.Get().RenameGame(oldName, newName); err != nil {
			return err
		}
		fmt.Println(i18n.T("rename.local_success", oldName, newName))

		if err := apiClient.UpdateGameName(cmd.Context(), oldName, newName); err != nil {
			// The local rename stands; the server can be renamed again later.
			logging.Warnf("server rename failed: %v", err)
			fmt.Println(i18n.T("rename.server_failed", err))
			return nil
		}
		fmt.Println(i18n.T("rename.server_success"))
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Adopt games that exist on the server but not locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		adopted, err := syncSvc.AdoptServerGames(cmd.Context())
		if err != nil {
			return err
		}
		if len(adopted) == 0 {
			fmt.Println(i18n.T("fetch.nothing"))
			return nil
		}
		for _, name := range adopted {
			fmt.Println(i18n.T("fetch.adopted", name))
			// Cover art is a nice-to-have; adoption succeeds without it.
			if game, err := requireGame(name); err == nil {
				if _, err := downloadCover(cmd.Context(), game); err != nil {
					logging.Debugf("no cover for adopted game %q: %v", name, err)
				}
			}
		}
		fmt.Println(i18n.T("fetch.hint"))
		return nil
	},
}

var coverCmd = &cobra.Command{
	Use:   "cover <name>",
	Short: "Download cover art for a game",
	Long: `Fetches cover art from the server when it has one, falling back to a
Steam storefront lookup, and records the image path in the registry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		game, err := requireGame(args[0])
		if err != nil {
			return err
		}
		path, err := downloadCover(cmd.Context(), game)
		if err != nil {
			return err
		}
		fmt.Println(i18n.T("cover.saved", path))
		return nil
	},
}

// downloadCover fetches cover art for a game (server first, Steam storefront
// as a fallback), writes it next to the config and records its path in the
// registry.
func downloadCover(ctx context.Context, game *model.Game) (string, error) {
	data, err := apiClient.GetImage(ctx, game.Name)
	if err != nil {
		logging.Debugf("server has no image for %q: %v", game.Name, err)
		data, err = api.SearchSteamCover(ctx, game.Name)
		if err != nil {
			return "", fmt.Errorf("%s", i18n.T("cover.not_found", game.Name))
		}
	}

	path, err := coverPath(game.Name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	if err := db.Get().UpdateGame(game.ID, model.GameUpdate{ImagePath: &path}); err != nil {
		return "", err
	}
	return path, nil
}

// coverPath returns the on-disk location for a game's cover image, under
// the user config directory.
func coverPath(gameName string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "mnemy", "covers")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, gameName)
	return filepath.Join(dir, safe+".jpg"), nil
}

// requireGame loads a game by name or fails with a user-facing error.
func requireGame(name string) (*model.Game, error) {
	game, err := db.Get().GetGameByName(name)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, fmt.Errorf("%s", i18n.T("common.game_not_found", name))
	}
	return game, nil
}

func init() {
	addCmd.Flags().StringVarP(&addGamePath, "exe", "e", "", "Path to the game executable (enables watching)")
	addCmd.Flags().StringVarP(&addSavesPath, "saves", "s", "", "Path to the save directory")
	removeCmd.Flags().BoolVar(&removeServerSide, "server", false, "Also delete the game on the server (backups are kept)")
	removeCmd.Flags().BoolVar(&removeServerBackups, "delete-backups", false, "Also delete the game's server backups (implies --server)")
}
