// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// sync.go holds the save transfer commands: sync, pull, restore, backups
// listing, and the long-running watch mode.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iamvanilka/mnemy/internal/db"
	"github.com/iamvanilka/mnemy/internal/i18n"
	"github.com/iamvanilka/mnemy/internal/logging"
	"github.com/iamvanilka/mnemy/internal/watcher"
)

var syncAll bool

var syncCmd = &cobra.Command{
	Use:   "sync [name]",
	Short: "Sync a game's saves to the server",
	Long: `Compares the local save directory against the server and uploads the
files that differ. When the server's state is newer than the last local
sync, the saves are downloaded instead. With --all, every game with a
configured save directory is synced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncAll {
			return runSyncAll(cmd)
		}
		if len(args) == 0 {
			return errors.New(i18n.T("sync.name_or_all"))
		}
		return runSyncOne(cmd, args[0])
	},
}

func runSyncOne(cmd *cobra.Command, name string) error {
	res, err := syncSvc.Sync(cmd.Context(), name)
	if err != nil {
		return err
	}
	switch {
	case res.Pulled:
		fmt.Println(i18n.T("sync.pulled", res.GameName))
	case res.UpToDate:
		fmt.Println(i18n.T("sync.up_to_date", res.GameName))
	default:
		fmt.Println(i18n.T("sync.uploaded", res.Uploaded, res.GameName))
	}
	return nil
}

func runSyncAll(cmd *cobra.Command) error {
	games, err := db.Get().GetAllGames()
	if err != nil {
		return err
	}
	var failed int
	for _, g := range games {
		if g.SavesPath == "" {
			continue
		}
		if err := runSyncOne(cmd, g.Name); err != nil {
			failed++
			fmt.Println(i18n.T("sync.one_failed", g.Name, err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%s", i18n.T("sync.some_failed", failed))
	}
	return nil
}

var pullCmd = &cobra.Command{
	Use:   "pull <name>",
	Short: "Replace local saves with the server's current state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := syncSvc.Pull(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println(i18n.T("pull.success", args[0]))
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <name> <backup>",
	Short: "Roll a game back to a server-side backup",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := syncSvc.Restore(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Println(i18n.T("restore.success", args[0], args[1]))
		return nil
	},
}

var backupsCmd = &cobra.Command{
	Use:   "backups [name]",
	Short: "List the backups the server holds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		byGame, err := apiClient.BackupsData(cmd.Context())
		if err != nil {
			return err
		}

		names := make([]string, 0, len(byGame))
		for name := range byGame {
			if len(args) == 1 && name != args[0] {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		if len(names) == 0 {
			fmt.Println(i18n.T("backups.cli_empty"))
			return nil
		}
		for _, name := range names {
			fmt.Printf("%s:\n", name)
			for _, b := range byGame[name] {
				date := ""
				if !b.CreatedAt.IsZero() {
					date = b.CreatedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Printf("  %-40s %10d  %s\n", b.Name, b.Size, date)
			}
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for registered games to exit and sync their saves",
	Long: `Polls the process table for the executables of registered games. When a
watched game exits, its save directory is synced to the server. Runs until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		interval := time.Duration(appConfig.Watcher.PollIntervalSeconds) * time.Second
		w := watcher.New(db.Get(),
			func(ctx context.Context, gameName string) error {
				_, err := syncSvc.Sync(ctx, gameName)
				return err
			},
			watcher.WithPollInterval(interval),
			watcher.WithNotifier(func(event, gameName string) {
				switch event {
				case "running":
					fmt.Println(i18n.T("watch.running", gameName))
				case "synced":
					fmt.Println(i18n.T("watch.synced", gameName))
				case "sync_failed":
					fmt.Println(i18n.T("watch.sync_failed", gameName))
				}
			}),
		)

		fmt.Println(i18n.T("watch.started"))
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logging.Infof("watcher stopped")
		fmt.Println(i18n.T("watch.stopped"))
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVarP(&syncAll, "all", "a", false, "Sync every game with a configured save directory")
}
