// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// transfer.go holds the registry export/import commands and database
// maintenance. Exports are zstd-compressed JSON so a registry can move
// between machines or database backends.

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/iamvanilka/mnemy/internal/db"
	"github.com/iamvanilka/mnemy/internal/i18n"
	"github.com/iamvanilka/mnemy/internal/logging"
	"github.com/iamvanilka/mnemy/internal/model"
)

// exportSchemaVersion is bumped when RegistryExport changes shape.
const exportSchemaVersion = 1

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the local registry to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := db.Get()
		games, err := store.GetAllGames()
		if err != nil {
			return err
		}
		syncLog, err := store.GetSyncLog(0)
		if err != nil {
			return err
		}

		dump := model.RegistryExport{
			SchemaVersion: exportSchemaVersion,
			Games:         games,
			SyncLog:       syncLog,
			ServerHost:    appConfig.Server.Host,
		}

		f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		zw, err := zstd.NewWriter(f)
		if err != nil {
			return err
		}
		if err := json.NewEncoder(zw).Encode(&dump); err != nil {
			_ = zw.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}

		fmt.Println(i18n.T("export.success", len(games), args[0]))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a registry export into the local database",
	Long: `Reads a file produced by 'mnemy export' and merges its games into the
local registry. Games that already exist locally are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("import.bad_file", err))
		}
		defer zr.Close()

		var dump model.RegistryExport
		if err := json.NewDecoder(io.LimitReader(zr, 64<<20)).Decode(&dump); err != nil {
			return fmt.Errorf("%s", i18n.T("import.bad_file", err))
		}
		if dump.SchemaVersion > exportSchemaVersion {
			return errors.New(i18n.T("import.newer_schema"))
		}

		store := db.Get()
		var imported, skipped int
		for _, g := range dump.Games {
			existing, err := store.GetGameByName(g.Name)
			if err != nil {
				return err
			}
			if existing != nil {
				skipped++
				continue
			}
			id, err := store.AddGame(g.Name, g.GamePath, g.SavesPath, g.ImagePath)
			if err != nil {
				return err
			}
			if g.LastSyncDate != nil {
				if err := store.UpdateSyncTime(id, *g.LastSyncDate); err != nil {
					logging.Warnf("could not restore sync time for %q: %v", g.Name, err)
				}
			}
			imported++
		}

		fmt.Println(i18n.T("import.success", imported, skipped))
		if dump.ServerHost != "" && appConfig.Server.Host == "" {
			fmt.Println(i18n.T("import.host_hint", dump.ServerHost))
		}
		return nil
	},
}

var dbMaintainCmd = &cobra.Command{
	Use:   "db-maintain",
	Short: "Run maintenance on the registry database",
	Long: `Runs backend-appropriate maintenance: VACUUM, optimize and an integrity
check for SQLite; VACUUM ANALYZE for PostgreSQL; OPTIMIZE TABLE for MySQL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.RunDBMaintenance(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
			return err
		}
		fmt.Println(i18n.T("db_maintain.success"))
		return nil
	},
}
