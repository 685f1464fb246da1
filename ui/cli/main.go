// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// main.go sets up the command-line interface (CLI) for the Mnemy client
// using the Cobra library. It defines the root command, subcommands (like
// sync, watch, backups), flags, and the main entry point for execution.

package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	_ "github.com/go-sql-driver/mysql" // registry backend driver
	_ "github.com/jackc/pgx/v5/stdlib" // registry backend driver
	"github.com/spf13/cobra"

	"github.com/iamvanilka/mnemy/buildvars"
	"github.com/iamvanilka/mnemy/internal/api"
	"github.com/iamvanilka/mnemy/internal/config"
	"github.com/iamvanilka/mnemy/internal/db"
	"github.com/iamvanilka/mnemy/internal/i18n"
	"github.com/iamvanilka/mnemy/internal/logging"
	"github.com/iamvanilka/mnemy/internal/syncer"
	"github.com/iamvanilka/mnemy/internal/tui"
)

var (
	cfgFile         string
	verbose         bool
	showVersionFlag bool
)

// Package-level services wired by setupDefaultServices. Tests may replace
// them before invoking a command.
var (
	appConfig config.Config
	tokens    api.TokenStore = api.KeyringTokenStore{}
	apiClient *api.Client
	syncSvc   *syncer.Syncer
)

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	explicitConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	defaults := map[string]any{
		"database.type":                 "sqlite",
		"database.dsn":                  config.DefaultDatabasePath(),
		"language":                      "en",
		"watcher.poll_interval_seconds": 10,
	}

	var cfgFileUsed string
	appConfig, cfgFileUsed, err = config.Load(cmd, defaults, explicitConfigPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfgFileUsed == "" {
		// First run, or the config file was deleted. Create a default one.
		if writeErr := config.Write(&appConfig, false); writeErr != nil {
			logging.Warnf("could not write default config file: %v", writeErr)
		}
	}

	if verbose {
		logging.SetDebug(true)
		db.SetDebug(true)
	}

	i18n.Init(appConfig.Language)

	if !db.IsInitialized() {
		if err := db.InitDB(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
			return fmt.Errorf("%s", i18n.T("config.error_init_db", err))
		}
	}

	apiClient = api.New(appConfig.Server.Host, tokens)
	syncSvc = syncer.New(db.Get(), apiClient)

	return nil
}

// Execute runs the CLI entrypoint. The root main package calls this and
// handles process exit.
func Execute() error {
	return NewRootCmd().Execute()
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only honor --config when the user explicitly set it.
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// NewRootCmd creates and configures a new root cobra command. Tests use it
// to build fresh, isolated instances.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnemy",
		Short: "Mnemy keeps your game saves backed up on your own server.",
		Long: `Mnemy is a client for a self-hosted mnemy-server. It keeps a local
registry of games, watches for them to exit, and syncs their save
directories to the server, which versions every change as a backup.

Running without a subcommand will launch the interactive TUI.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersionFlag {
				fmt.Println(resolveBuildVersion(nil))
				os.Exit(0)
			}
			return setupDefaultServices(cmd, args)
		},
		Run: func(cmd *cobra.Command, args []string) {
			// Services are already wired by PersistentPreRunE.
			tui.Run(tui.Services{
				Store:  db.Get(),
				Client: apiClient,
				Syncer: syncSvc,
				SaveLanguage: func(lang string) error {
					appConfig.Language = lang
					return config.Write(&appConfig, false)
				},
			})
		},
	}

	cmd.Version = resolveBuildVersion(nil)

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(&showVersionFlag, "version", "V", false, "Print version and exit")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `UI language ("en", "ru")`)
	cmd.PersistentFlags().String("database.type", "sqlite", "Registry database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("database.dsn", "", "Registry database connection string (DSN)")
	cmd.PersistentFlags().String("server.host", "", "mnemy-server address, e.g. http://nas.local:8000")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("version: %s\n", resolveBuildVersion(nil))
		},
	}
	// The version subcommand needs no config or database.
	versionCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil }

	cmd.AddCommand(
		connectCmd,
		newTokenCmd(),
		addCmd,
		listCmd,
		removeCmd,
		renameCmd,
		syncCmd,
		pullCmd,
		restoreCmd,
		backupsCmd,
		fetchCmd,
		coverCmd,
		watchCmd,
		exportCmd,
		importCmd,
		dbMaintainCmd,
		versionCmd,
	)

	return cmd
}

// resolveBuildVersion computes the best-available version string for the
// running binary: linker-set buildvars first, then module build info.
func resolveBuildVersion(info *debug.BuildInfo) string {
	if buildvars.Version != "" {
		return buildvars.Version
	}
	if info == nil {
		info, _ = debug.ReadBuildInfo()
	}
	if info != nil && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return buildvars.VersionOrDefault("dev")
}
