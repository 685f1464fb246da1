// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/iamvanilka/mnemy/internal/api"
	"github.com/iamvanilka/mnemy/internal/db"
)

func TestNewRootCmdSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	want := []string{
		"connect", "token", "add", "list", "remove", "rename",
		"sync", "pull", "restore", "backups", "fetch", "cover",
		"watch", "export", "import", "db-maintain", "version",
	}
	have := map[string]bool{}
	for _, sub := range cmd.Commands() {
		have[sub.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRemoveCmdKeepsServerBackupsByDefault(t *testing.T) {
	for _, name := range []string{"server", "delete-backups"} {
		f := removeCmd.Flags().Lookup(name)
		if f == nil {
			t.Fatalf("remove has no --%s flag", name)
		}
		if f.DefValue != "false" {
			t.Errorf("--%s default = %q, want false", name, f.DefValue)
		}
	}
}

func TestRootCmdLaunchesTUIByDefault(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Run == nil {
		t.Fatal("root command has no default Run")
	}
}

func TestResolveBuildVersionFallback(t *testing.T) {
	v := resolveBuildVersion(nil)
	if v == "" {
		t.Fatal("version must never be empty")
	}
}

func TestDownloadCoverFromServer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG_CONFIG_HOME redirection is unix-only")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := db.InitDB("sqlite", "file:test_"+t.Name()+"?mode=memory&cache=shared"); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if _, err := db.Get().AddGame("Factorio", "", "", ""); err != nil {
		t.Fatalf("AddGame: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/get_image/Factorio" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	origClient := apiClient
	defer func() { apiClient = origClient }()
	apiClient = api.New(srv.URL, &api.MemoryTokenStore{Token: "secret"})

	game, err := requireGame("Factorio")
	if err != nil {
		t.Fatalf("requireGame: %v", err)
	}
	path, err := downloadCover(context.Background(), game)
	if err != nil {
		t.Fatalf("downloadCover: %v", err)
	}
	if filepath.Base(path) != "Factorio.jpg" {
		t.Errorf("cover path = %q", path)
	}

	game, err = requireGame("Factorio")
	if err != nil {
		t.Fatalf("requireGame: %v", err)
	}
	if game.ImagePath != path {
		t.Errorf("ImagePath = %q, want %q", game.ImagePath, path)
	}
}

func TestCoverPathSanitizesName(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG_CONFIG_HOME redirection is unix-only")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	p, err := coverPath(`Half-Life 2: Episode "One"`)
	if err != nil {
		t.Fatalf("coverPath: %v", err)
	}
	base := filepath.Base(p)
	for _, bad := range []string{":", `"`, "/", "\\"} {
		if strings.Contains(base, bad) {
			t.Errorf("unsafe character %q in %q", bad, base)
		}
	}
	if !strings.HasSuffix(base, ".jpg") {
		t.Errorf("cover file %q should be a jpg", base)
	}
}
