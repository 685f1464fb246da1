// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package syncer

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/iamvanilka/mnemy/internal/api"
	"github.com/iamvanilka/mnemy/internal/db"
)

func newTestStore(t *testing.T) db.Store {
	t.Helper()
	dsn := "file:test_sync_" + t.Name() + "?mode=memory&cache=shared"
	s, err := db.NewStoreFromDSN("sqlite", dsn)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return s
}

func newTestSyncer(t *testing.T, handler http.Handler) (*Syncer, db.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := &api.MemoryTokenStore{}
	if err := tokens.Save("tok"); err != nil {
		t.Fatal(err)
	}
	store := newTestStore(t)
	return New(store, api.New(srv.URL, tokens)), store
}

// tarGz builds a small archive for download responses.
func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	_ = tw.Close()
	_ = gz.Close()
	return buf.Bytes()
}

func TestSyncUploadsChangedFiles(t *testing.T) {
	var uploaded bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/check_files":
			var req struct {
				GameName  string            `json:"game_name"`
				FilesData map[string]string `json:"files_data"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.GameName != "Celeste" {
				t.Errorf("game_name = %q", req.GameName)
			}
			// Ask for everything the client offered.
			var missing []string
			for name := range req.FilesData {
				missing = append(missing, name)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"files_data": map[string]any{
					"missing_on_server": missing,
					"mismatched_hashes": []string{},
				},
			})
		case "/files/upload_data":
			uploaded = true
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("multipart: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	s, store := newTestSyncer(t, handler)

	saves := t.TempDir()
	if err := os.WriteFile(filepath.Join(saves, "slot1.sav"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddGame("Celeste", "", saves, ""); err != nil {
		t.Fatal(err)
	}

	res, err := s.Sync(context.Background(), "Celeste")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !uploaded {
		t.Error("upload endpoint never hit")
	}
	if res.Uploaded != 1 || res.Pulled || res.UpToDate {
		t.Errorf("result = %+v", res)
	}

	g, _ := store.GetGameByName("Celeste")
	if g.LastSyncDate == nil {
		t.Error("sync date not stamped")
	}
}

func TestSyncUpToDate(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"files_data": map[string]any{
				"missing_on_server": []string{},
				"mismatched_hashes": []string{},
			},
		})
	})

	s, store := newTestSyncer(t, handler)
	saves := t.TempDir()
	if _, err := store.AddGame("Hades", "", saves, ""); err != nil {
		t.Fatal(err)
	}

	res, err := s.Sync(context.Background(), "Hades")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !res.UpToDate {
		t.Errorf("result = %+v", res)
	}
}

func TestSyncPullsWhenServerNewer(t *testing.T) {
	archive := tarGz(t, map[string]string{"slot1.sav": "server version"})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/check_files":
			w.Header().Set("Location", "/files/download_data")
			w.WriteHeader(http.StatusTemporaryRedirect)
		case "/files/download_data":
			_, _ = w.Write(archive)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	s, store := newTestSyncer(t, handler)
	saves := t.TempDir()
	if err := os.WriteFile(filepath.Join(saves, "slot1.sav"), []byte("local version"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddGame("Celeste", "", saves, ""); err != nil {
		t.Fatal(err)
	}

	res, err := s.Sync(context.Background(), "Celeste")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !res.Pulled {
		t.Errorf("result = %+v", res)
	}

	data, err := os.ReadFile(filepath.Join(saves, "slot1.sav"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "server version" {
		t.Errorf("local save = %q", data)
	}
}

func TestSyncUnknownGame(t *testing.T) {
	s, _ := newTestSyncer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	_, err := s.Sync(context.Background(), "ghost")
	if !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestRestoreDownloadsState(t *testing.T) {
	archive := tarGz(t, map[string]string{"slot1.sav": "restored"})
	var restored bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/restore_backup":
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["backup_name"] != "backup_7" {
				t.Errorf("backup_name = %q", req["backup_name"])
			}
			restored = true
			w.WriteHeader(http.StatusOK)
		case "/files/download_data":
			_, _ = w.Write(archive)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	s, store := newTestSyncer(t, handler)
	saves := t.TempDir()
	if _, err := store.AddGame("Celeste", "", saves, ""); err != nil {
		t.Fatal(err)
	}

	if err := s.Restore(context.Background(), "Celeste", "backup_7"); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !restored {
		t.Error("restore endpoint never hit")
	}
	data, _ := os.ReadFile(filepath.Join(saves, "slot1.sav"))
	if string(data) != "restored" {
		t.Errorf("local save = %q", data)
	}
}

func TestAdoptServerGames(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/manage/get_games_data" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"games_list": []string{"Known", "NewOne"}})
	})

	s, store := newTestSyncer(t, handler)
	if _, err := store.AddGame("Known", "", "/saves/known", ""); err != nil {
		t.Fatal(err)
	}

	adopted, err := s.AdoptServerGames(context.Background())
	if err != nil {
		t.Fatalf("AdoptServerGames: %v", err)
	}
	if len(adopted) != 1 || adopted[0] != "NewOne" {
		t.Errorf("adopted = %v", adopted)
	}

	g, err := store.GetGameByName("NewOne")
	if err != nil || g == nil {
		t.Fatalf("adopted game missing: %v", err)
	}
	if g.SavesPath != "" {
		t.Errorf("adopted game should have empty saves path, got %q", g.SavesPath)
	}
}
