// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := &MemoryTokenStore{}
	if err := tokens.Save("secret-token"); err != nil {
		t.Fatalf("Save token: %v", err)
	}
	c := New(srv.URL, tokens)
	c.retry.RetryMax = 0 // keep failure tests fast
	return c
}

func TestCheckTokenSendsHeader(t *testing.T) {
	var gotToken string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/manage/check_x_token" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotToken = r.Header.Get("x-api-token")
		_, _ = w.Write([]byte(`{"token_status": true}`))
	}))

	ok, err := c.CheckToken(context.Background())
	if err != nil {
		t.Fatalf("CheckToken: %v", err)
	}
	if !ok {
		t.Error("expected token to be accepted")
	}
	if gotToken != "secret-token" {
		t.Errorf("x-api-token = %q", gotToken)
	}
}

func TestCheckTokenRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	ok, err := c.CheckToken(context.Background())
	if err != nil {
		t.Fatalf("CheckToken: %v", err)
	}
	if ok {
		t.Error("expected rejection")
	}
}

func TestCheckFiles(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/files/check_files" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"files_data":{"missing_on_server":["a.sav"],"mismatched_hashes":["b.sav"]}}`))
	}))

	toUpload, serverNewer, err := c.CheckFiles(context.Background(), "Celeste",
		map[string]string{"a.sav": "x", "b.sav": "y"}, nil)
	if err != nil {
		t.Fatalf("CheckFiles: %v", err)
	}
	if serverNewer {
		t.Error("serverNewer should be false")
	}
	if len(toUpload) != 2 {
		t.Errorf("toUpload = %v", toUpload)
	}
}

func TestCheckFilesServerNewer(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A redirect means the server's state is newer than the client's
		// last sync; it must not be followed.
		w.Header().Set("Location", "/files/download_data?game_name=Celeste")
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))

	last := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	toUpload, serverNewer, err := c.CheckFiles(context.Background(), "Celeste", map[string]string{}, &last)
	if err != nil {
		t.Fatalf("CheckFiles: %v", err)
	}
	if !serverNewer {
		t.Error("expected serverNewer")
	}
	if toUpload != nil {
		t.Errorf("toUpload = %v", toUpload)
	}
}

func TestUploadMultipart(t *testing.T) {
	var gotGame, gotFile string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotGame = r.FormValue("game_name")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotFile = string(data)
		if hdr.Filename != "files.tar.gz" {
			t.Errorf("filename = %s", hdr.Filename)
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := c.Upload(context.Background(), "Celeste", strings.NewReader("fake-archive")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotGame != "Celeste" {
		t.Errorf("game_name = %q", gotGame)
	}
	if gotFile != "fake-archive" {
		t.Errorf("file body = %q", gotFile)
	}
}

func TestDownload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("game_name") != "Celeste" {
			t.Errorf("game_name = %q", r.URL.Query().Get("game_name"))
		}
		_, _ = w.Write([]byte("tarball-bytes"))
	}))

	body, err := c.Download(context.Background(), "Celeste")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "tarball-bytes" {
		t.Errorf("body = %q", data)
	}
}

func TestBackupsData(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Celeste":[{"name":"backup_1","size":1024,"date":"2025-06-01T12:00:00Z"}]}`))
	}))

	backups, err := c.BackupsData(context.Background())
	if err != nil {
		t.Fatalf("BackupsData: %v", err)
	}
	items := backups["Celeste"]
	if len(items) != 1 {
		t.Fatalf("backups = %v", backups)
	}
	if items[0].Size != 1024 || items[0].GameName != "Celeste" {
		t.Errorf("backup = %+v", items[0])
	}
	if items[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not parsed")
	}
}

func TestDeleteBackupAlreadyGone(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	deleted, err := c.DeleteBackup(context.Background(), "Celeste", "backup_1")
	if err != nil {
		t.Fatalf("DeleteBackup: %v", err)
	}
	if deleted {
		t.Error("204 should report the backup as already gone")
	}
}

func TestGamesData(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"games_list":["Celeste","Hades"]}`))
	}))

	games, err := c.GamesData(context.Background())
	if err != nil {
		t.Fatalf("GamesData: %v", err)
	}
	if len(games) != 2 || games[1] != "Hades" {
		t.Errorf("games = %v", games)
	}
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/manage/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	if !c.Health(context.Background(), "") {
		t.Error("expected healthy")
	}
	if c.Health(context.Background(), "http://127.0.0.1:1") {
		t.Error("expected unhealthy for closed port")
	}
}

func TestNoHost(t *testing.T) {
	c := New("", &MemoryTokenStore{})
	if _, err := c.GamesData(context.Background()); !errors.Is(err, ErrNoHost) {
		t.Fatalf("expected ErrNoHost, got %v", err)
	}
}

func TestNoToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := New(srv.URL, &MemoryTokenStore{})
	if _, err := c.GamesData(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	if _, err := c.GamesData(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
