// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// package api implements the HTTP client for mnemy-server. Every protected
// request carries the API token in the x-api-token header; the token itself
// lives in the OS keyring (see token.go). Transient connectivity failures
// are retried for idempotent JSON calls; streaming uploads and downloads go
// over a plain client since their bodies cannot be replayed.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/iamvanilka/mnemy/internal/logging"
	"github.com/iamvanilka/mnemy/internal/model"
)

// Sentinel errors for the three failure classes a user can act on:
// connectivity, authentication, and missing configuration.
var (
	ErrNoHost       = errors.New("server host not configured")
	ErrNoToken      = errors.New("api token not found")
	ErrUnauthorized = errors.New("api token rejected by server")
	ErrUnreachable  = errors.New("server unreachable")
)

const healthTimeout = 5 * time.Second

// Client talks to a mnemy-server instance.
type Client struct {
	host   string
	tokens TokenStore

	// retry handles idempotent JSON endpoints; stream handles tar.gz
	// transfers whose bodies cannot be rewound for a retry.
	retry  *retryablehttp.Client
	stream *http.Client
}

// New returns a Client for the given host (e.g. "http://nas.local:8000").
// host may be empty; calls will then fail with ErrNoHost.
func New(host string, tokens TokenStore) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil // routed through our own logging below
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logging.Debugf("api: retrying %s %s (attempt %d)", req.Method, req.URL.Path, attempt)
		}
	}
	// Redirects are protocol signals (307 = server side is newer), never
	// something to follow.
	rc.HTTPClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		host:   strings.TrimRight(host, "/"),
		tokens: tokens,
		retry:  rc,
		stream: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Host returns the configured server address.
func (c *Client) Host() string { return c.host }

// SetHost changes the server address for subsequent requests.
func (c *Client) SetHost(host string) { c.host = strings.TrimRight(host, "/") }

func (c *Client) endpoint(path string) (string, error) {
	if c.host == "" {
		return "", ErrNoHost
	}
	return c.host + path, nil
}

func (c *Client) token() (string, error) {
	return c.tokens.Get()
}

// doJSON performs an authenticated request with an optional JSON body and
// decodes the JSON response into out (when out is non-nil). It maps
// connectivity and auth failures to the package sentinel errors.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, out any) (*http.Response, error) {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return nil, err
	}
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(data)
	}

	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-token", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.retry.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_ = resp.Body.Close()
		return nil, ErrUnauthorized
	}

	if out != nil {
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= 400 {
			return resp, fmt.Errorf("server error: %s", resp.Status)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("invalid response from server: %w", err)
		}
	}
	return resp, nil
}

// Health probes /manage/health without authentication. An empty hostOverride
// probes the configured host.
func (c *Client) Health(ctx context.Context, hostOverride string) bool {
	host := c.host
	if hostOverride != "" {
		host = strings.TrimRight(hostOverride, "/")
	}
	if host == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/manage/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.stream.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// CheckToken verifies the stored token against /manage/check_x_token.
func (c *Client) CheckToken(ctx context.Context) (bool, error) {
	var out struct {
		TokenStatus bool `json:"token_status"`
	}
	resp, err := c.doJSON(ctx, http.MethodGet, "/manage/check_x_token", nil, nil, &out)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return false, nil
		}
		return false, err
	}
	return resp.StatusCode == http.StatusOK && out.TokenStatus, nil
}

// checkFilesRequest is the manifest comparison payload.
type checkFilesRequest struct {
	GameName     string            `json:"game_name"`
	FilesData    map[string]string `json:"files_data"`
	LastSyncDate *string           `json:"last_sync_date"`
}

type checkFilesResponse struct {
	FilesData struct {
		MissingOnServer  []string `json:"missing_on_server"`
		MismatchedHashes []string `json:"mismatched_hashes"`
	} `json:"files_data"`
}

// CheckFiles sends the local manifest for a game and returns the relative
// paths the server wants uploaded. serverNewer is true when the server
// responded 307, meaning its state is newer than the client's last sync and
// the client must download instead.
func (c *Client) CheckFiles(ctx context.Context, gameName string, manifest map[string]string, lastSync *time.Time) (toUpload []string, serverNewer bool, err error) {
	body := checkFilesRequest{
		GameName:  gameName,
		FilesData: manifest,
	}
	if lastSync != nil {
		s := lastSync.UTC().Format(time.RFC3339)
		body.LastSyncDate = &s
	}

	var out checkFilesResponse
	endpoint, err := c.endpoint("/files/check_files")
	if err != nil {
		return nil, false, err
	}
	token, err := c.token()
	if err != nil {
		return nil, false, err
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, false, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("x-api-token", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.retry.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTemporaryRedirect:
		return nil, true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, ErrUnauthorized
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("server error: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("invalid response from server: %w", err)
	}

	toUpload = append(toUpload, out.FilesData.MissingOnServer...)
	toUpload = append(toUpload, out.FilesData.MismatchedHashes...)
	return toUpload, false, nil
}

// Upload streams a tar.gz archive of changed save files to the server as a
// multipart form. The archive reader is consumed incrementally.
func (c *Client) Upload(ctx context.Context, gameName string, archive io.Reader) error {
	endpoint, err := c.endpoint("/files/upload_data")
	if err != nil {
		return err
	}
	token, err := c.token()
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", "files.tar.gz")
		if err == nil {
			_, err = io.Copy(part, archive)
		}
		if err == nil {
			err = mw.WriteField("game_name", gameName)
		}
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-token", token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s: %s", resp.Status, strings.TrimSpace(string(text)))
	}
	return nil
}

// Download returns a tar.gz stream of all save files for a game. The caller
// must close the returned reader.
func (c *Client) Download(ctx context.Context, gameName string) (io.ReadCloser, error) {
	endpoint, err := c.endpoint("/files/download_data")
	if err != nil {
		return nil, err
	}
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	q := url.Values{"game_name": {gameName}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-token", token)

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_ = resp.Body.Close()
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download failed: %s", resp.Status)
	}
	return resp.Body, nil
}

// GamesData returns the list of game names registered on the server.
func (c *Client) GamesData(ctx context.Context) ([]string, error) {
	var out struct {
		GamesList []string `json:"games_list"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/manage/get_games_data", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.GamesList, nil
}

// DeleteGame removes a game's saves on the server, optionally its backups too.
func (c *Client) DeleteGame(ctx context.Context, gameName string, deleteBackups bool) error {
	var query url.Values
	if deleteBackups {
		query = url.Values{"delete_backups": {"true"}}
	}
	resp, err := c.doJSON(ctx, http.MethodDelete, "/manage/delete/game/"+url.PathEscape(gameName), query, nil, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server error: %s", resp.Status)
	}
	return nil
}

// UpdateGameName renames a game on the server.
func (c *Client) UpdateGameName(ctx context.Context, gameName, newGameName string) error {
	query := url.Values{"new_game_name": {newGameName}}
	resp, err := c.doJSON(ctx, http.MethodPatch, "/manage/update_game/"+url.PathEscape(gameName), query, nil, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server error: %s", resp.Status)
	}
	return nil
}

// BackupsData returns the backups held by the server, grouped per game.
func (c *Client) BackupsData(ctx context.Context) (map[string][]model.Backup, error) {
	var raw map[string][]struct {
		Name      string `json:"name"`
		Size      int64  `json:"size"`
		CreatedAt string `json:"date"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/files/get_backups_data", nil, nil, &raw); err != nil {
		return nil, err
	}

	out := make(map[string][]model.Backup, len(raw))
	for game, items := range raw {
		for _, item := range items {
			b := model.Backup{GameName: game, Name: item.Name, Size: item.Size}
			if t, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
				b.CreatedAt = t
			}
			out[game] = append(out[game], b)
		}
	}
	return out, nil
}

// RestoreBackup asks the server to roll a game back to the named backup.
// The caller is expected to download the restored state afterwards.
func (c *Client) RestoreBackup(ctx context.Context, gameName, backupName string) error {
	body := map[string]string{"game_name": gameName, "backup_name": backupName}
	resp, err := c.doJSON(ctx, http.MethodPost, "/files/restore_backup", nil, body, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("restore failed: %s", resp.Status)
	}
	return nil
}

// DeleteBackup removes a backup on the server. It returns (false, nil) when
// the server reports 204, meaning the backup was already gone.
func (c *Client) DeleteBackup(ctx context.Context, gameName, backupName string) (bool, error) {
	body := map[string]string{"game_name": gameName, "backup_name": backupName}
	resp, err := c.doJSON(ctx, http.MethodDelete, "/files/delete_backup", nil, body, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNoContent:
		return false, nil
	default:
		return false, fmt.Errorf("delete backup failed: %s", resp.Status)
	}
}

// GetImage fetches the server-hosted cover art for a game.
func (c *Client) GetImage(ctx context.Context, gameName string) ([]byte, error) {
	endpoint, err := c.endpoint("/files/get_image/" + url.PathEscape(gameName))
	if err != nil {
		return nil, err
	}
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-token", token)

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("no image: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
