// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iamvanilka/mnemy/internal/logging"
)

// Steam storefront endpoints used as a cover-art fallback when the server
// has no image for a game. Vars so tests can point them at a local server.
var (
	steamSearchURL = "https://store.steampowered.com/api/storesearch/"
	steamCoverURL  = "https://cdn.cloudflare.steamstatic.com/steam/apps/%d/header.jpg"
)

var steamHTTP = &http.Client{Timeout: 15 * time.Second}

// steamAppID resolves a game name to the app ID of the first storefront
// search match.
func steamAppID(ctx context.Context, gameName string) (int, error) {
	q := url.Values{
		"term": {gameName},
		"l":    {"english"},
		"cc":   {"US"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, steamSearchURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := steamHTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("steam search failed: %s", resp.Status)
	}

	var out struct {
		Items []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	if len(out.Items) == 0 {
		return 0, fmt.Errorf("no steam match for %q", gameName)
	}

	logging.Debugf("steam: matched %q to app %d (%s)", gameName, out.Items[0].ID, out.Items[0].Name)
	return out.Items[0].ID, nil
}

// SearchSteamCover looks a game up on the Steam storefront and returns the
// header image of the first match. Errors are soft: callers treat a failure
// as "no cover available".
func SearchSteamCover(ctx context.Context, gameName string) ([]byte, error) {
	appID, err := steamAppID(ctx, gameName)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(steamCoverURL, appID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := steamHTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("steam cover fetch failed: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
