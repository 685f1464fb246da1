// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// trackingBody flags when a response body is closed.
type trackingBody struct {
	io.ReadCloser
	closed *bool
	mu     *sync.Mutex
}

func (b trackingBody) Close() error {
	b.mu.Lock()
	*b.closed = true
	b.mu.Unlock()
	return b.ReadCloser.Close()
}

type trackingTransport struct {
	mu     sync.Mutex
	closed []*bool
}

func (t *trackingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	flag := new(bool)
	t.closed = append(t.closed, flag)
	t.mu.Unlock()
	resp.Body = trackingBody{ReadCloser: resp.Body, closed: flag, mu: &t.mu}
	return resp, nil
}

func (t *trackingTransport) unclosed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.closed {
		if !*c {
			n++
		}
	}
	return n
}

func newSteamStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/storesearch/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("term"); got != "Factorio" {
			t.Errorf("term = %q", got)
		}
		_, _ = w.Write([]byte(`{"items":[{"id":427520,"name":"Factorio"}]}`))
	})
	mux.HandleFunc("/steam/apps/427520/header.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchSteamCover(t *testing.T) {
	srv := newSteamStub(t)

	origSearch, origCover, origClient := steamSearchURL, steamCoverURL, steamHTTP
	t.Cleanup(func() {
		steamSearchURL, steamCoverURL, steamHTTP = origSearch, origCover, origClient
	})
	steamSearchURL = srv.URL + "/api/storesearch/"
	steamCoverURL = srv.URL + "/steam/apps/%d/header.jpg"

	tracker := &trackingTransport{}
	steamHTTP = &http.Client{Transport: tracker}

	img, err := SearchSteamCover(context.Background(), "Factorio")
	if err != nil {
		t.Fatalf("SearchSteamCover: %v", err)
	}
	if string(img) != "jpeg-bytes" {
		t.Errorf("cover = %q", img)
	}
	if n := tracker.unclosed(); n != 0 {
		t.Errorf("%d response bodies left unclosed", n)
	}
}

func TestSearchSteamCoverNoMatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/storesearch/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	origSearch, origClient := steamSearchURL, steamHTTP
	t.Cleanup(func() { steamSearchURL, steamHTTP = origSearch, origClient })
	steamSearchURL = srv.URL + "/api/storesearch/"
	steamHTTP = srv.Client()

	if _, err := SearchSteamCover(context.Background(), "No Such Game"); err == nil {
		t.Fatal("expected an error for an empty search result")
	}
}
