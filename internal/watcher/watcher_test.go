// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iamvanilka/mnemy/internal/model"
)

func TestNormalizeExeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Celeste.exe", "celeste"},
		{"celeste", "celeste"},
		{"HOLLOW_KNIGHT.EXE", "hollow_knight"},
		{"game.", "game"},
		{"  factorio  ", "factorio"},
		{"steam.exe.", "steam.exe"},
	}
	for _, c := range cases {
		if got := NormalizeExeName(c.in); got != c.want {
			t.Errorf("NormalizeExeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

type staticRegistry struct {
	games []model.Game
	err   error
	calls int
}

func (r *staticRegistry) GetAllGames() ([]model.Game, error) {
	r.calls++
	return r.games, r.err
}

func TestRunStopsOnCancel(t *testing.T) {
	reg := &staticRegistry{}
	w := New(reg, func(ctx context.Context, gameName string) error { return nil },
		WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	if reg.calls < 2 {
		t.Errorf("registry reloaded %d times, want repeated polling", reg.calls)
	}
}

func TestRunSurvivesRegistryErrors(t *testing.T) {
	reg := &staticRegistry{err: errors.New("db closed")}
	w := New(reg, func(ctx context.Context, gameName string) error { return nil },
		WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run returned %v", err)
	}
	if reg.calls < 2 {
		t.Errorf("watcher gave up after %d polls", reg.calls)
	}
}

func TestFindRunningIgnoresUnwatchable(t *testing.T) {
	// No exe path or no saves path means the game cannot be watched; with
	// only such games in the registry the scan must not touch the process
	// table at all.
	reg := &staticRegistry{games: []model.Game{
		{Name: "NoExe", SavesPath: "/saves/a"},
		{Name: "NoSaves", GamePath: "/games/b/b.exe"},
	}}
	w := New(reg, func(ctx context.Context, gameName string) error { return nil })

	game, proc := w.findRunning(context.Background(), reg.games)
	if game != nil || proc != nil {
		t.Errorf("expected no match, got %v %v", game, proc)
	}
}
