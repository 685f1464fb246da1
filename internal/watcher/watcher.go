// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// package watcher polls the process table for registered game executables
// and triggers a save sync when a watched game exits. Matching is by
// executable basename, case-insensitive, with a trailing ".exe" stripped so
// registries created on Windows work under Proton/Wine hosts too.
package watcher

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/iamvanilka/mnemy/internal/logging"
	"github.com/iamvanilka/mnemy/internal/model"
)

const (
	defaultStartPoll = 10 * time.Second
	exitPoll         = time.Second
)

// Registry is the subset of the store the watcher needs. Reloading every
// poll round picks up games added or removed while the watcher runs.
type Registry interface {
	GetAllGames() ([]model.Game, error)
}

// SyncFunc is invoked after a watched game exits.
type SyncFunc func(ctx context.Context, gameName string) error

// Notifier receives watcher lifecycle events, e.g. for the TUI status line.
type Notifier func(event, gameName string)

// Watcher runs the start/exit polling loops.
type Watcher struct {
	registry  Registry
	sync      SyncFunc
	startPoll time.Duration
	notify    Notifier
}

func New(registry Registry, sync SyncFunc, opts ...Option) *Watcher {
	w := &Watcher{
		registry:  registry,
		sync:      sync,
		startPoll: defaultStartPoll,
		notify:    func(string, string) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type Option func(*Watcher)

// WithPollInterval overrides the start-detection interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.startPoll = d
		}
	}
}

// WithNotifier installs an event callback.
func WithNotifier(n Notifier) Option {
	return func(w *Watcher) {
		if n != nil {
			w.notify = n
		}
	}
}

// Run blocks until ctx is cancelled. Each round it reloads the registry,
// scans the process table for a watchable game, and when one is running it
// switches to a tight exit poll on that process. Sync failures are logged
// and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	logging.Infof("watcher: started, polling every %s", w.startPoll)
	ticker := time.NewTicker(w.startPoll)
	defer ticker.Stop()

	for {
		games, err := w.registry.GetAllGames()
		if err != nil {
			logging.Errorf("watcher: reading registry: %v", err)
		} else if game, proc := w.findRunning(ctx, games); game != nil {
			logging.Infof("watcher: %q is running (pid %d)", game.Name, proc.Pid)
			w.notify("running", game.Name)
			w.awaitExit(ctx, proc)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Infof("watcher: %q exited, syncing saves", game.Name)
			w.notify("exited", game.Name)
			if err := w.sync(ctx, game.Name); err != nil {
				logging.Errorf("watcher: sync after %q exit failed: %v", game.Name, err)
				w.notify("sync_failed", game.Name)
			} else {
				w.notify("synced", game.Name)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// findRunning returns the first watchable game with a live process.
func (w *Watcher) findRunning(ctx context.Context, games []model.Game) (*model.Game, *process.Process) {
	watched := make(map[string]*model.Game)
	for i := range games {
		g := &games[i]
		if !g.Watchable() {
			continue
		}
		watched[NormalizeExeName(g.ExeName())] = g
	}
	if len(watched) == 0 {
		return nil, nil
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		logging.Errorf("watcher: listing processes: %v", err)
		return nil, nil
	}
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if g, ok := watched[NormalizeExeName(name)]; ok {
			return g, p
		}
	}
	return nil, nil
}

// awaitExit polls the process once a second until it is gone.
func (w *Watcher) awaitExit(ctx context.Context, p *process.Process) {
	ticker := time.NewTicker(exitPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			running, err := p.IsRunningWithContext(ctx)
			if err != nil || !running {
				return
			}
		}
	}
}

// NormalizeExeName lowercases a process name and strips a trailing ".exe"
// or stray trailing dot so names compare the same across platforms.
func NormalizeExeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimSuffix(name, ".")
	return name
}
