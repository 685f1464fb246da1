// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package tui

import (
	"strings"
	"testing"
)

func TestAlignFooter(t *testing.T) {
	got := AlignFooter("left", "right", 20)
	if len(got) != 20 {
		t.Errorf("len = %d: %q", len(got), got)
	}
	if !strings.HasPrefix(got, "left") || !strings.HasSuffix(got, "right") {
		t.Errorf("layout wrong: %q", got)
	}
}

func TestAlignFooterNarrowWidth(t *testing.T) {
	got := AlignFooter("a long left side", "right", 5)
	if got != "a long left side right" {
		t.Errorf("narrow width = %q", got)
	}
}

func TestFormatLabelPadding(t *testing.T) {
	got := formatLabelPadding("Games", "3", 10)
	if got != "Games      3" {
		t.Errorf("padded = %q", got)
	}
	if formatLabelPadding("Longestlabel", "x", 5) != "Longestlabel x" {
		t.Error("oversized label should fall back to a single space")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	got := truncate("a very long detail string", 10)
	if len([]rune(got)) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate = %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, c := range cases {
		if got := formatSize(c.in); got != c.want {
			t.Errorf("formatSize(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMenuNavigation(t *testing.T) {
	m := initialModel(Services{})
	if m.state != menuView {
		t.Fatal("should start at the menu")
	}
	if len(m.menu.choices) != 4 {
		t.Errorf("menu has %d entries", len(m.menu.choices))
	}
}
