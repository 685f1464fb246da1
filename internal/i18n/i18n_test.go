// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

package i18n

import (
	"strings"
	"testing"
)

func TestTReturnsTranslation(t *testing.T) {
	Init("en")
	got := T("menu.language")
	if got == "menu.language" {
		t.Error("known ID returned as-is; locale not loaded")
	}
}

func TestTFormatsArgs(t *testing.T) {
	Init("en")
	got := T("add.success", "Celeste", 7)
	if !strings.Contains(got, "Celeste") || !strings.Contains(got, "7") {
		t.Errorf("args not interpolated: %q", got)
	}
}

func TestTUnknownIDFallsBack(t *testing.T) {
	Init("en")
	if got := T("no.such.id"); got != "no.such.id" {
		t.Errorf("unknown ID = %q, want the ID itself", got)
	}
}

func TestSetLangSwitches(t *testing.T) {
	Init("en")
	en := T("dashboard.server_online")
	SetLang("ru")
	ru := T("dashboard.server_online")
	if en == ru {
		t.Errorf("ru translation equals en: %q", ru)
	}
	SetLang("en")
}

func TestGetAvailableLocales(t *testing.T) {
	locales := GetAvailableLocales()
	if locales["en"] != "English" {
		t.Errorf("en = %q", locales["en"])
	}
	if locales["ru"] != "Русский" {
		t.Errorf("ru = %q", locales["ru"])
	}
}
