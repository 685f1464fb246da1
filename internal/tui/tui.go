// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// package tui provides the terminal user interface for Mnemy.
// This file, tui.go, is the main entry point for the TUI, containing the
// top-level model that acts as a router to all other sub-views.
package tui

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iamvanilka/mnemy/internal/api"
	"github.com/iamvanilka/mnemy/internal/db"
	"github.com/iamvanilka/mnemy/internal/i18n"
	"github.com/iamvanilka/mnemy/internal/logging"
	"github.com/iamvanilka/mnemy/internal/model"
	"github.com/iamvanilka/mnemy/internal/syncer"
)

// viewState represents which part of the UI is currently active.
type viewState int

const (
	// menuView is the main dashboard and navigation menu.
	menuView viewState = iota
	gamesView
	backupsView
	languageView
)

// Services bundles the backends the TUI operates on. SaveLanguage persists
// a language switch to the config file; it may be nil in tests.
type Services struct {
	Store        db.Store
	Client       *api.Client
	Syncer       *syncer.Syncer
	SaveLanguage func(lang string) error
}

// dashboardDataMsg is a message containing the data for the main menu dashboard.
type dashboardDataMsg struct {
	data dashboardData
}

// languageChangedMsg signals that the language has changed and the UI should
// be re-initialized.
type languageChangedMsg struct{}

// backToMenuMsg is emitted by sub-views when the user backs out.
type backToMenuMsg struct{}

// dashboardData holds the summary information for the main menu view.
type dashboardData struct {
	gameCount      int
	watchableCount int
	neverSynced    int
	serverHost     string
	serverOnline   bool
	tokenValid     bool
	recentLog      []model.SyncLogEntry
	err            error
}

// mainModel is the top-level model for the TUI. It acts as a state machine
// and router, delegating updates and view rendering to the currently active
// sub-model.
type mainModel struct {
	svc       Services
	state     viewState
	menu      menuModel
	games     *gamesModel
	backups   *backupsModel
	language  languageModel
	dashboard dashboardData
	width     int
	height    int
	err       error
}

// menuModel holds the state for the main menu.
type menuModel struct {
	choices []string
	cursor  int
}

// languageModel holds the state for the language selection menu.
type languageModel struct {
	choices     map[string]string // map of lang code to display name
	orderedKeys []string          // for stable iteration
	cursor      int
}

func initialModel(svc Services) mainModel {
	return mainModel{
		svc:   svc,
		state: menuView,
		menu: menuModel{
			choices: []string{
				i18n.T("menu.manage_games"),
				i18n.T("menu.view_backups"),
				i18n.T("menu.sync_all"),
				i18n.T("menu.language"),
			},
		},
	}
}

// Init kicks off the initial command to load data for the dashboard.
func (m mainModel) Init() tea.Cmd {
	return refreshDashboardCmd(m.svc)
}

// Update is the main message loop. It handles all events and delegates them
// to the active sub-model.
func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings that work everywhere.
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case dashboardDataMsg:
		m.dashboard = msg.data
		if msg.data.err != nil {
			m.err = msg.data.err
		}
		return m, nil

	case languageChangedMsg:
		// Re-initialize the entire model to apply new translations everywhere,
		// preserving the current window dimensions.
		newModel := initialModel(m.svc)
		newModel.width = m.width
		newModel.height = m.height
		return newModel, newModel.Init()
	}

	// Delegate updates to the currently active view.
	switch m.state {
	case gamesView:
		if _, ok := msg.(backToMenuMsg); ok {
			m.state = menuView
			return m, refreshDashboardCmd(m.svc)
		}
		var newGamesModel tea.Model
		newGamesModel, cmd = m.games.Update(msg)
		if newModel, ok := newGamesModel.(*gamesModel); ok {
			m.games = newModel
		}

	case backupsView:
		if _, ok := msg.(backToMenuMsg); ok {
			m.state = menuView
			return m, refreshDashboardCmd(m.svc)
		}
		var newBackupsModel tea.Model
		newBackupsModel, cmd = m.backups.Update(msg)
		if newModel, ok := newBackupsModel.(*backupsModel); ok {
			m.backups = newModel
		}

	case languageView:
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "q", "esc":
				m.state = menuView
				return m, refreshDashboardCmd(m.svc)
			case "up", "k":
				if m.language.cursor > 0 {
					m.language.cursor--
				}
			case "down", "j":
				if m.language.cursor < len(m.language.orderedKeys)-1 {
					m.language.cursor++
				}
			case "enter":
				langCode := m.language.orderedKeys[m.language.cursor]
				i18n.SetLang(langCode)
				if m.svc.SaveLanguage != nil {
					if err := m.svc.SaveLanguage(langCode); err != nil {
						m.err = fmt.Errorf("failed to save config: %w", err)
					}
				}
				return m, func() tea.Msg { return languageChangedMsg{} }
			}
		}

	default: // menuView
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "q":
				return m, tea.Quit
			case "up", "k":
				if m.menu.cursor > 0 {
					m.menu.cursor--
				}
			case "down", "j":
				if m.menu.cursor < len(m.menu.choices)-1 {
					m.menu.cursor++
				}
			case "enter":
				switch m.menu.cursor {
				case 0: // Manage Games
					m.state = gamesView
					newModel := newGamesModel(m.svc)
					m.games = &newModel
					var updatedModel tea.Model
					updatedModel, cmd = m.games.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
					m.games = updatedModel.(*gamesModel)
					return m, cmd
				case 1: // View Backups
					m.state = backupsView
					newModel := newBackupsModel(m.svc)
					m.backups = &newModel
					var updatedModel tea.Model
					updatedModel, cmd = m.backups.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
					m.backups = updatedModel.(*backupsModel)
					return m, tea.Batch(cmd, m.backups.Init())
				case 2: // Sync All
					return m, syncAllCmd(m.svc)
				case 3: // Language
					m.state = languageView
					m.language = newLanguageModel()
					return m, nil
				}
			case "L":
				m.state = languageView
				m.language = newLanguageModel()
				return m, nil
			}
		}
	}

	return m, cmd
}

// View renders the TUI. It delegates rendering to the currently active
// sub-model.
func (m mainModel) View() string {
	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(1, 2)
		return errStyle.Render(fmt.Sprintf("An error occurred: %v", m.err))
	}

	switch m.state {
	case gamesView:
		return m.games.View()
	case backupsView:
		return m.backups.View()
	case languageView:
		return m.language.View()
	default:
		return m.menu.View(m.dashboard, m.width, m.height)
	}
}

// formatLabelPadding formats a label/value pair with the value column aligned.
func formatLabelPadding(label, value string, labelWidth int) string {
	if labelWidth <= 0 || len(label) >= labelWidth {
		return label + " " + value
	}
	return label + strings.Repeat(" ", labelWidth-len(label)) + " " + value
}

// View renders the main menu and dashboard.
func (m menuModel) View(data dashboardData, width, height int) string {
	title := mainTitleStyle.Render("💾 " + i18n.T("dashboard.title"))
	subTitle := helpStyle.Render(i18n.T("dashboard.subtitle"))
	header := lipgloss.JoinVertical(lipgloss.Left, title, subTitle)

	paneTitleStyle := lipgloss.NewStyle().Bold(true)

	// Menu list (left pane)
	var menuItems []string
	menuItems = append(menuItems, paneTitleStyle.Render(i18n.T("menu.navigation")), "")
	for i, choice := range m.choices {
		if m.cursor == i {
			menuItems = append(menuItems, selectedItemStyle.Render("▸ "+choice))
		} else {
			menuItems = append(menuItems, itemStyle.Render("  "+choice))
		}
	}
	menuContent := lipgloss.JoinVertical(lipgloss.Left, menuItems...)

	// Dashboard (right pane)
	var dashboardItems []string
	dashboardItems = append(dashboardItems, paneTitleStyle.Render(i18n.T("dashboard.status")), "")

	host := data.serverHost
	if host == "" {
		host = i18n.T("dashboard.no_server")
	}
	serverStatus := errorStyle.Render(i18n.T("dashboard.server_offline"))
	if data.serverOnline {
		serverStatus = successStyle.Render(i18n.T("dashboard.server_online"))
	}
	tokenStatus := errorStyle.Render(i18n.T("dashboard.token_invalid"))
	if data.tokenValid {
		tokenStatus = successStyle.Render(i18n.T("dashboard.token_valid"))
	}

	statusItems := []struct {
		label string
		value string
	}{
		{i18n.T("dashboard.games"), fmt.Sprintf("%d (%d %s)", data.gameCount, data.watchableCount, i18n.T("dashboard.watchable"))},
		{i18n.T("dashboard.never_synced"), fmt.Sprintf("%d", data.neverSynced)},
		{i18n.T("dashboard.server"), host},
		{i18n.T("dashboard.connection"), serverStatus},
		{i18n.T("dashboard.token"), tokenStatus},
	}

	maxLabelLen := 0
	for _, item := range statusItems {
		if len(item.label) > maxLabelLen {
			maxLabelLen = len(item.label)
		}
	}
	for _, item := range statusItems {
		dashboardItems = append(dashboardItems, formatLabelPadding(item.label, item.value, maxLabelLen))
	}

	// Recent activity
	dashboardItems = append(dashboardItems, "", "", paneTitleStyle.Render(i18n.T("dashboard.recent_activity")), "")

	// Layout
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footerStyle.Render(""))
	paneHeight := height - headerHeight - footerHeight - 2

	menuWidth := 34
	dashboardWidth := width - 4 - menuWidth - 2

	if len(data.recentLog) == 0 {
		dashboardItems = append(dashboardItems, helpStyle.Render(i18n.T("dashboard.no_recent_activity")))
	} else {
		for _, entry := range data.recentLog {
			ts := entry.Timestamp
			if len(ts) >= 16 {
				ts = ts[5:16] // MM-DD HH:MM
			}
			line := lipgloss.JoinHorizontal(lipgloss.Left,
				helpStyle.Render(ts), " ",
				syncActionStyle(entry.Action).Render(entry.Action), " ",
				entry.GameName)
			if entry.Details != "" {
				line += " " + helpStyle.Render(truncate(entry.Details, dashboardWidth/2))
			}
			dashboardItems = append(dashboardItems, line)
		}
	}
	dashboardContent := lipgloss.JoinVertical(lipgloss.Left, dashboardItems...)

	leftPane := paneStyle.Width(menuWidth).Height(paneHeight).Render(menuContent)
	rightPane := paneStyle.Width(dashboardWidth).Height(paneHeight).MarginLeft(2).Render(dashboardContent)
	mainArea := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	footer := footerStyle.Render(AlignFooter(i18n.T("dashboard.footer"), "", width))

	return lipgloss.JoinVertical(lipgloss.Top, header, mainArea, footer)
}

// syncActionStyle colors a sync-log action for display.
func syncActionStyle(action string) lipgloss.Style {
	switch action {
	case "sync", "pull", "restore":
		return successStyle
	case "delete", "remove":
		return specialStyle
	default:
		return itemStyle
	}
}

// truncate shortens s to at most n runes, appending an ellipsis.
func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// newLanguageModel creates a new model for the language selection view.
func newLanguageModel() languageModel {
	choices := i18n.GetAvailableLocales()
	keys := make([]string, 0, len(choices))
	for k := range choices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return languageModel{
		choices:     choices,
		orderedKeys: keys,
	}
}

func (m languageModel) Init() tea.Cmd                           { return nil }
func (m languageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { return m, nil }

func (m languageModel) View() string {
	title := mainTitleStyle.Render("🌐 " + i18n.T("menu.language"))

	var listItems []string
	listItems = append(listItems, titleStyle.Render(i18n.T("language.select")), "")
	for i, langCode := range m.orderedKeys {
		displayName := m.choices[langCode]
		if m.cursor == i {
			listItems = append(listItems, selectedItemStyle.Render("▸ "+displayName))
		} else {
			listItems = append(listItems, itemStyle.Render("  "+displayName))
		}
	}

	listPane := paneStyle.Width(60).Render(lipgloss.JoinVertical(lipgloss.Left, listItems...))
	helpLine := footerStyle.Render(AlignFooter(i18n.T("language.help"), "", 60))

	return lipgloss.JoinVertical(lipgloss.Left, title, "", listPane, "", helpLine)
}

// Run initializes and runs the Bubble Tea program.
func Run(svc Services) {
	if _, err := tea.NewProgram(initialModel(svc)).Run(); err != nil {
		logging.Errorf("TUI run error: %v", err)
		os.Exit(1)
	}
}

// refreshDashboardCmd fetches summary data for the main menu.
func refreshDashboardCmd(svc Services) tea.Cmd {
	return func() tea.Msg {
		data := dashboardData{serverHost: svc.Client.Host()}

		games, err := svc.Store.GetAllGames()
		if err != nil {
			return dashboardDataMsg{data: dashboardData{err: err}}
		}
		data.gameCount = len(games)
		for _, g := range games {
			if g.Watchable() {
				data.watchableCount++
			}
			if g.LastSyncDate == nil {
				data.neverSynced++
			}
		}

		if entries, err := svc.Store.GetSyncLog(8); err == nil {
			data.recentLog = entries
		}

		ctx := context.Background()
		data.serverOnline = svc.Client.Health(ctx, "")
		if data.serverOnline {
			if ok, err := svc.Client.CheckToken(ctx); err == nil {
				data.tokenValid = ok
			}
		}

		return dashboardDataMsg{data: data}
	}
}

// syncAllCmd syncs every game with a configured saves path and refreshes the
// dashboard afterwards.
func syncAllCmd(svc Services) tea.Cmd {
	return func() tea.Msg {
		games, err := svc.Store.GetAllGames()
		if err != nil {
			return dashboardDataMsg{data: dashboardData{err: err}}
		}
		ctx := context.Background()
		for _, g := range games {
			if g.SavesPath == "" {
				continue
			}
			if _, err := svc.Syncer.Sync(ctx, g.Name); err != nil {
				logging.Errorf("sync %q: %v", g.Name, err)
			}
		}
		return refreshDashboardCmd(svc)()
	}
}
