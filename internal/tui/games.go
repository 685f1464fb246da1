// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// This file implements the game management view: the registry list with
// filtering, an add/edit form, and sync/pull/delete actions.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iamvanilka/mnemy/internal/i18n"
	"github.com/iamvanilka/mnemy/internal/model"
)

// gamesUIState tracks which interaction mode the games view is in.
type gamesUIState int

const (
	gamesListState gamesUIState = iota
	gamesFormState
	gamesConfirmDeleteState
)

// gameActionMsg reports the outcome of an async sync/pull operation.
type gameActionMsg struct {
	gameName string
	action   string
	err      error
}

// gamesModel holds the state for the game management view.
type gamesModel struct {
	svc   Services
	state gamesUIState

	games    []model.Game
	filtered []model.Game
	cursor   int
	filter   textinput.Model
	viewport viewport.Model
	ready    bool

	// Form state. editing is nil when adding a new game.
	editing    *model.Game
	formInputs []textinput.Model
	formFocus  int

	// Delete confirmation state.
	deleteTarget  *model.Game
	deleteServer  bool
	deleteBackups bool
	confirmCursor int

	status string
	err    error
}

func newGamesModel(svc Services) gamesModel {
	filter := textinput.New()
	filter.Placeholder = i18n.T("games.filter_placeholder")
	filter.Prompt = "/ "

	m := gamesModel{svc: svc, filter: filter}
	m.reload()
	return m
}

func (m *gamesModel) reload() {
	games, err := m.svc.Store.GetAllGames()
	if err != nil {
		m.err = err
		return
	}
	m.games = games
	m.applyFilter()
}

func (m *gamesModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	if needle == "" {
		m.filtered = m.games
	} else {
		m.filtered = nil
		for _, g := range m.games {
			if strings.Contains(strings.ToLower(g.Name), needle) {
				m.filtered = append(m.filtered, g)
			}
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = 0
	}
}

func (m gamesModel) Init() tea.Cmd { return nil }

func (m *gamesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 6
		footerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		return m, nil

	case gameActionMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(i18n.T("games.action_failed", msg.action, msg.gameName, msg.err))
		} else {
			m.status = statusMessageStyle.Render(i18n.T("games.action_done", msg.action, msg.gameName))
		}
		m.reload()
		return m, nil
	}

	switch m.state {
	case gamesFormState:
		return m.updateForm(msg)
	case gamesConfirmDeleteState:
		return m.updateConfirmDelete(msg)
	default:
		return m.updateList(msg)
	}
}

func (m *gamesModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.filter.Focused() {
		switch keyMsg.String() {
		case "enter", "esc":
			m.filter.Blur()
		default:
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}
		return m, nil
	}

	switch keyMsg.String() {
	case "q", "esc":
		return m, func() tea.Msg { return backToMenuMsg{} }
	case "/":
		m.filter.Focus()
		return m, textinput.Blink
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
	case "a":
		m.openForm(nil)
		return m, textinput.Blink
	case "e", "enter":
		if g := m.selected(); g != nil {
			m.openForm(g)
			return m, textinput.Blink
		}
	case "s":
		if g := m.selected(); g != nil {
			m.status = statusMessageStyle.Render(i18n.T("games.syncing", g.Name))
			return m, m.syncCmd(g.Name)
		}
	case "p":
		if g := m.selected(); g != nil {
			m.status = statusMessageStyle.Render(i18n.T("games.pulling", g.Name))
			return m, m.pullCmd(g.Name)
		}
	case "d":
		if g := m.selected(); g != nil {
			m.state = gamesConfirmDeleteState
			m.deleteTarget = g
			m.deleteServer = false
			m.deleteBackups = false
			m.confirmCursor = 0
		}
	}
	return m, nil
}

func (m *gamesModel) selected() *model.Game {
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	g := m.filtered[m.cursor]
	return &g
}

func (m *gamesModel) openForm(g *model.Game) {
	m.editing = g
	m.formInputs = make([]textinput.Model, 3)
	labels := []string{
		i18n.T("games.form.name"),
		i18n.T("games.form.saves_path"),
		i18n.T("games.form.game_path"),
	}
	for i := range m.formInputs {
		ti := textinput.New()
		ti.Placeholder = labels[i]
		ti.Width = 50
		m.formInputs[i] = ti
	}
	if g != nil {
		m.formInputs[0].SetValue(g.Name)
		m.formInputs[1].SetValue(g.SavesPath)
		m.formInputs[2].SetValue(g.GamePath)
	}
	m.formFocus = 0
	m.formInputs[0].Focus()
	m.state = gamesFormState
}

func (m *gamesModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, m.updateFormInputs(msg)
	}

	switch keyMsg.String() {
	case "esc":
		m.state = gamesListState
		return m, nil
	case "tab", "down":
		m.formFocus = (m.formFocus + 1) % len(m.formInputs)
		return m, m.focusFormInput()
	case "shift+tab", "up":
		m.formFocus = (m.formFocus - 1 + len(m.formInputs)) % len(m.formInputs)
		return m, m.focusFormInput()
	case "enter":
		return m.submitForm()
	}
	return m, m.updateFormInputs(msg)
}

func (m *gamesModel) focusFormInput() tea.Cmd {
	for i := range m.formInputs {
		if i == m.formFocus {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
	return textinput.Blink
}

func (m *gamesModel) updateFormInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(m.formInputs))
	for i := range m.formInputs {
		m.formInputs[i], cmds[i] = m.formInputs[i].Update(msg)
	}
	return tea.Batch(cmds...)
}

func (m *gamesModel) submitForm() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.formInputs[0].Value())
	savesPath := strings.TrimSpace(m.formInputs[1].Value())
	gamePath := strings.TrimSpace(m.formInputs[2].Value())
	if name == "" {
		m.status = errorStyle.Render(i18n.T("games.form.name_required"))
		return m, nil
	}

	if m.editing == nil {
		if _, err := m.svc.Store.AddGame(name, gamePath, savesPath, ""); err != nil {
			m.status = errorStyle.Render(err.Error())
			return m, nil
		}
		m.status = statusMessageStyle.Render(i18n.T("games.added", name))
	} else {
		update := model.GameUpdate{SavesPath: &savesPath, GamePath: &gamePath}
		if err := m.svc.Store.UpdateGame(m.editing.ID, update); err != nil {
			m.status = errorStyle.Render(err.Error())
			return m, nil
		}
		if name != m.editing.Name {
			if err := m.svc.Store.RenameGame(m.editing.Name, name); err != nil {
				m.status = errorStyle.Render(err.Error())
				return m, nil
			}
			// Keep the server's registry in step with the local rename.
			old := m.editing.Name
			go func() {
				_ = m.svc.Client.UpdateGameName(context.Background(), old, name)
			}()
		}
		m.status = statusMessageStyle.Render(i18n.T("games.updated", name))
	}

	m.state = gamesListState
	m.reload()
	return m, nil
}

func (m *gamesModel) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "esc", "n":
		m.state = gamesListState
		m.deleteTarget = nil
	case "left", "right", "tab":
		m.confirmCursor = 1 - m.confirmCursor
	case " ":
		m.deleteServer = !m.deleteServer
		if !m.deleteServer {
			m.deleteBackups = false
		}
	case "b":
		// Backups can only go when the server copy goes too.
		if m.deleteServer {
			m.deleteBackups = !m.deleteBackups
		}
	case "enter", "y":
		if keyMsg.String() == "enter" && m.confirmCursor != 0 {
			m.state = gamesListState
			m.deleteTarget = nil
			return m, nil
		}
		target := m.deleteTarget
		m.state = gamesListState
		m.deleteTarget = nil
		if target == nil {
			return m, nil
		}
		if err := m.svc.Store.DeleteGame(target.ID); err != nil {
			m.status = errorStyle.Render(err.Error())
			return m, nil
		}
		_ = m.svc.Store.LogAction("remove", target.Name, "")
		if m.deleteServer {
			name := target.Name
			withBackups := m.deleteBackups
			go func() {
				_ = m.svc.Client.DeleteGame(context.Background(), name, withBackups)
			}()
		}
		m.status = statusMessageStyle.Render(i18n.T("games.removed", target.Name))
		m.reload()
	}
	return m, nil
}

func (m *gamesModel) syncCmd(gameName string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.Syncer.Sync(context.Background(), gameName)
		action := "sync"
		if err == nil && res.Pulled {
			action = "pull"
		}
		return gameActionMsg{gameName: gameName, action: action, err: err}
	}
}

func (m *gamesModel) pullCmd(gameName string) tea.Cmd {
	return func() tea.Msg {
		err := m.svc.Syncer.Pull(context.Background(), gameName)
		return gameActionMsg{gameName: gameName, action: "pull", err: err}
	}
}

func (m *gamesModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	switch m.state {
	case gamesFormState:
		return m.formView()
	case gamesConfirmDeleteState:
		return m.confirmDeleteView()
	}

	title := titleStyle.Render("🎮 " + i18n.T("games.title"))

	var rows []string
	for i, g := range m.filtered {
		line := g.Name
		if g.SavesPath == "" {
			line += " " + specialStyle.Render(i18n.T("games.no_saves_path"))
		}
		if g.LastSyncDate != nil {
			line += " " + helpStyle.Render(g.LastSyncDate.Format("2006-01-02 15:04"))
		} else {
			line += " " + helpStyle.Render(i18n.T("games.never_synced"))
		}
		if i == m.cursor {
			rows = append(rows, selectedItemStyle.Render("▸ "+line))
		} else {
			rows = append(rows, itemStyle.Render("  "+line))
		}
	}
	if len(rows) == 0 {
		rows = append(rows, helpStyle.Render(i18n.T("games.empty")))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	if m.ready {
		m.viewport.SetContent(body)
		body = m.viewport.View()
	}

	var parts []string
	parts = append(parts, title)
	if m.filter.Focused() || m.filter.Value() != "" {
		parts = append(parts, m.filter.View())
	}
	parts = append(parts, body)
	if m.status != "" {
		parts = append(parts, m.status)
	}
	parts = append(parts, helpStyle.Render(i18n.T("games.help")))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *gamesModel) formView() string {
	header := i18n.T("games.form.add_title")
	if m.editing != nil {
		header = i18n.T("games.form.edit_title", m.editing.Name)
	}

	var fields []string
	fields = append(fields, titleStyle.Render(header), "")
	labels := []string{
		i18n.T("games.form.name"),
		i18n.T("games.form.saves_path"),
		i18n.T("games.form.game_path"),
	}
	for i, input := range m.formInputs {
		fields = append(fields, helpStyle.Render(labels[i]), input.View(), "")
	}
	fields = append(fields, helpStyle.Render(i18n.T("games.form.help")))
	if m.status != "" {
		fields = append(fields, m.status)
	}
	return dialogBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, fields...))
}

func (m *gamesModel) confirmDeleteView() string {
	if m.deleteTarget == nil {
		return ""
	}
	question := i18n.T("games.delete.question", m.deleteTarget.Name)
	serverBox := "[ ]"
	if m.deleteServer {
		serverBox = "[x]"
	}
	serverLine := serverBox + " " + i18n.T("games.delete.also_server")
	backupsBox := "[ ]"
	if m.deleteBackups {
		backupsBox = "[x]"
	}
	backupsLine := backupsBox + " " + i18n.T("games.delete.also_backups")
	if !m.deleteServer {
		backupsLine = helpStyle.Render(backupsLine)
	}

	yes := buttonStyle.Render(i18n.T("common.yes"))
	no := activeButtonStyle.Render(i18n.T("common.no"))
	if m.confirmCursor == 0 {
		yes = activeButtonStyle.Render(i18n.T("common.yes"))
		no = buttonStyle.Render(i18n.T("common.no"))
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top, yes, "  ", no)

	return dialogBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		specialStyle.Render(question), "", serverLine, backupsLine, "", buttons))
}
