// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// This file implements the server backups view: a table of the backups the
// server holds per game, with restore and delete actions.
package tui

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iamvanilka/mnemy/internal/i18n"
	"github.com/iamvanilka/mnemy/internal/model"
)

type backupsUIState int

const (
	backupsListState backupsUIState = iota
	backupsConfirmState
)

// backupsLoadedMsg carries the flattened backup list from the server.
type backupsLoadedMsg struct {
	backups []model.Backup
	err     error
}

// backupActionMsg reports the outcome of a restore or delete.
type backupActionMsg struct {
	action string
	backup model.Backup
	err    error
}

type backupsModel struct {
	svc   Services
	state backupsUIState

	backups []model.Backup
	table   table.Model
	loading bool

	// Pending confirmation.
	pendingAction string // "restore" or "delete"
	pendingBackup *model.Backup
	confirmCursor int

	status string
	err    error
}

func newBackupsModel(svc Services) backupsModel {
	columns := []table.Column{
		{Title: i18n.T("backups.col.game"), Width: 24},
		{Title: i18n.T("backups.col.name"), Width: 32},
		{Title: i18n.T("backups.col.size"), Width: 10},
		{Title: i18n.T("backups.col.date"), Width: 17},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(14),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).Foreground(colorHighlight)
	s.Selected = s.Selected.Foreground(colorWhite).Background(lipgloss.Color("237"))
	t.SetStyles(s)

	return backupsModel{svc: svc, table: t, loading: true}
}

func (m backupsModel) Init() tea.Cmd {
	return loadBackupsCmd(m.svc)
}

func loadBackupsCmd(svc Services) tea.Cmd {
	return func() tea.Msg {
		byGame, err := svc.Client.BackupsData(context.Background())
		if err != nil {
			return backupsLoadedMsg{err: err}
		}
		var flat []model.Backup
		for _, items := range byGame {
			flat = append(flat, items...)
		}
		sort.Slice(flat, func(i, j int) bool {
			if flat[i].GameName != flat[j].GameName {
				return flat[i].GameName < flat[j].GameName
			}
			return flat[i].CreatedAt.After(flat[j].CreatedAt)
		})
		return backupsLoadedMsg{backups: flat}
	}
}

func (m *backupsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 8)
		return m, nil

	case backupsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.backups = msg.backups
		m.refreshRows()
		return m, nil

	case backupActionMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(i18n.T("backups.action_failed", msg.action, msg.err))
			return m, nil
		}
		m.status = statusMessageStyle.Render(i18n.T("backups.action_done", msg.action, msg.backup.Name))
		m.loading = true
		return m, loadBackupsCmd(m.svc)
	}

	if m.state == backupsConfirmState {
		return m.updateConfirm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "q", "esc":
			return m, func() tea.Msg { return backToMenuMsg{} }
		case "r":
			if b := m.selected(); b != nil {
				m.pendingAction = "restore"
				m.pendingBackup = b
				m.confirmCursor = 1
				m.state = backupsConfirmState
			}
			return m, nil
		case "d":
			if b := m.selected(); b != nil {
				m.pendingAction = "delete"
				m.pendingBackup = b
				m.confirmCursor = 1
				m.state = backupsConfirmState
			}
			return m, nil
		case "R":
			m.loading = true
			return m, loadBackupsCmd(m.svc)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *backupsModel) selected() *model.Backup {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.backups) {
		return nil
	}
	b := m.backups[idx]
	return &b
}

func (m *backupsModel) refreshRows() {
	rows := make([]table.Row, 0, len(m.backups))
	for _, b := range m.backups {
		date := ""
		if !b.CreatedAt.IsZero() {
			date = b.CreatedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, table.Row{b.GameName, b.Name, formatSize(b.Size), date})
	}
	m.table.SetRows(rows)
}

func (m *backupsModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "esc", "n":
		m.state = backupsListState
		m.pendingBackup = nil
	case "left", "right", "tab":
		m.confirmCursor = 1 - m.confirmCursor
	case "enter", "y":
		if keyMsg.String() == "enter" && m.confirmCursor != 0 {
			m.state = backupsListState
			m.pendingBackup = nil
			return m, nil
		}
		action, backup := m.pendingAction, m.pendingBackup
		m.state = backupsListState
		m.pendingBackup = nil
		if backup == nil {
			return m, nil
		}
		return m, m.actionCmd(action, *backup)
	}
	return m, nil
}

func (m *backupsModel) actionCmd(action string, b model.Backup) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		switch action {
		case "restore":
			err = m.svc.Syncer.Restore(ctx, b.GameName, b.Name)
		case "delete":
			_, err = m.svc.Client.DeleteBackup(ctx, b.GameName, b.Name)
		}
		return backupActionMsg{action: action, backup: b, err: err}
	}
}

func (m *backupsModel) View() string {
	title := titleStyle.Render("🗄  " + i18n.T("backups.title"))

	if m.err != nil {
		return lipgloss.JoinVertical(lipgloss.Left, title,
			errorStyle.Render(fmt.Sprintf("Error: %v", m.err)),
			helpStyle.Render(i18n.T("backups.help")))
	}
	if m.loading {
		return lipgloss.JoinVertical(lipgloss.Left, title, helpStyle.Render(i18n.T("backups.loading")))
	}

	if m.state == backupsConfirmState && m.pendingBackup != nil {
		question := i18n.T("backups.confirm."+m.pendingAction, m.pendingBackup.Name, m.pendingBackup.GameName)
		yes := buttonStyle.Render(i18n.T("common.yes"))
		no := activeButtonStyle.Render(i18n.T("common.no"))
		if m.confirmCursor == 0 {
			yes = activeButtonStyle.Render(i18n.T("common.yes"))
			no = buttonStyle.Render(i18n.T("common.no"))
		}
		buttons := lipgloss.JoinHorizontal(lipgloss.Top, yes, "  ", no)
		return dialogBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
			specialStyle.Render(question), "", buttons))
	}

	var parts []string
	parts = append(parts, title)
	if len(m.backups) == 0 {
		parts = append(parts, helpStyle.Render(i18n.T("backups.empty")))
	} else {
		parts = append(parts, m.table.View())
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	parts = append(parts, helpStyle.Render(i18n.T("backups.help")))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// formatSize renders a byte count in a human unit.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
