// ABOUTME: Pending review list view for the TUI
// ABOUTME: Renders the queue as a table and handles navigation and quick review keys
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/canvass/models"
)

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf("REVIEW QUEUE (%d pending)", len(m.items))))
	s.WriteString("\n\n")

	switch {
	case m.loading:
		s.WriteString("Loading...")
	case len(m.items) == 0:
		s.WriteString("Nothing to review.")
	default:
		s.WriteString(m.renderTable())
	}
	s.WriteString("\n\n")

	s.WriteString(m.renderStatusLine())
	s.WriteString(m.renderListHelp())
	return s.String()
}

func (m Model) renderTable() string {
	columns := []table.Column{
		{Title: "Stage", Width: 12},
		{Title: "Prospect", Width: 24},
		{Title: "OCR handle", Width: 24},
		{Title: "Staff", Width: 6},
		{Title: "Submitted", Width: 16},
	}

	rows := make([]table.Row, 0, len(m.items))
	for _, item := range m.items {
		rows = append(rows, table.Row{
			models.StageLabel(item.Stage),
			item.ProspectHandle,
			item.OCRHandle,
			fmt.Sprint(item.StaffID),
			item.SubmittedAt.Format("2006-01-02 15:04"),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-10, 3)),
	)
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}
	return t.View()
}

func (m Model) renderStatusLine() string {
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	if m.status != "" {
		return statusStyle.Render(m.status) + "\n"
	}
	return ""
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Enter: Details",
		"a: Approve",
		"r: Reject",
		"A: Approve all",
		"ctrl+r: Reload",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < len(m.items)-1 {
			m.selectedRow++
		}
	case "enter":
		if _, ok := m.selected(); ok {
			m.viewMode = ViewDetail
		}
	case "a":
		if item, ok := m.selected(); ok {
			return m, m.review(item.ID, true, "")
		}
	case "r":
		return m.startReject()
	case "A":
		if len(m.items) > 0 {
			m.viewMode = ViewConfirmApproveAll
		}
	case "ctrl+r":
		m.loading = true
		return m, m.loadPending()
	}
	return m, nil
}
