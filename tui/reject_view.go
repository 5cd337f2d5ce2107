// ABOUTME: Rejection form for the TUI
// ABOUTME: Collects the reason that becomes the message's invalid reason
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) renderRejectView() string {
	item, ok := m.selected()
	if !ok {
		return "No message selected"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("REJECT @" + item.ProspectHandle))
	s.WriteString("\n\n")
	s.WriteString("> ")
	s.WriteString(m.notes.View())
	s.WriteString("\n\n")
	s.WriteString(m.renderStatusLine())
	s.WriteString(helpStyle.Render("Enter: Reject • Esc: Cancel"))
	return s.String()
}

func (m Model) handleRejectKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.notes.Blur()
		m.viewMode = ViewList
		return m, nil
	case "enter":
		item, ok := m.selected()
		if !ok {
			m.viewMode = ViewList
			return m, nil
		}
		m.notes.Blur()
		return m, m.review(item.ID, false, strings.TrimSpace(m.notes.Value()))
	}

	var cmd tea.Cmd
	m.notes, cmd = m.notes.Update(msg)
	return m, cmd
}
