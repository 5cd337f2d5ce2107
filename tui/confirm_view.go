// ABOUTME: Approve-all confirmation dialog for the TUI
// ABOUTME: Guards the bulk approval of every pending upload in the queue
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("10")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("28")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) renderConfirmView() string {
	scope := "every staff member"
	if m.staffFilter != 0 {
		scope = fmt.Sprintf("staff %d", m.staffFilter)
	}

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Approve all (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)
	content := lipgloss.JoinVertical(
		lipgloss.Center,
		titleStyle.Render("APPROVE ALL"),
		fmt.Sprintf("Approve %s pending for %s?", pluralize(len(m.items), "upload"), scope),
		"",
		buttons,
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, confirmBoxStyle.Render(content))
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		return m, m.approveAll()
	case "n", "N", "esc":
		m.viewMode = ViewList
	}
	return m, nil
}
