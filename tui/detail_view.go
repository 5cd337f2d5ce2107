// ABOUTME: Detail view for one pending upload
// ABOUTME: Shows the OCR reading next to the resolved prospect and cycle
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/canvass/models"
)

var snippetStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240")).
	Padding(0, 1)

func (m Model) renderDetailView() string {
	item, ok := m.selected()
	if !ok {
		return "No message selected"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(models.StageLabel(item.Stage) + " for @" + item.ProspectHandle))
	s.WriteString("\n\n")

	field := func(label, value string) {
		if value == "" {
			value = "-"
		}
		s.WriteString(labelStyle.Render(label))
		s.WriteString(value)
		s.WriteString("\n")
	}
	field("Message", item.ID.String())
	field("Staff", fmt.Sprint(item.StaffID))
	field("OCR handle", item.OCRHandle)
	field("Category", item.Category)
	field("Channel", item.Channel)
	field("Outcome", item.InteractionStatus)
	field("Cycle status", string(item.CycleStatus))
	field("Submitted", item.SubmittedAt.Format("2006-01-02 15:04"))
	if item.OCRDate != nil {
		field("Chat date", item.OCRDate.Format("2006-01-02"))
	}
	field("Screenshot", item.ScreenshotKey)

	s.WriteString("\n")
	snippet := item.OCRMessageSnippet
	if snippet == "" {
		snippet = "(no message text was read)"
	}
	s.WriteString(snippetStyle.Width(min(m.width-4, 80)).Render(snippet))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatusLine())
	s.WriteString(helpStyle.Render("a: Approve • r: Reject • Esc: Back"))
	return s.String()
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.viewMode = ViewList
	case "a":
		if item, ok := m.selected(); ok {
			return m, m.review(item.ID, true, "")
		}
	case "r":
		return m.startReject()
	}
	return m, nil
}
