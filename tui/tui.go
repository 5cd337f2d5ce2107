// ABOUTME: Terminal review queue using the bubbletea framework
// ABOUTME: Lets a supervisor approve or reject pending screenshot uploads
package tui

import (
	"context"
	"strconv"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/harperreed/canvass/models"
	"github.com/harperreed/canvass/pipeline"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewReject
	ViewConfirmApproveAll
)

const pendingLimit = 200

// Model is the main bubbletea model
type Model struct {
	supervisor   *pipeline.Supervisor
	supervisorID int64
	staffFilter  int64
	viewMode     ViewMode

	items       []models.MessageView
	selectedRow int
	loading     bool

	notes textinput.Model

	// status is the one-line outcome of the last action
	status string
	err    error

	width  int
	height int
}

// NewModel creates a review queue for supervisorID. A non-zero staffFilter
// limits the queue to one staff member.
func NewModel(supervisor *pipeline.Supervisor, supervisorID, staffFilter int64) Model {
	notes := textinput.New()
	notes.Placeholder = "reason for rejection"
	notes.CharLimit = 1000
	notes.Width = 60

	return Model{
		supervisor:   supervisor,
		supervisorID: supervisorID,
		staffFilter:  staffFilter,
		viewMode:     ViewList,
		loading:      true,
		notes:        notes,
		width:        80,
		height:       24,
	}
}

type pendingLoadedMsg struct {
	items []models.MessageView
	err   error
}

type reviewedMsg struct {
	id       uuid.UUID
	approved bool
	err      error
}

type approvedAllMsg struct {
	count int
	err   error
}

func (m Model) Init() tea.Cmd {
	return m.loadPending()
}

func (m Model) loadPending() tea.Cmd {
	sup, staff := m.supervisor, m.staffFilter
	return func() tea.Msg {
		items, err := sup.Pending(context.Background(), staff, nil, pendingLimit)
		return pendingLoadedMsg{items: items, err: err}
	}
}

func (m Model) review(id uuid.UUID, approved bool, notes string) tea.Cmd {
	sup, who := m.supervisor, m.supervisorID
	return func() tea.Msg {
		_, err := sup.Review(context.Background(), who, id, approved, notes)
		return reviewedMsg{id: id, approved: approved, err: err}
	}
}

func (m Model) approveAll() tea.Cmd {
	sup, who, staff := m.supervisor, m.supervisorID, m.staffFilter
	return func() tea.Msg {
		n, err := sup.ApproveAll(context.Background(), who, staff)
		return approvedAllMsg{count: n, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case pendingLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.items = msg.items
		if m.selectedRow >= len(m.items) {
			m.selectedRow = max(len(m.items)-1, 0)
		}
		return m, nil
	case reviewedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = "Rejected " + msg.id.String()
		if msg.approved {
			m.status = "Approved " + msg.id.String()
		}
		m.viewMode = ViewList
		return m, m.loadPending()
	case approvedAllMsg:
		m.viewMode = ViewList
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = pluralize(msg.count, "message") + " approved"
		return m, m.loadPending()
	}

	if m.viewMode == ViewReject {
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewReject:
		return m.renderRejectView()
	case ViewConfirmApproveAll:
		return m.renderConfirmView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	// q types into the notes field while rejecting
	if msg.String() == "q" && m.viewMode != ViewReject {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewReject:
		return m.handleRejectKeys(msg)
	case ViewConfirmApproveAll:
		return m.handleConfirmKeys(msg)
	}
	return m, nil
}

func (m Model) selected() (models.MessageView, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.items) {
		return models.MessageView{}, false
	}
	return m.items[m.selectedRow], true
}

func (m Model) startReject() (tea.Model, tea.Cmd) {
	if _, ok := m.selected(); !ok {
		return m, nil
	}
	m.viewMode = ViewReject
	m.notes.SetValue("")
	return m, m.notes.Focus()
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Width(16)
)
