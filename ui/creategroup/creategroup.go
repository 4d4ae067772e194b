package creategroup

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/groupodon/db"
	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/ui/common"
	"github.com/deemkeen/groupodon/util"
	"github.com/google/uuid"
)

var Style = lipgloss.NewStyle().
	Align(lipgloss.Left, lipgloss.Top).
	Margin(0, 3)

// Model provisions a new local group actor from the console.
type Model struct {
	Conf      *util.AppConfig
	TextInput textinput.Model
	Status    string
	Error     string
}

type groupCreatedMsg struct {
	name string
}

type createFailedMsg struct {
	err error
}

func InitialModel(conf *util.AppConfig) Model {
	ti := textinput.New()
	ti.Placeholder = "gardening"
	ti.Focus()
	ti.CharLimit = 30
	ti.Width = 30

	return Model{Conf: conf, TextInput: ti}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func createGroup(conf *util.AppConfig, name string) tea.Cmd {
	return func() tea.Msg {
		err, existing := db.GetDB().ReadGroupByName(name)
		if err == nil && existing != nil {
			return createFailedMsg{err: fmt.Errorf("group %s already exists", name)}
		}

		group := &domain.Group{
			Id:        uuid.New(),
			Name:      name,
			Server:    conf.Conf.ServerAddress,
			Port:      conf.Conf.ServerPort,
			URI:       fmt.Sprintf("%s/group/%s", conf.BaseURL(), name),
			Local:     true,
			CreatedAt: time.Now(),
		}
		if err := db.GetDB().CreateGroup(group); err != nil {
			return createFailedMsg{err: err}
		}
		return groupCreatedMsg{name: name}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case groupCreatedMsg:
		m.Status = fmt.Sprintf("group %s created", msg.name)
		m.Error = ""
		m.TextInput.SetValue("")
		return m, nil

	case createFailedMsg:
		m.Error = msg.err.Error()
		m.Status = ""
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "enter" {
			name := strings.ToLower(strings.TrimSpace(m.TextInput.Value()))
			if name == "" {
				m.Error = "a group needs a name"
				return m, nil
			}
			if strings.ContainsAny(name, " /@:") {
				m.Error = "group names must not contain spaces or url characters"
				return m, nil
			}
			return m, createGroup(m.Conf, name)
		}
	}

	m.TextInput, cmd = m.TextInput.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(common.CaptionStyle.Render("new group") + "\n\n")
	b.WriteString("  Name the group to provision on this instance:\n\n")
	b.WriteString("  " + m.TextInput.View() + "\n\n")

	if m.Status != "" {
		b.WriteString("  " + common.StatusStyle.Render(m.Status) + "\n")
	}
	if m.Error != "" {
		b.WriteString("  " + common.ErrorStyle.Render(m.Error) + "\n")
	}

	b.WriteString("\n" + common.HelpStyle.Render("(enter to create)"))
	return Style.Render(b.String())
}
