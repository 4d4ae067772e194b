package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/ui/activitylog"
	"github.com/deemkeen/groupodon/ui/actors"
	"github.com/deemkeen/groupodon/ui/common"
	"github.com/deemkeen/groupodon/ui/creategroup"
	"github.com/deemkeen/groupodon/ui/header"
	"github.com/deemkeen/groupodon/util"
)

var (
	panelStyle = lipgloss.NewStyle().
			Align(lipgloss.Top, lipgloss.Top).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(common.COLOR_LIGHTBLUE)).
			MarginLeft(1)
)

// MainModel is the admin console shown to every SSH session: the federation
// activity log, the local actor roster and a group provisioning form.
type MainModel struct {
	width            int
	height           int
	user             domain.User
	state            common.SessionState
	headerModel      header.Model
	activityLogModel activitylog.Model
	actorsModel      actors.Model
	createGroupModel creategroup.Model
}

func NewModel(conf *util.AppConfig, user domain.User, width int, height int) MainModel {
	width = common.DefaultWindowWidth(width)
	height = common.DefaultWindowHeight(height)

	return MainModel{
		width:            width,
		height:           height,
		user:             user,
		state:            common.ActivityLogView,
		headerModel:      header.Model{Width: width, User: &user},
		activityLogModel: activitylog.InitialModel(width, height),
		actorsModel:      actors.InitialModel(width, height),
		createGroupModel: creategroup.InitialModel(conf),
	}
}

func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		m.activityLogModel.Init(),
		m.actorsModel.Init(),
		m.createGroupModel.Init(),
	)
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.headerModel.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == common.CreateGroupView && msg.String() == "q" {
				break
			}
			return m, tea.Quit
		case "tab":
			oldState := m.state
			switch m.state {
			case common.ActivityLogView:
				m.state = common.ActorsView
			case common.ActorsView:
				m.state = common.CreateGroupView
			case common.CreateGroupView:
				m.state = common.ActivityLogView
			}
			if oldState != m.state {
				cmds = append(cmds, m.viewInitCmd())
			}
			return m, tea.Batch(cmds...)
		case "shift+tab":
			oldState := m.state
			switch m.state {
			case common.ActivityLogView:
				m.state = common.CreateGroupView
			case common.ActorsView:
				m.state = common.ActivityLogView
			case common.CreateGroupView:
				m.state = common.ActorsView
			}
			if oldState != m.state {
				cmds = append(cmds, m.viewInitCmd())
			}
			return m, tea.Batch(cmds...)
		}
	}

	// data messages reach every panel, keystrokes only the focused one
	if _, isKeyMsg := msg.(tea.KeyMsg); !isKeyMsg {
		m.headerModel, _ = m.headerModel.Update(msg)
		m.activityLogModel, cmd = m.activityLogModel.Update(msg)
		cmds = append(cmds, cmd)
		m.actorsModel, cmd = m.actorsModel.Update(msg)
		cmds = append(cmds, cmd)
		m.createGroupModel, cmd = m.createGroupModel.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		switch m.state {
		case common.ActivityLogView:
			m.activityLogModel, cmd = m.activityLogModel.Update(msg)
		case common.ActorsView:
			m.actorsModel, cmd = m.actorsModel.Update(msg)
		case common.CreateGroupView:
			m.createGroupModel, cmd = m.createGroupModel.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m MainModel) View() string {
	availableHeight := m.height - 10
	panelWidth := m.width - 6

	panel := lipgloss.NewStyle().
		MaxHeight(availableHeight).
		Height(availableHeight).
		Width(panelWidth).
		MaxWidth(panelWidth).
		Margin(1).
		Render(m.currentPanel())

	s := m.headerModel.View() + "\n"
	s += panelStyle.Render(panel)

	var viewCommands string
	switch m.state {
	case common.ActivityLogView:
		viewCommands = "↑/↓: scroll • r: reload"
	case common.ActorsView:
		viewCommands = "r: reload"
	case common.CreateGroupView:
		viewCommands = "enter: create"
	}

	s += "\n" + common.HelpStyle.Render(fmt.Sprintf(
		"focused > %s\t\tkeys > tab: next • shift+tab: prev • %s • ctrl-c: exit",
		m.currentFocusedModel(), viewCommands))
	return s
}

func (m MainModel) currentPanel() string {
	switch m.state {
	case common.ActorsView:
		return m.actorsModel.View()
	case common.CreateGroupView:
		return m.createGroupModel.View()
	default:
		return m.activityLogModel.View()
	}
}

func (m MainModel) currentFocusedModel() string {
	switch m.state {
	case common.ActorsView:
		return "local actors"
	case common.CreateGroupView:
		return "new group"
	default:
		return "federation log"
	}
}

func (m *MainModel) viewInitCmd() tea.Cmd {
	switch m.state {
	case common.ActivityLogView:
		return m.activityLogModel.Init()
	case common.ActorsView:
		return m.actorsModel.Init()
	default:
		return nil
	}
}
