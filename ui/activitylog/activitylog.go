package activitylog

import (
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/groupodon/db"
	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/ui/common"
	"github.com/deemkeen/groupodon/util"
)

const logFetchLimit = 100

var (
	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			MarginBottom(0)

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_LIGHTBLUE)).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY))
)

// Model shows the newest activities that passed through this instance, local
// and federated alike.
type Model struct {
	Activities []domain.Activity
	Offset     int
	Width      int
	Height     int
	Error      string
}

type activitiesLoadedMsg struct {
	activities []domain.Activity
}

type loadFailedMsg struct {
	err error
}

func InitialModel(width, height int) Model {
	return Model{
		Activities: []domain.Activity{},
		Offset:     0,
		Width:      width,
		Height:     height,
	}
}

func loadActivities() tea.Cmd {
	return func() tea.Msg {
		err, activities := db.GetDB().ReadRecentActivities(logFetchLimit)
		if err != nil {
			log.Println("Could not load the activity log:", err)
			return loadFailedMsg{err: err}
		}
		if activities == nil {
			return activitiesLoadedMsg{activities: []domain.Activity{}}
		}
		return activitiesLoadedMsg{activities: *activities}
	}
}

func (m Model) Init() tea.Cmd {
	return loadActivities()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activitiesLoadedMsg:
		m.Activities = msg.activities
		m.Offset = 0
		m.Error = ""
		return m, nil

	case loadFailedMsg:
		m.Error = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.Offset > 0 {
				m.Offset--
			}
		case "down", "j":
			if m.Offset < len(m.Activities)-1 {
				m.Offset++
			}
		case "r":
			return m, loadActivities()
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(common.CaptionStyle.Render("federation log") + "\n\n")

	if m.Error != "" {
		b.WriteString(common.ErrorStyle.Render("error: " + m.Error))
		return b.String()
	}

	if len(m.Activities) == 0 {
		b.WriteString(common.EmptyStyle.Render("no activities yet"))
		return b.String()
	}

	visible := m.Height - 8
	if visible < 1 {
		visible = 1
	}

	end := m.Offset + visible
	if end > len(m.Activities) {
		end = len(m.Activities)
	}

	for _, a := range m.Activities[m.Offset:end] {
		line := fmt.Sprintf("%s %s %s",
			typeStyle.Render(fmt.Sprintf("%-8s", a.Type)),
			timeStyle.Render(a.Created.Format(util.DateTimeFormat())),
			truncate(a.URI, m.Width-40),
		)
		b.WriteString(itemStyle.Render(line) + "\n")
	}

	b.WriteString("\n" + timeStyle.Render(
		fmt.Sprintf("%d-%d of %d", m.Offset+1, end, len(m.Activities))))
	return b.String()
}

func truncate(s string, max int) string {
	if max < 10 {
		max = 10
	}
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
