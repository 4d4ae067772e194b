package actors

import (
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/groupodon/db"
	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/ui/common"
)

var (
	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			MarginBottom(0)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_MAGENTA)).
			Bold(true).
			PaddingLeft(1)

	uriStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY))
)

// Model lists the instance's local actors: who can log in over SSH and which
// groups exist.
type Model struct {
	Users  []domain.User
	Groups []domain.Group
	Width  int
	Height int
	Error  string
}

type actorsLoadedMsg struct {
	users  []domain.User
	groups []domain.Group
}

type loadFailedMsg struct {
	err error
}

func InitialModel(width, height int) Model {
	return Model{
		Users:  []domain.User{},
		Groups: []domain.Group{},
		Width:  width,
		Height: height,
	}
}

func loadActors() tea.Cmd {
	return func() tea.Msg {
		database := db.GetDB()

		err, users := database.ReadAllLocalUsers()
		if err != nil {
			log.Println("Could not load local users:", err)
			return loadFailedMsg{err: err}
		}

		err, groups := database.ReadAllLocalGroups()
		if err != nil {
			log.Println("Could not load local groups:", err)
			return loadFailedMsg{err: err}
		}

		msg := actorsLoadedMsg{users: []domain.User{}, groups: []domain.Group{}}
		if users != nil {
			msg.users = *users
		}
		if groups != nil {
			msg.groups = *groups
		}
		return msg
	}
}

func (m Model) Init() tea.Cmd {
	return loadActors()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case actorsLoadedMsg:
		m.Users = msg.users
		m.Groups = msg.groups
		m.Error = ""
		return m, nil

	case loadFailedMsg:
		m.Error = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, loadActors()
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(common.CaptionStyle.Render("local actors") + "\n\n")

	if m.Error != "" {
		b.WriteString(common.ErrorStyle.Render("error: " + m.Error))
		return b.String()
	}

	b.WriteString(sectionStyle.Render(fmt.Sprintf("users (%d)", len(m.Users))) + "\n")
	if len(m.Users) == 0 {
		b.WriteString(itemStyle.Render(common.EmptyStyle.Render("none yet")) + "\n")
	}
	for _, user := range m.Users {
		b.WriteString(itemStyle.Render(
			fmt.Sprintf("%-20s %s", user.Name, uriStyle.Render(user.URI))) + "\n")
	}

	b.WriteString("\n" + sectionStyle.Render(fmt.Sprintf("groups (%d)", len(m.Groups))) + "\n")
	if len(m.Groups) == 0 {
		b.WriteString(itemStyle.Render(common.EmptyStyle.Render("none yet")) + "\n")
	}
	for _, group := range m.Groups {
		b.WriteString(itemStyle.Render(
			fmt.Sprintf("%-20s %s", group.Name, uriStyle.Render(group.URI))) + "\n")
	}

	return b.String()
}
