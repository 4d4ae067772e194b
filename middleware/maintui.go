package middleware

import (
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"
	"github.com/deemkeen/groupodon/db"
	"github.com/deemkeen/groupodon/ui"
	"github.com/deemkeen/groupodon/util"
	"github.com/muesli/termenv"
)

// MainTui runs the admin console as a bubbletea program per SSH session.
func MainTui(conf *util.AppConfig) wish.Middleware {
	teaHandler := func(s ssh.Session) *tea.Program {
		pty, _, active := s.Pty()
		if !active {
			wish.Println(s, "no active terminal, skipping")
			return nil
		}

		hash := util.PkToHash(util.PublicKeyToString(s.PublicKey()))
		err, user := db.GetDB().ReadUserByPkHash(hash)
		if err != nil || user == nil {
			log.Println("Could not retrieve the user:", err)
			return nil
		}

		m := ui.NewModel(conf, *user, pty.Window.Width, pty.Window.Height)
		return tea.NewProgram(m, tea.WithInput(s), tea.WithOutput(s), tea.WithAltScreen())
	}
	return bm.MiddlewareWithProgramHandler(teaHandler, termenv.ANSI256)
}
