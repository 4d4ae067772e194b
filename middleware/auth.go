package middleware

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/deemkeen/groupodon/db"
	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/util"
	"github.com/google/uuid"
)

// AuthMiddleware resolves the SSH session's public key to a local user,
// provisioning one on first contact. The username comes from the SSH login
// name, suffixed when already taken by a different key.
func AuthMiddleware(conf *util.AppConfig) wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			database := db.GetDB()
			hash := util.PkToHash(util.PublicKeyToString(s.PublicKey()))

			_, user := database.ReadUserByPkHash(hash)
			if user == nil {
				created, err := provisionUser(conf, database, s, hash)
				if err != nil {
					log.Println("Could not create a user:", err)
					wish.Println(s, "could not provision your account, sorry")
					return
				}
				user = created
				log.Printf("Provisioned local user %s for a new ssh key", user.Name)
			}

			util.LogPublicKey(s)
			h(s)
		}
	}
}

func provisionUser(conf *util.AppConfig, database *db.DB, s ssh.Session, hash string) (*domain.User, error) {
	name := sanitizeUsername(s.User())
	if name == "" {
		name = util.RandomString(10)
	}
	if err, taken := database.ReadUserByName(name); err == nil && taken != nil {
		name = name + "-" + util.RandomString(4)
	}

	user := &domain.User{
		Id:        uuid.New(),
		Name:      name,
		Server:    conf.Conf.ServerAddress,
		Port:      conf.Conf.ServerPort,
		URI:       fmt.Sprintf("%s/user/%s", conf.BaseURL(), name),
		PkHash:    hash,
		Local:     true,
		CreatedAt: time.Now(),
	}
	if err := database.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func sanitizeUsername(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
