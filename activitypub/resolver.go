package activitypub

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/util"
	"github.com/google/uuid"
)

// ActorKind distinguishes the two actor flavors a URI can address.
type ActorKind string

const (
	KindUser    ActorKind = "user"
	KindGroup   ActorKind = "group"
	KindInvalid ActorKind = "invalid"
)

// ActorRef is the decomposed form of an actor URI. Two refs denote the same
// identity iff name, server and port all match.
type ActorRef struct {
	Name   string
	Server string
	Port   int
}

// ParseActor decomposes an actor URI into its ref and kind. The path must be
// exactly /user/<name> or /group/<name>; any other shape, and any input that
// does not parse as a URL, yields KindInvalid. Callers must check the kind,
// parsing never fails hard.
func ParseActor(uri string) (ActorRef, ActorKind) {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Host == "" {
		return ActorRef{}, KindInvalid
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) != 2 || segments[1] == "" {
		return ActorRef{}, KindInvalid
	}

	var kind ActorKind
	switch segments[0] {
	case "user":
		kind = KindUser
	case "group":
		kind = KindGroup
	default:
		return ActorRef{}, KindInvalid
	}

	port := 0
	if p := parsed.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return ActorRef{}, KindInvalid
		}
	}

	return ActorRef{Name: segments[1], Server: parsed.Hostname(), Port: port}, kind
}

// BuildActorURI synthesizes the canonical URI for a local actor name from the
// server configuration. Callers holding an actor record with a stored uri
// must prefer that uri over recomputation.
func BuildActorURI(conf *util.AppConfig, name string, kind ActorKind) string {
	return fmt.Sprintf("%s/%s/%s", conf.BaseURL(), kind, url.PathEscape(name))
}

// UserURI returns the user's stored uri verbatim when present, otherwise a
// freshly built one.
func UserURI(conf *util.AppConfig, u *domain.User) string {
	if u.URI != "" {
		return u.URI
	}
	return BuildActorURI(conf, u.Name, KindUser)
}

// GroupURI returns the group's stored uri verbatim when present, otherwise a
// freshly built one.
func GroupURI(conf *util.AppConfig, g *domain.Group) string {
	if g.URI != "" {
		return g.URI
	}
	return BuildActorURI(conf, g.Name, KindGroup)
}

// ActivityURI is the canonical external identifier for an activity persisted
// under the given numeric storage id.
func ActivityURI(conf *util.AppConfig, id int64) string {
	return fmt.Sprintf("%s/p/%d", conf.BaseURL(), id)
}

// PostURI is the canonical URI for a locally created post.
func PostURI(conf *util.AppConfig, id uuid.UUID) string {
	return fmt.Sprintf("%s/post/%s", conf.BaseURL(), id.String())
}

// FilterActorsByKind parses each uri and keeps only the matches of the
// requested kind, in original order. Unparseable or non-matching entries are
// dropped silently, one bad entry never fails the batch.
func FilterActorsByKind(uris []string, kind ActorKind) []ActorRef {
	refs := make([]ActorRef, 0, len(uris))
	for _, uri := range uris {
		ref, k := ParseActor(uri)
		if k == kind {
			refs = append(refs, ref)
		}
	}
	return refs
}

// ExtractReferenceURI resolves a reference field to a single URI string. A
// reference may be a bare string, an array whose first element is a string,
// or an array whose first element is an object carrying an id.
func ExtractReferenceURI(ref any) string {
	switch val := ref.(type) {
	case string:
		return val
	case []any:
		if len(val) == 0 {
			return ""
		}
		switch first := val[0].(type) {
		case string:
			return first
		case map[string]any:
			if id, ok := first["id"].(string); ok {
				return id
			}
		case *domain.ActivityObject:
			return first.ID
		}
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

// IsLocalRef reports whether a parsed actor ref addresses this server.
func IsLocalRef(conf *util.AppConfig, ref ActorRef) bool {
	if ref.Server != conf.Conf.ServerAddress {
		return false
	}
	if ref.Port == 0 || ref.Port == conf.Conf.ServerPort {
		return true
	}
	// default ports are elided when building local uris
	return (conf.Conf.Https && ref.Port == 443) || (!conf.Conf.Https && ref.Port == 80)
}
