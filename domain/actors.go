package domain

import (
	"github.com/google/uuid"
	"time"
)

// User is a person actor. Local users may additionally carry the hash of the
// ssh public key they use for the admin console.
type User struct {
	Id        uuid.UUID
	Name      string
	Server    string
	Port      int
	URI       string
	PkHash    string
	Local     bool
	CreatedAt time.Time
}

// Group is a group actor. Remote groups are materialized lazily when an
// activity first addresses them.
type Group struct {
	Id        uuid.UUID
	Name      string
	Server    string
	Port      int
	URI       string
	Local     bool
	CreatedAt time.Time
}

// Post is a message sent by a user into one or more groups. Posts are never
// hard-deleted; Deleted marks them for Tombstone rendering.
type Post struct {
	Id              uuid.UUID
	URI             string
	Content         string
	Source          string
	SourceMediaType string
	SenderId        uuid.UUID
	ParentId        uuid.UUID // uuid.Nil for top-level posts
	Deleted         bool
	CreatedAt       time.Time
}

// Follow represents a follow relationship between two actors, local or
// remote, keyed by their URIs. A follow starts pending and becomes accepted
// through the Accept handshake.
type Follow struct {
	Id        uuid.UUID
	ActorURI  string // the follower
	TargetURI string // the actor being followed
	URI       string // the Follow activity URI, empty for synthetic rows
	Accepted  bool
	CreatedAt time.Time
}

// Like represents a like on a post.
type Like struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	PostId    uuid.UUID
	URI       string
	CreatedAt time.Time
}
