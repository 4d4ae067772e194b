package activitypub

import (
	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/util"
	"github.com/google/uuid"
)

// Store is the persistence surface the federation core consumes. *db.DB
// implements it; tests substitute in-memory fakes.
type Store interface {
	// actor directory
	ReadUserByName(name string) (error, *domain.User)
	ReadUserByUri(uri string) (error, *domain.User)
	ReadUserById(id uuid.UUID) (error, *domain.User)
	CreateUser(u *domain.User) error
	ReadGroupByName(name string) (error, *domain.Group)
	ReadGroupByUri(uri string) (error, *domain.Group)
	CreateGroup(g *domain.Group) error

	// posts
	CreatePost(p *domain.Post) error
	UpdatePost(p *domain.Post) error
	ReadPostByUri(uri string) (error, *domain.Post)
	SoftDeletePost(id uuid.UUID) error
	ReadRepliesForPost(id uuid.UUID) (error, *[]domain.Post)
	ReadParentForPost(p *domain.Post) (error, *domain.Post)
	AddPostToGroup(postId, groupId uuid.UUID) error
	ReadGroupsForPost(postId uuid.UUID) (error, *[]domain.Group)
	ReadPostsForGroup(groupId uuid.UUID) (error, *[]domain.Post)

	// follows and likes
	CreateFollow(f *domain.Follow) error
	AcceptFollow(actorURI, targetURI string) error
	ReadFollowByActorAndTarget(actorURI, targetURI string) (error, *domain.Follow)
	ReadFollowersByTargetURI(targetURI string) (error, *[]domain.Follow)
	CreateLike(l *domain.Like) error

	// activities
	SaveActivity(conf *util.AppConfig, a *domain.Activity) (error, *domain.Activity)
	FindActivityByUri(uri string) (error, *domain.Activity)
	FindActivityById(id int64) (error, *domain.Activity)
	ReadActivitiesForPost(postId uuid.UUID) (error, *[]domain.Activity)
	ReadActivitiesBySourceUser(userId uuid.UUID) (error, *[]domain.Activity)
	ReadActivitiesBySourceGroup(groupId uuid.UUID) (error, *[]domain.Activity)
	ReadActivitiesForDestinationUser(userId uuid.UUID) (error, *[]domain.Activity)
	ReadActivitiesForDestinationGroup(groupId uuid.UUID) (error, *[]domain.Activity)
	AddActivityDestinationUser(activityId int64, userId uuid.UUID) error
	AddActivityDestinationGroup(activityId int64, groupId uuid.UUID) error
	ReadActivityDestinationGroups(activityId int64) (error, *[]domain.Group)
	ReadActivityDestinationUsers(activityId int64) (error, *[]domain.User)
}
