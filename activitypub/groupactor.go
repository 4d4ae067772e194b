package activitypub

import (
	"fmt"
	"time"

	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/util"
	"github.com/google/uuid"
)

// GroupActor handles a local group's outbox and inbox. Groups relay: whatever
// lands in a group's inbox fans out to the group's followers.
type GroupActor struct {
	Conf     *util.AppConfig
	Store    Store
	Delivery *Delivery
}

func NewGroupActor(conf *util.AppConfig, store Store, delivery *Delivery) *GroupActor {
	return &GroupActor{Conf: conf, Store: store, Delivery: delivery}
}

// AcceptPostRequest processes an activity POSTed to the group's outbox.
// Unlike the user outbox, groups may emit Accept activities to close follow
// handshakes.
func (g *GroupActor) AcceptPostRequest(group *domain.Group, obj *domain.ActivityObject) (error, *domain.Activity) {
	switch obj.Type {
	case domain.TypeCreate:
		return g.outboxCreate(group, obj)
	case domain.TypeDelete:
		return g.outboxDelete(group, obj)
	case domain.TypeUpdate:
		return g.outboxUpdate(group, obj)
	case domain.TypeAccept:
		return g.outboxAccept(group, obj)
	case domain.TypeFollow, domain.TypeLike:
		return fmt.Errorf("%w: %s on a group outbox", domain.ErrNotImplemented, obj.Type), nil
	case domain.TypeAdd, domain.TypeRemove, domain.TypeBlock, domain.TypeUndo:
		return fmt.Errorf("%w: %s", domain.ErrNotImplemented, obj.Type), nil
	default:
		return fmt.Errorf("%w: %s", domain.ErrInvalidActivity, obj.Type), nil
	}
}

// HandleIncoming processes an activity delivered to the group's inbox.
func (g *GroupActor) HandleIncoming(group *domain.Group, obj *domain.ActivityObject) error {
	switch obj.Type {
	case domain.TypeCreate:
		return g.inboxCreate(group, obj)
	case domain.TypeFollow:
		return g.inboxFollow(group, obj)
	case domain.TypeAccept:
		return g.inboxAccept(group, obj)
	case domain.TypeDelete, domain.TypeUpdate, domain.TypeLike,
		domain.TypeAdd, domain.TypeRemove, domain.TypeBlock, domain.TypeUndo:
		return fmt.Errorf("%w: %s in a group inbox", domain.ErrNotImplemented, obj.Type)
	default:
		return fmt.Errorf("%w: %s", domain.ErrInvalidActivity, obj.Type)
	}
}

func (g *GroupActor) outboxCreate(group *domain.Group, obj *domain.ActivityObject) (error, *domain.Activity) {
	embedded := obj.EmbeddedObject()
	if embedded == nil {
		return fmt.Errorf("%w: Create without an embedded object", domain.ErrInvalidActivity), nil
	}

	// the post's author is the attributed user, not the group itself
	senderId, err := g.resolveSender(embedded.AttributedTo, obj.Actor)
	if err != nil {
		return err, nil
	}

	err2, post := createPostFromObject(g.Conf, g.Store, senderId, embedded, obj)
	if err2 != nil {
		return err2, nil
	}
	if err := g.Store.AddPostToGroup(post.Id, group.Id); err != nil {
		return err, nil
	}

	activity := NewActivity(obj)
	activity.SourceGroupId = group.Id
	activity.TargetPostId = post.Id

	err, saved := g.Store.SaveActivity(g.Conf, activity)
	if err != nil {
		return err, nil
	}

	if err, _ := g.Delivery.Deliver(saved); err != nil {
		return err, saved
	}
	return nil, saved
}

func (g *GroupActor) outboxDelete(group *domain.Group, obj *domain.ActivityObject) (error, *domain.Activity) {
	objURI := obj.ObjectURI()
	err, post := g.Store.ReadPostByUri(objURI)
	if err != nil || post == nil {
		return fmt.Errorf("post %s: %w", objURI, domain.ErrNotFound), nil
	}

	if err := g.Store.SoftDeletePost(post.Id); err != nil {
		return err, nil
	}

	activity := NewActivity(obj)
	activity.SourceGroupId = group.Id
	activity.TargetPostId = post.Id
	return g.Store.SaveActivity(g.Conf, activity)
}

func (g *GroupActor) outboxUpdate(group *domain.Group, obj *domain.ActivityObject) (error, *domain.Activity) {
	embedded := obj.EmbeddedObject()
	if embedded == nil {
		return fmt.Errorf("%w: Update without an embedded object", domain.ErrInvalidActivity), nil
	}

	err, post := g.Store.ReadPostByUri(embedded.ID)
	if err != nil || post == nil {
		return fmt.Errorf("post %s: %w", embedded.ID, domain.ErrNotFound), nil
	}

	post.Content = embedded.Content
	if embedded.Source != nil {
		post.Source = embedded.Source.Content
		post.SourceMediaType = embedded.Source.MediaType
	}
	if err := g.Store.UpdatePost(post); err != nil {
		return err, nil
	}

	activity := NewActivity(obj)
	activity.SourceGroupId = group.Id
	activity.TargetPostId = post.Id

	err, saved := g.Store.SaveActivity(g.Conf, activity)
	if err != nil {
		return err, nil
	}

	if err, _ := g.Delivery.Deliver(saved); err != nil {
		return err, saved
	}
	return nil, saved
}

// outboxAccept closes a follow handshake: the group accepts a previously
// received Follow activity and notifies the requester.
func (g *GroupActor) outboxAccept(group *domain.Group, obj *domain.ActivityObject) (error, *domain.Activity) {
	followURI := obj.ObjectURI()
	if followURI == "" {
		return fmt.Errorf("%w: Accept without an object", domain.ErrInvalidActivity), nil
	}

	err, followActivity := g.Store.FindActivityByUri(followURI)
	if err != nil || followActivity == nil {
		return fmt.Errorf("follow activity %s: %w", followURI, domain.ErrNotFound), nil
	}
	requester := ""
	if followActivity.Object != nil {
		requester = followActivity.Object.Actor
	}
	if requester == "" {
		return fmt.Errorf("%w: follow %s carries no actor", domain.ErrInvalidActivity, followURI), nil
	}

	activity := NewActivity(obj)
	activity.SourceGroupId = group.Id

	err, saved := g.Store.SaveActivity(g.Conf, activity)
	if err != nil {
		return err, nil
	}

	// the requester lands in the destination set
	if err2, requesterUser := g.Store.ReadUserByUri(requester); err2 == nil && requesterUser != nil {
		if err := g.Store.AddActivityDestinationUser(saved.Id, requesterUser.Id); err != nil {
			return err, saved
		}
	}

	target := ExtractReferenceURI(obj.Target)
	if target == "" {
		target = requester
	}
	if err := g.Delivery.DeliverTo(saved, []string{target}); err != nil {
		return err, saved
	}
	return nil, saved
}

func (g *GroupActor) inboxCreate(group *domain.Group, obj *domain.ActivityObject) error {
	if ref, _ := ParseActor(obj.Actor); !IsLocalRef(g.Conf, ref) {
		return fmt.Errorf("%w: Create from foreign origin %s", domain.ErrNotImplemented, obj.Actor)
	}

	err, saved := g.Store.SaveActivity(g.Conf, NewActivity(obj))
	if err != nil {
		return err
	}

	if err := g.Store.AddActivityDestinationGroup(saved.Id, group.Id); err != nil {
		return err
	}

	// group relay: boost the activity out to everyone following the group
	return relayToFollowers(g.Delivery, g.Store, saved, GroupURI(g.Conf, group))
}

func (g *GroupActor) inboxFollow(group *domain.Group, obj *domain.ActivityObject) error {
	followerURI := obj.Actor
	if followerURI == "" {
		return fmt.Errorf("%w: Follow without an actor", domain.ErrInvalidActivity)
	}
	groupURI := GroupURI(g.Conf, group)

	err, existing := g.Store.ReadFollowByActorAndTarget(followerURI, groupURI)
	alreadyFollowing := err == nil && existing != nil

	err, saved := g.Store.SaveActivity(g.Conf, NewActivity(obj))
	if err != nil {
		return err
	}
	if err := g.Store.AddActivityDestinationGroup(saved.Id, group.Id); err != nil {
		return err
	}

	if alreadyFollowing {
		return nil
	}

	follow := &domain.Follow{
		Id:        uuid.New(),
		ActorURI:  followerURI,
		TargetURI: groupURI,
		URI:       saved.URI,
		Accepted:  true,
		CreatedAt: time.Now(),
	}
	if err := g.Store.CreateFollow(follow); err != nil {
		return err
	}

	// the handshake reply goes back out through the group's own outbox
	accept := BuildAcceptObject(groupURI, saved.Object, followerURI)
	accept.Object = saved.URI
	err, _ = g.AcceptPostRequest(group, accept)
	return err
}

func (g *GroupActor) inboxAccept(group *domain.Group, obj *domain.ActivityObject) error {
	sourceURI := obj.Actor
	if sourceURI == "" {
		if embedded := obj.EmbeddedObject(); embedded != nil {
			sourceURI = embedded.ObjectURI()
		}
	}
	if sourceURI == "" {
		return fmt.Errorf("%w: Accept without a resolvable actor", domain.ErrInvalidActivity)
	}

	groupURI := GroupURI(g.Conf, group)
	err, existing := g.Store.ReadFollowByActorAndTarget(groupURI, sourceURI)
	if err == nil && existing != nil {
		return g.Store.AcceptFollow(groupURI, sourceURI)
	}

	follow := &domain.Follow{
		Id:        uuid.New(),
		ActorURI:  groupURI,
		TargetURI: sourceURI,
		URI:       obj.ObjectURI(),
		Accepted:  true,
		CreatedAt: time.Now(),
	}
	return g.Store.CreateFollow(follow)
}

// resolveSender maps an attribution uri to a local or lazily materialized
// user record, falling back to the wrapping activity's actor.
func (g *GroupActor) resolveSender(attributedTo, actor string) (uuid.UUID, error) {
	candidate := attributedTo
	if candidate == "" {
		candidate = actor
	}
	if candidate == "" {
		return uuid.Nil, fmt.Errorf("%w: Create without an attributable sender", domain.ErrInvalidActivity)
	}

	ref, kind := ParseActor(candidate)
	if kind != KindUser {
		return uuid.Nil, fmt.Errorf("%w: sender %s is not a user", domain.ErrInvalidActivity, candidate)
	}

	err, user := getOrCreateUser(g.Conf, g.Store, candidate, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return user.Id, nil
}
