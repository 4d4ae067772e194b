package activitypub

import (
	"fmt"
	"time"

	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/util"
	"github.com/google/uuid"
)

// UserActor orchestrates the side effects of activities hitting a local
// user's outbox or inbox.
type UserActor struct {
	Conf     *util.AppConfig
	Store    Store
	Delivery *Delivery
}

func NewUserActor(conf *util.AppConfig, store Store, delivery *Delivery) *UserActor {
	return &UserActor{Conf: conf, Store: store, Delivery: delivery}
}

// AcceptPostRequest processes an activity POSTed to the user's outbox and
// returns the persisted activity. Persistence and delivery are decoupled
// stages: a failed delivery rejects the operation but never rolls the
// activity row back.
func (u *UserActor) AcceptPostRequest(user *domain.User, obj *domain.ActivityObject) (error, *domain.Activity) {
	switch obj.Type {
	case domain.TypeCreate:
		return u.outboxCreate(user, obj)
	case domain.TypeDelete:
		return u.outboxDelete(user, obj)
	case domain.TypeUpdate:
		return u.outboxUpdate(user, obj)
	case domain.TypeFollow:
		return u.outboxFollow(user, obj)
	case domain.TypeLike:
		return u.outboxLike(user, obj)
	case domain.TypeAccept:
		return fmt.Errorf("%w: Accept on a user outbox", domain.ErrNotImplemented), nil
	case domain.TypeAdd, domain.TypeRemove, domain.TypeBlock, domain.TypeUndo:
		return fmt.Errorf("%w: %s", domain.ErrNotImplemented, obj.Type), nil
	default:
		return fmt.Errorf("%w: %s", domain.ErrInvalidActivity, obj.Type), nil
	}
}

// HandleIncoming processes an activity delivered to the user's inbox.
func (u *UserActor) HandleIncoming(user *domain.User, obj *domain.ActivityObject) error {
	switch obj.Type {
	case domain.TypeCreate:
		return u.inboxCreate(user, obj)
	case domain.TypeFollow:
		return u.inboxFollow(user, obj)
	case domain.TypeAccept:
		return u.inboxAccept(user, obj)
	case domain.TypeDelete, domain.TypeUpdate, domain.TypeLike,
		domain.TypeAdd, domain.TypeRemove, domain.TypeBlock, domain.TypeUndo:
		return fmt.Errorf("%w: %s in a user inbox", domain.ErrNotImplemented, obj.Type)
	default:
		return fmt.Errorf("%w: %s", domain.ErrInvalidActivity, obj.Type)
	}
}

func (u *UserActor) outboxCreate(user *domain.User, obj *domain.ActivityObject) (error, *domain.Activity) {
	embedded := obj.EmbeddedObject()
	if embedded == nil {
		return fmt.Errorf("%w: Create without an embedded object", domain.ErrInvalidActivity), nil
	}

	err, post := createPostFromObject(u.Conf, u.Store, user.Id, embedded, obj)
	if err != nil {
		return err, nil
	}

	activity := NewActivity(obj)
	activity.SourceUserId = user.Id
	activity.TargetPostId = post.Id

	err, saved := u.Store.SaveActivity(u.Conf, activity)
	if err != nil {
		return err, nil
	}

	if err, _ := u.Delivery.Deliver(saved); err != nil {
		return err, saved
	}
	return nil, saved
}

func (u *UserActor) outboxDelete(user *domain.User, obj *domain.ActivityObject) (error, *domain.Activity) {
	objURI := obj.ObjectURI()
	err, post := u.Store.ReadPostByUri(objURI)
	if err != nil || post == nil {
		return fmt.Errorf("post %s: %w", objURI, domain.ErrNotFound), nil
	}

	if err := u.Store.SoftDeletePost(post.Id); err != nil {
		return err, nil
	}

	activity := NewActivity(obj)
	activity.SourceUserId = user.Id
	activity.TargetPostId = post.Id

	// TODO deliver the Delete to the post's groups once tombstone forwarding
	// is specified for them
	return u.Store.SaveActivity(u.Conf, activity)
}

func (u *UserActor) outboxUpdate(user *domain.User, obj *domain.ActivityObject) (error, *domain.Activity) {
	embedded := obj.EmbeddedObject()
	if embedded == nil {
		return fmt.Errorf("%w: Update without an embedded object", domain.ErrInvalidActivity), nil
	}

	err, post := u.Store.ReadPostByUri(embedded.ID)
	if err != nil || post == nil {
		return fmt.Errorf("post %s: %w", embedded.ID, domain.ErrNotFound), nil
	}

	post.Content = embedded.Content
	if embedded.Source != nil {
		post.Source = embedded.Source.Content
		post.SourceMediaType = embedded.Source.MediaType
	}
	if err := u.Store.UpdatePost(post); err != nil {
		return err, nil
	}

	activity := NewActivity(obj)
	activity.SourceUserId = user.Id
	activity.TargetPostId = post.Id

	err, saved := u.Store.SaveActivity(u.Conf, activity)
	if err != nil {
		return err, nil
	}

	if err, _ := u.Delivery.Deliver(saved); err != nil {
		return err, saved
	}
	return nil, saved
}

func (u *UserActor) outboxFollow(user *domain.User, obj *domain.ActivityObject) (error, *domain.Activity) {
	followee := obj.ObjectURI()
	if followee == "" {
		return fmt.Errorf("%w: Follow without an object", domain.ErrInvalidActivity), nil
	}

	// a Follow starts pending: no target relation until the Accept arrives
	activity := NewActivity(obj)
	activity.SourceUserId = user.Id

	err, saved := u.Store.SaveActivity(u.Conf, activity)
	if err != nil {
		return err, nil
	}

	// the follow request goes to the followee only
	if err := u.Delivery.DeliverTo(saved, []string{followee}); err != nil {
		return err, saved
	}
	return nil, saved
}

func (u *UserActor) outboxLike(user *domain.User, obj *domain.ActivityObject) (error, *domain.Activity) {
	postURI := obj.ObjectURI()
	err, post := u.Store.ReadPostByUri(postURI)
	if err != nil || post == nil {
		return fmt.Errorf("post %s: %w", postURI, domain.ErrNotFound), nil
	}

	like := &domain.Like{
		Id:        uuid.New(),
		UserId:    user.Id,
		PostId:    post.Id,
		URI:       obj.ID,
		CreatedAt: time.Now(),
	}
	if err := u.Store.CreateLike(like); err != nil {
		return err, nil
	}

	activity := NewActivity(obj)
	activity.SourceUserId = user.Id
	activity.TargetPostId = post.Id
	return u.Store.SaveActivity(u.Conf, activity)
}

func (u *UserActor) inboxCreate(user *domain.User, obj *domain.ActivityObject) error {
	if ref, _ := ParseActor(obj.Actor); !IsLocalRef(u.Conf, ref) {
		return fmt.Errorf("%w: Create from foreign origin %s", domain.ErrNotImplemented, obj.Actor)
	}

	err, saved := u.Store.SaveActivity(u.Conf, NewActivity(obj))
	if err != nil {
		return err
	}

	// destinations are a set; the join table ignores duplicate appends
	if err := u.Store.AddActivityDestinationUser(saved.Id, user.Id); err != nil {
		return err
	}

	return relayToFollowers(u.Delivery, u.Store, saved, UserURI(u.Conf, user))
}

func (u *UserActor) inboxFollow(user *domain.User, obj *domain.ActivityObject) error {
	followerURI := obj.Actor
	if followerURI == "" {
		return fmt.Errorf("%w: Follow without an actor", domain.ErrInvalidActivity)
	}
	userURI := UserURI(u.Conf, user)

	err, existing := u.Store.ReadFollowByActorAndTarget(followerURI, userURI)
	alreadyFollowing := err == nil && existing != nil

	err, saved := u.Store.SaveActivity(u.Conf, NewActivity(obj))
	if err != nil {
		return err
	}
	if err := u.Store.AddActivityDestinationUser(saved.Id, user.Id); err != nil {
		return err
	}

	if alreadyFollowing {
		return nil
	}

	follow := &domain.Follow{
		Id:        uuid.New(),
		ActorURI:  followerURI,
		TargetURI: userURI,
		URI:       saved.URI,
		Accepted:  true,
		CreatedAt: time.Now(),
	}
	if err := u.Store.CreateFollow(follow); err != nil {
		return err
	}

	// answer a new follower with an Accept handshake
	accept := NewActivity(BuildAcceptObject(userURI, saved.Object, followerURI))
	accept.SourceUserId = user.Id
	err, acceptSaved := u.Store.SaveActivity(u.Conf, accept)
	if err != nil {
		return err
	}
	return u.Delivery.DeliverTo(acceptSaved, []string{followerURI})
}

func (u *UserActor) inboxAccept(user *domain.User, obj *domain.ActivityObject) error {
	// the accepting actor is who the user now follows
	sourceURI := obj.Actor
	if sourceURI == "" {
		if embedded := obj.EmbeddedObject(); embedded != nil {
			sourceURI = embedded.ObjectURI()
		}
	}
	if sourceURI == "" {
		return fmt.Errorf("%w: Accept without a resolvable actor", domain.ErrInvalidActivity)
	}

	userURI := UserURI(u.Conf, user)
	err, existing := u.Store.ReadFollowByActorAndTarget(userURI, sourceURI)
	if err == nil && existing != nil {
		return u.Store.AcceptFollow(userURI, sourceURI)
	}

	follow := &domain.Follow{
		Id:        uuid.New(),
		ActorURI:  userURI,
		TargetURI: sourceURI,
		URI:       obj.ObjectURI(),
		Accepted:  true,
		CreatedAt: time.Now(),
	}
	return u.Store.CreateFollow(follow)
}

// createPostFromObject builds and persists a post from an embedded Create
// object, resolving its parent and attaching the groups addressed by the
// wrapping activity.
func createPostFromObject(conf *util.AppConfig, store Store, senderId uuid.UUID,
	embedded *domain.ActivityObject, wrapper *domain.ActivityObject) (error, *domain.Post) {

	post := &domain.Post{
		Id:        uuid.New(),
		URI:       embedded.ID,
		Content:   embedded.Content,
		SenderId:  senderId,
		CreatedAt: time.Now(),
	}
	if embedded.Source != nil {
		post.Source = embedded.Source.Content
		post.SourceMediaType = embedded.Source.MediaType
	}
	if parentURI := ExtractReferenceURI(embedded.InReplyTo); parentURI != "" {
		if err, parent := store.ReadPostByUri(parentURI); err == nil && parent != nil {
			post.ParentId = parent.Id
		}
	}
	if post.URI == "" {
		// the embedded object's id is backfilled from this uri on save
		post.URI = PostURI(conf, post.Id)
	}

	if err := store.CreatePost(post); err != nil {
		return err, nil
	}

	for _, target := range CollectTargets(wrapper) {
		ref, kind := ParseActor(target)
		if kind != KindGroup {
			continue
		}
		err, group := getOrCreateGroup(conf, store, target, ref)
		if err != nil {
			return err, nil
		}
		if err := store.AddPostToGroup(post.Id, group.Id); err != nil {
			return err, nil
		}
	}

	return nil, post
}

// relayToFollowers forwards an inbox activity to all followers of the
// receiving actor.
func relayToFollowers(delivery *Delivery, store Store, a *domain.Activity, actorURI string) error {
	err, followers := store.ReadFollowersByTargetURI(actorURI)
	if err != nil {
		return fmt.Errorf("failed to read followers of %s: %w", actorURI, err)
	}
	if followers == nil || len(*followers) == 0 {
		return nil
	}

	targets := make([]string, 0, len(*followers))
	for _, follower := range *followers {
		targets = append(targets, follower.ActorURI)
	}
	return delivery.DeliverTo(a, targets)
}
