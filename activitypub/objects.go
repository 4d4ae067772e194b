package activitypub

import (
	"time"

	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/util"
)

// NewActivity constructs an unpersisted activity entity from a payload. No id
// or uri is assigned here; both happen in the store's save path.
func NewActivity(obj *domain.ActivityObject) *domain.Activity {
	return &domain.Activity{
		URI:     obj.ID,
		Type:    obj.Type,
		Object:  obj,
		Created: time.Now(),
	}
}

// ActivityExternalId returns the canonical external identifier of a persisted
// activity: the payload's own id when present, otherwise the /p/{id} uri
// derived from the storage id. Stable across calls once assigned.
func ActivityExternalId(conf *util.AppConfig, a *domain.Activity) string {
	if a.Object != nil && a.Object.ID != "" {
		return a.Object.ID
	}
	return ActivityURI(conf, a.Id)
}

// WrapInCreate wraps a bare object POSTed to an outbox into a Create
// activity. The actor is taken from the object's attributedTo when present,
// else from the sender. Addressing fields are carried over as-is, defaulting
// to an empty list when absent; the new activity's id stays empty until
// persistence assigns one.
func WrapInCreate(obj *domain.ActivityObject, senderURI string) *domain.ActivityObject {
	actor := obj.AttributedTo
	if actor == "" {
		actor = senderURI
	}

	published := obj.Published
	if published == "" {
		published = time.Now().UTC().Format(time.RFC3339)
	}

	return &domain.ActivityObject{
		Context:   domain.ActivityStreamsContext,
		Type:      domain.TypeCreate,
		Actor:     actor,
		Object:    obj,
		To:        orEmptyList(obj.To),
		Cc:        orEmptyList(obj.Cc),
		Bto:       orEmptyList(obj.Bto),
		Bcc:       orEmptyList(obj.Bcc),
		Audience:  orEmptyList(obj.Audience),
		Published: published,
	}
}

// BuildPostObject renders a post's public representation: an Article while
// the post lives, a Tombstone once it is soft-deleted. history is the post's
// related activity rows, used to recover the deletion reason and timestamp.
func BuildPostObject(conf *util.AppConfig, post *domain.Post, sender *domain.User,
	groups []domain.Group, parent *domain.Post, replies []domain.Post,
	history []domain.Activity) *domain.ActivityObject {

	if post.Deleted {
		return buildTombstone(post, history)
	}

	obj := &domain.ActivityObject{
		Context:   domain.ActivityStreamsContext,
		ID:        post.URI,
		Type:      domain.TypeArticle,
		Content:   post.Content,
		Published: post.CreatedAt.UTC().Format(time.RFC3339),
	}

	if sender != nil {
		obj.AttributedTo = UserURI(conf, sender)
	}

	to := make([]string, 0, len(groups))
	for i := range groups {
		to = append(to, GroupURI(conf, &groups[i]))
	}
	obj.To = to

	if parent != nil {
		obj.InReplyTo = parent.URI
	}

	if post.Source != "" {
		mediaType := post.SourceMediaType
		if mediaType == "" {
			mediaType = "text/markdown"
		}
		obj.Source = &domain.ObjectSource{Content: post.Source, MediaType: mediaType}
	}

	if len(replies) > 0 {
		uris := make([]any, 0, len(replies))
		for i := range replies {
			uris = append(uris, replies[i].URI)
		}
		obj.Replies = CreateCollection(uris)
	}

	return obj
}

// buildTombstone searches the post's activity history for the newest Delete
// and takes the deletion timestamp and reason from it, preferring the
// payload's published field over the row's created timestamp. With no Delete
// on record the tombstone carries epoch zero and a placeholder reason.
func buildTombstone(post *domain.Post, history []domain.Activity) *domain.ActivityObject {
	deleted := time.Unix(0, 0).UTC().Format(time.RFC3339)
	reason := "Unknown reason"

	var del *domain.Activity
	for i := range history {
		if history[i].Type != domain.TypeDelete {
			continue
		}
		if del == nil || history[i].Created.After(del.Created) {
			del = &history[i]
		}
	}

	if del != nil {
		if del.Object != nil && del.Object.Published != "" {
			deleted = del.Object.Published
		} else {
			deleted = del.Created.UTC().Format(time.RFC3339)
		}
		if del.Object != nil && del.Object.Summary != "" {
			reason = del.Object.Summary
		}
	}

	return &domain.ActivityObject{
		Context:    domain.ActivityStreamsContext,
		ID:         post.URI,
		Type:       domain.TypeTombstone,
		FormerType: domain.TypeArticle,
		Deleted:    deleted,
		Reason:     reason,
	}
}

// BuildAcceptObject constructs an Accept activity payload. Pure, no side
// effects.
func BuildAcceptObject(actorURI string, object any, target any) *domain.ActivityObject {
	return &domain.ActivityObject{
		Context: domain.ActivityStreamsContext,
		Type:    domain.TypeAccept,
		Actor:   actorURI,
		Object:  object,
		Target:  target,
	}
}

func orEmptyList(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
