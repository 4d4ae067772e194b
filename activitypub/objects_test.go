package activitypub

import (
	"testing"
	"time"

	"github.com/deemkeen/groupodon/domain"
	"github.com/google/uuid"
)

func TestNewActivity(t *testing.T) {
	obj := &domain.ActivityObject{ID: "https://example.com/p/5", Type: domain.TypeCreate}
	activity := NewActivity(obj)

	if activity.Id != 0 {
		t.Error("Fresh activity must not carry a storage id")
	}
	if activity.URI != obj.ID || activity.Type != domain.TypeCreate {
		t.Errorf("Unexpected activity: %+v", activity)
	}
	if activity.Object != obj {
		t.Error("Payload must be attached by reference")
	}
	if activity.Created.IsZero() {
		t.Error("Created timestamp missing")
	}
}

func TestWrapInCreateActorFromAttributedTo(t *testing.T) {
	obj := &domain.ActivityObject{
		Type:         domain.TypeArticle,
		AttributedTo: "https://example.com/user/author",
		Content:      "text",
	}

	wrapped := WrapInCreate(obj, "https://example.com/user/sender")
	if wrapped.Type != domain.TypeCreate {
		t.Errorf("Expected Create, got %s", wrapped.Type)
	}
	if wrapped.Actor != "https://example.com/user/author" {
		t.Errorf("attributedTo must win over the sender, got %s", wrapped.Actor)
	}
	if wrapped.Object != obj {
		t.Error("Embedded object must be the original, not a copy")
	}
	if wrapped.ID != "" {
		t.Errorf("Wrapper id must stay empty until persistence, got %s", wrapped.ID)
	}
}

func TestWrapInCreateActorFallsBackToSender(t *testing.T) {
	obj := &domain.ActivityObject{Type: domain.TypeArticle}
	wrapped := WrapInCreate(obj, "https://example.com/user/sender")
	if wrapped.Actor != "https://example.com/user/sender" {
		t.Errorf("Expected sender as actor, got %s", wrapped.Actor)
	}
}

func TestWrapInCreateAddressingSharedAndDefaulted(t *testing.T) {
	obj := &domain.ActivityObject{
		Type: domain.TypeArticle,
		To:   []string{"https://example.com/group/chess"},
	}

	wrapped := WrapInCreate(obj, "https://example.com/user/sender")

	// present fields carry over as the same backing slice
	if len(wrapped.To) != 1 || &wrapped.To[0] != &obj.To[0] {
		t.Error("to must be carried over by reference")
	}
	// absent fields default to an empty list, never nil
	if wrapped.Cc == nil || len(wrapped.Cc) != 0 {
		t.Errorf("cc must default to an empty list, got %v", wrapped.Cc)
	}
	if wrapped.Bto == nil || wrapped.Bcc == nil || wrapped.Audience == nil {
		t.Error("All addressing fields must be non-nil")
	}
}

func TestWrapInCreatePublished(t *testing.T) {
	obj := &domain.ActivityObject{Type: domain.TypeArticle, Published: "2024-05-01T10:00:00Z"}
	wrapped := WrapInCreate(obj, "https://example.com/user/s")
	if wrapped.Published != "2024-05-01T10:00:00Z" {
		t.Errorf("Existing published must carry over, got %s", wrapped.Published)
	}

	bare := &domain.ActivityObject{Type: domain.TypeArticle}
	wrapped = WrapInCreate(bare, "https://example.com/user/s")
	if wrapped.Published == "" {
		t.Error("Missing published must default to now")
	}
	if _, err := time.Parse(time.RFC3339, wrapped.Published); err != nil {
		t.Errorf("Defaulted published is not RFC3339: %v", err)
	}
}

func TestBuildPostObjectArticle(t *testing.T) {
	conf := testConf()
	sender := &domain.User{Id: uuid.New(), Name: "alyssa", URI: "https://example.com/user/alyssa"}
	post := &domain.Post{
		Id:        uuid.New(),
		URI:       "https://example.com/post/abc",
		Content:   "<p>hi</p>",
		Source:    "hi",
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	groups := []domain.Group{{Name: "chess", URI: "https://example.com/group/chess"}}

	obj := BuildPostObject(conf, post, sender, groups, nil, nil, nil)

	if obj.Type != domain.TypeArticle {
		t.Fatalf("Expected Article, got %s", obj.Type)
	}
	if obj.ID != post.URI || obj.Content != post.Content {
		t.Errorf("Unexpected object: %+v", obj)
	}
	if obj.AttributedTo != sender.URI {
		t.Errorf("Unexpected attributedTo: %s", obj.AttributedTo)
	}
	if len(obj.To) != 1 || obj.To[0] != "https://example.com/group/chess" {
		t.Errorf("Unexpected to: %v", obj.To)
	}
	if obj.Published != "2024-05-01T10:00:00Z" {
		t.Errorf("Unexpected published: %s", obj.Published)
	}
	if obj.Source == nil || obj.Source.MediaType != "text/markdown" {
		t.Errorf("Source mediaType must default to markdown: %+v", obj.Source)
	}
	if obj.InReplyTo != nil {
		t.Error("Top-level post must carry no inReplyTo")
	}
	if obj.Replies != nil {
		t.Error("Post without replies must carry no replies collection")
	}
}

func TestBuildPostObjectReplyAndReplies(t *testing.T) {
	conf := testConf()
	parent := &domain.Post{URI: "https://example.com/post/root"}
	post := &domain.Post{URI: "https://example.com/post/child", Content: "reply", CreatedAt: time.Now()}
	replies := []domain.Post{
		{URI: "https://example.com/post/grandchild-1"},
		{URI: "https://example.com/post/grandchild-2"},
	}

	obj := BuildPostObject(conf, post, nil, nil, parent, replies, nil)

	if obj.InReplyTo != parent.URI {
		t.Errorf("Unexpected inReplyTo: %v", obj.InReplyTo)
	}
	col, ok := obj.Replies.(*Collection)
	if !ok {
		t.Fatalf("Expected replies Collection, got %T", obj.Replies)
	}
	if col.TotalItems != 2 || col.Items[0] != "https://example.com/post/grandchild-1" {
		t.Errorf("Unexpected replies collection: %+v", col)
	}
}

func TestBuildPostObjectTombstone(t *testing.T) {
	conf := testConf()
	post := &domain.Post{URI: "https://example.com/post/gone", Deleted: true}
	history := []domain.Activity{
		{Type: domain.TypeCreate, Created: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{
			Type:    domain.TypeDelete,
			Created: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Object: &domain.ActivityObject{
				Published: "2024-06-01T12:30:00Z",
				Summary:   "posted in the wrong group",
			},
		},
	}

	obj := BuildPostObject(conf, post, nil, nil, nil, nil, history)

	if obj.Type != domain.TypeTombstone {
		t.Fatalf("Expected Tombstone, got %s", obj.Type)
	}
	if obj.FormerType != domain.TypeArticle {
		t.Errorf("Unexpected formerType: %s", obj.FormerType)
	}
	if obj.Deleted != "2024-06-01T12:30:00Z" {
		t.Errorf("Deletion time must come from the Delete payload, got %s", obj.Deleted)
	}
	if obj.Reason != "posted in the wrong group" {
		t.Errorf("Unexpected reason: %s", obj.Reason)
	}
	if obj.Content != "" {
		t.Error("Tombstone must not leak the post content")
	}
}

func TestBuildPostObjectTombstonePicksNewestDelete(t *testing.T) {
	conf := testConf()
	post := &domain.Post{URI: "https://example.com/post/gone", Deleted: true}
	history := []domain.Activity{
		{Type: domain.TypeDelete, Created: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Object: &domain.ActivityObject{Summary: "first"}},
		{Type: domain.TypeDelete, Created: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			Object: &domain.ActivityObject{Summary: "second"}},
	}

	obj := BuildPostObject(conf, post, nil, nil, nil, nil, history)
	if obj.Reason != "second" {
		t.Errorf("Expected newest Delete to win, got %s", obj.Reason)
	}
}

func TestBuildPostObjectTombstoneWithoutHistory(t *testing.T) {
	conf := testConf()
	post := &domain.Post{URI: "https://example.com/post/gone", Deleted: true}

	obj := BuildPostObject(conf, post, nil, nil, nil, nil, nil)
	if obj.Reason != "Unknown reason" {
		t.Errorf("Unexpected fallback reason: %s", obj.Reason)
	}
	if obj.Deleted != "1970-01-01T00:00:00Z" {
		t.Errorf("Unexpected fallback deletion time: %s", obj.Deleted)
	}
}

func TestBuildAcceptObject(t *testing.T) {
	follow := &domain.ActivityObject{ID: "https://far.example.org/p/1", Type: domain.TypeFollow}
	obj := BuildAcceptObject("https://example.com/group/chess", follow, "https://far.example.org/user/fan")

	if obj.Type != domain.TypeAccept {
		t.Errorf("Expected Accept, got %s", obj.Type)
	}
	if obj.Actor != "https://example.com/group/chess" {
		t.Errorf("Unexpected actor: %s", obj.Actor)
	}
	if obj.Object != follow {
		t.Error("Embedded object must be attached by reference")
	}
	if obj.Target != "https://far.example.org/user/fan" {
		t.Errorf("Unexpected target: %v", obj.Target)
	}
}
