package web

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/deemkeen/groupodon/domain"
	"github.com/google/uuid"
)

func TestGroupRSSFeed(t *testing.T) {
	server, _, store := setupServer(t)
	alice := createLocalUser(t, store, "alice")
	group := createLocalGroup(t, store, "gardening")

	post := &domain.Post{
		Id:        uuid.New(),
		Content:   "Tomatoes are in season",
		SenderId:  alice.Id,
		CreatedAt: time.Now(),
	}
	post.URI = "https://example.com/post/" + post.Id.String()
	if err := store.CreatePost(post); err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	if err := store.AddPostToGroup(post.Id, group.Id); err != nil {
		t.Fatalf("Failed to link post to group: %v", err)
	}

	err, rss := GetGroupRSS(server.Conf, store, "gardening")
	if err != nil {
		t.Fatalf("GetGroupRSS failed: %v", err)
	}

	if !strings.Contains(rss, "<rss") {
		t.Error("Feed should be RSS XML")
	}
	if !strings.Contains(rss, "Tomatoes are in season") {
		t.Error("Feed should carry the post content")
	}
	if !strings.Contains(rss, "gardening@example.com") {
		t.Errorf("Feed title should name the group, got: %s", rss)
	}
}

func TestGroupRSSUnknownGroup(t *testing.T) {
	server, _, store := setupServer(t)

	err, _ := GetGroupRSS(server.Conf, store, "nothing")
	if err == nil {
		t.Error("Expected an error for an unknown group")
	}
}

func TestGroupRSSExcludesDeletedPosts(t *testing.T) {
	server, _, store := setupServer(t)
	alice := createLocalUser(t, store, "alice")
	group := createLocalGroup(t, store, "gardening")

	post := &domain.Post{
		Id:        uuid.New(),
		Content:   "soon gone",
		SenderId:  alice.Id,
		CreatedAt: time.Now(),
	}
	post.URI = "https://example.com/post/" + post.Id.String()
	if err := store.CreatePost(post); err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	if err := store.AddPostToGroup(post.Id, group.Id); err != nil {
		t.Fatalf("Failed to link post to group: %v", err)
	}
	if err := store.SoftDeletePost(post.Id); err != nil {
		t.Fatalf("Failed to delete post: %v", err)
	}

	err, rss := GetGroupRSS(server.Conf, store, "gardening")
	if err != nil {
		t.Fatalf("GetGroupRSS failed: %v", err)
	}
	if strings.Contains(rss, "soon gone") {
		t.Error("Deleted posts must not appear in the feed")
	}
}

func TestFeedEndpoint(t *testing.T) {
	server, _, store := setupServer(t)
	createLocalGroup(t, store, "gardening")

	w := doJSON(t, server, "GET", "/feed/gardening", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "xml") {
		t.Errorf("Expected XML content type, got %s", ct)
	}

	if w := doJSON(t, server, "GET", "/feed/nothing", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown group, got %d", w.Code)
	}
}

func TestFeedTitleTruncation(t *testing.T) {
	long := strings.Repeat("a", 100)
	title := feedTitle(long, time.Now())
	if len([]rune(title)) != rssTitleLength+1 {
		t.Errorf("Expected truncated title of %d runes, got %d", rssTitleLength+1, len([]rune(title)))
	}

	short := feedTitle("hello", time.Now())
	if short != "hello" {
		t.Errorf("Short titles should pass through, got %q", short)
	}

	empty := feedTitle("", time.Unix(0, 0))
	if empty == "" {
		t.Error("Empty content should fall back to the timestamp")
	}
}
