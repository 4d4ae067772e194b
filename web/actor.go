package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/deemkeen/groupodon/activitypub"
	"github.com/deemkeen/groupodon/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const activityJSONContentType = "application/activity+json; charset=utf-8"

func (s *Server) handleUserDocument(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, user := s.Store.ReadUserByName(c.Param("name"))
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}

	uri := activitypub.UserURI(s.Conf, user)
	c.JSON(http.StatusOK, gin.H{
		"@context":          domain.ActivityStreamsContext,
		"id":                uri,
		"type":              "Person",
		"preferredUsername": user.Name,
		"inbox":             uri + "/inbox",
		"outbox":            uri + "/outbox",
		"followers":         uri + "/followers",
		"published":         user.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGroupDocument(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, group := s.Store.ReadGroupByName(c.Param("name"))
	if err != nil || group == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}

	uri := activitypub.GroupURI(s.Conf, group)
	c.JSON(http.StatusOK, gin.H{
		"@context":          domain.ActivityStreamsContext,
		"id":                uri,
		"type":              "Group",
		"preferredUsername": group.Name,
		"inbox":             uri + "/inbox",
		"outbox":            uri + "/outbox",
		"followers":         uri + "/followers",
		"published":         group.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// handleActivityDocument serves a persisted activity payload under its
// canonical /p/{id} uri.
func (s *Server) handleActivityDocument(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid activity ID"})
		return
	}

	err2, activity := s.Store.FindActivityById(id)
	if err2 != nil || activity == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Activity not found"})
		return
	}

	c.JSON(http.StatusOK, activity.Object)
}

// handlePostDocument serves a post as an Article, or as a Tombstone with 410
// once the post is soft-deleted.
func (s *Server) handlePostDocument(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid post ID"})
		return
	}

	err2, post := s.Store.ReadPostByUri(activitypub.PostURI(s.Conf, id))
	if err2 != nil || post == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	var sender *domain.User
	if err3, senderRow := s.Store.ReadUserById(post.SenderId); err3 == nil {
		sender = senderRow
	}

	var groups []domain.Group
	if err3, groupRows := s.Store.ReadGroupsForPost(post.Id); err3 == nil && groupRows != nil {
		groups = *groupRows
	}

	_, parent := s.Store.ReadParentForPost(post)

	var replies []domain.Post
	if err3, replyRows := s.Store.ReadRepliesForPost(post.Id); err3 == nil && replyRows != nil {
		replies = *replyRows
	}

	var history []domain.Activity
	if err3, historyRows := s.Store.ReadActivitiesForPost(post.Id); err3 == nil && historyRows != nil {
		history = *historyRows
	}

	obj := activitypub.BuildPostObject(s.Conf, post, sender, groups, parent, replies, history)

	status := http.StatusOK
	if post.Deleted {
		status = http.StatusGone
	}
	c.JSON(status, obj)
}

func (s *Server) handleUserFollowers(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, user := s.Store.ReadUserByName(c.Param("name"))
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}
	s.renderFollowers(c, activitypub.UserURI(s.Conf, user))
}

func (s *Server) handleGroupFollowers(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, group := s.Store.ReadGroupByName(c.Param("name"))
	if err != nil || group == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}
	s.renderFollowers(c, activitypub.GroupURI(s.Conf, group))
}

func (s *Server) renderFollowers(c *gin.Context, actorURI string) {
	err, followers := s.Store.ReadFollowersByTargetURI(actorURI)
	if err != nil {
		renderError(c, err)
		return
	}

	items := make([]any, 0, len(*followers))
	for _, follower := range *followers {
		items = append(items, follower.ActorURI)
	}

	collection := activitypub.CreateCollection(items)
	collection.ID = actorURI + "/followers"
	c.JSON(http.StatusOK, collection)
}
