package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/deemkeen/groupodon/activitypub"
	"github.com/deemkeen/groupodon/domain"
	"github.com/gin-gonic/gin"
)

// activityTypes are the payload types the actors treat as activities. Anything
// else posted to an outbox is a bare object and gets wrapped in a Create.
var activityTypes = map[string]bool{
	domain.TypeCreate: true,
	domain.TypeDelete: true,
	domain.TypeUpdate: true,
	domain.TypeFollow: true,
	domain.TypeAccept: true,
	domain.TypeLike:   true,
	domain.TypeAdd:    true,
	domain.TypeRemove: true,
	domain.TypeBlock:  true,
	domain.TypeUndo:   true,
}

func (s *Server) handleUserOutbox(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, user := s.Store.ReadUserByName(c.Param("name"))
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}

	err2, activities := s.Store.ReadActivitiesBySourceUser(user.Id)
	if err2 != nil {
		renderError(c, err2)
		return
	}
	s.renderBox(c, *activities, activitypub.UserURI(s.Conf, user)+"/outbox")
}

func (s *Server) handleUserInbox(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, user := s.Store.ReadUserByName(c.Param("name"))
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}

	err2, activities := s.Store.ReadActivitiesForDestinationUser(user.Id)
	if err2 != nil {
		renderError(c, err2)
		return
	}
	s.renderBox(c, *activities, activitypub.UserURI(s.Conf, user)+"/inbox")
}

func (s *Server) handleGroupOutbox(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, group := s.Store.ReadGroupByName(c.Param("name"))
	if err != nil || group == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}

	err2, activities := s.Store.ReadActivitiesBySourceGroup(group.Id)
	if err2 != nil {
		renderError(c, err2)
		return
	}
	s.renderBox(c, *activities, activitypub.GroupURI(s.Conf, group)+"/outbox")
}

func (s *Server) handleGroupInbox(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, group := s.Store.ReadGroupByName(c.Param("name"))
	if err != nil || group == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}

	err2, activities := s.Store.ReadActivitiesForDestinationGroup(group.Id)
	if err2 != nil {
		renderError(c, err2)
		return
	}
	s.renderBox(c, *activities, activitypub.GroupURI(s.Conf, group)+"/inbox")
}

// renderBox renders an inbox or outbox listing. Without a page parameter the
// whole box is one OrderedCollection; with one, a single page is sliced out.
func (s *Server) renderBox(c *gin.Context, activities []domain.Activity, baseUri string) {
	collection := activitypub.CreateOrderedCollection(activities)
	collection.ID = baseUri

	pageParam := c.Query("page")
	if pageParam == "" {
		c.JSON(http.StatusOK, collection)
		return
	}

	page, err := strconv.Atoi(pageParam)
	if err != nil {
		renderError(c, fmt.Errorf("%w: page %q", domain.ErrOutOfRange, pageParam))
		return
	}

	err2, paged := activitypub.CreatePagedCollection(collection.OrderedItems, boxPageLength, baseUri, page)
	if err2 != nil {
		renderError(c, err2)
		return
	}
	c.JSON(http.StatusOK, paged)
}

func (s *Server) handleUserOutboxPost(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, user := s.Store.ReadUserByName(c.Param("name"))
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}

	obj := s.decodeActivity(c, activitypub.UserURI(s.Conf, user))
	if obj == nil {
		return
	}

	err2, activity := s.Users.AcceptPostRequest(user, obj)
	if err2 != nil {
		renderError(c, err2)
		return
	}

	c.Header("Location", activitypub.ActivityExternalId(s.Conf, activity))
	c.JSON(http.StatusCreated, activity.Object)
}

func (s *Server) handleGroupOutboxPost(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, group := s.Store.ReadGroupByName(c.Param("name"))
	if err != nil || group == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}

	obj := s.decodeActivity(c, activitypub.GroupURI(s.Conf, group))
	if obj == nil {
		return
	}

	err2, activity := s.Groups.AcceptPostRequest(group, obj)
	if err2 != nil {
		renderError(c, err2)
		return
	}

	c.Header("Location", activitypub.ActivityExternalId(s.Conf, activity))
	c.JSON(http.StatusCreated, activity.Object)
}

func (s *Server) handleUserInboxPost(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, user := s.Store.ReadUserByName(c.Param("name"))
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}

	obj := s.decodeActivity(c, "")
	if obj == nil {
		return
	}
	if !activityTypes[obj.Type] {
		renderError(c, fmt.Errorf("%w: inbox payload must be an activity", domain.ErrInvalidActivity))
		return
	}

	if err2 := s.Users.HandleIncoming(user, obj); err2 != nil {
		renderError(c, err2)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) handleGroupInboxPost(c *gin.Context) {
	c.Header("Content-Type", activityJSONContentType)

	err, group := s.Store.ReadGroupByName(c.Param("name"))
	if err != nil || group == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Actor not found"})
		return
	}

	obj := s.decodeActivity(c, "")
	if obj == nil {
		return
	}
	if !activityTypes[obj.Type] {
		renderError(c, fmt.Errorf("%w: inbox payload must be an activity", domain.ErrInvalidActivity))
		return
	}

	if err2 := s.Groups.HandleIncoming(group, obj); err2 != nil {
		renderError(c, err2)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// decodeActivity reads an activity object from the request body. When
// senderURI is set, bare objects are wrapped in a Create attributed to that
// actor; inbox handlers pass an empty senderURI and reject bare objects
// themselves. Returns nil after writing the error response on bad input.
func (s *Server) decodeActivity(c *gin.Context, senderURI string) *domain.ActivityObject {
	var obj domain.ActivityObject
	if err := json.NewDecoder(c.Request.Body).Decode(&obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed activity payload"})
		return nil
	}

	if senderURI != "" && !activityTypes[obj.Type] {
		return activitypub.WrapInCreate(&obj, senderURI)
	}
	return &obj
}
