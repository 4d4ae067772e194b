package web

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/deemkeen/groupodon/activitypub"
	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"golang.org/x/time/rate"
)

const boxPageLength = 12

// Server wires the federation core into the HTTP surface.
type Server struct {
	Conf   *util.AppConfig
	Store  activitypub.Store
	Users  *activitypub.UserActor
	Groups *activitypub.GroupActor
}

func NewServer(conf *util.AppConfig, store activitypub.Store, transport activitypub.Transport) *Server {
	delivery := activitypub.NewDelivery(conf, store, transport)
	return &Server{
		Conf:   conf,
		Store:  store,
		Users:  activitypub.NewUserActor(conf, store, delivery),
		Groups: activitypub.NewGroupActor(conf, store, delivery),
	}
}

// Router starts the HTTP server and blocks.
func Router(conf *util.AppConfig, store activitypub.Store) error {
	log.Printf("Starting HTTP server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	server := NewServer(conf, store, activitypub.NewHTTPTransport())
	return server.routes().Run(fmt.Sprintf(":%d", conf.Conf.HttpPort))
}

func (s *Server) routes() *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	g.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": util.Name, "version": util.GetVersion()})
	})

	// RSS feed of a group's timeline
	g.GET("/feed/:group", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")
		err, rss := GetGroupRSS(s.Conf, s.Store, c.Param("group"))
		if err != nil {
			c.Render(http.StatusNotFound, render.String{Format: ""})
		} else {
			c.Render(http.StatusOK, render.String{Format: rss})
		}
	})

	// Stricter rate limit for write endpoints: 5 req/sec per IP
	postLimiter := NewRateLimiter(rate.Limit(5), 10)
	// Max 1MB request body size for activities
	maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024)
	postGuard := RateLimitMiddleware(postLimiter)
	contentGuard := RequireActivityJSON()

	// Activity and post documents
	g.GET("/p/:id", s.handleActivityDocument)
	g.GET("/post/:id", s.handlePostDocument)

	// User actor surface
	g.GET("/user/:name", s.handleUserDocument)
	g.GET("/user/:name/followers", s.handleUserFollowers)
	g.GET("/user/:name/outbox", s.handleUserOutbox)
	g.GET("/user/:name/inbox", s.handleUserInbox)
	g.POST("/user/:name/outbox", postGuard, maxBodySize, contentGuard, s.handleUserOutboxPost)
	g.POST("/user/:name/inbox", postGuard, maxBodySize, contentGuard, s.handleUserInboxPost)

	// Group actor surface
	g.GET("/group/:name", s.handleGroupDocument)
	g.GET("/group/:name/followers", s.handleGroupFollowers)
	g.GET("/group/:name/outbox", s.handleGroupOutbox)
	g.GET("/group/:name/inbox", s.handleGroupInbox)
	g.POST("/group/:name/outbox", postGuard, maxBodySize, contentGuard, s.handleGroupOutboxPost)
	g.POST("/group/:name/inbox", postGuard, maxBodySize, contentGuard, s.handleGroupInboxPost)

	return g
}

// renderError maps the domain error taxonomy onto HTTP statuses.
func renderError(c *gin.Context, err error) {
	var deliveryErr *domain.DeliveryError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrOutOfRange):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidActivity):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotImplemented):
		status = http.StatusNotImplemented
	case errors.As(err, &deliveryErr):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
