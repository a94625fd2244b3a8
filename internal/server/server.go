// Package server is the companion web service: authenticated notification
// sync, mark-read relay, a server-push stream and the GitHub webhook
// receiver.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/events"
	"github.com/nhle/ghnotify/internal/service"
	"github.com/nhle/ghnotify/internal/source"
	"github.com/nhle/ghnotify/internal/store"
)

const defaultHeartbeat = 30 * time.Second

// Config holds the HTTP-facing settings.
type Config struct {
	AllowedOrigins []string
	WebhookSecret  string
	Heartbeat      time.Duration
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Notifications *service.NotificationService
	Users         store.UserStore
	Sources       source.Factory
	Broker        events.Broker
	Registry      *prometheus.Registry
	Logger        *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg Config, deps Deps) *gin.Engine {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log), corsMiddleware(cfg.AllowedOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	notifications := NewNotificationHandler(deps.Notifications, log)
	stream := NewStreamHandler(deps.Broker, cfg.Heartbeat, log)
	webhook := NewWebhookHandler(cfg.WebhookSecret, deps.Broker, log)

	api := r.Group("/api")
	api.POST("/webhooks/github", webhook.Receive)

	authed := api.Group("/notifications")
	authed.Use(AuthMiddleware(deps.Sources, deps.Users, log))
	{
		authed.GET("", notifications.List)
		authed.POST("", notifications.Action)
		authed.GET("/stream", stream.Stream)
		authed.GET("/:id", notifications.Details)
		authed.PATCH("/:id", notifications.MarkRead)
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Length",
			"Content-Type",
			"Authorization",
			"Accept",
		},
		ExposeHeaders: []string{"Content-Length", unreadCountHeader},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 || containsOrigin(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func containsOrigin(origins []string, origin string) bool {
	for _, o := range origins {
		if o == origin {
			return true
		}
	}
	return false
}
