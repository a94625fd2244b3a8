package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/source"
	"github.com/nhle/ghnotify/internal/store"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "user_id"
	ContextLogin  = "login"
	ContextSource = "source"
)

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// AuthMiddleware resolves the bearer token to a GitHub user, upserts the
// matching users row and stores the user id and a per-request Source in
// the context.
func AuthMiddleware(sources source.Factory, users store.UserStore, log *zap.Logger) gin.HandlerFunc {
	log = log.Named("AuthMiddleware")
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		src, err := sources(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		profile, err := src.CurrentUser(c.Request.Context())
		if err != nil {
			status, msg := sourceErrorStatus(err)
			log.Warn("resolving GitHub user", zap.Int("status", status), zap.Error(err))
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		user, err := users.UpsertUser(c.Request.Context(), *profile)
		if err != nil {
			log.Error("upserting user", zap.String("login", profile.Login), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextLogin, user.Login)
		c.Set(ContextSource, src)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// sourceErrorStatus maps a remote failure to an HTTP status and message.
func sourceErrorStatus(err error) (int, string) {
	switch {
	case source.IsAuthError(err):
		return http.StatusUnauthorized, "Unauthorized"
	case source.IsRateLimitError(err):
		return http.StatusTooManyRequests, "GitHub rate limit exceeded"
	case source.IsNetworkError(err):
		return http.StatusBadGateway, "GitHub request failed"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func requestSource(c *gin.Context) source.Source {
	v, _ := c.Get(ContextSource)
	src, _ := v.(source.Source)
	return src
}
