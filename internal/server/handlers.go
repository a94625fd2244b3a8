package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/service"
	"github.com/nhle/ghnotify/internal/store"
)

const (
	unreadCountHeader = "X-Unread-Count"

	actionMarkAllRead = "mark-all-read"
)

// NotificationHandler serves the notification endpoints.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		svc:    svc,
		logger: logger.Named("NotificationHandler"),
	}
}

// ActionRequest is the body of POST /api/notifications.
type ActionRequest struct {
	Action string `json:"action" binding:"required"`
}

// List syncs the caller's notifications from GitHub and returns the stored
// set.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString(ContextUserID)

	threads, err := h.svc.Sync(c.Request.Context(), requestSource(c), userID)
	if err != nil {
		h.fail(c, "syncing notifications", err)
		return
	}

	unread := 0
	for _, t := range threads {
		if t.Unread {
			unread++
		}
	}
	c.Header(unreadCountHeader, strconv.Itoa(unread))
	c.JSON(http.StatusOK, threads)
}

// Action applies a bulk action. Only mark-all-read is supported.
func (h *NotificationHandler) Action(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Action != actionMarkAllRead {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported action: " + req.Action})
		return
	}

	n, err := h.svc.MarkAllRead(c.Request.Context(), requestSource(c), c.GetString(ContextUserID))
	if err != nil {
		h.fail(c, "marking all notifications read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}

// Details returns one stored thread, with pull request context for pull
// request subjects.
func (h *NotificationHandler) Details(c *gin.Context) {
	t, err := h.svc.Details(c.Request.Context(), requestSource(c), c.GetString(ContextUserID), c.Param("id"))
	if err != nil {
		h.fail(c, "loading notification", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// MarkRead marks one thread read on GitHub, then locally.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.MarkRead(c.Request.Context(), requestSource(c), c.GetString(ContextUserID), id); err != nil {
		h.fail(c, "marking notification read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *NotificationHandler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	status, msg := sourceErrorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(op, zap.String("userID", c.GetString(ContextUserID)), zap.Error(err))
	} else {
		h.logger.Warn(op, zap.String("userID", c.GetString(ContextUserID)), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}
