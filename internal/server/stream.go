package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/events"
)

// StreamHandler serves the server-push notification stream.
type StreamHandler struct {
	broker    events.Broker
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(broker events.Broker, heartbeat time.Duration, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		broker:    broker,
		heartbeat: heartbeat,
		logger:    logger.Named("StreamHandler"),
	}
}

// Stream relays events for the caller until the client disconnects. A
// connected event is sent first, then a heartbeat every interval.
func (h *StreamHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(ContextUserID)

	topics := []string{events.UserTopic(userID)}
	if login := c.GetString(ContextLogin); login != "" {
		topics = append(topics, events.LoginTopic(login))
	}

	var relay <-chan events.Event
	if h.broker != nil {
		ch, cancel, err := h.broker.Subscribe(ctx, topics...)
		if err != nil {
			h.logger.Error("subscribing to stream", zap.String("userID", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Stream unavailable"})
			return
		}
		defer cancel()
		relay = ch
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if !h.send(c, events.TypeConnected, map[string]string{"user_id": userID}) {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !h.send(c, events.TypeHeartbeat, nil) {
				return
			}
		case e, ok := <-relay:
			if !ok {
				return
			}
			if !render(c, e) {
				return
			}
		}
	}
}

func (h *StreamHandler) send(c *gin.Context, typ string, payload interface{}) bool {
	e, err := events.NewEvent(typ, payload)
	if err != nil {
		h.logger.Warn("building stream event", zap.String("type", typ), zap.Error(err))
		return false
	}
	return render(c, e)
}

// render writes e as one id-tagged frame and flushes it.
func render(c *gin.Context, e events.Event) bool {
	c.Render(-1, sse.Event{Id: e.ID, Event: e.Type, Data: e})
	if c.IsAborted() {
		return false
	}
	c.Writer.Flush()
	return true
}
