// Package events fans stream events out to server-push subscribers,
// either in process or across instances through Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types delivered on the notification stream.
const (
	TypeConnected = "connected"
	TypeHeartbeat = "heartbeat"
	TypeSync      = "sync"
	TypeRead      = "read"
	TypeWebhook   = "webhook"
)

// Event is one message on the stream.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event with a fresh id. payload may be nil.
func NewEvent(typ string, payload interface{}) (Event, error) {
	e := Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		e.Payload = data
	}
	return e, nil
}

// UserTopic is the topic carrying events for one local user.
func UserTopic(userID string) string {
	return "user:" + userID
}

// LoginTopic is the topic carrying webhook events that mention a GitHub
// login.
func LoginTopic(login string) string {
	return "login:" + login
}

// Broker publishes events to topics and delivers them to subscribers.
type Broker interface {
	Publish(ctx context.Context, topic string, e Event) error

	// Subscribe returns a channel receiving events for any of topics. The
	// channel is closed after cancel is called or ctx ends.
	Subscribe(ctx context.Context, topics ...string) (<-chan Event, func(), error)

	Close() error
}
