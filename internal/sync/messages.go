package sync

import "github.com/nhle/ghnotify/internal/model"

// Message is an inbound request to the poller. The set of messages is
// closed; Handle switches over every variant.
type Message interface {
	isMessage()
}

// AuthSucceeded carries a freshly issued token and, when known, the
// signed-in user's profile.
type AuthSucceeded struct {
	Token string
	User  *model.Profile
}

// RefreshRequested asks for an immediate poll.
type RefreshRequested struct{}

// TestNotificationRequested shows a fixed notification to check that the
// display path works.
type TestNotificationRequested struct{}

// MockMentionRequested shows a mention notification for Thread without
// polling.
type MockMentionRequested struct {
	Thread model.Thread
}

func (AuthSucceeded) isMessage()             {}
func (RefreshRequested) isMessage()          {}
func (TestNotificationRequested) isMessage() {}
func (MockMentionRequested) isMessage()      {}
