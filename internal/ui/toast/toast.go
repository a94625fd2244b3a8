// Package toast shows emitter output inside the terminal inbox: displayed
// notifications become toasts and the badge is drawn in the header.
package toast

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

const defaultQueueSize = 32

// ErrQueueFull is returned by Display when toasts are not being consumed.
var ErrQueueFull = errors.New("toast queue full")

// Msg is one displayed notification.
type Msg struct {
	Key      string
	Title    string
	Body     string
	Priority int
}

// BadgeMsg carries the current badge text and color.
type BadgeMsg struct {
	Text  string
	Color string
}

// Center implements emit.Displayer and emit.Badge for the inbox.
type Center struct {
	toasts chan Msg
	dirty  chan struct{}

	mu    sync.Mutex
	text  string
	color string
}

// NewCenter creates a Center with a bounded toast queue.
func NewCenter() *Center {
	return &Center{
		toasts: make(chan Msg, defaultQueueSize),
		dirty:  make(chan struct{}, 1),
	}
}

// Display queues a toast without blocking.
func (c *Center) Display(ctx context.Context, key, title, body string, priority int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case c.toasts <- Msg{Key: key, Title: title, Body: body, Priority: priority}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Center) SetBadgeText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
	c.markDirty()
}

func (c *Center) SetBadgeColor(rgb string) {
	c.mu.Lock()
	c.color = rgb
	c.mu.Unlock()
	c.markDirty()
}

func (c *Center) markDirty() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

// Badge returns the current badge state.
func (c *Center) Badge() BadgeMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BadgeMsg{Text: c.text, Color: c.color}
}

// WaitForToast returns a tea.Cmd that blocks until the next toast.
func (c *Center) WaitForToast() tea.Cmd {
	return func() tea.Msg {
		return <-c.toasts
	}
}

// WaitForBadge returns a tea.Cmd that blocks until the badge changes and
// then reports its latest state. Changes made in between are coalesced.
func (c *Center) WaitForBadge() tea.Cmd {
	return func() tea.Msg {
		<-c.dirty
		return c.Badge()
	}
}
