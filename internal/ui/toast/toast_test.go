package toast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ghnotify/internal/emit"
	"github.com/nhle/ghnotify/internal/model"
)

var (
	_ emit.Displayer = (*Center)(nil)
	_ emit.Badge     = (*Center)(nil)
)

func TestDisplay_QueuesToast(t *testing.T) {
	c := NewCenter()

	require.NoError(t, c.Display(context.Background(), "42", "Mentioned in acme/web", "Fix login", 2))

	msg := c.WaitForToast()()
	assert.Equal(t, Msg{Key: "42", Title: "Mentioned in acme/web", Body: "Fix login", Priority: 2}, msg)
}

func TestDisplay_FullQueue(t *testing.T) {
	c := NewCenter()
	ctx := context.Background()

	for i := 0; i < defaultQueueSize; i++ {
		require.NoError(t, c.Display(ctx, "k", "t", "b", 2))
	}
	assert.ErrorIs(t, c.Display(ctx, "k", "t", "b", 2), ErrQueueFull)
}

func TestDisplay_CanceledContext(t *testing.T) {
	c := NewCenter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Display(ctx, "k", "t", "b", 2), context.Canceled)
}

func TestBadge_CoalescesChanges(t *testing.T) {
	c := NewCenter()

	c.SetBadgeText("3")
	c.SetBadgeColor(emit.BadgeColor)
	c.SetBadgeText("4")

	msg := c.WaitForBadge()()
	assert.Equal(t, BadgeMsg{Text: "4", Color: emit.BadgeColor}, msg)
}

func TestCenter_WithEmitter(t *testing.T) {
	c := NewCenter()
	e := emit.New(c, c)

	th := model.Thread{
		ID:         "7",
		Repository: model.Repository{FullName: "acme/web"},
		Subject:    model.Subject{Title: "Review me"},
		Reason:     model.ReasonReviewRequested,
	}
	require.NoError(t, e.Emit(context.Background(), th))
	e.UpdateBadge([]model.Thread{th})

	toast := c.WaitForToast()().(Msg)
	assert.Equal(t, "Review requested in acme/web", toast.Title)
	assert.Equal(t, "1", c.Badge().Text)
}
