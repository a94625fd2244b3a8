package emit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ghnotify/internal/model"
)

type shown struct {
	key, title, body string
	priority         int
}

type fakeDisplayer struct {
	shown  []shown
	failOn map[string]bool
}

func (f *fakeDisplayer) Display(_ context.Context, key, title, body string, priority int) error {
	if f.failOn[key] {
		return errors.New("host refused")
	}
	f.shown = append(f.shown, shown{key, title, body, priority})
	return nil
}

type fakeBadge struct {
	mu    sync.Mutex
	text  string
	color string
	texts []string
}

func (b *fakeBadge) SetBadgeText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	b.texts = append(b.texts, text)
}

func (b *fakeBadge) SetBadgeColor(rgb string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.color = rgb
}

func (b *fakeBadge) current() (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text, b.color
}

func newThread(id, reason string) model.Thread {
	return model.Thread{
		ID:         id,
		Reason:     reason,
		Unread:     true,
		Repository: model.Repository{FullName: "acme/web"},
		Subject:    model.Subject{Title: "Subject " + id},
	}
}

func nThreads(n int) []model.Thread {
	out := make([]model.Thread, n)
	for i := range out {
		out[i] = newThread(fmt.Sprint(i), model.ReasonMention)
	}
	return out
}

func TestTitle(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{model.ReasonMention, "Mentioned in acme/web"},
		{model.ReasonReviewRequested, "Review requested in acme/web"},
		{model.ReasonAuthor, "Activity on acme/web"},
		{"something_new", "Activity on acme/web"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(newThread("1", tt.reason)))
		})
	}
}

func TestBadgeText(t *testing.T) {
	assert.Equal(t, "", BadgeText(0))
	assert.Equal(t, "1", BadgeText(1))
	assert.Equal(t, "99", BadgeText(99))
	assert.Equal(t, "99+", BadgeText(100))
	assert.Equal(t, "99+", BadgeText(2500))
}

func TestEmitAll_DisplaysKeyedByID(t *testing.T) {
	d := &fakeDisplayer{}
	e := New(d, &fakeBadge{})

	failed := e.EmitAll(context.Background(), []model.Thread{
		newThread("1", model.ReasonMention),
		newThread("2", model.ReasonReviewRequested),
	})

	assert.Empty(t, failed)
	require.Len(t, d.shown, 2)
	assert.Equal(t, shown{"1", "Mentioned in acme/web", "Subject 1", DefaultPriority}, d.shown[0])
	assert.Equal(t, "2", d.shown[1].key)
}

func TestEmitAll_BestEffort(t *testing.T) {
	d := &fakeDisplayer{failOn: map[string]bool{"2": true}}
	e := New(d, &fakeBadge{})

	failed := e.EmitAll(context.Background(), []model.Thread{
		newThread("1", model.ReasonMention),
		newThread("2", model.ReasonMention),
		newThread("3", model.ReasonMention),
	})

	require.Len(t, failed, 1)
	assert.Equal(t, "2", failed[0].Key)
	assert.Len(t, d.shown, 2)
	assert.Equal(t, "3", d.shown[1].key)
}

func TestUpdateBadge(t *testing.T) {
	b := &fakeBadge{}
	e := New(&fakeDisplayer{}, b)

	assert.Equal(t, "1", e.UpdateBadge(nThreads(1)))
	text, color := b.current()
	assert.Equal(t, "1", text)
	assert.Equal(t, BadgeColor, color)

	e.UpdateBadge(nThreads(100))
	text, _ = b.current()
	assert.Equal(t, "99+", text)

	e.UpdateBadge(nil)
	text, _ = b.current()
	assert.Equal(t, "", text)
	assert.Equal(t, "", e.BadgeText())
}

func TestClearBadge(t *testing.T) {
	b := &fakeBadge{}
	e := New(&fakeDisplayer{}, b)

	e.UpdateBadge(nThreads(3))
	e.ClearBadge()

	text, _ := b.current()
	assert.Equal(t, "", text)
}

func TestFlashAuthSuccess_RestoresCount(t *testing.T) {
	b := &fakeBadge{}
	e := New(&fakeDisplayer{}, b)

	e.UpdateBadge(nThreads(2))
	e.FlashAuthSuccess(20 * time.Millisecond)

	text, color := b.current()
	assert.Equal(t, AuthSuccessText, text)
	assert.Equal(t, AuthSuccessColor, color)

	// Applied once the flash ends.
	e.UpdateBadge(nThreads(5))
	text, _ = b.current()
	assert.Equal(t, AuthSuccessText, text)

	assert.Eventually(t, func() bool {
		text, color := b.current()
		return text == "5" && color == BadgeColor
	}, time.Second, 5*time.Millisecond)
}

func TestMultiDisplayer(t *testing.T) {
	ok := &fakeDisplayer{}
	bad := &fakeDisplayer{failOn: map[string]bool{"1": true}}

	err := MultiDisplayer{bad, ok}.Display(context.Background(), "1", "t", "b", 2)
	assert.Error(t, err)
	assert.Len(t, ok.shown, 1)
}
