package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/metrics"
)

func TestNewEvent(t *testing.T) {
	e, err := NewEvent(TypeSync, map[string]int{"count": 3})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, TypeSync, e.Type)
	assert.JSONEq(t, `{"count":3}`, string(e.Payload))
	assert.False(t, e.Timestamp.IsZero())
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

func TestMemoryBroker_FanOut(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop(), nil)
	defer b.Close()
	ctx := context.Background()

	a, cancelA, err := b.Subscribe(ctx, UserTopic("u1"))
	require.NoError(t, err)
	defer cancelA()

	both, cancelBoth, err := b.Subscribe(ctx, UserTopic("u1"), LoginTopic("octocat"))
	require.NoError(t, err)
	defer cancelBoth()

	other, cancelOther, err := b.Subscribe(ctx, UserTopic("u2"))
	require.NoError(t, err)
	defer cancelOther()

	e, _ := NewEvent(TypeSync, nil)
	require.NoError(t, b.Publish(ctx, UserTopic("u1"), e))

	assert.Equal(t, e.ID, receive(t, a).ID)
	assert.Equal(t, e.ID, receive(t, both).ID)

	w, _ := NewEvent(TypeWebhook, nil)
	require.NoError(t, b.Publish(ctx, LoginTopic("octocat"), w))
	assert.Equal(t, TypeWebhook, receive(t, both).Type)

	select {
	case got := <-other:
		t.Fatalf("unexpected event for other user: %+v", got)
	default:
	}
}

func TestMemoryBroker_CancelClosesChannel(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop(), nil)
	defer b.Close()

	ch, cancel, err := b.Subscribe(context.Background(), UserTopic("u1"))
	require.NoError(t, err)

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	e, _ := NewEvent(TypeSync, nil)
	assert.NoError(t, b.Publish(context.Background(), UserTopic("u1"), e))
}

func TestMemoryBroker_ContextEndsSubscription(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop(), nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _, err := b.Subscribe(ctx, UserTopic("u1"))
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestRedisBroker_Publish(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	b := NewRedisBroker(rdb, zap.NewNop(), metrics.New(prometheus.NewRegistry()))

	e := Event{
		ID:        "evt-1",
		Type:      TypeSync,
		Timestamp: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Payload:   json.RawMessage(`{"count":1}`),
	}
	data, err := json.Marshal(e)
	require.NoError(t, err)

	mock.ExpectPublish("ghnotify:user:u1", data).SetVal(1)

	require.NoError(t, b.Publish(context.Background(), UserTopic("u1"), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBroker_PublishError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	b := NewRedisBroker(rdb, zap.NewNop(), nil)

	e := Event{ID: "evt-1", Type: TypeSync, Timestamp: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	data, err := json.Marshal(e)
	require.NoError(t, err)

	mock.ExpectPublish("ghnotify:user:u1", data).SetErr(errors.New("connection refused"))

	err = b.Publish(context.Background(), UserTopic("u1"), e)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
