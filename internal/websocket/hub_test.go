package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"sloth-wake-be/internal/dto"
	"sloth-wake-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, "session_events", logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func attach(hub *Hub, sessionID string, buffer int) *Client {
	c := &Client{Hub: hub, SessionID: sessionID, Send: make(chan []byte, buffer)}
	hub.register <- c
	return c
}

func TestPublishReachesOnlyThatSession(t *testing.T) {
	hub := startHub(t)
	a := attach(hub, "s-a", 4)
	b := attach(hub, "s-b", 4)
	require.Eventually(t, func() bool { return hub.Subscribers("s-a") == 1 && hub.Subscribers("s-b") == 1 }, time.Second, time.Millisecond)

	hub.Publish("s-a", dto.SessionFeedEvent{SessionId: "s-a", Operation: "validate", Phase: "RESISTING", EscalationLevel: 1})

	select {
	case raw := <-a.Send:
		var msg struct {
			Type string               `json:"type"`
			Data dto.SessionFeedEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "session_event", msg.Type)
		assert.Equal(t, "RESISTING", msg.Data.Phase)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	assert.Empty(t, b.Send)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	c := attach(hub, "s-slow", 1)
	require.Eventually(t, func() bool { return hub.Subscribers("s-slow") == 1 }, time.Second, time.Millisecond)

	hub.Publish("s-slow", dto.SessionFeedEvent{SessionId: "s-slow"})
	hub.Publish("s-slow", dto.SessionFeedEvent{SessionId: "s-slow"})

	assert.Eventually(t, func() bool { return hub.Subscribers("s-slow") == 0 }, time.Second, time.Millisecond)

	<-c.Send
	_, open := <-c.Send
	assert.False(t, open)
}

func TestDropAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(nil, "session_events", logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := attach(hub, "s-late", 1)
	require.Eventually(t, func() bool { return hub.Subscribers("s-late") == 1 }, time.Second, time.Millisecond)
	cancel()
	<-stopped

	returned := make(chan struct{})
	go func() {
		hub.detach(c)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("detach blocked after the hub stopped")
	}

	assert.False(t, hub.attach(&Client{Hub: hub, SessionID: "s-late", Send: make(chan []byte, 1)}))
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := startHub(t)
	assert.NotPanics(t, func() {
		hub.Publish("nobody", dto.SessionFeedEvent{SessionId: "nobody"})
	})
}
