package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sloth-wake-be/internal/entity"
	"sloth-wake-be/internal/model"
	"sloth-wake-be/internal/pkg/logger"
	"sloth-wake-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memHistory struct {
	mu       sync.Mutex
	rows     []model.WakeHistory
	failures int
}

func (m *memHistory) Insert(_ context.Context, h *model.WakeHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("db unavailable")
	}
	m.rows = append(m.rows, *h)
	return nil
}

func (m *memHistory) FindBySessionID(_ context.Context, id string) ([]model.WakeHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.WakeHistory
	for _, r := range m.rows {
		if r.SessionID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memHistory) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memForwarder struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *memForwarder) Publish(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memForwarder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func newAuditPipeline(t *testing.T, history *memHistory, fwd EventForwarder) (*gochannel.GoChannel, context.CancelFunc) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	ctx, cancel := context.WithCancel(context.Background())

	consumer := NewConsumerService(pubSub, "wake_audit_test", history, fwd, logger.NewNopLogger())
	cs := consumer.(*consumerService)
	cs.backoff = time.Millisecond
	require.NoError(t, consumer.Consume(ctx))

	t.Cleanup(func() {
		cancel()
		_ = pubSub.Close()
	})
	return pubSub, cancel
}

func TestAuditPipelinePersistsAndForwards(t *testing.T) {
	history := &memHistory{}
	fwd := &memForwarder{}
	pubSub, _ := newAuditPipeline(t, history, fwd)
	recorder := NewAuditRecorder("wake_audit_test", pubSub, logger.NewNopLogger())

	s := entity.WakeSession{ID: "s-1", Phase: entity.PhaseRelease, FailedAttempts: 2, NudgeCount: 1}
	recorder.RecordStart(context.Background(), entity.WakeSession{ID: "s-1", Phase: entity.PhaseAwakening})
	recorder.RecordEnd(context.Background(), s, true)

	assert.Eventually(t, func() bool { return history.count() == 2 && fwd.count() == 2 }, time.Second, 5*time.Millisecond)

	rows, err := history.FindBySessionID(context.Background(), "s-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byEvent := map[string]model.WakeHistory{}
	for _, r := range rows {
		byEvent[r.Event] = r
	}
	assert.Nil(t, byEvent[model.WakeEventStart].Released)
	end := byEvent[model.WakeEventEnd]
	require.NotNil(t, end.Released)
	assert.True(t, *end.Released)
	assert.Equal(t, 2, end.FailedAttempts)
	assert.Equal(t, 1, end.NudgeCount)

	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	types := map[string]events.Event{}
	for _, e := range fwd.events {
		types[e.EventType()] = e
	}
	require.Contains(t, types, events.WakeSessionStarted)
	require.Contains(t, types, events.WakeSessionEnded)
	assert.Equal(t, true, types[events.WakeSessionEnded].Payload()["released"])
}

func TestAuditConsumerRetriesTransientFailures(t *testing.T) {
	history := &memHistory{failures: 2}
	pubSub, _ := newAuditPipeline(t, history, nil)
	recorder := NewAuditRecorder("wake_audit_test", pubSub, logger.NewNopLogger())

	recorder.RecordEnd(context.Background(), entity.WakeSession{ID: "s-2", Phase: entity.PhaseResisting}, false)

	assert.Eventually(t, func() bool { return history.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAuditConsumerSkipsMalformedPayload(t *testing.T) {
	history := &memHistory{}
	pubSub, _ := newAuditPipeline(t, history, nil)
	recorder := NewAuditRecorder("wake_audit_test", pubSub, logger.NewNopLogger())

	require.NoError(t, pubSub.Publish("wake_audit_test", newRawMessage([]byte("{broken"))))
	recorder.RecordStart(context.Background(), entity.WakeSession{ID: "s-3", Phase: entity.PhaseAwakening})

	assert.Eventually(t, func() bool { return history.count() == 1 }, time.Second, 5*time.Millisecond)
}

func newRawMessage(payload []byte) *message.Message {
	return message.NewMessage(watermill.NewUUID(), payload)
}
