// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"encoding/json"
	"time"

	"sloth-wake-be/internal/dto"
	"sloth-wake-be/internal/model"
	"sloth-wake-be/internal/pkg/logger"
	"sloth-wake-be/internal/repository/contract"
	"sloth-wake-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventForwarder ships audit events off the box (NATS JetStream in production).
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	history    contract.WakeHistoryRepository
	forwarder  EventForwarder
	logger     logger.ILogger

	attempts int
	backoff  time.Duration
}

// NewConsumerService drains the audit topic. history and forwarder are
// optional; with neither the events are only logged.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	history contract.WakeHistoryRepository,
	forwarder EventForwarder,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		history:    history,
		forwarder:  forwarder,
		logger:     logger,
		attempts:   3,
		backoff:    200 * time.Millisecond,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.WakeAuditMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("AUDIT", "Failed to unmarshal audit message", map[string]interface{}{
			"message_uuid": msg.UUID,
			"error":        err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	details := map[string]interface{}{
		"session_id":      payload.SessionId,
		"event":           payload.Event,
		"phase":           payload.Phase,
		"failed_attempts": payload.FailedAttempts,
		"nudge_count":     payload.NudgeCount,
	}
	if payload.Released != nil {
		details["released"] = *payload.Released
	}
	cs.logger.Info("AUDIT", "Wake session event", details)

	if cs.history != nil {
		row := &model.WakeHistory{
			ID:              uuid.New(),
			SessionID:       payload.SessionId,
			Event:           payload.Event,
			Phase:           payload.Phase,
			EscalationLevel: payload.EscalationLevel,
			FailedAttempts:  payload.FailedAttempts,
			NudgeCount:      payload.NudgeCount,
			ProofCaptured:   payload.ProofCaptured,
			Released:        payload.Released,
			OccurredAt:      payload.OccurredAt,
		}
		if err := cs.insertWithRetry(ctx, row); err != nil {
			// gochannel redelivers a Nacked message immediately, so a dead
			// database would spin; the row is dropped after bounded retries.
			cs.logger.Error("AUDIT", "Failed to persist wake history", map[string]interface{}{
				"session_id": payload.SessionId,
				"event":      payload.Event,
				"error":      err.Error(),
			})
		}
	}

	if cs.forwarder != nil {
		fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := cs.forwarder.Publish(fctx, toEvent(payload))
		cancel()
		if err != nil {
			cs.logger.Warn("AUDIT", "Failed to forward wake event", map[string]interface{}{
				"session_id": payload.SessionId,
				"error":      err.Error(),
			})
		}
	}

	msg.Ack()
}

func (cs *consumerService) insertWithRetry(ctx context.Context, row *model.WakeHistory) error {
	var err error
	for attempt := 1; attempt <= cs.attempts; attempt++ {
		if err = cs.history.Insert(ctx, row); err == nil {
			return nil
		}
		if attempt == cs.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cs.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func toEvent(payload dto.WakeAuditMessage) events.Event {
	eventType := events.WakeSessionStarted
	if payload.Event == model.WakeEventEnd {
		eventType = events.WakeSessionEnded
	}
	data := map[string]interface{}{
		"session_id":       payload.SessionId,
		"phase":            payload.Phase,
		"escalation_level": payload.EscalationLevel,
		"failed_attempts":  payload.FailedAttempts,
		"nudge_count":      payload.NudgeCount,
		"proof_captured":   payload.ProofCaptured,
	}
	if payload.Released != nil {
		data["released"] = *payload.Released
	}
	return events.BaseEvent{Type: eventType, Data: data, OccurredAt: payload.OccurredAt}
}
