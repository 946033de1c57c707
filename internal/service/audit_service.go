// FILE: internal/service/audit_service.go
package service

import (
	"context"
	"encoding/json"
	"time"

	"sloth-wake-be/internal/dto"
	"sloth-wake-be/internal/entity"
	"sloth-wake-be/internal/model"
	"sloth-wake-be/internal/pkg/logger"
	"sloth-wake-be/internal/repository/contract"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// auditRecorder turns lifecycle events into messages on the in-process bus.
// The consumer service does the slow work.
type auditRecorder struct {
	topicName string
	publisher message.Publisher
	logger    logger.ILogger
	now       func() time.Time
}

func NewAuditRecorder(topicName string, publisher message.Publisher, logger logger.ILogger) contract.AuditRecorder {
	return &auditRecorder{
		topicName: topicName,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (a *auditRecorder) RecordStart(ctx context.Context, session entity.WakeSession) {
	a.publish(ctx, toAuditMessage(session, model.WakeEventStart, nil, a.now()))
}

func (a *auditRecorder) RecordEnd(ctx context.Context, session entity.WakeSession, released bool) {
	a.publish(ctx, toAuditMessage(session, model.WakeEventEnd, &released, a.now()))
}

func (a *auditRecorder) publish(_ context.Context, payload dto.WakeAuditMessage) {
	data, err := json.Marshal(payload)
	if err != nil {
		a.logger.Error("AUDIT", "Failed to marshal audit message", map[string]interface{}{
			"session_id": payload.SessionId,
			"error":      err.Error(),
		})
		return
	}

	// The request context is not attached; audit outlives the request.
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := a.publisher.Publish(a.topicName, msg); err != nil {
		a.logger.Error("AUDIT", "Failed to publish audit message", map[string]interface{}{
			"session_id": payload.SessionId,
			"event":      payload.Event,
			"error":      err.Error(),
		})
	}
}

func toAuditMessage(s entity.WakeSession, event string, released *bool, at time.Time) dto.WakeAuditMessage {
	return dto.WakeAuditMessage{
		SessionId:       s.ID,
		Event:           event,
		Phase:           s.Phase.String(),
		EscalationLevel: s.EscalationLevel,
		FailedAttempts:  s.FailedAttempts,
		NudgeCount:      s.NudgeCount,
		ProofCaptured:   s.ProofCaptured,
		Released:        released,
		OccurredAt:      at,
	}
}

// noopAuditRecorder is used by tools and tests that do not care about history.
type noopAuditRecorder struct{}

func NewNoopAuditRecorder() contract.AuditRecorder { return noopAuditRecorder{} }

func (noopAuditRecorder) RecordStart(context.Context, entity.WakeSession)     {}
func (noopAuditRecorder) RecordEnd(context.Context, entity.WakeSession, bool) {}
