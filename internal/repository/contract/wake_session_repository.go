package contract

import (
	"context"
	"errors"

	"sloth-wake-be/internal/entity"
	"sloth-wake-be/internal/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionReleased = errors.New("session already released")
	ErrInvalidState    = errors.New("operation not allowed in current phase")
)

// MutateFunc edits a working copy of the session. Returning an error
// discards the copy.
type MutateFunc func(s *entity.WakeSession) error

// WakeSessionRepository owns the live sessions. Every write on a released
// session fails with ErrSessionReleased.
type WakeSessionRepository interface {
	Create() entity.WakeSession
	Get(id string) (entity.WakeSession, bool)
	Update(id string, phase entity.Phase, escalationLevel int) (entity.WakeSession, error)
	SetProofCaptured(id string) (entity.WakeSession, error)
	SetSpokenVerified(id string) (entity.WakeSession, error)
	AdvanceRoutineStep(id string, totalSteps int) (entity.WakeSession, error)
	Mutate(id string, fn MutateFunc) (entity.WakeSession, error)
	Len() int
}

// AuditRecorder receives lifecycle events. Implementations must not block
// the caller on slow storage.
type AuditRecorder interface {
	RecordStart(ctx context.Context, session entity.WakeSession)
	RecordEnd(ctx context.Context, session entity.WakeSession, released bool)
}

type WakeHistoryRepository interface {
	Insert(ctx context.Context, history *model.WakeHistory) error
	FindBySessionID(ctx context.Context, sessionID string) ([]model.WakeHistory, error)
}
