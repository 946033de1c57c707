package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	WakeEventStart = "start"
	WakeEventEnd   = "end"
)

// WakeHistory is the append-only audit row for a session lifecycle event.
type WakeHistory struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID       string    `gorm:"type:varchar(64);not null;index:idx_wake_history_session" json:"session_id"`
	Event           string    `gorm:"type:varchar(10);not null" json:"event"`
	Phase           string    `gorm:"type:varchar(20);not null" json:"phase"`
	EscalationLevel int       `gorm:"not null;default:0" json:"escalation_level"`
	FailedAttempts  int       `gorm:"not null;default:0" json:"failed_attempts"`
	NudgeCount      int       `gorm:"not null;default:0" json:"nudge_count"`
	ProofCaptured   bool      `gorm:"default:false" json:"proof_captured"`
	Released        *bool     `json:"released,omitempty"`
	OccurredAt      time.Time `gorm:"not null;index:idx_wake_history_occurred" json:"occurred_at"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (WakeHistory) TableName() string {
	return "wake_history"
}
