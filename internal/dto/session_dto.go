package dto

import "time"

type StartSessionRequest struct {
	AlarmTime string `json:"alarm_time" validate:"omitempty,max=32"`
	UserName  string `json:"user_name" validate:"omitempty,max=64"`
}

type StartSessionResponse struct {
	SessionId       string `json:"session_id"`
	Phase           string `json:"phase"`
	EscalationLevel int    `json:"escalation_level"`
	MessageId       string `json:"message_id"`
	Text            string `json:"text"`
	AudioUrl        string `json:"audio_url"`
	PromptText      string `json:"prompt_text,omitempty"`
	PromptAudioUrl  string `json:"prompt_audio_url,omitempty"`
}

type ValidateSessionRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Keyword   string `json:"keyword" validate:"max=256"`
	Spoken    string `json:"spoken" validate:"max=512"`
}

// ValidateSessionResponse is shared by validate and nudge.
type ValidateSessionResponse struct {
	Valid           bool   `json:"valid"`
	Phase           string `json:"phase"`
	EscalationLevel int    `json:"escalation_level"`
	MessageId       string `json:"message_id"`
	Text            string `json:"text"`
	AudioUrl        string `json:"audio_url"`
	Released        bool   `json:"released"`
	SpokenVerified  bool   `json:"spoken_verified"`
	PromptText      string `json:"prompt_text,omitempty"`
	PromptAudioUrl  string `json:"prompt_audio_url,omitempty"`
}

type SessionIdRequest struct {
	SessionId string `json:"session_id" validate:"required"`
}

type SubmitProofResponse struct {
	Ok bool `json:"ok"`
}

type RoutineStepResponse struct {
	StepIndex       int    `json:"step_index"`
	TotalSteps      int    `json:"total_steps"`
	Text            string `json:"text"`
	AudioUrl        string `json:"audio_url"`
	RoutineComplete bool   `json:"routine_complete"`
	Phase           string `json:"phase"`
	PromptText      string `json:"prompt_text,omitempty"`
	PromptAudioUrl  string `json:"prompt_audio_url,omitempty"`
}

type SessionSnapshotResponse struct {
	SessionId       string    `json:"session_id"`
	Phase           string    `json:"phase"`
	EscalationLevel int       `json:"escalation_level"`
	SpokenVerified  bool      `json:"spoken_verified"`
	FailedAttempts  int       `json:"failed_attempts"`
	NudgeCount      int       `json:"nudge_count"`
	ProofCaptured   bool      `json:"proof_captured"`
	RoutineStep     int       `json:"routine_step"`
	RoutineComplete bool      `json:"routine_complete"`
	Released        bool      `json:"released"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type TranscribeResponse struct {
	Text string `json:"text"`
}

// WakeAuditMessage travels over the in-process audit topic.
type WakeAuditMessage struct {
	SessionId       string    `json:"session_id"`
	Event           string    `json:"event"`
	Phase           string    `json:"phase"`
	EscalationLevel int       `json:"escalation_level"`
	FailedAttempts  int       `json:"failed_attempts"`
	NudgeCount      int       `json:"nudge_count"`
	ProofCaptured   bool      `json:"proof_captured"`
	Released        *bool     `json:"released,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// SessionFeedEvent is pushed to websocket subscribers of a session.
type SessionFeedEvent struct {
	SessionId       string `json:"session_id"`
	Operation       string `json:"operation"`
	Phase           string `json:"phase"`
	EscalationLevel int    `json:"escalation_level"`
	MessageId       string `json:"message_id,omitempty"`
	Text            string `json:"text,omitempty"`
	Released        bool   `json:"released"`
}
