package constant

// Fixed lines of the two-step challenge. The ids double as analytics keys.
const (
	MsgIDSayPhrase   = "prompt:say_phrase"
	MsgTextSayPhrase = "Say the phrase: I'm awake or I'm up."

	MsgIDCorrectPhrase   = "correct:phrase"
	MsgTextCorrectPhrase = "Correct. Now type yes or ok."

	MsgIDWrongPhrase   = "resisting:wrong_phrase"
	MsgTextWrongPhrase = "Wrong phrase. Say: I'm awake or I'm up."

	MsgIDTypeOnceMore   = "correct:type1"
	MsgTextTypeOnceMore = "Correct. One more time, type yes or ok."

	MsgIDRelease   = "correct:release"
	MsgTextRelease = "Correct. You're done."
)

const (
	DefaultUserName = "you"

	// Escalation probability grows by this much per level, capped at the max.
	EscalationStep = 0.2
	EscalationCap  = 0.8
)

const (
	WakeAuditTopic = "wake_audit"
	FeedChannel    = "session_events"
)
