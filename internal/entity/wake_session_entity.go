package entity

import (
	"fmt"
	"strings"
	"time"
)

// Phase is the session's stage in the wake protocol.
type Phase string

const (
	PhaseAwakening     Phase = "AWAKENING"
	PhaseResisting     Phase = "RESISTING"
	PhaseEscalating    Phase = "ESCALATING"
	PhaseCompliant     Phase = "COMPLIANT"
	PhaseRoutineActive Phase = "ROUTINE_ACTIVE"
	PhaseRelease       Phase = "RELEASE"
)

// Phases lists every valid phase in protocol order.
var Phases = []Phase{
	PhaseAwakening,
	PhaseResisting,
	PhaseEscalating,
	PhaseCompliant,
	PhaseRoutineActive,
	PhaseRelease,
}

func (p Phase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

// ResetsEscalation reports whether entering p zeroes the escalation level.
func (p Phase) ResetsEscalation() bool {
	return p == PhaseAwakening || p == PhaseCompliant || p == PhaseRelease
}

func (p Phase) String() string {
	return string(p)
}

// ParsePhase accepts any casing and rejects names outside the closed set.
func ParsePhase(raw string) (Phase, error) {
	p := Phase(strings.ToUpper(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid phase: %q", raw)
	}
	return p, nil
}

// WakeSession is one wake-enforcement interaction. Only the session store
// owns the authoritative copy; everything else works on snapshots.
type WakeSession struct {
	ID              string
	Phase           Phase
	EscalationLevel int
	SpokenVerified  bool
	FailedAttempts  int
	NudgeCount      int
	ProofCaptured   bool
	RoutineStep     int
	RoutineComplete bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s WakeSession) Released() bool {
	return s.Phase == PhaseRelease
}
