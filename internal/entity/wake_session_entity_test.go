package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase(" routine_active ")
	require.NoError(t, err)
	assert.Equal(t, PhaseRoutineActive, p)

	_, err = ParsePhase("SNOOZING")
	assert.Error(t, err)
}

func TestResetsEscalation(t *testing.T) {
	assert.True(t, PhaseAwakening.ResetsEscalation())
	assert.True(t, PhaseCompliant.ResetsEscalation())
	assert.True(t, PhaseRelease.ResetsEscalation())
	assert.False(t, PhaseResisting.ResetsEscalation())
	assert.False(t, PhaseEscalating.ResetsEscalation())
	assert.False(t, PhaseRoutineActive.ResetsEscalation())
}
