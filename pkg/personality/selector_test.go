package personality

import (
	"errors"
	"testing"

	"sloth-wake-be/internal/entity"
	"sloth-wake-be/pkg/randsrc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vars = map[string]string{"userName": "you"}

func TestDefaultPackIsComplete(t *testing.T) {
	pack := DefaultPack()
	assert.Equal(t, "default_savage", pack.Personality.ID)
	for _, phase := range entity.Phases {
		assert.NotEmptyf(t, pack.Phases[phase], "bucket for %s", phase)
	}
	assert.Len(t, pack.Phases[entity.PhaseRoutineActive], 4)
	assert.Len(t, pack.Listening, 10)
}

func TestSelectDeterministicClampsLevel(t *testing.T) {
	s := NewSelector(DefaultPack(), randsrc.NewSequence(0))

	msg, err := s.Select(entity.PhaseRoutineActive, 2, vars, false)
	require.NoError(t, err)
	assert.Equal(t, "default_savage:ROUTINE_ACTIVE:2", msg.TemplateID)
	assert.Equal(t, "Slow down. I'm watching.", msg.Text)

	msg, err = s.Select(entity.PhaseRoutineActive, 99, vars, false)
	require.NoError(t, err)
	assert.Equal(t, "default_savage:ROUTINE_ACTIVE:3", msg.TemplateID)

	msg, err = s.Select(entity.PhaseRoutineActive, -4, vars, false)
	require.NoError(t, err)
	assert.Equal(t, "default_savage:ROUTINE_ACTIVE:0", msg.TemplateID)
}

func TestSelectRandomSpansWholeBucket(t *testing.T) {
	// 0.99 of a 6-line bucket lands on the last line even at level 0.
	s := NewSelector(DefaultPack(), randsrc.NewSequence(0.99, 0))

	msg, err := s.Select(entity.PhaseEscalating, 0, vars, true)
	require.NoError(t, err)
	assert.Equal(t, "default_savage:ESCALATING:5", msg.TemplateID)

	msg, err = s.Select(entity.PhaseEscalating, 5, vars, true)
	require.NoError(t, err)
	assert.Equal(t, "default_savage:ESCALATING:0", msg.TemplateID)
}

func TestSelectSubstitutesPlaceholders(t *testing.T) {
	s := NewSelector(DefaultPack(), randsrc.NewSequence(0))

	msg, err := s.Select(entity.PhaseAwakening, 0, map[string]string{"userName": "Sam"}, false)
	require.NoError(t, err)
	assert.Equal(t, "Hey Sam. Wake up.\nNow.", msg.Text)
}

func TestSelectMissingPlaceholderIsContractViolation(t *testing.T) {
	s := NewSelector(DefaultPack(), randsrc.NewSequence(0))

	_, err := s.Select(entity.PhaseAwakening, 0, nil, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContractViolation))
}

func TestSelectUnknownPhaseIsContractViolation(t *testing.T) {
	s := NewSelector(DefaultPack(), randsrc.NewSequence(0))

	_, err := s.Select(entity.Phase("SNOOZING"), 0, vars, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContractViolation))
}

func TestListeningPrompt(t *testing.T) {
	s := NewSelector(DefaultPack(), randsrc.NewSequence(0.35))

	msg := s.ListeningPrompt()
	assert.Equal(t, "listening:3", msg.TemplateID)
	assert.Equal(t, "Say the word.", msg.Text)
}

func TestParsePackYAMLRejectsIncompletePack(t *testing.T) {
	_, err := ParsePackYAML([]byte(`
personality:
  id: gentle
phases:
  AWAKENING: ["Morning."]
listening: ["Go on."]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESISTING")

	_, err = ParsePackYAML([]byte(`
personality:
  id: gentle
phases:
  NAPPING: ["zzz"]
`))
	require.Error(t, err)

	_, err = ParsePackYAML([]byte("  "))
	require.Error(t, err)
}

func TestLoadPackBlankPathUsesDefault(t *testing.T) {
	pack, err := LoadPack("")
	require.NoError(t, err)
	assert.Equal(t, "default_savage", pack.Personality.ID)
}
