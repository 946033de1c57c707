package memory

import (
	"errors"
	"sync"
	"testing"
	"time"

	"sloth-wake-be/internal/entity"
	"sloth-wake-be/internal/repository/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(opts ...Option) *WakeSessionRepository {
	return NewWakeSessionRepository(time.Hour, 0, opts...)
}

func TestCreateStartsAwakeningWithZeroCounters(t *testing.T) {
	repo := newRepo()

	s := repo.Create()

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, entity.PhaseAwakening, s.Phase)
	assert.Zero(t, s.EscalationLevel)
	assert.Zero(t, s.FailedAttempts)
	assert.Zero(t, s.NudgeCount)
	assert.Zero(t, s.RoutineStep)
	assert.False(t, s.SpokenVerified)
	assert.False(t, s.ProofCaptured)
	assert.Equal(t, 1, repo.Len())
}

func TestCreateIssuesDistinctIds(t *testing.T) {
	repo := newRepo()

	const sessions = 100
	seen := make(map[string]struct{}, sessions)
	for i := 0; i < sessions; i++ {
		seen[repo.Create().ID] = struct{}{}
	}
	assert.Len(t, seen, sessions)
	assert.Equal(t, sessions, repo.Len())
}

func TestGetUnknownReportsNotFound(t *testing.T) {
	repo := newRepo()

	_, found := repo.Get("missing")
	assert.False(t, found)

	_, err := repo.Update("missing", entity.PhaseResisting, 1)
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)
}

func TestGetReturnsSnapshot(t *testing.T) {
	repo := newRepo()
	s := repo.Create()

	snap, found := repo.Get(s.ID)
	require.True(t, found)
	snap.Phase = entity.PhaseRelease

	again, _ := repo.Get(s.ID)
	assert.Equal(t, entity.PhaseAwakening, again.Phase)
}

func TestUpdateZeroesLevelForResettingPhases(t *testing.T) {
	repo := newRepo()
	s := repo.Create()

	got, err := repo.Update(s.ID, entity.PhaseEscalating, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got.EscalationLevel)

	got, err = repo.Update(s.ID, entity.PhaseCompliant, 3)
	require.NoError(t, err)
	assert.Zero(t, got.EscalationLevel)
}

func TestUpdateRejectsUnknownPhase(t *testing.T) {
	repo := newRepo()
	s := repo.Create()

	_, err := repo.Update(s.ID, entity.Phase("SNOOZING"), 0)
	assert.Error(t, err)

	got, _ := repo.Get(s.ID)
	assert.Equal(t, entity.PhaseAwakening, got.Phase)
}

func TestSpokenVerifiedNeverReverts(t *testing.T) {
	repo := newRepo()
	s := repo.Create()

	_, err := repo.SetSpokenVerified(s.ID)
	require.NoError(t, err)

	got, err := repo.Mutate(s.ID, func(ws *entity.WakeSession) error {
		ws.SpokenVerified = false
		return nil
	})
	require.NoError(t, err)
	assert.True(t, got.SpokenVerified)
}

func TestSetProofCaptured(t *testing.T) {
	repo := newRepo()
	s := repo.Create()

	got, err := repo.SetProofCaptured(s.ID)
	require.NoError(t, err)
	assert.True(t, got.ProofCaptured)
}

func TestReleasedSessionIsFrozen(t *testing.T) {
	repo := newRepo()
	s := repo.Create()
	_, err := repo.Update(s.ID, entity.PhaseRelease, 0)
	require.NoError(t, err)

	_, err = repo.Update(s.ID, entity.PhaseResisting, 1)
	assert.ErrorIs(t, err, contract.ErrSessionReleased)
	_, err = repo.SetProofCaptured(s.ID)
	assert.ErrorIs(t, err, contract.ErrSessionReleased)

	got, found := repo.Get(s.ID)
	require.True(t, found)
	assert.Equal(t, entity.PhaseRelease, got.Phase)
	assert.False(t, got.ProofCaptured)
}

func TestMutateErrorDiscardsChanges(t *testing.T) {
	repo := newRepo()
	s := repo.Create()
	boom := errors.New("boom")

	_, err := repo.Mutate(s.ID, func(ws *entity.WakeSession) error {
		ws.FailedAttempts = 9
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := repo.Get(s.ID)
	assert.Zero(t, got.FailedAttempts)
}

func TestAdvanceRoutineStepRequiresRoutinePhase(t *testing.T) {
	repo := newRepo()
	s := repo.Create()

	_, err := repo.AdvanceRoutineStep(s.ID, 3)
	assert.ErrorIs(t, err, contract.ErrInvalidState)

	got, _ := repo.Get(s.ID)
	assert.Zero(t, got.RoutineStep)
}

func TestAdvanceRoutineStepCompletesOnLastStep(t *testing.T) {
	repo := newRepo()
	s := repo.Create()
	_, err := repo.Update(s.ID, entity.PhaseRoutineActive, 0)
	require.NoError(t, err)

	for step := 1; step <= 3; step++ {
		got, err := repo.AdvanceRoutineStep(s.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, step, got.RoutineStep)
		assert.Equal(t, step == 3, got.RoutineComplete, "step %d", step)
	}
}

func TestMutateStampsUpdatedAt(t *testing.T) {
	clock := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	repo := newRepo(WithClock(func() time.Time { return clock }))
	s := repo.Create()

	clock = clock.Add(time.Minute)
	got, err := repo.SetProofCaptured(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.CreatedAt, got.CreatedAt)
	assert.Equal(t, s.CreatedAt.Add(time.Minute), got.UpdatedAt)
}

func TestConcurrentMutationsDoNotLoseUpdates(t *testing.T) {
	repo := newRepo()
	s := repo.Create()

	const workers = 64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := repo.Mutate(s.ID, func(ws *entity.WakeSession) error {
				ws.FailedAttempts++
				ws.EscalationLevel++
				ws.Phase = entity.PhaseResisting
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _ := repo.Get(s.ID)
	assert.Equal(t, workers, got.FailedAttempts)
	assert.Equal(t, workers, got.EscalationLevel)
}

func TestIdleSessionsAreReapedAndReportedAbandoned(t *testing.T) {
	var mu sync.Mutex
	var abandoned []string
	repo := NewWakeSessionRepository(10*time.Millisecond, 0, WithOnAbandoned(func(s entity.WakeSession) {
		mu.Lock()
		defer mu.Unlock()
		abandoned = append(abandoned, s.ID)
	}))

	idle := repo.Create()
	done := repo.Create()
	_, err := repo.Update(done.ID, entity.PhaseRelease, 0)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	repo.Reap()

	_, found := repo.Get(idle.ID)
	assert.False(t, found)
	_, found = repo.Get(done.ID)
	assert.False(t, found)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{idle.ID}, abandoned)
}

func TestMutationReArmsIdleTimer(t *testing.T) {
	repo := NewWakeSessionRepository(40*time.Millisecond, 0)
	s := repo.Create()

	time.Sleep(25 * time.Millisecond)
	_, err := repo.SetProofCaptured(s.ID)
	require.NoError(t, err)
	time.Sleep(25 * time.Millisecond)
	repo.Reap()

	_, found := repo.Get(s.ID)
	assert.True(t, found)
}
