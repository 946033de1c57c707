package memory

import (
	"fmt"
	"sync"
	"time"

	"sloth-wake-be/internal/entity"
	"sloth-wake-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// slot guards one session. The cache only ever holds *slot values so the
// lock survives expiration re-arming.
type slot struct {
	mu      sync.Mutex
	session entity.WakeSession
}

type WakeSessionRepository struct {
	cache *cache.Cache
	now   func() time.Time
}

type Option func(*WakeSessionRepository)

// WithClock overrides time.Now for CreatedAt/UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(r *WakeSessionRepository) { r.now = now }
}

// WithOnAbandoned registers a callback for sessions dropped by the idle
// reaper before reaching RELEASE.
func WithOnAbandoned(fn func(entity.WakeSession)) Option {
	return func(r *WakeSessionRepository) {
		r.cache.OnEvicted(func(_ string, v interface{}) {
			sl, ok := v.(*slot)
			if !ok {
				return
			}
			sl.mu.Lock()
			snapshot := sl.session
			sl.mu.Unlock()
			if !snapshot.Released() {
				fn(snapshot)
			}
		})
	}
}

// NewWakeSessionRepository keeps sessions for idleTTL after their last write.
// The go-cache janitor sweeps expired entries every reapInterval.
func NewWakeSessionRepository(idleTTL, reapInterval time.Duration, opts ...Option) *WakeSessionRepository {
	r := &WakeSessionRepository{
		cache: cache.New(idleTTL, reapInterval),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ contract.WakeSessionRepository = (*WakeSessionRepository)(nil)

func (r *WakeSessionRepository) Create() entity.WakeSession {
	now := r.now()
	s := entity.WakeSession{
		ID:        uuid.NewString(),
		Phase:     entity.PhaseAwakening,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.cache.Set(s.ID, &slot{session: s}, cache.DefaultExpiration)
	return s
}

func (r *WakeSessionRepository) Get(id string) (entity.WakeSession, bool) {
	sl, ok := r.slot(id)
	if !ok {
		return entity.WakeSession{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.session, true
}

func (r *WakeSessionRepository) Update(id string, phase entity.Phase, escalationLevel int) (entity.WakeSession, error) {
	return r.Mutate(id, func(s *entity.WakeSession) error {
		s.Phase = phase
		s.EscalationLevel = escalationLevel
		return nil
	})
}

func (r *WakeSessionRepository) SetProofCaptured(id string) (entity.WakeSession, error) {
	return r.Mutate(id, func(s *entity.WakeSession) error {
		s.ProofCaptured = true
		return nil
	})
}

func (r *WakeSessionRepository) SetSpokenVerified(id string) (entity.WakeSession, error) {
	return r.Mutate(id, func(s *entity.WakeSession) error {
		s.SpokenVerified = true
		return nil
	})
}

func (r *WakeSessionRepository) AdvanceRoutineStep(id string, totalSteps int) (entity.WakeSession, error) {
	return r.Mutate(id, func(s *entity.WakeSession) error {
		if s.Phase != entity.PhaseRoutineActive {
			return fmt.Errorf("advance routine in %s: %w", s.Phase, contract.ErrInvalidState)
		}
		s.RoutineStep++
		if s.RoutineStep >= totalSteps {
			s.RoutineComplete = true
		}
		return nil
	})
}

// Mutate applies fn to a copy of the session under its lock and commits the
// copy only when fn succeeds and the result is well formed.
func (r *WakeSessionRepository) Mutate(id string, fn contract.MutateFunc) (entity.WakeSession, error) {
	sl, ok := r.slot(id)
	if !ok {
		return entity.WakeSession{}, contract.ErrSessionNotFound
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.session.Released() {
		return sl.session, contract.ErrSessionReleased
	}

	next := sl.session
	if err := fn(&next); err != nil {
		return sl.session, err
	}
	if !next.Phase.Valid() {
		return sl.session, fmt.Errorf("invalid phase %q for session %s", next.Phase, id)
	}
	if next.Phase.ResetsEscalation() {
		next.EscalationLevel = 0
	}
	if sl.session.SpokenVerified {
		next.SpokenVerified = true
	}
	next.ID = sl.session.ID
	next.CreatedAt = sl.session.CreatedAt
	next.UpdatedAt = r.now()

	// Replace fails once the reaper has claimed the entry.
	if err := r.cache.Replace(id, sl, cache.DefaultExpiration); err != nil {
		return sl.session, contract.ErrSessionNotFound
	}
	sl.session = next
	return next, nil
}

func (r *WakeSessionRepository) Len() int {
	return r.cache.ItemCount()
}

// Reap drops expired sessions immediately instead of waiting for the janitor.
func (r *WakeSessionRepository) Reap() {
	r.cache.DeleteExpired()
}

func (r *WakeSessionRepository) slot(id string) (*slot, bool) {
	v, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	sl, ok := v.(*slot)
	return sl, ok
}
