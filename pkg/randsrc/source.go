package randsrc

import (
	"math/rand/v2"
	"sync"
)

// Source yields floats in [0, 1). Everything stochastic in the wake flow
// (escalation pick, message variety) draws from one of these so tests can
// script the outcome.
type Source interface {
	Float64() float64
}

// Intn maps a draw from src onto [0, n). n must be positive.
func Intn(src Source, n int) int {
	idx := int(src.Float64() * float64(n))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}

// NewSeeded returns a goroutine-safe deterministic source.
func NewSeeded(seed uint64) Source {
	return &lockedRand{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Default is backed by the runtime's auto-seeded generator.
func Default() Source { return globalRand{} }

// Sequence replays fixed values in order and then repeats the last one.
// Used by tests to force a branch.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	pos    int
}

func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	if s.pos >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	v := s.values[s.pos]
	s.pos++
	return v
}
