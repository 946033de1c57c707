package personality

import (
	"errors"
	"fmt"
	"io"

	"sloth-wake-be/internal/entity"
	"sloth-wake-be/pkg/randsrc"

	"github.com/valyala/fasttemplate"
)

// ErrContractViolation marks caller bugs: unknown phase or a placeholder the
// caller did not supply.
var ErrContractViolation = errors.New("personality: contract violation")

// Message is one chosen line with a traceable template id.
type Message struct {
	TemplateID string `json:"template_id"`
	Text       string `json:"text"`
}

// Selector maps (phase, escalation level) to a line of the pack.
type Selector struct {
	pack *Pack
	rng  randsrc.Source
}

func NewSelector(pack *Pack, rng randsrc.Source) *Selector {
	if rng == nil {
		rng = randsrc.Default()
	}
	return &Selector{pack: pack, rng: rng}
}

func (s *Selector) Personality() Personality {
	return s.pack.Personality
}

// BucketSize returns how many lines phase has, 0 for unknown phases.
func (s *Selector) BucketSize(phase entity.Phase) int {
	return len(s.pack.Phases[phase])
}

// Select picks a line for phase. The escalation level is clamped into the
// bucket; with randomize the pick is uniform over [0, max(clamped, last)],
// otherwise the clamped index is used as is.
func (s *Selector) Select(phase entity.Phase, escalationLevel int, vars map[string]string, randomize bool) (Message, error) {
	bucket := s.pack.Phases[phase]
	if len(bucket) == 0 {
		return Message{}, fmt.Errorf("%w: unknown phase %q", ErrContractViolation, phase)
	}

	maxIdx := len(bucket) - 1
	idx := pickIndex(escalationLevel, maxIdx, randomize, s.rng)

	text, err := render(bucket[idx], vars)
	if err != nil {
		return Message{}, err
	}

	return Message{
		TemplateID: fmt.Sprintf("%s:%s:%d", s.pack.Personality.ID, phase, idx),
		Text:       text,
	}, nil
}

// ListeningPrompt is the short in-character cue played before the user's
// speaking turn. Always random, no escalation semantics.
func (s *Selector) ListeningPrompt() Message {
	idx := randsrc.Intn(s.rng, len(s.pack.Listening))
	return Message{
		TemplateID: fmt.Sprintf("listening:%d", idx),
		Text:       s.pack.Listening[idx],
	}
}

func pickIndex(escalationLevel, maxIdx int, randomize bool, rng randsrc.Source) int {
	base := escalationLevel
	if base < 0 {
		base = 0
	}
	if base > maxIdx {
		base = maxIdx
	}
	if randomize {
		return randsrc.Intn(rng, max(maxIdx, base)+1)
	}
	return base
}

func render(tpl string, vars map[string]string) (string, error) {
	return fasttemplate.ExecuteFuncStringWithErr(tpl, "{", "}", func(w io.Writer, tag string) (int, error) {
		v, ok := vars[tag]
		if !ok {
			return 0, fmt.Errorf("%w: missing placeholder %q", ErrContractViolation, tag)
		}
		return w.Write([]byte(v))
	})
}
