// Package personality holds the voice the wake service talks with: a small
// descriptor plus per-phase line buckets, loaded from YAML packs.
package personality

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"sloth-wake-be/internal/entity"

	"gopkg.in/yaml.v3"
)

//go:embed packs/default_savage.yaml
var defaultPackYAML []byte

// Personality describes how the system should talk. Kept small so message
// selection stays predictable.
type Personality struct {
	ID             string `yaml:"id"`
	Tone           string `yaml:"tone"`
	IntensityCurve string `yaml:"intensity_curve"`
	SwearAllowance bool   `yaml:"swear_allowance"`
}

// Pack is a personality with its phase buckets and listening prompts.
// Bucket order matters: higher indexes are the more intense lines.
type Pack struct {
	Personality Personality               `yaml:"personality"`
	Phases      map[entity.Phase][]string `yaml:"-"`
	Listening   []string                  `yaml:"listening"`
}

type rawPack struct {
	Personality Personality         `yaml:"personality"`
	Phases      map[string][]string `yaml:"phases"`
	Listening   []string            `yaml:"listening"`
}

// ParsePackYAML decodes and validates one pack payload.
func ParsePackYAML(data []byte) (*Pack, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("personality: pack payload is empty")
	}
	var raw rawPack
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("personality: decode pack: %w", err)
	}

	pack := &Pack{
		Personality: raw.Personality,
		Phases:      make(map[entity.Phase][]string, len(raw.Phases)),
		Listening:   raw.Listening,
	}
	for name, lines := range raw.Phases {
		phase, err := entity.ParsePhase(name)
		if err != nil {
			return nil, fmt.Errorf("personality: %w", err)
		}
		pack.Phases[phase] = lines
	}
	if err := pack.Validate(); err != nil {
		return nil, err
	}
	return pack, nil
}

// Validate requires an id, a non-empty bucket for every phase and at least one
// listening prompt.
func (p *Pack) Validate() error {
	if strings.TrimSpace(p.Personality.ID) == "" {
		return fmt.Errorf("personality: id is required")
	}
	for _, phase := range entity.Phases {
		if len(p.Phases[phase]) == 0 {
			return fmt.Errorf("personality: %s: bucket for %s is empty", p.Personality.ID, phase)
		}
	}
	if len(p.Listening) == 0 {
		return fmt.Errorf("personality: %s: listening prompts are empty", p.Personality.ID)
	}
	return nil
}

// DefaultPack returns the embedded default_savage pack.
func DefaultPack() *Pack {
	pack, err := ParsePackYAML(defaultPackYAML)
	if err != nil {
		panic(err)
	}
	return pack
}

// LoadPack reads a pack from path, falling back to the embedded default when
// path is blank.
func LoadPack(path string) (*Pack, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPack(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("personality: read %s: %w", path, err)
	}
	pack, err := ParsePackYAML(data)
	if err != nil {
		return nil, fmt.Errorf("personality: %s: %w", path, err)
	}
	return pack, nil
}
