package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Options controls where clips land and how they are addressed.
type Options struct {
	// Dir is the directory clips are written to.
	Dir string
	// BaseURL is the public prefix Dir is served under.
	BaseURL string
	// CacheVersion is part of every cache key; bump it after a voice or
	// post-processing change to regenerate audio.
	CacheVersion int
}

// Service fronts the engines with a clip cache keyed by (text, version).
type Service struct {
	synth       Synthesizer
	transcriber Transcriber
	index       AudioIndex
	opts        Options
	group       singleflight.Group
}

// NewService wires the engines. synth and transcriber may be nil, in which
// case the corresponding capability reports ErrUnavailable.
func NewService(synth Synthesizer, transcriber Transcriber, index AudioIndex, opts Options) *Service {
	if opts.BaseURL == "" {
		opts.BaseURL = "/static/audio"
	}
	return &Service{
		synth:       synth,
		transcriber: transcriber,
		index:       index,
		opts:        opts,
	}
}

// CacheKey is stable across restarts for the same text and version.
func CacheKey(text string, version int) string {
	sum := sha256.Sum256([]byte(strconv.Itoa(version) + "\x00" + text))
	return hex.EncodeToString(sum[:12])
}

func (s *Service) CanSynthesize() bool { return s.synth != nil }

func (s *Service) CanTranscribe() bool { return s.transcriber != nil }

// AudioURL returns the served URL of the clip for text, synthesizing it on
// first use. Concurrent requests for the same text share one synthesis.
func (s *Service) AudioURL(ctx context.Context, text string) (string, error) {
	if s.synth == nil {
		return "", ErrUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("speech: empty text")
	}

	key := CacheKey(text, s.opts.CacheVersion)
	if s.index != nil {
		if file, ok := s.index.Lookup(ctx, key); ok && s.exists(file) {
			return s.url(file), nil
		}
	}
	if file := key + ".wav"; s.exists(file) {
		s.remember(ctx, key, file)
		return s.url(file), nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		audio, err := s.synth.Synthesize(ctx, text)
		if err != nil {
			return "", err
		}
		ext := audio.Ext
		if ext == "" {
			ext = ".wav"
		}
		file := key + ext
		if err := s.write(file, audio.Data); err != nil {
			return "", err
		}
		s.remember(ctx, key, file)
		return file, nil
	})
	if err != nil {
		return "", fmt.Errorf("speech: synthesize: %w", err)
	}
	return s.url(v.(string)), nil
}

// Transcribe returns the trimmed transcript of audio, "" when nothing was
// recognized.
func (s *Service) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if s.transcriber == nil {
		return "", ErrUnavailable
	}
	if len(audio) == 0 {
		return "", nil
	}
	text, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *Service) remember(ctx context.Context, key, file string) {
	if s.index != nil {
		s.index.Remember(ctx, key, file)
	}
}

func (s *Service) url(file string) string {
	return path.Join(s.opts.BaseURL, file)
}

func (s *Service) exists(file string) bool {
	_, err := os.Stat(filepath.Join(s.opts.Dir, file))
	return err == nil
}

// write goes through a temp file so readers never see a partial clip.
func (s *Service) write(file string, data []byte) error {
	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.opts.Dir, "clip-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp clip: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write clip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close clip: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(s.opts.Dir, file))
}
