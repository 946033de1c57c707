// Package speech holds the audio collaborators of the wake flow: text to
// speech for the prompts and speech to text for the spoken-phrase step.
// Engines plug in behind Synthesizer and Transcriber.
package speech

import (
	"context"
	"errors"
)

// ErrUnavailable means no engine is configured or the engine cannot be
// reached. Transport maps it to 503, never to a session error.
var ErrUnavailable = errors.New("speech: capability unavailable")

// Audio is a playable clip.
type Audio struct {
	Data     []byte
	MimeType string
	Ext      string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
