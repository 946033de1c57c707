package gemini

import (
	"context"
	"errors"
	"testing"

	"sloth-wake-be/pkg/speech"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestSampleRate(t *testing.T) {
	assert.Equal(t, 24000, sampleRate("audio/L16;codec=pcm;rate=24000"))
	assert.Equal(t, 16000, sampleRate("audio/L16; rate=16000"))
	assert.Equal(t, speech.DefaultSampleRate, sampleRate("audio/L16"))
	assert.Equal(t, speech.DefaultSampleRate, sampleRate("audio/L16;rate=abc"))
}

func TestFirstInlineData(t *testing.T) {
	assert.Nil(t, firstInlineData(nil))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []*genai.Part{
				genai.NewPartFromText("ignored"),
				{InlineData: &genai.Blob{Data: []byte{1, 2}, MIMEType: "audio/L16;rate=24000"}},
			}}},
		},
	}
	blob := firstInlineData(resp)
	if assert.NotNil(t, blob) {
		assert.Equal(t, []byte{1, 2}, blob.Data)
	}
}

func TestNewProviderWithoutKeyIsUnavailable(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{})
	assert.True(t, errors.Is(err, speech.ErrUnavailable))
}
