// Package gemini implements speech synthesis and transcription on the Gemini
// API.
package gemini

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sloth-wake-be/pkg/speech"

	"google.golang.org/genai"
)

// Config controls the Gemini models and voice.
type Config struct {
	APIKey   string
	TTSModel string
	Voice    string
	STTModel string
}

// Provider implements speech.Synthesizer and speech.Transcriber.
type Provider struct {
	client *genai.Client
	cfg    Config
}

func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY is not configured: %w", speech.ErrUnavailable)
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = "gemini-2.5-flash-preview-tts"
	}
	if cfg.Voice == "" {
		cfg.Voice = "Charon"
	}
	if cfg.STTModel == "" {
		cfg.STTModel = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Provider{client: client, cfg: cfg}, nil
}

// Synthesize renders text with the configured prebuilt voice. Gemini returns
// raw 16-bit PCM, which is faded in and wrapped as WAV.
func (p *Provider) Synthesize(ctx context.Context, text string) (*speech.Audio, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: p.cfg.Voice},
			},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.TTSModel, genai.Text(text), config)
	if err != nil {
		return nil, fmt.Errorf("gemini tts: %w", err)
	}

	blob := firstInlineData(resp)
	if blob == nil || len(blob.Data) == 0 {
		return nil, fmt.Errorf("gemini tts: response carried no audio")
	}

	rate := sampleRate(blob.MIMEType)
	pcm := speech.FadeIn16(blob.Data, rate, speech.DefaultChannels, speech.DefaultFadeIn)
	return &speech.Audio{
		Data:     speech.PCMToWAV(pcm, rate, speech.DefaultBitsPerSample, speech.DefaultChannels),
		MimeType: "audio/wav",
		Ext:      ".wav",
	}, nil
}

const transcribeInstruction = "Transcribe the speech in this audio verbatim in English. " +
	"Reply with the transcript only, no quotes or commentary. Reply with nothing if there is no speech."

// Transcribe sends the clip inline with a verbatim-transcript instruction.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribeInstruction),
			genai.NewPartFromBytes(audio, mimeType),
		}, genai.RoleUser),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.STTModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini stt: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil {
				return part.InlineData
			}
		}
	}
	return nil
}

// sampleRate reads "rate=NNNN" from mime types like
// "audio/L16;codec=pcm;rate=24000".
func sampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.EqualFold(k, "rate") {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return speech.DefaultSampleRate
}
