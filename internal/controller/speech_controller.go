package controller

import (
	"context"
	"io"
	"time"

	"sloth-wake-be/internal/dto"
	"sloth-wake-be/internal/pkg/logger"
	"sloth-wake-be/internal/pkg/serverutils"
	"sloth-wake-be/pkg/speech"

	"github.com/gofiber/fiber/v2"
)

// maxAudioUpload bounds one spoken turn.
const maxAudioUpload = 8 * 1024 * 1024

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type ISpeechController interface {
	RegisterRoutes(r fiber.Router)
	Transcribe(ctx *fiber.Ctx) error
}

type speechController struct {
	transcriber Transcriber
	timeout     time.Duration
	logger      logger.ILogger
}

func NewSpeechController(transcriber Transcriber, timeout time.Duration, logger logger.ILogger) ISpeechController {
	return &speechController{
		transcriber: transcriber,
		timeout:     timeout,
		logger:      logger,
	}
}

func (c *speechController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/speech/v1")
	h.Post("/transcribe", c.Transcribe)
}

func (c *speechController) Transcribe(ctx *fiber.Ctx) error {
	if c.transcriber == nil {
		return speech.ErrUnavailable
	}

	file, err := ctx.FormFile("audio")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Audio file is required")
	}
	if file.Size > maxAudioUpload {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Audio file is too large")
	}

	f, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to read audio")
	}
	defer f.Close()

	audio, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to read audio")
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "audio/webm"
	}

	tctx := ctx.UserContext()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(tctx, c.timeout)
		defer cancel()
	}

	text, err := c.transcriber.Transcribe(tctx, audio, mimeType)
	if err != nil {
		c.logger.Warn("SpeechController", "Transcription failed", map[string]interface{}{
			"size":  len(audio),
			"mime":  mimeType,
			"error": err.Error(),
		})
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success transcribe audio", dto.TranscribeResponse{Text: text}))
}
