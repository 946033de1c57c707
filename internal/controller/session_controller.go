package controller

import (
	"context"
	"errors"
	"time"

	"sloth-wake-be/internal/dto"
	"sloth-wake-be/internal/pkg/logger"
	"sloth-wake-be/internal/pkg/serverutils"
	"sloth-wake-be/internal/service"
	"sloth-wake-be/pkg/speech"

	"github.com/gofiber/fiber/v2"
)

// AudioSource resolves spoken clips for response texts.
type AudioSource interface {
	AudioURL(ctx context.Context, text string) (string, error)
}

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Validate(ctx *fiber.Ctx) error
	Nudge(ctx *fiber.Ctx) error
	SubmitProof(ctx *fiber.Ctx) error
	BeginRoutine(ctx *fiber.Ctx) error
	NextRoutine(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
}

type sessionController struct {
	service      service.IWakeSessionService
	audio        AudioSource
	audioTimeout time.Duration
	logger       logger.ILogger
}

// NewSessionController builds the REST surface. audio may be nil, in which
// case every audio_url is empty.
func NewSessionController(service service.IWakeSessionService, audio AudioSource, audioTimeout time.Duration, logger logger.ILogger) ISessionController {
	return &sessionController{
		service:      service,
		audio:        audio,
		audioTimeout: audioTimeout,
		logger:       logger,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Post("/start", c.Start)
	h.Post("/validate", c.Validate)
	h.Post("/nudge", c.Nudge)
	h.Post("/proof", c.SubmitProof)
	h.Post("/routine/begin", c.BeginRoutine)
	h.Post("/routine/next", c.NextRoutine)
	h.Get("/:id", c.Show)
}

func (c *sessionController) Start(ctx *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Start(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	res.AudioUrl = c.audioURL(ctx.UserContext(), res.Text)
	res.PromptAudioUrl = c.audioURL(ctx.UserContext(), res.PromptText)
	return ctx.JSON(serverutils.SuccessResponse("Success start session", res))
}

func (c *sessionController) Validate(ctx *fiber.Ctx) error {
	var req dto.ValidateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Validate(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	c.withAudio(ctx.UserContext(), res)
	return ctx.JSON(serverutils.SuccessResponse("Success validate session", res))
}

func (c *sessionController) Nudge(ctx *fiber.Ctx) error {
	req, err := c.parseSessionId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Nudge(ctx.UserContext(), req.SessionId)
	if err != nil {
		return err
	}

	c.withAudio(ctx.UserContext(), res)
	return ctx.JSON(serverutils.SuccessResponse("Success nudge session", res))
}

func (c *sessionController) SubmitProof(ctx *fiber.Ctx) error {
	req, err := c.parseSessionId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.SubmitProof(ctx.UserContext(), req.SessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success submit proof", res))
}

func (c *sessionController) BeginRoutine(ctx *fiber.Ctx) error {
	req, err := c.parseSessionId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.BeginRoutine(ctx.UserContext(), req.SessionId)
	if err != nil {
		return err
	}

	res.AudioUrl = c.audioURL(ctx.UserContext(), res.Text)
	res.PromptAudioUrl = c.audioURL(ctx.UserContext(), res.PromptText)
	return ctx.JSON(serverutils.SuccessResponse("Success begin routine", res))
}

func (c *sessionController) NextRoutine(ctx *fiber.Ctx) error {
	req, err := c.parseSessionId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.AdvanceRoutine(ctx.UserContext(), req.SessionId)
	if err != nil {
		return err
	}

	res.AudioUrl = c.audioURL(ctx.UserContext(), res.Text)
	res.PromptAudioUrl = c.audioURL(ctx.UserContext(), res.PromptText)
	return ctx.JSON(serverutils.SuccessResponse("Success advance routine", res))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *sessionController) parseSessionId(ctx *fiber.Ctx) (*dto.SessionIdRequest, error) {
	var req dto.SessionIdRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *sessionController) withAudio(ctx context.Context, res *dto.ValidateSessionResponse) {
	res.AudioUrl = c.audioURL(ctx, res.Text)
	res.PromptAudioUrl = c.audioURL(ctx, res.PromptText)
}

// audioURL degrades to "" when synthesis is off or fails; the text is
// always in the response.
func (c *sessionController) audioURL(ctx context.Context, text string) string {
	if c.audio == nil || text == "" {
		return ""
	}
	if c.audioTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.audioTimeout)
		defer cancel()
	}

	url, err := c.audio.AudioURL(ctx, text)
	if err != nil {
		if !errors.Is(err, speech.ErrUnavailable) {
			c.logger.Warn("SessionController", "Audio synthesis failed", map[string]interface{}{
				"text":  text,
				"error": err.Error(),
			})
		}
		return ""
	}
	return url
}
