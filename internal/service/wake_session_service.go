// FILE: internal/service/wake_session_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sloth-wake-be/internal/constant"
	"sloth-wake-be/internal/dto"
	"sloth-wake-be/internal/entity"
	"sloth-wake-be/internal/pkg/logger"
	"sloth-wake-be/internal/repository/contract"
	"sloth-wake-be/pkg/personality"
	"sloth-wake-be/pkg/phrase"
	"sloth-wake-be/pkg/randsrc"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrSessionNotFound = contract.ErrSessionNotFound
	ErrSessionReleased = contract.ErrSessionReleased
	ErrInvalidState    = contract.ErrInvalidState
)

type IWakeSessionService interface {
	Start(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	Validate(ctx context.Context, req *dto.ValidateSessionRequest) (*dto.ValidateSessionResponse, error)
	Nudge(ctx context.Context, sessionId string) (*dto.ValidateSessionResponse, error)
	SubmitProof(ctx context.Context, sessionId string) (*dto.SubmitProofResponse, error)
	BeginRoutine(ctx context.Context, sessionId string) (*dto.RoutineStepResponse, error)
	AdvanceRoutine(ctx context.Context, sessionId string) (*dto.RoutineStepResponse, error)
	Get(ctx context.Context, sessionId string) (*dto.SessionSnapshotResponse, error)
}

// SessionFeed receives a copy of every decision for live subscribers.
type SessionFeed interface {
	Publish(sessionId string, event dto.SessionFeedEvent)
}

type wakeSessionService struct {
	store    contract.WakeSessionRepository
	selector *personality.Selector
	rng      randsrc.Source
	audit    contract.AuditRecorder
	feed     SessionFeed
	logger   logger.ILogger
	tracer   trace.Tracer
}

// NewWakeSessionService wires the protocol core. feed may be nil.
func NewWakeSessionService(
	store contract.WakeSessionRepository,
	selector *personality.Selector,
	rng randsrc.Source,
	audit contract.AuditRecorder,
	feed SessionFeed,
	logger logger.ILogger,
) IWakeSessionService {
	if rng == nil {
		rng = randsrc.Default()
	}
	return &wakeSessionService{
		store:    store,
		selector: selector,
		rng:      rng,
		audit:    audit,
		feed:     feed,
		logger:   logger,
		tracer:   otel.Tracer("sloth-wake-be/wake-session"),
	}
}

func defaultVars() map[string]string {
	return map[string]string{"userName": constant.DefaultUserName}
}

// nextEscalationPhase picks the phase after a failed attempt. Level 1 is
// always RESISTING; beyond that ESCALATING wins with p = min(0.2*level, 0.8).
func nextEscalationPhase(level int, rng randsrc.Source) entity.Phase {
	if level <= 1 {
		return entity.PhaseResisting
	}
	p := min(constant.EscalationStep*float64(level), constant.EscalationCap)
	if rng.Float64() < p {
		return entity.PhaseEscalating
	}
	return entity.PhaseResisting
}

func escalate(s *entity.WakeSession, rng randsrc.Source) {
	s.EscalationLevel++
	s.FailedAttempts++
	s.Phase = nextEscalationPhase(s.EscalationLevel, rng)
}

func (c *wakeSessionService) Start(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	ctx, span := c.tracer.Start(ctx, "WakeSession.Start")
	defer span.End()

	userName := strings.TrimSpace(req.UserName)
	if userName == "" {
		userName = constant.DefaultUserName
	}
	vars := map[string]string{
		"userName": userName,
		"time":     strings.TrimSpace(req.AlarmTime),
	}

	// Render before creating so a broken pack never leaves an orphan session.
	msg, err := c.selector.Select(entity.PhaseAwakening, 0, vars, true)
	if err != nil {
		return nil, c.fail(span, "start", "", err)
	}
	prompt := c.selector.ListeningPrompt()

	session := c.store.Create()
	span.SetAttributes(attribute.String("session.id", session.ID))
	c.audit.RecordStart(ctx, session)

	c.logger.Info("WAKE", "Session started", map[string]interface{}{
		"session_id": session.ID,
		"message_id": msg.TemplateID,
	})

	return &dto.StartSessionResponse{
		SessionId:       session.ID,
		Phase:           session.Phase.String(),
		EscalationLevel: session.EscalationLevel,
		MessageId:       msg.TemplateID,
		Text:            msg.Text,
		PromptText:      prompt.Text,
	}, nil
}

func (c *wakeSessionService) Validate(ctx context.Context, req *dto.ValidateSessionRequest) (*dto.ValidateSessionResponse, error) {
	ctx, span := c.tracer.Start(ctx, "WakeSession.Validate", trace.WithAttributes(attribute.String("session.id", req.SessionId)))
	defer span.End()

	var (
		valid  bool
		msg    personality.Message
		prompt *personality.Message
	)
	listen := func() {
		p := c.selector.ListeningPrompt()
		prompt = &p
	}

	session, err := c.store.Mutate(req.SessionId, func(s *entity.WakeSession) error {
		if !s.SpokenVerified {
			spoken := strings.TrimSpace(req.Spoken)
			if spoken == "" {
				spoken = strings.TrimSpace(req.Keyword)
			}

			switch {
			case spoken == "":
				if s.FailedAttempts > 0 {
					m, err := c.selector.Select(s.Phase, s.EscalationLevel, defaultVars(), true)
					if err != nil {
						return err
					}
					msg = m
				} else {
					msg = personality.Message{TemplateID: constant.MsgIDSayPhrase, Text: constant.MsgTextSayPhrase}
				}
				listen()
			case phrase.IsValid(spoken):
				s.SpokenVerified = true
				valid = true
				msg = personality.Message{TemplateID: constant.MsgIDCorrectPhrase, Text: constant.MsgTextCorrectPhrase}
			default:
				escalate(s, c.rng)
				msg = personality.Message{TemplateID: constant.MsgIDWrongPhrase, Text: constant.MsgTextWrongPhrase}
				listen()
			}
			return nil
		}

		if !phrase.IsTypedKeyword(req.Keyword) {
			escalate(s, c.rng)
			m, err := c.selector.Select(s.Phase, s.EscalationLevel, defaultVars(), true)
			if err != nil {
				return err
			}
			msg = m
			listen()
			return nil
		}

		valid = true
		if s.Phase != entity.PhaseCompliant {
			s.Phase = entity.PhaseCompliant
			s.EscalationLevel = 0
			msg = personality.Message{TemplateID: constant.MsgIDTypeOnceMore, Text: constant.MsgTextTypeOnceMore}
			listen()
			return nil
		}

		s.Phase = entity.PhaseRelease
		s.EscalationLevel = 0
		msg = personality.Message{TemplateID: constant.MsgIDRelease, Text: constant.MsgTextRelease}
		return nil
	})
	if err != nil {
		return nil, c.fail(span, "validate", req.SessionId, err)
	}

	if session.Released() {
		c.audit.RecordEnd(ctx, session, true)
		c.logger.Info("WAKE", "Session released", map[string]interface{}{
			"session_id":      session.ID,
			"failed_attempts": session.FailedAttempts,
			"nudge_count":     session.NudgeCount,
		})
	}
	span.SetAttributes(
		attribute.String("session.phase", session.Phase.String()),
		attribute.Bool("validate.valid", valid),
	)

	res := &dto.ValidateSessionResponse{
		Valid:           valid,
		Phase:           session.Phase.String(),
		EscalationLevel: session.EscalationLevel,
		MessageId:       msg.TemplateID,
		Text:            msg.Text,
		Released:        session.Released(),
		SpokenVerified:  session.SpokenVerified,
	}
	if prompt != nil {
		res.PromptText = prompt.Text
	}
	c.publish(session, "validate", msg)
	return res, nil
}

func (c *wakeSessionService) Nudge(ctx context.Context, sessionId string) (*dto.ValidateSessionResponse, error) {
	_, span := c.tracer.Start(ctx, "WakeSession.Nudge", trace.WithAttributes(attribute.String("session.id", sessionId)))
	defer span.End()

	var msg, prompt personality.Message
	session, err := c.store.Mutate(sessionId, func(s *entity.WakeSession) error {
		if s.Phase != entity.PhaseAwakening {
			return fmt.Errorf("nudge in %s: %w", s.Phase, ErrInvalidState)
		}
		m, err := c.selector.Select(entity.PhaseAwakening, 0, defaultVars(), true)
		if err != nil {
			return err
		}
		s.NudgeCount++
		msg = m
		prompt = c.selector.ListeningPrompt()
		return nil
	})
	if err != nil {
		return nil, c.fail(span, "nudge", sessionId, err)
	}

	c.publish(session, "nudge", msg)
	return &dto.ValidateSessionResponse{
		Valid:           false,
		Phase:           session.Phase.String(),
		EscalationLevel: session.EscalationLevel,
		MessageId:       msg.TemplateID,
		Text:            msg.Text,
		Released:        false,
		SpokenVerified:  session.SpokenVerified,
		PromptText:      prompt.Text,
	}, nil
}

func (c *wakeSessionService) SubmitProof(ctx context.Context, sessionId string) (*dto.SubmitProofResponse, error) {
	_, span := c.tracer.Start(ctx, "WakeSession.SubmitProof", trace.WithAttributes(attribute.String("session.id", sessionId)))
	defer span.End()

	session, err := c.store.SetProofCaptured(sessionId)
	if err != nil {
		return nil, c.fail(span, "proof", sessionId, err)
	}
	c.publish(session, "proof", personality.Message{})
	return &dto.SubmitProofResponse{Ok: session.ProofCaptured}, nil
}

func (c *wakeSessionService) BeginRoutine(ctx context.Context, sessionId string) (*dto.RoutineStepResponse, error) {
	_, span := c.tracer.Start(ctx, "WakeSession.BeginRoutine", trace.WithAttributes(attribute.String("session.id", sessionId)))
	defer span.End()

	total := c.selector.BucketSize(entity.PhaseRoutineActive)
	var msg, prompt personality.Message
	session, err := c.store.Mutate(sessionId, func(s *entity.WakeSession) error {
		// The routine runs once; a keyword typed mid-routine forfeits the rest.
		if s.Phase != entity.PhaseCompliant || s.RoutineComplete || s.RoutineStep > 0 {
			return fmt.Errorf("begin routine in %s at step %d: %w", s.Phase, s.RoutineStep, ErrInvalidState)
		}
		m, err := c.selector.Select(entity.PhaseRoutineActive, 0, defaultVars(), false)
		if err != nil {
			return err
		}
		s.Phase = entity.PhaseRoutineActive
		s.RoutineStep = 0
		msg = m
		prompt = c.selector.ListeningPrompt()
		return nil
	})
	if err != nil {
		return nil, c.fail(span, "routine_begin", sessionId, err)
	}

	c.publish(session, "routine_begin", msg)
	return &dto.RoutineStepResponse{
		StepIndex:       session.RoutineStep,
		TotalSteps:      total,
		Text:            msg.Text,
		RoutineComplete: false,
		Phase:           session.Phase.String(),
		PromptText:      prompt.Text,
	}, nil
}

func (c *wakeSessionService) AdvanceRoutine(ctx context.Context, sessionId string) (*dto.RoutineStepResponse, error) {
	_, span := c.tracer.Start(ctx, "WakeSession.AdvanceRoutine", trace.WithAttributes(attribute.String("session.id", sessionId)))
	defer span.End()

	total := c.selector.BucketSize(entity.PhaseRoutineActive)
	var msg, prompt personality.Message
	session, err := c.store.Mutate(sessionId, func(s *entity.WakeSession) error {
		if s.Phase != entity.PhaseRoutineActive {
			return fmt.Errorf("advance routine in %s: %w", s.Phase, ErrInvalidState)
		}
		step := s.RoutineStep + 1
		m, err := c.selector.Select(entity.PhaseRoutineActive, min(step, total-1), defaultVars(), false)
		if err != nil {
			return err
		}
		s.RoutineStep = step
		if step >= total {
			s.RoutineComplete = true
			// Hand back to COMPLIANT so the next typed keyword releases.
			s.Phase = entity.PhaseCompliant
		}
		msg = m
		prompt = c.selector.ListeningPrompt()
		return nil
	})
	if err != nil {
		return nil, c.fail(span, "routine_next", sessionId, err)
	}

	c.publish(session, "routine_next", msg)
	return &dto.RoutineStepResponse{
		StepIndex:       session.RoutineStep,
		TotalSteps:      total,
		Text:            msg.Text,
		RoutineComplete: session.RoutineComplete,
		Phase:           session.Phase.String(),
		PromptText:      prompt.Text,
	}, nil
}

func (c *wakeSessionService) Get(ctx context.Context, sessionId string) (*dto.SessionSnapshotResponse, error) {
	_, span := c.tracer.Start(ctx, "WakeSession.Get", trace.WithAttributes(attribute.String("session.id", sessionId)))
	defer span.End()

	s, found := c.store.Get(sessionId)
	if !found {
		return nil, c.fail(span, "get", sessionId, ErrSessionNotFound)
	}
	return &dto.SessionSnapshotResponse{
		SessionId:       s.ID,
		Phase:           s.Phase.String(),
		EscalationLevel: s.EscalationLevel,
		SpokenVerified:  s.SpokenVerified,
		FailedAttempts:  s.FailedAttempts,
		NudgeCount:      s.NudgeCount,
		ProofCaptured:   s.ProofCaptured,
		RoutineStep:     s.RoutineStep,
		RoutineComplete: s.RoutineComplete,
		Released:        s.Released(),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}, nil
}

func (c *wakeSessionService) publish(s entity.WakeSession, op string, msg personality.Message) {
	if c.feed == nil {
		return
	}
	c.feed.Publish(s.ID, dto.SessionFeedEvent{
		SessionId:       s.ID,
		Operation:       op,
		Phase:           s.Phase.String(),
		EscalationLevel: s.EscalationLevel,
		MessageId:       msg.TemplateID,
		Text:            msg.Text,
		Released:        s.Released(),
	})
}

// fail records err on the span and logs caller bugs loudly.
func (c *wakeSessionService) fail(span trace.Span, op, sessionId string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, personality.ErrContractViolation) {
		c.logger.Error("WAKE", "Message selection contract violated", map[string]interface{}{
			"operation":  op,
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
	if sessionId == "" {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s %s: %w", op, sessionId, err)
}
