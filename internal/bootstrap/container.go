package bootstrap

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"sloth-wake-be/internal/config"
	"sloth-wake-be/internal/constant"
	"sloth-wake-be/internal/controller"
	"sloth-wake-be/internal/entity"
	"sloth-wake-be/internal/handler"
	"sloth-wake-be/internal/pkg/logger"
	"sloth-wake-be/internal/repository/contract"
	"sloth-wake-be/internal/repository/implementation"
	"sloth-wake-be/internal/repository/memory"
	"sloth-wake-be/internal/service"
	"sloth-wake-be/internal/websocket"
	"sloth-wake-be/pkg/personality"
	"sloth-wake-be/pkg/randsrc"
	"sloth-wake-be/pkg/speech"
	"sloth-wake-be/pkg/speech/deepgram"
	"sloth-wake-be/pkg/speech/gemini"

	pktNats "sloth-wake-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SessionController controller.ISessionController
	SpeechController  controller.ISpeechController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	SessionFeedHandler *handler.SessionFeedHandler
	WebSocketHub       *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the service. db may be nil, in which case audit events
// are logged and forwarded but not persisted.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)
	auditRecorder := service.NewAuditRecorder(constant.WakeAuditTopic, pubSub, sysLogger)

	// 3. Session store; idle sessions are reported as abandoned.
	sessionRepo := memory.NewWakeSessionRepository(
		cfg.Session.IdleTTL,
		cfg.Session.ReapInterval,
		memory.WithOnAbandoned(func(s entity.WakeSession) {
			auditRecorder.RecordEnd(context.Background(), s, false)
			sysLogger.Info("WAKE", "Session abandoned", map[string]interface{}{
				"session_id": s.ID,
				"phase":      s.Phase.String(),
			})
		}),
	)

	var rng randsrc.Source = randsrc.Default()
	if cfg.Session.Seed != 0 {
		rng = randsrc.NewSeeded(uint64(cfg.Session.Seed))
	}

	pack, err := personality.LoadPack(cfg.Session.PersonalityFile)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load personality pack: %v", err)
	}
	selector := personality.NewSelector(pack, rng)
	log.Printf("[INFO] Using personality: %s", selector.Personality().ID)

	// 4. Infrastructure
	// NATS
	var forwarder service.EventForwarder
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		forwarder = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	var rdb *redis.Client
	candidate := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if _, err := candidate.Ping(pingCtx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		_ = candidate.Close()
	} else {
		rdb = candidate
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	cancel()

	// Audit history
	var history contract.WakeHistoryRepository
	if db != nil {
		history = implementation.NewWakeHistoryRepository(db)
	}

	c.ConsumerService = service.NewConsumerService(
		pubSub,
		constant.WakeAuditTopic,
		history,
		forwarder,
		sysLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 5. WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/session_feed.log")
	c.WebSocketHub = websocket.NewHub(rdb, constant.FeedChannel, wsLogger)

	// 6. Services
	wakeService := service.NewWakeSessionService(
		sessionRepo,
		selector,
		rng,
		auditRecorder,
		c.WebSocketHub, // Hub implements SessionFeed
		sysLogger,
	)

	speechService := newSpeechService(cfg, rdb)

	// 7. Controllers
	c.SessionController = controller.NewSessionController(wakeService, speechService, cfg.Speech.Timeout, sysLogger)
	c.SpeechController = controller.NewSpeechController(transcriberOf(speechService), cfg.Speech.Timeout, sysLogger)
	c.SessionFeedHandler = handler.NewSessionFeedHandler(wakeService, c.WebSocketHub, wsLogger)

	return c
}

// Close releases broker and cache connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newSpeechService(cfg *config.Config, rdb *redis.Client) *speech.Service {
	var (
		synth       speech.Synthesizer
		transcriber speech.Transcriber
	)

	var gem *gemini.Provider
	if cfg.Speech.TTSProvider == "gemini" || cfg.Speech.STTProvider == "gemini" {
		p, err := gemini.NewProvider(context.Background(), gemini.Config{
			APIKey:   cfg.Keys.GoogleGemini,
			TTSModel: cfg.Speech.GeminiTTS,
			Voice:    cfg.Speech.GeminiVoice,
			STTModel: cfg.Speech.GeminiSTT,
		})
		switch {
		case errors.Is(err, speech.ErrUnavailable):
			log.Printf("[INFO] Gemini speech disabled: %v", err)
		case err != nil:
			log.Printf("[WARN] Failed to initialize Gemini speech: %v", err)
		default:
			gem = p
		}
	}

	if cfg.Speech.TTSProvider == "gemini" && gem != nil {
		synth = gem
	}

	switch cfg.Speech.STTProvider {
	case "gemini":
		if gem != nil {
			transcriber = gem
		}
	case "deepgram":
		if cfg.Keys.Deepgram == "" {
			log.Printf("[INFO] Deepgram transcription disabled: DEEPGRAM_API_KEY is not configured")
			break
		}
		transcriber = deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Keys.Deepgram,
			APIBaseURL:  cfg.Speech.DeepgramURL,
			Model:       cfg.Speech.DeepgramMdl,
			Language:    cfg.Speech.DeepgramLang,
			SmartFormat: true,
		}, &http.Client{Timeout: cfg.Speech.Timeout})
	}

	var index speech.AudioIndex
	if rdb != nil {
		index = speech.NewRedisIndex(rdb, 7*24*time.Hour)
	} else {
		index = speech.NewMemoryIndex(24 * time.Hour)
	}

	log.Printf("[INFO] Speech: tts=%t stt=%t", synth != nil, transcriber != nil)
	return speech.NewService(synth, transcriber, index, speech.Options{
		Dir:          cfg.Speech.AudioDir,
		BaseURL:      "/static/audio",
		CacheVersion: cfg.Speech.CacheVersion,
	})
}

// transcriberOf hands the controller a nil interface when no engine is
// configured so it can answer 503 without a round trip.
func transcriberOf(s *speech.Service) controller.Transcriber {
	if !s.CanTranscribe() {
		return nil
	}
	return s
}
