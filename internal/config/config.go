package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Session  SessionConfig
	Speech   SpeechConfig
	Keys     APIKeys
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string // empty disables the audit table; events are still logged
}

type SessionConfig struct {
	IdleTTL         time.Duration
	ReapInterval    time.Duration
	PersonalityFile string // empty uses the embedded default pack
	Seed            int64  // non-zero makes escalation and line picks reproducible
}

type SpeechConfig struct {
	STTProvider  string // "gemini", "deepgram" or "none"
	TTSProvider  string // "gemini" or "none"
	AudioDir     string
	CacheVersion int
	Timeout      time.Duration
	GeminiTTS    string
	GeminiVoice  string
	GeminiSTT    string
	DeepgramURL  string
	DeepgramLang string
	DeepgramMdl  string
}

type APIKeys struct {
	GoogleGemini string
	Deepgram     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Session: SessionConfig{
			IdleTTL:         getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
			ReapInterval:    getEnvAsDuration("SESSION_REAP_INTERVAL", 5*time.Minute),
			PersonalityFile: getEnv("PERSONALITY_FILE", ""),
			Seed:            int64(getEnvAsInt("WAKE_RANDOM_SEED", 0)),
		},
		Speech: SpeechConfig{
			STTProvider:  getEnv("STT_PROVIDER", "gemini"),
			TTSProvider:  getEnv("TTS_PROVIDER", "gemini"),
			AudioDir:     getEnv("AUDIO_DIR", "static/audio"),
			CacheVersion: getEnvAsInt("TTS_CACHE_VERSION", 6),
			Timeout:      getEnvAsDuration("SPEECH_TIMEOUT", 30*time.Second),
			GeminiTTS:    getEnv("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
			GeminiVoice:  getEnv("GEMINI_TTS_VOICE", "Charon"),
			GeminiSTT:    getEnv("GEMINI_STT_MODEL", "gemini-2.5-flash"),
			DeepgramURL:  getEnv("DEEPGRAM_API_BASE_URL", "https://api.deepgram.com/v1"),
			DeepgramLang: getEnv("DEEPGRAM_LANGUAGE", "en"),
			DeepgramMdl:  getEnv("DEEPGRAM_MODEL", "nova-2"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Deepgram:     getEnv("DEEPGRAM_API_KEY", ""),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
