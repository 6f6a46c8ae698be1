package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration for the quiz-taker client
// and the sandbox Session API.
type Config struct {
	LogLevel  string
	LogFormat string

	// ─── Client ────────────────────────────────────────────────────────
	BackendURL          string
	LiveURL             string // Empty disables the live channel.
	SessionToken        string
	HTTPTimeout         time.Duration
	AutosaveInterval    time.Duration
	LargePasteThreshold int
	PassingScore        int
	RedisURL            string // Empty disables the draft cache.
	DraftTTL            time.Duration

	// ─── Sandbox ───────────────────────────────────────────────────────
	ServerPort            string
	GinMode               string
	JWTSecret             string
	JWTExpiry             time.Duration
	BcryptCost            int
	SandboxCandidateEmail string
	SandboxAccessCode     string
	SandboxQuizMinutes    int
	TimeSyncInterval      time.Duration
	ActivityRatePerMinute int
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "pretty"),

		BackendURL:          strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8080/api"), "/"),
		LiveURL:             strings.TrimRight(getEnv("LIVE_URL", ""), "/"),
		SessionToken:        getEnv("SESSION_TOKEN", ""),
		HTTPTimeout:         time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		AutosaveInterval:    time.Duration(getEnvInt("AUTOSAVE_INTERVAL_SECONDS", 30)) * time.Second,
		LargePasteThreshold: getEnvInt("LARGE_PASTE_THRESHOLD", 100),
		PassingScore:        getEnvInt("PASSING_SCORE", 70),
		RedisURL:            getEnv("REDIS_URL", ""),
		DraftTTL:            time.Duration(getEnvInt("DRAFT_TTL_HOURS", 6)) * time.Hour,

		ServerPort:            getEnv("SERVER_PORT", "8080"),
		GinMode:               getEnv("GIN_MODE", "debug"),
		JWTSecret:             getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		JWTExpiry:             time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 4)) * time.Hour,
		BcryptCost:            getEnvInt("BCRYPT_COST", 6),
		SandboxCandidateEmail: getEnv("SANDBOX_CANDIDATE_EMAIL", "candidate@example.com"),
		SandboxAccessCode:     getEnv("SANDBOX_ACCESS_CODE", "sandbox123"),
		SandboxQuizMinutes:    getEnvInt("SANDBOX_QUIZ_MINUTES", 30),
		TimeSyncInterval:      time.Duration(getEnvInt("TIME_SYNC_SECONDS", 15)) * time.Second,
		ActivityRatePerMinute: getEnvInt("ACTIVITY_RATE_PER_MINUTE", 30),
		AllowedOrigins:        parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
