// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AppEnv       string // "local", "staging", or "production"
	DebugErrors  bool   // Include internal error text in responses. Never in production.

	// Request handling.
	RequestIDHeader     string
	MaxRequestBodyBytes int64
	ChatTotalTimeout    time.Duration // End-to-end budget for one /api/chat request.
	CORSOrigins         []string
	PublicBaseURL       string

	// Model provider settings.
	ModelBaseURL      string
	ModelAPIKey       string
	ModelName         string
	ModelCallsEnabled bool
	ModelCallTimeout  time.Duration
	ModelMaxTokens    int

	// Circuit breaker settings.
	BreakerFailures uint32
	BreakerWindow   time.Duration
	BreakerOpenFor  time.Duration

	// Deep-think settings.
	DeepThinkEnabled bool
	DeepThinkBudget  int // Budget units granted per request.

	// Session store settings.
	SessionStoreURL string
	SessionTTL      time.Duration

	// Rate limit settings.
	RateLimitPerMinute int // Requests per client IP per minute; 0 disables.

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
// Timeouts arrive as integer milliseconds, breaker intervals as integer
// seconds.
func Load() (Config, error) {
	cfg := Config{
		Port:                envInt("TILLER_PORT", 8080),
		ReadTimeout:         envDuration("TILLER_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("TILLER_WRITE_TIMEOUT", 30*time.Second),
		AppEnv:              envStr("APP_ENV", "local"),
		DebugErrors:         envBool("DEBUG_ERRORS", false),
		RequestIDHeader:     envStr("REQUEST_ID_HEADER", "X-Request-ID"),
		MaxRequestBodyBytes: int64(envInt("TILLER_MAX_REQUEST_BODY_BYTES", 64*1024)),
		ChatTotalTimeout:    envMillis("API_CHAT_TOTAL_TIMEOUT_MS", 20000),
		CORSOrigins:         envList("CORS_ORIGINS", nil),
		PublicBaseURL:       envStr("BACKEND_PUBLIC_BASE_URL", ""),
		ModelBaseURL:        envStr("MODEL_BASE_URL", ""),
		ModelAPIKey:         envStr("MODEL_API_KEY", ""),
		ModelName:           envStr("MODEL_NAME", "gpt-4o-mini"),
		ModelCallsEnabled:   envBool("MODEL_CALLS_ENABLED", true),
		ModelCallTimeout:    envMillis("MODEL_CALL_TIMEOUT_MS", 12000),
		ModelMaxTokens:      envInt("MODEL_MAX_OUTPUT_TOKENS", 1024),
		BreakerFailures:     uint32(envInt("BREAKER_FAILURES", 5)),
		BreakerWindow:       envSeconds("BREAKER_WINDOW_SECONDS", 30),
		BreakerOpenFor:      envSeconds("BREAKER_OPEN_SECONDS", 15),
		DeepThinkEnabled:    envBool("TILLER_DEEP_THINK_ENABLED", true),
		DeepThinkBudget:     envInt("TILLER_DEEP_THINK_BUDGET", 400),
		SessionStoreURL:     envStr("TILLER_SESSION_STORE_URL", ""),
		SessionTTL:          envDuration("TILLER_SESSION_TTL", 24*time.Hour),
		RateLimitPerMinute:  envInt("TILLER_RATE_LIMIT_PER_MINUTE", 60),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "tiller"),
		LogLevel:            envStr("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants that hold in every environment, plus the
// settings production refuses to start without.
func (c Config) Validate() error {
	switch c.AppEnv {
	case "local", "staging", "production":
	default:
		return fmt.Errorf("config: APP_ENV must be local, staging or production, got %q", c.AppEnv)
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: TILLER_MAX_REQUEST_BODY_BYTES must be positive")
	}
	if c.ChatTotalTimeout <= 0 {
		return fmt.Errorf("config: API_CHAT_TOTAL_TIMEOUT_MS must be positive")
	}
	if c.ModelCallTimeout >= c.ChatTotalTimeout {
		return fmt.Errorf("config: MODEL_CALL_TIMEOUT_MS must be below the chat total timeout")
	}
	if c.DeepThinkBudget < 0 {
		return fmt.Errorf("config: TILLER_DEEP_THINK_BUDGET must not be negative")
	}
	if c.AppEnv == "production" {
		if c.DebugErrors {
			return fmt.Errorf("config: DEBUG_ERRORS must be off in production")
		}
		if c.PublicBaseURL == "" {
			return fmt.Errorf("config: BACKEND_PUBLIC_BASE_URL is required in production")
		}
		if len(c.CORSOrigins) == 0 {
			return fmt.Errorf("config: CORS_ORIGINS is required in production")
		}
		if c.ModelCallsEnabled && c.ModelAPIKey == "" {
			return fmt.Errorf("config: MODEL_API_KEY is required in production when model calls are enabled")
		}
	}
	return nil
}

// MissingForReady lists required settings that are absent, for GET /ready.
// The model provider is required; the session store is optional.
func (c Config) MissingForReady() []string {
	var missing []string
	if c.ModelBaseURL == "" {
		missing = append(missing, "MODEL_BASE_URL")
	}
	if c.ModelAPIKey == "" {
		missing = append(missing, "MODEL_API_KEY")
	}
	return missing
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envMillis(key string, defaultMS int) time.Duration {
	return time.Duration(envInt(key, defaultMS)) * time.Millisecond
}

func envSeconds(key string, defaultS int) time.Duration {
	return time.Duration(envInt(key, defaultS)) * time.Second
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
