// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Data files
	CatalogFile  string
	BookingsFile string

	// Search and booking
	SearchResultLimit int
	CapacityDebug     bool

	// LLM settings
	LLMProvider          string
	AnthropicAPIKey      string
	OpenAIAPIKey         string
	LLMModel             string
	LLMMaxTokens         int
	LLMRequestsPerSecond float64
	LLMBurst             int

	// Dialogue
	MaxToolRounds    int
	TurnTimeout      time.Duration
	SystemPromptFile string

	// Tool backend; empty URL dispatches in-process. Loopback callers of the
	// tool API are not rate limited, so a same-host URL does not funnel every
	// session into one per-IP bucket. A remote URL shares that bucket.
	ToolBackendURL     string
	ToolBackendTimeout time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Logging
	LogLevel  string
	LogFormat string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8000"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Data
		CatalogFile:  getEnv("CATALOG_FILE", "data/restaurant_list.json"),
		BookingsFile: getEnv("BOOKINGS_FILE", "data/bookings_list.json"),

		// Search and booking
		SearchResultLimit: getIntEnv("SEARCH_RESULT_LIMIT", 10),
		CapacityDebug:     getBoolEnv("CAPACITY_DEBUG", false),

		// LLM
		LLMProvider:          getEnv("LLM_PROVIDER", "openai"),
		AnthropicAPIKey:      getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		LLMModel:             getEnv("LLM_MODEL", ""),
		LLMMaxTokens:         getIntEnv("LLM_MAX_TOKENS", 1024),
		LLMRequestsPerSecond: getFloatEnv("LLM_REQUESTS_PER_SECOND", 5),
		LLMBurst:             getIntEnv("LLM_BURST", 10),

		// Dialogue
		MaxToolRounds:    getIntEnv("MAX_TOOL_ROUNDS", 1),
		TurnTimeout:      getDurationEnv("TURN_TIMEOUT", 90*time.Second),
		SystemPromptFile: getEnv("SYSTEM_PROMPT_FILE", ""),

		// Tool backend
		ToolBackendURL:     getEnv("TOOL_BACKEND_URL", ""),
		ToolBackendTimeout: getDurationEnv("TOOL_BACKEND_TIMEOUT", 10*time.Second),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
