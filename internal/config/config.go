package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Dialogue   DialogueConfig
	OpenAI     OpenAIConfig
	Twilio     TwilioConfig
	PostgreSQL PostgreSQLConfig
	Logging    LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// DialogueConfig holds dialogue state machine configuration
type DialogueConfig struct {
	// MaxTurns bounds conversation length: once the caller has spoken more
	// than MaxTurns times, the dialogue concludes regardless of the
	// extractor's signal.
	MaxTurns   int
	TopMatches int
}

// OpenAIConfig holds configuration for the OpenAI-compatible extraction API
type OpenAIConfig struct {
	APIKey          string
	APIBase         string
	ChatModel       string
	ChatTemperature float64
	ChatMaxTokens   int
	Timeout         int // seconds; bounds every extraction call
	Enabled         bool
}

// TwilioConfig holds credentials for the telephony/SMS transport
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	Enabled    bool
}

// PostgreSQLConfig holds the optional call-log database configuration
type PostgreSQLConfig struct {
	DSN                string
	MaxConnections     int
	MaxIdleConnections int
	Enabled            bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", getEnvAsInt("PORT", 3000)),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Dialogue: DialogueConfig{
			MaxTurns:   getEnvAsInt("DIALOGUE_MAX_TURNS", 8),
			TopMatches: getEnvAsInt("DIALOGUE_TOP_MATCHES", 3),
		},
		OpenAI: OpenAIConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			APIBase:         getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature: getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatMaxTokens:   getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1024),
			Timeout:         getEnvAsInt("OPENAI_TIMEOUT", 15),
			Enabled:         getEnv("OPENAI_API_KEY", "") != "",
		},
		Twilio: TwilioConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
			Enabled: getEnv("TWILIO_ACCOUNT_SID", "") != "" &&
				getEnv("TWILIO_AUTH_TOKEN", "") != "" &&
				getEnv("TWILIO_FROM_NUMBER", "") != "",
		},
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
			Enabled:            getEnv("DATABASE_URL", getEnv("PG_DSN", "")) != "",
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}
