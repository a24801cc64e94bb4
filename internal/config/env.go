package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAIBaseURL = "https://api.intelligence.io.solutions/api/v1"
	defaultRateLimit = "60-M"
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	apiKey := os.Getenv("IO_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("IO_API_KEY environment variable is required")
	}

	storeBackend := getEnv("STORE_BACKEND", BackendPostgres)
	if storeBackend != BackendPostgres && storeBackend != BackendMemory {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q", BackendPostgres, BackendMemory)
	}

	usageBackend := getEnv("USAGE_BACKEND", storeBackend)
	switch usageBackend {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("USAGE_BACKEND must be one of postgres, redis, memory")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" && (storeBackend == BackendPostgres || usageBackend == BackendPostgres) {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" && usageBackend == BackendRedis {
		return nil, fmt.Errorf("REDIS_URL environment variable is required for the redis usage backend")
	}

	location, err := time.LoadLocation(getEnv("QUOTA_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTA_TIMEZONE: %w", err)
	}

	aiTimeout, err := time.ParseDuration(getEnv("AI_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid AI_TIMEOUT: %w", err)
	}

	return &Config{
		Environment:    environment,
		Port:           getEnv("PORT", "8080"),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL:    databaseURL,
		StoreBackend:   storeBackend,
		UsageBackend:   usageBackend,
		RedisURL:       redisURL,
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "luchgpt:"),
		JWTSecret:      jwtSecret,
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimit:      getEnv("RATE_LIMIT", defaultRateLimit),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),

		AI: AIConfig{
			APIKey:     apiKey,
			BaseURL:    getEnv("AI_BASE_URL", defaultAIBaseURL),
			Timeout:    aiTimeout,
			MaxRetries: getEnvInt("AI_MAX_RETRIES", 3),
			RateLimit:  float64(getEnvInt("AI_RATE_LIMIT", 20)),
			RateBurst:  getEnvInt("AI_RATE_BURST", 5),
		},

		Limits: LimitsConfig{
			FreeDailyLimit:   int64(getEnvInt("FREE_DAILY_LIMIT", 5)),
			FreeChatLimit:    getEnvInt("FREE_CHAT_LIMIT", 5),
			PremiumChatLimit: getEnvInt("PREMIUM_CHAT_LIMIT", 60),
			GuestTotalLimit:  int64(getEnvInt("GUEST_TOTAL_LIMIT", 3)),
			MaxUserMessages:  getEnvInt("MAX_USER_MESSAGES", 200),
			QuotaLocation:    location,
		},

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},

		ModelsFile:       os.Getenv("MODELS_FILE"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

// unparsable values fall back to the default
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return fallback
}

func splitList(value string) []string {
	var out []string

	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
