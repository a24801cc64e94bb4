package config

import "time"

// storage backends selectable at startup
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	Environment string
	Port        string
	BaseURL     string

	DatabaseURL    string
	StoreBackend   string
	UsageBackend   string
	RedisURL       string
	RedisKeyPrefix string

	JWTSecret      string
	SessionSecret  string
	AllowedOrigins []string
	RateLimit      string

	GoogleClientID     string
	GoogleClientSecret string

	AI     AIConfig
	Limits LimitsConfig
	SMTP   SMTPConfig

	ModelsFile       string
	TelegramBotToken string
}

// settings for the outbound OpenAI-compatible API
type AIConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  float64
	RateBurst  int
}

// quota and capacity ceilings
type LimitsConfig struct {
	FreeDailyLimit   int64
	FreeChatLimit    int
	PremiumChatLimit int
	GuestTotalLimit  int64
	MaxUserMessages  int
	QuotaLocation    *time.Location
}

// outgoing mail settings; an empty host disables SMTP
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
