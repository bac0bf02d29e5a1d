package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port int

	DatabaseDriver string
	DatabasePath   string
	DatabaseDSN    string

	JWTSecret string
	TokenTTL  time.Duration

	RCONTimeout time.Duration

	StatusAPIURL          string
	StatusCacheTTL        time.Duration
	StatusRefreshSchedule string

	RecaptchaSecret string

	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURL  string
	DiscordGuildID      string
	DiscordBotToken     string

	RedeemRateLimit int
	DockerEnabled   bool
	CORSOrigins     []string
	OpenAPIPath     string
}

// ErrMissingJWTSecret is returned by Validate when tokens could be forged
// with a known key.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set to at least 32 characters")

const minJWTSecretLen = 32

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	return &Config{
		Port: getInt("API_PORT", 8080),

		DatabaseDriver: getString("DATABASE_DRIVER", "sqlite"),
		DatabasePath:   getString("DATABASE_PATH", "./data/ivshop.db"),
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  getDuration("TOKEN_TTL", 24*time.Hour),

		RCONTimeout: getDuration("RCON_TIMEOUT", 5*time.Second),

		StatusAPIURL:          getString("STATUS_API_URL", "https://api.mcsrvstat.us/2/"),
		StatusCacheTTL:        getDuration("STATUS_CACHE_TTL", time.Minute),
		StatusRefreshSchedule: getString("STATUS_REFRESH_SCHEDULE", "@every 5m"),

		RecaptchaSecret: os.Getenv("RECAPTCHA_SECRET"),

		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURL:  getString("DISCORD_REDIRECT_URL", "http://localhost:8080/api/v1/auth/callback"),
		DiscordGuildID:      os.Getenv("DISCORD_GUILD_ID"),
		DiscordBotToken:     os.Getenv("DISCORD_BOT_TOKEN"),

		RedeemRateLimit: getInt("REDEEM_RATE_LIMIT", 10),
		DockerEnabled:   getBool("DOCKER_ENABLED", false),
		CORSOrigins:     getList("CORS_ORIGINS", []string{"*"}),
		OpenAPIPath:     getString("OPENAPI_PATH", "api/openapi.yaml"),
	}, nil
}

// Validate checks the settings the API server cannot run without. CLI
// commands that do not issue tokens skip it.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < minJWTSecretLen {
		return ErrMissingJWTSecret
	}
	return nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
