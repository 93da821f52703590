package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPHost string
	HTTPPort string

	MySQLDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret    string
	JWTAlgorithm string

	JWTAccessTokenTTL  time.Duration
	JWTRefreshTokenTTL time.Duration
	EmailTokenTTL      time.Duration
	ResetTokenTTL      time.Duration

	IdentityCacheTTL time.Duration

	AppBaseURL string

	LogLevel  string
	LogFormat string

	PostmarkServerToken  string
	PostmarkAccountToken string
	MailFrom             string
	MailFromName         string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		HTTPHost:             getEnv("HTTP_HOST", ""),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		MySQLDSN:             mysqlDSN,
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getIntEnv("REDIS_DB", 0),
		JWTSecret:            jwtSecret,
		JWTAlgorithm:         getEnv("JWT_ALGORITHM", "HS256"),
		JWTAccessTokenTTL:    getDurationEnv("JWT_ACCESS_TOKEN_TTL", 15*time.Minute),
		JWTRefreshTokenTTL:   getDurationEnv("JWT_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		EmailTokenTTL:        getDurationEnv("EMAIL_TOKEN_TTL", 24*time.Hour),
		ResetTokenTTL:        getDurationEnv("RESET_TOKEN_TTL", 1*time.Hour),
		IdentityCacheTTL:     getDurationEnv("IDENTITY_CACHE_TTL", 300*time.Second),
		AppBaseURL:           getEnv("APP_BASE_URL", "http://localhost:8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
		PostmarkServerToken:  getEnv("POSTMARK_SERVER_TOKEN", ""),
		PostmarkAccountToken: getEnv("POSTMARK_ACCOUNT_TOKEN", ""),
		MailFrom:             getEnv("MAIL_FROM", "no-reply@localhost"),
		MailFromName:         getEnv("MAIL_FROM_NAME", "Identity Service"),
	}, nil
}

func (c *Config) DSN() string {
	return c.MySQLDSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv accepts Go duration syntax ("15m", "300s") and falls back to
// interpreting a bare integer as minutes.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
