package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	ListenAddr  string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	AuthRateLimit int
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	TrustProxy bool

	JWTSecret    string
	TokenTTL     time.Duration
	CookieSecure bool

	RecommendWorkers int
	RecommendPoll    time.Duration
	RecommendTimeout time.Duration
	RecommendPython  string
	RecommendScript  string
	DefaultState     string
	DefaultMonths    int

	StrictTransitions bool

	LogLevel  string
	LogFormat string
}

const devSecret = "dev-secret-change-me"

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads .env when present, then the process environment. A missing
// DATABASE_URL is reported as a warning error alongside a usable Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	env := getenv("APP_ENV", "development")
	cfg := Config{
		Env:               env,
		ListenAddr:        getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		AuthRateLimit:     getenvInt("RATE_LIMIT_AUTH", 10),
		TrustProxy:        getenvBool("TRUST_PROXY", false),
		JWTSecret:         getenv("JWT_SECRET", ""),
		TokenTTL:          getenvDuration("TOKEN_TTL", 7*24*time.Hour),
		CookieSecure:      getenvBool("COOKIE_SECURE", env == "production"),
		RecommendWorkers:  getenvInt("RECOMMEND_WORKERS", 2),
		RecommendPoll:     getenvDuration("RECOMMEND_POLL", 500*time.Millisecond),
		RecommendTimeout:  getenvDuration("RECOMMEND_TIMEOUT", 10*time.Second),
		RecommendPython:   getenv("RECOMMEND_PYTHON", "python3"),
		RecommendScript:   getenv("RECOMMEND_SCRIPT", "ml/recommend_donors.py"),
		DefaultState:      getenv("DEFAULT_STATE", "Maharashtra"),
		DefaultMonths:     getenvInt("DEFAULT_MONTHS", 3),
		StrictTransitions: getenvBool("STRICT_TRANSITIONS", false),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "json"),
	}
	if cfg.JWTSecret == "" {
		if env == "production" {
			return cfg, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devSecret
	}
	if cfg.DatabaseURL == "" {
		// Not fatal for local runs; callers fall back to the in-memory store.
		return cfg, ErrNoDatabase
	}
	return cfg, nil
}

// ErrNoDatabase is returned with an otherwise valid Config.
var ErrNoDatabase = errors.New("DATABASE_URL not set")

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.Atoi(v); err == nil {
			return out
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.ParseBool(v); err == nil {
			return out
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if out, err := time.ParseDuration(v); err == nil {
			return out
		}
	}
	return def
}
