package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration. It is loaded once at startup and
// treated as immutable afterward.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPPort string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Token     TokenConfig
	RateLimit RateLimitConfig
}

// TokenConfig controls token issuance and hashing.
type TokenConfig struct {
	// Pepper is the process-wide hashing secret, distinct from per-token
	// salts. Required, at least 16 bytes.
	Pepper string
	// TTL is how long a freshly issued token stays redeemable.
	TTL time.Duration
}

// RateLimitConfig controls the redemption sliding-window limiter.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Window        time.Duration
	MaxPerIP      int
	MaxPerAgent   int
	MaxPerAccount int
}

const minPepperBytes = 16

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "cashout"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPPort: getenv("HTTP_PORT", "8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "cashout"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		Token: TokenConfig{
			Pepper: strings.TrimSpace(getenv("TOKEN_PEPPER", "")),
			TTL:    time.Duration(getenvInt("TOKEN_TTL_SECONDS", 300)) * time.Second,
		},

		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", true),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "localhost:6379")),
			RedisPassword: strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),
			Window:        time.Duration(getenvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
			MaxPerIP:      getenvInt("RATE_LIMIT_MAX_PER_IP", 5),
			MaxPerAgent:   getenvInt("RATE_LIMIT_MAX_PER_AGENT", 30),
			MaxPerAccount: getenvInt("RATE_LIMIT_MAX_PER_ACCOUNT", 5),
		},
	}
}

// Validate rejects unusable configuration before any component starts.
func (c Config) Validate() error {
	if len(c.Token.Pepper) < minPepperBytes {
		return fmt.Errorf("TOKEN_PEPPER must be at least %d bytes", minPepperBytes)
	}
	if c.Token.TTL <= 0 {
		return errors.New("TOKEN_TTL_SECONDS must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RedisAddr == "" {
			return errors.New("RATE_LIMIT_REDIS_ADDR is required when rate limiting is enabled")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RATE_LIMIT_WINDOW_SECONDS must be positive")
		}
		if c.RateLimit.MaxPerIP <= 0 || c.RateLimit.MaxPerAgent <= 0 || c.RateLimit.MaxPerAccount <= 0 {
			return errors.New("rate limit maximums must be positive")
		}
	}
	return nil
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Invoke(func(cfg Config) error {
		return cfg.Validate()
	}),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
