// Package config loads runtime settings from environment variables.
//
// Values come from the process environment. cmd/server loads an optional
// .env file first (godotenv), and CLI flags override whatever Load returns.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	StoreMongo  = "mongo"
	StoreMemory = "memory"

	// minSecretLength guards the cookie signing key.
	minSecretLength = 32
)

type Config struct {
	Port        int
	Environment string
	LogLevel    slog.Level

	Store   StoreConfig
	Session SessionConfig

	DiagLogPath        string
	LoginRatePerMinute int
	BcryptCost         int
}

type StoreConfig struct {
	Driver      string
	MongoURI    string
	Database    string
	MaxPoolSize int
	Timeout     time.Duration
}

type SessionConfig struct {
	DBPath string
	Secret []byte
	MaxAge time.Duration

	// GeneratedSecret is true when no SESSION_SECRET was provided and a
	// random one was created. Sessions then do not survive a restart.
	GeneratedSecret bool
}

// Production reports whether cookies must be marked Secure.
func (c Config) Production() bool {
	return c.Environment == EnvProduction
}

// Load reads the environment. A variable that is set but does not parse is
// an error, not a silent fallback to the default.
func Load() (Config, error) {
	env := &envReader{}
	cfg := Config{
		Port:        env.getInt("PORT", 3000),
		Environment: strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		LogLevel:    parseLevel(getEnv("LOG_LEVEL", "info")),
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
			MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:    getEnv("MONGO_DB", "agenda"),
			MaxPoolSize: env.getInt("MONGO_MAX_POOL", 20),
			Timeout:     env.getDuration("MONGO_TIMEOUT", 10*time.Second),
		},
		Session: SessionConfig{
			DBPath: getEnv("SESSION_DB_PATH", "data/sessions.db"),
			MaxAge: env.getDuration("SESSION_MAX_AGE", 24*time.Hour),
		},
		DiagLogPath:        getEnv("DIAG_LOG_PATH", "logs/erros.log"),
		LoginRatePerMinute: env.getInt("LOGIN_RATE_PER_MINUTE", 10),
		BcryptCost:         env.getInt("BCRYPT_COST", 12),
	}

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}

	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.Session.Secret = []byte(secret)
	} else {
		cfg.Session.Secret = []byte(hex.EncodeToString(securecookie.GenerateRandomKey(minSecretLength)))
		cfg.Session.GeneratedSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	switch c.Store.Driver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q (want %q or %q)", c.Store.Driver, StoreMongo, StoreMemory)
	}
	if c.Production() && c.Session.GeneratedSecret {
		return fmt.Errorf("config: SESSION_SECRET is required in production")
	}
	if len(c.Session.Secret) < minSecretLength {
		return fmt.Errorf("config: SESSION_SECRET must be at least %d characters", minSecretLength)
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("config: SESSION_MAX_AGE must be positive")
	}
	if c.Store.MaxPoolSize < 0 {
		return fmt.Errorf("config: MONGO_MAX_POOL must not be negative")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("config: MONGO_TIMEOUT must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("config: BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envReader parses typed variables and collects what fails to parse.
type envReader struct {
	errs []error
}

func (e *envReader) getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not an integer", key, value))
		return fallback
	}
	return parsed
}

func (e *envReader) getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not a duration", key, value))
		return fallback
	}
	return parsed
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(name string) slog.Level {
	return parseLevel(name)
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
