package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/maeknit/dashboard/internal/access"
	"github.com/maeknit/dashboard/internal/calc"
)

const (
	defaultDBDriver   = "sqlite"
	defaultDBURL      = "./dev.db"
	defaultPort       = "8080"
	defaultAccessFile = "./access.toml"
	defaultSessionTTL = 24 * time.Hour
	defaultLogLevel   = "info"
	defaultEnv        = "dev"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Port               string
	DBDriver           string
	DatabaseURL        string
	SessionSecret      string
	SessionTTL         time.Duration
	AccessFile         string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string
	RedisAddr          string
	LogLevel           string
	Env                string
}

// IsDev reports whether the app runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	if err := loadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("could not read .env")
	}

	cfg := Config{
		Port:               envOr("PORT", defaultPort),
		DBDriver:           envOr("DB_DRIVER", defaultDBDriver),
		DatabaseURL:        envOr("DATABASE_URL", defaultDBURL),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		SessionTTL:         defaultSessionTTL,
		AccessFile:         envOr("ACCESS_FILE", defaultAccessFile),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectURL:   os.Getenv("OAUTH_REDIRECT_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		LogLevel:           envOr("LOG_LEVEL", defaultLogLevel),
		Env:                envOr("APP_ENV", defaultEnv),
	}

	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			log.Warn().Str("value", raw).Msg("invalid SESSION_TTL, using default")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if cfg.SessionSecret == "" {
		log.Warn().Msg("SESSION_SECRET is not set")
	}
	if !cfg.GoogleEnabled() {
		log.Warn().Msg("GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET is not set, Google sign-in disabled")
	} else if cfg.OAuthRedirectURL == "" {
		log.Warn().Msg("OAUTH_REDIRECT_URL is not set")
	}

	return cfg
}

// loadDotEnv loads path into the process environment without overwriting
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// AccessFile is the externally managed access and business table file.
type AccessFile struct {
	Version      int                `toml:"version"`
	Emails       []string           `toml:"emails"`
	Guest        access.Guest       `toml:"guest"`
	Capacity     calc.CapacityTable `toml:"capacity"`
	ServiceCosts calc.ServiceCosts  `toml:"service_costs"`
}

// Policy returns the allowlist part of the file.
func (f AccessFile) Policy() access.Policy {
	return access.Policy{Version: f.Version, Emails: f.Emails, Guest: f.Guest}
}

// Tables returns the business lookup tables, defaults included.
func (f AccessFile) Tables() calc.Tables {
	return calc.Tables{Capacity: f.Capacity, ServiceCosts: f.ServiceCosts}
}

// LoadAccessFile reads path. Keys missing from the file keep their defaults.
// A missing file yields an empty allowlist so that nobody can sign in.
func LoadAccessFile(path string) (AccessFile, error) {
	tables := calc.DefaultTables()
	f := AccessFile{Capacity: tables.Capacity, ServiceCosts: tables.ServiceCosts}

	md, err := toml.DecodeFile(path, &f)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("access file not found, allowlist is empty")
		return f, nil
	}
	if err != nil {
		return AccessFile{}, fmt.Errorf("decode access file %s: %w", path, err)
	}

	for _, key := range md.Undecoded() {
		log.Warn().Str("path", path).Str("key", key.String()).Msg("unknown key in access file")
	}
	if len(f.Emails) == 0 {
		log.Warn().Str("path", path).Msg("access file lists no emails")
	}
	if f.Guest.Email != "" && !access.NewGate(f.Policy()).Allows(f.Guest.Email) {
		log.Warn().Str("guest", f.Guest.Email).Msg("guest email is not on the allowlist, guest login will be denied")
	}

	return f, nil
}
