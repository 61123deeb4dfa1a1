// Package config loads runtime settings from the environment.
//
// Values come from, in order of precedence: real environment variables, an
// optional .env file, then the defaults below. Load validates the result so a
// bad setting stops the process at startup instead of on first use.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/studyhub/internal/auth"
)

// DefaultSecretKey is the development signing key. Load accepts it, but
// main warns loudly when it is in use.
const DefaultSecretKey = "dev-secret-key-change-me"

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Config is the resolved runtime configuration. Build it with Load.
type Config struct {
	Env        string
	Port       int
	DBPath     string
	UploadDir  string
	SecretKey  string
	SessionTTL time.Duration
	BcryptCost int
	LogLevel   slog.Level
	LogFormat  string // "text" or "json"
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("ENV", EnvDev)
	v.SetDefault("PORT", 5001)
	v.SetDefault("DB_PATH", "data/studyhub.db")
	v.SetDefault("UPLOAD_DIR", "data/uploads")
	v.SetDefault("SECRET_KEY", DefaultSecretKey)
	v.SetDefault("SESSION_TTL", 7*24*time.Hour)
	v.SetDefault("BCRYPT_COST", auth.DefaultCost)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_FORMAT", "text")
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. dotEnvFiles default to ".env"; files that
// don't exist are skipped, and they never override variables already set.
func Load(dotEnvFiles ...string) (*Config, error) {
	if len(dotEnvFiles) == 0 {
		dotEnvFiles = []string{".env"}
	}
	for _, path := range dotEnvFiles {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	return fromViper(newViper())
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:        strings.ToLower(strings.TrimSpace(v.GetString("ENV"))),
		Port:       v.GetInt("PORT"),
		DBPath:     v.GetString("DB_PATH"),
		UploadDir:  v.GetString("UPLOAD_DIR"),
		SecretKey:  v.GetString("SECRET_KEY"),
		SessionTTL: v.GetDuration("SESSION_TTL"),
		BcryptCost: v.GetInt("BCRYPT_COST"),
		LogFormat:  strings.ToLower(v.GetString("LOG_FORMAT")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be in [1, 65535], got %d", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if c.UploadDir == "" {
		errs = append(errs, errors.New("UPLOAD_DIR must not be empty"))
	}
	if len(c.SecretKey) < auth.MinSecretLength {
		errs = append(errs, fmt.Errorf("SECRET_KEY must be at least %d characters", auth.MinSecretLength))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be in [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// IsProduction reports whether ENV is prod.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProd
}

// UsesDefaultSecret reports whether sessions are signed with the public
// development key.
func (c *Config) UsesDefaultSecret() bool {
	return c.SecretKey == DefaultSecretKey
}

// SecureCookies is true in production, where the app is served over HTTPS.
func (c *Config) SecureCookies() bool {
	return c.IsProduction()
}
