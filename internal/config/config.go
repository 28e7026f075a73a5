package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/pkg/persistence"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name, e.g. STORYLINE_STORY_PATH.
// Variables are also looked up without it, so a plain BOT_TOKEN works.
const Prefix = "STORYLINE"

// Config holds the process settings read from the environment.
type Config struct {
	StoryPath    string `envconfig:"STORY_PATH" default:"story.json"`
	TotalSteps   int    `envconfig:"TOTAL_STEPS" default:"100"`
	MessagesPath string `envconfig:"MESSAGES_PATH"`

	BotToken string `envconfig:"BOT_TOKEN"`

	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string        `envconfig:"REDIS_PREFIX" default:"storyline:"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"0s"`
	LockTTL       time.Duration `envconfig:"LOCK_TTL" default:"30s"`

	// SessionKey is a base64 AES-256 key sealing Redis sessions; fallback keys only decrypt.
	SessionKey          string   `envconfig:"SESSION_KEY"`
	SessionFallbackKeys []string `envconfig:"SESSION_FALLBACK_KEYS"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// ErrMissingBotToken is returned by RequireBotToken.
var ErrMissingBotToken = errors.New("bot token is not set (STORYLINE_BOT_TOKEN or BOT_TOKEN)")

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg, err := Process()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Process reads the environment without validating, so callers can apply
// overrides first and call Validate once.
func Process() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot check by itself.
func (c *Config) Validate() error {
	var errs []error
	if c.TotalSteps <= 0 {
		errs = append(errs, fmt.Errorf("total steps must be positive, got %d", c.TotalSteps))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("session ttl must not be negative, got %s", c.SessionTTL))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("lock ttl must be positive, got %s", c.LockTTL))
	}
	if c.SessionKey != "" {
		if _, err := c.Encryption(); err != nil {
			errs = append(errs, err)
		}
	} else if len(c.SessionFallbackKeys) > 0 {
		errs = append(errs, errors.New("session fallback keys need a session key"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// RequireBotToken fails when no Telegram token is configured.
func (c *Config) RequireBotToken() error {
	if c.BotToken == "" {
		return ErrMissingBotToken
	}
	return nil
}

// UseRedis reports whether sessions should live in Redis.
func (c *Config) UseRedis() bool {
	return c.RedisAddr != ""
}

// Encryption decodes the session keys. It returns nil when no key is set.
func (c *Config) Encryption() (*persistence.EncryptionConfig, error) {
	if c.SessionKey == "" {
		return nil, nil
	}
	active, err := persistence.ParseKey(c.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("session key: %w", err)
	}
	enc := &persistence.EncryptionConfig{ActiveKey: active}
	for i, encoded := range c.SessionFallbackKeys {
		key, err := persistence.ParseKey(encoded)
		if err != nil {
			return nil, fmt.Errorf("session fallback key %d: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return enc, nil
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c *Config) Logger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(level, format), nil
}
