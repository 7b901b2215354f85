// Package config loads process configuration from an optional YAML file, a .env file and
// COACHDESK_* environment variables, in increasing order of precedence.
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
)

// EnvPrefix is prepended to every environment key: database.dsn reads COACHDESK_DATABASE_DSN.
const EnvPrefix = "COACHDESK"

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Email    EmailConfig    `mapstructure:"email"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Redis    RedisConfig    `mapstructure:"redis"`
	S3       S3Config       `mapstructure:"s3"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// AppConfig holds the public base URL used in email links.
type AppConfig struct {
	URL string `mapstructure:"url"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	SlowQueryMS  int    `mapstructure:"slow_query_ms"`
}

type HTTPConfig struct {
	SlowRequestMS      int `mapstructure:"slow_request_ms"`
	RateLimitPerSecond int `mapstructure:"rate_limit_per_second"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	CSRFKey       string `mapstructure:"csrf_key"`
	SecureCookies bool   `mapstructure:"secure_cookies"`
}

type EmailConfig struct {
	ResendKey string `mapstructure:"resend_key"`
	From      string `mapstructure:"from"`
	ReplyTo   string `mapstructure:"reply_to"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type S3Config struct {
	Bucket     string        `mapstructure:"bucket"`
	Region     string        `mapstructure:"region"`
	Endpoint   string        `mapstructure:"endpoint"`
	AccessKey  string        `mapstructure:"access_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"server.addr":                ":8080",
	"app.url":                    "http://localhost:8080",
	"database.driver":            "sqlite",
	"database.dsn":               "coachdesk.db",
	"database.max_open_conns":    10,
	"database.slow_query_ms":     50,
	"http.slow_request_ms":       200,
	"http.rate_limit_per_second": 20,
	"auth.jwt_secret":            "",
	"auth.csrf_key":              "",
	"auth.secure_cookies":        true,
	"email.resend_key":           "",
	"email.from":                 "Coachdesk <noreply@coachdesk.app>",
	"email.reply_to":             "",
	"nats.url":                   "",
	"redis.addr":                 "",
	"redis.password":             "",
	"redis.db":                   0,
	"redis.ttl":                  "10m",
	"s3.bucket":                  "",
	"s3.region":                  "us-east-1",
	"s3.endpoint":                "",
	"s3.access_key":              "",
	"s3.secret_key":              "",
	"s3.presign_ttl":             "15m",
	"log.level":                  "info",
	"log.format":                 "json",
}

// Load reads configuration. path may name a YAML file; an empty path or a missing file
// falls back to .env, environment and defaults.
// PRE: none
// POST: every key has a value; Validate() has passed
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			slog.Info("config_event", "event", "file_missing", "path", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("database.driver must be sqlite or pgx, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.S3.Bucket != "" && c.S3.Region == "" {
		return errors.New("s3.region is required when s3.bucket is set")
	}
	return nil
}

// SlowQuery returns the slow query threshold.
func (c DatabaseConfig) SlowQuery() time.Duration {
	return time.Duration(c.SlowQueryMS) * time.Millisecond
}

// SlowRequest returns the slow request threshold.
func (c HTTPConfig) SlowRequest() time.Duration {
	return time.Duration(c.SlowRequestMS) * time.Millisecond
}

// SlogLevel maps log.level onto a slog level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
