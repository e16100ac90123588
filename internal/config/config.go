// Package config loads server settings from an optional .env file, an
// optional config.yaml and the process environment, in increasing order of
// precedence over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingJWTSecret = errors.New("config: JWT_SECRET is required")

type Config struct {
	Env    string `mapstructure:"env"`
	AppURL string `mapstructure:"app_url"` // public base URL, used for OAuth callbacks and emails
	Server Server `mapstructure:"server"`
	Log    Log    `mapstructure:"log"`
	DB     DB     `mapstructure:"database"`
	Auth   Auth   `mapstructure:"auth"`
	SMTP   SMTP   `mapstructure:"smtp"`
}

type Server struct {
	Port int `mapstructure:"port"`
	// AuthRateLimit is the number of /auth requests allowed per client IP
	// per minute.
	AuthRateLimit int  `mapstructure:"auth_rate_limit"`
	SecureCookies bool `mapstructure:"secure_cookies"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// SlogLevel parses Level, falling back to Info for unknown values.
func (l Log) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type DB struct {
	Path string `mapstructure:"path"`
}

type Auth struct {
	JWTSecret string      `mapstructure:"-"`
	GitHub    OAuthClient `mapstructure:"github"`
	Google    OAuthClient `mapstructure:"google"`
}

// OAuthClient is one identity provider registration. A provider without a
// client ID is not offered.
type OAuthClient struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"-"`
	CallbackURL  string `mapstructure:"callback_url"`
	// BaseURL points GitHub sign-in at a GitHub Enterprise Server. Empty
	// means github.com. Ignored for Google.
	BaseURL string `mapstructure:"base_url"`
}

func (c OAuthClient) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"-"`
	From     string `mapstructure:"from"`
}

// Enabled reports whether welcome emails can be delivered.
func (s SMTP) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// Load reads dir/.env and dir/config.yaml (both optional) and the
// environment. Nested keys map to env names with "_", so server.port is
// SERVER_PORT. Secrets are read from the environment only.
func Load(dir string) (*Config, error) {
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("env", "local")
	v.SetDefault("app_url", "http://localhost:8080")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.auth_rate_limit", 20)
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.path", "data/learnpath.db")
	v.SetDefault("auth.github.client_id", "")
	v.SetDefault("auth.github.callback_url", "")
	v.SetDefault("auth.github.base_url", "")
	v.SetDefault("auth.google.client_id", "")
	v.SetDefault("auth.google.callback_url", "")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.from", "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("server.port", "PORT", "SERVER_PORT")
	_ = v.BindEnv("database.path", "DB_PATH", "DATABASE_PATH")
	_ = v.BindEnv("auth.github.client_id", "GITHUB_CLIENT_ID")
	_ = v.BindEnv("auth.google.client_id", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("github_client_secret", "GITHUB_CLIENT_SECRET")
	_ = v.BindEnv("google_client_secret", "GOOGLE_CLIENT_SECRET")
	_ = v.BindEnv("smtp_password", "SMTP_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	cfg.Auth.JWTSecret = v.GetString("jwt_secret")
	if cfg.Auth.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	cfg.Auth.GitHub.ClientSecret = v.GetString("github_client_secret")
	cfg.Auth.Google.ClientSecret = v.GetString("google_client_secret")
	cfg.SMTP.Password = v.GetString("smtp_password")

	appURL := strings.TrimRight(cfg.AppURL, "/")
	if cfg.Auth.GitHub.CallbackURL == "" {
		cfg.Auth.GitHub.CallbackURL = appURL + "/auth/github/callback"
	}
	if cfg.Auth.Google.CallbackURL == "" {
		cfg.Auth.Google.CallbackURL = appURL + "/auth/google/callback"
	}

	return &cfg, nil
}
