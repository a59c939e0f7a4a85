// Package config loads engsite.yaml, .env and ENGSITE_* environment
// variables into one Config shared by every binary.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go-engsite/internal/auth"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Fallback backend credentials used when neither the file nor the
// environment names one. They point at a local development database with
// the public anon role.
const (
	DefaultBackendURL    = "postgres://anon@localhost:5432/engsite?sslmode=disable"
	DefaultBackendAPIKey = "engsite-public-anon-key"
)

const envPrefix = "ENGSITE"

type Config struct {
	DataDir string        `mapstructure:"data_dir"`
	Log     LogConfig     `mapstructure:"log"`
	Site    SiteConfig    `mapstructure:"site"`
	Server  ServerConfig  `mapstructure:"server"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Backend BackendConfig `mapstructure:"backend"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Payment PaymentConfig `mapstructure:"payment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SiteConfig struct {
	Title   string `mapstructure:"title"`
	BaseURL string `mapstructure:"base_url"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	StaticDir       string        `mapstructure:"static_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AdminConfig struct {
	Addr         string        `mapstructure:"addr"`
	StaticDir    string        `mapstructure:"static_dir"`
	Users        []auth.User   `mapstructure:"users"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

type BackendConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	APIKey   string        `mapstructure:"api_key"`
	Role     string        `mapstructure:"role"`
	MaxConns int32         `mapstructure:"max_conns"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Watch    bool          `mapstructure:"watch"`
}

type PaymentConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Endpoint      string        `mapstructure:"endpoint"`
	APIKey        string        `mapstructure:"api_key"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Options locate the config sources. Empty fields use the defaults:
// ./engsite.yaml (optional) and ./.env (optional).
type Options struct {
	ConfigFile string
	EnvFile    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("site.title", "Engineering Services")
	v.SetDefault("site.base_url", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.static_dir", "web/static")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("admin.addr", ":8081")
	v.SetDefault("admin.static_dir", "web/admin/static")
	v.SetDefault("admin.session_ttl", auth.DefaultTTL.String())
	v.SetDefault("admin.secure_cookie", false)
	v.SetDefault("backend.enabled", true)
	v.SetDefault("backend.url", DefaultBackendURL)
	v.SetDefault("backend.api_key", DefaultBackendAPIKey)
	v.SetDefault("backend.role", "anon")
	v.SetDefault("backend.max_conns", 4)
	v.SetDefault("backend.timeout", "5s")
	v.SetDefault("sync.interval", "10s")
	v.SetDefault("sync.watch", true)
	v.SetDefault("payment.enabled", false)
	v.SetDefault("payment.endpoint", "")
	v.SetDefault("payment.api_key", "")
	v.SetDefault("payment.webhook_secret", "")
	v.SetDefault("payment.timeout", "30s")
}

// Load reads every source, later ones overriding earlier ones: defaults,
// config file, .env, process environment.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else if opts.EnvFile != "" {
		return nil, fmt.Errorf("env file %s: %w", opts.EnvFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("engsite")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.ConfigFile != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no binary can start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("config: data_dir must not be empty")
	}
	if c.Backend.Enabled && c.Backend.URL == "" {
		return errors.New("config: backend.url is required when the backend is enabled")
	}
	if c.Payment.Enabled && c.Payment.Endpoint == "" {
		return errors.New("config: payment.endpoint is required when payments are enabled")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: log.level %q: %w", s, err)
	}
	return lvl, nil
}

// NewLogger builds the structured logger described by c.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := parseLevel(c.Level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
