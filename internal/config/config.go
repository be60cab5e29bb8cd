// Package config loads starchd configuration from built-in defaults, an
// optional config file, and STARCH_-prefixed environment variables, in
// increasing priority.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

var (
	// ErrInvalidStore indicates an unknown session store backend.
	ErrInvalidStore = errors.New("invalid session store backend")

	// ErrMissingPostgresDSN indicates the postgres backend was selected
	// without a connection string.
	ErrMissingPostgresDSN = errors.New("missing postgres DSN")

	// ErrMissingCookieName indicates the session cookie name is empty.
	ErrMissingCookieName = errors.New("missing cookie name")

	// ErrInvalidSameSite indicates an unknown cookie same-site mode.
	ErrInvalidSameSite = errors.New("invalid cookie same-site mode")
)

// Config holds the full starchd runtime configuration.
type Config struct {
	ListenAddr  string        `mapstructure:"listen_addr"`
	Store       string        `mapstructure:"store"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	NATSURL     string        `mapstructure:"nats_url"`

	CookieName     string        `mapstructure:"cookie_name"`
	CookiePath     string        `mapstructure:"cookie_path"`
	CookieDomain   string        `mapstructure:"cookie_domain"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
	CookieHTTPOnly bool          `mapstructure:"cookie_http_only"`
	CookieSameSite string        `mapstructure:"cookie_same_site"` // lax | strict | none
	CookieMaxAge   time.Duration `mapstructure:"cookie_max_age"`

	ValidateResponses bool `mapstructure:"validate_responses"`
}

// Load reads configuration: built-in defaults, then an optional config file
// (path may be empty), then STARCH_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("store", StoreMemory)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("session_ttl", time.Hour)
	v.SetDefault("nats_url", "")
	v.SetDefault("cookie_name", "session")
	v.SetDefault("cookie_path", "/")
	v.SetDefault("cookie_domain", "")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("cookie_http_only", true)
	v.SetDefault("cookie_same_site", "lax")
	v.SetDefault("cookie_max_age", time.Duration(0))
	v.SetDefault("validate_responses", false)

	v.SetEnvPrefix("STARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: %w", ErrMissingPostgresDSN)
		}
	default:
		return fmt.Errorf("config: %w: %q", ErrInvalidStore, c.Store)
	}
	if c.CookieName == "" {
		return fmt.Errorf("config: %w", ErrMissingCookieName)
	}
	if _, err := c.SameSite(); err != nil {
		return err
	}
	return nil
}

// SameSite maps the configured same-site mode to its net/http constant.
func (c *Config) SameSite() (http.SameSite, error) {
	switch strings.ToLower(c.CookieSameSite) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("config: %w: %q", ErrInvalidSameSite, c.CookieSameSite)
	}
}
