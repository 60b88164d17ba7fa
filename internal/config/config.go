package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	defaultSessionSecret = "regaloya-dev-session-secret"
)

var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required")
	ErrMissingSessionSecret = errors.New("SESSION_SECRET is required in production")
)

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Logger   *LoggerConfig   `mapstructure:"logger"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Session  *SessionConfig  `mapstructure:"session"`
	Upload   *UploadConfig   `mapstructure:"upload"`
}

// APIConfig holds HTTP settings. Only TrustedProxies may set
// X-Forwarded-For; with none the client IP is the peer address.
type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	Port               string   `mapstructure:"port"`
	BaseURL            string   `mapstructure:"base_url"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
	TrustedProxies     []string `mapstructure:"trusted_proxies"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

type PostgresConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name"`
	Secret     string        `mapstructure:"secret"`
	TTL        time.Duration `mapstructure:"ttl"`
	Secure     bool          `mapstructure:"secure"`
}

type UploadConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	APIKey     string `mapstructure:"api_key"`
	Dir        string `mapstructure:"dir"`
	PublicPath string `mapstructure:"public_path"`
	MaxBytes   int64  `mapstructure:"max_bytes"`
}

// IsProduction reports whether the API runs with production settings.
func (c *APIConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Load reads the YAML file at path, overlays environment variables and
// validates the result. A missing file is not an error; defaults and the
// environment still apply.
func Load(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	return decode(v)
}

// Watch re-reads the file at path whenever it changes and hands the freshly
// decoded config to onChange. Invalid edits are reported through onErr and
// otherwise ignored.
func Watch(path string, onChange func(*AppConfig, fsnotify.Event), onErr func(error)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		conf, err := decode(v)
		if err != nil {
			onErr(fmt.Errorf("config.Watch -> %s -> %w", e.Name, err))
			return
		}
		onChange(conf, e)
	})
	v.WatchConfig()

	return nil
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Postgres.URL) == "" {
		return ErrMissingDatabaseURL
	}

	if c.Session.Secret == "" || c.Session.Secret == defaultSessionSecret {
		if c.API.IsProduction() {
			return ErrMissingSessionSecret
		}
		c.Session.Secret = defaultSessionSecret
	}

	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("api.environment", EnvDevelopment)
	v.SetDefault("api.port", "5000")
	v.SetDefault("api.base_url", "localhost:5000")
	v.SetDefault("api.allowed_cors_domains", []string{"http://localhost:5173"})
	v.SetDefault("api.rate_limit_per_minute", 30)
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("logger.level", "info")
	v.SetDefault("postgres.max_open_conns", 5)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)
	v.SetDefault("session.cookie_name", "regaloya_session")
	v.SetDefault("session.ttl", 7*24*time.Hour)
	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.public_path", "/uploads")
	v.SetDefault("upload.max_bytes", 5<<20)

	// The deployment platform exports these names, so they are bound
	// explicitly instead of through a key replacer.
	envs := map[string]string{
		"api.environment":          "APP_ENV",
		"api.port":                 "PORT",
		"api.base_url":             "BASE_URL",
		"api.allowed_cors_domains": "ALLOWED_CORS_DOMAINS",
		"api.trusted_proxies":      "TRUSTED_PROXIES",
		"gin.mode":                 "GIN_MODE",
		"logger.level":             "LOG_LEVEL",
		"postgres.url":             "DATABASE_URL",
		"session.secret":           "SESSION_SECRET",
		"session.secure":           "SESSION_SECURE",
		"upload.service_url":       "UPLOAD_URL",
		"upload.api_key":           "UPLOAD_API_KEY",
		"upload.dir":               "UPLOAD_DIR",
	}
	for key, env := range envs {
		_ = v.BindEnv(key, env)
	}

	return v
}

func decode(v *viper.Viper) (*AppConfig, error) {
	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}
