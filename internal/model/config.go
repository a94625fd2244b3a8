package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GitHubConfig selects the GitHub instance the source talks to.
type GitHubConfig struct {
	// Host is the GitHub hostname (github.com or a GHES host).
	Host string `mapstructure:"host" yaml:"host"`

	// APIURL overrides the REST root. Empty means derive it from Host.
	APIURL string `mapstructure:"api_url" yaml:"api_url"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// PageSize is per_page for notification listing, at most 50.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`
}

// NotifyConfig holds the polling and importance policy.
type NotifyConfig struct {
	PollIntervalSec  int      `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	ImportantReasons []string `mapstructure:"important_reasons" yaml:"important_reasons"`
}

// StateConfig locates the client's durable local state.
type StateConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig holds settings for the companion web service.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	DatabaseDriver string   `mapstructure:"database_driver" yaml:"database_driver"`
	DatabaseURL    string   `mapstructure:"database_url" yaml:"database_url"`
	WebhookSecret  string   `mapstructure:"webhook_secret" yaml:"webhook_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	RedisAddr      string   `mapstructure:"redis_addr" yaml:"redis_addr"`
	HeartbeatSec   int      `mapstructure:"heartbeat_sec" yaml:"heartbeat_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	GitHub GitHubConfig `mapstructure:"github" yaml:"github"`
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`
	State  StateConfig  `mapstructure:"state" yaml:"state"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

// PollInterval returns the configured poll cadence.
func (c *AppConfig) PollInterval() time.Duration {
	return time.Duration(c.Notify.PollIntervalSec) * time.Second
}

// HeartbeatInterval returns the server-push keepalive cadence.
func (c *AppConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.Server.HeartbeatSec) * time.Second
}

// configDir returns ~/.config/ghnotify, falling back to the working
// directory when the home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ghnotify")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/ghnotify/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultStatePath returns the default SQLite file for local state.
func DefaultStatePath() string {
	return filepath.Join(configDir(), "state.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		GitHub: GitHubConfig{
			Host:       "github.com",
			TimeoutSec: 30,
			PageSize:   50,
		},
		Notify: NotifyConfig{
			PollIntervalSec: 30,
			ImportantReasons: []string{
				ReasonMention, ReasonReviewRequested, ReasonAuthor,
			},
		},
		State: StateConfig{
			Path: DefaultStatePath(),
		},
		Server: ServerConfig{
			Addr:           ":8080",
			DatabaseDriver: "sqlite",
			DatabaseURL:    filepath.Join(configDir(), "server.db"),
			HeartbeatSec:   30,
		},
	}
}

// setDefaults registers every default with viper so env overrides and
// partial files resolve against them.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("github.host", d.GitHub.Host)
	v.SetDefault("github.api_url", d.GitHub.APIURL)
	v.SetDefault("github.timeout_sec", d.GitHub.TimeoutSec)
	v.SetDefault("github.page_size", d.GitHub.PageSize)
	v.SetDefault("notify.poll_interval_sec", d.Notify.PollIntervalSec)
	v.SetDefault("notify.important_reasons", d.Notify.ImportantReasons)
	v.SetDefault("state.path", d.State.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.database_driver", d.Server.DatabaseDriver)
	v.SetDefault("server.database_url", d.Server.DatabaseURL)
	v.SetDefault("server.webhook_secret", "")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.redis_addr", "")
	v.SetDefault("server.heartbeat_sec", d.Server.HeartbeatSec)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Values may be overridden with GHNOTIFY_* environment variables, e.g.
// GHNOTIFY_NOTIFY_POLL_INTERVAL_SEC. A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GHNOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Notify.PollIntervalSec <= 0 {
		cfg.Notify.PollIntervalSec = 30
	}
	if cfg.Server.HeartbeatSec <= 0 {
		cfg.Server.HeartbeatSec = 30
	}
	if cfg.GitHub.TimeoutSec <= 0 {
		cfg.GitHub.TimeoutSec = 30
	}
	if cfg.GitHub.PageSize <= 0 || cfg.GitHub.PageSize > 50 {
		cfg.GitHub.PageSize = 50
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("github", cfg.GitHub)
	v.Set("notify", cfg.Notify)
	v.Set("state", cfg.State)
	v.Set("server", cfg.Server)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
