package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL     = "http://localhost:8000/api"
	DefaultTimeoutSec = 10
	DefaultRefreshSec = 30
	DefaultSessionDB  = "session.db"
	DefaultLogFile    = "taskboard.log"

	// EnvAPIURL and EnvLogLevel override the file values. Both may also come
	// from a .env file in the working directory.
	EnvAPIURL   = "TASKBOARD_API_URL"
	EnvLogLevel = "LOG_LEVEL"
)

// Config is the root configuration for a taskboard client.
type Config struct {
	Version     int    `yaml:"version"`
	APIURL      string `yaml:"api_url"`
	TimeoutSec  int    `yaml:"timeout_sec"`           // Per-request timeout (0 = default 10)
	LogLevel    string `yaml:"log_level,omitempty"`   // DEBUG, INFO, WARN or ERROR
	LogFile     string `yaml:"log_file,omitempty"`    // Dashboard log; relative to the config dir
	SessionDB   string `yaml:"session_db,omitempty"`  // SQLite session file; relative to the config dir
	DefaultView string `yaml:"default_view,omitempty"` // list or kanban
	RefreshSec  int    `yaml:"refresh_sec"`           // Dashboard background refetch (0 = off)

	// dir is where relative paths resolve. Not serialized.
	dir string
}

// Dir returns the taskboard config directory:
// $XDG_CONFIG_HOME/taskboard, falling back to ~/.config/taskboard.
func Dir() (string, error) {
	if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
		return filepath.Join(x, "taskboard"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "taskboard"), nil
}

// DefaultPath returns the config file path inside Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads and parses the config file at the given path. Keys missing from
// the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.dir = filepath.Dir(path)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve loads the config at path (DefaultPath when empty), falling back to
// defaults when the file does not exist, then applies the environment
// overlay.
func Resolve(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = DefaultConfig()
		cfg.dir = filepath.Dir(path)
	} else if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(".env"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv loads envFile (a missing file is fine) into the process
// environment without overriding variables already set, then applies
// TASKBOARD_API_URL and LOG_LEVEL.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return c.validate()
}

// Save writes the config to the given path, creating its directory.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns a starter config pointing at a local server.
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		APIURL:      DefaultAPIURL,
		TimeoutSec:  DefaultTimeoutSec,
		LogLevel:    "INFO",
		LogFile:     DefaultLogFile,
		SessionDB:   DefaultSessionDB,
		DefaultView: "list",
		RefreshSec:  DefaultRefreshSec,
	}
}

// Timeout returns the effective per-request timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSec > 0 {
		return time.Duration(c.TimeoutSec) * time.Second
	}
	return DefaultTimeoutSec * time.Second
}

// Refresh returns the dashboard refetch interval; zero disables it.
func (c *Config) Refresh() time.Duration {
	return time.Duration(c.RefreshSec) * time.Second
}

// SessionPath returns the session database path.
func (c *Config) SessionPath() string { return c.resolve(c.SessionDB) }

// LogPath returns the dashboard log path, or "" when file logging is off.
func (c *Config) LogPath() string {
	if c.LogFile == "" {
		return ""
	}
	return c.resolve(c.LogFile)
}

// SetDir changes where relative paths resolve.
func (c *Config) SetDir(dir string) { c.dir = dir }

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url must be an http(s) URL, got %q", c.APIURL)
	}
	if c.TimeoutSec < 0 {
		return fmt.Errorf("timeout_sec must not be negative, got %d", c.TimeoutSec)
	}
	if c.RefreshSec < 0 {
		return fmt.Errorf("refresh_sec must not be negative, got %d", c.RefreshSec)
	}
	switch c.DefaultView {
	case "", "list", "kanban":
	default:
		return fmt.Errorf("default_view must be 'list' or 'kanban', got %q", c.DefaultView)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return fmt.Errorf("log_level must be DEBUG, INFO, WARN or ERROR, got %q", c.LogLevel)
	}
	if c.SessionDB == "" {
		return fmt.Errorf("session_db is required")
	}
	return nil
}

// OverrideAPIURL replaces the service URL (from a command-line flag) and
// re-validates.
func (c *Config) OverrideAPIURL(u string) error {
	if u == "" {
		return nil
	}
	c.APIURL = u
	return c.validate()
}
