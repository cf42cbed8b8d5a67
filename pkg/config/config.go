// Package config loads the classdesk configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the classdesk configuration file (config.yaml).
type Config struct {
	// Server locates the administration backend
	Server ServerConfig `yaml:"server"`

	// UI sets the TUI defaults
	UI UIConfig `yaml:"ui"`

	// Export configures --robot-tree and --export-md
	Export ExportConfig `yaml:"export"`

	// Log configures where log output goes in TUI mode
	Log LogConfig `yaml:"log"`
}

// ServerConfig locates the backend API.
type ServerConfig struct {
	// URL is the scheme and host of the backend (e.g. http://localhost:8080)
	URL string `yaml:"url"`

	// APIPrefix is prepended to every endpoint path (default: /api)
	APIPrefix string `yaml:"api_prefix"`

	// Token is sent as a bearer token when set
	Token string `yaml:"token,omitempty"`

	// Timeout bounds a single request (default: 10s)
	Timeout time.Duration `yaml:"timeout"`
}

// UIConfig sets TUI defaults.
type UIConfig struct {
	// DefaultView is "tree" or "list" (default: tree)
	DefaultView string `yaml:"default_view"`

	// ExpandOnStart expands every class after the first class load
	ExpandOnStart bool `yaml:"expand_on_start"`
}

// ExportConfig tunes snapshot collection.
type ExportConfig struct {
	// Concurrency limits parallel section fetches (default: 4)
	Concurrency int `yaml:"concurrency"`
}

// LogConfig routes log output.
type LogConfig struct {
	// File receives log output in TUI mode; empty discards it
	File string `yaml:"file,omitempty"`
}

// Environment variables consulted by Load.
const (
	EnvConfig    = "CLASSDESK_CONFIG"
	EnvServerURL = "CLASSDESK_SERVER_URL"
	EnvToken     = "CLASSDESK_TOKEN"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			URL:       "http://localhost:8080",
			APIPrefix: "/api",
			Timeout:   10 * time.Second,
		},
		UI: UIConfig{
			DefaultView: "tree",
		},
		Export: ExportConfig{
			Concurrency: 4,
		},
	}
}

// Load reads the configuration. An explicit path must exist; otherwise the
// first file found by SearchPaths is used, and defaults apply when there is
// none. Environment overrides are applied before validation. The returned
// path is empty when no file was read.
func Load(explicit string) (Config, string, error) {
	cfg := DefaultConfig()

	path, err := Find(explicit)
	if err != nil {
		return cfg, "", err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, path, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, path, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, path, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

// ApplyEnv overrides the server URL and token from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvServerURL)); v != "" {
		c.Server.URL = v
	}
	if v := getenv(EnvToken); v != "" {
		c.Server.Token = v
	}
}

// applyDefaults fills zero values a partial file leaves behind.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Server.URL == "" {
		c.Server.URL = def.Server.URL
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = def.Server.Timeout
	}
	if c.UI.DefaultView == "" {
		c.UI.DefaultView = def.UI.DefaultView
	}
	if c.Export.Concurrency == 0 {
		c.Export.Concurrency = def.Export.Concurrency
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.url: scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server.url: host is required")
	}
	if c.Server.APIPrefix != "" && !strings.HasPrefix(c.Server.APIPrefix, "/") {
		return fmt.Errorf("server.api_prefix: must start with /, got %q", c.Server.APIPrefix)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout: must be positive")
	}
	switch c.UI.DefaultView {
	case "tree", "list":
	default:
		return fmt.Errorf("ui.default_view: want tree or list, got %q", c.UI.DefaultView)
	}
	if c.Export.Concurrency < 1 {
		return fmt.Errorf("export.concurrency: must be at least 1")
	}
	return nil
}

// BaseURL joins the server URL and API prefix.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.Server.URL, "/") + "/" + strings.Trim(c.Server.APIPrefix, "/")
}

// Save writes the configuration as YAML, creating parent directories. The
// file may hold a token, so it is readable by the owner only.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
