// ABOUTME: Configuration loading and parsing for the sentinel CLI tools
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file omits a value.
const (
	DefaultPollInterval   = 15 * time.Second
	DefaultSearchDebounce = 300 * time.Millisecond
	DefaultLogWindow      = 50
	DefaultToastCap       = 5
	DefaultRequestTimeout = 10 * time.Second
)

// Config represents the complete sentinel client configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Poll    PollConfig    `yaml:"poll"`
	Search  SearchConfig  `yaml:"search"`
	Store   StoreConfig   `yaml:"store"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds remote service addresses
type ServerConfig struct {
	// BaseURL is the HTTP API root, e.g. "http://localhost:8000/api"
	BaseURL string `yaml:"base_url"`
	// WSURL is the websocket root, e.g. "ws://localhost:8000".
	// If empty it is derived from BaseURL by swapping the scheme.
	WSURL string `yaml:"ws_url"`

	RequestTimeout    time.Duration `yaml:"-"`
	RequestTimeoutRaw string        `yaml:"request_timeout"`
}

// PollConfig holds the fan-out refresh cadence
type PollConfig struct {
	Interval    time.Duration `yaml:"-"`
	IntervalRaw string        `yaml:"interval"`
}

// SearchConfig holds the admin user-search debounce window
type SearchConfig struct {
	Debounce    time.Duration `yaml:"-"`
	DebounceRaw string        `yaml:"debounce"`
}

// StoreConfig holds reconciliation store bounds
type StoreConfig struct {
	// LogWindow caps the behavior-log feed; older entries are evicted.
	LogWindow int `yaml:"log_window"`
	// ToastCap caps the push-notification toast queue (FIFO eviction).
	ToastCap int `yaml:"toast_cap"`
}

// CacheConfig holds the last-known-good snapshot cache location
type CacheConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds the optional Prometheus listener configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads the config at path, or returns defaults pointing at
// baseURL when the file does not exist.
func LoadOrDefault(path, baseURL string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := &Config{Server: ServerConfig{BaseURL: baseURL}}
		cfg.applyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// DefaultPath returns the path to the client config file.
// Priority: SENTINEL_CONFIG env var > XDG_CONFIG_HOME/sentinel/cli.yaml > ~/.config/sentinel/cli.yaml
func DefaultPath() string {
	if envPath := os.Getenv("SENTINEL_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "cli.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sentinel", "cli.yaml")
}

func (c *Config) applyDefaults() {
	if c.Poll.Interval == 0 {
		c.Poll.Interval = DefaultPollInterval
	}
	if c.Search.Debounce == 0 {
		c.Search.Debounce = DefaultSearchDebounce
	}
	if c.Store.LogWindow == 0 {
		c.Store.LogWindow = DefaultLogWindow
	}
	if c.Store.ToastCap == 0 {
		c.Store.ToastCap = DefaultToastCap
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = DefaultRequestTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if c.Store.LogWindow < 1 {
		return fmt.Errorf("store.log_window must be positive")
	}
	if c.Store.ToastCap < 1 {
		return fmt.Errorf("store.toast_cap must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Poll.IntervalRaw != "" {
		cfg.Poll.Interval, err = time.ParseDuration(cfg.Poll.IntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing poll.interval %q: %w", cfg.Poll.IntervalRaw, err)
		}
	}

	if cfg.Search.DebounceRaw != "" {
		cfg.Search.Debounce, err = time.ParseDuration(cfg.Search.DebounceRaw)
		if err != nil {
			return fmt.Errorf("parsing search.debounce %q: %w", cfg.Search.DebounceRaw, err)
		}
	}

	if cfg.Server.RequestTimeoutRaw != "" {
		cfg.Server.RequestTimeout, err = time.ParseDuration(cfg.Server.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing server.request_timeout %q: %w", cfg.Server.RequestTimeoutRaw, err)
		}
	}

	return nil
}
