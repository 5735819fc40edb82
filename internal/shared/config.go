package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the config file.
const (
	EnvBaseURL      = "COURSECHAT_BASE_URL"
	EnvToken        = "COURSECHAT_TOKEN"
	EnvDataDir      = "COURSECHAT_DATA_DIR"
	EnvLogLevel     = "COURSECHAT_LOG_LEVEL"
	EnvPollInterval = "COURSECHAT_POLL_INTERVAL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend   BackendConfig   `toml:"backend"`
	Session   SessionConfig   `toml:"session"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	DevServer DevServerConfig `toml:"devserver"`
}

// BackendConfig contains connection settings for the assistant backend.
type BackendConfig struct {
	BaseURL   string        `toml:"base_url"`
	Token     string        `toml:"token"`
	Timeout   time.Duration `toml:"timeout"`
	RateLimit float64       `toml:"rate_limit"`
}

// SessionConfig contains chat session settings.
type SessionConfig struct {
	PollInterval time.Duration `toml:"poll_interval"`
}

// StorageConfig contains local persistence settings.
type StorageConfig struct {
	DataDir     string `toml:"data_dir"`
	CoursesFile string `toml:"courses_file"`
	Database    string `toml:"database"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DevServerConfig contains settings for the local development backend.
type DevServerConfig struct {
	Host  string        `toml:"host"`
	Port  int           `toml:"port"`
	Delay time.Duration `toml:"delay"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads a .env file into the process environment when one exists.
//
// A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	existing := []string{}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values with COURSECHAT_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvBaseURL); ok && v != "" {
		c.Backend.BaseURL = v
	}
	if v, ok := os.LookupEnv(EnvToken); ok {
		c.Backend.Token = v
	}
	if v, ok := os.LookupEnv(EnvDataDir); ok && v != "" {
		c.Storage.DataDir = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvPollInterval); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			secs, convErr := strconv.Atoi(v)
			if convErr != nil {
				return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvPollInterval, v)
			}
			d = time.Duration(secs) * time.Second
		}
		c.Session.PollInterval = d
	}
	return nil
}

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: backend.base_url %q is not an absolute URL", ErrInvalidConfig, c.Backend.BaseURL)
	}
	if c.Session.PollInterval <= 0 {
		return fmt.Errorf("%w: session.poll_interval must be positive", ErrInvalidConfig)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("%w: backend.timeout must not be negative", ErrInvalidConfig)
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("%w: backend.rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.Storage.DataDir == "" || c.Storage.CoursesFile == "" || c.Storage.Database == "" {
		return fmt.Errorf("%w: storage paths must be set", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// DataDir returns the expanded data directory.
func (c *Config) DataDir() string {
	return ExpandPath(c.Storage.DataDir)
}

// CoursesPath returns the path of the persisted course document.
func (c *Config) CoursesPath() string {
	return c.resolve(c.Storage.CoursesFile)
}

// DatabasePath returns the path of the SQLite database.
func (c *Config) DatabasePath() string {
	if c.Storage.Database == ":memory:" {
		return c.Storage.Database
	}
	return c.resolve(c.Storage.Database)
}

// LogPath returns the log file used by the TUI.
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return ExpandPath(c.Logging.File)
	}
	return filepath.Join(c.DataDir(), "coursechat.log")
}

func (c *Config) resolve(name string) string {
	name = ExpandPath(name)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir(), name)
}
