package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Dispatch controls fan-out concurrency and per-call deadlines.
type Dispatch struct {
	Workers                  int `toml:"workers"`
	ChannelTimeoutSeconds    int `toml:"channel_timeout_seconds"`
	InvocationTimeoutSeconds int `toml:"invocation_timeout_seconds"`
}

// Ledger controls idempotency key leases and retention.
type Ledger struct {
	LeaseSeconds  int `toml:"lease_seconds"`
	RetentionDays int `toml:"retention_days"`
}

// Channel configures one outbound gateway. An empty endpoint logs messages
// instead of sending them.
type Channel struct {
	Endpoint      string `toml:"endpoint"`
	Token         string `toml:"token"`
	RatePerMinute int    `toml:"rate_per_minute"`
}

// Transport groups the outbound gateways.
type Transport struct {
	Email    Channel `toml:"email"`
	SMS      Channel `toml:"sms"`
	WhatsApp Channel `toml:"whatsapp"`
}

// Links controls URLs embedded in messages.
type Links struct {
	BaseURL string `toml:"base_url"`
}

// Directory selects where users and regions are read from.
type Directory struct {
	Driver      string `toml:"driver"`
	DatabaseURL string `toml:"database_url"`
}

// Ingest configures the inbound event adapters used by the daemon.
type Ingest struct {
	HTTPBind     string `toml:"http_bind"`
	AMQPURL      string `toml:"amqp_url"`
	AMQPQueue    string `toml:"amqp_queue"`
	AMQPPrefetch int    `toml:"amqp_prefetch"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories (SQLite database lives in data_dir)
//   - Dispatch: worker pool size and timeouts
//   - Ledger: idempotency lease and retention
//   - Transport: email/sms/whatsapp gateways
//   - Links: public base URL for report links
//   - Directory: sqlite (local) or postgres user directory
//   - Ingest: daemon HTTP bind and optional AMQP consumer
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Dispatch  Dispatch  `toml:"dispatch"`
	Ledger    Ledger    `toml:"ledger"`
	Transport Transport `toml:"transport"`
	Links     Links     `toml:"links"`
	Directory Directory `toml:"directory"`
	Ingest    Ingest    `toml:"ingest"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("theftalert.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for engine operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file backing the ledger, inbox, and local directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "theftalert.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "theftalert.lock")
}

// ChannelTimeout is the deadline applied to each outbound send.
func (c *Config) ChannelTimeout() time.Duration {
	return time.Duration(c.Dispatch.ChannelTimeoutSeconds) * time.Second
}

// InvocationTimeout bounds one OnReportCreated call. Zero means unbounded.
func (c *Config) InvocationTimeout() time.Duration {
	return time.Duration(c.Dispatch.InvocationTimeoutSeconds) * time.Second
}

// LeaseDuration is how long a claimed idempotency key stays exclusive.
func (c *Config) LeaseDuration() time.Duration {
	return time.Duration(c.Ledger.LeaseSeconds) * time.Second
}

// Retention is how long completed idempotency keys are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Ledger.RetentionDays) * 24 * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
