package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateDirectory(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if err := ensurePositiveMap(map[string]int{
		"dispatch.workers":                 c.Dispatch.Workers,
		"dispatch.channel_timeout_seconds": c.Dispatch.ChannelTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Dispatch.Workers > maxWorkers {
		return fmt.Errorf("dispatch.workers must be at most %d", maxWorkers)
	}
	if c.Dispatch.InvocationTimeoutSeconds < 0 {
		return errors.New("dispatch.invocation_timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateLedger() error {
	if err := ensurePositiveMap(map[string]int{
		"ledger.lease_seconds":  c.Ledger.LeaseSeconds,
		"ledger.retention_days": c.Ledger.RetentionDays,
	}); err != nil {
		return err
	}
	if c.Ledger.LeaseSeconds <= c.Dispatch.ChannelTimeoutSeconds {
		return errors.New("ledger.lease_seconds must exceed dispatch.channel_timeout_seconds")
	}
	return nil
}

func (c *Config) validateTransport() error {
	channels := map[string]Channel{
		"transport.email":    c.Transport.Email,
		"transport.sms":      c.Transport.SMS,
		"transport.whatsapp": c.Transport.WhatsApp,
	}
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ch := channels[name]
		if ch.RatePerMinute < 0 {
			return fmt.Errorf("%s.rate_per_minute must be zero or positive", name)
		}
		if ch.Endpoint == "" {
			continue
		}
		u, err := url.Parse(ch.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s.endpoint must be an http(s) URL, got %q", name, ch.Endpoint)
		}
	}
	return nil
}

func (c *Config) validateDirectory() error {
	switch c.Directory.Driver {
	case DirectorySQLite:
		return nil
	case DirectoryPostgres:
		if c.Directory.DatabaseURL == "" {
			return errors.New("directory.database_url must be set when directory.driver is postgres (or set THEFTALERT_DATABASE_URL)")
		}
		return nil
	default:
		return fmt.Errorf("directory.driver: unsupported value %q", c.Directory.Driver)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
