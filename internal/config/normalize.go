package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTransport()
	c.normalizeDirectory()
	c.normalizeIngest()
	c.normalizeLogging()
	c.Links.BaseURL = strings.TrimRight(strings.TrimSpace(c.Links.BaseURL), "/")
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTransport() {
	normalizeChannel(&c.Transport.Email, "THEFTALERT_EMAIL_TOKEN")
	normalizeChannel(&c.Transport.SMS, "THEFTALERT_SMS_TOKEN")
	normalizeChannel(&c.Transport.WhatsApp, "THEFTALERT_WHATSAPP_TOKEN")
}

func normalizeChannel(ch *Channel, tokenEnv string) {
	ch.Endpoint = strings.TrimSpace(ch.Endpoint)
	ch.Token = strings.TrimSpace(ch.Token)
	if ch.Token == "" {
		if value, ok := os.LookupEnv(tokenEnv); ok {
			ch.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeDirectory() {
	c.Directory.Driver = strings.ToLower(strings.TrimSpace(c.Directory.Driver))
	if c.Directory.Driver == "" {
		c.Directory.Driver = defaultDirectoryDriver
	}
	c.Directory.DatabaseURL = strings.TrimSpace(c.Directory.DatabaseURL)
	if c.Directory.DatabaseURL == "" {
		if value, ok := os.LookupEnv("THEFTALERT_DATABASE_URL"); ok {
			c.Directory.DatabaseURL = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeIngest() {
	c.Ingest.HTTPBind = strings.TrimSpace(c.Ingest.HTTPBind)
	c.Ingest.AMQPURL = strings.TrimSpace(c.Ingest.AMQPURL)
	if c.Ingest.AMQPURL == "" {
		if value, ok := os.LookupEnv("THEFTALERT_AMQP_URL"); ok {
			c.Ingest.AMQPURL = strings.TrimSpace(value)
		}
	}
	c.Ingest.AMQPQueue = strings.TrimSpace(c.Ingest.AMQPQueue)
	if c.Ingest.AMQPQueue == "" {
		c.Ingest.AMQPQueue = defaultAMQPQueue
	}
	if c.Ingest.AMQPPrefetch <= 0 {
		c.Ingest.AMQPPrefetch = defaultAMQPPrefetch
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
