package testsupport

import (
	"path/filepath"
	"testing"

	"theftalert/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Ingest.HTTPBind = "127.0.0.1:0"
	cfgVal.Links.BaseURL = "https://alerts.example.test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithWorkers overrides the dispatch worker pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.Workers = n
	}
}

// WithChannelTimeout overrides the per-channel timeout in seconds.
func WithChannelTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.ChannelTimeoutSeconds = seconds
	}
}

// WithGateway points one channel at endpoint, typically an httptest server.
func WithGateway(channel, endpoint string) ConfigOption {
	return func(b *configBuilder) {
		switch channel {
		case "email":
			b.cfg.Transport.Email.Endpoint = endpoint
		case "sms":
			b.cfg.Transport.SMS.Endpoint = endpoint
		case "whatsapp":
			b.cfg.Transport.WhatsApp.Endpoint = endpoint
		default:
			b.t.Fatalf("unknown gateway channel %q", channel)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
