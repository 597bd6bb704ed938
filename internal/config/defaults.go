package config

const (
	defaultConfigPath        = "~/.config/theftalert/config.toml"
	defaultDataDir           = "~/.local/share/theftalert"
	defaultLogDir            = "~/.local/share/theftalert/logs"
	defaultWorkers           = 16
	defaultChannelTimeout    = 10
	defaultInvocationTimeout = 600
	defaultLeaseSeconds      = 120
	defaultRetentionDays     = 30
	defaultRatePerMinute     = 600
	defaultDirectoryDriver   = DirectorySQLite
	defaultHTTPBind          = "127.0.0.1:7480"
	defaultAMQPQueue         = "report.created"
	defaultAMQPPrefetch      = 4
	defaultLogFormat         = "auto"
	defaultLogLevel          = "info"
	maxWorkers               = 1024
)

// Directory drivers.
const (
	DirectorySQLite   = "sqlite"
	DirectoryPostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Dispatch: Dispatch{
			Workers:                  defaultWorkers,
			ChannelTimeoutSeconds:    defaultChannelTimeout,
			InvocationTimeoutSeconds: defaultInvocationTimeout,
		},
		Ledger: Ledger{
			LeaseSeconds:  defaultLeaseSeconds,
			RetentionDays: defaultRetentionDays,
		},
		Transport: Transport{
			Email:    Channel{RatePerMinute: defaultRatePerMinute},
			SMS:      Channel{RatePerMinute: defaultRatePerMinute},
			WhatsApp: Channel{RatePerMinute: defaultRatePerMinute},
		},
		Directory: Directory{
			Driver: defaultDirectoryDriver,
		},
		Ingest: Ingest{
			HTTPBind:     defaultHTTPBind,
			AMQPQueue:    defaultAMQPQueue,
			AMQPPrefetch: defaultAMQPPrefetch,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
