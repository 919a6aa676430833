package config

// Default values for configuration options. These represent "layer 0" of
// the override chain and work without any config file.
const (
	defaultConnectURL       = "https://connect.garmin.com"
	defaultSSOURL           = "https://sso.garmin.com"
	defaultTimeout          = "30s"
	defaultThrottleInterval = "1s"
	defaultDuplicateCode    = 202
	defaultMutationStyle    = "form"
	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
)

// DefaultConfig returns a Config populated with all default values. It is
// also the starting point for TOML decoding, so unset fields keep defaults.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ConnectURL: defaultConnectURL,
			SSOURL:     defaultSSOURL,
		},
		Network: NetworkConfig{
			Timeout: defaultTimeout,
		},
		Upload: UploadConfig{
			ThrottleInterval: defaultThrottleInterval,
			DuplicateCode:    defaultDuplicateCode,
			MutationStyle:    defaultMutationStyle,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}
