// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for gupload. Values are layered:
// defaults -> config file -> environment -> CLI flags.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Service     ServiceConfig     `toml:"service"`
	Network     NetworkConfig     `toml:"network"`
	Upload      UploadConfig      `toml:"upload"`
	Logging     LoggingConfig     `toml:"logging"`
	History     HistoryConfig     `toml:"history"`
}

// CredentialsConfig holds the login pair. Both may be left empty and
// supplied through the environment or flags instead.
type CredentialsConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// ServiceConfig points the client at the Connect and SSO hosts. Only tests
// and people running against a proxy need to change these.
type ServiceConfig struct {
	ConnectURL string `toml:"connect_url"`
	SSOURL     string `toml:"sso_url"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

// UploadConfig controls the upload workflow. duplicate_code is the import
// failure code the service uses for "already uploaded"; it is undocumented
// and has changed before.
type UploadConfig struct {
	ThrottleInterval string `toml:"throttle_interval"`
	DuplicateCode    int    `toml:"duplicate_code"`
	MutationStyle    string `toml:"mutation_style"`
	SkipExisting     bool   `toml:"skip_existing"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// HistoryConfig controls the local upload journal.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// CLIOverrides holds values from CLI flags. Empty strings mean "not specified".
type CLIOverrides struct {
	ConfigPath string
	Username   string
	Password   string
}
