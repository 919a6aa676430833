package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "GUPLOAD_CONFIG"
	EnvUsername = "GUPLOAD_USERNAME"
	EnvPassword = "GUPLOAD_PASSWORD"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // GUPLOAD_CONFIG: override config file path
	Username   string // GUPLOAD_USERNAME
	Password   string // GUPLOAD_PASSWORD
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Username:   os.Getenv(EnvUsername),
		Password:   os.Getenv(EnvPassword),
	}
}
