package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolved is the effective configuration after every override layer, with
// durations parsed and paths expanded.
type Resolved struct {
	// Path is the config file that was read, or empty when none exists.
	Path string

	Username string
	Password string

	ConnectURL string
	SSOURL     string

	Timeout   time.Duration
	UserAgent string

	ThrottleInterval time.Duration
	DuplicateCode    int
	MutationStyle    string
	SkipExisting     bool

	LogLevel  string
	LogFormat string

	HistoryEnabled bool
	HistoryPath    string
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal, with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// FindConfigFile picks the config file to read. An explicit path (flag or
// environment) must exist. Otherwise the first existing implicit candidate
// wins; an empty result means "use defaults".
func FindConfigFile(explicit string) (string, error) {
	if explicit != "" {
		explicit = expandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}

		return explicit, nil
	}

	// A missing cwd or home just drops that candidate.
	cwd, _ := os.Getwd()        //nolint:errcheck // see above
	home, _ := os.UserHomeDir() //nolint:errcheck // see above

	for _, p := range candidatePaths(cwd, home, DefaultConfigPath()) {
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}

		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config file %s: %w", p, err)
		}
	}

	return "", nil
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	explicit := env.ConfigPath
	if cli.ConfigPath != "" {
		explicit = cli.ConfigPath
	}

	path, err := FindConfigFile(explicit)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if path != "" {
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	r, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	r.Path = path

	r.Username = firstNonEmpty(cli.Username, env.Username, cfg.Credentials.Username)
	r.Password = firstNonEmpty(cli.Password, env.Password, cfg.Credentials.Password)

	return r, nil
}

// resolveConfig converts a validated Config into typed values.
func resolveConfig(cfg *Config) (*Resolved, error) {
	timeout, err := time.ParseDuration(cfg.Network.Timeout)
	if err != nil {
		return nil, fmt.Errorf("network.timeout: %w", err)
	}

	interval, err := time.ParseDuration(cfg.Upload.ThrottleInterval)
	if err != nil {
		return nil, fmt.Errorf("upload.throttle_interval: %w", err)
	}

	historyPath := cfg.History.Path
	if historyPath == "" {
		historyPath = DefaultHistoryPath()
	}

	return &Resolved{
		ConnectURL:       cfg.Service.ConnectURL,
		SSOURL:           cfg.Service.SSOURL,
		Timeout:          timeout,
		UserAgent:        cfg.Network.UserAgent,
		ThrottleInterval: interval,
		DuplicateCode:    cfg.Upload.DuplicateCode,
		MutationStyle:    cfg.Upload.MutationStyle,
		SkipExisting:     cfg.Upload.SkipExisting,
		LogLevel:         cfg.Logging.LogLevel,
		LogFormat:        cfg.Logging.LogFormat,
		HistoryEnabled:   cfg.History.Enabled,
		HistoryPath:      expandTilde(historyPath),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
