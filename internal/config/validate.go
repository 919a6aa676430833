package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validation range constants.
const (
	minTimeout          = 1 * time.Second
	maxThrottleInterval = time.Minute
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}

var validMutationStyles = map[string]bool{"form": true, "json": true}

// Validate checks all configuration values and returns every error found,
// so users can fix the whole file in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateService(&cfg.Service)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateUpload(&cfg.Upload)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateService(s *ServiceConfig) []error {
	var errs []error

	errs = append(errs, validateBaseURL("service.connect_url", s.ConnectURL)...)
	errs = append(errs, validateBaseURL("service.sso_url", s.SSOURL)...)

	return errs
}

func validateBaseURL(field, value string) []error {
	u, err := url.Parse(value)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", field, err)}
	}

	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return []error{fmt.Errorf("%s: must be an absolute http(s) URL, got %q", field, value)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	d, err := time.ParseDuration(n.Timeout)
	if err != nil {
		return []error{fmt.Errorf("network.timeout: invalid duration %q: %w", n.Timeout, err)}
	}

	if d < minTimeout {
		return []error{fmt.Errorf("network.timeout: must be >= %s, got %s", minTimeout, d)}
	}

	return nil
}

func validateUpload(u *UploadConfig) []error {
	var errs []error

	d, err := time.ParseDuration(u.ThrottleInterval)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("upload.throttle_interval: invalid duration %q: %w", u.ThrottleInterval, err))
	case d < 0 || d > maxThrottleInterval:
		errs = append(errs, fmt.Errorf("upload.throttle_interval: must be between 0 and %s, got %s",
			maxThrottleInterval, d))
	}

	if u.DuplicateCode <= 0 {
		errs = append(errs, fmt.Errorf("upload.duplicate_code: must be positive, got %d", u.DuplicateCode))
	}

	if !validMutationStyles[u.MutationStyle] {
		errs = append(errs, fmt.Errorf("upload.mutation_style: must be form or json, got %q", u.MutationStyle))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of debug, info, warn, error; got %q",
			l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of auto, text, json; got %q",
			l.LogFormat))
	}

	return errs
}
