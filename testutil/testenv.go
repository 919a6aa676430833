// Package testutil provides shared helpers for the end-to-end tests, which
// run the built binary against the live service. It depends only on stdlib
// so that E2E tests (which cannot import internal/) can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environment variables read by the E2E suite.
const (
	EnvUsername        = "GUPLOAD_USERNAME"
	EnvPassword        = "GUPLOAD_PASSWORD"
	EnvAllowedAccounts = "GUPLOAD_ALLOWED_TEST_ACCOUNTS"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// ValidateAllowlist exits the process unless the account named by
// GUPLOAD_USERNAME is listed in GUPLOAD_ALLOWED_TEST_ACCOUNTS. The suite
// creates real activities, so it must never run against a personal account
// by accident.
func ValidateAllowlist() {
	allowlist := os.Getenv(EnvAllowedAccounts)
	if allowlist == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", EnvAllowedAccounts)
		fmt.Fprintf(os.Stderr, "Example: %s=e2e-runner@example.com\n", EnvAllowedAccounts)
		os.Exit(1)
	}

	account := os.Getenv(EnvUsername)
	if account == "" || os.Getenv(EnvPassword) == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s and %s must be set\n", EnvUsername, EnvPassword)
		os.Exit(1)
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.EqualFold(strings.TrimSpace(a), account) {
			return
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in %s=%q\n", EnvUsername, account, EnvAllowedAccounts, allowlist)
	os.Exit(1)
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

const gpxTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="gupload-e2e" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>gupload e2e</name>
    <trkseg>
      <trkpt lat="60.1699" lon="24.9384"><time>%s</time></trkpt>
      <trkpt lat="60.1702" lon="24.9390"><time>%s</time></trkpt>
      <trkpt lat="60.1706" lon="24.9397"><time>%s</time></trkpt>
    </trkseg>
  </trk>
</gpx>
`

// WriteGPX writes a short track starting at start into dir and returns its
// path. Distinct start times give distinct activities on the service.
func WriteGPX(dir, name string, start time.Time) (string, error) {
	ts := func(offset time.Duration) string { return start.Add(offset).UTC().Format(time.RFC3339) }

	path := filepath.Join(dir, name)
	body := fmt.Sprintf(gpxTemplate, ts(0), ts(30*time.Second), ts(time.Minute))

	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	return path, nil
}
