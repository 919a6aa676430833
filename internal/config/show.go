package config

import (
	"fmt"
	"io"
	"strings"
)

// RenderEffective writes the resolved configuration as an annotated TOML-ish
// summary to w. This powers "config show". The password is masked.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	if r.Path != "" {
		ew.printf("# Effective configuration (file: %s)\n\n", r.Path)
	} else {
		ew.printf("# Effective configuration (no config file, defaults)\n\n")
	}

	ew.printf("[credentials]\n")
	ew.printf("  username = %q\n", r.Username)
	ew.printf("  password = %q\n", maskSecret(r.Password))
	ew.printf("\n")

	ew.printf("[service]\n")
	ew.printf("  connect_url = %q\n", r.ConnectURL)
	ew.printf("  sso_url     = %q\n", r.SSOURL)
	ew.printf("\n")

	ew.printf("[network]\n")
	ew.printf("  timeout = %q\n", r.Timeout.String())

	if r.UserAgent != "" {
		ew.printf("  user_agent = %q\n", r.UserAgent)
	}

	ew.printf("\n")

	ew.printf("[upload]\n")
	ew.printf("  throttle_interval = %q\n", r.ThrottleInterval.String())
	ew.printf("  duplicate_code    = %d\n", r.DuplicateCode)
	ew.printf("  mutation_style    = %q\n", r.MutationStyle)
	ew.printf("  skip_existing     = %t\n", r.SkipExisting)
	ew.printf("\n")

	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", r.LogLevel)
	ew.printf("  log_format = %q\n", r.LogFormat)
	ew.printf("\n")

	ew.printf("[history]\n")
	ew.printf("  enabled = %t\n", r.HistoryEnabled)
	ew.printf("  path    = %q\n", r.HistoryPath)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// maskSecret replaces each character with '*'. An empty secret stays empty
// so "not set" remains visible.
func maskSecret(s string) string {
	return strings.Repeat("*", len([]rune(s)))
}
