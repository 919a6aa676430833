package connect

import (
	"errors"
	"log/slog"
	"strings"
)

// ErrMissingCredentials is returned by NewCredentials when either field is empty.
var ErrMissingCredentials = errors.New("connect: username and password are required")

// Credentials holds a login pair. The zero value is unusable; build with
// NewCredentials. The password never appears in String or log output.
type Credentials struct {
	username string
	password string
}

// NewCredentials validates and returns an immutable credential pair.
func NewCredentials(username, password string) (Credentials, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return Credentials{}, ErrMissingCredentials
	}

	return Credentials{username: username, password: password}, nil
}

// Username returns the login name.
func (c Credentials) Username() string { return c.username }

// Password returns the cleartext password. Only the handshake should call it.
func (c Credentials) Password() string { return c.password }

// String renders the username and a masked password.
func (c Credentials) String() string {
	return c.username + ":" + MaskSecret(c.password)
}

// LogValue keeps the cleartext password out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.username),
		slog.String("password", MaskSecret(c.password)),
	)
}

// MaskSecret replaces every character of s with an asterisk, preserving length.
func MaskSecret(s string) string {
	return strings.Repeat("*", len([]rune(s)))
}
