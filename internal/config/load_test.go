package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// isolate points every implicit config location at empty temp directories.
func isolate(t *testing.T) (cwd, home string) {
	t.Helper()

	home = t.TempDir()
	cwd = t.TempDir()

	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Chdir(cwd)

	return cwd, home
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[credentials]
username = "runner@example.com"
password = "hunter2"

[service]
connect_url = "http://127.0.0.1:8080"
sso_url = "http://127.0.0.1:8081"

[network]
timeout = "10s"
user_agent = "test-agent"

[upload]
throttle_interval = "2s"
duplicate_code = 409
mutation_style = "json"
skip_existing = true

[logging]
log_level = "debug"
log_format = "json"

[history]
enabled = false
path = "/tmp/h.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "runner@example.com", cfg.Credentials.Username)
	assert.Equal(t, "hunter2", cfg.Credentials.Password)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.Service.ConnectURL)
	assert.Equal(t, "10s", cfg.Network.Timeout)
	assert.Equal(t, "test-agent", cfg.Network.UserAgent)
	assert.Equal(t, "2s", cfg.Upload.ThrottleInterval)
	assert.Equal(t, 409, cfg.Upload.DuplicateCode)
	assert.Equal(t, "json", cfg.Upload.MutationStyle)
	assert.True(t, cfg.Upload.SkipExisting)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.False(t, cfg.History.Enabled)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, "[credentials]\nusername = \"runner\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "runner", cfg.Credentials.Username)
	assert.Equal(t, defaultThrottleInterval, cfg.Upload.ThrottleInterval)
	assert.Equal(t, defaultLogLevel, cfg.Logging.LogLevel)
}

func TestLoad_InvalidTOML(t *testing.T) {
	// The legacy key=value form without quotes is not TOML.
	path := writeTestConfig(t, "[credentials]\nusername=runner\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_ValidationErrorsCollected(t *testing.T) {
	path := writeTestConfig(t, `
[upload]
duplicate_code = 0
mutation_style = "xml"

[logging]
log_level = "loud"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate_code")
	assert.Contains(t, err.Error(), "mutation_style")
	assert.Contains(t, err.Error(), "log_level")
}

func TestFindConfigFile_Precedence(t *testing.T) {
	cwd, home := isolate(t)

	path, err := FindConfigFile("")
	require.NoError(t, err)
	assert.Empty(t, path)

	xdg := DefaultConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(xdg), 0o700))
	require.NoError(t, os.WriteFile(xdg, nil, 0o600))

	path, err = FindConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, xdg, path)

	homeRC := filepath.Join(home, rcFileName)
	require.NoError(t, os.WriteFile(homeRC, nil, 0o600))

	path, err = FindConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, homeRC, path)

	localRC := filepath.Join(cwd, rcFileName)
	require.NoError(t, os.WriteFile(localRC, nil, 0o600))

	path, err = FindConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, rcFileName, filepath.Base(path))
	assert.NotEqual(t, homeRC, path)

	explicit := writeTestConfig(t, "")
	path, err = FindConfigFile(explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
}

func TestFindConfigFile_ExplicitMissing(t *testing.T) {
	_, err := FindConfigFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolve_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	r, err := Resolve(EnvOverrides{}, CLIOverrides{})
	require.NoError(t, err)

	assert.Empty(t, r.Path)
	assert.Equal(t, 30*time.Second, r.Timeout)
	assert.Equal(t, time.Second, r.ThrottleInterval)
	assert.Equal(t, DefaultHistoryPath(), r.HistoryPath)
}

func TestResolve_CredentialPrecedence(t *testing.T) {
	isolate(t)

	path := writeTestConfig(t, `
[credentials]
username = "file-user"
password = "file-pass"
`)

	r, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "file-user", r.Username)
	assert.Equal(t, "file-pass", r.Password)
	assert.Equal(t, path, r.Path)

	r, err = Resolve(EnvOverrides{ConfigPath: path, Username: "env-user"}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "env-user", r.Username)
	assert.Equal(t, "file-pass", r.Password)

	r, err = Resolve(
		EnvOverrides{ConfigPath: path, Username: "env-user", Password: "env-pass"},
		CLIOverrides{Username: "cli-user"},
	)
	require.NoError(t, err)
	assert.Equal(t, "cli-user", r.Username)
	assert.Equal(t, "env-pass", r.Password)
}

func TestResolve_CLIConfigBeatsEnv(t *testing.T) {
	isolate(t)

	envPath := writeTestConfig(t, "[credentials]\nusername = \"env-file\"\n")
	cliPath := writeTestConfig(t, "[credentials]\nusername = \"cli-file\"\n")

	r, err := Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{ConfigPath: cliPath})
	require.NoError(t, err)
	assert.Equal(t, "cli-file", r.Username)
}

func TestResolve_ExpandsHistoryTilde(t *testing.T) {
	_, home := isolate(t)

	path := writeTestConfig(t, "[history]\npath = \"~/journal.db\"\n")

	r, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "journal.db"), r.HistoryPath)
}
