package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// configFilePermissions keeps the password readable by the owner only.
const configFilePermissions = 0o600

// configDirPermissions is the permission mode for config directories.
const configDirPermissions = 0o700

// ErrConfigExists is returned by WriteTemplate when the target already exists.
var ErrConfigExists = errors.New("config: file already exists")

// configTemplate is written by "config init". Every setting is present as a
// commented-out default so users can discover options without reading docs.
const configTemplate = `# gupload configuration
# Uncomment and modify to override defaults.

[credentials]
username = %q
password = %q

[service]
# connect_url = "https://connect.garmin.com"
# sso_url = "https://sso.garmin.com"

[network]
# timeout = "30s"
# user_agent = ""

[upload]
# Minimum spacing between requests. The service bans bursts.
# throttle_interval = "1s"
# Import failure code meaning "already uploaded".
# duplicate_code = 202
# Metadata edit payload: form or json
# mutation_style = "form"
# Do not rename or retype activities that were already uploaded.
# skip_existing = false

[logging]
# log_level = "info"
# Output format: auto (text on a terminal, json otherwise), text, json
# log_format = "auto"

[history]
# enabled = true
# path = ""
`

// WriteTemplate creates a config file at path with the given credentials.
// It refuses to overwrite an existing file unless force is set. The write
// is atomic (temp file + rename) and the file is private to the owner.
func WriteTemplate(path, username, password string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	slog.Info("writing config file", "path", path, "username", username)

	return atomicWriteFile(path, []byte(fmt.Sprintf(configTemplate, username, password)))
}

// atomicWriteFile writes data to a temp file in the same directory and
// renames it over path, so readers never see a partial file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	// Clean up the temp file on any error path.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if err := f.Chmod(configFilePermissions); err != nil {
		f.Close()

		return fmt.Errorf("setting file permissions: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
