// Package config resolves Datadog API credentials from the per-user
// config file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultSite is the Datadog site used when none is configured.
const DefaultSite = "datadoghq.com"

// Environment variables that override file-sourced credential fields.
const (
	EnvAPIKey = "DD_API_KEY"
	EnvAppKey = "DD_APP_KEY"
	EnvSite   = "DD_SITE"
)

// ErrMissingCredentials indicates that no API key or application key was
// found in the config file or the environment.
var ErrMissingCredentials = errors.New("missing Datadog API credentials")

// Credentials holds the effective API credentials for a single invocation.
// Resolved once at startup and immutable afterwards.
type Credentials struct {
	APIKey string `toml:"api_key"`
	AppKey string `toml:"app_key"`
	Site   string `toml:"site,omitempty"`
}

// Path returns the location of the credentials file. The ~/.config
// directory is used on all platforms for consistency.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ddlogs", "config.toml"), nil
}

// Load reads the credentials file, if present, and overlays environment
// variables field-by-field. It never writes anything.
func Load() (Credentials, error) {
	path, err := Path()
	if err != nil {
		return Credentials{}, err
	}
	return load(path)
}

func load(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No config file; env vars may still provide everything.
	case err != nil:
		return Credentials{}, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, &creds); err != nil {
			return Credentials{}, fmt.Errorf("malformed config file %s: %w", path, err)
		}
	}

	// Env vars override file values per field, not wholesale.
	if v, ok := os.LookupEnv(EnvAPIKey); ok {
		creds.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvAppKey); ok {
		creds.AppKey = v
	}
	if v, ok := os.LookupEnv(EnvSite); ok {
		creds.Site = v
	}

	if creds.Site == "" {
		creds.Site = DefaultSite
	}

	return creds, nil
}

// Validate reports whether the credentials are usable for API calls.
func (c Credentials) Validate() error {
	if c.APIKey == "" || c.AppKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Save writes the credentials file in place, creating the parent
// directory if needed. Keys are written with owner-only permissions.
func Save(c Credentials) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return save(path, c)
}

func save(path string, c Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
