// Package config loads the application configuration from a JSON file with
// environment overrides. Marker and cache paths support a {name} token that
// the handler substitutes with the configured backup name.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AbazaSeif/cloudsync/internal/model"
)

const (
	// ConfigFileName is the name of the config file.
	ConfigFileName = "config.json"
	// ConfigDirName is the directory where config and markers live.
	ConfigDirName = ".cloudsync"
	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "CLOUDSYNC_"
)

// Config holds application configuration.
type Config struct {
	// Name identifies one backup set; substituted into the marker paths.
	Name string `json:"name"`

	// LocalRoot is the local directory being mirrored.
	LocalRoot string `json:"localRoot"`

	// RemotePath is the remote folder holding the mirror.
	RemotePath string `json:"remotePath"`

	CacheFile string `json:"cacheFile"`
	LockFile  string `json:"lockFile"`
	PIDFile   string `json:"pidFile"`

	// Include and Exclude are fully anchored regular expressions matched
	// against absolute paths.
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`

	FollowLinks string `json:"followLinks"`
	Permissions string `json:"permissions"`
	FileError   string `json:"fileError"`
	Existing    string `json:"existing"`

	// Passphrase enables the encryption boundary when non-empty.
	Passphrase string `json:"passphrase,omitempty"`

	Profile      string `json:"profile"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`

	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		Name:        "default",
		RemotePath:  "/backup/{name}",
		CacheFile:   filepath.Join(dir, "{name}.cache"),
		LockFile:    filepath.Join(dir, "{name}.lock"),
		PIDFile:     filepath.Join(dir, "{name}.pid"),
		FollowLinks: "external",
		Permissions: "try",
		FileError:   "message",
		Existing:    "stop",
		Profile:     "default",
		LogLevel:    "info",
	}
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ConfigDirName
	}
	return filepath.Join(home, ConfigDirName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), ConfigFileName)
}

// Load reads the config file, falling back to defaults when it does not
// exist, then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config %q: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	override := func(key string, target *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*target = v
		}
	}
	override("NAME", &c.Name)
	override("LOCAL_ROOT", &c.LocalRoot)
	override("REMOTE_PATH", &c.RemotePath)
	override("PASSPHRASE", &c.Passphrase)
	override("PROFILE", &c.Profile)
	override("CLIENT_ID", &c.ClientID)
	override("CLIENT_SECRET", &c.ClientSecret)
	override("LOG_LEVEL", &c.LogLevel)
}

// Validate checks the policy enums and required fields.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if _, err := c.FollowLinksPolicy(); err != nil {
		return err
	}
	if _, err := c.PermissionsPolicy(); err != nil {
		return err
	}
	if _, err := c.FileErrorPolicy(); err != nil {
		return err
	}
	if _, err := c.ExistingPolicy(); err != nil {
		return err
	}
	return nil
}

// Save writes the config file, creating the config directory as needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func (c *Config) FollowLinksPolicy() (model.FollowLink, error) {
	return model.ParseFollowLink(c.FollowLinks)
}

func (c *Config) PermissionsPolicy() (model.Permission, error) {
	return model.ParsePermission(c.Permissions)
}

func (c *Config) FileErrorPolicy() (model.FileError, error) {
	return model.ParseFileError(c.FileError)
}

func (c *Config) ExistingPolicy() (model.Existing, error) {
	return model.ParseExisting(c.Existing)
}
