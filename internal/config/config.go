// Package config resolves gmail-cli settings from built-in defaults, an
// optional YAML file, a .env file and the process environment. Flags are
// applied on top by the command layer.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Token store backends.
const (
	StoreFile    = "file"
	StoreKeyring = "keyring"
)

// Config holds the resolved settings.
type Config struct {
	CredentialsPath string `yaml:"credentials_path"`
	TokenPath       string `yaml:"token_path"`
	TokenStore      string `yaml:"token_store"`
	KeyringDir      string `yaml:"keyring_dir"`
	RPS             int    `yaml:"rps"`
	MaxResults      int    `yaml:"max_results"`
	LogLevel        string `yaml:"log_level"`
	OpenBrowser     bool   `yaml:"open_browser"`
	GmailctlBinary  string `yaml:"gmailctl_binary"`
	GmailctlConfig  string `yaml:"gmailctl_config"`
}

// Default returns the built-in settings rooted at ~/.gmail-cli.
func Default() Config {
	return Config{
		CredentialsPath: "~/.gmail-cli/credentials.json",
		TokenPath:       "~/.gmail-cli/token.json",
		TokenStore:      StoreFile,
		KeyringDir:      "~/.gmail-cli/keyring",
		RPS:             4,
		MaxResults:      10,
		LogLevel:        "info",
		OpenBrowser:     true,
		GmailctlBinary:  "gmailctl",
	}
}

// Options controls where Load looks. Zero values use the standard locations.
type Options struct {
	// Path is the YAML file; empty means $GMAIL_CLI_CONFIG or ~/.gmail-cli/config.yaml.
	Path string
	// DotEnv lists .env files to load; nil means ".env" in the working directory.
	DotEnv []string
}

// Load resolves the configuration. A missing YAML or .env file is not an error.
func Load(opts Options) (Config, error) {
	envFiles := opts.DotEnv
	if envFiles == nil {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// existing environment variables win over .env entries
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	path := opts.Path
	if path == "" {
		path = getEnvString("GMAIL_CLI_CONFIG", "~/.gmail-cli/config.yaml")
	}
	if err := cfg.mergeFile(ExpandHome(path)); err != nil {
		return Config{}, err
	}
	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.CredentialsPath = getEnvString("GMAIL_CREDENTIALS_PATH", c.CredentialsPath)
	c.TokenPath = getEnvString("GMAIL_TOKEN_PATH", c.TokenPath)
	c.TokenStore = getEnvString("GMAIL_TOKEN_STORE", c.TokenStore)
	c.KeyringDir = getEnvString("GMAIL_KEYRING_DIR", c.KeyringDir)
	c.LogLevel = getEnvString("GMAIL_LOG_LEVEL", c.LogLevel)
	c.GmailctlBinary = getEnvString("GMAILCTL_BINARY", c.GmailctlBinary)
	c.GmailctlConfig = getEnvString("GMAILCTL_CONFIG", c.GmailctlConfig)

	var err error
	if c.RPS, err = getEnvInt("GMAIL_RPS", c.RPS); err != nil {
		return err
	}
	if c.MaxResults, err = getEnvInt("GMAIL_MAX_RESULTS", c.MaxResults); err != nil {
		return err
	}
	if c.OpenBrowser, err = getEnvBool("GMAIL_OPEN_BROWSER", c.OpenBrowser); err != nil {
		return err
	}
	return nil
}

func (c *Config) expandPaths() {
	c.CredentialsPath = ExpandHome(c.CredentialsPath)
	c.TokenPath = ExpandHome(c.TokenPath)
	c.KeyringDir = ExpandHome(c.KeyringDir)
	c.GmailctlConfig = ExpandHome(c.GmailctlConfig)
}

// Validate checks values that would otherwise fail deep inside a command.
func (c Config) Validate() error {
	switch c.TokenStore {
	case StoreFile, StoreKeyring:
	default:
		return fmt.Errorf("token_store %q: must be %q or %q", c.TokenStore, StoreFile, StoreKeyring)
	}
	if c.RPS < 0 {
		return fmt.Errorf("rps %d: must not be negative", c.RPS)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results %d: must be positive", c.MaxResults)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if strings.TrimSpace(c.CredentialsPath) == "" || strings.TrimSpace(c.TokenPath) == "" {
		return errors.New("credentials_path and token_path must be set")
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel accepts debug, info, warn or error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", s, err)
	}
	return lvl, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}
