// Package config handles loading the gmail-file-downloader configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/teemow/gmail-file-downloader/internal/logging"
)

// DefaultFile is read from the working directory when no config path is given.
const DefaultFile = "gmail-file-downloader.toml"

// Config holds all settings of a download run. Every field can also be set
// with a command line flag, which takes precedence over the file.
type Config struct {
	AuthDir         string   `toml:"auth_dir"`
	CredentialsFile string   `toml:"credentials_file"`
	TokenFile       string   `toml:"token_file"`
	DownloadDir     string   `toml:"download_dir"`
	User            string   `toml:"user"`
	Queries         []string `toml:"queries"`
	LogLevel        string   `toml:"log_level"`
	LogFormat       string   `toml:"log_format"`
	MetricsAddr     string   `toml:"metrics_addr"`

	// Path of the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

// Default returns the layout the tool uses without a config file: auth files
// in ./auth, attachments in ./attachments, the authorized user's mailbox.
func Default() *Config {
	return &Config{
		AuthDir:         "auth",
		CredentialsFile: "credentials.json",
		TokenFile:       "token.json",
		DownloadDir:     "attachments",
		User:            "me",
		LogLevel:        "info",
		LogFormat:       logging.FormatText,
	}
}

// Load reads the configuration from path on top of the defaults.
// If path is empty, DefaultFile is used when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		path = DefaultFile
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	cfg.AuthDir = expandPath(cfg.AuthDir)
	cfg.DownloadDir = expandPath(cfg.DownloadDir)
	cfg.CredentialsFile = expandPath(cfg.CredentialsFile)
	cfg.TokenFile = expandPath(cfg.TokenFile)
	cfg.Path = path

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.AuthDir == "" {
		return fmt.Errorf("auth_dir must not be empty")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download_dir must not be empty")
	}
	if c.User == "" {
		return fmt.Errorf("user must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("invalid log format %q (use %s or %s)", c.LogFormat, logging.FormatText, logging.FormatJSON)
	}
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
