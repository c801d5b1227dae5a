// Package config handles TOML-based configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

const appName = "vividfusion"

// Config holds all application configuration.
type Config struct {
	DataDir         string `toml:"data_dir"`
	PluginExtension string `toml:"plugin_extension"`
	FeaturePrefix   string `toml:"feature_prefix"`
	FlixHQBase      string `toml:"flixhq_base"`
	Player          string `toml:"player"`
	SubsLanguage    string `toml:"subs_language"`
	ExtensionList   string `toml:"extension_list"`
	History         bool   `toml:"history"`
	Watch           bool   `toml:"watch"`
	Debug           bool   `toml:"debug"`
	LogFormat       string `toml:"log_format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		PluginExtension: "vvf",
		FeaturePrefix:   appName,
		FlixHQBase:      "flixhq.to",
		Player:          "mpv",
		SubsLanguage:    "english",
		History:         true,
		LogFormat:       "text",
	}
}

func xdgDir(env string, fallback ...string) (string, error) {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

var (
	pluginExtPattern = regexp.MustCompile(`^[a-z0-9]{1,16}$`)
	prefixPattern    = regexp.MustCompile(`^[a-z][a-z0-9_.-]*$`)
)

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	validPlayers := map[string]bool{
		"mpv": true, "vlc": true, "iina": true, "celluloid": true,
	}
	if !validPlayers[strings.ToLower(c.Player)] {
		return fmt.Errorf("unsupported player %q (valid: mpv, vlc, iina, celluloid)", c.Player)
	}
	if !pluginExtPattern.MatchString(c.PluginExtension) {
		return fmt.Errorf("invalid plugin_extension %q", c.PluginExtension)
	}
	if !prefixPattern.MatchString(c.FeaturePrefix) {
		return fmt.Errorf("invalid feature_prefix %q", c.FeaturePrefix)
	}
	if c.FlixHQBase == "" {
		return fmt.Errorf("flixhq_base cannot be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log_format %q (valid: text, json)", c.LogFormat)
	}
	return nil
}

// ResolveDataDir returns the absolute data directory, falling back to
// $XDG_DATA_HOME/vividfusion when data_dir is unset.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		return xdgDir("XDG_DATA_HOME", ".local", "share")
	}
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}

// Paths are the on-disk locations derived from the data directory.
type Paths struct {
	Root     string // file plugins live in Root/plugins
	Packages string
	Database string
}

// Paths resolves the data directory layout.
func (c *Config) Paths() (Paths, error) {
	root, err := c.ResolveDataDir()
	if err != nil {
		return Paths{}, err
	}
	return Paths{
		Root:     root,
		Packages: filepath.Join(root, "packages"),
		Database: filepath.Join(root, appName+".db"),
	}, nil
}

// Plugins returns the directory scanned for file plugins.
func (p Paths) Plugins() string {
	return filepath.Join(p.Root, "plugins")
}

// Ensure creates every directory in the layout.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Plugins(), p.Packages} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
