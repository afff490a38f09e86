// SPDX-License-Identifier: MIT
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type (
	// Config is the layout of the configuration file.
	Config struct {
		Display DisplayConfig `toml:"display"`
		Log     LogConfig     `toml:"log"`
		Cache   CacheConfig   `toml:"cache"`
		Scan    ScanConfig    `toml:"scan"`
		Server  ServerConfig  `toml:"server"`
	}

	// DisplayConfig sets the rectangle treemaps are laid out in.
	DisplayConfig struct {
		Width  int `toml:"width"`
		Height int `toml:"height"`
	}

	// LogConfig sets the logrus level & an optional rotated log file.
	LogConfig struct {
		Level string `toml:"level"`

		File       string `toml:"file"`
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxBackups int    `toml:"max_backups"`
	}

	// CacheConfig locates the dataset cache.
	CacheConfig struct {
		Dir string   `toml:"dir"`
		TTL duration `toml:"ttl"`
	}

	// ScanConfig bounds the filesystem scan.
	ScanConfig struct {
		Workers int `toml:"workers"`
	}

	// ServerConfig sets the API listener.
	ServerConfig struct {
		Addr string `toml:"addr"`
	}

	// duration decodes strings such as "36h".
	duration struct{ time.Duration }
)

const (
	appName    = "treemap"
	configFile = "config.toml"
)

// ErrConfig is returned for unreadable or malformed configuration files.
var ErrConfig = errors.New("invalid configuration")

// DefaultConfig obtains the configuration used in the absence of a file.
func DefaultConfig() Config {
	return Config{
		Display: DisplayConfig{Width: 1024, Height: 738},
		Log:     LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
		Cache:   CacheConfig{TTL: duration{24 * time.Hour}},
		Scan:    ScanConfig{Workers: 8},
		Server:  ServerConfig{Addr: "localhost:8080"},
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// defaultConfigPath resolves $XDG_CONFIG_HOME/treemap/config.toml.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, appName, configFile)
}

// LoadConfig reads path over the defaults; a missing file yields the defaults unless
// required is set.
func LoadConfig(path string, required bool) (cfg Config, err error) {
	cfg = DefaultConfig()
	if path == "" {
		return
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, os.ErrNotExist) && !required:
		return DefaultConfig(), nil
	case err != nil:
		err = fmt.Errorf("%w (%s): %w", ErrConfig, path, err)
		return
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		err = fmt.Errorf("%w (%s): unknown keys %v", ErrConfig, path, undecoded)
		return
	}

	if cfg.Display.Width < 0 || cfg.Display.Height < 0 {
		err = fmt.Errorf("%w (%s): negative display %dx%d", ErrConfig, path, cfg.Display.Width, cfg.Display.Height)
	}

	return
}
