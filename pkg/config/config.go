// Package config loads the helper's settings from its TOML file.
package config

import (
	"io/ioutil"
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// DefaultPath is where the helper looks for its configuration file.
const DefaultPath = "/etc/dnf-helper/config.toml"

const (
	DefaultRPM         = "/usr/bin/rpm"
	DefaultDNF         = "/usr/bin/dnf"
	DefaultSystemCache = "/var/cache/dnf/@System.solv"
	DefaultDownloadDir = "/var/cache/dnf-helper"
	DefaultLogLevel    = "info"
)

// Config contains the paths and switches the helper runs with.
type Config struct {
	// RPM is the rpm executable used to read the system package database.
	RPM string `toml:"rpm"`
	// DNF is the dnf executable used for repositories and transactions.
	DNF string `toml:"dnf"`
	// SystemCache is the cached system repository index removed by flushcache.
	SystemCache string `toml:"system-cache"`
	// DownloadDir holds per-transaction package downloads.
	DownloadDir string `toml:"download-dir"`
	// Arch overrides the detected native architecture when set.
	Arch     string `toml:"arch"`
	LogLevel string `toml:"log-level"`
	Journal  bool   `toml:"journal"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.fill()
	return c
}

// Load reads the configuration file at path. A missing file is not an error
// and yields the defaults.
func Load(path string) (*Config, error) {
	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read config %q", path)
	}
	return Parse(raw)
}

// Parse decodes TOML configuration, filling in defaults for anything unset.
func Parse(raw []byte) (*Config, error) {
	c := Config{}
	if err := toml.Unmarshal(raw, &c); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	c.fill()
	return &c, nil
}

func (c *Config) fill() {
	if c.RPM == "" {
		c.RPM = DefaultRPM
	}
	if c.DNF == "" {
		c.DNF = DefaultDNF
	}
	if c.SystemCache == "" {
		c.SystemCache = DefaultSystemCache
	}
	if c.DownloadDir == "" {
		c.DownloadDir = DefaultDownloadDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}
