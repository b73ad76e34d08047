// Package config loads the demo binaries' buffer configuration (name,
// sizes, timeouts) from a TOML file, optionally seeded from a .env file
// first — the same two-step "dotenv then typed config" idiom the teacher's
// own config.Load/main.go used for its exchange feeder config, generalized
// from exchange entries to a single buffer entry.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// BufferConfig describes one zerobuffer the demo binaries attach to.
// Timeouts are given in seconds in the TOML file (go-toml/v2 has no
// built-in time.Duration decoder) and converted once on Load.
type BufferConfig struct {
	Name             string        `toml:"name"`
	MetadataSize     uint64        `toml:"metadata_size"`
	PayloadSize      uint64        `toml:"payload_size"`
	WriteTimeoutSecs float64       `toml:"write_timeout_secs"`
	ReadTimeoutSecs  float64       `toml:"read_timeout_secs"`
	WriteTimeout     time.Duration `toml:"-"`
	ReadTimeout      time.Duration `toml:"-"`
}

// Config is the top-level demo configuration file shape (config.toml).
type Config struct {
	Buffer BufferConfig `toml:"buffer"`
}

// defaults mirror spec.md's DefaultWriteTimeout and a generous read poll
// interval; applied to any zero field left unset in the TOML file.
func (c *Config) applyDefaults() {
	if c.Buffer.Name == "" {
		c.Buffer.Name = "zerobuffer-demo"
	}
	if c.Buffer.MetadataSize == 0 {
		c.Buffer.MetadataSize = 1024
	}
	if c.Buffer.PayloadSize == 0 {
		c.Buffer.PayloadSize = 4 << 20
	}
	if c.Buffer.WriteTimeoutSecs == 0 {
		c.Buffer.WriteTimeoutSecs = 5
	}
	if c.Buffer.ReadTimeoutSecs == 0 {
		c.Buffer.ReadTimeoutSecs = 5
	}
	c.Buffer.WriteTimeout = time.Duration(c.Buffer.WriteTimeoutSecs * float64(time.Second))
	c.Buffer.ReadTimeout = time.Duration(c.Buffer.ReadTimeoutSecs * float64(time.Second))
}

// Load reads path as a TOML config file, first seeding the process
// environment from a .env file in the current working directory if present
// (best-effort, same as
// the teacher's reliance on godotenv ahead of config parsing). The
// environment variable ZEROBUFFER_NAME overrides whatever buffer name the
// file sets, matching the teacher's "env var overrides default path" idiom
// in main.go.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	var c Config
	if b, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if name := os.Getenv("ZEROBUFFER_NAME"); name != "" {
		c.Buffer.Name = name
	}
	c.applyDefaults()
	return &c, nil
}
