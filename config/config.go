// Package config defines the YAML-bound configuration for a sensord
// engine instance: which adaptors read which sysfs paths, and which
// channels expose them to sessions.
//
// Grounded in modules/route/coordinator/cfg.go's Config/DefaultConfig
// shape and controlplane/cmd/bird-adapter/server.go's ServerConfig
// load-from-path pattern.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sensord-project/sensord/internal/logging"
)

// Config is the top-level configuration for the sensord daemon.
type Config struct {
	Logging  logging.Config  `yaml:"logging"`
	Adaptors []AdaptorConfig `yaml:"adaptors"`
	Channels []ChannelConfig `yaml:"channels"`
}

// AdaptorConfig describes one SysfsAdaptor: its poll mode and the set of
// device files it reads.
type AdaptorConfig struct {
	// Name identifies the adaptor for channel wiring.
	Name string `yaml:"name"`
	// Mode is "select" or "interval".
	Mode string `yaml:"mode"`
	// IntervalMs is the poll period for "interval" mode, and the poll
	// timeout ceiling for "select" mode.
	IntervalMs uint32 `yaml:"interval_ms"`
	// Seek re-reads the file from offset 0 before every sample, required
	// for sysfs attribute files that do not support repeated streaming
	// reads.
	Seek bool `yaml:"seek"`
	// MaxOpenAttempts bounds the exponential-backoff open retry budget;
	// 0 or 1 means "try once".
	MaxOpenAttempts uint `yaml:"max_open_attempts"`
	// Paths are the monitored files, each a literal path or glob pattern.
	Paths []PathConfig `yaml:"paths"`
}

// PathConfig names one monitored file and the path id ProcessSample sees.
type PathConfig struct {
	Path   string `yaml:"path"`
	PathID int    `yaml:"path_id"`
}

// ChannelConfig describes one sensor channel: the adaptor feeding it, the
// ring buffer sizing, and descriptive metadata.
type ChannelConfig struct {
	Name string `yaml:"name"`
	// Adaptor is the AdaptorConfig.Name this channel reads from.
	Adaptor string `yaml:"adaptor"`
	// PathID selects which of the adaptor's monitored files feeds this
	// channel (an adaptor may serve several channels, e.g. one per axis).
	PathID int `yaml:"path_id"`
	// RingBufferSize is a byte-size string (e.g. "4KB") converted to a
	// sample-element capacity.
	RingBufferSize string `yaml:"ring_buffer_size"`
	// Description is the human-readable sensor description exposed as a
	// channel property.
	Description string `yaml:"description"`
	// Kind selects the filter chain feeding the channel's current value:
	// "scalar" (default) reads a bare integer straight into the channel,
	// "pose" reads an "x,y,z" vector through a coordinate-alignment filter
	// into an orientation interpreter, exposing a discrete Pose.
	Kind string `yaml:"kind"`
	// OrientationThresholdMg is the orientation interpreter's minimum
	// dominant-axis magnitude in mG; only meaningful when Kind is "pose".
	OrientationThresholdMg int32 `yaml:"orientation_threshold_mg"`
}

// DefaultConfig returns a Config with sensible defaults and no adaptors or
// channels configured.
func DefaultConfig() *Config {
	return &Config{
		Logging: *logging.DefaultConfig(),
	}
}

// Load reads and parses a YAML configuration file at path.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to deserialize config: %w", err)
	}
	return cfg, nil
}
