// FILE: src/chronicle/chronicle.go

// Package chronicle is a structured recording SDK. A Logger produces
// timestamped records (log messages, scalar metrics, images, documents)
// addressed by hierarchical entity paths, and distributes them through a
// recording stream to configured sinks: a compressed recording file, an
// embedded live viewer stream, or a remote collector.
package chronicle

import (
	"chronicle/src/internal/config"
	"chronicle/src/internal/stream"
)

// Config controls a Logger's sinks and behavior. Zero values fall back
// to defaults, see DefaultConfig.
type Config = config.Config

// Stats describes activity on a logger's recording stream
type Stats = stream.Stats

// DefaultConfig returns the built-in configuration: enabled, no file
// persistence, no viewer, no forwarding.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig builds a Config from defaults, the chronicle.toml config
// file, CHRONICLE_ environment variables and CLI arguments, in ascending
// precedence.
func LoadConfig(cliArgs []string) (*Config, error) {
	return config.Load(cliArgs)
}
