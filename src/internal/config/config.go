// FILE: src/internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

type Config struct {
	// Unique identifier for the application producing records
	ApplicationID string `toml:"application_id"`

	// Optional prefix applied to every entity path
	EntityPrefix string `toml:"entity_prefix"`

	// When false, all logging calls become no-ops and no sink is started
	Enabled bool `toml:"enabled"`

	// Recording file destination, empty disables file persistence
	SavePath string `toml:"save_path"`

	// Start the embedded viewer stream server
	SpawnViewer bool `toml:"spawn_viewer"`

	Stream    StreamOptions    `toml:"stream"`
	Filter    FilterOptions    `toml:"filter"`
	File      FileSinkOptions  `toml:"file"`
	Viewer    ViewerOptions    `toml:"viewer"`
	Forward   ForwardOptions   `toml:"forward"`
	Collector CollectorOptions `toml:"collector"`
	Logging   LogConfig        `toml:"logging"`
}

// Filter type constants
const (
	FilterTypeInclude = "include"
	FilterTypeExclude = "exclude"
)

// Filter logic constants
const (
	FilterLogicOr  = "or"
	FilterLogicAnd = "and"
)

// FilterOptions selects records by entity path before distribution.
// No patterns means every record passes.
type FilterOptions struct {
	// "include" keeps matching records, "exclude" drops them
	Type string `toml:"type"`

	// "or" passes on any pattern match, "and" requires all
	Logic string `toml:"logic"`

	// Regular expressions matched against the full entity path
	Patterns []string `toml:"patterns"`
}

type StreamOptions struct {
	BufferSize int64 `toml:"buffer_size"`

	// Records per second accepted into the stream, 0 = unlimited
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int64   `toml:"rate_burst"`
}

type FileSinkOptions struct {
	// Records per compressed frame
	BatchSize int64 `toml:"batch_size"`

	// Interval between forced flushes of a partial batch
	FlushIntervalMs int64 `toml:"flush_interval_ms"`

	BufferSize int64 `toml:"buffer_size"`
}

type ViewerOptions struct {
	Host           string `toml:"host"`
	Port           int64  `toml:"port"`
	StreamPath     string `toml:"stream_path"`
	StatusPath     string `toml:"status_path"`
	BufferSize     int64  `toml:"buffer_size"`
	WriteTimeoutMs int64  `toml:"write_timeout_ms"`

	Heartbeat HeartbeatOptions `toml:"heartbeat"`
	Auth      ViewerAuthConfig `toml:"auth"`
}

type HeartbeatOptions struct {
	Enabled         bool  `toml:"enabled"`
	IntervalSeconds int64 `toml:"interval_seconds"`
}

type ViewerAuthConfig struct {
	// Static bearer token compared in constant time, empty disables auth
	Token string `toml:"token"`

	// HMAC secret for JWT bearer tokens, takes precedence over Token
	JWTSecret string `toml:"jwt_secret"`
}

type ForwardOptions struct {
	// Remote collector endpoint (host:port), empty disables forwarding
	Address string `toml:"address"`

	BufferSize          int64 `toml:"buffer_size"`
	DialTimeoutSeconds  int64 `toml:"dial_timeout_seconds"`
	WriteTimeoutSeconds int64 `toml:"write_timeout_seconds"`

	// Reconnection settings
	ReconnectDelayMs         int64   `toml:"reconnect_delay_ms"`
	MaxReconnectDelaySeconds int64   `toml:"max_reconnect_delay_seconds"`
	ReconnectBackoff         float64 `toml:"reconnect_backoff"`
}

type CollectorOptions struct {
	Host       string `toml:"host"`
	Port       int64  `toml:"port"`
	BufferSize int64  `toml:"buffer_size"`

	// Recording file the collector persists received records into
	SavePath string `toml:"save_path"`
}

func defaults() *Config {
	return &Config{
		ApplicationID: "chronicle",
		Enabled:       true,
		SpawnViewer:   false,
		Stream: StreamOptions{
			BufferSize: 1000,
		},
		File: FileSinkOptions{
			BatchSize:       256,
			FlushIntervalMs: 1000,
			BufferSize:      1000,
		},
		Viewer: ViewerOptions{
			Host:           "127.0.0.1",
			Port:           9876,
			StreamPath:     "/stream",
			StatusPath:     "/status",
			BufferSize:     1000,
			WriteTimeoutMs: 30000,
			Heartbeat: HeartbeatOptions{
				Enabled:         true,
				IntervalSeconds: 30,
			},
		},
		Forward: ForwardOptions{
			BufferSize:               1000,
			DialTimeoutSeconds:       10,
			WriteTimeoutSeconds:      30,
			ReconnectDelayMs:         1000,
			MaxReconnectDelaySeconds: 30,
			ReconnectBackoff:         1.5,
		},
		Collector: CollectorOptions{
			Host:       "0.0.0.0",
			Port:       9877,
			BufferSize: 1000,
			SavePath:   "chronicle.chron",
		},
		Logging: *DefaultLogConfig(),
	}
}

// Default returns the built-in configuration, used when no file,
// environment or CLI overrides are present
func Default() *Config {
	return defaults()
}

// Load builds the configuration from defaults, config file, environment
// and CLI arguments, in ascending precedence. A missing config file is
// not an error: defaults apply.
func Load(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("CHRONICLE_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, finalConfig.Validate()
}

func GetConfigPath() string {
	if configFile := os.Getenv("CHRONICLE_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("CHRONICLE_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("CHRONICLE_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "chronicle.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "chronicle.toml")
	}

	return "chronicle.toml"
}
