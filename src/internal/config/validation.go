// FILE: src/internal/config/validation.go
package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

func (c *Config) Validate() error {
	if c.ApplicationID == "" {
		return fmt.Errorf("application_id must not be empty")
	}

	if strings.Contains(c.SavePath, "..") {
		return fmt.Errorf("save_path contains directory traversal: %s", c.SavePath)
	}

	if c.Stream.BufferSize < 1 {
		return fmt.Errorf("stream buffer size must be positive: %d", c.Stream.BufferSize)
	}
	if c.Stream.RateLimit < 0 {
		return fmt.Errorf("stream rate limit must not be negative: %f", c.Stream.RateLimit)
	}

	if err := validateFilterOptions(&c.Filter); err != nil {
		return err
	}

	if c.File.BatchSize < 1 {
		return fmt.Errorf("file batch size must be positive: %d", c.File.BatchSize)
	}
	if c.File.FlushIntervalMs < 1 {
		return fmt.Errorf("file flush interval must be positive: %d ms", c.File.FlushIntervalMs)
	}

	if c.SpawnViewer {
		if c.Viewer.Port < 1 || c.Viewer.Port > 65535 {
			return fmt.Errorf("invalid viewer port: %d", c.Viewer.Port)
		}
		if c.Viewer.BufferSize < 1 {
			return fmt.Errorf("viewer buffer size must be positive: %d", c.Viewer.BufferSize)
		}
		if !strings.HasPrefix(c.Viewer.StreamPath, "/") {
			return fmt.Errorf("viewer stream path must start with '/': %s", c.Viewer.StreamPath)
		}
		if !strings.HasPrefix(c.Viewer.StatusPath, "/") {
			return fmt.Errorf("viewer status path must start with '/': %s", c.Viewer.StatusPath)
		}
		if c.Viewer.Heartbeat.Enabled && c.Viewer.Heartbeat.IntervalSeconds < 1 {
			return fmt.Errorf("viewer heartbeat interval must be positive: %d", c.Viewer.Heartbeat.IntervalSeconds)
		}
	}

	if c.Forward.Address != "" {
		if _, _, err := net.SplitHostPort(c.Forward.Address); err != nil {
			return fmt.Errorf("invalid forward address (expected host:port): %w", err)
		}
		if c.Forward.ReconnectBackoff < 1.0 {
			return fmt.Errorf("forward reconnect backoff must be >= 1.0: %f", c.Forward.ReconnectBackoff)
		}
	}

	if c.Collector.Port < 1 || c.Collector.Port > 65535 {
		return fmt.Errorf("invalid collector port: %d", c.Collector.Port)
	}
	if c.Collector.BufferSize < 1 {
		return fmt.Errorf("collector buffer size must be positive: %d", c.Collector.BufferSize)
	}

	return validateLogConfig(&c.Logging)
}

func validateFilterOptions(f *FilterOptions) error {
	if len(f.Patterns) == 0 {
		return nil
	}

	switch f.Type {
	case "", FilterTypeInclude, FilterTypeExclude:
	default:
		return fmt.Errorf("invalid filter type: %s (valid: include, exclude)", f.Type)
	}

	switch f.Logic {
	case "", FilterLogicOr, FilterLogicAnd:
	default:
		return fmt.Errorf("invalid filter logic: %s (valid: or, and)", f.Logic)
	}

	for i, pattern := range f.Patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid filter pattern[%d] '%s': %w", i, pattern, err)
		}
	}

	return nil
}
