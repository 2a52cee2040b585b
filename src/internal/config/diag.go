// FILE: src/internal/config/diag.go
package config

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/log"
)

// NewDiagLogger builds chronicle's internal diagnostic logger from a
// LogConfig. Records produced by the SDK never pass through this logger,
// it only reports on the pipeline itself.
func NewDiagLogger(cfg *LogConfig) (*log.Logger, error) {
	logger := log.NewLogger()

	var configArgs []string

	levelValue, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch cfg.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_console=false")

	case "stdout":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_console=true",
			"console_target=stdout")

	case "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_console=true",
			"console_target=stderr")

	case "file":
		configArgs = append(configArgs, "enable_console=false")
		configureFileLogging(&configArgs, cfg)

	case "both":
		configArgs = append(configArgs, "enable_console=true")
		configureFileLogging(&configArgs, cfg)
		configArgs = append(configArgs,
			fmt.Sprintf("console_target=%s", consoleTarget(cfg)))

	default:
		return nil, fmt.Errorf("invalid log output mode: %s", cfg.Output)
	}

	if err := logger.ApplyConfigString(configArgs...); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}

// NewSilentLogger returns an initialized logger that discards everything,
// used by disabled SDK instances and tests
func NewSilentLogger() *log.Logger {
	logger := log.NewLogger()
	// Init cannot fail with these static options
	_ = logger.ApplyConfigString(
		"disable_file=true",
		"enable_console=false",
		"level=255")
	return logger
}

func configureFileLogging(configArgs *[]string, cfg *LogConfig) {
	*configArgs = append(*configArgs,
		fmt.Sprintf("directory=%s", cfg.File.Directory),
		fmt.Sprintf("name=%s", cfg.File.Name),
		fmt.Sprintf("max_size_mb=%d", cfg.File.MaxSizeMB),
		fmt.Sprintf("max_total_size_mb=%d", cfg.File.MaxTotalSizeMB))

	if cfg.File.RetentionHours > 0 {
		*configArgs = append(*configArgs,
			fmt.Sprintf("retention_period_hrs=%.1f", cfg.File.RetentionHours))
	}
}

func consoleTarget(cfg *LogConfig) string {
	if cfg.Console.Target != "" {
		return cfg.Console.Target
	}
	return "stderr"
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
