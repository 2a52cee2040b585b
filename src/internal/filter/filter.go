// FILE: src/internal/filter/filter.go
package filter

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"chronicle/src/internal/config"

	"github.com/lixenwraith/log"
)

// Filter applies regex-based filtering to entity paths
type Filter struct {
	cfg      config.FilterOptions
	patterns []*regexp.Regexp
	logger   *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalMatched   atomic.Uint64
	totalDropped   atomic.Uint64
}

// New creates a filter from configuration. A nil result with nil error
// means filtering is disabled.
func New(cfg config.FilterOptions, logger *log.Logger) (*Filter, error) {
	if len(cfg.Patterns) == 0 {
		return nil, nil
	}

	// Set defaults
	if cfg.Type == "" {
		cfg.Type = config.FilterTypeInclude
	}
	if cfg.Logic == "" {
		cfg.Logic = config.FilterLogicOr
	}

	f := &Filter{
		cfg:      cfg,
		patterns: make([]*regexp.Regexp, 0, len(cfg.Patterns)),
		logger:   logger,
	}

	for i, pattern := range cfg.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern[%d] '%s': %w", i, pattern, err)
		}
		f.patterns = append(f.patterns, re)
	}

	logger.Debug("msg", "Entity filter created",
		"component", "filter",
		"type", cfg.Type,
		"logic", cfg.Logic,
		"pattern_count", len(cfg.Patterns))

	return f, nil
}

// Allow checks if a record with this entity path should pass through
func (f *Filter) Allow(entity string) bool {
	f.totalProcessed.Add(1)

	matched := f.matches(entity)
	if matched {
		f.totalMatched.Add(1)
	}

	shouldPass := false
	switch f.cfg.Type {
	case config.FilterTypeInclude:
		shouldPass = matched
	case config.FilterTypeExclude:
		shouldPass = !matched
	}

	if !shouldPass {
		f.totalDropped.Add(1)
	}

	return shouldPass
}

// matches checks the entity against the patterns according to the logic
func (f *Filter) matches(entity string) bool {
	switch f.cfg.Logic {
	case config.FilterLogicOr:
		// Match any pattern
		for _, re := range f.patterns {
			if re.MatchString(entity) {
				return true
			}
		}
		return false

	case config.FilterLogicAnd:
		// Must match all patterns
		for _, re := range f.patterns {
			if !re.MatchString(entity) {
				return false
			}
		}
		return true

	default:
		// Shouldn't happen after validation
		f.logger.Warn("msg", "Unknown filter logic",
			"component", "filter",
			"logic", f.cfg.Logic)
		return false
	}
}

// GetStats returns filter statistics
func (f *Filter) GetStats() map[string]any {
	return map[string]any{
		"type":            f.cfg.Type,
		"logic":           f.cfg.Logic,
		"pattern_count":   len(f.patterns),
		"total_processed": f.totalProcessed.Load(),
		"total_matched":   f.totalMatched.Load(),
		"total_dropped":   f.totalDropped.Load(),
	}
}
