// FILE: src/internal/format/format.go
package format

import (
	"fmt"

	"chronicle/src/internal/record"

	"github.com/lixenwraith/log"
)

// Formatter defines the interface for transforming a Record into a byte slice.
type Formatter interface {
	// Format takes a Record and returns the formatted output as a byte slice.
	Format(rec record.Record) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// New creates a new Formatter by type name.
func New(name string, options map[string]any, logger *log.Logger) (Formatter, error) {
	// Default to json if no format specified
	if name == "" {
		name = "json"
	}

	switch name {
	case "json":
		return NewJSONFormatter(options, logger)
	case "text":
		return NewTextFormatter(options, logger)
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", name)
	}
}
