// FILE: src/internal/format/json.go
package format

import (
	"encoding/json"
	"fmt"

	"chronicle/src/internal/record"

	"github.com/lixenwraith/log"
)

// JSONFormatter produces one JSON object per record, newline-delimited.
// This is the wire format used by the forward sink and the viewer stream.
type JSONFormatter struct {
	pretty bool
	logger *log.Logger
}

// NewJSONFormatter creates a new JSON formatter from options.
func NewJSONFormatter(options map[string]any, logger *log.Logger) (*JSONFormatter, error) {
	f := &JSONFormatter{
		logger: logger,
	}

	if pretty, ok := options["pretty"].(bool); ok {
		f.pretty = pretty
	}

	return f, nil
}

// Format transforms a single Record into a JSON byte slice.
func (f *JSONFormatter) Format(rec record.Record) ([]byte, error) {
	var result []byte
	var err error

	if f.pretty {
		result, err = json.MarshalIndent(rec, "", "  ")
	} else {
		result, err = json.Marshal(rec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	return append(result, '\n'), nil
}

// Name returns the formatter's type name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// FormatBatch transforms a slice of records into newline-delimited JSON.
func (f *JSONFormatter) FormatBatch(recs []record.Record) ([]byte, error) {
	var out []byte
	for _, rec := range recs {
		formatted, err := f.Format(rec)
		if err != nil {
			f.logger.Warn("msg", "Failed to format record in batch",
				"component", "json_formatter",
				"error", err)
			continue
		}
		out = append(out, formatted...)
	}
	return out, nil
}
