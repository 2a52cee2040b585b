// FILE: src/internal/format/text.go
package format

import (
	"bytes"
	"fmt"
	"sort"

	"chronicle/src/internal/record"

	"github.com/lixenwraith/log"
)

const defaultTimestampFormat = "2006-01-02 15:04:05.000"

// TextFormatter produces human-readable one-line summaries of records,
// used by the CLI cat command and console output.
type TextFormatter struct {
	timestampFormat string
	logger          *log.Logger
}

// NewTextFormatter creates a new text formatter from options.
func NewTextFormatter(options map[string]any, logger *log.Logger) (*TextFormatter, error) {
	f := &TextFormatter{
		timestampFormat: defaultTimestampFormat,
		logger:          logger,
	}

	if tsFormat, ok := options["timestamp_format"].(string); ok && tsFormat != "" {
		f.timestampFormat = tsFormat
	}

	return f, nil
}

// Format renders a record as a single human-readable line.
func (f *TextFormatter) Format(rec record.Record) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "[%s] %-24s", rec.Time.Format(f.timestampFormat), rec.Entity)

	switch {
	case rec.Kind == record.KindText && rec.Text != nil:
		level := rec.Text.Level
		if level == "" {
			level = record.LevelInfo
		}
		fmt.Fprintf(&buf, " %-8s %s", level, rec.Text.Message)
	case rec.Kind == record.KindScalar && rec.Scalar != nil:
		fmt.Fprintf(&buf, " scalar   %g", rec.Scalar.Value)
	case rec.Kind == record.KindImage && rec.Image != nil:
		fmt.Fprintf(&buf, " image    %dx%d %s (%d bytes)",
			rec.Image.Width, rec.Image.Height, rec.Image.Encoding, len(rec.Image.Data))
	case rec.Kind == record.KindDocument && rec.Document != nil:
		fmt.Fprintf(&buf, " document %s (%d bytes)", rec.Document.MediaType, len(rec.Document.Body))
	default:
		fmt.Fprintf(&buf, " %s", rec.Kind)
	}

	if len(rec.Timelines) > 0 {
		names := make([]string, 0, len(rec.Timelines))
		for name := range rec.Timelines {
			names = append(names, name)
		}
		sort.Strings(names)

		buf.WriteString("  {")
		for i, name := range names {
			if i > 0 {
				buf.WriteString(", ")
			}
			point := rec.Timelines[name]
			if point.Kind == record.TimelineSequence {
				fmt.Fprintf(&buf, "%s=%d", name, point.Sequence)
			} else {
				fmt.Fprintf(&buf, "%s=%gs", name, point.Seconds)
			}
		}
		buf.WriteString("}")
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Name returns the formatter's type name.
func (f *TextFormatter) Name() string {
	return "text"
}
