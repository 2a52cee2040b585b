// FILE: src/internal/collector/parse.go
package collector

import (
	"encoding/base64"
	"fmt"
	"time"

	"chronicle/src/internal/record"

	"github.com/valyala/fastjson"
)

// parseRecord decodes one NDJSON line into a Record. The parser is owned
// by the calling connection and must not be shared.
func parseRecord(p *fastjson.Parser, line []byte) (record.Record, error) {
	var rec record.Record

	v, err := p.ParseBytes(line)
	if err != nil {
		return rec, fmt.Errorf("invalid JSON: %w", err)
	}

	rec.Entity = string(v.GetStringBytes("entity"))
	rec.Kind = record.Kind(v.GetStringBytes("kind"))

	if ts := v.GetStringBytes("time"); len(ts) > 0 {
		parsed, err := time.Parse(time.RFC3339Nano, string(ts))
		if err != nil {
			return rec, fmt.Errorf("invalid timestamp: %w", err)
		}
		rec.Time = parsed
	} else {
		rec.Time = time.Now()
	}

	if tl := v.GetObject("timelines"); tl != nil {
		rec.Timelines = make(map[string]record.TimePoint)
		var visitErr error
		tl.Visit(func(key []byte, value *fastjson.Value) {
			point := record.TimePoint{
				Kind: record.TimelineKind(value.GetStringBytes("kind")),
			}
			switch point.Kind {
			case record.TimelineSequence:
				point.Sequence = value.GetInt64("sequence")
			case record.TimelineSeconds:
				point.Seconds = value.GetFloat64("seconds")
			default:
				visitErr = fmt.Errorf("unknown timeline kind on %q", key)
				return
			}
			rec.Timelines[string(key)] = point
		})
		if visitErr != nil {
			return rec, visitErr
		}
	}

	switch {
	case rec.Kind == record.KindText && v.Exists("text"):
		rec.Text = &record.TextPayload{
			Message: string(v.GetStringBytes("text", "message")),
			Level:   string(v.GetStringBytes("text", "level")),
		}
	case rec.Kind == record.KindScalar && v.Exists("scalar"):
		rec.Scalar = &record.ScalarPayload{
			Value: v.GetFloat64("scalar", "value"),
		}
	case rec.Kind == record.KindImage && v.Exists("image"):
		data, err := base64.StdEncoding.DecodeString(string(v.GetStringBytes("image", "data")))
		if err != nil {
			return rec, fmt.Errorf("invalid image data: %w", err)
		}
		rec.Image = &record.ImagePayload{
			Width:    v.GetInt("image", "width"),
			Height:   v.GetInt("image", "height"),
			Channels: v.GetInt("image", "channels"),
			Encoding: string(v.GetStringBytes("image", "encoding")),
			Data:     data,
		}
	case rec.Kind == record.KindDocument && v.Exists("document"):
		rec.Document = &record.DocumentPayload{
			Body:      string(v.GetStringBytes("document", "body")),
			MediaType: string(v.GetStringBytes("document", "media_type")),
		}
	}

	if err := rec.Validate(); err != nil {
		return rec, err
	}

	return rec, nil
}
