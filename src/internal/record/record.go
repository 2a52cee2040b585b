// FILE: src/internal/record/record.go
package record

import (
	"time"
)

// Kind identifies the payload type carried by a record
type Kind string

const (
	KindText     Kind = "text"
	KindScalar   Kind = "scalar"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

// Severity levels for text records
const (
	LevelDebug    = "DEBUG"
	LevelInfo     = "INFO"
	LevelWarn     = "WARN"
	LevelError    = "ERROR"
	LevelCritical = "CRITICAL"
)

// TimelineKind distinguishes sequence indices from wall-clock axes
type TimelineKind string

const (
	TimelineSequence TimelineKind = "sequence"
	TimelineSeconds  TimelineKind = "seconds"
)

// TimePoint is a single position on a named timeline
type TimePoint struct {
	Kind     TimelineKind `json:"kind"`
	Sequence int64        `json:"sequence,omitempty"`
	Seconds  float64      `json:"seconds,omitempty"`
}

// Represents a single record flowing through the recording stream
type Record struct {
	Time      time.Time            `json:"time"`
	Entity    string               `json:"entity"`
	Kind      Kind                 `json:"kind"`
	Timelines map[string]TimePoint `json:"timelines,omitempty"`

	Text     *TextPayload     `json:"text,omitempty"`
	Scalar   *ScalarPayload   `json:"scalar,omitempty"`
	Image    *ImagePayload    `json:"image,omitempty"`
	Document *DocumentPayload `json:"document,omitempty"`
}

// TextPayload carries a leveled log message
type TextPayload struct {
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
}

// ScalarPayload carries a single metric sample
type ScalarPayload struct {
	Value float64 `json:"value"`
}

// ImagePayload carries image data, either raw interleaved channels
// or a stdlib-encoded format
type ImagePayload struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels,omitempty"`
	Encoding string `json:"encoding"` // "raw" or "png"
	Data     []byte `json:"data"`
}

// DocumentPayload carries structured text content
type DocumentPayload struct {
	Body      string `json:"body"`
	MediaType string `json:"media_type"`
}

// Validate checks structural integrity of a record
func (r *Record) Validate() error {
	if err := ValidatePath(r.Entity); err != nil {
		return err
	}

	switch r.Kind {
	case KindText:
		if r.Text == nil || r.Text.Message == "" {
			return ErrEmptyPayload
		}
	case KindScalar:
		if r.Scalar == nil {
			return ErrEmptyPayload
		}
	case KindImage:
		if r.Image == nil || len(r.Image.Data) == 0 {
			return ErrEmptyPayload
		}
	case KindDocument:
		if r.Document == nil || r.Document.Body == "" {
			return ErrEmptyPayload
		}
	default:
		return ErrUnknownKind
	}

	return nil
}
