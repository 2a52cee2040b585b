// FILE: src/chronicle/batch.go
package chronicle

import (
	"image"
	"sync"
	"time"

	"chronicle/src/internal/record"
)

// Batch accumulates records and submits them to the stream as one unit.
// Timestamps and timeline snapshots are captured when a record is added,
// not when the batch is flushed.
type Batch struct {
	logger *Logger

	mu      sync.Mutex
	pending []record.Record
}

// Batch starts a new record batch on this logger
func (l *Logger) Batch() *Batch {
	return &Batch{logger: l}
}

func (b *Batch) Debug(message string)    { b.addText("debug", record.LevelDebug, message) }
func (b *Batch) Info(message string)     { b.addText("info", record.LevelInfo, message) }
func (b *Batch) Warning(message string)  { b.addText("warning", record.LevelWarn, message) }
func (b *Batch) Error(message string)    { b.addText("error", record.LevelError, message) }
func (b *Batch) Critical(message string) { b.addText("critical", record.LevelCritical, message) }

func (b *Batch) LogScalar(path string, value float64, step ...int64) {
	if !b.logger.Enabled() {
		return
	}
	b.logger.applyStep(step)
	b.add(record.Record{
		Entity: record.JoinPath(b.logger.prefix, path),
		Kind:   record.KindScalar,
		Scalar: &record.ScalarPayload{Value: value},
	})
}

func (b *Batch) LogImage(path string, img image.Image, step ...int64) {
	if !b.logger.Enabled() {
		return
	}
	b.logger.applyStep(step)
	if rec, ok := b.logger.encodeImage(path, img); ok {
		b.add(rec)
	}
}

func (b *Batch) LogImageBytes(path string, width, height, channels int, data []byte, step ...int64) {
	if !b.logger.Enabled() {
		return
	}
	b.logger.applyStep(step)
	b.add(record.Record{
		Entity: record.JoinPath(b.logger.prefix, path),
		Kind:   record.KindImage,
		Image: &record.ImagePayload{
			Width:    width,
			Height:   height,
			Channels: channels,
			Encoding: "raw",
			Data:     data,
		},
	})
}

func (b *Batch) LogDict(path string, dict map[string]any, step ...int64) {
	if !b.logger.Enabled() {
		return
	}
	b.logger.applyStep(step)
	b.add(record.Record{
		Entity:   record.JoinPath(b.logger.prefix, path),
		Kind:     record.KindDocument,
		Document: documentPayload(dict),
	})
}

// Len returns the number of buffered records
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush publishes the buffered records in call order and clears the
// batch. Returns the number of records accepted by the stream.
func (b *Batch) Flush() int {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(pending) == 0 || !b.logger.Enabled() {
		return 0
	}
	return b.logger.core.stream.PublishBatch(pending)
}

// Close flushes any remaining records
func (b *Batch) Close() error {
	b.Flush()
	return nil
}

func (b *Batch) addText(segment, level, message string) {
	if !b.logger.Enabled() {
		return
	}
	b.add(record.Record{
		Entity: record.JoinPath(b.logger.prefix, "logs", segment),
		Kind:   record.KindText,
		Text:   &record.TextPayload{Message: message, Level: level},
	})
}

func (b *Batch) add(rec record.Record) {
	rec.Time = time.Now()
	rec.Timelines = b.logger.core.clock.Snapshot()

	if err := rec.Validate(); err != nil {
		b.logger.core.diag.Warn("msg", "Invalid record dropped from batch",
			"entity", rec.Entity,
			"kind", rec.Kind,
			"error", err)
		return
	}

	b.mu.Lock()
	b.pending = append(b.pending, rec)
	b.mu.Unlock()
}
