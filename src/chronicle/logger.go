// FILE: src/chronicle/logger.go
package chronicle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"time"

	"chronicle/src/internal/config"
	"chronicle/src/internal/filter"
	"chronicle/src/internal/record"
	"chronicle/src/internal/sink"
	"chronicle/src/internal/stream"
	"chronicle/src/internal/timeline"

	"github.com/lixenwraith/log"
)

// Logger is the client handle for producing records. It is safe for
// concurrent use. Derived loggers from Context share the underlying
// stream, sinks and timeline clock.
type Logger struct {
	core   *core
	prefix string
}

// Shared between a root logger and all loggers derived from it
type core struct {
	applicationID string
	enabled       bool

	clock  *timeline.Clock
	stream *stream.Stream
	sinks  []sink.Sink
	diag   *log.Logger

	cancel context.CancelFunc
	pumpWg sync.WaitGroup
	closed atomic.Bool

	ownsDiag bool
}

// New creates a Logger for an application. A nil cfg uses DefaultConfig.
// Sinks are selected by the configuration: SavePath enables file
// persistence, SpawnViewer starts the embedded viewer stream server,
// Forward.Address enables forwarding to a remote collector.
func New(applicationID string, cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// Work on a copy so the caller's struct is never mutated
	cfgCopy := *cfg
	if applicationID != "" {
		cfgCopy.ApplicationID = applicationID
	}
	if err := cfgCopy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &core{
		applicationID: cfgCopy.ApplicationID,
		enabled:       cfgCopy.Enabled,
		clock:         timeline.NewClock(),
	}

	root := &Logger{core: c, prefix: cfgCopy.EntityPrefix}

	// A disabled logger carries no stream and starts no sinks
	if !c.enabled {
		c.diag = config.NewSilentLogger()
		return root, nil
	}

	diag, err := config.NewDiagLogger(&cfgCopy.Logging)
	if err != nil {
		return nil, err
	}
	c.diag = diag
	c.ownsDiag = true

	entityFilter, err := filter.New(cfgCopy.Filter, diag)
	if err != nil {
		diag.Shutdown(time.Second)
		return nil, err
	}

	c.stream = stream.New(cfgCopy.ApplicationID, stream.Options{
		BufferSize: int(cfgCopy.Stream.BufferSize),
		RateLimit:  cfgCopy.Stream.RateLimit,
		RateBurst:  int(cfgCopy.Stream.RateBurst),
		Filter:     entityFilter,
	}, diag)

	if err := c.buildSinks(&cfgCopy); err != nil {
		diag.Shutdown(time.Second)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	for _, s := range c.sinks {
		if err := s.Start(ctx); err != nil {
			c.teardown()
			return nil, fmt.Errorf("failed to start sink: %w", err)
		}
		c.attach(s)
	}

	diag.Info("msg", "Chronicle logger started",
		"application_id", c.applicationID,
		"sinks", len(c.sinks))

	return root, nil
}

func (c *core) buildSinks(cfg *config.Config) error {
	if cfg.SavePath != "" {
		fs, err := sink.NewFileSink(cfg.SavePath, c.applicationID, cfg.File, c.diag)
		if err != nil {
			return err
		}
		c.sinks = append(c.sinks, fs)
	}

	if cfg.SpawnViewer {
		vs, err := sink.NewViewerSink(c.applicationID, &cfg.Viewer, c.diag)
		if err != nil {
			return err
		}
		c.sinks = append(c.sinks, vs)
	}

	if cfg.Forward.Address != "" {
		fwd, err := sink.NewForwardSink(cfg.Forward, c.diag)
		if err != nil {
			return err
		}
		c.sinks = append(c.sinks, fwd)
	}

	return nil
}

// attach pumps the stream subscription into the sink's input channel.
// The pump exits when the stream closes its subscriber channels.
func (c *core) attach(s sink.Sink) {
	sub := c.stream.Subscribe()
	in := s.Input()

	c.pumpWg.Add(1)
	go func() {
		defer c.pumpWg.Done()
		for rec := range sub {
			in <- rec
		}
	}()
}

func (c *core) teardown() {
	if c.stream != nil {
		c.stream.Close()
	}
	c.pumpWg.Wait()
	for _, s := range c.sinks {
		s.Stop()
	}
	if c.cancel != nil {
		c.cancel()
	}
	if c.ownsDiag {
		c.diag.Shutdown(2 * time.Second)
	}
}

// ApplicationID returns the application this logger records for
func (l *Logger) ApplicationID() string {
	return l.core.applicationID
}

// Enabled reports whether the logger produces records
func (l *Logger) Enabled() bool {
	return l.core.enabled && !l.core.closed.Load()
}

// Close flushes and stops all sinks. Closing a derived logger closes
// the shared pipeline. Further log calls become no-ops.
func (l *Logger) Close() error {
	if !l.core.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !l.core.enabled {
		return nil
	}

	l.core.diag.Info("msg", "Chronicle logger closing",
		"application_id", l.core.applicationID)
	l.core.teardown()
	return nil
}

// Context returns a derived logger whose records are namespaced under
// the given path prefix. The derived logger shares the stream, sinks
// and timeline clock of its parent.
func (l *Logger) Context(prefix string) *Logger {
	return &Logger{
		core:   l.core,
		prefix: record.JoinPath(l.prefix, prefix),
	}
}

// SetTimeSequence sets a sequence timeline point. All subsequent records
// carry the new value until it is set again.
func (l *Logger) SetTimeSequence(timelineName string, step int64) {
	if !l.Enabled() {
		return
	}
	l.core.clock.SetSequence(timelineName, step)
}

// SetTimeSeconds sets a seconds timeline point
func (l *Logger) SetTimeSeconds(timelineName string, secs float64) {
	if !l.Enabled() {
		return
	}
	l.core.clock.SetSeconds(timelineName, secs)
}

// ResetTime removes a timeline so subsequent records no longer carry it
func (l *Logger) ResetTime(timelineName string) {
	if !l.Enabled() {
		return
	}
	l.core.clock.Reset(timelineName)
}

// Debug records a DEBUG text message under logs/debug
func (l *Logger) Debug(message string) {
	l.logText("debug", record.LevelDebug, message)
}

// Info records an INFO text message under logs/info
func (l *Logger) Info(message string) {
	l.logText("info", record.LevelInfo, message)
}

// Warning records a WARN text message under logs/warning
func (l *Logger) Warning(message string) {
	l.logText("warning", record.LevelWarn, message)
}

// Error records an ERROR text message under logs/error
func (l *Logger) Error(message string) {
	l.logText("error", record.LevelError, message)
}

// Critical records a CRITICAL text message under logs/critical
func (l *Logger) Critical(message string) {
	l.logText("critical", record.LevelCritical, message)
}

func (l *Logger) logText(segment, level, message string) {
	if !l.Enabled() {
		return
	}
	l.publish(record.Record{
		Entity: record.JoinPath(l.prefix, "logs", segment),
		Kind:   record.KindText,
		Text:   &record.TextPayload{Message: message, Level: level},
	})
}

// applyStep advances the "step" sequence timeline when an optional step
// argument was given
func (l *Logger) applyStep(step []int64) {
	if len(step) > 0 {
		l.core.clock.SetSequence("step", step[0])
	}
}

// LogScalar records a float64 sample at the given entity path. An
// optional step sets the "step" sequence timeline before recording.
func (l *Logger) LogScalar(path string, value float64, step ...int64) {
	if !l.Enabled() {
		return
	}
	l.applyStep(step)
	l.publish(record.Record{
		Entity: record.JoinPath(l.prefix, path),
		Kind:   record.KindScalar,
		Scalar: &record.ScalarPayload{Value: value},
	})
}

// LogImage records an image, PNG-encoded
func (l *Logger) LogImage(path string, img image.Image, step ...int64) {
	if !l.Enabled() {
		return
	}
	l.applyStep(step)
	if rec, ok := l.encodeImage(path, img); ok {
		l.publish(rec)
	}
}

func (l *Logger) encodeImage(path string, img image.Image) (record.Record, bool) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		l.core.diag.Warn("msg", "Failed to encode image, record dropped",
			"entity", record.JoinPath(l.prefix, path),
			"error", err)
		return record.Record{}, false
	}

	bounds := img.Bounds()
	return record.Record{
		Entity: record.JoinPath(l.prefix, path),
		Kind:   record.KindImage,
		Image: &record.ImagePayload{
			Width:    bounds.Dx(),
			Height:   bounds.Dy(),
			Encoding: "png",
			Data:     buf.Bytes(),
		},
	}, true
}

// LogImageBytes records raw interleaved pixel data
func (l *Logger) LogImageBytes(path string, width, height, channels int, data []byte, step ...int64) {
	if !l.Enabled() {
		return
	}
	l.applyStep(step)
	l.publish(record.Record{
		Entity: record.JoinPath(l.prefix, path),
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

// LogDict records a map as a JSON document. Values that cannot be
// marshaled are stringified instead of failing the whole record.
func (l *Logger) LogDict(path string, dict map[string]any, step ...int64) {
	if !l.Enabled() {
		return
	}
	l.applyStep(step)
	l.publish(record.Record{
		Entity:   record.JoinPath(l.prefix, path),
		Kind:     record.KindDocument,
		Document: documentPayload(dict),
	})
}

func documentPayload(dict map[string]any) *record.DocumentPayload {
	return &record.DocumentPayload{
		Body:      string(marshalDict(dict)),
		MediaType: "application/json",
	}
}

func marshalDict(dict map[string]any) []byte {
	body, err := json.Marshal(dict)
	if err == nil {
		return body
	}

	// Replace unmarshalable values with their string form
	sanitized := make(map[string]any, len(dict))
	for k, v := range dict {
		if _, err := json.Marshal(v); err != nil {
			sanitized[k] = fmt.Sprint(v)
		} else {
			sanitized[k] = v
		}
	}

	body, err = json.Marshal(sanitized)
	if err != nil {
		// Keys themselves are always strings, this cannot happen
		return []byte("{}")
	}
	return body
}

func (l *Logger) publish(rec record.Record) {
	rec.Time = time.Now()
	rec.Timelines = l.core.clock.Snapshot()

	if err := rec.Validate(); err != nil {
		l.core.diag.Warn("msg", "Invalid record dropped",
			"entity", rec.Entity,
			"kind", rec.Kind,
			"error", err)
		return
	}

	l.core.stream.Publish(rec)
}

// Stats returns stream statistics for the shared pipeline. A disabled
// logger reports zero values.
func (l *Logger) Stats() stream.Stats {
	if l.core.stream == nil {
		return stream.Stats{ApplicationID: l.core.applicationID}
	}
	return l.core.stream.GetStats()
}
