// FILE: src/internal/sink/file.go
package sink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"chronicle/src/internal/chronfile"
	"chronicle/src/internal/config"
	"chronicle/src/internal/record"

	"github.com/lixenwraith/log"
)

// Writes records to a .chron recording file
type FileSink struct {
	input         chan record.Record
	writer        *chronfile.Writer
	flushInterval time.Duration
	done          chan struct{}
	wg            sync.WaitGroup
	startTime     time.Time
	logger        *log.Logger
	path          string

	// Statistics
	totalProcessed atomic.Uint64
	lastProcessed  atomic.Value // time.Time
	writeErrors    atomic.Uint64
}

// Creates a new file sink writing to path
func NewFileSink(path, applicationID string, opts config.FileSinkOptions, logger *log.Logger) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("file sink requires a save path")
	}

	writer, err := chronfile.NewWriter(path, applicationID, int(opts.BatchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize recording writer: %w", err)
	}

	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	flushInterval := time.Duration(opts.FlushIntervalMs) * time.Millisecond
	if flushInterval <= 0 {
		flushInterval = time.Second
	}

	fs := &FileSink{
		input:         make(chan record.Record, bufferSize),
		writer:        writer,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
		startTime:     time.Now(),
		logger:        logger,
		path:          path,
	}
	fs.lastProcessed.Store(time.Time{})

	return fs, nil
}

func (fs *FileSink) Input() chan<- record.Record {
	return fs.input
}

func (fs *FileSink) Start(ctx context.Context) error {
	fs.wg.Add(1)
	go fs.processLoop(ctx)
	fs.logger.Info("msg", "File sink started",
		"component", "file_sink",
		"path", fs.path)
	return nil
}

func (fs *FileSink) Stop() {
	fs.logger.Info("msg", "Stopping file sink", "component", "file_sink")
	close(fs.done)
	fs.wg.Wait()

	if err := fs.writer.Close(); err != nil {
		fs.logger.Error("msg", "Error closing recording file",
			"component", "file_sink",
			"path", fs.path,
			"error", err)
	}

	fs.logger.Info("msg", "File sink stopped",
		"component", "file_sink",
		"records_written", fs.writer.Count())
}

func (fs *FileSink) GetStats() SinkStats {
	lastProc, _ := fs.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           "file",
		TotalProcessed: fs.totalProcessed.Load(),
		StartTime:      fs.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"path":         fs.path,
			"write_errors": fs.writeErrors.Load(),
		},
	}
}

func (fs *FileSink) processLoop(ctx context.Context) {
	defer fs.wg.Done()

	ticker := time.NewTicker(fs.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-fs.input:
			if !ok {
				return
			}
			fs.append(rec)

		case <-ticker.C:
			if err := fs.writer.Flush(); err != nil {
				fs.writeErrors.Add(1)
				fs.logger.Error("msg", "Failed to flush recording frame",
					"component", "file_sink",
					"error", err)
			}

		case <-ctx.Done():
			return
		case <-fs.done:
			fs.drain()
			return
		}
	}
}

// Consume buffered records before shutdown so Close() persists them
func (fs *FileSink) drain() {
	for {
		select {
		case rec, ok := <-fs.input:
			if !ok {
				return
			}
			fs.append(rec)
		default:
			return
		}
	}
}

func (fs *FileSink) append(rec record.Record) {
	fs.totalProcessed.Add(1)
	fs.lastProcessed.Store(time.Now())

	if err := fs.writer.Append(rec); err != nil {
		fs.writeErrors.Add(1)
		fs.logger.Error("msg", "Failed to append record",
			"component", "file_sink",
			"entity", rec.Entity,
			"error", err)
	}
}
