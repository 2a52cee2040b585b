// FILE: src/internal/sink/memory.go
package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"chronicle/src/internal/record"
)

// MemorySink captures records in memory. Used by tests and batch
// verification, never in a production pipeline.
type MemorySink struct {
	input     chan record.Record
	done      chan struct{}
	wg        sync.WaitGroup
	startTime time.Time

	mu      sync.Mutex
	records []record.Record

	// Statistics
	totalProcessed atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewMemorySink creates a capture sink
func NewMemorySink(bufferSize int) *MemorySink {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	m := &MemorySink{
		input:     make(chan record.Record, bufferSize),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	m.lastProcessed.Store(time.Time{})
	return m
}

func (m *MemorySink) Input() chan<- record.Record {
	return m.input
}

func (m *MemorySink) Start(ctx context.Context) error {
	m.wg.Add(1)
	go m.processLoop(ctx)
	return nil
}

func (m *MemorySink) Stop() {
	close(m.done)
	m.wg.Wait()
}

func (m *MemorySink) GetStats() SinkStats {
	lastProc, _ := m.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           "memory",
		TotalProcessed: m.totalProcessed.Load(),
		StartTime:      m.startTime,
		LastProcessed:  lastProc,
		Details:        map[string]any{},
	}
}

// Records returns a copy of everything captured so far
func (m *MemorySink) Records() []record.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]record.Record, len(m.records))
	copy(out, m.records)
	return out
}

func (m *MemorySink) processLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case rec, ok := <-m.input:
			if !ok {
				return
			}
			m.store(rec)

		case <-ctx.Done():
			return
		case <-m.done:
			m.drain()
			return
		}
	}
}

// Consume whatever is still buffered so Stop() observes a complete capture
func (m *MemorySink) drain() {
	for {
		select {
		case rec, ok := <-m.input:
			if !ok {
				return
			}
			m.store(rec)
		default:
			return
		}
	}
}

func (m *MemorySink) store(rec record.Record) {
	m.totalProcessed.Add(1)
	m.lastProcessed.Store(time.Now())

	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
}
