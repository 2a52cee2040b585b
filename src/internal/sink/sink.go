// FILE: src/internal/sink/sink.go
package sink

import (
	"context"
	"time"

	"chronicle/src/internal/record"
)

// Sink represents an output destination for records
type Sink interface {
	// Input returns the channel for sending records to this sink
	Input() chan<- record.Record

	// Start begins processing records
	Start(ctx context.Context) error

	// Stop gracefully shuts down the sink
	Stop()

	// GetStats returns sink statistics
	GetStats() SinkStats
}

// SinkStats contains statistics about a sink
type SinkStats struct {
	Type              string
	TotalProcessed    uint64
	ActiveConnections int32
	StartTime         time.Time
	LastProcessed     time.Time
	Details           map[string]any
}
