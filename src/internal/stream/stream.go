// FILE: src/internal/stream/stream.go
package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"chronicle/src/internal/filter"
	"chronicle/src/internal/record"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// Options tunes stream distribution
type Options struct {
	// Buffer size for subscriber channels
	BufferSize int

	// Records per second accepted into the stream, 0 disables limiting
	RateLimit float64

	// Burst allowance when rate limiting is active
	RateBurst int

	// Optional entity path filter applied before distribution
	Filter *filter.Filter
}

// Stats contains counters for a recording stream
type Stats struct {
	ApplicationID    string
	TotalPublished   uint64
	DroppedFull      uint64
	DroppedFiltered  uint64
	DroppedRateLimit uint64
	Subscribers      int
	StartTime        time.Time
}

// Stream fans records out to subscribed sinks. Publishing never blocks:
// a subscriber whose buffer is full loses the record and the drop is
// counted.
type Stream struct {
	applicationID string
	bufferSize    int

	mu          sync.RWMutex
	subscribers []chan record.Record
	closed      bool

	limiter   *rate.Limiter
	filter    *filter.Filter
	logger    *log.Logger
	startTime time.Time

	// Statistics
	totalPublished   atomic.Uint64
	droppedFull      atomic.Uint64
	droppedFiltered  atomic.Uint64
	droppedRateLimit atomic.Uint64
}

// New creates a recording stream for an application
func New(applicationID string, opts Options, logger *log.Logger) *Stream {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}

	s := &Stream{
		applicationID: applicationID,
		bufferSize:    opts.BufferSize,
		filter:        opts.Filter,
		logger:        logger,
		startTime:     time.Now(),
	}

	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = int(opts.RateLimit)
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return s
}

// ApplicationID returns the application that owns this stream
func (s *Stream) ApplicationID() string {
	return s.applicationID
}

// Subscribe registers a new consumer channel
func (s *Stream) Subscribe() <-chan record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan record.Record, s.bufferSize)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Publish distributes a record to all subscribers. Returns false when the
// record was dropped by rate limiting or the stream is closed.
func (s *Stream) Publish(rec record.Record) bool {
	if s.filter != nil && !s.filter.Allow(rec.Entity) {
		s.droppedFiltered.Add(1)
		return false
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.droppedRateLimit.Add(1)
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	s.totalPublished.Add(1)

	dropped := false
	for _, ch := range s.subscribers {
		select {
		case ch <- rec:
		default:
			dropped = true
			s.droppedFull.Add(1)
		}
	}

	if dropped {
		s.logger.Debug("msg", "Dropped record - subscriber buffer full",
			"component", "stream",
			"application_id", s.applicationID)
	}

	return true
}

// PublishBatch distributes records in order, returning the accepted count
func (s *Stream) PublishBatch(recs []record.Record) int {
	accepted := 0
	for _, rec := range recs {
		if s.Publish(rec) {
			accepted++
		}
	}
	return accepted
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
}

// GetStats returns stream statistics
func (s *Stream) GetStats() Stats {
	s.mu.RLock()
	subs := len(s.subscribers)
	s.mu.RUnlock()

	return Stats{
		ApplicationID:    s.applicationID,
		TotalPublished:   s.totalPublished.Load(),
		DroppedFull:      s.droppedFull.Load(),
		DroppedFiltered:  s.droppedFiltered.Load(),
		DroppedRateLimit: s.droppedRateLimit.Load(),
		Subscribers:      subs,
		StartTime:        s.startTime,
	}
}
