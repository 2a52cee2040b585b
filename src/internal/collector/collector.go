// FILE: src/internal/collector/collector.go
package collector

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"chronicle/src/internal/config"
	"chronicle/src/internal/stream"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/gnet/v2"
	"github.com/valyala/fastjson"
)

const (
	maxClientBufferSize = 10 * 1024 * 1024 // 10MB max per client
	maxLineLength       = 1 * 1024 * 1024  // 1MB max per record line
)

// Collector receives NDJSON record streams from forward sinks over TCP
// and republishes them into a local recording stream
type Collector struct {
	opts     config.CollectorOptions
	stream   *stream.Stream
	server   *collectorServer
	done     chan struct{}
	engine   *gnet.Engine
	engineMu sync.Mutex
	wg       sync.WaitGroup
	logger   *log.Logger

	// Statistics
	totalRecords   atomic.Uint64
	invalidRecords atomic.Uint64
	activeConns    atomic.Int64
	startTime      time.Time
	lastRecordTime atomic.Value // time.Time
}

// Stats describes collector activity
type Stats struct {
	TotalRecords      uint64
	InvalidRecords    uint64
	ActiveConnections int64
	StartTime         time.Time
	LastRecordTime    time.Time
}

// New creates a collector publishing into the given stream
func New(opts config.CollectorOptions, st *stream.Stream, logger *log.Logger) (*Collector, error) {
	if opts.Port < 1 || opts.Port > 65535 {
		return nil, fmt.Errorf("collector requires valid 'port' option")
	}
	if opts.Host == "" {
		opts.Host = "0.0.0.0"
	}

	c := &Collector{
		opts:      opts,
		stream:    st,
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
	}
	c.lastRecordTime.Store(time.Time{})

	return c, nil
}

func (c *Collector) Start() error {
	c.server = &collectorServer{
		collector: c,
		clients:   make(map[gnet.Conn]*clientState),
	}

	addr := fmt.Sprintf("tcp://%s:%d", c.opts.Host, c.opts.Port)
	gnetLogger := compat.NewGnetAdapter(c.logger)

	errChan := make(chan error, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logger.Info("msg", "Collector server starting",
			"component", "collector",
			"port", c.opts.Port)

		err := gnet.Run(c.server, addr,
			gnet.WithLogger(gnetLogger),
			gnet.WithMulticore(true),
			gnet.WithReusePort(true),
		)
		if err != nil {
			c.logger.Error("msg", "Collector server failed",
				"component", "collector",
				"port", c.opts.Port,
				"error", err)
		}
		errChan <- err
	}()

	// Wait briefly for server to start or fail
	select {
	case err := <-errChan:
		close(c.done)
		c.wg.Wait()
		return err
	case <-time.After(100 * time.Millisecond):
		c.logger.Info("msg", "Collector started", "port", c.opts.Port)
		return nil
	}
}

func (c *Collector) Stop() {
	c.logger.Info("msg", "Stopping collector")
	close(c.done)

	c.engineMu.Lock()
	engine := c.engine
	c.engineMu.Unlock()

	if engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		(*engine).Stop(ctx)
	}

	c.wg.Wait()
	c.logger.Info("msg", "Collector stopped",
		"total_records", c.totalRecords.Load(),
		"invalid_records", c.invalidRecords.Load())
}

func (c *Collector) GetStats() Stats {
	lastRecord, _ := c.lastRecordTime.Load().(time.Time)

	return Stats{
		TotalRecords:      c.totalRecords.Load(),
		InvalidRecords:    c.invalidRecords.Load(),
		ActiveConnections: c.activeConns.Load(),
		StartTime:         c.startTime,
		LastRecordTime:    lastRecord,
	}
}

// Per-connection state
type clientState struct {
	buffer bytes.Buffer
	parser fastjson.Parser
}

// Handles gnet events
type collectorServer struct {
	gnet.BuiltinEventEngine
	collector *Collector
	clients   map[gnet.Conn]*clientState
	mu        sync.RWMutex
}

func (s *collectorServer) OnBoot(eng gnet.Engine) gnet.Action {
	// Store engine reference for shutdown
	s.collector.engineMu.Lock()
	s.collector.engine = &eng
	s.collector.engineMu.Unlock()

	s.collector.logger.Debug("msg", "Collector server booted",
		"component", "collector",
		"port", s.collector.opts.Port)
	return gnet.None
}

func (s *collectorServer) OnOpen(conn gnet.Conn) (out []byte, action gnet.Action) {
	s.mu.Lock()
	s.clients[conn] = &clientState{}
	s.mu.Unlock()

	newCount := s.collector.activeConns.Add(1)
	s.collector.logger.Debug("msg", "Producer connected",
		"component", "collector",
		"remote_addr", conn.RemoteAddr().String(),
		"active_connections", newCount)
	return nil, gnet.None
}

func (s *collectorServer) OnClose(conn gnet.Conn, err error) gnet.Action {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()

	newCount := s.collector.activeConns.Add(-1)
	s.collector.logger.Debug("msg", "Producer disconnected",
		"component", "collector",
		"remote_addr", conn.RemoteAddr().String(),
		"active_connections", newCount,
		"error", err)
	return gnet.None
}

func (s *collectorServer) OnTraffic(conn gnet.Conn) gnet.Action {
	s.mu.RLock()
	client, exists := s.clients[conn]
	s.mu.RUnlock()

	if !exists {
		return gnet.Close
	}

	data, err := conn.Next(-1)
	if err != nil {
		s.collector.logger.Error("msg", "Error reading from connection",
			"component", "collector",
			"error", err)
		return gnet.Close
	}

	// Check if appending the new data would exceed the client buffer limit
	if client.buffer.Len()+len(data) > maxClientBufferSize {
		s.collector.logger.Warn("msg", "Client buffer limit exceeded, closing connection",
			"component", "collector",
			"remote_addr", conn.RemoteAddr().String(),
			"buffer_size", client.buffer.Len(),
			"incoming_size", len(data))
		s.collector.invalidRecords.Add(1)
		return gnet.Close
	}

	client.buffer.Write(data)

	// A line this long with no newline is not a valid record stream
	if client.buffer.Len() > maxLineLength &&
		bytes.IndexByte(client.buffer.Bytes(), '\n') < 0 {
		s.collector.logger.Warn("msg", "Record line too long without newline",
			"component", "collector",
			"remote_addr", conn.RemoteAddr().String(),
			"buffer_size", client.buffer.Len())
		s.collector.invalidRecords.Add(1)
		return gnet.Close
	}

	s.consumeLines(client)

	return gnet.None
}

// consumeLines parses and publishes every complete line in the client
// buffer. A trailing line without its newline stays buffered until the
// next read delivers the rest.
func (s *collectorServer) consumeLines(client *clientState) {
	for {
		buffered := client.buffer.Bytes()
		idx := bytes.IndexByte(buffered, '\n')
		if idx < 0 {
			return
		}

		line := bytes.TrimRight(buffered[:idx], "\r")
		if len(line) > 0 {
			rec, err := parseRecord(&client.parser, line)
			if err != nil {
				s.collector.invalidRecords.Add(1)
				s.collector.logger.Debug("msg", "Invalid record",
					"component", "collector",
					"error", err,
					"data", string(line))
			} else {
				s.collector.totalRecords.Add(1)
				s.collector.lastRecordTime.Store(rec.Time)
				s.collector.stream.Publish(rec)
			}
		}

		client.buffer.Next(idx + 1)
	}
}
