// FILE: src/internal/sink/forward.go
package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"chronicle/src/internal/config"
	"chronicle/src/internal/format"
	"chronicle/src/internal/record"

	"github.com/lixenwraith/log"
)

// ForwardSink ships records to a remote collector over TCP as
// newline-delimited JSON
type ForwardSink struct {
	input     chan record.Record
	config    config.ForwardOptions
	conn      net.Conn
	connMu    sync.RWMutex
	done      chan struct{}
	wg        sync.WaitGroup
	startTime time.Time
	logger    *log.Logger
	formatter format.Formatter

	// Reconnection state
	reconnecting   atomic.Bool
	lastConnectErr error // guarded by connMu
	connectTime    time.Time

	// Statistics
	totalProcessed   atomic.Uint64
	totalFailed      atomic.Uint64
	totalReconnects  atomic.Uint64
	lastProcessed    atomic.Value // time.Time
	connectionUptime atomic.Value // time.Duration
}

// NewForwardSink creates a new forwarding sink
func NewForwardSink(opts config.ForwardOptions, logger *log.Logger) (*ForwardSink, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("forward sink requires an address")
	}
	if _, _, err := net.SplitHostPort(opts.Address); err != nil {
		return nil, fmt.Errorf("invalid address format (expected host:port): %w", err)
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.DialTimeoutSeconds <= 0 {
		opts.DialTimeoutSeconds = 10
	}
	if opts.WriteTimeoutSeconds <= 0 {
		opts.WriteTimeoutSeconds = 30
	}
	if opts.ReconnectDelayMs <= 0 {
		opts.ReconnectDelayMs = 1000
	}
	if opts.MaxReconnectDelaySeconds <= 0 {
		opts.MaxReconnectDelaySeconds = 30
	}
	if opts.ReconnectBackoff < 1.0 {
		opts.ReconnectBackoff = 1.5
	}

	formatter, err := format.NewJSONFormatter(nil, logger)
	if err != nil {
		return nil, err
	}

	f := &ForwardSink{
		input:     make(chan record.Record, opts.BufferSize),
		config:    opts,
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
		formatter: formatter,
	}
	f.lastProcessed.Store(time.Time{})
	f.connectionUptime.Store(time.Duration(0))

	return f, nil
}

func (f *ForwardSink) Input() chan<- record.Record {
	return f.input
}

func (f *ForwardSink) Start(ctx context.Context) error {
	f.wg.Add(1)
	go f.connectionManager(ctx)

	f.wg.Add(1)
	go f.processLoop(ctx)

	f.logger.Info("msg", "Forward sink started",
		"component", "forward_sink",
		"address", f.config.Address)
	return nil
}

func (f *ForwardSink) Stop() {
	f.logger.Info("msg", "Stopping forward sink", "component", "forward_sink")
	close(f.done)
	f.wg.Wait()

	f.connMu.Lock()
	if f.conn != nil {
		_ = f.conn.Close()
	}
	f.connMu.Unlock()

	f.logger.Info("msg", "Forward sink stopped",
		"component", "forward_sink",
		"total_processed", f.totalProcessed.Load(),
		"total_failed", f.totalFailed.Load(),
		"total_reconnects", f.totalReconnects.Load())
}

func (f *ForwardSink) GetStats() SinkStats {
	lastProc, _ := f.lastProcessed.Load().(time.Time)
	uptime, _ := f.connectionUptime.Load().(time.Duration)

	f.connMu.RLock()
	connected := f.conn != nil
	lastErr := f.lastConnectErr
	f.connMu.RUnlock()

	activeConns := int32(0)
	if connected {
		activeConns = 1
	}

	return SinkStats{
		Type:              "forward",
		TotalProcessed:    f.totalProcessed.Load(),
		ActiveConnections: activeConns,
		StartTime:         f.startTime,
		LastProcessed:     lastProc,
		Details: map[string]any{
			"address":           f.config.Address,
			"connected":         connected,
			"reconnecting":      f.reconnecting.Load(),
			"total_failed":      f.totalFailed.Load(),
			"total_reconnects":  f.totalReconnects.Load(),
			"connection_uptime": uptime.Seconds(),
			"last_error":        fmt.Sprintf("%v", lastErr),
		},
	}
}

func (f *ForwardSink) connectionManager(ctx context.Context) {
	defer f.wg.Done()

	reconnectDelay := time.Duration(f.config.ReconnectDelayMs) * time.Millisecond
	maxReconnectDelay := time.Duration(f.config.MaxReconnectDelaySeconds) * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.done:
			return
		default:
		}

		f.reconnecting.Store(true)
		conn, err := f.connect()
		f.reconnecting.Store(false)

		if err != nil {
			f.connMu.Lock()
			f.lastConnectErr = err
			f.connMu.Unlock()
			f.logger.Warn("msg", "Failed to connect to collector",
				"component", "forward_sink",
				"address", f.config.Address,
				"error", err,
				"retry_delay", reconnectDelay)

			select {
			case <-ctx.Done():
				return
			case <-f.done:
				return
			case <-time.After(reconnectDelay):
			}

			// Exponential backoff
			reconnectDelay = time.Duration(float64(reconnectDelay) * f.config.ReconnectBackoff)
			if reconnectDelay > maxReconnectDelay {
				reconnectDelay = maxReconnectDelay
			}
			continue
		}

		reconnectDelay = time.Duration(f.config.ReconnectDelayMs) * time.Millisecond
		f.connectTime = time.Now()
		f.totalReconnects.Add(1)

		f.connMu.Lock()
		f.conn = conn
		f.lastConnectErr = nil
		f.connMu.Unlock()

		f.logger.Info("msg", "Connected to collector",
			"component", "forward_sink",
			"address", f.config.Address,
			"local_addr", conn.LocalAddr())

		f.monitorConnection(conn)

		// Connection lost, clear it
		f.connMu.Lock()
		f.conn = nil
		f.connMu.Unlock()

		uptime := time.Since(f.connectTime)
		f.connectionUptime.Store(uptime)

		f.logger.Warn("msg", "Lost connection to collector",
			"component", "forward_sink",
			"address", f.config.Address,
			"uptime", uptime)
	}
}

func (f *ForwardSink) connect() (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   time.Duration(f.config.DialTimeoutSeconds) * time.Second,
		KeepAlive: 30 * time.Second,
	}

	conn, err := dialer.Dial("tcp", f.config.Address)
	if err != nil {
		return nil, err
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetKeepAlive(true)
		tcpConn.SetKeepAlivePeriod(30 * time.Second)
	}

	return conn, nil
}

func (f *ForwardSink) monitorConnection(conn net.Conn) {
	// Detect dead connections by periodic zero-byte reads
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	buf := make([]byte, 1)
	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			if err := conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
				f.logger.Debug("msg", "Failed to set read deadline",
					"component", "forward_sink",
					"error", err)
				return
			}

			_, err := conn.Read(buf)
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					// Timeout is expected, connection is still alive
					continue
				}
				return
			}
		}
	}
}

func (f *ForwardSink) processLoop(ctx context.Context) {
	defer f.wg.Done()

	for {
		select {
		case rec, ok := <-f.input:
			if !ok {
				return
			}

			f.totalProcessed.Add(1)
			f.lastProcessed.Store(time.Now())

			if err := f.sendRecord(rec); err != nil {
				f.totalFailed.Add(1)
				f.logger.Debug("msg", "Failed to send record",
					"component", "forward_sink",
					"error", err)
			}

		case <-ctx.Done():
			return
		case <-f.done:
			return
		}
	}
}

func (f *ForwardSink) sendRecord(rec record.Record) error {
	f.connMu.RLock()
	conn := f.conn
	f.connMu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := f.formatter.Format(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	writeTimeout := time.Duration(f.config.WriteTimeoutSeconds) * time.Second
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	n, err := conn.Write(data)
	if err != nil {
		// Connection error, it will be reconnected
		return fmt.Errorf("write failed: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("partial write: %d/%d bytes", n, len(data))
	}

	return nil
}
