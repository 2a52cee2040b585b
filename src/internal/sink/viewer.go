// FILE: src/internal/sink/viewer.go
package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"chronicle/src/internal/auth"
	"chronicle/src/internal/config"
	"chronicle/src/internal/format"
	"chronicle/src/internal/record"
	"chronicle/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/valyala/fasthttp"
)

// ViewerSink streams records to attached viewers via Server-Sent Events
type ViewerSink struct {
	// Configuration reference (NOT a copy)
	config *config.ViewerOptions

	// Runtime
	applicationID string
	input         chan record.Record
	server        *fasthttp.Server
	activeClients atomic.Int64
	startTime     time.Time
	done          chan struct{}
	wg            sync.WaitGroup
	logger        *log.Logger
	formatter     format.Formatter

	// Broker architecture
	clients      map[uint64]chan record.Record
	clientsMu    sync.RWMutex
	unregister   chan uint64
	nextClientID atomic.Uint64

	// Security
	verifier *auth.Verifier

	// Statistics
	totalProcessed atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// Creates a new viewer streaming sink
func NewViewerSink(applicationID string, opts *config.ViewerOptions, logger *log.Logger) (*ViewerSink, error) {
	if opts == nil {
		return nil, fmt.Errorf("viewer sink options cannot be nil")
	}

	formatter, err := format.NewJSONFormatter(nil, logger)
	if err != nil {
		return nil, err
	}

	v := &ViewerSink{
		config:        opts, // Direct reference to config struct
		applicationID: applicationID,
		input:         make(chan record.Record, opts.BufferSize),
		startTime:     time.Now(),
		done:          make(chan struct{}),
		logger:        logger,
		formatter:     formatter,
		clients:       make(map[uint64]chan record.Record),
		unregister:    make(chan uint64, 16),
	}
	v.lastProcessed.Store(time.Time{})

	v.verifier = auth.NewVerifier(&opts.Auth, logger)

	return v, nil
}

func (v *ViewerSink) Input() chan<- record.Record {
	return v.input
}

func (v *ViewerSink) Start(ctx context.Context) error {
	// Start central broker goroutine
	v.wg.Add(1)
	go v.brokerLoop(ctx)

	fasthttpLogger := compat.NewFastHTTPAdapter(v.logger)

	v.server = &fasthttp.Server{
		Name:             fmt.Sprintf("Chronicle/%s", version.Short()),
		Handler:          v.requestHandler,
		DisableKeepalive: false,
		Logger:           fasthttpLogger,
		WriteTimeout:     time.Duration(v.config.WriteTimeoutMs) * time.Millisecond,
	}

	addr := fmt.Sprintf("%s:%d", v.config.Host, v.config.Port)

	// Run server in separate goroutine to avoid blocking
	errChan := make(chan error, 1)
	go func() {
		v.logger.Info("msg", "Viewer server started",
			"component", "viewer_sink",
			"host", v.config.Host,
			"port", v.config.Port,
			"stream_path", v.config.StreamPath,
			"status_path", v.config.StatusPath)

		if err := v.server.ListenAndServe(addr); err != nil {
			errChan <- err
		}
	}()

	// Monitor context for shutdown signal
	go func() {
		<-ctx.Done()
		if v.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			v.server.ShutdownWithContext(shutdownCtx)
		}
	}()

	// Check if server started successfully
	select {
	case err := <-errChan:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Broadcasts only to attached viewers
func (v *ViewerSink) brokerLoop(ctx context.Context) {
	defer v.wg.Done()

	var ticker *time.Ticker
	var tickerChan <-chan time.Time

	if v.config.Heartbeat.Enabled {
		ticker = time.NewTicker(time.Duration(v.config.Heartbeat.IntervalSeconds) * time.Second)
		tickerChan = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-v.done:
			return

		case clientID := <-v.unregister:
			// Broker owns channel cleanup
			v.clientsMu.Lock()
			if clientChan, exists := v.clients[clientID]; exists {
				delete(v.clients, clientID)
				close(clientChan)
				v.logger.Debug("msg", "Unregistered viewer",
					"component", "viewer_sink",
					"client_id", clientID)
			}
			v.clientsMu.Unlock()

		case rec, ok := <-v.input:
			if !ok {
				return
			}

			v.totalProcessed.Add(1)
			v.lastProcessed.Store(time.Now())

			// Broadcast to all attached viewers; records are discarded
			// when nobody is attached
			v.clientsMu.RLock()
			for id, ch := range v.clients {
				select {
				case ch <- rec:
				default:
					// Viewer buffer full
					v.logger.Debug("msg", "Dropped record for slow viewer",
						"component", "viewer_sink",
						"client_id", id)
				}
			}
			v.clientsMu.RUnlock()

		case <-tickerChan:
			heartbeat := v.heartbeatRecord()

			v.clientsMu.RLock()
			for id, ch := range v.clients {
				select {
				case ch <- heartbeat:
				default:
					v.logger.Debug("msg", "Skipped heartbeat for slow viewer",
						"component", "viewer_sink",
						"client_id", id)
				}
			}
			v.clientsMu.RUnlock()
		}
	}
}

func (v *ViewerSink) Stop() {
	v.logger.Info("msg", "Stopping viewer sink", "component", "viewer_sink")

	close(v.done)

	if v.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		v.server.ShutdownWithContext(ctx)
	}

	// Wait for broker and all client handlers to finish
	v.wg.Wait()

	v.clientsMu.Lock()
	for _, ch := range v.clients {
		close(ch)
	}
	v.clients = make(map[uint64]chan record.Record)
	v.clientsMu.Unlock()

	v.logger.Info("msg", "Viewer sink stopped", "component", "viewer_sink")
}

func (v *ViewerSink) GetStats() SinkStats {
	lastProc, _ := v.lastProcessed.Load().(time.Time)

	var authStats map[string]any
	if v.verifier != nil {
		authStats = v.verifier.GetStats()
	} else {
		authStats = map[string]any{"enabled": false}
	}

	return SinkStats{
		Type:              "viewer",
		TotalProcessed:    v.totalProcessed.Load(),
		ActiveConnections: int32(v.activeClients.Load()),
		StartTime:         v.startTime,
		LastProcessed:     lastProc,
		Details: map[string]any{
			"port":        v.config.Port,
			"buffer_size": v.config.BufferSize,
			"endpoints": map[string]string{
				"stream": v.config.StreamPath,
				"status": v.config.StatusPath,
			},
			"auth": authStats,
		},
	}
}

func (v *ViewerSink) requestHandler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())

	// Status endpoint doesn't require auth
	if path == v.config.StatusPath {
		v.handleStatus(ctx)
		return
	}

	remoteAddr := ctx.RemoteAddr().String()

	if v.verifier != nil {
		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if err := v.verifier.Verify(authHeader, remoteAddr); err != nil {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			ctx.Response.Header.Set("WWW-Authenticate", "Bearer")
			ctx.SetContentType("application/json")
			json.NewEncoder(ctx).Encode(map[string]string{
				"error": "Unauthorized",
			})
			return
		}
	}

	switch path {
	case v.config.StreamPath:
		v.handleStream(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]any{
			"error": "Not Found",
		})
	}
}

func (v *ViewerSink) handleStream(ctx *fasthttp.RequestCtx) {
	remoteAddr := ctx.RemoteAddr().String()

	// Set SSE headers
	ctx.Response.Header.Set("Content-Type", "text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")

	// Register new viewer with broker
	clientID := v.nextClientID.Add(1)
	clientChan := make(chan record.Record, v.config.BufferSize)

	v.clientsMu.Lock()
	v.clients[clientID] = clientChan
	v.clientsMu.Unlock()

	streamFunc := func(w *bufio.Writer) {
		connectCount := v.activeClients.Add(1)
		v.logger.Debug("msg", "Viewer attached",
			"component", "viewer_sink",
			"remote_addr", remoteAddr,
			"client_id", clientID,
			"active_clients", connectCount)

		// Track goroutine lifecycle with waitgroup
		v.wg.Add(1)

		defer func() {
			disconnectCount := v.activeClients.Add(-1)
			v.logger.Debug("msg", "Viewer detached",
				"component", "viewer_sink",
				"remote_addr", remoteAddr,
				"client_id", clientID,
				"active_clients", disconnectCount)

			// Signal broker to cleanup this viewer's channel
			select {
			case v.unregister <- clientID:
			case <-v.done:
				// Shutting down, don't block
			}

			v.wg.Done()
		}()

		// Send initial connected event with metadata
		connectionInfo := map[string]any{
			"application_id": v.applicationID,
			"client_id":      fmt.Sprintf("%d", clientID),
			"stream_path":    v.config.StreamPath,
			"status_path":    v.config.StatusPath,
			"buffer_size":    v.config.BufferSize,
		}
		data, _ := json.Marshal(connectionInfo)
		fmt.Fprintf(w, "event: connected\ndata: %s\n\n", data)
		if err := w.Flush(); err != nil {
			return
		}

		// Main streaming loop
		for {
			select {
			case rec, ok := <-clientChan:
				if !ok {
					// Channel closed, viewer being removed
					return
				}

				if err := v.writeSSE(w, rec); err != nil {
					v.logger.Error("msg", "Failed to format record",
						"component", "viewer_sink",
						"client_id", clientID,
						"error", err,
						"entity", rec.Entity)
					continue
				}

				if err := w.Flush(); err != nil {
					// Viewer disconnected
					return
				}

			case <-v.done:
				fmt.Fprintf(w, "event: disconnect\ndata: {\"reason\":\"server_shutdown\"}\n\n")
				w.Flush()
				return
			}
		}
	}

	ctx.SetBodyStreamWriter(streamFunc)
}

func (v *ViewerSink) writeSSE(w *bufio.Writer, rec record.Record) error {
	formatted, err := v.formatter.Format(rec)
	if err != nil {
		return err
	}

	// Remove trailing newline if present (SSE adds its own)
	formatted = bytes.TrimSuffix(formatted, []byte{'\n'})

	// SSE needs "data: " prefix for each line based on W3C spec
	for _, line := range bytes.Split(formatted, []byte{'\n'}) {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")

	return nil
}

func (v *ViewerSink) heartbeatRecord() record.Record {
	return record.Record{
		Time:   time.Now(),
		Entity: "viewer/heartbeat",
		Kind:   record.KindText,
		Text: &record.TextPayload{
			Message: fmt.Sprintf("heartbeat clients=%d uptime=%ds",
				v.activeClients.Load(), int(time.Since(v.startTime).Seconds())),
			Level: record.LevelInfo,
		},
	}
}

func (v *ViewerSink) handleStatus(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")

	var authStats any
	if v.verifier != nil {
		authStats = v.verifier.GetStats()
	} else {
		authStats = map[string]any{"enabled": false}
	}

	status := map[string]any{
		"service":        "Chronicle",
		"version":        version.Short(),
		"application_id": v.applicationID,
		"server": map[string]any{
			"type":           "viewer",
			"port":           v.config.Port,
			"active_clients": v.activeClients.Load(),
			"buffer_size":    v.config.BufferSize,
			"uptime_seconds": int(time.Since(v.startTime).Seconds()),
		},
		"endpoints": map[string]string{
			"stream": v.config.StreamPath,
			"status": v.config.StatusPath,
		},
		"features": map[string]any{
			"heartbeat": map[string]any{
				"enabled":  v.config.Heartbeat.Enabled,
				"interval": v.config.Heartbeat.IntervalSeconds,
			},
			"auth": authStats,
		},
		"statistics": map[string]any{
			"total_processed": v.totalProcessed.Load(),
		},
	}

	data, _ := json.Marshal(status)
	ctx.SetBody(data)
}

// Returns the current number of attached viewers
func (v *ViewerSink) GetActiveConnections() int64 {
	return v.activeClients.Load()
}
