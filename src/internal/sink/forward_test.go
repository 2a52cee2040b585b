// FILE: src/internal/sink/forward_test.go
package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"chronicle/src/internal/config"
	"chronicle/src/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardSinkRequiresValidAddress(t *testing.T) {
	_, err := NewForwardSink(config.ForwardOptions{}, newTestLogger())
	assert.Error(t, err)

	_, err = NewForwardSink(config.ForwardOptions{Address: "no-port"}, newTestLogger())
	assert.Error(t, err)
}

func TestForwardSinkShipsNDJSON(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	opts := config.ForwardOptions{
		Address:          ln.Addr().String(),
		BufferSize:       100,
		ReconnectBackoff: 1.5,
	}

	f, err := NewForwardSink(opts, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))
	defer f.Stop()

	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	// Wait until the sink registered the connection
	require.Eventually(t, func() bool {
		return f.GetStats().ActiveConnections == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.Input() <- textRecord("logs/info", "first")
	f.Input() <- textRecord("metrics/loss", "second")

	scanner := bufio.NewScanner(conn)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var received []record.Record
	for len(received) < 2 && scanner.Scan() {
		var rec record.Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		received = append(received, rec)
	}

	require.Len(t, received, 2)
	assert.Equal(t, "logs/info", received[0].Entity)
	assert.Equal(t, "first", received[0].Text.Message)
	assert.Equal(t, "metrics/loss", received[1].Entity)

	stats := f.GetStats()
	assert.Equal(t, "forward", stats.Type)
	assert.Equal(t, uint64(2), stats.TotalProcessed)
}

func TestForwardSinkCountsFailuresWhenDisconnected(t *testing.T) {
	// Dial target that refuses connections: reserve a port then close it
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	opts := config.ForwardOptions{
		Address:          addr,
		BufferSize:       10,
		ReconnectDelayMs: 50,
		ReconnectBackoff: 1.5,
	}

	f, err := NewForwardSink(opts, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))

	f.Input() <- textRecord("logs/info", "lost")

	require.Eventually(t, func() bool {
		return f.GetStats().Details["total_failed"].(uint64) == 1
	}, 2*time.Second, 10*time.Millisecond)
	f.Stop()
}

func TestForwardSinkStatsDuringReconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	opts := config.ForwardOptions{
		Address:          addr,
		BufferSize:       10,
		ReconnectDelayMs: 10,
		ReconnectBackoff: 1.5,
	}

	f, err := NewForwardSink(opts, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))

	// Hammer the stats while the connection manager retries
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = f.GetStats().Details["last_error"]
		}
	}()

	require.Eventually(t, func() bool {
		return f.GetStats().Details["last_error"].(string) != "<nil>"
	}, 2*time.Second, 10*time.Millisecond)

	<-done
	f.Stop()
}
