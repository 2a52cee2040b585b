// FILE: src/internal/collector/collector_test.go
package collector

import (
	"testing"

	"chronicle/src/internal/config"
	"chronicle/src/internal/record"
	"chronicle/src/internal/stream"

	"github.com/lixenwraith/log"
	"github.com/panjf2000/gnet/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*collectorServer, <-chan record.Record) {
	t.Helper()

	logger := log.NewLogger()
	st := stream.New("collector_test", stream.Options{BufferSize: 10}, logger)
	sub := st.Subscribe()

	c, err := New(config.CollectorOptions{Port: 9877}, st, logger)
	require.NoError(t, err)

	s := &collectorServer{
		collector: c,
		clients:   make(map[gnet.Conn]*clientState),
	}
	return s, sub
}

func TestConsumeLinesKeepsPartialLine(t *testing.T) {
	s, sub := newTestServer(t)
	client := &clientState{}

	full := `{"entity":"metrics/loss","kind":"scalar","scalar":{"value":0.5}}` + "\n"

	// First read delivers only part of the line
	client.buffer.WriteString(full[:20])
	s.consumeLines(client)

	assert.Equal(t, 20, client.buffer.Len())
	assert.Zero(t, s.collector.GetStats().TotalRecords)
	assert.Zero(t, s.collector.GetStats().InvalidRecords)

	// Second read completes it
	client.buffer.WriteString(full[20:])
	s.consumeLines(client)

	rec := <-sub
	assert.Equal(t, "metrics/loss", rec.Entity)
	require.NotNil(t, rec.Scalar)
	assert.Equal(t, 0.5, rec.Scalar.Value)

	assert.Equal(t, uint64(1), s.collector.GetStats().TotalRecords)
	assert.Equal(t, 0, client.buffer.Len())
}

func TestConsumeLinesSplitsMultipleLines(t *testing.T) {
	s, sub := newTestServer(t)
	client := &clientState{}

	// CRLF line endings and a blank line mixed in
	client.buffer.WriteString(
		`{"entity":"a","kind":"text","text":{"message":"one","level":"INFO"}}` + "\r\n" +
			"\r\n" +
			`{"entity":"b","kind":"text","text":{"message":"two","level":"INFO"}}` + "\n" +
			`{"entity":"c","kind":`)
	s.consumeLines(client)

	first := <-sub
	second := <-sub
	assert.Equal(t, "a", first.Entity)
	assert.Equal(t, "b", second.Entity)

	// The incomplete third record stays buffered
	assert.Equal(t, uint64(2), s.collector.GetStats().TotalRecords)
	assert.Positive(t, client.buffer.Len())
}

func TestConsumeLinesCountsInvalidLines(t *testing.T) {
	s, _ := newTestServer(t)
	client := &clientState{}

	client.buffer.WriteString("not json\n")
	s.consumeLines(client)

	assert.Equal(t, uint64(1), s.collector.GetStats().InvalidRecords)
	assert.Zero(t, s.collector.GetStats().TotalRecords)
	assert.Equal(t, 0, client.buffer.Len())
}
