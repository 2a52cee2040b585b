// FILE: src/internal/sink/file_test.go
package sink

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"chronicle/src/internal/chronfile"
	"chronicle/src/internal/config"
	"chronicle/src/internal/record"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func defaultFileOptions() config.FileSinkOptions {
	return config.FileSinkOptions{
		BatchSize:       16,
		FlushIntervalMs: 50,
		BufferSize:      100,
	}
}

func TestFileSinkWritesReadableRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.chron")

	fs, err := NewFileSink(path, "file_sink_test", defaultFileOptions(), newTestLogger())
	require.NoError(t, err)
	require.NoError(t, fs.Start(context.Background()))

	for i := 0; i < 40; i++ {
		fs.Input() <- textRecord("logs/info", "message")
	}
	fs.Stop()

	r, err := chronfile.Open(path)
	require.NoError(t, err)
	assert.Equal(t, "file_sink_test", r.ApplicationID())
	assert.Len(t, r.Records(), 40)

	stats := fs.GetStats()
	assert.Equal(t, "file", stats.Type)
	assert.Equal(t, uint64(40), stats.TotalProcessed)
}

func TestFileSinkSurvivesNonFiniteScalar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nan.chron")

	fs, err := NewFileSink(path, "app", defaultFileOptions(), newTestLogger())
	require.NoError(t, err)
	require.NoError(t, fs.Start(context.Background()))

	fs.Input() <- textRecord("logs/info", "before")
	fs.Input() <- record.Record{
		Time:   time.Now(),
		Entity: "metrics/loss",
		Kind:   record.KindScalar,
		Scalar: &record.ScalarPayload{Value: math.NaN()},
	}
	fs.Input() <- textRecord("logs/info", "after")
	fs.Stop()

	// The unmarshalable record is dropped; the recording stays readable
	r, err := chronfile.Open(path)
	require.NoError(t, err)
	require.Len(t, r.Records(), 2)
	assert.Equal(t, "before", r.Records()[0].Text.Message)
	assert.Equal(t, "after", r.Records()[1].Text.Message)

	assert.Equal(t, uint64(1), fs.GetStats().Details["write_errors"])
}

func TestFileSinkRequiresPath(t *testing.T) {
	_, err := NewFileSink("", "app", defaultFileOptions(), newTestLogger())
	assert.Error(t, err)
}

func TestFileSinkPersistsPendingOnStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.chron")

	// Large batch and long flush interval: nothing would hit disk
	// without the shutdown drain+close path
	opts := config.FileSinkOptions{
		BatchSize:       1000,
		FlushIntervalMs: 60000,
		BufferSize:      100,
	}

	fs, err := NewFileSink(path, "app", opts, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, fs.Start(context.Background()))

	fs.Input() <- textRecord("logs/info", "pending")
	fs.Stop()

	r, err := chronfile.Open(path)
	require.NoError(t, err)
	require.Len(t, r.Records(), 1)
	assert.Equal(t, "pending", r.Records()[0].Text.Message)
}
