// FILE: src/internal/chronfile/chronfile_test.go
package chronfile

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chronicle/src/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecords(n int, start time.Time) []record.Record {
	recs := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, record.Record{
			Time:   start.Add(time.Duration(i) * time.Millisecond),
			Entity: "metrics/loss",
			Kind:   record.KindScalar,
			Scalar: &record.ScalarPayload{Value: float64(i) * 0.5},
			Timelines: map[string]record.TimePoint{
				"step": {Kind: record.TimelineSequence, Sequence: int64(i)},
			},
		})
	}
	return recs
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.chron")
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	w, err := NewWriter(path, "test_app", 10)
	require.NoError(t, err)

	recs := makeRecords(25, start)
	for _, rec := range recs {
		require.NoError(t, w.Append(rec))
	}
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, "test_app", r.ApplicationID())
	require.Len(t, r.Records(), 25)

	// Order and content preserved
	got := r.Records()
	for i, rec := range got {
		assert.Equal(t, "metrics/loss", rec.Entity)
		require.NotNil(t, rec.Scalar)
		assert.Equal(t, float64(i)*0.5, rec.Scalar.Value)
		assert.Equal(t, int64(i), rec.Timelines["step"].Sequence)
		assert.True(t, rec.Time.Equal(recs[i].Time))
	}

	minTime, maxTime := r.TimeRange()
	assert.True(t, minTime.Equal(start))
	assert.True(t, maxTime.Equal(start.Add(24*time.Millisecond)))
}

func TestEmptyRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.chron")

	w, err := NewWriter(path, "empty_app", 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, r.Records())
	assert.Equal(t, "empty_app", r.ApplicationID())
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.chron")
	require.NoError(t, os.WriteFile(path, []byte("NOTCHRONICLE"), 0644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestOpenDetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.chron")

	w, err := NewWriter(path, "app", 4)
	require.NoError(t, err)
	for _, rec := range makeRecords(8, time.Now()) {
		require.NoError(t, w.Append(rec))
	}
	require.NoError(t, w.Close())

	// Flip a byte in the middle of the file, past the header
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)/2] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = Open(path)
	assert.Error(t, err)
}

func TestOpenDetectsTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc.chron")

	w, err := NewWriter(path, "app", 4)
	require.NoError(t, err)
	for _, rec := range makeRecords(8, time.Now()) {
		require.NoError(t, w.Append(rec))
	}
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-10], 0644))

	_, err = Open(path)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestAppendRejectsNonFiniteScalar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonfinite.chron")
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	w, err := NewWriter(path, "app", 100)
	require.NoError(t, err)

	good := makeRecords(2, start)
	require.NoError(t, w.Append(good[0]))

	bad := record.Record{
		Time:   start.Add(time.Hour),
		Entity: "metrics/loss",
		Kind:   record.KindScalar,
		Scalar: &record.ScalarPayload{Value: math.NaN()},
	}
	assert.Error(t, w.Append(bad))

	// The rejected record does not poison later flushes or the footer
	require.NoError(t, w.Append(good[1]))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Flush())
	assert.Equal(t, uint32(2), w.Count())
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	require.Len(t, r.Records(), 2)
	assert.Equal(t, 0.0, r.Records()[0].Scalar.Value)
	assert.Equal(t, 0.5, r.Records()[1].Scalar.Value)

	minTime, maxTime := r.TimeRange()
	assert.True(t, minTime.Equal(good[0].Time))
	assert.True(t, maxTime.Equal(good[1].Time))
}

func TestFlushIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flush.chron")

	w, err := NewWriter(path, "app", 100)
	require.NoError(t, err)
	for _, rec := range makeRecords(3, time.Now()) {
		require.NoError(t, w.Append(rec))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, w.Flush())
	assert.Equal(t, uint32(3), w.Count())
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	assert.Len(t, r.Records(), 3)
}
