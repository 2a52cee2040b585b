// FILE: src/internal/chronfile/writer.go
package chronfile

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"chronicle/src/internal/record"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

// Chronicle recording file header
var MagicHeader = []byte("CHRON001")

const (
	// DefaultBatchSize is the number of records buffered per compressed frame
	DefaultBatchSize = 256

	// DigestSize is the length of the per-frame blake2b digest
	DigestSize = 32
)

// Writer persists records to a .chron file as zstd-compressed frames of
// newline-delimited JSON. Each frame carries a blake2b digest so a reader
// can detect torn or corrupted writes.
type Writer struct {
	f         *os.File
	encoder   *zstd.Encoder
	batchSize int

	pending []pendingRecord
	count   uint32
	minTs   int64
	maxTs   int64
}

// A record already marshaled and waiting for the next frame
type pendingRecord struct {
	data []byte
	ts   int64
}

// NewWriter creates a recording file and writes the header
func NewWriter(path, applicationID string, batchSize int) (*Writer, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording file: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	w := &Writer{
		f:         f,
		encoder:   enc,
		batchSize: batchSize,
	}

	// Header: magic + application id
	if _, err := f.Write(MagicHeader); err != nil {
		f.Close()
		return nil, err
	}
	appID := []byte(applicationID)
	if err := binary.Write(f, binary.LittleEndian, uint32(len(appID))); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Write(appID); err != nil {
		f.Close()
		return nil, err
	}

	return w, nil
}

// Append marshals and buffers a record, flushing a frame when the batch
// fills up. A record that cannot be marshaled (e.g. a NaN scalar) is
// rejected here so it never blocks later flushes of good records.
func (w *Writer) Append(rec record.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	w.pending = append(w.pending, pendingRecord{data: data, ts: rec.Time.UnixNano()})
	if len(w.pending) >= w.batchSize {
		return w.Flush()
	}
	return nil
}

// Flush writes all buffered records as a single compressed frame
func (w *Writer) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}

	buf := new(bytes.Buffer)
	for _, p := range w.pending {
		buf.Write(p.data)
		buf.WriteByte('\n')
	}

	compressed := w.encoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len()))

	if err := binary.Write(w.f, binary.LittleEndian, uint32(len(compressed))); err != nil {
		return err
	}
	if _, err := w.f.Write(compressed); err != nil {
		return err
	}

	digest := blake2b.Sum256(compressed)
	if _, err := w.f.Write(digest[:]); err != nil {
		return err
	}

	// Footer bookkeeping only counts records that reached the file
	for _, p := range w.pending {
		if w.count == 0 {
			w.minTs, w.maxTs = p.ts, p.ts
		} else {
			if p.ts < w.minTs {
				w.minTs = p.ts
			}
			if p.ts > w.maxTs {
				w.maxTs = p.ts
			}
		}
		w.count++
	}

	w.pending = w.pending[:0]
	return nil
}

// Close flushes pending records, writes the footer and closes the file
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.f.Close()
		return err
	}

	// Zero-length frame marks end of data
	if err := binary.Write(w.f, binary.LittleEndian, uint32(0)); err != nil {
		w.f.Close()
		return err
	}

	// Footer: RecordCount (4) + MinTs (8) + MaxTs (8)
	if err := binary.Write(w.f, binary.LittleEndian, w.count); err != nil {
		w.f.Close()
		return err
	}
	if err := binary.Write(w.f, binary.LittleEndian, w.minTs); err != nil {
		w.f.Close()
		return err
	}
	if err := binary.Write(w.f, binary.LittleEndian, w.maxTs); err != nil {
		w.f.Close()
		return err
	}

	return w.f.Close()
}

// Count returns the number of records written so far, excluding pending
func (w *Writer) Count() uint32 {
	return w.count
}
