// FILE: src/internal/chronfile/reader.go
package chronfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"chronicle/src/internal/record"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrBadMagic       = errors.New("not a chronicle recording file")
	ErrCorruptFrame   = errors.New("frame digest mismatch")
	ErrTruncated      = errors.New("recording file truncated")
	ErrFooterMismatch = errors.New("footer record count does not match frames")
	ErrFrameTooLarge  = errors.New("frame exceeds size limit")
)

// 64MB cap per compressed frame
const maxCompressedFrame = 64 * 1024 * 1024

// Reader decodes a .chron recording file written by Writer
type Reader struct {
	applicationID string
	records       []record.Record
	minTime       time.Time
	maxTime       time.Time
}

// Open reads and validates an entire recording file
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)

	// Header
	magic := make([]byte, len(MagicHeader))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, ErrTruncated
	}
	if !bytes.Equal(magic, MagicHeader) {
		return nil, ErrBadMagic
	}

	var appIDLen uint32
	if err := binary.Read(br, binary.LittleEndian, &appIDLen); err != nil {
		return nil, ErrTruncated
	}
	appID := make([]byte, appIDLen)
	if _, err := io.ReadFull(br, appID); err != nil {
		return nil, ErrTruncated
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	r := &Reader{applicationID: string(appID)}

	// Frames until zero-length sentinel
	for {
		var frameLen uint32
		if err := binary.Read(br, binary.LittleEndian, &frameLen); err != nil {
			return nil, ErrTruncated
		}
		if frameLen == 0 {
			break
		}
		if frameLen > maxCompressedFrame {
			return nil, ErrFrameTooLarge
		}

		compressed := make([]byte, frameLen)
		if _, err := io.ReadFull(br, compressed); err != nil {
			return nil, ErrTruncated
		}

		digest := make([]byte, DigestSize)
		if _, err := io.ReadFull(br, digest); err != nil {
			return nil, ErrTruncated
		}
		expected := blake2b.Sum256(compressed)
		if !bytes.Equal(digest, expected[:]) {
			return nil, ErrCorruptFrame
		}

		raw, err := dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress frame: %w", err)
		}

		for _, line := range bytes.Split(raw, []byte{'\n'}) {
			if len(line) == 0 {
				continue
			}
			var rec record.Record
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, fmt.Errorf("failed to decode record: %w", err)
			}
			r.records = append(r.records, rec)
		}
	}

	// Footer
	var count uint32
	var minTs, maxTs int64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, ErrTruncated
	}
	if err := binary.Read(br, binary.LittleEndian, &minTs); err != nil {
		return nil, ErrTruncated
	}
	if err := binary.Read(br, binary.LittleEndian, &maxTs); err != nil {
		return nil, ErrTruncated
	}

	if int(count) != len(r.records) {
		return nil, ErrFooterMismatch
	}
	if count > 0 {
		r.minTime = time.Unix(0, minTs)
		r.maxTime = time.Unix(0, maxTs)
	}

	return r, nil
}

// ApplicationID returns the application that produced the recording
func (r *Reader) ApplicationID() string {
	return r.applicationID
}

// Records returns all decoded records in write order
func (r *Reader) Records() []record.Record {
	return r.records
}

// TimeRange returns the wall-clock bounds recorded in the footer
func (r *Reader) TimeRange() (time.Time, time.Time) {
	return r.minTime, r.maxTime
}
