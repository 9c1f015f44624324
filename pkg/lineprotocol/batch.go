package lineprotocol

import (
	"bytes"
	"compress/gzip"
	"time"
)

// Default batching thresholds (spec.md §4.7).
const (
	DefaultMaxRecords    = 500
	DefaultMaxBytes      = 1 << 20 // 1 MiB
	DefaultFlushInterval = time.Second
)

// Batch accumulates encoded line-protocol lines for one destination
// bucket until a soft limit or flush deadline is reached.
type Batch struct {
	Bucket string

	maxRecords int
	maxBytes   int

	lines []string
	size  int
}

// NewBatch returns an empty Batch for bucket, using the default
// thresholds unless overridden by NewBatchWithLimits.
func NewBatch(bucket string) *Batch {
	return NewBatchWithLimits(bucket, DefaultMaxRecords, DefaultMaxBytes)
}

// NewBatchWithLimits returns an empty Batch with explicit soft limits.
func NewBatchWithLimits(bucket string, maxRecords, maxBytes int) *Batch {
	return &Batch{Bucket: bucket, maxRecords: maxRecords, maxBytes: maxBytes}
}

// Add appends an already-encoded line-protocol line to the batch.
func (b *Batch) Add(line string) {
	b.lines = append(b.lines, line)
	b.size += len(line) + 1 // newline separator
}

// Full reports whether the batch has reached either soft limit and
// should be flushed immediately rather than waiting for the next flush
// deadline.
func (b *Batch) Full() bool {
	return len(b.lines) >= b.maxRecords || b.size >= b.maxBytes
}

// Len returns the number of records currently buffered.
func (b *Batch) Len() int { return len(b.lines) }

// Encode joins the buffered lines with newlines into the wire body.
func (b *Batch) Encode() []byte {
	var buf bytes.Buffer
	for i, l := range b.lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(l)
	}
	return buf.Bytes()
}

// EncodeGzip gzip-compresses the batch body, for use when influxdb
// enableGzip is configured.
func (b *Batch) EncodeGzip() ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b.Encode()); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Reset empties the batch so it can be reused for the next accumulation
// window, without reallocating its backing slice.
func (b *Batch) Reset() {
	b.lines = b.lines[:0]
	b.size = 0
}
