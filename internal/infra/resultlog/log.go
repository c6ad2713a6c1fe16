// Package resultlog appends timing records to a plain-text results file.
package resultlog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fbench/internal/domain/bench"
	"fbench/internal/ports"
)

const separator = "========================="

// Log is an append-only results file. Existing content is never rewritten.
type Log struct {
	path string
	mu   sync.Mutex
}

var _ ports.RecordSink = (*Log)(nil)

// New returns a Log writing to path. The file is created on first append.
func New(path string) *Log {
	return &Log{path: path}
}

// Path reports the file the log appends to.
func (l *Log) Path() string {
	return l.path
}

// AppendRecord writes one block for record and closes the file again.
func (l *Log) AppendRecord(ctx context.Context, record bench.TimingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create results directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results log: %w", err)
	}

	if _, err := f.Write(FormatRecord(record)); err != nil {
		f.Close()
		return fmt.Errorf("append results log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close results log: %w", err)
	}
	return nil
}

// Close is a no-op; the file is closed after every append.
func (l *Log) Close() error {
	return nil
}

// FormatRecord renders the block appended for record.
func FormatRecord(record bench.TimingRecord) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Time: %s\n", record.Timestamp)
	fmt.Fprintf(&buf, "Size: %d\n", record.Size)
	fmt.Fprintf(&buf, "Repetitions: %d\n", record.Repetitions)
	fmt.Fprintf(&buf, "Mean: %f\n", record.Mean)
	for _, sample := range record.Samples {
		fmt.Fprintf(&buf, "%d\n", sample)
	}
	buf.WriteString(separator)
	buf.WriteByte('\n')
	return buf.Bytes()
}
