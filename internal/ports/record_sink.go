package ports

import (
	"context"

	"fbench/internal/domain/bench"
)

// RecordSink stores timing records produced by a benchmark run.
type RecordSink interface {
	AppendRecord(ctx context.Context, record bench.TimingRecord) error
	Close() error
}
