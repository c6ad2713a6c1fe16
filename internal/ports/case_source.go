package ports

import (
	"context"

	"fbench/internal/domain/bench"
)

// CaseSource lists the test cases of a benchmark run.
type CaseSource interface {
	Discover(ctx context.Context) ([]bench.TestCase, error)
}
