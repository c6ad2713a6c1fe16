package ports

import (
	"context"

	"fbench/internal/domain/bench"
)

// PreparedProgram is a compiled benchmark binary ready to be invoked.
type PreparedProgram interface {
	Run(ctx context.Context, inv bench.Invocation) (*bench.Result, error)
	Close() error
}

// Runner compiles test cases into runnable programs.
//
// Prepare returns a non-nil build result when compilation itself fails and an
// error only when the runner could not attempt the build.
type Runner interface {
	Prepare(ctx context.Context, tc bench.TestCase) (PreparedProgram, *bench.Result, error)
	Close() error
}
