// Package driver runs every discovered test case against every input size and
// records the timings.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fbench/internal/domain/bench"
	"fbench/internal/ports"
	"fbench/internal/runtime"
)

// DefaultSizes are the input sizes benchmarked when none are configured.
var DefaultSizes = []int{100000, 1000000, 10000000}

// DefaultRepetitions is the number of timed repetitions per invocation.
const DefaultRepetitions = 10

// Options controls a benchmark run.
type Options struct {
	Sizes       []int
	Repetitions int
	Limits      bench.Limits
	// Toolchain is used to name binaries in reported commands.
	Toolchain runtime.Toolchain
	// OnStart, when set, receives the case, size and command of each
	// invocation before it runs.
	OnStart func(bench.Report)
}

func (o Options) normalize() Options {
	if len(o.Sizes) == 0 {
		o.Sizes = DefaultSizes
	}
	if o.Repetitions <= 0 {
		o.Repetitions = DefaultRepetitions
	}
	o.Limits = runtime.NormalizeLimits(o.Limits)
	o.Toolchain = o.Toolchain.Normalize()
	return o
}

// Service coordinates compilation, execution and verification of test cases.
type Service struct {
	runtime ports.Runner
	source  ports.CaseSource
	sinks   []ports.RecordSink

	now   func() time.Time
	newID func() string
}

// NewService constructs a Service. Every timing record is appended to each sink
// in order.
func NewService(runtime ports.Runner, source ports.CaseSource, sinks ...ports.RecordSink) *Service {
	return &Service{
		runtime: runtime,
		source:  source,
		sinks:   sinks,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run benchmarks every test case in name order.
//
// Compilation, execution and parse failures are reported through onReport and
// collected; the run moves on to the next size or case. Missing fixtures, sink
// failures and cancellation stop the run. The returned error joins everything
// collected.
func (s *Service) Run(ctx context.Context, opts Options, onReport func(bench.Report)) error {
	opts = opts.normalize()

	cases, err := s.source.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover test cases: %w", err)
	}

	runner := &suiteRunner{
		runtime:   s.runtime,
		sinks:     s.sinks,
		opts:      opts,
		runID:     s.newID(),
		timestamp: s.now().Format(time.ANSIC),
		onReport:  onReport,
	}

	var errs []error
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		caseErrs, fatal := runner.Run(ctx, tc)
		errs = append(errs, caseErrs...)
		if fatal != nil {
			return errors.Join(append(errs, fatal)...)
		}
	}

	return errors.Join(errs...)
}

// Close releases the runtime and every sink.
func (s *Service) Close() error {
	errs := []error{s.runtime.Close()}
	for _, sink := range s.sinks {
		errs = append(errs, sink.Close())
	}
	return errors.Join(errs...)
}
