package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fbench/internal/domain/bench"
	"fbench/internal/fixture"
	"fbench/internal/ports"
	"fbench/internal/runtime"
)

// mismatchHead is how many leading elements of each side a mismatch keeps.
const mismatchHead = 10

type suiteRunner struct {
	runtime   ports.Runner
	sinks     []ports.RecordSink
	opts      Options
	runID     string
	timestamp string
	onReport  func(bench.Report)
}

// Run compiles tc and benchmarks it at every size. It returns the failures
// that should not stop the run separately from the one that should.
func (r *suiteRunner) Run(ctx context.Context, tc bench.TestCase) ([]error, error) {
	prepared, buildResult, err := r.runtime.Prepare(ctx, tc)
	if prepared != nil {
		defer prepared.Close()
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		caseErr := &bench.Error{Kind: bench.KindCompileFailed, Case: tc.Name, Err: err}
		r.emit(bench.Report{Case: tc, Status: bench.StatusCompileFailed, Err: caseErr})
		return []error{caseErr}, nil
	}

	if buildResult != nil {
		caseErr := &bench.Error{Kind: bench.KindCompileFailed, Case: tc.Name, Err: buildError(buildResult)}
		r.emit(bench.Report{Case: tc, Status: bench.StatusCompileFailed, Result: buildResult, Err: caseErr})
		return []error{caseErr}, nil
	}

	if prepared == nil {
		return nil, fmt.Errorf("runner returned nil prepared program without build result for %s", tc.Name)
	}

	var errs []error
	for _, size := range r.opts.Sizes {
		sizeErr, fatal := r.runSize(ctx, tc, prepared, size)
		if fatal != nil {
			return errs, fatal
		}
		if sizeErr != nil {
			errs = append(errs, sizeErr)
		}
	}
	return errs, nil
}

func (r *suiteRunner) runSize(ctx context.Context, tc bench.TestCase, prepared ports.PreparedProgram, size int) (error, error) {
	inputPath := fixture.InputPath(tc.Dir, tc.Name, size)
	outputPath := fixture.OutputPath(tc.Dir, tc.Name, size)
	for _, path := range []string{inputPath, outputPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, &bench.Error{Kind: bench.KindFixtureMissing, Case: tc.Name, Size: size, Err: err}
		}
	}

	report := bench.Report{
		Case:    tc,
		Size:    size,
		Command: r.describe(tc, inputPath),
	}
	fail := func(status bench.Status, kind bench.ErrorKind, err error) error {
		caseErr := &bench.Error{Kind: kind, Case: tc.Name, Size: size, Err: err}
		report.Status = status
		report.Err = caseErr
		r.emit(report)
		return caseErr
	}

	if r.opts.OnStart != nil {
		r.opts.OnStart(report)
	}

	result, err := prepared.Run(ctx, bench.Invocation{
		InputPath:   inputPath,
		Repetitions: r.opts.Repetitions,
		Limits:      r.opts.Limits,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return fail(bench.StatusRunFailed, bench.KindRunFailed, err), nil
	}
	report.Result = result

	switch result.Status {
	case bench.StatusTimeout:
		return fail(bench.StatusTimeout, bench.KindTimeout, fmt.Errorf("time limit %s exceeded", r.opts.Limits.TimeLimit)), nil
	case bench.StatusRunFailed, bench.StatusMemoryLimit:
		return fail(result.Status, bench.KindRunFailed, runError(result)), nil
	}

	got, err := fixture.Parse([]byte(result.Stdout))
	if err != nil {
		return fail(bench.StatusParseFailed, bench.KindParseFailed, fmt.Errorf("parse result: %w", err)), nil
	}
	want, err := fixture.ParseFile(outputPath)
	if err != nil {
		return fail(bench.StatusParseFailed, bench.KindParseFailed, fmt.Errorf("parse expected output: %w", err)), nil
	}

	report.Status = bench.StatusOK
	if !fixture.Equal(got, want) {
		report.Status = bench.StatusWrongAnswer
		report.Mismatch = &bench.Mismatch{
			Got:  fixture.Head(got, mismatchHead),
			Want: fixture.Head(want, mismatchHead),
		}
	}

	samples, err := fixture.ParseSamples([]byte(result.Timings))
	if err != nil {
		return fail(bench.StatusParseFailed, bench.KindParseFailed, fmt.Errorf("parse timings: %w", err)), nil
	}

	record := bench.NewTimingRecord(r.runID, r.timestamp, tc.Name, size, r.opts.Repetitions, samples)
	for _, sink := range r.sinks {
		if err := sink.AppendRecord(ctx, record); err != nil {
			return nil, fmt.Errorf("append record for %s (size %d): %w", tc.Name, size, err)
		}
	}
	report.Record = &record

	r.emit(report)
	return nil, nil
}

func (r *suiteRunner) describe(tc bench.TestCase, inputPath string) string {
	rel, err := filepath.Rel(tc.Dir, inputPath)
	if err != nil {
		rel = inputPath
	}
	return runtime.DescribeRun(r.opts.Toolchain.BinaryName(tc), "time", r.opts.Repetitions, rel, "res")
}

func (r *suiteRunner) emit(report bench.Report) {
	if r.onReport != nil {
		r.onReport(report)
	}
}

func buildError(result *bench.Result) error {
	msg := strings.TrimSpace(result.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(result.Stdout)
	}
	if msg == "" {
		return fmt.Errorf("compiler exited with code %d", result.ExitCode)
	}
	return fmt.Errorf("compiler exited with code %d: %s", result.ExitCode, msg)
}

func runError(result *bench.Result) error {
	if result.Status == bench.StatusMemoryLimit {
		return errors.New("memory limit exceeded")
	}
	msg := strings.TrimSpace(result.Stderr)
	if msg == "" {
		return fmt.Errorf("exit code %d", result.ExitCode)
	}
	return fmt.Errorf("exit code %d: %s", result.ExitCode, msg)
}
