// Package local compiles and runs benchmark programs directly on the host.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"fbench/internal/domain/bench"
	"fbench/internal/ports"
	runtimex "fbench/internal/runtime"
)

const (
	timeFilename   = "time"
	resultFilename = "result"
	waitDelay      = 5 * time.Second
)

// Config describes how the local engine builds and runs test cases.
type Config struct {
	Toolchain     runtimex.Toolchain
	DefaultLimits bench.Limits
	// ScratchDir is where per-invocation scratch directories are created.
	// Empty uses the system temporary directory.
	ScratchDir string
}

// Engine implements ports.Runner with host processes.
type Engine struct {
	toolchain     runtimex.Toolchain
	defaultLimits bench.Limits
	scratchDir    string
}

var _ ports.Runner = (*Engine)(nil)

// New constructs an Engine.
func New(cfg Config) *Engine {
	return &Engine{
		toolchain:     cfg.Toolchain.Normalize(),
		defaultLimits: runtimex.NormalizeLimits(cfg.DefaultLimits),
		scratchDir:    cfg.ScratchDir,
	}
}

// Prepare runs the compiler inside the case directory.
func (e *Engine) Prepare(ctx context.Context, tc bench.TestCase) (ports.PreparedProgram, *bench.Result, error) {
	argv := e.toolchain.CompileCommand(tc)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = tc.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	exitCode, err := exitStatus(cmd.Run())
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("run compiler %s: %w", argv[0], err)
	}

	buildResult := &bench.Result{
		Status:   bench.StatusOK,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: time.Since(start),
	}
	if exitCode != 0 {
		buildResult.Status = bench.StatusCompileFailed
		return nil, buildResult, nil
	}

	binaryPath := filepath.Join(tc.Dir, e.toolchain.BinaryName(tc))
	if _, err := os.Stat(binaryPath); err != nil {
		buildResult.Status = bench.StatusCompileFailed
		buildResult.Stderr += fmt.Sprintf("compiler exited 0 but %s is missing: %v\n", binaryPath, err)
		return nil, buildResult, nil
	}

	return &program{
		engine:     e,
		testCase:   tc,
		binaryPath: binaryPath,
	}, nil, nil
}

// Close is a no-op; the local engine holds no shared resources.
func (e *Engine) Close() error {
	return nil
}

type program struct {
	engine     *Engine
	testCase   bench.TestCase
	binaryPath string
}

// Run invokes the binary with the input fixture on stdin. Timing and result
// files live in a scratch directory that is removed before Run returns.
func (p *program) Run(ctx context.Context, inv bench.Invocation) (*bench.Result, error) {
	limits := runtimex.EffectiveLimits(p.engine.defaultLimits, inv.Limits)

	scratch, err := os.MkdirTemp(p.engine.scratchDir, "fbench-"+p.testCase.Name+"-")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	timePath := filepath.Join(scratch, timeFilename)
	resultPath := filepath.Join(scratch, resultFilename)

	input, err := os.Open(inv.InputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	output, err := os.Create(resultPath)
	if err != nil {
		return nil, fmt.Errorf("create result file: %w", err)
	}
	defer output.Close()

	runCtx := ctx
	var cancel context.CancelFunc
	if limits.TimeLimit > 0 {
		runCtx, cancel = context.WithTimeout(ctx, limits.TimeLimit)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, p.binaryPath, runtimex.BinaryArgs(timePath, inv.Repetitions)...)
	cmd.Dir = p.testCase.Dir
	cmd.Stdin = input
	cmd.Stdout = output
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &bench.Result{
			Status:   bench.StatusTimeout,
			Stderr:   stderr.String(),
			ExitCode: -1,
			Duration: duration,
		}, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	exitCode, err := exitStatus(runErr)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", p.binaryPath, err)
	}

	stdout, err := os.ReadFile(resultPath)
	if err != nil {
		return nil, fmt.Errorf("read result file: %w", err)
	}
	timings, err := os.ReadFile(timePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read timing file: %w", err)
	}

	result := &bench.Result{
		Status:   bench.StatusOK,
		Stdout:   string(stdout),
		Timings:  string(timings),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: duration,
	}
	if exitCode != 0 {
		result.Status = bench.StatusRunFailed
	}
	return result, nil
}

func (p *program) Close() error {
	return nil
}

// exitStatus separates "the process ran and exited non-zero" from "the
// process could not be run at all".
func exitStatus(err error) (int64, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return int64(exitErr.ExitCode()), nil
	}
	return -1, err
}
