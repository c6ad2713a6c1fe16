// Package docker compiles and runs benchmark programs inside containers.
package docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/docker/docker/client"

	"fbench/internal/domain/bench"
	"fbench/internal/ports"
	runtimex "fbench/internal/runtime"
)

// Engine implements ports.Runner backed by Docker containers.
type Engine struct {
	config Config
	client dockerClient
	env    *containerEngine

	pullOnce sync.Once
	pullErr  error
}

var _ ports.Runner = (*Engine)(nil)

// New constructs an Engine using the supplied configuration.
func New(cfg Config) (*Engine, error) {
	if cfg.BuildImage == "" {
		return nil, fmt.Errorf("docker runtime: build image must be configured")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker runtime: create client: %w", err)
	}

	return newEngineWithClient(cli, cfg), nil
}

func newEngineWithClient(cli dockerClient, cfg Config) *Engine {
	cfg = cfg.normalize()
	return &Engine{
		config: cfg,
		client: cli,
		env:    newContainerEngine(cli, cfg),
	}
}

// Prepare compiles the test case in the build image and copies the binary
// back into the case directory.
func (e *Engine) Prepare(ctx context.Context, tc bench.TestCase) (ports.PreparedProgram, *bench.Result, error) {
	if err := e.ensureImages(ctx); err != nil {
		return nil, nil, err
	}

	sources, err := sourceFiles(tc.Dir, e.config.Toolchain.SourceSuffix)
	if err != nil {
		return nil, nil, err
	}

	binaryName := e.config.Toolchain.BinaryName(tc)
	buildLimits := e.env.effectiveLimits(bench.Limits{})
	buildLimits.TimeLimit = 0

	buildResult, binary, err := e.env.runProgram(ctx, runRequest{
		image:   e.config.BuildImage,
		limits:  buildLimits,
		command: e.config.Toolchain.CompileCommand(tc),
		files:   sources,
		collect: path.Join(e.config.Workdir, binaryName),
	})
	if err != nil {
		return nil, nil, err
	}

	if buildResult.Status != bench.StatusOK || buildResult.ExitCode != 0 {
		buildResult.Status = bench.StatusCompileFailed
		return nil, buildResult, nil
	}

	if err := os.WriteFile(filepath.Join(tc.Dir, binaryName), binary, 0o755); err != nil {
		return nil, nil, fmt.Errorf("write compiled binary: %w", err)
	}

	return &program{
		engine:     e,
		binaryName: binaryName,
		binary:     binary,
	}, nil, nil
}

// Close releases the Docker client.
func (e *Engine) Close() error {
	if err := e.client.Close(); err != nil {
		return fmt.Errorf("docker client: %w", err)
	}
	return nil
}

func (e *Engine) ensureImages(ctx context.Context) error {
	e.pullOnce.Do(func() {
		if err := e.env.pullImage(ctx, e.config.BuildImage); err != nil {
			e.pullErr = err
			return
		}
		if e.config.RunImage != e.config.BuildImage {
			e.pullErr = e.env.pullImage(ctx, e.config.RunImage)
		}
	})
	return e.pullErr
}

type program struct {
	engine     *Engine
	binaryName string
	binary     []byte
}

// Run starts a container from the run image, streams the input fixture on
// stdin and copies the timing file out once the binary exits.
func (p *program) Run(ctx context.Context, inv bench.Invocation) (*bench.Result, error) {
	input, err := os.Open(inv.InputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	cfg := p.engine.config
	timePath := path.Join(cfg.Workdir, timeFilename)
	command := append([]string{"./" + p.binaryName}, runtimex.BinaryArgs(timePath, inv.Repetitions)...)

	result, timings, err := p.engine.env.runProgram(ctx, runRequest{
		image:   cfg.RunImage,
		limits:  inv.Limits,
		command: command,
		files: []payload{
			{name: p.binaryName, mode: 0o755, data: p.binary},
		},
		stdin:   input,
		collect: timePath,
	})
	if err != nil {
		return nil, err
	}

	result.Timings = string(timings)
	if result.Status == bench.StatusOK && result.ExitCode != 0 {
		result.Status = bench.StatusRunFailed
	}
	return result, nil
}

func (p *program) Close() error {
	return nil
}

// sourceFiles gathers every source file at the top of the case directory so
// that local imports compile inside the container.
func sourceFiles(dir, suffix string) ([]payload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read case directory: %w", err)
	}

	var files []payload
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read source %s: %w", entry.Name(), err)
		}
		files = append(files, payload{name: entry.Name(), mode: 0o644, data: data})
	}

	if len(files) == 0 {
		return nil, errors.New("no source files in case directory")
	}
	return files, nil
}
