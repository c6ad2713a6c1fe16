package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"time"

	"github.com/docker/docker/api/types/container"
	typesimage "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"fbench/internal/domain/bench"
	runtimex "fbench/internal/runtime"
)

// stopGrace bounds the cleanup of a container killed for exceeding its time
// limit.
const stopGrace = 15 * time.Second

type containerEngine struct {
	cli           dockerClient
	defaultLimits bench.Limits
	workdir       string
	nanoCPUs      int64
}

// runRequest describes one container execution.
type runRequest struct {
	image   string
	limits  bench.Limits
	command []string
	files   []payload
	// stdin is streamed to the process when non-nil.
	stdin io.Reader
	// collect is a path inside the container copied out after a clean exit.
	collect string
}

func newContainerEngine(cli dockerClient, cfg Config) *containerEngine {
	cfg = cfg.normalize()
	return &containerEngine{
		cli:           cli,
		defaultLimits: cfg.DefaultLimits,
		workdir:       cfg.Workdir,
		nanoCPUs:      cfg.NanoCPUs,
	}
}

func (c *containerEngine) pullImage(ctx context.Context, ref string) error {
	reader, err := c.cli.ImagePull(ctx, ref, typesimage.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	if err != nil {
		return fmt.Errorf("consume pull output for %s: %w", ref, err)
	}
	return nil
}

func (c *containerEngine) effectiveLimits(request bench.Limits) bench.Limits {
	return runtimex.EffectiveLimits(c.defaultLimits, request)
}

// runProgram executes req in a fresh container and returns its result along
// with the collected file, if one was requested and the process exited cleanly.
// The time limit covers both stdin delivery and execution.
func (c *containerEngine) runProgram(ctx context.Context, req runRequest) (*bench.Result, []byte, error) {
	limits := c.effectiveLimits(req.limits)

	containerID, cleanup, err := c.createContainer(ctx, req.image, limits, req.command, req.stdin != nil)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	if err := c.upload(ctx, containerID, req.files); err != nil {
		return nil, nil, err
	}

	var stdin *stdinFeed
	if req.stdin != nil {
		attach, err := c.cli.ContainerAttach(detached(ctx), containerID, container.AttachOptions{
			Stream: true,
			Stdin:  true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("attach container: %w", err)
		}
		if attach.Conn == nil {
			return nil, nil, errors.New("attach container: no connection")
		}
		stdin = &stdinFeed{conn: attach.Conn}
		defer stdin.release()
	}

	waitCtx, cancel := ctx, context.CancelFunc(func() {})
	if limits.TimeLimit > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, limits.TimeLimit)
	}
	defer cancel()

	start := time.Now()
	if err := c.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}
	if stdin != nil {
		stdin.start(req.stdin)
	}

	status, err := c.waitForExit(waitCtx, containerID)
	elapsed := time.Since(start)
	if stdin != nil {
		// A process may exit, or be killed, without draining its input.
		stdin.release()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && limits.TimeLimit > 0 && ctx.Err() == nil {
			result, err := c.timedOut(containerID, elapsed)
			return result, nil, err
		}
		return nil, nil, err
	}

	inspect, err := c.cli.ContainerInspect(detached(ctx), containerID)
	if err != nil {
		return nil, nil, fmt.Errorf("inspect container: %w", err)
	}
	stdout, stderr, err := c.readLogs(detached(ctx), containerID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch logs: %w", err)
	}

	result := &bench.Result{
		Status:   bench.StatusOK,
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: status.StatusCode,
		Duration: elapsed,
	}
	if inspect.ContainerJSONBase != nil && inspect.State != nil && inspect.State.OOMKilled {
		result.Status = bench.StatusMemoryLimit
	}

	if req.collect == "" || result.Status != bench.StatusOK || result.ExitCode != 0 {
		return result, nil, nil
	}
	collected, err := c.collect(ctx, containerID, req.collect)
	if err != nil {
		return nil, nil, err
	}
	return result, collected, nil
}

func (c *containerEngine) createContainer(ctx context.Context, image string, limits bench.Limits, cmd []string, attachStdin bool) (string, func(), error) {
	hostConfig := &container.HostConfig{
		Resources: container.Resources{
			NanoCPUs: c.nanoCPUs,
		},
	}
	if limits.MemoryLimitBytes > 0 {
		hostConfig.Resources.Memory = limits.MemoryLimitBytes
		hostConfig.Resources.MemorySwap = limits.MemoryLimitBytes
	}

	resp, err := c.cli.ContainerCreate(
		ctx,
		&container.Config{
			Image:        image,
			Cmd:          cmd,
			AttachStdout: true,
			AttachStderr: true,
			AttachStdin:  attachStdin,
			OpenStdin:    attachStdin,
			StdinOnce:    attachStdin,
			WorkingDir:   c.workdir,
		},
		hostConfig,
		nil,
		nil,
		"",
	)
	if err != nil {
		return "", nil, fmt.Errorf("create container: %w", err)
	}

	cleanup := func() {
		_ = c.cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})
	}

	return resp.ID, cleanup, nil
}

// upload places files in the container workdir.
func (c *containerEngine) upload(ctx context.Context, containerID string, files []payload) error {
	if len(files) == 0 {
		return nil
	}
	archive, err := tarPayloads(files)
	if err != nil {
		return err
	}
	if err := c.cli.CopyToContainer(ctx, containerID, c.workdir, archive, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("copy files: %w", err)
	}
	return nil
}

// collect copies a single file out of a stopped container.
func (c *containerEngine) collect(ctx context.Context, containerID, src string) ([]byte, error) {
	reader, _, err := c.cli.CopyFromContainer(detached(ctx), containerID, src)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", src, err)
	}
	defer reader.Close()
	return extractFile(reader, path.Base(src))
}

// timedOut kills a container that outlived its time limit and reports what it
// printed before that.
func (c *containerEngine) timedOut(containerID string, elapsed time.Duration) (*bench.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()

	kill := 0
	if err := c.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &kill}); err != nil && !client.IsErrNotFound(err) {
		return nil, fmt.Errorf("stop container after time limit: %w", err)
	}

	exitCode := int64(-1)
	status, err := c.waitForExit(ctx, containerID)
	switch {
	case err == nil:
		exitCode = status.StatusCode
	case !errors.Is(err, context.DeadlineExceeded) && !client.IsErrNotFound(err):
		return nil, fmt.Errorf("wait for container after time limit: %w", err)
	}

	stdout, stderr, err := c.readLogs(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}
	return &bench.Result{
		Status:   bench.StatusTimeout,
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
		Duration: elapsed,
	}, nil
}

func (c *containerEngine) waitForExit(ctx context.Context, containerID string) (*container.WaitResponse, error) {
	statusCh, errCh := c.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("container error: %s", status.Error.Message)
		}
		return &status, nil
	case err := <-errCh:
		return nil, fmt.Errorf("wait for container: %w", err)
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for container: %w", ctx.Err())
	}
}

// readLogs demultiplexes the container's stdout and stderr.
func (c *containerEngine) readLogs(ctx context.Context, containerID string) (stdout, stderr string, err error) {
	logs, err := c.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", "", err
	}
	defer logs.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, logs); err != nil {
		return "", "", err
	}
	return stdoutBuf.String(), stderrBuf.String(), nil
}

// stdinFeed streams the fixture into an attached container without blocking
// the wait for its exit.
type stdinFeed struct {
	conn     net.Conn
	done     chan struct{}
	released bool
}

func (f *stdinFeed) start(r io.Reader) {
	f.done = make(chan struct{})
	go func() {
		defer close(f.done)
		if _, err := io.Copy(f.conn, r); err != nil {
			return
		}
		if closer, ok := f.conn.(interface{ CloseWrite() error }); ok {
			_ = closer.CloseWrite()
		}
	}()
}

// release closes the connection, which unblocks a pending write, and waits
// for the copy to return.
func (f *stdinFeed) release() {
	if f.released {
		return
	}
	f.released = true
	_ = f.conn.Close()
	if f.done != nil {
		<-f.done
	}
}

// detached returns a context that follow-up API calls can still use after ctx
// is cancelled.
func detached(ctx context.Context) context.Context {
	if ctx.Err() != nil {
		return context.Background()
	}
	return ctx
}
