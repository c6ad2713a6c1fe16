package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
)

// containerScript is what the next created container does.
type containerScript struct {
	waits  []waitCall
	stdout string
	stderr string
	oom    bool
	// files maps a CopyFromContainer path to the tar stream it returns.
	files map[string][]byte
	conn  net.Conn
}

type waitCall struct {
	exit  int64
	err   error
	block bool
}

type fakeDockerClient struct {
	mu          sync.Mutex
	scripts     []containerScript
	containers  map[string]*containerScript
	imagePulls  []string
	createCalls []*container.Config
	hostConfigs []*container.HostConfig
	uploads     [][]byte
	uploadPaths []string
	stopCalls   []string
}

func newFakeDockerClient(scripts ...containerScript) *fakeDockerClient {
	return &fakeDockerClient{
		scripts:    scripts,
		containers: make(map[string]*containerScript),
	}
}

func (f *fakeDockerClient) script(id string) *containerScript {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.containers[id]; ok {
		return s
	}
	return &containerScript{}
}

func (f *fakeDockerClient) Close() error { return nil }

func (f *fakeDockerClient) ImagePull(ctx context.Context, ref string, opts image.PullOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	f.imagePulls = append(f.imagePulls, ref)
	f.mu.Unlock()
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (f *fakeDockerClient) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("container-%d", len(f.createCalls))
	f.createCalls = append(f.createCalls, config)
	f.hostConfigs = append(f.hostConfigs, hostConfig)
	s := containerScript{}
	if len(f.scripts) > 0 {
		s, f.scripts = f.scripts[0], f.scripts[1:]
	}
	f.containers[id] = &s
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeDockerClient) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	return nil
}

func (f *fakeDockerClient) ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	statusCh := make(chan container.WaitResponse, 1)
	errCh := make(chan error, 1)

	f.mu.Lock()
	s := f.containers[containerID]
	var call waitCall
	if s != nil && len(s.waits) > 0 {
		call, s.waits = s.waits[0], s.waits[1:]
	}
	f.mu.Unlock()

	switch {
	case call.block:
	case call.err != nil:
		errCh <- call.err
	default:
		statusCh <- container.WaitResponse{StatusCode: call.exit}
	}
	return statusCh, errCh
}

func (f *fakeDockerClient) ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error) {
	s := f.script(containerID)
	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			State: &types.ContainerState{OOMKilled: s.oom},
		},
	}, nil
}

func (f *fakeDockerClient) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	f.mu.Lock()
	f.stopCalls = append(f.stopCalls, containerID)
	f.mu.Unlock()
	return nil
}

func (f *fakeDockerClient) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	return nil
}

func (f *fakeDockerClient) CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, data)
	f.uploadPaths = append(f.uploadPaths, dstPath)
	f.mu.Unlock()
	return nil
}

func (f *fakeDockerClient) CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, types.ContainerPathStat, error) {
	data, ok := f.script(containerID).files[srcPath]
	if !ok {
		return nil, types.ContainerPathStat{}, fmt.Errorf("no such file %s", srcPath)
	}
	return io.NopCloser(bytes.NewReader(data)), types.ContainerPathStat{}, nil
}

func (f *fakeDockerClient) ContainerAttach(ctx context.Context, containerID string, options container.AttachOptions) (types.HijackedResponse, error) {
	return types.HijackedResponse{Conn: f.script(containerID).conn}, nil
}

func (f *fakeDockerClient) ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	s := f.script(containerID)
	var buf bytes.Buffer
	if s.stdout != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(s.stdout))
	}
	if s.stderr != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(s.stderr))
	}
	return io.NopCloser(&buf), nil
}

// recordingConn captures stdin written to an attached container.
type recordingConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (c *recordingConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *recordingConn) CloseWrite() error { return c.Close() }

func (c *recordingConn) written() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String(), c.closed
}

func (c *recordingConn) Read([]byte) (int, error)         { return 0, io.EOF }
func (c *recordingConn) LocalAddr() net.Addr              { return fakeAddr("local") }
func (c *recordingConn) RemoteAddr() net.Addr             { return fakeAddr("remote") }
func (c *recordingConn) SetDeadline(time.Time) error      { return nil }
func (c *recordingConn) SetReadDeadline(time.Time) error  { return nil }
func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }

type fakeAddr string

func (a fakeAddr) Network() string { return string(a) }
func (a fakeAddr) String() string  { return string(a) }
