package docker

import (
	"fbench/internal/domain/bench"
	runtimex "fbench/internal/runtime"
)

const (
	defaultWorkdir  = "/bench"
	defaultNanoCPUs = 1_000_000_000
	timeFilename    = "fbench.time"
)

// Config describes how to create a Docker-backed benchmark engine.
type Config struct {
	Toolchain runtimex.Toolchain
	// BuildImage holds the compiler. RunImage runs the binary and defaults to
	// BuildImage.
	BuildImage    string
	RunImage      string
	Workdir       string
	DefaultLimits bench.Limits
	// NanoCPUs caps container CPU. Zero selects one CPU.
	NanoCPUs int64
}

func (c Config) normalize() Config {
	c.Toolchain = c.Toolchain.Normalize()
	if c.RunImage == "" {
		c.RunImage = c.BuildImage
	}
	if c.Workdir == "" {
		c.Workdir = defaultWorkdir
	}
	if c.NanoCPUs <= 0 {
		c.NanoCPUs = defaultNanoCPUs
	}
	c.DefaultLimits = runtimex.NormalizeLimits(c.DefaultLimits)
	return c
}
