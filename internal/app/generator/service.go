package generator

import (
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"fbench/internal/fixture"
)

const (
	defaultLow   = 0
	defaultHigh  = 100
	defaultShift = 10
)

// Config describes one fixture pair to generate.
type Config struct {
	Name string
	Size int
	Seed uint64
	// Low and High bound the uniform draw as [Low, High). Both zero selects [0, 100).
	Low  int64
	High int64
	// Shift is added to every element before the scan. Zero selects 10.
	Shift int64
	// Dir is the case directory; fixtures land in Dir/data.
	Dir string
	// Logger receives progress lines. Nil uses the standard logger.
	Logger *log.Logger
}

// Fixture is a generated input/output pair and where it was written.
type Fixture struct {
	InputPath  string
	OutputPath string
	Input      []int64
	Output     []int64
}

// Generate draws Size uniform integers, shifts each by Shift and writes the
// unshifted sequence and its inclusive prefix sum as a fixture pair.
func Generate(cfg Config) (*Fixture, error) {
	cfg, err := normalize(cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger

	input := draw(cfg)
	logger.Printf("created input list of %d elements", len(input))

	output := Transform(input, cfg.Shift)
	logger.Printf("completed map and scan")

	fx := &Fixture{
		InputPath:  fixture.InputPath(cfg.Dir, cfg.Name, cfg.Size),
		OutputPath: fixture.OutputPath(cfg.Dir, cfg.Name, cfg.Size),
		Input:      input,
		Output:     output,
	}

	if err := os.MkdirAll(filepath.Join(cfg.Dir, fixture.DataDir), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := writeList(fx.InputPath, input); err != nil {
		return nil, err
	}
	logger.Printf("wrote input to %s", fx.InputPath)
	if err := writeList(fx.OutputPath, output); err != nil {
		return nil, err
	}
	logger.Printf("wrote output to %s", fx.OutputPath)

	return fx, nil
}

// Transform adds shift to every element and returns the inclusive prefix sum.
func Transform(input []int64, shift int64) []int64 {
	output := make([]int64, len(input))
	var acc int64
	for i, v := range input {
		acc += v + shift
		output[i] = acc
	}
	return output
}

func normalize(cfg Config) (Config, error) {
	if cfg.Name == "" {
		return cfg, fmt.Errorf("generator: test case name must be provided")
	}
	if cfg.Size <= 0 {
		return cfg, fmt.Errorf("generator: size must be positive, got %d", cfg.Size)
	}
	if cfg.Low == 0 && cfg.High == 0 {
		cfg.Low, cfg.High = defaultLow, defaultHigh
	}
	if cfg.High <= cfg.Low {
		return cfg, fmt.Errorf("generator: empty range [%d, %d)", cfg.Low, cfg.High)
	}
	if cfg.Shift == 0 {
		cfg.Shift = defaultShift
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return cfg, nil
}

func draw(cfg Config) []int64 {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	span := cfg.High - cfg.Low
	values := make([]int64, cfg.Size)
	for i := range values {
		values[i] = cfg.Low + rng.Int64N(span)
	}
	return values
}

func writeList(path string, values []int64) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := fixture.WriteTo(file, values); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
