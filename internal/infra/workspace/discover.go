// Package workspace finds benchmark test cases on disk.
package workspace

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fbench/internal/domain/bench"
	"fbench/internal/ports"
)

// Config describes where test cases live.
type Config struct {
	Root string
	// SourceSuffix is the program source extension, ".fut" by default.
	SourceSuffix string
	// Skip names directories that are never test cases, e.g. the results
	// directory.
	Skip []string
	// Logger receives a line for every directory dropped for lacking a source
	// file. Nil selects log.Default().
	Logger *log.Logger
}

// Source discovers one test case per immediate subdirectory of Root.
type Source struct {
	root   string
	suffix string
	skip   map[string]struct{}
	logger *log.Logger
}

var _ ports.CaseSource = (*Source)(nil)

// NewSource builds a Source from cfg.
func NewSource(cfg Config) *Source {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.SourceSuffix == "" {
		cfg.SourceSuffix = ".fut"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	skip := make(map[string]struct{}, len(cfg.Skip))
	for _, name := range cfg.Skip {
		skip[name] = struct{}{}
	}
	return &Source{
		root:   cfg.Root,
		suffix: cfg.SourceSuffix,
		skip:   skip,
		logger: cfg.Logger,
	}
}

// Discover returns the test cases sorted by name. A directory counts as a
// test case when it contains <name><suffix>.
func (s *Source) Discover(ctx context.Context) ([]bench.TestCase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", s.root, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list test cases: %w", err)
	}

	var cases []bench.TestCase
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, skipped := s.skip[name]; skipped {
			continue
		}

		dir := filepath.Join(root, name)
		source := name + s.suffix
		info, err := os.Stat(filepath.Join(dir, source))
		if err != nil || !info.Mode().IsRegular() {
			s.logger.Printf("skipping %s: no %s", name, source)
			continue
		}

		cases = append(cases, bench.TestCase{Name: name, Dir: dir, Source: source})
	}

	sort.Slice(cases, func(i, j int) bool { return cases[i].Name < cases[j].Name })
	return cases, nil
}
