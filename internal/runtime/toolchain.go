// Package runtime holds the pieces shared by the local and docker engines:
// how a test case is compiled and how its binary is invoked.
package runtime

import (
	"fmt"
	"strconv"

	"fbench/internal/domain/bench"
)

const (
	DefaultCompiler     = "futhark-opencl"
	DefaultSourceSuffix = ".fut"
	DefaultBinarySuffix = ".bin"
)

// Toolchain describes the external compiler used to build test cases.
type Toolchain struct {
	// Compiler is the executable name, e.g. "futhark-opencl".
	Compiler string
	// Args are extra arguments placed before "-o".
	Args         []string
	SourceSuffix string
	BinarySuffix string
}

// Normalize fills unset fields with defaults.
func (t Toolchain) Normalize() Toolchain {
	if t.Compiler == "" {
		t.Compiler = DefaultCompiler
	}
	if t.SourceSuffix == "" {
		t.SourceSuffix = DefaultSourceSuffix
	}
	if t.BinarySuffix == "" {
		t.BinarySuffix = DefaultBinarySuffix
	}
	return t
}

// SourceName returns the source file name for a case.
func (t Toolchain) SourceName(tc bench.TestCase) string {
	if tc.Source != "" {
		return tc.Source
	}
	return tc.Name + t.SourceSuffix
}

// BinaryName returns the compiled binary name for a case.
func (t Toolchain) BinaryName(tc bench.TestCase) string {
	return tc.Name + t.BinarySuffix
}

// CompileCommand returns "<compiler> <args...> -o <name>.bin ./<name>.fut".
func (t Toolchain) CompileCommand(tc bench.TestCase) []string {
	cmd := make([]string, 0, len(t.Args)+4)
	cmd = append(cmd, t.Compiler)
	cmd = append(cmd, t.Args...)
	return append(cmd, "-o", t.BinaryName(tc), "./"+t.SourceName(tc))
}

// BinaryArgs returns the flags passed to a benchmark binary.
func BinaryArgs(timeFile string, repetitions int) []string {
	return []string{"-t", timeFile, "-r", strconv.Itoa(repetitions)}
}

// DescribeRun renders an invocation the way a shell user would type it.
func DescribeRun(binary, timeFile string, repetitions int, inputPath, resultFile string) string {
	return fmt.Sprintf("./%s -t %s -r %d < %s > %s", binary, timeFile, repetitions, inputPath, resultFile)
}
