package bench

import "time"

// Result captures the outcome of a compilation or of one binary invocation.
type Result struct {
	Status Status
	// Stdout holds the program's standard output: the computed result list for a
	// benchmark run, compiler chatter for a build.
	Stdout string
	// Timings holds the raw contents of the timing file written by the binary.
	Timings  string
	Stderr   string
	ExitCode int64
	Duration time.Duration
}
