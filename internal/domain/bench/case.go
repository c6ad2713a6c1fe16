package bench

// TestCase is one benchmarked program, identified by its directory name.
type TestCase struct {
	Name string
	// Dir is the absolute path of the case directory.
	Dir string
	// Source is the path of the program source relative to Dir.
	Source string
}

// Invocation describes a single run of a compiled benchmark binary.
type Invocation struct {
	InputPath   string
	Repetitions int
	Limits      Limits
}
