package fixture

import (
	"fmt"
	"path/filepath"
)

// DataDir is the per-case directory holding fixture pairs.
const DataDir = "data"

// InputPath returns the input fixture path for a case and size.
func InputPath(dir, name string, size int) string {
	return filepath.Join(dir, DataDir, fmt.Sprintf("%s_size_%d.input", name, size))
}

// OutputPath returns the expected-output fixture path for a case and size.
func OutputPath(dir, name string, size int) string {
	return filepath.Join(dir, DataDir, fmt.Sprintf("%s_size_%d.output", name, size))
}
