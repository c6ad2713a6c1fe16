//go:build integration

package testhelpers

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"fbench/internal/app/generator"
	"fbench/internal/domain/bench"
)

// ScanProgram stands in for a compiled scan benchmark: it writes one timing
// sample per repetition and prints the inclusive prefix sum of stdin+10 with
// i32 tags.
const ScanProgram = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    -t) tf="$2"; shift 2 ;;
    -r) n="$2"; shift 2 ;;
    *) shift ;;
  esac
done
i=0
while [ "$i" -lt "$n" ]; do
  echo $((1000 + i)) >> "$tf"
  i=$((i + 1))
done
tr -d '[]\n' | awk -F, '{ s = 0; out = ""; for (i = 1; i <= NF; i++) { s += $i + 10; out = out (i > 1 ? ", " : "") s "i32" } print "[" out "]" }'
`

// CopyCompiler mimics "<compiler> -o <out> <src>" by copying src to out.
const CopyCompiler = `#!/bin/sh
out=""
src=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    *) src="$1"; shift ;;
  esac
done
cp "$src" "$out"
chmod +x "$out"
`

// WriteScanCase creates root/name with ScanProgram as its source and generated
// fixtures for every size.
func WriteScanCase(t *testing.T, root, name string, sizes ...int) bench.TestCase {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	source := name + ".fut"
	if err := os.WriteFile(filepath.Join(dir, source), []byte(ScanProgram), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	for _, size := range sizes {
		if _, err := generator.Generate(generator.Config{
			Name:   name,
			Size:   size,
			Seed:   uint64(size),
			Dir:    dir,
			Logger: log.New(io.Discard, "", 0),
		}); err != nil {
			t.Fatalf("generate size %d: %v", size, err)
		}
	}
	return bench.TestCase{Name: name, Dir: dir, Source: source}
}

// WriteCompiler writes CopyCompiler into dir and returns its path.
func WriteCompiler(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "copyc")
	if err := os.WriteFile(path, []byte(CopyCompiler), 0o755); err != nil {
		t.Fatalf("write compiler: %v", err)
	}
	return path
}
