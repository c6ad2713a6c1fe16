package main

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"fbench/internal/domain/bench"
	"fbench/internal/fixture"
)

func TestEnvOrDefault(t *testing.T) {
	const key = "FBENCH_TEST_ENV"
	const fallback = "fallback"

	if got := envOrDefault(key, fallback); got != fallback {
		t.Fatalf("expected fallback when env unset, got %q", got)
	}

	t.Setenv(key, "value")
	if got := envOrDefault(key, fallback); got != "value" {
		t.Fatalf("expected env value, got %q", got)
	}
}

func TestParseBrokerList(t *testing.T) {
	input := " broker1:9092 , ,broker2:9093 ,"
	brokers := parseBrokerList(input)
	want := []string{"broker1:9092", "broker2:9093"}
	if len(brokers) != len(want) {
		t.Fatalf("expected %d brokers, got %d", len(want), len(brokers))
	}
	for i := range want {
		if brokers[i] != want[i] {
			t.Fatalf("unexpected broker at index %d: got %q want %q", i, brokers[i], want[i])
		}
	}
}

func TestParseSizes(t *testing.T) {
	if got := parseSizes("10, 20,30"); len(got) != 3 || got[0] != 10 || got[2] != 30 {
		t.Fatalf("unexpected sizes %v", got)
	}
	for _, raw := range []string{"", "10,x", "10,-5", "0"} {
		if got := parseSizes(raw); got != nil {
			t.Fatalf("parseSizes(%q) = %v, want nil", raw, got)
		}
	}
}

func TestParseRepetitions(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"", 10},
		{"not-a-number", 10},
		{"0", 10},
		{"-5", 10},
		{"3", 3},
	}

	for _, tc := range cases {
		if got := parseRepetitions(tc.input, 10); got != tc.want {
			t.Fatalf("parseRepetitions(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":    time.Minute,
		"x":   time.Minute,
		"-1s": time.Minute,
		"5s":  5 * time.Second,
	}
	for input, want := range cases {
		if got := parseDuration(input, time.Minute); got != want {
			t.Fatalf("parseDuration(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLoadAppConfigDefaults(t *testing.T) {
	cfg, err := loadAppConfig("")
	if err != nil {
		t.Fatalf("loadAppConfig returned error: %v", err)
	}
	if cfg.Results != "results/times.txt" || cfg.Runtime != runtimeLocal {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	if len(cfg.Sizes) != 3 || cfg.Sizes[0] != 100000 || cfg.Repetitions != 10 {
		t.Fatalf("unexpected benchmark defaults %#v", cfg)
	}
	if cfg.Timeout != 0 {
		t.Fatalf("expected no timeout by default, got %v", cfg.Timeout)
	}
}

func TestLoadAppConfigLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fbench.yaml")
	yamlDoc := `
root: cases
sizes: [5, 50]
repetitions: 3
timeout: 30s
memory_limit: 1GiB
runtime: docker
docker:
  build_image: futhark:latest
kafka:
  brokers: [kafka:9092]
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FBENCH_REPETITIONS", "7")
	t.Setenv("FBENCH_KAFKA_TOPIC", "custom-times")

	cfg, err := loadAppConfig(path)
	if err != nil {
		t.Fatalf("loadAppConfig returned error: %v", err)
	}
	if cfg.Root != "cases" || cfg.Runtime != runtimeDocker || cfg.Docker.BuildImage != "futhark:latest" {
		t.Fatalf("file values not applied: %#v", cfg)
	}
	if len(cfg.Sizes) != 2 || cfg.Sizes[1] != 50 {
		t.Fatalf("unexpected sizes %v", cfg.Sizes)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Timeout)
	}
	if cfg.Repetitions != 7 {
		t.Fatalf("environment should override file, got %d repetitions", cfg.Repetitions)
	}
	if cfg.Kafka.Topic != "custom-times" || len(cfg.Kafka.Brokers) != 1 {
		t.Fatalf("unexpected kafka config %#v", cfg.Kafka)
	}
	if cfg.Results != "results/times.txt" {
		t.Fatalf("unset keys should keep defaults, got %q", cfg.Results)
	}
	if n, err := cfg.memoryLimitBytes(); err != nil || n != 1<<30 {
		t.Fatalf("memoryLimitBytes = %d, %v", n, err)
	}
}

func TestLoadAppConfigErrors(t *testing.T) {
	if _, err := loadAppConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("sizes: [a, b"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadAppConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRunFlagsOverrideOnlyWhenSet(t *testing.T) {
	var flags runFlags
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.register(fs)
	if err := fs.Parse([]string{"--repetitions", "2", "--sizes", "1,2"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := defaultAppConfig()
	cfg.Root = "from-file"
	flags.apply(fs, &cfg)

	if cfg.Repetitions != 2 {
		t.Fatalf("expected flag repetitions, got %d", cfg.Repetitions)
	}
	if len(cfg.Sizes) != 2 || cfg.Sizes[1] != 2 {
		t.Fatalf("expected flag sizes, got %v", cfg.Sizes)
	}
	if cfg.Root != "from-file" {
		t.Fatalf("unset flag overrode root: %q", cfg.Root)
	}
}

func TestValidate(t *testing.T) {
	good := defaultAppConfig()
	if err := good.validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cases := map[string]func(*appConfig){
		"unknown runtime":  func(c *appConfig) { c.Runtime = "vm" },
		"docker w/o image": func(c *appConfig) { c.Runtime = runtimeDocker },
		"zero size":        func(c *appConfig) { c.Sizes = []int{0} },
		"zero repetitions": func(c *appConfig) { c.Repetitions = 0 },
		"bad memory limit": func(c *appConfig) { c.MemoryLimit = "lots" },
	}
	for name, mutate := range cases {
		cfg := defaultAppConfig()
		mutate(&cfg)
		if err := cfg.validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestSkippedDirs(t *testing.T) {
	root := t.TempDir()
	if got := skippedDirs(root, filepath.Join(root, "results", "times.txt")); len(got) != 1 || got[0] != "results" {
		t.Fatalf("unexpected skip list %v", got)
	}
	if got := skippedDirs(root, filepath.Join(root, "out", "deep", "times.txt")); len(got) != 1 || got[0] != "out" {
		t.Fatalf("unexpected skip list %v", got)
	}
	if got := skippedDirs(root, filepath.Join(root, "times.txt")); got != nil {
		t.Fatalf("log at root should skip nothing, got %v", got)
	}
	if got := skippedDirs(root, filepath.Join(filepath.Dir(root), "elsewhere", "times.txt")); got != nil {
		t.Fatalf("log outside root should skip nothing, got %v", got)
	}
}

func TestReportPrinter(t *testing.T) {
	var out bytes.Buffer
	printer := newReportPrinter(&out)

	tc := bench.TestCase{Name: "simple_scan1"}
	record := bench.NewTimingRecord("r", "t", tc.Name, 1000000, 2, []int64{10, 30})
	printer.Start(bench.Report{Case: tc, Size: 1000000, Command: "./simple_scan1.bin -t time -r 2 < in > res"})
	printer.Print(bench.Report{Case: tc, Size: 1000000, Command: "./simple_scan1.bin -t time -r 2 < in > res", Status: bench.StatusOK, Record: &record})
	printer.Print(bench.Report{
		Case:     tc,
		Size:     100,
		Status:   bench.StatusWrongAnswer,
		Mismatch: &bench.Mismatch{Got: []int64{1, 2}, Want: []int64{1, 3}},
		Record:   &bench.TimingRecord{Repetitions: 2, Mean: math.NaN()},
	})
	printer.Print(bench.Report{Case: bench.TestCase{Name: "broken"}, Status: bench.StatusCompileFailed})
	printer.Print(bench.Report{Case: tc, Size: 5, Status: bench.StatusTimeout})
	printer.Summary()

	text := out.String()
	for _, want := range []string{
		"./simple_scan1.bin -t time -r 2 < in > res",
		"simple_scan1 size 1,000,000: mean 20.00 over 2 runs",
		"Wrong result on test simple_scan1.",
		"got:      [1,2]",
		"expected: [1,3]",
		"no timing samples over 2 runs",
		"Compilation failed for test broken.",
		"simple_scan1 size 5: TL",
		"1 passed, 3 failed",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
	if n := strings.Count(text, "./simple_scan1.bin"); n != 1 {
		t.Fatalf("expected the command once, printed before the run, got %d:\n%s", n, text)
	}
}

func TestReportPrinterShowsMismatchForFailedTimings(t *testing.T) {
	var out bytes.Buffer
	printer := newReportPrinter(&out)

	printer.Print(bench.Report{
		Case:     bench.TestCase{Name: "scan"},
		Size:     100,
		Status:   bench.StatusParseFailed,
		Mismatch: &bench.Mismatch{Got: []int64{11, 20}, Want: []int64{11, 21}},
		Err:      errors.New("parse timings: bad sample"),
	})
	printer.Summary()

	text := out.String()
	for _, want := range []string{
		"Wrong result on test scan.",
		"got:      [11,20]",
		"expected: [11,21]",
		"scan size 100: PF",
		"parse timings: bad sample",
		"0 passed, 1 failed",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestGenerateCommandWritesFixtures(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"generate", "scan", "25", "--seed", "7", "--dir", dir})
	if err := root.Execute(); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}

	input, err := fixture.ParseFile(fixture.InputPath(dir, "scan", 25))
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	output, err := fixture.ParseFile(fixture.OutputPath(dir, "scan", 25))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(input) != 25 || len(output) != 25 {
		t.Fatalf("unexpected lengths %d/%d", len(input), len(output))
	}
	if output[0] != input[0]+10 {
		t.Fatalf("expected shifted prefix sum, got %d for input %d", output[0], input[0])
	}
	if !strings.Contains(out.String(), "seed 7") {
		t.Fatalf("expected seed in output, got %q", out.String())
	}
}

func TestGenerateCommandRejectsBadSize(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"generate", "scan", "many", "--dir", t.TempDir()})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error for non-numeric size")
	}
}

func TestRunCommandRejectsUnknownRuntime(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"run", "--runtime", "vm", "--root", t.TempDir()})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown runtime") {
		t.Fatalf("expected unknown runtime error, got %v", err)
	}
}

func TestRunCommandWithNoCases(t *testing.T) {
	root := t.TempDir()
	results := filepath.Join(root, "results", "times.txt")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--root", root, "--results", results})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if !strings.Contains(out.String(), "0 passed, 0 failed") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if _, err := os.Stat(results); !os.IsNotExist(err) {
		t.Fatalf("results log should not exist without records, stat err: %v", err)
	}
}

func TestRunCommandReportsSkippedDirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "typo"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "typo", "tpyo.fut"), []byte("let main = 0\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"run", "--root", root, "--results", filepath.Join(root, "results", "times.txt")})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if !strings.Contains(errOut.String(), "skipping typo: no typo.fut") {
		t.Fatalf("expected skipped directory to be reported, got %q", errOut.String())
	}
}
