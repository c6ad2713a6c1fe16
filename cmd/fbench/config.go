package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"fbench/internal/app/driver"
)

const (
	runtimeLocal  = "local"
	runtimeDocker = "docker"

	defaultResultsPath = "results/times.txt"
	defaultKafkaTopic  = "bench-times"
)

type appConfig struct {
	Root         string        `yaml:"root"`
	Results      string        `yaml:"results"`
	Sizes        []int         `yaml:"sizes"`
	Repetitions  int           `yaml:"repetitions"`
	Timeout      time.Duration `yaml:"timeout"`
	MemoryLimit  string        `yaml:"memory_limit"`
	Runtime      string        `yaml:"runtime"`
	Compiler     string        `yaml:"compiler"`
	CompilerArgs []string      `yaml:"compiler_args"`
	Docker       dockerConfig  `yaml:"docker"`
	Kafka        kafkaConfig   `yaml:"kafka"`
}

type dockerConfig struct {
	BuildImage string `yaml:"build_image"`
	RunImage   string `yaml:"run_image"`
}

type kafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		Root:        ".",
		Results:     defaultResultsPath,
		Sizes:       append([]int(nil), driver.DefaultSizes...),
		Repetitions: driver.DefaultRepetitions,
		Runtime:     runtimeLocal,
		Kafka:       kafkaConfig{Topic: defaultKafkaTopic},
	}
}

// loadAppConfig layers the optional YAML file, then FBENCH_* variables, over
// the defaults. Flags are applied afterwards by the command.
func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return appConfig{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return appConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *appConfig) {
	cfg.Root = envOrDefault("FBENCH_ROOT", cfg.Root)
	cfg.Results = envOrDefault("FBENCH_RESULTS", cfg.Results)
	if sizes := parseSizes(os.Getenv("FBENCH_SIZES")); len(sizes) > 0 {
		cfg.Sizes = sizes
	}
	cfg.Repetitions = parseRepetitions(os.Getenv("FBENCH_REPETITIONS"), cfg.Repetitions)
	cfg.Timeout = parseDuration(os.Getenv("FBENCH_TIMEOUT"), cfg.Timeout)
	cfg.MemoryLimit = envOrDefault("FBENCH_MEMORY_LIMIT", cfg.MemoryLimit)
	cfg.Runtime = envOrDefault("FBENCH_RUNTIME", cfg.Runtime)
	cfg.Compiler = envOrDefault("FBENCH_COMPILER", cfg.Compiler)
	cfg.Docker.BuildImage = envOrDefault("FBENCH_BUILD_IMAGE", cfg.Docker.BuildImage)
	cfg.Docker.RunImage = envOrDefault("FBENCH_RUN_IMAGE", cfg.Docker.RunImage)
	if brokers := parseBrokerList(os.Getenv("FBENCH_KAFKA_BROKERS")); len(brokers) > 0 {
		cfg.Kafka.Brokers = brokers
	}
	cfg.Kafka.Topic = envOrDefault("FBENCH_KAFKA_TOPIC", cfg.Kafka.Topic)
}

// runFlags mirrors the run command's flags. Only flags set on the command
// line override the loaded configuration.
type runFlags struct {
	configPath  string
	root        string
	results     string
	sizes       []int
	repetitions int
	timeout     time.Duration
	memoryLimit string
	runtime     string
	compiler    string
	kafka       []string
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.root, "root", ".", "directory holding the test case directories")
	fs.StringVar(&f.results, "results", defaultResultsPath, "results log to append to")
	fs.IntSliceVar(&f.sizes, "sizes", driver.DefaultSizes, "input sizes to benchmark")
	fs.IntVar(&f.repetitions, "repetitions", driver.DefaultRepetitions, "timed repetitions per invocation")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-invocation time limit (0 disables)")
	fs.StringVar(&f.memoryLimit, "memory-limit", "", "container memory limit, e.g. 2GiB (docker runtime only)")
	fs.StringVar(&f.runtime, "runtime", runtimeLocal, "where to compile and run: local or docker")
	fs.StringVar(&f.compiler, "compiler", "", "compiler executable (default futhark-opencl)")
	fs.StringSliceVar(&f.kafka, "kafka-brokers", nil, "also publish records to these Kafka brokers")
}

func (f *runFlags) apply(fs *pflag.FlagSet, cfg *appConfig) {
	if fs.Changed("root") {
		cfg.Root = f.root
	}
	if fs.Changed("results") {
		cfg.Results = f.results
	}
	if fs.Changed("sizes") {
		cfg.Sizes = f.sizes
	}
	if fs.Changed("repetitions") {
		cfg.Repetitions = f.repetitions
	}
	if fs.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if fs.Changed("memory-limit") {
		cfg.MemoryLimit = f.memoryLimit
	}
	if fs.Changed("runtime") {
		cfg.Runtime = f.runtime
	}
	if fs.Changed("compiler") {
		cfg.Compiler = f.compiler
	}
	if fs.Changed("kafka-brokers") {
		cfg.Kafka.Brokers = f.kafka
	}
}

func (c appConfig) validate() error {
	if c.Runtime != runtimeLocal && c.Runtime != runtimeDocker {
		return fmt.Errorf("unknown runtime %q (want %s or %s)", c.Runtime, runtimeLocal, runtimeDocker)
	}
	if c.Runtime == runtimeDocker && c.Docker.BuildImage == "" {
		return fmt.Errorf("docker runtime requires docker.build_image or FBENCH_BUILD_IMAGE")
	}
	for _, size := range c.Sizes {
		if size <= 0 {
			return fmt.Errorf("invalid size %d", size)
		}
	}
	if c.Repetitions <= 0 {
		return fmt.Errorf("repetitions must be positive, got %d", c.Repetitions)
	}
	if _, err := c.memoryLimitBytes(); err != nil {
		return err
	}
	return nil
}

func (c appConfig) memoryLimitBytes() (int64, error) {
	if c.MemoryLimit == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MemoryLimit)
	if err != nil {
		return 0, fmt.Errorf("invalid memory limit %q: %w", c.MemoryLimit, err)
	}
	return int64(n), nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseBrokerList(raw string) []string {
	return splitList(raw)
}

func splitList(raw string) []string {
	fields := strings.Split(raw, ",")
	items := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// parseSizes returns nil unless every entry is a positive integer.
func parseSizes(raw string) []int {
	fields := splitList(raw)
	if len(fields) == 0 {
		return nil
	}
	sizes := make([]int, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.Atoi(field)
		if err != nil || value <= 0 {
			return nil
		}
		sizes = append(sizes, value)
	}
	return sizes
}

func parseRepetitions(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
