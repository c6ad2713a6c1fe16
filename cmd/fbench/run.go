package main

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fbench/internal/app/driver"
	"fbench/internal/domain/bench"
	kafkainfra "fbench/internal/infra/kafka"
	"fbench/internal/infra/resultlog"
	"fbench/internal/infra/workspace"
	"fbench/internal/ports"
	runtimex "fbench/internal/runtime"
	"fbench/internal/runtime/docker"
	"fbench/internal/runtime/local"
)

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile every test case and benchmark it at each input size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig(flags.configPath)
			if err != nil {
				return err
			}
			flags.apply(cmd.Flags(), &cfg)
			if err := cfg.validate(); err != nil {
				return err
			}
			return runBenchmarks(cmd, cfg)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func runBenchmarks(cmd *cobra.Command, cfg appConfig) error {
	memoryLimit, err := cfg.memoryLimitBytes()
	if err != nil {
		return err
	}
	limits := bench.Limits{TimeLimit: cfg.Timeout, MemoryLimitBytes: memoryLimit}
	toolchain := runtimex.Toolchain{Compiler: cfg.Compiler, Args: cfg.CompilerArgs}.Normalize()

	runner, err := newRunner(cfg, toolchain, limits)
	if err != nil {
		return err
	}

	sinks := []ports.RecordSink{resultlog.New(cfg.Results)}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafkainfra.NewPublisher(kafkainfra.PublisherConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		if err != nil {
			return errors.Join(fmt.Errorf("initialize kafka publisher: %w", err), runner.Close())
		}
		sinks = append(sinks, publisher)
	}

	source := workspace.NewSource(workspace.Config{
		Root:         cfg.Root,
		SourceSuffix: toolchain.SourceSuffix,
		Skip:         skippedDirs(cfg.Root, cfg.Results),
		Logger:       log.New(cmd.ErrOrStderr(), "", log.LstdFlags),
	})

	service := driver.NewService(runner, source, sinks...)
	defer func() {
		if cerr := service.Close(); cerr != nil {
			log.Printf("warning: failed to close benchmark service: %v", cerr)
		}
	}()

	printer := newReportPrinter(cmd.OutOrStdout())
	err = service.Run(cmd.Context(), driver.Options{
		Sizes:       cfg.Sizes,
		Repetitions: cfg.Repetitions,
		Limits:      limits,
		Toolchain:   toolchain,
		OnStart:     printer.Start,
	}, printer.Print)
	printer.Summary()
	return err
}

func newRunner(cfg appConfig, toolchain runtimex.Toolchain, limits bench.Limits) (ports.Runner, error) {
	switch cfg.Runtime {
	case runtimeDocker:
		engine, err := docker.New(docker.Config{
			Toolchain:     toolchain,
			BuildImage:    cfg.Docker.BuildImage,
			RunImage:      cfg.Docker.RunImage,
			DefaultLimits: limits,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize docker runtime: %w", err)
		}
		return engine, nil
	default:
		return local.New(local.Config{Toolchain: toolchain, DefaultLimits: limits}), nil
	}
}

// skippedDirs names the top-level directory of the results log when it lives
// under root, so it is never mistaken for a test case.
func skippedDirs(root, results string) []string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil
	}
	absResults, err := filepath.Abs(results)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(absRoot, filepath.Dir(absResults))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	return []string{strings.Split(filepath.ToSlash(rel), "/")[0]}
}
