package main

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fbench/internal/app/generator"
)

func newGenerateCmd() *cobra.Command {
	var (
		seed uint64
		dir  string
	)
	cmd := &cobra.Command{
		Use:   "generate <name> <n>",
		Short: "Write a random input fixture and its expected scan output",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid size %q: %w", args[1], err)
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			fx, err := generator.Generate(generator.Config{
				Name:   args[0],
				Size:   size,
				Seed:   seed,
				Dir:    dir,
				Logger: log.Default(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s elements to %s and %s (seed %d)\n",
				humanize.Comma(int64(size)), fx.InputPath, fx.OutputPath, seed)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (default: time based)")
	cmd.Flags().StringVar(&dir, "dir", ".", "case directory; fixtures are written to <dir>/data")
	return cmd
}
