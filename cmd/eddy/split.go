package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"eddy/internal/driver"
	"eddy/internal/observ"
	"eddy/internal/trace"
)

var (
	splitOut      string
	splitMetadata string
	splitTarget   string
)

func init() {
	splitCmd.Flags().StringVarP(&splitOut, "out", "o", "", "output IR path (default stdout)")
	splitCmd.Flags().StringVar(&splitMetadata, "metadata", "", "write coroutine metadata sidecar to this path")
	splitCmd.Flags().StringVar(&splitTarget, "target", "", "TOML target description (default x86_64 linux)")
}

var splitCmd = &cobra.Command{
	Use:   "split <input.eir>...",
	Short: "Split coroutines in textual IR files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupColor(cmd)

		tracer, cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
		timings, _ := cmd.Root().PersistentFlags().GetBool("timings")

		var timer *observ.Timer
		if timings {
			timer = observ.NewTimer()
		}

		res, err := driver.Run(cmd.Context(), driver.Options{
			Inputs:       args,
			Out:          splitOut,
			MetadataPath: splitMetadata,
			TargetPath:   splitTarget,
			Tracer:       tracer,
			Timer:        timer,
		})
		if err != nil {
			return err
		}

		if !quiet {
			n := len(res.Records)
			noun := "coroutines"
			if n == 1 {
				noun = "coroutine"
			}
			fmt.Fprintf(os.Stderr, "%s %d %s split\n", color.GreenString("ok:"), n, noun)
		}
		if timer != nil {
			fmt.Fprint(os.Stderr, timer.Summary())
		}
		return nil
	},
}

// setupTracing reads trace flags and builds the tracer. The returned
// cleanup flushes and closes it.
func setupTracing(cmd *cobra.Command) (trace.Tracer, func(), error) {
	root := cmd.Root()
	out, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, err
	}
	if level == trace.LevelOff && out != "" {
		// An output path without an explicit level means the user wants
		// something; default to phase granularity.
		level = trace.LevelPhase
	}
	tracer, err := trace.New(trace.Config{Level: level, OutputPath: out})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = tracer.Close() } //nolint:errcheck // best effort on shutdown
	return tracer, cleanup, nil
}
