// Package driver wires the splitting pipeline together: load, parse,
// schedule, split, validate, emit.
package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"eddy/internal/callgraph"
	"eddy/internal/coro"
	"eddy/internal/ir"
	"eddy/internal/layout"
	"eddy/internal/observ"
	"eddy/internal/trace"
	"eddy/internal/types"
)

// Options configures one pipeline run.
type Options struct {
	// Inputs are textual IR files, processed in the given order.
	Inputs []string

	// Out is the rewritten IR destination. Empty or "-" means stdout.
	Out string

	// MetadataPath, when set, receives the per-coroutine sidecar.
	MetadataPath string

	// TargetPath is an optional TOML target description; empty picks the
	// default target.
	TargetPath string

	Tracer trace.Tracer
	Timer  *observ.Timer
}

// Result is what a completed run hands back to the caller.
type Result struct {
	Module  *ir.Module
	Types   *types.Interner
	Target  layout.Target
	Records []coro.Record
}

// Run executes the full pipeline. The module is mutated in place by the
// scheduler; Result carries it plus the collected coroutine records.
func Run(ctx context.Context, opts Options) (*Result, error) {
	tr := opts.Tracer
	if tr == nil {
		tr = trace.Nop
	}
	root := trace.Begin(tr, trace.ScopeDriver, "split", 0)
	defer root.End("")

	target, err := layout.LoadTarget(opts.TargetPath)
	if err != nil {
		return nil, err
	}

	src, err := loadInputs(ctx, opts, tr, root.ID())
	if err != nil {
		return nil, err
	}

	typesIn := types.NewInterner()
	m, err := phase(opts.Timer, tr, root.ID(), "parse", func() (*ir.Module, error) {
		return ir.ParseModule(src, typesIn)
	})
	if err != nil {
		return nil, err
	}
	if err := ir.Validate(m); err != nil {
		return nil, fmt.Errorf("driver: input validation: %w", err)
	}

	pass := &coro.SplitPass{
		Types:  typesIn,
		Layout: layout.NewEngine(target, typesIn),
	}
	if _, err := phase(opts.Timer, tr, root.ID(), "split", func() (struct{}, error) {
		sched := &callgraph.Scheduler{Passes: []callgraph.Pass{pass}}
		return struct{}{}, sched.Run(m)
	}); err != nil {
		return nil, err
	}

	if err := ir.Validate(m); err != nil {
		return nil, fmt.Errorf("driver: output validation: %w", err)
	}

	res := &Result{Module: m, Types: typesIn, Target: target, Records: pass.Records}
	if err := emit(opts, res, typesIn); err != nil {
		return nil, err
	}
	return res, nil
}

// loadInputs reads every input file concurrently and joins them in input
// order, so function references may cross file boundaries.
func loadInputs(ctx context.Context, opts Options, tr trace.Tracer, parent uint64) (string, error) {
	if len(opts.Inputs) == 0 {
		return "", fmt.Errorf("driver: no input files")
	}
	sp := trace.Begin(tr, trace.ScopePass, "load", parent)
	defer sp.End("")

	sources := make([]string, len(opts.Inputs))
	g, _ := errgroup.WithContext(ctx)
	for i, path := range opts.Inputs {
		i, path := i, path
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("driver: read %s: %w", path, err)
			}
			sources[i] = string(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(sources, "\n"), nil
}

func emit(opts Options, res *Result, typesIn *types.Interner) error {
	var w io.Writer = os.Stdout
	if opts.Out != "" && opts.Out != "-" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return fmt.Errorf("driver: create output: %w", err)
		}
		defer f.Close() //nolint:errcheck // best effort on close
		w = f
	}
	if err := ir.DumpModule(w, res.Module, typesIn, ir.DumpOptions{}); err != nil {
		return fmt.Errorf("driver: dump module: %w", err)
	}
	if opts.MetadataPath != "" {
		if err := coro.WriteMetadataFile(opts.MetadataPath, res.Records); err != nil {
			return err
		}
	}
	return nil
}

// phase runs fn under a trace span and a timer phase.
func phase[T any](t *observ.Timer, tr trace.Tracer, parent uint64, name string, fn func() (T, error)) (T, error) {
	sp := trace.Begin(tr, trace.ScopePass, name, parent)
	done := t.Phase(name)
	out, err := fn()
	note := ""
	if err != nil {
		note = "failed"
	}
	done(note)
	sp.End(note)
	return out, err
}
