package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pascope/internal/trace"
)

// traceCleanup flushes and closes the tracer installed by setupTracing.
var traceCleanup = func() {}

// setupTracing builds a tracer from the trace settings and attaches it
// to the command context.
func setupTracing(cmd *cobra.Command) error {
	output := cfg.GetString("trace")
	level, err := trace.ParseLevel(cfg.GetString("trace-level"))
	if err != nil {
		return err
	}
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return nil
	}
	mode, err := trace.ParseMode(cfg.GetString("trace-mode"))
	if err != nil {
		return err
	}
	interval := cfg.GetDuration("trace-heartbeat")

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: output,
		Heartbeat:  interval,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	var heartbeat *trace.Heartbeat
	if interval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, interval)
	}
	traceCleanup = func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		dumpRing(tracer, mode)
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: close error: %v\n", err)
		}
	}
	return nil
}

// dumpRing writes a ring-only trace to stderr; stream modes already did.
func dumpRing(t trace.Tracer, mode trace.StorageMode) {
	if mode != trace.ModeRing {
		return
	}
	if ring, ok := t.(*trace.RingTracer); ok {
		if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
			fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
		}
	}
}
