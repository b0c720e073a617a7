package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"owlsight/internal/trace"
)

type traceFlags struct {
	output    string
	level     string
	mode      string
	format    string
	ringSize  int
	heartbeat time.Duration
}

func readTraceFlags(cmd *cobra.Command) (traceFlags, error) {
	flags := cmd.Root().PersistentFlags()
	var tf traceFlags
	var errs [6]error
	tf.output, errs[0] = flags.GetString("trace")
	tf.level, errs[1] = flags.GetString("trace-level")
	tf.mode, errs[2] = flags.GetString("trace-mode")
	tf.format, errs[3] = flags.GetString("trace-format")
	tf.ringSize, errs[4] = flags.GetInt("trace-ring-size")
	tf.heartbeat, errs[5] = flags.GetDuration("trace-heartbeat")
	if err := errors.Join(errs[:]...); err != nil {
		return tf, fmt.Errorf("trace flags: %w", err)
	}
	return tf, nil
}

// setupTracing attaches a tracer built from the --trace* flags to the command
// context. The returned cleanup stops the heartbeat, dumps the ring and
// closes the output.
func setupTracing(cmd *cobra.Command) (func(), error) {
	tf, err := readTraceFlags(cmd)
	if err != nil {
		return nil, err
	}
	level, err := trace.ParseLevel(tf.level)
	if err != nil {
		return nil, err
	}
	// --trace без уровня включает фазы
	if level == trace.LevelOff && tf.output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}
	mode, err := trace.ParseMode(tf.mode)
	if err != nil {
		return nil, err
	}
	format, err := trace.ParseFormat(tf.format)
	if err != nil {
		return nil, err
	}
	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: tf.output,
		RingSize:   tf.ringSize,
	})
	if err != nil {
		return nil, err
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	stopPulse := trace.StartPulse(tracer, tf.heartbeat)

	stderr := cmd.ErrOrStderr()
	return func() {
		stopPulse()
		// в режиме both поток уже мог уйти в stderr
		streamedToStderr := mode == trace.ModeBoth && (tf.output == "" || tf.output == "-")
		if rec, ok := tracer.(*trace.Recorder); ok && mode != trace.ModeStream && !streamedToStderr {
			if err := rec.Dump(stderr, trace.FormatText); err != nil {
				fmt.Fprintf(stderr, "trace: dump: %v\n", err)
			}
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(stderr, "trace: close: %v\n", err)
		}
	}, nil
}
