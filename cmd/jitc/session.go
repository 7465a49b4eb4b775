package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"jitcore/internal/codegen"
	"jitcore/internal/config"
	"jitcore/internal/observ"
	"jitcore/internal/trace"
)

// session carries per-invocation settings resolved from the config file
// and the persistent flags.
type session struct {
	cfg     config.Config
	tracer  trace.Tracer
	timer   *observ.Timer
	timings bool
}

// openSession loads the config, applies flag overrides and builds the
// tracer. The returned cleanup flushes and closes the tracer.
func openSession(cmd *cobra.Command) (*session, func(), error) {
	root := cmd.Root()
	cfgPath, err := root.PersistentFlags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return nil, nil, err
	}

	if err := overrideTrace(root, &cfg); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	timings, err := root.PersistentFlags().GetBool("timings")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get timings flag: %w", err)
	}

	traceCfg, err := cfg.TraceSettings()
	if err != nil {
		return nil, nil, err
	}
	tracer, err := trace.New(traceCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	s := &session{cfg: cfg, tracer: tracer, timings: timings}
	if timings {
		s.timer = observ.NewTimer()
	}

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return s, cleanup, nil
}

func overrideTrace(root *cobra.Command, cfg *config.Config) error {
	flags := root.PersistentFlags()
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{"trace", &cfg.Trace.Level},
		{"trace-mode", &cfg.Trace.Mode},
		{"trace-output", &cfg.Trace.Output},
		{"trace-format", &cfg.Trace.Format},
	} {
		if !flags.Changed(o.flag) {
			continue
		}
		v, err := flags.GetString(o.flag)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", o.flag, err)
		}
		*o.dst = v
	}
	if flags.Changed("trace-heartbeat") {
		d, err := flags.GetDuration("trace-heartbeat")
		if err != nil {
			return fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
		}
		cfg.JIT.Heartbeat = int(d / time.Millisecond)
	}
	return nil
}

// generatorOptions maps the session onto codegen options.
func (s *session) generatorOptions(moduleName string) codegen.Options {
	opts := codegen.DefaultOptions()
	opts.OptLevel = s.cfg.JIT.OptLevel
	opts.LegacyGreaterThan = s.cfg.JIT.LegacyGT
	opts.Tracer = s.tracer
	opts.Timer = s.timer
	opts.Heartbeat = s.cfg.HeartbeatInterval()
	if moduleName != "" {
		opts.ModuleName = moduleName
	}
	return opts
}

// dumpOnPanic is deferred around JIT work. In ring mode it writes the kept
// events before the panic continues.
func (s *session) dumpOnPanic(w io.Writer) {
	r := recover()
	if r == nil {
		return
	}
	if ring, ok := s.tracer.(*trace.RingTracer); ok {
		fmt.Fprintln(w, "trace: last events before panic:")
		_ = ring.Dump(w, trace.FormatText)
	}
	panic(r)
}
