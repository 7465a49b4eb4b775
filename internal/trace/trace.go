// Package trace records what the JIT backend is doing.
//
// Events are grouped into spans that follow the backend's work: adding a
// program, building prototypes, lowering a function, wiring an extern
// thunk, running. A Tracer decides by level which scopes reach its sink.
//
//	t, _ := trace.New(trace.Config{Level: trace.LevelDetail})
//	span := trace.Begin(t, trace.ScopePass, "prototypes", 0)
//	defer span.End("")
package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Level controls verbosity. Each level includes the ones below it.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // points only
	LevelPhase        // driver and pass spans
	LevelDetail       // plus per-function spans
	LevelDebug        // everything
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a level name, case-insensitively. Empty means off.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for i, name := range levelNames {
		if s == name {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// Allows reports whether spans of scope pass at this level.
func (l Level) Allows(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopePass
	case LevelDetail:
		return scope <= ScopeFunc
	case LevelDebug:
		return true
	}
	return false
}

// Scope is the granularity of an event; lower is coarser.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // add, run, CLI commands
	ScopePass                    // check, prototypes, verify
	ScopeFunc                    // one function or extern thunk
	ScopeStmt                    // one statement
)

func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopePass:
		return "pass"
	case ScopeFunc:
		return "func"
	case ScopeStmt:
		return "stmt"
	}
	return "unknown"
}

type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	}
	return "unknown"
}

// Event is one trace record. Elapsed is set on span ends only.
type Event struct {
	Seq     uint64
	At      time.Time
	Kind    Kind
	Scope   Scope
	Span    uint64
	Parent  uint64
	Name    string
	Detail  string
	Elapsed time.Duration
}

// Tracer receives events. Emit must be safe for concurrent use: the
// heartbeat emits from its own goroutine.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
}

// Enabled reports whether t records anything.
func Enabled(t Tracer) bool { return t != nil && t.Level() > LevelOff }

type nopTracer struct{}

func (nopTracer) Emit(*Event)  {}
func (nopTracer) Flush() error { return nil }
func (nopTracer) Close() error { return nil }
func (nopTracer) Level() Level { return LevelOff }

// Nop discards everything.
var Nop Tracer = nopTracer{}

// Mode selects where events are kept.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // written as they happen
	ModeRing                   // last RingSize events kept in memory
)

// ParseMode converts a mode name. Empty means stream.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	}
	return ModeStream, fmt.Errorf("invalid trace mode: %q (expected: stream|ring)", s)
}

// Config describes the tracer New builds.
type Config struct {
	Level  Level
	Mode   Mode
	Format Format
	// Output overrides OutputPath when set. OutputPath "" or "-" is stderr.
	Output     io.Writer
	OutputPath string
	RingSize   int
}

// New builds a tracer from cfg. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.Mode == ModeRing {
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	}
	format := cfg.Format
	if format == FormatAuto && strings.HasSuffix(cfg.OutputPath, ".ndjson") {
		format = FormatNDJSON
	}
	w := cfg.Output
	switch {
	case w != nil:
	case cfg.OutputPath == "" || cfg.OutputPath == "-":
		w = unclosable{os.Stderr}
	default:
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace output: %w", err)
		}
		w = f
	}
	return NewStreamTracer(w, cfg.Level, format), nil
}

// unclosable keeps Close from closing stderr.
type unclosable struct{ io.Writer }
