package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Format selects how a stream renders events.
type Format uint8

const (
	FormatAuto   Format = iota // text, or NDJSON for *.ndjson paths
	FormatText
	FormatNDJSON
)

// ParseFormat converts a format name. Empty means auto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
}

// Render formats ev as one line.
func Render(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return renderJSON(ev)
	}
	return renderText(ev)
}

type jsonEvent struct {
	Seq       uint64  `json:"seq"`
	At        string  `json:"at"`
	Kind      string  `json:"kind"`
	Scope     string  `json:"scope"`
	Span      uint64  `json:"span,omitempty"`
	Parent    uint64  `json:"parent,omitempty"`
	Name      string  `json:"name"`
	Detail    string  `json:"detail,omitempty"`
	ElapsedMS float64 `json:"elapsed_ms,omitempty"`
}

func renderJSON(ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Seq:       ev.Seq,
		At:        ev.At.Format(time.RFC3339Nano),
		Kind:      ev.Kind.String(),
		Scope:     ev.Scope.String(),
		Span:      ev.Span,
		Parent:    ev.Parent,
		Name:      ev.Name,
		Detail:    ev.Detail,
		ElapsedMS: float64(ev.Elapsed) / float64(time.Millisecond),
	})
	if err != nil {
		return nil
	}
	return append(data, '\n')
}

var kindMarks = map[Kind]string{
	KindSpanBegin: "+ ",
	KindSpanEnd:   "- ",
	KindPoint:     "! ",
	KindHeartbeat: "~ ",
}

// renderText writes "[seq] <indent><mark>name (detail) elapsed".
func renderText(ev *Event) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%6d] ", ev.Seq)
	if ev.Scope > ScopeDriver {
		sb.WriteString(strings.Repeat("  ", int(ev.Scope-ScopeDriver)))
	}
	sb.WriteString(kindMarks[ev.Kind])
	sb.WriteString(ev.Name)
	if ev.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", ev.Detail)
	}
	if ev.Kind == KindSpanEnd {
		fmt.Fprintf(&sb, " %.3fms", float64(ev.Elapsed)/float64(time.Millisecond))
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}

// filtered reports whether a tracer at level drops ev. Only spans are
// filtered by scope.
func filtered(level Level, ev *Event) bool {
	span := ev.Kind == KindSpanBegin || ev.Kind == KindSpanEnd
	return span && !level.Allows(ev.Scope)
}

// StreamTracer writes each event to w as it arrives. Write errors are
// dropped; tracing never fails code generation.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	return &StreamTracer{w: w, level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if filtered(t.level, ev) {
		return
	}
	line := Render(ev, t.format)
	t.mu.Lock()
	_, _ = t.w.Write(line)
	t.mu.Unlock()
}

func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes, then closes the writer when it is an io.Closer.
func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level { return t.level }

// RingTracer keeps the most recent events for a post-mortem dump.
type RingTracer struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	wrap  bool
	level Level
}

// NewRingTracer keeps up to size events; size <= 0 means 4096.
func NewRingTracer(size int, level Level) *RingTracer {
	if size <= 0 {
		size = 4096
	}
	return &RingTracer{buf: make([]Event, size), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if filtered(t.level, ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf[t.next] = *ev
	t.next++
	if t.next == len(t.buf) {
		t.next, t.wrap = 0, true
	}
}

// Snapshot returns the kept events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.wrap {
		return append([]Event(nil), t.buf[:t.next]...)
	}
	out := make([]Event, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}

// Dump writes the kept events to w in format.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(Render(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }
func (t *RingTracer) Close() error { return nil }
func (t *RingTracer) Level() Level { return t.level }
