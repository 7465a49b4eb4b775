package trace

import (
	"sync/atomic"
	"time"
)

var (
	seq   atomic.Uint64
	spans atomic.Uint64
)

// Span is an open begin/end pair. The zero Span and spans from filtered
// scopes are inert.
type Span struct {
	t      Tracer
	id     uint64
	parent uint64
	scope  Scope
	name   string
	start  time.Time
}

// Begin opens a span under parent (0 for a root) and emits its begin event.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if !Enabled(t) || !t.Level().Allows(scope) {
		return &Span{}
	}
	s := &Span{
		t:      t,
		id:     spans.Add(1),
		parent: parent,
		scope:  scope,
		name:   name,
		start:  time.Now(),
	}
	t.Emit(&Event{
		Seq:    seq.Add(1),
		At:     s.start,
		Kind:   KindSpanBegin,
		Scope:  scope,
		Span:   s.id,
		Parent: parent,
		Name:   name,
	})
	return s
}

// End emits the end event with detail and returns the elapsed time.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.t == nil {
		return 0
	}
	now := time.Now()
	elapsed := now.Sub(s.start)
	s.t.Emit(&Event{
		Seq:     seq.Add(1),
		At:      now,
		Kind:    KindSpanEnd,
		Scope:   s.scope,
		Span:    s.id,
		Parent:  s.parent,
		Name:    s.name,
		Detail:  detail,
		Elapsed: elapsed,
	})
	return elapsed
}

// ID is the span id, 0 for inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event. Points pass every level above off, so a
// failure is recorded even when its scope's spans are filtered.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if !Enabled(t) {
		return
	}
	t.Emit(&Event{
		Seq:    seq.Add(1),
		At:     time.Now(),
		Kind:   KindPoint,
		Scope:  scope,
		Parent: parent,
		Name:   name,
		Detail: detail,
	})
}
