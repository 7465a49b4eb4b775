// Package observ collects wall-clock timings of backend phases.
package observ

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// Phase is one timed step such as "check" or "lower:fact".
type Phase struct {
	Name    string
	Began   time.Time
	Elapsed time.Duration
	Note    string
}

// Group is the name before the first ':', so "lower:fact" and
// "lower:main" both count toward "lower".
func (p Phase) Group() string {
	group, _, _ := strings.Cut(p.Name, ":")
	return group
}

// Timer records phases in start order. A nil *Timer ignores every call,
// so callers never check whether timing is on.
type Timer struct {
	phases []Phase
}

func NewTimer() *Timer { return &Timer{} }

// Begin starts a phase and returns the handle End expects.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.phases = append(t.phases, Phase{Name: name, Began: time.Now()})
	return len(t.phases) - 1
}

// End stops the phase behind idx. Stale or foreign handles are ignored.
func (t *Timer) End(idx int, note string) {
	if t == nil || idx < 0 || idx >= len(t.phases) {
		return
	}
	t.phases[idx].Elapsed = time.Since(t.phases[idx].Began)
	t.phases[idx].Note = note
}

// Groups sums elapsed time per phase group, in first-seen order.
func (t *Timer) Groups() []Phase {
	if t == nil {
		return nil
	}
	var out []Phase
	at := make(map[string]int)
	for _, p := range t.phases {
		g := p.Group()
		i, ok := at[g]
		if !ok {
			i = len(out)
			at[g] = i
			out = append(out, Phase{Name: g, Began: p.Began})
		}
		out[i].Elapsed += p.Elapsed
	}
	return out
}

// Summary renders one row per phase and a total. Function names can be
// any Unicode, so the name column is padded by display width.
func (t *Timer) Summary() string {
	rep := t.Report()
	width := len("total")
	for _, p := range rep.Phases {
		width = max(width, runewidth.StringWidth(p.Name))
	}
	row := func(sb *strings.Builder, name string, ms float64) {
		fmt.Fprintf(sb, "  %s %9.3f ms", runewidth.FillRight(name, width), ms)
	}

	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range rep.Phases {
		row(&sb, p.Name, p.MS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	row(&sb, "total", rep.TotalMS)
	sb.WriteByte('\n')
	return sb.String()
}

// PhaseReport is a phase in milliseconds, tagged for JSON output.
type PhaseReport struct {
	Name string  `json:"name"`
	MS   float64 `json:"ms"`
	Note string  `json:"note,omitempty"`
}

type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
	Groups  []PhaseReport `json:"groups,omitempty"`
}

// Report converts the recorded phases to milliseconds.
func (t *Timer) Report() Report {
	if t == nil || len(t.phases) == 0 {
		return Report{}
	}
	var rep Report
	var total time.Duration
	for _, p := range t.phases {
		total += p.Elapsed
		rep.Phases = append(rep.Phases, PhaseReport{Name: p.Name, MS: millis(p.Elapsed), Note: p.Note})
	}
	for _, g := range t.Groups() {
		rep.Groups = append(rep.Groups, PhaseReport{Name: g.Name, MS: millis(g.Elapsed)})
	}
	rep.TotalMS = millis(total)
	return rep
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
