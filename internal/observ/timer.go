// Package observ collects wall-clock timings of a check run.
package observ

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Timer records the stages of one run and the crates analyzed inside them.
// Crates are reported apart and never count toward the total: they overlap
// each other and the analyze stage. Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	stages []*Stage
	units  []Entry
}

// Stage is a running step; Done stops its clock.
type Stage struct {
	t     *Timer
	entry Entry
	began time.Time
	done  bool
}

// Entry is one finished row of a report.
type Entry struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report is the serializable form of a Timer. Units are slowest first.
type Report struct {
	TotalMS float64 `json:"total_ms"`
	Phases  []Entry `json:"phases"`
	Units   []Entry `json:"units,omitempty"`
}

func NewTimer() *Timer { return &Timer{} }

// Stage starts a step named name.
func (t *Timer) Stage(name string) *Stage {
	s := &Stage{t: t, entry: Entry{Name: name}, began: time.Now()}
	t.mu.Lock()
	t.stages = append(t.stages, s)
	t.mu.Unlock()
	return s
}

// Done stops the stage. Only the first call counts.
func (s *Stage) Done(note string) {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.entry.DurationMS = millis(time.Since(s.began))
	s.entry.Note = note
}

// Unit records a crate that took d to analyze.
func (t *Timer) Unit(name string, d time.Duration, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.units = append(t.units, Entry{Name: name, DurationMS: millis(d), Note: note})
}

// Report snapshots the timer. Unfinished stages report zero.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	var r Report
	for _, s := range t.stages {
		r.Phases = append(r.Phases, s.entry)
		r.TotalMS += s.entry.DurationMS
	}
	if len(t.units) > 0 {
		r.Units = slices.Clone(t.units)
		slices.SortStableFunc(r.Units, func(a, b Entry) int {
			return cmp.Compare(b.DurationMS, a.DurationMS)
		})
	}
	return r
}

// Summary renders the report as an aligned table.
func (t *Timer) Summary() string {
	r := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	rows(&b, r.Phases)
	rows(&b, []Entry{{Name: "total", DurationMS: r.TotalMS}})
	if len(r.Units) > 0 {
		b.WriteString("crates:\n")
		rows(&b, r.Units)
	}
	return b.String()
}

func rows(b *strings.Builder, entries []Entry) {
	for _, e := range entries {
		line := fmt.Sprintf("  %-24s %9.2f ms", e.Name, e.DurationMS)
		if e.Note != "" {
			line += "  // " + e.Note
		}
		b.WriteString(line + "\n")
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
