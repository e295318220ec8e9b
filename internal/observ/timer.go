// Package observ measures pipeline phases for the --timings report.
package observ

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Phase is one measured interval.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer records phases and named counters. It is safe for concurrent use
// so per-unit work running in parallel can report into one timer.
type Timer struct {
	mu       sync.Mutex
	phases   []Phase
	counters map[string]int64
}

// NewTimer creates an empty timer.
func NewTimer() *Timer {
	return &Timer{phases: make([]Phase, 0, 8), counters: make(map[string]int64)}
}

// Begin starts a phase and returns its index for End.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase at idx.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Measure runs fn as a phase and returns its error.
func (t *Timer) Measure(name string, fn func() error) error {
	idx := t.Begin(name)
	err := fn()
	note := ""
	if err != nil {
		note = "failed"
	}
	t.End(idx, note)
	return err
}

// Add increments a counter such as "occurrences" or "cache.hits".
func (t *Timer) Add(counter string, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters[counter] += n
}

// Counter returns the current value of a counter.
func (t *Timer) Counter(name string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters[name]
}

// PhaseReport is the serialisable form of a phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates phases and counters.
type Report struct {
	TotalMS  float64          `json:"total_ms"`
	Phases   []PhaseReport    `json:"phases"`
	Counters map[string]int64 `json:"counters,omitempty"`
}

// Report snapshots the timer. Phases keep their start order; the total
// is the sum of top-level durations.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, p := range t.phases {
		total += p.Dur
		report.Phases[i] = PhaseReport{Name: p.Name, DurationMS: millis(p.Dur), Note: p.Note}
	}
	report.TotalMS = millis(total)
	if len(t.counters) > 0 {
		report.Counters = make(map[string]int64, len(t.counters))
		for k, v := range t.counters {
			report.Counters[k] = v
		}
	}
	return report
}

// Summary renders the report as an aligned table.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-20s %9.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-20s %9.2f ms\n", "total", report.TotalMS)
	if len(report.Counters) > 0 {
		names := make([]string, 0, len(report.Counters))
		for k := range report.Counters {
			names = append(names, k)
		}
		sort.Strings(names)
		sb.WriteString("counters:\n")
		for _, k := range names {
			fmt.Fprintf(&sb, "  %-20s %9d\n", k, report.Counters[k])
		}
	}
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
