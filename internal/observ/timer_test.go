package observ

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestTimerPhasesAndCounters(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("load")
	tm.End(idx, "3 units")
	if err := tm.Measure("bind", func() error { return errors.New("boom") }); err == nil {
		t.Fatalf("Measure must return fn's error")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Add("occurrences", 5)
		}()
	}
	wg.Wait()

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Note != "3 units" || r.Phases[1].Note != "failed" {
		t.Fatalf("unexpected phases: %+v", r.Phases)
	}
	if r.Counters["occurrences"] != 40 || tm.Counter("occurrences") != 40 {
		t.Fatalf("counter = %d, want 40", r.Counters["occurrences"])
	}
	sum := tm.Summary()
	for _, want := range []string{"load", "bind", "total", "counters:", "occurrences"} {
		if !strings.Contains(sum, want) {
			t.Fatalf("summary lacks %q:\n%s", want, sum)
		}
	}
}

func TestEndIgnoresBadIndex(t *testing.T) {
	tm := NewTimer()
	tm.End(3, "")
	if len(tm.Report().Phases) != 0 {
		t.Fatalf("unexpected phases")
	}
}
