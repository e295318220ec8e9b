package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "error", "phase", "detail", "debug"} {
		lvl, err := ParseLevel(s)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
		if lvl.String() != s {
			t.Fatalf("round trip %q -> %q", s, lvl.String())
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	if !LevelPhase.ShouldEmit(ScopePhase) || LevelPhase.ShouldEmit(ScopeUnit) {
		t.Fatalf("phase level must keep phases and drop units")
	}
	if !LevelDetail.ShouldEmit(ScopeUnit) || LevelDetail.ShouldEmit(ScopeDetail) {
		t.Fatalf("detail level must keep units and drop search detail")
	}
	if LevelError.ShouldEmit(ScopeDriver) {
		t.Fatalf("error level emits nothing by itself")
	}
}

func TestStreamTracerSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	ctx := WithTracer(context.Background(), tr)

	ctx, phase := Start(ctx, ScopePhase, "resolve")
	_, unit := Start(ctx, ScopeUnit, "unit:Shapes")
	unit.WithExtra("occurrences", "12").End("")
	_, hidden := Start(ctx, ScopeDetail, "search")
	hidden.End("")
	phase.End("done")

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 events, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "→ resolve") || !strings.Contains(lines[3], "← resolve (done)") {
		t.Fatalf("unexpected phase lines:\n%s", out)
	}
	if !strings.Contains(lines[2], "{occurrences=12}") {
		t.Fatalf("missing extra on unit end: %q", lines[2])
	}
	if unit.parentID != phase.ID() {
		t.Fatalf("unit span parent = %d, want %d", unit.parentID, phase.ID())
	}
}

func TestNDJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(tr, ScopeUnit, "cache", "hit", 0)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if got["kind"] != "point" || got["name"] != "cache" || got["detail"] != "hit" {
		t.Fatalf("unexpected event: %v", got)
	}
}

func TestRingKeepsLastEvents(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(ring, ScopePhase, name, "", 0)
	}
	snap := ring.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestDisabledTracerIsInert(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	span := Begin(tr, ScopeDriver, "run", 0)
	if span.ID() != 0 || span.End("") != 0 {
		t.Fatalf("span from disabled tracer must be inert")
	}
	if FromContext(context.Background()) != Nop {
		t.Fatalf("empty context must yield Nop")
	}
}
