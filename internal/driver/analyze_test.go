package driver

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"pascope/internal/binder"
	"pascope/internal/diag"
	"pascope/internal/testkit"
)

const shapesProject = "../../testdata/shapes"

// copyProject copies the shapes sample into a temp dir so tests can edit it.
func copyProject(t *testing.T) string {
	t.Helper()
	dst := t.TempDir()
	entries, err := os.ReadDir(shapesProject)
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(shapesProject, e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dst, e.Name()), data, 0o644); err != nil {
			t.Fatalf("write %s: %v", e.Name(), err)
		}
	}
	return dst
}

func bindings(u *UnitResult) map[string]string {
	out := make(map[string]string, len(u.Records))
	for _, r := range u.Records {
		out[r.Occurrence] = r.Decl
	}
	return out
}

func TestAnalyzeShapesProject(t *testing.T) {
	res, err := Analyze(context.Background(), Options{Path: shapesProject})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected errors: %v", res.Diagnostics().Items())
	}

	var order []string
	for _, u := range res.Units {
		order = append(order, u.Name)
	}
	if want := []string{"System", "Shapes", "App"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("unit order = %v, want %v", order, want)
	}

	want := map[string]string{
		"var_type":       "Shapes:TCircle",
		"writeln_area":   "System:WriteLnS",
		"c":              "App:C",
		"c_area":         "Shapes:Area",
		"with_subject":   "App:C",
		"writeln_radius": "System:WriteLnS",
		"with_radius":    "Shapes:Radius",
		"is_c":           "App:C",
		"unit_q":         "App:$uses:Shapes",
		"unit_shape":     "Shapes:TShape",
		"free_c":         "App:C",
		"c_free":         "System:Free",
		"nope":           "",
	}
	if got := bindings(res.Unit("app")); !reflect.DeepEqual(got, want) {
		t.Fatalf("App bindings:\n got %v\nwant %v", got, want)
	}

	shapes := bindings(res.Unit("Shapes"))
	if shapes["body_farea"] != "Shapes:FArea" || shapes["area_result"] != "System:Integer" {
		t.Fatalf("Shapes bindings = %v", shapes)
	}
}

func TestShapesModelSpans(t *testing.T) {
	res, err := Analyze(context.Background(), Options{Path: shapesProject})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, u := range res.Units {
		if u.model == nil {
			continue
		}
		if err := testkit.CheckModelSpans(u.model, res.FileSet.Get(u.File)); err != nil {
			t.Fatalf("%s: %v", u.Rel, err)
		}
	}
}

func TestAnalyzeRecordsCarryStatus(t *testing.T) {
	res, err := Analyze(context.Background(), Options{Path: shapesProject})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, r := range res.Unit("App").Records {
		switch r.Occurrence {
		case "nope":
			if r.Status != binder.StatusUnresolved || r.Decl != "" {
				t.Fatalf("nope = %+v, want unresolved", r)
			}
		case "c_area":
			if r.Status != binder.StatusResolved || r.Kind != "routine" || r.Qualified != "Shapes.TShape.Area" {
				t.Fatalf("c_area = %+v", r)
			}
		}
	}
}

func TestAnalyzeReportUnresolvedIsInfo(t *testing.T) {
	res, err := Analyze(context.Background(), Options{Path: shapesProject, ReportUnresolved: true})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unresolved names must not be errors: %v", res.Diagnostics().Items())
	}
	items := res.Unit("App").Bag.Items()
	if len(items) != 1 || items[0].Code != diag.SemaUnresolvedName || items[0].Severity != diag.SevInfo {
		t.Fatalf("App diagnostics = %v, want one unresolved-name info", items)
	}
}

func TestAnalyzeDiskCache(t *testing.T) {
	dir := copyProject(t)
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	opts := Options{Path: dir, Cache: cache}

	first, err := Analyze(context.Background(), opts)
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	if first.CacheHits != 0 || first.CacheMisses != 3 {
		t.Fatalf("first run hits=%d misses=%d, want 0/3", first.CacheHits, first.CacheMisses)
	}

	second, err := Analyze(context.Background(), opts)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if second.CacheHits != 3 {
		t.Fatalf("second run hits=%d, want 3", second.CacheHits)
	}
	for _, name := range []string{"System", "Shapes", "App"} {
		if !second.Unit(name).Cached {
			t.Fatalf("%s not served from cache", name)
		}
		if !reflect.DeepEqual(bindings(first.Unit(name)), bindings(second.Unit(name))) {
			t.Fatalf("%s: cached bindings differ", name)
		}
	}

	// editing Shapes invalidates Shapes and App, not System
	path := filepath.Join(dir, "shapes.unit.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, append(data, []byte("\n# edited\n")...), 0o644); err != nil {
		t.Fatal(err)
	}
	third, err := Analyze(context.Background(), opts)
	if err != nil {
		t.Fatalf("third analyze: %v", err)
	}
	if !third.Unit("System").Cached || third.Unit("Shapes").Cached || third.Unit("App").Cached {
		t.Fatalf("cache invalidation: hits=%d misses=%d", third.CacheHits, third.CacheMisses)
	}
}

func TestAnalyzeProgressEvents(t *testing.T) {
	var (
		mu     sync.Mutex
		events []Event
	)
	sink := SinkFunc(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	if _, err := Analyze(context.Background(), Options{Path: shapesProject, Progress: sink}); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	resolved := make(map[string]bool)
	last := make(map[string]Event)
	stages := make(map[Stage]bool)
	for _, ev := range events {
		if ev.Unit == "" {
			stages[ev.Stage] = true
			continue
		}
		if ev.Stage == StageResolve && ev.Status == StatusDone {
			resolved[ev.Unit] = true
		}
		last[ev.Unit] = ev
	}
	for _, s := range []Stage{StageLoad, StageGraph, StageBuild, StageLink, StageResolve, StageBind} {
		if !stages[s] {
			t.Fatalf("no pipeline event for stage %s", s)
		}
	}
	for _, unit := range []string{"app.unit.toml", "shapes.unit.toml", "system.unit.toml"} {
		if !resolved[unit] {
			t.Fatalf("%s was never resolved", unit)
		}
		if ev := last[unit]; ev.Stage != StageBind || ev.Status != StatusDone {
			t.Fatalf("%s last event = %+v", unit, ev)
		}
	}
}

func TestAnalyzeBrokenModel(t *testing.T) {
	dir := copyProject(t)
	if err := os.WriteFile(filepath.Join(dir, "broken.unit.toml"), []byte("[unit\nname="), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := Analyze(context.Background(), Options{Path: dir})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var broken *UnitResult
	for _, u := range res.Units {
		if u.Rel == "broken.unit.toml" {
			broken = u
		}
	}
	if broken == nil || broken.Name != "" {
		t.Fatalf("broken model missing from results")
	}
	if first := broken.Bag.FirstError(); first == nil || first.Code != diag.IODecodeError {
		t.Fatalf("broken diagnostics = %v", broken.Bag.Items())
	}
	if got := bindings(res.Unit("App"))["c_area"]; got != "Shapes:Area" {
		t.Fatalf("other units must still bind, c_area = %q", got)
	}
}

func TestAnalyzeDuplicateUnit(t *testing.T) {
	dir := copyProject(t)
	data, err := os.ReadFile(filepath.Join(dir, "shapes.unit.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "zshapes.unit.toml"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := Analyze(context.Background(), Options{Path: dir})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var dup *UnitResult
	for _, u := range res.Units {
		if u.Duplicate {
			dup = u
		}
	}
	if dup == nil || dup.Rel != "zshapes.unit.toml" {
		t.Fatalf("expected the second Shapes model to be marked duplicate")
	}
	if first := dup.Bag.FirstError(); first == nil || first.Code != diag.ProjDuplicateUnit {
		t.Fatalf("duplicate diagnostics = %v", dup.Bag.Items())
	}
}

func TestPlanOrdersUnits(t *testing.T) {
	res, err := Plan(context.Background(), Options{Path: shapesProject})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if res.Table != nil {
		t.Fatalf("plan must not bind")
	}
	if res.Topo.Cyclic || len(res.Topo.Batches) != 3 {
		t.Fatalf("batches = %v", res.Topo.Batches)
	}
	if got := res.Index.Names(res.Topo.Batches[0]); !reflect.DeepEqual(got, []string{"System"}) {
		t.Fatalf("first batch = %v", got)
	}
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Analyze(ctx, Options{Path: shapesProject}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
