package dag

import (
	"reflect"
	"testing"

	"pascope/internal/diag"
	"pascope/internal/project"
	"pascope/internal/source"
)

func unit(name string, file source.FileID, uses ...project.UsesMeta) project.UnitMeta {
	return project.UnitMeta{
		Name:        name,
		Key:         project.UnitKey(name),
		Path:        name + ".unit.toml",
		Span:        source.Span{File: file},
		Uses:        uses,
		ContentHash: project.DigestOf([]byte(name)),
	}
}

func iface(name string) project.UsesMeta {
	return project.UsesMeta{Name: name, Key: project.UnitKey(name), Span: []uint32{1, 4}}
}

func impl(name string) project.UsesMeta {
	u := iface(name)
	u.Implementation = true
	return u
}

func build(t *testing.T, metas ...project.UnitMeta) (UnitIndex, Graph, []UnitSlot, []*diag.Bag) {
	t.Helper()
	bags := make([]*diag.Bag, len(metas))
	nodes := make([]UnitNode, len(metas))
	for i, meta := range metas {
		bags[i] = diag.NewBag(10)
		nodes[i] = UnitNode{Meta: meta, Reporter: diag.BagReporter{Bag: bags[i]}}
	}
	idx := BuildIndex(metas)
	g, slots := BuildGraph(idx, nodes)
	return idx, g, slots, bags
}

func TestBuildIndexFoldsNames(t *testing.T) {
	idx := BuildIndex([]project.UnitMeta{
		unit("Main", 1, iface("System.SysUtils"), iface("Shapes")),
		unit("shapes", 2),
	})
	want := []string{"main", "shapes", "system.sysutils"}
	if !reflect.DeepEqual(idx.IDToKey, want) {
		t.Fatalf("IDToKey = %v, want %v", idx.IDToKey, want)
	}
	if got := idx.IDToName[idx.KeyToID["shapes"]]; got != "shapes" {
		t.Fatalf("display name = %q, want the unit's own spelling", got)
	}
}

func TestBuildGraphReportsMissingUnits(t *testing.T) {
	idx, g, _, bags := build(t,
		unit("App", 1, iface("Core"), iface("Vcl.Forms")),
		unit("Core", 2),
	)
	appID, coreID := idx.KeyToID["app"], idx.KeyToID["core"]

	if !reflect.DeepEqual(g.Deps[appID], []UnitID{coreID}) {
		t.Fatalf("app deps = %v, want [%v]", g.Deps[appID], coreID)
	}
	if !reflect.DeepEqual(g.Edges[coreID], []UnitID{appID}) {
		t.Fatalf("core dependents = %v, want [%v]", g.Edges[coreID], appID)
	}
	if g.Present[idx.KeyToID["vcl.forms"]] {
		t.Fatalf("missing unit marked present")
	}
	if bags[0].Len() != 1 || bags[0].Items()[0].Code != diag.ProjMissingUnit {
		t.Fatalf("app diagnostics = %v, want one missing-unit", bags[0].Items())
	}
	if bags[0].Items()[0].Severity != diag.SevWarning {
		t.Fatalf("missing unit should only warn")
	}
	if got := bags[0].Items()[0].Primary; got != (source.Span{File: 1, Start: 1, End: 4}) {
		t.Fatalf("span = %v, want the uses entry", got)
	}
}

func TestBuildGraphDuplicateAndSelfUse(t *testing.T) {
	first := unit("Dup", 1, iface("Dup"))
	second := unit("DUP", 2)
	idx, _, slots, bags := build(t, first, second)

	if bags[0].Len() != 1 || bags[0].Items()[0].Code != diag.ProjSelfImport {
		t.Fatalf("first diagnostics = %v, want self import", bags[0].Items())
	}
	if bags[1].Len() != 1 || bags[1].Items()[0].Code != diag.ProjDuplicateUnit {
		t.Fatalf("second diagnostics = %v, want duplicate", bags[1].Items())
	}
	if slot := slots[idx.KeyToID["dup"]]; slot.Meta.Span.File != 1 {
		t.Fatalf("slot should keep the first unit")
	}
}

func TestToposortDependenciesFirst(t *testing.T) {
	idx, g, _, _ := build(t,
		unit("App", 1, iface("Shapes"), iface("Utils")),
		unit("Shapes", 2, iface("Utils")),
		unit("Utils", 3),
		unit("Extra", 4),
	)
	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatalf("expected acyclic graph")
	}
	wantBatches := [][]string{{"Extra", "Utils"}, {"Shapes"}, {"App"}}
	got := make([][]string, len(topo.Batches))
	for i, b := range topo.Batches {
		got[i] = idx.Names(b)
	}
	if !reflect.DeepEqual(got, wantBatches) {
		t.Fatalf("batches = %v, want %v", got, wantBatches)
	}
}

func TestImplementationCycleIsAllowed(t *testing.T) {
	idx, g, slots, bags := build(t,
		unit("A", 1, iface("B")),
		unit("B", 2, impl("A")),
	)
	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatalf("implementation cycle must not be reported")
	}
	if got := idx.Names(topo.Order); !reflect.DeepEqual(got, []string{"B", "A"}) {
		t.Fatalf("order = %v, want [B A]", got)
	}
	ReportCycles(idx, slots, topo)
	for _, bag := range bags {
		if bag.Len() != 0 {
			t.Fatalf("unexpected diagnostics: %v", bag.Items())
		}
	}

	ComputeHashes(g, slots)
	for _, slot := range slots {
		if !slot.Meta.UnitHash.IsZero() {
			t.Fatalf("units on a cycle must not get a cache hash")
		}
	}
}

func TestInterfaceCycleIsReported(t *testing.T) {
	idx, g, slots, bags := build(t,
		unit("A", 1, iface("B")),
		unit("B", 2, iface("A")),
		unit("C", 3),
	)
	topo := ToposortKahn(g)
	if !topo.Cyclic {
		t.Fatalf("expected interface cycle")
	}
	if got := idx.Names(topo.Cycles); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("cycles = %v", got)
	}
	if got := idx.Names(topo.BuildOrder()); !reflect.DeepEqual(got, []string{"C", "A", "B"}) {
		t.Fatalf("build order = %v", got)
	}
	ReportCycles(idx, slots, topo)
	for i := 0; i < 2; i++ {
		if bags[i].Len() != 1 || bags[i].Items()[0].Code != diag.ProjInterfaceCycle {
			t.Fatalf("unit %d diagnostics = %v", i, bags[i].Items())
		}
	}
}

func TestComputeHashesFollowDependencies(t *testing.T) {
	_, g, slots, _ := build(t,
		unit("App", 1, iface("Utils")),
		unit("Utils", 2),
	)
	ComputeHashes(g, slots)
	before := slots[0].Meta.UnitHash
	if before.IsZero() {
		t.Fatalf("expected hash for acyclic unit")
	}

	_, g2, slots2, _ := build(t,
		unit("App", 1, iface("Utils")),
		func() project.UnitMeta {
			u := unit("Utils", 2)
			u.ContentHash = project.DigestOf([]byte("changed"))
			return u
		}(),
	)
	ComputeHashes(g2, slots2)
	if slots2[0].Meta.UnitHash == before {
		t.Fatalf("dependency change must change the dependent's hash")
	}
	if slots2[0].Meta.ContentHash != slots[0].Meta.ContentHash {
		t.Fatalf("content hash of App should be unchanged")
	}
}

func TestReportBrokenDeps(t *testing.T) {
	metas := []project.UnitMeta{unit("App", 1, iface("Core")), unit("Core", 2)}
	appBag := diag.NewBag(10)
	first := diag.NewError(diag.SemaDuplicateDeclaration, source.Span{File: 2, Start: 5, End: 9}, "duplicate")
	nodes := []UnitNode{
		{Meta: metas[0], Reporter: diag.BagReporter{Bag: appBag}},
		{Meta: metas[1], Broken: true, FirstErr: &first},
	}
	idx := BuildIndex(metas)
	_, slots := BuildGraph(idx, nodes)
	ReportBrokenDeps(idx, slots)

	if appBag.Len() != 1 || appBag.Items()[0].Code != diag.ProjDependencyFailed {
		t.Fatalf("app diagnostics = %v", appBag.Items())
	}
	if len(appBag.Items()[0].Notes) != 1 {
		t.Fatalf("expected note pointing at the dependency's first error")
	}
}

func TestImplicitUsesOfMissingUnitAreQuiet(t *testing.T) {
	system := iface("System")
	system.Implicit = true
	idx, g, _, bags := build(t, unit("App", 1, system))

	if g.Present[idx.KeyToID["system"]] {
		t.Fatalf("System has no model and must not be present")
	}
	if bags[0].Len() != 0 {
		t.Fatalf("implicit uses should not warn, got %v", bags[0].Items())
	}
}
