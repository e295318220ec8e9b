package dag

import (
	"fmt"
	"slices"
	"strings"

	"pascope/internal/diag"
	"pascope/internal/project"
)

// Graph holds unit dependencies. Edges point from a dependency to the
// units using it, so a toposort yields dependencies first. Only interface
// uses constrain the order; implementation uses may form cycles.
type Graph struct {
	Edges   [][]UnitID // Edges[dep] = units using dep from their interface
	Indeg   []int      // interface dependencies of each unit among present units
	Present []bool     // unit has a model, not only a uses entry
	Deps    [][]UnitID // all present dependencies, both sections, sorted
}

type UnitNode struct {
	Meta     project.UnitMeta
	Reporter diag.Reporter
	Broken   bool
	FirstErr *diag.Diagnostic
}

type UnitSlot struct {
	Meta     project.UnitMeta
	Reporter diag.Reporter
	Present  bool
	Broken   bool
	FirstErr *diag.Diagnostic
}

func BuildGraph(idx UnitIndex, nodes []UnitNode) (Graph, []UnitSlot) {
	nodeCount := len(idx.IDToKey)
	g := Graph{
		Edges:   make([][]UnitID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
		Deps:    make([][]UnitID, nodeCount),
	}
	slots := make([]UnitSlot, nodeCount)
	for i, key := range idx.IDToKey {
		slots[i].Meta.Key = key
		slots[i].Meta.Name = idx.IDToName[i]
	}

	for _, node := range nodes {
		meta := node.Meta
		if meta.Key == "" {
			continue
		}
		id, ok := idx.KeyToID[meta.Key]
		if !ok {
			continue
		}
		slot := &slots[int(id)]
		if slot.Present {
			if node.Reporter != nil {
				notes := []diag.Note{{
					Span: slot.Meta.Span,
					Msg:  fmt.Sprintf("previous declaration in %s", slot.Meta.Path),
				}}
				node.Reporter.Report(
					diag.ProjDuplicateUnit,
					diag.SevError,
					meta.Span,
					fmt.Sprintf("duplicate unit %q", meta.Name),
					notes,
				)
			}
			continue
		}
		slot.Meta = meta
		slot.Reporter = node.Reporter
		slot.Present = true
		slot.Broken = node.Broken
		slot.FirstErr = node.FirstErr
		g.Present[int(id)] = true
	}

	for from := range slots {
		slot := &slots[from]
		if !slot.Present || len(slot.Meta.Uses) == 0 {
			continue
		}
		seen := make(map[UnitID]struct{}, len(slot.Meta.Uses))
		for _, dep := range slot.Meta.Uses {
			if dep.Key == "" {
				continue
			}
			depID, ok := idx.KeyToID[dep.Key]
			if !ok {
				continue
			}
			span := dep.SourceSpan(slot.Meta.Span.File)
			if UnitID(from) == depID {
				if slot.Reporter != nil {
					slot.Reporter.Report(
						diag.ProjSelfImport,
						diag.SevError,
						span,
						fmt.Sprintf("unit %q uses itself", slot.Meta.Name),
						nil,
					)
				}
				continue
			}
			if _, dup := seen[depID]; dup {
				continue
			}
			seen[depID] = struct{}{}

			if !g.Present[int(depID)] {
				if slot.Reporter != nil && !dep.Implicit {
					slot.Reporter.Report(
						diag.ProjMissingUnit,
						diag.SevWarning,
						span,
						fmt.Sprintf("unit %q uses %q, which is not part of the project", slot.Meta.Name, dep.Name),
						nil,
					)
				}
				continue
			}
			g.Deps[from] = append(g.Deps[from], depID)
			if !dep.Implementation {
				g.Edges[int(depID)] = append(g.Edges[int(depID)], UnitID(from))
				g.Indeg[from]++
			}
		}
		slices.Sort(g.Deps[from])
	}
	for i := range g.Edges {
		slices.Sort(g.Edges[i])
	}

	return g, slots
}

func ReportCycles(idx UnitIndex, slots []UnitSlot, topo *Topo) {
	if !topo.Cyclic || len(topo.Cycles) == 0 {
		return
	}
	summary := strings.Join(idx.Names(topo.Cycles), " -> ")

	for _, id := range topo.Cycles {
		slot := slots[int(id)]
		if !slot.Present || slot.Reporter == nil {
			continue
		}
		msg := fmt.Sprintf("unit %q is caught in a circular interface uses chain among: %s", slot.Meta.Name, summary)
		slot.Reporter.Report(diag.ProjInterfaceCycle, diag.SevError, slot.Meta.Span, msg, nil)
	}
}

func ReportBrokenDeps(idx UnitIndex, slots []UnitSlot) {
	for i := range slots {
		slotFrom := &slots[i]
		if !slotFrom.Present || slotFrom.Reporter == nil || len(slotFrom.Meta.Uses) == 0 {
			continue
		}
		emitted := make(map[string]struct{}, len(slotFrom.Meta.Uses))
		for _, dep := range slotFrom.Meta.Uses {
			depID, ok := idx.KeyToID[dep.Key]
			if !ok {
				continue
			}
			depSlot := slots[int(depID)]
			if !depSlot.Broken {
				continue
			}
			if _, seen := emitted[dep.Key]; seen {
				continue
			}
			emitted[dep.Key] = struct{}{}

			notes := []diag.Note(nil)
			if depSlot.FirstErr != nil {
				notes = append(notes, diag.Note{
					Span: depSlot.FirstErr.Primary,
					Msg:  fmt.Sprintf("first error in dependency: %s", depSlot.FirstErr.Message),
				})
			}

			msg := fmt.Sprintf("used unit %q has errors; names from it may stay unresolved", dep.Name)
			slotFrom.Reporter.Report(diag.ProjDependencyFailed, diag.SevWarning,
				dep.SourceSpan(slotFrom.Meta.Span.File), msg, notes)
		}
	}
}
