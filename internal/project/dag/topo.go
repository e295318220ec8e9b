package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"pascope/internal/project"
)

type Topo struct {
	Order   []UnitID   // dependencies first, present units only
	Batches [][]UnitID // waves of mutually independent units
	Cyclic  bool
	Cycles  []UnitID // units left in an interface cycle
}

// ToposortKahn orders present units along interface uses.
func ToposortKahn(g Graph) *Topo {
	return kahn(g.Present, g.Edges, g.Indeg)
}

// BuildOrder is the topological order followed by units stuck in cycles,
// so every present unit appears exactly once.
func (t *Topo) BuildOrder() []UnitID {
	out := make([]UnitID, 0, len(t.Order)+len(t.Cycles))
	out = append(out, t.Order...)
	return append(out, t.Cycles...)
}

func kahn(present []bool, edges [][]UnitID, indegIn []int) *Topo {
	nodeCount := len(edges)
	indeg := make([]int, len(indegIn))
	copy(indeg, indegIn)

	topo := &Topo{
		Order:   make([]UnitID, 0, nodeCount),
		Batches: make([][]UnitID, 0),
	}

	active := 0
	for i := range nodeCount {
		if present[i] {
			active++
		}
	}

	current := make([]UnitID, 0, nodeCount)
	for i := range nodeCount {
		if present[i] && indeg[i] == 0 {
			current = append(current, toUnitID(i))
		}
	}

	visited := 0
	for len(current) > 0 {
		batch := make([]UnitID, len(current))
		copy(batch, current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]UnitID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, to := range edges[int(id)] {
				if !present[int(to)] {
					continue
				}
				indeg[int(to)]--
				if indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != active {
		topo.Cyclic = true
		for i := range nodeCount {
			if present[i] && indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, toUnitID(i))
			}
		}
	}

	return topo
}

// ComputeHashes fills UnitHash for every present unit: its content hash
// combined with the hashes of all its dependencies. Units on a dependency
// cycle through any section keep a zero hash.
func ComputeHashes(g Graph, slots []UnitSlot) {
	nodeCount := len(g.Deps)
	dependents := make([][]UnitID, nodeCount)
	indeg := make([]int, nodeCount)
	for from, deps := range g.Deps {
		for _, dep := range deps {
			dependents[int(dep)] = append(dependents[int(dep)], toUnitID(from))
			indeg[from]++
		}
	}
	full := kahn(g.Present, dependents, indeg)
	for _, id := range full.Order {
		slot := &slots[int(id)]
		deps := make([]project.Digest, 0, len(g.Deps[int(id)]))
		ok := true
		for _, dep := range g.Deps[int(id)] {
			h := slots[int(dep)].Meta.UnitHash
			if h.IsZero() {
				ok = false
				break
			}
			deps = append(deps, h)
		}
		if ok && !slot.Meta.ContentHash.IsZero() {
			slot.Meta.UnitHash = project.Combine(slot.Meta.ContentHash, deps...)
		}
	}
}

func toUnitID(i int) UnitID {
	id, err := safecast.Conv[UnitID](i)
	if err != nil {
		panic(fmt.Errorf("unit id overflow: %w", err))
	}
	return id
}
