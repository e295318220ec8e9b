package dag

import (
	"sort"

	"pascope/internal/project"
)

type UnitID uint32

type UnitIndex struct {
	KeyToID  map[string]UnitID
	IDToKey  []string
	IDToName []string // display name, first spelling seen
}

// BuildIndex collects unit keys from the units and their uses entries,
// sorts them and hands out IDs in that order.
func BuildIndex(metas []project.UnitMeta) UnitIndex {
	names := make(map[string]string, len(metas))
	add := func(key, name string) {
		if key == "" {
			return
		}
		if _, ok := names[key]; !ok {
			names[key] = name
		}
	}
	for _, meta := range metas {
		add(meta.Key, meta.Name)
	}
	for _, meta := range metas {
		for _, dep := range meta.Uses {
			add(dep.Key, dep.Name)
		}
	}

	keys := make([]string, 0, len(names))
	for key := range names {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	idx := UnitIndex{
		KeyToID:  make(map[string]UnitID, len(keys)),
		IDToKey:  keys,
		IDToName: make([]string, len(keys)),
	}
	for i, key := range keys {
		idx.KeyToID[key] = UnitID(i)
		idx.IDToName[i] = names[key]
	}
	return idx
}

// Names maps ids to display names.
func (idx UnitIndex) Names(ids []UnitID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}
