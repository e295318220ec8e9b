package binder

import (
	"strings"

	"pascope/internal/symbols"
)

// Labels maps declarations of a set of units to stable references of the
// form "Unit:label" and back. References survive a fresh table, which makes
// them the currency of reports and of the resolution cache.
//
// A Labels is read-only once built and safe for concurrent use.
type Labels struct {
	owner  map[symbols.DeclID]*Unit
	byName map[symbols.Key]*Unit
}

// NewLabels indexes the declarations of units.
func NewLabels(units []*Unit) *Labels {
	l := &Labels{
		owner:  make(map[symbols.DeclID]*Unit),
		byName: make(map[symbols.Key]*Unit, len(units)),
	}
	for _, u := range units {
		if u == nil {
			continue
		}
		if _, dup := l.byName[symbols.FoldName(u.Name())]; !dup {
			l.byName[symbols.FoldName(u.Name())] = u
		}
		for id := range u.labels {
			l.owner[id] = u
		}
	}
	return l
}

// Ref renders id as "Unit:label", or "" for declarations no unit owns.
func (l *Labels) Ref(id symbols.DeclID) string {
	u, ok := l.owner[id]
	if !ok {
		return ""
	}
	label, _ := u.DeclLabel(id)
	return u.Name() + ":" + label
}

// Refs renders every id; unknown declarations are dropped.
func (l *Labels) Refs(ids []symbols.DeclID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if ref := l.Ref(id); ref != "" {
			out = append(out, ref)
		}
	}
	return out
}

// Decl parses a reference produced by Ref. Unit names never contain a
// colon; labels may.
func (l *Labels) Decl(ref string) (symbols.DeclID, bool) {
	unit, label, ok := strings.Cut(ref, ":")
	if !ok {
		return symbols.NoDeclID, false
	}
	u, ok := l.byName[symbols.FoldName(unit)]
	if !ok {
		return symbols.NoDeclID, false
	}
	return u.DeclByLabel(label)
}

// Unit returns the unit owning id.
func (l *Labels) Unit(id symbols.DeclID) (*Unit, bool) {
	u, ok := l.owner[id]
	return u, ok
}
