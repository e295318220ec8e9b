package symbols

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// RegisterHelper records helper as a class or record helper for extended.
// The helper's member scope is linked to the extended type's scope.
func (t *Table) RegisterHelper(helper, extended DeclID) error {
	hd, ed := t.Decls.Get(helper), t.Decls.Get(extended)
	if hd == nil || ed == nil {
		return fmt.Errorf("register helper: invalid declaration %d for %d", helper, extended)
	}
	ht := hd.Type()
	if ht == nil || !ht.TypeKind.IsHelper() {
		return fmt.Errorf("register helper: %s %q is not a helper type", hd.Kind, hd.Name)
	}
	if ed.Kind != DeclType {
		return fmt.Errorf("register helper: %q extends %s %q, not a type", hd.Name, ed.Kind, ed.Name)
	}
	for _, existing := range t.helpers[extended] {
		if existing == helper {
			return nil
		}
	}
	t.helpers[extended] = append(t.helpers[extended], helper)
	ht.HelperForDecl = extended
	if et := ed.Type(); et != nil {
		if members := t.Scopes.Get(ht.Members); members != nil {
			members.Extended = et.Members
		}
	}
	return nil
}

// Helpers returns every helper registered for extended, in registration order.
func (t *Table) Helpers(extended DeclID) []DeclID {
	return append([]DeclID(nil), t.helpers[extended]...)
}

// HelpersInEffect lists the helpers of extended visible at a location:
// helpers of the same unit declared before it, nearest first, then helpers
// of units it uses, last uses entry first. A used unit's helpers declared
// in its implementation section are not visible. Only the first one is applied
// by search; Pascal allows a single helper per type at any point.
func (t *Table) HelpersInEffect(extended DeclID, at Location) []DeclID {
	all := t.helpers[extended]
	if len(all) == 0 {
		return nil
	}
	unit := t.UnitOf(at.Scope)
	var ranks map[DeclID]uint32
	if ud := t.Decls.Get(unit); ud != nil && ud.Unit() != nil {
		if file := t.Scopes.Get(ud.Unit().FileScope); file != nil {
			ranks = make(map[DeclID]uint32, len(file.Imports))
			for i, impID := range file.Imports {
				imp := t.Decls.Get(impID)
				if imp == nil || imp.Import() == nil || !imp.Import().Target.IsValid() {
					continue
				}
				rank, err := safecast.Conv[uint32](i)
				if err != nil {
					break
				}
				ranks[imp.Import().Target] = rank
			}
		}
	}

	type ranked struct {
		id    DeclID
		local bool
		order uint32
	}
	var in []ranked
	for _, h := range all {
		hd := t.Decls.Get(h)
		hu := t.UnitOf(hd.Scope)
		switch {
		case hu == unit && unit.IsValid():
			if at.Token != 0 && at.Before(hd.Loc) {
				continue
			}
			in = append(in, ranked{id: h, local: true, order: hd.Loc.Token})
		default:
			if hd.IsImplementation() {
				continue
			}
			rank, ok := ranks[hu]
			if !ok {
				continue
			}
			in = append(in, ranked{id: h, order: rank})
		}
	}
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].local != in[j].local {
			return in[i].local
		}
		return in[i].order > in[j].order
	})
	out := make([]DeclID, len(in))
	for i, r := range in {
		out[i] = r.id
	}
	return out
}
