package symbols

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// Validate walks the arenas checking structural invariants. Returns nil if
// everything is consistent; otherwise joins all detected issues.
func (t *Table) Validate() error {
	var errs []error

	unknown := t.Scopes.Get(UnknownScopeID)
	if unknown == nil || unknown.Kind != ScopeUnknown {
		errs = append(errs, errors.New("unknown scope sentinel is missing"))
	} else if unknown.Parent.IsValid() || len(unknown.Decls) > 0 || len(unknown.Children) > 0 {
		errs = append(errs, errors.New("unknown scope has a parent, children or declarations"))
	}

	for idx := 2; idx < len(t.Scopes.data); idx++ {
		scopeID, err := toScopeID(idx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		scope := &t.Scopes.data[idx]
		if scope.Kind == ScopeInvalid || scope.Kind == ScopeUnknown {
			errs = append(errs, fmt.Errorf("scope %d has kind %s", scopeID, scope.Kind))
		}
		errs = append(errs, t.checkParent(scopeID, scope)...)
		errs = append(errs, t.checkChildren(scopeID, scope)...)
		errs = append(errs, t.checkNameIndex(scopeID, scope)...)
	}

	for idx := 1; idx < len(t.Decls.data); idx++ {
		declID, err := toDeclID(idx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		d := &t.Decls.data[idx]
		if d.Data == nil || d.Data.declKind() != d.Kind {
			errs = append(errs, fmt.Errorf("declaration %d (%s %q) has a mismatched payload", declID, d.Kind, d.Name))
		}
		scope := t.Scopes.Get(d.Scope)
		if scope == nil {
			errs = append(errs, fmt.Errorf("declaration %d has invalid scope %d", declID, d.Scope))
			continue
		}
		if !containsDecl(scope.Decls, declID) {
			errs = append(errs, fmt.Errorf("declaration %d is missing from scope %d list", declID, d.Scope))
		}
		if d.ForwardOf.IsValid() && t.Decls.Get(d.ForwardOf) == nil {
			errs = append(errs, fmt.Errorf("declaration %d completes missing declaration %d", declID, d.ForwardOf))
		}
	}

	for idx := 1; idx < len(t.Occurrences.data); idx++ {
		occ := &t.Occurrences.data[idx]
		if occ.Decl.IsValid() && t.Decls.Get(occ.Decl) == nil {
			errs = append(errs, fmt.Errorf("occurrence %d bound to missing declaration %d", idx, occ.Decl))
		}
		if q := t.Occurrences.Get(occ.Qualifier); occ.Qualifier.IsValid() && (q == nil || int(q.Qualifies) != idx) {
			errs = append(errs, fmt.Errorf("occurrence %d qualifier %d missing backlink", idx, occ.Qualifier))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

func (t *Table) checkParent(scopeID ScopeID, scope *Scope) []error {
	if !scope.Parent.IsValid() {
		return nil
	}
	if int(scope.Parent) >= len(t.Scopes.data) || scope.Parent == scopeID || scope.Parent.IsUnknown() {
		return []error{fmt.Errorf("scope %d has invalid parent %d", scopeID, scope.Parent)}
	}
	var errs []error
	if !containsScope(t.Scopes.data[scope.Parent].Children, scopeID) {
		errs = append(errs, fmt.Errorf("scope %d parent %d missing backlink", scopeID, scope.Parent))
	}
	for p, steps := scope.Parent, 0; p.IsValid(); steps++ {
		if p == scopeID || steps > len(t.Scopes.data) || int(p) >= len(t.Scopes.data) {
			errs = append(errs, fmt.Errorf("scope %d has a cyclic parent chain", scopeID))
			break
		}
		p = t.Scopes.data[p].Parent
	}
	return errs
}

func (t *Table) checkChildren(scopeID ScopeID, scope *Scope) []error {
	var errs []error
	for _, child := range scope.Children {
		if int(child) >= len(t.Scopes.data) || child == scopeID {
			errs = append(errs, fmt.Errorf("scope %d has invalid child %d", scopeID, child))
			continue
		}
		if t.Scopes.data[child].Parent != scopeID {
			errs = append(errs, fmt.Errorf("scope %d child %d missing parent backlink", scopeID, child))
		}
	}
	return errs
}

func (t *Table) checkNameIndex(scopeID ScopeID, scope *Scope) []error {
	var errs []error
	declSet := make(map[DeclID]struct{}, len(scope.Decls))
	for _, id := range scope.Decls {
		declSet[id] = struct{}{}
	}
	covered := make(map[DeclID]struct{}, len(scope.Decls))
	for key, bucket := range scope.NameIndex {
		for _, id := range bucket {
			if _, ok := declSet[id]; !ok {
				errs = append(errs, fmt.Errorf("scope %d name index %q references missing declaration %d", scopeID, key, id))
				continue
			}
			if d := t.Decls.Get(id); d != nil && d.Key != key {
				errs = append(errs, fmt.Errorf("scope %d indexes declaration %d under %q, key is %q", scopeID, id, key, d.Key))
			}
			covered[id] = struct{}{}
		}
	}
	for _, id := range scope.Decls {
		if _, ok := covered[id]; !ok {
			errs = append(errs, fmt.Errorf("scope %d declaration %d missing in name index", scopeID, id))
		}
	}
	return errs
}

func containsDecl(list []DeclID, id DeclID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func containsScope(list []ScopeID, id ScopeID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func toScopeID(idx int) (ScopeID, error) {
	value, err := safecast.Conv[uint32](idx)
	if err != nil {
		return NoScopeID, fmt.Errorf("scope index %d overflow: %w", idx, err)
	}
	return ScopeID(value), nil
}

func toDeclID(idx int) (DeclID, error) {
	value, err := safecast.Conv[uint32](idx)
	if err != nil {
		return NoDeclID, fmt.Errorf("declaration index %d overflow: %w", idx, err)
	}
	return DeclID(value), nil
}
