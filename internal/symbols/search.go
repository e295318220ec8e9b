package symbols

// Search resolves occ by walking outward from start (occ.Loc.Scope when
// start is NoScopeID). Each scope contributes a candidate set computed by
// its kind; the first non-empty set is the answer and sets from different
// scopes are never merged. An empty result means unresolved.
func (t *Table) Search(occ *Occurrence, start ScopeID) []DeclID {
	return t.SearchKinds(occ, start, KindMaskAny)
}

// SearchKinds is Search restricted to declaration kinds accepted by mask.
func (t *Table) SearchKinds(occ *Occurrence, start ScopeID, mask KindMask) []DeclID {
	if occ == nil {
		return nil
	}
	if !start.IsValid() {
		start = occ.Loc.Scope
	}
	s := t.newSearcher(occ, mask)
	return s.walk(start)
}

// MemberSearch resolves occ as a member reached through a qualifier whose
// declaration owns scope. Type scopes get the full type search without any
// lexical walk; a foreign unit's file scope only exposes its interface.
func (t *Table) MemberSearch(scope ScopeID, occ *Occurrence) []DeclID {
	return t.MemberSearchKinds(scope, occ, KindMaskAny)
}

// MemberSearchKinds is MemberSearch restricted to kinds accepted by mask.
func (t *Table) MemberSearchKinds(scope ScopeID, occ *Occurrence, mask KindMask) []DeclID {
	if occ == nil || !scope.IsValid() || scope.IsUnknown() {
		return nil
	}
	s := t.newSearcher(occ, mask)
	return s.member(scope, 0)
}

type searcher struct {
	t       *Table
	key     Key
	mask    KindMask
	at      Location
	visited map[ScopeID]struct{}
}

func (t *Table) newSearcher(occ *Occurrence, mask KindMask) *searcher {
	key := occ.Key
	if key.Empty() {
		key = FoldName(occ.Image)
	}
	return &searcher{t: t, key: key, mask: mask, at: occ.Loc}
}

func (s *searcher) walk(id ScopeID) []DeclID {
	for steps := 0; id.IsValid() && !id.IsUnknown() && steps <= s.t.Scopes.Len(); steps++ {
		if found := s.candidates(id); len(found) > 0 {
			return found
		}
		scope := s.t.Scopes.Get(id)
		if scope == nil {
			return nil
		}
		if scope.Kind == ScopeFile {
			if found := s.imports(scope); len(found) > 0 {
				return found
			}
		}
		parent, ok := s.t.Parent(id)
		if !ok {
			return nil
		}
		id = parent
	}
	return nil
}

// candidates computes the contribution of a single scope.
func (s *searcher) candidates(id ScopeID) []DeclID {
	scope := s.t.Scopes.Get(id)
	if scope == nil {
		return nil
	}
	switch scope.Kind {
	case ScopeUnknown:
		return nil
	case ScopeWith:
		target := s.t.Scopes.Get(scope.Target)
		if target == nil || scope.Target.IsUnknown() {
			return nil
		}
		if target.Kind == ScopeType {
			return s.typeScope(scope.Target)
		}
		return s.local(scope.Target)
	case ScopeType:
		return s.typeScope(id)
	case ScopeRoutine:
		if found := s.local(id); len(found) > 0 {
			return found
		}
		if !scope.OwnerType.IsValid() {
			return nil
		}
		if found := s.typeScope(scope.OwnerType); len(found) > 0 {
			return found
		}
		parent, ok := s.t.Parent(scope.OwnerType)
		if !ok {
			return nil
		}
		return s.enclosingTypes(parent)
	default:
		return s.local(id)
	}
}

// typeScope searches a type's members: the helper in effect first, then
// the type itself, its ancestors and, for helpers, the extended type.
func (s *searcher) typeScope(id ScopeID) []DeclID {
	if s.visited == nil {
		s.visited = make(map[ScopeID]struct{})
	}
	// A repeat visit inside one search already produced nothing.
	if _, seen := s.visited[id]; seen {
		return nil
	}
	s.visited[id] = struct{}{}

	scope := s.t.Scopes.Get(id)
	if scope == nil || scope.Kind != ScopeType {
		return nil
	}
	if helpers := s.t.HelpersInEffect(scope.TypeDecl, s.at); len(helpers) > 0 {
		if found := s.helperChain(helpers[0]); len(found) > 0 {
			return found
		}
	}
	if found := s.local(id); len(found) > 0 {
		return found
	}
	if scope.Super.IsValid() {
		if found := s.typeScope(scope.Super); len(found) > 0 {
			return found
		}
	}
	if scope.Extended.IsValid() {
		if found := s.typeScope(scope.Extended); len(found) > 0 {
			return found
		}
	}
	return nil
}

// helperChain searches a helper's own members and then those of each
// helper it inherits from.
func (s *searcher) helperChain(helper DeclID) []DeclID {
	d := s.t.Decls.Get(helper)
	if d == nil {
		return nil
	}
	td := d.Type()
	if td == nil {
		return nil
	}
	for steps, id := 0, td.Members; id.IsValid() && steps <= s.t.Scopes.Len(); steps++ {
		if found := s.local(id); len(found) > 0 {
			return found
		}
		scope := s.t.Scopes.Get(id)
		if scope == nil {
			return nil
		}
		id = scope.Super
	}
	return nil
}

// enclosingTypes performs type search on each type scope enclosing id,
// innermost first.
func (s *searcher) enclosingTypes(id ScopeID) []DeclID {
	for steps := 0; id.IsValid() && steps <= s.t.Scopes.Len(); steps++ {
		typeScope, ok := s.t.EnclosingScope(id, IsKind(ScopeType))
		if !ok {
			return nil
		}
		if found := s.typeScope(typeScope); len(found) > 0 {
			return found
		}
		parent, ok := s.t.Parent(typeScope)
		if !ok {
			return nil
		}
		id = parent
	}
	return nil
}

func (s *searcher) local(id ScopeID) []DeclID {
	return s.t.findLocal(id, s.key, s.mask, 0)
}

// imports consults the units used by a file, last uses entry first.
func (s *searcher) imports(file *Scope) []DeclID {
	for i := len(file.Imports) - 1; i >= 0; i-- {
		imp := s.t.Decls.Get(file.Imports[i])
		if imp == nil {
			continue
		}
		data := imp.Import()
		if data == nil || !data.Target.IsValid() {
			continue
		}
		unit := s.t.Decls.Get(data.Target)
		if unit == nil || unit.Unit() == nil {
			continue
		}
		if found := s.exported(unit.Unit().FileScope); len(found) > 0 {
			return found
		}
	}
	return nil
}

// exported returns the interface-section declarations of a unit's file
// scope. Uses entries and the unit name itself are not re-exported.
func (s *searcher) exported(file ScopeID) []DeclID {
	found := s.local(file)
	out := found[:0:0]
	for _, id := range found {
		d := s.t.Decls.Get(id)
		if d.IsImplementation() || d.Kind == DeclUnitImport || d.Kind == DeclUnit {
			continue
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *searcher) member(id ScopeID, depth int) []DeclID {
	scope := s.t.Scopes.Get(id)
	if scope == nil || depth > maxWithNesting {
		return nil
	}
	switch scope.Kind {
	case ScopeType:
		return s.typeScope(id)
	case ScopeWith:
		return s.member(scope.Target, depth+1)
	case ScopeFile:
		if scope.UnitDecl.IsValid() && scope.UnitDecl != s.t.UnitOf(s.at.Scope) {
			return s.exported(id)
		}
		return s.local(id)
	case ScopeUnknown:
		return nil
	default:
		return s.local(id)
	}
}
