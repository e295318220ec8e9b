package symbols

import (
	"strings"

	"pascope/internal/source"
)

// ScopeKind enumerates the scope categories of a unit.
type ScopeKind uint8

const (
	ScopeInvalid ScopeKind = iota
	ScopeFile              // root of one compilation unit
	ScopeType              // members of a structured type
	ScopeRoutine           // parameters and locals of a routine body
	ScopeLocal             // nested block holding only variables
	ScopeWith              // `with X do` body, forwarding to X's type scope
	ScopeUnknown           // sentinel for unresolvable contexts
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeFile:
		return "file"
	case ScopeType:
		return "type"
	case ScopeRoutine:
		return "routine"
	case ScopeLocal:
		return "local"
	case ScopeWith:
		return "with"
	case ScopeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// ParseScopeKind maps the textual kind used in unit models.
func ParseScopeKind(s string) (ScopeKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file":
		return ScopeFile, true
	case "type":
		return ScopeType, true
	case "routine":
		return ScopeRoutine, true
	case "local":
		return ScopeLocal, true
	case "with":
		return ScopeWith, true
	case "unknown":
		return ScopeUnknown, true
	}
	return ScopeInvalid, false
}

// Scope is one node of the scope tree. Fields in the per-kind groups are
// only meaningful for that kind.
type Scope struct {
	Kind      ScopeKind
	Parent    ScopeID
	Children  []ScopeID
	Span      source.Span
	Decls     []DeclID
	NameIndex map[Key][]DeclID
	// Occurrences indexes bound occurrences by the declaration they name.
	Occurrences map[DeclID][]OccID

	// Type scopes.
	TypeDecl DeclID
	Super    ScopeID
	Extended ScopeID // helpers only

	// Routine scopes.
	RoutineDecl DeclID
	OwnerType   ScopeID // methods only

	// With scopes.
	Target ScopeID

	// File scopes.
	UnitDecl DeclID
	Imports  []DeclID
}

// Scope returns the scope pointer or nil if id is invalid.
func (t *Table) Scope(id ScopeID) *Scope { return t.Scopes.Get(id) }

// NewFileScope allocates the root scope of a unit.
func (t *Table) NewFileScope(span source.Span) ScopeID {
	id := t.Scopes.New(ScopeFile, NoScopeID, span)
	if span.File != 0 {
		t.fileRoot[span.File] = id
	}
	return id
}

// NewScope allocates a scope below parent. Children of the Unknown scope
// are not allowed; they are created detached.
func (t *Table) NewScope(kind ScopeKind, parent ScopeID, span source.Span) ScopeID {
	if parent.IsUnknown() {
		parent = NoScopeID
	}
	return t.Scopes.New(kind, parent, span)
}

// FileScope returns the root scope registered for file.
func (t *Table) FileScope(file source.FileID) (ScopeID, bool) {
	id, ok := t.fileRoot[file]
	return id, ok
}

// Parent returns the parent of id. The Unknown scope and roots have none.
func (t *Table) Parent(id ScopeID) (ScopeID, bool) {
	if id.IsUnknown() {
		return NoScopeID, false
	}
	scope := t.Scopes.Get(id)
	if scope == nil || !scope.Parent.IsValid() {
		return NoScopeID, false
	}
	return scope.Parent, true
}

// SetParent re-parents id. It is a no-op for the Unknown scope and fails
// when the new link would make the parent chain cyclic.
func (t *Table) SetParent(id, parent ScopeID) error {
	if id.IsUnknown() {
		return nil
	}
	scope := t.Scopes.Get(id)
	if scope == nil {
		return invalidScopeError("set parent", id)
	}
	if parent.IsUnknown() {
		parent = NoScopeID
	}
	if parent.IsValid() {
		if t.Scopes.Get(parent) == nil {
			return invalidScopeError("set parent", parent)
		}
		for p := parent; p.IsValid(); p = t.Scopes.Get(p).Parent {
			if p == id {
				return &ParentCycleError{Scope: id, Parent: parent}
			}
		}
	}
	if old := t.Scopes.Get(scope.Parent); old != nil {
		old.Children = removeScopeID(old.Children, id)
	}
	scope.Parent = parent
	if parentScope := t.Scopes.Get(parent); parentScope != nil {
		parentScope.Children = append(parentScope.Children, id)
	}
	return nil
}

// EnclosingScope walks from id (inclusive) through its parents and returns
// the first scope accepted by match.
func (t *Table) EnclosingScope(id ScopeID, match func(ScopeID, *Scope) bool) (ScopeID, bool) {
	for steps := 0; id.IsValid() && steps <= t.Scopes.Len(); steps++ {
		scope := t.Scopes.Get(id)
		if scope == nil {
			return NoScopeID, false
		}
		if match(id, scope) {
			return id, true
		}
		id = scope.Parent
	}
	return NoScopeID, false
}

// IsKind returns a matcher for EnclosingScope.
func IsKind(kinds ...ScopeKind) func(ScopeID, *Scope) bool {
	return func(_ ScopeID, s *Scope) bool {
		for _, k := range kinds {
			if s.Kind == k {
				return true
			}
		}
		return false
	}
}

// Declarations returns the declarations of id in insertion order.
func (t *Table) Declarations(id ScopeID) []DeclID {
	if id.IsUnknown() {
		return nil
	}
	scope := t.Scopes.Get(id)
	if scope == nil || len(scope.Decls) == 0 {
		return nil
	}
	return append([]DeclID(nil), scope.Decls...)
}

// FindLocal looks occ up in id alone. With scopes answer with their
// target's local declarations.
func (t *Table) FindLocal(id ScopeID, occ *Occurrence) []DeclID {
	return t.findLocal(id, occ.Key, KindMaskAny, 0)
}

func (t *Table) findLocal(id ScopeID, key Key, mask KindMask, depth int) []DeclID {
	if id.IsUnknown() || depth > maxWithNesting {
		return nil
	}
	scope := t.Scopes.Get(id)
	if scope == nil {
		return nil
	}
	if scope.Kind == ScopeWith {
		return t.findLocal(scope.Target, key, mask, depth+1)
	}
	bucket := scope.NameIndex[key]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]DeclID, 0, len(bucket))
	for _, id := range bucket {
		if d := t.Decls.Get(id); d != nil && mask.Has(d.Kind) {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Contains reports whether id declares a name matching occ.
func (t *Table) Contains(id ScopeID, occ *Occurrence) bool {
	return len(t.FindLocal(id, occ)) > 0
}

// UnitOf returns the unit declaration owning id, found at the root of its
// parent chain.
func (t *Table) UnitOf(id ScopeID) DeclID {
	root, ok := t.EnclosingScope(id, IsKind(ScopeFile))
	if !ok {
		return NoDeclID
	}
	return t.Scopes.Get(root).UnitDecl
}

const maxWithNesting = 64

func removeScopeID(list []ScopeID, id ScopeID) []ScopeID {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
