package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"pascope/internal/source"
)

// Hints provide optional capacity suggestions for the table arenas.
type Hints struct{ Scopes, Decls, Occurrences uint }

// Table aggregates the scope, declaration and occurrence arenas of one
// analysis together with the helper index.
//
// A Table is filled by a single goroutine. Once filling is done, Search,
// MemberSearch, Specialize and the other read-only methods may run
// concurrently; Bind and every Add* method may not.
type Table struct {
	Scopes      *Scopes
	Decls       *Decls
	Occurrences *Occurrences
	fileRoot    map[source.FileID]ScopeID
	// helpers maps an extended type to its helpers in registration order.
	helpers map[DeclID][]DeclID
}

// NewTable builds a fresh table with optional capacity hints.
func NewTable(h Hints) *Table {
	scopeCap, err := safecast.Conv[uint32](h.Scopes)
	if err != nil {
		panic(fmt.Errorf("scope capacity overflow: %w", err))
	}
	declCap, err := safecast.Conv[uint32](h.Decls)
	if err != nil {
		panic(fmt.Errorf("declaration capacity overflow: %w", err))
	}
	occCap, err := safecast.Conv[uint32](h.Occurrences)
	if err != nil {
		panic(fmt.Errorf("occurrence capacity overflow: %w", err))
	}
	return &Table{
		Scopes:      NewScopes(scopeCap),
		Decls:       NewDecls(declCap),
		Occurrences: NewOccurrences(occCap),
		fileRoot:    make(map[source.FileID]ScopeID),
		helpers:     make(map[DeclID][]DeclID),
	}
}

// Decl returns the declaration pointer or nil if id is invalid.
func (t *Table) Decl(id DeclID) *Decl { return t.Decls.Get(id) }

// Occurrence returns the occurrence pointer or nil if id is invalid.
func (t *Table) Occurrence(id OccID) *Occurrence { return t.Occurrences.Get(id) }

// QualifiedNameOf builds the dotted path of d through its enclosing unit,
// types and routines, e.g. Shapes.TCircle.Area.
func (t *Table) QualifiedNameOf(id DeclID) QualifiedName {
	d := t.Decls.Get(id)
	if d == nil {
		return QualifiedName{}
	}
	if d.Kind == DeclUnit {
		if u := d.Unit(); u != nil && !u.QualifiedName.IsZero() {
			return u.QualifiedName
		}
	}
	parts := []string{d.DisplayName()}
	scopeID := d.Scope
	for steps := 0; scopeID.IsValid() && steps <= t.Scopes.Len(); steps++ {
		scope := t.Scopes.Get(scopeID)
		if scope == nil {
			break
		}
		var owner DeclID
		switch scope.Kind {
		case ScopeType:
			owner = scope.TypeDecl
		case ScopeRoutine:
			owner = scope.RoutineDecl
		case ScopeFile:
			owner = scope.UnitDecl
		}
		od := t.Decls.Get(owner)
		if od == nil {
			scopeID = scope.Parent
			continue
		}
		if od.Kind == DeclUnit {
			if u := od.Unit(); u != nil && !u.QualifiedName.IsZero() {
				parts = append(parts, reverse(u.QualifiedName.Parts())...)
			} else {
				parts = append(parts, od.Name)
			}
			break
		}
		parts = append(parts, od.DisplayName())
		// Method bodies live lexically in the file but belong to their type.
		scopeID = od.Scope
	}
	q, err := NewQualifiedName(reverse(parts)...)
	if err != nil {
		return QualifiedName{}
	}
	return q
}

func reverse(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[len(parts)-1-i] = p
	}
	return out
}
