package symbols

import (
	"errors"
	"fmt"
)

// Occurrence is one use of a name in source. Decl and Candidates are
// empty until the occurrence is bound.
type Occurrence struct {
	Image string
	Key   Key
	Loc   Location
	// Qualifier is the occurrence this one is reached through: A in A.B.
	Qualifier OccID
	// Qualifies is the occurrence this one qualifies: B in A.B, set on A.
	Qualifies       OccID
	Invocation      bool
	MethodReference bool
	// Arity is the number of explicit call arguments, -1 when unknown.
	Arity    int
	TypeArgs []TypeRef

	Decl       DeclID
	Candidates []DeclID
}

// NewOccurrence builds an unbound occurrence with unknown arity.
func NewOccurrence(image string, loc Location) *Occurrence {
	return &Occurrence{
		Image: image,
		Key:   FoldName(image),
		Loc:   loc,
		Arity: -1,
	}
}

// IsPartOfQualifiedName reports whether occ qualifies another occurrence.
func (o *Occurrence) IsPartOfQualifiedName() bool { return o.Qualifies.IsValid() }

// IsQualified reports whether occ is reached through a qualifier.
func (o *Occurrence) IsQualified() bool { return o.Qualifier.IsValid() }

// IsBound reports whether a declaration has been chosen.
func (o *Occurrence) IsBound() bool { return o.Decl.IsValid() }

// AddOccurrence stores occ in the arena.
func (t *Table) AddOccurrence(occ *Occurrence) OccID {
	if occ.Key.Empty() {
		occ.Key = FoldName(occ.Image)
	}
	return t.Occurrences.New(occ)
}

// Qualify links member as reached through qualifier.
func (t *Table) Qualify(qualifier, member OccID) error {
	q, m := t.Occurrences.Get(qualifier), t.Occurrences.Get(member)
	if q == nil || m == nil {
		return fmt.Errorf("qualify: invalid occurrence %d.%d", qualifier, member)
	}
	if qualifier == member {
		return errors.New("qualify: occurrence cannot qualify itself")
	}
	if q.Qualifies.IsValid() && q.Qualifies != member {
		return fmt.Errorf("qualify: occurrence %d already qualifies %d", qualifier, q.Qualifies)
	}
	q.Qualifies = member
	m.Qualifier = qualifier
	return nil
}

// QualifierChain returns the occurrences from the root qualifier down to
// id, e.g. [A, B, C] for C in A.B.C.
func (t *Table) QualifierChain(id OccID) []OccID {
	var chain []OccID
	for steps := 0; id.IsValid() && steps <= t.Occurrences.Len(); steps++ {
		chain = append(chain, id)
		id = t.Occurrences.Get(id).Qualifier
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Bind records decl as the resolution of occ along with the candidate set
// it was chosen from, and indexes occ under decl in the declaration's
// residence scope. Binding to NoDeclID keeps the candidates only.
func (t *Table) Bind(id OccID, decl DeclID, candidates []DeclID) error {
	occ := t.Occurrences.Get(id)
	if occ == nil {
		return fmt.Errorf("bind: invalid occurrence %d", id)
	}
	if occ.Decl.IsValid() && occ.Decl != decl {
		t.unindex(occ.Decl, id)
	}
	occ.Candidates = append([]DeclID(nil), candidates...)
	occ.Decl = decl
	if !decl.IsValid() {
		return nil
	}
	d := t.Decls.Get(decl)
	if d == nil {
		return fmt.Errorf("bind: invalid declaration %d", decl)
	}
	scope := t.Scopes.Get(d.Scope)
	if scope == nil {
		return nil
	}
	if scope.Occurrences == nil {
		scope.Occurrences = make(map[DeclID][]OccID)
	}
	for _, existing := range scope.Occurrences[decl] {
		if existing == id {
			return nil
		}
	}
	scope.Occurrences[decl] = append(scope.Occurrences[decl], id)
	return nil
}

func (t *Table) unindex(decl DeclID, id OccID) {
	d := t.Decls.Get(decl)
	if d == nil {
		return
	}
	scope := t.Scopes.Get(d.Scope)
	if scope == nil {
		return
	}
	list := scope.Occurrences[decl]
	for i, v := range list {
		if v == id {
			scope.Occurrences[decl] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// OccurrencesOf returns the occurrences bound to decl in binding order.
func (t *Table) OccurrencesOf(decl DeclID) []OccID {
	d := t.Decls.Get(decl)
	if d == nil {
		return nil
	}
	scope := t.Scopes.Get(d.Scope)
	if scope == nil {
		return nil
	}
	return append([]OccID(nil), scope.Occurrences[decl]...)
}
