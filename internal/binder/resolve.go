package binder

import (
	"strings"

	"pascope/internal/symbols"
)

// Status classifies the outcome of resolving one occurrence.
type Status uint8

const (
	StatusResolved Status = iota
	// StatusUnresolved means no scope produced a candidate.
	StatusUnresolved
	// StatusAmbiguous means several candidates survived selection.
	StatusAmbiguous
	// StatusUnscoped means the qualifier resolved to something without members.
	StatusUnscoped
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusAmbiguous:
		return "ambiguous"
	case StatusUnscoped:
		return "unscoped"
	default:
		return "unresolved"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusResolved, StatusUnresolved, StatusAmbiguous, StatusUnscoped} {
		if st.String() == s {
			return st, true
		}
	}
	return StatusUnresolved, false
}

// Resolution is the computed binding of one occurrence. It is written to
// the table by Bind.
type Resolution struct {
	Occ    symbols.OccID
	Status Status
	Decl   symbols.DeclID
	// Candidates is the search result the declaration was chosen from.
	Candidates []symbols.DeclID
	// Instance renders the specialized view reached through a generic
	// instantiation, e.g. "First: TShape" for a member of TList<TShape>.
	Instance string
}

// Resolve computes the binding of every occurrence of u without modifying
// the table. Calls for different units may run concurrently provided each
// goroutine passes its own cache (nil allocates one).
func (b *Binder) Resolve(u *Unit, cache *symbols.SpecializationCache) []Resolution {
	if u == nil || u.Aborted {
		return nil
	}
	r := newResolver(b.table, cache)
	out := make([]Resolution, len(u.Occurrences))
	for i, id := range u.Occurrences {
		out[i] = r.resolve(id).res
	}
	return out
}

type resolver struct {
	table *symbols.Table
	cache *symbols.SpecializationCache
	memo  map[symbols.OccID]*step
}

// step is a resolved occurrence together with the view member access
// through it continues from.
type step struct {
	res  Resolution
	occ  *symbols.Occurrence
	done bool

	spec *symbols.Decl
	ctx  symbols.SubstitutionContext
	// from is where substituted type arguments were written.
	from symbols.ScopeID
}

func newResolver(t *symbols.Table, cache *symbols.SpecializationCache) *resolver {
	if cache == nil {
		cache = symbols.NewSpecializationCache(t)
	}
	return &resolver{table: t, cache: cache, memo: make(map[symbols.OccID]*step)}
}

func (r *resolver) resolve(id symbols.OccID) *step {
	if st, ok := r.memo[id]; ok {
		return st
	}
	st := &step{res: Resolution{Occ: id, Status: StatusUnresolved}}
	r.memo[id] = st
	defer func() { st.done = true }()

	occ := r.table.Occurrence(id)
	if occ == nil {
		return st
	}
	st.occ = occ

	var cands []symbols.DeclID
	var ctx symbols.SubstitutionContext
	from := occ.Loc.Scope
	if occ.Qualifier.IsValid() {
		q := r.resolve(occ.Qualifier)
		if !q.done || !q.res.Decl.IsValid() {
			return st
		}
		scope, qctx, qfrom := r.memberScope(q.res.Decl, q)
		if scope.IsUnknown() {
			return st
		}
		if !scope.IsValid() {
			st.res.Status = StatusUnscoped
			return st
		}
		cands = r.table.MemberSearch(scope, occ)
		ctx, from = qctx, qfrom
	} else {
		cands = r.table.Search(occ, symbols.NoScopeID)
	}

	st.res.Candidates = cands
	st.res.Decl, st.res.Status = choose(r.table, occ, cands)
	if st.res.Status != StatusResolved {
		return st
	}

	if len(occ.TypeArgs) > 0 {
		if d := r.table.Decl(st.res.Decl); d != nil && d.GenericArity() == len(occ.TypeArgs) {
			if own, err := symbols.NewSubstitutionContext(genericParams(d), occ.TypeArgs); err == nil {
				ctx, from = own, occ.Loc.Scope
			}
		}
	}
	st.ctx, st.from = ctx, from
	if !ctx.Empty() {
		if sp := r.cache.Get(st.res.Decl, ctx); sp.Specialized() {
			d := sp.Decl
			st.spec = &d
			st.res.Instance = describe(&d)
		}
	}
	return st
}

func genericParams(d *symbols.Decl) []string {
	switch {
	case d.Type() != nil:
		return d.Type().TypeParams
	case d.Routine() != nil:
		return d.Routine().TypeParams
	}
	return nil
}

// memberScope is the scope members of decl are looked up in, with the
// substitution in force for them. st carries the specialized view of decl
// and may be nil.
func (r *resolver) memberScope(id symbols.DeclID, st *step) (symbols.ScopeID, symbols.SubstitutionContext, symbols.ScopeID) {
	var none symbols.SubstitutionContext
	d := r.table.Decl(id)
	if d == nil {
		return symbols.NoScopeID, none, symbols.NoScopeID
	}
	view := d
	var from symbols.ScopeID
	if st != nil {
		from = st.from
		if st.spec != nil {
			view = st.spec
		}
	}

	switch d.Kind {
	case symbols.DeclUnit:
		return d.Unit().FileScope, none, symbols.NoScopeID
	case symbols.DeclUnitImport:
		target := r.table.Decl(d.Import().Target)
		if target == nil || target.Unit() == nil {
			return symbols.NoScopeID, none, symbols.NoScopeID
		}
		return target.Unit().FileScope, none, symbols.NoScopeID
	case symbols.DeclType:
		var args []symbols.TypeRef
		if td := view.Type(); td != nil {
			args = td.TypeArgs
		}
		return r.instanceScope(id, args, from)
	case symbols.DeclVariable:
		vd := view.Variable()
		if st == nil || st.spec == nil {
			return r.instanceScope(vd.TypeDecl, vd.Type.Args, d.Loc.Scope)
		}
		at := symbols.Location{Span: d.Loc.Span, Scope: from}
		return r.instanceScope(r.typeRef(vd.Type, at), vd.Type.Args, from)
	case symbols.DeclRoutine:
		rd := view.Routine()
		if rd.RoutineKind == symbols.RoutineConstructor {
			if home := r.table.Scope(d.Scope); home != nil && home.Kind == symbols.ScopeType {
				var ctx symbols.SubstitutionContext
				if st != nil {
					ctx = st.ctx
				}
				return d.Scope, ctx, from
			}
		}
		if st == nil || st.spec == nil {
			return r.instanceScope(rd.ResultDecl, rd.Result.Args, routineScope(d))
		}
		at := symbols.Location{Span: d.Loc.Span, Scope: from}
		return r.instanceScope(r.typeRef(rd.Result, at), rd.Result.Args, from)
	case symbols.DeclTypeParam:
		// A class constraint exposes the members of that class.
		for _, c := range view.TypeParam().Constraints {
			at := symbols.Location{Span: d.Loc.Span, Scope: d.Scope}
			cd := r.typeRef(c, at)
			if bound := r.table.Decl(cd); bound == nil || bound.Kind != symbols.DeclType {
				continue
			}
			if scope, ctx, cfrom := r.instanceScope(cd, c.Args, d.Scope); scope.IsValid() {
				return scope, ctx, cfrom
			}
		}
	}
	return symbols.NoScopeID, none, symbols.NoScopeID
}

// routineScope is where a routine's signature types are resolved: its body
// when it has one, so that its own type parameters are visible.
func routineScope(d *symbols.Decl) symbols.ScopeID {
	if rd := d.Routine(); rd != nil && rd.Body.IsValid() && !rd.Body.IsUnknown() {
		return rd.Body
	}
	return d.Scope
}

// instanceScope follows aliases from a type declaration to the scope
// holding its members. args instantiate the generic type reached, written
// in scope from.
func (r *resolver) instanceScope(id symbols.DeclID, args []symbols.TypeRef, from symbols.ScopeID) (symbols.ScopeID, symbols.SubstitutionContext, symbols.ScopeID) {
	var none symbols.SubstitutionContext
	for steps := 0; id.IsValid() && steps <= maxAliasDepth; steps++ {
		d := r.table.Decl(id)
		if d == nil {
			break
		}
		if d.Kind == symbols.DeclTypeParam {
			return r.memberScope(id, nil)
		}
		td := d.Type()
		if td == nil {
			break
		}
		if td.Members.IsValid() {
			if len(args) > 0 && len(args) == len(td.TypeParams) {
				if ctx, err := symbols.NewSubstitutionContext(td.TypeParams, args); err == nil {
					return td.Members, ctx, from
				}
			}
			return td.Members, none, from
		}
		if !td.AliasDecl.IsValid() {
			break
		}
		id = td.AliasDecl
		args, from = td.AliasOf.Args, d.Scope
	}
	return symbols.NoScopeID, none, symbols.NoScopeID
}

const maxAliasDepth = 32

// scopeOf is the member scope of a declaration outside any instantiation.
func (r *resolver) scopeOf(id symbols.DeclID) symbols.ScopeID {
	scope, _, _ := r.memberScope(id, nil)
	return scope
}

// typeRef resolves a written type reference from at. Dotted names are
// matched against the longest unit or import name first, so that
// System.SysUtils.TEncoding reaches TEncoding through the unit
// System.SysUtils.
func (r *resolver) typeRef(ref symbols.TypeRef, at symbols.Location) symbols.DeclID {
	if ref.IsZero() {
		return symbols.NoDeclID
	}
	parts := ref.NameParts()
	arity := ref.Arity()
	for k := len(parts); k >= 1; k-- {
		occ := symbols.NewOccurrence(strings.Join(parts[:k], "."), at)
		mask := symbols.KindMaskTypes
		if k < len(parts) && k > 1 {
			mask = symbols.DeclUnit.Mask() | symbols.DeclUnitImport.Mask()
		}
		want := 0
		if k == len(parts) {
			want = arity
		}
		cur := pickType(r.table, r.table.SearchKinds(occ, at.Scope, mask), want)
		if !cur.IsValid() {
			continue
		}
		for i, part := range parts[k:] {
			scope := r.scopeOf(cur)
			if !scope.IsValid() {
				return symbols.NoDeclID
			}
			want = 0
			if k+i == len(parts)-1 {
				want = arity
			}
			occ := symbols.NewOccurrence(part, at)
			cur = pickType(r.table, r.table.MemberSearchKinds(scope, occ, symbols.KindMaskTypes), want)
			if !cur.IsValid() {
				return symbols.NoDeclID
			}
		}
		return cur
	}
	return symbols.NoDeclID
}

// pickType selects the declaration a type reference with arity generic
// arguments names. Types must match the arity exactly; a forward type
// yields to its completion.
func pickType(t *symbols.Table, cands []symbols.DeclID, arity int) symbols.DeclID {
	for _, id := range collapseForwards(t, cands) {
		d := t.Decl(id)
		if d.Kind == symbols.DeclType && d.GenericArity() != arity {
			continue
		}
		return id
	}
	return symbols.NoDeclID
}

// collapseForwards keeps one declaration per forward pair: a routine's
// declaration over its body, a type's completion over its forward.
func collapseForwards(t *symbols.Table, cands []symbols.DeclID) []symbols.DeclID {
	if len(cands) < 2 {
		return cands
	}
	in := make(map[symbols.DeclID]bool, len(cands))
	for _, id := range cands {
		in[id] = true
	}
	drop := make(map[symbols.DeclID]bool)
	for _, id := range cands {
		d := t.Decl(id)
		if d == nil || !d.ForwardOf.IsValid() || !in[d.ForwardOf] {
			continue
		}
		if d.Kind == symbols.DeclRoutine {
			drop[id] = true
		} else {
			drop[d.ForwardOf] = true
		}
	}
	if len(drop) == 0 {
		return cands
	}
	out := make([]symbols.DeclID, 0, len(cands)-len(drop))
	for _, id := range cands {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

// choose picks the binding among the candidates of one search. Narrowing
// steps apply only when they leave something; anything but a single
// survivor is ambiguous.
func choose(t *symbols.Table, occ *symbols.Occurrence, cands []symbols.DeclID) (symbols.DeclID, Status) {
	if len(cands) == 0 {
		return symbols.NoDeclID, StatusUnresolved
	}
	kept := collapseForwards(t, cands)
	kept = narrow(kept, func(id symbols.DeclID) bool {
		d := t.Decl(id)
		if d.Kind != symbols.DeclType && d.Kind != symbols.DeclRoutine {
			return len(occ.TypeArgs) == 0
		}
		return d.GenericArity() == len(occ.TypeArgs)
	})
	if occ.Arity >= 0 {
		kept = narrow(kept, func(id symbols.DeclID) bool {
			rd := t.Decl(id).Routine()
			return rd != nil && rd.AcceptsArity(occ.Arity)
		})
	}
	if len(kept) == 1 {
		return kept[0], StatusResolved
	}
	return symbols.NoDeclID, StatusAmbiguous
}

func narrow(ids []symbols.DeclID, keep func(symbols.DeclID) bool) []symbols.DeclID {
	out := make([]symbols.DeclID, 0, len(ids))
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return ids
	}
	return out
}

// describe renders a specialized declaration for reports.
func describe(d *symbols.Decl) string {
	switch d.Kind {
	case symbols.DeclVariable:
		if vd := d.Variable(); vd != nil && !vd.Type.IsZero() {
			return d.Name + ": " + vd.Type.String()
		}
	case symbols.DeclRoutine:
		rd := d.Routine()
		if rd == nil {
			break
		}
		var sb strings.Builder
		sb.WriteString(d.DisplayName())
		sb.WriteByte('(')
		for i, p := range rd.Params {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(p.Type.String())
		}
		sb.WriteByte(')')
		if !rd.Result.IsZero() {
			sb.WriteString(": ")
			sb.WriteString(rd.Result.String())
		}
		return sb.String()
	}
	return d.DisplayName()
}
