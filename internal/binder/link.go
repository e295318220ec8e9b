package binder

import (
	"fmt"

	"pascope/internal/diag"
	"pascope/internal/symbols"
)

// Link resolves, for a single unit, everything Link does for a batch.
func (b *Binder) Link(u *Unit) {
	b.LinkAll([]*Unit{u})
}

// LinkAll connects built units. Every unit a batch uses must already be
// built. Imports of the whole batch are linked first, then type
// relations (ancestors, helpers, aliases), then the declared types of
// variables and routine results, and finally with-statement targets, so
// that each step can search through what the previous one linked. Units
// should be passed in build order.
func (b *Binder) LinkAll(units []*Unit) {
	live := make([]*Unit, 0, len(units))
	for _, u := range units {
		if u != nil && !u.Aborted {
			live = append(live, u)
		}
	}
	for _, u := range live {
		b.linkImports(u)
	}
	r := newResolver(b.table, nil)
	for _, u := range live {
		b.linkTypes(u, r)
	}
	for _, u := range live {
		b.linkTyped(u, r)
	}
	for _, u := range live {
		b.linkWiths(u)
	}
}

func (b *Binder) linkImports(u *Unit) {
	file := b.table.Scope(u.Scope)
	unit := b.table.Decl(u.Decl).Unit()
	for _, id := range file.Imports {
		imp := b.table.Decl(id).Import()
		target, path, ok := b.importTarget(u, imp)
		if !ok || target == u.Decl {
			continue
		}
		imp.Target = target
		if imp.Section == symbols.UsesImplementation {
			unit.AddImplementationDependency(path)
		} else {
			unit.AddInterfaceDependency(path)
		}
	}
}

// importTarget finds the unit a uses entry names. An "in" path is looked
// up first, relative to the importing model; the unit name is the fallback.
func (b *Binder) importTarget(u *Unit, imp *symbols.ImportData) (symbols.DeclID, string, bool) {
	if imp.InPath != "" {
		if id, ok := b.registry.UnitByPath(u.relPath(imp.InPath)); ok {
			if d := b.table.Decl(id); d != nil && d.Unit() != nil {
				return id, d.Unit().Path, true
			}
		}
	}
	return b.registry.UnitByName(imp.UnitName)
}

// implicitAncestor names the root every class or interface without an
// explicit ancestor derives from.
func implicitAncestor(tk symbols.TypeKind) string {
	switch tk {
	case symbols.TypeClass:
		return "TObject"
	case symbols.TypeInterface:
		return "IInterface"
	}
	return ""
}

func (b *Binder) linkTypes(u *Unit, r *resolver) {
	for i := range u.Model.Decls {
		id := u.decls[u.Model.Decls[i].ID]
		d := b.table.Decl(id)
		if d == nil || d.Type() == nil || d.IsForward() {
			continue
		}
		td := d.Type()
		at := d.Loc

		switch {
		case !td.Super.IsZero():
			td.SuperDecl = r.typeRef(td.Super, at)
			if !td.SuperDecl.IsValid() {
				b.unresolvedType(u, d, "ancestor", td.Super)
			}
		case implicitAncestor(td.TypeKind) != "" && d.Key != symbols.FoldName(implicitAncestor(td.TypeKind)):
			td.SuperDecl = r.typeRef(symbols.TypeRef{Name: implicitAncestor(td.TypeKind)}, at)
		}
		b.linkSuper(id, td)

		if td.TypeKind.IsHelper() && !td.HelperFor.IsZero() {
			extended := r.typeRef(td.HelperFor, at)
			if !extended.IsValid() {
				b.unresolvedType(u, d, "extended type", td.HelperFor)
			} else if err := b.table.RegisterHelper(id, extended); err != nil {
				diag.ReportInfo(u.Reporter, diag.SemaUnresolvedType, d.Loc.Span, err.Error()).Emit()
			}
		}
		if !td.AliasOf.IsZero() {
			td.AliasDecl = r.typeRef(td.AliasOf, at)
			if !td.AliasDecl.IsValid() {
				b.unresolvedType(u, d, "aliased type", td.AliasOf)
			}
		}
	}
}

// linkSuper points the member scope of a type at its ancestor's, unless
// that would make the ancestor chain cyclic.
func (b *Binder) linkSuper(id symbols.DeclID, td *symbols.TypeData) {
	members := b.table.Scope(td.Members)
	sd := b.table.Decl(td.SuperDecl)
	if members == nil || sd == nil || sd.Type() == nil {
		return
	}
	super := sd.Type().Members
	for steps, cur := 0, super; cur.IsValid() && steps <= b.table.Scopes.Len(); steps++ {
		if cur == td.Members {
			td.SuperDecl = symbols.NoDeclID
			return
		}
		next := b.table.Scope(cur)
		if next == nil {
			break
		}
		cur = next.Super
	}
	if super.IsValid() {
		members.Super = super
	}
}

func (b *Binder) linkTyped(u *Unit, r *resolver) {
	for i := range u.Model.Decls {
		id := u.decls[u.Model.Decls[i].ID]
		d := b.table.Decl(id)
		if d == nil {
			continue
		}
		switch {
		case d.Variable() != nil:
			vd := d.Variable()
			if vd.Type.IsZero() {
				continue
			}
			vd.TypeDecl = r.typeRef(vd.Type, d.Loc)
			if !vd.TypeDecl.IsValid() {
				b.unresolvedType(u, d, "type", vd.Type)
			}
		case d.Routine() != nil:
			rd := d.Routine()
			if rd.Result.IsZero() {
				continue
			}
			at := d.Loc
			at.Scope = routineScope(d)
			rd.ResultDecl = r.typeRef(rd.Result, at)
			if !rd.ResultDecl.IsValid() {
				b.unresolvedType(u, d, "result type", rd.Result)
			}
		}
	}
}

// linkWiths sets the target of each with scope to the member scope of its
// subject. Targets that cannot be resolved become the Unknown scope, which
// contributes nothing to searches. A fresh resolver per unit keeps nested
// withs seeing the targets already set for their enclosing ones.
func (b *Binder) linkWiths(u *Unit) {
	for _, w := range u.withs {
		scope := b.table.Scope(w.scope)
		if scope == nil || w.scope.IsUnknown() {
			continue
		}
		scope.Target = symbols.UnknownScopeID
		occ, ok := u.occs[w.target]
		if !ok {
			continue
		}
		r := newResolver(b.table, nil)
		st := r.resolve(occ)
		if st.res.Decl.IsValid() {
			if target, _, _ := r.memberScope(st.res.Decl, st); target.IsValid() && target != w.scope {
				scope.Target = target
				continue
			}
		}
		if b.opts.ReportUnresolved {
			o := b.table.Occurrence(occ)
			diag.ReportInfo(u.Reporter, diag.SemaUnresolvedWithTarget, o.Loc.Span,
				fmt.Sprintf("with target %q has no members to search", o.Image)).Emit()
		}
	}
}

func (b *Binder) unresolvedType(u *Unit, d *symbols.Decl, what string, ref symbols.TypeRef) {
	if !b.opts.ReportUnresolved {
		return
	}
	diag.ReportInfo(u.Reporter, diag.SemaUnresolvedType, d.Loc.Span,
		fmt.Sprintf("%s %q of %s %q is not declared", what, ref.String(), d.Kind, d.Name)).Emit()
}
