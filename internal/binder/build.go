package binder

import (
	"errors"
	"fmt"
	"strings"

	"pascope/internal/diag"
	"pascope/internal/project"
	"pascope/internal/source"
	"pascope/internal/symbols"
)

// Build creates the unit's scopes, declarations and occurrences. The model
// must have passed Check. On a structural error (duplicate, misplaced kind,
// bad completion) a diagnostic is reported, u.Aborted is set and
// ErrBuildAborted returned; the unit is left partially registered and must
// not be linked or resolved.
func (b *Binder) Build(model *project.UnitModel, file source.FileID, reporter diag.Reporter) (*Unit, error) {
	u := newUnit(model, file, reporter)
	if err := b.buildScopes(u); err != nil {
		return u, err
	}
	if err := b.buildUnit(u); err != nil {
		return u, err
	}
	if err := b.buildDecls(u); err != nil {
		return u, err
	}
	if err := b.linkOwners(u); err != nil {
		return u, err
	}
	if err := b.buildTypeParams(u); err != nil {
		return u, err
	}
	b.fillQualifiedNames(u)
	if err := b.buildOccurrences(u); err != nil {
		return u, err
	}
	return u, nil
}

func (u *Unit) span(sp []uint32) source.Span {
	return project.SpanOf(u.File, sp)
}

func (b *Binder) buildScopes(u *Unit) error {
	for _, s := range u.Model.Scopes {
		kind, ok := symbols.ParseScopeKind(s.Kind)
		if !ok {
			return b.malformed(u, u.span(s.Span), fmt.Sprintf("scope %q has unknown kind %q", s.ID, s.Kind))
		}
		var id symbols.ScopeID
		switch kind {
		case symbols.ScopeFile:
			id = b.table.NewFileScope(u.span(s.Span))
			u.Scope = id
		case symbols.ScopeUnknown:
			id = symbols.UnknownScopeID
		default:
			parent, ok := u.scopes[s.Parent]
			if !ok {
				return b.malformed(u, u.span(s.Span), fmt.Sprintf("scope %q has unknown parent %q", s.ID, s.Parent))
			}
			id = b.table.NewScope(kind, parent, u.span(s.Span))
		}
		u.scopes[s.ID] = id
		if kind == symbols.ScopeWith && s.Target != "" {
			u.withs = append(u.withs, withLink{scope: id, target: s.Target})
		}
	}
	if !u.Scope.IsValid() {
		return b.malformed(u, u.span(u.Model.Unit.Span), "unit model has no file scope")
	}
	return nil
}

// buildUnit registers the unit declaration and one import per uses entry,
// preceded by the implicit units the unit does not list itself.
func (b *Binder) buildUnit(u *Unit) error {
	h := u.Model.Unit
	qn, err := symbols.ParseQualifiedName(h.Name)
	if err != nil {
		return b.malformed(u, u.span(h.Span), fmt.Sprintf("unit name %q: %v", h.Name, err))
	}
	kind := strings.ToLower(h.Kind)
	decl := symbols.NewDecl(symbols.DeclUnit, h.Name,
		symbols.Location{Span: u.span(h.Span), Scope: u.Scope},
		&symbols.UnitData{
			Path:          u.Model.Path,
			QualifiedName: qn,
			FileScope:     u.Scope,
			Program:       kind != "" && kind != "unit",
		})
	decl.Flags |= symbols.DeclImplicit
	id, err := b.table.AddDeclaration(u.Scope, decl)
	if err != nil {
		return b.structural(u, err, decl.Loc.Span)
	}
	u.Decl = id
	u.labels[id] = unitLabel

	if err := b.registry.AddUnit(u.Model.Path, id); err != nil {
		return b.duplicateUnit(u, err)
	}
	if err := b.registry.AddName(h.Name, u.Model.Path); err != nil {
		return b.duplicateUnit(u, err)
	}
	if h.Source != "" {
		if err := b.registry.AddUnit(u.relPath(h.Source), id); err != nil {
			return b.duplicateUnit(u, err)
		}
	}

	listed := make(map[symbols.Key]bool, len(u.Model.Uses))
	for _, e := range u.Model.Uses {
		listed[symbols.FoldName(e.Name)] = true
	}
	for _, name := range b.opts.ImplicitUnits {
		key := symbols.FoldName(name)
		if key == decl.Key || listed[key] {
			continue
		}
		imp := symbols.NewDecl(symbols.DeclUnitImport, name,
			symbols.Location{Span: source.Span{File: u.File}, Scope: u.Scope},
			&symbols.ImportData{UnitName: name, Section: symbols.UsesInterface})
		imp.Flags |= symbols.DeclImplicit
		id, err := b.table.AddDeclaration(u.Scope, imp)
		if err != nil {
			return b.structural(u, err, imp.Loc.Span)
		}
		u.labels[id] = usesLabel(name)
		listed[key] = true
	}
	for _, e := range u.Model.Uses {
		section := symbols.UsesInterface
		if strings.EqualFold(e.Section, "implementation") {
			section = symbols.UsesImplementation
		}
		imp := symbols.NewDecl(symbols.DeclUnitImport, e.Name,
			symbols.Location{Span: u.span(e.Span), Scope: u.Scope, Token: e.Token},
			&symbols.ImportData{UnitName: e.Name, InPath: e.In, Section: section})
		id, err := b.table.AddDeclaration(u.Scope, imp)
		if err != nil {
			return b.structural(u, err, imp.Loc.Span)
		}
		u.labels[id] = usesLabel(e.Name)
	}
	return nil
}

func usesLabel(name string) string { return "$uses:" + name }

func typeParamLabel(owner, name string) string { return "$tp:" + owner + ":" + name }

func (b *Binder) buildDecls(u *Unit) error {
	for i := range u.Model.Decls {
		e := &u.Model.Decls[i]
		d, err := u.declFromEntry(e)
		if err != nil {
			return b.malformed(u, u.span(e.Span), err.Error())
		}
		var id symbols.DeclID
		if e.Completes != "" {
			fwd, ok := u.decls[e.Completes]
			if !ok || !fwd.IsValid() {
				return b.structural(u, fmt.Errorf("%w: %q completes unregistered declaration %q",
					symbols.ErrBadForward, e.ID, e.Completes), d.Loc.Span)
			}
			scope := b.completionScope(u, e, fwd)
			d.Loc.Scope = scope
			id, err = b.table.CompleteForward(scope, fwd, d)
		} else {
			scope, ok := u.scopes[e.Scope]
			if !ok {
				return b.malformed(u, d.Loc.Span, fmt.Sprintf("decl %q has unknown scope %q", e.ID, e.Scope))
			}
			id, err = b.table.AddDeclaration(scope, d)
		}
		if err != nil {
			return b.structural(u, err, d.Loc.Span)
		}
		u.decls[e.ID] = id
		if id.IsValid() {
			u.labels[id] = e.ID
		}
	}
	return nil
}

// completionScope places a completion next to what it completes. Method
// bodies written in the implementation section land in the type scope of
// their class.
func (b *Binder) completionScope(u *Unit, e *project.DeclEntry, fwd symbols.DeclID) symbols.ScopeID {
	home := b.table.Decl(fwd).Scope
	if e.Scope == "" {
		return home
	}
	if s := b.table.Scope(home); s != nil && s.Kind == symbols.ScopeType {
		return home
	}
	if id, ok := u.scopes[e.Scope]; ok {
		return id
	}
	return home
}

func (u *Unit) declFromEntry(e *project.DeclEntry) (*symbols.Decl, error) {
	kind, ok := symbols.ParseDeclKind(e.Kind)
	if !ok {
		return nil, fmt.Errorf("decl %q has unknown kind %q", e.ID, e.Kind)
	}
	vis, _ := symbols.ParseVisibility(e.Visibility)
	loc := symbols.Location{Span: u.span(e.Span), Scope: u.scopes[e.Scope], Token: e.Token}

	var data symbols.DeclData
	var err error
	switch kind {
	case symbols.DeclType:
		data, err = typeData(e)
	case symbols.DeclRoutine:
		data, err = routineData(e)
	case symbols.DeclVariable:
		data, err = variableData(e)
	case symbols.DeclEnumElement:
		data = &symbols.EnumElementData{Enum: u.decls[e.Enum], Ordinal: e.Ordinal}
	case symbols.DeclTypeParam:
		data = &symbols.TypeParamData{}
	default:
		return nil, fmt.Errorf("decl %q: %s declarations come from the unit header", e.ID, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decl %q: %w", e.ID, err)
	}

	d := symbols.NewDecl(kind, e.Name, loc, data)
	d.Visibility = vis
	if e.Forward {
		d.Flags |= symbols.DeclForward
	}
	if e.Implementation {
		d.Flags |= symbols.DeclImplementation
	}
	if e.Class {
		d.Flags |= symbols.DeclClassMember
	}
	return d, nil
}

func parseRef(text string) (symbols.TypeRef, error) {
	if strings.TrimSpace(text) == "" {
		return symbols.TypeRef{}, nil
	}
	return symbols.ParseTypeRef(text)
}

func parseRefs(texts []string) ([]symbols.TypeRef, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([]symbols.TypeRef, 0, len(texts))
	for _, text := range texts {
		ref, err := parseRef(text)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

func typeData(e *project.DeclEntry) (*symbols.TypeData, error) {
	tk, ok := symbols.ParseTypeKind(e.TypeKind)
	if !ok {
		return nil, fmt.Errorf("unknown type kind %q", e.TypeKind)
	}
	td := &symbols.TypeData{TypeKind: tk, TypeParams: append([]string(nil), e.TypeParams...)}
	var errs []error
	var err error
	td.Super, err = parseRef(e.Super)
	errs = append(errs, err)
	td.HelperFor, err = parseRef(e.HelperFor)
	errs = append(errs, err)
	td.AliasOf, err = parseRef(e.AliasOf)
	errs = append(errs, err)
	td.Interfaces, err = parseRefs(e.Interfaces)
	errs = append(errs, err)
	return td, errors.Join(errs...)
}

func routineData(e *project.DeclEntry) (*symbols.RoutineData, error) {
	rk, ok := symbols.ParseRoutineKind(e.RoutineKind)
	if !ok {
		return nil, fmt.Errorf("unknown routine kind %q", e.RoutineKind)
	}
	rd := &symbols.RoutineData{RoutineKind: rk, TypeParams: append([]string(nil), e.TypeParams...)}
	result, err := parseRef(e.Result)
	if err != nil {
		return nil, err
	}
	rd.Result = result
	for _, p := range e.Params {
		ref, err := parseRef(p.Type)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", p.Name, err)
		}
		mod, ok := symbols.ParseParamModifier(p.Modifier)
		if !ok {
			return nil, fmt.Errorf("param %q: unknown modifier %q", p.Name, p.Modifier)
		}
		rd.Params = append(rd.Params, symbols.Param{Name: p.Name, Type: ref, Modifier: mod, HasDefault: p.Default})
	}
	return rd, nil
}

func variableData(e *project.DeclEntry) (*symbols.VariableData, error) {
	role, ok := symbols.ParseVariableRole(e.Role)
	if !ok {
		return nil, fmt.Errorf("unknown role %q", e.Role)
	}
	ref, err := parseRef(e.Type)
	if err != nil {
		return nil, err
	}
	return &symbols.VariableData{Role: role, Type: ref}, nil
}

// linkOwners connects type and routine scopes with the declarations that
// own them.
func (b *Binder) linkOwners(u *Unit) error {
	for _, s := range u.Model.Scopes {
		id := u.scopes[s.ID]
		scope := b.table.Scope(id)
		if scope == nil || id.IsUnknown() {
			continue
		}
		if s.Type != "" {
			owner := u.decls[s.Type]
			d := b.table.Decl(owner)
			if d == nil || d.Type() == nil {
				return b.malformed(u, scope.Span, fmt.Sprintf("scope %q is owned by %q, which is not a registered type", s.ID, s.Type))
			}
			scope.TypeDecl = owner
			d.Type().Members = id
		}
		if s.Routine != "" {
			owner := u.decls[s.Routine]
			d := b.table.Decl(owner)
			if d == nil || d.Routine() == nil {
				return b.malformed(u, scope.Span, fmt.Sprintf("scope %q is owned by %q, which is not a registered routine", s.ID, s.Routine))
			}
			scope.RoutineDecl = owner
			d.Routine().Body = id
			if home := b.table.Scope(d.Scope); home != nil && home.Kind == symbols.ScopeType {
				scope.OwnerType = d.Scope
			}
		}
	}
	return nil
}

// buildTypeParams declares the generic parameters of each type and
// routine inside the scope that owns them.
func (b *Binder) buildTypeParams(u *Unit) error {
	for i := range u.Model.Decls {
		e := &u.Model.Decls[i]
		if len(e.TypeParams) == 0 {
			continue
		}
		owner := b.table.Decl(u.decls[e.ID])
		if owner == nil {
			continue
		}
		var scope symbols.ScopeID
		switch {
		case owner.Type() != nil:
			scope = owner.Type().Members
		case owner.Routine() != nil:
			scope = owner.Routine().Body
		}
		if !scope.IsValid() || scope.IsUnknown() {
			continue
		}
		for idx, name := range e.TypeParams {
			constraints, err := parseRefs(constraintsOf(e, name))
			if err != nil {
				return b.malformed(u, owner.Loc.Span, fmt.Sprintf("decl %q constraint: %v", e.ID, err))
			}
			tp := symbols.NewDecl(symbols.DeclTypeParam, name,
				symbols.Location{Span: owner.Loc.Span, Scope: scope, Token: owner.Loc.Token},
				&symbols.TypeParamData{Index: idx, Constraints: constraints})
			tp.Flags |= symbols.DeclImplicit
			id, err := b.table.AddDeclaration(scope, tp)
			if err != nil {
				return b.structural(u, err, tp.Loc.Span)
			}
			u.labels[id] = typeParamLabel(e.ID, name)
		}
	}
	return nil
}

func constraintsOf(e *project.DeclEntry, param string) []string {
	key := symbols.FoldName(param)
	for name, list := range e.Constraints {
		if symbols.FoldName(name) == key {
			return list
		}
	}
	return nil
}

func (b *Binder) fillQualifiedNames(u *Unit) {
	for _, id := range u.decls {
		d := b.table.Decl(id)
		if d == nil {
			continue
		}
		switch {
		case d.Type() != nil:
			d.Type().QualifiedName = b.table.QualifiedNameOf(id)
		case d.Routine() != nil:
			d.Routine().QualifiedName = b.table.QualifiedNameOf(id)
		}
	}
}

func (b *Binder) buildOccurrences(u *Unit) error {
	u.Occurrences = make([]symbols.OccID, 0, len(u.Model.Occurrences))
	u.occLabels = make([]string, 0, len(u.Model.Occurrences))
	for i := range u.Model.Occurrences {
		e := &u.Model.Occurrences[i]
		scope, ok := u.scopes[e.Scope]
		if !ok {
			return b.malformed(u, u.span(e.Span), fmt.Sprintf("occurrence %q has unknown scope %q", e.ID, e.Scope))
		}
		occ := symbols.NewOccurrence(e.Name, symbols.Location{Span: u.span(e.Span), Scope: scope, Token: e.Token})
		occ.Invocation = e.Invocation
		occ.MethodReference = e.MethodRef
		if e.Arity != nil {
			occ.Arity = *e.Arity
		}
		args, err := parseRefs(e.TypeArgs)
		if err != nil {
			return b.malformed(u, occ.Loc.Span, fmt.Sprintf("occurrence %q: %v", e.ID, err))
		}
		occ.TypeArgs = args
		id := b.table.AddOccurrence(occ)
		u.occs[e.ID] = id
		u.Occurrences = append(u.Occurrences, id)
		u.occLabels = append(u.occLabels, e.ID)
	}
	for i := range u.Model.Occurrences {
		e := &u.Model.Occurrences[i]
		if e.Qualifier == "" {
			continue
		}
		q, ok := u.occs[e.Qualifier]
		if !ok {
			return b.malformed(u, u.span(e.Span), fmt.Sprintf("occurrence %q has unknown qualifier %q", e.ID, e.Qualifier))
		}
		if err := b.table.Qualify(q, u.occs[e.ID]); err != nil {
			return b.malformed(u, u.span(e.Span), err.Error())
		}
	}
	return nil
}

// structural reports a registration failure and aborts the unit.
func (b *Binder) structural(u *Unit, err error, at source.Span) error {
	var dup *symbols.DuplicateDeclarationError
	var kind *symbols.InvalidDeclarationKindError
	switch {
	case errors.As(err, &dup):
		msg := fmt.Sprintf("duplicate declaration of %s %q", dup.Rejected.Kind, dup.Rejected.DisplayName())
		diag.ReportError(u.Reporter, diag.SemaDuplicateDeclaration, at, msg).
			WithNote(dup.ExistingLoc.Span, "previous declaration is here").
			Emit()
	case errors.As(err, &kind):
		msg := fmt.Sprintf("%s %q cannot be declared in a %s scope", kind.Rejected.Kind, kind.Rejected.Name, kind.ScopeKind)
		diag.ReportError(u.Reporter, diag.SemaInvalidDeclKind, at, msg).Emit()
	case errors.Is(err, symbols.ErrBadForward):
		diag.ReportError(u.Reporter, diag.SemaBadForward, at, err.Error()).Emit()
	default:
		diag.ReportError(u.Reporter, diag.SemaInvariantViolation, at, err.Error()).Emit()
	}
	u.Aborted = true
	return fmt.Errorf("%s: %w: %w", u.Name(), ErrBuildAborted, err)
}

func (b *Binder) malformed(u *Unit, at source.Span, msg string) error {
	diag.ReportError(u.Reporter, diag.IOModelMalformed, at, msg).Emit()
	u.Aborted = true
	return fmt.Errorf("%s: %w: %s", u.Model.Path, ErrBuildAborted, msg)
}

func (b *Binder) duplicateUnit(u *Unit, err error) error {
	diag.ReportError(u.Reporter, diag.ProjDuplicateUnit, u.span(u.Model.Unit.Span), err.Error()).Emit()
	u.Aborted = true
	return fmt.Errorf("%s: %w: %w", u.Model.Path, ErrBuildAborted, err)
}
