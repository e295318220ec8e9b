package symbols

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateDeclaration reports a declaration that duplicates one
	// already registered in the same scope.
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	// ErrInvalidDeclarationKind reports a declaration kind the scope cannot hold.
	ErrInvalidDeclarationKind = errors.New("invalid declaration kind")
	// ErrBadForward reports a completion that does not match its forward declaration.
	ErrBadForward = errors.New("invalid forward completion")
	// ErrInvalidScope reports a scope handle outside the arena.
	ErrInvalidScope = errors.New("invalid scope")
)

// DuplicateDeclarationError names both the registered entry and the
// rejected one.
type DuplicateDeclarationError struct {
	Scope    ScopeID
	Existing DeclID
	// ExistingLoc is copied so the error stays useful without the table.
	ExistingLoc Location
	Rejected    Decl
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("duplicate declaration of %s %q in scope %d (previous declaration #%d at %s)",
		e.Rejected.Kind, e.Rejected.DisplayName(), e.Scope, e.Existing, e.ExistingLoc.Span)
}

func (e *DuplicateDeclarationError) Unwrap() error { return ErrDuplicateDeclaration }

// InvalidDeclarationKindError is returned when a scope refuses a kind.
type InvalidDeclarationKindError struct {
	Scope     ScopeID
	ScopeKind ScopeKind
	Rejected  Decl
}

func (e *InvalidDeclarationKindError) Error() string {
	return fmt.Sprintf("%s %q cannot be declared in %s scope %d",
		e.Rejected.Kind, e.Rejected.Name, e.ScopeKind, e.Scope)
}

func (e *InvalidDeclarationKindError) Unwrap() error { return ErrInvalidDeclarationKind }

// ParentCycleError is returned by SetParent when the link would close a loop.
type ParentCycleError struct {
	Scope, Parent ScopeID
}

func (e *ParentCycleError) Error() string {
	return fmt.Sprintf("scope %d cannot take %d as parent: cycle", e.Scope, e.Parent)
}

func invalidScopeError(op string, id ScopeID) error {
	return fmt.Errorf("%s: %w %d", op, ErrInvalidScope, id)
}

// Duplicates reports whether a and b may not coexist in one scope. Both
// must share key, forward flag and implementation flag. Declarations of
// different kinds then always collide; within one kind, types collide only
// at equal generic arity and never when both are forward declarations,
// and routines only with equal signatures.
func Duplicates(a, b *Decl) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Key != b.Key {
		return false
	}
	if a.IsForward() != b.IsForward() || a.IsImplementation() != b.IsImplementation() {
		return false
	}
	if a.Kind != b.Kind {
		return true
	}
	switch a.Kind {
	case DeclType:
		if a.IsForward() && b.IsForward() {
			return false
		}
		return a.GenericArity() == b.GenericArity()
	case DeclRoutine:
		ra, rb := a.Routine(), b.Routine()
		if ra == nil || rb == nil {
			return ra == rb
		}
		return ra.SignatureKey() == rb.SignatureKey()
	case DeclUnit, DeclVariable, DeclTypeParam, DeclEnumElement, DeclUnitImport:
		return true
	default:
		return true
	}
}

// allowedIn reports whether scope kind sk may hold declarations of kind dk.
func allowedIn(sk ScopeKind, dk DeclKind) bool {
	switch sk {
	case ScopeLocal:
		return dk == DeclVariable
	case ScopeWith:
		return false
	default:
		return true
	}
}

// AddDeclaration registers d in scope unless an existing entry duplicates
// it. Registering into the Unknown scope is a no-op returning NoDeclID.
func (t *Table) AddDeclaration(scopeID ScopeID, d *Decl) (DeclID, error) {
	if d == nil {
		return NoDeclID, errors.New("add declaration: nil declaration")
	}
	if scopeID.IsUnknown() {
		return NoDeclID, nil
	}
	scope := t.Scopes.Get(scopeID)
	if scope == nil {
		return NoDeclID, invalidScopeError("add declaration", scopeID)
	}
	if d.Kind == DeclInvalid || d.Data == nil || d.Data.declKind() != d.Kind {
		return NoDeclID, &InvalidDeclarationKindError{Scope: scopeID, ScopeKind: scope.Kind, Rejected: *d}
	}
	if !allowedIn(scope.Kind, d.Kind) {
		return NoDeclID, &InvalidDeclarationKindError{Scope: scopeID, ScopeKind: scope.Kind, Rejected: *d}
	}
	if d.Key.Empty() {
		d.Key = FoldName(d.Name)
	}
	for _, existing := range scope.NameIndex[d.Key] {
		prev := t.Decls.Get(existing)
		if Duplicates(prev, d) {
			return NoDeclID, &DuplicateDeclarationError{
				Scope:       scopeID,
				Existing:    existing,
				ExistingLoc: prev.Loc,
				Rejected:    *d,
			}
		}
	}

	d.Scope = scopeID
	if !d.Loc.Scope.IsValid() {
		d.Loc.Scope = scopeID
	}
	id := t.Decls.New(d)
	scope.Decls = append(scope.Decls, id)
	scope.NameIndex[d.Key] = append(scope.NameIndex[d.Key], id)

	switch d.Kind {
	case DeclUnit:
		if scope.Kind == ScopeFile && !scope.UnitDecl.IsValid() {
			scope.UnitDecl = id
			if u := t.Decls.Get(id).Unit(); u != nil && !u.FileScope.IsValid() {
				u.FileScope = scopeID
			}
		}
	case DeclUnitImport:
		if scope.Kind == ScopeFile {
			scope.Imports = append(scope.Imports, id)
		}
	}
	return id, nil
}

// CompleteForward registers d as the completion of the forward declaration
// forward. d is stored in scope with ForwardOf linked.
func (t *Table) CompleteForward(scopeID ScopeID, forward DeclID, d *Decl) (DeclID, error) {
	if d == nil {
		return NoDeclID, errors.New("complete forward: nil declaration")
	}
	fwd := t.Decls.Get(forward)
	if fwd == nil {
		return NoDeclID, fmt.Errorf("%w: declaration #%d does not exist", ErrBadForward, forward)
	}
	if d.Key.Empty() {
		d.Key = FoldName(d.Name)
	}
	if fwd.Kind != d.Kind || fwd.Key != d.Key {
		return NoDeclID, fmt.Errorf("%w: %s %q cannot complete %s %q",
			ErrBadForward, d.Kind, d.Name, fwd.Kind, fwd.Name)
	}
	// Interface-section routines are completed by their implementation
	// without being marked forward.
	completesInterface := d.Kind == DeclRoutine && d.IsImplementation() && !fwd.IsImplementation()
	if !fwd.IsForward() && !completesInterface {
		return NoDeclID, fmt.Errorf("%w: %s %q is not a forward declaration",
			ErrBadForward, fwd.Kind, fwd.Name)
	}
	if d.Kind == DeclType && fwd.GenericArity() != d.GenericArity() {
		return NoDeclID, fmt.Errorf("%w: %q has %d type parameters, forward has %d",
			ErrBadForward, d.Name, d.GenericArity(), fwd.GenericArity())
	}
	d.Flags &^= DeclForward
	d.ForwardOf = forward
	return t.AddDeclaration(scopeID, d)
}

// CompletionOf returns the declaration completing forward inside its
// residence scope, if any.
func (t *Table) CompletionOf(forward DeclID) (DeclID, bool) {
	fwd := t.Decls.Get(forward)
	if fwd == nil {
		return NoDeclID, false
	}
	scope := t.Scopes.Get(fwd.Scope)
	if scope == nil {
		return NoDeclID, false
	}
	for _, id := range scope.NameIndex[fwd.Key] {
		if d := t.Decls.Get(id); d != nil && d.ForwardOf == forward {
			return id, true
		}
	}
	return NoDeclID, false
}
