// Package binder turns unit models into a populated symbol table and binds
// every name occurrence to its declaration.
//
// Work happens in four phases per unit. Build creates scopes and registers
// declarations; Link resolves the type references the search itself
// depends on (ancestors, helpers, variable types, with targets); Resolve
// computes a binding for each occurrence without writing anything; Bind
// stores those bindings. Build, Link and Bind must run on one goroutine;
// Resolve of different units may run in parallel once every unit is linked.
package binder

import (
	"errors"
	"path/filepath"

	"pascope/internal/diag"
	"pascope/internal/project"
	"pascope/internal/source"
	"pascope/internal/symbols"
)

// ErrBuildAborted is returned when a structural error stops a unit's build.
var ErrBuildAborted = errors.New("unit build aborted")

// Options configure a Binder.
type Options struct {
	// ImplicitUnits are used by every unit ahead of its own uses clause.
	ImplicitUnits []string
	// ReportUnresolved emits an info diagnostic for every occurrence left
	// unbound. Unresolved names are never errors.
	ReportUnresolved bool
}

// Binder owns the shared table and registry of one analysis.
type Binder struct {
	table    *symbols.Table
	registry *symbols.Registry
	opts     Options
}

// New creates a binder over table and registry.
func New(table *symbols.Table, registry *symbols.Registry, opts Options) *Binder {
	return &Binder{table: table, registry: registry, opts: opts}
}

// Table returns the symbol table being filled.
func (b *Binder) Table() *symbols.Table { return b.table }

// Unit is the binder's state for one compilation unit.
type Unit struct {
	Model    *project.UnitModel
	File     source.FileID
	Decl     symbols.DeclID
	Scope    symbols.ScopeID
	Reporter diag.Reporter
	// Aborted is set when Build stopped on a structural error.
	Aborted bool
	// Occurrences lists the unit's occurrences in model order.
	Occurrences []symbols.OccID

	scopes    map[string]symbols.ScopeID
	decls     map[string]symbols.DeclID
	occs      map[string]symbols.OccID
	labels    map[symbols.DeclID]string
	occLabels []string
	withs     []withLink
}

type withLink struct {
	scope  symbols.ScopeID
	target string
}

func newUnit(model *project.UnitModel, file source.FileID, reporter diag.Reporter) *Unit {
	return &Unit{
		Model:    model,
		File:     file,
		Reporter: reporter,
		scopes:   make(map[string]symbols.ScopeID, len(model.Scopes)),
		decls:    make(map[string]symbols.DeclID, len(model.Decls)),
		occs:     make(map[string]symbols.OccID, len(model.Occurrences)),
		labels:   make(map[symbols.DeclID]string, len(model.Decls)+len(model.Uses)+1),
	}
}

// Name is the unit name from the model header.
func (u *Unit) Name() string { return u.Model.Unit.Name }

// Path is the model file path.
func (u *Unit) Path() string { return u.Model.Path }

// relPath joins a slash-separated path onto the directory of the model.
func (u *Unit) relPath(p string) string {
	return filepath.Join(filepath.Dir(u.Model.Path), filepath.FromSlash(p))
}

// ScopeByLabel maps a model scope label to its table scope.
func (u *Unit) ScopeByLabel(label string) (symbols.ScopeID, bool) {
	id, ok := u.scopes[label]
	return id, ok
}

// DeclByLabel maps a model declaration label to its table declaration.
// Declarations the binder synthesises use "$unit", "$uses:<name>" and
// "$tp:<owner>:<name>".
func (u *Unit) DeclByLabel(label string) (symbols.DeclID, bool) {
	if label == unitLabel {
		return u.Decl, u.Decl.IsValid()
	}
	if id, ok := u.decls[label]; ok && id.IsValid() {
		return id, true
	}
	for id, l := range u.labels {
		if l == label {
			return id, true
		}
	}
	return symbols.NoDeclID, false
}

// DeclLabel is the model label of a declaration owned by this unit.
func (u *Unit) DeclLabel(id symbols.DeclID) (string, bool) {
	l, ok := u.labels[id]
	return l, ok
}

// OccByLabel maps a model occurrence label to its table occurrence.
func (u *Unit) OccByLabel(label string) (symbols.OccID, bool) {
	id, ok := u.occs[label]
	return id, ok
}

// OccLabel is the model label of the i-th occurrence.
func (u *Unit) OccLabel(i int) string {
	if i < 0 || i >= len(u.occLabels) {
		return ""
	}
	return u.occLabels[i]
}

const unitLabel = "$unit"
