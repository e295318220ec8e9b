package binder

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"pascope/internal/diag"
	"pascope/internal/project"
	"pascope/internal/source"
	"pascope/internal/symbols"
)

type harness struct {
	t      *testing.T
	table  *symbols.Table
	binder *Binder
	units  map[string]*Unit
	bags   map[string]*diag.Bag
	order  []*Unit
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	table := symbols.NewTable(symbols.Hints{})
	return &harness{
		t:      t,
		table:  table,
		binder: New(table, symbols.NewRegistry(), opts),
		units:  make(map[string]*Unit),
		bags:   make(map[string]*diag.Bag),
	}
}

// build decodes and builds one model; the returned error is Build's.
func (h *harness) build(src string) (*Unit, error) {
	h.t.Helper()
	name := fmt.Sprintf("unit%d.unit.toml", len(h.order)+1)
	model, err := project.DecodeUnitModel(name, []byte(src))
	require.NoError(h.t, err)
	require.NoError(h.t, model.Check())
	bag := diag.NewBag(100)
	file := source.FileID(len(h.order) + 1)
	u, err := h.binder.Build(model, file, diag.BagReporter{Bag: bag})
	h.units[model.Unit.Name] = u
	h.bags[model.Unit.Name] = bag
	h.order = append(h.order, u)
	return u, err
}

// bindUnits builds every model in order, links and binds them and checks
// the table invariants.
func bindUnits(t *testing.T, opts Options, sources ...string) *harness {
	t.Helper()
	h := newHarness(t, opts)
	for _, src := range sources {
		u, err := h.build(src)
		require.NoError(t, err, "build %s: %v", u.Name(), h.bags[u.Name()].Items())
	}
	require.NoError(t, h.binder.Run(h.order))
	require.NoError(t, h.binder.Validate())
	return h
}

func (h *harness) unit(name string) *Unit {
	h.t.Helper()
	u, ok := h.units[name]
	require.True(h.t, ok, "unit %s not built", name)
	return u
}

func (h *harness) occ(unit, label string) *symbols.Occurrence {
	h.t.Helper()
	id, ok := h.unit(unit).OccByLabel(label)
	require.True(h.t, ok, "occurrence %s:%s", unit, label)
	return h.table.Occurrence(id)
}

func (h *harness) decl(unit, label string) symbols.DeclID {
	h.t.Helper()
	id, ok := h.unit(unit).DeclByLabel(label)
	require.True(h.t, ok, "declaration %s:%s", unit, label)
	return id
}

// boundTo renders the binding of an occurrence as "Unit:label", or "" when
// it is unbound.
func (h *harness) boundTo(unit, label string) string {
	h.t.Helper()
	occ := h.occ(unit, label)
	if !occ.Decl.IsValid() {
		return ""
	}
	for _, u := range h.order {
		if l, ok := u.DeclLabel(occ.Decl); ok {
			return u.Name() + ":" + l
		}
	}
	return fmt.Sprintf("#%d", occ.Decl)
}

func (h *harness) resolution(unit, label string) Resolution {
	h.t.Helper()
	u := h.unit(unit)
	id, ok := u.OccByLabel(label)
	require.True(h.t, ok)
	for _, r := range h.binder.Resolve(u, nil) {
		if r.Occ == id {
			return r
		}
	}
	h.t.Fatalf("no resolution for %s:%s", unit, label)
	return Resolution{}
}

const systemUnit = `
[unit]
name = "System"

[[scope]]
id = "file"
kind = "file"

[[scope]]
id = "object"
kind = "type"
parent = "file"
type = "TObject"

[[decl]]
id = "TObject"
kind = "type"
name = "TObject"
scope = "file"
type_kind = "class"
token = 1

[[decl]]
id = "Free"
kind = "routine"
name = "Free"
scope = "object"
token = 2

[[decl]]
id = "Integer"
kind = "type"
name = "Integer"
scope = "file"
token = 3

[[decl]]
id = "string"
kind = "type"
name = "string"
scope = "file"
token = 4
`

const shapesUnit = `
[unit]
name = "Shapes"

[[scope]]
id = "file"
kind = "file"

[[scope]]
id = "shape"
kind = "type"
parent = "file"
type = "TShape"

[[scope]]
id = "circle"
kind = "type"
parent = "file"
type = "TCircle"

[[scope]]
id = "area_body"
kind = "routine"
parent = "file"
routine = "AreaImpl"

[[decl]]
id = "TShape"
kind = "type"
name = "TShape"
scope = "file"
type_kind = "class"
token = 10

[[decl]]
id = "FArea"
kind = "variable"
name = "FArea"
scope = "shape"
role = "field"
type = "Integer"
visibility = "private"
token = 11

[[decl]]
id = "Area"
kind = "routine"
name = "Area"
scope = "shape"
routine_kind = "function"
result = "Integer"
visibility = "public"
token = 12

[[decl]]
id = "TCircle"
kind = "type"
name = "TCircle"
scope = "file"
type_kind = "class"
super = "TShape"
token = 20

[[decl]]
id = "Radius"
kind = "variable"
name = "Radius"
scope = "circle"
role = "field"
type = "Integer"
token = 21

[[decl]]
id = "AreaImpl"
kind = "routine"
name = "Area"
scope = "file"
implementation = true
completes = "Area"
routine_kind = "function"
result = "Integer"
token = 100

[[occurrence]]
id = "body_farea"
name = "FArea"
scope = "area_body"
token = 101

[[occurrence]]
id = "body_free"
name = "Free"
scope = "area_body"
token = 102

[[occurrence]]
id = "body_radius"
name = "Radius"
scope = "area_body"
token = 103
`

const appUnit = `
[unit]
name = "App"
kind = "program"

[[uses]]
name = "Shapes"
token = 1

[[scope]]
id = "file"
kind = "file"

[[scope]]
id = "main"
kind = "local"
parent = "file"

[[scope]]
id = "with_c"
kind = "with"
parent = "main"
target = "with_subject"

[[decl]]
id = "C"
kind = "variable"
name = "C"
scope = "file"
role = "global"
type = "TCircle"
token = 5

[[occurrence]]
id = "c"
name = "c"
scope = "main"
token = 50

[[occurrence]]
id = "c_area"
name = "AREA"
scope = "main"
qualifier = "c"
invocation = true
arity = 0
token = 51

[[occurrence]]
id = "circle"
name = "TCircle"
scope = "main"
token = 52

[[occurrence]]
id = "unit_q"
name = "Shapes"
scope = "main"
token = 53

[[occurrence]]
id = "unit_shape"
name = "TShape"
scope = "main"
qualifier = "unit_q"
token = 54

[[occurrence]]
id = "with_subject"
name = "C"
scope = "main"
token = 60

[[occurrence]]
id = "with_radius"
name = "Radius"
scope = "with_c"
token = 61

[[occurrence]]
id = "with_free"
name = "Free"
scope = "with_c"
token = 62

[[occurrence]]
id = "nope"
name = "Nope"
scope = "main"
token = 70

[[occurrence]]
id = "c_nope"
name = "Nope"
scope = "main"
qualifier = "c_for_nope"
token = 72

[[occurrence]]
id = "c_for_nope"
name = "C"
scope = "main"
token = 71
`
