package symbols

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pascope/internal/source"
)

type fixture struct {
	t     *testing.T
	table *Table
	file  ScopeID
	unit  DeclID
	token uint32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	table := NewTable(Hints{})
	f := &fixture{t: t, table: table}
	f.file, f.unit = f.addUnit(table, 1, "Shapes")
	return f
}

func (f *fixture) addUnit(table *Table, file source.FileID, name string) (ScopeID, DeclID) {
	f.t.Helper()
	scope := table.NewFileScope(source.Span{File: file, End: 10_000})
	unit := NewDecl(DeclUnit, name, Location{Scope: scope}, &UnitData{
		Path:          name + ".pas",
		QualifiedName: MustQualifiedName(name),
	})
	id, err := table.AddDeclaration(scope, unit)
	require.NoError(f.t, err)
	return scope, id
}

// next hands out increasing token positions so declarations are ordered.
func (f *fixture) next() Location {
	f.token += 10
	return Location{Span: source.Span{File: 1, Start: f.token, End: f.token + 1}, Token: f.token}
}

func (f *fixture) typeDecl(name string, kind TypeKind, params ...string) *Decl {
	return NewDecl(DeclType, name, f.next(), &TypeData{TypeKind: kind, TypeParams: params})
}

func (f *fixture) varDecl(name, typ string) *Decl {
	data := &VariableData{Role: VarField}
	if typ != "" {
		data.Type = MustTypeRef(typ)
	}
	return NewDecl(DeclVariable, name, f.next(), data)
}

func (f *fixture) routineDecl(name string, params ...string) *Decl {
	data := &RoutineData{RoutineKind: RoutineProcedure}
	for i, p := range params {
		data.Params = append(data.Params, Param{Name: string(rune('A' + i)), Type: MustTypeRef(p)})
	}
	return NewDecl(DeclRoutine, name, f.next(), data)
}

// addType registers a structured type in scope and gives it a member scope.
func (f *fixture) addType(scope ScopeID, name string, kind TypeKind, params ...string) (DeclID, ScopeID) {
	f.t.Helper()
	d := f.typeDecl(name, kind, params...)
	id, err := f.table.AddDeclaration(scope, d)
	require.NoError(f.t, err)
	members := f.table.NewScope(ScopeType, scope, source.Span{File: 1})
	f.table.Scope(members).TypeDecl = id
	f.table.Decl(id).Type().Members = members
	return id, members
}

func (f *fixture) add(scope ScopeID, d *Decl) DeclID {
	f.t.Helper()
	id, err := f.table.AddDeclaration(scope, d)
	require.NoError(f.t, err)
	return id
}

// occ creates an occurrence placed after everything declared so far.
func (f *fixture) occ(name string, scope ScopeID) *Occurrence {
	loc := f.next()
	loc.Scope = scope
	return NewOccurrence(name, loc)
}
