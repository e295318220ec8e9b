package symbols

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pascope/internal/source"
)

func TestDistinctVariablesCoexist(t *testing.T) {
	f := newFixture(t)
	before := len(f.table.Declarations(f.file))

	_, err := f.table.AddDeclaration(f.file, f.varDecl("Foo", "Integer"))
	require.NoError(t, err)
	_, err = f.table.AddDeclaration(f.file, f.varDecl("Bar", "Integer"))
	require.NoError(t, err)

	assert.Len(t, f.table.Declarations(f.file), before+2)
}

func TestTypeAndVariableWithSameNameCollide(t *testing.T) {
	f := newFixture(t)
	classID := f.add(f.file, f.typeDecl("Foo", TypeClass))

	_, err := f.table.AddDeclaration(f.file, f.varDecl("foo", "Integer"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDuplicateDeclaration))

	var dup *DuplicateDeclarationError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, classID, dup.Existing)
	assert.Equal(t, DeclVariable, dup.Rejected.Kind)
	assert.Contains(t, err.Error(), "Foo")
}

func TestRepeatedForwardClassIsAccepted(t *testing.T) {
	f := newFixture(t)
	first := f.typeDecl("Baz", TypeClass)
	first.Flags |= DeclForward
	second := f.typeDecl("Baz", TypeClass)
	second.Flags |= DeclForward

	_, err := f.table.AddDeclaration(f.file, first)
	require.NoError(t, err)
	_, err = f.table.AddDeclaration(f.file, second)
	require.NoError(t, err)
}

func TestGenericArityKeepsTypesApart(t *testing.T) {
	f := newFixture(t)
	_, err := f.table.AddDeclaration(f.file, f.typeDecl("Foo", TypeClass, "T"))
	require.NoError(t, err)
	_, err = f.table.AddDeclaration(f.file, f.typeDecl("Foo", TypeClass, "T", "U"))
	require.NoError(t, err)
	_, err = f.table.AddDeclaration(f.file, f.typeDecl("Foo", TypeClass))
	require.NoError(t, err)

	_, err = f.table.AddDeclaration(f.file, f.typeDecl("Foo", TypeClass, "X"))
	require.ErrorIs(t, err, ErrDuplicateDeclaration)
}

func TestLocalScopeAcceptsOnlyVariables(t *testing.T) {
	f := newFixture(t)
	local := f.table.NewScope(ScopeLocal, f.file, source.Span{File: 1})

	_, err := f.table.AddDeclaration(local, f.varDecl("X", "Integer"))
	require.NoError(t, err)

	_, err = f.table.AddDeclaration(local, f.typeDecl("Y", TypeRecord))
	require.ErrorIs(t, err, ErrInvalidDeclarationKind)
	var kindErr *InvalidDeclarationKindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, ScopeLocal, kindErr.ScopeKind)
	assert.Len(t, f.table.Declarations(local), 1)
}

func TestRoutineOverloadsBySignature(t *testing.T) {
	f := newFixture(t)
	f.add(f.file, f.routineDecl("Log", "string"))
	f.add(f.file, f.routineDecl("Log", "Integer"))
	f.add(f.file, f.routineDecl("Log", "string", "Integer"))

	_, err := f.table.AddDeclaration(f.file, f.routineDecl("log", "STRING"))
	require.ErrorIs(t, err, ErrDuplicateDeclaration)
}

func TestImplementationFlagSeparatesDeclarations(t *testing.T) {
	f := newFixture(t)
	iface := f.add(f.file, f.routineDecl("Draw"))

	impl := f.routineDecl("Draw")
	impl.Flags |= DeclImplementation
	id, err := f.table.CompleteForward(f.file, iface, impl)
	require.NoError(t, err)
	assert.Equal(t, iface, f.table.Decl(id).ForwardOf)

	got, ok := f.table.CompletionOf(iface)
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestCompleteForwardChecksKindAndFlag(t *testing.T) {
	f := newFixture(t)
	fwd := f.typeDecl("TNode", TypeClass)
	fwd.Flags |= DeclForward
	fwdID := f.add(f.file, fwd)

	full, err := f.table.CompleteForward(f.file, fwdID, f.typeDecl("TNode", TypeClass))
	require.NoError(t, err)
	assert.False(t, f.table.Decl(full).IsForward())

	plain := f.add(f.file, f.typeDecl("TLeaf", TypeClass))
	_, err = f.table.CompleteForward(f.file, plain, f.typeDecl("TLeaf", TypeClass))
	require.ErrorIs(t, err, ErrBadForward)

	_, err = f.table.CompleteForward(f.file, fwdID, f.varDecl("TNode", ""))
	require.ErrorIs(t, err, ErrBadForward)
}

func TestUnknownScopeIgnoresDeclarations(t *testing.T) {
	f := newFixture(t)
	id, err := f.table.AddDeclaration(UnknownScopeID, f.varDecl("Ghost", "Integer"))
	require.NoError(t, err)
	assert.False(t, id.IsValid())
	assert.Empty(t, f.table.Declarations(UnknownScopeID))
	assert.Empty(t, f.table.FindLocal(UnknownScopeID, f.occ("Ghost", UnknownScopeID)))

	_, ok := f.table.Parent(UnknownScopeID)
	assert.False(t, ok)
	require.NoError(t, f.table.SetParent(UnknownScopeID, f.file))
	_, ok = f.table.Parent(UnknownScopeID)
	assert.False(t, ok)
}

func TestUnitDependenciesAreDeduplicated(t *testing.T) {
	f := newFixture(t)
	u := f.table.Decl(f.unit).Unit()
	u.AddInterfaceDependency("sysutils.pas")
	u.AddInterfaceDependency("classes.pas")
	u.AddInterfaceDependency("sysutils.pas")
	u.AddImplementationDependency("math.pas")

	assert.Equal(t, []string{"sysutils.pas", "classes.pas"}, u.InterfaceDependencies())
	assert.Equal(t, []string{"math.pas"}, u.ImplementationDependencies())
}

func TestQualifiedNameOfMember(t *testing.T) {
	f := newFixture(t)
	_, members := f.addType(f.file, "TCircle", TypeClass)
	radius := f.add(members, f.varDecl("Radius", "Double"))

	assert.Equal(t, "Shapes.TCircle.Radius", f.table.QualifiedNameOf(radius).FullyQualified())
}
