package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pascope/internal/source"
)

// methodBody creates the routine scope of a method implemented at file
// level for the type owning members.
func (f *fixture) methodBody(name string, members ScopeID) ScopeID {
	f.t.Helper()
	routine := f.add(members, f.routineDecl(name))
	body := f.table.NewScope(ScopeRoutine, f.file, source.Span{File: 1})
	scope := f.table.Scope(body)
	scope.RoutineDecl = routine
	scope.OwnerType = members
	f.table.Decl(routine).Routine().Body = body
	return body
}

func TestHelperMemberShadowsTypeMember(t *testing.T) {
	f := newFixture(t)
	typeID, typeMembers := f.addType(f.file, "T", TypeRecord)
	typeM := f.add(typeMembers, f.routineDecl("M"))

	helperID, helperMembers := f.addType(f.file, "H", TypeRecordHelper)
	helperM := f.add(helperMembers, f.routineDecl("M"))
	require.NoError(t, f.table.RegisterHelper(helperID, typeID))

	// code operating on a T-typed value searches T's member scope
	got := f.table.MemberSearch(typeMembers, f.occ("M", f.file))
	assert.Equal(t, []DeclID{helperM}, got)
	assert.NotContains(t, got, typeM)
}

func TestHelperDeclaredLaterIsNotInEffect(t *testing.T) {
	f := newFixture(t)
	typeID, typeMembers := f.addType(f.file, "T", TypeRecord)
	typeM := f.add(typeMembers, f.routineDecl("M"))
	early := f.occ("M", f.file)

	helperID, helperMembers := f.addType(f.file, "H", TypeRecordHelper)
	f.add(helperMembers, f.routineDecl("M"))
	require.NoError(t, f.table.RegisterHelper(helperID, typeID))

	assert.Equal(t, []DeclID{typeM}, f.table.MemberSearch(typeMembers, early))
}

func TestNearestHelperWins(t *testing.T) {
	f := newFixture(t)
	typeID, typeMembers := f.addType(f.file, "TText", TypeClass)

	first, firstMembers := f.addType(f.file, "TTextHelperA", TypeClassHelper)
	f.add(firstMembers, f.routineDecl("Upper"))
	second, secondMembers := f.addType(f.file, "TTextHelperB", TypeClassHelper)
	secondUpper := f.add(secondMembers, f.routineDecl("Upper"))
	require.NoError(t, f.table.RegisterHelper(first, typeID))
	require.NoError(t, f.table.RegisterHelper(second, typeID))

	occ := f.occ("Upper", f.file)
	assert.Equal(t, []DeclID{second, first}, f.table.HelpersInEffect(typeID, occ.Loc))
	assert.Equal(t, []DeclID{secondUpper}, f.table.MemberSearch(typeMembers, occ))
}

func TestHelperInheritanceAndExtendedType(t *testing.T) {
	f := newFixture(t)
	typeID, typeMembers := f.addType(f.file, "TList", TypeClass)
	count := f.add(typeMembers, f.varDecl("Count", "Integer"))

	base, baseMembers := f.addType(f.file, "TBaseHelper", TypeClassHelper)
	first := f.add(baseMembers, f.routineDecl("First"))
	derived, derivedMembers := f.addType(f.file, "TListHelper", TypeClassHelper)
	f.table.Scope(derivedMembers).Super = baseMembers
	require.NoError(t, f.table.RegisterHelper(base, typeID))
	require.NoError(t, f.table.RegisterHelper(derived, typeID))

	assert.Equal(t, []DeclID{first}, f.table.MemberSearch(typeMembers, f.occ("First", f.file)))

	// inside the helper's own methods the extended type is visible
	body := f.methodBody("Last", derivedMembers)
	assert.Equal(t, []DeclID{count}, f.table.Search(f.occ("Count", body), NoScopeID))
}

func TestMethodBodySeesOwnLocalsFieldsAndAncestors(t *testing.T) {
	f := newFixture(t)
	_, baseMembers := f.addType(f.file, "TShape", TypeClass)
	name := f.add(baseMembers, f.varDecl("Name", "string"))
	circleID, circleMembers := f.addType(f.file, "TCircle", TypeClass)
	f.table.Scope(circleMembers).Super = baseMembers
	radius := f.add(circleMembers, f.varDecl("Radius", "Double"))
	global := f.add(f.file, f.varDecl("Radius2", "Double"))

	body := f.methodBody("Area", circleMembers)
	local := f.add(body, f.varDecl("Radius2", "Double"))

	assert.Equal(t, []DeclID{radius}, f.table.Search(f.occ("radius", body), NoScopeID))
	assert.Equal(t, []DeclID{name}, f.table.Search(f.occ("NAME", body), NoScopeID))
	assert.Equal(t, []DeclID{local}, f.table.Search(f.occ("Radius2", body), NoScopeID))
	assert.Equal(t, []DeclID{global}, f.table.Search(f.occ("Radius2", f.file), NoScopeID))
	assert.Equal(t, []DeclID{circleID}, f.table.Search(f.occ("TCircle", body), NoScopeID))
}

func TestNestedTypeMethodSeesEnclosingType(t *testing.T) {
	f := newFixture(t)
	_, outerMembers := f.addType(f.file, "TOuter", TypeClass)
	limit := f.add(outerMembers, f.varDecl("Limit", "Integer"))
	_, innerMembers := f.addType(outerMembers, "TInner", TypeClass)

	body := f.methodBody("Check", innerMembers)
	assert.Equal(t, []DeclID{limit}, f.table.Search(f.occ("Limit", body), NoScopeID))
}

func TestFirstNonEmptyScopeWins(t *testing.T) {
	f := newFixture(t)
	f.add(f.file, f.varDecl("Value", "Integer"))
	outer := f.table.NewScope(ScopeRoutine, f.file, source.Span{File: 1})
	inner := f.table.NewScope(ScopeLocal, outer, source.Span{File: 1})
	shadow := f.add(outer, f.varDecl("Value", "string"))

	assert.Equal(t, []DeclID{shadow}, f.table.Search(f.occ("Value", inner), NoScopeID))
}

func TestOverloadsReturnedTogether(t *testing.T) {
	f := newFixture(t)
	a := f.add(f.file, f.routineDecl("Log", "string"))
	b := f.add(f.file, f.routineDecl("Log", "Integer"))

	assert.Equal(t, []DeclID{a, b}, f.table.Search(f.occ("Log", f.file), NoScopeID))
}

func TestWithScopeForwardsToTarget(t *testing.T) {
	f := newFixture(t)
	_, members := f.addType(f.file, "TPoint", TypeRecord)
	x := f.add(members, f.varDecl("X", "Integer"))
	f.add(f.file, f.varDecl("X", "Integer"))

	body := f.table.NewScope(ScopeRoutine, f.file, source.Span{File: 1})
	with := f.table.NewScope(ScopeWith, body, source.Span{File: 1})
	f.table.Scope(with).Target = members

	assert.Equal(t, []DeclID{x}, f.table.Search(f.occ("X", with), NoScopeID))
	assert.Equal(t, []DeclID{x}, f.table.FindLocal(with, f.occ("x", with)))
}

func TestUnknownScopeResolvesNothing(t *testing.T) {
	f := newFixture(t)
	f.add(f.file, f.varDecl("Anything", "Integer"))

	assert.Empty(t, f.table.Search(f.occ("Anything", UnknownScopeID), NoScopeID))

	with := f.table.NewScope(ScopeWith, f.file, source.Span{File: 1})
	f.table.Scope(with).Target = UnknownScopeID
	got := f.table.Search(f.occ("Anything", with), NoScopeID)
	assert.NotEmpty(t, got, "an unresolved with target falls through to the enclosing scopes")
}

func TestSearchIsRepeatable(t *testing.T) {
	f := newFixture(t)
	typeID, members := f.addType(f.file, "T", TypeClass)
	f.add(members, f.routineDecl("M"))
	helper, helperMembers := f.addType(f.file, "H", TypeClassHelper)
	f.add(helperMembers, f.routineDecl("M"))
	require.NoError(t, f.table.RegisterHelper(helper, typeID))

	body := f.methodBody("Run", members)
	occ := f.occ("M", body)
	first := f.table.Search(occ, NoScopeID)
	second := f.table.Search(occ, NoScopeID)
	assert.Equal(t, first, second)
	assert.Len(t, first, 1)
}

func TestSearchKindsFiltersEveryStep(t *testing.T) {
	f := newFixture(t)
	typeID := f.add(f.file, f.typeDecl("TValue", TypeRecord))
	body := f.table.NewScope(ScopeRoutine, f.file, source.Span{File: 1})
	f.add(body, f.varDecl("TValue", "Integer"))

	assert.Equal(t, []DeclID{typeID}, f.table.SearchKinds(f.occ("TValue", body), NoScopeID, KindMaskTypes))
}

func TestImportsLastUsesWins(t *testing.T) {
	table := NewTable(Hints{})
	f := &fixture{t: t, table: table}
	aFile, aUnit := f.addUnit(table, 2, "UnitA")
	bFile, bUnit := f.addUnit(table, 3, "UnitB")
	aFoo, err := table.AddDeclaration(aFile, NewDecl(DeclRoutine, "Foo", Location{}, &RoutineData{}))
	require.NoError(t, err)
	bFoo, err := table.AddDeclaration(bFile, NewDecl(DeclRoutine, "Foo", Location{}, &RoutineData{}))
	require.NoError(t, err)
	hidden := NewDecl(DeclVariable, "Secret", Location{}, &VariableData{})
	hidden.Flags |= DeclImplementation
	_, err = table.AddDeclaration(bFile, hidden)
	require.NoError(t, err)

	f.file, f.unit = f.addUnit(table, 1, "Main")
	for _, target := range []DeclID{aUnit, bUnit} {
		name := table.Decl(target).Name
		_, err := table.AddDeclaration(f.file, NewDecl(DeclUnitImport, name, Location{},
			&ImportData{UnitName: name, Target: target}))
		require.NoError(t, err)
	}

	got := table.Search(f.occ("Foo", f.file), NoScopeID)
	assert.Equal(t, []DeclID{bFoo}, got)
	assert.NotContains(t, got, aFoo)
	assert.Empty(t, table.Search(f.occ("Secret", f.file), NoScopeID))

	// a unit name used as qualifier resolves to the uses entry
	qualifier := table.Search(f.occ("UnitA", f.file), NoScopeID)
	require.Len(t, qualifier, 1)
	assert.Equal(t, DeclUnitImport, table.Decl(qualifier[0]).Kind)
	assert.Equal(t, []DeclID{aFoo}, table.MemberSearch(aFile, f.occ("Foo", f.file)))
	assert.Empty(t, table.MemberSearch(bFile, f.occ("Secret", f.file)))
}

func TestEnclosingScopeIsInclusive(t *testing.T) {
	f := newFixture(t)
	_, members := f.addType(f.file, "T", TypeClass)
	local := f.table.NewScope(ScopeLocal, members, source.Span{File: 1})

	got, ok := f.table.EnclosingScope(members, IsKind(ScopeType))
	require.True(t, ok)
	assert.Equal(t, members, got)

	got, ok = f.table.EnclosingScope(local, IsKind(ScopeFile))
	require.True(t, ok)
	assert.Equal(t, f.file, got)
	assert.Equal(t, f.unit, f.table.UnitOf(local))
}
