package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecializeGenericType(t *testing.T) {
	f := newFixture(t)
	d := f.typeDecl("TList", TypeClass, "T")
	d.Type().Super = MustTypeRef("TEnumerable<T>")
	listID := f.add(f.file, d)

	ctx, err := NewSubstitutionContext([]string{"t"}, []TypeRef{MustTypeRef("Integer")})
	require.NoError(t, err)
	require.True(t, ctx.Applies(f.table.Decl(listID)))

	spec := f.table.Specialize(listID, ctx)
	require.True(t, spec.Specialized())
	assert.Equal(t, listID, spec.Decl.SpecializedFrom)
	assert.Equal(t, "TEnumerable<Integer>", spec.Decl.Type().Super.String())
	assert.Empty(t, spec.Decl.Type().TypeParams)
	assert.Equal(t, "TList<Integer>", spec.Decl.DisplayName())

	// the generic original is untouched
	orig := f.table.Decl(listID)
	assert.Equal(t, "TEnumerable<T>", orig.Type().Super.String())
	assert.Equal(t, []string{"T"}, orig.Type().TypeParams)
	assert.False(t, orig.IsSpecialized())
}

func TestSpecializeSkipsMismatchedContext(t *testing.T) {
	f := newFixture(t)
	pairID := f.add(f.file, f.typeDecl("TPair", TypeRecord, "K", "V"))

	ctx, err := NewSubstitutionContext([]string{"T"}, []TypeRef{MustTypeRef("string")})
	require.NoError(t, err)

	spec := f.table.Specialize(pairID, ctx)
	assert.False(t, spec.Specialized())
	assert.Equal(t, pairID, spec.Base)
	assert.Equal(t, "TPair", spec.Decl.Name)
}

func TestSpecializeMemberMentioningParameter(t *testing.T) {
	f := newFixture(t)
	_, members := f.addType(f.file, "TBox", TypeRecord, "T")
	value := f.add(members, f.varDecl("Value", "TArray<T>"))
	count := f.add(members, f.varDecl("Count", "Integer"))

	ctx, err := NewSubstitutionContext([]string{"T"}, []TypeRef{MustTypeRef("TPoint")})
	require.NoError(t, err)

	spec := f.table.Specialize(value, ctx)
	require.True(t, spec.Specialized())
	assert.Equal(t, "TArray<TPoint>", spec.Decl.Variable().Type.String())
	assert.Equal(t, "TArray<T>", f.table.Decl(value).Variable().Type.String())

	assert.False(t, f.table.Specialize(count, ctx).Specialized())
}

func TestSpecializeGenericRoutine(t *testing.T) {
	f := newFixture(t)
	d := f.routineDecl("Max", "T", "T")
	d.Routine().TypeParams = []string{"T"}
	d.Routine().RoutineKind = RoutineFunction
	d.Routine().Result = MustTypeRef("T")
	id := f.add(f.file, d)

	ctx, err := NewSubstitutionContext([]string{"T"}, []TypeRef{MustTypeRef("Double")})
	require.NoError(t, err)
	spec := f.table.Specialize(id, ctx)
	require.True(t, spec.Specialized())
	rd := spec.Decl.Routine()
	assert.Equal(t, "Double", rd.Result.String())
	assert.Equal(t, "Double", rd.Params[1].Type.String())
	assert.Equal(t, "T", f.table.Decl(id).Routine().Params[1].Type.String())
}

func TestSubstitutionContextRejectsMismatch(t *testing.T) {
	_, err := NewSubstitutionContext([]string{"T", "U"}, []TypeRef{MustTypeRef("Integer")})
	require.Error(t, err)
	_, err = NewSubstitutionContext([]string{"T", "t"}, []TypeRef{MustTypeRef("A"), MustTypeRef("B")})
	require.Error(t, err)
}

func TestSpecializationCacheReusesEntries(t *testing.T) {
	f := newFixture(t)
	listID := f.add(f.file, f.typeDecl("TList", TypeClass, "T"))
	ints, err := NewSubstitutionContext([]string{"T"}, []TypeRef{MustTypeRef("Integer")})
	require.NoError(t, err)
	strs, err := NewSubstitutionContext([]string{"T"}, []TypeRef{MustTypeRef("string")})
	require.NoError(t, err)

	cache := NewSpecializationCache(f.table)
	a := cache.Get(listID, ints)
	b := cache.Get(listID, ints)
	c := cache.Get(listID, strs)

	assert.Equal(t, a.Decl.DisplayName(), b.Decl.DisplayName())
	assert.Equal(t, "TList<string>", c.Decl.DisplayName())
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, 1, cache.Hits())
}

func TestSpecializeKeepsForwardIdentity(t *testing.T) {
	f := newFixture(t)
	d := f.typeDecl("TNode", TypeClass, "T")
	d.Flags |= DeclForward
	id := f.add(f.file, d)

	ctx, err := NewSubstitutionContext([]string{"T"}, []TypeRef{MustTypeRef("string")})
	require.NoError(t, err)
	spec := f.table.Specialize(id, ctx)
	require.True(t, spec.Specialized())
	assert.True(t, spec.Decl.IsForward())
	assert.Equal(t, id, spec.Decl.SpecializedFrom)
}
