package symbols

import (
	"fmt"
	"strings"
)

// SubstitutionContext maps generic parameters to concrete type arguments
// for one instantiation, e.g. T -> Integer for TList<Integer>.
type SubstitutionContext struct {
	Params []Key
	Args   []TypeRef
	index  map[Key]TypeRef
}

// NewSubstitutionContext pairs params with args positionally.
func NewSubstitutionContext(params []string, args []TypeRef) (SubstitutionContext, error) {
	if len(params) != len(args) {
		return SubstitutionContext{}, fmt.Errorf("substitution: %d type parameters, %d arguments", len(params), len(args))
	}
	ctx := SubstitutionContext{
		Params: make([]Key, len(params)),
		Args:   make([]TypeRef, len(args)),
		index:  make(map[Key]TypeRef, len(params)),
	}
	for i, p := range params {
		key := FoldName(p)
		if _, dup := ctx.index[key]; dup {
			return SubstitutionContext{}, fmt.Errorf("substitution: type parameter %q repeated", p)
		}
		ctx.Params[i] = key
		ctx.Args[i] = args[i].clone()
		ctx.index[key] = ctx.Args[i]
	}
	return ctx, nil
}

// Empty reports whether the context substitutes nothing.
func (c SubstitutionContext) Empty() bool { return len(c.Params) == 0 }

// String renders the context as "T=Integer, U=string", used as a cache key.
func (c SubstitutionContext) String() string {
	var sb strings.Builder
	for i, p := range c.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
		sb.WriteByte('=')
		sb.WriteString(string(c.Args[i].Key()))
	}
	return sb.String()
}

// Applies reports whether specializing d under c changes anything. A
// generic declaration needs exactly the context's parameter list; any
// other declaration applies when one of its type references names a
// substituted parameter.
func (c SubstitutionContext) Applies(d *Decl) bool {
	if d == nil || c.Empty() {
		return false
	}
	if own := genericParams(d); len(own) > 0 {
		if len(own) != len(c.Params) {
			return false
		}
		for i, p := range own {
			if FoldName(p) != c.Params[i] {
				return false
			}
		}
		return true
	}
	for _, ref := range typeRefsOf(d) {
		if ref.Mentions(c.index) {
			return true
		}
	}
	return false
}

func genericParams(d *Decl) []string {
	switch d.Kind {
	case DeclType:
		if t := d.Type(); t != nil {
			return t.TypeParams
		}
	case DeclRoutine:
		if r := d.Routine(); r != nil {
			return r.TypeParams
		}
	}
	return nil
}

func typeRefsOf(d *Decl) []TypeRef {
	switch d.Kind {
	case DeclType:
		t := d.Type()
		if t == nil {
			return nil
		}
		refs := []TypeRef{t.Super, t.HelperFor, t.AliasOf}
		return append(refs, t.Interfaces...)
	case DeclRoutine:
		r := d.Routine()
		if r == nil {
			return nil
		}
		refs := []TypeRef{r.Result}
		for _, p := range r.Params {
			refs = append(refs, p.Type)
		}
		return refs
	case DeclVariable:
		if v := d.Variable(); v != nil {
			return []TypeRef{v.Type}
		}
	case DeclTypeParam:
		if p := d.TypeParam(); p != nil {
			return p.Constraints
		}
	}
	return nil
}

// Specialization is the outcome of Specialize. Decl is the base
// declaration itself when nothing applied.
type Specialization struct {
	Base DeclID
	Decl Decl
}

// Specialized reports whether Decl is a substituted copy.
func (s Specialization) Specialized() bool { return s.Decl.SpecializedFrom.IsValid() }

// Specialize derives the view of a declaration under ctx. The base
// declaration is never modified and the copy is never registered in any
// scope.
func (t *Table) Specialize(id DeclID, ctx SubstitutionContext) Specialization {
	d := t.Decls.Get(id)
	if d == nil {
		return Specialization{Base: id}
	}
	if !ctx.Applies(d) {
		return Specialization{Base: id, Decl: *d}
	}
	cp := d.clone()
	cp.SpecializedFrom = id
	sub := func(r TypeRef) TypeRef {
		out, _ := r.Substitute(ctx.index)
		return out
	}
	switch cp.Kind {
	case DeclType:
		td := cp.Type()
		if len(td.TypeParams) > 0 {
			td.TypeParams = nil
			td.TypeArgs = cloneRefs(ctx.Args)
		}
		td.Super = sub(td.Super)
		td.HelperFor = sub(td.HelperFor)
		td.AliasOf = sub(td.AliasOf)
		for i := range td.Interfaces {
			td.Interfaces[i] = sub(td.Interfaces[i])
		}
	case DeclRoutine:
		rd := cp.Routine()
		if len(rd.TypeParams) > 0 {
			rd.TypeParams = nil
			rd.TypeArgs = cloneRefs(ctx.Args)
		}
		rd.Result = sub(rd.Result)
		for i := range rd.Params {
			rd.Params[i].Type = sub(rd.Params[i].Type)
		}
	case DeclVariable:
		vd := cp.Variable()
		vd.Type = sub(vd.Type)
	case DeclTypeParam:
		pd := cp.TypeParam()
		for i := range pd.Constraints {
			pd.Constraints[i] = sub(pd.Constraints[i])
		}
	}
	return Specialization{Base: id, Decl: cp}
}

// SpecializationCache memoises Specialize for one caller. It is not safe
// for concurrent use; each resolving goroutine keeps its own.
type SpecializationCache struct {
	table   *Table
	entries map[specKey]Specialization
	hits    int
}

type specKey struct {
	decl DeclID
	ctx  string
}

// NewSpecializationCache creates an empty cache over t.
func NewSpecializationCache(t *Table) *SpecializationCache {
	return &SpecializationCache{table: t, entries: make(map[specKey]Specialization)}
}

// Get returns the specialization of id under ctx, computing it once.
func (c *SpecializationCache) Get(id DeclID, ctx SubstitutionContext) Specialization {
	key := specKey{decl: id, ctx: ctx.String()}
	if s, ok := c.entries[key]; ok {
		c.hits++
		return s
	}
	s := c.table.Specialize(id, ctx)
	c.entries[key] = s
	return s
}

// Len is the number of cached entries.
func (c *SpecializationCache) Len() int { return len(c.entries) }

// Hits is the number of lookups served from the cache.
func (c *SpecializationCache) Hits() int { return c.hits }
