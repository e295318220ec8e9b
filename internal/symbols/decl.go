package symbols

import (
	"strconv"
	"strings"
)

// DeclKind is the closed set of declaration variants.
type DeclKind uint8

const (
	DeclInvalid DeclKind = iota
	DeclUnit
	DeclType
	DeclRoutine
	DeclVariable
	DeclTypeParam
	DeclEnumElement
	DeclUnitImport
)

func (k DeclKind) String() string {
	switch k {
	case DeclUnit:
		return "unit"
	case DeclType:
		return "type"
	case DeclRoutine:
		return "routine"
	case DeclVariable:
		return "variable"
	case DeclTypeParam:
		return "type parameter"
	case DeclEnumElement:
		return "enum element"
	case DeclUnitImport:
		return "unit import"
	default:
		return "invalid"
	}
}

// ParseDeclKind maps the textual kind used in unit models.
func ParseDeclKind(s string) (DeclKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unit":
		return DeclUnit, true
	case "type":
		return DeclType, true
	case "routine":
		return DeclRoutine, true
	case "variable", "var":
		return DeclVariable, true
	case "type_param", "typeparam":
		return DeclTypeParam, true
	case "enum_element", "enum":
		return DeclEnumElement, true
	case "import", "unit_import":
		return DeclUnitImport, true
	}
	return DeclInvalid, false
}

// KindMask filters lookups by declaration kind.
type KindMask uint16

const (
	KindMaskAny KindMask = 0xFFFF
	// KindMaskTypes accepts everything a type reference may resolve
	// through: types, type parameters, and units or imports used as qualifiers.
	KindMaskTypes KindMask = 1<<KindMask(DeclType) | 1<<KindMask(DeclTypeParam) |
		1<<KindMask(DeclUnit) | 1<<KindMask(DeclUnitImport)
)

// Mask returns the single-kind mask for k.
func (k DeclKind) Mask() KindMask { return 1 << KindMask(k) }

// Has reports whether kind passes the mask.
func (m KindMask) Has(kind DeclKind) bool { return m&kind.Mask() != 0 }

// Visibility is the member visibility written in a class section.
type Visibility uint8

const (
	VisDefault Visibility = iota
	VisStrictPrivate
	VisPrivate
	VisStrictProtected
	VisProtected
	VisPublic
	VisPublished
)

func (v Visibility) String() string {
	switch v {
	case VisStrictPrivate:
		return "strict private"
	case VisPrivate:
		return "private"
	case VisStrictProtected:
		return "strict protected"
	case VisProtected:
		return "protected"
	case VisPublic:
		return "public"
	case VisPublished:
		return "published"
	default:
		return ""
	}
}

// ParseVisibility maps the textual visibility used in unit models.
func ParseVisibility(s string) (Visibility, bool) {
	switch strings.Join(strings.Fields(strings.ToLower(s)), " ") {
	case "":
		return VisDefault, true
	case "strict private":
		return VisStrictPrivate, true
	case "private":
		return VisPrivate, true
	case "strict protected":
		return VisStrictProtected, true
	case "protected":
		return VisProtected, true
	case "public":
		return VisPublic, true
	case "published":
		return VisPublished, true
	}
	return VisDefault, false
}

// DeclFlags carries boolean properties of a declaration.
type DeclFlags uint8

const (
	// DeclForward marks a forward declaration (`TFoo = class;`, `forward;`).
	DeclForward DeclFlags = 1 << iota
	// DeclImplementation marks a declaration in an implementation section.
	DeclImplementation
	// DeclClassMember marks class (static) members.
	DeclClassMember
	// DeclImplicit marks declarations synthesised by the binder.
	DeclImplicit
)

// Decl is one declared name. Kind-specific details live in Data, whose
// dynamic type always matches Kind.
type Decl struct {
	Name       string
	Key        Key
	Kind       DeclKind
	Loc        Location
	Scope      ScopeID // residence, set on registration
	Visibility Visibility
	Flags      DeclFlags
	// ForwardOf points at the forward declaration this one completes.
	ForwardOf DeclID
	// SpecializedFrom is set only on specialized copies.
	SpecializedFrom DeclID
	Data            DeclData
}

// NewDecl builds a declaration with its key folded from name.
func NewDecl(kind DeclKind, name string, loc Location, data DeclData) *Decl {
	return &Decl{
		Name: name,
		Key:  FoldName(name),
		Kind: kind,
		Loc:  loc,
		Data: data,
	}
}

func (d *Decl) IsForward() bool        { return d.Flags&DeclForward != 0 }
func (d *Decl) IsImplementation() bool { return d.Flags&DeclImplementation != 0 }
func (d *Decl) IsClassMember() bool    { return d.Flags&DeclClassMember != 0 }
func (d *Decl) IsImplicit() bool       { return d.Flags&DeclImplicit != 0 }
func (d *Decl) IsSpecialized() bool    { return d.SpecializedFrom.IsValid() }

// Unit returns the unit payload or nil.
func (d *Decl) Unit() *UnitData {
	data, _ := d.Data.(*UnitData)
	return data
}

// Type returns the type payload or nil.
func (d *Decl) Type() *TypeData {
	data, _ := d.Data.(*TypeData)
	return data
}

// Routine returns the routine payload or nil.
func (d *Decl) Routine() *RoutineData {
	data, _ := d.Data.(*RoutineData)
	return data
}

// Variable returns the variable payload or nil.
func (d *Decl) Variable() *VariableData {
	data, _ := d.Data.(*VariableData)
	return data
}

// TypeParam returns the type parameter payload or nil.
func (d *Decl) TypeParam() *TypeParamData {
	data, _ := d.Data.(*TypeParamData)
	return data
}

// EnumElement returns the enum element payload or nil.
func (d *Decl) EnumElement() *EnumElementData {
	data, _ := d.Data.(*EnumElementData)
	return data
}

// Import returns the unit import payload or nil.
func (d *Decl) Import() *ImportData {
	data, _ := d.Data.(*ImportData)
	return data
}

// GenericArity is the number of type parameters for types and routines.
func (d *Decl) GenericArity() int {
	switch d.Kind {
	case DeclType:
		if t := d.Type(); t != nil {
			return len(t.TypeParams)
		}
	case DeclRoutine:
		if r := d.Routine(); r != nil {
			return len(r.TypeParams)
		}
	}
	return 0
}

// DisplayName renders the image with its generic parameters, e.g. TList<T>.
func (d *Decl) DisplayName() string {
	var params []string
	switch d.Kind {
	case DeclType:
		if t := d.Type(); t != nil {
			params = t.TypeParams
			if len(t.TypeArgs) > 0 {
				return TypeRef{Name: d.Name, Args: t.TypeArgs}.String()
			}
		}
	case DeclRoutine:
		if r := d.Routine(); r != nil {
			params = r.TypeParams
			if len(r.TypeArgs) > 0 {
				return TypeRef{Name: d.Name, Args: r.TypeArgs}.String()
			}
		}
	}
	if len(params) == 0 {
		return d.Name
	}
	return d.Name + "<" + strings.Join(params, ", ") + ">"
}

// DeclData is the sealed set of per-kind payloads.
type DeclData interface {
	declKind() DeclKind
	clone() DeclData
}

// UnitData describes a compilation unit.
type UnitData struct {
	Path          string
	QualifiedName QualifiedName
	FileScope     ScopeID
	// Program, library and package files share the unit shape.
	Program bool

	interfaceDeps      []string
	implementationDeps []string
}

func (*UnitData) declKind() DeclKind { return DeclUnit }

func (u *UnitData) clone() DeclData {
	cp := *u
	cp.interfaceDeps = append([]string(nil), u.interfaceDeps...)
	cp.implementationDeps = append([]string(nil), u.implementationDeps...)
	return &cp
}

// AddInterfaceDependency records a unit path used from the interface
// section. Repeats are ignored.
func (u *UnitData) AddInterfaceDependency(path string) {
	u.interfaceDeps = appendUnique(u.interfaceDeps, path)
}

// AddImplementationDependency records a unit path used from the
// implementation section. Repeats are ignored.
func (u *UnitData) AddImplementationDependency(path string) {
	u.implementationDeps = appendUnique(u.implementationDeps, path)
}

// InterfaceDependencies returns the interface dependency paths in insertion order.
func (u *UnitData) InterfaceDependencies() []string {
	return append([]string(nil), u.interfaceDeps...)
}

// ImplementationDependencies returns the implementation dependency paths in insertion order.
func (u *UnitData) ImplementationDependencies() []string {
	return append([]string(nil), u.implementationDeps...)
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// TypeKind distinguishes the shapes a type declaration can take.
type TypeKind uint8

const (
	TypeOther TypeKind = iota
	TypeClass
	TypeRecord
	TypeInterface
	TypeClassHelper
	TypeRecordHelper
	TypeEnum
	TypeAlias
	TypeClassRef
	TypePointer
	TypeArray
	TypeSet
	TypeProcedural
	TypeSubrange
)

var typeKindNames = [...]string{
	TypeOther:        "other",
	TypeClass:        "class",
	TypeRecord:       "record",
	TypeInterface:    "interface",
	TypeClassHelper:  "class helper",
	TypeRecordHelper: "record helper",
	TypeEnum:         "enum",
	TypeAlias:        "alias",
	TypeClassRef:     "class of",
	TypePointer:      "pointer",
	TypeArray:        "array",
	TypeSet:          "set",
	TypeProcedural:   "procedural",
	TypeSubrange:     "subrange",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "other"
}

// ParseTypeKind maps the textual type kind used in unit models.
func ParseTypeKind(s string) (TypeKind, bool) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", " ")
	if norm == "" {
		return TypeOther, true
	}
	for k, name := range typeKindNames {
		if name == norm {
			return TypeKind(k), true
		}
	}
	return TypeOther, false
}

// IsHelper reports whether k is a class or record helper.
func (k TypeKind) IsHelper() bool { return k == TypeClassHelper || k == TypeRecordHelper }

// HasMembers reports whether declarations of this kind own a member scope.
func (k TypeKind) HasMembers() bool {
	switch k {
	case TypeClass, TypeRecord, TypeInterface, TypeClassHelper, TypeRecordHelper:
		return true
	}
	return false
}

// TypeData describes a type declaration.
type TypeData struct {
	TypeKind   TypeKind
	TypeParams []string
	// TypeArgs is set on specialized copies in place of TypeParams.
	TypeArgs   []TypeRef
	Super      TypeRef
	Interfaces []TypeRef
	HelperFor  TypeRef
	// AliasOf is the aliased or pointed-to type for alias, pointer, class-of
	// and array declarations.
	AliasOf TypeRef
	// Members is the type scope, NoScopeID for types without members.
	Members       ScopeID
	QualifiedName QualifiedName

	// Filled by linking.
	SuperDecl     DeclID
	HelperForDecl DeclID
	AliasDecl     DeclID
}

func (*TypeData) declKind() DeclKind { return DeclType }

func (t *TypeData) clone() DeclData {
	cp := *t
	cp.TypeParams = append([]string(nil), t.TypeParams...)
	cp.TypeArgs = cloneRefs(t.TypeArgs)
	cp.Super = t.Super.clone()
	cp.Interfaces = cloneRefs(t.Interfaces)
	cp.HelperFor = t.HelperFor.clone()
	cp.AliasOf = t.AliasOf.clone()
	return &cp
}

// RoutineKind distinguishes procedures, functions and the special method kinds.
type RoutineKind uint8

const (
	RoutineProcedure RoutineKind = iota
	RoutineFunction
	RoutineConstructor
	RoutineDestructor
	RoutineOperator
)

var routineKindNames = [...]string{
	RoutineProcedure:   "procedure",
	RoutineFunction:    "function",
	RoutineConstructor: "constructor",
	RoutineDestructor:  "destructor",
	RoutineOperator:    "operator",
}

func (k RoutineKind) String() string {
	if int(k) < len(routineKindNames) {
		return routineKindNames[k]
	}
	return "procedure"
}

// ParseRoutineKind maps the textual routine kind used in unit models.
func ParseRoutineKind(s string) (RoutineKind, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return RoutineProcedure, true
	}
	for k, name := range routineKindNames {
		if name == norm {
			return RoutineKind(k), true
		}
	}
	return RoutineProcedure, false
}

// ParamModifier is the passing mode of a formal parameter.
type ParamModifier uint8

const (
	ParamValue ParamModifier = iota
	ParamVar
	ParamConst
	ParamOut
)

func (m ParamModifier) String() string {
	switch m {
	case ParamVar:
		return "var"
	case ParamConst:
		return "const"
	case ParamOut:
		return "out"
	default:
		return ""
	}
}

// ParseParamModifier maps the textual modifier used in unit models.
func ParseParamModifier(s string) (ParamModifier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ParamValue, true
	case "var":
		return ParamVar, true
	case "const":
		return ParamConst, true
	case "out":
		return ParamOut, true
	}
	return ParamValue, false
}

// Param is one formal parameter of a routine signature.
type Param struct {
	Name       string
	Type       TypeRef
	Modifier   ParamModifier
	HasDefault bool
}

// RoutineData describes a procedure, function or method.
type RoutineData struct {
	RoutineKind RoutineKind
	TypeParams  []string
	TypeArgs    []TypeRef
	Params      []Param
	Result      TypeRef
	// Body is the routine scope holding parameters and locals.
	Body          ScopeID
	QualifiedName QualifiedName

	// Filled by linking.
	ResultDecl DeclID
}

func (*RoutineData) declKind() DeclKind { return DeclRoutine }

func (r *RoutineData) clone() DeclData {
	cp := *r
	cp.TypeParams = append([]string(nil), r.TypeParams...)
	cp.TypeArgs = cloneRefs(r.TypeArgs)
	cp.Params = make([]Param, len(r.Params))
	for i, p := range r.Params {
		p.Type = p.Type.clone()
		cp.Params[i] = p
	}
	cp.Result = r.Result.clone()
	return &cp
}

// SignatureKey identifies an overload: routine kind, generic arity and
// parameter types with their passing modes.
func (r *RoutineData) SignatureKey() string {
	var sb strings.Builder
	sb.WriteString(r.RoutineKind.String())
	sb.WriteByte('/')
	sb.WriteString(strconv.Itoa(len(r.TypeParams)))
	sb.WriteByte('(')
	for i, p := range r.Params {
		if i > 0 {
			sb.WriteByte(';')
		}
		if p.Modifier != ParamValue {
			sb.WriteString(p.Modifier.String())
			sb.WriteByte(' ')
		}
		sb.WriteString(p.Type.Key().String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// AcceptsArity reports whether n explicit arguments fit the parameter list.
func (r *RoutineData) AcceptsArity(n int) bool {
	required := 0
	for _, p := range r.Params {
		if !p.HasDefault {
			required++
		}
	}
	return n >= required && n <= len(r.Params)
}

// VariableRole is what a variable-shaped declaration stands for.
type VariableRole uint8

const (
	VarLocal VariableRole = iota
	VarGlobal
	VarParam
	VarResult
	VarSelf
	VarField
	VarConst
	VarProperty
	VarThreadVar
)

var variableRoleNames = [...]string{
	VarLocal:     "local",
	VarGlobal:    "global",
	VarParam:     "param",
	VarResult:    "result",
	VarSelf:      "self",
	VarField:     "field",
	VarConst:     "const",
	VarProperty:  "property",
	VarThreadVar: "threadvar",
}

func (r VariableRole) String() string {
	if int(r) < len(variableRoleNames) {
		return variableRoleNames[r]
	}
	return "local"
}

// ParseVariableRole maps the textual role used in unit models.
func ParseVariableRole(s string) (VariableRole, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return VarLocal, true
	}
	for k, name := range variableRoleNames {
		if name == norm {
			return VariableRole(k), true
		}
	}
	return VarLocal, false
}

// VariableData describes variables, constants, fields, parameters and properties.
type VariableData struct {
	Role VariableRole
	Type TypeRef

	// Filled by linking.
	TypeDecl DeclID
}

func (*VariableData) declKind() DeclKind { return DeclVariable }

func (v *VariableData) clone() DeclData {
	cp := *v
	cp.Type = v.Type.clone()
	return &cp
}

// TypeParamData describes one generic type parameter.
type TypeParamData struct {
	Index       int
	Constraints []TypeRef
}

func (*TypeParamData) declKind() DeclKind { return DeclTypeParam }

func (p *TypeParamData) clone() DeclData {
	cp := *p
	cp.Constraints = cloneRefs(p.Constraints)
	return &cp
}

// EnumElementData describes one element of an enumerated type.
type EnumElementData struct {
	Enum    DeclID
	Ordinal int
}

func (*EnumElementData) declKind() DeclKind { return DeclEnumElement }

func (e *EnumElementData) clone() DeclData {
	cp := *e
	return &cp
}

// UsesSection tells which section a uses clause belongs to.
type UsesSection uint8

const (
	UsesInterface UsesSection = iota
	UsesImplementation
)

func (s UsesSection) String() string {
	if s == UsesImplementation {
		return "implementation"
	}
	return "interface"
}

// ImportData describes one entry of a uses clause.
type ImportData struct {
	UnitName string
	// InPath is the explicit `in 'file.pas'` path, if any.
	InPath  string
	Section UsesSection

	// Filled by linking.
	Target DeclID
}

func (*ImportData) declKind() DeclKind { return DeclUnitImport }

func (i *ImportData) clone() DeclData {
	cp := *i
	return &cp
}

func cloneRefs(refs []TypeRef) []TypeRef {
	if refs == nil {
		return nil
	}
	out := make([]TypeRef, len(refs))
	for i, r := range refs {
		out[i] = r.clone()
	}
	return out
}

// clone deep-copies d including its payload.
func (d *Decl) clone() Decl {
	cp := *d
	if d.Data != nil {
		cp.Data = d.Data.clone()
	}
	return cp
}
