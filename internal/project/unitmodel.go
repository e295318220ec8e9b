package project

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"pascope/internal/symbols"
)

// UnitModel is the scope-annotated syntax tree of one compilation unit,
// as written by the parser front end into a *.unit.toml file. Entries
// refer to each other by label.
type UnitModel struct {
	Unit        UnitHeader        `toml:"unit"`
	Uses        []UsesEntry       `toml:"uses"`
	Scopes      []ScopeEntry      `toml:"scope"`
	Decls       []DeclEntry       `toml:"decl"`
	Occurrences []OccurrenceEntry `toml:"occurrence"`

	// Path is the model file the unit was decoded from.
	Path string `toml:"-"`
	// Digest hashes the raw model bytes.
	Digest Digest `toml:"-"`
}

type UnitHeader struct {
	Name string `toml:"name"`
	// Source is the Pascal file, relative to the model file.
	Source string   `toml:"source"`
	Kind   string   `toml:"kind"`
	Span   []uint32 `toml:"span"`
}

type UsesEntry struct {
	Name    string   `toml:"name"`
	In      string   `toml:"in"`
	Section string   `toml:"section"`
	Token   uint32   `toml:"token"`
	Span    []uint32 `toml:"span"`
}

type ScopeEntry struct {
	ID     string `toml:"id"`
	Kind   string `toml:"kind"`
	Parent string `toml:"parent"`
	// Type labels the declaration owning a type scope.
	Type string `toml:"type"`
	// Routine labels the declaration owning a routine scope.
	Routine string `toml:"routine"`
	// Target labels the occurrence naming a with statement's subject.
	Target string   `toml:"target"`
	Span   []uint32 `toml:"span"`
}

type ParamEntry struct {
	Name     string `toml:"name"`
	Type     string `toml:"type"`
	Modifier string `toml:"modifier"`
	Default  bool   `toml:"default"`
}

type DeclEntry struct {
	ID    string   `toml:"id"`
	Kind  string   `toml:"kind"`
	Name  string   `toml:"name"`
	Scope string   `toml:"scope"`
	Token uint32   `toml:"token"`
	Span  []uint32 `toml:"span"`

	Visibility     string `toml:"visibility"`
	Forward        bool   `toml:"forward"`
	Implementation bool   `toml:"implementation"`
	Class          bool   `toml:"class"`
	// Completes labels the forward or interface declaration this one completes.
	Completes string `toml:"completes"`

	// Types.
	TypeKind    string              `toml:"type_kind"`
	TypeParams  []string            `toml:"type_params"`
	Constraints map[string][]string `toml:"constraints"`
	Super       string              `toml:"super"`
	Interfaces  []string            `toml:"interfaces"`
	HelperFor   string              `toml:"helper_for"`
	AliasOf     string              `toml:"alias_of"`

	// Routines.
	RoutineKind string       `toml:"routine_kind"`
	Params      []ParamEntry `toml:"params"`
	Result      string       `toml:"result"`

	// Variables.
	Role string `toml:"role"`
	Type string `toml:"type"`

	// Enum elements.
	Enum    string `toml:"enum"`
	Ordinal int    `toml:"ordinal"`
}

type OccurrenceEntry struct {
	ID         string   `toml:"id"`
	Name       string   `toml:"name"`
	Scope      string   `toml:"scope"`
	Token      uint32   `toml:"token"`
	Span       []uint32 `toml:"span"`
	Qualifier  string   `toml:"qualifier"`
	Invocation bool     `toml:"invocation"`
	MethodRef  bool     `toml:"method_ref"`
	Arity      *int     `toml:"arity"`
	TypeArgs   []string `toml:"type_args"`
}

// ErrMalformedModel wraps every structural problem found by Check.
var ErrMalformedModel = errors.New("malformed unit model")

// LoadUnitModel reads and decodes the model at path.
func LoadUnitModel(path string) (*UnitModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeUnitModel(path, data)
}

// DecodeUnitModel decodes model bytes; name is used in errors and as Path.
// Unknown keys are rejected.
func DecodeUnitModel(name string, data []byte) (*UnitModel, error) {
	m := &UnitModel{}
	meta, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", name, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", name, strings.Join(keys, ", "))
	}
	m.Path = name
	m.Digest = DigestOf(data)
	return m, nil
}

// Check validates labels, references and enumerated values. All problems
// are reported together.
func (m *UnitModel) Check() error {
	c := modelChecker{name: m.Path}
	if strings.TrimSpace(m.Unit.Name) == "" {
		c.fail("[unit] name is required")
	} else if _, err := symbols.ParseQualifiedName(m.Unit.Name); err != nil {
		c.fail("[unit] name %q: %v", m.Unit.Name, err)
	}
	switch strings.ToLower(m.Unit.Kind) {
	case "", "unit", "program", "library", "package":
	default:
		c.fail("[unit] kind %q is not unit, program, library or package", m.Unit.Kind)
	}
	c.span("[unit]", m.Unit.Span)

	for i, u := range m.Uses {
		where := fmt.Sprintf("uses[%d]", i)
		if strings.TrimSpace(u.Name) == "" {
			c.fail("%s: name is required", where)
		}
		switch strings.ToLower(u.Section) {
		case "", "interface", "implementation":
		default:
			c.fail("%s: section %q is not interface or implementation", where, u.Section)
		}
		c.span(where, u.Span)
	}

	scopes := make(map[string]int, len(m.Scopes))
	files := 0
	for i, s := range m.Scopes {
		where := fmt.Sprintf("scope %q", s.ID)
		c.label("scope", i, s.ID, scopes)
		kind, ok := symbols.ParseScopeKind(s.Kind)
		if !ok {
			c.fail("%s: unknown kind %q", where, s.Kind)
		}
		if kind == symbols.ScopeFile {
			files++
			if s.Parent != "" {
				c.fail("%s: file scope cannot have a parent", where)
			}
		}
		if s.Parent != "" {
			if idx, ok := scopes[s.Parent]; !ok || idx >= i {
				c.fail("%s: parent %q must be declared earlier", where, s.Parent)
			}
		} else if kind != symbols.ScopeFile && kind != symbols.ScopeUnknown && ok {
			c.fail("%s: %s scope needs a parent", where, kind)
		}
		c.span(where, s.Span)
	}
	if files != 1 {
		c.fail("expected exactly one file scope, found %d", files)
	}

	decls := make(map[string]int, len(m.Decls))
	for i, d := range m.Decls {
		c.label("decl", i, d.ID, decls)
	}
	occs := make(map[string]int, len(m.Occurrences))
	for i, o := range m.Occurrences {
		c.label("occurrence", i, o.ID, occs)
	}

	for _, s := range m.Scopes {
		where := fmt.Sprintf("scope %q", s.ID)
		c.ref(where, "type", s.Type, decls)
		c.ref(where, "routine", s.Routine, decls)
		c.ref(where, "target", s.Target, occs)
	}
	for i, d := range m.Decls {
		c.decl(i, &d, scopes, decls)
	}
	for _, o := range m.Occurrences {
		where := fmt.Sprintf("occurrence %q", o.ID)
		if strings.TrimSpace(o.Name) == "" {
			c.fail("%s: name is required", where)
		}
		if o.Scope == "" {
			c.fail("%s: scope is required", where)
		}
		c.ref(where, "scope", o.Scope, scopes)
		c.ref(where, "qualifier", o.Qualifier, occs)
		if o.Qualifier == o.ID && o.ID != "" {
			c.fail("%s: qualifies itself", where)
		}
		if o.Arity != nil && *o.Arity < 0 {
			c.fail("%s: negative arity", where)
		}
		for _, ta := range o.TypeArgs {
			c.typeRef(where, "type_args", ta)
		}
		c.span(where, o.Span)
	}
	return c.err()
}

func (c *modelChecker) decl(i int, d *DeclEntry, scopes, decls map[string]int) {
	where := fmt.Sprintf("decl %q", d.ID)
	kind, ok := symbols.ParseDeclKind(d.Kind)
	if !ok {
		c.fail("%s: unknown kind %q", where, d.Kind)
	}
	switch kind {
	case symbols.DeclUnit, symbols.DeclUnitImport:
		c.fail("%s: %s declarations come from [unit] and [[uses]]", where, kind)
	}
	if strings.TrimSpace(d.Name) == "" {
		c.fail("%s: name is required", where)
	}
	if d.Scope == "" && d.Completes == "" {
		c.fail("%s: scope is required", where)
	}
	c.ref(where, "scope", d.Scope, scopes)
	if d.Completes != "" {
		if idx, ok := decls[d.Completes]; !ok || idx >= i {
			c.fail("%s: completes %q must be declared earlier", where, d.Completes)
		}
	}
	if _, ok := symbols.ParseVisibility(d.Visibility); !ok {
		c.fail("%s: unknown visibility %q", where, d.Visibility)
	}
	if _, ok := symbols.ParseTypeKind(d.TypeKind); !ok {
		c.fail("%s: unknown type_kind %q", where, d.TypeKind)
	}
	if _, ok := symbols.ParseRoutineKind(d.RoutineKind); !ok {
		c.fail("%s: unknown routine_kind %q", where, d.RoutineKind)
	}
	if _, ok := symbols.ParseVariableRole(d.Role); !ok {
		c.fail("%s: unknown role %q", where, d.Role)
	}
	for _, ref := range append([]string{d.Super, d.HelperFor, d.AliasOf, d.Result, d.Type}, d.Interfaces...) {
		c.typeRef(where, "type reference", ref)
	}
	for param, list := range d.Constraints {
		found := false
		for _, tp := range d.TypeParams {
			if symbols.FoldName(tp) == symbols.FoldName(param) {
				found = true
			}
		}
		if !found {
			c.fail("%s: constraint for unknown type parameter %q", where, param)
		}
		for _, ref := range list {
			c.typeRef(where, "constraint", ref)
		}
	}
	for j, p := range d.Params {
		if _, ok := symbols.ParseParamModifier(p.Modifier); !ok {
			c.fail("%s: params[%d] unknown modifier %q", where, j, p.Modifier)
		}
		c.typeRef(where, "param type", p.Type)
	}
	c.ref(where, "enum", d.Enum, decls)
	c.span(where, d.Span)
}

type modelChecker struct {
	name string
	errs []error
}

func (c *modelChecker) fail(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf("%s: %w: %s", c.name, ErrMalformedModel, fmt.Sprintf(format, args...)))
}

func (c *modelChecker) label(what string, i int, id string, seen map[string]int) {
	if strings.TrimSpace(id) == "" {
		c.fail("%s #%d: id is required", what, i)
		return
	}
	if _, dup := seen[id]; dup {
		c.fail("%s id %q is used twice", what, id)
		return
	}
	seen[id] = i
}

func (c *modelChecker) ref(where, field, label string, known map[string]int) {
	if label == "" {
		return
	}
	if _, ok := known[label]; !ok {
		c.fail("%s: %s refers to unknown label %q", where, field, label)
	}
}

func (c *modelChecker) typeRef(where, field, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if _, err := symbols.ParseTypeRef(text); err != nil {
		c.fail("%s: %s: %v", where, field, err)
	}
}

func (c *modelChecker) span(where string, sp []uint32) {
	switch len(sp) {
	case 0:
	case 2:
		if sp[0] > sp[1] {
			c.fail("%s: span start %d after end %d", where, sp[0], sp[1])
		}
	default:
		c.fail("%s: span must be [start, end]", where)
	}
}

func (c *modelChecker) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return errors.Join(c.errs...)
}

// FileScope returns the label of the model's file scope.
func (m *UnitModel) FileScope() string {
	for _, s := range m.Scopes {
		if kind, ok := symbols.ParseScopeKind(s.Kind); ok && kind == symbols.ScopeFile {
			return s.ID
		}
	}
	return ""
}

// Meta summarises the model for the dependency graph.
func (m *UnitModel) Meta() UnitMeta {
	meta := UnitMeta{
		Name:        m.Unit.Name,
		Key:         UnitKey(m.Unit.Name),
		Path:        m.Path,
		ContentHash: m.Digest,
	}
	for _, u := range m.Uses {
		meta.Uses = append(meta.Uses, UsesMeta{
			Name:           u.Name,
			Key:            UnitKey(u.Name),
			Implementation: strings.EqualFold(u.Section, "implementation"),
			Span:           u.Span,
		})
	}
	return meta
}
