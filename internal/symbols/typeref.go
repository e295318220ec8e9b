package symbols

import (
	"fmt"
	"strings"
)

// TypeRef is a structured reference to a type as written in source:
// a possibly dotted name plus generic arguments, e.g. TDictionary<string, TList<T>>.
type TypeRef struct {
	Name string
	Args []TypeRef
}

// ParseTypeRef parses the textual form of a type reference.
func ParseTypeRef(s string) (TypeRef, error) {
	p := typeRefParser{src: s}
	ref, err := p.parse()
	if err != nil {
		return TypeRef{}, fmt.Errorf("type reference %q: %w", s, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return TypeRef{}, fmt.Errorf("type reference %q: unexpected %q at %d", s, p.src[p.pos], p.pos)
	}
	return ref, nil
}

// MustTypeRef is ParseTypeRef that panics on error.
func MustTypeRef(s string) TypeRef {
	ref, err := ParseTypeRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// IsZero reports whether r names nothing.
func (r TypeRef) IsZero() bool { return r.Name == "" }

// Arity is the number of generic arguments.
func (r TypeRef) Arity() int { return len(r.Args) }

func (r TypeRef) String() string {
	if len(r.Args) == 0 {
		return r.Name
	}
	var sb strings.Builder
	sb.WriteString(r.Name)
	sb.WriteByte('<')
	for i, a := range r.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteByte('>')
	return sb.String()
}

// Key folds the textual form.
func (r TypeRef) Key() Key { return FoldName(r.String()) }

// NameParts splits the dotted name. Generic arguments only attach to the
// last part.
func (r TypeRef) NameParts() []string {
	return strings.Split(r.Name, ".")
}

// Mentions reports whether r or any of its arguments names one of params.
func (r TypeRef) Mentions(params map[Key]TypeRef) bool {
	if r.IsZero() {
		return false
	}
	if len(r.Args) == 0 {
		if _, ok := params[FoldName(r.Name)]; ok {
			return true
		}
	}
	for _, a := range r.Args {
		if a.Mentions(params) {
			return true
		}
	}
	return false
}

// Substitute replaces every parameter name found in params by its
// argument. The receiver is not modified; changed reports whether any
// replacement happened.
func (r TypeRef) Substitute(params map[Key]TypeRef) (out TypeRef, changed bool) {
	if r.IsZero() {
		return r, false
	}
	if len(r.Args) == 0 {
		if arg, ok := params[FoldName(r.Name)]; ok {
			return arg.clone(), true
		}
		return r, false
	}
	out = TypeRef{Name: r.Name, Args: make([]TypeRef, len(r.Args))}
	for i, a := range r.Args {
		sub, ok := a.Substitute(params)
		out.Args[i] = sub
		changed = changed || ok
	}
	return out, changed
}

func (r TypeRef) clone() TypeRef {
	if len(r.Args) == 0 {
		return r
	}
	out := TypeRef{Name: r.Name, Args: make([]TypeRef, len(r.Args))}
	for i, a := range r.Args {
		out.Args[i] = a.clone()
	}
	return out
}

type typeRefParser struct {
	src string
	pos int
}

func (p *typeRefParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeRefParser) parse() (TypeRef, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '<' || c == '>' || c == ',' || c == ' ' || c == '\t' {
			break
		}
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return TypeRef{}, fmt.Errorf("missing name at %d", start)
	}
	ref := TypeRef{Name: name}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '<' {
		return ref, nil
	}
	p.pos++
	for {
		arg, err := p.parse()
		if err != nil {
			return TypeRef{}, err
		}
		ref.Args = append(ref.Args, arg)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return TypeRef{}, fmt.Errorf("unterminated argument list")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return ref, nil
		default:
			return TypeRef{}, fmt.Errorf("unexpected %q at %d", p.src[p.pos], p.pos)
		}
	}
}
