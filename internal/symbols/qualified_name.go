package symbols

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyQualifiedName is returned for a name without parts or with an empty part.
var ErrEmptyQualifiedName = errors.New("empty qualified name")

// QualifiedName is an ordered, non-empty sequence of name parts such as
// System.Generics.Collections.TList<T>. The simple and fully qualified
// forms are computed once at construction.
type QualifiedName struct {
	parts  []string
	simple string
	full   string
}

// NewQualifiedName builds a qualified name from its parts.
func NewQualifiedName(parts ...string) (QualifiedName, error) {
	if len(parts) == 0 {
		return QualifiedName{}, ErrEmptyQualifiedName
	}
	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			return QualifiedName{}, fmt.Errorf("%w: part %d is blank", ErrEmptyQualifiedName, i)
		}
	}
	cp := make([]string, len(parts))
	copy(cp, parts)
	return QualifiedName{
		parts:  cp,
		simple: stripGenericSuffix(cp[len(cp)-1]),
		full:   strings.Join(cp, "."),
	}, nil
}

// ParseQualifiedName splits a dotted name. Dots nested inside generic
// argument lists do not split: "A.TMap<B.C, D>.E" has three parts.
func ParseQualifiedName(s string) (QualifiedName, error) {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return NewQualifiedName(parts...)
}

// MustQualifiedName is ParseQualifiedName that panics on error.
func MustQualifiedName(s string) QualifiedName {
	q, err := ParseQualifiedName(s)
	if err != nil {
		panic(err)
	}
	return q
}

// IsZero reports whether q was never constructed.
func (q QualifiedName) IsZero() bool { return len(q.parts) == 0 }

// Parts returns a copy of the name parts.
func (q QualifiedName) Parts() []string {
	out := make([]string, len(q.parts))
	copy(out, q.parts)
	return out
}

// Len returns the number of parts.
func (q QualifiedName) Len() int { return len(q.parts) }

// SimpleName is the last part without any generic suffix.
func (q QualifiedName) SimpleName() string { return q.simple }

// FullyQualified joins all parts with dots.
func (q QualifiedName) FullyQualified() string { return q.full }

// Key folds the fully qualified form.
func (q QualifiedName) Key() Key { return FoldName(q.full) }

func (q QualifiedName) String() string { return q.full }

func stripGenericSuffix(s string) string {
	if i := strings.IndexByte(s, '<'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
