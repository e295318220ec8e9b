package symbols

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Key is the case-folded form of an identifier. Pascal names are case
// insensitive, so every comparison, hash and ordering of names goes
// through a Key rather than the raw image.
type Key string

// FoldName folds an identifier image into its Key. A leading '&' (the
// escape for reserved words used as identifiers) is not part of the name.
func FoldName(name string) Key {
	name = strings.TrimPrefix(name, "&")
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf {
			// cases.Caser is stateful, so each fold gets its own.
			return Key(cases.Fold().String(name))
		}
	}
	var sb strings.Builder
	sb.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		sb.WriteByte(c)
	}
	return Key(sb.String())
}

// String returns the folded text.
func (k Key) String() string { return string(k) }

// Empty reports whether k has no text.
func (k Key) Empty() bool { return k == "" }
