package symbols

import "pascope/internal/source"

// Location is where a name appears: its span, the scope enclosing it and a
// token index that orders positions inside one file.
type Location struct {
	Span  source.Span
	Scope ScopeID
	Token uint32
}

// Before reports whether l precedes other in the same file.
func (l Location) Before(other Location) bool {
	return l.SameFile(other) && l.Token < other.Token
}

// SameFile reports whether both locations point into one file.
func (l Location) SameFile(other Location) bool {
	return l.Span.File == other.Span.File
}
