package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"pascope/internal/source"
)

// Scopes stores all allocated scopes in a slice-based arena. Index 0 is
// the NoScopeID sentinel and index 1 is the Unknown scope.
type Scopes struct {
	data []Scope
}

// NewScopes creates an arena with optional capacity hint.
func NewScopes(capacity uint32) *Scopes {
	if capacity == 0 {
		capacity = 32
	}
	s := &Scopes{
		data: make([]Scope, 2, capacity+2),
	}
	s.data[UnknownScopeID] = Scope{Kind: ScopeUnknown}
	return s
}

// New allocates a scope and links it to parent.
func (s *Scopes) New(kind ScopeKind, parent ScopeID, span source.Span) ScopeID {
	value, err := safecast.Conv[uint32](len(s.data))
	if err != nil {
		panic(fmt.Errorf("scopes arena overflow: %w", err))
	}
	id := ScopeID(value)
	s.data = append(s.data, Scope{
		Kind:      kind,
		Parent:    parent,
		Span:      span,
		NameIndex: make(map[Key][]DeclID),
	})
	if parent.IsValid() {
		if parentScope := s.Get(parent); parentScope != nil {
			parentScope.Children = append(parentScope.Children, id)
		}
	}
	return id
}

// Get returns the scope pointer or nil if ID is invalid.
func (s *Scopes) Get(id ScopeID) *Scope {
	if !id.IsValid() || int(id) >= len(s.data) {
		return nil
	}
	return &s.data[id]
}

// Len reports the number of scopes including the Unknown sentinel.
func (s *Scopes) Len() int { return len(s.data) - 1 }

// Decls stores declarations in a slice-based arena.
type Decls struct {
	data []Decl
}

// NewDecls creates a declaration arena with optional capacity hint.
func NewDecls(capacity uint32) *Decls {
	if capacity == 0 {
		capacity = 64
	}
	return &Decls{
		data: make([]Decl, 1, capacity+1), // index 0 reserved for NoDeclID
	}
}

// New copies d into the arena and returns its ID.
func (s *Decls) New(d *Decl) DeclID {
	if d == nil {
		panic("symbols.Decls.New: nil declaration")
	}
	value, err := safecast.Conv[uint32](len(s.data))
	if err != nil {
		panic(fmt.Errorf("declarations arena overflow: %w", err))
	}
	s.data = append(s.data, *d)
	return DeclID(value)
}

// Get returns a declaration pointer or nil for invalid ID.
func (s *Decls) Get(id DeclID) *Decl {
	if !id.IsValid() || int(id) >= len(s.data) {
		return nil
	}
	return &s.data[id]
}

// Len reports the number of stored declarations.
func (s *Decls) Len() int { return len(s.data) - 1 }

// Occurrences stores name occurrences in a slice-based arena.
type Occurrences struct {
	data []Occurrence
}

// NewOccurrences creates an occurrence arena with optional capacity hint.
func NewOccurrences(capacity uint32) *Occurrences {
	if capacity == 0 {
		capacity = 128
	}
	return &Occurrences{
		data: make([]Occurrence, 1, capacity+1),
	}
}

// New copies occ into the arena and returns its ID.
func (s *Occurrences) New(occ *Occurrence) OccID {
	if occ == nil {
		panic("symbols.Occurrences.New: nil occurrence")
	}
	value, err := safecast.Conv[uint32](len(s.data))
	if err != nil {
		panic(fmt.Errorf("occurrences arena overflow: %w", err))
	}
	s.data = append(s.data, *occ)
	return OccID(value)
}

// Get returns an occurrence pointer or nil for invalid ID.
func (s *Occurrences) Get(id OccID) *Occurrence {
	if !id.IsValid() || int(id) >= len(s.data) {
		return nil
	}
	return &s.data[id]
}

// Len reports the number of stored occurrences.
func (s *Occurrences) Len() int { return len(s.data) - 1 }
