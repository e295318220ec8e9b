package symbols

// ScopeID identifies a scope in the table arena.
type ScopeID uint32

const (
	// NoScopeID marks the absence of a scope reference.
	NoScopeID ScopeID = 0
	// UnknownScopeID is the sentinel scope reserved in every table. It has no
	// parent, holds no declarations and answers every lookup with nothing.
	UnknownScopeID ScopeID = 1
)

// IsValid reports whether the scope ID refers to an allocated scope.
func (id ScopeID) IsValid() bool { return id != NoScopeID }

// IsUnknown reports whether id is the Unknown sentinel.
func (id ScopeID) IsUnknown() bool { return id == UnknownScopeID }

// DeclID identifies a declaration inside the table arena.
type DeclID uint32

const (
	// NoDeclID marks the absence of a declaration reference.
	NoDeclID DeclID = 0
)

// IsValid reports whether the declaration ID refers to an allocated declaration.
func (id DeclID) IsValid() bool { return id != NoDeclID }

// OccID identifies a name occurrence inside the table arena.
type OccID uint32

const (
	// NoOccID marks the absence of an occurrence reference.
	NoOccID OccID = 0
)

// IsValid reports whether the occurrence ID refers to an allocated occurrence.
func (id OccID) IsValid() bool { return id != NoOccID }
