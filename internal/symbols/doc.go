// Package symbols holds the scope tree, declarations and name occurrences
// of a Pascal program, and the search that binds occurrences to
// declarations.
//
// All objects live in arenas owned by a Table and are addressed by integer
// handles (ScopeID, DeclID, OccID). Names are compared through their
// case-folded Key.
package symbols
