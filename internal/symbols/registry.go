package symbols

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// ErrDuplicateUnit reports a second unit registered under one path or name.
var ErrDuplicateUnit = errors.New("duplicate unit")

// Registry maps unit paths and unit names to their declarations. Each unit
// is written once by the goroutine building it; readers come after.
type Registry struct {
	mu     sync.RWMutex
	byPath map[string]DeclID
	byName map[Key]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byPath: make(map[string]DeclID),
		byName: make(map[Key]string),
	}
}

// AddUnit registers unit under path. A unit may be registered under more
// than one path.
func (r *Registry) AddUnit(path string, unit DeclID) error {
	path = filepath.ToSlash(filepath.Clean(path))
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byPath[path]; ok && existing != unit {
		return fmt.Errorf("%w: %s", ErrDuplicateUnit, path)
	}
	r.byPath[path] = unit
	return nil
}

// AddName makes the unit at path reachable by its (possibly dotted) name.
func (r *Registry) AddName(name, path string) error {
	path = filepath.ToSlash(filepath.Clean(path))
	key := FoldName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[key]; ok && existing != path {
		return fmt.Errorf("%w: %s is declared by %s and %s", ErrDuplicateUnit, name, existing, path)
	}
	r.byName[key] = path
	return nil
}

// UnitByPath looks a unit up by path.
func (r *Registry) UnitByPath(path string) (DeclID, bool) {
	path = filepath.ToSlash(filepath.Clean(path))
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPath[path]
	return id, ok
}

// UnitByName looks a unit up by name, case-insensitively.
func (r *Registry) UnitByName(name string) (DeclID, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.byName[FoldName(name)]
	if !ok {
		return NoDeclID, "", false
	}
	id, ok := r.byPath[path]
	return id, path, ok
}

// Paths returns every registered path, sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byPath))
	for p := range r.byPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len is the number of registered paths. A unit registered under both its
// model and its source file counts twice.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPath)
}
