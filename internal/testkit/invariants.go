// Package testkit holds checks shared by tests across packages.
package testkit

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"pascope/internal/project"
	"pascope/internal/source"
)

// CheckModelSpans verifies the spans of a unit model against its source:
//   - every span lies within the file content and is non-empty
//   - the text under a declaration, occurrence or uses span is its name,
//     compared case-insensitively
//
// Files without content (virtual sources) only get the shape checks.
func CheckModelSpans(m *project.UnitModel, sf *source.File) error {
	if m == nil || sf == nil {
		return fmt.Errorf("nil model or file")
	}
	size, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	var errs []error
	check := func(where, name string, sp []uint32) {
		if len(sp) == 0 {
			return
		}
		if len(sp) != 2 || sp[1] <= sp[0] {
			errs = append(errs, fmt.Errorf("%s: empty or malformed span %v", where, sp))
			return
		}
		if size == 0 {
			return
		}
		if sp[1] > size {
			errs = append(errs, fmt.Errorf("%s: span %v beyond content (%d bytes)", where, sp, size))
			return
		}
		if text := string(sf.Content[sp[0]:sp[1]]); name != "" && !strings.EqualFold(text, name) {
			errs = append(errs, fmt.Errorf("%s: span %v covers %q, want %q", where, sp, text, name))
		}
	}

	check("unit", m.Unit.Name, m.Unit.Span)
	for _, u := range m.Uses {
		check("uses "+u.Name, u.Name, u.Span)
	}
	for _, d := range m.Decls {
		check("decl "+d.ID, d.Name, d.Span)
	}
	for _, o := range m.Occurrences {
		check("occurrence "+o.ID, o.Name, o.Span)
	}
	for _, s := range m.Scopes {
		check("scope "+s.ID, "", s.Span)
	}
	return errors.Join(errs...)
}
