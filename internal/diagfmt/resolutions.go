package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"pascope/internal/binder"
	"pascope/internal/source"
)

// ResolutionJSON is one occurrence and the declaration it is bound to.
type ResolutionJSON struct {
	Unit       string       `json:"unit"`
	Occurrence string       `json:"occurrence"`
	Name       string       `json:"name"`
	Location   LocationJSON `json:"location"`
	Status     string       `json:"status"`
	Decl       string       `json:"decl,omitempty"`
	Kind       string       `json:"kind,omitempty"`
	Qualified  string       `json:"qualified,omitempty"`
	Instance   string       `json:"instance,omitempty"`
	Candidates []string     `json:"candidates,omitempty"`
}

// ResolutionsOutput is the root of a JSON resolution report.
type ResolutionsOutput struct {
	Resolutions []ResolutionJSON `json:"resolutions"`
	Count       int              `json:"count"`
	Resolved    int              `json:"resolved"`
}

func keep(r binder.Record, opts ResolutionOpts) bool {
	if !opts.Unbound {
		return true
	}
	return r.Status != binder.StatusResolved
}

// BuildResolutionsOutput builds the JSON structure of a resolution report.
func BuildResolutionsOutput(records []binder.Record, fs *source.FileSet, opts ResolutionOpts) ResolutionsOutput {
	out := ResolutionsOutput{Resolutions: make([]ResolutionJSON, 0, len(records))}
	for _, r := range records {
		if r.Status == binder.StatusResolved {
			out.Resolved++
		}
		if !keep(r, opts) {
			continue
		}
		rj := ResolutionJSON{
			Unit:       r.Unit,
			Occurrence: r.Occurrence,
			Name:       r.Name,
			Location:   makeLocation(r.Span, fs, opts.PathMode, true),
			Status:     r.Status.String(),
			Decl:       r.Decl,
			Kind:       r.Kind,
			Qualified:  r.Qualified,
			Instance:   r.Instance,
		}
		if opts.Candidates || r.Status == binder.StatusAmbiguous {
			rj.Candidates = r.Candidates
		}
		out.Resolutions = append(out.Resolutions, rj)
	}
	out.Count = len(out.Resolutions)
	return out
}

// ResolutionJSONReport writes records as an indented JSON document.
func ResolutionJSONReport(w io.Writer, records []binder.Record, fs *source.FileSet, opts ResolutionOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildResolutionsOutput(records, fs, opts))
}

// ResolutionText writes one line per occurrence:
//
//	<path>:<line>:<col>: <name> -> <qualified name> (<kind>)
//
// Unbound occurrences show their status instead of a target.
func ResolutionText(w io.Writer, records []binder.Record, fs *source.FileSet, opts ResolutionOpts) error {
	var b strings.Builder
	for _, r := range records {
		if !keep(r, opts) {
			continue
		}
		fmt.Fprintf(&b, "%s: %s -> ", position(fs, r.Span, opts.PathMode), r.Name)
		switch r.Status {
		case binder.StatusResolved:
			b.WriteString(r.Qualified)
			fmt.Fprintf(&b, " (%s)", r.Kind)
			if r.Instance != "" {
				fmt.Fprintf(&b, " as %s", r.Instance)
			}
		case binder.StatusAmbiguous:
			fmt.Fprintf(&b, "ambiguous, %d candidates", len(r.Candidates))
		default:
			b.WriteString(r.Status.String())
		}
		if opts.Candidates && len(r.Candidates) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(r.Candidates, ", "))
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
