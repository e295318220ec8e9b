// Package diagfmt renders diagnostics and resolution reports.
package diagfmt

import "pascope/internal/source"

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps short paths and shortens long absolute ones.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	// PathModeRelative renders paths against the file set's base directory.
	PathModeRelative
	PathModeBasename
)

// ParsePathMode maps a flag value to a PathMode.
func ParsePathMode(s string) (PathMode, bool) {
	switch s {
	case "", "auto":
		return PathModeAuto, true
	case "absolute":
		return PathModeAbsolute, true
	case "relative":
		return PathModeRelative, true
	case "basename":
		return PathModeBasename, true
	}
	return PathModeAuto, false
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	Context   int // source lines shown above the primary line
	PathMode  PathMode
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // add line/col
	PathMode         PathMode
	Max              int // output cut-off, the bag is untouched
	IncludeNotes     bool
}

// ResolutionOpts configures resolution reports.
type ResolutionOpts struct {
	PathMode PathMode
	// Unbound limits the report to occurrences left unresolved or ambiguous.
	Unbound    bool
	Candidates bool
}

func formatPath(fs *source.FileSet, id source.FileID, mode PathMode) string {
	f := fs.Get(id)
	if f == nil {
		return "<unknown>"
	}
	switch mode {
	case PathModeAbsolute:
		return f.FormatPath("absolute", "")
	case PathModeRelative:
		return f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		return f.FormatPath("basename", "")
	default:
		return f.FormatPath("auto", "")
	}
}

// position renders path:line:col of the span start.
func position(fs *source.FileSet, sp source.Span, mode PathMode) string {
	start, _ := fs.Resolve(sp)
	return formatPathPos(formatPath(fs, sp.File, mode), start)
}

func formatPathPos(path string, lc source.LineCol) string {
	return path + ":" + itoa(lc.Line) + ":" + itoa(lc.Col)
}
