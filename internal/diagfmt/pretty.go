package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"pascope/internal/diag"
	"pascope/internal/source"
)

type palette struct {
	err, warn, info, note, code, gutter, caret, path *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue, color.Bold),
		code:   color.New(color.Faint),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		path:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.code, p.gutter, p.caret, p.path} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes diagnostics in a human-readable form. Items are written in
// bag order; callers sort the bag first. For each diagnostic:
//
//	<path>:<line>:<col>: <severity> <CODE>: <message>
//
// followed by the source line with the span underlined as ^~~~ and then
// the notes in the same layout.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	var b strings.Builder
	for i, d := range bag.Items() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s %s: %s\n",
			p.path.Sprint(position(fs, d.Primary, opts.PathMode)),
			p.severity(d.Severity).Sprint(d.Severity.Label()),
			p.code.Sprint(d.Code.ID()),
			d.Message)
		writeExcerpt(&b, fs, d.Primary, opts.Context, p)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(&b, "  %s %s: %s\n", p.note.Sprint("note:"), position(fs, n.Span, opts.PathMode), n.Msg)
			writeExcerpt(&b, fs, n.Span, 0, p)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeExcerpt prints the lines of sp, preceded by up to context lines,
// with a caret line under the first one. Files without content print
// nothing.
func writeExcerpt(b *strings.Builder, fs *source.FileSet, sp source.Span, context int, p palette) {
	f := fs.Get(sp.File)
	if f == nil || len(f.Content) == 0 || int(sp.Start) > len(f.Content) {
		return
	}
	start, end := fs.Resolve(sp)
	first := start.Line
	for k := 0; k < context && first > 1; k++ {
		first--
	}
	width := len(itoa(start.Line))

	for line := first; line <= start.Line; line++ {
		fmt.Fprintf(b, " %s %s\n", p.gutter.Sprintf("%*d |", width, line), expandTabs(f.GetLine(line)))
	}

	text := f.GetLine(start.Line)
	col := int(start.Col) - 1
	if col > len(text) {
		col = len(text)
	}
	span := 1
	if end.Line == start.Line && end.Col > start.Col {
		span = int(end.Col - start.Col)
	} else if end.Line > start.Line {
		span = max(len(text)-col, 1)
	}
	pad := strings.Repeat(" ", displayWidth(text[:col]))
	marks := "^" + strings.Repeat("~", span-1)
	fmt.Fprintf(b, " %s %s%s\n", p.gutter.Sprintf("%*s |", width, ""), pad, p.caret.Sprint(marks))
}

func expandTabs(s string) string { return strings.ReplaceAll(s, "\t", "    ") }

func displayWidth(prefix string) int {
	return runewidth.StringWidth(expandTabs(prefix))
}
