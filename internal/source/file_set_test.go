package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("Shapes.pas", []byte("unit Shapes;"), 0)
	id2 := fs.Add("Shapes.pas", []byte("unit Shapes; interface"), 0)
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}
	latest, ok := fs.GetLatest("Shapes.pas")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest = %d,%v, want %d", latest, ok, id2)
	}
	if got := string(fs.Get(id1).Content); got != "unit Shapes;" {
		t.Fatalf("old version content changed: %q", got)
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.pas", []byte("unit A;\nvar\n  X: Integer;\n"))

	start, end := fs.Resolve(Span{File: id, Start: 14, End: 15})
	if start.Line != 3 || start.Col != 3 {
		t.Fatalf("start = %+v, want 3:3", start)
	}
	if end.Line != 3 || end.Col != 4 {
		t.Fatalf("end = %+v, want 3:4", end)
	}
	if line := fs.Get(id).GetLine(3); line != "  X: Integer;" {
		t.Fatalf("GetLine(3) = %q", line)
	}
	if fs.Get(id).Flags&FileVirtual == 0 {
		t.Fatalf("expected FileVirtual flag")
	}
}

func TestLoadNormalizesBOMAndCRLF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.pas")
	content := []byte{0xEF, 0xBB, 0xBF, 'a', '\r', '\n', 'b'}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "a\nb" {
		t.Fatalf("content = %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("flags = %b", f.Flags)
	}
}

func TestRelativePathOutsideBaseFallsBackToAbsolute(t *testing.T) {
	tmp := t.TempDir()
	baseDir := filepath.Join(tmp, "base")
	target := filepath.Join(tmp, "other", "file.pas")

	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}
	if want := normalizePath(target); got != want {
		t.Fatalf("expected absolute fallback %q, got %q", want, got)
	}
}

func TestSpanCoverAndContains(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	if got := a.Cover(b); got != (Span{File: 1, Start: 2, End: 8}) {
		t.Fatalf("Cover = %v", got)
	}
	if !a.Cover(b).Contains(a) {
		t.Fatalf("cover must contain its operands")
	}
	if other := (Span{File: 2, Start: 0, End: 1}); a.Cover(other) != a {
		t.Fatalf("cross-file cover must keep receiver")
	}
}
