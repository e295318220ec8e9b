package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"pascope/internal/binder"
	"pascope/internal/source"
)

func sampleRecords(t *testing.T) ([]binder.Record, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("app.dpr", []byte(sample))
	at := func(s string) source.Span {
		i := uint32(strings.Index(sample, s))
		return source.Span{File: id, Start: i, End: i + uint32(len(s))}
	}
	return []binder.Record{
		{
			Unit: "App", Occurrence: "unit_q", Name: "Shapes", Span: at("Shapes"),
			Status: binder.StatusResolved, Decl: "App:$uses:Shapes", Kind: "unit", Qualified: "Shapes",
		},
		{
			Unit: "App", Occurrence: "var_type", Name: "TCirle", Span: at("TCirle"),
			Status: binder.StatusUnresolved,
		},
		{
			Unit: "App", Occurrence: "c", Name: "C", Span: at("C:"),
			Status: binder.StatusAmbiguous, Candidates: []string{"App:C", "Shapes:C"},
		},
	}, fs
}

func TestResolutionText(t *testing.T) {
	records, fs := sampleRecords(t)
	var buf bytes.Buffer
	if err := ResolutionText(&buf, records, fs, ResolutionOpts{}); err != nil {
		t.Fatalf("text: %v", err)
	}
	want := "app.dpr:2:6: Shapes -> Shapes (unit)\n" +
		"app.dpr:3:8: TCirle -> unresolved\n" +
		"app.dpr:3:5: C -> ambiguous, 2 candidates\n"
	if buf.String() != want {
		t.Fatalf("text =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestResolutionTextUnboundWithCandidates(t *testing.T) {
	records, fs := sampleRecords(t)
	var buf bytes.Buffer
	if err := ResolutionText(&buf, records, fs, ResolutionOpts{Unbound: true, Candidates: true}); err != nil {
		t.Fatalf("text: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "Shapes -> Shapes") {
		t.Fatalf("resolved occurrence listed with Unbound:\n%s", out)
	}
	if !strings.Contains(out, "[App:C, Shapes:C]") {
		t.Fatalf("candidates missing:\n%s", out)
	}
}

func TestResolutionJSONReport(t *testing.T) {
	records, fs := sampleRecords(t)
	var buf bytes.Buffer
	if err := ResolutionJSONReport(&buf, records, fs, ResolutionOpts{}); err != nil {
		t.Fatalf("json: %v", err)
	}
	var out ResolutionsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 3 || out.Resolved != 1 {
		t.Fatalf("count=%d resolved=%d", out.Count, out.Resolved)
	}
	first := out.Resolutions[0]
	if first.Decl != "App:$uses:Shapes" || first.Status != "resolved" || first.Location.StartLine != 2 {
		t.Fatalf("first = %+v", first)
	}
	if got := out.Resolutions[2].Candidates; len(got) != 2 {
		t.Fatalf("ambiguous candidates = %v", got)
	}
}
