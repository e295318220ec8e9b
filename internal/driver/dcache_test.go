package driver

import (
	"reflect"
	"testing"

	"pascope/internal/binder"
	"pascope/internal/project"
)

func TestDiskCachePutGet(t *testing.T) {
	c, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := project.DigestOf([]byte("unit"))
	in := &DiskPayload{
		Unit:     "Shapes",
		Path:     "shapes.unit.toml",
		UnitHash: project.DigestOf([]byte("hash")),
		Resolutions: []binder.StoredResolution{
			{Occ: "a", Status: "resolved", Decl: "Shapes:TShape"},
			{Occ: "b", Status: "ambiguous", Candidates: []string{"System:WriteLn0", "System:WriteLnS"}},
		},
	}
	if err := c.Put(key, in); err != nil {
		t.Fatalf("put: %v", err)
	}

	var out DiskPayload
	ok, err := c.Get(key, &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(out.Resolutions, in.Resolutions) || out.Unit != "Shapes" {
		t.Fatalf("payload mismatch: %+v", out)
	}

	ok, err = c.Get(project.DigestOf([]byte("other")), &out)
	if err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
}

func TestDiskCacheDropAll(t *testing.T) {
	c, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := project.DigestOf([]byte("unit"))
	if err := c.Put(key, &DiskPayload{Unit: "App"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	var out DiskPayload
	if ok, err := c.Get(key, &out); err != nil || ok {
		t.Fatalf("after drop: ok=%v err=%v", ok, err)
	}
	if err := c.Put(key, &DiskPayload{Unit: "App"}); err != nil {
		t.Fatalf("cache must stay usable after drop: %v", err)
	}
}

func TestNilDiskCacheIsInert(t *testing.T) {
	var c *DiskCache
	if err := c.Put(project.Digest{}, &DiskPayload{}); err != nil {
		t.Fatal(err)
	}
	var out DiskPayload
	if ok, err := c.Get(project.Digest{}, &out); ok || err != nil {
		t.Fatalf("nil cache get: ok=%v err=%v", ok, err)
	}
}
