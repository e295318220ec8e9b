package binder

import (
	"pascope/internal/source"
	"pascope/internal/symbols"
)

// Record is the reportable form of one resolution.
type Record struct {
	Unit       string
	Occurrence string // model label
	Name       string
	Span       source.Span
	Status     Status
	Decl       string // "Unit:label", empty when unbound
	Kind       string
	Qualified  string // fully qualified name of Decl
	Candidates []string
	Instance   string
}

// Records renders the resolutions of u. res must come from Resolve(u, ...).
func (b *Binder) Records(u *Unit, res []Resolution, labels *Labels) []Record {
	if u == nil || len(res) == 0 {
		return nil
	}
	out := make([]Record, 0, len(res))
	for i, r := range res {
		occ := b.table.Occurrence(r.Occ)
		if occ == nil {
			continue
		}
		rec := Record{
			Unit:       u.Name(),
			Occurrence: u.OccLabel(i),
			Name:       occ.Image,
			Span:       occ.Loc.Span,
			Status:     r.Status,
			Candidates: labels.Refs(r.Candidates),
			Instance:   r.Instance,
		}
		if d := b.table.Decl(r.Decl); d != nil {
			rec.Decl = labels.Ref(r.Decl)
			rec.Kind = d.Kind.String()
			if d.IsClassMember() {
				rec.Kind = "class " + rec.Kind
			}
			rec.Qualified = b.table.QualifiedNameOf(r.Decl).FullyQualified()
		}
		out = append(out, rec)
	}
	return out
}

// StoredResolution is a Resolution in label form, independent of table ids.
type StoredResolution struct {
	Occ        string   `msgpack:"o"`
	Status     string   `msgpack:"s"`
	Decl       string   `msgpack:"d,omitempty"`
	Candidates []string `msgpack:"c,omitempty"`
	Instance   string   `msgpack:"i,omitempty"`
}

// Store converts resolutions of u to label form. It fails when any
// referenced declaration has no label.
func (l *Labels) Store(u *Unit, res []Resolution) ([]StoredResolution, bool) {
	if len(res) != len(u.Occurrences) {
		return nil, false
	}
	out := make([]StoredResolution, len(res))
	for i, r := range res {
		if r.Occ != u.Occurrences[i] {
			return nil, false
		}
		s := StoredResolution{
			Occ:      u.OccLabel(i),
			Status:   r.Status.String(),
			Instance: r.Instance,
		}
		if r.Decl.IsValid() {
			if s.Decl = l.Ref(r.Decl); s.Decl == "" {
				return nil, false
			}
		}
		s.Candidates = l.Refs(r.Candidates)
		if len(s.Candidates) != len(r.Candidates) {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// Restore maps stored resolutions back onto u. It fails when the stored
// form no longer matches the unit.
func (l *Labels) Restore(u *Unit, stored []StoredResolution) ([]Resolution, bool) {
	if len(stored) != len(u.Occurrences) {
		return nil, false
	}
	out := make([]Resolution, len(stored))
	for i, s := range stored {
		if s.Occ != u.OccLabel(i) {
			return nil, false
		}
		status, ok := ParseStatus(s.Status)
		if !ok {
			return nil, false
		}
		r := Resolution{Occ: u.Occurrences[i], Status: status, Instance: s.Instance}
		if s.Decl != "" {
			if r.Decl, ok = l.Decl(s.Decl); !ok {
				return nil, false
			}
		}
		if len(s.Candidates) > 0 {
			r.Candidates = make([]symbols.DeclID, len(s.Candidates))
			for j, ref := range s.Candidates {
				if r.Candidates[j], ok = l.Decl(ref); !ok {
					return nil, false
				}
			}
		}
		out[i] = r
	}
	return out, true
}
