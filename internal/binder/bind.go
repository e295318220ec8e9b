package binder

import (
	"errors"
	"fmt"

	"pascope/internal/diag"
)

// Bind writes resolutions computed by Resolve into the table and reports
// unbound occurrences when the binder is configured to.
func (b *Binder) Bind(u *Unit, res []Resolution) error {
	if u == nil || u.Aborted {
		return nil
	}
	var errs []error
	for _, r := range res {
		if err := b.table.Bind(r.Occ, r.Decl, r.Candidates); err != nil {
			occ := b.table.Occurrence(r.Occ)
			at := u.span(nil)
			if occ != nil {
				at = occ.Loc.Span
			}
			diag.ReportError(u.Reporter, diag.SemaInvariantViolation, at, err.Error()).Emit()
			errs = append(errs, err)
			continue
		}
		if b.opts.ReportUnresolved {
			b.reportUnbound(u, r)
		}
	}
	return errors.Join(errs...)
}

func (b *Binder) reportUnbound(u *Unit, r Resolution) {
	occ := b.table.Occurrence(r.Occ)
	if occ == nil {
		return
	}
	var qualifier string
	if q := b.table.Occurrence(occ.Qualifier); q != nil {
		qualifier = q.Image
	}
	switch r.Status {
	case StatusUnresolved:
		msg := fmt.Sprintf("unresolved name %q", occ.Image)
		if qualifier != "" {
			msg = fmt.Sprintf("%q is not a member of %q", occ.Image, qualifier)
		}
		diag.ReportInfo(u.Reporter, diag.SemaUnresolvedName, occ.Loc.Span, msg).Emit()
	case StatusUnscoped:
		diag.ReportInfo(u.Reporter, diag.SemaMemberOfUnscoped, occ.Loc.Span,
			fmt.Sprintf("%q has no members; cannot resolve %q", qualifier, occ.Image)).Emit()
	case StatusAmbiguous:
		rb := diag.ReportInfo(u.Reporter, diag.SemaAmbiguousName, occ.Loc.Span,
			fmt.Sprintf("ambiguous name %q: %d candidates", occ.Image, len(r.Candidates)))
		for _, c := range r.Candidates {
			if d := b.table.Decl(c); d != nil {
				rb.WithNote(d.Loc.Span, "candidate "+d.Kind.String()+" "+b.table.QualifiedNameOf(c).FullyQualified())
			}
		}
		rb.Emit()
	}
}

// Run drives all four phases over units already built, in order. It is
// the sequential path used by tests and small projects.
func (b *Binder) Run(units []*Unit) error {
	b.LinkAll(units)
	var errs []error
	for _, u := range units {
		if err := b.Bind(u, b.Resolve(u, nil)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate checks the table invariants after binding.
func (b *Binder) Validate() error {
	return b.table.Validate()
}
