// Package diag defines the diagnostic model shared by every analysis phase.
//
// Diagnostic is the central record: severity, a compact numeric Code with a
// stable string form (SEMxxxx, IOxxxx, PRJxxxx), a short message, a primary
// source.Span and optional notes pointing at related locations (for example
// "previous declaration here" for a duplicate declaration).
//
// Phases emit through a Reporter rather than storing diagnostics themselves.
// ReportBuilder offers the chained form:
//
//	diag.ReportError(r, diag.SemaDuplicateDeclaration, span, msg).
//		WithNote(prev, "previous declaration here").
//		Emit()
//
// BagReporter collects into a Bag, which supports sorting, deduplication and
// filtering. LockedReporter serialises reports from parallel resolve workers.
//
// The package does no formatting or IO; rendering lives in internal/diagfmt.
package diag
