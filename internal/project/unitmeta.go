package project

import (
	"pascope/internal/source"
	"pascope/internal/symbols"
)

// UsesMeta is one uses entry as seen by the dependency graph.
type UsesMeta struct {
	Name           string
	Key            string
	Implementation bool
	// Implicit entries are added by the analysis, not written in source.
	Implicit bool
	// Span is the raw [start, end] pair from the model.
	Span []uint32
}

// SourceSpan places the entry in file.
func (u UsesMeta) SourceSpan(file source.FileID) source.Span {
	return SpanOf(file, u.Span)
}

// UnitMeta summarises a unit for ordering and caching.
type UnitMeta struct {
	Name        string
	Key         string // folded unit name, the graph node identity
	Path        string // model file
	Span        source.Span
	Uses        []UsesMeta
	ContentHash Digest
	UnitHash    Digest // content combined with dependency hashes
}

// UnitKey folds a unit name into its graph identity.
func UnitKey(name string) string {
	return symbols.FoldName(name).String()
}

// SpanOf converts a model [start, end] pair into a span in file.
func SpanOf(file source.FileID, sp []uint32) source.Span {
	if len(sp) != 2 {
		return source.Span{File: file}
	}
	return source.Span{File: file, Start: sp[0], End: sp[1]}
}
