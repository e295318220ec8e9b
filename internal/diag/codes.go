package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Semantic: scope and name resolution.
	SemaInfo                 Code = 3000
	SemaError                Code = 3001
	SemaDuplicateDeclaration Code = 3002
	SemaInvalidDeclKind      Code = 3003
	SemaUnresolvedName       Code = 3004
	SemaAmbiguousName        Code = 3005
	SemaUnresolvedType       Code = 3006
	SemaBadForward           Code = 3007
	SemaUnresolvedWithTarget Code = 3008
	SemaMemberOfUnscoped     Code = 3009
	SemaInvariantViolation   Code = 3010

	// I/O.
	IOLoadFileError  Code = 4001
	IODecodeError    Code = 4002
	IOCacheError     Code = 4003
	IOManifestError  Code = 4004
	IOModelMalformed Code = 4005

	// Project: unit graph.
	ProjInfo             Code = 5000
	ProjDuplicateUnit    Code = 5001
	ProjMissingUnit      Code = 5002
	ProjSelfImport       Code = 5003
	ProjInterfaceCycle   Code = 5004
	ProjDependencyFailed Code = 5005
)

var codeDescription = map[Code]string{
	UnknownCode:              "unknown error",
	SemaInfo:                 "semantic information",
	SemaError:                "semantic error",
	SemaDuplicateDeclaration: "duplicate declaration",
	SemaInvalidDeclKind:      "declaration kind not allowed in scope",
	SemaUnresolvedName:       "unresolved name",
	SemaAmbiguousName:        "ambiguous name",
	SemaUnresolvedType:       "unresolved type reference",
	SemaBadForward:           "invalid forward declaration completion",
	SemaUnresolvedWithTarget: "unresolved with-statement target",
	SemaMemberOfUnscoped:     "member access through a type without members",
	SemaInvariantViolation:   "symbol table invariant violation",
	IOLoadFileError:          "failed to load file",
	IODecodeError:            "failed to decode unit model",
	IOCacheError:             "disk cache error",
	IOManifestError:          "invalid project manifest",
	IOModelMalformed:         "malformed unit model",
	ProjInfo:                 "project information",
	ProjDuplicateUnit:        "duplicate unit",
	ProjMissingUnit:          "missing unit",
	ProjSelfImport:           "unit uses itself",
	ProjInterfaceCycle:       "circular unit reference",
	ProjDependencyFailed:     "dependency has errors",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
