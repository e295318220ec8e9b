package driver

import (
	"strings"

	"pascope/internal/binder"
	"pascope/internal/diag"
	"pascope/internal/project"
	"pascope/internal/source"
	"pascope/internal/symbols"
)

// openCache enables the disk cache when requested. A cache that cannot be
// opened only costs speed, so the failure is reported as a warning on the
// first unit.
func (a *analysis) openCache() {
	if !a.opts.DiskCache {
		return
	}
	a.cache = a.opts.Cache
	if a.cache == nil {
		c, err := OpenDiskCache("pascope")
		if err != nil {
			if len(a.order) > 0 {
				ur := a.order[0]
				diag.ReportWarning(ur.reporter(), diag.IOCacheError, source.Span{File: ur.File},
					"disk cache disabled: "+err.Error()).Emit()
			}
			return
		}
		a.cache = c
	}
	a.optsKey = optionsKey(a.opts.ImplicitUnits)
}

// optionsKey hashes the settings that change resolutions besides unit
// contents.
func optionsKey(implicit []string) project.Digest {
	keys := make([]string, len(implicit))
	for i, name := range implicit {
		keys[i] = symbols.FoldName(name).String()
	}
	return project.DigestOf([]byte("implicit=" + strings.Join(keys, ",")))
}

func (a *analysis) cacheKey(ur *UnitResult) (project.Digest, bool) {
	if a.cache == nil || ur.Meta.UnitHash.IsZero() {
		return project.Digest{}, false
	}
	return project.Combine(ur.Meta.UnitHash, a.optsKey), true
}

func (a *analysis) fromCache(ur *UnitResult) ([]binder.Resolution, bool) {
	key, ok := a.cacheKey(ur)
	if !ok {
		return nil, false
	}
	var payload DiskPayload
	found, err := a.cache.Get(key, &payload)
	if err != nil {
		a.cacheWarning(ur, "read", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	return a.labels.Restore(ur.Unit, payload.Resolutions)
}

func (a *analysis) toCache(ur *UnitResult) {
	key, ok := a.cacheKey(ur)
	if !ok {
		return
	}
	stored, ok := a.labels.Store(ur.Unit, ur.resolutions)
	if !ok {
		return
	}
	payload := &DiskPayload{
		Unit:        ur.Name,
		Path:        ur.Rel,
		UnitHash:    ur.Meta.UnitHash,
		Resolutions: stored,
	}
	if err := a.cache.Put(key, payload); err != nil {
		a.cacheWarning(ur, "write", err)
	}
}

func (a *analysis) cacheWarning(ur *UnitResult, op string, err error) {
	diag.ReportWarning(ur.reporter(), diag.IOCacheError, source.Span{File: ur.File},
		"disk cache "+op+" failed: "+err.Error()).Emit()
}
