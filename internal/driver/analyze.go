package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"pascope/internal/binder"
	"pascope/internal/diag"
	"pascope/internal/observ"
	"pascope/internal/project"
	"pascope/internal/project/dag"
	"pascope/internal/source"
	"pascope/internal/symbols"
	"pascope/internal/trace"
)

// Options configure one analysis. Zero values defer to the manifest.
type Options struct {
	// Path is a pascope.toml file or a directory searched upwards for one.
	Path           string
	Jobs           int
	MaxDiagnostics int
	// ReportUnresolved adds info diagnostics for unbound occurrences; the
	// manifest may enable it too.
	ReportUnresolved bool
	// ImplicitUnits overrides [analysis].implicit_units when non-nil.
	ImplicitUnits []string
	// DiskCache enables the resolution cache. Cache, when set, is used
	// instead of the user cache directory.
	DiskCache bool
	Cache     *DiskCache
	Progress  ProgressSink
	Timings   bool
}

func (o Options) merge(m *project.Manifest) Options {
	if o.Jobs <= 0 {
		o.Jobs = m.Analysis.Jobs
	}
	if o.Jobs <= 0 {
		o.Jobs = runtime.GOMAXPROCS(0)
	}
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = m.Analysis.MaxDiagnostics
	}
	o.ReportUnresolved = o.ReportUnresolved || m.Analysis.ReportUnresolved
	if o.ImplicitUnits == nil {
		o.ImplicitUnits = m.Analysis.ImplicitUnits
	}
	o.DiskCache = o.DiskCache || m.Analysis.Cache || o.Cache != nil
	return o
}

// UnitResult is the outcome for one unit model file.
type UnitResult struct {
	Name string // empty when the model failed to load
	Path string
	// Rel is Path relative to the project root; progress events use it.
	Rel  string
	File source.FileID
	Meta project.UnitMeta
	Unit *binder.Unit
	Bag  *diag.Bag
	// Records holds one entry per occurrence, in model order.
	Records []binder.Record
	// Cached is set when resolutions came from the disk cache.
	Cached bool
	// Duplicate is set for a second model declaring an already seen unit.
	Duplicate bool

	model       *project.UnitModel
	id          dag.UnitID
	resolutions []binder.Resolution
	rep         diag.Reporter
}

func (u *UnitResult) reporter() diag.Reporter { return u.rep }

func newUnitResult(path, rel string, maxDiagnostics int) *UnitResult {
	bag := diag.NewBag(maxDiagnostics)
	return &UnitResult{
		Path: path,
		Rel:  rel,
		Bag:  bag,
		// resolve workers may report cache problems while the main
		// goroutine reports graph findings for other units
		rep: diag.NewLockedReporter(diag.NewDedupReporter(diag.BagReporter{Bag: bag})),
	}
}

// Result is the outcome of Analyze.
type Result struct {
	Manifest *project.Manifest
	Root     string
	FileSet  *source.FileSet
	Table    *symbols.Table
	Index    dag.UnitIndex
	Graph    dag.Graph
	Topo     *dag.Topo
	// Units lists analysed units in build order, followed by duplicates
	// and models that failed to load.
	Units []*UnitResult
	// Timer is nil unless Options.Timings was set.
	Timer       *observ.Timer
	CacheHits   int
	CacheMisses int
}

// HasErrors reports whether any unit has an error diagnostic.
func (r *Result) HasErrors() bool {
	for _, u := range r.Units {
		if u.Bag.HasErrors() {
			return true
		}
	}
	return false
}

// Diagnostics merges every unit's diagnostics into one sorted bag.
func (r *Result) Diagnostics() *diag.Bag {
	out := diag.NewBag(0)
	for _, u := range r.Units {
		out.Merge(u.Bag)
	}
	out.Sort()
	return out
}

// Records returns all resolution records in unit order.
func (r *Result) Records() []binder.Record {
	var out []binder.Record
	for _, u := range r.Units {
		out = append(out, u.Records...)
	}
	return out
}

// Unit finds a unit by name, ignoring case.
func (r *Result) Unit(name string) *UnitResult {
	for _, u := range r.Units {
		if u.Name != "" && strings.EqualFold(u.Name, name) {
			return u
		}
	}
	return nil
}

// Analyze loads the project at opts.Path, binds every occurrence of every
// unit and returns per-unit diagnostics and resolution records.
func Analyze(ctx context.Context, opts Options) (*Result, error) {
	return run(ctx, opts, true)
}

// Plan loads the project and orders its units without binding anything.
func Plan(ctx context.Context, opts Options) (*Result, error) {
	return run(ctx, opts, false)
}

type analysis struct {
	opts    Options
	res     *Result
	binder  *binder.Binder
	labels  *binder.Labels
	cache   *DiskCache
	optsKey project.Digest

	loaded []*UnitResult
	failed []*UnitResult
	order  []*UnitResult
	slots  []dag.UnitSlot
}

func run(ctx context.Context, opts Options, bind bool) (*Result, error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "analyze")
	defer span.End("")

	m, err := OpenProject(opts.Path)
	if err != nil {
		return nil, err
	}
	root, err := m.RootDir()
	if err != nil {
		return nil, err
	}
	opts = opts.merge(m)
	span.WithExtra("root", root)

	a := &analysis{
		opts: opts,
		res: &Result{
			Manifest: m,
			Root:     root,
			FileSet:  source.NewFileSetWithBase(root),
		},
	}
	if opts.Timings {
		a.res.Timer = observ.NewTimer()
	}

	if err := a.load(ctx); err != nil {
		return a.res, err
	}
	a.graph(ctx)
	if !bind {
		a.finish()
		return a.res, nil
	}
	if err := ctx.Err(); err != nil {
		return a.res, err
	}

	a.openCache()
	a.res.Table = symbols.NewTable(symbols.Hints{Scopes: 64, Decls: 256, Occurrences: 1024})
	a.binder = binder.New(a.res.Table, symbols.NewRegistry(), binder.Options{
		ImplicitUnits:    opts.ImplicitUnits,
		ReportUnresolved: opts.ReportUnresolved,
	})

	a.build(ctx)
	a.link(ctx)
	if err := ctx.Err(); err != nil {
		return a.res, err
	}
	if err := a.resolve(ctx); err != nil {
		return a.res, err
	}
	bindErr := a.bindAll(ctx)
	a.finish()
	if bindErr != nil {
		return a.res, bindErr
	}
	if err := a.binder.Validate(); err != nil {
		return a.res, fmt.Errorf("symbol table: %w", err)
	}
	return a.res, nil
}

// phase opens a timed, traced pipeline phase.
func (a *analysis) phase(ctx context.Context, stage Stage) (context.Context, func(note string)) {
	ctx, span := trace.Start(ctx, trace.ScopePhase, string(stage))
	idx := -1
	if a.res.Timer != nil {
		idx = a.res.Timer.Begin(string(stage))
	}
	start := time.Now()
	emit(a.opts.Progress, Event{Stage: stage, Status: StatusWorking})
	return ctx, func(note string) {
		if a.res.Timer != nil {
			a.res.Timer.End(idx, note)
		}
		span.End(note)
		emit(a.opts.Progress, Event{Stage: stage, Status: StatusDone, Elapsed: time.Since(start)})
	}
}

func (a *analysis) count(name string, n int) {
	if a.res.Timer != nil {
		a.res.Timer.Add(name, int64(n))
	}
}

func (a *analysis) load(ctx context.Context) error {
	ctx, done := a.phase(ctx, StageLoad)
	paths, err := a.res.Manifest.UnitFiles()
	if err != nil {
		done("failed")
		return err
	}
	items, err := loadModels(ctx, a.res.Root, paths, a.opts.Jobs, a.opts.Progress)
	if err != nil {
		done("canceled")
		return err
	}

	// the file set is not safe for concurrent use; files are added here
	for _, it := range items {
		ur := newUnitResult(it.path, it.rel, a.opts.MaxDiagnostics)
		if it.err != nil {
			ur.File = a.res.FileSet.AddVirtual(it.path, nil)
			diag.ReportError(ur.reporter(), loadErrorCode(it.err), source.Span{File: ur.File}, it.err.Error()).Emit()
			a.failed = append(a.failed, ur)
			continue
		}
		ur.model = it.model
		ur.Name = it.model.Unit.Name
		ur.File = a.sourceFile(it.model)
		ur.Meta = a.meta(it.model, ur.File)
		a.loaded = append(a.loaded, ur)
	}
	a.count("units", len(items))
	done(fmt.Sprintf("units=%d failed=%d", len(a.loaded), len(a.failed)))
	return nil
}

func loadErrorCode(err error) diag.Code {
	switch {
	case errors.Is(err, project.ErrMalformedModel):
		return diag.IOModelMalformed
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return diag.IOLoadFileError
	default:
		return diag.IODecodeError
	}
}

// sourceFile registers the Pascal source a model was produced from. When it
// cannot be read, spans point into an empty file named after the model.
func (a *analysis) sourceFile(m *project.UnitModel) source.FileID {
	if src := m.Unit.Source; src != "" {
		if !filepath.IsAbs(src) {
			src = filepath.Join(filepath.Dir(m.Path), filepath.FromSlash(src))
		}
		if id, err := a.res.FileSet.Load(src); err == nil {
			return id
		}
	}
	return a.res.FileSet.AddVirtual(m.Path, nil)
}

// meta adds the implicit units to a model's uses so they take part in
// ordering and in dependency hashes.
func (a *analysis) meta(m *project.UnitModel, file source.FileID) project.UnitMeta {
	meta := m.Meta()
	meta.Span = project.SpanOf(file, m.Unit.Span)
	for _, name := range a.opts.ImplicitUnits {
		key := project.UnitKey(name)
		if key == meta.Key || usesKey(meta.Uses, key) {
			continue
		}
		meta.Uses = append(meta.Uses, project.UsesMeta{Name: name, Key: key, Implicit: true})
	}
	return meta
}

func usesKey(uses []project.UsesMeta, key string) bool {
	for _, u := range uses {
		if u.Key == key {
			return true
		}
	}
	return false
}

func (a *analysis) graph(ctx context.Context) {
	_, done := a.phase(ctx, StageGraph)

	metas := make([]project.UnitMeta, len(a.loaded))
	nodes := make([]dag.UnitNode, len(a.loaded))
	for i, ur := range a.loaded {
		metas[i] = ur.Meta
		nodes[i] = dag.UnitNode{Meta: ur.Meta, Reporter: ur.reporter()}
	}
	idx := dag.BuildIndex(metas)
	g, slots := dag.BuildGraph(idx, nodes)
	topo := dag.ToposortKahn(g)
	dag.ReportCycles(idx, slots, topo)
	dag.ComputeHashes(g, slots)

	byPath := make(map[string]*UnitResult, len(a.loaded))
	for _, ur := range a.loaded {
		byPath[ur.Path] = ur
	}
	placed := make(map[*UnitResult]bool, len(a.loaded))
	for _, id := range topo.BuildOrder() {
		ur, ok := byPath[slots[int(id)].Meta.Path]
		if !ok {
			continue
		}
		ur.Meta = slots[int(id)].Meta
		ur.id = id
		placed[ur] = true
		a.order = append(a.order, ur)
	}

	a.res.Units = append(a.res.Units, a.order...)
	for _, ur := range a.loaded {
		if !placed[ur] {
			ur.Duplicate = true
			a.res.Units = append(a.res.Units, ur)
		}
	}
	a.res.Units = append(a.res.Units, a.failed...)

	a.res.Index, a.res.Graph, a.res.Topo = idx, g, topo
	a.slots = slots
	done(fmt.Sprintf("batches=%d cyclic=%t", len(topo.Batches), topo.Cyclic))
}

func (a *analysis) build(ctx context.Context) {
	ctx, done := a.phase(ctx, StageBuild)
	aborted := 0
	for _, ur := range a.order {
		_, span := trace.Start(ctx, trace.ScopeUnit, "build")
		span.WithExtra("unit", ur.Name)
		start := time.Now()
		emit(a.opts.Progress, Event{Unit: ur.Rel, Stage: StageBuild, Status: StatusWorking})

		u, err := a.binder.Build(ur.model, ur.File, ur.reporter())
		ur.Unit = u

		status := StatusDone
		if err != nil {
			status = StatusError
			aborted++
		}
		emit(a.opts.Progress, Event{Unit: ur.Rel, Stage: StageBuild, Status: status, Err: err, Elapsed: time.Since(start)})
		span.End(string(status))

		slot := &a.slots[int(ur.id)]
		slot.Broken = ur.Bag.HasErrors()
		slot.FirstErr = ur.Bag.FirstError()
	}
	dag.ReportBrokenDeps(a.res.Index, a.slots)
	done(fmt.Sprintf("aborted=%d", aborted))
}

// live lists units that built without a structural error.
func (a *analysis) live() []*UnitResult {
	out := make([]*UnitResult, 0, len(a.order))
	for _, ur := range a.order {
		if ur.Unit != nil && !ur.Unit.Aborted {
			out = append(out, ur)
		}
	}
	return out
}

func (a *analysis) link(ctx context.Context) {
	_, done := a.phase(ctx, StageLink)
	units := make([]*binder.Unit, 0, len(a.order))
	for _, ur := range a.order {
		units = append(units, ur.Unit)
	}
	a.binder.LinkAll(units)
	a.labels = binder.NewLabels(units)
	for _, ur := range a.live() {
		emit(a.opts.Progress, Event{Unit: ur.Rel, Stage: StageLink, Status: StatusDone})
	}
	done("")
}

func (a *analysis) resolve(ctx context.Context) error {
	ctx, done := a.phase(ctx, StageResolve)
	live := a.live()
	if len(live) == 0 {
		done("")
		return nil
	}

	var hits, misses atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(a.opts.Jobs, len(live)))
	for _, ur := range live {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			_, span := trace.Start(gctx, trace.ScopeUnit, "resolve")
			span.WithExtra("unit", ur.Name)
			start := time.Now()
			emit(a.opts.Progress, Event{Unit: ur.Rel, Stage: StageResolve, Status: StatusWorking})

			// the unit's bag is only touched by this goroutine during resolve
			status := StatusDone
			if res, ok := a.fromCache(ur); ok {
				ur.resolutions, ur.Cached = res, true
				status = StatusCached
				hits.Add(1)
			} else {
				ur.resolutions = a.binder.Resolve(ur.Unit, symbols.NewSpecializationCache(a.res.Table))
				if a.cache != nil {
					misses.Add(1)
					a.toCache(ur)
				}
			}

			emit(a.opts.Progress, Event{Unit: ur.Rel, Stage: StageResolve, Status: status, Elapsed: time.Since(start)})
			span.End(string(status))
			return nil
		})
	}
	err := g.Wait()

	a.res.CacheHits, a.res.CacheMisses = int(hits.Load()), int(misses.Load())
	a.count("cache.hits", a.res.CacheHits)
	a.count("cache.misses", a.res.CacheMisses)
	done(fmt.Sprintf("units=%d cached=%d", len(live), a.res.CacheHits))
	return err
}

func (a *analysis) bindAll(ctx context.Context) error {
	ctx, done := a.phase(ctx, StageBind)
	var errs []error
	occurrences := 0
	for _, ur := range a.live() {
		_, span := trace.Start(ctx, trace.ScopeUnit, "bind")
		span.WithExtra("unit", ur.Name)
		emit(a.opts.Progress, Event{Unit: ur.Rel, Stage: StageBind, Status: StatusWorking})

		status := StatusDone
		if err := a.binder.Bind(ur.Unit, ur.resolutions); err != nil {
			status = StatusError
			errs = append(errs, err)
		}
		ur.Records = a.binder.Records(ur.Unit, ur.resolutions, a.labels)
		occurrences += len(ur.Records)
		span.End(string(status))
	}
	a.count("occurrences", occurrences)
	done(fmt.Sprintf("occurrences=%d", occurrences))
	return errors.Join(errs...)
}

// finish sends the terminal event of every unit.
func (a *analysis) finish() {
	for _, ur := range a.res.Units {
		status := StatusDone
		if ur.Bag.HasErrors() {
			status = StatusError
		}
		emit(a.opts.Progress, Event{Unit: ur.Rel, Stage: StageBind, Status: status})
	}
}
