package driver

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"pascope/internal/project"
	"pascope/internal/trace"
)

type loaded struct {
	path  string
	rel   string
	model *project.UnitModel
	err   error
}

// loadModels decodes and checks unit models in parallel. Results keep the
// order of paths; per-model failures are carried in loaded.err.
func loadModels(ctx context.Context, root string, paths []string, jobs int, sink ProgressSink) ([]loaded, error) {
	results := make([]loaded, len(paths))
	for i, path := range paths {
		results[i] = loaded{path: path, rel: relTo(root, path)}
		emit(sink, Event{Unit: results[i].rel, Stage: StageLoad, Status: StatusQueued})
	}
	if len(paths) == 0 {
		return results, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i := range results {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			item := &results[i]
			_, span := trace.Start(gctx, trace.ScopeUnit, "load")
			span.WithExtra("path", item.rel)
			start := time.Now()
			emit(sink, Event{Unit: item.rel, Stage: StageLoad, Status: StatusWorking})

			// each goroutine owns results[i]
			item.model, item.err = project.LoadUnitModel(item.path)
			if item.err == nil {
				item.err = item.model.Check()
			}

			status := StatusDone
			if item.err != nil {
				status = StatusError
			}
			emit(sink, Event{Unit: item.rel, Stage: StageLoad, Status: status, Err: item.err, Elapsed: time.Since(start)})
			span.End(string(status))
			return nil
		})
	}
	return results, g.Wait()
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
