// Package driver runs the report pipeline: discover artifact pairs, decode
// them on a bounded worker pool, merge into one aggregate, and render,
// short-circuiting through the fingerprint cache on an exact repeat.
package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"covr/internal/gcov"
	"covr/internal/observ"
	"covr/internal/progress"
	"covr/internal/render"
	"covr/internal/report"
	"covr/internal/sourcepath"
)

// GenerateOptions configures one report generation call. Everything here
// arrives validated from the CLI layer.
type GenerateOptions struct {
	// CovDir is the coverage build path holding graph/count pairs.
	CovDir string
	// ProjectRoot anchors relative source paths and Local classification.
	ProjectRoot string
	// TemplatesRoot optionally holds on-disk template packages.
	TemplatesRoot string
	// Template names the template package, default "html".
	Template string
	// Filter is the classification allow-set.
	Filter sourcepath.Set
	// Roots are the classification prefixes.
	Roots sourcepath.Roots
	// CountExcluded keeps filtered files in the whole-program totals.
	CountExcluded bool
	// TargetTriple disambiguates the counter width for count files whose
	// header does not declare one.
	TargetTriple string
	// Jobs bounds decode and render parallelism; 0 means GOMAXPROCS.
	Jobs int
	// Progress receives pipeline events, may be nil.
	Progress progress.Sink
	// Timer records phase durations, may be nil.
	Timer *observ.Timer
	// Warnf reports soft failures (orphan count files), may be nil.
	Warnf func(format string, args ...any)
}

func (o *GenerateOptions) warnf(format string, args ...any) {
	if o.Warnf != nil {
		o.Warnf(format, args...)
	}
}

type phase struct {
	timer *observ.Timer
	idx   int
}

func beginPhase(t *observ.Timer, name string) phase {
	if t == nil {
		return phase{idx: -1}
	}
	return phase{timer: t, idx: t.Begin(name)}
}

func (p phase) end(note string) {
	if p.timer != nil {
		p.timer.End(p.idx, note)
	}
}

// Result is the outcome of one Generate call. Entry is the report's entry
// page path, "" when no source file passed the inclusion filter; Cached
// reports a fingerprint hit that skipped rendering.
type Result struct {
	Entry  string
	Cached bool
}

// Generate runs the full pipeline. Any fatal decode error aborts the call;
// no partial report tree is ever left behind looking complete.
func Generate(ctx context.Context, opts GenerateOptions) (Result, error) {
	ph := beginPhase(opts.Timer, "discover")
	pairs, orphans, err := gcov.FindPairs(opts.CovDir)
	ph.end(fmt.Sprintf("%d pairs", len(pairs)))
	if err != nil {
		return Result{}, err
	}
	for _, orphan := range orphans {
		opts.warnf("count file %q has no matching graph file; run `covr build` first", orphan)
	}
	if len(pairs) == 0 {
		return Result{}, nil
	}

	fp, err := report.ComputeFingerprint(pairs, templateName(opts), opts.Filter, opts.CountExcluded)
	if err != nil {
		return Result{}, err
	}
	cache := report.OpenCache(opts.CovDir)
	if entry, ok := cache.Lookup(fp); ok {
		return Result{Entry: entry, Cached: true}, nil
	}

	snap, err := decodeAndAggregate(ctx, pairs, opts)
	if err != nil {
		return Result{}, err
	}

	ph = beginPhase(opts.Timer, "render")
	entry, err := render.Render(ctx, snap, render.Options{
		CovDir:        opts.CovDir,
		TemplatesRoot: opts.TemplatesRoot,
		Template:      opts.Template,
		ProjectRoot:   opts.ProjectRoot,
		Jobs:          opts.Jobs,
		Progress:      opts.Progress,
	})
	ph.end(fmt.Sprintf("%d pages", len(snap.Files)))
	if err != nil {
		return Result{}, err
	}
	if entry == "" {
		return Result{}, nil
	}

	if err := cache.Record(fp, entry); err != nil {
		// The report itself is complete; a stale index only costs the
		// next run a re-render.
		opts.warnf("failed to record report fingerprint: %v", err)
	}
	return Result{Entry: entry}, nil
}

func templateName(opts GenerateOptions) string {
	if opts.Template == "" {
		return "html"
	}
	return opts.Template
}

// decodeAndAggregate fans decoding out over an errgroup and funnels every
// decoded unit into a single merging goroutine. The aggregator is the sole
// piece of shared mutable state and only that goroutine touches it.
func decodeAndAggregate(ctx context.Context, pairs []gcov.Pair, opts GenerateOptions) (*report.Snapshot, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	hint := gcov.WidthForTriple(opts.TargetTriple)

	ph := beginPhase(opts.Timer, "decode+merge")
	defer func() { ph.end(fmt.Sprintf("%d units", len(pairs))) }()

	agg := report.NewAggregator(report.Options{
		Filter:        opts.Filter,
		Roots:         opts.Roots,
		CountExcluded: opts.CountExcluded,
	})

	units := make(chan *gcov.Unit, jobs)
	merged := make(chan struct{})
	go func() {
		defer close(merged)
		for unit := range units {
			agg.AddUnit(unit)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(pairs)))
	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			progress.Emit(opts.Progress, progress.Event{File: pair.GraphPath, Stage: progress.StageDecode, Status: progress.StatusWorking})
			unit, err := gcov.DecodePair(pair, hint)
			if err != nil {
				progress.Emit(opts.Progress, progress.Event{File: pair.GraphPath, Stage: progress.StageDecode, Status: progress.StatusError, Err: err})
				return err
			}
			progress.Emit(opts.Progress, progress.Event{File: pair.GraphPath, Stage: progress.StageDecode, Status: progress.StatusDone})
			select {
			case units <- unit:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	err := g.Wait()
	close(units)
	<-merged
	if err != nil {
		return nil, err
	}

	progress.Emit(opts.Progress, progress.Event{Stage: progress.StageMerge, Status: progress.StatusDone})
	return agg.Snapshot(), nil
}
