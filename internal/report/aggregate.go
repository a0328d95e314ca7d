package report

import (
	"path/filepath"
	"sort"

	"covr/internal/gcov"
	"covr/internal/sourcepath"
	"covr/internal/symbol"
)

// Options configures one aggregation run. The inclusion filter is an
// explicit parameter here, never package state.
type Options struct {
	Filter sourcepath.Set
	Roots  sourcepath.Roots

	// CountExcluded keeps filtered-out files contributing to the
	// whole-program totals even though they get no report page.
	CountExcluded bool
}

type lineAccum struct {
	count         uint64
	branchesTaken int
	branchesTotal int
	hasBranches   bool
}

type fileAccum struct {
	path     string
	class    sourcepath.Classification
	admitted bool
	lines    map[uint32]*lineAccum
	funcs    *symbol.Table
}

// Aggregator merges decoded units into per-file, per-line counts. Counts
// from units that map to the same logical source file always sum, never
// overwrite. Callers must serialize AddUnit; the generate pipeline feeds
// one merging goroutine from its decode workers.
type Aggregator struct {
	opts  Options
	files map[string]*fileAccum
}

// NewAggregator returns an empty aggregator.
func NewAggregator(opts Options) *Aggregator {
	return &Aggregator{opts: opts, files: make(map[string]*fileAccum)}
}

// AddUnit merges one decoded (graph, counts) pair.
func (a *Aggregator) AddUnit(u *gcov.Unit) {
	for i := range u.Graph.Functions {
		fn := &u.Graph.Functions[i]
		fc := &u.Counts.Functions[i]
		a.addFunction(fn, fc)
	}
}

func (a *Aggregator) addFunction(fn *gcov.Function, fc *gcov.FunctionCounts) {
	path := filepath.ToSlash(fn.File)
	fa, ok := a.files[path]
	if !ok {
		class := a.opts.Roots.Classify(fn.File)
		admitted := a.opts.Filter.Admits(class)
		if !admitted && !a.opts.CountExcluded {
			// Nothing will ever read this file's counts; record the
			// decision so repeat functions skip classification.
			a.files[path] = &fileAccum{path: path, class: class}
			return
		}
		fa = &fileAccum{
			path:     path,
			class:    class,
			admitted: admitted,
			lines:    make(map[uint32]*lineAccum),
			funcs:    symbol.NewTable(),
		}
		a.files[path] = fa
	}
	if fa.lines == nil {
		return
	}

	var fnLines []uint32
	for b := range fn.Blocks {
		block := &fn.Blocks[b]
		for _, line := range block.Lines {
			fa.line(line).count += fc.Blocks[b]
			fnLines = append(fnLines, line)
		}
		a.addBranches(fn, fc, fa, uint32(b))
	}

	var entryCount uint64
	if len(fc.Blocks) > 0 {
		entryCount = fc.Blocks[0]
	}
	fa.funcs.Add(fn.Name, path, fn.StartLine, entryCount, fnLines)
}

// addBranches attributes a block's outgoing branch arcs to the last line
// the block covers. Blocks with fewer than two real outgoing arcs are not
// branch points; blocks with no attributed line have nowhere to surface.
func (a *Aggregator) addBranches(fn *gcov.Function, fc *gcov.FunctionCounts, fa *fileAccum, block uint32) {
	lines := fn.Blocks[block].Lines
	if len(lines) == 0 {
		return
	}
	total, taken := 0, 0
	for i, arc := range fn.Arcs {
		if arc.Src != block || arc.Fake() {
			continue
		}
		total++
		if fc.Arcs[i] > 0 {
			taken++
		}
	}
	if total < 2 {
		return
	}
	la := fa.line(lines[len(lines)-1])
	la.hasBranches = true
	la.branchesTaken += taken
	la.branchesTotal += total
}

func (fa *fileAccum) line(n uint32) *lineAccum {
	la, ok := fa.lines[n]
	if !ok {
		la = &lineAccum{}
		fa.lines[n] = la
	}
	return la
}

// Snapshot freezes the current state into an immutable result. Only
// admitted files get a FileReport; excluded files enter Total when
// CountExcluded is set.
func (a *Aggregator) Snapshot() *Snapshot {
	snap := &Snapshot{}
	for _, fa := range a.files {
		if fa.lines == nil {
			continue
		}
		summary := fa.summary()
		if fa.admitted {
			snap.Files = append(snap.Files, fa.report(summary))
			snap.Total.add(summary)
		} else if a.opts.CountExcluded {
			snap.Total.add(summary)
		}
	}
	sort.Slice(snap.Files, func(i, j int) bool {
		return naturalPathLess(snap.Files[i].Path, snap.Files[j].Path)
	})
	return snap
}

func (fa *fileAccum) summary() Summary {
	var s Summary
	for _, la := range fa.lines {
		s.LinesInstrumented++
		if la.count > 0 {
			s.LinesCovered++
		}
		s.BranchesTaken += la.branchesTaken
		s.BranchesTotal += la.branchesTotal
	}
	return s
}

func (fa *fileAccum) report(summary Summary) *FileReport {
	fr := &FileReport{
		Path:      fa.path,
		Class:     fa.class,
		Functions: fa.funcs.Records(),
		Summary:   summary,
	}
	fr.Lines = make([]LineCoverage, 0, len(fa.lines))
	for n, la := range fa.lines {
		fr.Lines = append(fr.Lines, LineCoverage{
			Line:          n,
			Count:         la.count,
			HasBranches:   la.hasBranches,
			BranchesTaken: la.branchesTaken,
			BranchesTotal: la.branchesTotal,
		})
	}
	sort.Slice(fr.Lines, func(i, j int) bool { return fr.Lines[i].Line < fr.Lines[j].Line })
	return fr
}
