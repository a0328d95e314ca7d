// Package report aggregates decoded coverage units into one per-line model
// and drives report generation end to end: discovery, parallel decode,
// merge, cache check, render.
package report

import (
	"covr/internal/sourcepath"
	"covr/internal/symbol"
)

// LineCoverage is the merged result for one instrumented source line.
// Lines that never appear in any graph file are not instrumentable and get
// no LineCoverage at all; that is a different state from "instrumented,
// count 0".
type LineCoverage struct {
	Line  uint32
	Count uint64

	// Branch data, present when any block ending on this line branches.
	HasBranches   bool
	BranchesTaken int
	BranchesTotal int
}

// Summary is the covered/instrumentable tally of one file or of the whole
// report. Not-instrumentable lines never enter the denominators.
type Summary struct {
	LinesCovered      int
	LinesInstrumented int
	BranchesTaken     int
	BranchesTotal     int
}

func (s *Summary) add(o Summary) {
	s.LinesCovered += o.LinesCovered
	s.LinesInstrumented += o.LinesInstrumented
	s.BranchesTaken += o.BranchesTaken
	s.BranchesTotal += o.BranchesTotal
}

// LinePercent is the covered-line percentage, 100 for files with nothing
// instrumentable.
func (s Summary) LinePercent() float64 {
	if s.LinesInstrumented == 0 {
		return 100
	}
	return float64(s.LinesCovered) * 100 / float64(s.LinesInstrumented)
}

// BranchPercent is the taken-branch percentage, 100 when there are no
// branches.
func (s Summary) BranchPercent() float64 {
	if s.BranchesTotal == 0 {
		return 100
	}
	return float64(s.BranchesTaken) * 100 / float64(s.BranchesTotal)
}

// FileReport is the merged coverage of one admitted source file.
type FileReport struct {
	Path      string
	Class     sourcepath.Classification
	Lines     []LineCoverage // ordered by line number
	Functions []*symbol.Record
	Summary   Summary
}

// Snapshot is one immutable aggregation result. It is rebuilt in full on
// every report invocation.
type Snapshot struct {
	Files []*FileReport // natural path order
	Total Summary
}
