package gcov

import (
	"fmt"
	"strings"
)

// CounterWidth is the byte width of the arc counters in a count file.
type CounterWidth int

const (
	// WidthAuto defers to the count-file header, then the target triple.
	WidthAuto CounterWidth = 0
	// Width32 reads 4-byte counters.
	Width32 CounterWidth = 4
	// Width64 reads 8-byte counters.
	Width64 CounterWidth = 8
)

// thirtyTwoBitArches are target-triple architectures whose profile runtime
// emits 32-bit counters when the header leaves the width unspecified.
var thirtyTwoBitArches = map[string]bool{
	"i386": true, "i486": true, "i586": true, "i686": true,
	"arm": true, "armv5te": true, "armv7": true, "thumbv7": true,
	"mips": true, "mipsel": true, "powerpc": true, "x86": true,
}

// WidthForTriple resolves the counter width implied by a target triple.
// An empty or unrecognized triple defaults to 64-bit.
func WidthForTriple(triple string) CounterWidth {
	arch, _, _ := strings.Cut(triple, "-")
	if thirtyTwoBitArches[arch] {
		return Width32
	}
	return Width64
}

// FunctionCounts holds the decoded counters of one function, index-aligned
// with the graph's declarations.
type FunctionCounts struct {
	// Arcs is aligned with Function.Arcs; fake arcs stay zero.
	Arcs []uint64
	// Blocks is the derived per-block execution count.
	Blocks []uint64
}

// Counts is one execution's counters, decoded against a known graph shape.
type Counts struct {
	Path      string
	Stamp     uint32
	Functions []FunctionCounts
}

// ZeroCounts returns the counts of a unit that was compiled but never run:
// every arc declared, every counter zero.
func ZeroCounts(graph *GraphFile) *Counts {
	c := &Counts{Path: "", Stamp: graph.Stamp, Functions: make([]FunctionCounts, len(graph.Functions))}
	for i := range graph.Functions {
		fn := &graph.Functions[i]
		c.Functions[i] = FunctionCounts{
			Arcs:   make([]uint64, len(fn.Arcs)),
			Blocks: make([]uint64, len(fn.Blocks)),
		}
	}
	return c
}

// DecodeCounts decodes a count file against the graph it was emitted for.
// Correspondence between the two is purely positional: the Nth function
// record in the count file carries the counters of the Nth graph function,
// and counters within it follow arc declaration order. The graph's stamp
// must match the count file's or the counts belong to a different build.
func DecodeCounts(graph *GraphFile, path string, data []byte, hint CounterWidth) (*Counts, error) {
	r := newWordReader(path, data)
	stamp, flags, err := r.header(countMagic)
	if err != nil {
		return nil, err
	}
	if stamp != graph.Stamp {
		return nil, &ChecksumMismatchError{
			GraphPath:  graph.Path,
			CountPath:  path,
			GraphStamp: graph.Stamp,
			CountStamp: stamp,
		}
	}

	width, err := counterWidth(path, flags, hint)
	if err != nil {
		return nil, err
	}

	c := ZeroCounts(graph)
	c.Path = path
	c.Stamp = stamp

	fnIndex := -1
	counted := false
	for r.remaining() > 0 {
		tag, rec, err := r.record()
		if err != nil {
			return nil, err
		}
		switch tag {
		case tagFunction:
			ident, err := rec.word()
			if err != nil {
				return nil, err
			}
			fnIndex++
			if fnIndex >= len(graph.Functions) {
				return nil, &FormatError{Path: path, Reason: "more functions than the graph file declares"}
			}
			if want := graph.Functions[fnIndex].Ident; ident != want {
				return nil, &FormatError{Path: path, Reason: fmt.Sprintf("function %d has ident %#x, graph declares %#x", fnIndex, ident, want)}
			}
			counted = false
		case tagCounters:
			if fnIndex < 0 {
				return nil, &FormatError{Path: path, Reason: "counter record before any function"}
			}
			if counted {
				return nil, &FormatError{Path: path, Reason: "duplicate counter record for one function"}
			}
			counted = true
			if err := decodeCountersRecord(rec, &graph.Functions[fnIndex], &c.Functions[fnIndex], width); err != nil {
				return nil, err
			}
		default:
			// Unknown tags (object/program summaries) are skipped.
		}
	}

	for i := range graph.Functions {
		if err := deriveBlockCounts(path, &graph.Functions[i], &c.Functions[i]); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func counterWidth(path string, flags uint32, hint CounterWidth) (int, error) {
	switch {
	case flags&flagCounters64 != 0 && flags&flagCounters32 != 0:
		return 0, &FormatError{Path: path, Reason: "header declares both counter widths"}
	case flags&flagCounters64 != 0:
		return 8, nil
	case flags&flagCounters32 != 0:
		return 4, nil
	case hint == Width32:
		return 4, nil
	default:
		return 8, nil
	}
}

func decodeCountersRecord(r *wordReader, fn *Function, fc *FunctionCounts, width int) error {
	want := fn.CountedArcs()
	if got := r.remaining() / width; got != want {
		return &FormatError{Path: r.path, Reason: fmt.Sprintf("function %q has %d counters, graph declares %d counted arcs", fn.Name, got, want)}
	}
	for i, a := range fn.Arcs {
		if a.Fake() {
			continue
		}
		v, err := r.counter(width)
		if err != nil {
			return err
		}
		fc.Arcs[i] = v
	}
	return nil
}

// deriveBlockCounts turns arc counters into block execution counts and
// verifies flow conservation: outside the entry and exit blocks, what flows
// in must flow out. A violation means the counters are corrupt.
func deriveBlockCounts(path string, fn *Function, fc *FunctionCounts) error {
	if len(fn.Blocks) == 0 {
		return nil
	}
	in := make([]uint64, len(fn.Blocks))
	out := make([]uint64, len(fn.Blocks))
	for i, a := range fn.Arcs {
		if a.Fake() {
			continue
		}
		out[a.Src] += fc.Arcs[i]
		in[a.Dest] += fc.Arcs[i]
	}
	last := len(fn.Blocks) - 1
	for b := range fn.Blocks {
		switch b {
		case 0:
			fc.Blocks[b] = out[b]
		case last:
			fc.Blocks[b] = in[b]
		default:
			if in[b] != out[b] {
				return &FormatError{Path: path, Reason: fmt.Sprintf("function %q block %d: %d in vs %d out (corrupt counters)", fn.Name, b, in[b], out[b])}
			}
			fc.Blocks[b] = in[b]
		}
	}
	return nil
}
