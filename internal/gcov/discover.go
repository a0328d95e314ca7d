package gcov

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// GraphExt is the graph file extension.
	GraphExt = ".gcno"
	// CountExt is the count file extension.
	CountExt = ".gcda"
)

// Pair is one discovered compilation unit: a graph file and, when the
// instrumented program has run, its count file.
type Pair struct {
	GraphPath string
	CountPath string // empty when the unit never ran
}

// Unit is one fully decoded pair, ready for aggregation.
type Unit struct {
	Graph  *GraphFile
	Counts *Counts
}

// FindPairs walks the coverage build path and pairs graph files with count
// files by base name. Count files without a graph file are returned as
// orphans for the caller to warn about; they cannot be decoded without the
// graph shape.
func FindPairs(dir string) (pairs []Pair, orphans []string, err error) {
	graphs := map[string]string{}
	counts := map[string]string{}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case GraphExt:
			graphs[strings.TrimSuffix(path, GraphExt)] = path
		case CountExt:
			counts[strings.TrimSuffix(path, CountExt)] = path
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan %q for coverage artifacts: %w", dir, err)
	}

	bases := make([]string, 0, len(graphs))
	for base := range graphs {
		bases = append(bases, base)
	}
	sort.Strings(bases)

	for _, base := range bases {
		pairs = append(pairs, Pair{GraphPath: graphs[base], CountPath: counts[base]})
	}
	for base, path := range counts {
		if _, ok := graphs[base]; !ok {
			orphans = append(orphans, path)
		}
	}
	sort.Strings(orphans)
	return pairs, orphans, nil
}

// DecodePair reads and decodes one pair. A pair without a count file
// decodes to all-zero counters (compiled but never executed).
func DecodePair(pair Pair, hint CounterWidth) (*Unit, error) {
	graphData, err := os.ReadFile(pair.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %q: %w", pair.GraphPath, err)
	}
	graph, err := DecodeGraph(pair.GraphPath, graphData)
	if err != nil {
		return nil, err
	}

	if pair.CountPath == "" {
		return &Unit{Graph: graph, Counts: ZeroCounts(graph)}, nil
	}

	countData, err := os.ReadFile(pair.CountPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read count file %q: %w", pair.CountPath, err)
	}
	counts, err := DecodeCounts(graph, pair.CountPath, countData, hint)
	if err != nil {
		return nil, err
	}
	return &Unit{Graph: graph, Counts: counts}, nil
}
