package symbol

import "sort"

// Record is one logical source function after instance merging.
type Record struct {
	Name      string // demangled display name
	File      string // declared source path
	StartLine uint32
	Count     uint64          // summed execution count across instances
	Lines     map[uint32]bool // lines any instance contributed to
}

type key struct {
	name string
	file string
	line uint32
}

// Table merges function instances that demangle to the same base name and
// share the declared file and start line. The triple is a heuristic, not a
// provably unique key: two distinct generic instantiations that happen to
// coincide on it will merge as one. The source format gives nothing
// stronger to key on.
type Table struct {
	records map[key]*Record
}

// NewTable returns an empty merge table.
func NewTable() *Table {
	return &Table{records: make(map[key]*Record)}
}

// Add merges one function instance into the table. rawName may be mangled.
func (t *Table) Add(rawName, file string, startLine uint32, count uint64, lines []uint32) {
	name := Demangle(rawName)
	k := key{name: name, file: file, line: startLine}
	rec, ok := t.records[k]
	if !ok {
		rec = &Record{Name: name, File: file, StartLine: startLine, Lines: make(map[uint32]bool)}
		t.records[k] = rec
	}
	rec.Count += count
	for _, line := range lines {
		rec.Lines[line] = true
	}
}

// Records returns the merged functions ordered by file, start line, name.
func (t *Table) Records() []*Record {
	out := make([]*Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].StartLine != out[j].StartLine {
			return out[i].StartLine < out[j].StartLine
		}
		return out[i].Name < out[j].Name
	})
	return out
}
