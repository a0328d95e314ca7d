package gcov

import (
	"fortio.org/safecast"
)

// Arc is a directed control-flow edge between two basic blocks of one
// function. Fake arcs are virtual and never carry a counter.
type Arc struct {
	Src   uint32
	Dest  uint32
	Flags uint32
}

// Fake reports whether the arc is virtual.
func (a Arc) Fake() bool { return a.Flags&ArcFake != 0 }

// Block is one basic block. Blocks are numbered in declaration order;
// block 0 is the function entry and the last block is the exit.
type Block struct {
	Index uint32
	Lines []uint32 // source lines attributed to this block, in file order
}

// Function is one instrumented function as declared by a graph file.
type Function struct {
	Ident     uint32
	Name      string // raw, possibly mangled
	File      string // declared source path, as recorded by the compiler
	StartLine uint32
	Blocks    []Block
	Arcs      []Arc // declaration order; counter order for non-fake arcs
}

// CountedArcs returns how many of the function's arcs carry a counter.
func (f *Function) CountedArcs() int {
	n := 0
	for _, a := range f.Arcs {
		if !a.Fake() {
			n++
		}
	}
	return n
}

// GraphFile is the decoded structure of one compilation unit.
type GraphFile struct {
	Path      string
	Stamp     uint32
	Functions []Function
}

// DecodeGraph decodes the raw bytes of a graph file. Pure function of its
// input; unrecognized record tags are skipped by their declared length.
func DecodeGraph(path string, data []byte) (*GraphFile, error) {
	r := newWordReader(path, data)
	stamp, _, err := r.header(graphMagic)
	if err != nil {
		return nil, err
	}

	g := &GraphFile{Path: path, Stamp: stamp}
	var fn *Function

	for r.remaining() > 0 {
		tag, rec, err := r.record()
		if err != nil {
			return nil, err
		}
		switch tag {
		case tagFunction:
			f, err := decodeFunctionRecord(rec)
			if err != nil {
				return nil, err
			}
			g.Functions = append(g.Functions, f)
			fn = &g.Functions[len(g.Functions)-1]
		case tagBlocks:
			if fn == nil {
				return nil, &FormatError{Path: path, Reason: "block record before any function"}
			}
			if err := decodeBlocksRecord(rec, fn); err != nil {
				return nil, err
			}
		case tagArcs:
			if fn == nil {
				return nil, &FormatError{Path: path, Reason: "arc record before any function"}
			}
			if err := decodeArcsRecord(rec, fn); err != nil {
				return nil, err
			}
		case tagLines:
			if fn == nil {
				return nil, &FormatError{Path: path, Reason: "line record before any function"}
			}
			if err := decodeLinesRecord(rec, fn); err != nil {
				return nil, err
			}
		default:
			// Forward compatibility: unknown tags are payload-skipped.
		}
	}
	return g, nil
}

func decodeFunctionRecord(r *wordReader) (Function, error) {
	var f Function
	var err error
	if f.Ident, err = r.word(); err != nil {
		return f, err
	}
	if f.Name, err = r.str(); err != nil {
		return f, err
	}
	if f.File, err = r.str(); err != nil {
		return f, err
	}
	if f.StartLine, err = r.word(); err != nil {
		return f, err
	}
	return f, nil
}

func decodeBlocksRecord(r *wordReader, fn *Function) error {
	count32, err := r.word()
	if err != nil {
		return err
	}
	count, err := safecast.Conv[int](count32)
	if err != nil {
		return &FormatError{Path: r.path, Reason: "block count overflows"}
	}
	if len(fn.Blocks) != 0 {
		return &FormatError{Path: r.path, Reason: "duplicate block record for one function"}
	}
	fn.Blocks = make([]Block, count)
	for i := range fn.Blocks {
		fn.Blocks[i].Index = uint32(i)
	}
	return nil
}

func decodeArcsRecord(r *wordReader, fn *Function) error {
	src, err := r.word()
	if err != nil {
		return err
	}
	if int(src) >= len(fn.Blocks) {
		return &FormatError{Path: r.path, Reason: "arc source block out of range"}
	}
	for r.remaining() > 0 {
		dest, err := r.word()
		if err != nil {
			return err
		}
		flags, err := r.word()
		if err != nil {
			return err
		}
		if int(dest) >= len(fn.Blocks) {
			return &FormatError{Path: r.path, Reason: "arc destination block out of range"}
		}
		fn.Arcs = append(fn.Arcs, Arc{Src: src, Dest: dest, Flags: flags})
	}
	return nil
}

func decodeLinesRecord(r *wordReader, fn *Function) error {
	block, err := r.word()
	if err != nil {
		return err
	}
	if int(block) >= len(fn.Blocks) {
		return &FormatError{Path: r.path, Reason: "line record block out of range"}
	}
	for r.remaining() > 0 {
		line, err := r.word()
		if err != nil {
			return err
		}
		fn.Blocks[block].Lines = append(fn.Blocks[block].Lines, line)
	}
	return nil
}
