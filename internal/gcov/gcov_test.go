package gcov

import (
	"encoding/binary"
	"errors"
	"testing"
)

// artifact builds synthetic graph/count files for tests.
type artifact struct {
	buf   []byte
	order binary.AppendByteOrder
}

func newArtifact() *artifact { return &artifact{order: binary.LittleEndian} }

func (a *artifact) word(v uint32) *artifact {
	a.buf = a.order.AppendUint32(a.buf, v)
	return a
}

func (a *artifact) str(s string) *artifact {
	a.word(uint32(len(s)))
	a.buf = append(a.buf, s...)
	for len(a.buf)%4 != 0 {
		a.buf = append(a.buf, 0)
	}
	return a
}

func (a *artifact) counter64(v uint64) *artifact {
	a.buf = a.order.AppendUint64(a.buf, v)
	return a
}

func (a *artifact) header(magic, stamp, flags uint32) *artifact {
	return a.word(magic).word(formatVersion).word(stamp).word(flags)
}

// record appends a tag/length record whose payload is built by fill.
func (a *artifact) record(tag uint32, fill func(*artifact)) *artifact {
	payload := &artifact{order: a.order}
	fill(payload)
	a.word(tag).word(uint32(len(payload.buf)))
	a.buf = append(a.buf, payload.buf...)
	return a
}

// simpleGraph builds a graph with one function of four blocks:
// entry(0) -> 1, 1 -> 2 (branch true), 1 -> 3 (fallthrough),
// 2 -> 3(exit). Block 1 covers lines 10-11, block 2 line 12.
func simpleGraph(stamp uint32) []byte {
	a := newArtifact().header(graphMagic, stamp, 0)
	a.record(tagFunction, func(p *artifact) {
		p.word(0xbeef).str("_ZN4demo4mainE").str("src/main.rs").word(9)
	})
	a.record(tagBlocks, func(p *artifact) { p.word(4) })
	a.record(tagArcs, func(p *artifact) { p.word(0).word(1).word(0) })
	a.record(tagArcs, func(p *artifact) {
		p.word(1).word(2).word(0).word(3).word(ArcFallthrough)
	})
	a.record(tagArcs, func(p *artifact) { p.word(2).word(3).word(0) })
	a.record(tagLines, func(p *artifact) { p.word(1).word(10).word(11) })
	a.record(tagLines, func(p *artifact) { p.word(2).word(12) })
	return a.buf
}

// simpleCounts builds the matching count file. Arc order: 0->1, 1->2,
// 1->3, 2->3.
func simpleCounts(stamp uint32, arcs ...uint64) []byte {
	a := newArtifact().header(countMagic, stamp, flagCounters64)
	a.record(tagFunction, func(p *artifact) { p.word(0xbeef) })
	a.record(tagCounters, func(p *artifact) {
		for _, v := range arcs {
			p.counter64(v)
		}
	})
	return a.buf
}

func TestDecodeGraph(t *testing.T) {
	g, err := DecodeGraph("unit.gcno", simpleGraph(0xcafe))
	if err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	if g.Stamp != 0xcafe {
		t.Fatalf("stamp = %#x, want 0xcafe", g.Stamp)
	}
	if len(g.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(g.Functions))
	}
	fn := g.Functions[0]
	if fn.Name != "_ZN4demo4mainE" || fn.File != "src/main.rs" || fn.StartLine != 9 {
		t.Fatalf("unexpected function header: %+v", fn)
	}
	if len(fn.Blocks) != 4 || len(fn.Arcs) != 4 {
		t.Fatalf("got %d blocks / %d arcs, want 4 / 4", len(fn.Blocks), len(fn.Arcs))
	}
	if got := fn.Blocks[1].Lines; len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Fatalf("block 1 lines = %v, want [10 11]", got)
	}
	if fn.Arcs[2].Flags != ArcFallthrough {
		t.Fatalf("arc 1->3 should be the fallthrough edge")
	}
}

func TestDecodeCountsRoundTrip(t *testing.T) {
	g, err := DecodeGraph("unit.gcno", simpleGraph(1))
	if err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	// Entry ran 7 times, branch taken 3, fallthrough 4.
	c, err := DecodeCounts(g, "unit.gcda", simpleCounts(1, 7, 3, 4, 3), WidthAuto)
	if err != nil {
		t.Fatalf("decode counts: %v", err)
	}
	fc := c.Functions[0]
	wantArcs := []uint64{7, 3, 4, 3}
	for i, want := range wantArcs {
		if fc.Arcs[i] != want {
			t.Fatalf("arc %d count = %d, want %d", i, fc.Arcs[i], want)
		}
	}
	wantBlocks := []uint64{7, 7, 3, 7}
	for b, want := range wantBlocks {
		if fc.Blocks[b] != want {
			t.Fatalf("block %d count = %d, want %d", b, fc.Blocks[b], want)
		}
	}
}

func TestDecodeGraphBadMagic(t *testing.T) {
	data := newArtifact().header(0x12345678, 0, 0).buf
	var ferr *FormatError
	if _, err := DecodeGraph("bad.gcno", data); !errors.As(err, &ferr) {
		t.Fatalf("got %v, want FormatError", err)
	}
}

func TestDecodeGraphUnsupportedVersion(t *testing.T) {
	a := newArtifact().word(graphMagic).word(99).word(0).word(0)
	var ferr *FormatError
	if _, err := DecodeGraph("bad.gcno", a.buf); !errors.As(err, &ferr) {
		t.Fatalf("got %v, want FormatError", err)
	}
}

func TestDecodeCountsStampMismatch(t *testing.T) {
	g, err := DecodeGraph("unit.gcno", simpleGraph(1))
	if err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	var cerr *ChecksumMismatchError
	_, err = DecodeCounts(g, "unit.gcda", simpleCounts(2, 0, 0, 0, 0), WidthAuto)
	if !errors.As(err, &cerr) {
		t.Fatalf("got %v, want ChecksumMismatchError", err)
	}
	if cerr.GraphStamp != 1 || cerr.CountStamp != 2 {
		t.Fatalf("error carries stamps %#x/%#x, want 1/2", cerr.GraphStamp, cerr.CountStamp)
	}
}

func TestDecodeGraphTruncated(t *testing.T) {
	data := simpleGraph(1)
	var terr *TruncatedError
	if _, err := DecodeGraph("cut.gcno", data[:len(data)-6]); !errors.As(err, &terr) {
		t.Fatalf("got %v, want TruncatedError", err)
	}
	if terr.Path != "cut.gcno" {
		t.Fatalf("error names %q, want cut.gcno", terr.Path)
	}
}

func TestDecodeGraphSkipsUnknownTags(t *testing.T) {
	a := newArtifact().header(graphMagic, 5, 0)
	a.record(0xdead0000, func(p *artifact) { p.word(1).word(2).word(3) })
	a.record(tagFunction, func(p *artifact) {
		p.word(1).str("f").str("lib.rs").word(1)
	})
	g, err := DecodeGraph("fwd.gcno", a.buf)
	if err != nil {
		t.Fatalf("unknown tag should be skipped, got %v", err)
	}
	if len(g.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(g.Functions))
	}
}

func TestDecodeGraphBigEndian(t *testing.T) {
	a := &artifact{order: binary.BigEndian}
	a.header(graphMagic, 0xaa, 0)
	a.record(tagFunction, func(p *artifact) {
		p.word(2).str("g").str("src/lib.rs").word(3)
	})
	g, err := DecodeGraph("be.gcno", a.buf)
	if err != nil {
		t.Fatalf("big-endian decode: %v", err)
	}
	if g.Stamp != 0xaa || g.Functions[0].File != "src/lib.rs" {
		t.Fatalf("big-endian fields decoded wrong: %+v", g)
	}
}

func TestDecodeCounts32BitWidth(t *testing.T) {
	g, err := DecodeGraph("unit.gcno", simpleGraph(1))
	if err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	a := newArtifact().header(countMagic, 1, flagCounters32)
	a.record(tagFunction, func(p *artifact) { p.word(0xbeef) })
	a.record(tagCounters, func(p *artifact) {
		p.word(5).word(2).word(3).word(2)
	})
	c, err := DecodeCounts(g, "unit.gcda", a.buf, WidthAuto)
	if err != nil {
		t.Fatalf("32-bit decode: %v", err)
	}
	if c.Functions[0].Arcs[0] != 5 {
		t.Fatalf("arc 0 = %d, want 5", c.Functions[0].Arcs[0])
	}
}

func TestDecodeCountsFlowViolation(t *testing.T) {
	g, err := DecodeGraph("unit.gcno", simpleGraph(1))
	if err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	// Block 1 receives 7 but emits 3+5=8.
	var ferr *FormatError
	_, err = DecodeCounts(g, "unit.gcda", simpleCounts(1, 7, 3, 5, 3), WidthAuto)
	if !errors.As(err, &ferr) {
		t.Fatalf("got %v, want FormatError on flow violation", err)
	}
}

func TestDecodeCountsCounterCountMismatch(t *testing.T) {
	g, err := DecodeGraph("unit.gcno", simpleGraph(1))
	if err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	var ferr *FormatError
	_, err = DecodeCounts(g, "unit.gcda", simpleCounts(1, 7, 3), WidthAuto)
	if !errors.As(err, &ferr) {
		t.Fatalf("got %v, want FormatError on counter shortfall", err)
	}
}

func TestWidthForTriple(t *testing.T) {
	cases := []struct {
		triple string
		want   CounterWidth
	}{
		{"x86_64-unknown-linux-gnu", Width64},
		{"i686-pc-windows-msvc", Width32},
		{"thumbv7-unknown-linux-gnueabihf", Width32},
		{"", Width64},
	}
	for _, tc := range cases {
		if got := WidthForTriple(tc.triple); got != tc.want {
			t.Errorf("WidthForTriple(%q) = %v, want %v", tc.triple, got, tc.want)
		}
	}
}
