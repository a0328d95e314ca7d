package gcov

// Wire constants for the graph (.gcno) and count (.gcda) formats.
//
// Both files open with four little-endian uint32 words: magic, version,
// stamp, flags. A file whose first word is the byte-swapped magic stores
// every word big-endian instead. After the header comes a flat stream of
// records, each "tag, payload length in bytes, payload"; unrecognized tags
// within a supported version are skipped by length.

const (
	graphMagic = 0x67636e6f // "gcno"
	countMagic = 0x67636461 // "gcda"

	// formatVersion is the only version this decoder understands.
	formatVersion = 1
)

// Record tags. Count files reuse tagFunction as a positional marker.
const (
	tagFunction uint32 = 0x01000000
	tagBlocks   uint32 = 0x01410000
	tagArcs     uint32 = 0x01430000
	tagLines    uint32 = 0x01450000
	tagCounters uint32 = 0x01a10000
)

// Count-file header flag bits declaring the counter width. When neither bit
// is set the width is resolved from the configured target triple.
const (
	flagCounters64 uint32 = 1 << 0
	flagCounters32 uint32 = 1 << 1
)

// Arc flags.
const (
	// ArcFallthrough marks the arc taken when the block's condition is not.
	ArcFallthrough uint32 = 1 << 0
	// ArcFake marks a virtual edge (exceptional exit, longjmp). Fake arcs
	// carry no counter and never count as branches.
	ArcFake uint32 = 1 << 1
	// ArcCallReturn marks the return edge of a call.
	ArcCallReturn uint32 = 1 << 2
)

func swap32(v uint32) uint32 {
	return v<<24 | v>>24 | (v&0x00ff0000)>>8 | (v&0x0000ff00)<<8
}
