package gcov

import (
	"encoding/binary"

	"fortio.org/safecast"
)

// wordReader walks a coverage artifact word by word. All reads are bounds
// checked; running off the end yields a TruncatedError carrying the file
// path, never a panic.
type wordReader struct {
	path  string
	buf   []byte
	pos   int
	order binary.ByteOrder
}

func newWordReader(path string, buf []byte) *wordReader {
	return &wordReader{path: path, buf: buf, order: binary.LittleEndian}
}

func (r *wordReader) remaining() int { return len(r.buf) - r.pos }

func (r *wordReader) truncated(want int) error {
	return &TruncatedError{Path: r.path, Want: want - r.remaining(), Have: r.remaining()}
}

func (r *wordReader) word() (uint32, error) {
	if r.remaining() < 4 {
		return 0, r.truncated(4)
	}
	v := r.order.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *wordReader) skip(n int) error {
	if r.remaining() < n {
		return r.truncated(n)
	}
	r.pos += n
	return nil
}

// str reads a uint32 byte length followed by that many bytes, padded to a
// 4-byte boundary.
func (r *wordReader) str() (string, error) {
	n32, err := r.word()
	if err != nil {
		return "", err
	}
	n, err := safecast.Conv[int](n32)
	if err != nil {
		return "", &FormatError{Path: r.path, Reason: "string length overflows"}
	}
	padded := (n + 3) &^ 3
	if r.remaining() < padded {
		return "", r.truncated(padded)
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += padded
	return s, nil
}

// counter reads one arc counter of the given byte width (4 or 8).
func (r *wordReader) counter(width int) (uint64, error) {
	if r.remaining() < width {
		return 0, r.truncated(width)
	}
	var v uint64
	if width == 8 {
		v = r.order.Uint64(r.buf[r.pos:])
	} else {
		v = uint64(r.order.Uint32(r.buf[r.pos:]))
	}
	r.pos += width
	return v, nil
}

// header decodes the common four-word header, flipping the reader's byte
// order if the magic arrives swapped. Returns stamp and flags.
func (r *wordReader) header(wantMagic uint32) (stamp, flags uint32, err error) {
	magic, err := r.word()
	if err != nil {
		return 0, 0, err
	}
	switch magic {
	case wantMagic:
	case swap32(wantMagic):
		r.order = binary.BigEndian
	default:
		return 0, 0, &FormatError{Path: r.path, Reason: "bad magic number"}
	}
	version, err := r.word()
	if err != nil {
		return 0, 0, err
	}
	if version != formatVersion {
		return 0, 0, &FormatError{Path: r.path, Reason: "unsupported format version"}
	}
	if stamp, err = r.word(); err != nil {
		return 0, 0, err
	}
	if flags, err = r.word(); err != nil {
		return 0, 0, err
	}
	return stamp, flags, nil
}

// record reads the next tag/length pair and returns the payload slice. The
// caller consumes it through a sub-reader so an over-read inside one record
// cannot bleed into the next.
func (r *wordReader) record() (tag uint32, payload *wordReader, err error) {
	tag, err = r.word()
	if err != nil {
		return 0, nil, err
	}
	length32, err := r.word()
	if err != nil {
		return 0, nil, err
	}
	length, err := safecast.Conv[int](length32)
	if err != nil {
		return 0, nil, &FormatError{Path: r.path, Reason: "record length overflows"}
	}
	if r.remaining() < length {
		return 0, nil, r.truncated(length)
	}
	payload = &wordReader{path: r.path, buf: r.buf[r.pos : r.pos+length], order: r.order}
	r.pos += length
	return tag, payload, nil
}
