package pymarshal

import (
	"encoding/binary"
	"io"
	"math"
)

// Reader is a little-endian cursor over an in-memory marshal stream. It
// tracks the first error encountered; subsequent reads become no-ops, so a
// run of reads can be issued without checking after each one. Truncation
// surfaces as io.ErrUnexpectedEOF.
type Reader struct {
	buf []byte
	pos int
	err error // first error encountered. Subsequent reads become no-ops.
}

var _ io.ByteReader = (*Reader)(nil)

// NewReader creates a cursor over buf. The Reader does not copy buf; it must
// stay untouched until reading is done.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Count returns the total bytes consumed so far.
func (r *Reader) Count() int64 { return int64(r.pos) }

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Result returns the total bytes consumed and the final error state.
func (r *Reader) Result() (int64, error) {
	return int64(r.pos), r.err
}

// setError records the first non-nil error.
func (r *Reader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// take consumes n bytes in place. A shortfall latches io.ErrUnexpectedEOF;
// the stream is never partially consumed by a failed take.
func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > len(r.buf)-r.pos {
		r.setError(io.ErrUnexpectedEOF)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

// ReadByte implements the io.ByteReader interface.
func (r *Reader) ReadByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.pos >= len(r.buf) {
		r.setError(io.ErrUnexpectedEOF)
		return 0, r.err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) ReadUint8(dest *uint8) {
	if b := r.take(1); r.err == nil {
		*dest = b[0]
	}
}

func (r *Reader) ReadUint16(dest *uint16) {
	if b := r.take(2); r.err == nil {
		*dest = binary.LittleEndian.Uint16(b)
	}
}

func (r *Reader) ReadUint32(dest *uint32) {
	if b := r.take(4); r.err == nil {
		*dest = binary.LittleEndian.Uint32(b)
	}
}

func (r *Reader) ReadUint64(dest *uint64) {
	if b := r.take(8); r.err == nil {
		*dest = binary.LittleEndian.Uint64(b)
	}
}

func (r *Reader) ReadInt32(dest *int32) {
	var u uint32
	r.ReadUint32(&u)
	if r.err == nil {
		*dest = int32(u)
	}
}

func (r *Reader) ReadInt64(dest *int64) {
	var u uint64
	r.ReadUint64(&u)
	if r.err == nil {
		*dest = int64(u)
	}
}

// ReadFloat64 reads an IEEE 754 double in little-endian byte order.
func (r *Reader) ReadFloat64(dest *float64) {
	var u uint64
	r.ReadUint64(&u)
	if r.err == nil {
		*dest = math.Float64frombits(u)
	}
}

// ReadBytes reads n bytes into a fresh slice. The result never aliases the
// input buffer. Reading more than remains fails without allocating, so a
// corrupt length cannot balloon memory.
func (r *Reader) ReadBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	b := r.take(n)
	if r.err != nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ReadString reads n bytes as a string.
func (r *Reader) ReadString(n int) string {
	if n <= 0 {
		return ""
	}
	return string(r.take(n))
}
