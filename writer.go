package pymarshal

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer builds a marshal stream in memory, little-endian, growing an
// internal buffer by appending. It tracks the first error; after an error all
// subsequent writes become no-ops, so an encoder can latch a semantic error
// mid-stream with setError and bail out through the normal return path.
type Writer struct {
	buf []byte
	err error // first error encountered. Subsequent writes become no-ops.
}

var (
	_ io.Writer       = (*Writer)(nil)
	_ io.ByteWriter   = (*Writer)(nil)
	_ io.StringWriter = (*Writer)(nil)
)

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// NewWriterSize creates a Writer with capacity for n bytes preallocated.
func NewWriterSize(n int) *Writer {
	return &Writer{buf: make([]byte, 0, n)}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Count returns the number of bytes written so far.
func (w *Writer) Count() int64 { return int64(len(w.buf)) }

// Err returns the first error encountered.
func (w *Writer) Err() error { return w.err }

// setError records the first non-nil error.
// This preserves the root cause of a failure chain instead of a later,
// less relevant error.
func (w *Writer) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Bytes returns the stream built so far. The slice aliases the Writer's
// buffer and is only valid until the next write or Reset.
func (w *Writer) Bytes() []byte { return w.buf }

// Result returns the built stream and the final error state.
func (w *Writer) Result() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// Reset truncates the buffer and clears the error state, keeping the
// underlying capacity for reuse.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.err = nil
}

// Write implements the io.Writer interface.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// WriteByte implements the io.ByteWriter interface.
func (w *Writer) WriteByte(v byte) error {
	if w.err != nil {
		return w.err
	}
	w.buf = append(w.buf, v)
	return nil
}

// WriteString implements the io.StringWriter interface.
func (w *Writer) WriteString(s string) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.buf = append(w.buf, s...)
	return len(s), nil
}

func (w *Writer) WriteUint8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteUint16(v uint16) {
	if w.err != nil {
		return
	}
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteUint32(v uint32) {
	if w.err != nil {
		return
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteUint64(v uint64) {
	if w.err != nil {
		return
	}
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

// WriteFloat64 writes an IEEE 754 double in little-endian byte order.
func (w *Writer) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

// WriteBytes appends a byte slice.
func (w *Writer) WriteBytes(buf []byte) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, buf...)
}
