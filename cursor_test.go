package pymarshal

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Writer Test Suite ---

type WriterTestSuite struct {
	suite.Suite
	writer *Writer
}

// SetupTest runs before each test in the suite, ensuring a clean state.
func (s *WriterTestSuite) SetupTest() {
	s.writer = NewWriter()
}

func (s *WriterTestSuite) TestBasicWrites() {
	s.writer.WriteUint8(0xAA)
	s.writer.WriteUint16(0xBBCC)
	s.writer.WriteUint32(0xDDEEFF00)
	s.writer.WriteUint64(0x0102030405060708)
	s.writer.WriteBytes([]byte{5, 6, 7})
	s.writer.WriteInt32(-2)
	s.writer.WriteByte('x')

	buf, err := s.writer.Result()
	s.Require().NoError(err)
	s.Assert().EqualValues(1+2+4+8+3+4+1, s.writer.Count())

	expected := []byte{
		0xAA,       // WriteUint8
		0xCC, 0xBB, // WriteUint16 (Little Endian)
		0x00, 0xFF, 0xEE, 0xDD, // WriteUint32 (Little Endian)
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // WriteUint64 (Little Endian)
		5, 6, 7, // WriteBytes
		0xFE, 0xFF, 0xFF, 0xFF, // WriteInt32 (two's complement)
		'x', // WriteByte
	}
	s.Assert().Equal(expected, buf)
}

func (s *WriterTestSuite) TestFloatAndString() {
	s.writer.WriteFloat64(1.0)
	s.writer.WriteString("ab")

	buf, err := s.writer.Result()
	s.Require().NoError(err)

	expected := []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF0, 0x3F, // 1.0 as IEEE 754 (Little Endian)
		'a', 'b', // WriteString
	}
	s.Assert().Equal(expected, buf)
}

func (s *WriterTestSuite) TestReset() {
	s.writer.WriteUint32(0x11223344)
	s.Require().Equal(4, s.writer.Len())

	s.writer.Reset()
	s.Assert().Zero(s.writer.Len())
	s.Assert().NoError(s.writer.Err())

	s.writer.WriteUint8(0x7F)
	buf, err := s.writer.Result()
	s.Require().NoError(err)
	s.Assert().Equal([]byte{0x7F}, buf)
}

func (s *WriterTestSuite) TestWriteAfterErrorIsNoOp() {
	s.writer.WriteUint8(0x01)
	s.writer.setError(io.ErrShortWrite)

	firstErr := s.writer.Err()
	s.Require().Error(firstErr)

	// Subsequent writes must not extend the buffer or replace the error.
	s.writer.WriteUint64(0xDEADBEEF)
	s.writer.WriteBytes([]byte{1, 2, 3})

	s.Assert().Equal(firstErr, s.writer.Err(), "the latched error should not change")
	s.Assert().Equal(1, s.writer.Len())

	_, err := s.writer.Result()
	s.Assert().ErrorIs(err, io.ErrShortWrite)
}

// TestWriter runs the WriterTestSuite.
func TestWriter(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}

// --- Reader Test Suite ---

type ReaderTestSuite struct {
	suite.Suite
}

func (s *ReaderTestSuite) TestSuccessfulReads() {
	data := []byte{
		0xAA,       // uint8
		0xCC, 0xBB, // uint16
		0x00, 0xFF, 0xEE, 0xDD, // uint32
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, // uint64
		0x11, 0x22, 0x33, // raw bytes
	}
	r := NewReader(data)

	var v8 uint8
	var v16 uint16
	var v32 uint32
	var v64 uint64
	r.ReadUint8(&v8)
	r.ReadUint16(&v16)
	r.ReadUint32(&v32)
	r.ReadUint64(&v64)
	read := r.ReadBytes(3)

	s.Require().NoError(r.Err())
	s.Assert().Equal(uint8(0xAA), v8)
	s.Assert().Equal(uint16(0xBBCC), v16)
	s.Assert().Equal(uint32(0xDDEEFF00), v32)
	s.Assert().Equal(uint64(0x0102030405060708), v64)
	s.Assert().Equal([]byte{0x11, 0x22, 0x33}, read)
	s.Assert().Zero(r.Len())

	count, err := r.Result()
	s.Require().NoError(err)
	s.Assert().EqualValues(len(data), count)
}

func (s *ReaderTestSuite) TestSignedAndFloatReads() {
	data := []byte{
		0xFE, 0xFF, 0xFF, 0xFF, // int32(-2)
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // int64(-1)
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF0, 0xBF, // float64(-1.0)
	}
	r := NewReader(data)

	var i32 int32
	var i64 int64
	var f float64
	r.ReadInt32(&i32)
	r.ReadInt64(&i64)
	r.ReadFloat64(&f)

	s.Require().NoError(r.Err())
	s.Assert().Equal(int32(-2), i32)
	s.Assert().Equal(int64(-1), i64)
	s.Assert().Equal(-1.0, f)
}

func (s *ReaderTestSuite) TestByteReader() {
	r := NewReader([]byte{'N', 'T'})

	b, err := r.ReadByte()
	s.Require().NoError(err)
	s.Assert().Equal(byte('N'), b)

	b, err = r.ReadByte()
	s.Require().NoError(err)
	s.Assert().Equal(byte('T'), b)

	_, err = r.ReadByte()
	s.Assert().ErrorIs(err, io.ErrUnexpectedEOF)
}

func (s *ReaderTestSuite) TestReadBytesCopies() {
	data := []byte{1, 2, 3, 4}
	r := NewReader(data)

	read := r.ReadBytes(4)
	s.Require().NoError(r.Err())

	// Mutating the source must not leak into the returned slice.
	data[0] = 0xFF
	s.Assert().Equal([]byte{1, 2, 3, 4}, read)
}

func (s *ReaderTestSuite) TestErrorHandling() {
	s.T().Run("ReadPastEnd", func(t *testing.T) {
		r := NewReader([]byte{0x01, 0x02, 0x03})
		var v32 uint32
		r.ReadUint32(&v32) // Attempt to read 4 bytes from a 3-byte source.

		require.Error(t, r.Err())
		assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)
		assert.Equal(t, uint32(0), v32)
		// A failed read must not consume the remaining bytes.
		assert.Equal(t, 3, r.Len())
	})

	s.T().Run("ReadAfterErrorIsNoOp", func(t *testing.T) {
		r := NewReader([]byte{0x01, 0x02, 0x03})
		var v32 uint32
		var v8 uint8

		r.ReadUint32(&v32) // This will trigger and latch the error.
		firstErr := r.Err()
		require.Error(t, firstErr)

		r.ReadUint8(&v8) // This read should not happen.
		assert.Equal(t, firstErr, r.Err(), "the latched error should not change")
		assert.Equal(t, uint8(0), v8, "destination variable should be unchanged after an error")
	})

	s.T().Run("HugeLengthDoesNotAllocate", func(t *testing.T) {
		r := NewReader([]byte{0x01})
		read := r.ReadBytes(1 << 30)
		assert.Nil(t, read)
		assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)
	})

	s.T().Run("NonPositiveLength", func(t *testing.T) {
		r := NewReader([]byte{0x01})
		assert.Nil(t, r.ReadBytes(0))
		assert.Nil(t, r.ReadBytes(-1))
		assert.NoError(t, r.Err())
		assert.Equal(t, 1, r.Len())
	})
}

func (s *ReaderTestSuite) TestReadString() {
	r := NewReader([]byte("hello!"))
	s.Assert().Equal("hello", r.ReadString(5))
	s.Assert().Equal("!", r.ReadString(1))
	s.Require().NoError(r.Err())

	s.Assert().Equal("", r.ReadString(1))
	s.Assert().ErrorIs(r.Err(), io.ErrUnexpectedEOF)
}

// TestReader runs the ReaderTestSuite.
func TestReader(t *testing.T) {
	suite.Run(t, new(ReaderTestSuite))
}
