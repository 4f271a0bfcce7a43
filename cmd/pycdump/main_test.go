package main

import (
	"io"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	pymarshal "github.com/DuckLogic/py-marshal"
)

// dumpPlain decodes data as a bare stream at the current version and renders
// the JSON line, failing the test on any error.
func dumpPlain(t *testing.T, data string) string {
	t.Helper()
	line, err := dump([]byte(data), formatPlain, pymarshal.CurrentVersion, true)
	require.NoError(t, err)
	return line
}

type DumpTestSuite struct {
	suite.Suite
}

func (s *DumpTestSuite) TestScalars() {
	s.T().Run("Envelopes", func(t *testing.T) {
		assert.Equal(t, `{"type":"NoneType","value":null}`, dumpPlain(t, "N"))
		assert.Equal(t, `{"type":"StopIteration","value":null}`, dumpPlain(t, "S"))
		assert.Equal(t, `{"type":"ellipsis","value":null}`, dumpPlain(t, "."))
	})

	s.T().Run("BareValues", func(t *testing.T) {
		assert.Equal(t, "true", dumpPlain(t, "T"))
		assert.Equal(t, "false", dumpPlain(t, "F"))
		assert.Equal(t, "7", dumpPlain(t, "i\x07\x00\x00\x00"))
		assert.Equal(t, "-1", dumpPlain(t, "i\xff\xff\xff\xff"))
		assert.Equal(t, "1.5", dumpPlain(t, "g\x00\x00\x00\x00\x00\x00\xf8?"))
		assert.Equal(t, `"hi"`, dumpPlain(t, "z\x02hi"))
	})

	s.T().Run("NonFiniteFloatsBecomeNull", func(t *testing.T) {
		assert.Equal(t, "null", dumpPlain(t, "f\x03nan"))
		assert.Equal(t, "null", dumpPlain(t, "f\x03inf"))
		assert.Equal(t, "null", dumpPlain(t, "f\x04-inf"))
	})

	s.T().Run("Complex", func(t *testing.T) {
		assert.Equal(t, `{"type":"complex","value":[2,-3]}`, dumpPlain(t, "x\x012\x02-3"))
	})

	s.T().Run("Bytes", func(t *testing.T) {
		assert.Equal(t, `{"type":"bytes","value":"YWJj"}`, dumpPlain(t, "s\x03\x00\x00\x00abc"))
	})

	s.T().Run("IntegerTooWideForJSON", func(t *testing.T) {
		// 8 * 2^60 = 2^63, one past the int64 range.
		_, err := dump([]byte("l\x05\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x08\x00"),
			formatPlain, pymarshal.CurrentVersion, true)
		assert.ErrorIs(t, err, pymarshal.ErrTooLarge)
	})
}

func (s *DumpTestSuite) TestContainers() {
	s.T().Run("TupleAndList", func(t *testing.T) {
		assert.Equal(t,
			`{"type":"tuple","value":[{"type":"NoneType","value":null},1]}`,
			dumpPlain(t, ")\x02Ni\x01\x00\x00\x00"))
		assert.Equal(t,
			`{"type":"list","value":[true]}`,
			dumpPlain(t, "[\x01\x00\x00\x00T"))
	})

	s.T().Run("Dict", func(t *testing.T) {
		assert.Equal(t,
			`{"type":"dict","value":{"k":5}}`,
			dumpPlain(t, "{z\x01ki\x05\x00\x00\x000"))
	})

	s.T().Run("DictKeyMustBeString", func(t *testing.T) {
		_, err := dump([]byte("{i\x01\x00\x00\x00N0"),
			formatPlain, pymarshal.CurrentVersion, true)
		assert.ErrorIs(t, err, pymarshal.ErrWrongType)
	})

	s.T().Run("SetsAreSortedByTypeThenValue", func(t *testing.T) {
		// Decode order: "b", 2, true, b"a". Output order ranks bool before
		// bytes before str before int.
		data := "<\x04\x00\x00\x00" + "z\x01b" + "i\x02\x00\x00\x00" + "T" + "s\x01\x00\x00\x00a"
		assert.Equal(t,
			`{"type":"set","value":[true,{"type":"bytes","value":"YQ=="},"b",2]}`,
			dumpPlain(t, data))
	})

	s.T().Run("FrozenSetSortsNestedTuples", func(t *testing.T) {
		data := ">\x02\x00\x00\x00" + ")\x01i\x02\x00\x00\x00" + ")\x01i\x01\x00\x00\x00"
		assert.Equal(t,
			`{"type":"frozenset","value":[{"type":"tuple","value":[1]},{"type":"tuple","value":[2]}]}`,
			dumpPlain(t, data))
	})

	s.T().Run("SharedValuesSerializePerOccurrence", func(t *testing.T) {
		// (1, "x", "x") with the second "x" backreferencing the first.
		data := ")\x03i\x01\x00\x00\x00\xfa\x01xr\x00\x00\x00\x00"
		assert.Equal(t, `{"type":"tuple","value":[1,"x","x"]}`, dumpPlain(t, data))
	})

	s.T().Run("CyclicGraphFails", func(t *testing.T) {
		_, err := dump([]byte("\xdb\x01\x00\x00\x00r\x00\x00\x00\x00"),
			formatPlain, pymarshal.CurrentVersion, true)
		assert.ErrorIs(t, err, errCircular)
	})
}

func (s *DumpTestSuite) TestCodeObjects() {
	code := pymarshal.Code(&pymarshal.CodeObject{
		ArgCount:    1,
		NLocals:     1,
		StackSize:   2,
		Flags:       pymarshal.FlagOptimized | pymarshal.FlagNewLocals | pymarshal.FlagNoFree,
		Code:        []byte{0x64, 0x00, 0x53, 0x00},
		Consts:      []*pymarshal.Value{pymarshal.None()},
		VarNames:    []string{"x"},
		Filename:    "f.py",
		Name:        "f",
		FirstLineNo: 1,
	})
	data, err := pymarshal.Marshal(code, pymarshal.CurrentVersion)
	s.Require().NoError(err)

	line, err := dump(data, formatPlain, pymarshal.CurrentVersion, true)
	s.Require().NoError(err)
	s.Assert().Equal(`{"type":"code","value":{`+
		`"co_argcount":1,`+
		`"co_cellvars":[],`+
		`"co_code":{"type":"bytes","value":"ZABTAA=="},`+
		`"co_consts":[{"type":"NoneType","value":null}],`+
		`"co_filename":"f.py",`+
		`"co_firstlineno":1,`+
		`"co_flags":67,`+
		`"co_freevars":[],`+
		`"co_kwonlyargcount":0,`+
		`"co_lnotab":{"type":"bytes","value":""},`+
		`"co_name":"f",`+
		`"co_names":[],`+
		`"co_nlocals":1,`+
		`"co_posonlyargcount":0,`+
		`"co_stacksize":2,`+
		`"co_varnames":["x"]}}`, line)
}

func (s *DumpTestSuite) TestBytecodeHeader() {
	s.T().Run("HeaderIsSkipped", func(t *testing.T) {
		data := "\x55\x0d\r\n" + // magic + separator
			"\x00\x00\x00\x00" + // flags: timestamp-based
			"\x01\x02\x03\x04" + // source mtime
			"\x05\x06\x07\x08" + // source size
			"N"
		line, err := dump([]byte(data), formatBytecode, pymarshal.CurrentVersion, true)
		require.NoError(t, err)
		assert.Equal(t, `{"type":"NoneType","value":null}`, line)
	})

	s.T().Run("PlainFormatLeavesHeaderAlone", func(t *testing.T) {
		line, err := dump([]byte("N"), formatPlain, pymarshal.CurrentVersion, true)
		require.NoError(t, err)
		assert.Equal(t, `{"type":"NoneType","value":null}`, line)
	})

	s.T().Run("BadSeparator", func(t *testing.T) {
		data := "\x55\x0d\r\x00" + "\x00\x00\x00\x00\x01\x02\x03\x04\x05\x06\x07\x08N"
		_, err := dump([]byte(data), formatBytecode, pymarshal.CurrentVersion, true)
		assert.ErrorContains(t, err, "not followed by")
	})

	s.T().Run("NonTimestampFlags", func(t *testing.T) {
		data := "\x55\x0d\r\n" + "\x01\x00\x00\x00" + "\x01\x02\x03\x04\x05\x06\x07\x08N"
		_, err := dump([]byte(data), formatBytecode, pymarshal.CurrentVersion, true)
		assert.ErrorContains(t, err, "timestamp")
	})

	s.T().Run("TruncatedHeader", func(t *testing.T) {
		_, err := dump([]byte("\x55\x0d\r\n\x00\x00"), formatBytecode, pymarshal.CurrentVersion, true)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestDump(t *testing.T) {
	suite.Run(t, new(DumpTestSuite))
}

func TestOrdCompare(t *testing.T) {
	big100 := pymarshal.BigInt(new(big.Int).Lsh(big.NewInt(1), 100))

	tests := []struct {
		name string
		a, b *pymarshal.Value
		want int
	}{
		{"UnorderedKindsTie", pymarshal.None(), pymarshal.Ellipsis(), 0},
		{"UnorderedSortsFirst", pymarshal.None(), pymarshal.Bool(false), -1},
		{"FalseBeforeTrue", pymarshal.Bool(false), pymarshal.Bool(true), -1},
		{"BytesBeforeString", pymarshal.BytesOf([]byte("z")), pymarshal.Str("a"), -1},
		{"BytesLexicographic", pymarshal.BytesOf([]byte("ab")), pymarshal.BytesOf([]byte("ac")), -1},
		{"StringLexicographic", pymarshal.Str("b"), pymarshal.Str("ba"), -1},
		{"IntBeforeFloat", pymarshal.Int(9), pymarshal.Float(1), -1},
		{"IntNumeric", pymarshal.Int(5), pymarshal.Int(50), -1},
		{"BigIntegersCompareByValue", big100, pymarshal.Int(5), 1},
		{"NaNSortsLast", pymarshal.Float(math.NaN()), pymarshal.Float(math.MaxFloat64), 1},
		{"NaNEqualsNaN", pymarshal.Float(math.NaN()), pymarshal.Float(math.NaN()), 0},
		{"ZerosCompareEqual", pymarshal.Float(0), pymarshal.Float(math.Copysign(0, -1)), 0},
		{"TupleElementwise",
			pymarshal.Tuple(pymarshal.Int(1), pymarshal.Int(2)),
			pymarshal.Tuple(pymarshal.Int(1), pymarshal.Int(3)), -1},
		{"TuplePrefixSortsFirst",
			pymarshal.Tuple(pymarshal.Int(1)),
			pymarshal.Tuple(pymarshal.Int(1), pymarshal.Int(0)), -1},
		{"FrozenSetBeforeTuple",
			pymarshal.FrozenSet(pymarshal.Int(1)),
			pymarshal.Tuple(pymarshal.Int(1)), -1},
		{"FrozenSetsCompareSorted",
			pymarshal.FrozenSet(pymarshal.Int(3), pymarshal.Int(1)),
			pymarshal.FrozenSet(pymarshal.Int(2), pymarshal.Int(1)), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ordCompare(tt.a, tt.b))
			assert.Equal(t, -tt.want, ordCompare(tt.b, tt.a))
		})
	}
}
