package pymarshal

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Decoder reads marshal streams at one format version. A Decoder holds no
// per-stream state and may be reused; a single Decoder is safe for
// concurrent Unmarshal calls.
type Decoder struct {
	version int
	posonly bool
	intern  *InternPool
}

// NewDecoder creates a Decoder for the given format version. Code objects
// are read with the posonlyargcount field by default.
func NewDecoder(version int) *Decoder {
	return &Decoder{version: version, posonly: true}
}

// WithPosOnlyArgCount controls whether code objects carry the
// posonlyargcount field, present in streams written by Python 3.8 and later.
// It returns the configured Decoder for chaining.
func (d *Decoder) WithPosOnlyArgCount(on bool) *Decoder {
	d.posonly = on
	return d
}

// WithInternPool routes interned strings through pool, deduplicating them
// across every decode that shares the pool. It returns the configured
// Decoder for chaining.
func (d *Decoder) WithInternPool(pool *InternPool) *Decoder {
	d.intern = pool
	return d
}

// Unmarshal decodes the first object in data. Bytes past the end of that
// object are ignored, as Python's loads ignores them. The decoded graph
// shares no memory with data.
func (d *Decoder) Unmarshal(data []byte) (*Value, error) {
	if d.version < Version0 || d.version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, d.version)
	}
	s := &decodeState{d: d, r: NewReader(data)}
	return s.readValue(0)
}

// decodeState carries one Unmarshal call's cursor and backreference table.
type decodeState struct {
	d    *Decoder
	r    *Reader
	refs []*Value
}

// register appends v to the backreference table. Table indices are assigned
// strictly in registration order; they are what 'r' records point at.
func (s *decodeState) register(v *Value) {
	s.refs = append(s.refs, v)
}

// readValue reads one object and rejects the '0' terminator, which is only
// meaningful inside a dict body.
func (s *decodeState) readValue(depth int) (*Value, error) {
	v, err := s.readObject(depth)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrUnexpectedNull
	}
	return v, nil
}

// readObject reads one object, or returns a nil Value for the '0'
// terminator.
func (s *decodeState) readObject(depth int) (*Value, error) {
	code, err := s.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if depth > maxDepth {
		return nil, ErrRecursionLimit
	}
	flag := code&flagRef != 0
	tag := code &^ flagRef
	if !knownType(tag) {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, tag)
	}
	if min := minVersion(tag); s.d.version < min {
		return nil, fmt.Errorf("%w: type %q requires version %d, stream version is %d",
			ErrUnsupportedVersion, tag, min, s.d.version)
	}
	if flag && s.d.version < Version3 {
		return nil, fmt.Errorf("%w: backreference flag requires version %d, stream version is %d",
			ErrUnsupportedVersion, Version3, s.d.version)
	}

	// Singletons are shared by construction and never enter the reference
	// table, flagged or not.
	switch tag {
	case typeNull:
		return nil, nil
	case typeNone:
		return None(), nil
	case typeStopIter:
		return StopIteration(), nil
	case typeEllipsis:
		return Ellipsis(), nil
	case typeFalse:
		return Bool(false), nil
	case typeTrue:
		return Bool(true), nil
	case typeRef:
		return s.readRef(flag)
	case typeTuple, typeSmallTuple, typeList, typeSet, typeFrozenSet, typeDict, typeCode:
		return s.readContainer(tag, flag, depth)
	}

	v, err := s.readLeaf(tag)
	if err != nil {
		return nil, err
	}
	if flag {
		s.register(v)
	}
	return v, nil
}

// readRef resolves a backreference. A flagged backreference registers its
// target again under a fresh index.
func (s *decodeState) readRef(flag bool) (*Value, error) {
	var n uint32
	s.r.ReadUint32(&n)
	if err := s.r.Err(); err != nil {
		return nil, err
	}
	if uint64(n) >= uint64(len(s.refs)) {
		return nil, fmt.Errorf("%w: index %d, table size %d", ErrBadRef, n, len(s.refs))
	}
	v := s.refs[n]
	if flag {
		s.register(v)
	}
	return v, nil
}

// readContainer decodes the kinds that hold child objects. A flagged
// container is registered before its children are read, so a backreference
// from inside resolves to the container under construction and
// self-referential graphs come out genuinely cyclic.
func (s *decodeState) readContainer(tag byte, flag bool, depth int) (*Value, error) {
	v := &Value{kind: containerKind(tag)}
	if flag {
		s.register(v)
	}
	var err error
	switch tag {
	case typeTuple, typeList:
		var n int
		if n, err = s.readCount(); err != nil {
			return nil, err
		}
		v.items, err = s.readItems(n, depth)
	case typeSmallTuple:
		var n uint8
		s.r.ReadUint8(&n)
		if err = s.r.Err(); err != nil {
			return nil, err
		}
		v.items, err = s.readItems(int(n), depth)
	case typeSet, typeFrozenSet:
		var n int
		if n, err = s.readCount(); err != nil {
			return nil, err
		}
		v.items, err = s.readSetItems(n, depth)
	case typeDict:
		v.entries, err = s.readDictEntries(depth)
	case typeCode:
		v.codeVal, err = s.readCode(depth)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func containerKind(tag byte) Kind {
	switch tag {
	case typeTuple, typeSmallTuple:
		return KindTuple
	case typeList:
		return KindList
	case typeSet:
		return KindSet
	case typeFrozenSet:
		return KindFrozenSet
	case typeDict:
		return KindDict
	default:
		return KindCode
	}
}

// readLeaf decodes the kinds with no child objects.
func (s *decodeState) readLeaf(tag byte) (*Value, error) {
	switch tag {
	case typeInt:
		var n int32
		s.r.ReadInt32(&n)
		if err := s.r.Err(); err != nil {
			return nil, err
		}
		return Int(int64(n)), nil
	case typeInt64:
		var n int64
		s.r.ReadInt64(&n)
		if err := s.r.Err(); err != nil {
			return nil, err
		}
		return Int(n), nil
	case typeLong:
		return s.readLong()
	case typeFloat:
		f, err := s.readFloatText()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case typeBinaryFloat:
		var f float64
		s.r.ReadFloat64(&f)
		if err := s.r.Err(); err != nil {
			return nil, err
		}
		return Float(f), nil
	case typeComplex:
		re, err := s.readFloatText()
		if err != nil {
			return nil, err
		}
		im, err := s.readFloatText()
		if err != nil {
			return nil, err
		}
		return Complex(complex(re, im)), nil
	case typeBinaryComplex:
		var re, im float64
		s.r.ReadFloat64(&re)
		s.r.ReadFloat64(&im)
		if err := s.r.Err(); err != nil {
			return nil, err
		}
		return Complex(complex(re, im)), nil
	case typeString:
		n, err := s.readCount()
		if err != nil {
			return nil, err
		}
		b := s.r.ReadBytes(n)
		if err := s.r.Err(); err != nil {
			return nil, err
		}
		return BytesOf(b), nil
	case typeUnicode, typeAscii, typeInterned, typeAsciiInterned:
		n, err := s.readCount()
		if err != nil {
			return nil, err
		}
		return s.readStr(n, tag == typeInterned || tag == typeAsciiInterned)
	case typeShortAscii, typeShortAsciiInterned:
		var n uint8
		s.r.ReadUint8(&n)
		if err := s.r.Err(); err != nil {
			return nil, err
		}
		return s.readStr(int(n), tag == typeShortAsciiInterned)
	default:
		// readObject dispatched every other known tag already.
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, tag)
	}
}

// readCount reads a signed 32-bit element count.
func (s *decodeState) readCount() (int, error) {
	var n int32
	s.r.ReadInt32(&n)
	if err := s.r.Err(); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrInvalidLength, n)
	}
	return int(n), nil
}

// readLong decodes the arbitrary-precision integer payload: a signed digit
// count whose sign is the number's sign, then that many 15-bit digits.
func (s *decodeState) readLong() (*Value, error) {
	var n int32
	s.r.ReadInt32(&n)
	if err := s.r.Err(); err != nil {
		return nil, err
	}
	if n == 0 {
		return Int(0), nil
	}
	size := int64(n)
	if size < 0 {
		size = -size
	}
	digits := make([]uint16, 0, clampAlloc(int(size), s.r.Len(), 2))
	for i := int64(0); i < size; i++ {
		var d uint16
		s.r.ReadUint16(&d)
		if err := s.r.Err(); err != nil {
			return nil, err
		}
		if d >= longDigitBase {
			return nil, fmt.Errorf("%w: digit %d", ErrDigitRange, d)
		}
		digits = append(digits, d)
	}
	if digits[len(digits)-1] == 0 {
		return nil, ErrUnnormalized
	}
	m := bigFromDigits(digits)
	if n < 0 {
		m.Neg(m)
	}
	return BigInt(m), nil
}

// readFloatText decodes the version-0 float form: a length-prefixed decimal
// string as produced by repr().
func (s *decodeState) readFloatText() (float64, error) {
	var n uint8
	s.r.ReadUint8(&n)
	text := s.r.ReadString(int(n))
	if err := s.r.Err(); err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadFloat, text)
	}
	return f, nil
}

func (s *decodeState) readStr(n int, interned bool) (*Value, error) {
	str := s.r.ReadString(n)
	if err := s.r.Err(); err != nil {
		return nil, err
	}
	if !utf8.ValidString(str) {
		return nil, fmt.Errorf("%w: invalid UTF-8 in %d-byte string", ErrInvalidText, n)
	}
	if !interned {
		return Str(str), nil
	}
	if s.d.intern != nil {
		str = s.d.intern.Intern(str)
	}
	return InternedStr(str), nil
}

func (s *decodeState) readItems(n, depth int) ([]*Value, error) {
	items := make([]*Value, 0, clampAlloc(n, s.r.Len(), 1))
	for i := 0; i < n; i++ {
		item, err := s.readValue(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// readSetItems reads n elements, requiring each to be hashable and dropping
// duplicates the way rebuilding a set would.
func (s *decodeState) readSetItems(n, depth int) ([]*Value, error) {
	items := make([]*Value, 0, clampAlloc(n, s.r.Len(), 1))
	for i := 0; i < n; i++ {
		item, err := s.readValue(depth + 1)
		if err != nil {
			return nil, err
		}
		if err := hashableValue(item, 0); err != nil {
			return nil, err
		}
		dup := false
		for _, have := range items {
			if equalValues(have, item, 0) {
				dup = true
				break
			}
		}
		if !dup {
			items = append(items, item)
		}
	}
	return items, nil
}

// readDictEntries reads key/value pairs until the '0' terminator. A
// terminator in value position ends the dict and drops the pending key,
// which is how Python's reader treats it.
func (s *decodeState) readDictEntries(depth int) ([]DictEntry, error) {
	var entries []DictEntry
	for {
		key, err := s.readObject(depth + 1)
		if err != nil {
			return nil, err
		}
		if key == nil {
			break
		}
		value, err := s.readObject(depth + 1)
		if err != nil {
			return nil, err
		}
		if value == nil {
			break
		}
		if err := hashableValue(key, 0); err != nil {
			return nil, err
		}
		entries = storeEntry(entries, key, value)
	}
	return entries, nil
}

// storeEntry applies dict-update semantics: a repeated key keeps its
// original position and takes the newest value.
func storeEntry(entries []DictEntry, key, value *Value) []DictEntry {
	for i := range entries {
		if equalValues(entries[i].Key, key, 0) {
			entries[i].Value = value
			return entries
		}
	}
	return append(entries, DictEntry{Key: key, Value: value})
}

// readCode decodes a code object's fixed header and its tagged fields, in
// wire order.
func (s *decodeState) readCode(depth int) (*CodeObject, error) {
	c := &CodeObject{}
	s.r.ReadUint32(&c.ArgCount)
	if s.d.posonly {
		s.r.ReadUint32(&c.PosOnlyArgCount)
	}
	s.r.ReadUint32(&c.KwOnlyArgCount)
	s.r.ReadUint32(&c.NLocals)
	s.r.ReadUint32(&c.StackSize)
	var flags uint32
	s.r.ReadUint32(&flags)
	if err := s.r.Err(); err != nil {
		return nil, err
	}
	// Unknown flag bits are preserved rather than masked off, so streams
	// from newer Pythons round-trip.
	c.Flags = CodeFlags(flags)

	var err error
	if c.Code, err = s.readBytesField(depth); err != nil {
		return nil, err
	}
	if c.Consts, err = s.readTupleField(depth); err != nil {
		return nil, err
	}
	if c.Names, err = s.readNamesField(depth); err != nil {
		return nil, err
	}
	if c.VarNames, err = s.readNamesField(depth); err != nil {
		return nil, err
	}
	if c.FreeVars, err = s.readNamesField(depth); err != nil {
		return nil, err
	}
	if c.CellVars, err = s.readNamesField(depth); err != nil {
		return nil, err
	}
	if c.Filename, err = s.readStrField(depth); err != nil {
		return nil, err
	}
	if c.Name, err = s.readStrField(depth); err != nil {
		return nil, err
	}
	s.r.ReadUint32(&c.FirstLineNo)
	if err := s.r.Err(); err != nil {
		return nil, err
	}
	if c.LnoTab, err = s.readBytesField(depth); err != nil {
		return nil, err
	}
	return c, nil
}

// The code-object field readers decode a sub-object and require its kind,
// tolerating backreferenced forms of each field.

func (s *decodeState) readBytesField(depth int) ([]byte, error) {
	v, err := s.readValue(depth + 1)
	if err != nil {
		return nil, err
	}
	return v.AsBytes()
}

func (s *decodeState) readTupleField(depth int) ([]*Value, error) {
	v, err := s.readValue(depth + 1)
	if err != nil {
		return nil, err
	}
	return v.AsTuple()
}

func (s *decodeState) readStrField(depth int) (string, error) {
	v, err := s.readValue(depth + 1)
	if err != nil {
		return "", err
	}
	return v.AsStr()
}

func (s *decodeState) readNamesField(depth int) ([]string, error) {
	items, err := s.readTupleField(depth)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(items))
	for i, item := range items {
		if names[i], err = item.AsStr(); err != nil {
			return nil, err
		}
	}
	return names, nil
}
