package pymarshal

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"unicode/utf8"
)

// Encoder writes marshal streams at one format version. An Encoder holds no
// per-stream state and may be reused; a single Encoder is safe for
// concurrent Marshal calls.
type Encoder struct {
	version int
	posonly bool
}

// NewEncoder creates an Encoder for the given format version. Code objects
// are written with the posonlyargcount field by default.
func NewEncoder(version int) *Encoder {
	return &Encoder{version: version, posonly: true}
}

// WithPosOnlyArgCount controls whether code objects carry the
// posonlyargcount field, understood by Python 3.8 and later. With the field
// off, a nonzero PosOnlyArgCount is silently dropped, the way the value
// would not exist on that Python. It returns the configured Encoder for
// chaining.
func (e *Encoder) WithPosOnlyArgCount(on bool) *Encoder {
	e.posonly = on
	return e
}

// Marshal encodes v. From version 3 on, objects occurring more than once in
// the graph are written once and backreferenced after that, so shared and
// cyclic structure survives the round trip. Below version 3 there is no
// sharing and a cyclic graph fails with ErrRecursionLimit.
func (e *Encoder) Marshal(v *Value) ([]byte, error) {
	if e.version < Version0 || e.version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, e.version)
	}
	w := acquireWriter()
	defer releaseWriter(w)
	s := &encodeState{e: e, w: w}
	if e.version >= Version3 {
		s.counts = make(map[any]int)
		s.assigned = make(map[any]int32)
		if err := s.countObject(v, 0); err != nil {
			return nil, err
		}
	}
	if err := s.writeObject(v, 0); err != nil {
		return nil, err
	}
	stream, err := w.Result()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(stream))
	copy(out, stream)
	return out, nil
}

// encodeState carries one Marshal call's output buffer and sharing tables.
// Plain objects share by identity; interned strings share by content, the
// way a runtime's intern table would make them one object anyway.
type encodeState struct {
	e        *Encoder
	w        *Writer
	counts   map[any]int   // occurrences per shareable object
	assigned map[any]int32 // reference table index, once written
	next     int32
}

// internKey is the sharing key for interned strings.
type internKey struct{ s string }

func (s *encodeState) refKey(v *Value) any {
	if v.Interned() {
		return internKey{v.strVal}
	}
	return v
}

// assign issues the next reference table index. Indices are handed out in
// write order, which is exactly the order a decoder registers flagged
// objects in.
func (s *encodeState) assign(key any) error {
	if s.next == math.MaxInt32 {
		return fmt.Errorf("%w: reference table full", ErrTooLarge)
	}
	s.assigned[key] = s.next
	s.next++
	return nil
}

// countObject tallies how many times each shareable object occurs. Objects
// seen more than once become backreference targets when written. Interned
// strings need no tally: they are always targets. Recursion stops at the
// second sight of an object, which also terminates the pass on cyclic
// graphs.
func (s *encodeState) countObject(v *Value, depth int) error {
	if depth > maxDepth {
		return ErrRecursionLimit
	}
	switch v.Kind() {
	case KindNone, KindBool, KindStopIteration, KindEllipsis:
		return nil
	case KindStr:
		if v.interned {
			return nil
		}
	}
	key := s.refKey(v)
	s.counts[key]++
	if s.counts[key] > 1 {
		return nil
	}
	switch v.kind {
	case KindTuple, KindList, KindSet, KindFrozenSet:
		for _, item := range v.items {
			if err := s.countObject(item, depth+1); err != nil {
				return err
			}
		}
	case KindDict:
		for _, entry := range v.entries {
			if err := s.countObject(entry.Key, depth+1); err != nil {
				return err
			}
			if err := s.countObject(entry.Value, depth+1); err != nil {
				return err
			}
		}
	case KindCode:
		if v.codeVal == nil {
			return nil // writePayload reports it
		}
		for _, item := range v.codeVal.Consts {
			if err := s.countObject(item, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *encodeState) writeObject(v *Value, depth int) error {
	if depth > maxDepth {
		return ErrRecursionLimit
	}
	w := s.w
	// Singletons are written outright every time; they never enter the
	// reference table.
	switch v.Kind() {
	case KindNone:
		w.WriteByte(typeNone)
		return w.Err()
	case KindStopIteration:
		w.WriteByte(typeStopIter)
		return w.Err()
	case KindEllipsis:
		w.WriteByte(typeEllipsis)
		return w.Err()
	case KindBool:
		if v.boolVal {
			w.WriteByte(typeTrue)
		} else {
			w.WriteByte(typeFalse)
		}
		return w.Err()
	}
	if s.assigned == nil {
		return s.writePayload(v, 0, depth)
	}
	key := s.refKey(v)
	if idx, ok := s.assigned[key]; ok {
		w.WriteByte(typeRef)
		w.WriteUint32(uint32(idx))
		return w.Err()
	}
	var flag byte
	if v.Interned() || s.counts[key] > 1 {
		if err := s.assign(key); err != nil {
			return err
		}
		flag = flagRef
	}
	return s.writePayload(v, flag, depth)
}

// writePayload writes v's tag, with flag folded in, and its body. The
// containers descend through writeObject so their children share normally.
func (s *encodeState) writePayload(v *Value, flag byte, depth int) error {
	w := s.w
	switch v.kind {
	case KindInt:
		if v.bigVal == nil && v.intVal >= math.MinInt32 && v.intVal <= math.MaxInt32 {
			w.WriteByte(typeInt | flag)
			w.WriteInt32(int32(v.intVal))
			return w.Err()
		}
		return s.writeLong(v, flag)
	case KindFloat:
		if s.e.version >= Version2 {
			w.WriteByte(typeBinaryFloat | flag)
			w.WriteFloat64(v.floatVal)
			return w.Err()
		}
		w.WriteByte(typeFloat | flag)
		s.writeFloatText(v.floatVal)
		return w.Err()
	case KindComplex:
		if s.e.version >= Version2 {
			w.WriteByte(typeBinaryComplex | flag)
			w.WriteFloat64(real(v.complexVal))
			w.WriteFloat64(imag(v.complexVal))
			return w.Err()
		}
		w.WriteByte(typeComplex | flag)
		s.writeFloatText(real(v.complexVal))
		s.writeFloatText(imag(v.complexVal))
		return w.Err()
	case KindBytes:
		return s.writeBytesPayload(v.bytesVal, flag)
	case KindStr:
		return s.writeStr(v.strVal, v.interned, flag)
	case KindTuple:
		return s.writeTupleOf(v.items, flag, depth)
	case KindList:
		if !fitsCount(len(v.items)) {
			return fmt.Errorf("%w: %d elements", ErrTooLarge, len(v.items))
		}
		w.WriteByte(typeList | flag)
		w.WriteInt32(int32(len(v.items)))
		return s.writeItems(v.items, depth)
	case KindSet, KindFrozenSet:
		for _, item := range v.items {
			if err := hashableValue(item, 0); err != nil {
				return err
			}
		}
		if !fitsCount(len(v.items)) {
			return fmt.Errorf("%w: %d elements", ErrTooLarge, len(v.items))
		}
		if v.kind == KindSet {
			w.WriteByte(typeSet | flag)
		} else {
			w.WriteByte(typeFrozenSet | flag)
		}
		w.WriteInt32(int32(len(v.items)))
		return s.writeItems(v.items, depth)
	case KindDict:
		for _, entry := range v.entries {
			if err := hashableValue(entry.Key, 0); err != nil {
				return err
			}
		}
		w.WriteByte(typeDict | flag)
		for _, entry := range v.entries {
			if err := s.writeObject(entry.Key, depth+1); err != nil {
				return err
			}
			if err := s.writeObject(entry.Value, depth+1); err != nil {
				return err
			}
		}
		w.WriteByte(typeNull)
		return w.Err()
	case KindCode:
		return s.writeCode(v.codeVal, flag, depth)
	default:
		return fmt.Errorf("%w: %s", ErrUnmarshallable, v.Kind())
	}
}

func (s *encodeState) writeItems(items []*Value, depth int) error {
	for _, item := range items {
		if err := s.writeObject(item, depth+1); err != nil {
			return err
		}
	}
	return s.w.Err()
}

// writeTupleHeader writes a tuple tag and count, using the one-byte small
// form when the version has it.
func (s *encodeState) writeTupleHeader(n int, flag byte) error {
	if s.e.version >= Version4 && n < 256 {
		s.w.WriteByte(typeSmallTuple | flag)
		s.w.WriteUint8(uint8(n))
		return s.w.Err()
	}
	if !fitsCount(n) {
		return fmt.Errorf("%w: %d elements", ErrTooLarge, n)
	}
	s.w.WriteByte(typeTuple | flag)
	s.w.WriteInt32(int32(n))
	return s.w.Err()
}

func (s *encodeState) writeTupleOf(items []*Value, flag byte, depth int) error {
	if err := s.writeTupleHeader(len(items), flag); err != nil {
		return err
	}
	return s.writeItems(items, depth)
}

func (s *encodeState) writeLong(v *Value, flag byte) error {
	n := v.bigVal
	if n == nil {
		n = big.NewInt(v.intVal)
	}
	digits := pylongDigits(n)
	if !fitsCount(len(digits)) {
		return fmt.Errorf("%w: %d long digits", ErrTooLarge, len(digits))
	}
	count := int32(len(digits))
	if n.Sign() < 0 {
		count = -count
	}
	s.w.WriteByte(typeLong | flag)
	s.w.WriteInt32(count)
	for _, d := range digits {
		s.w.WriteUint16(d)
	}
	return s.w.Err()
}

func (s *encodeState) writeFloatText(f float64) {
	text := formatFloatText(f)
	s.w.WriteUint8(uint8(len(text)))
	s.w.WriteString(text)
}

// formatFloatText renders f the way repr() does: the shortest decimal that
// round-trips, with the special values spelled so float() parses them back.
func formatFloatText(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (s *encodeState) writeBytesPayload(b []byte, flag byte) error {
	if !fitsCount(len(b)) {
		return fmt.Errorf("%w: %d-byte string", ErrTooLarge, len(b))
	}
	s.w.WriteByte(typeString | flag)
	s.w.WriteInt32(int32(len(b)))
	s.w.WriteBytes(b)
	return s.w.Err()
}

// writeStr picks the narrowest text form the version allows: short ASCII
// forms from version 4, interned forms from version 1, the plain unicode
// form always.
func (s *encodeState) writeStr(str string, interned bool, flag byte) error {
	w := s.w
	if !fitsCount(len(str)) {
		return fmt.Errorf("%w: %d-byte string", ErrTooLarge, len(str))
	}
	interned = interned && s.e.version >= Version1
	if s.e.version >= Version4 && asciiString(str) {
		if len(str) < 256 {
			if interned {
				w.WriteByte(typeShortAsciiInterned | flag)
			} else {
				w.WriteByte(typeShortAscii | flag)
			}
			w.WriteUint8(uint8(len(str)))
			w.WriteString(str)
			return w.Err()
		}
		if interned {
			w.WriteByte(typeAsciiInterned | flag)
		} else {
			w.WriteByte(typeAscii | flag)
		}
		w.WriteInt32(int32(len(str)))
		w.WriteString(str)
		return w.Err()
	}
	if interned {
		w.WriteByte(typeInterned | flag)
	} else {
		w.WriteByte(typeUnicode | flag)
	}
	w.WriteInt32(int32(len(str)))
	w.WriteString(str)
	return w.Err()
}

func asciiString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// writeCode writes a code object: the fixed header, then the tagged fields
// in wire order. Name tables and the two name strings go out interned, so
// identifiers repeated across nested code objects coalesce into
// backreferences.
func (s *encodeState) writeCode(c *CodeObject, flag byte, depth int) error {
	if c == nil {
		return fmt.Errorf("%w: code value without code object", ErrUnmarshallable)
	}
	w := s.w
	w.WriteByte(typeCode | flag)
	w.WriteUint32(c.ArgCount)
	if s.e.posonly {
		w.WriteUint32(c.PosOnlyArgCount)
	}
	w.WriteUint32(c.KwOnlyArgCount)
	w.WriteUint32(c.NLocals)
	w.WriteUint32(c.StackSize)
	w.WriteUint32(uint32(c.Flags))
	if err := s.writeBytesPayload(c.Code, 0); err != nil {
		return err
	}
	if err := s.writeTupleOf(c.Consts, 0, depth); err != nil {
		return err
	}
	for _, names := range [][]string{c.Names, c.VarNames, c.FreeVars, c.CellVars} {
		if err := s.writeNames(names, depth); err != nil {
			return err
		}
	}
	if err := s.writeObject(InternedStr(c.Filename), depth+1); err != nil {
		return err
	}
	if err := s.writeObject(InternedStr(c.Name), depth+1); err != nil {
		return err
	}
	w.WriteUint32(c.FirstLineNo)
	return s.writeBytesPayload(c.LnoTab, 0)
}

func (s *encodeState) writeNames(names []string, depth int) error {
	if err := s.writeTupleHeader(len(names), 0); err != nil {
		return err
	}
	for _, name := range names {
		if err := s.writeObject(InternedStr(name), depth+1); err != nil {
			return err
		}
	}
	return s.w.Err()
}
