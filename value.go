package pymarshal

import (
	"fmt"
	"math/big"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindStopIteration
	KindEllipsis
	KindInt
	KindFloat
	KindComplex
	KindBytes
	KindStr
	KindTuple
	KindList
	KindDict
	KindSet
	KindFrozenSet
	KindCode
	KindUnknown // reserved by the format, never produced by decoding
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindStopIteration:
		return "stopiteration"
	case KindEllipsis:
		return "ellipsis"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindComplex:
		return "complex"
	case KindBytes:
		return "bytes"
	case KindStr:
		return "str"
	case KindTuple:
		return "tuple"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindSet:
		return "set"
	case KindFrozenSet:
		return "frozenset"
	case KindCode:
		return "code"
	default:
		return "unknown"
	}
}

// Value is one node of a decoded object graph. A Value is immutable once
// constructed; constructors retain the slices they are given, so a caller
// that wants to keep mutating its inputs must pass copies. Shared handles
// (the same *Value appearing in several places) are how the codec represents
// backreferenced objects, including self-referential containers.
type Value struct {
	kind Kind

	boolVal    bool
	intVal     int64
	bigVal     *big.Int // set only when the value does not fit in int64
	floatVal   float64
	complexVal complex128
	strVal     string
	interned   bool
	bytesVal   []byte

	items   []*Value // tuple, list, set, frozenset
	entries []DictEntry
	codeVal *CodeObject
}

// DictEntry is one key/value pair of a dict, in insertion order.
type DictEntry struct {
	Key   *Value
	Value *Value
}

// Entry builds a DictEntry, making Dict literals readable.
func Entry(key, value *Value) DictEntry {
	return DictEntry{Key: key, Value: value}
}

// None creates the none value.
func None() *Value {
	return &Value{kind: KindNone}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, boolVal: v}
}

// StopIteration creates the stop-iteration marker.
func StopIteration() *Value {
	return &Value{kind: KindStopIteration}
}

// Ellipsis creates the ellipsis marker.
func Ellipsis() *Value {
	return &Value{kind: KindEllipsis}
}

// Int creates an integer value.
func Int(v int64) *Value {
	return &Value{kind: KindInt, intVal: v}
}

// BigInt creates an integer value of arbitrary magnitude. The argument is
// copied. Values that fit in int64 are normalized onto the fast path, so two
// representations of the same integer always compare equal.
func BigInt(n *big.Int) *Value {
	if n.IsInt64() {
		return &Value{kind: KindInt, intVal: n.Int64()}
	}
	return &Value{kind: KindInt, bigVal: new(big.Int).Set(n)}
}

// Float creates a float value.
func Float(v float64) *Value {
	return &Value{kind: KindFloat, floatVal: v}
}

// Complex creates a complex value.
func Complex(v complex128) *Value {
	return &Value{kind: KindComplex, complexVal: v}
}

// Str creates a text value.
func Str(v string) *Value {
	return &Value{kind: KindStr, strVal: v}
}

// InternedStr creates an interned text value. Interned strings are always
// eligible backreference targets when encoded, keyed by content rather than
// by object identity.
func InternedStr(v string) *Value {
	return &Value{kind: KindStr, strVal: v, interned: true}
}

// BytesOf creates a raw byte-string value.
func BytesOf(v []byte) *Value {
	return &Value{kind: KindBytes, bytesVal: v}
}

// Tuple creates a tuple value.
func Tuple(items ...*Value) *Value {
	return &Value{kind: KindTuple, items: items}
}

// List creates a list value.
func List(items ...*Value) *Value {
	return &Value{kind: KindList, items: items}
}

// Dict creates a dict value. Entry order is preserved on the wire.
func Dict(entries ...DictEntry) *Value {
	return &Value{kind: KindDict, entries: entries}
}

// Set creates a set value. Element order is preserved on the wire.
func Set(items ...*Value) *Value {
	return &Value{kind: KindSet, items: items}
}

// FrozenSet creates a frozenset value.
func FrozenSet(items ...*Value) *Value {
	return &Value{kind: KindFrozenSet, items: items}
}

// Code creates a code-object value.
func Code(c *CodeObject) *Value {
	return &Value{kind: KindCode, codeVal: c}
}

// Kind returns the variant held by v. A nil Value reports KindNone.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNone
	}
	return v.kind
}

// IsNone reports whether v is the none value.
func (v *Value) IsNone() bool {
	return v == nil || v.kind == KindNone
}

// AsBool returns the boolean value.
func (v *Value) AsBool() (bool, error) {
	if v == nil || v.kind != KindBool {
		return false, fmt.Errorf("%w: expected bool, got %s", ErrWrongType, v.Kind())
	}
	return v.boolVal, nil
}

// AsInt returns the integer value if it fits in int64.
func (v *Value) AsInt() (int64, error) {
	if v == nil || v.kind != KindInt {
		return 0, fmt.Errorf("%w: expected int, got %s", ErrWrongType, v.Kind())
	}
	if v.bigVal != nil {
		return 0, fmt.Errorf("%w: %s overflows int64", ErrTooLarge, v.bigVal)
	}
	return v.intVal, nil
}

// AsBigInt returns the integer value at any magnitude. The result is a fresh
// big.Int owned by the caller.
func (v *Value) AsBigInt() (*big.Int, error) {
	if v == nil || v.kind != KindInt {
		return nil, fmt.Errorf("%w: expected int, got %s", ErrWrongType, v.Kind())
	}
	if v.bigVal != nil {
		return new(big.Int).Set(v.bigVal), nil
	}
	return big.NewInt(v.intVal), nil
}

// AsFloat returns the float value.
func (v *Value) AsFloat() (float64, error) {
	if v == nil || v.kind != KindFloat {
		return 0, fmt.Errorf("%w: expected float, got %s", ErrWrongType, v.Kind())
	}
	return v.floatVal, nil
}

// AsComplex returns the complex value.
func (v *Value) AsComplex() (complex128, error) {
	if v == nil || v.kind != KindComplex {
		return 0, fmt.Errorf("%w: expected complex, got %s", ErrWrongType, v.Kind())
	}
	return v.complexVal, nil
}

// AsStr returns the text value.
func (v *Value) AsStr() (string, error) {
	if v == nil || v.kind != KindStr {
		return "", fmt.Errorf("%w: expected str, got %s", ErrWrongType, v.Kind())
	}
	return v.strVal, nil
}

// Interned reports whether v is an interned text value.
func (v *Value) Interned() bool {
	return v != nil && v.kind == KindStr && v.interned
}

// AsBytes returns the raw byte string. The slice is the value's backing
// storage and must not be modified.
func (v *Value) AsBytes() ([]byte, error) {
	if v == nil || v.kind != KindBytes {
		return nil, fmt.Errorf("%w: expected bytes, got %s", ErrWrongType, v.Kind())
	}
	return v.bytesVal, nil
}

// AsTuple returns the tuple elements.
func (v *Value) AsTuple() ([]*Value, error) {
	if v == nil || v.kind != KindTuple {
		return nil, fmt.Errorf("%w: expected tuple, got %s", ErrWrongType, v.Kind())
	}
	return v.items, nil
}

// AsList returns the list elements.
func (v *Value) AsList() ([]*Value, error) {
	if v == nil || v.kind != KindList {
		return nil, fmt.Errorf("%w: expected list, got %s", ErrWrongType, v.Kind())
	}
	return v.items, nil
}

// AsDict returns the dict entries in insertion order.
func (v *Value) AsDict() ([]DictEntry, error) {
	if v == nil || v.kind != KindDict {
		return nil, fmt.Errorf("%w: expected dict, got %s", ErrWrongType, v.Kind())
	}
	return v.entries, nil
}

// AsSet returns the set elements in wire order.
func (v *Value) AsSet() ([]*Value, error) {
	if v == nil || v.kind != KindSet {
		return nil, fmt.Errorf("%w: expected set, got %s", ErrWrongType, v.Kind())
	}
	return v.items, nil
}

// AsFrozenSet returns the frozenset elements in wire order.
func (v *Value) AsFrozenSet() ([]*Value, error) {
	if v == nil || v.kind != KindFrozenSet {
		return nil, fmt.Errorf("%w: expected frozenset, got %s", ErrWrongType, v.Kind())
	}
	return v.items, nil
}

// AsCode returns the code object.
func (v *Value) AsCode() (*CodeObject, error) {
	if v == nil || v.kind != KindCode {
		return nil, fmt.Errorf("%w: expected code, got %s", ErrWrongType, v.Kind())
	}
	return v.codeVal, nil
}

// Len returns the element count of a container value, the entry count of a
// dict, or 0 for every other kind.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.kind {
	case KindTuple, KindList, KindSet, KindFrozenSet:
		return len(v.items)
	case KindDict:
		return len(v.entries)
	default:
		return 0
	}
}

// Index returns the i-th element of a tuple, list, set, or frozenset.
func (v *Value) Index(i int) (*Value, error) {
	switch v.Kind() {
	case KindTuple, KindList, KindSet, KindFrozenSet:
	default:
		return nil, fmt.Errorf("%w: %s is not indexable", ErrWrongType, v.Kind())
	}
	if i < 0 || i >= len(v.items) {
		return nil, fmt.Errorf("pymarshal: index %d out of range (len=%d)", i, len(v.items))
	}
	return v.items[i], nil
}
