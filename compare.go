package pymarshal

import (
	"bytes"
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// Equal reports whether two values are structurally equal. Comparison follows
// Python semantics with two deliberate exceptions: values only ever equal
// values of the same kind (no bool/int or int/float coercion), and floats
// compare by bit pattern, so NaN equals itself and positive and negative zero
// differ. Sets and dicts compare unordered; tuples and lists compare
// elementwise. The interned flag on strings is an encoding hint and does not
// participate. Graphs nested beyond the codec depth limit compare unequal.
func (v *Value) Equal(o *Value) bool {
	return equalValues(v, o, 0)
}

func equalValues(a, b *Value, depth int) bool {
	if a == b {
		return true
	}
	if depth > maxDepth {
		return false
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindNone, KindStopIteration, KindEllipsis:
		return true
	case KindBool:
		return a.boolVal == b.boolVal
	case KindInt:
		// Construction normalizes onto the int64 fast path, so a fast/big
		// mix can never hold the same number.
		if (a.bigVal == nil) != (b.bigVal == nil) {
			return false
		}
		if a.bigVal != nil {
			return a.bigVal.Cmp(b.bigVal) == 0
		}
		return a.intVal == b.intVal
	case KindFloat:
		return sameFloat(a.floatVal, b.floatVal)
	case KindComplex:
		return sameFloat(real(a.complexVal), real(b.complexVal)) &&
			sameFloat(imag(a.complexVal), imag(b.complexVal))
	case KindBytes:
		return bytes.Equal(a.bytesVal, b.bytesVal)
	case KindStr:
		return a.strVal == b.strVal
	case KindTuple, KindList:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !equalValues(a.items[i], b.items[i], depth+1) {
				return false
			}
		}
		return true
	case KindSet, KindFrozenSet:
		return equalUnordered(a.items, b.items, depth)
	case KindDict:
		return equalDicts(a.entries, b.entries, depth)
	case KindCode:
		return equalCode(a.codeVal, b.codeVal, depth)
	default:
		return false
	}
}

func sameFloat(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b)
}

// equalUnordered matches every element of a against a distinct equal element
// of b. Quadratic, but set payloads are small and elements need no hashing.
func equalUnordered(a, b []*Value, depth int) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, av := range a {
		for i, bv := range b {
			if !used[i] && equalValues(av, bv, depth+1) {
				used[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func equalDicts(a, b []DictEntry, depth int) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, ae := range a {
		for i, be := range b {
			if !used[i] && equalValues(ae.Key, be.Key, depth+1) &&
				equalValues(ae.Value, be.Value, depth+1) {
				used[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func equalCode(a, b *CodeObject, depth int) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.ArgCount != b.ArgCount ||
		a.PosOnlyArgCount != b.PosOnlyArgCount ||
		a.KwOnlyArgCount != b.KwOnlyArgCount ||
		a.NLocals != b.NLocals ||
		a.StackSize != b.StackSize ||
		a.Flags != b.Flags ||
		a.Filename != b.Filename ||
		a.Name != b.Name ||
		a.FirstLineNo != b.FirstLineNo {
		return false
	}
	if !bytes.Equal(a.Code, b.Code) || !bytes.Equal(a.LnoTab, b.LnoTab) {
		return false
	}
	if !slices.Equal(a.Names, b.Names) ||
		!slices.Equal(a.VarNames, b.VarNames) ||
		!slices.Equal(a.FreeVars, b.FreeVars) ||
		!slices.Equal(a.CellVars, b.CellVars) {
		return false
	}
	if len(a.Consts) != len(b.Consts) {
		return false
	}
	for i := range a.Consts {
		if !equalValues(a.Consts[i], b.Consts[i], depth+1) {
			return false
		}
	}
	return true
}

// hashableValue checks that v may serve as a dict key or set element. Scalars
// always may; tuples and frozensets may when every element may. Lists, dicts,
// sets, and code objects are mutable or unhashable in Python and are rejected.
func hashableValue(v *Value, depth int) error {
	if depth > maxDepth {
		return ErrRecursionLimit
	}
	switch v.Kind() {
	case KindNone, KindBool, KindStopIteration, KindEllipsis,
		KindInt, KindFloat, KindComplex, KindBytes, KindStr:
		return nil
	case KindTuple, KindFrozenSet:
		for _, item := range v.items {
			if err := hashableValue(item, depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnhashable, v.Kind())
	}
}
