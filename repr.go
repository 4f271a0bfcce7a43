package pymarshal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Repr renders v the way Python's repr() mostly would. Known deviations:
//
//   - Floats use float('nan'), float('inf'), and -float('inf') for the
//     special values, and Go's float-to-decimal conversion otherwise.
//   - Bytes and strings always use double quotes and escape both kinds of
//     quote.
//   - Code objects render with named arguments for readability, and lnotab
//     as bytes(...) with a list of integers instead of a bytes literal.
//   - Nesting past the codec depth limit renders as "...", which also keeps
//     cyclic graphs printable.
func Repr(v *Value) string {
	var b strings.Builder
	writeRepr(&b, v, 0)
	return b.String()
}

// String implements fmt.Stringer as Repr.
func (v *Value) String() string {
	return Repr(v)
}

func writeRepr(b *strings.Builder, v *Value, depth int) {
	if depth > maxDepth {
		b.WriteString("...")
		return
	}
	switch v.Kind() {
	case KindNone:
		b.WriteString("None")
	case KindStopIteration:
		b.WriteString("StopIteration")
	case KindEllipsis:
		b.WriteString("Ellipsis")
	case KindBool:
		if v.boolVal {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case KindInt:
		if v.bigVal != nil {
			b.WriteString(v.bigVal.String())
		} else {
			b.WriteString(strconv.FormatInt(v.intVal, 10))
		}
	case KindFloat:
		writeFloatRepr(b, v.floatVal, true)
	case KindComplex:
		writeComplexRepr(b, v.complexVal)
	case KindBytes:
		writeBytesRepr(b, v.bytesVal)
	case KindStr:
		writeStrRepr(b, v.strVal)
	case KindTuple:
		writeTupleRepr(b, v.items, depth)
	case KindList:
		b.WriteByte('[')
		writeItemsRepr(b, v.items, depth)
		b.WriteByte(']')
	case KindDict:
		b.WriteByte('{')
		for i, entry := range v.entries {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, entry.Key, depth+1)
			b.WriteString(": ")
			writeRepr(b, entry.Value, depth+1)
		}
		b.WriteByte('}')
	case KindSet:
		b.WriteByte('{')
		writeItemsRepr(b, v.items, depth)
		b.WriteByte('}')
	case KindFrozenSet:
		b.WriteString("frozenset(")
		if len(v.items) > 0 {
			b.WriteByte('{')
			writeItemsRepr(b, v.items, depth)
			b.WriteByte('}')
		}
		b.WriteByte(')')
	case KindCode:
		writeCodeRepr(b, v.codeVal, depth)
	default:
		b.WriteString("<unknown>")
	}
}

func writeItemsRepr(b *strings.Builder, items []*Value, depth int) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		writeRepr(b, item, depth+1)
	}
}

func writeTupleRepr(b *strings.Builder, items []*Value, depth int) {
	if len(items) == 0 {
		b.WriteString("()")
		return
	}
	b.WriteByte('(')
	writeItemsRepr(b, items, depth)
	if len(items) == 1 {
		b.WriteByte(',')
	}
	b.WriteByte(')')
}

// writeFloatRepr renders one float. full additionally pins a ".0" onto
// integral values so they read back as floats; the complex form leaves it
// off.
func writeFloatRepr(b *strings.Builder, f float64, full bool) {
	switch {
	case math.IsNaN(f):
		b.WriteString("float('nan')")
		return
	case math.IsInf(f, 1):
		b.WriteString("float('inf')")
		return
	case math.IsInf(f, -1):
		b.WriteString("-float('inf')")
		return
	}
	// Render sign and magnitude separately so -0.0 keeps its sign.
	if math.Signbit(f) {
		b.WriteByte('-')
	}
	text := strconv.FormatFloat(math.Abs(f), 'g', -1, 64)
	b.WriteString(text)
	if full && !strings.ContainsAny(text, ".e") {
		b.WriteString(".0")
	}
}

func writeComplexRepr(b *strings.Builder, c complex128) {
	re, im := real(c), imag(c)
	if re == 0 && !math.Signbit(re) {
		writeFloatRepr(b, im, false)
		b.WriteByte('j')
		return
	}
	b.WriteByte('(')
	writeFloatRepr(b, re, false)
	if im >= 0 || math.IsNaN(im) {
		b.WriteByte('+')
	}
	writeFloatRepr(b, im, false)
	b.WriteString("j)")
}

func writeBytesRepr(b *strings.Builder, data []byte) {
	b.WriteString("b\"")
	for _, c := range data {
		switch {
		case c == '\t':
			b.WriteString("\\t")
		case c == '\n':
			b.WriteString("\\n")
		case c == '\r':
			b.WriteString("\\r")
		case c == '\'' || c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c >= ' ' && c <= '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(b, "\\x%02x", c)
		}
	}
	b.WriteByte('"')
}

func writeStrRepr(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '\t':
			b.WriteString("\\t")
		case r == '\n':
			b.WriteString("\\n")
		case r == '\r':
			b.WriteString("\\r")
		case r == '\'' || r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(b, "\\x%02x", r)
		case r < 0x80 || unicode.IsPrint(r):
			b.WriteRune(r)
		case r <= 0xff:
			fmt.Fprintf(b, "\\x%02x", r)
		case r <= 0xffff:
			fmt.Fprintf(b, "\\u%04x", r)
		default:
			fmt.Fprintf(b, "\\U%08x", r)
		}
	}
	b.WriteByte('"')
}

func writeNamesRepr(b *strings.Builder, names []string) {
	b.WriteByte('[')
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		writeStrRepr(b, name)
	}
	b.WriteByte(']')
}

func writeCodeRepr(b *strings.Builder, c *CodeObject, depth int) {
	if c == nil {
		b.WriteString("code(<nil>)")
		return
	}
	fmt.Fprintf(b, "code(argcount=%d, posonlyargcount=%d, kwonlyargcount=%d, nlocals=%d, stacksize=%d, flags=%s, code=",
		c.ArgCount, c.PosOnlyArgCount, c.KwOnlyArgCount, c.NLocals, c.StackSize, c.Flags)
	writeBytesRepr(b, c.Code)
	b.WriteString(", consts=[")
	for i, item := range c.Consts {
		if i > 0 {
			b.WriteString(", ")
		}
		writeRepr(b, item, depth+1)
	}
	b.WriteString("], names=")
	writeNamesRepr(b, c.Names)
	b.WriteString(", varnames=")
	writeNamesRepr(b, c.VarNames)
	b.WriteString(", freevars=")
	writeNamesRepr(b, c.FreeVars)
	b.WriteString(", cellvars=")
	writeNamesRepr(b, c.CellVars)
	b.WriteString(", filename=")
	writeStrRepr(b, c.Filename)
	b.WriteString(", name=")
	writeStrRepr(b, c.Name)
	fmt.Fprintf(b, ", firstlineno=%d, lnotab=bytes([", c.FirstLineNo)
	for i, x := range c.LnoTab {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(int(x)))
	}
	b.WriteString("]))")
}
