package pymarshal

import (
	"fmt"
	"strings"
)

// CodeFlags is the bit set stored in a code object's flags field. The bit
// values match CPython's CO_* constants. Unknown bits survive a decode/encode
// round trip untouched.
type CodeFlags uint32

const (
	FlagOptimized   CodeFlags = 0x1
	FlagNewLocals   CodeFlags = 0x2
	FlagVarArgs     CodeFlags = 0x4
	FlagVarKeywords CodeFlags = 0x8
	FlagNested      CodeFlags = 0x10
	FlagGenerator   CodeFlags = 0x20
	FlagNoFree      CodeFlags = 0x40
	FlagCoroutine   CodeFlags = 0x80

	FlagIterableCoroutine CodeFlags = 0x100
	FlagAsyncGenerator    CodeFlags = 0x200

	// Compiler feature flags carried by older Python versions.
	FlagGeneratorAllowed      CodeFlags = 0x1000
	FlagFutureDivision        CodeFlags = 0x2000
	FlagFutureAbsoluteImport  CodeFlags = 0x4000
	FlagFutureWithStatement   CodeFlags = 0x8000
	FlagFuturePrintFunction   CodeFlags = 0x10000
	FlagFutureUnicodeLiterals CodeFlags = 0x20000
	FlagFutureBarryAsBDFL     CodeFlags = 0x40000
	FlagFutureGeneratorStop   CodeFlags = 0x80000
	FlagFutureAnnotations     CodeFlags = 0x100000
)

var codeFlagNames = []struct {
	flag CodeFlags
	name string
}{
	{FlagOptimized, "OPTIMIZED"},
	{FlagNewLocals, "NEWLOCALS"},
	{FlagVarArgs, "VARARGS"},
	{FlagVarKeywords, "VARKEYWORDS"},
	{FlagNested, "NESTED"},
	{FlagGenerator, "GENERATOR"},
	{FlagNoFree, "NOFREE"},
	{FlagCoroutine, "COROUTINE"},
	{FlagIterableCoroutine, "ITERABLE_COROUTINE"},
	{FlagAsyncGenerator, "ASYNC_GENERATOR"},
	{FlagGeneratorAllowed, "GENERATOR_ALLOWED"},
	{FlagFutureDivision, "FUTURE_DIVISION"},
	{FlagFutureAbsoluteImport, "FUTURE_ABSOLUTE_IMPORT"},
	{FlagFutureWithStatement, "FUTURE_WITH_STATEMENT"},
	{FlagFuturePrintFunction, "FUTURE_PRINT_FUNCTION"},
	{FlagFutureUnicodeLiterals, "FUTURE_UNICODE_LITERALS"},
	{FlagFutureBarryAsBDFL, "FUTURE_BARRY_AS_BDFL"},
	{FlagFutureGeneratorStop, "FUTURE_GENERATOR_STOP"},
	{FlagFutureAnnotations, "FUTURE_ANNOTATIONS"},
}

// Has reports whether every bit of mask is set in f.
func (f CodeFlags) Has(mask CodeFlags) bool {
	return f&mask == mask
}

// String renders the named bits joined by " | ", with any unnamed remainder
// as a trailing hex literal. The zero value renders as "0x0".
func (f CodeFlags) String() string {
	if f == 0 {
		return "0x0"
	}
	var parts []string
	rest := f
	for _, e := range codeFlagNames {
		if rest&e.flag != 0 {
			parts = append(parts, e.name)
			rest &^= e.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%X", uint32(rest)))
	}
	return strings.Join(parts, " | ")
}

// CodeObject is a Python code object: compiled bytecode together with the
// constants, symbol tables, and source metadata the interpreter needs to run
// it. Field order matches the wire layout. PosOnlyArgCount exists on the wire
// only for Python 3.8+ streams; whether it is read and written is controlled
// per codec with WithPosOnlyArgCount.
type CodeObject struct {
	ArgCount        uint32
	PosOnlyArgCount uint32
	KwOnlyArgCount  uint32
	NLocals         uint32
	StackSize       uint32
	Flags           CodeFlags
	Code            []byte
	Consts          []*Value
	Names           []string
	VarNames        []string
	FreeVars        []string
	CellVars        []string
	Filename        string
	Name            string
	FirstLineNo     uint32
	LnoTab          []byte
}
