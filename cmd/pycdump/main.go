// Pycdump decodes a marshaled Python object stream and prints it as a
// single line of JSON. Values JSON cannot express natively (bytes, tuples,
// sets, code objects, ...) are wrapped in {"type": ..., "value": ...}
// envelopes; bytes are base64, sets are sorted so the output is
// deterministic, and code objects carry their fields under co_ names.
//
// Usage:
//
//	pycdump [flags] [file ...]
//
// With no files the stream is read from standard input. Several files are
// decoded in parallel and printed in argument order, one document per line.
//
// The flags are:
//
//	-format=plain
//	    Input layout: "plain" for a bare marshal stream, "bytecode" for a
//	    compiled .pyc module whose 16-byte header is checked and skipped
//	-version=4
//	    Format version the input was written at (0-4)
//	-posonly=true
//	    Expect the positional-only argument count in code objects (3.8+)
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	pymarshal "github.com/DuckLogic/py-marshal"
)

const (
	formatPlain    = "plain"
	formatBytecode = "bytecode"
)

var (
	format  = flag.String("format", formatPlain, `input layout: "plain" or "bytecode"`)
	version = flag.Int("version", pymarshal.CurrentVersion, "format version the input was written at (0-4)")
	posonly = flag.Bool("posonly", true, "expect the positional-only argument count in code objects (3.8+)")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("pycdump: ")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [file ...]\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "    with no files, the stream is read from standard input\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if *format != formatPlain && *format != formatBytecode {
		log.Fatalf("unknown format %q", *format)
	}
	if err := run(flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(files []string) error {
	if len(files) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		line, err := dump(data, *format, *version, *posonly)
		if err != nil {
			return err
		}
		fmt.Println(line)
		return nil
	}

	// Decode in parallel, print in argument order.
	lines := make([]string, len(files))
	var g errgroup.Group
	for i, name := range files {
		g.Go(func() error {
			data, err := os.ReadFile(name)
			if err != nil {
				return err
			}
			line, err := dump(data, *format, *version, *posonly)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

// dump decodes one input and renders it as a JSON document.
func dump(data []byte, format string, version int, posonly bool) (string, error) {
	if format == formatBytecode {
		payload, err := stripPycHeader(data)
		if err != nil {
			return "", fmt.Errorf("bytecode header: %w", err)
		}
		data = payload
	}
	v, err := pymarshal.NewDecoder(version).WithPosOnlyArgCount(posonly).Unmarshal(data)
	if err != nil {
		return "", err
	}
	d := &dumper{active: make(map[*pymarshal.Value]bool)}
	doc, err := d.serialize(v)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// pycHeaderSize is the fixed size of a timestamp-based .pyc header: a u16
// magic number, "\r\n", then three u32 words (flags, source mtime, source
// size). See _code_to_timestamp_pyc in CPython's importlib._bootstrap_external.
const pycHeaderSize = 16

func stripPycHeader(data []byte) ([]byte, error) {
	r := pymarshal.NewReader(data)
	var magic uint16
	r.ReadUint16(&magic)
	sep := r.ReadBytes(2)
	var flags, mtime, sourceSize uint32
	r.ReadUint32(&flags)
	r.ReadUint32(&mtime)
	r.ReadUint32(&sourceSize)
	if _, err := r.Result(); err != nil {
		return nil, err
	}
	if string(sep) != "\r\n" {
		return nil, fmt.Errorf(`magic number %d not followed by \r\n (got %q)`, magic, sep)
	}
	if flags != 0 {
		return nil, fmt.Errorf("flags %#x unsupported: only timestamp-based caching is understood", flags)
	}
	return data[pycHeaderSize:], nil
}

var errCircular = errors.New("circular reference detected")

// dumper renders decoded values as JSON-marshalable documents. Backreferenced
// streams may hold genuinely cyclic graphs, so containers on the current
// recursion path are tracked and a revisit fails instead of recursing forever.
type dumper struct {
	active map[*pymarshal.Value]bool
}

func (d *dumper) serialize(v *pymarshal.Value) (any, error) {
	switch v.Kind() {
	case pymarshal.KindTuple, pymarshal.KindList, pymarshal.KindSet,
		pymarshal.KindFrozenSet, pymarshal.KindDict, pymarshal.KindCode:
		if d.active[v] {
			return nil, errCircular
		}
		d.active[v] = true
		defer delete(d.active, v)
	}

	switch v.Kind() {
	case pymarshal.KindNone:
		return envelope("NoneType", nil), nil
	case pymarshal.KindStopIteration:
		return envelope("StopIteration", nil), nil
	case pymarshal.KindEllipsis:
		return envelope("ellipsis", nil), nil
	case pymarshal.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case pymarshal.KindInt:
		n, err := v.AsInt()
		if err != nil {
			return nil, err
		}
		return n, nil
	case pymarshal.KindFloat:
		f, _ := v.AsFloat()
		return jsonFloat(f), nil
	case pymarshal.KindComplex:
		c, _ := v.AsComplex()
		return envelope("complex", []any{jsonFloat(real(c)), jsonFloat(imag(c))}), nil
	case pymarshal.KindBytes:
		b, _ := v.AsBytes()
		return envelope("bytes", base64.StdEncoding.EncodeToString(b)), nil
	case pymarshal.KindStr:
		s, _ := v.AsStr()
		return s, nil
	case pymarshal.KindTuple:
		items, _ := v.AsTuple()
		vals, err := d.serializeItems(items)
		if err != nil {
			return nil, err
		}
		return envelope("tuple", vals), nil
	case pymarshal.KindList:
		items, _ := v.AsList()
		vals, err := d.serializeItems(items)
		if err != nil {
			return nil, err
		}
		return envelope("list", vals), nil
	case pymarshal.KindSet:
		items, _ := v.AsSet()
		vals, err := d.serializeItems(sortedElems(items))
		if err != nil {
			return nil, err
		}
		return envelope("set", vals), nil
	case pymarshal.KindFrozenSet:
		items, _ := v.AsFrozenSet()
		vals, err := d.serializeItems(sortedElems(items))
		if err != nil {
			return nil, err
		}
		return envelope("frozenset", vals), nil
	case pymarshal.KindDict:
		entries, _ := v.AsDict()
		obj := make(map[string]any, len(entries))
		for _, ent := range entries {
			key, err := ent.Key.AsStr()
			if err != nil {
				return nil, fmt.Errorf("dict key: %w", err)
			}
			val, err := d.serialize(ent.Value)
			if err != nil {
				return nil, err
			}
			obj[key] = val
		}
		return envelope("dict", obj), nil
	case pymarshal.KindCode:
		c, _ := v.AsCode()
		consts, err := d.serializeItems(c.Consts)
		if err != nil {
			return nil, err
		}
		return envelope("code", map[string]any{
			"co_argcount":        c.ArgCount,
			"co_posonlyargcount": c.PosOnlyArgCount,
			"co_kwonlyargcount":  c.KwOnlyArgCount,
			"co_nlocals":         c.NLocals,
			"co_stacksize":       c.StackSize,
			"co_flags":           uint32(c.Flags),
			"co_code":            envelope("bytes", base64.StdEncoding.EncodeToString(c.Code)),
			"co_consts":          consts,
			"co_names":           c.Names,
			"co_varnames":        c.VarNames,
			"co_freevars":        c.FreeVars,
			"co_cellvars":        c.CellVars,
			"co_filename":        c.Filename,
			"co_name":            c.Name,
			"co_firstlineno":     c.FirstLineNo,
			"co_lnotab":          envelope("bytes", base64.StdEncoding.EncodeToString(c.LnoTab)),
		}), nil
	default:
		return nil, fmt.Errorf("cannot dump %s value", v.Kind())
	}
}

func (d *dumper) serializeItems(items []*pymarshal.Value) ([]any, error) {
	vals := make([]any, len(items))
	for i, item := range items {
		val, err := d.serialize(item)
		if err != nil {
			return nil, err
		}
		vals[i] = val
	}
	return vals, nil
}

func envelope(typeName string, value any) map[string]any {
	return map[string]any{"type": typeName, "value": value}
}

// jsonFloat maps NaN and the infinities, which have no JSON representation,
// to null.
func jsonFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// sortedElems orders set elements for output. Python sets iterate in hash
// order, which is useless for comparing dumps, so elements are ranked by
// type and then by value within each type; kinds with no useful order sort
// first and keep their decode order among themselves.
func sortedElems(items []*pymarshal.Value) []*pymarshal.Value {
	out := slices.Clone(items)
	slices.SortStableFunc(out, ordCompare)
	return out
}

func ordRank(v *pymarshal.Value) int {
	switch v.Kind() {
	case pymarshal.KindBool:
		return 1
	case pymarshal.KindBytes:
		return 2
	case pymarshal.KindStr:
		return 3
	case pymarshal.KindInt:
		return 4
	case pymarshal.KindFloat:
		return 5
	case pymarshal.KindFrozenSet:
		return 6
	case pymarshal.KindTuple:
		return 7
	default:
		// None, StopIteration, Ellipsis; complex is technically unordered.
		return 0
	}
}

func ordCompare(a, b *pymarshal.Value) int {
	ra, rb := ordRank(a), ordRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		av, _ := a.AsBool()
		bv, _ := b.AsBool()
		switch {
		case av == bv:
			return 0
		case bv:
			return -1
		default:
			return 1
		}
	case 2:
		av, _ := a.AsBytes()
		bv, _ := b.AsBytes()
		return bytes.Compare(av, bv)
	case 3:
		av, _ := a.AsStr()
		bv, _ := b.AsStr()
		return strings.Compare(av, bv)
	case 4:
		av, _ := a.AsBigInt()
		bv, _ := b.AsBigInt()
		return av.Cmp(bv)
	case 5:
		av, _ := a.AsFloat()
		bv, _ := b.AsFloat()
		return compareFloat(av, bv)
	case 6:
		av, _ := a.AsFrozenSet()
		bv, _ := b.AsFrozenSet()
		return slices.CompareFunc(sortedElems(av), sortedElems(bv), ordCompare)
	case 7:
		av, _ := a.AsTuple()
		bv, _ := b.AsTuple()
		return slices.CompareFunc(av, bv, ordCompare)
	default:
		return 0
	}
}

// compareFloat is a total order over float64: NaN sorts after every number
// and equals itself, and the zeros compare equal.
func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	}
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	default:
		return -1
	}
}
