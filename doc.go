/*
Package pymarshal reads and writes Python's marshal serialization format, the
internal format the interpreter uses for compiled code, most visibly as the
body of .pyc files after their header.

A marshal stream is a tagged binary grammar. Every object starts with one tag
byte: the low seven bits name the type, and the high bit marks the object as a
backreference target. Fixed-width payloads are little-endian. Arbitrary
precision integers travel sign-magnitude in base-2**15 digits, two bytes per
digit. Container payloads are length-prefixed child objects, except dicts,
which run until a '0' terminator byte.

The format is versioned from 0 through 4, and both halves of the codec take
the version explicitly:

  - version 1 adds interned strings
  - version 2 adds binary floats and complexes in place of the
    repr()-formatted text forms
  - version 3 adds object sharing: a flagged object joins a reference table,
    and later occurrences are one 'r' record pointing at its index
  - version 4 adds compact forms for ASCII strings and small tuples

A Decoder rejects constructs newer than its version; an Encoder never emits
them. From version 3 on an encoded graph keeps its shape: objects appearing
in several places are written once, and self-referential containers decode
back into genuinely cyclic graphs, because a container reserves its table
slot before its children are read.

Decoded objects are Values, a tagged union covering None, booleans,
StopIteration, Ellipsis, integers of any magnitude, floats, complexes, byte
strings, text strings, tuples, lists, dicts, sets, frozensets, and code
objects. Values are immutable once built, print themselves as Python reprs,
and compare structurally with Equal. Dict keys and set elements must be
hashable by Python's rules, which both halves of the codec enforce.

The decoder is meant for hostile input: nesting is capped, corrupt lengths
cannot cause huge allocations, truncation surfaces as io.ErrUnexpectedEOF,
and every malformed construct maps to a sentinel error that errors.Is can
test.
*/
package pymarshal
