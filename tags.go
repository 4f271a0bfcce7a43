package pymarshal

// Type codes occupy the low 7 bits of every tag byte. The values are ASCII
// mnemonics frozen by the upstream format; renumbering any of them breaks
// interoperability with every serialized blob in existence.
const (
	typeNull               byte = '0'
	typeNone               byte = 'N'
	typeFalse              byte = 'F'
	typeTrue               byte = 'T'
	typeStopIter           byte = 'S'
	typeEllipsis           byte = '.'
	typeInt                byte = 'i'
	typeInt64              byte = 'I'
	typeFloat              byte = 'f'
	typeBinaryFloat        byte = 'g'
	typeComplex            byte = 'x'
	typeBinaryComplex      byte = 'y'
	typeLong               byte = 'l'
	typeString             byte = 's'
	typeInterned           byte = 't'
	typeRef                byte = 'r'
	typeTuple              byte = '('
	typeList               byte = '['
	typeDict               byte = '{'
	typeCode               byte = 'c'
	typeUnicode            byte = 'u'
	typeUnknown            byte = '?'
	typeSet                byte = '<'
	typeFrozenSet          byte = '>'
	typeAscii              byte = 'a'
	typeAsciiInterned      byte = 'A'
	typeSmallTuple         byte = ')'
	typeShortAscii         byte = 'z'
	typeShortAsciiInterned byte = 'Z'
)

// flagRef is the high bit of the tag byte. A flagged object is registered in
// the reference table so later occurrences can point back at it.
const flagRef byte = 0x80

// minVersion reports the lowest format version under which a type code may
// appear. Codes absent from the table are valid at every version.
func minVersion(code byte) int {
	switch code {
	case typeInterned:
		return Version1
	case typeBinaryFloat, typeBinaryComplex:
		return Version2
	case typeRef:
		return Version3
	case typeSmallTuple, typeAscii, typeAsciiInterned, typeShortAscii, typeShortAsciiInterned:
		return Version4
	}
	return Version0
}

// knownType reports whether code names a defined type. The reserved '?' code
// is deliberately excluded: the format claims the byte but gives it no payload.
func knownType(code byte) bool {
	switch code {
	case typeNull, typeNone, typeFalse, typeTrue, typeStopIter, typeEllipsis,
		typeInt, typeInt64, typeFloat, typeBinaryFloat, typeComplex, typeBinaryComplex,
		typeLong, typeString, typeInterned, typeRef, typeTuple, typeList, typeDict,
		typeCode, typeUnicode, typeSet, typeFrozenSet, typeAscii, typeAsciiInterned,
		typeSmallTuple, typeShortAscii, typeShortAsciiInterned:
		return true
	}
	return false
}
