package pymarshal

import "errors"

var (
	// ErrUnknownTag indicates a tag byte outside the closed type-code enumeration.
	// The reserved '?' code decodes to this as well: the format names it but never
	// defines a payload for it.
	ErrUnknownTag = errors.New("pymarshal: unknown type tag")

	// ErrBadRef indicates a backreference index at or beyond the current length
	// of the reference table. References only ever point backwards; there is no
	// lookahead resolution.
	ErrBadRef = errors.New("pymarshal: invalid object reference")

	// ErrRecursionLimit indicates nesting beyond the depth the format guarantees
	// to decode. This is the primary hostile-input defense: a crafted input fails
	// here instead of overflowing the call stack.
	ErrRecursionLimit = errors.New("pymarshal: maximum recursion depth exceeded")

	// ErrInvalidLength indicates a negative length prefix on a container or
	// string payload.
	ErrInvalidLength = errors.New("pymarshal: invalid length prefix")

	// ErrInvalidText indicates a text payload that is not valid UTF-8. Malformed
	// text is rejected, never repaired.
	ErrInvalidText = errors.New("pymarshal: text is not valid UTF-8")

	// ErrUnsupportedVersion indicates a tag that is only defined under a newer
	// format version than the one configured for the call.
	ErrUnsupportedVersion = errors.New("pymarshal: tag not supported by format version")

	// ErrBadVersion indicates a format version outside the range this package
	// understands (0 through CurrentVersion).
	ErrBadVersion = errors.New("pymarshal: format version out of range")

	// ErrUnexpectedNull indicates the null tag '0' in object position. Null is
	// punctuation (the dict terminator), not a value.
	ErrUnexpectedNull = errors.New("pymarshal: unexpected null tag")

	// ErrDigitRange indicates a long digit with more than 15 significant bits.
	ErrDigitRange = errors.New("pymarshal: long digit out of range")

	// ErrUnnormalized indicates a long whose most significant digit is zero.
	// Canonical encodings drop leading zero digits.
	ErrUnnormalized = errors.New("pymarshal: unnormalized long")

	// ErrBadFloat indicates a textual float payload that does not parse as a
	// decimal floating-point literal.
	ErrBadFloat = errors.New("pymarshal: malformed float literal")

	// ErrUnhashable indicates a set element or dict key of a kind the format
	// does not allow in hashed positions (lists, dicts, sets, code objects).
	ErrUnhashable = errors.New("pymarshal: unhashable value")

	// ErrWrongType indicates a code-object field of the wrong kind, or an
	// accessor applied to a value of another kind.
	ErrWrongType = errors.New("pymarshal: unexpected value kind")

	// ErrTooLarge indicates a string, container, or reference count exceeding
	// the format's signed 32-bit size limits.
	ErrTooLarge = errors.New("pymarshal: data too large for format")

	// ErrUnmarshallable indicates a value that cannot be written, such as one
	// of the Unknown kind.
	ErrUnmarshallable = errors.New("pymarshal: value cannot be marshalled")
)
