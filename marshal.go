package pymarshal

// Format versions. Higher versions add encodings; a stream written at
// version n never uses a construct introduced after n.
const (
	Version0 = 0 // baseline tag set
	Version1 = 1 // interned strings
	Version2 = 2 // binary floats and complexes
	Version3 = 3 // object sharing through backreferences
	Version4 = 4 // short ASCII and small tuple forms

	// CurrentVersion is the version new streams should use.
	CurrentVersion = Version4
)

// maxDepth bounds container nesting in both directions of the codec, keeping
// hostile input and pathological graphs from exhausting the goroutine stack.
const maxDepth = 900

// Unmarshal decodes the first object in data at the given format version.
// It is shorthand for NewDecoder(version).Unmarshal(data).
func Unmarshal(data []byte, version int) (*Value, error) {
	return NewDecoder(version).Unmarshal(data)
}

// Marshal encodes v at the given format version. It is shorthand for
// NewEncoder(version).Marshal(v).
func Marshal(v *Value, version int) ([]byte, error) {
	return NewEncoder(version).Marshal(v)
}
