package tsvdb

// interner deduplicates repeated cell text into small integer indices.
// Index 0 is always the empty string, so 0 doubles as the "no value"
// sentinel for interned fields. One interner is scoped to one source file
// and is never shared across files.
type interner struct {
	strings []string
	indices map[string]int32
}

// newInterner creates an interner whose index 0 is the empty string.
func newInterner() *interner {
	in := &interner{
		strings: make([]string, 1, 64),
		indices: make(map[string]int32, 64),
	}
	in.strings[0] = ""
	in.indices[""] = 0
	return in
}

// intern returns the index for s, assigning the next free index on first use.
func (in *interner) intern(s string) int32 {
	if idx, ok := in.indices[s]; ok {
		return idx
	}
	idx := int32(len(in.strings))
	in.strings = append(in.strings, s)
	in.indices[s] = idx
	return idx
}

// lookup returns the string for an index previously returned by intern.
func (in *interner) lookup(idx int32) string {
	if idx < 0 || int(idx) >= len(in.strings) {
		return ""
	}
	return in.strings[idx]
}
