// Package reaction implements the two-slot reaction value carried on a
// message: the local user's reaction and the conversation partner's, packed
// into one backend field. Internally the value is structured; the packed
// string exists only at the serialization boundary.
package reaction

import "strings"

// Separator is the backend's packing token between the local and remote
// halves.
const Separator = "|"

type Value struct {
	Local  string
	Remote string
}

// Parse splits a packed reaction field. Splitting yields at most two parts;
// a missing separator means only the local half is present.
func Parse(packed string) Value {
	if packed == "" {
		return Value{}
	}
	parts := strings.SplitN(packed, Separator, 2)
	v := Value{Local: parts[0]}
	if len(parts) == 2 {
		v.Remote = parts[1]
	}
	return v
}

// Pack renders the value back to the backend field. An entirely empty value
// packs to the empty string, never a bare separator.
func (v Value) Pack() string {
	if v.Local == "" && v.Remote == "" {
		return ""
	}
	return v.Local + Separator + v.Remote
}

func (v Value) HasAny() bool {
	return v.Local != "" || v.Remote != ""
}

// WithLocal returns the value with the local half replaced and the remote
// half untouched.
func (v Value) WithLocal(glyph string) Value {
	return Value{Local: glyph, Remote: v.Remote}
}

// SetLocal replaces the local half of a packed field, preserving the remote
// half exactly.
func SetLocal(packed, glyph string) string {
	return Parse(packed).WithLocal(glyph).Pack()
}

// ClearLocal empties the local half of a packed field.
func ClearLocal(packed string) string {
	return SetLocal(packed, "")
}
