package scope

import "strings"

// Scope is a packed dotted path of up to MaxAtoms atoms, each a 16-bit
// interned index. Four atoms fit in each 64-bit word, so a full 8-atom
// scope needs two words (hi, lo); unused slots are zero. Two Scopes compare
// equal iff their (hi, lo) pairs compare equal, giving O(1) equality and a
// trivial hash without ever touching the atom table.
type Scope struct {
	hi, lo uint64
}

// Empty is the zero-atom scope, equal to the result of parsing "".
var Empty Scope

func pack(atoms [MaxAtoms]uint16) Scope {
	var s Scope
	s.hi = uint64(atoms[0])<<48 | uint64(atoms[1])<<32 | uint64(atoms[2])<<16 | uint64(atoms[3])
	s.lo = uint64(atoms[4])<<48 | uint64(atoms[5])<<32 | uint64(atoms[6])<<16 | uint64(atoms[7])
	return s
}

// at returns the i'th atom index (0 for unused slots), i in [0, MaxAtoms).
func (s Scope) at(i int) uint16 {
	var word uint64
	if i < 4 {
		word = s.hi
		i = 3 - i
	} else {
		word = s.lo
		i = 3 - (i - 4)
	}
	return uint16(word >> (16 * i))
}

// ParseScope splits text on '.', interns each atom, and packs the result.
// It fails with ErrTooManyAtoms for more than MaxAtoms segments, or
// ErrAtomTableFull if the process-wide atom table is exhausted.
func ParseScope(text string) (Scope, error) {
	if text == "" {
		return Empty, nil
	}
	parts := strings.Split(text, ".")
	if len(parts) > MaxAtoms {
		return Empty, ErrTooManyAtoms
	}
	var packed [MaxAtoms]uint16
	for i, part := range parts {
		id, err := atoms.intern(part)
		if err != nil {
			return Empty, err
		}
		packed[i] = id
	}
	return pack(packed), nil
}

// MustParseScope is ParseScope but panics on error; for literals known to be valid.
func MustParseScope(text string) Scope {
	s, err := ParseScope(text)
	if err != nil {
		panic("scope: MustParseScope(" + text + "): " + err.Error())
	}
	return s
}

// Len returns the number of non-zero atoms.
func (s Scope) Len() int {
	n := 0
	for i := 0; i < MaxAtoms; i++ {
		if s.at(i) == 0 {
			break
		}
		n++
	}
	return n
}

// IsEmpty reports whether s has zero atoms.
func (s Scope) IsEmpty() bool { return s == Empty }

// String reconstructs the dotted textual form, e.g. "source.js.meta".
func (s Scope) String() string {
	if s.IsEmpty() {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < MaxAtoms; i++ {
		a := s.at(i)
		if a == 0 {
			break
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(atoms.name(a))
	}
	return sb.String()
}

// FirstAtom returns the interned index of s's leading atom, or 0 if s is
// empty. Used by the highlighter's leading-atom rejection table (§4.G),
// which needs the first atom of a selector path without reconstructing its
// full dotted string.
func (s Scope) FirstAtom() uint16 { return s.at(0) }

// IsPrefixOf reports whether every non-zero atom of s matches the
// corresponding atom of other; the remainder of other may be anything.
// This is the prefix test used throughout selector matching (§4.B).
func (s Scope) IsPrefixOf(other Scope) bool {
	for i := 0; i < MaxAtoms; i++ {
		a := s.at(i)
		if a == 0 {
			return true
		}
		if a != other.at(i) {
			return false
		}
	}
	return true
}

// Equal reports value equality on the encoded form.
func (s Scope) Equal(other Scope) bool { return s == other }
