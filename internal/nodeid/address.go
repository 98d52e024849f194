package nodeid

import "strings"

// Address is a parsed node path. The zero value is the empty address.
type Address struct {
	Path []string
}

// New builds an address from already valid segments.
func New(segments ...string) Address {
	return Address{Path: append([]string(nil), segments...)}
}

// String serializes the Address into its canonical dotted form.
func (a Address) String() string {
	return strings.Join(a.Path, ".")
}

// IsZero reports whether the address has no segments.
func (a Address) IsZero() bool { return len(a.Path) == 0 }

// Head returns the first segment and the address of everything after it.
func (a Address) Head() (string, Address) {
	if a.IsZero() {
		return "", Address{}
	}
	return a.Path[0], Address{Path: a.Path[1:]}
}

// Child returns a new address with name appended.
func (a Address) Child(name string) Address {
	out := make([]string, 0, len(a.Path)+1)
	out = append(out, a.Path...)
	return Address{Path: append(out, name)}
}
