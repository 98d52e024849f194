package nodeid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grafana/regexp"
)

var segmentRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name can be used as a single address segment.
func ValidName(name string) error {
	if name == "" {
		return errors.New("name must not be empty")
	}
	if !segmentRegex.MatchString(name) {
		return fmt.Errorf("invalid name %q: only letters, digits and underscores are allowed", name)
	}
	return nil
}

// Parse creates an Address from its dotted string form.
func Parse(raw string) (Address, error) {
	if raw == "" {
		return Address{}, errors.New("identifier cannot be empty")
	}

	segments := strings.Split(raw, ".")
	for _, s := range segments {
		if s == "" {
			return Address{}, fmt.Errorf("identifier %q contains an empty segment", raw)
		}
		if err := ValidName(s); err != nil {
			return Address{}, fmt.Errorf("identifier %q: %w", raw, err)
		}
	}
	return Address{Path: segments}, nil
}
