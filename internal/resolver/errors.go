package resolver

import (
	"errors"
	"fmt"
)

// ErrEmptySubject is returned when a lookup is attempted without a subject.
var ErrEmptySubject = errors.New("subject identifier must not be empty")

// NoFileFoundError reports a category with no matching file for a subject.
type NoFileFoundError struct {
	Category string
	Subject  string
}

func (e *NoFileFoundError) Error() string {
	return fmt.Sprintf("no %s file found for participant %s", e.Category, e.Subject)
}

// AmbiguousFileError reports a category that matched more than one file.
type AmbiguousFileError struct {
	Category   string
	Subject    string
	Count      int
	Candidates []string
}

func (e *AmbiguousFileError) Error() string {
	return fmt.Sprintf("too many %s files (%d) found for participant %s", e.Category, e.Count, e.Subject)
}
