package resolver

import "github.com/vk/betagrid/internal/bids"

// Criteria narrows a file search. Subject is required; every other field is
// a wildcard when empty and is then left out of the index query entirely.
type Criteria struct {
	Subject    string
	Task       string
	Space      string
	Variant    string
	Resolution string
}

// Entity names understood by the bundled schemas.
const (
	EntitySubject = "subject"
	EntityTask    = "task"
	EntitySpace   = "space"
	EntityVariant = "variant"
	EntityRes     = "res"
)

func (c Criteria) value(entity string) string {
	switch entity {
	case EntitySubject:
		return c.Subject
	case EntityTask:
		return c.Task
	case EntitySpace:
		return c.Space
	case EntityVariant:
		return c.Variant
	case EntityRes:
		return c.Resolution
	}
	return ""
}

// Filters returns the subject plus each listed optional entity that has a
// non-empty value.
func (c Criteria) Filters(optional ...string) bids.Filters {
	f := bids.Filters{EntitySubject: c.Subject}
	for _, entity := range optional {
		if v := c.value(entity); v != "" {
			f[entity] = v
		}
	}
	return f
}
