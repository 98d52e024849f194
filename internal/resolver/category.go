package resolver

import "github.com/vk/betagrid/internal/bids"

// Source says which index a category is looked up in.
type Source int

const (
	// SourceRaw is the raw BIDS dataset.
	SourceRaw Source = iota
	// SourceDerivatives is the derivatives pipeline tree.
	SourceDerivatives
)

func (s Source) String() string {
	if s == SourceRaw {
		return "raw"
	}
	return "derivatives"
}

// Category is one kind of input file a subject must provide exactly once.
type Category struct {
	Name       string
	Source     Source
	Type       string
	Extensions []string
	// Optional lists the criteria entities applied when non-empty.
	Optional []string
}

// Query builds the index query for c under the given criteria.
func (c Category) Query(crit Criteria) bids.Query {
	return bids.Query{
		Type:       c.Type,
		Extensions: c.Extensions,
		Filters:    crit.Filters(c.Optional...),
	}
}

var (
	niftiExtensions = []string{"nii", "nii.gz"}
	tableExtensions = []string{"tsv"}
)

// The four categories resolved for every subject.
var (
	Events = Category{
		Name:       "events",
		Source:     SourceRaw,
		Type:       "events",
		Extensions: tableExtensions,
		Optional:   []string{EntityTask},
	}
	Preproc = Category{
		Name:       "preproc",
		Source:     SourceDerivatives,
		Type:       "preproc",
		Extensions: niftiExtensions,
		Optional:   []string{EntityTask, EntityVariant, EntitySpace, EntityRes},
	}
	Confounds = Category{
		Name:       "confounds",
		Source:     SourceDerivatives,
		Type:       "confounds",
		Extensions: tableExtensions,
		Optional:   []string{EntityTask},
	}
	Brainmask = Category{
		Name:       "brainmask",
		Source:     SourceDerivatives,
		Type:       "brainmask",
		Extensions: niftiExtensions,
		Optional:   []string{EntityTask, EntitySpace, EntityRes},
	}
)

// Categories returns the categories in resolution order.
func Categories() []Category {
	return []Category{Events, Preproc, Confounds, Brainmask}
}
