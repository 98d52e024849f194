// Package resolver maps a subject and its filter criteria to exactly one
// input file per category: events from the raw dataset; preprocessed BOLD,
// confounds and brain mask from a derivatives pipeline.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/vk/betagrid/internal/bids"
	"github.com/vk/betagrid/internal/ctxlog"
	"github.com/vk/betagrid/internal/metrics"
)

// defaultCache shares layouts between resolvers in one process.
var defaultCache = bids.NewCache()

// Observer is told about each category lookup.
type Observer interface {
	ObserveResolution(category, outcome string, candidates int)
}

// Inputs holds one resolved path per category.
type Inputs struct {
	Subject       string
	EventsFile    string
	PreprocFile   string
	ConfoundsFile string
	BrainmaskFile string
}

// Resolver looks files up in a raw layout and a derivatives layout.
type Resolver struct {
	raw         *bids.Layout
	derivatives *bids.Layout
	observer    Observer
}

type options struct {
	cache    *bids.Cache
	observer Observer
}

// Option configures a Resolver.
type Option func(*options)

// WithCache makes New load layouts through c instead of the process-wide cache.
func WithCache(c *bids.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithObserver reports every lookup outcome to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// DerivativesDir returns where a pipeline's outputs live inside a dataset.
func DerivativesDir(bidsDir, pipeline string) string {
	return filepath.Join(bidsDir, "derivatives", pipeline)
}

// New indexes bidsDir with the raw schema and its derivatives/<pipeline>
// subtree with the bundled derivatives schema.
func New(ctx context.Context, bidsDir, pipeline string, opts ...Option) (*Resolver, error) {
	o := options{cache: defaultCache}
	for _, opt := range opts {
		opt(&o)
	}
	if bidsDir == "" {
		return nil, errors.New("bids directory must not be empty")
	}
	if pipeline == "" {
		return nil, errors.New("derivatives pipeline must not be empty")
	}

	raw, err := o.cache.Load(ctx, bidsDir, bids.SchemaBIDS, bids.DefaultRawExcludes...)
	if err != nil {
		return nil, fmt.Errorf("failed to index BIDS dataset: %w", err)
	}
	deriv, err := o.cache.Load(ctx, DerivativesDir(bidsDir, pipeline), bids.SchemaDerivatives)
	if err != nil {
		return nil, fmt.Errorf("failed to index derivatives pipeline %q: %w", pipeline, err)
	}
	return NewFromLayouts(raw, deriv, WithObserver(o.observer)), nil
}

// NewFromLayouts wraps layouts that were already built.
func NewFromLayouts(raw, derivatives *bids.Layout, opts ...Option) *Resolver {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Resolver{raw: raw, derivatives: derivatives, observer: o.observer}
}

// Raw returns the raw dataset layout.
func (r *Resolver) Raw() *bids.Layout { return r.raw }

// Resolve finds every category for crit.Subject, failing on the first
// category that has zero or several matches.
func (r *Resolver) Resolve(ctx context.Context, crit Criteria) (*Inputs, error) {
	if crit.Subject == "" {
		return nil, ErrEmptySubject
	}

	in := &Inputs{Subject: crit.Subject}
	targets := map[string]*string{
		Events.Name:    &in.EventsFile,
		Preproc.Name:   &in.PreprocFile,
		Confounds.Name: &in.ConfoundsFile,
		Brainmask.Name: &in.BrainmaskFile,
	}
	for _, c := range Categories() {
		path, err := r.ResolveCategory(ctx, c, crit)
		if err != nil {
			return nil, err
		}
		*targets[c.Name] = path
	}
	return in, nil
}

// ResolveCategory returns the single file of category c matching crit.
// The error is a *NoFileFoundError or *AmbiguousFileError when the match
// count is not exactly one.
func (r *Resolver) ResolveCategory(ctx context.Context, c Category, crit Criteria) (string, error) {
	if crit.Subject == "" {
		return "", ErrEmptySubject
	}

	layout := r.derivatives
	if c.Source == SourceRaw {
		layout = r.raw
	}
	q := c.Query(crit)
	matches := layout.Query(q)

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Queried index.", "category", c.Name, "source", c.Source, "root", layout.Root(), "filters", q.Filters.String(), "matches", len(matches))

	switch len(matches) {
	case 1:
		r.observe(c.Name, metrics.OutcomeResolved, 1)
		return matches[0], nil
	case 0:
		r.observe(c.Name, metrics.OutcomeNotFound, 0)
		return "", &NoFileFoundError{Category: c.Name, Subject: crit.Subject}
	default:
		r.observe(c.Name, metrics.OutcomeAmbiguous, len(matches))
		return "", &AmbiguousFileError{
			Category:   c.Name,
			Subject:    crit.Subject,
			Count:      len(matches),
			Candidates: matches,
		}
	}
}

func (r *Resolver) observe(category, outcome string, candidates int) {
	if r.observer != nil {
		r.observer.ObserveResolution(category, outcome, candidates)
	}
}
