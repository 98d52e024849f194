package bids

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vk/betagrid/internal/ctxlog"
)

// DefaultRawExcludes keeps derivative and auxiliary trees out of a raw
// dataset index.
var DefaultRawExcludes = []string{
	"derivatives/**",
	"sourcedata/**",
	"code/**",
}

// File is one indexed path and the entities parsed from it.
type File struct {
	Path      string
	Rel       string
	Extension string
	Entities  map[string]string
}

// Layout is an immutable index over one directory tree. It is safe to share
// across goroutines once built.
type Layout struct {
	root     string
	excludes []string
	files    []File
}

// Option configures NewLayout.
type Option func(*layoutOptions)

type layoutOptions struct {
	excludes []string
}

// WithExclude skips every relative path matching one of the doublestar
// patterns. Hidden files and directories are always skipped.
func WithExclude(patterns ...string) Option {
	return func(o *layoutOptions) {
		o.excludes = append(o.excludes, patterns...)
	}
}

// NewLayout walks root and indexes every regular file under it.
func NewLayout(ctx context.Context, root string, schema *Schema, opts ...Option) (*Layout, error) {
	logger := ctxlog.FromContext(ctx)

	var o layoutOptions
	for _, opt := range opts {
		opt(&o)
	}
	for _, p := range o.excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot index %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot index %s: not a directory", root)
	}

	l := &Layout{root: root, excludes: o.excludes}
	err = doublestar.GlobWalk(os.DirFS(root), "**", func(rel string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.skipped(rel) {
			return nil
		}
		l.files = append(l.files, File{
			Path:      filepath.Join(root, filepath.FromSlash(rel)),
			Rel:       rel,
			Extension: extensionOf(rel),
			Entities:  schema.Parse(rel),
		})
		return nil
	}, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", root, err)
	}

	logger.Debug("Indexed directory tree.", "root", root, "schema", schema.Name, "files", len(l.files))
	return l, nil
}

func (l *Layout) skipped(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	for _, p := range l.excludes {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Root returns the indexed directory.
func (l *Layout) Root() string { return l.root }

// Query returns the sorted absolute paths of every file matching q.
func (l *Layout) Query(q Query) []string {
	exts := normalizeExtensions(q.Extensions)

	var out []string
	for _, f := range l.files {
		if q.Type != "" && f.Entities["type"] != q.Type {
			continue
		}
		if len(exts) > 0 && !slices.Contains(exts, f.Extension) {
			continue
		}
		if !q.Filters.matches(f.Entities) {
			continue
		}
		out = append(out, f.Path)
	}
	slices.Sort(out)
	return out
}

// Subjects returns the sorted, distinct subject labels present in the index.
func (l *Layout) Subjects() []string {
	var out []string
	for _, f := range l.files {
		if sub, ok := f.Entities["subject"]; ok && !slices.Contains(out, sub) {
			out = append(out, sub)
		}
	}
	slices.Sort(out)
	return out
}

// extensionOf returns everything after the first dot of the base name,
// so "bold.nii.gz" yields "nii.gz".
func extensionOf(rel string) string {
	base := rel[strings.LastIndex(rel, "/")+1:]
	if i := strings.Index(base, "."); i >= 0 {
		return base[i+1:]
	}
	return ""
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		out = append(out, strings.TrimPrefix(e, "."))
	}
	return out
}
