package bids

import (
	"embed"
	"fmt"
	"path"
	"sync"

	"github.com/grafana/regexp"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Names of the bundled schemas.
const (
	SchemaBIDS        = "bids"
	SchemaDerivatives = "derivatives"
)

//go:embed schema/*.hcl
var schemaFS embed.FS

// Schema lists the entities a Layout extracts from each indexed path.
type Schema struct {
	Name     string
	Entities []Entity
}

// Entity is a named key whose value is captured by the first group of Pattern.
type Entity struct {
	Name    string
	Pattern *regexp.Regexp
}

// schemaFile is the HCL shape of a schema file.
type schemaFile struct {
	Name     string         `hcl:"name"`
	Entities []*entityBlock `hcl:"entity,block"`
}

type entityBlock struct {
	Name    string `hcl:"name,label"`
	Pattern string `hcl:"pattern"`
}

var (
	bundledMu sync.Mutex
	bundled   = map[string]*Schema{}
)

// BundledSchema returns one of the schemas shipped with the binary. Each is
// parsed once per process and shared read-only afterwards.
func BundledSchema(name string) (*Schema, error) {
	bundledMu.Lock()
	defer bundledMu.Unlock()

	if s, ok := bundled[name]; ok {
		return s, nil
	}
	filename := path.Join("schema", name+".hcl")
	src, err := schemaFS.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("unknown bundled schema %q", name)
	}
	s, err := ParseSchema(filename, src)
	if err != nil {
		return nil, err
	}
	bundled[name] = s
	return s, nil
}

// ParseSchema decodes an HCL schema document.
func ParseSchema(filename string, src []byte) (*Schema, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse schema %s: %w", filename, diags)
	}

	var raw schemaFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode schema %s: %w", filename, diags)
	}

	s := &Schema{Name: raw.Name}
	seen := make(map[string]bool, len(raw.Entities))
	for _, e := range raw.Entities {
		if seen[e.Name] {
			return nil, fmt.Errorf("schema %s: entity %q declared twice", filename, e.Name)
		}
		seen[e.Name] = true

		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("schema %s: entity %q: %w", filename, e.Name, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("schema %s: entity %q: pattern needs a capture group", filename, e.Name)
		}
		s.Entities = append(s.Entities, Entity{Name: e.Name, Pattern: re})
	}
	return s, nil
}

// Parse extracts entity values from a slash-separated path relative to the
// layout root. Entities that do not match are absent from the result.
func (s *Schema) Parse(rel string) map[string]string {
	out := make(map[string]string, len(s.Entities))
	for _, e := range s.Entities {
		if m := e.Pattern.FindStringSubmatch(rel); m != nil {
			out[e.Name] = m[1]
		}
	}
	return out
}
