package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/terrane/internal/ctxlog"
	"github.com/specialistvlad/terrane/internal/fsutil"
	"github.com/specialistvlad/terrane/internal/schema"
)

// Extension is the file suffix the loader picks up when it searches a
// directory.
const Extension = ".hcl"

// Loader reads workspace files and produces the format-agnostic
// configuration consumed by the graph builder.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every matching file under the given paths, in sorted file
// order, and assembles the combined configuration. Paths may be files or
// directories; directories are searched recursively.
func (l *Loader) Load(ctx context.Context, paths ...string) (*schema.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered workspace files.", "count", len(files))

	parser := hclparse.NewParser()
	cfg := &schema.Config{}

	for _, path := range files {
		f, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", path, diags)
		}
		if err := appendFile(cfg, path, f.Body); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.",
		"variables", len(cfg.Variables),
		"locals", len(cfg.Locals),
		"resources", len(cfg.Resources),
		"outputs", len(cfg.Outputs),
	)
	return cfg, nil
}

// LoadSources is Load for in-memory file contents keyed by name. Files
// are processed in sorted name order, mirroring the on-disk behavior.
func (l *Loader) LoadSources(ctx context.Context, sources map[string][]byte) (*schema.Config, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	parser := hclparse.NewParser()
	cfg := &schema.Config{}

	for _, name := range names {
		f, diags := parser.ParseHCL(sources[name], name)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", name, diags)
		}
		if err := appendFile(cfg, name, f.Body); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
