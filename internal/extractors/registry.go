package extractors

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/facts"
	"github.com/dejo1307/frontdoc/internal/resolver"
)

// Extractor is a read-only analysis pass that produces a partial fact bag
// for one repository.
type Extractor interface {
	// Name returns the analyzer identifier used in configuration (e.g. "pages").
	Name() string
	// Supports reports whether the extractor applies to a repository kind.
	Supports(kind string) bool
	// Extract analyzes the repository and returns the facts it found. Identity
	// fields of the result are left empty; the engine fills them in.
	Extract(ctx context.Context, repo *Repository) (*facts.AnalysisResult, error)
}

// Repository is the per-run view of a repository handed to extractors.
type Repository struct {
	Config   config.Repository
	Root     string   // absolute
	Files    []string // repository-relative, forward slashes, ignore globs applied
	Resolver *resolver.Resolver
	Workers  int
}

// Abs returns the absolute path of a repository-relative file.
func (r *Repository) Abs(rel string) string {
	return filepath.Join(r.Root, filepath.FromSlash(rel))
}

// ReadFile reads a repository-relative file.
func (r *Repository) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(r.Abs(rel))
}

// Match returns the files matching any of the doublestar patterns, in
// inventory order.
func (r *Repository) Match(patterns ...string) []string {
	var out []string
	for _, f := range r.Files {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, f); ok {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// Registry holds registered extractors.
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a new extractor registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an extractor to the registry.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Get returns the extractor with the given name, or nil if not found.
func (r *Registry) Get(name string) Extractor {
	for _, e := range r.extractors {
		if e.Name() == name {
			return e
		}
	}
	return nil
}

// Names returns the names of all registered extractors.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.extractors))
	for _, e := range r.extractors {
		names = append(names, e.Name())
	}
	return names
}

// Select returns the extractors named in names, in that order, that support
// kind. Unknown and inapplicable names are dropped.
func (r *Registry) Select(names []string, kind string) []Extractor {
	var out []Extractor
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		e := r.Get(name)
		if e == nil {
			log.Printf("[extractors] unknown analyzer %q (registered: %s), skipping", name, strings.Join(r.Names(), ", "))
			continue
		}
		if !e.Supports(kind) {
			log.Printf("[extractors] analyzer %s does not apply to %s repositories, skipping", name, kind)
			continue
		}
		out = append(out, e)
	}
	return out
}
