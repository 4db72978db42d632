// Package resolver turns import specifiers into repository-relative files,
// honoring tsconfig.json / jsconfig.json path aliases and base URLs.
package resolver

import (
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ConfigFileNames are the project configuration conventions, in preference order.
var ConfigFileNames = []string{"tsconfig.json", "jsconfig.json"}

var (
	tsExtensions = []string{".ts", ".tsx"}
	jsExtensions = []string{".js", ".jsx", ".mjs", ".cjs"}
)

const (
	dirCacheSize    = 4096
	configCacheSize = 256
)

// Resolution is a successfully resolved import.
type Resolution struct {
	File       string // repository-relative, forward slashes
	ConfigFile string // repository-relative config that supplied settings; empty for defaults
}

// Resolver resolves import specifiers for one repository. It is safe for
// concurrent use; lookups are cached for the resolver's lifetime.
type Resolver struct {
	root  string
	known map[string]struct{}

	dirConfig *lru.Cache[string, string]
	configs   *lru.Cache[string, *compilerOptions]
}

// New creates a resolver for the repository at root whose known source files
// are files (repository-relative).
func New(root string, files []string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}
	dirCache, err := lru.New[string, string](dirCacheSize)
	if err != nil {
		return nil, err
	}
	cfgCache, err := lru.New[string, *compilerOptions](configCacheSize)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(files))
	for _, f := range files {
		known[filepath.ToSlash(f)] = struct{}{}
	}

	return &Resolver{
		root:      filepath.Clean(abs),
		known:     known,
		dirConfig: dirCache,
		configs:   cfgCache,
	}, nil
}

// Root returns the absolute repository root.
func (r *Resolver) Root() string {
	return r.root
}

// Known reports whether rel is in the resolver's file inventory.
func (r *Resolver) Known(rel string) bool {
	_, ok := r.known[rel]
	return ok
}

// ShouldResolve reports whether a specifier may refer to a repository file.
// Bare package names ("react", "lodash") are external and rejected; relative,
// absolute, scoped-looking and slash-containing specifiers are kept because
// workspace aliases commonly look like scoped packages.
func ShouldResolve(spec string) bool {
	if spec == "" {
		return false
	}
	return strings.HasPrefix(spec, ".") ||
		strings.HasPrefix(spec, "/") ||
		strings.HasPrefix(spec, "@") ||
		strings.HasPrefix(spec, "~") ||
		strings.HasPrefix(spec, "#") ||
		strings.Contains(spec, "/")
}

// Resolve returns the repository file that specifier, imported from fromFile,
// resolves to.
func (r *Resolver) Resolve(fromFile, specifier string) (Resolution, bool) {
	if !ShouldResolve(specifier) {
		return Resolution{}, false
	}

	dir := filepath.Dir(filepath.Join(r.root, filepath.FromSlash(fromFile)))
	cfgPath := r.nearestConfig(dir)
	opts := r.options(cfgPath)

	exts := append([]string(nil), tsExtensions...)
	if opts == nil || opts.allowJS {
		exts = append(exts, jsExtensions...)
	}

	var cfgRel string
	if cfgPath != "" {
		cfgRel = r.rel(cfgPath)
	}

	for _, cand := range r.candidates(dir, specifier, opts) {
		rel, ok := r.insideRepo(cand)
		if !ok {
			continue
		}
		if file, ok := r.probe(rel, exts); ok {
			return Resolution{File: file, ConfigFile: cfgRel}, true
		}
	}
	return Resolution{}, false
}

// candidates lists absolute paths the specifier may denote, most specific first.
func (r *Resolver) candidates(dir, spec string, opts *compilerOptions) []string {
	switch {
	case spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../"):
		return []string{filepath.Join(dir, filepath.FromSlash(spec))}
	case strings.HasPrefix(spec, "/"):
		// Root-relative imports are treated as relative to the repository.
		return []string{filepath.Join(r.root, filepath.FromSlash(spec))}
	}

	if opts == nil {
		return nil
	}

	var out []string
	for _, m := range opts.paths {
		capture, ok := m.match(spec)
		if !ok {
			continue
		}
		for _, target := range m.targets {
			out = append(out, filepath.Join(opts.pathsBase, filepath.FromSlash(strings.Replace(target, "*", capture, 1))))
		}
		// Only the most specific matching pattern applies.
		break
	}
	if opts.baseURL != "" {
		out = append(out, filepath.Join(opts.baseURL, filepath.FromSlash(spec)))
	}
	return out
}

// insideRepo maps an absolute path to a repository-relative one, rejecting
// paths outside the root and dependency-directory hits.
func (r *Resolver) insideRepo(abs string) (string, bool) {
	if !within(r.root, abs) {
		return "", false
	}
	rel := r.rel(abs)
	if rel == "." || rel == "node_modules" || strings.HasPrefix(rel, "node_modules/") || strings.Contains(rel, "/node_modules/") {
		return "", false
	}
	return rel, true
}

// probe finds rel in the inventory: the literal path, the path with its
// extension replaced, then an implicit index file.
func (r *Resolver) probe(rel string, exts []string) (string, bool) {
	if r.Known(rel) {
		return rel, true
	}
	stem := rel
	if ext := path.Ext(rel); isSourceExt(ext) {
		stem = strings.TrimSuffix(rel, ext)
	}
	for _, ext := range exts {
		if c := stem + ext; r.Known(c) {
			return c, true
		}
	}
	for _, ext := range exts {
		if c := path.Join(rel, "index"+ext); r.Known(c) {
			return c, true
		}
	}
	return "", false
}

// nearestConfig walks from dir up to the root and returns the first config
// file found, or "". Results are cached per directory.
func (r *Resolver) nearestConfig(dir string) string {
	if cfg, ok := r.dirConfig.Get(dir); ok {
		return cfg
	}
	found := ""
	if within(r.root, dir) {
		for _, name := range ConfigFileNames {
			if c := filepath.Join(dir, name); isFile(c) {
				found = c
				break
			}
		}
		if found == "" && dir != r.root {
			found = r.nearestConfig(filepath.Dir(dir))
		}
	}
	r.dirConfig.Add(dir, found)
	return found
}

// options returns the parsed configuration for cfgPath, cached per file.
// A config that fails to parse yields permissive defaults.
func (r *Resolver) options(cfgPath string) *compilerOptions {
	if cfgPath == "" {
		return nil
	}
	if opts, ok := r.configs.Get(cfgPath); ok {
		return opts
	}
	opts, err := loadCompilerOptions(r.root, cfgPath)
	if err != nil {
		log.Printf("[resolver] warning: %v, using defaults", err)
		opts = &compilerOptions{configPath: cfgPath, allowJS: true}
	}
	r.configs.Add(cfgPath, opts)
	return opts
}

func (r *Resolver) rel(abs string) string {
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

func isSourceExt(ext string) bool {
	for _, e := range tsExtensions {
		if e == ext {
			return true
		}
	}
	for _, e := range jsExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
