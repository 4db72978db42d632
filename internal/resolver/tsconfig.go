package resolver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

// maxExtendsDepth bounds configuration inheritance chains.
const maxExtendsDepth = 10

// compilerOptions is the subset of project configuration that affects resolution.
type compilerOptions struct {
	configPath string // absolute path of the nearest config file
	baseURL    string // absolute; empty when unset
	pathsBase  string // absolute directory path mappings are relative to
	paths      []pathMapping
	allowJS    bool
}

// pathMapping is one "paths" entry. Patterns contain at most one "*".
type pathMapping struct {
	pattern string
	targets []string
}

type rawConfig struct {
	Extends         json.RawMessage `json:"extends"`
	CompilerOptions struct {
		BaseURL *string             `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
		AllowJS *bool               `json:"allowJs"`
	} `json:"compilerOptions"`
}

// layer is one parsed config file in an inheritance chain.
type layer struct {
	dir     string
	baseURL *string
	paths   map[string][]string
	allowJS *bool
}

// loadCompilerOptions parses the config at path and its extends chain.
func loadCompilerOptions(root, path string) (*compilerOptions, error) {
	var chain []layer
	if err := collectLayers(root, path, map[string]bool{}, 0, &chain); err != nil {
		return nil, err
	}

	opts := &compilerOptions{
		configPath: path,
		allowJS:    filepath.Base(path) == "jsconfig.json",
	}

	// chain is ordered base-first; later layers override earlier ones.
	var paths map[string][]string
	pathsDir := filepath.Dir(path)
	for _, l := range chain {
		if l.baseURL != nil {
			opts.baseURL = filepath.Clean(filepath.Join(l.dir, *l.baseURL))
		}
		if l.paths != nil {
			paths = l.paths
			pathsDir = l.dir
		}
		if l.allowJS != nil {
			opts.allowJS = *l.allowJS
		}
	}

	opts.pathsBase = pathsDir
	if opts.baseURL != "" {
		opts.pathsBase = opts.baseURL
	}
	opts.paths = sortMappings(paths)
	return opts, nil
}

func collectLayers(root, path string, visiting map[string]bool, depth int, chain *[]layer) error {
	if depth > maxExtendsDepth {
		return fmt.Errorf("extends chain deeper than %d at %s", maxExtendsDepth, path)
	}
	if visiting[path] {
		return fmt.Errorf("extends cycle at %s", path)
	}
	visiting[path] = true
	defer delete(visiting, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var raw rawConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for _, parent := range extendsList(raw.Extends) {
		parentPath, ok := resolveExtends(root, dir, parent)
		if !ok {
			// An unresolvable base (e.g. an uninstalled preset) contributes nothing.
			continue
		}
		if err := collectLayers(root, parentPath, visiting, depth+1, chain); err != nil {
			return err
		}
	}

	*chain = append(*chain, layer{
		dir:     dir,
		baseURL: raw.CompilerOptions.BaseURL,
		paths:   raw.CompilerOptions.Paths,
		allowJS: raw.CompilerOptions.AllowJS,
	})
	return nil
}

// extendsList accepts both the string and the array forms of "extends".
func extendsList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// resolveExtends locates the file an "extends" value points at.
func resolveExtends(root, dir, spec string) (string, bool) {
	if strings.HasPrefix(spec, ".") || filepath.IsAbs(spec) {
		p := spec
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, spec)
		}
		for _, c := range []string{p, p + ".json"} {
			if isFile(c) {
				return filepath.Clean(c), true
			}
		}
		return "", false
	}

	// Package reference: search node_modules from dir up to the repository root.
	for cur := dir; ; cur = filepath.Dir(cur) {
		base := filepath.Join(cur, "node_modules", spec)
		for _, c := range []string{base, base + ".json", filepath.Join(base, "tsconfig.json")} {
			if isFile(c) {
				return filepath.Clean(c), true
			}
		}
		if cur == root || !within(root, cur) || cur == filepath.Dir(cur) {
			break
		}
	}
	return "", false
}

// sortMappings orders path mappings by longest literal prefix first, which is
// the precedence TypeScript applies when several patterns match.
func sortMappings(paths map[string][]string) []pathMapping {
	out := make([]pathMapping, 0, len(paths))
	for pattern, targets := range paths {
		if strings.Count(pattern, "*") > 1 || len(targets) == 0 {
			continue
		}
		out = append(out, pathMapping{pattern: pattern, targets: targets})
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := prefixLen(out[i].pattern), prefixLen(out[j].pattern)
		if pi != pj {
			return pi > pj
		}
		return out[i].pattern < out[j].pattern
	})
	return out
}

func prefixLen(pattern string) int {
	if i := strings.Index(pattern, "*"); i >= 0 {
		return i
	}
	return len(pattern)
}

// match returns the wildcard capture when spec matches the mapping pattern.
func (m pathMapping) match(spec string) (string, bool) {
	star := strings.Index(m.pattern, "*")
	if star < 0 {
		return "", spec == m.pattern
	}
	prefix, suffix := m.pattern[:star], m.pattern[star+1:]
	if len(spec) < len(prefix)+len(suffix) || !strings.HasPrefix(spec, prefix) || !strings.HasSuffix(spec, suffix) {
		return "", false
	}
	return spec[len(prefix) : len(spec)-len(suffix)], true
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
