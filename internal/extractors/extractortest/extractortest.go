// Package extractortest builds throwaway repositories for extractor tests.
package extractortest

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/extractors"
	"github.com/dejo1307/frontdoc/internal/resolver"
)

// NewRepo writes files into a temp directory and returns a repository view of
// kind over them. Every written file is part of the inventory.
func NewRepo(t *testing.T, kind string, files map[string]string) *extractors.Repository {
	t.Helper()
	dir := t.TempDir()

	rels := make([]string, 0, len(files))
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	res, err := resolver.New(dir, rels)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}

	return &extractors.Repository{
		Config: config.Repository{
			Name: "test",
			Path: dir,
			Type: kind,
		},
		Root:     dir,
		Files:    rels,
		Resolver: res,
		Workers:  2,
	}
}
