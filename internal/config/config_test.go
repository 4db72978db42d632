package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frontdoc.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FillsDefaults(t *testing.T) {
	path := writeConfig(t, `
repositories:
  - name: web
    path: ../web
    type: nextjs
  - name: api
    display_name: Orders API
    path: ../api
    type: node-api
    analyzers: [endpoints]
    settings:
      version: "2.1.0"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.Diagrams.NavigationEdges != 30 || cfg.Diagrams.DependencyEdges != 50 {
		t.Errorf("diagram limits = %+v", cfg.Diagrams)
	}
	if got := cfg.Repositories[0].Analyzers; len(got) != len(DefaultAnalyzers) {
		t.Errorf("web analyzers = %v, want defaults", got)
	}
	if got := cfg.Repositories[1].Analyzers; len(got) != 1 || got[0] != "endpoints" {
		t.Errorf("api analyzers = %v", got)
	}
	if got := cfg.Repositories[1].Label(); got != "Orders API" {
		t.Errorf("Label = %q", got)
	}
	if got := cfg.Repositories[1].Setting("version"); got != "2.1.0" {
		t.Errorf("Setting(version) = %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if !cfg.IsRendererEnabled("markdown") || !cfg.IsExplainerEnabled("cycles") || !cfg.IsExplainerEnabled("layers") {
		t.Errorf("default renderers/explainers = %v / %v", cfg.Renderers, cfg.Explainers)
	}
}

func TestLoad_DisablesExplainers(t *testing.T) {
	path := writeConfig(t, `
repositories:
  - name: web
    path: ../web
    type: react
explainers: [cycles]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsExplainerEnabled("cycles") {
		t.Error("cycles should stay enabled")
	}
	if cfg.IsExplainerEnabled("layers") {
		t.Error("layers should be disabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		repos   []Repository
		backend string
		wantErr bool
		is      error
	}{
		{"no repositories", nil, CacheFile, true, ErrNoRepositories},
		{"ok", []Repository{{Name: "a", Path: ".", Type: KindReact}}, CacheFile, false, nil},
		{"unknown type", []Repository{{Name: "a", Path: ".", Type: "angular"}}, CacheFile, true, nil},
		{"duplicate", []Repository{{Name: "a", Path: ".", Type: KindReact}, {Name: "a", Path: "x", Type: KindReact}}, CacheFile, true, nil},
		{"missing path", []Repository{{Name: "a", Type: KindReact}}, CacheFile, true, nil},
		{"bad backend", []Repository{{Name: "a", Path: ".", Type: KindReact}}, "redis", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Repositories = tt.repos
			cfg.Cache.Backend = tt.backend
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("FRONTDOC_S3_BUCKET", "docs-cache")
	t.Setenv("FRONTDOC_S3_USE_SSL", "true")
	cfg := Default()
	cfg.ApplyEnv()
	if cfg.Cache.S3.Bucket != "docs-cache" {
		t.Errorf("Bucket = %q", cfg.Cache.S3.Bucket)
	}
	if !cfg.Cache.S3.UseSSL {
		t.Error("UseSSL = false, want true")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
