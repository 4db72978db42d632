package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoRepositories is returned by Validate when nothing is configured to analyze.
var ErrNoRepositories = errors.New("no repositories configured")

// Repository kinds.
const (
	KindNextJS  = "nextjs"
	KindReact   = "react"
	KindNodeAPI = "node-api"
	KindGoAPI   = "go-api"
	KindLibrary = "library"
)

// Cache backends.
const (
	CacheFile = "file"
	CacheS3   = "s3"
	CacheNone = "none"
)

// Config represents the frontdoc.yaml configuration.
type Config struct {
	Repositories []Repository  `yaml:"repositories"`
	Ignore       []string      `yaml:"ignore"`
	Workers      int           `yaml:"workers"`
	Output       OutputConfig  `yaml:"output"`
	Cache        CacheConfig   `yaml:"cache"`
	Diagrams     DiagramLimits `yaml:"diagrams"`
	Renderers    []string      `yaml:"renderers"`
	Explainers   []string      `yaml:"explainers"`
}

// Repository describes one source tree to analyze.
type Repository struct {
	Name        string            `yaml:"name" json:"name"`
	DisplayName string            `yaml:"display_name" json:"display_name,omitempty"`
	Path        string            `yaml:"path" json:"path"`
	Type        string            `yaml:"type" json:"type"`
	Analyzers   []string          `yaml:"analyzers" json:"analyzers"`
	Settings    map[string]string `yaml:"settings" json:"settings,omitempty"`
}

// Label returns the display name, falling back to the identifier.
func (r Repository) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Name
}

// Setting returns a free-form setting or "".
func (r Repository) Setting(key string) string {
	if r.Settings == nil {
		return ""
	}
	return r.Settings[key]
}

// OutputConfig controls where generated artifacts are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// CacheConfig selects and configures the persisted analysis cache.
type CacheConfig struct {
	Backend string   `yaml:"backend"`
	Path    string   `yaml:"path"`
	S3      S3Config `yaml:"s3"`
}

// S3Config configures the S3-compatible cache backend.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// DiagramLimits caps the number of edges per synthesized diagram.
type DiagramLimits struct {
	NavigationEdges int `yaml:"navigation_edges"`
	DependencyEdges int `yaml:"dependency_edges"`
	DataFlowEdges   int `yaml:"dataflow_edges"`
	OperationEdges  int `yaml:"operation_edges"`
	CrossRepoEdges  int `yaml:"crossrepo_edges"`
}

// DefaultAnalyzers is used for a repository that does not list analyzers.
var DefaultAnalyzers = []string{"pages", "components", "graphql", "apicalls", "dataflow", "endpoints", "models"}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Ignore: []string{
			"**/node_modules/**",
			"**/.next/**",
			"**/dist/**",
			"**/build/**",
			"**/coverage/**",
			"**/vendor/**",
			"**/.git/**",
			"**/__tests__/**",
			"**/__mocks__/**",
			"**/*.test.*",
			"**/*.spec.*",
			"**/*.stories.*",
			"**/*.d.ts",
			"**/*_test.go",
		},
		Workers: 8,
		Output: OutputConfig{
			Dir: "docs/architecture",
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Path:    ".frontdoc/cache.json",
		},
		Diagrams:   DefaultDiagramLimits(),
		Renderers:  []string{"markdown"},
		Explainers: []string{"cycles", "layers"},
	}
}

// DefaultDiagramLimits returns the edge bounds used when none are configured.
func DefaultDiagramLimits() DiagramLimits {
	return DiagramLimits{
		NavigationEdges: 30,
		DependencyEdges: 50,
		DataFlowEdges:   20,
		OperationEdges:  40,
		CrossRepoEdges:  50,
	}
}

// Load reads a configuration file from the given path.
// Missing fields are filled with defaults and environment overrides are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.ApplyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "docs/architecture"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheFile
	}
	if c.Cache.Path == "" {
		c.Cache.Path = ".frontdoc/cache.json"
	}
	def := DefaultDiagramLimits()
	if c.Diagrams.NavigationEdges <= 0 {
		c.Diagrams.NavigationEdges = def.NavigationEdges
	}
	if c.Diagrams.DependencyEdges <= 0 {
		c.Diagrams.DependencyEdges = def.DependencyEdges
	}
	if c.Diagrams.DataFlowEdges <= 0 {
		c.Diagrams.DataFlowEdges = def.DataFlowEdges
	}
	if c.Diagrams.OperationEdges <= 0 {
		c.Diagrams.OperationEdges = def.OperationEdges
	}
	if c.Diagrams.CrossRepoEdges <= 0 {
		c.Diagrams.CrossRepoEdges = def.CrossRepoEdges
	}
	for i := range c.Repositories {
		if len(c.Repositories[i].Analyzers) == 0 {
			c.Repositories[i].Analyzers = append([]string(nil), DefaultAnalyzers...)
		}
	}
}

// ApplyEnv overrides S3 cache settings from FRONTDOC_S3_* environment variables.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Cache.S3.Endpoint, "FRONTDOC_S3_ENDPOINT")
	set(&c.Cache.S3.Region, "FRONTDOC_S3_REGION")
	set(&c.Cache.S3.Bucket, "FRONTDOC_S3_BUCKET")
	set(&c.Cache.S3.AccessKey, "FRONTDOC_S3_ACCESS_KEY")
	set(&c.Cache.S3.SecretKey, "FRONTDOC_S3_SECRET_KEY")
	if v := os.Getenv("FRONTDOC_S3_USE_SSL"); v != "" {
		c.Cache.S3.UseSSL = strings.EqualFold(v, "true") || v == "1"
	}
}

// Validate checks whole-run setup constraints.
func (c *Config) Validate() error {
	if len(c.Repositories) == 0 {
		return ErrNoRepositories
	}
	seen := make(map[string]bool, len(c.Repositories))
	for _, r := range c.Repositories {
		if r.Name == "" {
			return fmt.Errorf("repository with path %q has no name", r.Path)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate repository name %q", r.Name)
		}
		seen[r.Name] = true
		if r.Path == "" {
			return fmt.Errorf("repository %q has no path", r.Name)
		}
		if !IsKnownKind(r.Type) {
			return fmt.Errorf("repository %q has unknown type %q", r.Name, r.Type)
		}
	}
	switch c.Cache.Backend {
	case CacheFile, CacheS3, CacheNone:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// IsKnownKind reports whether kind is a supported repository type.
func IsKnownKind(kind string) bool {
	switch kind {
	case KindNextJS, KindReact, KindNodeAPI, KindGoAPI, KindLibrary:
		return true
	}
	return false
}

// IsExplainerEnabled returns true if the named explainer is enabled.
func (c *Config) IsExplainerEnabled(name string) bool {
	return contains(c.Explainers, name)
}

// IsRendererEnabled returns true if the named renderer is enabled.
func (c *Config) IsRendererEnabled(name string) bool {
	return contains(c.Renderers, name)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
