package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/dejo1307/frontdoc/internal/cache"
	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/diagrams"
	"github.com/dejo1307/frontdoc/internal/explainers"
	"github.com/dejo1307/frontdoc/internal/extractors"
	"github.com/dejo1307/frontdoc/internal/facts"
	"github.com/dejo1307/frontdoc/internal/linker"
	"github.com/dejo1307/frontdoc/internal/renderers"
	"github.com/dejo1307/frontdoc/internal/resolver"
	"github.com/dejo1307/frontdoc/internal/workpool"
)

// Files written next to the renderer artifacts.
const (
	ReportFile = "report.json"
	FactsFile  = "facts.jsonl"
)

// ErrNoReport is returned when a report is requested before one was generated.
var ErrNoReport = errors.New("no report generated")

// inventoryExts are the extensions of files taking part in extraction.
var inventoryExts = map[string]bool{
	".ts": true, ".tsx": true, ".mts": true, ".cts": true,
	".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".graphql": true, ".gql": true,
	".go": true, ".sql": true,
}

// manifestFiles affect resolution and metadata, so they are fingerprinted too.
var manifestFiles = map[string]bool{
	"package.json":  true,
	"tsconfig.json": true,
	"jsconfig.json": true,
}

// Engine orchestrates the documentation pipeline.
type Engine struct {
	cfg        *config.Config
	extractors *extractors.Registry
	explainers *explainers.Registry
	renderers  *renderers.Registry
	cache      *cache.Cache
	revisions  RevisionSource
	versions   VersionSource
	store      *facts.Store
	now        func() time.Time

	// mu serializes Generate; it guards the cache for the whole run.
	mu sync.Mutex

	reportMu  sync.RWMutex
	report    *facts.DocumentationReport
	artifacts []facts.Artifact
}

// Option configures an Engine.
type Option func(*Engine)

// WithRevisionSource replaces the git revision collaborator.
func WithRevisionSource(s RevisionSource) Option {
	return func(e *Engine) { e.revisions = s }
}

// WithVersionSource replaces the manifest version collaborator.
func WithVersionSource(s VersionSource) Option {
	return func(e *Engine) { e.versions = s }
}

// WithCache replaces the cache built from the configured backend.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// New creates a new Engine with the given config.
// Extractors, explainers, and renderers must be registered after creation.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:        cfg,
		extractors: extractors.NewRegistry(),
		explainers: explainers.NewRegistry(),
		renderers:  renderers.NewRegistry(),
		revisions:  GitRevision{},
		versions:   ManifestVersion{},
		store:      facts.NewStore(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		backend, err := cache.NewBackend(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating cache backend: %w", err)
		}
		e.cache = cache.New(backend)
	}
	return e, nil
}

// RegisterExtractor adds an extractor to the engine.
func (e *Engine) RegisterExtractor(ext extractors.Extractor) {
	e.extractors.Register(ext)
}

// RegisterExplainer adds an explainer to the engine.
func (e *Engine) RegisterExplainer(exp explainers.Explainer) {
	e.explainers.Register(exp)
}

// RegisterRenderer adds a renderer to the engine.
func (e *Engine) RegisterRenderer(rnd renderers.Renderer) {
	e.renderers.Register(rnd)
}

// Store returns the fact query index of the last report.
func (e *Engine) Store() *facts.Store {
	return e.store
}

// Report returns the last generated report, or nil.
func (e *Engine) Report() *facts.DocumentationReport {
	e.reportMu.RLock()
	defer e.reportMu.RUnlock()
	return e.report
}

// Config returns the engine config.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Generate analyzes every configured repository and builds the report:
// analyze -> link -> explain -> synthesize diagrams -> render.
// Concurrent calls are serialized.
func (e *Engine) Generate(ctx context.Context) (*facts.DocumentationReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	e.cache.Load(ctx)

	var repos []facts.RepositoryReport
	for _, repo := range e.cfg.Repositories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rr, err := e.analyzeRepository(ctx, repo)
		if err != nil {
			log.Printf("[engine] error: repository %s: %v, omitting it from the report", repo.Name, err)
			continue
		}
		repos = append(repos, rr)
	}

	if err := e.cache.Save(ctx); err != nil {
		log.Printf("[engine] warning: %v", err)
	}

	results := make([]*facts.AnalysisResult, 0, len(repos))
	for _, rr := range repos {
		results = append(results, rr.Result)
	}
	cross := linker.Link(results)
	log.Printf("[engine] linked %d repositories: %d links, %d shared operations", len(results), len(cross.Links), len(cross.SharedTypes))

	report := &facts.DocumentationReport{
		RunID:        uuid.NewString(),
		GeneratedAt:  e.now().UTC(),
		Repositories: repos,
		CrossRepo:    cross,
		Diagrams:     diagrams.New(e.cfg.Diagrams).Synthesize(results, cross),
	}

	insights, usedExplainers := e.runExplainers(ctx, results)
	report.Insights = insights
	log.Printf("[engine] produced %d insights using %d explainers", len(insights), len(usedExplainers))

	report.Duration = time.Since(start).String()

	artifacts, usedRenderers := e.runRenderers(ctx, report)
	log.Printf("[engine] produced %d artifacts using %d renderers", len(artifacts), len(usedRenderers))

	e.store.LoadReport(report)

	e.reportMu.Lock()
	e.report = report
	e.artifacts = artifacts
	e.reportMu.Unlock()

	log.Printf("[engine] report %s generated in %s", report.RunID, report.Duration)
	return report, nil
}

// analyzeRepository produces the report of one repository, from the cache
// when its content fingerprint is unchanged.
func (e *Engine) analyzeRepository(ctx context.Context, repo config.Repository) (rr facts.RepositoryReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	root, err := filepath.Abs(repo.Path)
	if err != nil {
		return rr, fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return rr, err
	}
	if !info.IsDir() {
		return rr, fmt.Errorf("%s is not a directory", root)
	}

	version := e.version(repo, root)
	revision := e.revision(ctx, root)

	files, err := e.walkRepo(root)
	if err != nil {
		return rr, fmt.Errorf("walking repo: %w", err)
	}
	log.Printf("[engine] %s: found %d files in %s", repo.Name, len(files), root)

	selected := e.extractors.Select(repo.Analyzers, repo.Type)
	scope := []string{"kind=" + repo.Type}
	for _, ext := range selected {
		scope = append(scope, "extractor="+ext.Name())
	}

	fp, err := cache.Fingerprint(ctx, root, files, e.cfg.Workers, scope...)
	if err != nil {
		log.Printf("[engine] warning: %s: fingerprint: %v, cache disabled for this repository", repo.Name, err)
		fp = ""
	}
	key := cache.Key(repo.Name, revision)

	if cached, ok := e.cache.Get(key, fp); ok {
		cached.DisplayName = repo.DisplayName
		cached.Kind = repo.Type
		cached.Version = version
		log.Printf("[engine] %s: cache hit at %s, reusing %d facts", repo.Name, revision, cached.FactCount())
		return facts.RepositoryReport{Result: cached, Summary: facts.Summarize(cached), Cached: true}, nil
	}

	res, err := resolver.New(root, files)
	if err != nil {
		return rr, err
	}
	view := &extractors.Repository{
		Config:   repo,
		Root:     root,
		Files:    files,
		Resolver: res,
		Workers:  e.cfg.Workers,
	}

	result, failed := e.runExtractors(ctx, view, selected)
	result.Repository = repo.Name
	result.DisplayName = repo.DisplayName
	result.Kind = repo.Type
	result.Version = version
	result.Revision = revision
	result.Timestamp = e.now().UTC()
	log.Printf("[engine] %s: extracted %d facts using %d extractors", repo.Name, result.FactCount(), len(selected))

	if failed > 0 {
		log.Printf("[engine] %s: %d extractors failed, not caching the result", repo.Name, failed)
	} else if err := e.cache.Set(key, fp, result); err != nil {
		log.Printf("[engine] warning: %s: %v", repo.Name, err)
	}
	return facts.RepositoryReport{Result: result, Summary: facts.Summarize(result)}, nil
}

func (e *Engine) version(repo config.Repository, root string) string {
	v, err := e.versions.Version(repo, root)
	if err != nil || v == "" {
		return facts.Unknown
	}
	return v
}

func (e *Engine) revision(ctx context.Context, root string) string {
	rev, err := e.revisions.Revision(ctx, root)
	if err != nil || rev == "" {
		return facts.Unknown
	}
	return rev
}

// walkRepo collects the repository-relative files taking part in extraction,
// applying ignore patterns.
func (e *Engine) walkRepo(repoPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(repoPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(repoPath, p)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		if e.isIgnored(relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() && d.Type().IsRegular() && isInventoryFile(relPath) {
			files = append(files, filepath.ToSlash(relPath))
		}
		return nil
	})
	return files, err
}

// isIgnored checks whether a path matches any ignore pattern. A directory is
// ignored when everything below it would be.
func (e *Engine) isIgnored(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range e.cfg.Ignore {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
		if isDir {
			if ok, _ := doublestar.Match(pattern, relPath+"/_"); ok {
				return true
			}
		}
	}
	return false
}

func isInventoryFile(rel string) bool {
	base := path.Base(filepath.ToSlash(rel))
	if manifestFiles[base] {
		return true
	}
	return inventoryExts[strings.ToLower(path.Ext(base))]
}

// runExtractors runs the extractors concurrently and merges their outputs in
// invocation order. A failing extractor contributes nothing and is counted
// in failed.
func (e *Engine) runExtractors(ctx context.Context, repo *extractors.Repository, exts []extractors.Extractor) (*facts.AnalysisResult, int) {
	parts := make([]*facts.AnalysisResult, len(exts))
	errs := make([]error, len(exts))
	err := workpool.Run(ctx, len(exts), len(exts), func(ctx context.Context, i int) error {
		parts[i], errs[i] = runExtractor(ctx, exts[i], repo)
		return nil
	})
	if err != nil {
		log.Printf("[engine] warning: %s: extraction interrupted: %v", repo.Config.Name, err)
	}

	failed := 0
	for i, err := range errs {
		if err != nil {
			log.Printf("[engine] warning: extractor %s failed on %s: %v", exts[i].Name(), repo.Config.Name, err)
			failed++
		}
	}
	if err != nil {
		failed++
	}
	return facts.Merge(parts...), failed
}

// runExtractor runs one extractor, converting a panic into an error.
func runExtractor(ctx context.Context, ext extractors.Extractor, repo *extractors.Repository) (res *facts.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	start := time.Now()
	res, err = ext.Extract(ctx, repo)
	if err != nil {
		return nil, err
	}
	log.Printf("[engine] extractor %s: emitted %d facts in %s", ext.Name(), res.FactCount(), time.Since(start).Round(time.Millisecond))
	return res, nil
}

// runExplainers runs all enabled explainers. A failing explainer is logged
// and contributes nothing.
func (e *Engine) runExplainers(ctx context.Context, results []*facts.AnalysisResult) ([]facts.Insight, []string) {
	var all []facts.Insight
	var usedNames []string

	for _, exp := range e.explainers.Enabled(e.cfg.IsExplainerEnabled) {
		log.Printf("[engine] running explainer: %s", exp.Name())
		insights, err := exp.Explain(ctx, results)
		if err != nil {
			log.Printf("[engine] warning: explainer %s: %v", exp.Name(), err)
			continue
		}
		log.Printf("[engine] explainer %s: produced %d insights", exp.Name(), len(insights))

		all = append(all, insights...)
		usedNames = append(usedNames, exp.Name())
	}

	return all, usedNames
}

// runRenderers runs all enabled renderers.
func (e *Engine) runRenderers(ctx context.Context, report *facts.DocumentationReport) ([]facts.Artifact, []string) {
	var artifacts []facts.Artifact
	var usedNames []string

	for _, rnd := range e.renderers.Enabled(e.cfg.IsRendererEnabled) {
		log.Printf("[engine] running renderer: %s", rnd.Name())
		out, err := rnd.Render(ctx, report)
		if err != nil {
			log.Printf("[engine] renderer %s error: %v", rnd.Name(), err)
			continue
		}

		artifacts = append(artifacts, out...)
		usedNames = append(usedNames, rnd.Name())
	}

	return artifacts, usedNames
}

// WriteArtifacts writes the renderer artifacts, report.json and facts.jsonl
// to the output directory.
func (e *Engine) WriteArtifacts() error {
	e.reportMu.RLock()
	report, artifacts := e.report, e.artifacts
	e.reportMu.RUnlock()
	if report == nil {
		return ErrNoReport
	}

	outDir := e.cfg.Output.Dir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	for _, a := range artifacts {
		p := filepath.Join(outDir, a.Name)
		if err := os.WriteFile(p, a.Content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", a.Name, err)
		}
		log.Printf("[engine] wrote %s (%d bytes)", p, len(a.Content))
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	reportPath := filepath.Join(outDir, ReportFile)
	if err := os.WriteFile(reportPath, reportJSON, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ReportFile, err)
	}
	log.Printf("[engine] wrote %s (%d bytes)", reportPath, len(reportJSON))

	var buf bytes.Buffer
	if err := e.store.WriteJSONL(&buf); err != nil {
		return fmt.Errorf("encoding %s: %w", FactsFile, err)
	}
	factsPath := filepath.Join(outDir, FactsFile)
	if err := os.WriteFile(factsPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", FactsFile, err)
	}
	log.Printf("[engine] wrote %s (%d entries)", factsPath, e.store.Count())
	return nil
}

// LoadReport reads a previously written report.json so that queries work
// before the first Generate. Renderer artifacts are rebuilt from it.
func (e *Engine) LoadReport(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var report facts.DocumentationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	artifacts, _ := e.runRenderers(ctx, &report)
	e.store.LoadReport(&report)

	e.reportMu.Lock()
	e.report = &report
	e.artifacts = artifacts
	e.reportMu.Unlock()
	log.Printf("[engine] loaded report %s with %d repositories from %s", report.RunID, len(report.Repositories), path)
	return nil
}

// LoadFacts fills the query store from a facts.jsonl file. It is the
// fallback when only the fact stream of an earlier run is available; no
// report or artifacts are installed.
func (e *Engine) LoadFacts(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Clear()
	if err := e.store.ReadJSONL(f); err != nil {
		e.store.Clear()
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	log.Printf("[engine] loaded %d facts from %s", e.store.Count(), path)
	return nil
}

// GetArtifact returns the content of a named artifact or of report.json.
func (e *Engine) GetArtifact(name string) ([]byte, error) {
	e.reportMu.RLock()
	defer e.reportMu.RUnlock()
	if e.report == nil {
		return nil, ErrNoReport
	}

	switch name {
	case ReportFile:
		return json.MarshalIndent(e.report, "", "  ")
	case FactsFile:
		var buf bytes.Buffer
		if err := e.store.WriteJSONL(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	for _, a := range e.artifacts {
		if a.Name == name {
			return a.Content, nil
		}
	}
	return nil, fmt.Errorf("artifact %q not found", name)
}

// Artifacts returns the names of the artifacts of the last report.
func (e *Engine) Artifacts() []string {
	e.reportMu.RLock()
	defer e.reportMu.RUnlock()
	if e.report == nil {
		return nil
	}
	names := []string{ReportFile, FactsFile}
	for _, a := range e.artifacts {
		names = append(names, a.Name)
	}
	return names
}
