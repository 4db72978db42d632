// Package jsast parses JavaScript and TypeScript sources with tree-sitter and
// provides the syntax helpers shared by the JS/TS extractors.
package jsast

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dejo1307/frontdoc/internal/extractors"
	"github.com/dejo1307/frontdoc/internal/facts"
	"github.com/dejo1307/frontdoc/internal/workpool"
)

var (
	langTS  = sitter.NewLanguage(typescript.LanguageTypescript())
	langTSX = sitter.NewLanguage(typescript.LanguageTSX())
	langJS  = sitter.NewLanguage(javascript.Language())
)

// File is a parsed source file.
type File struct {
	Path string // repository-relative
	Src  []byte
	Root *sitter.Node

	tree *sitter.Tree
}

// Close releases the syntax tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
	}
}

// Text returns the source text of n.
func (f *File) Text(n *sitter.Node) string {
	return Text(n, f.Src)
}

// IsSource reports whether path is a JS/TS source file.
func IsSource(p string) bool {
	return languageFor(p) != nil
}

// IsTypeScript reports whether path is a .ts or .tsx file.
func IsTypeScript(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	return ext == ".ts" || ext == ".tsx" || ext == ".mts" || ext == ".cts"
}

func languageFor(p string) *sitter.Language {
	switch strings.ToLower(path.Ext(p)) {
	case ".ts", ".mts", ".cts":
		return langTS
	case ".tsx":
		return langTSX
	case ".js", ".jsx", ".mjs", ".cjs":
		return langJS
	}
	return nil
}

// Parse parses src with the grammar matching the file extension.
func Parse(rel string, src []byte) (*File, error) {
	lang := languageFor(rel)
	if lang == nil {
		return nil, fmt.Errorf("unsupported file type %s", rel)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("setting language for %s: %w", rel, err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("parsing %s failed", rel)
	}
	return &File{Path: rel, Src: src, Root: tree.RootNode(), tree: tree}, nil
}

// SourceFiles filters files down to JS/TS sources.
func SourceFiles(files []string) []string {
	var out []string
	for _, f := range files {
		if IsSource(f) {
			out = append(out, f)
		}
	}
	return out
}

// RawFunc inspects the raw contents of one file.
type RawFunc func(rel string, src []byte) (*facts.AnalysisResult, error)

// FileFunc inspects one parsed file.
type FileFunc func(f *File) (*facts.AnalysisResult, error)

// ForEachRaw runs fn over files on the repository's worker pool and merges
// the per-file results in file order. A file that cannot be read, or whose
// inspection fails or panics, is logged and skipped.
func ForEachRaw(ctx context.Context, repo *extractors.Repository, name string, files []string, fn RawFunc) (*facts.AnalysisResult, error) {
	parts, err := workpool.Map(ctx, files, repo.Workers, func(_ context.Context, rel string) (*facts.AnalysisResult, error) {
		return inspect(repo, name, rel, fn), nil
	})
	if err != nil {
		return nil, err
	}
	return facts.Merge(parts...), nil
}

// ForEachFile parses each file and runs fn over its syntax tree, with the
// same per-file failure isolation as ForEachRaw.
func ForEachFile(ctx context.Context, repo *extractors.Repository, name string, files []string, fn FileFunc) (*facts.AnalysisResult, error) {
	return ForEachRaw(ctx, repo, name, files, func(rel string, src []byte) (*facts.AnalysisResult, error) {
		f, err := Parse(rel, src)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return fn(f)
	})
}

func inspect(repo *extractors.Repository, name, rel string, fn RawFunc) (res *facts.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] warning: skipping %s: panic: %v", name, rel, r)
			res = nil
		}
	}()

	src, err := repo.ReadFile(rel)
	if err != nil {
		log.Printf("[%s] warning: reading %s: %v", name, rel, err)
		return nil
	}
	out, err := fn(rel, src)
	if err != nil {
		log.Printf("[%s] warning: skipping %s: %v", name, rel, err)
		return nil
	}
	return out
}
