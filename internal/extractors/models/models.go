// Package models extracts data models: TypeScript interfaces and types,
// ORM entities, mongoose and zod schemas, GraphQL SDL types, Go structs and
// SQL tables.
package models

import (
	"context"
	"path"
	"strings"

	"github.com/dejo1307/frontdoc/internal/extractors"
	"github.com/dejo1307/frontdoc/internal/extractors/graphql"
	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// Name is the analyzer name.
const Name = "models"

// Model kinds.
const (
	KindInterface   = "interface"
	KindType        = "type"
	KindEntity      = "entity"
	KindSchema      = "schema"
	KindGraphQLType = "graphql-type"
	KindStruct      = "struct"
	KindTable       = "table"
)

// Model sources.
const (
	SourceTypeScript = "typescript"
	SourceTypeORM    = "typeorm"
	SourceGraphQL    = "graphql"
	SourceMongoose   = "mongoose"
	SourceZod        = "zod"
	SourceSequelize  = "sequelize"
	SourceGo         = "go"
	SourceSQL        = "sql"
)

// Extractor finds data models.
type Extractor struct{}

// New creates a model extractor.
func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string { return Name }

// Supports reports true for every repository kind.
func (e *Extractor) Supports(kind string) bool { return true }

// Extract returns the models declared in the repository.
func (e *Extractor) Extract(ctx context.Context, repo *extractors.Repository) (*facts.AnalysisResult, error) {
	var files []string
	for _, f := range repo.Files {
		if candidate(f) {
			files = append(files, f)
		}
	}
	return jsast.ForEachRaw(ctx, repo, Name, files, func(rel string, src []byte) (*facts.AnalysisResult, error) {
		var ms []facts.ModelInfo
		switch {
		case jsast.IsSource(rel):
			f, err := jsast.Parse(rel, src)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			ms = scriptModels(f)
		case graphql.IsDocument(rel):
			var err error
			if ms, err = schemaModels(rel, string(src), 1, 1); err != nil {
				return nil, err
			}
		case strings.HasSuffix(rel, ".go"):
			var err error
			if ms, err = goModels(rel, src); err != nil {
				return nil, err
			}
		case strings.EqualFold(path.Ext(rel), ".sql"):
			ms = tableModels(rel, string(src), 1)
		}
		return &facts.AnalysisResult{Models: ms}, nil
	})
}

func candidate(rel string) bool {
	switch {
	case jsast.IsSource(rel), graphql.IsDocument(rel), strings.EqualFold(path.Ext(rel), ".sql"):
		return true
	case strings.HasSuffix(rel, ".go"):
		return !strings.HasSuffix(rel, "_test.go")
	}
	return false
}

func model(file string, line, col int, name, kind, source string, fields []string) facts.ModelInfo {
	return facts.ModelInfo{
		ID:     facts.NewID(Name, facts.KindModel, file, line, col, name),
		Name:   name,
		Kind:   kind,
		Source: source,
		File:   file,
		Line:   line,
		Fields: fields,
	}
}
