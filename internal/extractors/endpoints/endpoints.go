// Package endpoints extracts server-side route declarations from Go routers,
// Node servers, NestJS controllers and Next.js API handlers.
package endpoints

import (
	"context"
	"strings"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/extractors"
	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// Name is the analyzer name.
const Name = "endpoints"

// Framework names.
const (
	FrameworkGorilla = "gorilla/mux"
	FrameworkChi     = "chi"
	FrameworkNetHTTP = "net/http"
	FrameworkExpress = "express"
	FrameworkKoa     = "koa"
	FrameworkFastify = "fastify"
	FrameworkHono    = "hono"
	FrameworkNestJS  = "nestjs"
	FrameworkNextJS  = "nextjs"
)

// MethodAll is the method of a route that accepts every verb.
const MethodAll = "ALL"

// Extractor finds API endpoints.
type Extractor struct{}

// New creates an endpoint extractor.
func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string { return Name }

// Supports reports whether kind serves HTTP endpoints.
func (e *Extractor) Supports(kind string) bool {
	return kind == config.KindNextJS || kind == config.KindNodeAPI || kind == config.KindGoAPI
}

// Extract returns the endpoints declared in the repository. Go sources are
// read with go/ast, everything else with the JS/TS grammars.
func (e *Extractor) Extract(ctx context.Context, repo *extractors.Repository) (*facts.AnalysisResult, error) {
	var goFiles []string
	for _, f := range repo.Files {
		if strings.HasSuffix(f, ".go") && !strings.HasSuffix(f, "_test.go") {
			goFiles = append(goFiles, f)
		}
	}

	goRes, err := jsast.ForEachRaw(ctx, repo, Name, goFiles, func(rel string, src []byte) (*facts.AnalysisResult, error) {
		eps, err := goEndpoints(rel, src)
		if err != nil {
			return nil, err
		}
		return &facts.AnalysisResult{Endpoints: eps}, nil
	})
	if err != nil {
		return nil, err
	}

	nextjs := repo.Config.Type == config.KindNextJS
	jsRes, err := jsast.ForEachFile(ctx, repo, Name, jsast.SourceFiles(repo.Files), func(f *jsast.File) (*facts.AnalysisResult, error) {
		eps := serverEndpoints(f)
		eps = append(eps, nestEndpoints(f)...)
		if nextjs {
			eps = append(eps, nextEndpoints(f)...)
		}
		return &facts.AnalysisResult{Endpoints: eps}, nil
	})
	if err != nil {
		return nil, err
	}
	return facts.Merge(goRes, jsRes), nil
}

func endpoint(file string, line, col int, method, path, handler, framework string, auth bool) facts.APIEndpoint {
	return facts.APIEndpoint{
		ID:           facts.NewID(Name, facts.KindEndpoint, file, line, col, method),
		Method:       method,
		Path:         path,
		Handler:      handler,
		Framework:    framework,
		File:         file,
		Line:         line,
		RequiresAuth: auth,
	}
}

var authMarkers = []string{
	"auth", "jwt", "guard", "protect", "requirelogin", "requireuser",
	"ensureloggedin", "loggedin", "passport", "bearer", "verifytoken",
}

// isAuthName reports whether a middleware or wrapper name looks like an
// authentication check.
func isAuthName(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range authMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// joinPath appends a route path to a mount prefix.
func joinPath(prefix, p string) string {
	if prefix == "" {
		return p
	}
	if p == "" || p == "/" {
		return prefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(p, "/")
}
