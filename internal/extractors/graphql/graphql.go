// Package graphql extracts named GraphQL operations and fragments from gql
// tagged templates and .graphql documents.
package graphql

import (
	"context"
	"path"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/extractors"
	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// Name is the analyzer name.
const Name = "graphql"

// Extractor finds GraphQL operations.
type Extractor struct{}

// New creates a GraphQL extractor.
func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string { return Name }

// Supports reports whether kind can hold GraphQL documents.
func (e *Extractor) Supports(kind string) bool {
	return kind != config.KindGoAPI
}

// Extract returns the operations declared in the repository.
func (e *Extractor) Extract(ctx context.Context, repo *extractors.Repository) (*facts.AnalysisResult, error) {
	files := append(jsast.SourceFiles(repo.Files), DocumentFiles(repo.Files)...)
	return jsast.ForEachRaw(ctx, repo, Name, files, func(rel string, src []byte) (*facts.AnalysisResult, error) {
		if IsDocument(rel) {
			ops, err := DocumentOperations(rel, src)
			if err != nil {
				return nil, err
			}
			return &facts.AnalysisResult{Operations: ops}, nil
		}
		f, err := jsast.Parse(rel, src)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return &facts.AnalysisResult{Operations: FileOperations(f)}, nil
	})
}

// IsDocument reports whether p is a standalone GraphQL document.
func IsDocument(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	return ext == ".graphql" || ext == ".gql"
}

// DocumentFiles filters files down to GraphQL documents.
func DocumentFiles(files []string) []string {
	var out []string
	for _, f := range files {
		if IsDocument(f) {
			out = append(out, f)
		}
	}
	return out
}

// DocumentOperations returns the operations of a .graphql file. Schema
// documents hold no operations and yield nothing.
func DocumentOperations(rel string, src []byte) ([]facts.GraphQLOperation, error) {
	ops, err := operations(rel, string(src), 1, 1, "")
	if err != nil {
		if _, serr := parser.ParseSchema(&ast.Source{Name: rel, Input: string(src)}); serr == nil {
			return nil, nil
		}
		return nil, err
	}
	return ops, nil
}

// Template is a GraphQL document embedded in a JS/TS file.
type Template struct {
	Text    string // body with interpolations blanked out
	Line    int    // position of the first body character
	Col     int
	Binding string
}

// Templates returns the gql/graphql template documents of a parsed file.
func Templates(f *jsast.File) []Template {
	var out []Template
	jsast.Walk(f.Root, func(n *sitter.Node) bool {
		tpl := documentTemplate(n, f.Src)
		if tpl == nil {
			return true
		}
		out = append(out, Template{
			Text:    templateText(tpl, f.Src),
			Line:    jsast.Line(tpl),
			Col:     jsast.Col(tpl) + 1,
			Binding: binding(n, f.Src),
		})
		return false
	})
	return out
}

// FileOperations returns the operations of gql/graphql templates in a
// parsed JS/TS file.
func FileOperations(f *jsast.File) []facts.GraphQLOperation {
	var out []facts.GraphQLOperation
	for _, t := range Templates(f) {
		ops, err := operations(f.Path, t.Text, t.Line, t.Col, t.Binding)
		if err != nil {
			// Invalid documents in templates are skipped like unparseable files.
			continue
		}
		out = append(out, ops...)
	}
	return out
}

// tags are the template tags and wrapper functions that hold GraphQL documents.
var tags = map[string]bool{
	"gql":     true,
	"graphql": true,
}

// documentTemplate returns the template literal of a gql`...` tagged template
// or graphql(`...`) call.
func documentTemplate(n *sitter.Node, src []byte) *sitter.Node {
	if n.Kind() != "call_expression" || !tags[jsast.CalleeName(n, src)] {
		return nil
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	if args.Kind() == "template_string" {
		return args
	}
	if a := jsast.NamedChildren(args); len(a) > 0 && (a[0].Kind() == "template_string" || a[0].Kind() == "string") {
		return a[0]
	}
	return nil
}

// templateText returns the template body with interpolations blanked out,
// preserving line and column offsets.
func templateText(tpl *sitter.Node, src []byte) string {
	body := []byte(jsast.Text(tpl, src))
	if len(body) >= 2 {
		body = body[1 : len(body)-1]
	}
	start := tpl.StartByte() + 1
	for i := range tpl.ChildCount() {
		c := tpl.Child(i)
		if c == nil || c.Kind() != "template_substitution" {
			continue
		}
		for b := c.StartByte() - start; b < c.EndByte()-start && int(b) < len(body); b++ {
			if body[b] != '\n' {
				body[b] = ' '
			}
		}
	}
	return string(body)
}

// binding returns the identifier a document is assigned to, e.g. GET_USER
// in const GET_USER = gql`...`.
func binding(n *sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "variable_declarator", "public_field_definition", "field_definition":
			return jsast.Text(p.ChildByFieldName("name"), src)
		case "assignment_expression":
			return jsast.NormalizeMember(jsast.Text(p.ChildByFieldName("left"), src))
		case "pair":
			return jsast.PropertyKey(p.ChildByFieldName("key"), src)
		case "parenthesized_expression", "as_expression", "satisfies_expression", "call_expression", "arguments":
			continue
		}
		return ""
	}
	return ""
}

// operations parses a GraphQL document. Line and column offsets locate the
// document within its file.
func operations(file, doc string, line, col int, bindingName string) ([]facts.GraphQLOperation, error) {
	qd, err := parser.ParseQuery(&ast.Source{Name: file, Input: doc})
	if err != nil {
		return nil, err
	}

	var out []facts.GraphQLOperation
	at := func(pos *ast.Position) (int, int) {
		if pos == nil {
			return line, col
		}
		l, c := line+pos.Line-1, pos.Column
		if pos.Line == 1 {
			c += col - 1
		}
		return l, c
	}
	for _, op := range qd.Operations {
		if op.Name == "" {
			continue
		}
		l, c := at(op.Position)
		var vars []string
		for _, v := range op.VariableDefinitions {
			vars = append(vars, v.Variable)
		}
		out = append(out, facts.GraphQLOperation{
			ID:        facts.NewID(Name, facts.KindOperation, file, l, c, op.Name),
			Name:      op.Name,
			Type:      string(op.Operation),
			File:      file,
			Line:      l,
			Binding:   bindingName,
			Variables: vars,
		})
	}
	for _, fr := range qd.Fragments {
		l, c := at(fr.Position)
		out = append(out, facts.GraphQLOperation{
			ID:      facts.NewID(Name, facts.KindOperation, file, l, c, fr.Name),
			Name:    fr.Name,
			Type:    facts.OpFragment,
			File:    file,
			Line:    l,
			Binding: bindingName,
		})
	}
	return out, nil
}
