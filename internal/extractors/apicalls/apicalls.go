// Package apicalls extracts outgoing HTTP requests made through fetch, axios
// and similar clients.
package apicalls

import (
	"context"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/extractors"
	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// Name is the analyzer name.
const Name = "apicalls"

// Extractor finds API call sites.
type Extractor struct{}

// New creates an API call extractor.
func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string { return Name }

// Supports reports whether kind is a JavaScript project.
func (e *Extractor) Supports(kind string) bool {
	return kind != config.KindGoAPI
}

// Extract returns the API calls of the repository.
func (e *Extractor) Extract(ctx context.Context, repo *extractors.Repository) (*facts.AnalysisResult, error) {
	return jsast.ForEachFile(ctx, repo, Name, jsast.SourceFiles(repo.Files), func(f *jsast.File) (*facts.AnalysisResult, error) {
		return &facts.AnalysisResult{APICalls: FileCalls(f)}, nil
	})
}

// FileCalls returns the API calls made in one parsed file.
func FileCalls(f *jsast.File) []facts.APICall {
	var out []facts.APICall
	jsast.Walk(f.Root, func(n *sitter.Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		site, ok := match(n, f.Src)
		if !ok {
			return true
		}
		url, placeholder, ok := renderURL(site.url, f.Src)
		if !ok {
			return true
		}
		out = append(out, facts.APICall{
			ID:           facts.NewID(Name, facts.KindAPICall, f.Path, jsast.Line(n), jsast.Col(n)),
			Method:       site.method,
			URL:          url,
			Mechanism:    site.mechanism,
			Function:     jsast.ContainingFunction(n, f.Src),
			File:         f.Path,
			Line:         jsast.Line(n),
			RequiresAuth: hasAuth(site.options, f.Src),
			Category:     Classify(url, placeholder),
			Placeholder:  placeholder,
		})
		return true
	})
	return out
}

// renderURL turns a URL argument into a literal, a pattern, or a bracketed
// placeholder naming where the value comes from.
func renderURL(n *sitter.Node, src []byte) (url string, placeholder, ok bool) {
	if n == nil {
		return "", false, false
	}
	switch n.Kind() {
	case "string":
		s, _ := jsast.StringValue(n, src)
		return s, false, true

	case "template_string":
		if s, ok := jsast.StringValue(n, src); ok {
			return s, false, true
		}
		return jsast.TemplatePattern(n, src), false, true

	case "identifier", "member_expression", "subscript_expression":
		return "[" + jsast.NormalizeMember(jsast.Text(n, src)) + "]", true, true

	case "call_expression", "new_expression":
		fn := n.ChildByFieldName("function")
		if fn == nil {
			fn = n.ChildByFieldName("constructor")
		}
		s := "[" + jsast.NormalizeMember(jsast.Text(fn, src)) + "]"
		args := n.ChildByFieldName("arguments")
		if len(jsast.NamedChildren(args)) > 0 {
			if inner, innerPlaceholder, ok := renderURL(jsast.NamedChildren(args)[0], src); ok && !innerPlaceholder {
				s += " " + inner
			}
		}
		return s, true, true

	case "binary_expression":
		var b strings.Builder
		var dynamic bool
		for _, side := range []*sitter.Node{n.ChildByFieldName("left"), n.ChildByFieldName("right")} {
			part, p, ok := renderURL(side, src)
			if !ok {
				return "", false, false
			}
			dynamic = dynamic || p
			b.WriteString(part)
		}
		return b.String(), dynamic, true

	case "parenthesized_expression", "as_expression", "non_null_expression", "satisfies_expression":
		if inner := jsast.NamedChildren(n); len(inner) > 0 {
			return renderURL(inner[0], src)
		}

	case "ternary_expression":
		// useSWR(ready ? "/api/me" : null)
		for _, field := range []string{"consequence", "alternative"} {
			if s, p, ok := renderURL(n.ChildByFieldName(field), src); ok {
				return s, p, true
			}
		}

	case "array":
		// SWR and react-query array keys: ["/api/user", id]
		if el := jsast.NamedChildren(n); len(el) > 0 {
			return renderURL(el[0], src)
		}
	}
	return "", false, false
}

// authKeys are header or option names that carry credentials.
var authKeys = []string{"Authorization", "withCredentials", "X-Api-Key", "X-Auth-Token", "bearer", "accessToken"}

// hasAuth reports whether a request's options send credentials.
func hasAuth(opts []*sitter.Node, src []byte) bool {
	for _, o := range opts {
		if o == nil {
			continue
		}
		for _, k := range authKeys {
			if jsast.ObjectHasKey(o, src, k) {
				return true
			}
		}
		if headers := headersValue(o, src); headers != nil {
			text := strings.ToLower(jsast.Text(headers, src))
			if strings.Contains(text, "auth") || strings.Contains(text, "token") {
				return true
			}
		}
	}
	return false
}

// headersValue returns a non-literal headers option, e.g. getAuthHeaders().
func headersValue(o *sitter.Node, src []byte) *sitter.Node {
	h := jsast.ObjectProperty(o, src, "headers")
	if h == nil || h.Kind() == "object" {
		return nil
	}
	return h
}
