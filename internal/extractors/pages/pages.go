// Package pages extracts routed pages from Next.js file layouts and
// react-router route declarations.
package pages

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
const Name = "pages"

// Extractor finds routed pages.
type Extractor struct{}

// New creates a pages extractor.
func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string { return Name }

// Supports reports whether kind defines routed pages.
func (e *Extractor) Supports(kind string) bool {
	return kind == config.KindNextJS || kind == config.KindReact
}

// Extract returns the pages of the repository.
func (e *Extractor) Extract(ctx context.Context, repo *extractors.Repository) (*facts.AnalysisResult, error) {
	nextjs := repo.Config.Type == config.KindNextJS
	return jsast.ForEachFile(ctx, repo, Name, jsast.SourceFiles(repo.Files), func(f *jsast.File) (*facts.AnalysisResult, error) {
		res := &facts.AnalysisResult{}
		if nextjs {
			if p, ok := filePage(f); ok {
				res.Pages = append(res.Pages, p)
			}
		}
		res.Pages = append(res.Pages, routerPages(repo, f)...)
		return res, nil
	})
}

// filePage builds the page of a Next.js router file.
func filePage(f *jsast.File) (facts.PageInfo, bool) {
	r, ok := detectRoute(f.Path)
	if !ok {
		return facts.PageInfo{}, false
	}
	line, col := 1, 1
	name, decl := defaultExport(f)
	if decl != nil {
		line, col = jsast.Line(decl), jsast.Col(decl)
	}
	scan := scanFile(f.Root, f.Src)
	return facts.PageInfo{
		ID:           facts.NewID(Name, facts.KindPage, f.Path, line, col, r.kind),
		Route:        r.route,
		File:         f.Path,
		Line:         line,
		Component:    name,
		Router:       r.router,
		Kind:         r.kind,
		Params:       r.params,
		RequiresAuth: scan.auth,
		Links:        scan.links,
	}, true
}

// defaultExport returns the name and node of the default export, if any.
func defaultExport(f *jsast.File) (string, *sitter.Node) {
	for _, stmt := range jsast.NamedChildren(f.Root) {
		if stmt.Kind() != "export_statement" || jsast.ChildByKind(stmt, "default") == nil {
			continue
		}
		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			return f.Text(decl.ChildByFieldName("name")), decl
		}
		if v := stmt.ChildByFieldName("value"); v != nil {
			switch v.Kind() {
			case "identifier":
				return f.Text(v), v
			case "call_expression":
				// export default withAuth(Page)
				for _, a := range jsast.Args(v) {
					if a.Kind() == "identifier" {
						return f.Text(a), v
					}
				}
			default:
				return jsast.FunctionName(v, f.Src), v
			}
		}
		return "", stmt
	}
	return "", nil
}

// fileScan is what a page file reveals about navigation and access control.
type fileScan struct {
	auth  bool
	links []string
}

var authCalls = map[string]bool{
	"getServerSession":           true,
	"getSession":                 true,
	"useSession":                 true,
	"withAuth":                   true,
	"withPageAuthRequired":       true,
	"withAuthenticationRequired": true,
	"requireAuth":                true,
	"useRequireAuth":             true,
	"auth":                       true,
	"currentUser":                true,
}

var navigateCalls = map[string]bool{
	"router.push":       true,
	"router.replace":    true,
	"navigate":          true,
	"redirect":          true,
	"permanentRedirect": true,
}

// scanFile collects literal navigation targets and authentication markers.
func scanFile(root *sitter.Node, src []byte) fileScan {
	var s fileScan
	seen := map[string]bool{}
	addLink := func(v *sitter.Node) {
		target, ok := literalTarget(v, src)
		if !ok || seen[target] {
			return
		}
		seen[target] = true
		s.links = append(s.links, target)
	}

	jsast.Walk(root, func(n *sitter.Node) bool {
		switch {
		case n.Kind() == "call_expression":
			callee := jsast.CalleeName(n, src)
			if authCalls[callee] {
				s.auth = true
			}
			if navigateCalls[callee] || strings.HasSuffix(callee, "router.push") {
				args := jsast.Args(n)
				if len(args) > 0 {
					if callee == "redirect" && isLoginTarget(args[0], src) {
						s.auth = true
					}
					addLink(args[0])
				}
			}
		case jsast.IsJSX(n):
			switch jsast.JSXName(n, src) {
			case "Link", "a", "NextLink":
				addLink(jsast.JSXAttribute(n, src, "href"))
				addLink(jsast.JSXAttribute(n, src, "to"))
			case "NavLink", "Navigate":
				addLink(jsast.JSXAttribute(n, src, "to"))
			}
			if isGuardName(jsast.JSXName(n, src)) {
				s.auth = true
			}
		}
		return true
	})
	return s
}

// literalTarget returns an internal navigation target from a string or
// template literal.
func literalTarget(v *sitter.Node, src []byte) (string, bool) {
	if v == nil {
		return "", false
	}
	target, ok := jsast.StringValue(v, src)
	if !ok && v.Kind() == "template_string" {
		target, ok = jsast.TemplatePattern(v, src), true
	}
	if !ok || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "", false
	}
	return target, true
}

func isLoginTarget(v *sitter.Node, src []byte) bool {
	t, ok := jsast.StringValue(v, src)
	if !ok {
		return false
	}
	t = strings.ToLower(t)
	return strings.Contains(t, "login") || strings.Contains(t, "signin") || strings.Contains(t, "sign-in")
}

// isGuardName reports whether a JSX tag looks like a route guard.
func isGuardName(name string) bool {
	for _, prefix := range []string{"RequireAuth", "ProtectedRoute", "PrivateRoute", "AuthGuard", "Authenticated", "SignedIn"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
