package pages

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dejo1307/frontdoc/internal/extractors"
	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// routeDecl is one react-router route, declared either as a <Route> element
// or as a route object literal.
type routeDecl struct {
	path      string
	index     bool
	element   *sitter.Node // element={<X/>} value, may be nil
	component string       // rendered component name
}

// routerPages returns the react-router pages declared in f.
func routerPages(repo *extractors.Repository, f *jsast.File) []facts.PageInfo {
	var out []facts.PageInfo
	var imports map[string]string
	scans := map[string]fileScan{}

	jsast.Walk(f.Root, func(n *sitter.Node) bool {
		decl, ok := parseRoute(n, f.Src)
		if !ok || (decl.path == "" && !decl.index) {
			return true
		}

		route := fullPath(n, f.Src)
		if !strings.HasPrefix(route, "/") {
			route = "/" + route
		}

		if imports == nil {
			imports = jsast.Imports(f.Root, f.Src)
			for name, spec := range lazyImports(f) {
				imports[name] = spec
			}
		}
		scan := componentScan(repo, f, decl.component, imports, scans)

		out = append(out, facts.PageInfo{
			ID:           facts.NewID(Name, facts.KindPage, f.Path, jsast.Line(n), jsast.Col(n), route),
			Route:        route,
			File:         f.Path,
			Line:         jsast.Line(n),
			Component:    decl.component,
			Router:       RouterReactRouter,
			Kind:         KindPage,
			Params:       routerParams(route),
			RequiresAuth: guarded(n, decl, f.Src) || scan.auth,
			Links:        scan.links,
		})
		return true
	})
	return out
}

// parseRoute recognizes <Route> elements and route objects.
func parseRoute(n *sitter.Node, src []byte) (routeDecl, bool) {
	switch {
	case jsast.IsJSX(n):
		if jsast.JSXName(n, src) != "Route" {
			return routeDecl{}, false
		}
		var d routeDecl
		if v := jsast.JSXAttribute(n, src, "path"); v != nil {
			d.path, _ = jsast.StringValue(v, src)
		}
		d.index = jsast.JSXAttribute(n, src, "index") != nil
		d.element = jsast.JSXAttribute(n, src, "element")
		if c := jsast.JSXAttribute(n, src, "Component"); c != nil && c.Kind() == "identifier" {
			d.component = jsast.Text(c, src)
		}
		if d.component == "" && d.element != nil {
			d.component = renderedComponent(d.element, src)
		}
		return d, true

	case n.Kind() == "object":
		element := jsast.ObjectProperty(n, src, "element")
		comp := jsast.ObjectProperty(n, src, "Component")
		children := jsast.ObjectProperty(n, src, "children")
		if element == nil && comp == nil && children == nil && jsast.ObjectProperty(n, src, "lazy") == nil {
			return routeDecl{}, false
		}
		pathNode := jsast.ObjectProperty(n, src, "path")
		idx := jsast.ObjectProperty(n, src, "index")
		d := routeDecl{element: element}
		d.path, _ = jsast.StringValue(pathNode, src)
		d.index = idx != nil && jsast.Text(idx, src) == "true"
		if comp != nil && comp.Kind() == "identifier" {
			d.component = jsast.Text(comp, src)
		}
		if d.component == "" && element != nil {
			d.component = renderedComponent(element, src)
		}
		return d, true
	}
	return routeDecl{}, false
}

// renderedComponent returns the innermost non-guard component of an element,
// e.g. Dashboard for <RequireAuth><Dashboard/></RequireAuth>.
func renderedComponent(el *sitter.Node, src []byte) string {
	name := ""
	jsast.Walk(el, func(n *sitter.Node) bool {
		if jsast.IsJSX(n) {
			if tag := jsast.JSXName(n, src); tag != "" && !isGuardName(tag) && jsast.IsPascalCase(tag) {
				if name == "" {
					name = tag
				}
				return false
			}
		}
		return true
	})
	return name
}

// parentRoute returns the route node that n is nested in, if any.
func parentRoute(n *sitter.Node, src []byte) *sitter.Node {
	if jsast.IsJSX(n) {
		for p := n.Parent(); p != nil; p = p.Parent() {
			if p.Kind() == "jsx_element" && jsast.JSXName(p, src) == "Route" {
				return p
			}
		}
		return nil
	}
	// object -> array -> pair(children) -> object
	arr := n.Parent()
	if arr == nil || arr.Kind() != "array" {
		return nil
	}
	pair := arr.Parent()
	if pair == nil || pair.Kind() != "pair" || jsast.PropertyKey(pair.ChildByFieldName("key"), src) != "children" {
		return nil
	}
	if obj := pair.Parent(); obj != nil && obj.Kind() == "object" {
		return obj
	}
	return nil
}

// fullPath resolves a route's path against all enclosing routes.
func fullPath(n *sitter.Node, src []byte) string {
	d, _ := parseRoute(n, src)
	parent := parentRoute(n, src)
	if parent == nil {
		return d.path
	}
	return joinRoute(fullPath(parent, src), d.path)
}

// guarded reports whether a route or any enclosing route is wrapped in an
// authentication guard.
func guarded(n *sitter.Node, d routeDecl, src []byte) bool {
	if d.element != nil && containsGuard(d.element, src) {
		return true
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if jsast.IsJSX(p) && isGuardName(jsast.JSXName(p, src)) {
			return true
		}
		if pd, ok := parseRoute(p, src); ok && pd.element != nil && containsGuard(pd.element, src) {
			return true
		}
	}
	return false
}

func containsGuard(el *sitter.Node, src []byte) bool {
	found := false
	jsast.Walk(el, func(n *sitter.Node) bool {
		if found {
			return false
		}
		if jsast.IsJSX(n) && isGuardName(jsast.JSXName(n, src)) {
			found = true
		}
		return true
	})
	return found
}

// lazyImports maps names bound to lazy(() => import("...")) to their specifiers.
func lazyImports(f *jsast.File) map[string]string {
	out := map[string]string{}
	jsast.Walk(f.Root, func(n *sitter.Node) bool {
		if n.Kind() != "variable_declarator" {
			return true
		}
		value := n.ChildByFieldName("value")
		if value == nil || value.Kind() != "call_expression" {
			return true
		}
		if c := jsast.CalleeName(value, f.Src); c != "lazy" && c != "React.lazy" && c != "loadable" {
			return true
		}
		jsast.Walk(value, func(c *sitter.Node) bool {
			if c.Kind() == "call_expression" && jsast.CalleeName(c, f.Src) == "import" {
				if args := jsast.Args(c); len(args) > 0 {
					if spec, ok := jsast.StringValue(args[0], f.Src); ok {
						out[f.Text(n.ChildByFieldName("name"))] = spec
					}
				}
				return false
			}
			return true
		})
		return false
	})
	return out
}

// componentScan locates the file declaring component and scans it for links
// and authentication markers. Imported and lazily loaded components are found
// through the resolver; components declared in the routes file itself are
// scanned in place.
func componentScan(repo *extractors.Repository, f *jsast.File, component string, imports map[string]string, cache map[string]fileScan) fileScan {
	if component == "" {
		return fileScan{}
	}
	spec, ok := imports[component]
	if !ok {
		if decl := findDeclaration(f.Root, f.Src, component); decl != nil {
			return scanFile(decl, f.Src)
		}
		return fileScan{}
	}
	if repo.Resolver == nil {
		return fileScan{}
	}
	res, ok := repo.Resolver.Resolve(f.Path, spec)
	if !ok {
		return fileScan{}
	}
	if s, ok := cache[res.File]; ok {
		return s
	}

	var s fileScan
	if src, err := repo.ReadFile(res.File); err == nil {
		if cf, err := jsast.Parse(res.File, src); err == nil {
			s = scanFile(cf.Root, cf.Src)
			cf.Close()
		}
	}
	cache[res.File] = s
	return s
}

// findDeclaration returns the top-level function or variable declaring name.
func findDeclaration(root *sitter.Node, src []byte, name string) *sitter.Node {
	var found *sitter.Node
	jsast.Walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		switch n.Kind() {
		case "function_declaration", "variable_declarator", "class_declaration":
			if jsast.Text(n.ChildByFieldName("name"), src) == name {
				found = n
				return false
			}
		}
		return true
	})
	return found
}
