package endpoints

import (
	"path"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
	"github.com/dejo1307/frontdoc/internal/facts"
)

var nextVerbs = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

var nextAuthCalls = map[string]bool{
	"getServerSession":      true,
	"getSession":            true,
	"getToken":              true,
	"auth":                  true,
	"getAuth":               true,
	"currentUser":           true,
	"withAuth":              true,
	"withApiAuthRequired":   true,
	"requireAuth":           true,
	"verifyToken":           true,
	"supabase.auth.getUser": true,
}

// apiRoute maps a Next.js API file to its URL. app/**/route.* files are
// app-router handlers; pages/api/** files are pages-router handlers.
func apiRoute(rel string) (route string, appRouter, ok bool) {
	parts := strings.Split(rel, "/")
	base := strings.TrimSuffix(parts[len(parts)-1], path.Ext(rel))
	for i, p := range parts[:len(parts)-1] {
		if i > 1 || (i == 1 && parts[0] != "src") {
			break
		}
		switch p {
		case "app":
			if base != "route" {
				return "", false, false
			}
			var segs []string
			for _, s := range parts[i+1 : len(parts)-1] {
				if (strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")) || strings.HasPrefix(s, "@") || strings.HasPrefix(s, "_") {
					continue
				}
				segs = append(segs, s)
			}
			return "/" + strings.Join(segs, "/"), true, true
		case "pages":
			rest := parts[i+1:]
			if len(rest) < 2 || rest[0] != "api" {
				return "", false, false
			}
			segs := append([]string(nil), rest[:len(rest)-1]...)
			if base != "index" {
				segs = append(segs, base)
			}
			return "/" + strings.Join(segs, "/"), false, true
		}
	}
	return "", false, false
}

// nextEndpoints returns the handlers of a Next.js API file: one endpoint per
// exported verb function of a route handler, or the default export of a
// pages/api file with the methods it checks req.method against.
func nextEndpoints(f *jsast.File) []facts.APIEndpoint {
	route, appRouter, ok := apiRoute(f.Path)
	if !ok {
		return nil
	}
	auth := callsAuth(f.Root, f.Src)

	if appRouter {
		var out []facts.APIEndpoint
		for _, h := range verbExports(f) {
			out = append(out, endpoint(f.Path, jsast.Line(h.node), jsast.Col(h.node), h.verb, route, h.handler, FrameworkNextJS, auth))
		}
		return out
	}

	handler, decl := defaultHandler(f)
	if decl == nil {
		return nil
	}
	methods := checkedMethods(f.Root, f.Src)
	if len(methods) == 0 {
		methods = []string{MethodAll}
	}
	out := make([]facts.APIEndpoint, 0, len(methods))
	for _, m := range methods {
		out = append(out, endpoint(f.Path, jsast.Line(decl), jsast.Col(decl), m, route, handler, FrameworkNextJS, auth))
	}
	return out
}

type verbHandler struct {
	verb    string
	handler string
	node    *sitter.Node
}

// verbExports finds export function GET(), export const POST = ... and
// export { handler as GET }.
func verbExports(f *jsast.File) []verbHandler {
	var out []verbHandler
	for _, stmt := range jsast.NamedChildren(f.Root) {
		if stmt.Kind() != "export_statement" {
			continue
		}
		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			switch decl.Kind() {
			case "function_declaration", "generator_function_declaration":
				if name := f.Text(decl.ChildByFieldName("name")); nextVerbs[name] {
					out = append(out, verbHandler{verb: name, handler: name, node: decl})
				}
			case "lexical_declaration", "variable_declaration":
				for _, d := range jsast.NamedChildren(decl) {
					name := f.Text(d.ChildByFieldName("name"))
					if d.Kind() != "variable_declarator" || !nextVerbs[name] {
						continue
					}
					handler := name
					if v := d.ChildByFieldName("value"); v != nil && (v.Kind() == "identifier" || v.Kind() == "call_expression") {
						handler = handlerName(v, f.Src)
					}
					out = append(out, verbHandler{verb: name, handler: handler, node: d})
				}
			}
			continue
		}
		if clause := jsast.ChildByKind(stmt, "export_clause"); clause != nil {
			for _, s := range jsast.NamedChildren(clause) {
				alias := f.Text(s.ChildByFieldName("alias"))
				if nextVerbs[alias] {
					out = append(out, verbHandler{verb: alias, handler: f.Text(s.ChildByFieldName("name")), node: s})
				}
			}
		}
	}
	return out
}

// defaultHandler returns the name and node of a pages/api default export.
func defaultHandler(f *jsast.File) (string, *sitter.Node) {
	for _, stmt := range jsast.NamedChildren(f.Root) {
		if stmt.Kind() != "export_statement" || jsast.ChildByKind(stmt, "default") == nil {
			continue
		}
		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			if name := f.Text(decl.ChildByFieldName("name")); name != "" {
				return name, decl
			}
			return "default", decl
		}
		if v := stmt.ChildByFieldName("value"); v != nil {
			if name := handlerName(v, f.Src); name != "" {
				return name, v
			}
			return "default", v
		}
	}
	return "", nil
}

// checkedMethods collects the verbs a pages/api handler compares req.method
// against, in source order.
func checkedMethods(root *sitter.Node, src []byte) []string {
	var out []string
	seen := map[string]bool{}
	add := func(n *sitter.Node) {
		s, ok := jsast.StringValue(n, src)
		s = strings.ToUpper(s)
		if ok && nextVerbs[s] && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	isMethod := func(n *sitter.Node) bool {
		return n != nil && strings.HasSuffix(jsast.NormalizeMember(jsast.Text(n, src)), ".method")
	}

	jsast.Walk(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "binary_expression":
			left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
			if isMethod(left) {
				add(right)
			} else if isMethod(right) {
				add(left)
			}
		case "switch_statement":
			if value := n.ChildByFieldName("value"); value != nil && strings.HasSuffix(strings.Trim(jsast.NormalizeMember(jsast.Text(value, src)), "()"), ".method") {
				jsast.Walk(n.ChildByFieldName("body"), func(c *sitter.Node) bool {
					if c.Kind() == "switch_case" {
						add(c.ChildByFieldName("value"))
					}
					return true
				})
			}
		}
		return true
	})
	return out
}

// callsAuth reports whether a file calls a known session or token check.
func callsAuth(root *sitter.Node, src []byte) bool {
	found := false
	jsast.Walk(root, func(n *sitter.Node) bool {
		if found {
			return false
		}
		if n.Kind() == "call_expression" && nextAuthCalls[jsast.CalleeName(n, src)] {
			found = true
		}
		return true
	})
	return found
}
