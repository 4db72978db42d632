package endpoints

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/dejo1307/frontdoc/internal/facts"
)

// goRoute holds a detected route registration.
type goRoute struct {
	method  string // "GET", "POST", etc. or "ALL"
	path    string // e.g. "/api/users/{id}"
	handler string // e.g. "app.Handlers.User.Get"
	auth    bool
	pos     token.Pos
}

// scope is what a router variable carries into the routes registered on it.
type scope struct {
	prefix string
	auth   bool
}

// goEndpoints parses a Go file and returns its HTTP route registrations.
func goEndpoints(rel string, src []byte) ([]facts.APIEndpoint, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, rel, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	framework := detectRouterFramework(f)
	if framework == "" {
		return nil, nil
	}

	w := &goWalker{framework: framework}
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		// Router variables are function scoped.
		w.block(fn.Body.List, map[string]scope{})
	}

	out := make([]facts.APIEndpoint, 0, len(w.routes))
	for _, r := range w.routes {
		p := fset.Position(r.pos)
		out = append(out, endpoint(rel, p.Line, p.Column, r.method, r.path, r.handler, framework, r.auth))
	}
	return out, nil
}

// detectRouterFramework checks imports to determine which router framework is used.
// Specific frameworks (gorilla/mux, chi) take priority over net/http.
func detectRouterFramework(f *ast.File) string {
	hasNetHTTP := false
	for _, imp := range f.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		switch {
		case strings.Contains(path, "gorilla/mux"):
			return FrameworkGorilla
		case strings.Contains(path, "go-chi/chi"):
			return FrameworkChi
		case path == "net/http":
			hasNetHTTP = true
		}
	}
	if hasNetHTTP {
		return FrameworkNetHTTP
	}
	return ""
}

type goWalker struct {
	framework string
	routes    []goRoute
}

func (w *goWalker) block(stmts []ast.Stmt, scopes map[string]scope) {
	for _, s := range stmts {
		w.stmt(s, scopes)
	}
}

// stmt processes a single statement looking for route registrations and
// router variable assignments.
func (w *goWalker) stmt(stmt ast.Stmt, scopes map[string]scope) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		if call, ok := s.X.(*ast.CallExpr); ok {
			w.call(call, scopes)
		}

	case *ast.AssignStmt:
		// apiRouter := router.PathPrefix("/api").Subrouter()
		if len(s.Lhs) == 1 && len(s.Rhs) == 1 {
			if ident, ok := s.Lhs[0].(*ast.Ident); ok {
				if sc, ok := w.routerScope(s.Rhs[0], scopes); ok {
					scopes[ident.Name] = sc
				}
			}
		}
		// _ = router.HandleFunc(...)
		for _, rhs := range s.Rhs {
			if call, ok := rhs.(*ast.CallExpr); ok {
				w.call(call, scopes)
			}
		}

	case *ast.BlockStmt:
		w.block(s.List, scopes)

	case *ast.IfStmt:
		// Conditional registration still declares the route.
		if s.Body != nil {
			w.block(s.Body.List, scopes)
		}
		if s.Else != nil {
			w.stmt(s.Else, scopes)
		}
	}
}

// routerScope returns the scope of an expression that yields a router:
// a PathPrefix(...).Subrouter() chain or a chi With(...) call.
func (w *goWalker) routerScope(expr ast.Expr, scopes map[string]scope) (scope, bool) {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return scope{}, false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return scope{}, false
	}

	switch sel.Sel.Name {
	case "Subrouter":
		inner, ok := sel.X.(*ast.CallExpr)
		if !ok {
			return scope{}, false
		}
		innerSel, ok := inner.Fun.(*ast.SelectorExpr)
		if !ok || innerSel.Sel.Name != "PathPrefix" {
			return scope{}, false
		}
		parent := w.receiverScope(innerSel.X, scopes)
		return scope{prefix: joinPath(parent.prefix, stringArg(inner, 0)), auth: parent.auth}, true

	case "With":
		parent := w.receiverScope(sel.X, scopes)
		return scope{prefix: parent.prefix, auth: parent.auth || anyAuth(call.Args)}, true
	}
	return scope{}, false
}

// receiverScope returns the scope of the router a method is called on.
func (w *goWalker) receiverScope(x ast.Expr, scopes map[string]scope) scope {
	if name := identName(x); name != "" {
		return scopes[name]
	}
	if sc, ok := w.routerScope(x, scopes); ok {
		return sc
	}
	return scope{}
}

// call extracts route info from a call expression.
func (w *goWalker) call(call *ast.CallExpr, scopes map[string]scope) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return
	}

	// router.Use(authMiddleware) protects the routes registered after it.
	if sel.Sel.Name == "Use" {
		if name := identName(sel.X); name != "" && anyAuth(call.Args) {
			sc := scopes[name]
			sc.auth = true
			scopes[name] = sc
		}
		return
	}

	switch w.framework {
	case FrameworkGorilla:
		w.gorillaCall(call, sel, scopes)
	case FrameworkChi:
		w.chiCall(call, sel, scopes)
	case FrameworkNetHTTP:
		w.netHTTPCall(call, sel, scopes)
	}
}

// gorillaCall handles router.HandleFunc("/path", h).Methods("GET", ...) and
// router.HandleFunc("/path", h).
func (w *goWalker) gorillaCall(call *ast.CallExpr, sel *ast.SelectorExpr, scopes map[string]scope) {
	switch sel.Sel.Name {
	case "Methods":
		inner, ok := sel.X.(*ast.CallExpr)
		if !ok {
			return
		}
		r, ok := w.handleFunc(inner, scopes)
		if !ok {
			return
		}
		for i := range call.Args {
			if m := stringArg(call, i); m != "" {
				r.method = strings.ToUpper(m)
				w.routes = append(w.routes, r)
			}
		}

	case "HandleFunc", "Handle":
		if r, ok := w.handleFunc(call, scopes); ok {
			r.method = MethodAll
			w.routes = append(w.routes, r)
		}
	}
}

var chiVerbs = map[string]string{
	"Get":     "GET",
	"Post":    "POST",
	"Put":     "PUT",
	"Delete":  "DELETE",
	"Patch":   "PATCH",
	"Head":    "HEAD",
	"Options": "OPTIONS",
}

// chiCall handles r.Get("/path", h), r.Method("GET", "/path", h) and the
// nested r.Route("/prefix", fn) and r.Group(fn) forms.
func (w *goWalker) chiCall(call *ast.CallExpr, sel *ast.SelectorExpr, scopes map[string]scope) {
	name := sel.Sel.Name
	switch name {
	case "Route", "Group":
		fnIdx := 1
		if name == "Group" {
			fnIdx = 0
		}
		if fnIdx >= len(call.Args) {
			return
		}
		lit, ok := call.Args[fnIdx].(*ast.FuncLit)
		if !ok || lit.Body == nil {
			return
		}
		parent := w.receiverScope(sel.X, scopes)
		if name == "Route" {
			parent.prefix = joinPath(parent.prefix, stringArg(call, 0))
		}
		nested := make(map[string]scope, len(scopes)+1)
		for k, v := range scopes {
			nested[k] = v
		}
		if params := lit.Type.Params; params != nil && len(params.List) > 0 && len(params.List[0].Names) > 0 {
			nested[params.List[0].Names[0].Name] = parent
		}
		w.block(lit.Body.List, nested)
		return

	case "Method", "MethodFunc":
		if len(call.Args) < 2 {
			return
		}
		method := strings.ToUpper(stringArg(call, 0))
		if r, ok := w.route(call, sel, 1, scopes); ok && method != "" {
			r.method = method
			w.routes = append(w.routes, r)
		}
		return
	}

	method, ok := chiVerbs[name]
	if !ok {
		if name != "HandleFunc" && name != "Handle" {
			return
		}
		method = MethodAll
	}
	if r, ok := w.route(call, sel, 0, scopes); ok {
		r.method = method
		w.routes = append(w.routes, r)
	}
}

// netHTTPCall handles http.HandleFunc("/path", h) and mux.Handle patterns,
// including method-qualified patterns like "GET /users/{id}".
func (w *goWalker) netHTTPCall(call *ast.CallExpr, sel *ast.SelectorExpr, scopes map[string]scope) {
	if sel.Sel.Name != "HandleFunc" && sel.Sel.Name != "Handle" {
		return
	}
	r, ok := w.route(call, sel, 0, scopes)
	if !ok {
		return
	}
	method, path := splitPattern(stringArg(call, 0))
	r.method = method
	r.path = joinPath(w.receiverScope(sel.X, scopes).prefix, path)
	w.routes = append(w.routes, r)
}

// splitPattern splits a ServeMux pattern into method and path. Host
// qualifiers are dropped.
func splitPattern(pattern string) (string, string) {
	method := MethodAll
	if i := strings.IndexByte(pattern, ' '); i > 0 {
		method = strings.ToUpper(pattern[:i])
		pattern = strings.TrimSpace(pattern[i+1:])
	}
	if i := strings.IndexByte(pattern, '/'); i > 0 {
		pattern = pattern[i:]
	}
	return method, pattern
}

// handleFunc extracts path and handler from a HandleFunc/Handle call.
func (w *goWalker) handleFunc(call *ast.CallExpr, scopes map[string]scope) (goRoute, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || (sel.Sel.Name != "HandleFunc" && sel.Sel.Name != "Handle") {
		return goRoute{}, false
	}
	return w.route(call, sel, 0, scopes)
}

// route reads the path at argument pathIdx and the handler after it,
// applying the receiver's prefix and auth.
func (w *goWalker) route(call *ast.CallExpr, sel *ast.SelectorExpr, pathIdx int, scopes map[string]scope) (goRoute, bool) {
	path := stringArg(call, pathIdx)
	if path == "" {
		return goRoute{}, false
	}
	sc := w.receiverScope(sel.X, scopes)
	r := goRoute{
		path: joinPath(sc.prefix, path),
		auth: sc.auth,
		pos:  call.Pos(),
	}
	if pathIdx+1 < len(call.Args) {
		handler, auth := handlerOf(call.Args[pathIdx+1])
		r.handler = handler
		r.auth = r.auth || auth
	}
	return r, true
}

// handlerOf names a handler expression, looking through wrappers such as
// http.HandlerFunc(h) and requireAuth(h). The second result reports
// whether a wrapper looked like an authentication check.
func handlerOf(expr ast.Expr) (string, bool) {
	call, ok := expr.(*ast.CallExpr)
	if !ok || len(call.Args) == 0 {
		return exprToString(expr), false
	}
	wrapper := exprToString(call.Fun)
	inner, auth := handlerOf(call.Args[len(call.Args)-1])
	if inner == "" {
		return wrapper, auth
	}
	return inner, auth || isAuthName(wrapper)
}

// anyAuth reports whether any middleware argument looks like an
// authentication check.
func anyAuth(args []ast.Expr) bool {
	for _, a := range args {
		if isAuthName(exprToString(a)) {
			return true
		}
	}
	return false
}

// stringArg returns the string value of the argument at the given index, or "".
func stringArg(call *ast.CallExpr, index int) string {
	if index >= len(call.Args) {
		return ""
	}
	lit, ok := call.Args[index].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return ""
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil {
		return ""
	}
	return s
}

// exprToString converts an expression to a human-readable string.
// Handles selector chains like app.Handlers.User.CreatePasswordReset.
func exprToString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		x := exprToString(e.X)
		if x != "" {
			return x + "." + e.Sel.Name
		}
		return e.Sel.Name
	case *ast.CallExpr:
		// middleware.RateLimit(...)
		return exprToString(e.Fun)
	}
	return ""
}

// identName returns the name of an identifier expression, or "".
func identName(expr ast.Expr) string {
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}
