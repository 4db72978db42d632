package endpoints

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
	"github.com/dejo1307/frontdoc/internal/facts"
)

var serverModules = map[string]string{
	"express":     FrameworkExpress,
	"koa":         FrameworkKoa,
	"koa-router":  FrameworkKoa,
	"@koa/router": FrameworkKoa,
	"fastify":     FrameworkFastify,
	"hono":        FrameworkHono,
}

var routerVerbs = map[string]string{
	"get":     "GET",
	"post":    "POST",
	"put":     "PUT",
	"patch":   "PATCH",
	"delete":  "DELETE",
	"del":     "DELETE",
	"head":    "HEAD",
	"options": "OPTIONS",
	"all":     MethodAll,
}

// serverFramework returns the server framework a file imports or requires,
// or "" when it imports none.
func serverFramework(f *jsast.File) string {
	for _, spec := range jsast.Imports(f.Root, f.Src) {
		if fw, ok := serverModules[spec]; ok {
			return fw
		}
	}
	var fw string
	jsast.Walk(f.Root, func(n *sitter.Node) bool {
		if fw != "" {
			return false
		}
		if n.Kind() == "call_expression" && jsast.CalleeName(n, f.Src) == "require" {
			if args := jsast.Args(n); len(args) > 0 {
				if spec, ok := jsast.StringValue(args[0], f.Src); ok {
					fw = serverModules[spec]
				}
			}
		}
		return true
	})
	return fw
}

// mount is a router attached to a parent under a path prefix.
type mount struct {
	prefix string
	auth   bool
}

// serverEndpoints returns the express-style route registrations of a file:
// router.get("/path", ...middleware, handler), router.route("/path").get(h)
// and fastify.route({method, url, handler}). Files that import no server
// framework are skipped so HTTP client calls of the same shape are not
// mistaken for routes.
func serverEndpoints(f *jsast.File) []facts.APIEndpoint {
	framework := serverFramework(f)
	if framework == "" {
		return nil
	}
	mounts := collectMounts(f)
	guarded := map[string]bool{}

	var out []facts.APIEndpoint
	jsast.Walk(f.Root, func(n *sitter.Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		callee := n.ChildByFieldName("function")
		if callee == nil || callee.Kind() != "member_expression" {
			return true
		}
		receiver := callee.ChildByFieldName("object")
		verb := f.Text(callee.ChildByFieldName("property"))
		recv := jsast.NormalizeMember(f.Text(receiver))
		args := jsast.Args(n)

		switch {
		case verb == "use":
			// router.use(authenticate) guards the routes registered after it.
			if len(args) > 0 && !isPathArg(args[0], f.Src) && anyAuthArg(args, f.Src) {
				guarded[recv] = true
			}
			return true

		case verb == "route" && len(args) == 1 && args[0].Kind() == "object":
			out = append(out, routeObject(f, n, args[0], framework, mounts[recv], guarded[recv])...)
			return true
		}

		method, ok := routerVerbs[verb]
		if !ok {
			return true
		}

		// router.route("/users").get(list).post(create)
		if chained, base, ok := routeChain(receiver, f.Src); ok {
			if len(args) == 0 {
				return true
			}
			m := mounts[base]
			out = append(out, endpoint(f.Path, jsast.Line(callee.ChildByFieldName("property")), jsast.Col(callee.ChildByFieldName("property")),
				method, joinPath(m.prefix, chained), handlerName(args[len(args)-1], f.Src), framework,
				m.auth || guarded[base] || anyAuthArg(args[:len(args)-1], f.Src)))
			return true
		}

		if len(args) < 2 || !isPathArg(args[0], f.Src) || !isHandlerArg(args[len(args)-1]) {
			return true
		}
		if k := receiver.Kind(); k != "identifier" && k != "member_expression" && k != "this" {
			return true
		}
		path, _ := jsast.StringValue(args[0], f.Src)
		m := mounts[recv]
		out = append(out, endpoint(f.Path, jsast.Line(n), jsast.Col(n),
			method, joinPath(m.prefix, path), handlerName(args[len(args)-1], f.Src), framework,
			m.auth || guarded[recv] || anyAuthArg(args[1:len(args)-1], f.Src)))
		return true
	})
	return out
}

// collectMounts finds app.use("/prefix", ...middleware, router) and
// new Router({ prefix }) declarations so routes can be reported with their
// full path. Only mounts within the same file are seen.
func collectMounts(f *jsast.File) map[string]mount {
	mounts := map[string]mount{}
	jsast.Walk(f.Root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "call_expression":
			callee := n.ChildByFieldName("function")
			if callee == nil || callee.Kind() != "member_expression" || f.Text(callee.ChildByFieldName("property")) != "use" {
				return true
			}
			args := jsast.Args(n)
			if len(args) < 2 || !isPathArg(args[0], f.Src) {
				return true
			}
			last := args[len(args)-1]
			if last.Kind() != "identifier" && last.Kind() != "member_expression" {
				return true
			}
			prefix, _ := jsast.StringValue(args[0], f.Src)
			parent := mounts[jsast.NormalizeMember(f.Text(callee.ChildByFieldName("object")))]
			mounts[jsast.NormalizeMember(f.Text(last))] = mount{
				prefix: joinPath(parent.prefix, prefix),
				auth:   parent.auth || anyAuthArg(args[1:len(args)-1], f.Src),
			}

		case "variable_declarator":
			v := n.ChildByFieldName("value")
			if v == nil || v.Kind() != "new_expression" {
				return true
			}
			ctor := f.Text(v.ChildByFieldName("constructor"))
			if ctor != "Router" && ctor != "KoaRouter" {
				return true
			}
			opts := jsast.NamedChildren(v.ChildByFieldName("arguments"))
			if len(opts) == 0 {
				return true
			}
			if p, ok := jsast.StringValue(jsast.ObjectProperty(opts[0], f.Src, "prefix"), f.Src); ok {
				mounts[f.Text(n.ChildByFieldName("name"))] = mount{prefix: p}
			}
		}
		return true
	})
	return mounts
}

// routeChain reports whether receiver is a router.route("/path") chain,
// returning the path and the base router.
func routeChain(receiver *sitter.Node, src []byte) (string, string, bool) {
	for depth := 0; receiver != nil && receiver.Kind() == "call_expression" && depth < 16; depth++ {
		callee := receiver.ChildByFieldName("function")
		if callee == nil || callee.Kind() != "member_expression" {
			return "", "", false
		}
		prop := jsast.Text(callee.ChildByFieldName("property"), src)
		switch {
		case prop == "route":
			args := jsast.Args(receiver)
			if len(args) != 1 {
				return "", "", false
			}
			p, ok := jsast.StringValue(args[0], src)
			if !ok {
				return "", "", false
			}
			return p, jsast.NormalizeMember(jsast.Text(callee.ChildByFieldName("object"), src)), true
		case routerVerbs[prop] != "":
			receiver = callee.ChildByFieldName("object")
		default:
			return "", "", false
		}
	}
	return "", "", false
}

// routeObject handles fastify.route({ method, url, preHandler, handler }).
func routeObject(f *jsast.File, call, obj *sitter.Node, framework string, m mount, guarded bool) []facts.APIEndpoint {
	path, ok := jsast.StringValue(jsast.ObjectProperty(obj, f.Src, "url"), f.Src)
	if !ok {
		path, ok = jsast.StringValue(jsast.ObjectProperty(obj, f.Src, "path"), f.Src)
	}
	if !ok {
		return nil
	}
	var methods []string
	switch mv := jsast.ObjectProperty(obj, f.Src, "method"); {
	case mv == nil:
		methods = []string{MethodAll}
	case mv.Kind() == "array":
		for _, el := range jsast.NamedChildren(mv) {
			if s, ok := jsast.StringValue(el, f.Src); ok {
				methods = append(methods, strings.ToUpper(s))
			}
		}
	default:
		if s, ok := jsast.StringValue(mv, f.Src); ok {
			methods = []string{strings.ToUpper(s)}
		}
	}

	handler := ""
	if h := jsast.ObjectProperty(obj, f.Src, "handler"); h != nil {
		handler = handlerName(h, f.Src)
	}
	auth := m.auth || guarded
	for _, hook := range []string{"preHandler", "onRequest", "preValidation"} {
		if h := jsast.ObjectProperty(obj, f.Src, hook); h != nil && anyAuthArg([]*sitter.Node{h}, f.Src) {
			auth = true
		}
	}

	out := make([]facts.APIEndpoint, 0, len(methods))
	for _, method := range methods {
		out = append(out, endpoint(f.Path, jsast.Line(call), jsast.Col(call), method, joinPath(m.prefix, path), handler, framework, auth))
	}
	return out
}

func isPathArg(n *sitter.Node, src []byte) bool {
	s, ok := jsast.StringValue(n, src)
	return ok && (strings.HasPrefix(s, "/") || s == "*")
}

func isHandlerArg(n *sitter.Node) bool {
	switch n.Kind() {
	case "identifier", "member_expression", "call_expression", "arrow_function", "function_expression", "function":
		return true
	}
	return false
}

// handlerName names the final handler argument. Wrapped handlers like
// asyncHandler(controller.list) are named by what they wrap.
func handlerName(n *sitter.Node, src []byte) string {
	switch n.Kind() {
	case "identifier", "member_expression":
		return jsast.NormalizeMember(jsast.Text(n, src))
	case "call_expression":
		if args := jsast.Args(n); len(args) > 0 {
			if a := args[len(args)-1]; a.Kind() == "identifier" || a.Kind() == "member_expression" {
				return jsast.NormalizeMember(jsast.Text(a, src))
			}
		}
		return jsast.CalleeName(n, src)
	case "function_expression", "function":
		return jsast.Text(n.ChildByFieldName("name"), src)
	}
	return ""
}

// anyAuthArg reports whether any middleware argument, or element of an
// array of middleware, looks like an authentication check.
func anyAuthArg(args []*sitter.Node, src []byte) bool {
	for _, a := range args {
		switch a.Kind() {
		case "identifier", "member_expression":
			if isAuthName(jsast.Text(a, src)) {
				return true
			}
		case "call_expression":
			if isAuthName(jsast.CalleeName(a, src)) {
				return true
			}
		case "array":
			if anyAuthArg(jsast.NamedChildren(a), src) {
				return true
			}
		}
	}
	return false
}
