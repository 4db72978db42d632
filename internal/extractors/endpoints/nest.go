package endpoints

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
	"github.com/dejo1307/frontdoc/internal/facts"
)

var nestVerbs = map[string]string{
	"Get":     "GET",
	"Post":    "POST",
	"Put":     "PUT",
	"Patch":   "PATCH",
	"Delete":  "DELETE",
	"Head":    "HEAD",
	"Options": "OPTIONS",
	"All":     MethodAll,
}

var nestGuards = map[string]bool{
	"UseGuards":     true,
	"Auth":          true,
	"Roles":         true,
	"ApiBearerAuth": true,
}

// decorator is a parsed @Name(args) decorator.
type decorator struct {
	name string
	args []*sitter.Node
	node *sitter.Node
}

func parseDecorator(n *sitter.Node, src []byte) decorator {
	d := decorator{node: n}
	inner := jsast.NamedChildren(n)
	if len(inner) == 0 {
		return d
	}
	switch e := inner[0]; e.Kind() {
	case "call_expression":
		d.name = jsast.CalleeName(e, src)
		d.args = jsast.Args(e)
	default:
		d.name = jsast.NormalizeMember(jsast.Text(e, src))
	}
	return d
}

// childDecorators returns the decorators that are direct children of n.
func childDecorators(n *sitter.Node, src []byte) []decorator {
	var out []decorator
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.Kind() == "decorator" {
			out = append(out, parseDecorator(c, src))
		}
	}
	return out
}

// classDecorators returns the decorators of a class declaration, including
// those written before an enclosing export.
func classDecorators(cls *sitter.Node, src []byte) []decorator {
	var out []decorator
	if p := cls.Parent(); p != nil && p.Kind() == "export_statement" {
		out = childDecorators(p, src)
	}
	return append(out, childDecorators(cls, src)...)
}

// nestEndpoints returns the routes of NestJS controllers: @Controller("users")
// classes whose methods carry @Get(":id")-style decorators. @UseGuards on the
// class or the method marks the route as authenticated.
func nestEndpoints(f *jsast.File) []facts.APIEndpoint {
	var out []facts.APIEndpoint
	jsast.Walk(f.Root, func(n *sitter.Node) bool {
		if k := n.Kind(); k != "class_declaration" && k != "abstract_class_declaration" {
			return true
		}
		prefix, guarded, ok := controller(classDecorators(n, f.Src), f.Src)
		if !ok {
			return false
		}
		className := f.Text(n.ChildByFieldName("name"))

		var pending []decorator
		for _, member := range jsast.NamedChildren(n.ChildByFieldName("body")) {
			switch member.Kind() {
			case "decorator":
				pending = append(pending, parseDecorator(member, f.Src))
				continue
			case "method_definition":
				// The TypeScript grammar puts method decorators before the
				// method in the class body, the JavaScript grammar inside it.
				decs := append(pending, childDecorators(member, f.Src)...)
				out = append(out, controllerMethod(f, className, member, decs, prefix, guarded)...)
			}
			pending = nil
		}
		return false
	})
	return out
}

// controller reads the route prefix and guard state of a @Controller class.
func controller(decs []decorator, src []byte) (string, bool, bool) {
	var prefix string
	var found, guarded bool
	for _, d := range decs {
		switch {
		case d.name == "Controller":
			found = true
			prefix = decoratorPath(d, src)
		case nestGuards[d.name]:
			guarded = true
		}
	}
	return prefix, guarded, found
}

func controllerMethod(f *jsast.File, className string, method *sitter.Node, decs []decorator, prefix string, guarded bool) []facts.APIEndpoint {
	auth := guarded
	for _, d := range decs {
		if nestGuards[d.name] {
			auth = true
		}
		if d.name == "Public" {
			auth = false
		}
	}

	handler := f.Text(method.ChildByFieldName("name"))
	if className != "" {
		handler = className + "." + handler
	}

	var out []facts.APIEndpoint
	for _, d := range decs {
		verb, ok := nestVerbs[d.name]
		if !ok {
			continue
		}
		path := "/" + strings.Trim(joinPath(prefix, decoratorPath(d, f.Src)), "/")
		out = append(out, endpoint(f.Path, jsast.Line(d.node), jsast.Col(d.node), verb, path, handler, FrameworkNestJS, auth))
	}
	return out
}

// decoratorPath returns the path argument of @Controller("users"),
// @Controller({ path: "users" }) or @Get(":id").
func decoratorPath(d decorator, src []byte) string {
	if len(d.args) == 0 {
		return ""
	}
	a := d.args[0]
	if a.Kind() == "object" {
		a = jsast.ObjectProperty(a, src, "path")
	}
	s, _ := jsast.StringValue(a, src)
	return s
}
