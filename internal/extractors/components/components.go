// Package components extracts React component declarations: their props,
// hooks and the components they render.
package components

import (
	"context"
	"path"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/extractors"
	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// Name is the analyzer name.
const Name = "components"

// Component types.
const (
	TypePage      = "page"
	TypeLayout    = "layout"
	TypeUI        = "ui"
	TypeComponent = "component"
)

// Extractor finds UI components.
type Extractor struct{}

// New creates a component extractor.
func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string { return Name }

// Supports reports whether kind has UI components.
func (e *Extractor) Supports(kind string) bool {
	return kind == config.KindNextJS || kind == config.KindReact || kind == config.KindLibrary
}

// Extract returns the components declared in the repository.
func (e *Extractor) Extract(ctx context.Context, repo *extractors.Repository) (*facts.AnalysisResult, error) {
	return jsast.ForEachFile(ctx, repo, Name, jsast.SourceFiles(repo.Files), func(f *jsast.File) (*facts.AnalysisResult, error) {
		return &facts.AnalysisResult{Components: FileComponents(repo, f)}, nil
	})
}

// Decl is a component declaration found at the top level of a file.
type Decl struct {
	Name     string
	Node     *sitter.Node // declaration node, used for position
	Body     *sitter.Node // function or class node
	Exported bool
}

// Declarations returns the top-level component declarations of f.
func Declarations(f *jsast.File) []Decl {
	var out []Decl
	defaultExports := map[string]bool{}

	for _, stmt := range jsast.NamedChildren(f.Root) {
		out = append(out, declarations(stmt, f.Src, false)...)

		// export default Foo; export { Foo }
		if stmt.Kind() == "export_statement" {
			if v := stmt.ChildByFieldName("value"); v != nil && v.Kind() == "identifier" {
				defaultExports[f.Text(v)] = true
			}
			if clause := jsast.ChildByKind(stmt, "export_clause"); clause != nil && stmt.ChildByFieldName("source") == nil {
				for _, s := range jsast.NamedChildren(clause) {
					defaultExports[f.Text(s.ChildByFieldName("name"))] = true
				}
			}
		}
	}
	for i := range out {
		if defaultExports[out[i].Name] {
			out[i].Exported = true
		}
	}
	return out
}

func declarations(node *sitter.Node, src []byte, exported bool) []Decl {
	switch node.Kind() {
	case "export_statement":
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			return declarations(decl, src, true)
		}
		// export default () => <div/>; export default memo(function Card() {})
		if v := node.ChildByFieldName("value"); v != nil {
			if fn := unwrapFunction(v, src); fn != nil && jsast.ContainsJSX(fn) {
				if name := jsast.FunctionName(fn, src); jsast.IsPascalCase(name) {
					return []Decl{{Name: name, Node: node, Body: fn, Exported: true}}
				}
			}
		}

	case "function_declaration":
		name := jsast.Text(node.ChildByFieldName("name"), src)
		if jsast.IsPascalCase(name) && jsast.ContainsJSX(node.ChildByFieldName("body")) {
			return []Decl{{Name: name, Node: node, Body: node, Exported: exported}}
		}

	case "class_declaration":
		name := jsast.Text(node.ChildByFieldName("name"), src)
		if jsast.IsPascalCase(name) && isClassComponent(node, src) {
			return []Decl{{Name: name, Node: node, Body: node, Exported: exported}}
		}

	case "lexical_declaration", "variable_declaration":
		var out []Decl
		for _, d := range jsast.NamedChildren(node) {
			if d.Kind() != "variable_declarator" {
				continue
			}
			name := jsast.Text(d.ChildByFieldName("name"), src)
			if !jsast.IsPascalCase(name) {
				continue
			}
			fn := unwrapFunction(d.ChildByFieldName("value"), src)
			if fn != nil && jsast.ContainsJSX(fn) {
				out = append(out, Decl{Name: name, Node: d, Body: fn, Exported: exported})
			}
		}
		return out
	}
	return nil
}

// unwrapFunction returns the function of a value, looking through memo,
// forwardRef and observer wrappers.
func unwrapFunction(v *sitter.Node, src []byte) *sitter.Node {
	for depth := 0; v != nil && depth < 4; depth++ {
		switch v.Kind() {
		case "arrow_function", "function_expression", "function":
			return v
		case "call_expression":
			args := jsast.Args(v)
			if len(args) == 0 {
				return nil
			}
			v = args[0]
		case "parenthesized_expression", "as_expression", "satisfies_expression":
			inner := jsast.NamedChildren(v)
			if len(inner) == 0 {
				return nil
			}
			v = inner[0]
		default:
			return nil
		}
	}
	return nil
}

// isClassComponent reports whether a class extends Component or renders JSX.
func isClassComponent(cls *sitter.Node, src []byte) bool {
	if h := jsast.ChildByKind(cls, "class_heritage"); h != nil {
		text := jsast.Text(h, src)
		if strings.Contains(text, "Component") {
			return true
		}
	}
	return jsast.ContainsJSX(cls.ChildByFieldName("body"))
}

// FileComponents returns the components declared in f. Rendered children
// are resolved to files through the repository's resolver.
func FileComponents(repo *extractors.Repository, f *jsast.File) []facts.ComponentInfo {
	decls := Declarations(f)
	if len(decls) == 0 {
		return nil
	}
	imports := jsast.Imports(f.Root, f.Src)

	out := make([]facts.ComponentInfo, 0, len(decls))
	for _, d := range decls {
		children := Children(d.Body, f.Src)
		out = append(out, facts.ComponentInfo{
			ID:       facts.NewID(Name, facts.KindComponent, f.Path, jsast.Line(d.Node), jsast.Col(d.Node), d.Name),
			Name:     d.Name,
			Type:     componentType(f.Path, d.Name),
			File:     f.Path,
			Line:     jsast.Line(d.Node),
			Exported: d.Exported,
			Props:    Props(d.Body, f.Src),
			Hooks:    Hooks(d.Body, f.Src),
			Children: children,
			Imports:  resolveChildren(repo, f.Path, children, imports),
		})
	}
	return out
}

// componentType classifies a component by its file location and name.
func componentType(file, name string) string {
	base := strings.TrimSuffix(path.Base(file), path.Ext(file))
	dir := "/" + path.Dir(file) + "/"
	switch {
	case base == "layout" || strings.HasSuffix(name, "Layout"):
		return TypeLayout
	case base == "page" || strings.Contains(dir, "/pages/") || strings.HasSuffix(name, "Page"):
		return TypePage
	case strings.Contains(dir, "/ui/"):
		return TypeUI
	}
	return TypeComponent
}

// Props returns the prop names of a component: the keys of a destructured
// first parameter, or the props.x members read from a named one.
func Props(fn *sitter.Node, src []byte) []string {
	param := firstParam(fn)
	if param == nil {
		return nil
	}
	var props []string
	switch param.Kind() {
	case "object_pattern":
		for _, p := range jsast.NamedChildren(param) {
			switch p.Kind() {
			case "shorthand_property_identifier_pattern":
				props = append(props, jsast.Text(p, src))
			case "pair_pattern":
				props = append(props, jsast.PropertyKey(p.ChildByFieldName("key"), src))
			case "object_assignment_pattern":
				props = append(props, jsast.Text(p.ChildByFieldName("left"), src))
			case "rest_pattern":
				props = append(props, "..."+jsast.Text(jsast.ChildByKind(p, "identifier"), src))
			}
		}
	case "identifier":
		name := jsast.Text(param, src)
		seen := map[string]bool{}
		jsast.Walk(fn, func(n *sitter.Node) bool {
			if n.Kind() != "member_expression" {
				return true
			}
			if jsast.Text(n.ChildByFieldName("object"), src) != name {
				return true
			}
			prop := jsast.Text(n.ChildByFieldName("property"), src)
			if prop != "" && !seen[prop] {
				seen[prop] = true
				props = append(props, prop)
			}
			return true
		})
	}
	return props
}

// firstParam returns the pattern of a function's first parameter.
func firstParam(fn *sitter.Node) *sitter.Node {
	if fn == nil {
		return nil
	}
	if p := fn.ChildByFieldName("parameter"); p != nil {
		return p
	}
	params := jsast.NamedChildren(fn.ChildByFieldName("parameters"))
	if len(params) == 0 {
		return nil
	}
	p := params[0]
	if p.Kind() == "required_parameter" || p.Kind() == "optional_parameter" {
		return p.ChildByFieldName("pattern")
	}
	return p
}

// Hooks returns the hooks called in a component, in call order.
func Hooks(fn *sitter.Node, src []byte) []string {
	var hooks []string
	seen := map[string]bool{}
	jsast.Walk(fn, func(n *sitter.Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		name := strings.TrimPrefix(jsast.CalleeName(n, src), "React.")
		if jsast.IsHookName(name) && !seen[name] {
			seen[name] = true
			hooks = append(hooks, name)
		}
		return true
	})
	return hooks
}

// Children returns the component tags rendered by a component.
func Children(fn *sitter.Node, src []byte) []string {
	var children []string
	seen := map[string]bool{}
	jsast.Walk(fn, func(n *sitter.Node) bool {
		if !jsast.IsJSX(n) {
			return true
		}
		tag := jsast.JSXName(n, src)
		if jsast.IsPascalCase(strings.Split(tag, ".")[0]) && !seen[tag] {
			seen[tag] = true
			children = append(children, tag)
		}
		return true
	})
	return children
}

// resolveChildren maps imported child components to repository files.
func resolveChildren(repo *extractors.Repository, file string, children []string, imports map[string]string) []string {
	if repo == nil || repo.Resolver == nil {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, c := range children {
		spec, ok := imports[strings.Split(c, ".")[0]]
		if !ok {
			continue
		}
		res, ok := repo.Resolver.Resolve(file, spec)
		if !ok || seen[res.File] {
			continue
		}
		seen[res.File] = true
		out = append(out, res.File)
	}
	return out
}
