package jsast

import (
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dejo1307/frontdoc/internal/facts"
)

// maxWalkDepth bounds traversal of pathologically nested trees.
const maxWalkDepth = 512

// Walk visits n and its descendants in source order. When fn returns false
// the children of the visited node are skipped.
func Walk(n *sitter.Node, fn func(n *sitter.Node) bool) {
	if n == nil {
		return
	}
	type entry struct {
		node  *sitter.Node
		depth int
	}
	stack := []entry{{n, 0}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(e.node) || e.depth >= maxWalkDepth {
			continue
		}
		for i := int(e.node.ChildCount()) - 1; i >= 0; i-- {
			if c := e.node.Child(uint(i)); c != nil {
				stack = append(stack, entry{c, e.depth + 1})
			}
		}
	}
}

// Text returns the source text of n.
func Text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

// Line returns the 1-based line of n.
func Line(n *sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

// Col returns the 1-based column of n.
func Col(n *sitter.Node) int {
	return int(n.StartPosition().Column) + 1
}

// ChildByKind returns the first direct child of the given kind.
func ChildByKind(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := range n.ChildCount() {
		if c := n.Child(i); c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

// NamedChildren returns the named children of n, skipping comments.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := range n.NamedChildCount() {
		c := n.NamedChild(i)
		if c == nil || c.Kind() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// StringValue returns the literal value of a string or a template string
// without substitutions.
func StringValue(n *sitter.Node, src []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind() {
	case "string":
		return unquote(Text(n, src)), true
	case "template_string":
		if ChildByKind(n, "template_substitution") != nil {
			return "", false
		}
		return unquote(Text(n, src)), true
	}
	return "", false
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

// TemplatePattern renders a template string as a URL pattern, replacing each
// substitution with {name}, where name is the last identifier of the
// substituted expression.
func TemplatePattern(n *sitter.Node, src []byte) string {
	if n == nil || n.Kind() != "template_string" {
		return ""
	}
	start, end := n.StartByte()+1, n.EndByte()-1
	var b strings.Builder
	cursor := start
	for i := range n.ChildCount() {
		c := n.Child(i)
		if c == nil || c.Kind() != "template_substitution" {
			continue
		}
		b.Write(src[cursor:c.StartByte()])
		b.WriteString("{" + substitutionName(c, src) + "}")
		cursor = c.EndByte()
	}
	if cursor < end {
		b.Write(src[cursor:end])
	}
	return b.String()
}

func substitutionName(sub *sitter.Node, src []byte) string {
	text := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(Text(sub, src), "${"), "}"))
	if i := strings.IndexAny(text, "(["); i >= 0 {
		text = text[:i]
	}
	text = strings.ReplaceAll(text, "?.", ".")
	if i := strings.LastIndex(text, "."); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSpace(text)
	if text == "" || !isIdentifier(text) {
		return "param"
	}
	return text
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if r == '_' || r == '$' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return s != ""
}

// CalleeName returns the dotted callee of a call expression, e.g. "axios.post",
// with optional chaining normalized away.
func CalleeName(call *sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	return NormalizeMember(Text(fn, src))
}

// NormalizeMember strips whitespace and optional-chaining markers from a
// member expression text.
func NormalizeMember(s string) string {
	s = strings.ReplaceAll(s, "?.", ".")
	return strings.Join(strings.Fields(s), "")
}

// Args returns the argument expressions of a call expression.
func Args(call *sitter.Node) []*sitter.Node {
	return NamedChildren(call.ChildByFieldName("arguments"))
}

// ObjectProperty returns the value of key in an object literal. A shorthand
// property returns the identifier itself.
func ObjectProperty(obj *sitter.Node, src []byte, key string) *sitter.Node {
	if obj == nil || obj.Kind() != "object" {
		return nil
	}
	for _, c := range NamedChildren(obj) {
		switch c.Kind() {
		case "pair":
			if PropertyKey(c.ChildByFieldName("key"), src) == key {
				return c.ChildByFieldName("value")
			}
		case "shorthand_property_identifier":
			if Text(c, src) == key {
				return c
			}
		}
	}
	return nil
}

// PropertyKey returns the name of an object key node.
func PropertyKey(k *sitter.Node, src []byte) string {
	if k == nil {
		return ""
	}
	if v, ok := StringValue(k, src); ok {
		return v
	}
	return Text(k, src)
}

// ObjectHasKey reports whether an object literal, or any object nested in it,
// has a property named key (case-insensitive).
func ObjectHasKey(obj *sitter.Node, src []byte, key string) bool {
	found := false
	Walk(obj, func(n *sitter.Node) bool {
		if found {
			return false
		}
		switch n.Kind() {
		case "pair":
			if strings.EqualFold(PropertyKey(n.ChildByFieldName("key"), src), key) {
				found = true
			}
		case "shorthand_property_identifier":
			if strings.EqualFold(Text(n, src), key) {
				found = true
			}
		}
		return true
	})
	return found
}

var functionKinds = map[string]bool{
	"function_declaration":           true,
	"generator_function_declaration": true,
	"function_expression":            true,
	"function":                       true,
	"generator_function":             true,
	"arrow_function":                 true,
	"method_definition":              true,
}

// IsFunction reports whether n is a function-like node.
func IsFunction(n *sitter.Node) bool {
	return n != nil && functionKinds[n.Kind()]
}

// FunctionName returns the declared name of a function-like node: its own
// name, or the variable, property or assignment target it is bound to.
// Anonymous functions passed as arguments have no name.
func FunctionName(fn *sitter.Node, src []byte) string {
	switch fn.Kind() {
	case "function_declaration", "generator_function_declaration":
		return Text(fn.ChildByFieldName("name"), src)
	case "method_definition":
		name := Text(fn.ChildByFieldName("name"), src)
		if cls := enclosingClass(fn); cls != nil {
			if cn := Text(cls.ChildByFieldName("name"), src); cn != "" {
				return cn + "." + name
			}
		}
		return name
	}

	if name := Text(fn.ChildByFieldName("name"), src); name != "" {
		return name
	}
	p := fn.Parent()
	for p != nil && (p.Kind() == "parenthesized_expression" || p.Kind() == "as_expression" || p.Kind() == "satisfies_expression") {
		p = p.Parent()
	}
	if p == nil {
		return ""
	}
	switch p.Kind() {
	case "variable_declarator":
		return Text(p.ChildByFieldName("name"), src)
	case "pair":
		return PropertyKey(p.ChildByFieldName("key"), src)
	case "assignment_expression":
		return NormalizeMember(Text(p.ChildByFieldName("left"), src))
	case "public_field_definition", "field_definition":
		return Text(p.ChildByFieldName("name"), src)
	case "arguments":
		// Wrapped declarations: const Button = forwardRef((props, ref) => ...).
		if call := p.Parent(); call != nil && componentWrappers[CalleeName(call, src)] {
			if gp := call.Parent(); gp != nil && gp.Kind() == "variable_declarator" {
				return Text(gp.ChildByFieldName("name"), src)
			}
		}
	}
	return ""
}

var componentWrappers = map[string]bool{
	"memo":             true,
	"React.memo":       true,
	"forwardRef":       true,
	"React.forwardRef": true,
	"observer":         true,
}

func enclosingClass(n *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if k := p.Kind(); k == "class_declaration" || k == "class" || k == "abstract_class_declaration" {
			return p
		}
	}
	return nil
}

// ContainingFunction returns the name of the nearest named function that
// encloses n, or facts.Unknown when n is at module scope or only inside
// anonymous callbacks.
func ContainingFunction(n *sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if !IsFunction(p) {
			continue
		}
		if name := FunctionName(p, src); name != "" {
			return name
		}
	}
	return facts.Unknown
}

// EnclosingFunction returns the nearest named function node enclosing n.
func EnclosingFunction(n *sitter.Node, src []byte) (*sitter.Node, string) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if !IsFunction(p) {
			continue
		}
		if name := FunctionName(p, src); name != "" {
			return p, name
		}
	}
	return nil, ""
}

// IsPascalCase reports whether name looks like a component or type name.
func IsPascalCase(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)
	return unicode.IsUpper(r[0]) && isIdentifier(name)
}

// IsHookName reports whether name follows the React hook convention.
func IsHookName(name string) bool {
	if len(name) < 4 || !strings.HasPrefix(name, "use") {
		return false
	}
	r := []rune(name)
	return unicode.IsUpper(r[3])
}

// IsJSX reports whether n is a JSX element.
func IsJSX(n *sitter.Node) bool {
	k := n.Kind()
	return k == "jsx_element" || k == "jsx_self_closing_element"
}

// ContainsJSX reports whether n renders any JSX.
func ContainsJSX(n *sitter.Node) bool {
	found := false
	Walk(n, func(c *sitter.Node) bool {
		if found {
			return false
		}
		if IsJSX(c) || c.Kind() == "jsx_fragment" {
			found = true
			return false
		}
		return true
	})
	return found
}

// JSXName returns the tag name of a JSX element ("" for fragments).
func JSXName(el *sitter.Node, src []byte) string {
	switch el.Kind() {
	case "jsx_element":
		if open := el.ChildByFieldName("open_tag"); open != nil {
			return Text(open.ChildByFieldName("name"), src)
		}
	case "jsx_self_closing_element", "jsx_opening_element":
		return Text(el.ChildByFieldName("name"), src)
	}
	return ""
}

// JSXAttribute returns the value node of the named attribute of a JSX element.
// For {expr} values the inner expression is returned.
func JSXAttribute(el *sitter.Node, src []byte, name string) *sitter.Node {
	tag := el
	if el.Kind() == "jsx_element" {
		tag = el.ChildByFieldName("open_tag")
	}
	if tag == nil {
		return nil
	}
	for _, attr := range NamedChildren(tag) {
		if attr.Kind() != "jsx_attribute" {
			continue
		}
		kids := NamedChildren(attr)
		if len(kids) == 0 || Text(kids[0], src) != name {
			continue
		}
		if len(kids) < 2 {
			return kids[0]
		}
		v := kids[1]
		if v.Kind() == "jsx_expression" {
			if inner := NamedChildren(v); len(inner) > 0 {
				return inner[0]
			}
		}
		return v
	}
	return nil
}

// Imports maps local binding names to the module specifiers they were
// imported from.
func Imports(root *sitter.Node, src []byte) map[string]string {
	out := make(map[string]string)
	for _, stmt := range NamedChildren(root) {
		if stmt.Kind() != "import_statement" {
			continue
		}
		spec, ok := StringValue(stmt.ChildByFieldName("source"), src)
		if !ok {
			continue
		}
		clause := ChildByKind(stmt, "import_clause")
		for _, c := range NamedChildren(clause) {
			switch c.Kind() {
			case "identifier":
				out[Text(c, src)] = spec
			case "namespace_import":
				if id := ChildByKind(c, "identifier"); id != nil {
					out[Text(id, src)] = spec
				}
			case "named_imports":
				for _, s := range NamedChildren(c) {
					if s.Kind() != "import_specifier" {
						continue
					}
					local := s.ChildByFieldName("alias")
					if local == nil {
						local = s.ChildByFieldName("name")
					}
					out[Text(local, src)] = spec
				}
			}
		}
	}
	return out
}

// IsExported reports whether a declaration node is directly exported.
func IsExported(decl *sitter.Node) bool {
	for p := decl.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "export_statement":
			return true
		case "program":
			return false
		case "lexical_declaration", "variable_declaration", "variable_declarator":
			continue
		default:
			return false
		}
	}
	return false
}
