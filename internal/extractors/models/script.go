package models

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dejo1307/frontdoc/internal/extractors/graphql"
	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// modelSuffixes mark exported interfaces and type aliases as models.
var modelSuffixes = []string{"Model", "Entity", "DTO", "Dto", "Schema", "Input", "Response", "Request"}

func hasModelSuffix(name string) bool {
	for _, s := range modelSuffixes {
		if strings.HasSuffix(name, s) && len(name) > len(s) {
			return true
		}
	}
	return false
}

// classKinds maps model class decorators to kind and source.
var classKinds = map[string][2]string{
	"Entity":     {KindEntity, SourceTypeORM},
	"ViewEntity": {KindEntity, SourceTypeORM},
	"Table":      {KindEntity, SourceSequelize},
	"ObjectType": {KindGraphQLType, SourceGraphQL},
	"InputType":  {KindGraphQLType, SourceGraphQL},
	"Schema":     {KindSchema, SourceMongoose},
}

// scriptModels returns the models of a JS/TS file.
func scriptModels(f *jsast.File) []facts.ModelInfo {
	schemas := mongooseSchemas(f)

	var out []facts.ModelInfo
	jsast.Walk(f.Root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "interface_declaration":
			name := f.Text(n.ChildByFieldName("name"))
			if jsast.IsExported(n) && hasModelSuffix(name) {
				out = append(out, model(f.Path, jsast.Line(n), jsast.Col(n), name, KindInterface, SourceTypeScript,
					memberNames(n.ChildByFieldName("body"), f.Src)))
			}
			return false

		case "type_alias_declaration":
			name := f.Text(n.ChildByFieldName("name"))
			if jsast.IsExported(n) && hasModelSuffix(name) {
				out = append(out, model(f.Path, jsast.Line(n), jsast.Col(n), name, KindType, SourceTypeScript,
					memberNames(n.ChildByFieldName("value"), f.Src)))
			}
			return false

		case "class_declaration", "abstract_class_declaration":
			name := f.Text(n.ChildByFieldName("name"))
			for _, d := range decoratorNames(n, f.Src) {
				if k, ok := classKinds[d]; ok {
					out = append(out, model(f.Path, jsast.Line(n), jsast.Col(n), name, k[0], k[1],
						classFields(n.ChildByFieldName("body"), f.Src)))
					break
				}
			}
			return false

		case "call_expression":
			if m, ok := mongooseModel(f, n, schemas); ok {
				out = append(out, m)
			}

		case "variable_declarator":
			if m, ok := zodSchema(f, n); ok {
				out = append(out, m)
			}
		}
		return true
	})
	return append(out, typeDefModels(f)...)
}

// memberNames returns the property names of an interface body or object type.
func memberNames(body *sitter.Node, src []byte) []string {
	if body == nil {
		return nil
	}
	var out []string
	for _, m := range jsast.NamedChildren(body) {
		if m.Kind() == "property_signature" || m.Kind() == "method_signature" {
			out = append(out, jsast.PropertyKey(m.ChildByFieldName("name"), src))
		}
	}
	return out
}

// classFields returns the declared field names of a class body.
func classFields(body *sitter.Node, src []byte) []string {
	var out []string
	for _, m := range jsast.NamedChildren(body) {
		if m.Kind() == "public_field_definition" || m.Kind() == "field_definition" {
			name := m.ChildByFieldName("name")
			if name == nil {
				name = m.ChildByFieldName("property")
			}
			out = append(out, jsast.PropertyKey(name, src))
		}
	}
	return out
}

// decoratorNames returns the decorator names of a class, including those
// written before an enclosing export.
func decoratorNames(cls *sitter.Node, src []byte) []string {
	var out []string
	collect := func(n *sitter.Node) {
		for i := range n.ChildCount() {
			c := n.Child(i)
			if c == nil || c.Kind() != "decorator" {
				continue
			}
			inner := jsast.NamedChildren(c)
			if len(inner) == 0 {
				continue
			}
			if inner[0].Kind() == "call_expression" {
				out = append(out, jsast.CalleeName(inner[0], src))
			} else {
				out = append(out, jsast.NormalizeMember(jsast.Text(inner[0], src)))
			}
		}
	}
	if p := cls.Parent(); p != nil && p.Kind() == "export_statement" {
		collect(p)
	}
	collect(cls)
	return out
}

// mongooseSchemas maps variables bound to new Schema({...}) to their field names.
func mongooseSchemas(f *jsast.File) map[string][]string {
	out := map[string][]string{}
	jsast.Walk(f.Root, func(n *sitter.Node) bool {
		if n.Kind() != "variable_declarator" {
			return true
		}
		v := n.ChildByFieldName("value")
		if v == nil || v.Kind() != "new_expression" {
			return true
		}
		ctor := jsast.NormalizeMember(f.Text(v.ChildByFieldName("constructor")))
		if ctor != "Schema" && ctor != "mongoose.Schema" {
			return true
		}
		if args := jsast.NamedChildren(v.ChildByFieldName("arguments")); len(args) > 0 {
			out[f.Text(n.ChildByFieldName("name"))] = objectKeys(args[0], f.Src)
		}
		return true
	})
	return out
}

// mongooseModel recognizes model("User", userSchema) and
// mongoose.model<IUser>("User", userSchema).
func mongooseModel(f *jsast.File, call *sitter.Node, schemas map[string][]string) (facts.ModelInfo, bool) {
	callee := jsast.CalleeName(call, f.Src)
	if callee != "model" && callee != "mongoose.model" && callee != "connection.model" {
		return facts.ModelInfo{}, false
	}
	args := jsast.Args(call)
	if len(args) < 2 {
		return facts.ModelInfo{}, false
	}
	name, ok := jsast.StringValue(args[0], f.Src)
	if !ok || name == "" {
		return facts.ModelInfo{}, false
	}
	var fields []string
	switch s := args[1]; s.Kind() {
	case "identifier":
		fields = schemas[f.Text(s)]
	case "new_expression":
		if a := jsast.NamedChildren(s.ChildByFieldName("arguments")); len(a) > 0 {
			fields = objectKeys(a[0], f.Src)
		}
	}
	return model(f.Path, jsast.Line(call), jsast.Col(call), name, KindSchema, SourceMongoose, fields), true
}

// zodSchema recognizes export const UserSchema = z.object({...}).
func zodSchema(f *jsast.File, decl *sitter.Node) (facts.ModelInfo, bool) {
	name := f.Text(decl.ChildByFieldName("name"))
	v := decl.ChildByFieldName("value")
	if v == nil || v.Kind() != "call_expression" || !strings.HasSuffix(name, "Schema") || !jsast.IsExported(decl) {
		return facts.ModelInfo{}, false
	}
	if jsast.CalleeName(v, f.Src) != "z.object" {
		return facts.ModelInfo{}, false
	}
	var fields []string
	if args := jsast.Args(v); len(args) > 0 {
		fields = objectKeys(args[0], f.Src)
	}
	return model(f.Path, jsast.Line(decl), jsast.Col(decl), name, KindSchema, SourceZod, fields), true
}

func objectKeys(obj *sitter.Node, src []byte) []string {
	if obj == nil || obj.Kind() != "object" {
		return nil
	}
	var out []string
	for _, p := range jsast.NamedChildren(obj) {
		switch p.Kind() {
		case "pair":
			out = append(out, jsast.PropertyKey(p.ChildByFieldName("key"), src))
		case "shorthand_property_identifier":
			out = append(out, jsast.Text(p, src))
		}
	}
	return out
}

// typeDefModels returns the SDL types of gql templates, e.g. Apollo Server
// typeDefs. Templates holding operations are left to the graphql analyzer.
func typeDefModels(f *jsast.File) []facts.ModelInfo {
	var out []facts.ModelInfo
	for _, t := range graphql.Templates(f) {
		ms, err := schemaModels(f.Path, t.Text, t.Line, t.Col)
		if err != nil {
			continue
		}
		out = append(out, ms...)
	}
	return out
}
