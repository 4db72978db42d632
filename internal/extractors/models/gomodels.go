package models

import (
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/dejo1307/frontdoc/internal/facts"
)

var reCreateTable = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?` + "[`\"']?" + `(?:\w+\.)?(\w+)`)

// modelTags are the struct tag keys that mark a Go struct as a data model.
var modelTags = []string{"json", "db", "gorm", "bson", "bun", "sql", "dynamodbav"}

// goModels walks a Go file for tagged structs and CREATE TABLE statements
// in string literals.
func goModels(rel string, src []byte) ([]facts.ModelInfo, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, rel, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	var result []facts.ModelInfo
	ast.Inspect(f, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.TypeSpec:
			st, ok := node.Type.(*ast.StructType)
			if !ok || !node.Name.IsExported() || !isTaggedStruct(st) {
				return true
			}
			pos := fset.Position(node.Pos())
			result = append(result, model(rel, pos.Line, pos.Column, node.Name.Name, KindStruct, SourceGo, structFields(st)))

		case *ast.BasicLit:
			if node.Kind != token.STRING {
				return true
			}
			val, err := strconv.Unquote(node.Value)
			if err != nil {
				return true
			}
			result = append(result, tableModels(rel, val, fset.Position(node.Pos()).Line)...)
		}
		return true
	})
	return result, nil
}

// isTaggedStruct reports whether any field carries a serialization or
// storage tag.
func isTaggedStruct(st *ast.StructType) bool {
	if st.Fields == nil {
		return false
	}
	for _, field := range st.Fields.List {
		if field.Tag == nil {
			continue
		}
		tag, err := strconv.Unquote(field.Tag.Value)
		if err != nil {
			continue
		}
		for _, key := range modelTags {
			if _, ok := reflect.StructTag(tag).Lookup(key); ok {
				return true
			}
		}
	}
	return false
}

// structFields returns the exported field names of a struct. Embedded
// types are listed by type name.
func structFields(st *ast.StructType) []string {
	var out []string
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			if name := typeExprToString(field.Type); name != "" {
				out = append(out, name)
			}
			continue
		}
		for _, n := range field.Names {
			if n.IsExported() {
				out = append(out, n.Name)
			}
		}
	}
	return out
}

// typeExprToString converts a type expression to a string representation.
func typeExprToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return typeExprToString(t.X)
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return x.Name + "." + t.Sel.Name
		}
	case *ast.IndexExpr:
		return typeExprToString(t.X)
	}
	return ""
}

// tableModels returns the tables created in a SQL text. line is the line
// the text starts on.
func tableModels(rel, sql string, line int) []facts.ModelInfo {
	var out []facts.ModelInfo
	seen := make(map[string]bool)
	for _, m := range reCreateTable.FindAllStringSubmatchIndex(sql, -1) {
		name := sql[m[2]:m[3]]
		if isSQLNoise(name) || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		l := line + strings.Count(sql[:m[0]], "\n")
		col := m[0] - strings.LastIndex(sql[:m[0]], "\n")
		out = append(out, model(rel, l, col, name, KindTable, SourceSQL, tableColumns(sql[m[1]:])))
	}
	return out
}

// constraintWords start table constraints rather than column definitions.
var constraintWords = map[string]bool{
	"PRIMARY": true, "FOREIGN": true, "UNIQUE": true, "CONSTRAINT": true,
	"KEY": true, "INDEX": true, "CHECK": true, "EXCLUDE": true,
}

// tableColumns reads the column names of the parenthesized definition list
// that follows a CREATE TABLE name.
func tableColumns(rest string) []string {
	open := strings.IndexByte(rest, '(')
	if open < 0 || strings.Trim(rest[:open], " \t\r\n`\"'") != "" {
		return nil
	}

	var cols []string
	depth, start := 0, open+1
	add := func(def string) {
		fields := strings.Fields(def)
		if len(fields) == 0 || constraintWords[strings.ToUpper(fields[0])] {
			return
		}
		cols = append(cols, strings.Trim(fields[0], "`\"'[]"))
	}
	for i := open; i < len(rest); i++ {
		switch rest[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				add(rest[start:i])
				return cols
			}
		case ',':
			if depth == 1 {
				add(rest[start:i])
				start = i + 1
			}
		}
	}
	return cols
}

// isSQLNoise returns true for common SQL keywords that are not table names.
func isSQLNoise(name string) bool {
	switch strings.ToLower(name) {
	case "select", "from", "where", "set", "into", "values", "table",
		"index", "view", "trigger", "procedure", "function", "if":
		return true
	}
	return false
}
