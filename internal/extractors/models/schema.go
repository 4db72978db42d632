package models

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/dejo1307/frontdoc/internal/facts"
)

// rootTypes hold operations, not data.
var rootTypes = map[string]bool{
	"Query":        true,
	"Mutation":     true,
	"Subscription": true,
}

// schemaModels returns the object, input, interface and enum types of an SDL
// document. Line and column offsets locate the document within its file.
func schemaModels(file, doc string, line, col int) ([]facts.ModelInfo, error) {
	sd, err := parser.ParseSchema(&ast.Source{Name: file, Input: doc})
	if err != nil {
		return nil, err
	}

	var out []facts.ModelInfo
	for _, def := range sd.Definitions {
		switch def.Kind {
		case ast.Object, ast.InputObject, ast.Interface, ast.Enum:
		default:
			continue
		}
		if rootTypes[def.Name] {
			continue
		}

		l, c := line, col
		if def.Position != nil {
			l, c = line+def.Position.Line-1, def.Position.Column
			if def.Position.Line == 1 {
				c += col - 1
			}
		}

		var fields []string
		for _, fd := range def.Fields {
			fields = append(fields, fd.Name)
		}
		for _, ev := range def.EnumValues {
			fields = append(fields, ev.Name)
		}
		out = append(out, model(file, l, c, def.Name, KindGraphQLType, SourceGraphQL, fields))
	}
	return out, nil
}
