// Package sdl renders an executable schema in GraphQL schema definition
// language. The runtime type map is translated into a gqlparser schema
// document and printed through its formatter, so the output follows the
// conventional SDL layout.
package sdl

import (
	"sort"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// builtinScalars ship with every schema and are not re-declared.
var builtinScalars = map[string]bool{
	"String":  true,
	"Int":     true,
	"Float":   true,
	"Boolean": true,
	"ID":      true,
}

// Print renders the schema as SDL.
func Print(schema graphql.Schema) string {
	doc := document(schema)
	var sb strings.Builder
	f := formatter.NewFormatter(&sb)
	f.FormatSchemaDocument(doc)
	return sb.String()
}

func document(schema graphql.Schema) *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}

	root := &ast.SchemaDefinition{}
	if q := schema.QueryType(); q != nil {
		root.OperationTypes = append(root.OperationTypes, &ast.OperationTypeDefinition{
			Operation: ast.Query, Type: q.Name(),
		})
	}
	if m := schema.MutationType(); m != nil {
		root.OperationTypes = append(root.OperationTypes, &ast.OperationTypeDefinition{
			Operation: ast.Mutation, Type: m.Name(),
		})
	}
	doc.Schema = append(doc.Schema, root)

	names := make([]string, 0, len(schema.TypeMap()))
	for name := range schema.TypeMap() {
		if strings.HasPrefix(name, "__") || builtinScalars[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if def := definition(schema.TypeMap()[name]); def != nil {
			doc.Definitions = append(doc.Definitions, def)
		}
	}

	dirs := append([]*graphql.Directive(nil), schema.Directives()...)
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	for _, d := range dirs {
		if isBuiltinDirective(d.Name) {
			continue
		}
		doc.Directives = append(doc.Directives, directiveDefinition(d))
	}
	return doc
}

func isBuiltinDirective(name string) bool {
	switch name {
	case "include", "skip", "deprecated":
		return true
	}
	return false
}

func definition(t graphql.Type) *ast.Definition {
	switch t := t.(type) {
	case *graphql.Object:
		def := &ast.Definition{Kind: ast.Object, Name: t.Name(), Description: t.Description()}
		for _, name := range sortedFieldNames(t.Fields()) {
			f := t.Fields()[name]
			fd := &ast.FieldDefinition{
				Name:        f.Name,
				Description: f.Description,
				Type:        typeRef(f.Type),
			}
			args := append([]*graphql.Argument(nil), f.Args...)
			sort.Slice(args, func(i, j int) bool { return args[i].Name() < args[j].Name() })
			for _, a := range args {
				fd.Arguments = append(fd.Arguments, &ast.ArgumentDefinition{
					Name:        a.Name(),
					Description: a.Description(),
					Type:        typeRef(a.Type),
				})
			}
			def.Fields = append(def.Fields, fd)
		}
		return def
	case *graphql.InputObject:
		def := &ast.Definition{Kind: ast.InputObject, Name: t.Name(), Description: t.Description()}
		fields := t.Fields()
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			f := fields[name]
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:        f.Name(),
				Description: f.Description(),
				Type:        typeRef(f.Type),
			})
		}
		return def
	case *graphql.Enum:
		def := &ast.Definition{Kind: ast.Enum, Name: t.Name(), Description: t.Description()}
		for _, v := range t.Values() {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
				Name:        v.Name,
				Description: v.Description,
			})
		}
		return def
	case *graphql.Scalar:
		return &ast.Definition{Kind: ast.Scalar, Name: t.Name(), Description: t.Description()}
	case *graphql.Interface:
		def := &ast.Definition{Kind: ast.Interface, Name: t.Name(), Description: t.Description()}
		for _, name := range sortedFieldNames(t.Fields()) {
			f := t.Fields()[name]
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:        f.Name,
				Description: f.Description,
				Type:        typeRef(f.Type),
			})
		}
		return def
	case *graphql.Union:
		def := &ast.Definition{Kind: ast.Union, Name: t.Name(), Description: t.Description()}
		for _, m := range t.Types() {
			def.Types = append(def.Types, m.Name())
		}
		return def
	default:
		return nil
	}
}

func directiveDefinition(d *graphql.Directive) *ast.DirectiveDefinition {
	def := &ast.DirectiveDefinition{
		Name:        d.Name,
		Description: d.Description,
		// The formatter reads Position.Src to decide whether a definition
		// is built-in; synthesized definitions need a non-nil stand-in.
		Position: &ast.Position{Src: &ast.Source{}},
	}
	for _, a := range d.Args {
		def.Arguments = append(def.Arguments, &ast.ArgumentDefinition{
			Name:        a.Name(),
			Description: a.Description(),
			Type:        typeRef(a.Type),
		})
	}
	for _, loc := range d.Locations {
		def.Locations = append(def.Locations, ast.DirectiveLocation(loc))
	}
	return def
}

// typeRef translates a runtime type reference, unwrapping list and non-null
// modifiers.
func typeRef(t graphql.Type) *ast.Type {
	switch t := t.(type) {
	case *graphql.NonNull:
		inner := typeRef(t.OfType)
		inner.NonNull = true
		return inner
	case *graphql.List:
		return ast.ListType(typeRef(t.OfType), nil)
	default:
		return ast.NamedType(t.Name(), nil)
	}
}

func sortedFieldNames(fields graphql.FieldDefinitionMap) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
