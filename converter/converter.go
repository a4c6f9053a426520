// Package converter maps model attribute descriptors to GraphQL field
// descriptors: scalar fields to scalar types, enum fields to named schema
// enums, and relation fields to lazy references resolved through the
// registry at schema-build time so that mutually referencing models can be
// synthesized in any order.
//
// Attribute kinds with no conversion rule are skipped, never raised: an
// unconvertible field simply does not appear in the schema. The policy is
// uniform across output and input conversion.
package converter

import (
	"context"

	"github.com/go-openapi/inflect"
	"github.com/graphql-go/graphql"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/model"
	"github.com/modelgraph/modelgraph/registry"
)

// Options bound the converted field set. Only and Exclude are alternative
// restriction strategies; Include adds extras on top of either.
type Options struct {
	Only    []string
	Exclude []string
	Include []string
}

// Expose reports whether a field named name survives the inclusion policy.
// An explicit exclude always wins; include rescues fields dropped by an
// only-restriction.
func (o Options) Expose(name string) bool {
	if contains(o.Exclude, name) {
		return false
	}
	if contains(o.Include, name) {
		return true
	}
	if len(o.Only) > 0 && !contains(o.Only, name) {
		return false
	}
	return true
}

func contains(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

// OutputFields converts the exposed attributes of a model into GraphQL
// object fields. Relation targets resolve against the registry when the
// returned mapping is consumed (graphql-go evaluates FieldsThunk on first
// schema use), so the call sites wrap this in a thunk. Relations whose
// target type is not registered by then are skipped.
func OutputFields(m model.Model, reg *registry.Registry, opts Options) graphql.Fields {
	fields := graphql.Fields{}
	for _, f := range m.Fields() {
		if !opts.Expose(f.Name) {
			continue
		}
		name := FieldName(f.Name)
		switch {
		case f.Kind == model.KindForeignKey:
			out := relatedOutput(f, reg)
			if out == nil {
				continue
			}
			fields[name] = &graphql.Field{
				Type:        out,
				Description: f.Name + " relation",
				Resolve:     resolveToOne(f),
			}
		case f.Kind.IsToMany():
			out := relatedOutput(f, reg)
			if out == nil {
				continue
			}
			fields[name] = &graphql.Field{
				Type:        graphql.NewList(graphql.NewNonNull(out)),
				Description: f.Name + " relation",
				Resolve:     resolveToMany(f),
			}
		default:
			scalar := ScalarFor(f, m, reg)
			if scalar == nil {
				continue
			}
			var out graphql.Output = scalar
			if !f.Nullable {
				out = graphql.NewNonNull(scalar)
			}
			fields[name] = &graphql.Field{
				Type:    out,
				Resolve: resolveAttr(f.Name),
			}
		}
	}
	return fields
}

// InputFields converts the exposed attributes of a model into GraphQL input
// object fields for the given mode. Create inputs omit the primary key and
// keep required fields non-null; update inputs require the primary key and
// relax everything else; delete inputs carry only the primary key.
// Names listed in nested take the related model's create-input type instead
// of a key reference, enabling nested sub-object payloads.
func InputFields(m model.Model, reg *registry.Registry, opts Options, mode registry.Mode, nested []string) graphql.InputObjectConfigFieldMap {
	fields := graphql.InputObjectConfigFieldMap{}
	pk := model.PKField(m)
	if mode == registry.ModeUpdate || mode == registry.ModeDelete {
		fields[FieldName(pk.Name)] = &graphql.InputObjectFieldConfig{
			Type:        graphql.NewNonNull(graphql.ID),
			Description: "Record unique identification field",
		}
	}
	if mode == registry.ModeDelete {
		return fields
	}
	for _, f := range m.Fields() {
		if f.Kind == model.KindID || !opts.Expose(f.Name) {
			continue
		}
		name := FieldName(f.Name)
		var in graphql.Input
		switch {
		case f.Kind == model.KindForeignKey:
			if contains(nested, f.Name) {
				in = relatedInput(f, reg)
			}
			if in == nil {
				in = graphql.ID
			}
		case f.Kind == model.KindManyToMany:
			var elem graphql.Input = graphql.ID
			if contains(nested, f.Name) {
				if nestedIn := relatedInput(f, reg); nestedIn != nil {
					elem = nestedIn
				}
			}
			in = graphql.NewList(graphql.NewNonNull(elem))
		case f.Kind == model.KindOneToMany:
			continue // reverse relations are not writable
		default:
			scalar := ScalarFor(f, m, reg)
			if scalar == nil {
				continue
			}
			in = scalar
		}
		if mode == registry.ModeCreate && f.Required() && f.Kind != model.KindManyToMany {
			in = graphql.NewNonNull(in)
		}
		fields[name] = &graphql.InputObjectFieldConfig{Type: in}
	}
	return fields
}

// ScalarFor returns the schema scalar (or enum) for a non-relation field,
// or nil when the kind has no conversion rule. Enum fields synthesize one
// named enum per (model, field), registered so repeated conversions share it.
func ScalarFor(f model.Field, m model.Model, reg *registry.Registry) graphql.Type {
	switch f.Kind {
	case model.KindID:
		return graphql.ID
	case model.KindString:
		return graphql.String
	case model.KindInt:
		return graphql.Int
	case model.KindFloat:
		return graphql.Float
	case model.KindBool:
		return graphql.Boolean
	case model.KindTime:
		return graphql.DateTime
	case model.KindUUID:
		return UUID
	case model.KindBytes:
		return Binary
	case model.KindEnum:
		key := registry.Key(m.Name()+"_"+f.Name+"_enum", registry.ModeNone)
		if existing := reg.EnumFor(key); existing != nil {
			return existing
		}
		values := graphql.EnumValueConfigMap{}
		for _, v := range f.Values {
			values[enumValueName(v)] = &graphql.EnumValueConfig{Value: v}
		}
		enum := graphql.NewEnum(graphql.EnumConfig{
			Name:   inflect.Camelize(m.Name() + "_" + f.Name + "_enum"),
			Values: values,
		})
		return reg.RegisterEnum(key, enum)
	}
	return nil
}

// FieldName maps a model attribute name to its schema field name.
func FieldName(attr string) string {
	return inflect.CamelizeDownFirst(attr)
}

// relatedOutput resolves the registered output type of a relation target.
func relatedOutput(f model.Field, reg *registry.Registry) *graphql.Object {
	rel := f.RelModel()
	if rel == nil {
		return nil
	}
	t := reg.TypeForModel(rel, registry.ModeNone)
	if t == nil {
		return nil
	}
	obj, _ := t.GraphQL().(*graphql.Object)
	return obj
}

// relatedInput resolves the registered create-input type of a relation target.
func relatedInput(f model.Field, reg *registry.Registry) graphql.Input {
	rel := f.RelModel()
	if rel == nil {
		return nil
	}
	t := reg.TypeForModel(rel, registry.ModeCreate)
	if t == nil {
		return nil
	}
	in, _ := t.GraphQL().(*graphql.InputObject)
	if in == nil {
		return nil
	}
	return in
}

// resolveAttr returns the default attribute resolver: read the named value
// from the source record or payload map.
func resolveAttr(name string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		switch src := p.Source.(type) {
		case model.Instance:
			return src.Get(name), nil
		case map[string]any:
			return src[name], nil
		}
		return nil, nil
	}
}

// resolveToOne fetches the related record referenced by a foreign key.
// A dangling or absent key resolves to nil, not an error.
func resolveToOne(f model.Field) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		src, ok := p.Source.(model.Instance)
		if !ok {
			return nil, nil
		}
		raw := src.Get(f.Name)
		if raw == nil {
			return nil, nil
		}
		if inst, ok := raw.(model.Instance); ok {
			return inst, nil
		}
		rel := f.RelModel()
		if rel == nil {
			return nil, nil
		}
		inst, err := rel.Objects().QuerySet().Get(resolveCtx(p), raw)
		if err != nil {
			if modelgraph.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return inst, nil
	}
}

// resolveToMany lists related records, preferring the parent's already
// loadable related accessor and falling back to a query scoped by the
// relation-derived extra filters.
func resolveToMany(f model.Field) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		src, ok := p.Source.(model.Instance)
		if !ok {
			return []model.Instance{}, nil
		}
		ctx := resolveCtx(p)
		if qs, ok := src.Related(f.Name); ok {
			return qs.All(ctx)
		}
		rel := f.RelModel()
		if rel == nil {
			return []model.Instance{}, nil
		}
		preds := model.ExtraFilters(src, rel)
		return rel.Objects().QuerySet().Filter(preds...).All(ctx)
	}
}

func resolveCtx(p graphql.ResolveParams) context.Context {
	if p.Context != nil {
		return p.Context
	}
	return context.Background()
}
