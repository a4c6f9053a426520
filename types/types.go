// Package types synthesizes GraphQL schema types from models: output object
// types, input object types parameterized by mutation mode, and list object
// types carrying a results container plus a total count.
//
// Construction is two-phase: a factory validates its options, creates the
// schema type with a lazy field set, and registers it; relation references
// inside the field set resolve through the registry only when graphql-go
// evaluates the field thunk at schema-build time. This breaks
// definition-order cycles between mutually referencing models.
package types

import (
	"fmt"

	"github.com/go-openapi/inflect"
	"github.com/graphql-go/graphql"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/converter"
	"github.com/modelgraph/modelgraph/filters"
	"github.com/modelgraph/modelgraph/model"
	"github.com/modelgraph/modelgraph/pagination"
	"github.com/modelgraph/modelgraph/registry"
	"github.com/modelgraph/modelgraph/settings"
)

// Options is the immutable declarative bundle a synthesized type is built
// from. It is owned by the type after construction.
type Options struct {
	// Model is the bound model. Required.
	Model model.Model
	// Registry resolves forward references and records the type.
	// Defaults to the process-wide registry.
	Registry *registry.Registry
	// Name overrides the schema type name.
	Name string
	// Description overrides the schema type description.
	Description string
	// SkipRegistry opts the type out of registration.
	SkipRegistry bool

	// Only restricts the exposed fields to the named subset.
	Only []string
	// Exclude removes the named fields from the otherwise-full set.
	// An exclude always wins over Only on overlap.
	Exclude []string
	// Include adds extra named fields on top of a restrictive pass.
	Include []string

	// FilterFields names the fields filterable on list fields bound to
	// this type.
	FilterFields []string
	// FilterSet supplies a custom filter set; it is adapted to carry the
	// default bindings.
	FilterSet filters.FilterSet

	// Pagination selects the list type's results container strategy.
	// Nil falls back to the DefaultPaginationClass setting, then to a
	// plain list container.
	Pagination pagination.Pagination
	// ResultsFieldName names the results member of a list type.
	// Defaults to "results".
	ResultsFieldName string

	// Nested names the input fields that accept nested sub-object
	// payloads instead of key references.
	Nested []string
	// ExtraInputFields are ad hoc input fields concatenated onto the
	// converted set, in declaration order. Later entries win on name
	// collision, mirroring an override in a more-derived declaration.
	ExtraInputFields []graphql.InputObjectConfigFieldMap
}

func (o *Options) normalize(component string) error {
	if o.Model == nil {
		return modelgraph.NewConfigError(component, fmt.Errorf("a valid model is required, received nil"))
	}
	if o.Registry == nil {
		o.Registry = registry.Default()
	}
	if o.ResultsFieldName == "" {
		o.ResultsFieldName = modelgraph.DefaultResultsFieldName
	}
	return nil
}

func (o Options) converterOptions() converter.Options {
	return converter.Options{Only: o.Only, Exclude: o.Exclude, Include: o.Include}
}

// ObjectType is a synthesized output object type bound to a model.
type ObjectType struct {
	object *graphql.Object
	opts   Options
}

// NewObjectType synthesizes and registers an output object type.
func NewObjectType(opts Options) (*ObjectType, error) {
	if err := opts.normalize("types.ObjectType"); err != nil {
		return nil, err
	}
	name := opts.Name
	if name == "" {
		name = inflect.Camelize(opts.Model.Name() + "_generic_type")
	}
	desc := opts.Description
	if desc == "" {
		desc = fmt.Sprintf("Auto generated type for %s model", opts.Model.Name())
	}
	t := &ObjectType{opts: opts}
	t.object = graphql.NewObject(graphql.ObjectConfig{
		Name:        name,
		Description: desc,
		Fields: (graphql.FieldsThunk)(func() graphql.Fields {
			return converter.OutputFields(opts.Model, opts.Registry, opts.converterOptions())
		}),
	})
	if err := opts.Registry.Register(t, registry.ModeNone); err != nil {
		return nil, err
	}
	return t, nil
}

// ModelName implements registry.Type.
func (t *ObjectType) ModelName() string { return t.opts.Model.Name() }

// Registry implements registry.Type.
func (t *ObjectType) Registry() *registry.Registry { return t.opts.Registry }

// SkipRegistry implements registry.Type.
func (t *ObjectType) SkipRegistry() bool { return t.opts.SkipRegistry }

// RegistryKind implements registry.Type.
func (t *ObjectType) RegistryKind() registry.Kind { return registry.KindObject }

// GraphQL implements registry.Type.
func (t *ObjectType) GraphQL() graphql.Type { return t.object }

// Object returns the underlying schema object.
func (t *ObjectType) Object() *graphql.Object { return t.object }

// Model returns the bound model.
func (t *ObjectType) Model() model.Model { return t.opts.Model }

// Options returns the declarative bundle the type was built from.
func (t *ObjectType) Options() Options { return t.opts }

// InputObjectType is a synthesized input object type bound to a model and
// a mutation mode.
type InputObjectType struct {
	input *graphql.InputObject
	opts  Options
	mode  registry.Mode
}

// NewInputObjectType synthesizes and registers an input object type for the
// given mode. Extra input fields declared in the options are concatenated
// onto the converted set.
func NewInputObjectType(opts Options, mode registry.Mode) (*InputObjectType, error) {
	if err := opts.normalize("types.InputObjectType"); err != nil {
		return nil, err
	}
	switch mode {
	case registry.ModeCreate, registry.ModeUpdate, registry.ModeDelete:
	default:
		return nil, modelgraph.NewConfigError("types.InputObjectType",
			fmt.Errorf("input mode must be one of create, update or delete, received %q", mode))
	}
	name := opts.Name
	if name == "" {
		name = inflect.Camelize(opts.Model.Name() + "_" + string(mode) + "_generic_type")
	}
	desc := opts.Description
	if desc == "" {
		desc = fmt.Sprintf("Auto generated input type for %s model", opts.Model.Name())
	}
	t := &InputObjectType{opts: opts, mode: mode}
	t.input = graphql.NewInputObject(graphql.InputObjectConfig{
		Name:        name,
		Description: desc,
		Fields: (graphql.InputObjectConfigFieldMapThunk)(func() graphql.InputObjectConfigFieldMap {
			converted := converter.InputFields(opts.Model, opts.Registry, opts.converterOptions(), mode, opts.Nested)
			for _, extra := range opts.ExtraInputFields {
				for fname, cfg := range extra {
					converted[fname] = cfg
				}
			}
			return converted
		}),
	})
	if err := opts.Registry.Register(t, mode); err != nil {
		return nil, err
	}
	return t, nil
}

// ModelName implements registry.Type.
func (t *InputObjectType) ModelName() string { return t.opts.Model.Name() }

// Registry implements registry.Type.
func (t *InputObjectType) Registry() *registry.Registry { return t.opts.Registry }

// SkipRegistry implements registry.Type.
func (t *InputObjectType) SkipRegistry() bool { return t.opts.SkipRegistry }

// RegistryKind implements registry.Type.
func (t *InputObjectType) RegistryKind() registry.Kind { return registry.KindInput }

// GraphQL implements registry.Type.
func (t *InputObjectType) GraphQL() graphql.Type { return t.input }

// InputObject returns the underlying schema input object.
func (t *InputObjectType) InputObject() *graphql.InputObject { return t.input }

// Mode returns the mutation mode the input was synthesized for.
func (t *InputObjectType) Mode() registry.Mode { return t.mode }

// Options returns the declarative bundle the type was built from.
func (t *InputObjectType) Options() Options { return t.opts }

// ListObjectType wraps a base output type as a list result: the windowed
// results sequence under the configured field name plus a totalCount field.
type ListObjectType struct {
	object *graphql.Object
	base   *ObjectType
	opts   Options
}

// NewListObjectType synthesizes a list object type. The base output type is
// looked up in the registry and synthesized on demand when absent. List
// types are not registered themselves; only their base type is.
func NewListObjectType(opts Options) (*ListObjectType, error) {
	if err := opts.normalize("types.ListObjectType"); err != nil {
		return nil, err
	}
	base, err := baseObjectType(opts)
	if err != nil {
		return nil, err
	}
	if len(opts.FilterFields) == 0 {
		opts.FilterFields = base.Options().FilterFields
	}

	container, err := resultsContainer(base, opts)
	if err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = inflect.Camelize(opts.Model.Name() + "_list_type")
	}
	desc := opts.Description
	if desc == "" {
		desc = fmt.Sprintf("Auto generated list type for %s model", opts.Model.Name())
	}
	t := &ListObjectType{base: base, opts: opts}
	t.object = graphql.NewObject(graphql.ObjectConfig{
		Name:        name,
		Description: desc,
		Fields: graphql.Fields{
			opts.ResultsFieldName: container,
			"totalCount": {
				Type:        graphql.Int,
				Description: "Total count of matching records",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if lr, ok := p.Source.(*modelgraph.ListResult); ok {
						return lr.Count, nil
					}
					return nil, nil
				},
			},
		},
	})
	return t, nil
}

// Object returns the underlying schema object.
func (t *ListObjectType) Object() *graphql.Object { return t.object }

// BaseType returns the wrapped output type.
func (t *ListObjectType) BaseType() *ObjectType { return t.base }

// Model returns the bound model.
func (t *ListObjectType) Model() model.Model { return t.opts.Model }

// Options returns the declarative bundle the type was built from.
func (t *ListObjectType) Options() Options { return t.opts }

// ResultsFieldName returns the name the results sequence is exposed under.
func (t *ListObjectType) ResultsFieldName() string { return t.opts.ResultsFieldName }

// baseObjectType returns the registered output type for the options' model,
// synthesizing a default one when none is registered yet.
func baseObjectType(opts Options) (*ObjectType, error) {
	if reg := opts.Registry.TypeForModel(opts.Model, registry.ModeNone); reg != nil {
		if base, ok := reg.(*ObjectType); ok {
			return base, nil
		}
	}
	return NewObjectType(Options{
		Model:        opts.Model,
		Registry:     opts.Registry,
		Only:         opts.Only,
		Exclude:      opts.Exclude,
		Include:      opts.Include,
		FilterFields: opts.FilterFields,
		FilterSet:    opts.FilterSet,
	})
}

// resultsContainer picks the results field: the declared pagination
// strategy, else the settings default, else a plain list.
func resultsContainer(base *ObjectType, opts Options) (*graphql.Field, error) {
	pg := opts.Pagination
	if pg == nil {
		var err error
		pg, err = pagination.FromSetting(settings.Current().DefaultPaginationClass)
		if err != nil {
			return nil, err
		}
	}
	if pg != nil {
		return pg.Field(base.Object()), nil
	}
	return &graphql.Field{
		Type: graphql.NewList(graphql.NewNonNull(base.Object())),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if lr, ok := p.Source.(*modelgraph.ListResult); ok {
				return lr.Results, nil
			}
			return nil, nil
		},
	}, nil
}
