// Package mutation composes a serializer factory with synthesized types into
// the five model operations: retrieve, list, create, update and delete.
//
// Every mutation operation resolves to the same envelope shape regardless of
// outcome, {ok, errors, <output field>}, so callers inspect ok and errors
// instead of distinguishing resolver errors from validation failures.
// Validation failures and missing records stay inside the envelope;
// only backend faults escape as resolver errors.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/graphql-go/graphql"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/converter"
	"github.com/modelgraph/modelgraph/fields"
	"github.com/modelgraph/modelgraph/filters"
	"github.com/modelgraph/modelgraph/model"
	"github.com/modelgraph/modelgraph/pagination"
	"github.com/modelgraph/modelgraph/privacy"
	"github.com/modelgraph/modelgraph/registry"
	"github.com/modelgraph/modelgraph/serializer"
	"github.com/modelgraph/modelgraph/settings"
	"github.com/modelgraph/modelgraph/types"
)

// FieldError is one entry of the envelope's errors list: a field name and
// its validation messages.
type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// ErrorType is the schema type of envelope error entries.
var ErrorType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "ErrorType",
	Description: "Validation error: a field name and its messages.",
	Fields: graphql.Fields{
		"field": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
		},
		"messages": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
		},
	},
})

// Config declares a serializer mutation.
type Config struct {
	// Serializer validates and persists operation payloads. Required.
	Serializer serializer.Factory
	// Registry resolves and records synthesized types. Defaults to the
	// process-wide registry.
	Registry *registry.Registry

	// Only, Exclude and Include carry the field inclusion policy of the
	// synthesized types.
	Only    []string
	Exclude []string
	Include []string

	// Nested names the input fields accepting nested sub-object payloads
	// on create and update.
	Nested []string

	// Policy guards the model's operations. Query rules run before the
	// retrieve and list resolvers; mutation rules run before create,
	// update and delete. A deny decision escapes as a resolver error.
	Policy *privacy.Policy

	// InputFieldName names the payload argument of create and update.
	// Defaults to "new<Model>".
	InputFieldName string
	// OutputFieldName names the envelope member carrying the object.
	// Defaults to the lower-camel model name.
	OutputFieldName string
	// Description overrides the generated field descriptions.
	Description string

	// ExtraArgs are appended to every mutation field's arguments.
	ExtraArgs graphql.FieldConfigArgument
	// ExtraInputFields are concatenated onto the synthesized input types.
	ExtraInputFields []graphql.InputObjectConfigFieldMap

	// FilterFields, FilterSet and Pagination configure the list operation.
	FilterFields []string
	FilterSet    filters.FilterSet
	Pagination   pagination.Pagination
}

// SerializerMutation bundles the operation fields of one model.
type SerializerMutation struct {
	cfg         Config
	model       model.Model
	output      *types.ObjectType
	createInput *types.InputObjectType
	updateInput *types.InputObjectType
	payload     *graphql.Object
}

// New validates the configuration and synthesizes the operation's types:
// the output object type (reused from the registry when present), the
// create and update input types, and the envelope payload object.
func New(cfg Config) (*SerializerMutation, error) {
	if cfg.Serializer == nil {
		return nil, modelgraph.NewConfigError("mutation.SerializerMutation",
			errors.New("a serializer factory is required, received nil"))
	}
	m := cfg.Serializer.Model()
	if cfg.Registry == nil {
		cfg.Registry = registry.Default()
	}
	if cfg.InputFieldName == "" {
		cfg.InputFieldName = inflect.CamelizeDownFirst("new_" + strings.ToLower(m.Name()))
	}
	if cfg.OutputFieldName == "" {
		cfg.OutputFieldName = inflect.CamelizeDownFirst(strings.ToLower(m.Name()))
	}

	sm := &SerializerMutation{cfg: cfg, model: m}
	opts := types.Options{
		Model:            m,
		Registry:         cfg.Registry,
		Only:             cfg.Only,
		Exclude:          cfg.Exclude,
		Include:          cfg.Include,
		Nested:           cfg.Nested,
		ExtraInputFields: cfg.ExtraInputFields,
		FilterFields:     cfg.FilterFields,
		FilterSet:        cfg.FilterSet,
		Pagination:       cfg.Pagination,
	}

	var err error
	if registered := cfg.Registry.TypeForModel(m, registry.ModeNone); registered != nil {
		out, ok := registered.(*types.ObjectType)
		if !ok {
			return nil, modelgraph.NewConfigError("mutation.SerializerMutation",
				fmt.Errorf("registered type for %s is not an object type", m.Name()))
		}
		sm.output = out
	} else if sm.output, err = types.NewObjectType(opts); err != nil {
		return nil, err
	}

	// Nested payloads reference the related models' create inputs, so those
	// are synthesized ahead of the parent input types.
	if err := synthesizeNestedInputs(m, cfg.Registry, cfg.Nested); err != nil {
		return nil, err
	}
	if sm.createInput, err = inputType(opts, registry.ModeCreate); err != nil {
		return nil, err
	}
	if sm.updateInput, err = inputType(opts, registry.ModeUpdate); err != nil {
		return nil, err
	}

	sm.payload = graphql.NewObject(graphql.ObjectConfig{
		Name:        inflect.Camelize(strings.ToLower(m.Name()) + "_payload"),
		Description: m.Name() + " mutation result",
		Fields: graphql.Fields{
			"ok": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Boolean),
				Description: "Boolean field that return mutation result request.",
			},
			"errors": &graphql.Field{
				Type:        graphql.NewList(graphql.NewNonNull(ErrorType)),
				Description: "Errors list for the field",
			},
			cfg.OutputFieldName: &graphql.Field{
				Type: sm.output.Object(),
			},
		},
	})
	return sm, nil
}

func inputType(opts types.Options, mode registry.Mode) (*types.InputObjectType, error) {
	if registered := opts.Registry.TypeForModel(opts.Model, mode); registered != nil {
		if in, ok := registered.(*types.InputObjectType); ok {
			return in, nil
		}
	}
	return types.NewInputObjectType(opts, mode)
}

func synthesizeNestedInputs(m model.Model, reg *registry.Registry, nested []string) error {
	for _, name := range nested {
		f, ok := model.FieldByName(m, name)
		if !ok || !f.Kind.IsRelation() {
			continue
		}
		rel := f.RelModel()
		if rel == nil || reg.TypeForModel(rel, registry.ModeCreate) != nil {
			continue
		}
		if _, err := types.NewInputObjectType(types.Options{Model: rel, Registry: reg}, registry.ModeCreate); err != nil {
			return err
		}
	}
	return nil
}

// Model returns the mutated model.
func (sm *SerializerMutation) Model() model.Model { return sm.model }

// OutputType returns the synthesized output object type.
func (sm *SerializerMutation) OutputType() *types.ObjectType { return sm.output }

// Payload returns the envelope object type.
func (sm *SerializerMutation) Payload() *graphql.Object { return sm.payload }

// RetrieveField exposes the single-object query of the model.
func (sm *SerializerMutation) RetrieveField() *graphql.Field {
	f := fields.ObjectField(sm.output)
	if sm.cfg.Policy != nil {
		inner := f.Resolve
		f.Resolve = func(p graphql.ResolveParams) (any, error) {
			if err := sm.cfg.Policy.EvalQuery(resolveCtx(p), privacy.NewQuery(sm.model)); err != nil {
				return nil, err
			}
			return inner(p)
		}
	}
	return f
}

// ListField exposes the filtered list query of the model.
func (sm *SerializerMutation) ListField() (*graphql.Field, error) {
	return fields.FilterListField(sm.output, fields.ListConfig{
		Fields:     sm.cfg.FilterFields,
		FilterSet:  sm.cfg.FilterSet,
		Pagination: sm.cfg.Pagination,
		Policy:     sm.cfg.Policy,
	})
}

// CreateField exposes the create mutation.
func (sm *SerializerMutation) CreateField() *graphql.Field {
	return &graphql.Field{
		Type:        sm.payload,
		Description: sm.describe("create"),
		Args: sm.withExtraArgs(graphql.FieldConfigArgument{
			sm.cfg.InputFieldName: &graphql.ArgumentConfig{
				Type: graphql.NewNonNull(sm.createInput.InputObject()),
			},
		}),
		Resolve: sm.create,
	}
}

// UpdateField exposes the update mutation.
func (sm *SerializerMutation) UpdateField() *graphql.Field {
	return &graphql.Field{
		Type:        sm.payload,
		Description: sm.describe("update"),
		Args: sm.withExtraArgs(graphql.FieldConfigArgument{
			sm.cfg.InputFieldName: &graphql.ArgumentConfig{
				Type: graphql.NewNonNull(sm.updateInput.InputObject()),
			},
		}),
		Resolve: sm.update,
	}
}

// DeleteField exposes the delete mutation.
func (sm *SerializerMutation) DeleteField() *graphql.Field {
	return &graphql.Field{
		Type:        sm.payload,
		Description: sm.describe("delete"),
		Args: sm.withExtraArgs(graphql.FieldConfigArgument{
			"id": &graphql.ArgumentConfig{
				Type:        graphql.NewNonNull(graphql.ID),
				Description: "Record unique identification field",
			},
		}),
		Resolve: sm.delete,
	}
}

// QueryFields returns the retrieve and list fields keyed by their
// conventional schema names, e.g. "user" and "allUsers".
func (sm *SerializerMutation) QueryFields() (graphql.Fields, error) {
	list, err := sm.ListField()
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(sm.model.Name())
	return graphql.Fields{
		inflect.CamelizeDownFirst(lower):                       sm.RetrieveField(),
		inflect.CamelizeDownFirst("all_" + inflect.Pluralize(lower)): list,
	}, nil
}

// MutationFields returns the create, update and delete fields keyed by their
// conventional schema names, e.g. "createUser".
func (sm *SerializerMutation) MutationFields() graphql.Fields {
	name := inflect.Camelize(strings.ToLower(sm.model.Name()))
	return graphql.Fields{
		"create" + name: sm.CreateField(),
		"update" + name: sm.UpdateField(),
		"delete" + name: sm.DeleteField(),
	}
}

func (sm *SerializerMutation) describe(op string) string {
	if sm.cfg.Description != "" {
		return sm.cfg.Description
	}
	return fmt.Sprintf("%s %s", op, sm.model.Name())
}

func (sm *SerializerMutation) withExtraArgs(args graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	for name, arg := range sm.cfg.ExtraArgs {
		args[name] = arg
	}
	return args
}

func (sm *SerializerMutation) create(p graphql.ResolveParams) (any, error) {
	ctx := resolveCtx(p)
	input, _ := p.Args[sm.cfg.InputFieldName].(map[string]any)
	data := inputValues(sm.model, input)
	mergeUploads(ctx, data)
	if err := sm.guard(ctx, privacy.OpCreate, data); err != nil {
		return nil, err
	}

	if env, err := sm.saveNested(ctx, data); env != nil || err != nil {
		return env, err
	}

	ser := sm.cfg.Serializer.New(nil, data, false)
	if !ser.IsValid(ctx) {
		return sm.errEnvelope(errorList(ser.Errors())), nil
	}
	inst, err := ser.Save(ctx)
	if err != nil {
		return nil, err
	}
	return sm.okEnvelope(inst), nil
}

func (sm *SerializerMutation) update(p graphql.ResolveParams) (any, error) {
	ctx := resolveCtx(p)
	input, _ := p.Args[sm.cfg.InputFieldName].(map[string]any)
	pkName := converter.FieldName(model.PKField(sm.model).Name)
	pk, ok := input[pkName]
	if !ok {
		return sm.errEnvelope([]FieldError{{
			Field:    pkName,
			Messages: []string{serializer.MsgRequired},
		}}), nil
	}
	data := inputValues(sm.model, input)
	mergeUploads(ctx, data)
	if err := sm.guard(ctx, privacy.OpUpdate, data); err != nil {
		return nil, err
	}

	inst, err := sm.model.Objects().QuerySet().Get(ctx, pk)
	if err != nil {
		if modelgraph.IsNotFound(err) {
			return sm.notFoundEnvelope(pk), nil
		}
		return nil, err
	}

	if env, err := sm.saveNested(ctx, data); env != nil || err != nil {
		return env, err
	}

	ser := sm.cfg.Serializer.New(inst, data, true)
	if !ser.IsValid(ctx) {
		return sm.errEnvelope(errorList(ser.Errors())), nil
	}
	updated, err := ser.Save(ctx)
	if err != nil {
		return nil, err
	}
	return sm.okEnvelope(updated), nil
}

func (sm *SerializerMutation) delete(p graphql.ResolveParams) (any, error) {
	ctx := resolveCtx(p)
	pk := p.Args["id"]
	if err := sm.guard(ctx, privacy.OpDelete, nil); err != nil {
		return nil, err
	}
	inst, err := sm.model.Objects().Delete(ctx, pk)
	if err != nil {
		if modelgraph.IsNotFound(err) {
			return sm.notFoundEnvelope(pk), nil
		}
		return nil, err
	}
	return sm.okEnvelope(inst), nil
}

// guard evaluates the configured mutation policy for one write operation.
func (sm *SerializerMutation) guard(ctx context.Context, op privacy.Op, data map[string]any) error {
	if sm.cfg.Policy == nil {
		return nil
	}
	return sm.cfg.Policy.EvalMutation(ctx, privacy.NewMutation(sm.model, op, data))
}

// saveNested validates and saves nested sub-object payloads ahead of the
// parent, replacing each with the saved record's key. A nested validation
// failure short-circuits the parent operation with the nested errors.
func (sm *SerializerMutation) saveNested(ctx context.Context, data map[string]any) (any, error) {
	for _, name := range sm.cfg.Nested {
		f, ok := model.FieldByName(sm.model, name)
		if !ok || f.RelModel() == nil {
			continue
		}
		switch f.Kind {
		case model.KindForeignKey:
			nested, ok := data[f.Name].(map[string]any)
			if !ok {
				continue
			}
			pk, env, err := sm.saveNestedOne(ctx, f, nested)
			if env != nil || err != nil {
				return env, err
			}
			data[f.Name] = pk
		case model.KindManyToMany:
			items, ok := data[f.Name].([]any)
			if !ok {
				continue
			}
			pks := make([]any, 0, len(items))
			for _, item := range items {
				nested, ok := item.(map[string]any)
				if !ok {
					pks = append(pks, item)
					continue
				}
				pk, env, err := sm.saveNestedOne(ctx, f, nested)
				if env != nil || err != nil {
					return env, err
				}
				pks = append(pks, pk)
			}
			data[f.Name] = pks
		}
	}
	return nil, nil
}

func (sm *SerializerMutation) saveNestedOne(ctx context.Context, f model.Field, payload map[string]any) (any, any, error) {
	rel := f.RelModel()
	ser := serializer.NewFactory(rel).New(nil, inputValues(rel, payload), false)
	if !ser.IsValid(ctx) {
		return nil, sm.errEnvelope(errorList(ser.Errors())), nil
	}
	inst, err := ser.Save(ctx)
	if err != nil {
		return nil, nil, err
	}
	return inst.PK(), nil, nil
}

func (sm *SerializerMutation) okEnvelope(inst model.Instance) map[string]any {
	return sm.envelope(true, nil, inst)
}

func (sm *SerializerMutation) errEnvelope(errs []FieldError) map[string]any {
	return sm.envelope(false, errs, nil)
}

func (sm *SerializerMutation) notFoundEnvelope(pk any) map[string]any {
	msg := fmt.Sprintf("A %s obj with id: %v do not exist", sm.model.Name(), pk)
	return sm.errEnvelope([]FieldError{{Field: "id", Messages: []string{msg}}})
}

func (sm *SerializerMutation) envelope(ok bool, errs []FieldError, obj any) map[string]any {
	env := map[string]any{
		"ok":                   ok,
		"errors":               nil,
		sm.cfg.OutputFieldName: obj,
	}
	if len(errs) > 0 {
		env["errors"] = errs
	}
	if settings.Current().CleanResponse {
		env = modelgraph.CleanResponse(env)
	}
	return env
}

// errorList renders a serializer's field→messages map as envelope entries,
// ordered by field name.
func errorList(errs map[string][]string) []FieldError {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]FieldError, 0, len(names))
	for _, name := range names {
		out = append(out, FieldError{Field: converter.FieldName(name), Messages: errs[name]})
	}
	return out
}

// inputValues re-keys a schema argument map by model field name.
func inputValues(m model.Model, input map[string]any) map[string]any {
	data := make(map[string]any, len(input))
	for _, f := range m.Fields() {
		if v, ok := input[converter.FieldName(f.Name)]; ok {
			data[f.Name] = v
		}
	}
	return data
}

func resolveCtx(p graphql.ResolveParams) context.Context {
	if p.Context != nil {
		return p.Context
	}
	return context.Background()
}
