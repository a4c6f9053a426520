// Package fields binds synthesized types to concrete resolvers and argument
// sets exposed on a schema: single-object lookup, plain list, filtered list,
// filtered+paginated list, and list-object (results plus total count)
// descriptors.
//
// Every descriptor honors its settings-level resolver override hook; the
// resolution order is always "configured resolver, else built-in default".
// Resolved values pass through the directive post-processing step so query
// directives such as @shuffle and @sample apply uniformly.
package fields

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/converter"
	"github.com/modelgraph/modelgraph/directives"
	"github.com/modelgraph/modelgraph/filters"
	"github.com/modelgraph/modelgraph/model"
	"github.com/modelgraph/modelgraph/pagination"
	"github.com/modelgraph/modelgraph/privacy"
	"github.com/modelgraph/modelgraph/settings"
	"github.com/modelgraph/modelgraph/types"
)

// ListConfig tunes the list field descriptors.
type ListConfig struct {
	// Fields names the filterable fields. Defaults to the type's
	// FilterFields option.
	Fields []string
	// FilterSet supplies a custom filter set, adapted to carry the
	// default bindings.
	FilterSet filters.FilterSet
	// Pagination windows the results of a filtered+paginated field.
	// Nil falls back to the DefaultPaginationClass setting.
	Pagination pagination.Pagination
	// Policy guards the field's reads. Query rules run before the query;
	// predicates they accumulate narrow the result set.
	Policy *privacy.Policy
	// Description overrides the field description.
	Description string
}

// guardQuery evaluates the read policy and returns the row-level predicates
// it accumulated.
func guardQuery(ctx context.Context, policy *privacy.Policy, m model.Model) ([]model.Predicate, error) {
	if policy == nil {
		return nil, nil
	}
	q := privacy.NewQuery(m)
	if err := policy.EvalQuery(ctx, q); err != nil {
		return nil, err
	}
	return q.Predicates(), nil
}

// ObjectField exposes a single-object lookup: a required id argument and a
// resolver fetching by primary key from the model's default query source.
// A missing record resolves to nil, not an error.
func ObjectField(t *types.ObjectType) *graphql.Field {
	m := t.Model()
	resolver := settings.Current().ObjectFieldResolver
	if resolver == nil {
		resolver = func(p graphql.ResolveParams) (any, error) {
			return resolveByID(resolveCtx(p), m, p.Args["id"])
		}
	}
	return &graphql.Field{
		Type:        t.Object(),
		Description: m.Name() + " retrieve",
		Args: graphql.FieldConfigArgument{
			"id": &graphql.ArgumentConfig{
				Type:        graphql.NewNonNull(graphql.ID),
				Description: "Record unique identification field",
			},
		},
		Resolve: wrapDirectives(t, resolver),
	}
}

// ListField exposes the full collection as a non-null list of non-null
// items, delegating to the model's default query source.
func ListField(t *types.ObjectType) *graphql.Field {
	m := t.Model()
	resolver := settings.Current().ListFieldResolver
	if resolver == nil {
		resolver = func(p graphql.ResolveParams) (any, error) {
			return m.Objects().QuerySet().All(resolveCtx(p))
		}
	}
	return &graphql.Field{
		Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(t.Object()))),
		Description: m.Name() + " list",
		Resolve:     wrapDirectives(t, resolver),
	}
}

// FilterListField exposes a filterable list. When resolved as a nested
// field under a parent record, the resolver traverses the parent's related
// accessor instead of re-querying; otherwise it runs a full query, applies
// the filter set, and scopes the result by the relation-derived extra
// filters.
func FilterListField(t *types.ObjectType, cfg ListConfig) (*graphql.Field, error) {
	fs, args, err := filterArgs(t, cfg)
	if err != nil {
		return nil, err
	}
	m := t.Model()
	resolver := settings.Current().FilterListFieldResolver
	if resolver == nil {
		resolver = func(p graphql.ResolveParams) (any, error) {
			qs, err := filteredQuerySet(p, m, fs, cfg.Policy)
			if err != nil {
				return nil, err
			}
			return qs.All(resolveCtx(p))
		}
	}
	return &graphql.Field{
		Type:        graphql.NewList(t.Object()),
		Description: listDescription(m, cfg),
		Args:        args,
		Resolve:     wrapDirectives(t, resolver),
	}, nil
}

// FilterPaginateListField is FilterListField plus the pagination strategy's
// windowing step; the result stays a plain sequence without a count.
func FilterPaginateListField(t *types.ObjectType, cfg ListConfig) (*graphql.Field, error) {
	fs, args, err := filterArgs(t, cfg)
	if err != nil {
		return nil, err
	}
	pg := cfg.Pagination
	if pg == nil {
		pg, err = pagination.FromSetting(settings.Current().DefaultPaginationClass)
		if err != nil {
			return nil, err
		}
	}
	if pg != nil {
		for name, arg := range pg.GraphQLArgs() {
			args[name] = arg
		}
	}
	m := t.Model()
	resolver := settings.Current().FilterPaginateListFieldResolver
	if resolver == nil {
		resolver = func(p graphql.ResolveParams) (any, error) {
			qs, err := filteredQuerySet(p, m, fs, cfg.Policy)
			if err != nil {
				return nil, err
			}
			if pg != nil {
				qs = pg.Paginate(qs, p.Args)
			}
			return qs.All(resolveCtx(p))
		}
	}
	return &graphql.Field{
		Type:        graphql.NewList(graphql.NewNonNull(t.Object())),
		Description: listDescription(m, cfg),
		Args:        args,
		Resolve:     wrapDirectives(t, resolver),
	}, nil
}

// ListObjectField exposes a filtered collection wrapped in the list-object
// container: the windowed results plus the total count of the filtered set.
// Results are cached when the CacheActive setting is on.
func ListObjectField(lt *types.ListObjectType, cfg ListConfig) (*graphql.Field, error) {
	base := lt.BaseType()
	if len(cfg.Fields) == 0 {
		cfg.Fields = lt.Options().FilterFields
	}
	fs, args, err := filterArgs(base, cfg)
	if err != nil {
		return nil, err
	}
	m := lt.Model()
	resolver := settings.Current().ListObjectFieldResolver
	if resolver == nil {
		resolver = func(p graphql.ResolveParams) (any, error) {
			return resolveListObject(p, m, fs, cfg.Policy, lt.ResultsFieldName())
		}
	}
	return &graphql.Field{
		Type:        lt.Object(),
		Description: listDescription(m, cfg),
		Args:        args,
		Resolve:     wrapDirectives(base, resolver),
	}, nil
}

// resolveByID is the built-in single-object resolver.
func resolveByID(ctx context.Context, m model.Model, id any) (any, error) {
	inst, err := m.Objects().QuerySet().Get(ctx, id)
	if err != nil {
		if modelgraph.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return inst, nil
}

// resolveListObject runs the filter pass, counts the filtered collection,
// and wraps both in a ListResult, consulting the resolver cache when active.
func resolveListObject(p graphql.ResolveParams, m model.Model, fs filters.FilterSet, policy *privacy.Policy, resultsField string) (any, error) {
	ctx := resolveCtx(p)
	scope, err := guardQuery(ctx, policy, m)
	if err != nil {
		return nil, err
	}
	load := func() (*modelgraph.ListResult, error) {
		qs, err := fs.Apply(m.Objects().QuerySet(), p.Args)
		if err != nil {
			return nil, err
		}
		if len(scope) > 0 {
			qs = qs.Filter(scope...)
		}
		count, err := qs.Count(ctx)
		if err != nil {
			return nil, err
		}
		results, err := qs.All(ctx)
		if err != nil {
			return nil, err
		}
		return &modelgraph.ListResult{Results: results, Count: count, ResultsFieldName: resultsField}, nil
	}
	conf := settings.Current()
	if !conf.CacheActive {
		return load()
	}
	return cachedListResult(ctx, m, p.Args, scope, conf.CacheTimeout, load)
}

// filteredQuerySet implements the shared filtered-list resolution order:
// related-accessor shortcut first, then query + filter + extra filters.
func filteredQuerySet(p graphql.ResolveParams, m model.Model, fs filters.FilterSet, policy *privacy.Policy) (model.QuerySet, error) {
	scope, err := guardQuery(resolveCtx(p), policy, m)
	if err != nil {
		return nil, err
	}
	scoped := func(qs model.QuerySet) model.QuerySet {
		if len(scope) > 0 {
			qs = qs.Filter(scope...)
		}
		return qs
	}
	if parent, ok := p.Source.(model.Instance); ok {
		if qs, ok := relatedShortcut(parent, m, p.Info.FieldName); ok {
			qs, err := fs.Apply(qs, p.Args)
			if err != nil {
				return nil, err
			}
			return scoped(qs), nil
		}
		qs, err := fs.Apply(m.Objects().QuerySet(), p.Args)
		if err != nil {
			return nil, err
		}
		if extra := model.ExtraFilters(parent, m); len(extra) > 0 {
			qs = qs.Filter(extra...)
		}
		return scoped(qs), nil
	}
	qs, err := fs.Apply(m.Objects().QuerySet(), p.Args)
	if err != nil {
		return nil, err
	}
	return scoped(qs), nil
}

// relatedShortcut finds a to-many relation on the parent whose target is the
// child model and whose schema field name matches the resolved field, and
// returns the parent's already-loadable accessor for it.
func relatedShortcut(parent model.Instance, child model.Model, fieldName string) (model.QuerySet, bool) {
	for _, f := range model.RelatedFields(parent.Model()) {
		if !f.Kind.IsToMany() {
			continue
		}
		rel := f.RelModel()
		if rel == nil || rel.Name() != child.Name() {
			continue
		}
		if converter.FieldName(f.Name) != fieldName {
			continue
		}
		return parent.Related(f.Name)
	}
	return nil, false
}

// filterArgs builds the filter set and the argument descriptors of a list
// field.
func filterArgs(t *types.ObjectType, cfg ListConfig) (filters.FilterSet, graphql.FieldConfigArgument, error) {
	m := t.Model()
	fieldNames := cfg.Fields
	if len(fieldNames) == 0 {
		fieldNames = t.Options().FilterFields
	}
	explicit := cfg.FilterSet
	if explicit == nil {
		explicit = t.Options().FilterSet
	}
	fs, err := filters.ForModel(explicit, m, fieldNames)
	if err != nil {
		return nil, nil, err
	}
	reg := t.Registry()
	args := filters.Args(fs, func(f model.Field) graphql.Type {
		return converter.ScalarFor(f, m, reg)
	})
	return fs, args, nil
}

func listDescription(m model.Model, cfg ListConfig) string {
	if cfg.Description != "" {
		return cfg.Description
	}
	return fmt.Sprintf("%s list", m.Name())
}

// wrapDirectives chains the directive post-processing step after the
// resolver, looking implementations up in the type's registry.
func wrapDirectives(t *types.ObjectType, fn graphql.FieldResolveFn) graphql.FieldResolveFn {
	reg := t.Registry()
	return directives.WrapResolver(reg, fn)
}

func resolveCtx(p graphql.ResolveParams) context.Context {
	if p.Context != nil {
		return p.Context
	}
	return context.Background()
}
