// Package pagination provides the windowing strategies applied to list
// fields: limit/offset and page-number variants over a shared interface.
// Default and maximum window sizes come from the settings layer; a window
// that falls outside the collection yields an empty result, never an error.
package pagination

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/model"
	"github.com/modelgraph/modelgraph/settings"
)

// Pagination is the strategy contract: the extra arguments a paginated
// field carries, the query-set windowing step, and the field wrapping a
// base type as "paginated list of base".
type Pagination interface {
	// Name returns the strategy name as accepted by the
	// DefaultPaginationClass setting.
	Name() string
	// GraphQLArgs returns the extra argument descriptors of the strategy.
	GraphQLArgs() graphql.FieldConfigArgument
	// Paginate returns the ordered window of the query set selected by
	// the request arguments.
	Paginate(qs model.QuerySet, args map[string]any) model.QuerySet
	// Window computes the (offset, limit) pair selected by the request
	// arguments. A negative limit means unbounded.
	Window(args map[string]any) (offset, limit int)
	// Field wraps a base type as a paginated list field resolving
	// against a ListResult parent.
	Field(base graphql.Output) *graphql.Field
}

// FromSetting instantiates the strategy named by a DefaultPaginationClass
// value. An empty name yields nil (no default pagination); an unknown name
// is a configuration error.
func FromSetting(name string) (Pagination, error) {
	switch name {
	case "":
		return nil, nil
	case settings.PaginationLimitOffset:
		return LimitOffset(), nil
	case settings.PaginationPageNumber:
		return PageNumber(), nil
	}
	return nil, modelgraph.NewConfigError("pagination", fmt.Errorf("unknown pagination class %q", name))
}

// LimitOffset returns the limit/offset strategy: arguments limit, offset
// and ordering.
func LimitOffset() Pagination { return &limitOffset{} }

// PageNumber returns the page-number strategy: arguments page, pageSize
// and ordering.
func PageNumber() Pagination { return &pageNumber{} }

type limitOffset struct{}

func (*limitOffset) Name() string { return settings.PaginationLimitOffset }

func (*limitOffset) GraphQLArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"limit": &graphql.ArgumentConfig{
			Type:        graphql.Int,
			Description: "Number of results to return per request",
		},
		"offset": &graphql.ArgumentConfig{
			Type:        graphql.Int,
			Description: "The initial index from which to return the results",
		},
		"ordering": &graphql.ArgumentConfig{
			Type:        graphql.String,
			Description: "Comma-separated fields to order by; prefix a field with '-' for descending",
		},
	}
}

func (s *limitOffset) Window(args map[string]any) (int, int) {
	conf := settings.Current()
	limit := conf.DefaultPageSize
	if limit == 0 {
		limit = -1
	}
	if v, ok := toInt(args["limit"]); ok {
		limit = v
	}
	if conf.MaxPageSize > 0 && (limit < 0 || limit > conf.MaxPageSize) {
		limit = conf.MaxPageSize
	}
	offset := 0
	if v, ok := toInt(args["offset"]); ok && v > 0 {
		offset = v
	}
	return offset, limit
}

func (s *limitOffset) Paginate(qs model.QuerySet, args map[string]any) model.QuerySet {
	qs = applyOrdering(qs, args)
	offset, limit := s.Window(args)
	return qs.Slice(offset, limit)
}

func (s *limitOffset) Field(base graphql.Output) *graphql.Field {
	return paginatedField(base, s)
}

type pageNumber struct{}

func (*pageNumber) Name() string { return settings.PaginationPageNumber }

func (*pageNumber) GraphQLArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"page": &graphql.ArgumentConfig{
			Type:         graphql.Int,
			DefaultValue: 1,
			Description:  "A page number within the paginated result set",
		},
		"pageSize": &graphql.ArgumentConfig{
			Type:        graphql.Int,
			Description: "Number of results to return per page",
		},
		"ordering": &graphql.ArgumentConfig{
			Type:        graphql.String,
			Description: "Comma-separated fields to order by; prefix a field with '-' for descending",
		},
	}
}

func (s *pageNumber) Window(args map[string]any) (int, int) {
	conf := settings.Current()
	size := conf.DefaultPageSize
	if v, ok := toInt(args["pageSize"]); ok && v > 0 {
		size = v
	}
	if conf.MaxPageSize > 0 && size > conf.MaxPageSize {
		size = conf.MaxPageSize
	}
	if size <= 0 {
		return 0, -1
	}
	page := 1
	if v, ok := toInt(args["page"]); ok && v > 0 {
		page = v
	}
	return (page - 1) * size, size
}

func (s *pageNumber) Paginate(qs model.QuerySet, args map[string]any) model.QuerySet {
	qs = applyOrdering(qs, args)
	offset, limit := s.Window(args)
	return qs.Slice(offset, limit)
}

func (s *pageNumber) Field(base graphql.Output) *graphql.Field {
	return paginatedField(base, s)
}

// paginatedField builds the results container field of a list object type:
// a non-null list of non-null base items windowed by the strategy over the
// already-resolved ListResult parent.
func paginatedField(base graphql.Output, s Pagination) *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewList(graphql.NewNonNull(base)),
		Args: s.GraphQLArgs(),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			lr, ok := p.Source.(*modelgraph.ListResult)
			if !ok {
				return nil, nil
			}
			results := orderInstances(lr.Results, p.Args)
			offset, limit := s.Window(p.Args)
			if offset >= len(results) {
				return []model.Instance{}, nil
			}
			results = results[offset:]
			if limit >= 0 && limit < len(results) {
				results = results[:limit]
			}
			return results, nil
		},
	}
}

// applyOrdering routes the ordering argument into the query set.
func applyOrdering(qs model.QuerySet, args map[string]any) model.QuerySet {
	fields := orderingFields(args)
	if len(fields) == 0 {
		return qs
	}
	return qs.OrderBy(fields...)
}

func orderingFields(args map[string]any) []string {
	raw, _ := args["ordering"].(string)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	fields := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			fields = append(fields, p)
		}
	}
	return fields
}

// orderInstances sorts an already materialized window by the ordering
// argument. Used by the container field, where the backend query has
// already run.
func orderInstances(items []model.Instance, args map[string]any) []model.Instance {
	fields := orderingFields(args)
	if len(fields) == 0 {
		return items
	}
	sorted := append([]model.Instance(nil), items...)
	sortInstances(sorted, fields)
	return sorted
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
