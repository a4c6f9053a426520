package directives

import (
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/registry"
)

func sampleValues(t *testing.T, value any, args map[string]any) []any {
	t.Helper()
	out, err := NewSample().Resolve(value, args, graphql.ResolveParams{})
	require.NoError(t, err)
	list, ok := out.([]any)
	require.True(t, ok)
	return list
}

func TestSample(t *testing.T) {
	items := []any{1, 2, 3, 4, 5}

	t.Run("returns_k_unique_elements", func(t *testing.T) {
		list := sampleValues(t, items, map[string]any{"k": 3})
		require.Len(t, list, 3)
		seen := map[any]bool{}
		for _, v := range list {
			assert.Contains(t, items, v)
			assert.False(t, seen[v], "sampling is without replacement")
			seen[v] = true
		}
	})

	t.Run("k_larger_than_the_list_samples_everything", func(t *testing.T) {
		list := sampleValues(t, items, map[string]any{"k": 50})
		assert.Len(t, list, 5)
	})

	t.Run("zero_k_is_empty", func(t *testing.T) {
		assert.Empty(t, sampleValues(t, items, map[string]any{"k": 0}))
	})

	t.Run("empty_list_passes_through", func(t *testing.T) {
		assert.Empty(t, sampleValues(t, []any{}, map[string]any{"k": 2}))
	})

	t.Run("negative_k_is_a_validation_error", func(t *testing.T) {
		_, err := NewSample().Resolve(items, map[string]any{"k": -1}, graphql.ResolveParams{})
		require.Error(t, err)
		assert.True(t, modelgraph.IsValidationError(err))
	})

	t.Run("missing_k_is_a_validation_error", func(t *testing.T) {
		_, err := NewSample().Resolve(items, map[string]any{}, graphql.ResolveParams{})
		require.Error(t, err)
	})

	t.Run("non_list_values_pass_through", func(t *testing.T) {
		out, err := NewSample().Resolve("scalar", map[string]any{"k": 1}, graphql.ResolveParams{})
		require.NoError(t, err)
		assert.Equal(t, "scalar", out)
	})
}

func TestShuffle(t *testing.T) {
	t.Run("preserves_the_multiset", func(t *testing.T) {
		items := []any{1, 2, 2, 3, 4}
		out, err := NewShuffle().Resolve(items, nil, graphql.ResolveParams{})
		require.NoError(t, err)
		list, ok := out.([]any)
		require.True(t, ok)
		assert.ElementsMatch(t, items, list)
	})

	t.Run("non_list_values_pass_through", func(t *testing.T) {
		out, err := NewShuffle().Resolve(42, nil, graphql.ResolveParams{})
		require.NoError(t, err)
		assert.Equal(t, 42, out)
	})
}

func TestWrapResolver(t *testing.T) {
	reg := registry.New()
	Register(reg)

	items := graphql.Field{
		Type: graphql.NewList(graphql.Int),
		Resolve: WrapResolver(reg, func(graphql.ResolveParams) (any, error) {
			return []any{1, 2, 3, 4, 5}, nil
		}),
	}
	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: graphql.Fields{"items": &items},
		}),
		Directives: append(reg.Directives(), graphql.IncludeDirective, graphql.SkipDirective),
	})
	require.NoError(t, err)

	t.Run("sample_applies_post_resolution", func(t *testing.T) {
		result := graphql.Do(graphql.Params{Schema: schema, RequestString: `{ items @sample(k: 2) }`})
		require.Empty(t, result.Errors)
		data := result.Data.(map[string]any)
		assert.Len(t, data["items"], 2)
	})

	t.Run("variable_arguments_resolve", func(t *testing.T) {
		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  `query ($n: Int!) { items @sample(k: $n) }`,
			VariableValues: map[string]any{"n": 1},
		})
		require.Empty(t, result.Errors)
		data := result.Data.(map[string]any)
		assert.Len(t, data["items"], 1)
	})

	t.Run("shuffle_keeps_all_elements", func(t *testing.T) {
		result := graphql.Do(graphql.Params{Schema: schema, RequestString: `{ items @shuffle }`})
		require.Empty(t, result.Errors)
		data := result.Data.(map[string]any)
		assert.Len(t, data["items"], 5)
	})

	t.Run("unknown_directives_are_left_to_the_engine", func(t *testing.T) {
		result := graphql.Do(graphql.Params{Schema: schema, RequestString: `{ items @skip(if: false) }`})
		require.Empty(t, result.Errors)
		data := result.Data.(map[string]any)
		assert.Len(t, data["items"], 5)
	})
}
