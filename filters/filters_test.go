package filters

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/model"
	"github.com/modelgraph/modelgraph/model/memory"
)

func filterModel() *model.Builder {
	m := model.New("Track",
		model.String("title"),
		model.Int("plays"),
		model.Float("rating").Nullable(),
	)
	memory.NewManager(m)
	return m
}

func seedTracks(t *testing.T, m *model.Builder) {
	t.Helper()
	ctx := context.Background()
	for _, row := range []map[string]any{
		{"title": "Alpha", "plays": 1, "rating": 4.5},
		{"title": "Beta", "plays": 2, "rating": 3.0},
		{"title": "Gamma", "plays": 3, "rating": 5.0},
	} {
		_, err := m.Objects().Create(ctx, row)
		require.NoError(t, err)
	}
}

func TestForModel(t *testing.T) {
	t.Run("default_bindings_per_kind", func(t *testing.T) {
		m := filterModel()
		fs, err := ForModel(nil, m, []string{"title", "plays"})
		require.NoError(t, err)

		byArg := map[string]Binding{}
		for _, b := range fs.Bindings() {
			byArg[b.ArgName] = b
		}
		assert.Contains(t, byArg, "title")
		assert.Contains(t, byArg, "titleIn")
		assert.Contains(t, byArg, "titleIcontains", "strings get a containment filter")
		assert.Contains(t, byArg, "plays")
		assert.Contains(t, byArg, "playsIn")
		assert.NotContains(t, byArg, "playsIcontains")
		assert.True(t, byArg["titleIn"].CSV, "membership filters accept comma-separated values")
	})

	t.Run("explicit_set_keeps_defaults", func(t *testing.T) {
		m := filterModel()
		base, err := ForModel(nil, m, []string{"title"})
		require.NoError(t, err)
		fs, err := ForModel(base, m, []string{"title", "plays"})
		require.NoError(t, err)

		args := map[string]bool{}
		for _, b := range fs.Bindings() {
			args[b.ArgName] = true
		}
		assert.True(t, args["title"])
		assert.True(t, args["plays"], "defaults for uncovered fields are merged in")
	})

	t.Run("model_mismatch_is_a_config_error", func(t *testing.T) {
		m := filterModel()
		other := model.New("Album", model.String("title"))
		base, err := ForModel(nil, m, []string{"title"})
		require.NoError(t, err)
		_, err = ForModel(base, other, nil)
		require.Error(t, err)
		assert.True(t, modelgraph.IsConfigError(err))
	})

	t.Run("nil_model_is_a_config_error", func(t *testing.T) {
		_, err := ForModel(nil, nil, nil)
		require.Error(t, err)
		assert.True(t, modelgraph.IsConfigError(err))
	})
}

func TestArgs(t *testing.T) {
	m := filterModel()
	fs, err := ForModel(nil, m, []string{"title", "plays"})
	require.NoError(t, err)

	args := Args(fs, func(f model.Field) graphql.Type {
		switch f.Kind {
		case model.KindInt:
			return graphql.Int
		default:
			return graphql.String
		}
	})

	require.Contains(t, args, "titleIn")
	assert.Equal(t, graphql.String, args["titleIn"].Type, "CSV arguments are exposed as strings")
	require.Contains(t, args, "plays")
	assert.Equal(t, graphql.Int, args["plays"].Type)
	require.Contains(t, args, "id")
	assert.Equal(t, graphql.ID, args["id"].Type, "id argument is always available and nullable")
}

func TestApply(t *testing.T) {
	t.Run("csv_membership_coerces_by_kind", func(t *testing.T) {
		m := filterModel()
		seedTracks(t, m)
		fs, err := ForModel(nil, m, []string{"plays"})
		require.NoError(t, err)

		qs, err := fs.Apply(m.Objects().QuerySet(), map[string]any{"playsIn": "1,2,3"})
		require.NoError(t, err)
		results, err := qs.All(context.Background())
		require.NoError(t, err)
		assert.Len(t, results, 3)

		qs, err = fs.Apply(m.Objects().QuerySet(), map[string]any{"playsIn": "2, 3"})
		require.NoError(t, err)
		results, err = qs.All(context.Background())
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("malformed_csv_is_a_validation_error", func(t *testing.T) {
		m := filterModel()
		fs, err := ForModel(nil, m, []string{"plays"})
		require.NoError(t, err)

		_, err = fs.Apply(m.Objects().QuerySet(), map[string]any{"playsIn": "1,x"})
		require.Error(t, err)
		assert.True(t, modelgraph.IsValidationError(err))
	})

	t.Run("icontains_matches_case_insensitively", func(t *testing.T) {
		m := filterModel()
		seedTracks(t, m)
		fs, err := ForModel(nil, m, []string{"title"})
		require.NoError(t, err)

		qs, err := fs.Apply(m.Objects().QuerySet(), map[string]any{"titleIcontains": "alph"})
		require.NoError(t, err)
		results, err := qs.All(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Alpha", results[0].Get("title"))
	})

	t.Run("id_argument_filters_by_primary_key", func(t *testing.T) {
		m := filterModel()
		seedTracks(t, m)
		fs, err := ForModel(nil, m, nil)
		require.NoError(t, err)

		qs, err := fs.Apply(m.Objects().QuerySet(), map[string]any{"id": 2})
		require.NoError(t, err)
		results, err := qs.All(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Beta", results[0].Get("title"))
	})

	t.Run("absent_arguments_do_not_narrow", func(t *testing.T) {
		m := filterModel()
		seedTracks(t, m)
		fs, err := ForModel(nil, m, []string{"title"})
		require.NoError(t, err)

		qs, err := fs.Apply(m.Objects().QuerySet(), map[string]any{})
		require.NoError(t, err)
		n, err := qs.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}
