package types

import (
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/model"
	"github.com/modelgraph/modelgraph/pagination"
	"github.com/modelgraph/modelgraph/registry"
)

func newModels() (author, book *model.Builder) {
	author = model.New("Author",
		model.String("name"),
		model.String("secret"),
		model.ToMany("books", func() model.Model { return book }),
	)
	book = model.New("Book",
		model.String("title"),
		model.ToOne("author", func() model.Model { return author }),
	)
	return author, book
}

func TestNewObjectType(t *testing.T) {
	t.Run("defaults_and_registration", func(t *testing.T) {
		reg := registry.New()
		author, _ := newModels()
		ot, err := NewObjectType(Options{Model: author, Registry: reg})
		require.NoError(t, err)

		assert.Equal(t, "AuthorGenericType", ot.Object().Name())
		assert.Equal(t, ot, reg.TypeForModel(author, registry.ModeNone))
	})

	t.Run("nil_model_is_a_config_error", func(t *testing.T) {
		_, err := NewObjectType(Options{})
		require.Error(t, err)
		assert.True(t, modelgraph.IsConfigError(err))
	})

	t.Run("duplicate_synthesis_is_refused", func(t *testing.T) {
		reg := registry.New()
		author, _ := newModels()
		_, err := NewObjectType(Options{Model: author, Registry: reg})
		require.NoError(t, err)
		_, err = NewObjectType(Options{Model: author, Registry: reg})
		require.Error(t, err)
		assert.ErrorIs(t, err, modelgraph.ErrAlreadyRegistered)
	})

	t.Run("skip_registry", func(t *testing.T) {
		reg := registry.New()
		author, _ := newModels()
		_, err := NewObjectType(Options{Model: author, Registry: reg, SkipRegistry: true})
		require.NoError(t, err)
		assert.Nil(t, reg.TypeForModel(author, registry.ModeNone))
	})

	t.Run("field_inclusion_policy", func(t *testing.T) {
		reg := registry.New()
		author, _ := newModels()
		ot, err := NewObjectType(Options{
			Model:    author,
			Registry: reg,
			Only:     []string{"id", "name", "secret"},
			Exclude:  []string{"secret"},
		})
		require.NoError(t, err)

		fields := ot.Object().Fields()
		assert.Contains(t, fields, "name")
		assert.NotContains(t, fields, "secret", "exclude wins over only")
	})

	t.Run("mutually_referencing_models_resolve_lazily", func(t *testing.T) {
		reg := registry.New()
		author, book := newModels()
		authorType, err := NewObjectType(Options{Model: author, Registry: reg})
		require.NoError(t, err)
		bookType, err := NewObjectType(Options{Model: book, Registry: reg})
		require.NoError(t, err)

		authorFields := authorType.Object().Fields()
		require.Contains(t, authorFields, "books")
		bookFields := bookType.Object().Fields()
		require.Contains(t, bookFields, "author")
		assert.Equal(t, "AuthorGenericType", bookFields["author"].Type.Name())
	})
}

func TestNewInputObjectType(t *testing.T) {
	t.Run("mode_scoped_naming_and_registration", func(t *testing.T) {
		reg := registry.New()
		author, _ := newModels()
		in, err := NewInputObjectType(Options{Model: author, Registry: reg}, registry.ModeCreate)
		require.NoError(t, err)

		assert.Equal(t, "AuthorCreateGenericType", in.InputObject().Name())
		assert.Equal(t, in, reg.TypeForModel(author, registry.ModeCreate))
		assert.Nil(t, reg.TypeForModel(author, registry.ModeUpdate))
	})

	t.Run("unknown_mode_is_a_config_error", func(t *testing.T) {
		author, _ := newModels()
		_, err := NewInputObjectType(Options{Model: author, Registry: registry.New()}, registry.ModeNone)
		require.Error(t, err)
		assert.True(t, modelgraph.IsConfigError(err))
	})

	t.Run("update_mode_requires_the_id", func(t *testing.T) {
		reg := registry.New()
		author, _ := newModels()
		in, err := NewInputObjectType(Options{Model: author, Registry: reg}, registry.ModeUpdate)
		require.NoError(t, err)

		fields := in.InputObject().Fields()
		require.Contains(t, fields, "id")
		assert.IsType(t, &graphql.NonNull{}, fields["id"].Type)
	})

	t.Run("extra_input_fields_concatenate_with_later_wins", func(t *testing.T) {
		reg := registry.New()
		author, _ := newModels()
		in, err := NewInputObjectType(Options{
			Model:    author,
			Registry: reg,
			ExtraInputFields: []graphql.InputObjectConfigFieldMap{
				{"note": &graphql.InputObjectFieldConfig{Type: graphql.String}},
				{"note": &graphql.InputObjectFieldConfig{Type: graphql.Int}},
			},
		}, registry.ModeCreate)
		require.NoError(t, err)

		fields := in.InputObject().Fields()
		require.Contains(t, fields, "note")
		assert.Equal(t, graphql.Int, fields["note"].Type)
	})
}

func TestNewListObjectType(t *testing.T) {
	t.Run("results_and_total_count", func(t *testing.T) {
		reg := registry.New()
		author, _ := newModels()
		lt, err := NewListObjectType(Options{Model: author, Registry: reg})
		require.NoError(t, err)

		fields := lt.Object().Fields()
		require.Contains(t, fields, "results")
		require.Contains(t, fields, "totalCount")
		assert.Equal(t, graphql.Int, fields["totalCount"].Type)
		assert.Equal(t, "results", lt.ResultsFieldName())
	})

	t.Run("reuses_a_registered_base_type", func(t *testing.T) {
		reg := registry.New()
		author, _ := newModels()
		base, err := NewObjectType(Options{Model: author, Registry: reg})
		require.NoError(t, err)
		lt, err := NewListObjectType(Options{Model: author, Registry: reg})
		require.NoError(t, err)
		assert.Equal(t, base, lt.BaseType())
	})

	t.Run("custom_results_field_name_and_pagination", func(t *testing.T) {
		reg := registry.New()
		author, _ := newModels()
		lt, err := NewListObjectType(Options{
			Model:            author,
			Registry:         reg,
			ResultsFieldName: "items",
			Pagination:       pagination.LimitOffset(),
		})
		require.NoError(t, err)

		fields := lt.Object().Fields()
		require.Contains(t, fields, "items")
		argNames := make([]string, 0, len(fields["items"].Args))
		for _, a := range fields["items"].Args {
			argNames = append(argNames, a.Name())
		}
		assert.Contains(t, argNames, "limit", "paginated container carries the strategy arguments")
	})
}
