package sdl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgraph/modelgraph/directives"
	"github.com/modelgraph/modelgraph/fields"
	"github.com/modelgraph/modelgraph/model"
	"github.com/modelgraph/modelgraph/model/memory"
	"github.com/modelgraph/modelgraph/registry"
	"github.com/modelgraph/modelgraph/sdl"
	"github.com/modelgraph/modelgraph/types"

	"github.com/graphql-go/graphql"
)

func TestPrint(t *testing.T) {
	track := model.New("Track",
		model.String("title"),
		model.Int("plays").Nullable(),
		model.Enum("quality", "lossy", "lossless"),
	)
	memory.NewManager(track)

	reg := registry.New()
	directives.Register(reg)
	trackType, err := types.NewObjectType(types.Options{Model: track, Registry: reg, FilterFields: []string{"title"}})
	require.NoError(t, err)
	list, err := fields.FilterListField(trackType, fields.ListConfig{})
	require.NoError(t, err)

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: "Query",
			Fields: graphql.Fields{
				"track":     fields.ObjectField(trackType),
				"allTracks": list,
			},
		}),
		Directives: append(reg.Directives(), graphql.IncludeDirective, graphql.SkipDirective),
	})
	require.NoError(t, err)

	out := sdl.Print(schema)

	assert.Contains(t, out, "schema {")
	assert.Contains(t, out, "query: Query")
	assert.Contains(t, out, "type TrackGenericType")
	assert.Contains(t, out, "title: String!")
	assert.Contains(t, out, "plays: Int")
	assert.Contains(t, out, "enum TrackQualityEnum")
	assert.Contains(t, out, "directive @shuffle")
	assert.Contains(t, out, "directive @sample")
	assert.NotContains(t, out, "directive @include", "built-in directives are not re-declared")
	assert.NotContains(t, out, "__Schema", "introspection types are not printed")
}
