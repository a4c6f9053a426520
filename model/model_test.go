package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("id_is_prepended_when_missing", func(t *testing.T) {
		m := New("User", String("name"))
		fields := m.Fields()
		require.Len(t, fields, 2)
		assert.Equal(t, "id", fields[0].Name)
		assert.Equal(t, KindID, fields[0].Kind)
	})

	t.Run("declared_id_is_kept", func(t *testing.T) {
		m := New("User", ID(), String("name"))
		assert.Len(t, m.Fields(), 2)
	})

	t.Run("objects_panics_without_a_manager", func(t *testing.T) {
		m := New("User")
		assert.Panics(t, func() { m.Objects() })
	})
}

func TestFieldRequired(t *testing.T) {
	assert.True(t, String("name").f.Required())
	assert.False(t, String("name").Nullable().f.Required())
	assert.False(t, String("name").Default().f.Required())
	assert.False(t, ID().f.Required())
	assert.False(t, ManyToMany("tags", nil).f.Required())
}

func TestKind(t *testing.T) {
	assert.True(t, KindForeignKey.IsRelation())
	assert.True(t, KindManyToMany.IsRelation())
	assert.True(t, KindOneToMany.IsToMany())
	assert.True(t, KindManyToMany.IsToMany())
	assert.False(t, KindForeignKey.IsToMany())
	assert.False(t, KindString.IsRelation())
}

func TestRelThunks(t *testing.T) {
	var author, book *Builder
	author = New("Author",
		String("name"),
		ToMany("books", func() Model { return book }),
	)
	book = New("Book",
		String("title"),
		ToOne("author", func() Model { return author }),
	)

	f, ok := FieldByName(author, "books")
	require.True(t, ok)
	assert.Equal(t, "Book", f.RelModel().Name(), "thunks resolve after both models exist")

	f, ok = FieldByName(book, "author")
	require.True(t, ok)
	assert.Equal(t, "Author", f.RelModel().Name())
}

func TestExtraFilters(t *testing.T) {
	var author, book *Builder
	author = New("Author",
		String("name"),
		ToMany("books", func() Model { return book }),
	)
	book = New("Book",
		String("title"),
		ToOne("author", func() Model { return author }),
	)

	parent := stubInstance{model: author, values: map[string]any{"id": 7, "name": "Ann"}}
	preds := ExtraFilters(parent, book)
	require.Len(t, preds, 1)
	assert.Equal(t, "author", preds[0].Field)
	assert.Equal(t, LookupExact, preds[0].Lookup)
	assert.Equal(t, 7, preds[0].Value)

	assert.Empty(t, ExtraFilters(parent, author), "no back reference, no extra filters")
}

type stubInstance struct {
	model  Model
	values map[string]any
}

func (s stubInstance) Model() Model                     { return s.model }
func (s stubInstance) PK() any                          { return s.values["id"] }
func (s stubInstance) Get(name string) any              { return s.values[name] }
func (s stubInstance) Related(string) (QuerySet, bool)  { return nil, false }
