package sqlmodel

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/model"
)

const librarySchema = `
CREATE TABLE authors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE TABLE tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT NOT NULL
);
CREATE TABLE books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	pages INTEGER,
	author_id INTEGER REFERENCES authors (id)
);
CREATE TABLE books_tags (
	book_id INTEGER NOT NULL REFERENCES books (id),
	tag_id INTEGER NOT NULL REFERENCES tags (id)
);
`

type library struct {
	author, book, tag *model.Builder
}

func newLibrary(t *testing.T) *library {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(librarySchema)
	require.NoError(t, err)

	var author, book, tag *model.Builder
	author = model.New("Author",
		model.String("name"),
		model.ToMany("books", func() model.Model { return book }),
	)
	tag = model.New("Tag", model.String("label"))
	book = model.New("Book",
		model.String("title"),
		model.Int("pages").Nullable(),
		model.ToOne("author", func() model.Model { return author }),
		model.ManyToMany("tags", func() model.Model { return tag }),
	)

	d := NewDriver(SQLite, db)
	NewManager(d, author, "")
	NewManager(d, tag, "")
	NewManager(d, book, "")
	return &library{author: author, book: book, tag: tag}
}

func TestSQLiteRoundTrip(t *testing.T) {
	lib := newLibrary(t)
	ctx := context.Background()

	ann, err := lib.author.Objects().Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)

	first, err := lib.book.Objects().Create(ctx, map[string]any{
		"title": "Practical Graphs", "pages": 320, "author": ann.PK(),
	})
	require.NoError(t, err)
	_, err = lib.book.Objects().Create(ctx, map[string]any{
		"title": "Schema Design", "author": ann.PK(),
	})
	require.NoError(t, err)

	t.Run("get_normalizes_scanned_values", func(t *testing.T) {
		got, err := lib.book.Objects().QuerySet().Get(ctx, first.PK())
		require.NoError(t, err)
		assert.Equal(t, "Practical Graphs", got.Get("title"))
		assert.Equal(t, 320, got.Get("pages"))
		assert.Equal(t, ann.PK(), got.Get("author"))
	})

	t.Run("filter_order_and_window", func(t *testing.T) {
		results, err := lib.book.Objects().QuerySet().
			Filter(model.Predicate{Field: "title", Lookup: model.LookupIContains, Value: "GRAPH"}).
			All(ctx)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, first.PK(), results[0].PK())

		ordered, err := lib.book.Objects().QuerySet().OrderBy("-id").Slice(0, 1).All(ctx)
		require.NoError(t, err)
		require.Len(t, ordered, 1)
		assert.Equal(t, "Schema Design", ordered[0].Get("title"))
	})

	t.Run("count_ignores_the_window", func(t *testing.T) {
		n, err := lib.book.Objects().QuerySet().Slice(0, 1).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("null_lookup", func(t *testing.T) {
		unpaged, err := lib.book.Objects().QuerySet().
			Filter(model.Predicate{Field: "pages", Lookup: model.LookupIsNull, Value: true}).
			All(ctx)
		require.NoError(t, err)
		require.Len(t, unpaged, 1)
		assert.Equal(t, "Schema Design", unpaged[0].Get("title"))
	})

	t.Run("update_and_delete", func(t *testing.T) {
		doomed, err := lib.book.Objects().Create(ctx, map[string]any{"title": "Drafts", "author": ann.PK()})
		require.NoError(t, err)

		updated, err := lib.book.Objects().Update(ctx, doomed.PK(), map[string]any{"pages": 12})
		require.NoError(t, err)
		assert.Equal(t, 12, updated.Get("pages"))
		assert.Equal(t, "Drafts", updated.Get("title"))

		former, err := lib.book.Objects().Delete(ctx, doomed.PK())
		require.NoError(t, err)
		assert.Equal(t, "Drafts", former.Get("title"))
		_, err = lib.book.Objects().QuerySet().Get(ctx, doomed.PK())
		assert.True(t, modelgraph.IsNotFound(err))
	})

	t.Run("relations_traverse_both_directions", func(t *testing.T) {
		annInst, err := lib.author.Objects().QuerySet().Get(ctx, ann.PK())
		require.NoError(t, err)
		qs, ok := annInst.Related("books")
		require.True(t, ok)
		books, err := qs.All(ctx)
		require.NoError(t, err)
		assert.Len(t, books, 2)

		tech, err := lib.tag.Objects().Create(ctx, map[string]any{"label": "tech"})
		require.NoError(t, err)
		require.NoError(t, lib.book.Objects().AddRelated(ctx, first.PK(), "tags", []any{tech.PK()}))

		got, err := lib.book.Objects().QuerySet().Get(ctx, first.PK())
		require.NoError(t, err)
		tagSet, ok := got.Related("tags")
		require.True(t, ok)
		tags, err := tagSet.All(ctx)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "tech", tags[0].Get("label"))
	})
}
