package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Empty(t, s.DefaultPaginationClass)
	assert.Zero(t, s.DefaultPageSize)
	assert.Zero(t, s.MaxPageSize)
	assert.False(t, s.CleanResponse)
	assert.False(t, s.CacheActive)
	assert.Equal(t, 5*time.Minute, s.CacheTimeout)
}

func TestParse(t *testing.T) {
	t.Run("overrides_apply_on_top_of_defaults", func(t *testing.T) {
		s, err := Parse([]byte(`
default_pagination_class: LimitOffset
default_page_size: 10
max_page_size: 100
cache_active: true
cache_timeout_seconds: 30
`))
		require.NoError(t, err)
		assert.Equal(t, PaginationLimitOffset, s.DefaultPaginationClass)
		assert.Equal(t, 10, s.DefaultPageSize)
		assert.Equal(t, 100, s.MaxPageSize)
		assert.True(t, s.CacheActive)
		assert.Equal(t, 30*time.Second, s.CacheTimeout)
	})

	t.Run("absent_keys_keep_defaults", func(t *testing.T) {
		s, err := Parse([]byte(`default_page_size: 5`))
		require.NoError(t, err)
		assert.Equal(t, 5, s.DefaultPageSize)
		assert.Equal(t, 5*time.Minute, s.CacheTimeout)
	})

	t.Run("malformed_yaml_errors", func(t *testing.T) {
		_, err := Parse([]byte(`default_page_size: [`))
		require.Error(t, err)
	})
}

func TestReplace(t *testing.T) {
	defer Reset()

	s := Defaults()
	s.DefaultPageSize = 25
	Replace(s)
	assert.Equal(t, 25, Current().DefaultPageSize)

	var seen []int
	Subscribe(func(s Settings) { seen = append(seen, s.DefaultPageSize) })
	s.DefaultPageSize = 50
	Replace(s)
	require.Len(t, seen, 1)
	assert.Equal(t, 50, seen[0])
}

func TestWatch(t *testing.T) {
	defer Reset()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_page_size: 3\n"), 0o644))

	hook := graphql.FieldResolveFn(func(graphql.ResolveParams) (any, error) { return nil, nil })
	s := Defaults()
	s.ObjectFieldResolver = hook
	Replace(s)

	stop, err := Watch(path)
	require.NoError(t, err)
	defer stop()

	assert.Equal(t, 3, Current().DefaultPageSize)
	assert.NotNil(t, Current().ObjectFieldResolver, "hooks survive the initial load")

	require.NoError(t, os.WriteFile(path, []byte("default_page_size: 8\n"), 0o644))
	require.Eventually(t, func() bool {
		return Current().DefaultPageSize == 8
	}, 3*time.Second, 20*time.Millisecond)
	assert.NotNil(t, Current().ObjectFieldResolver, "hooks survive reloads")

	require.NoError(t, os.WriteFile(path, []byte("default_page_size: [\n"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 8, Current().DefaultPageSize, "a broken file keeps the last good settings")

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 8, Current().DefaultPageSize, "a truncated file keeps the last good settings")
}
