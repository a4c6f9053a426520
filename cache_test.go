package modelgraph

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set_get_delete", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), v)

		require.NoError(t, c.Delete(ctx, "k"))
		v, err = c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, v, "missing keys read as nil, not an error")
	})

	t.Run("entries_expire", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
		time.Sleep(20 * time.Millisecond)

		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("clear_drops_everything", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
		require.NoError(t, c.Clear(ctx))

		v, err := c.Get(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("do_collapses_concurrent_loads", func(t *testing.T) {
		c := NewMemoryCache()
		var loads atomic.Int32
		load := func() ([]byte, error) {
			loads.Add(1)
			time.Sleep(5 * time.Millisecond)
			return []byte("loaded"), nil
		}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := c.Do(ctx, "k", 0, load)
				assert.NoError(t, err)
				assert.Equal(t, []byte("loaded"), v)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), loads.Load())

		_, err := c.Do(ctx, "k", 0, load)
		require.NoError(t, err)
		assert.Equal(t, int32(1), loads.Load(), "subsequent reads hit the cache")
	})
}

func TestCacheKey(t *testing.T) {
	k := CacheKey{Model: "User", Operation: "list", Predicates: "name=Ann", OrderBy: "-id", Limit: 10, Offset: 5}
	assert.Equal(t, "User:list:name=Ann:-id:10:5", k.String())
}

func TestPredicateKey(t *testing.T) {
	assert.Empty(t, PredicateKey(nil))

	a := PredicateKey(map[string]any{"name": "Ann", "age": 3})
	b := PredicateKey(map[string]any{"age": 3, "name": "Ann"})
	assert.Equal(t, a, b, "key is stable regardless of map order")
	assert.Equal(t, "age=3,name=Ann", a)
}

func TestEncodeDecodeCached(t *testing.T) {
	type payload struct {
		Count   int              `msgpack:"count"`
		Records []map[string]any `msgpack:"records"`
	}
	in := payload{Count: 2, Records: []map[string]any{{"id": 1, "name": "Ann"}}}

	data, err := EncodeCached(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, DecodeCached(data, &out))
	assert.Equal(t, 2, out.Count)
	require.Len(t, out.Records, 1)
	assert.EqualValues(t, 1, out.Records[0]["id"])
	assert.Equal(t, "Ann", out.Records[0]["name"])
}
