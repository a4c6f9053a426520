package fields

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/model"
)

var (
	cacheMu       sync.RWMutex
	resolverCache modelgraph.Cache = modelgraph.NewMemoryCache()
	cacheFlight   singleflight.Group
)

// SetCache swaps the store backing cached list resolution. Passing nil
// restores the default in-memory store.
func SetCache(c modelgraph.Cache) {
	if c == nil {
		c = modelgraph.NewMemoryCache()
	}
	cacheMu.Lock()
	resolverCache = c
	cacheMu.Unlock()
}

// CacheStore returns the store currently backing cached list resolution.
func CacheStore() modelgraph.Cache {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	return resolverCache
}

// cachedList is the storable form of a resolved list-object: the count and
// the scalar columns of each windowed record.
type cachedList struct {
	Count   int              `msgpack:"count"`
	Records []map[string]any `msgpack:"records"`
}

// cachedListResult resolves a list-object through the cache. Hits are
// rehydrated as record-backed instances; misses run the load function once
// per key and store the encoded records with the given TTL. The policy
// scope takes part in the key: rows narrowed for one viewer must never be
// served to a viewer with a different scope.
func cachedListResult(ctx context.Context, m model.Model, args map[string]any, scope []model.Predicate, ttl time.Duration, load func() (*modelgraph.ListResult, error)) (any, error) {
	store := CacheStore()
	key := modelgraph.CacheKey{
		Model:      m.Name(),
		Operation:  "list",
		Predicates: modelgraph.PredicateKey(args) + scopeKey(scope),
	}.String()

	if data, err := store.Get(ctx, key); err != nil {
		return nil, err
	} else if data != nil {
		return decodeListResult(m, data)
	}

	result, err, _ := cacheFlight.Do(key, func() (any, error) {
		lr, err := load()
		if err != nil {
			return nil, err
		}
		data, err := modelgraph.EncodeCached(encodeListResult(m, lr))
		if err != nil {
			return nil, err
		}
		if err := store.Set(ctx, key, data, ttl); err != nil {
			return nil, err
		}
		return lr, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// scopeKey renders policy scope predicates into a stable key fragment.
func scopeKey(scope []model.Predicate) string {
	if len(scope) == 0 {
		return ""
	}
	parts := make([]string, len(scope))
	for i, p := range scope {
		parts[i] = fmt.Sprintf("%s.%s=%v", p.Field, p.Lookup, p.Value)
	}
	sort.Strings(parts)
	return "|" + strings.Join(parts, ",")
}

func encodeListResult(m model.Model, lr *modelgraph.ListResult) cachedList {
	records := make([]map[string]any, len(lr.Results))
	for i, inst := range lr.Results {
		records[i] = recordOf(m, inst)
	}
	return cachedList{Count: lr.Count, Records: records}
}

func decodeListResult(m model.Model, data []byte) (*modelgraph.ListResult, error) {
	var cl cachedList
	if err := modelgraph.DecodeCached(data, &cl); err != nil {
		return nil, err
	}
	results := make([]model.Instance, len(cl.Records))
	for i, rec := range cl.Records {
		results[i] = &cachedInstance{model: m, record: rec}
	}
	return &modelgraph.ListResult{Results: results, Count: cl.Count}, nil
}

// recordOf flattens an instance to its scalar and foreign-key columns.
// To-many relations are not materialized into the cache.
func recordOf(m model.Model, inst model.Instance) map[string]any {
	rec := make(map[string]any)
	for _, f := range m.Fields() {
		if f.Kind.IsToMany() {
			continue
		}
		if v := inst.Get(f.Name); v != nil {
			rec[f.Name] = v
		}
	}
	return rec
}

// cachedInstance is a record-backed instance rehydrated from the cache.
// Related accessors are not available; resolvers fall back to querying the
// related model directly.
type cachedInstance struct {
	model  model.Model
	record map[string]any
}

func (c *cachedInstance) Model() model.Model { return c.model }

func (c *cachedInstance) PK() any {
	return c.record[model.PKField(c.model).Name]
}

func (c *cachedInstance) Get(name string) any { return c.record[name] }

func (c *cachedInstance) Related(string) (model.QuerySet, bool) { return nil, false }
