// Package memory provides an in-process implementation of the model query
// contracts. It backs tests and examples; production deployments plug in a
// real store such as model/sqlmodel.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/model"
)

// Manager is an in-memory model.Manager with auto-incremented integer
// primary keys. It is safe for concurrent use.
type Manager struct {
	model model.Model

	mu      sync.RWMutex
	nextPK  int
	records []map[string]any
}

// NewManager returns an empty manager for the model and binds itself as the
// model's default query source when the model is a *model.Builder.
func NewManager(m model.Model) *Manager {
	mgr := &Manager{model: m, nextPK: 1}
	if b, ok := m.(*model.Builder); ok {
		b.Bind(mgr)
	}
	return mgr
}

// Model implements model.Manager.
func (m *Manager) Model() model.Model { return m.model }

// QuerySet implements model.Manager.
func (m *Manager) QuerySet() model.QuerySet {
	return &querySet{manager: m, limit: -1}
}

// Create implements model.Manager.
func (m *Manager) Create(_ context.Context, values map[string]any) (model.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := make(map[string]any, len(values)+1)
	for k, v := range values {
		rec[k] = v
	}
	pkName := model.PKField(m.model).Name
	if _, ok := rec[pkName]; !ok {
		rec[pkName] = m.nextPK
		m.nextPK++
	}
	m.records = append(m.records, rec)
	return &instance{manager: m, record: rec}, nil
}

// Update implements model.Manager. Only the given values change.
func (m *Manager) Update(_ context.Context, pk any, values map[string]any) (model.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.findLocked(pk)
	if rec == nil {
		return nil, modelgraph.NewNotFoundErrorWithID(m.model.Name(), pk)
	}
	for k, v := range values {
		rec[k] = v
	}
	return &instance{manager: m, record: rec}, nil
}

// Delete implements model.Manager.
func (m *Manager) Delete(_ context.Context, pk any) (model.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.records {
		if pkEqual(rec[model.PKField(m.model).Name], pk) {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return &instance{manager: m, record: rec}, nil
		}
	}
	return nil, modelgraph.NewNotFoundErrorWithID(m.model.Name(), pk)
}

// AddRelated implements model.Manager. Related primary keys accumulate under
// the to-many attribute name.
func (m *Manager) AddRelated(_ context.Context, pk any, field string, related []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.findLocked(pk)
	if rec == nil {
		return modelgraph.NewNotFoundErrorWithID(m.model.Name(), pk)
	}
	existing, _ := rec[field].([]any)
	rec[field] = append(existing, related...)
	return nil
}

func (m *Manager) findLocked(pk any) map[string]any {
	pkName := model.PKField(m.model).Name
	for _, rec := range m.records {
		if pkEqual(rec[pkName], pk) {
			return rec
		}
	}
	return nil
}

func (m *Manager) snapshot() []map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]map[string]any, len(m.records))
	copy(out, m.records)
	return out
}

type querySet struct {
	manager *Manager
	preds   []model.Predicate
	order   []string
	offset  int
	limit   int
}

func (q *querySet) clone() *querySet {
	cp := *q
	cp.preds = append([]model.Predicate(nil), q.preds...)
	cp.order = append([]string(nil), q.order...)
	return &cp
}

// Filter implements model.QuerySet.
func (q *querySet) Filter(preds ...model.Predicate) model.QuerySet {
	cp := q.clone()
	cp.preds = append(cp.preds, preds...)
	return cp
}

// OrderBy implements model.QuerySet.
func (q *querySet) OrderBy(fields ...string) model.QuerySet {
	cp := q.clone()
	cp.order = append([]string(nil), fields...)
	return cp
}

// Slice implements model.QuerySet.
func (q *querySet) Slice(offset, limit int) model.QuerySet {
	cp := q.clone()
	cp.offset, cp.limit = offset, limit
	return cp
}

// All implements model.QuerySet.
func (q *querySet) All(_ context.Context) ([]model.Instance, error) {
	recs := q.matching()
	if q.offset > 0 {
		if q.offset >= len(recs) {
			recs = nil
		} else {
			recs = recs[q.offset:]
		}
	}
	if q.limit >= 0 && q.limit < len(recs) {
		recs = recs[:q.limit]
	}
	out := make([]model.Instance, len(recs))
	for i, rec := range recs {
		out[i] = &instance{manager: q.manager, record: rec}
	}
	return out, nil
}

// Get implements model.QuerySet.
func (q *querySet) Get(_ context.Context, pk any) (model.Instance, error) {
	pkName := model.PKField(q.manager.model).Name
	for _, rec := range q.matching() {
		if pkEqual(rec[pkName], pk) {
			return &instance{manager: q.manager, record: rec}, nil
		}
	}
	return nil, modelgraph.NewNotFoundErrorWithID(q.manager.model.Name(), pk)
}

// Count implements model.QuerySet. The window is ignored on purpose: count
// reflects the filtered collection, not the page.
func (q *querySet) Count(_ context.Context) (int, error) {
	return len(q.matching()), nil
}

func (q *querySet) matching() []map[string]any {
	recs := q.manager.snapshot()
	if len(q.preds) > 0 {
		filtered := recs[:0:0]
		for _, rec := range recs {
			if matches(rec, q.preds) {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}
	if len(q.order) > 0 {
		sorted := append([]map[string]any(nil), recs...)
		sort.SliceStable(sorted, func(i, j int) bool {
			for _, field := range q.order {
				desc := strings.HasPrefix(field, "-")
				name := strings.TrimPrefix(field, "-")
				c := compare(sorted[i][name], sorted[j][name])
				if c == 0 {
					continue
				}
				if desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
		recs = sorted
	}
	return recs
}

func matches(rec map[string]any, preds []model.Predicate) bool {
	for _, p := range preds {
		v := rec[p.Field]
		switch p.Lookup {
		case model.LookupExact:
			if compare(v, p.Value) != 0 {
				return false
			}
		case model.LookupIn:
			if !containsValue(p.Value, v) {
				return false
			}
		case model.LookupIContains:
			s, _ := v.(string)
			sub := fmt.Sprint(p.Value)
			if !strings.Contains(strings.ToLower(s), strings.ToLower(sub)) {
				return false
			}
		case model.LookupGT:
			if compare(v, p.Value) <= 0 {
				return false
			}
		case model.LookupGTE:
			if compare(v, p.Value) < 0 {
				return false
			}
		case model.LookupLT:
			if compare(v, p.Value) >= 0 {
				return false
			}
		case model.LookupLTE:
			if compare(v, p.Value) > 0 {
				return false
			}
		case model.LookupIsNull:
			isNull, _ := p.Value.(bool)
			if (v == nil) != isNull {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func containsValue(values any, v any) bool {
	switch vs := values.(type) {
	case []any:
		for _, cand := range vs {
			if compare(v, cand) == 0 {
				return true
			}
		}
	case []int:
		for _, cand := range vs {
			if compare(v, cand) == 0 {
				return true
			}
		}
	case []string:
		for _, cand := range vs {
			if compare(v, cand) == 0 {
				return true
			}
		}
	}
	return false
}

// compare orders two attribute values. Numeric values compare numerically
// across int/float representations; times chronologically; everything else
// by string form.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func pkEqual(a, b any) bool { return compare(a, b) == 0 }

type instance struct {
	manager *Manager
	record  map[string]any
}

// Model implements model.Instance.
func (in *instance) Model() model.Model { return in.manager.model }

// PK implements model.Instance.
func (in *instance) PK() any {
	return in.record[model.PKField(in.manager.model).Name]
}

// Get implements model.Instance.
func (in *instance) Get(name string) any { return in.record[name] }

// Related implements model.Instance. One-to-many accessors resolve through
// the foreign key on the related model; many-to-many through the locally
// stored key list.
func (in *instance) Related(name string) (model.QuerySet, bool) {
	f, ok := model.FieldByName(in.manager.model, name)
	if !ok || !f.Kind.IsToMany() {
		return nil, false
	}
	rel := f.RelModel()
	if rel == nil {
		return nil, false
	}
	switch f.Kind {
	case model.KindOneToMany:
		preds := model.ExtraFilters(in, rel)
		if len(preds) == 0 {
			return nil, false
		}
		return rel.Objects().QuerySet().Filter(preds...), true
	case model.KindManyToMany:
		pks, _ := in.record[name].([]any)
		pkName := model.PKField(rel).Name
		return rel.Objects().QuerySet().Filter(model.In(pkName, pks)), true
	}
	return nil, false
}
