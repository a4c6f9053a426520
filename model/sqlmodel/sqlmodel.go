// Package sqlmodel implements the model Manager and QuerySet contracts on
// database/sql. Statements are rendered per dialect with bound parameters;
// rows scan into generic attribute maps keyed by model field name.
//
// Column mapping follows relational conventions: scalar fields map to
// same-named columns, foreign keys to "<field>_id", and many-to-many
// relations to a join table "<table>_<field>" carrying a key column per
// side.
package sqlmodel

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/inflect"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/model"
)

// Supported dialect names.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite3"
	Postgres = "postgres"
)

// Driver couples a database handle with the dialect its statements are
// rendered for.
type Driver struct {
	db      *sql.DB
	dialect string
}

// Open wraps database/sql.Open and returns a Driver for the dialect.
func Open(dialect, source string) (*Driver, error) {
	db, err := sql.Open(dialect, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(dialect, db), nil
}

// NewDriver wraps an existing database handle.
func NewDriver(dialect string, db *sql.DB) *Driver {
	return &Driver{db: db, dialect: dialect}
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect returns the dialect name statements are rendered for.
func (d *Driver) Dialect() string { return d.dialect }

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.db.Close() }

// placeholder renders the n-th (1-based) bound parameter for the dialect.
func (d *Driver) placeholder(n int) string {
	if d.dialect == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Manager is a write-capable query source over one table.
type Manager struct {
	driver *Driver
	model  model.Model
	table  string
}

// NewManager binds a builder-declared model to its table on the driver and
// installs itself as the model's default query source. The table name
// defaults to the pluralized, underscored model name.
func NewManager(d *Driver, b *model.Builder, table string) *Manager {
	if table == "" {
		table = inflect.Tableize(b.Name())
	}
	m := &Manager{driver: d, model: b, table: table}
	b.Bind(m)
	return m
}

// Model implements model.Manager.
func (m *Manager) Model() model.Model { return m.model }

// Table returns the bound table name.
func (m *Manager) Table() string { return m.table }

// QuerySet implements model.Manager.
func (m *Manager) QuerySet() model.QuerySet {
	return &querySet{mgr: m, limit: -1}
}

// Create implements model.Manager.
func (m *Manager) Create(ctx context.Context, values map[string]any) (model.Instance, error) {
	var (
		cols   []string
		params []string
		args   []any
	)
	for _, f := range m.model.Fields() {
		if f.Kind == model.KindID || f.Kind.IsToMany() {
			continue
		}
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		cols = append(cols, m.column(f))
		params = append(params, m.driver.placeholder(len(args)+1))
		args = append(args, v)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		m.table, strings.Join(cols, ", "), strings.Join(params, ", "))
	if m.driver.dialect == Postgres {
		pk := model.PKField(m.model)
		query += " RETURNING " + m.column(pk)
		var id int64
		if err := m.driver.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return nil, err
		}
		return m.QuerySet().Get(ctx, id)
	}
	res, err := m.driver.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return m.QuerySet().Get(ctx, id)
}

// Update implements model.Manager. Only the given values change; the
// record is re-read and returned after the write.
func (m *Manager) Update(ctx context.Context, pk any, values map[string]any) (model.Instance, error) {
	if _, err := m.QuerySet().Get(ctx, pk); err != nil {
		return nil, err
	}
	var (
		sets []string
		args []any
	)
	for _, f := range m.model.Fields() {
		if f.Kind == model.KindID || f.Kind.IsToMany() {
			continue
		}
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = %s", m.column(f), m.driver.placeholder(len(args))))
	}
	if len(sets) > 0 {
		args = append(args, pk)
		query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
			m.table, strings.Join(sets, ", "), m.pkColumn(), m.driver.placeholder(len(args)))
		if _, err := m.driver.db.ExecContext(ctx, query, args...); err != nil {
			return nil, err
		}
	}
	return m.QuerySet().Get(ctx, pk)
}

// Delete implements model.Manager. It returns the removed record's former
// state, or a not-found error when no row matches.
func (m *Manager) Delete(ctx context.Context, pk any) (model.Instance, error) {
	inst, err := m.QuerySet().Get(ctx, pk)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		m.table, m.pkColumn(), m.driver.placeholder(1))
	if _, err := m.driver.db.ExecContext(ctx, query, pk); err != nil {
		return nil, err
	}
	return inst, nil
}

// AddRelated implements model.Manager. Rows are inserted into the relation's
// join table one pair at a time.
func (m *Manager) AddRelated(ctx context.Context, pk any, field string, related []any) error {
	f, ok := model.FieldByName(m.model, field)
	if !ok || f.Kind != model.KindManyToMany {
		return modelgraph.NewValidationError(field, modelgraph.ErrNotManyToMany)
	}
	join := m.joinTable(f)
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)",
		join.table, join.ownerCol, join.relatedCol,
		m.driver.placeholder(1), m.driver.placeholder(2))
	for _, rel := range related {
		if _, err := m.driver.db.ExecContext(ctx, query, pk, rel); err != nil {
			return err
		}
	}
	return nil
}

// joinClause names the join table of a many-to-many relation.
type joinClause struct {
	table      string
	ownerCol   string
	relatedCol string
}

func (m *Manager) joinTable(f model.Field) joinClause {
	return joinClause{
		table:      m.table + "_" + f.Name,
		ownerCol:   inflect.Underscore(m.model.Name()) + "_id",
		relatedCol: inflect.Underscore(f.RelModel().Name()) + "_id",
	}
}

// column maps a field to its column name.
func (m *Manager) column(f model.Field) string {
	if f.Kind == model.KindForeignKey {
		return f.Name + "_id"
	}
	return f.Name
}

func (m *Manager) pkColumn() string {
	return m.column(model.PKField(m.model))
}

// selectFields enumerates the scannable fields, excluding to-many relations.
func (m *Manager) selectFields() []model.Field {
	fields := m.model.Fields()
	out := make([]model.Field, 0, len(fields))
	for _, f := range fields {
		if f.Kind.IsToMany() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// querySet is an immutable SELECT under construction. Derivation methods
// copy the receiver; execution methods render and run the statement.
type querySet struct {
	mgr      *Manager
	preds    []model.Predicate
	ordering []string
	offset   int
	limit    int
	// memberOf restricts the result to rows related to a parent record
	// through a join table.
	memberOf *memberClause
}

type memberClause struct {
	join joinClause
	pk   any
}

func (q *querySet) clone() *querySet {
	cp := *q
	cp.preds = append([]model.Predicate(nil), q.preds...)
	cp.ordering = append([]string(nil), q.ordering...)
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
	cp.ordering = fields
	return cp
}

// Slice implements model.QuerySet.
func (q *querySet) Slice(offset, limit int) model.QuerySet {
	cp := q.clone()
	cp.offset, cp.limit = offset, limit
	return cp
}

// All implements model.QuerySet.
func (q *querySet) All(ctx context.Context) ([]model.Instance, error) {
	fields := q.mgr.selectFields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = q.mgr.column(f)
	}
	query, args := q.render(strings.Join(cols, ", "), true)
	rows, err := q.mgr.driver.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Instance
	for rows.Next() {
		dest := make([]any, len(fields))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		values := make(map[string]any, len(fields))
		for i, f := range fields {
			values[f.Name] = normalize(f, *dest[i].(*any))
		}
		out = append(out, &instance{mgr: q.mgr, values: values})
	}
	return out, rows.Err()
}

// Get implements model.QuerySet.
func (q *querySet) Get(ctx context.Context, pk any) (model.Instance, error) {
	results, err := q.Filter(model.Exact(model.PKField(q.mgr.model).Name, pk)).Slice(0, 1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, modelgraph.NewNotFoundErrorWithID(q.mgr.model.Name(), pk)
	}
	return results[0], nil
}

// Count implements model.QuerySet. The window is ignored.
func (q *querySet) Count(ctx context.Context) (int, error) {
	query, args := q.render("COUNT(*)", false)
	var n int
	if err := q.mgr.driver.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// render builds the SELECT statement and its bound arguments.
func (q *querySet) render(selection string, windowed bool) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	fmt.Fprintf(&b, "SELECT %s FROM %s", selection, q.mgr.table)

	var wheres []string
	for _, p := range q.preds {
		clause, predArgs := q.predicate(p, len(args))
		if clause == "" {
			continue
		}
		wheres = append(wheres, clause)
		args = append(args, predArgs...)
	}
	if q.memberOf != nil {
		clause := fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s = %s)",
			q.mgr.pkColumn(), q.memberOf.join.relatedCol, q.memberOf.join.table,
			q.memberOf.join.ownerCol, q.mgr.driver.placeholder(len(args)+1))
		wheres = append(wheres, clause)
		args = append(args, q.memberOf.pk)
	}
	if len(wheres) > 0 {
		b.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	if len(q.ordering) > 0 {
		terms := make([]string, 0, len(q.ordering))
		for _, o := range q.ordering {
			dir := "ASC"
			name := o
			if strings.HasPrefix(o, "-") {
				dir = "DESC"
				name = o[1:]
			}
			f, ok := model.FieldByName(q.mgr.model, name)
			if !ok {
				continue
			}
			terms = append(terms, q.mgr.column(f)+" "+dir)
		}
		if len(terms) > 0 {
			b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
		}
	}
	if windowed {
		if q.limit >= 0 {
			fmt.Fprintf(&b, " LIMIT %d", q.limit)
		}
		if q.offset > 0 {
			if q.limit < 0 {
				// LIMIT is required before OFFSET on MySQL and SQLite.
				b.WriteString(" LIMIT -1")
			}
			fmt.Fprintf(&b, " OFFSET %d", q.offset)
		}
	}
	return b.String(), args
}

// predicate renders one lookup as a WHERE clause fragment. argOffset is the
// number of parameters already bound.
func (q *querySet) predicate(p model.Predicate, argOffset int) (string, []any) {
	f, ok := model.FieldByName(q.mgr.model, p.Field)
	if !ok {
		return "", nil
	}
	col := q.mgr.column(f)
	next := func(args []any) string {
		return q.mgr.driver.placeholder(argOffset + len(args) + 1)
	}
	switch p.Lookup {
	case model.LookupExact:
		args := []any{p.Value}
		return fmt.Sprintf("%s = %s", col, q.mgr.driver.placeholder(argOffset+1)), args
	case model.LookupIn:
		values := toValueList(p.Value)
		if len(values) == 0 {
			return "1 = 0", nil
		}
		params := make([]string, 0, len(values))
		args := make([]any, 0, len(values))
		for _, v := range values {
			params = append(params, next(args))
			args = append(args, v)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(params, ", ")), args
	case model.LookupIContains:
		args := []any{"%" + strings.ToLower(fmt.Sprintf("%v", p.Value)) + "%"}
		return fmt.Sprintf("LOWER(%s) LIKE %s", col, q.mgr.driver.placeholder(argOffset+1)), args
	case model.LookupGT:
		return fmt.Sprintf("%s > %s", col, q.mgr.driver.placeholder(argOffset+1)), []any{p.Value}
	case model.LookupGTE:
		return fmt.Sprintf("%s >= %s", col, q.mgr.driver.placeholder(argOffset+1)), []any{p.Value}
	case model.LookupLT:
		return fmt.Sprintf("%s < %s", col, q.mgr.driver.placeholder(argOffset+1)), []any{p.Value}
	case model.LookupLTE:
		return fmt.Sprintf("%s <= %s", col, q.mgr.driver.placeholder(argOffset+1)), []any{p.Value}
	case model.LookupIsNull:
		if isTrue(p.Value) {
			return col + " IS NULL", nil
		}
		return col + " IS NOT NULL", nil
	default:
		return "", nil
	}
}

// instance is one scanned row.
type instance struct {
	mgr    *Manager
	values map[string]any
}

// Model implements model.Instance.
func (i *instance) Model() model.Model { return i.mgr.model }

// PK implements model.Instance.
func (i *instance) PK() any {
	return i.values[model.PKField(i.mgr.model).Name]
}

// Get implements model.Instance.
func (i *instance) Get(name string) any { return i.values[name] }

// Related implements model.Instance. One-to-many accessors resolve through
// the related model's default query source scoped by the back reference;
// many-to-many accessors restrict through the join table.
func (i *instance) Related(name string) (model.QuerySet, bool) {
	f, ok := model.FieldByName(i.mgr.model, name)
	if !ok || !f.Kind.IsToMany() {
		return nil, false
	}
	rel := f.RelModel()
	if rel == nil {
		return nil, false
	}
	switch f.Kind {
	case model.KindOneToMany:
		preds := model.ExtraFilters(i, rel)
		if len(preds) == 0 {
			return nil, false
		}
		return rel.Objects().QuerySet().Filter(preds...), true
	case model.KindManyToMany:
		relMgr, ok := rel.Objects().(*Manager)
		if !ok {
			return nil, false
		}
		qs := relMgr.QuerySet().(*querySet).clone()
		qs.memberOf = &memberClause{join: i.mgr.joinTable(f), pk: i.PK()}
		return qs, true
	}
	return nil, false
}

// normalize coerces driver-native scan values to the field's natural Go
// representation.
func normalize(f model.Field, v any) any {
	if v == nil {
		return nil
	}
	switch f.Kind {
	case model.KindID, model.KindInt, model.KindForeignKey:
		switch n := v.(type) {
		case int64:
			return int(n)
		case []byte:
			return string(n)
		}
	case model.KindBool:
		switch n := v.(type) {
		case int64:
			return n != 0
		case bool:
			return n
		}
	case model.KindString, model.KindEnum, model.KindUUID:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
	case model.KindTime:
		switch n := v.(type) {
		case time.Time:
			return n
		case string:
			if t, err := time.Parse(time.RFC3339, n); err == nil {
				return t
			}
		}
	}
	return v
}

func toValueList(v any) []any {
	switch values := v.(type) {
	case []any:
		return values
	case []string:
		out := make([]any, len(values))
		for i, s := range values {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(values))
		for i, n := range values {
			out[i] = n
		}
		return out
	case nil:
		return nil
	default:
		return []any{v}
	}
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
