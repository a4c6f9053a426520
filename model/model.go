// Package model defines the declarative data-model surface consumed by the
// schema synthesis pipeline: field descriptors with names, kinds, nullability
// and relations, plus the query contracts (Manager, QuerySet, Instance) that
// resolvers use to fetch, filter, count and mutate collections of records.
//
// The package is storage-agnostic. Backends such as model/memory and
// model/sqlmodel implement the query contracts; everything above this layer
// treats them as opaque synchronous calls.
package model

import "context"

// Kind enumerates the attribute kinds a model field can carry.
type Kind int

const (
	// KindInvalid is the zero Kind and never convertible.
	KindInvalid Kind = iota
	// KindID is the primary-key field.
	KindID
	// KindString is a text field.
	KindString
	// KindInt is an integer field.
	KindInt
	// KindFloat is a floating-point field.
	KindFloat
	// KindBool is a boolean field.
	KindBool
	// KindTime is a date-time field.
	KindTime
	// KindUUID is a UUID field.
	KindUUID
	// KindBytes is a binary field, exposed as a hex string.
	KindBytes
	// KindEnum is a string field restricted to a fixed value set.
	KindEnum
	// KindForeignKey is a to-one relation to another model.
	KindForeignKey
	// KindManyToMany is a to-many relation owned by this model.
	KindManyToMany
	// KindOneToMany is the reverse side of a foreign key.
	KindOneToMany
)

var kindNames = map[Kind]string{
	KindInvalid:    "invalid",
	KindID:         "id",
	KindString:     "string",
	KindInt:        "int",
	KindFloat:      "float",
	KindBool:       "bool",
	KindTime:       "time",
	KindUUID:       "uuid",
	KindBytes:      "bytes",
	KindEnum:       "enum",
	KindForeignKey: "fk",
	KindManyToMany: "m2m",
	KindOneToMany:  "o2m",
}

// String returns the kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// IsRelation reports whether the kind references another model.
func (k Kind) IsRelation() bool {
	return k == KindForeignKey || k == KindManyToMany || k == KindOneToMany
}

// IsToMany reports whether the kind references a collection of related records.
func (k Kind) IsToMany() bool {
	return k == KindManyToMany || k == KindOneToMany
}

// RelThunk lazily yields a related model. Relations are declared as thunks so
// that mutually referencing models can be constructed in any order.
type RelThunk func() Model

// Field describes one model attribute.
type Field struct {
	// Name is the attribute name, in snake_case by convention.
	Name string
	// Kind is the attribute kind.
	Kind Kind
	// Nullable reports whether the stored value may be absent.
	Nullable bool
	// HasDefault reports whether the backend supplies a value when the
	// attribute is omitted on create.
	HasDefault bool
	// Values holds the permitted values of a KindEnum field.
	Values []string
	// Rel yields the related model for relation kinds. Nil otherwise.
	Rel RelThunk
}

// Required reports whether the attribute must be present on create.
func (f Field) Required() bool {
	return !f.Nullable && !f.HasDefault && f.Kind != KindID && !f.Kind.IsToMany()
}

// RelModel resolves the relation target, or nil for non-relation fields.
func (f Field) RelModel() Model {
	if f.Rel == nil {
		return nil
	}
	return f.Rel()
}

// Model is a declarative description of a persisted record type.
type Model interface {
	// Name returns the model name, e.g. "User".
	Name() string
	// Fields enumerates the attribute descriptors in declaration order.
	Fields() []Field
	// Objects returns the default query source for the model.
	Objects() Manager
}

// Instance is a single record of a model.
type Instance interface {
	// Model returns the record's model.
	Model() Model
	// PK returns the primary-key value.
	PK() any
	// Get returns the value of the named attribute, or nil when unset.
	Get(name string) any
	// Related returns a query set over the records related through the
	// named to-many attribute, when the backend has it available. The
	// second result is false when the accessor is not loadable, in which
	// case callers fall back to querying the related model directly.
	Related(name string) (QuerySet, bool)
}

// Lookup names a predicate operator applied to a field.
type Lookup string

// Supported lookups.
const (
	LookupExact     Lookup = "exact"
	LookupIn        Lookup = "in"
	LookupIContains Lookup = "icontains"
	LookupGT        Lookup = "gt"
	LookupGTE       Lookup = "gte"
	LookupLT        Lookup = "lt"
	LookupLTE       Lookup = "lte"
	LookupIsNull    Lookup = "isnull"
)

// Predicate is a single filtering constraint over a collection query.
type Predicate struct {
	Field  string
	Lookup Lookup
	Value  any
}

// Exact returns an equality predicate.
func Exact(field string, value any) Predicate {
	return Predicate{Field: field, Lookup: LookupExact, Value: value}
}

// In returns a membership predicate. Value must be a slice.
func In(field string, values any) Predicate {
	return Predicate{Field: field, Lookup: LookupIn, Value: values}
}

// QuerySet is an immutable, composable window over a model collection.
// Filter, OrderBy and Slice return derived query sets; All, Get and Count
// execute against the backend.
type QuerySet interface {
	// Filter returns a query set narrowed by the given predicates.
	Filter(preds ...Predicate) QuerySet
	// OrderBy returns a query set ordered by the named fields. A leading
	// "-" reverses the order of that field.
	OrderBy(fields ...string) QuerySet
	// Slice returns a window of the query set. A negative limit means
	// unbounded.
	Slice(offset, limit int) QuerySet
	// All executes the query and returns the matching records.
	All(ctx context.Context) ([]Instance, error)
	// Get returns the single record with the given primary key, or a
	// not-found error.
	Get(ctx context.Context, pk any) (Instance, error)
	// Count returns the number of matching records, ignoring any window.
	Count(ctx context.Context) (int, error)
}

// Manager is the write-capable entry point of a model's default query source.
type Manager interface {
	// Model returns the managed model.
	Model() Model
	// QuerySet returns a fresh query set over all records.
	QuerySet() QuerySet
	// Create inserts a record from attribute values and returns it.
	Create(ctx context.Context, values map[string]any) (Instance, error)
	// Update applies a partial set of attribute values to the record with
	// the given primary key and returns the updated record.
	Update(ctx context.Context, pk any, values map[string]any) (Instance, error)
	// Delete removes the record with the given primary key and returns
	// the removed record's former state.
	Delete(ctx context.Context, pk any) (Instance, error)
	// AddRelated attaches related records to a to-many attribute.
	AddRelated(ctx context.Context, pk any, field string, related []any) error
}

// FieldByName returns the descriptor of the named field.
func FieldByName(m Model, name string) (Field, bool) {
	for _, f := range m.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// PKField returns the primary-key descriptor of the model. Models without an
// explicit KindID field fall back to a synthetic "id" descriptor.
func PKField(m Model) Field {
	for _, f := range m.Fields() {
		if f.Kind == KindID {
			return f
		}
	}
	return Field{Name: "id", Kind: KindID}
}

// RelatedFields returns the relation descriptors of the model.
func RelatedFields(m Model) []Field {
	var rels []Field
	for _, f := range m.Fields() {
		if f.Kind.IsRelation() {
			rels = append(rels, f)
		}
	}
	return rels
}

// ExtraFilters derives the constraints that scope a child-model query to a
// parent record: for every foreign key on the child that points back at the
// parent's model, an equality predicate against the parent's primary key.
func ExtraFilters(parent Instance, child Model) []Predicate {
	var preds []Predicate
	for _, f := range child.Fields() {
		if f.Kind != KindForeignKey {
			continue
		}
		rel := f.RelModel()
		if rel != nil && rel.Name() == parent.Model().Name() {
			preds = append(preds, Exact(f.Name, parent.PK()))
		}
	}
	return preds
}
