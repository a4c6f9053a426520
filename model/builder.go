package model

// Builder assembles a Model from field declarations. It is the declarative
// entry point backends attach a Manager to:
//
//	user := model.New("User",
//	    model.ID(),
//	    model.String("name"),
//	    model.Int("age").Nullable(),
//	    model.ToMany("posts", func() model.Model { return Post }),
//	)
type Builder struct {
	name    string
	fields  []Field
	manager Manager
}

// New returns a model with the given name and fields. Models without a
// KindID field get one prepended.
func New(name string, fields ...*FieldBuilder) *Builder {
	b := &Builder{name: name}
	hasID := false
	for _, fb := range fields {
		if fb.f.Kind == KindID {
			hasID = true
		}
		b.fields = append(b.fields, fb.f)
	}
	if !hasID {
		b.fields = append([]Field{{Name: "id", Kind: KindID}}, b.fields...)
	}
	return b
}

// Name implements Model.
func (b *Builder) Name() string { return b.name }

// Fields implements Model.
func (b *Builder) Fields() []Field { return b.fields }

// Objects implements Model. It panics when no manager was bound; binding
// happens when a backend adopts the model.
func (b *Builder) Objects() Manager {
	if b.manager == nil {
		panic("model: " + b.name + " has no bound manager")
	}
	return b.manager
}

// Bind attaches the default query source. Backends call this once.
func (b *Builder) Bind(m Manager) *Builder {
	b.manager = m
	return b
}

// FieldBuilder configures a single field declaration.
type FieldBuilder struct {
	f Field
}

// Nullable marks the field as optional in storage.
func (fb *FieldBuilder) Nullable() *FieldBuilder {
	fb.f.Nullable = true
	return fb
}

// Default marks the field as backend-defaulted when omitted on create.
func (fb *FieldBuilder) Default() *FieldBuilder {
	fb.f.HasDefault = true
	return fb
}

// ID declares the primary-key field.
func ID() *FieldBuilder { return &FieldBuilder{Field{Name: "id", Kind: KindID}} }

// String declares a text field.
func String(name string) *FieldBuilder { return &FieldBuilder{Field{Name: name, Kind: KindString}} }

// Int declares an integer field.
func Int(name string) *FieldBuilder { return &FieldBuilder{Field{Name: name, Kind: KindInt}} }

// Float declares a floating-point field.
func Float(name string) *FieldBuilder { return &FieldBuilder{Field{Name: name, Kind: KindFloat}} }

// Bool declares a boolean field.
func Bool(name string) *FieldBuilder { return &FieldBuilder{Field{Name: name, Kind: KindBool}} }

// Time declares a date-time field.
func Time(name string) *FieldBuilder { return &FieldBuilder{Field{Name: name, Kind: KindTime}} }

// UUID declares a UUID field.
func UUID(name string) *FieldBuilder { return &FieldBuilder{Field{Name: name, Kind: KindUUID}} }

// Bytes declares a binary field.
func Bytes(name string) *FieldBuilder { return &FieldBuilder{Field{Name: name, Kind: KindBytes}} }

// Enum declares a string field restricted to the given values.
func Enum(name string, values ...string) *FieldBuilder {
	return &FieldBuilder{Field{Name: name, Kind: KindEnum, Values: values}}
}

// ToOne declares a foreign-key relation to another model.
func ToOne(name string, rel RelThunk) *FieldBuilder {
	return &FieldBuilder{Field{Name: name, Kind: KindForeignKey, Rel: rel}}
}

// ToMany declares the reverse side of a foreign key.
func ToMany(name string, rel RelThunk) *FieldBuilder {
	return &FieldBuilder{Field{Name: name, Kind: KindOneToMany, Rel: rel}}
}

// ManyToMany declares an owned to-many relation.
func ManyToMany(name string, rel RelThunk) *FieldBuilder {
	return &FieldBuilder{Field{Name: name, Kind: KindManyToMany, Rel: rel}}
}
