// Package serializer validates attribute data against a model and persists
// it through the model's manager. A Serializer is a single-use object bound
// to one validation+save cycle; a Factory stamps them out for the mutation
// layer.
//
// Validation failures never surface as Go errors: they accumulate in the
// field→messages map returned by Errors, which the mutation layer renders
// into the response envelope.
package serializer

import (
	"context"
	"fmt"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/model"
)

// Messages used in validation error maps.
const (
	MsgRequired      = "This field is required."
	MsgInvalidChoice = "%q is not a valid choice."
	MsgNotValidated  = "Data is not validated."
)

// ValidateFunc checks a single attribute value. A non-nil error becomes a
// validation message for the field.
type ValidateFunc func(value any) error

// Serializer is one validation+save cycle over attribute data.
type Serializer interface {
	// Model returns the model the data is validated against.
	Model() model.Model
	// IsValid runs validation once and reports whether the data can be
	// saved. Subsequent calls return the first result.
	IsValid(ctx context.Context) bool
	// Errors returns the field→messages map accumulated by IsValid.
	Errors() map[string][]string
	// ValidatedData returns the attribute values that passed validation,
	// keyed by model field name. To-many values are excluded; Save
	// attaches them after the write.
	ValidatedData() map[string]any
	// Save persists the validated data: an update when the serializer is
	// bound to an instance, an insert otherwise.
	Save(ctx context.Context) (model.Instance, error)
}

// Factory stamps out serializers for a model.
type Factory interface {
	// Model returns the model the factory serializes.
	Model() model.Model
	// New returns a serializer over the given data. A non-nil instance
	// binds the cycle to an update of that record. Partial relaxes the
	// required-field check for updates.
	New(instance model.Instance, data map[string]any, partial bool) Serializer
}

// Option configures a model serializer factory.
type Option func(*modelFactory)

// WithValidator adds a per-field validator run during IsValid.
func WithValidator(field string, fn ValidateFunc) Option {
	return func(f *modelFactory) {
		f.validators[field] = append(f.validators[field], fn)
	}
}

type modelFactory struct {
	model      model.Model
	validators map[string][]ValidateFunc
}

// NewFactory returns the reference Factory implementation: field presence,
// enum membership and custom validators, persisted through Model.Objects().
func NewFactory(m model.Model, opts ...Option) Factory {
	f := &modelFactory{model: m, validators: make(map[string][]ValidateFunc)}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *modelFactory) Model() model.Model { return f.model }

func (f *modelFactory) New(instance model.Instance, data map[string]any, partial bool) Serializer {
	return &modelSerializer{
		model:      f.model,
		instance:   instance,
		data:       data,
		partial:    partial,
		validators: f.validators,
	}
}

type modelSerializer struct {
	model      model.Model
	instance   model.Instance
	data       map[string]any
	partial    bool
	validators map[string][]ValidateFunc

	ran       bool
	valid     bool
	errs      map[string][]string
	validated map[string]any
	toMany    map[string][]any
}

func (s *modelSerializer) Model() model.Model { return s.model }

func (s *modelSerializer) IsValid(_ context.Context) bool {
	if s.ran {
		return s.valid
	}
	s.ran = true
	s.errs = make(map[string][]string)
	s.validated = make(map[string]any)
	s.toMany = make(map[string][]any)

	for _, f := range s.model.Fields() {
		value, present := s.data[f.Name]
		if !present || value == nil {
			if f.Required() && !s.partial && s.instance == nil {
				s.addError(f.Name, MsgRequired)
			}
			continue
		}
		if f.Kind == model.KindOneToMany {
			// Reverse accessors are never writable.
			continue
		}
		if f.Kind.IsToMany() {
			s.toMany[f.Name] = toAnyList(value)
			continue
		}
		if f.Kind == model.KindEnum && !validChoice(f, value) {
			s.addError(f.Name, fmt.Sprintf(MsgInvalidChoice, fmt.Sprintf("%v", value)))
			continue
		}
		if !s.runValidators(f.Name, value) {
			continue
		}
		s.validated[f.Name] = value
	}
	s.valid = len(s.errs) == 0
	return s.valid
}

func (s *modelSerializer) Errors() map[string][]string { return s.errs }

func (s *modelSerializer) ValidatedData() map[string]any { return s.validated }

func (s *modelSerializer) Save(ctx context.Context) (model.Instance, error) {
	if !s.ran || !s.valid {
		return nil, modelgraph.NewValidationError(s.model.Name(), modelgraph.ErrUnvalidatedSave)
	}
	mgr := s.model.Objects()
	var (
		inst model.Instance
		err  error
	)
	if s.instance != nil {
		inst, err = mgr.Update(ctx, s.instance.PK(), s.validated)
	} else {
		inst, err = mgr.Create(ctx, s.validated)
	}
	if err != nil {
		return nil, err
	}
	for field, related := range s.toMany {
		if err := mgr.AddRelated(ctx, inst.PK(), field, related); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func (s *modelSerializer) addError(field, msg string) {
	s.errs[field] = append(s.errs[field], msg)
}

func (s *modelSerializer) runValidators(field string, value any) bool {
	ok := true
	for _, fn := range s.validators[field] {
		if err := fn(value); err != nil {
			s.addError(field, err.Error())
			ok = false
		}
	}
	return ok
}

func validChoice(f model.Field, value any) bool {
	v := fmt.Sprintf("%v", value)
	for _, choice := range f.Values {
		if v == choice {
			return true
		}
	}
	return false
}

func toAnyList(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		return []any{v}
	}
}
