// Package registry maps model identities to previously synthesized schema
// types, and directive names to directive implementations. A process-wide
// default registry exists for convenience; schema builds that need isolation
// pass private instances to the type factories.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-openapi/inflect"
	"github.com/graphql-go/graphql"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/model"
)

// Mode tags an input-type registration with the mutation operation it was
// synthesized for. Output types register with no mode.
type Mode string

// Input modes.
const (
	ModeNone   Mode = ""
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
	ModeDelete Mode = "delete"
)

// Kind discriminates the two registrable type kinds.
type Kind int

const (
	// KindObject marks a synthesized output object type.
	KindObject Kind = iota + 1
	// KindInput marks a synthesized input object type.
	KindInput
)

// Type is the contract synthesized types satisfy to be registrable.
type Type interface {
	// ModelName returns the name of the bound model.
	ModelName() string
	// Registry returns the registry the type was built against.
	Registry() *Registry
	// SkipRegistry reports whether the type opted out of registration.
	SkipRegistry() bool
	// RegistryKind returns the type's registrable kind.
	RegistryKind() Kind
	// GraphQL returns the underlying schema type.
	GraphQL() graphql.Type
}

// Directive is the contract of executable directive extensions.
type Directive interface {
	// Name returns the directive name as written in queries.
	Name() string
	// Definition returns the schema-level directive declaration.
	Definition() *graphql.Directive
	// Resolve post-processes a resolved field value with the directive's
	// arguments.
	Resolve(value any, args map[string]any, p graphql.ResolveParams) (any, error)
}

// Registry is the lookup table from model identity (plus optional input
// mode) to synthesized schema type. Registration is serialized behind a
// mutex; lookups take shared locks, so build-time writes and request-time
// reads may overlap safely.
type Registry struct {
	mu         sync.RWMutex
	types      map[string]Type
	enums      map[string]*graphql.Enum
	directives map[string]Directive
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		types:      make(map[string]Type),
		enums:      make(map[string]*graphql.Enum),
		directives: make(map[string]Directive),
	}
}

// Key normalizes a (model name, mode) pair into the registry key: the model
// name lower-cased, suffixed by the mode when present, camel-cased to match
// schema naming conventions.
func Key(modelName string, mode Mode) string {
	key := strings.ToLower(modelName)
	if mode != ModeNone {
		key += "_" + string(mode)
	}
	return inflect.CamelizeDownFirst(key)
}

// Register stores a synthesized type under its model identity. It fails
// when the type kind is unrecognized, when the type was built against a
// different registry, or when the key is already taken. Types that opt out
// via SkipRegistry are accepted and ignored.
func (r *Registry) Register(t Type, mode Mode) error {
	if k := t.RegistryKind(); k != KindObject && k != KindInput {
		return modelgraph.NewRegistrationError(
			Key(t.ModelName(), mode),
			fmt.Errorf("unrecognized type kind %d: only object and input model types can be registered", k),
		)
	}
	if t.Registry() != r {
		return modelgraph.NewRegistrationError(
			Key(t.ModelName(), mode),
			errors.New("registry for a model type has to match"),
		)
	}
	if t.SkipRegistry() {
		return nil
	}
	key := Key(t.ModelName(), mode)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[key]; ok {
		return modelgraph.NewRegistrationError(key, modelgraph.ErrAlreadyRegistered)
	}
	r.types[key] = t
	return nil
}

// TypeForModel returns the registered type for the model and mode, or nil.
// Absence is not an error; callers typically synthesize a default type on
// demand.
func (r *Registry) TypeForModel(m model.Model, mode Mode) Type {
	return r.typeForKey(Key(m.Name(), mode))
}

func (r *Registry) typeForKey(key string) Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.types[key]
}

// RegisterEnum stores a synthesized enum under the given key, keeping one
// schema enum per (model, field) pair. Re-registration returns the type
// registered first.
func (r *Registry) RegisterEnum(key string, enum *graphql.Enum) *graphql.Enum {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.enums[key]; ok {
		return existing
	}
	r.enums[key] = enum
	return enum
}

// EnumFor returns the enum registered under the key, or nil.
func (r *Registry) EnumFor(key string) *graphql.Enum {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enums[key]
}

// RegisterDirective stores a directive implementation under its name.
func (r *Registry) RegisterDirective(d Directive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directives[d.Name()] = d
}

// DirectiveFor returns the directive registered under the name, or nil.
func (r *Registry) DirectiveFor(name string) Directive {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.directives[name]
}

// Directives returns the schema declarations of all registered directives.
func (r *Registry) Directives() []*graphql.Directive {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*graphql.Directive, 0, len(r.directives))
	for _, d := range r.directives {
		out = append(out, d.Definition())
	}
	return out
}

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the process-wide registry, creating it on first use.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = New()
	}
	return defaultRegistry
}

// ResetDefault discards the process-wide registry. Intended for test
// isolation; the next Default call creates a fresh one.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = nil
}
