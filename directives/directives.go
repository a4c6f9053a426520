// Package directives implements executable query directives that
// post-process resolved field values, plus the resolver wrapper that applies
// them. The built-ins are @shuffle (random permutation of a list) and
// @sample(k:) (k random elements without replacement).
package directives

import (
	"math/rand"
	"reflect"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/registry"
)

var applyLocations = []string{
	graphql.DirectiveLocationField,
	graphql.DirectiveLocationFragmentSpread,
	graphql.DirectiveLocationInlineFragment,
}

// Register adds the built-in directives to a registry.
func Register(reg *registry.Registry) {
	reg.RegisterDirective(NewShuffle())
	reg.RegisterDirective(NewSample())
}

// WrapResolver chains directive post-processing after a resolver. Directives
// named on the resolved field are looked up in the registry and applied in
// query order; unknown directive names are left alone for the executor.
func WrapResolver(reg *registry.Registry, fn graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		value, err := fn(p)
		if err != nil || value == nil {
			return value, err
		}
		return Apply(reg, value, p)
	}
}

// Apply runs the directives attached to the resolved field node over value.
func Apply(reg *registry.Registry, value any, p graphql.ResolveParams) (any, error) {
	if len(p.Info.FieldASTs) == 0 {
		return value, nil
	}
	var err error
	for _, dir := range p.Info.FieldASTs[0].Directives {
		if dir == nil || dir.Name == nil {
			continue
		}
		impl := reg.DirectiveFor(dir.Name.Value)
		if impl == nil {
			continue
		}
		value, err = impl.Resolve(value, argumentValues(dir.Arguments, p.Info.VariableValues), p)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

// shuffle permutes list values uniformly at random. Non-list values pass
// through unchanged.
type shuffle struct {
	def *graphql.Directive
}

// NewShuffle returns the @shuffle directive.
func NewShuffle() registry.Directive {
	return &shuffle{
		def: graphql.NewDirective(graphql.DirectiveConfig{
			Name:        "shuffle",
			Description: "Shuffle the list in place.",
			Locations:   applyLocations,
		}),
	}
}

func (*shuffle) Name() string                     { return "shuffle" }
func (d *shuffle) Definition() *graphql.Directive { return d.def }

func (*shuffle) Resolve(value any, _ map[string]any, _ graphql.ResolveParams) (any, error) {
	list, ok := toSlice(value)
	if !ok || len(list) < 2 {
		return value, nil
	}
	rand.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
	return list, nil
}

// sample picks k elements of a list uniformly at random without replacement.
// k larger than the list samples the whole list; non-list values pass
// through unchanged.
type sample struct {
	def *graphql.Directive
}

// NewSample returns the @sample directive.
func NewSample() registry.Directive {
	return &sample{
		def: graphql.NewDirective(graphql.DirectiveConfig{
			Name:        "sample",
			Description: "Take a 'k' int argument and return a k length list of unique elements chosen from the taken list.",
			Locations:   applyLocations,
			Args: graphql.FieldConfigArgument{
				"k": &graphql.ArgumentConfig{
					Type:        graphql.NewNonNull(graphql.Int),
					Description: "Number of elements to pick.",
				},
			},
		}),
	}
}

func (*sample) Name() string                     { return "sample" }
func (d *sample) Definition() *graphql.Directive { return d.def }

func (*sample) Resolve(value any, args map[string]any, _ graphql.ResolveParams) (any, error) {
	list, ok := toSlice(value)
	if !ok {
		return value, nil
	}
	k, err := intArg(args, "k")
	if err != nil {
		return nil, err
	}
	if k < 0 {
		return nil, modelgraph.NewValidationError("k", modelgraph.ErrNegativeSample)
	}
	if k > len(list) {
		k = len(list)
	}
	out := make([]any, 0, k)
	for _, i := range rand.Perm(len(list))[:k] {
		out = append(out, list[i])
	}
	return out, nil
}

// toSlice flattens any slice value into []any.
func toSlice(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func intArg(args map[string]any, name string) (int, error) {
	switch v := args[name].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, modelgraph.NewValidationError(name, err)
		}
		return n, nil
	default:
		return 0, modelgraph.NewValidationError(name, modelgraph.ErrMissingArgument)
	}
}

// argumentValues materializes directive argument AST nodes, resolving
// variables against the operation's variable values.
func argumentValues(args []*ast.Argument, vars map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for _, a := range args {
		if a == nil || a.Name == nil {
			continue
		}
		out[a.Name.Value] = astValue(a.Value, vars)
	}
	return out
}

func astValue(v ast.Value, vars map[string]any) any {
	switch t := v.(type) {
	case *ast.Variable:
		if t.Name == nil {
			return nil
		}
		return vars[t.Name.Value]
	case *ast.IntValue:
		n, err := strconv.Atoi(t.Value)
		if err != nil {
			return t.Value
		}
		return n
	case *ast.FloatValue:
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return t.Value
		}
		return f
	case *ast.StringValue:
		return t.Value
	case *ast.BooleanValue:
		return t.Value
	case *ast.EnumValue:
		return t.Value
	case *ast.ListValue:
		out := make([]any, 0, len(t.Values))
		for _, item := range t.Values {
			out = append(out, astValue(item, vars))
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]any, len(t.Fields))
		for _, f := range t.Fields {
			if f == nil || f.Name == nil {
				continue
			}
			out[f.Name.Value] = astValue(f.Value, vars)
		}
		return out
	default:
		return nil
	}
}
