// Package filters derives filter argument sets from model field names and
// applies them to collection queries. A filter set is synthesized from a
// model and a field-name set, or adapted from a user-supplied one; either
// way the result carries the extension's default per-field-kind bindings.
package filters

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/graphql-go/graphql"

	"github.com/modelgraph/modelgraph"
	"github.com/modelgraph/modelgraph/model"
)

// Binding maps one exposed filter argument to a predicate constraint.
type Binding struct {
	// ArgName is the schema argument name.
	ArgName string
	// Field is the constrained model attribute.
	Field model.Field
	// Lookup is the predicate operator.
	Lookup model.Lookup
	// CSV marks arguments that accept a comma-separated value string
	// rewritten into a typed multi-value membership test.
	CSV bool
}

// FilterSet binds a model to a set of filter argument definitions. One
// filter set is built per field descriptor at schema-build time; Apply runs
// once per resolved request.
type FilterSet interface {
	// Model returns the filtered model.
	Model() model.Model
	// Bindings enumerates the filter argument bindings.
	Bindings() []Binding
	// Apply narrows the query set by the arguments present in args.
	Apply(qs model.QuerySet, args map[string]any) (model.QuerySet, error)
}

// ForModel returns a filter set guaranteed to carry the default per-field
// bindings. A supplied filter set is wrapped with a defaults decorator;
// otherwise one is synthesized fresh from the model and field-name set.
// Comma-separated-value rewriting is applied on either path.
func ForModel(explicit FilterSet, m model.Model, fields []string) (FilterSet, error) {
	if m == nil {
		return nil, modelgraph.NewConfigError("filters", fmt.Errorf("a model is required to build a filter set"))
	}
	var fs *filterSet
	if explicit != nil {
		if explicit.Model().Name() != m.Name() {
			return nil, modelgraph.NewConfigError("filters",
				fmt.Errorf("filter set for model %q cannot serve model %q", explicit.Model().Name(), m.Name()))
		}
		fs = &filterSet{model: m, bindings: mergeDefaults(explicit.Bindings(), m, fields)}
	} else {
		fs = &filterSet{model: m, bindings: defaultBindings(m, fields)}
	}
	replaceCSV(fs.bindings)
	return fs, nil
}

// Args converts a filter set's bindings into schema argument descriptors.
// CSV bindings are exposed as strings; the typed rewrite happens at apply
// time. A nullable "id" argument is always present.
func Args(fs FilterSet, scalarFor func(model.Field) graphql.Type) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{}
	for _, b := range fs.Bindings() {
		var in graphql.Input
		if b.CSV {
			in = graphql.String
		} else if scalar := scalarFor(b.Field); scalar != nil {
			in = scalar
		} else {
			continue
		}
		args[b.ArgName] = &graphql.ArgumentConfig{
			Type:        in,
			Description: fmt.Sprintf("Filter by %s (%s)", b.Field.Name, b.Lookup),
		}
	}
	if _, ok := args["id"]; !ok {
		args["id"] = &graphql.ArgumentConfig{
			Type:        graphql.ID,
			Description: "Record unique identification field",
		}
	}
	return args
}

type filterSet struct {
	model    model.Model
	bindings []Binding
}

func (fs *filterSet) Model() model.Model  { return fs.model }
func (fs *filterSet) Bindings() []Binding { return fs.bindings }

// Apply implements FilterSet.
func (fs *filterSet) Apply(qs model.QuerySet, args map[string]any) (model.QuerySet, error) {
	for _, b := range fs.bindings {
		raw, ok := args[b.ArgName]
		if !ok || raw == nil {
			continue
		}
		value := raw
		if b.CSV {
			parsed, err := parseCSV(raw, b.Field.Kind)
			if err != nil {
				return nil, modelgraph.NewValidationError(b.Field.Name, err)
			}
			value = parsed
		}
		qs = qs.Filter(model.Predicate{Field: b.Field.Name, Lookup: b.Lookup, Value: value})
	}
	if id, ok := args["id"]; ok && id != nil {
		pk := fs.model
		qs = qs.Filter(model.Exact(model.PKField(pk).Name, id))
	}
	return qs, nil
}

// ArgName renders the schema argument name of a (field, lookup) pair:
// the exact lookup keeps the field name, other lookups append it.
func ArgName(field string, lookup model.Lookup) string {
	if lookup == model.LookupExact {
		return inflect.CamelizeDownFirst(field)
	}
	return inflect.CamelizeDownFirst(field + "_" + string(lookup))
}

// defaultBindings builds the extension's default filters for the named
// fields: equality and membership for every filterable kind, plus a
// case-insensitive containment filter for strings. Relation and unknown
// kinds are skipped.
func defaultBindings(m model.Model, fields []string) []Binding {
	var out []Binding
	for _, name := range fields {
		f, ok := model.FieldByName(m, name)
		if !ok || f.Kind.IsRelation() || f.Kind == model.KindInvalid {
			continue
		}
		out = append(out, Binding{ArgName: ArgName(name, model.LookupExact), Field: f, Lookup: model.LookupExact})
		out = append(out, Binding{ArgName: ArgName(name, model.LookupIn), Field: f, Lookup: model.LookupIn})
		if f.Kind == model.KindString {
			out = append(out, Binding{ArgName: ArgName(name, model.LookupIContains), Field: f, Lookup: model.LookupIContains})
		}
	}
	return out
}

// mergeDefaults keeps the supplied bindings and adds any default binding
// they do not already cover, so adapted filter sets stay compatible with
// the defaults regardless of path taken.
func mergeDefaults(explicit []Binding, m model.Model, fields []string) []Binding {
	seen := make(map[string]bool, len(explicit))
	out := append([]Binding(nil), explicit...)
	for _, b := range explicit {
		seen[b.ArgName] = true
	}
	for _, b := range defaultBindings(m, fields) {
		if !seen[b.ArgName] {
			out = append(out, b)
		}
	}
	return out
}

// replaceCSV rewrites membership bindings to accept comma-separated value
// strings, so ?field=a,b,c means "field in [a,b,c]" rather than one literal.
func replaceCSV(bindings []Binding) {
	for i := range bindings {
		if bindings[i].Lookup == model.LookupIn {
			bindings[i].CSV = true
		}
	}
}

// parseCSV splits a comma-separated value and coerces each member to the
// field's kind.
func parseCSV(raw any, kind model.Kind) (any, error) {
	s, ok := raw.(string)
	if !ok {
		// Already a list (e.g. supplied through variables).
		return raw, nil
	}
	parts := strings.Split(s, ",")
	values := make([]any, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch kind {
		case model.KindInt, model.KindID:
			n, err := strconv.Atoi(p)
			if err != nil {
				if kind == model.KindID {
					values = append(values, p)
					continue
				}
				return nil, fmt.Errorf("value %q is not a valid integer", p)
			}
			values = append(values, n)
		case model.KindFloat:
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("value %q is not a valid number", p)
			}
			values = append(values, f)
		case model.KindBool:
			b, err := strconv.ParseBool(p)
			if err != nil {
				return nil, fmt.Errorf("value %q is not a valid boolean", p)
			}
			values = append(values, b)
		default:
			values = append(values, p)
		}
	}
	return values, nil
}
