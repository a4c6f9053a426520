package privacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelgraph/modelgraph/model"
)

// Policy decision sentinel errors.
//
// These errors are used as return values from policy rules to indicate
// how the policy evaluation should proceed. Use errors.Is() to check
// for these values:
//
//	if errors.Is(err, privacy.Allow) { ... }
//	if errors.Is(err, privacy.Deny) { ... }
//	if errors.Is(err, privacy.Skip) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	// When returned from a policy, the operation is permitted.
	Allow = errors.New("modelgraph/privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	// When returned from a policy, the operation is rejected.
	Deny = errors.New("modelgraph/privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule in the chain.
	// This allows rules to abstain from making a decision.
	Skip = errors.New("modelgraph/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
// The returned error wraps Allow and can be checked with errors.Is(err, Allow).
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
// The returned error wraps Deny and can be checked with errors.Is(err, Deny).
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
// The returned error wraps Skip and can be checked with errors.Is(err, Skip).
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Op is the write operation a mutation rule evaluates against.
type Op uint

// Mutation operations.
const (
	OpCreate Op = 1 << iota
	OpUpdate
	OpDelete
)

// Is reports whether o is contained in the given bitmask.
func (o Op) Is(op Op) bool { return o&op != 0 }

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("Op(%d)", uint(o))
}

// Query is a read operation under evaluation. Rules may narrow the result
// set by appending predicates through Where.
type Query struct {
	model model.Model
	preds []model.Predicate
}

// NewQuery describes a read of the given model.
func NewQuery(m model.Model) *Query { return &Query{model: m} }

// Model returns the queried model.
func (q *Query) Model() model.Model { return q.model }

// Where appends row-level predicates to the evaluated query.
func (q *Query) Where(preds ...model.Predicate) {
	q.preds = append(q.preds, preds...)
}

// Predicates returns the predicates accumulated during evaluation.
func (q *Query) Predicates() []model.Predicate { return q.preds }

// Mutation is a write operation under evaluation.
type Mutation struct {
	model model.Model
	op    Op
	data  map[string]any
}

// NewMutation describes a write of the given model. data holds the payload
// attributes keyed by model field name; it is nil for deletes.
func NewMutation(m model.Model, op Op, data map[string]any) *Mutation {
	return &Mutation{model: m, op: op, data: data}
}

// Model returns the mutated model.
func (m *Mutation) Model() model.Model { return m.model }

// Op returns the write operation.
func (m *Mutation) Op() Op { return m.op }

// Field returns the payload value of a model field, when present.
func (m *Mutation) Field(name string) (any, bool) {
	v, ok := m.data[name]
	return v, ok
}

type (
	// QueryRule defines the interface deciding whether a
	// query is allowed and optionally narrows it.
	QueryRule interface {
		EvalQuery(context.Context, *Query) error
	}

	// QueryPolicy combines multiple query rules into a single policy.
	QueryPolicy []QueryRule

	// MutationRule defines the interface deciding whether a
	// mutation is allowed.
	MutationRule interface {
		EvalMutation(context.Context, *Mutation) error
	}

	// MutationPolicy combines multiple mutation rules into a single policy.
	MutationPolicy []MutationRule

	// QueryMutationRule is an interface which groups query and mutation rules.
	QueryMutationRule interface {
		QueryRule
		MutationRule
	}
)

// QueryRuleFunc type is an adapter which allows the use of
// ordinary functions as query rules.
type QueryRuleFunc func(context.Context, *Query) error

// EvalQuery returns f(ctx, q).
func (f QueryRuleFunc) EvalQuery(ctx context.Context, q *Query) error {
	return f(ctx, q)
}

// MutationRuleFunc type is an adapter which allows the use of
// ordinary functions as mutation rules.
type MutationRuleFunc func(context.Context, *Mutation) error

// EvalMutation returns f(ctx, m).
func (f MutationRuleFunc) EvalMutation(ctx context.Context, m *Mutation) error {
	return f(ctx, m)
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
// This rule unconditionally permits both queries and mutations.
func AlwaysAllowRule() QueryMutationRule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
// This rule unconditionally rejects both queries and mutations.
func AlwaysDenyRule() QueryMutationRule {
	return fixedDecision{Deny}
}

// ContextQueryMutationRule creates a query/mutation rule from a context
// evaluation function. The provided function receives the context and should
// return Allow, Deny, Skip, or nil. Returning nil is equivalent to
// returning Skip.
func ContextQueryMutationRule(eval func(context.Context) error) QueryMutationRule {
	return contextDecision{eval}
}

// OnMutationOperation evaluates the given rule only on a given mutation operation.
func OnMutationOperation(rule MutationRule, op Op) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		if m.Op().Is(op) {
			return rule.EvalMutation(ctx, m)
		}
		return Skip
	})
}

// DenyMutationOperationRule returns a rule denying specified mutation operation.
func DenyMutationOperationRule(op Op) MutationRule {
	rule := MutationRuleFunc(func(_ context.Context, m *Mutation) error {
		return Denyf("modelgraph/privacy: operation %s is not allowed", m.Op())
	})
	return OnMutationOperation(rule, op)
}

// AllowMutationOperationRule returns a rule allowing specified mutation operation.
func AllowMutationOperationRule(op Op) MutationRule {
	rule := MutationRuleFunc(func(context.Context, *Mutation) error {
		return Allow
	})
	return OnMutationOperation(rule, op)
}

// Policy groups query and mutation policies.
type Policy struct {
	Query    QueryPolicy
	Mutation MutationPolicy
}

// EvalQuery forwards evaluation to the query policy.
func (p Policy) EvalQuery(ctx context.Context, q *Query) error {
	return p.Query.EvalQuery(ctx, q)
}

// EvalMutation forwards evaluation to the mutation policy.
func (p Policy) EvalMutation(ctx context.Context, m *Mutation) error {
	return p.Mutation.EvalMutation(ctx, m)
}

// EvalQuery evaluates a query against a query policy. An Allow decision
// stops the evaluation with a nil error; Skip and nil continue to the next
// rule; anything else rejects the query.
func (policies QueryPolicy) EvalQuery(ctx context.Context, q *Query) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range policies {
		switch decision := rule.EvalQuery(ctx, q); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// EvalMutation evaluates a mutation against a mutation policy, with the same
// decision semantics as QueryPolicy.EvalQuery.
func (policies MutationPolicy) EvalMutation(ctx context.Context, m *Mutation) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range policies {
		switch decision := rule.EvalMutation(ctx, m); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attached to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalQuery(context.Context, *Query) error {
	return f.decision
}

func (f fixedDecision) EvalMutation(context.Context, *Mutation) error {
	return f.decision
}

type contextDecision struct {
	eval func(context.Context) error
}

func (c contextDecision) EvalQuery(ctx context.Context, _ *Query) error {
	return c.eval(ctx)
}

func (c contextDecision) EvalMutation(ctx context.Context, _ *Mutation) error {
	return c.eval(ctx)
}

// FilterFunc is an adapter that allows using ordinary functions as query
// rules that narrow the result set instead of deciding on it.
//
// Example usage:
//
//	privacy.FilterFunc(func(ctx context.Context, q *privacy.Query) error {
//	    q.Where(model.Exact("tenant", tenantID))
//	    return privacy.Skip
//	})
type FilterFunc func(context.Context, *Query) error

// EvalQuery calls f(ctx, q).
func (f FilterFunc) EvalQuery(ctx context.Context, q *Query) error {
	return f(ctx, q)
}

var _ QueryRule = FilterFunc(nil)
