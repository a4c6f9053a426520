package privacy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgraph/modelgraph/model"
	"github.com/modelgraph/modelgraph/privacy"
)

func newNote() *model.Builder {
	return model.New("Note", model.String("body"), model.String("owner"))
}

func TestDecisions(t *testing.T) {
	t.Run("formatted_decisions_keep_their_sentinel", func(t *testing.T) {
		assert.ErrorIs(t, privacy.Allowf("granted to %s", "ann"), privacy.Allow)
		assert.ErrorIs(t, privacy.Denyf("rejected"), privacy.Deny)
		assert.ErrorIs(t, privacy.Skipf("abstain"), privacy.Skip)
	})

	t.Run("op_membership", func(t *testing.T) {
		assert.True(t, privacy.OpCreate.Is(privacy.OpCreate|privacy.OpUpdate))
		assert.False(t, privacy.OpDelete.Is(privacy.OpCreate|privacy.OpUpdate))
		assert.Equal(t, "delete", privacy.OpDelete.String())
	})
}

func TestQueryPolicy(t *testing.T) {
	ctx := context.Background()
	note := newNote()

	t.Run("empty_policy_allows", func(t *testing.T) {
		var p privacy.QueryPolicy
		assert.NoError(t, p.EvalQuery(ctx, privacy.NewQuery(note)))
	})

	t.Run("allow_stops_the_chain", func(t *testing.T) {
		p := privacy.QueryPolicy{
			privacy.AlwaysAllowRule(),
			privacy.AlwaysDenyRule(),
		}
		assert.NoError(t, p.EvalQuery(ctx, privacy.NewQuery(note)))
	})

	t.Run("skip_falls_through_to_deny", func(t *testing.T) {
		p := privacy.QueryPolicy{
			privacy.ContextQueryMutationRule(func(context.Context) error { return privacy.Skip }),
			privacy.AlwaysDenyRule(),
		}
		err := p.EvalQuery(ctx, privacy.NewQuery(note))
		assert.ErrorIs(t, err, privacy.Deny)
	})

	t.Run("filter_rules_accumulate_predicates", func(t *testing.T) {
		p := privacy.QueryPolicy{
			privacy.FilterFunc(func(_ context.Context, q *privacy.Query) error {
				q.Where(model.Exact("owner", "ann"))
				return privacy.Skip
			}),
		}
		q := privacy.NewQuery(note)
		require.NoError(t, p.EvalQuery(ctx, q))
		require.Len(t, q.Predicates(), 1)
		assert.Equal(t, "owner", q.Predicates()[0].Field)
	})

	t.Run("context_decision_short_circuits", func(t *testing.T) {
		allowed := privacy.DecisionContext(ctx, privacy.Allow)
		assert.NoError(t, privacy.QueryPolicy{privacy.AlwaysDenyRule()}.EvalQuery(allowed, privacy.NewQuery(note)))

		denied := privacy.DecisionContext(ctx, privacy.Deny)
		err := privacy.QueryPolicy{privacy.AlwaysAllowRule()}.EvalQuery(denied, privacy.NewQuery(note))
		assert.ErrorIs(t, err, privacy.Deny)
	})
}

func TestMutationPolicy(t *testing.T) {
	ctx := context.Background()
	note := newNote()

	t.Run("custom_errors_reject", func(t *testing.T) {
		boom := errors.New("boom")
		p := privacy.MutationPolicy{
			privacy.MutationRuleFunc(func(context.Context, *privacy.Mutation) error { return boom }),
		}
		err := p.EvalMutation(ctx, privacy.NewMutation(note, privacy.OpCreate, nil))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("operation_scoped_rules", func(t *testing.T) {
		p := privacy.MutationPolicy{
			privacy.DenyMutationOperationRule(privacy.OpDelete),
		}
		assert.NoError(t, p.EvalMutation(ctx, privacy.NewMutation(note, privacy.OpCreate, nil)))
		err := p.EvalMutation(ctx, privacy.NewMutation(note, privacy.OpDelete, nil))
		assert.ErrorIs(t, err, privacy.Deny)
	})

	t.Run("allow_operation_rule", func(t *testing.T) {
		p := privacy.MutationPolicy{
			privacy.AllowMutationOperationRule(privacy.OpUpdate),
			privacy.AlwaysDenyRule(),
		}
		assert.NoError(t, p.EvalMutation(ctx, privacy.NewMutation(note, privacy.OpUpdate, nil)))
		assert.ErrorIs(t, p.EvalMutation(ctx, privacy.NewMutation(note, privacy.OpCreate, nil)), privacy.Deny)
	})

	t.Run("mutation_exposes_payload_fields", func(t *testing.T) {
		m := privacy.NewMutation(note, privacy.OpUpdate, map[string]any{"owner": "ann"})
		v, ok := m.Field("owner")
		require.True(t, ok)
		assert.Equal(t, "ann", v)
		_, ok = m.Field("body")
		assert.False(t, ok)
	})
}

func TestPolicy(t *testing.T) {
	ctx := context.Background()
	note := newNote()
	p := privacy.Policy{
		Query:    privacy.QueryPolicy{privacy.AlwaysAllowRule()},
		Mutation: privacy.MutationPolicy{privacy.AlwaysDenyRule()},
	}
	assert.NoError(t, p.EvalQuery(ctx, privacy.NewQuery(note)))
	assert.ErrorIs(t, p.EvalMutation(ctx, privacy.NewMutation(note, privacy.OpCreate, nil)), privacy.Deny)
}
