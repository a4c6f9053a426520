// Package privacy provides an access policy layer evaluated before queries
// and mutations reach the data backend.
//
// # Core Concepts
//
// The privacy layer is built around three main concepts:
//
//   - Policy: a collection of rules that determine access to a model
//   - Rule: a function that returns Allow, Deny, or Skip decisions
//   - Viewer: an interface representing the current user
//
// A policy's rules evaluate in order. A rule returning Allow permits the
// operation immediately, Deny (or any other error) rejects it, and Skip or
// nil passes control to the next rule. A policy whose rules all skip permits
// the operation.
//
// # Writing Policies
//
// Policies attach to a model's mutation configuration:
//
//	mutation.New(mutation.Config{
//	    Serializer: serializer.NewFactory(post),
//	    Policy: &privacy.Policy{
//	        Mutation: privacy.MutationPolicy{
//	            privacy.DenyIfNoViewer(),
//	            privacy.HasRole("admin"),
//	            privacy.DenyMutationOperationRule(privacy.OpDelete),
//	        },
//	    },
//	})
//
// Query rules may also narrow the result set instead of deciding on it,
// implementing row-level scoping:
//
//	privacy.FilterFunc(func(ctx context.Context, q *privacy.Query) error {
//	    q.Where(model.Exact("tenant", tenantID))
//	    return privacy.Skip
//	})
//
// The viewer travels on the request context via WithViewer and is consulted
// by the bundled rules (HasRole, IsOwner, TenantRule and friends).
package privacy
