package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/valksor/go-taktwerk/internal/item"
)

// ExecuteFunc performs the real effect against a collaborator. The artifact
// store carries structured results chained from earlier actions in the batch.
type ExecuteFunc func(ctx context.Context, c *item.Context, a Action, arts *Artifacts) (any, error)

// VerifyFunc lets an action type adjust the structural diffs computed for
// its batch, for outcomes with inherent non-determinism. The returned slice
// replaces diffs for the pass/fail decision.
type VerifyFunc func(expected, actual *StateTree, diffs []FieldDiff) []FieldDiff

// Behavior binds the three behaviors of one action variant.
type Behavior struct {
	Predict PredictFunc // required, pure
	Execute ExecuteFunc // required, effectful
	Verify  VerifyFunc  // optional override of the structural comparison

	// Soft marks execution errors of this type as recoverable: the error is
	// recorded and the queue continues. The default is fatal.
	Soft bool

	// Observe marks this action's effects as requiring external
	// re-observation before later actions may safely run. A batch boundary
	// falls after every Observe action.
	Observe bool
}

// Registry is the catalog of typed action variants.
type Registry struct {
	behaviors map[ActionType]Behavior
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{behaviors: make(map[ActionType]Behavior)}
}

// Register binds a behavior triple to an action type. Registering a type
// twice or an incomplete behavior is a programming error.
func (r *Registry) Register(t ActionType, b Behavior) error {
	if t == "" {
		return fmt.Errorf("register: action type is required")
	}
	if b.Predict == nil {
		return fmt.Errorf("register %s: predict behavior is required", t)
	}
	if b.Execute == nil {
		return fmt.Errorf("register %s: execute behavior is required", t)
	}
	if _, exists := r.behaviors[t]; exists {
		return fmt.Errorf("register %s: already registered", t)
	}
	r.behaviors[t] = b
	return nil
}

// MustRegister registers and panics on error; for use in package wiring
// where a failure is a construction defect.
func (r *Registry) MustRegister(t ActionType, b Behavior) {
	if err := r.Register(t, b); err != nil {
		panic(err)
	}
}

// Lookup returns the behavior for an action type.
func (r *Registry) Lookup(t ActionType) (Behavior, bool) {
	b, ok := r.behaviors[t]
	return b, ok
}

// Types returns the registered action types in sorted order.
func (r *Registry) Types() []ActionType {
	out := make([]ActionType, 0, len(r.behaviors))
	for t := range r.behaviors {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
