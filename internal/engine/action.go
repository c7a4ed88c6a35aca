// Package engine implements the predict-execute-verify core: a typed action
// registry, a domain machine with priority-ordered guarded transitions, a
// batch-drain runner, and a tolerant state comparator. The engine is
// stateless per invocation; the remote tracker is the persisted state.
package engine

import (
	"github.com/valksor/go-taktwerk/internal/item"
)

// ActionType is the discriminant of the closed action variant set.
type ActionType string

// Token selects which credential an action executes under.
type Token string

const (
	TokenBot  Token = "bot"  // the automation identity
	TokenUser Token = "user" // the triggering user's identity, when available
)

// Payload carries the variant-specific fields of an action. Payloads are
// validated before any action in the queue executes; an invalid payload
// aborts the whole queue.
type Payload interface {
	Validate() error
}

// Action is a declarative description of one external effect. It carries no
// behavior; behavior is looked up in the registry by Type.
type Action struct {
	Type     ActionType
	Token    Token
	Payload  Payload
	Produces string // artifact key this action's result is stored under
	Consumes string // artifact key this action reads, produced earlier in the batch
}

// String returns the action type for logs and diagnostics.
func (a Action) String() string {
	return string(a.Type)
}

// Artifacts hands structured execute results between sequential actions
// within a batch.
type Artifacts struct {
	values map[string]any
}

// NewArtifacts returns an empty artifact store.
func NewArtifacts() *Artifacts {
	return &Artifacts{values: make(map[string]any)}
}

// Put stores a produced artifact.
func (a *Artifacts) Put(key string, v any) {
	a.values[key] = v
}

// Get returns a consumed artifact.
func (a *Artifacts) Get(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// PredictFunc computes the expected post-action contexts without performing
// the effect. It must be pure and return at least one candidate; actions
// with more than one acceptable outcome under eventual consistency return
// several.
type PredictFunc func(c *item.Context, a Action) []*item.Context
