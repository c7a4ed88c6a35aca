package engine

import "github.com/valksor/go-taktwerk/internal/item"

// maxCandidates caps the expected-state union. Actions with alternative
// outcomes multiply candidates; past this point additional alternatives are
// collapsed onto the primary outcome to keep comparison bounded.
const maxCandidates = 8

// PredictFromActions folds the predict behavior of each queued action over
// the current context and returns the union of acceptable outcome trees.
// The fold is pure: contexts are cloned before prediction, and the input
// context is never mutated. retrigger is the caller's verdict for the final
// state the machine terminated in.
func PredictFromActions(reg *Registry, batch Queue, c *item.Context, retrigger bool) ExpectedState {
	candidates := []*item.Context{c.Clone()}
	for _, a := range batch {
		b, ok := reg.Lookup(a.Type)
		if !ok {
			continue // validated earlier; unreachable in a checked queue
		}
		var next []*item.Context
		for _, cand := range candidates {
			outcomes := b.Predict(cand.Clone(), a)
			if len(outcomes) == 0 {
				outcomes = []*item.Context{cand}
			}
			for _, out := range outcomes {
				if len(next) < maxCandidates {
					next = append(next, out)
				}
			}
		}
		candidates = next
	}

	exp := ExpectedState{ShouldRetrigger: retrigger}
	for _, cand := range candidates {
		exp.Candidates = append(exp.Candidates, ExtractTree(cand))
	}
	return exp
}
