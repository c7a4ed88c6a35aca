package engine

import "fmt"

// Queue is the ordered list of pending actions produced by one machine
// decision. Actions execute strictly in declared order.
type Queue []Action

// Validate checks every action against the registry before anything
// executes: the type must be registered, the payload must pass schema
// validation, and artifact consumption must be satisfiable by an earlier
// producer in the same batch. Fail-fast: an invalid plan is never partially
// applied.
func (q Queue) Validate(reg *Registry) error {
	produced := make(map[string]bool)
	for i, a := range q {
		b, ok := reg.Lookup(a.Type)
		if !ok {
			return &SchemaError{Action: a.Type, Index: i, Reason: "unregistered action type"}
		}
		if a.Payload == nil {
			return &SchemaError{Action: a.Type, Index: i, Reason: "missing payload"}
		}
		if err := a.Payload.Validate(); err != nil {
			return &SchemaError{Action: a.Type, Index: i, Reason: err.Error()}
		}
		if a.Consumes != "" && !produced[a.Consumes] {
			return &SchemaError{Action: a.Type, Index: i,
				Reason: fmt.Sprintf("consumes artifact %q which no earlier action in the batch produces", a.Consumes)}
		}
		if a.Produces != "" {
			produced[a.Produces] = true
		}
		// Artifacts do not survive a batch boundary: the chained context is
		// re-derived from the refreshed remote state between batches.
		if b.Observe {
			produced = make(map[string]bool)
		}
	}
	return nil
}

// Batches splits the queue into contiguous runs executed together before one
// refresh+verify cycle. A boundary falls after every action whose behavior
// is marked Observe.
func (q Queue) Batches(reg *Registry) []Queue {
	var batches []Queue
	var current Queue
	for _, a := range q {
		current = append(current, a)
		if b, ok := reg.Lookup(a.Type); ok && b.Observe {
			batches = append(batches, current)
			current = nil
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// Types returns the ordered action type list, for reports and tests.
func (q Queue) Types() []ActionType {
	out := make([]ActionType, len(q))
	for i, a := range q {
		out[i] = a.Type
	}
	return out
}
