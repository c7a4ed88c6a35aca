package engine

import (
	"errors"
	"fmt"
)

// ErrTransitionLimit is returned when the machine exhausts its transition
// budget without reaching a terminal state. It indicates a machine
// construction defect, not a remote failure.
var ErrTransitionLimit = errors.New("transition limit reached")

// ErrNoTransition is returned when a non-terminal state has no eligible
// transition. Workflow definitions are expected to carry an explicit
// fallback, so hitting this is a construction defect.
var ErrNoTransition = errors.New("no eligible transition")

// SchemaError reports a malformed action. It is always fatal and aborts the
// queue before any side effect runs.
type SchemaError struct {
	Action ActionType
	Index  int // position in the queue
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("action %d (%s): %s", e.Index, e.Action, e.Reason)
}

// ExecError reports an action execution failure, classified fatal or soft
// per the action type's registered behavior.
type ExecError struct {
	Action ActionType
	Soft   bool
	Err    error
}

func (e *ExecError) Error() string {
	kind := "fatal"
	if e.Soft {
		kind = "soft"
	}
	return fmt.Sprintf("execute %s (%s): %v", e.Action, kind, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// MismatchError reports that the refreshed remote state matched no predicted
// candidate. Non-fatal by default; strict mode turns it into a run failure.
type MismatchError struct {
	Batch int
	Diffs []FieldDiff // against the nearest candidate
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("batch %d: state matched no predicted candidate (%d diffs against nearest)", e.Batch, len(e.Diffs))
}

// ContextError reports that the domain snapshot could not be rebuilt from
// the remote tracker. It is fatal and aborts before any transition.
type ContextError struct {
	Err error
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("build context: %v", e.Err)
}

func (e *ContextError) Unwrap() error { return e.Err }

// IsFatal reports whether err should stop the queue immediately.
func IsFatal(err error) bool {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return !execErr.Soft
	}
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return true
	}
	var ctxErr *ContextError
	return errors.As(err, &ctxErr)
}
