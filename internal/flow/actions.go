package flow

import (
	"errors"
	"fmt"

	"github.com/valksor/go-taktwerk/internal/engine"
	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/slices"
)

// Action types of the workflow machine. Each is registered with its
// predict/execute/verify behaviors in behaviors.go.
const (
	ActionRunTriage            engine.ActionType = "runTriageAgent"
	ActionApplyTriageOutput    engine.ActionType = "applyTriageOutput"
	ActionRunGroom             engine.ActionType = "runGroomAgent"
	ActionApplyGroomOutput     engine.ActionType = "applyGroomOutput"
	ActionRunIteration         engine.ActionType = "runIterationAgent"
	ActionApplyIterationOutput engine.ActionType = "applyIterationOutput"
	ActionUpdateStatus         engine.ActionType = "updateStatus"
	ActionAddLabels            engine.ActionType = "addLabels"
	ActionRemoveLabels         engine.ActionType = "removeLabels"
	ActionAssignBot            engine.ActionType = "assignBot"
	ActionUnassignBot          engine.ActionType = "unassignBot"
	ActionBumpIteration        engine.ActionType = "bumpIteration"
	ActionSetFailures          engine.ActionType = "setFailures"
	ActionUpsertHistory        engine.ActionType = "upsertHistory"
	ActionAssignPhase          engine.ActionType = "assignPhase"
	ActionCloseItem            engine.ActionType = "closeItem"
	ActionReopenItem           engine.ActionType = "reopenItem"
	ActionCreateBranch         engine.ActionType = "createBranch"
	ActionOpenChangeRequest    engine.ActionType = "openChangeRequest"
	ActionMarkRequestReady     engine.ActionType = "markRequestReady"
	ActionPostComment          engine.ActionType = "postComment"
)

// Artifact keys chained between actions within a batch.
const (
	artifactTriage    = "triage"
	artifactGroom     = "groom"
	artifactIteration = "iteration"
)

// ItemPayload targets one work item and carries nothing else.
type ItemPayload struct {
	Number int
}

func (p ItemPayload) Validate() error {
	if p.Number <= 0 {
		return errors.New("item number is required")
	}
	return nil
}

// StatusPayload sets a work item's workflow status.
type StatusPayload struct {
	Number int
	Status item.Status
}

func (p StatusPayload) Validate() error {
	if p.Number <= 0 {
		return errors.New("item number is required")
	}
	if !item.ValidStatus(p.Status) {
		return fmt.Errorf("invalid status %q", p.Status)
	}
	return nil
}

// LabelsPayload adds or removes labels on a work item.
type LabelsPayload struct {
	Number int
	Labels []string
}

func (p LabelsPayload) Validate() error {
	if p.Number <= 0 {
		return errors.New("item number is required")
	}
	if len(p.Labels) == 0 {
		return errors.New("labels are required")
	}
	if slices.Any(p.Labels, func(l string) bool { return l == "" }) {
		return errors.New("empty label")
	}
	return nil
}

// CounterPayload sets a numeric counter on a work item.
type CounterPayload struct {
	Number int
	Value  int
}

func (p CounterPayload) Validate() error {
	if p.Number <= 0 {
		return errors.New("item number is required")
	}
	if p.Value < 0 {
		return errors.New("counter value must not be negative")
	}
	return nil
}

// HistoryPayload upserts one marker-tagged activity-log entry.
type HistoryPayload struct {
	Number int
	Marker string
	Text   string
}

func (p HistoryPayload) Validate() error {
	if p.Number <= 0 {
		return errors.New("item number is required")
	}
	if p.Marker == "" {
		return errors.New("history marker is required")
	}
	if p.Text == "" {
		return errors.New("history text is required")
	}
	return nil
}

// PhasePayload assigns the automation identity to one phase of a parent.
type PhasePayload struct {
	ParentNumber int
	ChildNumber  int
	ChildID      string
}

func (p PhasePayload) Validate() error {
	if p.ParentNumber <= 0 {
		return errors.New("parent number is required")
	}
	if p.ChildNumber <= 0 {
		return errors.New("child number is required")
	}
	return nil
}

// AgentPayload is one coding-agent invocation.
type AgentPayload struct {
	Number int
	Prompt string
}

func (p AgentPayload) Validate() error {
	if p.Number <= 0 {
		return errors.New("item number is required")
	}
	if p.Prompt == "" {
		return errors.New("prompt is required")
	}
	return nil
}

// BranchPayload creates the work branch for an item.
type BranchPayload struct {
	Number int
	Name   string
}

func (p BranchPayload) Validate() error {
	if p.Number <= 0 {
		return errors.New("item number is required")
	}
	if p.Name == "" {
		return errors.New("branch name is required")
	}
	return nil
}

// RequestPayload opens or updates the item's change request.
type RequestPayload struct {
	Number  int // item number
	Title   string
	HeadRef string
	BaseRef string
	Draft   bool
}

func (p RequestPayload) Validate() error {
	if p.Number <= 0 {
		return errors.New("item number is required")
	}
	if p.Title == "" {
		return errors.New("request title is required")
	}
	if p.HeadRef == "" {
		return errors.New("head ref is required")
	}
	return nil
}

// ReadyPayload flips the item's change request out of draft.
type ReadyPayload struct {
	Number        int // item number
	RequestNumber int
}

func (p ReadyPayload) Validate() error {
	if p.RequestNumber <= 0 {
		return errors.New("request number is required")
	}
	return nil
}

// CommentPayload posts one comment on a work item.
type CommentPayload struct {
	Number int
	Body   string
}

func (p CommentPayload) Validate() error {
	if p.Number <= 0 {
		return errors.New("item number is required")
	}
	if p.Body == "" {
		return errors.New("comment body is required")
	}
	return nil
}
