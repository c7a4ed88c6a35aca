// Package trigger defines the canonical record describing why the engine
// was invoked, and decodes raw tracker webhook payloads into it.
package trigger

import "fmt"

// Type identifies the canonical trigger kinds.
type Type string

const (
	TypeItemOpened      Type = "item_opened"
	TypeItemEdited      Type = "item_edited"
	TypeItemAssigned    Type = "item_assigned"
	TypeItemClosed      Type = "item_closed"
	TypeCICompleted     Type = "ci_completed"
	TypeReviewSubmitted Type = "review_submitted"
	TypeMergeCompleted  Type = "merge_completed"
	TypeDeployment      Type = "deployment"

	// Slash commands issued by a human in a comment. A maintenance command
	// always outranks automatic routing, even on a completed item.
	TypeCommandTriage Type = "command_triage"
	TypeCommandGroom  Type = "command_groom"
	TypeCommandRetry  Type = "command_retry"
	TypeCommandReset  Type = "command_reset"
	TypeCommandPivot  Type = "command_pivot"
)

// Trigger is the canonical event record consumed by the workflow machine.
// It is the only shape the core requires; the raw webhook never travels
// past this package.
type Trigger struct {
	Type           Type
	ItemID         string
	ItemNumber     int
	Actor          string // login of the user or bot that caused the event
	CIResult       string // "success" or "failure" when Type is ci_completed
	ReviewDecision string // "approved", "changes_requested", "commented"
	CommitRef      string // head SHA for CI/merge events, when known
	Comment        string // comment body for command triggers
}

// IsCommand reports whether the trigger is an explicit human command.
func (t Trigger) IsCommand() bool {
	switch t.Type {
	case TypeCommandTriage, TypeCommandGroom, TypeCommandRetry, TypeCommandReset, TypeCommandPivot:
		return true
	}
	return false
}

// Validate checks the trigger carries the fields its type requires.
func (t Trigger) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("trigger type is required")
	}
	if t.ItemID == "" && t.ItemNumber == 0 {
		return fmt.Errorf("trigger %s: item reference is required", t.Type)
	}
	if t.Type == TypeCICompleted && t.CIResult == "" {
		return fmt.Errorf("trigger %s: ci result is required", t.Type)
	}
	if t.Type == TypeReviewSubmitted && t.ReviewDecision == "" {
		return fmt.Errorf("trigger %s: review decision is required", t.Type)
	}
	return nil
}

// String returns a short human-readable description.
func (t Trigger) String() string {
	return fmt.Sprintf("%s(item=%d actor=%s)", t.Type, t.ItemNumber, t.Actor)
}
