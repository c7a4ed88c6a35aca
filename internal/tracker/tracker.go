// Package tracker defines the remote work-item store the engine mutates.
// Implementations live in subpackages (github, gitlab); tests use the fake
// in internal/testutil.
package tracker

import (
	"context"

	"github.com/valksor/go-taktwerk/internal/item"
)

// Reader reads work items and their relations.
type Reader interface {
	// GetItem fetches one work item by number.
	GetItem(ctx context.Context, number int) (*item.WorkItem, error)

	// GetChildren returns the ordered phases of an item, empty when the
	// item does not decompose.
	GetChildren(ctx context.Context, number int) ([]*item.WorkItem, error)

	// GetParent returns the parent item, or nil when the item is top-level.
	GetParent(ctx context.Context, number int) (*item.WorkItem, error)

	// GetChangeRequest returns the linked change request, or nil.
	GetChangeRequest(ctx context.Context, number int) (*item.ChangeRequest, error)

	// GetCIResult returns the CI outcome for a head ref.
	GetCIResult(ctx context.Context, ref string) (item.CIResult, error)
}

// Mutator performs the item-level writes the engine's actions need.
// All writes are idempotent: repeating one leaves the remote state unchanged.
type Mutator interface {
	UpdateStatus(ctx context.Context, number int, status item.Status) error
	UpdateDescription(ctx context.Context, number int, description string) error
	AddLabels(ctx context.Context, number int, labels []string) error
	RemoveLabels(ctx context.Context, number int, labels []string) error
	Assign(ctx context.Context, number int, login string) error
	Unassign(ctx context.Context, number int, login string) error
	SetIteration(ctx context.Context, number int, n int) error
	SetFailures(ctx context.Context, number int, n int) error
	Comment(ctx context.Context, number int, body string) error
	CloseItem(ctx context.Context, number int) error
	ReopenItem(ctx context.Context, number int) error

	// UpsertHistory appends marker-tagged entries to the item's activity
	// log, replacing any existing entry with the same marker.
	UpsertHistory(ctx context.Context, number int, entries []item.HistoryEntry) error
}

// NewItem describes an item to create.
type NewItem struct {
	Title       string
	Description string
	Labels      []string
}

// NewChangeRequest describes a change request to open.
type NewChangeRequest struct {
	ItemNumber int
	Title      string
	Body       string
	HeadRef    string
	BaseRef    string
	Draft      bool
}

// Creator creates items and change requests.
type Creator interface {
	CreateItem(ctx context.Context, n NewItem) (*item.WorkItem, error)

	// CreateChild creates an item linked as the next phase of parent.
	CreateChild(ctx context.Context, parentNumber int, n NewItem) (*item.WorkItem, error)

	// CreateBranch creates the work branch for an item off the base branch.
	CreateBranch(ctx context.Context, number int, name string) error

	CreateChangeRequest(ctx context.Context, n NewChangeRequest) (*item.ChangeRequest, error)

	// MarkRequestReady moves a change request out of draft and requests
	// review.
	MarkRequestReady(ctx context.Context, requestNumber int) error
}

// Store is the full remote work-item surface the workflow needs.
type Store interface {
	Reader
	Mutator
	Creator

	// Name identifies the backend ("github", "gitlab", "fake").
	Name() string
}
