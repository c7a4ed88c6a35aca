// Package item holds the domain snapshot the workflow machine operates on.
// A Context is read fresh from the remote tracker at the start of every
// invocation and discarded afterward; nothing in this package persists
// between runs.
package item

import (
	"time"

	"github.com/valksor/go-taktwerk/internal/slices"
	"github.com/valksor/go-taktwerk/internal/trigger"
)

// Status is the workflow status of a work item.
type Status string

const (
	StatusNew        Status = "new"         // needs triage
	StatusBacklog    Status = "backlog"     // triaged, needs grooming
	StatusReady      Status = "ready"       // groomed, implementation can start
	StatusInProgress Status = "in_progress" // implementation running
	StatusInReview   Status = "in_review"   // change request awaiting review
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked" // circuit breaker tripped
	StatusError      Status = "error"   // invalid state, needs human attention
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusNew, StatusBacklog, StatusReady, StatusInProgress,
		StatusInReview, StatusDone, StatusBlocked, StatusError:
		return true
	}
	return false
}

// HistoryEntry is one marker-tagged line in the item's activity log.
// Entries are matched by marker and replaced, never blindly duplicated.
type HistoryEntry struct {
	Marker string
	Text   string
}

// Body is the structured view of an item body.
type Body struct {
	Description string // free-form description section
	History     []HistoryEntry
	Raw         string // full body text as stored remotely
}

// HasDescription reports whether a non-empty description is present.
func (b Body) HasDescription() bool {
	return b.Description != ""
}

// WorkItem is the unit of work being automated.
type WorkItem struct {
	ID        string // tracker-native identifier
	Number    int    // user-facing number
	Title     string
	Body      Body
	Labels    []string
	Assignees []string
	Open      bool
	Status    Status
	Iteration int // implement/CI loop counter, only ever increases
	Failures  int // consecutive CI failure counter
	ParentID  string
	UpdatedAt time.Time
}

// HasLabel reports whether the item carries the label.
func (w *WorkItem) HasLabel(label string) bool {
	for _, l := range w.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// AssignedTo reports whether login is among the item's assignees.
func (w *WorkItem) AssignedTo(login string) bool {
	for _, a := range w.Assignees {
		if a == login {
			return true
		}
	}
	return false
}

// ReviewDecision is the aggregated review outcome of a change request.
type ReviewDecision string

const (
	ReviewNone             ReviewDecision = ""
	ReviewApproved         ReviewDecision = "approved"
	ReviewChangesRequested ReviewDecision = "changes_requested"
	ReviewCommented        ReviewDecision = "commented"
)

// CIResult is the outcome of the latest CI run on a change request.
type CIResult string

const (
	CINone    CIResult = ""
	CIPending CIResult = "pending"
	CIPassed  CIResult = "passed"
	CIFailed  CIResult = "failed"
)

// ChangeRequest is the linked change request (pull/merge request) of an item.
type ChangeRequest struct {
	ID        string
	Number    int
	Draft     bool
	HeadRef   string
	BaseRef   string
	CommitRef string // head SHA
	Review    ReviewDecision
}

// RunSettings are the per-invocation run parameters the machine needs.
type RunSettings struct {
	MaxRetries int    // circuit breaker threshold
	BotLogin   string // automation identity on the tracker
	Now        time.Time
}

// Context is the immutable domain snapshot for one invocation.
type Context struct {
	Item     *WorkItem
	Parent   *WorkItem   // non-nil when Item is a phase of a larger item
	Siblings []*WorkItem // ordered phases of Parent, including Item, when Parent is set
	Children []*WorkItem // ordered phases of Item
	Request  *ChangeRequest
	Trigger  trigger.Trigger
	CI       CIResult
	Review   ReviewDecision
	Run      RunSettings
}

// IsSubItem reports whether the item is a phase of a larger work item.
func (c *Context) IsSubItem() bool {
	return c.Parent != nil
}

// HasChildren reports whether the item decomposes into phases.
func (c *Context) HasChildren() bool {
	return len(c.Children) > 0
}

// BotAssigned reports whether the automation identity is assigned to the item.
func (c *Context) BotAssigned() bool {
	return c.Item != nil && c.Item.AssignedTo(c.Run.BotLogin)
}

// HasBranch reports whether a work branch exists for the item.
func (c *Context) HasBranch() bool {
	return c.Request != nil && c.Request.HeadRef != ""
}

// NextPhase returns the first child, in declared order, that is neither done
// nor closed. It returns nil when all phases are complete.
func (c *Context) NextPhase() *WorkItem {
	for _, child := range c.Children {
		if child.Open && child.Status != StatusDone {
			return child
		}
	}
	return nil
}

// AllPhasesDone reports whether every child is done or closed.
func (c *Context) AllPhasesDone() bool {
	return len(c.Children) > 0 && c.NextPhase() == nil
}

// OpenChildren returns the number of children still open.
func (c *Context) OpenChildren() int {
	return slices.Count(c.Children, func(w *WorkItem) bool { return w.Open })
}

// Clone returns a deep copy of the context. Predictions mutate clones so the
// original snapshot stays untouched.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	out := &Context{
		Item:    cloneItem(c.Item),
		Parent:  cloneItem(c.Parent),
		Trigger: c.Trigger,
		CI:      c.CI,
		Review:  c.Review,
		Run:     c.Run,
	}
	if c.Request != nil {
		req := *c.Request
		out.Request = &req
	}
	if len(c.Siblings) > 0 {
		out.Siblings = make([]*WorkItem, len(c.Siblings))
		for i, s := range c.Siblings {
			out.Siblings[i] = cloneItem(s)
		}
	}
	if len(c.Children) > 0 {
		out.Children = make([]*WorkItem, len(c.Children))
		for i, ch := range c.Children {
			out.Children[i] = cloneItem(ch)
		}
	}
	return out
}

// Child returns the child with the given ID, or nil.
func (c *Context) Child(id string) *WorkItem {
	for _, ch := range c.Children {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

func cloneItem(w *WorkItem) *WorkItem {
	if w == nil {
		return nil
	}
	out := *w
	out.Labels = append([]string(nil), w.Labels...)
	out.Assignees = append([]string(nil), w.Assignees...)
	out.Body.History = append([]HistoryEntry(nil), w.Body.History...)
	return &out
}
