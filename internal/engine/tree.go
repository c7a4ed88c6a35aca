package engine

import (
	"sort"

	"github.com/valksor/go-taktwerk/internal/item"
)

// StateTree is the comparable projection of a context used by the verifier.
// Each field carries a fixed comparison mode (see compare.go); the tree never
// holds anything the verifier cannot check tolerantly.
type StateTree struct {
	Status         item.Status // exact
	Open           bool        // exact
	Iteration      int         // monotonic: actual must be >= expected
	Unresolved     int         // monotonic: actual must be <= expected
	Labels         []string    // superset: expected must be contained in actual
	Assignees      []string    // superset
	HasDescription bool        // presence flag
	HasBranch      bool        // presence flag
	History        []string    // ordered log markers, tolerant of appended entries
	Children       map[string]*StateTree
}

// ExtractTree projects a context into its comparable tree. The projection is
// pure; it never reads the remote system.
func ExtractTree(c *item.Context) *StateTree {
	if c == nil || c.Item == nil {
		return &StateTree{}
	}
	t := &StateTree{
		Status:         c.Item.Status,
		Open:           c.Item.Open,
		Iteration:      c.Item.Iteration,
		Unresolved:     c.OpenChildren(),
		Labels:         sortedCopy(c.Item.Labels),
		Assignees:      sortedCopy(c.Item.Assignees),
		HasDescription: c.Item.Body.HasDescription(),
		HasBranch:      c.HasBranch(),
		History:        historyMarkers(c.Item),
	}
	if len(c.Children) > 0 {
		t.Children = make(map[string]*StateTree, len(c.Children))
		for _, child := range c.Children {
			t.Children[child.ID] = extractItemTree(child)
		}
	}
	return t
}

// extractItemTree projects a bare work item; used for child sub-trees where
// no linked request or grandchildren are tracked.
func extractItemTree(w *item.WorkItem) *StateTree {
	return &StateTree{
		Status:         w.Status,
		Open:           w.Open,
		Iteration:      w.Iteration,
		Labels:         sortedCopy(w.Labels),
		Assignees:      sortedCopy(w.Assignees),
		HasDescription: w.Body.HasDescription(),
		History:        historyMarkers(w),
	}
}

func historyMarkers(w *item.WorkItem) []string {
	if len(w.Body.History) == 0 {
		return nil
	}
	out := make([]string, len(w.Body.History))
	for i, e := range w.Body.History {
		out[i] = e.Marker
	}
	return out
}

func sortedCopy(src []string) []string {
	if len(src) == 0 {
		return nil
	}
	out := append([]string(nil), src...)
	sort.Strings(out)
	return out
}

// ExpectedState is the union of acceptable post-batch trees plus the
// predicted retrigger flag. Verification passes when any candidate matches
// with zero diffs.
type ExpectedState struct {
	Candidates      []*StateTree
	ShouldRetrigger bool
}
