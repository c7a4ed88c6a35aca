package flow

import (
	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/slices"
	"github.com/valksor/go-taktwerk/internal/trigger"
)

// Guards are pure and total: they read the context snapshot only, never
// perform I/O, and default safely when optional fields are absent.

func needsTriage(c *item.Context) bool {
	return c.Item != nil && c.Item.Status == item.StatusNew
}

func needsGrooming(c *item.Context) bool {
	return c.Item != nil && c.Item.Status == item.StatusBacklog
}

func isReady(c *item.Context) bool {
	return c.Item != nil && c.Item.Status == item.StatusReady
}

func isInProgress(c *item.Context) bool {
	return c.Item != nil && c.Item.Status == item.StatusInProgress
}

func isInReview(c *item.Context) bool {
	return c.Item != nil && c.Item.Status == item.StatusInReview
}

func isDone(c *item.Context) bool {
	return c.Item != nil && c.Item.Status == item.StatusDone
}

func isBlocked(c *item.Context) bool {
	return c.Item != nil && c.Item.Status == item.StatusBlocked
}

func isError(c *item.Context) bool {
	return c.Item != nil && c.Item.Status == item.StatusError
}

func isClosed(c *item.Context) bool {
	return c.Item != nil && !c.Item.Open
}

func isSubItem(c *item.Context) bool {
	return c.IsSubItem()
}

func hasChildren(c *item.Context) bool {
	return c.HasChildren()
}

func allPhasesDone(c *item.Context) bool {
	return c.AllPhasesDone()
}

func botAssigned(c *item.Context) bool {
	return c.BotAssigned()
}

func hasBranch(c *item.Context) bool {
	return c.HasBranch()
}

func hasRequest(c *item.Context) bool {
	return c.Request != nil
}

func requestDraft(c *item.Context) bool {
	return c.Request != nil && c.Request.Draft
}

func ciPassed(c *item.Context) bool {
	return c.CI == item.CIPassed
}

func ciFailed(c *item.Context) bool {
	return c.CI == item.CIFailed
}

func reviewApproved(c *item.Context) bool {
	return c.Review == item.ReviewApproved
}

func changesRequested(c *item.Context) bool {
	return c.Review == item.ReviewChangesRequested
}

// maxFailuresReached is the circuit-breaker threshold check. It is
// consulted from recordingFailure before the queued increment executes,
// so the snapshot counter plus the failure being recorded now is what
// must reach the configured maximum.
func maxFailuresReached(c *item.Context) bool {
	if c.Item == nil || c.Run.MaxRetries <= 0 {
		return false
	}
	return c.Item.Failures+1 >= c.Run.MaxRetries
}

func triggeredBy(t trigger.Type) func(*item.Context) bool {
	return func(c *item.Context) bool {
		return c.Trigger.Type == t
	}
}

func always(*item.Context) bool { return true }

func not(g func(*item.Context) bool) func(*item.Context) bool {
	return func(c *item.Context) bool { return !g(c) }
}

func and(gs ...func(*item.Context) bool) func(*item.Context) bool {
	return func(c *item.Context) bool {
		return slices.All(gs, func(g func(*item.Context) bool) bool { return g(c) })
	}
}
