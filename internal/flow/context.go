package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/valksor/go-taktwerk/internal/engine"
	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/tracker"
	"github.com/valksor/go-taktwerk/internal/tracker/trackererr"
	"github.com/valksor/go-taktwerk/internal/trigger"
)

// BuildContext reads the remote tracker fresh and assembles the domain
// snapshot for one invocation. Transient read failures (rate limits,
// network blips) are retried with bounded exponential backoff; anything
// else fails the build before a single transition runs.
func BuildContext(ctx context.Context, store tracker.Store, trig trigger.Trigger, run item.RunSettings) (*item.Context, error) {
	if err := trig.Validate(); err != nil {
		return nil, &engine.ContextError{Err: err}
	}
	if run.Now.IsZero() {
		run.Now = time.Now().UTC()
	}

	c := &item.Context{Trigger: trig, Run: run}

	err := retryRead(ctx, func() error {
		w, err := store.GetItem(ctx, trig.ItemNumber)
		if err != nil {
			return err
		}
		c.Item = w

		parent, err := store.GetParent(ctx, trig.ItemNumber)
		if err != nil {
			return fmt.Errorf("parent of #%d: %w", trig.ItemNumber, err)
		}
		c.Parent = parent

		if parent != nil {
			siblings, err := store.GetChildren(ctx, parent.Number)
			if err != nil {
				return fmt.Errorf("phases of #%d: %w", parent.Number, err)
			}
			c.Siblings = siblings
		}

		children, err := store.GetChildren(ctx, trig.ItemNumber)
		if err != nil {
			return fmt.Errorf("phases of #%d: %w", trig.ItemNumber, err)
		}
		c.Children = children

		req, err := store.GetChangeRequest(ctx, trig.ItemNumber)
		if err != nil {
			return fmt.Errorf("change request of #%d: %w", trig.ItemNumber, err)
		}
		c.Request = req

		return nil
	})
	if err != nil {
		return nil, &engine.ContextError{Err: err}
	}

	c.CI = deriveCI(ctx, store, c, trig)
	c.Review = deriveReview(c, trig)

	return c, nil
}

// deriveCI prefers the trigger's own CI result; otherwise it reads the
// latest result for the request's head commit. A read failure here is
// not fatal: CI state simply stays unknown.
func deriveCI(ctx context.Context, store tracker.Store, c *item.Context, trig trigger.Trigger) item.CIResult {
	switch trig.CIResult {
	case "success":
		return item.CIPassed
	case "failure":
		return item.CIFailed
	}
	if c.Request == nil || c.Request.CommitRef == "" {
		return item.CINone
	}
	res, err := store.GetCIResult(ctx, c.Request.CommitRef)
	if err != nil {
		return item.CINone
	}
	return res
}

func deriveReview(c *item.Context, trig trigger.Trigger) item.ReviewDecision {
	switch trig.ReviewDecision {
	case "approved":
		return item.ReviewApproved
	case "changes_requested":
		return item.ReviewChangesRequested
	case "commented":
		return item.ReviewCommented
	}
	if c.Request != nil {
		return c.Request.Review
	}
	return item.ReviewNone
}

// retryRead runs op with exponential backoff while the failure is
// classified retryable. The overall budget is kept short; an exhausted
// retry surfaces the last error.
func retryRead(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = 15 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if trackererr.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(policy, ctx))
}

// Refresher returns the refresh callback handed to the machine: the
// same build, anchored on the same trigger.
func Refresher(store tracker.Store, trig trigger.Trigger, run item.RunSettings) engine.RefreshFunc {
	return func(ctx context.Context) (*item.Context, error) {
		return BuildContext(ctx, store, trig, run)
	}
}
