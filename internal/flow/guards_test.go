package flow

import (
	"testing"

	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/testutil"
	"github.com/valksor/go-taktwerk/internal/trigger"
)

func TestMaxFailuresReached(t *testing.T) {
	cases := []struct {
		failures   int
		maxRetries int
		want       bool
	}{
		{0, 3, false},
		{1, 3, false},
		{2, 3, true}, // the failure being recorded now is the third
		{3, 3, true},
		{0, 1, true},
		{5, 0, false}, // disabled breaker never trips
	}
	for _, tc := range cases {
		c := testutil.SampleContext(7, trigger.Trigger{Type: trigger.TypeCICompleted})
		c.Item.Failures = tc.failures
		c.Run.MaxRetries = tc.maxRetries
		if got := maxFailuresReached(c); got != tc.want {
			t.Errorf("failures=%d maxRetries=%d: got %v, want %v",
				tc.failures, tc.maxRetries, got, tc.want)
		}
	}
}

func TestStatusGuards(t *testing.T) {
	cases := []struct {
		status item.Status
		guard  func(*item.Context) bool
	}{
		{item.StatusNew, needsTriage},
		{item.StatusBacklog, needsGrooming},
		{item.StatusReady, isReady},
		{item.StatusInProgress, isInProgress},
		{item.StatusInReview, isInReview},
		{item.StatusDone, isDone},
		{item.StatusBlocked, isBlocked},
		{item.StatusError, isError},
	}
	for _, tc := range cases {
		c := testutil.SampleContext(7, trigger.Trigger{Type: trigger.TypeItemEdited})
		c.Item.Status = tc.status
		if !tc.guard(c) {
			t.Errorf("guard for %s should hold", tc.status)
		}
		c.Item.Status = item.Status("other")
		if tc.guard(c) {
			t.Errorf("guard for %s should not hold on another status", tc.status)
		}
	}
}

func TestRelationGuards(t *testing.T) {
	c := testutil.SampleContext(7, trigger.Trigger{Type: trigger.TypeItemEdited})
	if isSubItem(c) || hasChildren(c) || botAssigned(c) || hasBranch(c) || hasRequest(c) {
		t.Error("bare context should satisfy no relation guard")
	}

	c.Parent = &item.WorkItem{Number: 3}
	if !isSubItem(c) {
		t.Error("parent present means sub-item")
	}

	c.Children = []*item.WorkItem{{Number: 8, Open: true, Status: item.StatusReady}}
	if !hasChildren(c) || allPhasesDone(c) {
		t.Error("open child: hasChildren without allPhasesDone")
	}
	c.Children[0].Status = item.StatusDone
	c.Children[0].Open = false
	if !allPhasesDone(c) {
		t.Error("all children closed done means phases complete")
	}

	c.Item.Assignees = []string{testutil.Bot}
	if !botAssigned(c) {
		t.Error("bot in assignees")
	}

	c.Request = &item.ChangeRequest{Number: 41, Draft: true, HeadRef: "takt/7-x"}
	if !hasRequest(c) || !hasBranch(c) || !requestDraft(c) {
		t.Error("request guards should hold")
	}
	c.Request.Draft = false
	if requestDraft(c) {
		t.Error("non-draft request")
	}
}

func TestSignalGuards(t *testing.T) {
	c := testutil.SampleContext(7, trigger.Trigger{Type: trigger.TypeCICompleted})
	c.CI = item.CIFailed
	if ciPassed(c) || !ciFailed(c) {
		t.Error("ci failed")
	}
	c.CI = item.CIPassed
	if !ciPassed(c) || ciFailed(c) {
		t.Error("ci passed")
	}

	c.Review = item.ReviewApproved
	if !reviewApproved(c) || changesRequested(c) {
		t.Error("review approved")
	}
	c.Review = item.ReviewChangesRequested
	if reviewApproved(c) || !changesRequested(c) {
		t.Error("changes requested")
	}
}

func TestCombinators(t *testing.T) {
	c := testutil.SampleContext(7, trigger.Trigger{Type: trigger.TypeItemOpened})
	if !always(c) {
		t.Error("always must hold")
	}
	if not(always)(c) {
		t.Error("not inverts")
	}
	if !and(always, needsTriage)(c) {
		t.Error("and of holding guards holds")
	}
	if and(always, isDone)(c) {
		t.Error("and with a failing guard fails")
	}
	if !triggeredBy(trigger.TypeItemOpened)(c) || triggeredBy(trigger.TypeCICompleted)(c) {
		t.Error("triggeredBy matches the trigger type")
	}
}
