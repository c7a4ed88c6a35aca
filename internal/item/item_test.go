package item

import "testing"

func phases(states ...Status) []*WorkItem {
	out := make([]*WorkItem, len(states))
	for i, s := range states {
		out[i] = &WorkItem{
			ID:     string(rune('A' + i)),
			Number: 10 + i,
			Open:   s != StatusDone,
			Status: s,
		}
	}
	return out
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusBacklog, StatusReady, StatusInProgress,
		StatusInReview, StatusDone, StatusBlocked, StatusError} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%s) = false", s)
		}
	}
	if ValidStatus("paused") || ValidStatus("") {
		t.Error("unknown statuses must not validate")
	}
}

func TestNextPhase(t *testing.T) {
	c := &Context{Children: phases(StatusDone, StatusInProgress, StatusReady)}
	if got := c.NextPhase(); got == nil || got.Number != 11 {
		t.Errorf("NextPhase() = %v, want the first non-done child", got)
	}

	// A closed child is skipped even when its status is not done.
	c.Children[1].Open = false
	if got := c.NextPhase(); got == nil || got.Number != 12 {
		t.Errorf("NextPhase() = %v, closed children are skipped", got)
	}

	c = &Context{Children: phases(StatusDone, StatusDone)}
	if c.NextPhase() != nil {
		t.Error("NextPhase() should be nil when every phase is complete")
	}
}

func TestAllPhasesDone(t *testing.T) {
	if (&Context{}).AllPhasesDone() {
		t.Error("no children means nothing is done")
	}
	if (&Context{Children: phases(StatusDone, StatusInProgress)}).AllPhasesDone() {
		t.Error("an active phase blocks completion")
	}
	if !(&Context{Children: phases(StatusDone, StatusDone)}).AllPhasesDone() {
		t.Error("all-done children should report complete")
	}
}

func TestOpenChildren(t *testing.T) {
	c := &Context{Children: phases(StatusDone, StatusInProgress, StatusReady)}
	if got := c.OpenChildren(); got != 2 {
		t.Errorf("OpenChildren() = %d, want 2", got)
	}
}

func TestContextHelpers(t *testing.T) {
	c := &Context{
		Item: &WorkItem{Number: 7, Labels: []string{"bug"}, Assignees: []string{"takt-bot"}},
		Run:  RunSettings{BotLogin: "takt-bot"},
	}
	if c.IsSubItem() {
		t.Error("no parent means not a sub-item")
	}
	if !c.BotAssigned() {
		t.Error("bot is assigned")
	}
	if c.HasBranch() {
		t.Error("no request means no branch")
	}
	c.Request = &ChangeRequest{HeadRef: "takt/7-fix"}
	if !c.HasBranch() {
		t.Error("request head ref means a branch exists")
	}
	if !c.Item.HasLabel("bug") || c.Item.HasLabel("feature") {
		t.Error("HasLabel mismatch")
	}
}

func TestChildLookup(t *testing.T) {
	c := &Context{Children: phases(StatusReady, StatusReady)}
	if got := c.Child("B"); got == nil || got.Number != 11 {
		t.Errorf("Child(B) = %v", got)
	}
	if c.Child("Z") != nil {
		t.Error("unknown id should return nil")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &Context{
		Item: &WorkItem{
			Number:    7,
			Labels:    []string{"bug"},
			Assignees: []string{"takt-bot"},
			Body:      Body{History: []HistoryEntry{{Marker: "triage", Text: "ok"}}},
		},
		Parent:   &WorkItem{Number: 3},
		Siblings: phases(StatusReady),
		Children: phases(StatusReady, StatusDone),
		Request:  &ChangeRequest{Number: 41, Draft: true},
	}

	clone := orig.Clone()
	clone.Item.Labels[0] = "changed"
	clone.Item.Body.History[0].Text = "changed"
	clone.Children[0].Status = StatusDone
	clone.Request.Draft = false
	clone.Parent.Number = 99

	if orig.Item.Labels[0] != "bug" || orig.Item.Body.History[0].Text != "ok" {
		t.Error("item slices must not be shared with the clone")
	}
	if orig.Children[0].Status != StatusReady {
		t.Error("children must be cloned")
	}
	if !orig.Request.Draft || orig.Parent.Number != 3 {
		t.Error("request and parent must be cloned")
	}

	var nilCtx *Context
	if nilCtx.Clone() != nil {
		t.Error("cloning nil yields nil")
	}
}
