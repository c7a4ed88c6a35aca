package trigger

import (
	"strings"
	"testing"
)

func TestDecodeIssueEvents(t *testing.T) {
	cases := []struct {
		action string
		want   Type
	}{
		{"opened", TypeItemOpened},
		{"edited", TypeItemEdited},
		{"assigned", TypeItemAssigned},
		{"closed", TypeItemClosed},
	}
	for _, tc := range cases {
		payload := `{"action":"` + tc.action + `","issue":{"id":101,"number":7,"state":"open"},"sender":{"login":"alice"}}`
		trig, err := Decode([]byte(payload))
		if err != nil {
			t.Fatalf("%s: %v", tc.action, err)
		}
		if trig.Type != tc.want {
			t.Errorf("%s: type = %s, want %s", tc.action, trig.Type, tc.want)
		}
		if trig.ItemNumber != 7 || trig.ItemID != "101" {
			t.Errorf("%s: item ref = #%d/%s", tc.action, trig.ItemNumber, trig.ItemID)
		}
		if trig.Actor != "alice" {
			t.Errorf("%s: actor = %q", tc.action, trig.Actor)
		}
	}
}

func TestDecodeIssueUnknownAction(t *testing.T) {
	payload := `{"action":"labeled","issue":{"id":101,"number":7},"sender":{"login":"alice"}}`
	if _, err := Decode([]byte(payload)); err == nil {
		t.Error("unhandled issue actions must be rejected")
	}
}

func TestDecodeCommands(t *testing.T) {
	cases := []struct {
		body string
		want Type
		ok   bool
	}{
		{"/retry", TypeCommandRetry, true},
		{"/RESET", TypeCommandReset, true},
		{"/pivot the scope changed", TypeCommandPivot, true},
		{"/triage\nwith a second line", TypeCommandTriage, true},
		{"/groom", TypeCommandGroom, true},
		{"please /retry this", "", false}, // command must lead the comment
		{"just a comment", "", false},
	}
	for _, tc := range cases {
		payload := `{"action":"created","issue":{"id":101,"number":7},` +
			`"comment":{"body":` + quote(tc.body) + `,"user":{"login":"bob"}},"sender":{"login":"ignored"}}`
		trig, err := Decode([]byte(payload))
		if !tc.ok {
			if err == nil {
				t.Errorf("%q: expected rejection", tc.body)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.body, err)
		}
		if trig.Type != tc.want {
			t.Errorf("%q: type = %s, want %s", tc.body, trig.Type, tc.want)
		}
		if trig.Actor != "bob" {
			t.Errorf("%q: command actor is the comment author, got %q", tc.body, trig.Actor)
		}
	}
}

func TestDecodeWorkflowRun(t *testing.T) {
	payload := `{"action":"completed","workflow_run":{"conclusion":"failure","head_sha":"abc123","head_branch":"takt/7-rate-limit"},"sender":{"login":"ci"}}`
	trig, err := Decode([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if trig.Type != TypeCICompleted || trig.CIResult != "failure" {
		t.Errorf("trigger = %+v", trig)
	}
	if trig.ItemNumber != 7 {
		t.Errorf("item number from branch = %d, want 7", trig.ItemNumber)
	}
	if trig.CommitRef != "abc123" {
		t.Errorf("commit = %q", trig.CommitRef)
	}

	// A run still in progress is not actionable.
	payload = `{"action":"requested","workflow_run":{"conclusion":"","head_sha":"abc123","head_branch":"takt/7-x"},"sender":{"login":"ci"}}`
	if _, err := Decode([]byte(payload)); err == nil {
		t.Error("incomplete workflow runs must be rejected")
	}

	// CI on a branch the engine does not manage.
	payload = `{"action":"completed","workflow_run":{"conclusion":"success","head_sha":"abc123","head_branch":"main"},"sender":{"login":"ci"}}`
	if _, err := Decode([]byte(payload)); err == nil {
		t.Error("runs on foreign branches must be rejected")
	}
}

func TestDecodeReview(t *testing.T) {
	payload := `{"action":"submitted","pull_request":{"number":41,"head":{"sha":"abc123","ref":"takt/7-rate-limit"}},` +
		`"review":{"state":"APPROVED","user":{"login":"bob"}},"sender":{"login":"ignored"}}`
	trig, err := Decode([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if trig.Type != TypeReviewSubmitted || trig.ReviewDecision != "approved" {
		t.Errorf("trigger = %+v", trig)
	}
	if trig.ItemNumber != 7 {
		t.Errorf("review resolves the item from the head branch, got #%d", trig.ItemNumber)
	}
	if trig.Actor != "bob" {
		t.Errorf("actor = %q, want the reviewer", trig.Actor)
	}
}

func TestDecodeMerge(t *testing.T) {
	payload := `{"action":"closed","pull_request":{"number":41,"merged":true,"head":{"sha":"abc123","ref":"takt/7-rate-limit"}},"sender":{"login":"bob"}}`
	trig, err := Decode([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if trig.Type != TypeMergeCompleted || trig.ItemNumber != 7 || trig.CommitRef != "abc123" {
		t.Errorf("trigger = %+v", trig)
	}

	// Closed without merging is not a merge event.
	payload = `{"action":"closed","pull_request":{"number":41,"merged":false,"head":{"sha":"abc123","ref":"takt/7-x"}},"sender":{"login":"bob"}}`
	if _, err := Decode([]byte(payload)); err == nil {
		t.Error("an unmerged close must be rejected")
	}
}

func TestDecodeDeployment(t *testing.T) {
	payload := `{"action":"created","deployment_status":{"state":"success"},` +
		`"deployment":{"ref":"takt/7-rate-limit","sha":"abc123"},"sender":{"login":"ci"}}`
	trig, err := Decode([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if trig.Type != TypeDeployment || trig.ItemNumber != 7 || trig.CommitRef != "abc123" {
		t.Errorf("trigger = %+v", trig)
	}

	payload = `{"action":"created","deployment_status":{"state":"failure"},` +
		`"deployment":{"ref":"takt/7-x","sha":"abc123"},"sender":{"login":"ci"}}`
	if _, err := Decode([]byte(payload)); err == nil {
		t.Error("failed deployments must be rejected")
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode([]byte(`{`)); err == nil {
		t.Error("malformed JSON must be rejected")
	}
	if _, err := Decode([]byte(`{"something":"else"}`)); err == nil {
		t.Error("unrecognized payloads must be rejected")
	}
}

func TestItemNumberFromBranch(t *testing.T) {
	cases := []struct {
		branch string
		want   int
		ok     bool
	}{
		{"takt/7-rate-limit", 7, true},
		{"takt/123", 123, true},
		{"takt/0-x", 0, false},
		{"takt/abc", 0, false},
		{"feature/7-x", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := itemNumberFromBranch(tc.branch)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("%q: got %d, %v", tc.branch, got, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%q: expected an error", tc.branch)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := Trigger{Type: TypeItemEdited, ItemNumber: 7}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid trigger rejected: %v", err)
	}
	cases := []Trigger{
		{},
		{Type: TypeItemEdited},
		{Type: TypeCICompleted, ItemNumber: 7},
		{Type: TypeReviewSubmitted, ItemNumber: 7},
	}
	for _, trig := range cases {
		if err := trig.Validate(); err == nil {
			t.Errorf("%+v: expected a validation error", trig)
		}
	}
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, "\n", `\n`) + `"`
}
