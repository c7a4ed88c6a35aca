package trigger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// commandWords maps a slash command to its canonical trigger type.
var commandWords = map[string]Type{
	"/triage": TypeCommandTriage,
	"/groom":  TypeCommandGroom,
	"/retry":  TypeCommandRetry,
	"/reset":  TypeCommandReset,
	"/pivot":  TypeCommandPivot,
}

// rawEvent covers the union of webhook fields we care about. Unknown fields
// are ignored so new tracker payload versions do not break decoding.
type rawEvent struct {
	Action string `json:"action"`
	Issue  *struct {
		ID     int64  `json:"id"`
		Number int    `json:"number"`
		State  string `json:"state"`
	} `json:"issue"`
	Comment *struct {
		Body string `json:"body"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"comment"`
	PullRequest *struct {
		Number int  `json:"number"`
		Merged bool `json:"merged"`
		Head   struct {
			SHA string `json:"sha"`
			Ref string `json:"ref"`
		} `json:"head"`
	} `json:"pull_request"`
	Review *struct {
		State string `json:"state"`
		User  struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"review"`
	WorkflowRun *struct {
		Conclusion string `json:"conclusion"`
		HeadSHA    string `json:"head_sha"`
		// Issue number is carried in the head branch name (takt/<n>-slug).
		HeadBranch string `json:"head_branch"`
	} `json:"workflow_run"`
	DeploymentStatus *struct {
		State string `json:"state"`
	} `json:"deployment_status"`
	Deployment *struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"deployment"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
}

// Decode maps a raw webhook payload to a canonical Trigger.
// It returns an error when the payload is not an event the engine reacts to.
func Decode(payload []byte) (Trigger, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Trigger{}, fmt.Errorf("decode event payload: %w", err)
	}

	t := Trigger{Actor: raw.Sender.Login}

	switch {
	case raw.Comment != nil && raw.Issue != nil:
		cmd, ok := parseCommand(raw.Comment.Body)
		if !ok {
			return Trigger{}, fmt.Errorf("comment on item %d carries no command", raw.Issue.Number)
		}
		t.Type = cmd
		t.ItemID = strconv.FormatInt(raw.Issue.ID, 10)
		t.ItemNumber = raw.Issue.Number
		t.Actor = raw.Comment.User.Login
		t.Comment = raw.Comment.Body

	case raw.Review != nil && raw.PullRequest != nil:
		num, err := itemNumberFromBranch(raw.PullRequest.Head.Ref)
		if err != nil {
			return Trigger{}, err
		}
		t.Type = TypeReviewSubmitted
		t.ItemNumber = num
		t.ReviewDecision = normalizeReview(raw.Review.State)
		t.CommitRef = raw.PullRequest.Head.SHA
		t.Actor = raw.Review.User.Login

	case raw.WorkflowRun != nil:
		if raw.Action != "completed" {
			return Trigger{}, fmt.Errorf("workflow run event %q is not actionable", raw.Action)
		}
		num, err := itemNumberFromBranch(raw.WorkflowRun.HeadBranch)
		if err != nil {
			return Trigger{}, err
		}
		t.Type = TypeCICompleted
		t.ItemNumber = num
		t.CommitRef = raw.WorkflowRun.HeadSHA
		if raw.WorkflowRun.Conclusion == "success" {
			t.CIResult = "success"
		} else {
			t.CIResult = "failure"
		}

	case raw.DeploymentStatus != nil:
		if raw.DeploymentStatus.State != "success" {
			return Trigger{}, fmt.Errorf("deployment state %q is not actionable", raw.DeploymentStatus.State)
		}
		if raw.Deployment == nil {
			return Trigger{}, fmt.Errorf("deployment status without deployment ref")
		}
		num, err := itemNumberFromBranch(raw.Deployment.Ref)
		if err != nil {
			return Trigger{}, err
		}
		t.Type = TypeDeployment
		t.ItemNumber = num
		t.CommitRef = raw.Deployment.SHA

	case raw.PullRequest != nil && raw.Action == "closed" && raw.PullRequest.Merged:
		num, err := itemNumberFromBranch(raw.PullRequest.Head.Ref)
		if err != nil {
			return Trigger{}, err
		}
		t.Type = TypeMergeCompleted
		t.ItemNumber = num
		t.CommitRef = raw.PullRequest.Head.SHA

	case raw.Issue != nil:
		t.ItemID = strconv.FormatInt(raw.Issue.ID, 10)
		t.ItemNumber = raw.Issue.Number
		switch raw.Action {
		case "opened":
			t.Type = TypeItemOpened
		case "edited":
			t.Type = TypeItemEdited
		case "assigned":
			t.Type = TypeItemAssigned
		case "closed":
			t.Type = TypeItemClosed
		default:
			return Trigger{}, fmt.Errorf("issue action %q is not actionable", raw.Action)
		}

	default:
		return Trigger{}, fmt.Errorf("unrecognized event payload")
	}

	if err := t.Validate(); err != nil {
		return Trigger{}, err
	}
	return t, nil
}

// parseCommand extracts a slash command from the first line of a comment.
func parseCommand(body string) (Type, bool) {
	line := body
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	word := strings.TrimSpace(line)
	if idx := strings.IndexByte(word, ' '); idx >= 0 {
		word = word[:idx]
	}
	cmd, ok := commandWords[strings.ToLower(word)]
	return cmd, ok
}

// normalizeReview maps tracker review states to the canonical decision names.
func normalizeReview(state string) string {
	switch strings.ToLower(state) {
	case "approved":
		return "approved"
	case "changes_requested":
		return "changes_requested"
	default:
		return "commented"
	}
}

// itemNumberFromBranch extracts the item number from a work branch name.
// Work branches follow the takt/<number>-<slug> pattern.
func itemNumberFromBranch(branch string) (int, error) {
	rest, ok := strings.CutPrefix(branch, "takt/")
	if !ok {
		return 0, fmt.Errorf("branch %q is not a work branch", branch)
	}
	numPart := rest
	if idx := strings.IndexByte(rest, '-'); idx >= 0 {
		numPart = rest[:idx]
	}
	num, err := strconv.Atoi(numPart)
	if err != nil || num <= 0 {
		return 0, fmt.Errorf("branch %q carries no item number", branch)
	}
	return num, nil
}
