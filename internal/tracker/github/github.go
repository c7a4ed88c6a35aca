// Package github implements the work-item store over GitHub Issues and
// pull requests. Workflow status is mirrored as a takt:status label;
// counters, the phase list, and the activity log live as body markers.
package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-github/v67/github"

	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/tracker"
	"github.com/valksor/go-taktwerk/internal/tracker/trackererr"
)

// Backend is the store name.
const Backend = "github"

// branchPrefix prefixes every work branch: takt/<number>-<slug>.
const branchPrefix = "takt/"

// Store implements tracker.Store against one repository.
type Store struct {
	gh    *github.Client
	owner string
	repo  string
}

// New creates a Store for owner/repo using the given token.
func New(tok, owner, repo string) *Store {
	return &Store{gh: NewClient(tok), owner: owner, repo: repo}
}

// NewWithClient creates a Store with a pre-built client; tests use this with
// a stub transport.
func NewWithClient(gh *github.Client, owner, repo string) *Store {
	return &Store{gh: gh, owner: owner, repo: repo}
}

// Name returns the backend name.
func (s *Store) Name() string { return Backend }

// ── Reader ──────────────────────────────────────────────────────────────

func (s *Store) GetItem(ctx context.Context, number int) (*item.WorkItem, error) {
	issue, _, err := s.gh.Issues.Get(ctx, s.owner, s.repo, number)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return s.toWorkItem(issue), nil
}

func (s *Store) GetChildren(ctx context.Context, number int) ([]*item.WorkItem, error) {
	parent, err := s.GetItem(ctx, number)
	if err != nil {
		return nil, err
	}
	data := tracker.ParseBody(parent.Body.Raw)
	children := make([]*item.WorkItem, 0, len(data.Children))
	for _, ref := range data.Children {
		child, err := s.GetItem(ctx, ref.Number)
		if err != nil {
			return nil, fmt.Errorf("phase #%d of #%d: %w", ref.Number, number, err)
		}
		children = append(children, child)
	}
	return children, nil
}

func (s *Store) GetParent(ctx context.Context, number int) (*item.WorkItem, error) {
	it, err := s.GetItem(ctx, number)
	if err != nil {
		return nil, err
	}
	data := tracker.ParseBody(it.Body.Raw)
	if data.ParentNumber == 0 {
		return nil, nil
	}
	return s.GetItem(ctx, data.ParentNumber)
}

func (s *Store) GetChangeRequest(ctx context.Context, number int) (*item.ChangeRequest, error) {
	prefix := fmt.Sprintf("%s%d", branchPrefix, number)
	prs, _, err := s.gh.PullRequests.List(ctx, s.owner, s.repo, &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 50},
	})
	if err != nil {
		return nil, wrapAPIError(err)
	}
	for _, pr := range prs {
		head := pr.Head.GetRef()
		if head != prefix && !strings.HasPrefix(head, prefix+"-") {
			continue
		}
		req := &item.ChangeRequest{
			ID:        strconv.FormatInt(pr.GetID(), 10),
			Number:    pr.GetNumber(),
			Draft:     pr.GetDraft(),
			HeadRef:   head,
			BaseRef:   pr.Base.GetRef(),
			CommitRef: pr.Head.GetSHA(),
		}
		req.Review, err = s.reviewDecision(ctx, pr.GetNumber())
		if err != nil {
			return nil, err
		}
		return req, nil
	}
	return nil, nil
}

// reviewDecision aggregates the latest review per reviewer.
func (s *Store) reviewDecision(ctx context.Context, prNumber int) (item.ReviewDecision, error) {
	reviews, _, err := s.gh.PullRequests.ListReviews(ctx, s.owner, s.repo, prNumber, nil)
	if err != nil {
		return item.ReviewNone, wrapAPIError(err)
	}
	latest := make(map[string]string)
	for _, r := range reviews {
		state := r.GetState()
		if state == "COMMENTED" {
			continue // comments never supersede an approval or block
		}
		latest[r.User.GetLogin()] = state
	}
	decision := item.ReviewNone
	for _, state := range latest {
		switch state {
		case "CHANGES_REQUESTED":
			return item.ReviewChangesRequested, nil
		case "APPROVED":
			decision = item.ReviewApproved
		}
	}
	if decision == item.ReviewNone && len(reviews) > 0 {
		decision = item.ReviewCommented
	}
	return decision, nil
}

func (s *Store) GetCIResult(ctx context.Context, ref string) (item.CIResult, error) {
	status, _, err := s.gh.Repositories.GetCombinedStatus(ctx, s.owner, s.repo, ref, nil)
	if err != nil {
		return item.CINone, wrapAPIError(err)
	}
	switch status.GetState() {
	case "success":
		return item.CIPassed, nil
	case "failure", "error":
		return item.CIFailed, nil
	case "pending":
		return item.CIPending, nil
	}
	return item.CINone, nil
}

// ── Mutator ─────────────────────────────────────────────────────────────

func (s *Store) UpdateStatus(ctx context.Context, number int, status item.Status) error {
	if !item.ValidStatus(status) {
		return trackererr.Wrap(Backend, fmt.Errorf("invalid status %q", status))
	}
	it, err := s.GetItem(ctx, number)
	if err != nil {
		return err
	}
	if it.Status == status {
		return nil
	}
	for _, l := range it.Labels {
		if strings.HasPrefix(l, tracker.StatusLabelPrefix) {
			if err := s.RemoveLabels(ctx, number, []string{l}); err != nil {
				return err
			}
		}
	}
	return s.AddLabels(ctx, number, []string{tracker.StatusLabel(status)})
}

func (s *Store) UpdateDescription(ctx context.Context, number int, description string) error {
	return s.editBody(ctx, number, func(d *tracker.BodyData) {
		d.Description = description
	})
}

func (s *Store) AddLabels(ctx context.Context, number int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	_, _, err := s.gh.Issues.AddLabelsToIssue(ctx, s.owner, s.repo, number, labels)
	return wrapAPIError(err)
}

func (s *Store) RemoveLabels(ctx context.Context, number int, labels []string) error {
	for _, l := range labels {
		if _, err := s.gh.Issues.RemoveLabelForIssue(ctx, s.owner, s.repo, number, l); err != nil {
			// A label already gone is not a failure: removals are idempotent.
			if trackererr.IsNotFound(wrapAPIError(err)) {
				continue
			}
			return wrapAPIError(err)
		}
	}
	return nil
}

func (s *Store) Assign(ctx context.Context, number int, login string) error {
	_, _, err := s.gh.Issues.AddAssignees(ctx, s.owner, s.repo, number, []string{login})
	return wrapAPIError(err)
}

func (s *Store) Unassign(ctx context.Context, number int, login string) error {
	_, _, err := s.gh.Issues.RemoveAssignees(ctx, s.owner, s.repo, number, []string{login})
	return wrapAPIError(err)
}

func (s *Store) SetIteration(ctx context.Context, number int, n int) error {
	return s.editBody(ctx, number, func(d *tracker.BodyData) {
		d.Iteration = n
	})
}

func (s *Store) SetFailures(ctx context.Context, number int, n int) error {
	return s.editBody(ctx, number, func(d *tracker.BodyData) {
		d.Failures = n
	})
}

func (s *Store) Comment(ctx context.Context, number int, body string) error {
	_, _, err := s.gh.Issues.CreateComment(ctx, s.owner, s.repo, number, &github.IssueComment{
		Body: ptr(body),
	})
	return wrapAPIError(err)
}

func (s *Store) CloseItem(ctx context.Context, number int) error {
	_, _, err := s.gh.Issues.Edit(ctx, s.owner, s.repo, number, &github.IssueRequest{
		State: ptr("closed"),
	})
	return wrapAPIError(err)
}

func (s *Store) ReopenItem(ctx context.Context, number int) error {
	_, _, err := s.gh.Issues.Edit(ctx, s.owner, s.repo, number, &github.IssueRequest{
		State: ptr("open"),
	})
	return wrapAPIError(err)
}

func (s *Store) UpsertHistory(ctx context.Context, number int, entries []item.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.editBody(ctx, number, func(d *tracker.BodyData) {
		d.Upsert(entries...)
	})
}

// editBody does a read-modify-write cycle on the item body markers.
func (s *Store) editBody(ctx context.Context, number int, edit func(*tracker.BodyData)) error {
	issue, _, err := s.gh.Issues.Get(ctx, s.owner, s.repo, number)
	if err != nil {
		return wrapAPIError(err)
	}
	data := tracker.ParseBody(issue.GetBody())
	edit(&data)
	_, _, err = s.gh.Issues.Edit(ctx, s.owner, s.repo, number, &github.IssueRequest{
		Body: ptr(data.Render()),
	})
	return wrapAPIError(err)
}

// ── Creator ─────────────────────────────────────────────────────────────

func (s *Store) CreateItem(ctx context.Context, n tracker.NewItem) (*item.WorkItem, error) {
	data := tracker.BodyData{Description: n.Description}
	req := &github.IssueRequest{
		Title: ptr(n.Title),
		Body:  ptr(data.Render()),
	}
	if len(n.Labels) > 0 {
		req.Labels = &n.Labels
	}
	issue, _, err := s.gh.Issues.Create(ctx, s.owner, s.repo, req)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return s.toWorkItem(issue), nil
}

func (s *Store) CreateChild(ctx context.Context, parentNumber int, n tracker.NewItem) (*item.WorkItem, error) {
	data := tracker.BodyData{Description: n.Description, ParentNumber: parentNumber}
	req := &github.IssueRequest{
		Title: ptr(n.Title),
		Body:  ptr(data.Render()),
	}
	if len(n.Labels) > 0 {
		req.Labels = &n.Labels
	}
	issue, _, err := s.gh.Issues.Create(ctx, s.owner, s.repo, req)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	child := s.toWorkItem(issue)

	err = s.editBody(ctx, parentNumber, func(d *tracker.BodyData) {
		for _, ref := range d.Children {
			if ref.Number == child.Number {
				return
			}
		}
		d.Children = append(d.Children, tracker.ChildRef{Number: child.Number})
	})
	if err != nil {
		return nil, fmt.Errorf("link phase #%d to #%d: %w", child.Number, parentNumber, err)
	}
	return child, nil
}

func (s *Store) CreateBranch(ctx context.Context, number int, name string) error {
	repo, _, err := s.gh.Repositories.Get(ctx, s.owner, s.repo)
	if err != nil {
		return wrapAPIError(err)
	}
	base, _, err := s.gh.Git.GetRef(ctx, s.owner, s.repo, "refs/heads/"+repo.GetDefaultBranch())
	if err != nil {
		return wrapAPIError(err)
	}
	_, _, err = s.gh.Git.CreateRef(ctx, s.owner, s.repo, &github.Reference{
		Ref:    ptr("refs/heads/" + name),
		Object: &github.GitObject{SHA: base.Object.SHA},
	})
	if err != nil && strings.Contains(err.Error(), "Reference already exists") {
		return nil // idempotent
	}
	return wrapAPIError(err)
}

func (s *Store) CreateChangeRequest(ctx context.Context, n tracker.NewChangeRequest) (*item.ChangeRequest, error) {
	pr, _, err := s.gh.PullRequests.Create(ctx, s.owner, s.repo, &github.NewPullRequest{
		Title: ptr(n.Title),
		Body:  ptr(n.Body),
		Head:  ptr(n.HeadRef),
		Base:  ptr(n.BaseRef),
		Draft: ptr(n.Draft),
	})
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return &item.ChangeRequest{
		ID:        strconv.FormatInt(pr.GetID(), 10),
		Number:    pr.GetNumber(),
		Draft:     pr.GetDraft(),
		HeadRef:   pr.Head.GetRef(),
		BaseRef:   pr.Base.GetRef(),
		CommitRef: pr.Head.GetSHA(),
	}, nil
}

// MarkRequestReady requests review on the change request. The REST API
// cannot flip the draft flag, so readiness is signaled through the review
// request plus the in_review status label on the item.
func (s *Store) MarkRequestReady(ctx context.Context, requestNumber int) error {
	pr, _, err := s.gh.PullRequests.Get(ctx, s.owner, s.repo, requestNumber)
	if err != nil {
		return wrapAPIError(err)
	}
	reviewers := collaboratorReviewers(pr)
	if len(reviewers) == 0 {
		return nil
	}
	_, _, err = s.gh.PullRequests.RequestReviewers(ctx, s.owner, s.repo, requestNumber, github.ReviewersRequest{
		Reviewers: reviewers,
	})
	return wrapAPIError(err)
}

// collaboratorReviewers picks reviewers for a ready request: the PR author's
// requested reviewers if any, else the repository owner.
func collaboratorReviewers(pr *github.PullRequest) []string {
	var out []string
	for _, u := range pr.RequestedReviewers {
		out = append(out, u.GetLogin())
	}
	if len(out) == 0 && pr.Base != nil && pr.Base.Repo != nil && pr.Base.Repo.Owner != nil {
		owner := pr.Base.Repo.Owner.GetLogin()
		if owner != "" && owner != pr.User.GetLogin() {
			out = append(out, owner)
		}
	}
	return out
}

// ── conversion ──────────────────────────────────────────────────────────

func (s *Store) toWorkItem(issue *github.Issue) *item.WorkItem {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}
	assignees := make([]string, 0, len(issue.Assignees))
	for _, a := range issue.Assignees {
		assignees = append(assignees, a.GetLogin())
	}
	data := tracker.ParseBody(issue.GetBody())
	w := &item.WorkItem{
		ID:        strconv.FormatInt(issue.GetID(), 10),
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      data.ToBody(),
		Labels:    labels,
		Assignees: assignees,
		Open:      issue.GetState() == "open",
		Status:    tracker.StatusFromLabels(labels),
		Iteration: data.Iteration,
		Failures:  data.Failures,
		UpdatedAt: issue.GetUpdatedAt().Time,
	}
	if data.ParentNumber > 0 {
		w.ParentID = strconv.Itoa(data.ParentNumber)
	}
	return w
}
