// Package gitlab implements the work-item store over GitLab issues and
// merge requests. It carries the same body-marker conventions as the
// github backend so items move between trackers without translation.
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/tracker"
	"github.com/valksor/go-taktwerk/internal/tracker/token"
	"github.com/valksor/go-taktwerk/internal/tracker/trackererr"
)

// Backend is the store name.
const Backend = "gitlab"

const branchPrefix = "takt/"

// ptr is a helper to create a pointer to a value.
func ptr[T any](v T) *T {
	return &v
}

// Store implements tracker.Store against one GitLab project.
type Store struct {
	gl        *gitlab.Client
	projectID string // path ("group/project") or numeric id as string
}

// New creates a Store. host may be empty for gitlab.com.
func New(tok, host, projectID string) (*Store, error) {
	var options []gitlab.ClientOptionFunc
	if host != "" && host != "https://gitlab.com" && host != "gitlab.com" {
		baseURL := strings.TrimSuffix(host, "/") + "/api/v4"
		options = append(options, gitlab.WithBaseURL(baseURL))
	}
	client, err := gitlab.NewClient(tok, options...)
	if err != nil {
		return nil, trackererr.Wrap(Backend, err)
	}
	return &Store{gl: client, projectID: projectID}, nil
}

// ResolveToken finds the GitLab token: TAKT_GITLAB_TOKEN, then
// GITLAB_TOKEN, then the settings file.
func ResolveToken(configToken string) (string, error) {
	return token.Resolve(token.Sources{
		Backend:     "GITLAB",
		EnvVars:     []string{"GITLAB_TOKEN"},
		ConfigToken: configToken,
	})
}

// Name returns the backend name.
func (s *Store) Name() string { return Backend }

// ── Reader ──────────────────────────────────────────────────────────────

func (s *Store) GetItem(ctx context.Context, number int) (*item.WorkItem, error) {
	issue, _, err := s.gl.Issues.GetIssue(s.projectID, int64(number), gitlab.WithContext(ctx))
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
	mrs, _, err := s.gl.MergeRequests.ListProjectMergeRequests(s.projectID, &gitlab.ListProjectMergeRequestsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 50},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapAPIError(err)
	}
	for _, mr := range mrs {
		if mr.SourceBranch != prefix && !strings.HasPrefix(mr.SourceBranch, prefix+"-") {
			continue
		}
		return &item.ChangeRequest{
			ID:        strconv.FormatInt(mr.ID, 10),
			Number:    int(mr.IID),
			Draft:     mr.Draft,
			HeadRef:   mr.SourceBranch,
			BaseRef:   mr.TargetBranch,
			CommitRef: mr.SHA,
			Review:    reviewDecision(mr),
		}, nil
	}
	return nil, nil
}

func reviewDecision(mr *gitlab.BasicMergeRequest) item.ReviewDecision {
	switch mr.DetailedMergeStatus {
	case "mergeable", "ci_still_running":
		if len(mr.Reviewers) > 0 {
			return item.ReviewApproved
		}
	case "blocked_status", "requested_changes":
		return item.ReviewChangesRequested
	}
	return item.ReviewNone
}

func (s *Store) GetCIResult(ctx context.Context, ref string) (item.CIResult, error) {
	pipelines, _, err := s.gl.Pipelines.ListProjectPipelines(s.projectID, &gitlab.ListProjectPipelinesOptions{
		SHA:         ptr(ref),
		ListOptions: gitlab.ListOptions{PerPage: 1},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return item.CINone, wrapAPIError(err)
	}
	if len(pipelines) == 0 {
		return item.CINone, nil
	}
	switch pipelines[0].Status {
	case "success":
		return item.CIPassed, nil
	case "failed":
		return item.CIFailed, nil
	case "running", "pending", "created":
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
	var remove gitlab.LabelOptions
	for _, l := range it.Labels {
		if strings.HasPrefix(l, tracker.StatusLabelPrefix) {
			remove = append(remove, l)
		}
	}
	add := gitlab.LabelOptions{tracker.StatusLabel(status)}
	_, _, err = s.gl.Issues.UpdateIssue(s.projectID, int64(number),&gitlab.UpdateIssueOptions{
		AddLabels:    &add,
		RemoveLabels: &remove,
	}, gitlab.WithContext(ctx))
	return wrapAPIError(err)
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
	add := gitlab.LabelOptions(labels)
	_, _, err := s.gl.Issues.UpdateIssue(s.projectID, int64(number),&gitlab.UpdateIssueOptions{
		AddLabels: &add,
	}, gitlab.WithContext(ctx))
	return wrapAPIError(err)
}

func (s *Store) RemoveLabels(ctx context.Context, number int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	remove := gitlab.LabelOptions(labels)
	_, _, err := s.gl.Issues.UpdateIssue(s.projectID, int64(number),&gitlab.UpdateIssueOptions{
		RemoveLabels: &remove,
	}, gitlab.WithContext(ctx))
	return wrapAPIError(err)
}

func (s *Store) Assign(ctx context.Context, number int, login string) error {
	uid, err := s.userID(ctx, login)
	if err != nil {
		return err
	}
	it, _, err := s.gl.Issues.GetIssue(s.projectID, int64(number), gitlab.WithContext(ctx))
	if err != nil {
		return wrapAPIError(err)
	}
	ids := assigneeIDs(it)
	for _, id := range ids {
		if id == uid {
			return nil
		}
	}
	ids = append(ids, uid)
	_, _, err = s.gl.Issues.UpdateIssue(s.projectID, int64(number),&gitlab.UpdateIssueOptions{
		AssigneeIDs: &ids,
	}, gitlab.WithContext(ctx))
	return wrapAPIError(err)
}

func (s *Store) Unassign(ctx context.Context, number int, login string) error {
	uid, err := s.userID(ctx, login)
	if err != nil {
		return err
	}
	it, _, err := s.gl.Issues.GetIssue(s.projectID, int64(number), gitlab.WithContext(ctx))
	if err != nil {
		return wrapAPIError(err)
	}
	var ids []int64
	for _, id := range assigneeIDs(it) {
		if id != uid {
			ids = append(ids, id)
		}
	}
	_, _, err = s.gl.Issues.UpdateIssue(s.projectID, int64(number),&gitlab.UpdateIssueOptions{
		AssigneeIDs: &ids,
	}, gitlab.WithContext(ctx))
	return wrapAPIError(err)
}

func assigneeIDs(issue *gitlab.Issue) []int64 {
	out := make([]int64, 0, len(issue.Assignees))
	for _, a := range issue.Assignees {
		out = append(out, a.ID)
	}
	return out
}

func (s *Store) userID(ctx context.Context, login string) (int64, error) {
	users, _, err := s.gl.Users.ListUsers(&gitlab.ListUsersOptions{
		Username: ptr(login),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return 0, wrapAPIError(err)
	}
	if len(users) == 0 {
		return 0, trackererr.Wrap(Backend, fmt.Errorf("user %q: %w", login, trackererr.ErrNotFound))
	}
	return users[0].ID, nil
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
	_, _, err := s.gl.Notes.CreateIssueNote(s.projectID, int64(number), &gitlab.CreateIssueNoteOptions{
		Body: ptr(body),
	}, gitlab.WithContext(ctx))
	return wrapAPIError(err)
}

func (s *Store) CloseItem(ctx context.Context, number int) error {
	_, _, err := s.gl.Issues.UpdateIssue(s.projectID, int64(number),&gitlab.UpdateIssueOptions{
		StateEvent: ptr("close"),
	}, gitlab.WithContext(ctx))
	return wrapAPIError(err)
}

func (s *Store) ReopenItem(ctx context.Context, number int) error {
	_, _, err := s.gl.Issues.UpdateIssue(s.projectID, int64(number),&gitlab.UpdateIssueOptions{
		StateEvent: ptr("reopen"),
	}, gitlab.WithContext(ctx))
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

func (s *Store) editBody(ctx context.Context, number int, edit func(*tracker.BodyData)) error {
	issue, _, err := s.gl.Issues.GetIssue(s.projectID, int64(number), gitlab.WithContext(ctx))
	if err != nil {
		return wrapAPIError(err)
	}
	data := tracker.ParseBody(issue.Description)
	edit(&data)
	_, _, err = s.gl.Issues.UpdateIssue(s.projectID, int64(number),&gitlab.UpdateIssueOptions{
		Description: ptr(data.Render()),
	}, gitlab.WithContext(ctx))
	return wrapAPIError(err)
}

// ── Creator ─────────────────────────────────────────────────────────────

func (s *Store) CreateItem(ctx context.Context, n tracker.NewItem) (*item.WorkItem, error) {
	return s.createIssue(ctx, n, 0)
}

func (s *Store) CreateChild(ctx context.Context, parentNumber int, n tracker.NewItem) (*item.WorkItem, error) {
	child, err := s.createIssue(ctx, n, parentNumber)
	if err != nil {
		return nil, err
	}
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

func (s *Store) createIssue(ctx context.Context, n tracker.NewItem, parentNumber int) (*item.WorkItem, error) {
	data := tracker.BodyData{Description: n.Description, ParentNumber: parentNumber}
	opts := &gitlab.CreateIssueOptions{
		Title:       ptr(n.Title),
		Description: ptr(data.Render()),
	}
	if len(n.Labels) > 0 {
		labels := gitlab.LabelOptions(n.Labels)
		opts.Labels = &labels
	}
	issue, _, err := s.gl.Issues.CreateIssue(s.projectID, opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return s.toWorkItem(issue), nil
}

func (s *Store) CreateBranch(ctx context.Context, number int, name string) error {
	project, _, err := s.gl.Projects.GetProject(s.projectID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return wrapAPIError(err)
	}
	_, resp, err := s.gl.Branches.CreateBranch(s.projectID, &gitlab.CreateBranchOptions{
		Branch: ptr(name),
		Ref:    ptr(project.DefaultBranch),
	}, gitlab.WithContext(ctx))
	if err != nil && resp != nil && resp.StatusCode == 400 {
		return nil // branch already exists
	}
	return wrapAPIError(err)
}

func (s *Store) CreateChangeRequest(ctx context.Context, n tracker.NewChangeRequest) (*item.ChangeRequest, error) {
	title := n.Title
	if n.Draft {
		title = "Draft: " + title
	}
	mr, _, err := s.gl.MergeRequests.CreateMergeRequest(s.projectID, &gitlab.CreateMergeRequestOptions{
		Title:        ptr(title),
		Description:  ptr(n.Body),
		SourceBranch: ptr(n.HeadRef),
		TargetBranch: ptr(n.BaseRef),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return &item.ChangeRequest{
		ID:        strconv.FormatInt(mr.ID, 10),
		Number:    int(mr.IID),
		Draft:     mr.Draft,
		HeadRef:   mr.SourceBranch,
		BaseRef:   mr.TargetBranch,
		CommitRef: mr.SHA,
	}, nil
}

func (s *Store) MarkRequestReady(ctx context.Context, requestNumber int) error {
	mr, _, err := s.gl.MergeRequests.GetMergeRequest(s.projectID, int64(requestNumber), nil, gitlab.WithContext(ctx))
	if err != nil {
		return wrapAPIError(err)
	}
	title := strings.TrimPrefix(mr.Title, "Draft: ")
	_, _, err = s.gl.MergeRequests.UpdateMergeRequest(s.projectID, int64(requestNumber), &gitlab.UpdateMergeRequestOptions{
		Title: ptr(title),
	}, gitlab.WithContext(ctx))
	return wrapAPIError(err)
}

// ── conversion ──────────────────────────────────────────────────────────

func (s *Store) toWorkItem(issue *gitlab.Issue) *item.WorkItem {
	assignees := make([]string, 0, len(issue.Assignees))
	for _, a := range issue.Assignees {
		assignees = append(assignees, a.Username)
	}
	data := tracker.ParseBody(issue.Description)
	w := &item.WorkItem{
		ID:        strconv.FormatInt(issue.ID, 10),
		Number:    int(issue.IID),
		Title:     issue.Title,
		Body:      data.ToBody(),
		Labels:    append([]string(nil), issue.Labels...),
		Assignees: assignees,
		Open:      issue.State == "opened",
		Status:    tracker.StatusFromLabels(issue.Labels),
		Iteration: data.Iteration,
		Failures:  data.Failures,
	}
	if issue.UpdatedAt != nil {
		w.UpdatedAt = *issue.UpdatedAt
	}
	if data.ParentNumber > 0 {
		w.ParentID = strconv.Itoa(data.ParentNumber)
	}
	return w
}

// wrapAPIError converts client-go errors into the shared tracker taxonomy.
// The client surfaces HTTP status through the message, so match on it.
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401"):
		return trackererr.WrapHTTP(Backend, 401, err)
	case strings.Contains(msg, "403") && strings.Contains(msg, "rate limit"):
		return trackererr.WrapHTTP(Backend, 429, err)
	case strings.Contains(msg, "403"):
		return trackererr.WrapHTTP(Backend, 403, err)
	case strings.Contains(msg, "404"):
		return trackererr.WrapHTTP(Backend, 404, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return trackererr.Wrap(Backend, fmt.Errorf("%w: %w", trackererr.ErrNetwork, err))
	}
	return trackererr.Wrap(Backend, err)
}
