// Package testutil provides shared testing utilities for go-taktwerk tests.
package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/tracker"
	"github.com/valksor/go-taktwerk/internal/tracker/trackererr"
)

// FakeStore is an in-memory tracker.Store. It applies mutations to its
// item table immediately, so a refresh after a batch observes them the
// way a real tracker eventually would.
type FakeStore struct {
	mu sync.Mutex

	items    map[int]*item.WorkItem
	children map[int][]int
	requests map[int]*item.ChangeRequest
	ci       map[string]item.CIResult
	comments map[int][]string
	branches map[string]bool

	nextNumber int

	// Calls records every mutating call in order, as "op #n".
	Calls []string

	// FailOn makes the named op return an error, for failure-path tests.
	FailOn map[string]error
}

// NewFakeStore returns an empty store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		items:      make(map[int]*item.WorkItem),
		children:   make(map[int][]int),
		requests:   make(map[int]*item.ChangeRequest),
		ci:         make(map[string]item.CIResult),
		comments:   make(map[int][]string),
		branches:   make(map[string]bool),
		nextNumber: 1,
		FailOn:     make(map[string]error),
	}
}

// Seed inserts an item, assigning a number if it has none.
func (s *FakeStore) Seed(w *item.WorkItem) *item.WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.Number == 0 {
		w.Number = s.nextNumber
	}
	if w.Number >= s.nextNumber {
		s.nextNumber = w.Number + 1
	}
	if w.ID == "" {
		w.ID = strconv.Itoa(w.Number)
	}
	s.items[w.Number] = w
	return w
}

// SeedChild links child under parent, seeding the child first.
func (s *FakeStore) SeedChild(parentNumber int, w *item.WorkItem) *item.WorkItem {
	child := s.Seed(w)
	s.mu.Lock()
	defer s.mu.Unlock()
	child.ParentID = strconv.Itoa(parentNumber)
	s.children[parentNumber] = append(s.children[parentNumber], child.Number)
	return child
}

// SeedRequest links a change request to an item number.
func (s *FakeStore) SeedRequest(number int, req *item.ChangeRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[number] = req
}

// SetCI sets the CI result for a commit ref.
func (s *FakeStore) SetCI(ref string, res item.CIResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ci[ref] = res
}

// Comments returns the comments posted on an item.
func (s *FakeStore) Comments(number int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.comments[number]...)
}

// Item returns the current state of an item, or nil.
func (s *FakeStore) Item(number int) *item.WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[number]
}

func (s *FakeStore) record(op string, number int) error {
	s.Calls = append(s.Calls, fmt.Sprintf("%s #%d", op, number))
	if err, ok := s.FailOn[op]; ok {
		return err
	}
	return nil
}

func (s *FakeStore) get(number int) (*item.WorkItem, error) {
	w, ok := s.items[number]
	if !ok {
		return nil, trackererr.Wrap("fake", fmt.Errorf("item #%d: %w", number, trackererr.ErrNotFound))
	}
	return w, nil
}

func (s *FakeStore) Name() string { return "fake" }

// ── Reader ──────────────────────────────────────────────────────────────

func (s *FakeStore) GetItem(_ context.Context, number int) (*item.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.get(number)
	if err != nil {
		return nil, err
	}
	return cloneItem(w), nil
}

func (s *FakeStore) GetChildren(_ context.Context, number int) ([]*item.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*item.WorkItem
	for _, n := range s.children[number] {
		if w, ok := s.items[n]; ok {
			out = append(out, cloneItem(w))
		}
	}
	return out, nil
}

func (s *FakeStore) GetParent(_ context.Context, number int) (*item.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.get(number)
	if err != nil {
		return nil, err
	}
	if w.ParentID == "" {
		return nil, nil
	}
	pn, err := strconv.Atoi(w.ParentID)
	if err != nil {
		return nil, nil
	}
	parent, ok := s.items[pn]
	if !ok {
		return nil, nil
	}
	return cloneItem(parent), nil
}

func (s *FakeStore) GetChangeRequest(_ context.Context, number int) (*item.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[number]
	if !ok {
		return nil, nil
	}
	out := *req
	return &out, nil
}

func (s *FakeStore) GetCIResult(_ context.Context, ref string) (item.CIResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ci[ref], nil
}

// ── Mutator ─────────────────────────────────────────────────────────────

func (s *FakeStore) UpdateStatus(_ context.Context, number int, status item.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("update_status", number); err != nil {
		return err
	}
	w, err := s.get(number)
	if err != nil {
		return err
	}
	w.Status = status
	w.UpdatedAt = time.Now()
	return nil
}

func (s *FakeStore) UpdateDescription(_ context.Context, number int, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("update_description", number); err != nil {
		return err
	}
	w, err := s.get(number)
	if err != nil {
		return err
	}
	w.Body.Description = description
	return nil
}

func (s *FakeStore) AddLabels(_ context.Context, number int, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("add_labels", number); err != nil {
		return err
	}
	w, err := s.get(number)
	if err != nil {
		return err
	}
	for _, l := range labels {
		if !w.HasLabel(l) {
			w.Labels = append(w.Labels, l)
		}
	}
	return nil
}

func (s *FakeStore) RemoveLabels(_ context.Context, number int, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("remove_labels", number); err != nil {
		return err
	}
	w, err := s.get(number)
	if err != nil {
		return err
	}
	kept := w.Labels[:0]
	for _, l := range w.Labels {
		drop := false
		for _, r := range labels {
			if l == r {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, l)
		}
	}
	w.Labels = kept
	return nil
}

func (s *FakeStore) Assign(_ context.Context, number int, login string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("assign", number); err != nil {
		return err
	}
	w, err := s.get(number)
	if err != nil {
		return err
	}
	if !w.AssignedTo(login) {
		w.Assignees = append(w.Assignees, login)
	}
	return nil
}

func (s *FakeStore) Unassign(_ context.Context, number int, login string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("unassign", number); err != nil {
		return err
	}
	w, err := s.get(number)
	if err != nil {
		return err
	}
	kept := w.Assignees[:0]
	for _, a := range w.Assignees {
		if a != login {
			kept = append(kept, a)
		}
	}
	w.Assignees = kept
	return nil
}

func (s *FakeStore) SetIteration(_ context.Context, number int, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("set_iteration", number); err != nil {
		return err
	}
	w, err := s.get(number)
	if err != nil {
		return err
	}
	w.Iteration = n
	return nil
}

func (s *FakeStore) SetFailures(_ context.Context, number int, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("set_failures", number); err != nil {
		return err
	}
	w, err := s.get(number)
	if err != nil {
		return err
	}
	w.Failures = n
	return nil
}

func (s *FakeStore) Comment(_ context.Context, number int, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("comment", number); err != nil {
		return err
	}
	if _, err := s.get(number); err != nil {
		return err
	}
	s.comments[number] = append(s.comments[number], body)
	return nil
}

func (s *FakeStore) CloseItem(_ context.Context, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("close", number); err != nil {
		return err
	}
	w, err := s.get(number)
	if err != nil {
		return err
	}
	w.Open = false
	return nil
}

func (s *FakeStore) ReopenItem(_ context.Context, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("reopen", number); err != nil {
		return err
	}
	w, err := s.get(number)
	if err != nil {
		return err
	}
	w.Open = true
	return nil
}

func (s *FakeStore) UpsertHistory(_ context.Context, number int, entries []item.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("upsert_history", number); err != nil {
		return err
	}
	w, err := s.get(number)
	if err != nil {
		return err
	}
	for _, e := range entries {
		replaced := false
		for i, existing := range w.Body.History {
			if existing.Marker == e.Marker {
				w.Body.History[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			w.Body.History = append(w.Body.History, e)
		}
	}
	return nil
}

// ── Creator ─────────────────────────────────────────────────────────────

func (s *FakeStore) CreateItem(_ context.Context, n tracker.NewItem) (*item.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("create_item", s.nextNumber); err != nil {
		return nil, err
	}
	return s.create(n, 0), nil
}

func (s *FakeStore) CreateChild(_ context.Context, parentNumber int, n tracker.NewItem) (*item.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("create_child", parentNumber); err != nil {
		return nil, err
	}
	child := s.create(n, parentNumber)
	s.children[parentNumber] = append(s.children[parentNumber], child.Number)
	return cloneItem(child), nil
}

func (s *FakeStore) create(n tracker.NewItem, parentNumber int) *item.WorkItem {
	w := &item.WorkItem{
		Number: s.nextNumber,
		ID:     strconv.Itoa(s.nextNumber),
		Title:  n.Title,
		Body:   item.Body{Description: n.Description},
		Labels: append([]string(nil), n.Labels...),
		Open:   true,
		Status: tracker.StatusFromLabels(n.Labels),
	}
	if parentNumber > 0 {
		w.ParentID = strconv.Itoa(parentNumber)
	}
	s.nextNumber++
	s.items[w.Number] = w
	return w
}

func (s *FakeStore) CreateBranch(_ context.Context, number int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("create_branch", number); err != nil {
		return err
	}
	s.branches[name] = true
	return nil
}

func (s *FakeStore) CreateChangeRequest(_ context.Context, n tracker.NewChangeRequest) (*item.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("create_request", n.ItemNumber); err != nil {
		return nil, err
	}
	req := &item.ChangeRequest{
		ID:      strconv.Itoa(s.nextNumber),
		Number:  s.nextNumber,
		Draft:   n.Draft,
		HeadRef: n.HeadRef,
		BaseRef: n.BaseRef,
	}
	s.nextNumber++
	s.requests[n.ItemNumber] = req
	out := *req
	return &out, nil
}

func (s *FakeStore) MarkRequestReady(_ context.Context, requestNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("mark_ready", requestNumber); err != nil {
		return err
	}
	for _, req := range s.requests {
		if req.Number == requestNumber {
			req.Draft = false
			return nil
		}
	}
	return trackererr.Wrap("fake", fmt.Errorf("request #%d: %w", requestNumber, trackererr.ErrNotFound))
}

func cloneItem(w *item.WorkItem) *item.WorkItem {
	out := *w
	out.Labels = append([]string(nil), w.Labels...)
	out.Assignees = append([]string(nil), w.Assignees...)
	out.Body.History = append([]item.HistoryEntry(nil), w.Body.History...)
	return &out
}

// Ensure FakeStore implements tracker.Store
var _ tracker.Store = (*FakeStore)(nil)
