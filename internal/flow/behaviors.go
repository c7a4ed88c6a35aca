package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/valksor/go-taktwerk/internal/agent"
	"github.com/valksor/go-taktwerk/internal/engine"
	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/slices"
	"github.com/valksor/go-taktwerk/internal/tracker"
)

// Deps are the collaborators the workflow's execute behaviors drive.
type Deps struct {
	Store   tracker.Store
	Agent   agent.Invoker
	WorkDir string
}

// buildRegistry binds every action type to its behavior triple. The
// history buffer is per-run; execute closures share it with the
// machine's persist hook.
func buildRegistry(deps Deps, hist *historyBuffer) *engine.Registry {
	reg := engine.NewRegistry()

	reg.MustRegister(ActionRunTriage, engine.Behavior{
		Predict: predictIdentity,
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(AgentPayload)
			res, err := deps.Agent.Invoke(ctx, agent.Request{Prompt: p.Prompt, WorkDir: deps.WorkDir, WantStructured: true})
			if err != nil {
				return nil, fmt.Errorf("triage agent: %w", err)
			}
			var out agent.TriageOutput
			if err := res.Decode(&out); err != nil {
				return nil, fmt.Errorf("triage output: %w", err)
			}
			if err := out.Validate(); err != nil {
				return nil, err
			}
			return &out, nil
		},
	})

	reg.MustRegister(ActionApplyTriageOutput, engine.Behavior{
		Predict: predictApplyTriage,
		Observe: true,
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(ItemPayload)
			v, ok := arts.Get(a.Consumes)
			if !ok {
				return nil, fmt.Errorf("apply triage: artifact %q missing", a.Consumes)
			}
			out := v.(*agent.TriageOutput)

			labels := slices.Unique(append([]string{tracker.TriagedLabel}, out.Labels...))
			if err := deps.Store.AddLabels(ctx, p.Number, labels); err != nil {
				return nil, err
			}
			if !out.Ready {
				body := "Needs more detail before grooming:\n"
				for _, q := range out.Questions {
					body += "- " + q + "\n"
				}
				if err := deps.Store.Comment(ctx, p.Number, body); err != nil {
					return nil, err
				}
			}
			hist.Add(p.Number, item.HistoryEntry{Marker: markerTriage, Text: out.Summary})
			return nil, nil
		},
	})

	reg.MustRegister(ActionRunGroom, engine.Behavior{
		Predict: predictIdentity,
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(AgentPayload)
			res, err := deps.Agent.Invoke(ctx, agent.Request{Prompt: p.Prompt, WorkDir: deps.WorkDir, WantStructured: true})
			if err != nil {
				return nil, fmt.Errorf("groom agent: %w", err)
			}
			var out agent.GroomOutput
			if err := res.Decode(&out); err != nil {
				return nil, fmt.Errorf("groom output: %w", err)
			}
			if err := out.Validate(); err != nil {
				return nil, err
			}
			return &out, nil
		},
	})

	reg.MustRegister(ActionApplyGroomOutput, engine.Behavior{
		Predict: predictApplyGroom,
		Observe: true,
		// Grooming creates an agent-decided number of phases; the
		// structural child comparison cannot be predicted exactly.
		Verify: dropChildDiffs,
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(ItemPayload)
			v, ok := arts.Get(a.Consumes)
			if !ok {
				return nil, fmt.Errorf("apply groom: artifact %q missing", a.Consumes)
			}
			out := v.(*agent.GroomOutput)

			if err := deps.Store.UpdateDescription(ctx, p.Number, out.Description); err != nil {
				return nil, err
			}
			// Single-phase work stays on the item itself; only a real
			// decomposition creates children.
			if len(out.Phases) > 1 {
				for _, phase := range out.Phases {
					child, err := deps.Store.CreateChild(ctx, p.Number, tracker.NewItem{
						Title:       phase.Title,
						Description: phase.Description,
						Labels:      []string{tracker.StatusLabel(item.StatusReady)},
					})
					if err != nil {
						return nil, fmt.Errorf("create phase %q: %w", phase.Title, err)
					}
					hist.Add(p.Number, item.HistoryEntry{
						Marker: fmt.Sprintf("%s/%d", markerPhase, child.Number),
						Text:   fmt.Sprintf("phase #%d: %s", child.Number, phase.Title),
					})
				}
			}
			hist.Add(p.Number, item.HistoryEntry{Marker: markerGroom, Text: fmt.Sprintf("groomed into %d phase(s)", len(out.Phases))})
			return nil, nil
		},
	})

	reg.MustRegister(ActionRunIteration, engine.Behavior{
		Predict: predictIdentity,
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(AgentPayload)
			res, err := deps.Agent.Invoke(ctx, agent.Request{Prompt: p.Prompt, WorkDir: deps.WorkDir, WantStructured: true})
			if err != nil {
				return nil, fmt.Errorf("iteration agent: %w", err)
			}
			var out agent.IterationOutput
			if err := res.Decode(&out); err != nil {
				return nil, fmt.Errorf("iteration output: %w", err)
			}
			if err := out.Validate(); err != nil {
				return nil, err
			}
			return &out, nil
		},
	})

	reg.MustRegister(ActionApplyIterationOutput, engine.Behavior{
		Predict: predictHistory(markerIteration),
		Observe: true,
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(ItemPayload)
			v, ok := arts.Get(a.Consumes)
			if !ok {
				return nil, fmt.Errorf("apply iteration: artifact %q missing", a.Consumes)
			}
			out := v.(*agent.IterationOutput)

			text := out.Summary
			if out.CommitRef != "" {
				text = fmt.Sprintf("%s (%s)", out.Summary, shortRef(out.CommitRef))
			}
			hist.Add(p.Number, item.HistoryEntry{Marker: markerIteration, Text: text})
			return out, nil
		},
	})

	reg.MustRegister(ActionUpdateStatus, engine.Behavior{
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(StatusPayload)
			if w := targetItem(c, p.Number); w != nil {
				w.Status = p.Status
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(StatusPayload)
			return nil, deps.Store.UpdateStatus(ctx, p.Number, p.Status)
		},
	})

	reg.MustRegister(ActionAddLabels, engine.Behavior{
		Soft: true,
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(LabelsPayload)
			if w := targetItem(c, p.Number); w != nil {
				for _, l := range p.Labels {
					if !w.HasLabel(l) {
						w.Labels = append(w.Labels, l)
					}
				}
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(LabelsPayload)
			return nil, deps.Store.AddLabels(ctx, p.Number, p.Labels)
		},
	})

	reg.MustRegister(ActionRemoveLabels, engine.Behavior{
		Soft: true,
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(LabelsPayload)
			if w := targetItem(c, p.Number); w != nil {
				kept := w.Labels[:0]
				for _, l := range w.Labels {
					if !contains(p.Labels, l) {
						kept = append(kept, l)
					}
				}
				w.Labels = kept
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(LabelsPayload)
			return nil, deps.Store.RemoveLabels(ctx, p.Number, p.Labels)
		},
	})

	reg.MustRegister(ActionAssignBot, engine.Behavior{
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(ItemPayload)
			if w := targetItem(c, p.Number); w != nil && !w.AssignedTo(c.Run.BotLogin) {
				w.Assignees = append(w.Assignees, c.Run.BotLogin)
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(ItemPayload)
			return nil, deps.Store.Assign(ctx, p.Number, c.Run.BotLogin)
		},
	})

	reg.MustRegister(ActionUnassignBot, engine.Behavior{
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(ItemPayload)
			if w := targetItem(c, p.Number); w != nil {
				kept := w.Assignees[:0]
				for _, login := range w.Assignees {
					if login != c.Run.BotLogin {
						kept = append(kept, login)
					}
				}
				w.Assignees = kept
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(ItemPayload)
			return nil, deps.Store.Unassign(ctx, p.Number, c.Run.BotLogin)
		},
	})

	reg.MustRegister(ActionBumpIteration, engine.Behavior{
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(ItemPayload)
			if w := targetItem(c, p.Number); w != nil {
				w.Iteration++
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(ItemPayload)
			w := targetItem(c, p.Number)
			if w == nil {
				return nil, fmt.Errorf("bump iteration: item #%d not in context", p.Number)
			}
			return nil, deps.Store.SetIteration(ctx, p.Number, w.Iteration+1)
		},
	})

	reg.MustRegister(ActionSetFailures, engine.Behavior{
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(CounterPayload)
			if w := targetItem(c, p.Number); w != nil {
				w.Failures = p.Value
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(CounterPayload)
			return nil, deps.Store.SetFailures(ctx, p.Number, p.Value)
		},
	})

	reg.MustRegister(ActionUpsertHistory, engine.Behavior{
		Soft: true,
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(HistoryPayload)
			if w := targetItem(c, p.Number); w != nil {
				upsertEntry(w, item.HistoryEntry{Marker: p.Marker, Text: p.Text})
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(HistoryPayload)
			hist.Add(p.Number, item.HistoryEntry{Marker: p.Marker, Text: p.Text})
			return nil, nil
		},
	})

	reg.MustRegister(ActionAssignPhase, engine.Behavior{
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(PhasePayload)
			if child := c.Child(p.ChildID); child != nil && !child.AssignedTo(c.Run.BotLogin) {
				child.Assignees = append(child.Assignees, c.Run.BotLogin)
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(PhasePayload)
			if err := deps.Store.Assign(ctx, p.ChildNumber, c.Run.BotLogin); err != nil {
				return nil, err
			}
			hist.Add(p.ParentNumber, item.HistoryEntry{
				Marker: fmt.Sprintf("%s/active", markerPhase),
				Text:   fmt.Sprintf("working on phase #%d", p.ChildNumber),
			})
			return nil, nil
		},
	})

	reg.MustRegister(ActionCloseItem, engine.Behavior{
		Observe: true,
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(ItemPayload)
			if w := targetItem(c, p.Number); w != nil {
				w.Open = false
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(ItemPayload)
			return nil, deps.Store.CloseItem(ctx, p.Number)
		},
	})

	reg.MustRegister(ActionReopenItem, engine.Behavior{
		Observe: true,
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(ItemPayload)
			if w := targetItem(c, p.Number); w != nil {
				w.Open = true
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(ItemPayload)
			return nil, deps.Store.ReopenItem(ctx, p.Number)
		},
	})

	reg.MustRegister(ActionCreateBranch, engine.Behavior{
		Observe: true,
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(BranchPayload)
			if c.Request == nil {
				c.Request = &item.ChangeRequest{HeadRef: p.Name}
			}
			return one(c)
		},
		// Branch creation is idempotent and request detection may lag
		// one refresh; presence of the branch is not a hard failure.
		Verify: func(expected, actual *engine.StateTree, diffs []engine.FieldDiff) []engine.FieldDiff {
			return dropPath(diffs, "has_branch")
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(BranchPayload)
			return nil, deps.Store.CreateBranch(ctx, p.Number, p.Name)
		},
	})

	reg.MustRegister(ActionOpenChangeRequest, engine.Behavior{
		Observe: true,
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			p := a.Payload.(RequestPayload)
			c.Request = &item.ChangeRequest{
				Draft:   p.Draft,
				HeadRef: p.HeadRef,
				BaseRef: p.BaseRef,
			}
			return one(c)
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(RequestPayload)
			return deps.Store.CreateChangeRequest(ctx, tracker.NewChangeRequest{
				ItemNumber: p.Number,
				Title:      p.Title,
				Body:       fmt.Sprintf("Automated change for #%d.", p.Number),
				HeadRef:    p.HeadRef,
				BaseRef:    p.BaseRef,
				Draft:      p.Draft,
			})
		},
	})

	reg.MustRegister(ActionMarkRequestReady, engine.Behavior{
		Observe: true,
		// The draft flip propagates eventually: both the flipped and
		// the still-draft request are acceptable right after the call.
		Predict: func(c *item.Context, a engine.Action) []*item.Context {
			flipped := c
			if flipped.Request != nil {
				flipped.Request.Draft = false
			}
			lagging := flipped.Clone()
			if lagging.Request != nil {
				lagging.Request.Draft = true
			}
			return []*item.Context{flipped, lagging}
		},
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(ReadyPayload)
			return nil, deps.Store.MarkRequestReady(ctx, p.RequestNumber)
		},
	})

	reg.MustRegister(ActionPostComment, engine.Behavior{
		Soft:    true,
		Predict: predictIdentity,
		Execute: func(ctx context.Context, c *item.Context, a engine.Action, arts *engine.Artifacts) (any, error) {
			p := a.Payload.(CommentPayload)
			return nil, deps.Store.Comment(ctx, p.Number, p.Body)
		},
	})

	return reg
}

// ── predict helpers ─────────────────────────────────────────────────────

func one(c *item.Context) []*item.Context { return []*item.Context{c} }

func predictIdentity(c *item.Context, _ engine.Action) []*item.Context {
	return one(c)
}

func predictApplyTriage(c *item.Context, a engine.Action) []*item.Context {
	p := a.Payload.(ItemPayload)
	if w := targetItem(c, p.Number); w != nil {
		if !w.HasLabel(tracker.TriagedLabel) {
			w.Labels = append(w.Labels, tracker.TriagedLabel)
		}
		upsertEntry(w, item.HistoryEntry{Marker: markerTriage, Text: "triaged"})
	}
	return one(c)
}

func predictApplyGroom(c *item.Context, a engine.Action) []*item.Context {
	p := a.Payload.(ItemPayload)
	if w := targetItem(c, p.Number); w != nil {
		w.Body.Description = "groomed"
		upsertEntry(w, item.HistoryEntry{Marker: markerGroom, Text: "groomed"})
	}
	return one(c)
}

func predictHistory(marker string) engine.PredictFunc {
	return func(c *item.Context, a engine.Action) []*item.Context {
		p := a.Payload.(ItemPayload)
		if w := targetItem(c, p.Number); w != nil {
			upsertEntry(w, item.HistoryEntry{Marker: marker, Text: "logged"})
		}
		return one(c)
	}
}

// targetItem resolves a payload item number against the snapshot: the
// item itself, then its children, siblings, and parent.
func targetItem(c *item.Context, number int) *item.WorkItem {
	if c.Item != nil && c.Item.Number == number {
		return c.Item
	}
	byNumber := func(w *item.WorkItem) bool { return w.Number == number }
	if w, ok := slices.Find(c.Children, byNumber); ok {
		return w
	}
	if w, ok := slices.Find(c.Siblings, byNumber); ok {
		return w
	}
	if c.Parent != nil && c.Parent.Number == number {
		return c.Parent
	}
	return nil
}

func upsertEntry(w *item.WorkItem, e item.HistoryEntry) {
	for i, existing := range w.Body.History {
		if existing.Marker == e.Marker {
			w.Body.History[i] = e
			return
		}
	}
	w.Body.History = append(w.Body.History, e)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func shortRef(ref string) string {
	if len(ref) > 10 {
		return ref[:10]
	}
	return ref
}

// dropChildDiffs clears diffs under the children sub-trees and the
// unresolved counter.
func dropChildDiffs(expected, actual *engine.StateTree, diffs []engine.FieldDiff) []engine.FieldDiff {
	kept := diffs[:0]
	for _, d := range diffs {
		if d.Path == "unresolved" || strings.HasPrefix(d.Path, "children") {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

func dropPath(diffs []engine.FieldDiff, path string) []engine.FieldDiff {
	kept := diffs[:0]
	for _, d := range diffs {
		if d.Path == path {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}
