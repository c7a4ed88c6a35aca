package flow

import (
	"fmt"

	"github.com/valksor/go-taktwerk/internal/engine"
	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/tracker"
	"github.com/valksor/go-taktwerk/internal/trigger"
)

// Workflow states. Dispatching is the entry; every run ends in one of
// the terminal states below, and a later trigger re-enters from
// dispatching with a fresh snapshot.
const (
	StateDispatching engine.StateName = "dispatching"

	// Maintenance commands.
	StateResetting engine.StateName = "resetting"
	StateRetrying  engine.StateName = "retrying"
	StatePivoting  engine.StateName = "pivoting"

	// Agent-driven stages.
	StateTriaging  engine.StateName = "triaging"
	StateGrooming  engine.StateName = "grooming"
	StateIterating engine.StateName = "iterating"

	// Terminal-status short circuits.
	StateDoneIdle    engine.StateName = "doneIdle"
	StateBlockedIdle engine.StateName = "blockedIdle"
	StateErrorIdle   engine.StateName = "errorIdle"
	StateClosedIdle  engine.StateName = "closedIdle"

	// Event logging.
	StateLoggingDeployment engine.StateName = "loggingDeployment"
	StateLoggingMerge      engine.StateName = "loggingMerge"

	// CI and review processing.
	StateProcessingCI          engine.StateName = "processingCI"
	StateRecordingFailure      engine.StateName = "recordingFailure"
	StateBlocked               engine.StateName = "blocked"
	StateTransitioningToReview engine.StateName = "transitioningToReview"
	StateProcessingReview      engine.StateName = "processingReview"
	StateAwaitingReview        engine.StateName = "awaitingReview"
	StateAwaitingMerge         engine.StateName = "awaitingMerge"
	StateCIIdle                engine.StateName = "ciIdle"

	// Implementation flow.
	StatePreparingBranch engine.StateName = "preparingBranch"
	StateSubIssueIdle    engine.StateName = "subIssueIdle"

	// Multi-phase orchestration.
	StateOrchestrationRunning engine.StateName = "orchestrationRunning"
	StatePhaseComplete        engine.StateName = "phaseComplete"
	StateParentDone           engine.StateName = "parentDone"
	StateFinishing            engine.StateName = "finishing"

	// Defects.
	StateInvalidIteration engine.StateName = "invalidIteration"
	StateInvalidState     engine.StateName = "invalidState"
)

// retriggerStates are the terminals requiring immediate re-invocation
// instead of waiting for an external event: maintenance commands hand
// off to the stage they unblocked, and orchestration advances phases
// without a human in the loop.
var retriggerStates = map[engine.StateName]bool{
	StateResetting:            true,
	StatePivoting:             true,
	StateOrchestrationRunning: true,
	StatePhaseComplete:        true,
}

// states assembles the full state map. Enqueue closures only derive
// actions from the snapshot; all effects happen in the runner.
func states() map[engine.StateName]engine.State {
	return map[engine.StateName]engine.State{
		StateDispatching: {
			Transitions: []engine.Transition{
				// Maintenance commands override everything, even a
				// completed or blocked item.
				{When: triggeredBy(trigger.TypeCommandReset), To: StateResetting},
				{When: triggeredBy(trigger.TypeCommandRetry), To: StateRetrying},
				{When: triggeredBy(trigger.TypeCommandPivot), To: StatePivoting},
				{When: triggeredBy(trigger.TypeCommandTriage), To: StateTriaging},
				{When: triggeredBy(trigger.TypeCommandGroom), To: StateGrooming},
				// Terminal-status short circuits.
				{When: isDone, To: StateDoneIdle},
				{When: isBlocked, To: StateBlockedIdle},
				{When: isError, To: StateErrorIdle},
				{When: isClosed, To: StateClosedIdle},
				// Trigger-specific routing.
				{When: triggeredBy(trigger.TypeDeployment), To: StateLoggingDeployment},
				{When: triggeredBy(trigger.TypeMergeCompleted), To: StateLoggingMerge},
				{When: triggeredBy(trigger.TypeCICompleted), To: StateProcessingCI},
				{When: triggeredBy(trigger.TypeReviewSubmitted), To: StateProcessingReview},
				// Sub-item routing: untouched unless the automation
				// identity holds the phase.
				{When: and(isSubItem, not(botAssigned)), To: StateSubIssueIdle},
				{When: and(isSubItem, not(hasBranch)), To: StatePreparingBranch},
				{When: isSubItem, To: StateIterating},
				// Status-derived routing.
				{When: needsTriage, To: StateTriaging},
				{When: needsGrooming, To: StateGrooming},
				{When: and(isReady, hasChildren), To: StateOrchestrationRunning},
				{When: isReady, To: StatePreparingBranch},
				{When: and(isInProgress, allPhasesDone), To: StateParentDone},
				{When: and(isInProgress, hasChildren), To: StateOrchestrationRunning},
				{When: isInProgress, To: StateInvalidIteration},
				{When: isInReview, To: StateAwaitingReview},
				{When: always, To: StateInvalidState},
			},
		},

		StateResetting: {
			Terminal: true,
			Enqueue:  enqueueReset,
		},
		StateRetrying: {
			Enqueue: enqueueRetry,
			Transitions: []engine.Transition{
				{When: hasChildren, To: StateOrchestrationRunning},
				{When: always, To: StateIterating},
			},
		},
		StatePivoting: {
			Terminal: true,
			Enqueue:  enqueuePivot,
		},

		StateTriaging: {
			Terminal: true,
			Enqueue:  enqueueTriage,
		},
		StateGrooming: {
			Terminal: true,
			Enqueue:  enqueueGroom,
		},
		StateIterating: {
			Terminal: true,
			Enqueue:  enqueueIteration,
		},

		StateDoneIdle:    {Terminal: true},
		StateBlockedIdle: {Terminal: true},
		StateErrorIdle:   {Terminal: true},
		StateClosedIdle:  {Terminal: true},
		StateSubIssueIdle: {
			Terminal: true,
		},
		StateCIIdle: {Terminal: true},

		StateLoggingDeployment: {
			Terminal: true,
			Enqueue: func(c *item.Context) engine.Queue {
				return engine.Queue{historyAction(c.Item.Number, markerDeploy,
					fmt.Sprintf("deployed %s", shortRef(c.Trigger.CommitRef)))}
			},
		},
		StateLoggingMerge: {
			Enqueue: func(c *item.Context) engine.Queue {
				return engine.Queue{historyAction(c.Item.Number, markerMerge,
					fmt.Sprintf("merged %s", shortRef(c.Trigger.CommitRef)))}
			},
			Transitions: []engine.Transition{
				{When: isSubItem, To: StatePhaseComplete},
				{When: always, To: StateFinishing},
			},
		},

		StateProcessingCI: {
			Transitions: []engine.Transition{
				{When: ciFailed, To: StateRecordingFailure},
				// Already promoted: on GitHub the request may still read
				// draft (the REST API cannot flip the flag), so a repeat
				// green check must not re-request reviewers.
				{When: and(ciPassed, isInReview), To: StateAwaitingReview},
				{When: and(ciPassed, requestDraft), To: StateTransitioningToReview},
				{When: and(ciPassed, hasRequest), To: StateAwaitingReview},
				{When: always, To: StateCIIdle},
			},
		},
		StateRecordingFailure: {
			Enqueue: enqueueFailure,
			Transitions: []engine.Transition{
				{When: maxFailuresReached, To: StateBlocked},
				{When: always, To: StateIterating},
			},
		},
		StateBlocked: {
			Terminal: true,
			Enqueue:  enqueueBlocked,
		},
		StateTransitioningToReview: {
			Terminal: true,
			Enqueue:  enqueueReviewTransition,
		},
		StateProcessingReview: {
			Transitions: []engine.Transition{
				{When: reviewApproved, To: StateAwaitingMerge},
				{When: changesRequested, To: StateIterating},
				{When: always, To: StateAwaitingReview},
			},
		},
		StateAwaitingReview: {Terminal: true},
		StateAwaitingMerge: {
			Terminal: true,
			Enqueue: func(c *item.Context) engine.Queue {
				return engine.Queue{historyAction(c.Item.Number, markerReview, "review approved")}
			},
		},

		StatePreparingBranch: {
			Enqueue: enqueuePrepareBranch,
			Transitions: []engine.Transition{
				{When: always, To: StateIterating},
			},
		},

		StateOrchestrationRunning: {
			Terminal: true,
			Enqueue:  enqueueOrchestration,
		},
		StatePhaseComplete: {
			Terminal: true,
			Enqueue:  enqueuePhaseComplete,
		},
		StateParentDone: {
			Terminal: true,
			Enqueue:  enqueueDone,
		},
		StateFinishing: {
			Terminal: true,
			Enqueue:  enqueueDone,
		},

		StateInvalidIteration: {
			Terminal: true,
			Enqueue: func(c *item.Context) engine.Queue {
				return engine.Queue{
					statusAction(c.Item.Number, item.StatusError),
					commentAction(c.Item.Number,
						"This item is marked in progress but has no phases and is not a phase itself; it needs grooming before work can continue."),
				}
			},
		},
		StateInvalidState: {
			Terminal: true,
			Enqueue: func(c *item.Context) engine.Queue {
				return engine.Queue{
					statusAction(c.Item.Number, item.StatusError),
					commentAction(c.Item.Number,
						fmt.Sprintf("No workflow route for status %q on trigger %s; a human needs to look at this.",
							c.Item.Status, c.Trigger.Type)),
				}
			},
		},
	}
}

// ── enqueue closures ────────────────────────────────────────────────────

func enqueueTriage(c *item.Context) engine.Queue {
	n := c.Item.Number
	return engine.Queue{
		{Type: ActionRunTriage, Token: engine.TokenBot,
			Payload: AgentPayload{Number: n, Prompt: triagePrompt(c.Item)}, Produces: artifactTriage},
		{Type: ActionApplyTriageOutput, Token: engine.TokenBot,
			Payload: ItemPayload{Number: n}, Consumes: artifactTriage},
		statusAction(n, item.StatusBacklog),
	}
}

func enqueueGroom(c *item.Context) engine.Queue {
	n := c.Item.Number
	return engine.Queue{
		{Type: ActionRunGroom, Token: engine.TokenBot,
			Payload: AgentPayload{Number: n, Prompt: groomPrompt(c.Item)}, Produces: artifactGroom},
		{Type: ActionApplyGroomOutput, Token: engine.TokenBot,
			Payload: ItemPayload{Number: n}, Consumes: artifactGroom},
		statusAction(n, item.StatusReady),
	}
}

func enqueueIteration(c *item.Context) engine.Queue {
	n := c.Item.Number
	return engine.Queue{
		{Type: ActionBumpIteration, Token: engine.TokenBot, Payload: ItemPayload{Number: n}},
		{Type: ActionRunIteration, Token: engine.TokenBot,
			Payload: AgentPayload{Number: n, Prompt: iterationPrompt(c)}, Produces: artifactIteration},
		{Type: ActionApplyIterationOutput, Token: engine.TokenBot,
			Payload: ItemPayload{Number: n}, Consumes: artifactIteration},
	}
}

func enqueueRetry(c *item.Context) engine.Queue {
	n := c.Item.Number
	q := engine.Queue{
		{Type: ActionSetFailures, Token: engine.TokenBot, Payload: CounterPayload{Number: n, Value: 0}},
		statusAction(n, item.StatusInProgress),
	}
	if !c.BotAssigned() {
		q = append(q, engine.Action{Type: ActionAssignBot, Token: engine.TokenBot, Payload: ItemPayload{Number: n}})
	}
	return append(q, historyAction(n, markerRetry, "retry requested by "+c.Trigger.Actor))
}

func enqueueReset(c *item.Context) engine.Queue {
	n := c.Item.Number
	q := engine.Queue{
		{Type: ActionSetFailures, Token: engine.TokenBot, Payload: CounterPayload{Number: n, Value: 0}},
		statusAction(n, item.StatusNew),
	}
	if c.BotAssigned() {
		q = append(q, engine.Action{Type: ActionUnassignBot, Token: engine.TokenBot, Payload: ItemPayload{Number: n}})
	}
	if c.Item.HasLabel(tracker.TriagedLabel) {
		q = append(q, engine.Action{Type: ActionRemoveLabels, Token: engine.TokenBot,
			Payload: LabelsPayload{Number: n, Labels: []string{tracker.TriagedLabel}}})
	}
	return append(q, historyAction(n, markerReset, "reset requested by "+c.Trigger.Actor))
}

func enqueuePivot(c *item.Context) engine.Queue {
	n := c.Item.Number
	q := engine.Queue{statusAction(n, item.StatusBacklog)}
	for _, child := range c.Children {
		if child.Open {
			q = append(q, engine.Action{Type: ActionCloseItem, Token: engine.TokenBot,
				Payload: ItemPayload{Number: child.Number}})
		}
	}
	q = append(q, historyAction(n, markerPivot, "pivot requested by "+c.Trigger.Actor))
	// Acknowledge on the requesting user's behalf.
	return append(q, engine.Action{Type: ActionPostComment, Token: engine.TokenUser,
		Payload: CommentPayload{Number: n, Body: "Scope pivot: open phases closed, item returned to backlog for regrooming."}})
}

func enqueueFailure(c *item.Context) engine.Queue {
	n := c.Item.Number
	next := c.Item.Failures + 1
	return engine.Queue{
		{Type: ActionSetFailures, Token: engine.TokenBot, Payload: CounterPayload{Number: n, Value: next}},
		historyAction(n, markerFailure, fmt.Sprintf("CI failed (%d consecutive)", next)),
	}
}

func enqueueBlocked(c *item.Context) engine.Queue {
	n := c.Item.Number
	return engine.Queue{
		statusAction(n, item.StatusBlocked),
		{Type: ActionUnassignBot, Token: engine.TokenBot, Payload: ItemPayload{Number: n}},
		historyAction(n, markerBlocked,
			fmt.Sprintf("blocked after %d consecutive CI failures; use /retry to resume", c.Run.MaxRetries)),
	}
}

func enqueueReviewTransition(c *item.Context) engine.Queue {
	n := c.Item.Number
	return engine.Queue{
		{Type: ActionMarkRequestReady, Token: engine.TokenBot,
			Payload: ReadyPayload{Number: n, RequestNumber: c.Request.Number}},
		statusAction(n, item.StatusInReview),
		historyAction(n, markerReview, "CI green, ready for review"),
	}
}

func enqueuePrepareBranch(c *item.Context) engine.Queue {
	n := c.Item.Number
	branch := BranchName(n, c.Item.Title)
	q := engine.Queue{}
	if !c.BotAssigned() {
		q = append(q, engine.Action{Type: ActionAssignBot, Token: engine.TokenBot, Payload: ItemPayload{Number: n}})
	}
	q = append(q,
		engine.Action{Type: ActionCreateBranch, Token: engine.TokenBot,
			Payload: BranchPayload{Number: n, Name: branch}},
		engine.Action{Type: ActionOpenChangeRequest, Token: engine.TokenBot,
			Payload: RequestPayload{Number: n, Title: c.Item.Title, HeadRef: branch, Draft: true}},
		statusAction(n, item.StatusInProgress),
	)
	return q
}

func enqueueOrchestration(c *item.Context) engine.Queue {
	var q engine.Queue
	if c.Item.Status != item.StatusInProgress {
		q = append(q, statusAction(c.Item.Number, item.StatusInProgress))
	}
	next := c.NextPhase()
	if next == nil {
		return q
	}
	if !next.AssignedTo(c.Run.BotLogin) {
		q = append(q, engine.Action{Type: ActionAssignPhase, Token: engine.TokenBot,
			Payload: PhasePayload{ParentNumber: c.Item.Number, ChildNumber: next.Number, ChildID: next.ID}})
	}
	return q
}

func enqueuePhaseComplete(c *item.Context) engine.Queue {
	n := c.Item.Number
	return engine.Queue{
		statusAction(n, item.StatusDone),
		{Type: ActionCloseItem, Token: engine.TokenBot, Payload: ItemPayload{Number: n}},
	}
}

func enqueueDone(c *item.Context) engine.Queue {
	n := c.Item.Number
	return engine.Queue{
		statusAction(n, item.StatusDone),
		{Type: ActionCloseItem, Token: engine.TokenBot, Payload: ItemPayload{Number: n}},
		historyAction(n, markerDone, "work complete"),
	}
}

// ── action constructors ─────────────────────────────────────────────────

func statusAction(number int, s item.Status) engine.Action {
	return engine.Action{Type: ActionUpdateStatus, Token: engine.TokenBot,
		Payload: StatusPayload{Number: number, Status: s}}
}

func historyAction(number int, marker, text string) engine.Action {
	return engine.Action{Type: ActionUpsertHistory, Token: engine.TokenBot,
		Payload: HistoryPayload{Number: number, Marker: marker, Text: text}}
}

func commentAction(number int, body string) engine.Action {
	return engine.Action{Type: ActionPostComment, Token: engine.TokenBot,
		Payload: CommentPayload{Number: number, Body: body}}
}
