package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/valksor/go-taktwerk/internal/events"
	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/log"
)

// StateName names one domain state.
type StateName string

// TransitionLimitReached is the distinct outcome state reported when the
// machine exhausts its transition budget.
const TransitionLimitReached StateName = "transitionLimitReached"

// Guard is a pure, total predicate over the context snapshot. Guards never
// perform I/O and never panic on missing optional fields.
type Guard func(*item.Context) bool

// Transition is one guarded edge. A nil guard always matches.
type Transition struct {
	When Guard
	To   StateName
}

// State is a named domain state: actions queued on entry plus its outgoing
// transitions in declared priority order. When several guards are eligible
// the first declared transition wins.
type State struct {
	Terminal    bool
	Enqueue     func(*item.Context) Queue
	Transitions []Transition
}

// RefreshFunc re-derives the context by reading the remote system fresh.
type RefreshFunc func(ctx context.Context) (*item.Context, error)

// PersistFunc coalesces buffered mutations (e.g. several history-log edits)
// into a single remote write. Optional.
type PersistFunc func(ctx context.Context) error

// HookFunc runs around the queue drain. Optional.
type HookFunc func(ctx context.Context, c *item.Context) error

// Config assembles a runnable machine. One explicit struct, one constructor;
// no builder chain.
type Config struct {
	ID       string
	Initial  StateName
	States   map[StateName]State
	Registry *Registry

	Refresh     RefreshFunc
	Persist     PersistFunc
	BeforeQueue HookFunc
	AfterQueue  HookFunc

	// Retrigger lists the terminal state names that require immediate
	// re-invocation instead of waiting for a future external event. A run
	// that planned no actions never retriggers, whatever its final state:
	// nothing changed, so re-entry would reach the same decision again.
	Retrigger map[StateName]bool

	// MaxTransitions bounds the dispatch loop; zero means DefaultMaxTransitions.
	MaxTransitions int

	// StrictVerify turns a verification mismatch into a run failure.
	// Production leaves this off; tests turn it on.
	StrictVerify bool

	Bus *events.Bus
}

// DefaultMaxTransitions is the dispatch budget used when the config does not
// set one. Generous: the deepest legitimate chain is a handful of states.
const DefaultMaxTransitions = 64

// Machine runs one invocation to a terminal state and is then discarded.
type Machine struct {
	cfg Config
}

// New validates the configuration and returns a machine.
func New(cfg Config) (*Machine, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("machine: id is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("machine %s: registry is required", cfg.ID)
	}
	if len(cfg.States) == 0 {
		return nil, fmt.Errorf("machine %s: states are required", cfg.ID)
	}
	if _, ok := cfg.States[cfg.Initial]; !ok {
		return nil, fmt.Errorf("machine %s: initial state %q is not defined", cfg.ID, cfg.Initial)
	}
	for name, st := range cfg.States {
		if !st.Terminal && len(st.Transitions) == 0 {
			return nil, fmt.Errorf("machine %s: state %q is neither terminal nor has transitions", cfg.ID, name)
		}
		for _, t := range st.Transitions {
			if _, ok := cfg.States[t.To]; !ok {
				return nil, fmt.Errorf("machine %s: state %q transitions to undefined state %q", cfg.ID, name, t.To)
			}
		}
	}
	if cfg.MaxTransitions <= 0 {
		cfg.MaxTransitions = DefaultMaxTransitions
	}
	return &Machine{cfg: cfg}, nil
}

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeQueueComplete      Outcome = "queueComplete"
	OutcomeExecutionFailed    Outcome = "executionFailed"
	OutcomeVerificationFailed Outcome = "verificationFailed"
	OutcomeTransitionLimit    Outcome = "transitionLimitReached"
	OutcomePlanOnly           Outcome = "planOnly"
)

// ActionResult records one executed (or skipped) action.
type ActionResult struct {
	Action  Action
	Output  any
	Err     error
	Soft    bool
	Skipped bool
}

// BatchReport records one refresh+verify cycle.
type BatchReport struct {
	Index    int
	Expected ExpectedState
	Matched  bool
	Diffs    []FieldDiff // against the nearest candidate when not matched
	Nearest  int
}

// Metadata is derived from the final context for the caller.
type Metadata struct {
	Iteration     int
	Failures      int
	ParentID      string
	RequestID     string
	CommitRef     string
	ItemUpdatedAt time.Time
}

// Report is the aggregate run result. It always states whether the run
// stopped early and why.
type Report struct {
	MachineID       string
	FinalState      StateName
	Outcome         Outcome
	Planned         Queue
	Results         []ActionResult
	Batches         []BatchReport
	ShouldRetrigger bool
	StopReason      string
	Metadata        Metadata
}

// Failed reports whether the run stopped before completing its queue.
func (r *Report) Failed() bool {
	return r.Outcome == OutcomeExecutionFailed || r.Outcome == OutcomeVerificationFailed
}

// dispatch walks the guarded transitions from the initial state, collecting
// queued actions, until a terminal state or the transition budget is hit.
func (m *Machine) dispatch(c *item.Context) (StateName, Queue, error) {
	cur := m.cfg.Initial
	var queue Queue
	for steps := 0; ; steps++ {
		if steps >= m.cfg.MaxTransitions {
			return TransitionLimitReached, queue, ErrTransitionLimit
		}
		st := m.cfg.States[cur]
		if st.Enqueue != nil {
			queue = append(queue, st.Enqueue(c)...)
		}
		next, ok := firstEligible(st.Transitions, c)
		if !ok {
			if st.Terminal {
				return cur, queue, nil
			}
			return cur, queue, fmt.Errorf("state %q: %w", cur, ErrNoTransition)
		}
		if m.cfg.Bus != nil {
			m.cfg.Bus.Publish(events.StateChangedEvent{
				From:   string(cur),
				To:     string(next),
				ItemID: itemID(c),
			})
		}
		log.Debug("transition", "machine", m.cfg.ID, "from", string(cur), "to", string(next))
		cur = next
	}
}

func firstEligible(transitions []Transition, c *item.Context) (StateName, bool) {
	for _, t := range transitions {
		if t.When == nil || t.When(c) {
			return t.To, true
		}
	}
	return "", false
}

// Plan runs the machine in pure predict-only mode: dispatch, validate, and
// predict expected outcomes per batch without performing any effect.
func (m *Machine) Plan(c *item.Context) (*Report, error) {
	final, queue, err := m.dispatch(c)
	report := &Report{
		MachineID:       m.cfg.ID,
		FinalState:      final,
		Outcome:         OutcomePlanOnly,
		Planned:         queue,
		ShouldRetrigger: m.cfg.Retrigger[final] && len(queue) > 0,
		Metadata:        deriveMetadata(c),
	}
	if err != nil {
		if err == ErrTransitionLimit {
			report.Outcome = OutcomeTransitionLimit
			report.StopReason = err.Error()
			return report, nil
		}
		return report, err
	}
	if err := queue.Validate(m.cfg.Registry); err != nil {
		return report, err
	}

	// Chain predictions across batches on the primary candidate; without
	// execution there is no refreshed state to re-anchor on.
	cur := c
	for i, batch := range queue.Batches(m.cfg.Registry) {
		exp := PredictFromActions(m.cfg.Registry, batch, cur, report.ShouldRetrigger)
		report.Batches = append(report.Batches, BatchReport{Index: i, Expected: exp})
		cur = chainPrimary(m.cfg.Registry, batch, cur)
	}
	return report, nil
}

// Run executes one full invocation: dispatch to a decision, then drain the
// resulting action queue with the predict-execute-verify loop.
func (m *Machine) Run(ctx context.Context, c *item.Context) (*Report, error) {
	final, queue, err := m.dispatch(c)
	report := &Report{
		MachineID:       m.cfg.ID,
		FinalState:      final,
		Planned:         queue,
		ShouldRetrigger: m.cfg.Retrigger[final] && len(queue) > 0,
		Metadata:        deriveMetadata(c),
	}
	if err != nil {
		if err == ErrTransitionLimit {
			report.Outcome = OutcomeTransitionLimit
			report.StopReason = err.Error()
			return report, nil
		}
		report.Outcome = OutcomeExecutionFailed
		report.StopReason = err.Error()
		return report, err
	}

	// Fail fast: an invalid plan is rejected before any side effect.
	if err := queue.Validate(m.cfg.Registry); err != nil {
		report.Outcome = OutcomeExecutionFailed
		report.StopReason = err.Error()
		return report, err
	}

	if m.cfg.BeforeQueue != nil {
		if err := m.cfg.BeforeQueue(ctx, c); err != nil {
			report.Outcome = OutcomeExecutionFailed
			report.StopReason = fmt.Sprintf("before-queue hook: %v", err)
			return report, err
		}
	}

	last := m.drain(ctx, c, queue, report)

	if m.cfg.AfterQueue != nil {
		if err := m.cfg.AfterQueue(ctx, last); err != nil {
			log.Warn("after-queue hook failed", log.Err(err))
		}
	}

	report.Metadata = deriveMetadata(last)
	return report, nil
}

func deriveMetadata(c *item.Context) Metadata {
	if c == nil || c.Item == nil {
		return Metadata{}
	}
	md := Metadata{
		Iteration:     c.Item.Iteration,
		Failures:      c.Item.Failures,
		ParentID:      c.Item.ParentID,
		ItemUpdatedAt: c.Item.UpdatedAt,
	}
	if c.Request != nil {
		md.RequestID = c.Request.ID
		md.CommitRef = c.Request.CommitRef
	}
	return md
}

// chainPrimary advances the context along the primary predicted outcome of
// each action, for plan-only batch chaining.
func chainPrimary(reg *Registry, batch Queue, c *item.Context) *item.Context {
	cur := c
	for _, a := range batch {
		b, ok := reg.Lookup(a.Type)
		if !ok {
			continue
		}
		outcomes := b.Predict(cur.Clone(), a)
		if len(outcomes) > 0 {
			cur = outcomes[0]
		}
	}
	return cur
}

func itemID(c *item.Context) string {
	if c != nil && c.Item != nil {
		return c.Item.ID
	}
	return ""
}
