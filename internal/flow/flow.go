// Package flow is the concrete workflow machine: the state catalog,
// guard set, and action behaviors that automate a work item from triage
// through grooming, implementation, review, and merge.
package flow

import (
	"context"
	"time"

	"github.com/valksor/go-taktwerk/internal/engine"
	"github.com/valksor/go-taktwerk/internal/events"
	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/trigger"
)

// MachineID identifies the workflow machine in reports and logs.
const MachineID = "takt-workflow"

// Options are the per-run parameters of the workflow machine.
type Options struct {
	MaxRetries     int    // circuit breaker threshold
	BotLogin       string // automation identity on the tracker
	MaxTransitions int    // zero means the engine default
	StrictVerify   bool
	Bus            *events.Bus
	Now            time.Time
}

// RunSettings converts the options into the context snapshot settings.
func (o Options) RunSettings() item.RunSettings {
	now := o.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return item.RunSettings{
		MaxRetries: o.MaxRetries,
		BotLogin:   o.BotLogin,
		Now:        now,
	}
}

// Machine is one runnable workflow invocation: the engine machine plus
// the run-scoped buffers its hooks share.
type Machine struct {
	engine *engine.Machine
	hist   *historyBuffer
}

// NewMachine assembles the workflow machine for one trigger. The
// machine is used for a single run and discarded.
func NewMachine(deps Deps, trig trigger.Trigger, opts Options) (*Machine, error) {
	hist := newHistoryBuffer()
	reg := buildRegistry(deps, hist)

	m, err := engine.New(engine.Config{
		ID:       MachineID,
		Initial:  StateDispatching,
		States:   states(),
		Registry: reg,
		Refresh:  Refresher(deps.Store, trig, opts.RunSettings()),
		Persist: func(ctx context.Context) error {
			return hist.Flush(ctx, deps.Store)
		},
		Retrigger:      retriggerStates,
		MaxTransitions: opts.MaxTransitions,
		StrictVerify:   opts.StrictVerify,
		Bus:            opts.Bus,
	})
	if err != nil {
		return nil, err
	}
	return &Machine{engine: m, hist: hist}, nil
}

// Run builds the snapshot and drives one full invocation.
func (m *Machine) Run(ctx context.Context, c *item.Context) (*engine.Report, error) {
	return m.engine.Run(ctx, c)
}

// Plan computes the decision and predictions without any side effect.
func (m *Machine) Plan(c *item.Context) (*engine.Report, error) {
	return m.engine.Plan(c)
}

// NextTrigger derives the follow-up trigger for a run that asked to be
// re-invoked. Phase completion hands off to the parent item; everything
// else re-enters on the same item.
func NextTrigger(rep *engine.Report, trig trigger.Trigger) (trigger.Trigger, bool) {
	if rep == nil || !rep.ShouldRetrigger || rep.Failed() {
		return trigger.Trigger{}, false
	}
	next := trigger.Trigger{
		Type:       trigger.TypeItemEdited,
		ItemNumber: trig.ItemNumber,
		Actor:      trig.Actor,
	}
	if rep.FinalState == StatePhaseComplete && rep.Metadata.ParentID != "" {
		if n, ok := parentNumber(rep.Metadata.ParentID); ok {
			next.ItemNumber = n
		}
	}
	return next, true
}

func parentNumber(id string) (int, bool) {
	n := 0
	for _, r := range id {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, n > 0
}
