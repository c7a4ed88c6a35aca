package engine

import (
	"context"
	"fmt"

	"github.com/valksor/go-taktwerk/internal/events"
	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/log"
)

// runnerPhase names one step of the batch-drain loop.
type runnerPhase string

const (
	phaseExecutingQueue     runnerPhase = "executingQueue"
	phaseExecutingBatch     runnerPhase = "executingBatch"
	phasePersistingBatch    runnerPhase = "persistingBatch"
	phaseRefreshingContext  runnerPhase = "refreshingContext"
	phaseVerifyingBatch     runnerPhase = "verifyingBatch"
	phaseQueueComplete      runnerPhase = "queueComplete"
	phaseExecutionFailed    runnerPhase = "executionFailed"
	phaseVerificationFailed runnerPhase = "verificationFailed"
	phaseDone               runnerPhase = "done"
)

// drain executes the queue batch by batch: execute, persist, refresh,
// verify, then loop or terminate. It fills report.Results, report.Batches,
// report.Outcome and report.StopReason, and returns the last known context
// (the final refreshed snapshot, or the input when no refresh happened).
func (m *Machine) drain(ctx context.Context, c *item.Context, queue Queue, report *Report) *item.Context {
	reg := m.cfg.Registry
	cur := c

	var (
		batches   []Queue
		batchIdx  int
		expected  ExpectedState
		fatalStop bool
	)

	phase := phaseExecutingQueue
	for phase != phaseDone {
		switch phase {

		case phaseExecutingQueue:
			batches = queue.Batches(reg)
			if len(batches) == 0 {
				phase = phaseQueueComplete
				break
			}
			batchIdx = 0
			phase = phaseExecutingBatch

		case phaseExecutingBatch:
			batch := batches[batchIdx]
			// Expected state is anchored on the freshest known context, not
			// on any in-memory post-predict state.
			expected = PredictFromActions(reg, batch, cur, report.ShouldRetrigger)
			fatalStop = m.executeBatch(ctx, cur, batch, report)
			phase = phasePersistingBatch

		case phasePersistingBatch:
			if m.cfg.Persist != nil {
				if err := m.cfg.Persist(ctx); err != nil {
					// Buffered mutations failed to land; the batch cannot be
					// verified and the run cannot safely continue.
					log.Error("persist batch", log.Err(err))
					report.StopReason = fmt.Sprintf("persist batch %d: %v", batchIdx, err)
					fatalStop = true
				}
			}
			if fatalStop {
				phase = phaseExecutionFailed
				break
			}
			phase = phaseRefreshingContext

		case phaseRefreshingContext:
			if m.cfg.Refresh == nil {
				// No refresh callback means verification is impossible;
				// record the batch as unverified and move on.
				report.Batches = append(report.Batches, BatchReport{Index: batchIdx, Expected: expected, Matched: true})
				phase = m.advance(&batchIdx, len(batches))
				break
			}
			fresh, err := m.cfg.Refresh(ctx)
			if err != nil {
				report.StopReason = (&ContextError{Err: err}).Error()
				phase = phaseExecutionFailed
				break
			}
			cur = fresh
			phase = phaseVerifyingBatch

		case phaseVerifyingBatch:
			actual := ExtractTree(cur)
			matched, diffs, nearest := m.verifyBatch(batches[batchIdx], expected, actual)
			report.Batches = append(report.Batches, BatchReport{
				Index:    batchIdx,
				Expected: expected,
				Matched:  matched,
				Diffs:    diffs,
				Nearest:  nearest,
			})
			if m.cfg.Bus != nil {
				m.cfg.Bus.Publish(events.BatchVerifiedEvent{Batch: batchIdx, Matched: matched, DiffCount: len(diffs)})
			}
			if !matched {
				mismatch := &MismatchError{Batch: batchIdx, Diffs: diffs}
				if m.cfg.StrictVerify {
					report.StopReason = mismatch.Error()
					phase = phaseVerificationFailed
					break
				}
				// Verification exists to self-test the domain machine; in
				// production a mismatch is logged, not fatal.
				log.Warn("verification mismatch", "machine", m.cfg.ID, log.Err(mismatch))
			}
			phase = m.advance(&batchIdx, len(batches))

		case phaseQueueComplete:
			report.Outcome = OutcomeQueueComplete
			phase = phaseDone

		case phaseExecutionFailed:
			report.Outcome = OutcomeExecutionFailed
			phase = phaseDone

		case phaseVerificationFailed:
			report.Outcome = OutcomeVerificationFailed
			phase = phaseDone
		}
	}

	return cur
}

// advance moves to the next batch or completes the queue.
func (m *Machine) advance(batchIdx *int, total int) runnerPhase {
	*batchIdx++
	if *batchIdx < total {
		return phaseExecutingBatch
	}
	return phaseQueueComplete
}

// executeBatch runs one batch's actions sequentially in declared order.
// Later actions may consume structured results of earlier ones through the
// artifact store. It returns true when a fatal error stopped the queue;
// partial results are always retained in the report.
func (m *Machine) executeBatch(ctx context.Context, c *item.Context, batch Queue, report *Report) bool {
	arts := NewArtifacts()
	for i, a := range batch {
		b, _ := m.cfg.Registry.Lookup(a.Type) // queue was validated
		out, err := b.Execute(ctx, c, a, arts)
		res := ActionResult{Action: a, Output: out, Err: err, Soft: b.Soft}
		report.Results = append(report.Results, res)

		if m.cfg.Bus != nil {
			errMsg := ""
			if err != nil {
				errMsg = err.Error()
			}
			m.cfg.Bus.Publish(events.ActionExecutedEvent{
				Action: string(a.Type),
				ItemID: itemID(c),
				Err:    errMsg,
				Soft:   b.Soft,
			})
		}

		if err != nil {
			execErr := &ExecError{Action: a.Type, Soft: b.Soft, Err: err}
			if !b.Soft {
				report.StopReason = execErr.Error()
				m.skipRemainder(batch[i+1:], report)
				return true
			}
			log.Warn("soft action error", log.Action(string(a.Type)), log.Err(err))
			continue
		}

		if a.Produces != "" && out != nil {
			arts.Put(a.Produces, out)
		}
	}
	return false
}

// skipRemainder marks the actions after a fatal failure as skipped so the
// report shows the full plan against what actually ran.
func (m *Machine) skipRemainder(rest Queue, report *Report) {
	for _, a := range rest {
		report.Results = append(report.Results, ActionResult{Action: a, Skipped: true})
	}
}

// verifyBatch applies the structural union comparison, then gives each
// action type in the batch a chance to adjust the diffs for outcomes with
// inherent non-determinism.
func (m *Machine) verifyBatch(batch Queue, expected ExpectedState, actual *StateTree) (bool, []FieldDiff, int) {
	matched, diffs, nearest := CompareState(expected, actual)
	if matched || len(diffs) == 0 {
		return true, nil, nearest
	}
	var nearestTree *StateTree
	if nearest >= 0 && nearest < len(expected.Candidates) {
		nearestTree = expected.Candidates[nearest]
	}
	for _, a := range batch {
		b, ok := m.cfg.Registry.Lookup(a.Type)
		if !ok || b.Verify == nil {
			continue
		}
		diffs = b.Verify(nearestTree, actual, diffs)
		if len(diffs) == 0 {
			return true, nil, nearest
		}
	}
	return false, diffs, nearest
}
