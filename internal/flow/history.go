package flow

import (
	"context"
	"sort"
	"sync"

	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/tracker"
)

// Activity-log markers. Entries are matched and replaced by marker, so
// re-running an action never duplicates its log line. The tracker body
// codec namespaces these under takt:log: when it renders them, so the
// names stay short here.
const (
	markerTriage    = "triage"
	markerGroom     = "groom"
	markerIteration = "iteration"
	markerFailure   = "ci-failure"
	markerBlocked   = "blocked"
	markerRetry     = "retry"
	markerReset     = "reset"
	markerPivot     = "pivot"
	markerReview    = "review"
	markerMerge     = "merge"
	markerDone      = "done"
	markerDeploy    = "deploy"
	markerPhase     = "phase"
)

// historyBuffer collects activity-log entries during a batch so the
// persist hook can write each item's body once instead of once per
// entry.
type historyBuffer struct {
	mu      sync.Mutex
	pending map[int][]item.HistoryEntry
}

func newHistoryBuffer() *historyBuffer {
	return &historyBuffer{pending: make(map[int][]item.HistoryEntry)}
}

// Add buffers an entry, replacing a pending entry with the same marker.
func (b *historyBuffer) Add(number int, e item.HistoryEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.pending[number]
	for i, existing := range entries {
		if existing.Marker == e.Marker {
			entries[i] = e
			return
		}
	}
	b.pending[number] = append(entries, e)
}

// Flush writes all buffered entries, one tracker call per item, and
// clears the buffer. Items are flushed in number order so runs stay
// deterministic.
func (b *historyBuffer) Flush(ctx context.Context, store tracker.Store) error {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[int][]item.HistoryEntry)
	b.mu.Unlock()

	numbers := make([]int, 0, len(pending))
	for n := range pending {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	for _, n := range numbers {
		if err := store.UpsertHistory(ctx, n, pending[n]); err != nil {
			return err
		}
	}
	return nil
}
