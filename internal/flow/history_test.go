package flow

import (
	"context"
	"testing"

	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/testutil"
)

func TestHistoryBufferReplacesByMarker(t *testing.T) {
	b := newHistoryBuffer()
	b.Add(7, item.HistoryEntry{Marker: markerIteration, Text: "first"})
	b.Add(7, item.HistoryEntry{Marker: markerIteration, Text: "second"})
	b.Add(7, item.HistoryEntry{Marker: markerTriage, Text: "triaged"})

	store := testutil.NewFakeStore()
	store.Seed(&item.WorkItem{Number: 7, Open: true, Status: item.StatusInProgress})

	if err := b.Flush(context.Background(), store); err != nil {
		t.Fatal(err)
	}
	hist := store.Item(7).Body.History
	if len(hist) != 2 {
		t.Fatalf("expected 2 entries after marker replacement, got %v", hist)
	}
	if hist[0].Text != "second" {
		t.Errorf("later entry with the same marker must win, got %q", hist[0].Text)
	}
}

func TestHistoryBufferFlushOnePerItem(t *testing.T) {
	b := newHistoryBuffer()
	b.Add(9, item.HistoryEntry{Marker: markerMerge, Text: "merged"})
	b.Add(3, item.HistoryEntry{Marker: markerTriage, Text: "a"})
	b.Add(3, item.HistoryEntry{Marker: markerGroom, Text: "b"})

	store := testutil.NewFakeStore()
	store.Seed(&item.WorkItem{Number: 3, Open: true, Status: item.StatusNew})
	store.Seed(&item.WorkItem{Number: 9, Open: true, Status: item.StatusInReview})

	if err := b.Flush(context.Background(), store); err != nil {
		t.Fatal(err)
	}
	if len(store.Calls) != 2 {
		t.Fatalf("expected one write per item, got %v", store.Calls)
	}
	// Lower item numbers flush first so runs are reproducible.
	if store.Calls[0] != "upsert_history #3" || store.Calls[1] != "upsert_history #9" {
		t.Errorf("flush order wrong: %v", store.Calls)
	}
}

func TestHistoryBufferFlushClears(t *testing.T) {
	b := newHistoryBuffer()
	b.Add(7, item.HistoryEntry{Marker: markerRetry, Text: "retry"})

	store := testutil.NewFakeStore()
	store.Seed(&item.WorkItem{Number: 7, Open: true, Status: item.StatusBlocked})

	if err := b.Flush(context.Background(), store); err != nil {
		t.Fatal(err)
	}
	if err := b.Flush(context.Background(), store); err != nil {
		t.Fatal(err)
	}
	if len(store.Calls) != 1 {
		t.Errorf("second flush of an empty buffer must not write, got %v", store.Calls)
	}
}
