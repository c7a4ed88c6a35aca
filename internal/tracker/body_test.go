package tracker

import (
	"strings"
	"testing"

	"github.com/valksor/go-taktwerk/internal/item"
)

func TestParseBodyPlainDescription(t *testing.T) {
	d := ParseBody("Exports overload the upstream service.\n\nSteps to reproduce: run an export.")
	if !strings.HasPrefix(d.Description, "Exports overload") {
		t.Errorf("description = %q", d.Description)
	}
	if d.Iteration != 0 || d.Failures != 0 || d.ParentNumber != 0 {
		t.Errorf("plain body should carry no counters: %+v", d)
	}
	if len(d.Children) != 0 || len(d.History) != 0 {
		t.Errorf("plain body should carry no sections: %+v", d)
	}
}

func TestParseBodyFull(t *testing.T) {
	raw := `Rate limit the export endpoint.

<!-- takt:parent:3 -->
<!-- takt:iteration:4 -->
<!-- takt:failures:2 -->

## Phases
- [x] #8
- [ ] #9

## Activity log
<!-- takt:log:triage --> classified as feature
<!-- takt:log:iteration --> attempt four
`
	d := ParseBody(raw)
	if d.Description != "Rate limit the export endpoint." {
		t.Errorf("description = %q", d.Description)
	}
	if d.Iteration != 4 || d.Failures != 2 || d.ParentNumber != 3 {
		t.Errorf("counters = %+v", d)
	}
	if len(d.Children) != 2 {
		t.Fatalf("children = %+v", d.Children)
	}
	if !d.Children[0].Done || d.Children[0].Number != 8 {
		t.Errorf("first phase = %+v, want done #8", d.Children[0])
	}
	if d.Children[1].Done || d.Children[1].Number != 9 {
		t.Errorf("second phase = %+v, want open #9", d.Children[1])
	}
	if len(d.History) != 2 {
		t.Fatalf("history = %+v", d.History)
	}
	if d.History[0].Marker != "triage" || d.History[0].Text != "classified as feature" {
		t.Errorf("first entry = %+v", d.History[0])
	}
}

func TestParseBodySurvivesHumanEdits(t *testing.T) {
	// A human rewrote the description and added a section of their own;
	// the engine's markers must still decode.
	raw := `Totally rewritten description.

Some extra human paragraph.

<!-- takt:iteration:2 -->

## Notes from the standup
- nothing relevant

## Activity log
<!-- takt:log:triage --> summary
`
	d := ParseBody(raw)
	if d.Iteration != 2 {
		t.Errorf("iteration = %d, want 2", d.Iteration)
	}
	if len(d.History) != 1 {
		t.Errorf("history = %+v", d.History)
	}
	if !strings.Contains(d.Description, "standup") {
		t.Errorf("unknown sections belong to the description, got %q", d.Description)
	}
	if strings.Contains(d.Description, "takt:iteration") {
		t.Errorf("markers must not leak into the description: %q", d.Description)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	d := BodyData{
		Description:  "Do the thing.",
		Iteration:    3,
		Failures:     1,
		ParentNumber: 7,
		Children:     []ChildRef{{Number: 8, Done: true}, {Number: 9}},
		History: []item.HistoryEntry{
			{Marker: "triage", Text: "classified"},
			{Marker: "phase/8", Text: "phase #8 done"},
		},
	}
	got := ParseBody(d.Render())
	if got.Description != d.Description {
		t.Errorf("description: %q != %q", got.Description, d.Description)
	}
	if got.Iteration != d.Iteration || got.Failures != d.Failures || got.ParentNumber != d.ParentNumber {
		t.Errorf("counters: %+v != %+v", got, d)
	}
	if len(got.Children) != 2 || got.Children[0] != d.Children[0] || got.Children[1] != d.Children[1] {
		t.Errorf("children: %+v != %+v", got.Children, d.Children)
	}
	if len(got.History) != 2 || got.History[0] != d.History[0] || got.History[1] != d.History[1] {
		t.Errorf("history: %+v != %+v", got.History, d.History)
	}
}

func TestRenderDeterministic(t *testing.T) {
	d := BodyData{Description: "x", Iteration: 1, History: []item.HistoryEntry{{Marker: "triage", Text: "t"}}}
	if d.Render() != d.Render() {
		t.Error("render must be deterministic")
	}
	// Re-rendering a parsed body changes nothing.
	once := d.Render()
	if got := ParseBody(once).Render(); got != once {
		t.Errorf("render is not idempotent:\n%q\n%q", got, once)
	}
}

func TestUpsertReplacesByMarker(t *testing.T) {
	var d BodyData
	d.Upsert(item.HistoryEntry{Marker: "iteration", Text: "first"})
	d.Upsert(item.HistoryEntry{Marker: "iteration", Text: "second"})
	d.Upsert(item.HistoryEntry{Marker: "triage", Text: "t"})
	if len(d.History) != 2 {
		t.Fatalf("history = %+v", d.History)
	}
	if d.History[0].Text != "second" {
		t.Errorf("upsert must replace in place, got %+v", d.History[0])
	}
	if d.History[1].Marker != "triage" {
		t.Errorf("new markers append, got %+v", d.History[1])
	}
}

func TestZeroCountersRenderNoMarkers(t *testing.T) {
	d := BodyData{Description: "Just text."}
	out := d.Render()
	if strings.Contains(out, "takt:") {
		t.Errorf("zero-valued state must not emit markers: %q", out)
	}
}
