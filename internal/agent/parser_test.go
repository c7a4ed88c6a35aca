package agent

import (
	"errors"
	"strings"
	"testing"
)

func TestParseOutputBlock(t *testing.T) {
	text := "I looked at the item.\n\n```json:output\n{\"ready\": true, \"summary\": \"ok\"}\n```\n"
	res, err := ParseOutput(text, true)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasStructured() {
		t.Fatal("structured payload missing")
	}
	var out TriageOutput
	if err := res.Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Ready || out.Summary != "ok" {
		t.Errorf("decoded = %+v", out)
	}
	if strings.Contains(res.Text, "json:output") {
		t.Errorf("block must be stripped from prose: %q", res.Text)
	}
	if !strings.Contains(res.Text, "I looked at the item.") {
		t.Errorf("prose lost: %q", res.Text)
	}
}

func TestParseOutputLastBlockWins(t *testing.T) {
	text := "Draft answer:\n```json:output\n{\"summary\": \"draft\"}\n```\n" +
		"Actually, final answer:\n```json:output\n{\"summary\": \"final\"}\n```\n"
	res, err := ParseOutput(text, true)
	if err != nil {
		t.Fatal(err)
	}
	var out IterationOutput
	if err := res.Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Summary != "final" {
		t.Errorf("summary = %q, want the restated answer", out.Summary)
	}
}

func TestParseOutputMissingBlock(t *testing.T) {
	_, err := ParseOutput("just prose, no block", true)
	if !errors.Is(err, ErrNoStructuredOutput) {
		t.Errorf("expected ErrNoStructuredOutput, got %v", err)
	}

	res, err := ParseOutput("just prose, no block", false)
	if err != nil {
		t.Fatal(err)
	}
	if res.HasStructured() {
		t.Error("no block means no structured payload")
	}
	if res.Text != "just prose, no block" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestParseOutputInvalidJSON(t *testing.T) {
	if _, err := ParseOutput("```json:output\nnot json at all {\n```", true); err == nil {
		t.Error("invalid JSON in the block must fail")
	}
}

func TestCollectTextResultLineWins(t *testing.T) {
	lines := [][]byte{
		[]byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"thinking out loud"}]}}`),
		[]byte(`{"type":"result","result":"the final transcript"}`),
	}
	if got := CollectText(lines); got != "the final transcript" {
		t.Errorf("got %q", got)
	}
}

func TestCollectTextAggregatesAssistantText(t *testing.T) {
	lines := [][]byte{
		[]byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"part one. "}]}}`),
		[]byte(`{"type":"system","subtype":"init"}`),
		[]byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"part two."}]}}`),
	}
	if got := CollectText(lines); got != "part one. part two." {
		t.Errorf("got %q", got)
	}
}

func TestCollectTextPassesThroughPlainLines(t *testing.T) {
	lines := [][]byte{
		[]byte("not json"),
		nil,
		[]byte("another line"),
	}
	got := CollectText(lines)
	if !strings.Contains(got, "not json") || !strings.Contains(got, "another line") {
		t.Errorf("got %q", got)
	}
}

func TestDecodeWithoutStructured(t *testing.T) {
	res := &Result{Text: "prose only"}
	var out TriageOutput
	if err := res.Decode(&out); !errors.Is(err, ErrNoStructuredOutput) {
		t.Errorf("expected ErrNoStructuredOutput, got %v", err)
	}
}

func TestOutputValidate(t *testing.T) {
	cases := []struct {
		name    string
		out     interface{ Validate() error }
		wantErr bool
	}{
		{"triage ready", &TriageOutput{Ready: true, Summary: "s"}, false},
		{"triage empty summary", &TriageOutput{Ready: true}, true},
		{"triage not ready needs questions", &TriageOutput{Summary: "s"}, true},
		{"triage not ready with questions", &TriageOutput{Summary: "s", Questions: []string{"?"}}, false},
		{"groom ok", &GroomOutput{Description: "d", Phases: []PhaseSpec{{Title: "t"}}}, false},
		{"groom no phases", &GroomOutput{Description: "d"}, true},
		{"groom untitled phase", &GroomOutput{Description: "d", Phases: []PhaseSpec{{}}}, true},
		{"iteration ok", &IterationOutput{Summary: "s"}, false},
		{"iteration empty", &IterationOutput{}, true},
	}
	for _, tc := range cases {
		err := tc.out.Validate()
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
	}
}
