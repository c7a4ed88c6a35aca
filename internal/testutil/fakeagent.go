package testutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valksor/go-taktwerk/internal/agent"
)

// FakeAgent is a scripted agent.Invoker: each Invoke pops the next
// scripted result in order.
type FakeAgent struct {
	results []scripted
	next    int

	// Prompts records every prompt received, in order.
	Prompts []string

	// Err, when set, fails every invocation.
	Err error
}

type scripted struct {
	structured any
	text       string
}

// NewFakeAgent returns an agent with no scripted results; an
// unscripted Invoke fails, which keeps tests honest about how many
// agent runs they expect.
func NewFakeAgent() *FakeAgent {
	return &FakeAgent{}
}

// Script appends one structured result. v is marshalled to JSON.
func (a *FakeAgent) Script(v any) *FakeAgent {
	a.results = append(a.results, scripted{structured: v})
	return a
}

// ScriptText appends one prose-only result.
func (a *FakeAgent) ScriptText(text string) *FakeAgent {
	a.results = append(a.results, scripted{text: text})
	return a
}

func (a *FakeAgent) Name() string { return "fake" }

func (a *FakeAgent) Available() error { return nil }

func (a *FakeAgent) Invoke(_ context.Context, req agent.Request) (*agent.Result, error) {
	a.Prompts = append(a.Prompts, req.Prompt)
	if a.Err != nil {
		return nil, a.Err
	}
	if a.next >= len(a.results) {
		return nil, fmt.Errorf("unscripted agent invocation %d", a.next+1)
	}
	sc := a.results[a.next]
	a.next++

	res := &agent.Result{Text: sc.text, Success: true}
	if sc.structured != nil {
		raw, err := json.Marshal(sc.structured)
		if err != nil {
			return nil, err
		}
		res.Structured = raw
	}
	if req.WantStructured && !res.HasStructured() {
		return nil, agent.ErrNoStructuredOutput
	}
	return res, nil
}

func (a *FakeAgent) WithEnv(string, string) agent.Invoker { return a }

func (a *FakeAgent) WithArgs(...string) agent.Invoker { return a }

// Ensure FakeAgent implements agent.Invoker
var _ agent.Invoker = (*FakeAgent)(nil)
