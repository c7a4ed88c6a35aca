package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/valksor/go-taktwerk/internal/item"
)

// Test action fixtures: a minimal variant set exercising the registry,
// queue, and runner without touching any real collaborator.

const (
	actNote    ActionType = "note"
	actAdvance ActionType = "advance"
	actObserve ActionType = "observe"
)

type notePayload struct {
	Text string
}

func (p notePayload) Validate() error {
	if p.Text == "" {
		return errors.New("text is required")
	}
	return nil
}

func testContext() *item.Context {
	return &item.Context{
		Item: &item.WorkItem{
			ID:     "I1",
			Number: 7,
			Title:  "test item",
			Open:   true,
			Status: item.StatusNew,
		},
		Run: item.RunSettings{MaxRetries: 3, BotLogin: "takt-bot"},
	}
}

func identityPredict(c *item.Context, _ Action) []*item.Context {
	return []*item.Context{c}
}

func noopExecute(_ context.Context, _ *item.Context, _ Action, _ *Artifacts) (any, error) {
	return nil, nil
}

// recorder tracks execute order and lets individual actions fail.
type recorder struct {
	executed []ActionType
	fail     map[ActionType]error
}

func (r *recorder) execute(_ context.Context, _ *item.Context, a Action, _ *Artifacts) (any, error) {
	r.executed = append(r.executed, a.Type)
	if err := r.fail[a.Type]; err != nil {
		return nil, err
	}
	return fmt.Sprintf("out:%s", a.Type), nil
}

// testRegistry registers the fixture variants: note is plain, advance bumps
// the predicted status, observe closes a batch.
func testRegistry(rec *recorder) *Registry {
	exec := noopExecute
	if rec != nil {
		exec = rec.execute
	}
	reg := NewRegistry()
	reg.MustRegister(actNote, Behavior{Predict: identityPredict, Execute: exec})
	reg.MustRegister(actAdvance, Behavior{
		Predict: func(c *item.Context, _ Action) []*item.Context {
			c.Item.Status = item.StatusBacklog
			return []*item.Context{c}
		},
		Execute: exec,
	})
	reg.MustRegister(actObserve, Behavior{Predict: identityPredict, Execute: exec, Observe: true})
	return reg
}

func note(text string) Action {
	return Action{Type: actNote, Token: TokenBot, Payload: notePayload{Text: text}}
}
