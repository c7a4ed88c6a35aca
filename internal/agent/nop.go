package agent

import (
	"context"
	"errors"
)

// ErrNopInvoker is returned when a no-op invoker is asked to run.
var ErrNopInvoker = errors.New("agent invocation disabled")

// Nop is an Invoker that refuses to run. Plan-only callers use it to
// satisfy wiring without allowing an agent to be reached.
type Nop struct{}

func (Nop) Name() string                                    { return "nop" }
func (Nop) Available() error                                { return nil }
func (Nop) Invoke(context.Context, Request) (*Result, error) { return nil, ErrNopInvoker }
func (n Nop) WithEnv(string, string) Invoker                { return n }
func (n Nop) WithArgs(...string) Invoker                    { return n }

var _ Invoker = Nop{}
