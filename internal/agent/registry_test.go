package agent

import (
	"context"
	"errors"
	"testing"
)

type stubInvoker struct {
	name string
	err  error
}

func (s *stubInvoker) Name() string                                  { return s.name }
func (s *stubInvoker) Available() error                              { return s.err }
func (s *stubInvoker) Invoke(context.Context, Request) (*Result, error) { return &Result{}, nil }
func (s *stubInvoker) WithEnv(string, string) Invoker                { return s }
func (s *stubInvoker) WithArgs(...string) Invoker                    { return s }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubInvoker{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&stubInvoker{name: "a"}); err == nil {
		t.Error("duplicate names must be rejected")
	}
	if _, err := r.Get("a"); err != nil {
		t.Errorf("Get: %v", err)
	}
	if _, err := r.Get("missing"); err == nil {
		t.Error("unknown name must error")
	}
	if err := r.Register(&stubInvoker{name: "b"}); err != nil {
		t.Fatal(err)
	}
	if got := r.List(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("List() = %v, want registration order", got)
	}
}

func TestRegistryDetectNamed(t *testing.T) {
	r := NewRegistry()
	broken := &stubInvoker{name: "broken", err: errors.New("binary missing")}
	working := &stubInvoker{name: "working"}
	_ = r.Register(broken)
	_ = r.Register(working)

	inv, err := r.Detect("working")
	if err != nil || inv.Name() != "working" {
		t.Errorf("named detect: %v %v", inv, err)
	}
	if _, err := r.Detect("broken"); err == nil {
		t.Error("a named but unavailable agent must error, not fall back")
	}
	if _, err := r.Detect("missing"); err == nil {
		t.Error("an unknown name must error")
	}
}

func TestRegistryDetectFallback(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubInvoker{name: "first", err: errors.New("unavailable")})
	_ = r.Register(&stubInvoker{name: "second"})

	inv, err := r.Detect("")
	if err != nil {
		t.Fatal(err)
	}
	if inv.Name() != "second" {
		t.Errorf("detect should skip unavailable agents, got %s", inv.Name())
	}

	empty := NewRegistry()
	if _, err := empty.Detect(""); err == nil {
		t.Error("an empty registry cannot detect anything")
	}
}

func TestNopInvoker(t *testing.T) {
	var inv Invoker = Nop{}
	if err := inv.Available(); err != nil {
		t.Errorf("nop is always available: %v", err)
	}
	if _, err := inv.Invoke(context.Background(), Request{Prompt: "x"}); !errors.Is(err, ErrNopInvoker) {
		t.Errorf("nop must refuse to run, got %v", err)
	}
}
