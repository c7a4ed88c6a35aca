package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/valksor/go-taktwerk/internal/agent"
	"github.com/valksor/go-taktwerk/internal/agent/claude"
	"github.com/valksor/go-taktwerk/internal/config"
	"github.com/valksor/go-taktwerk/internal/events"
	"github.com/valksor/go-taktwerk/internal/flow"
	"github.com/valksor/go-taktwerk/internal/log"
	"github.com/valksor/go-taktwerk/internal/tracker"
	"github.com/valksor/go-taktwerk/internal/tracker/github"
	"github.com/valksor/go-taktwerk/internal/tracker/gitlab"
	"github.com/valksor/go-taktwerk/internal/trigger"
)

// readEvent reads the event payload from a file argument or stdin when
// the argument is "-" or absent.
func readEvent(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}
	return data, nil
}

// buildStore constructs the configured tracker backend.
func buildStore(cfg *config.Config) (tracker.Store, error) {
	switch cfg.Tracker.Backend {
	case github.Backend:
		tok, err := github.ResolveToken(cfg.Tracker.Token)
		if err != nil {
			return nil, fmt.Errorf("github token: %w", err)
		}
		return github.New(tok, cfg.Tracker.Owner, cfg.Tracker.Repo), nil
	case gitlab.Backend:
		tok, err := gitlab.ResolveToken(cfg.Tracker.Token)
		if err != nil {
			return nil, fmt.Errorf("gitlab token: %w", err)
		}
		return gitlab.New(tok, cfg.Tracker.Host, cfg.Tracker.Project)
	}
	return nil, fmt.Errorf("unknown tracker backend %q", cfg.Tracker.Backend)
}

// buildAgent constructs and checks the configured invoker.
func buildAgent(cfg *config.Config) (agent.Invoker, error) {
	reg := agent.NewRegistry()
	if err := reg.Register(claude.NewWithConfig(agent.Config{
		Command: cfg.Agent.Command,
		Args:    cfg.Agent.Args,
		Timeout: cfg.Agent.Timeout.Std(),
		WorkDir: cfg.Agent.WorkDir,
	})); err != nil {
		return nil, err
	}
	return reg.Detect(cfg.Agent.Name)
}

// decodeTrigger parses the raw event into the canonical trigger.
func decodeTrigger(args []string) (trigger.Trigger, error) {
	payload, err := readEvent(args)
	if err != nil {
		return trigger.Trigger{}, err
	}
	return trigger.Decode(payload)
}

// machineOptions maps config to the workflow options. Verbose runs get
// a bus that mirrors engine progress into the debug log.
func machineOptions(cfg *config.Config) flow.Options {
	opts := flow.Options{
		MaxRetries:     cfg.Run.MaxRetries,
		BotLogin:       cfg.Run.BotLogin,
		MaxTransitions: cfg.Run.MaxTransitions,
		StrictVerify:   cfg.Run.StrictVerify,
	}
	if verbose {
		bus := events.NewBus()
		bus.Subscribe(func(e events.Event) {
			log.Debug("engine event", "type", string(e.Type), "data", e.Data)
		})
		opts.Bus = bus
	}
	return opts
}
