package agent

import (
	"errors"
	"fmt"
	"strings"
)

// TriageOutput is the structured payload of a triage run. The agent
// reads the raw item and decides whether it carries enough detail to
// be worked on.
type TriageOutput struct {
	// Ready means the item can move to the backlog as-is.
	Ready bool `json:"ready"`

	// Summary is a one-paragraph restatement of the request.
	Summary string `json:"summary"`

	// Questions lists what is missing when Ready is false.
	Questions []string `json:"questions,omitempty"`

	// Labels are topical labels the agent suggests for the item.
	Labels []string `json:"labels,omitempty"`
}

func (o *TriageOutput) Validate() error {
	if strings.TrimSpace(o.Summary) == "" {
		return errors.New("triage output: empty summary")
	}
	if !o.Ready && len(o.Questions) == 0 {
		return errors.New("triage output: not ready but no questions")
	}
	return nil
}

// PhaseSpec is one implementation phase proposed by a groom run.
type PhaseSpec struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GroomOutput is the structured payload of a groom run: a refined
// description plus an ordered phase breakdown.
type GroomOutput struct {
	Description string      `json:"description"`
	Phases      []PhaseSpec `json:"phases"`
}

func (o *GroomOutput) Validate() error {
	if strings.TrimSpace(o.Description) == "" {
		return errors.New("groom output: empty description")
	}
	if len(o.Phases) == 0 {
		return errors.New("groom output: no phases")
	}
	for i, p := range o.Phases {
		if strings.TrimSpace(p.Title) == "" {
			return fmt.Errorf("groom output: phase %d has no title", i+1)
		}
	}
	return nil
}

// IterationOutput is the structured payload of an implementation run.
type IterationOutput struct {
	// Summary describes what the iteration changed.
	Summary string `json:"summary"`

	// CommitRef is the head commit the agent pushed, when it pushed.
	CommitRef string `json:"commit_ref,omitempty"`

	// Done means the agent considers the phase complete.
	Done bool `json:"done"`

	// Notes carries anything a reviewer should know.
	Notes string `json:"notes,omitempty"`
}

func (o *IterationOutput) Validate() error {
	if strings.TrimSpace(o.Summary) == "" {
		return errors.New("iteration output: empty summary")
	}
	return nil
}
