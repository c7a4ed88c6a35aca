package flow

import (
	"fmt"
	"strings"

	"github.com/valksor/go-taktwerk/internal/item"
)

// Prompt rendering is deliberately plain: the workflow only needs the
// agent to see the item and to answer inside one fenced json:output
// block matching the step's schema.

const outputBlockHint = "Answer with a single fenced block:\n```json:output\n{...}\n```"

func triagePrompt(w *item.WorkItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Triage work item #%d: %s\n\n", w.Number, w.Title)
	if w.Body.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", w.Body.Description)
	}
	b.WriteString("Decide whether this item carries enough detail to be worked on.\n")
	b.WriteString(`Schema: {"ready": bool, "summary": string, "questions": [string], "labels": [string]}` + "\n")
	b.WriteString(outputBlockHint)
	return b.String()
}

func groomPrompt(w *item.WorkItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Groom work item #%d: %s\n\n", w.Number, w.Title)
	if w.Body.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", w.Body.Description)
	}
	b.WriteString("Refine the description and break the work into ordered implementation phases.\n")
	b.WriteString(`Schema: {"description": string, "phases": [{"title": string, "description": string}]}` + "\n")
	b.WriteString(outputBlockHint)
	return b.String()
}

func iterationPrompt(c *item.Context) string {
	w := c.Item
	var b strings.Builder
	fmt.Fprintf(&b, "Implement work item #%d (iteration %d): %s\n\n", w.Number, w.Iteration+1, w.Title)
	if w.Body.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", w.Body.Description)
	}
	if c.Parent != nil {
		fmt.Fprintf(&b, "This is one phase of #%d: %s\n\n", c.Parent.Number, c.Parent.Title)
	}
	if c.HasBranch() {
		fmt.Fprintf(&b, "Work on branch %s and push your commits there.\n", c.Request.HeadRef)
	}
	b.WriteString("Implement the change, run the checks you can, and commit.\n")
	b.WriteString(`Schema: {"summary": string, "commit_ref": string, "done": bool, "notes": string}` + "\n")
	b.WriteString(outputBlockHint)
	return b.String()
}
