package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoStructuredOutput is returned when a run that was asked for an
// output block produced none.
var ErrNoStructuredOutput = errors.New("agent produced no structured output")

// outputBlockRe matches the fenced block prompts ask agents to emit:
//
//	```json:output
//	{ ... }
//	```
var outputBlockRe = regexp.MustCompile("(?s)```json:output\\s*\\n(.+?)\\n```")

// ParseOutput splits agent text into prose and the structured payload.
// When multiple output blocks are present the last one wins, so agents
// that think out loud and restate their answer stay parseable.
func ParseOutput(text string, wantStructured bool) (*Result, error) {
	res := &Result{Success: true}

	matches := outputBlockRe.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		raw := strings.TrimSpace(matches[len(matches)-1][1])
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("output block is not valid JSON: %.80s", raw)
		}
		res.Structured = json.RawMessage(raw)
	}

	if wantStructured && !res.HasStructured() {
		return nil, ErrNoStructuredOutput
	}

	res.Text = strings.TrimSpace(outputBlockRe.ReplaceAllString(text, ""))

	return res, nil
}

// streamLine is one line of --output-format stream-json output.
type streamLine struct {
	Type    string `json:"type"`
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// CollectText aggregates the text content of a stream-json transcript.
// Lines that do not parse as JSON pass through verbatim; the terminal
// "result" line supersedes everything before it.
func CollectText(lines [][]byte) string {
	var b strings.Builder
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		var sl streamLine
		if err := json.Unmarshal(line, &sl); err != nil {
			b.Write(line)
			b.WriteString("\n")
			continue
		}
		switch sl.Type {
		case "result":
			if sl.Result != "" {
				return sl.Result
			}
		case "assistant":
			for _, c := range sl.Message.Content {
				if c.Type == "text" {
					b.WriteString(c.Text)
				}
			}
		}
	}
	return b.String()
}
