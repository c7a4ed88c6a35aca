package tracker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/valksor/go-taktwerk/internal/item"
)

// The engine's durable per-item state (counters, parent link, phase list,
// activity log) lives inside the item body as HTML-comment markers. Markers
// survive human edits of the surrounding text, and rendering is
// deterministic so repeated writes are idempotent.

const (
	phasesHeading  = "## Phases"
	historyHeading = "## Activity log"
)

var (
	iterationRe = regexp.MustCompile(`(?m)^<!-- takt:iteration:(\d+) -->$`)
	failuresRe  = regexp.MustCompile(`(?m)^<!-- takt:failures:(\d+) -->$`)
	parentRe    = regexp.MustCompile(`(?m)^<!-- takt:parent:(\d+) -->$`)
	logLineRe   = regexp.MustCompile(`^<!-- takt:log:([A-Za-z0-9._/-]+) -->\s?(.*)$`)
	phaseLineRe = regexp.MustCompile(`^- \[([ xX])\] #(\d+)\s*$`)
	markerRe    = regexp.MustCompile(`(?m)^<!-- takt:[a-z]+:[^>]* -->$`)
)

// ChildRef is one phase reference in a parent's task list.
type ChildRef struct {
	Number int
	Done   bool
}

// BodyData is the decoded body of a work item.
type BodyData struct {
	Description  string
	Iteration    int
	Failures     int
	ParentNumber int
	Children     []ChildRef
	History      []item.HistoryEntry
}

// ParseBody decodes a raw item body.
func ParseBody(raw string) BodyData {
	var d BodyData

	if m := iterationRe.FindStringSubmatch(raw); m != nil {
		d.Iteration, _ = strconv.Atoi(m[1])
	}
	if m := failuresRe.FindStringSubmatch(raw); m != nil {
		d.Failures, _ = strconv.Atoi(m[1])
	}
	if m := parentRe.FindStringSubmatch(raw); m != nil {
		d.ParentNumber, _ = strconv.Atoi(m[1])
	}

	section := ""
	var desc []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimRight(line, " \t")
		switch trimmed {
		case phasesHeading:
			section = "phases"
			continue
		case historyHeading:
			section = "history"
			continue
		}
		if strings.HasPrefix(trimmed, "## ") {
			section = ""
		}

		switch section {
		case "phases":
			if m := phaseLineRe.FindStringSubmatch(trimmed); m != nil {
				num, _ := strconv.Atoi(m[2])
				d.Children = append(d.Children, ChildRef{Number: num, Done: m[1] != " "})
			}
		case "history":
			if m := logLineRe.FindStringSubmatch(trimmed); m != nil {
				d.History = append(d.History, item.HistoryEntry{Marker: m[1], Text: m[2]})
			}
		default:
			if markerRe.MatchString(trimmed) {
				continue
			}
			desc = append(desc, line)
		}
	}
	d.Description = strings.TrimSpace(strings.Join(desc, "\n"))
	return d
}

// Render encodes the body back to its stored form. The layout is fixed:
// description, markers, phases, activity log.
func (d BodyData) Render() string {
	var b strings.Builder
	if d.Description != "" {
		b.WriteString(d.Description)
		b.WriteString("\n")
	}

	var markers []string
	if d.ParentNumber > 0 {
		markers = append(markers, fmt.Sprintf("<!-- takt:parent:%d -->", d.ParentNumber))
	}
	if d.Iteration > 0 {
		markers = append(markers, fmt.Sprintf("<!-- takt:iteration:%d -->", d.Iteration))
	}
	if d.Failures > 0 {
		markers = append(markers, fmt.Sprintf("<!-- takt:failures:%d -->", d.Failures))
	}
	if len(markers) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(markers, "\n"))
		b.WriteString("\n")
	}

	if len(d.Children) > 0 {
		b.WriteString("\n" + phasesHeading + "\n")
		for _, c := range d.Children {
			box := " "
			if c.Done {
				box = "x"
			}
			fmt.Fprintf(&b, "- [%s] #%d\n", box, c.Number)
		}
	}

	if len(d.History) > 0 {
		b.WriteString("\n" + historyHeading + "\n")
		for _, e := range d.History {
			fmt.Fprintf(&b, "<!-- takt:log:%s --> %s\n", e.Marker, e.Text)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Upsert replaces the entry with a matching marker or appends a new one.
// Appending the same marker twice yields exactly one stored entry.
func (d *BodyData) Upsert(entries ...item.HistoryEntry) {
	for _, e := range entries {
		replaced := false
		for i, existing := range d.History {
			if existing.Marker == e.Marker {
				d.History[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			d.History = append(d.History, e)
		}
	}
}

// ToBody converts the decoded data to the domain body view.
func (d BodyData) ToBody() item.Body {
	return item.Body{
		Description: d.Description,
		History:     append([]item.HistoryEntry(nil), d.History...),
		Raw:         d.Render(),
	}
}
