package testutil

import (
	"strconv"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valksor/go-taktwerk/internal/item"
	"github.com/valksor/go-taktwerk/internal/trigger"
)

// Bot is the automation login used across test fixtures.
const Bot = "takt-bot"

// Settings returns the standard test run settings.
func Settings() item.RunSettings {
	return item.RunSettings{
		MaxRetries: 3,
		BotLogin:   Bot,
		Now:        time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

// SampleItem returns a fresh untriaged work item.
func SampleItem(number int) *item.WorkItem {
	return &item.WorkItem{
		ID:     itoa(number),
		Number: number,
		Title:  "Add rate limiting to the export endpoint",
		Body:   item.Body{Description: "Exports overload the upstream service.", Raw: "Exports overload the upstream service."},
		Open:   true,
		Status: item.StatusNew,
	}
}

// SampleContext returns a minimal context around SampleItem.
func SampleContext(number int, trig trigger.Trigger) *item.Context {
	return &item.Context{
		Item:    SampleItem(number),
		Trigger: trig,
		Run:     Settings(),
	}
}

// fixtureDoc is the YAML shape of an on-disk context fixture.
type fixtureDoc struct {
	Item     fixtureItem    `yaml:"item"`
	Parent   *fixtureItem   `yaml:"parent"`
	Children []fixtureItem  `yaml:"children"`
	Request  *fixtureReq    `yaml:"request"`
	Trigger  fixtureTrigger `yaml:"trigger"`
	CI       string         `yaml:"ci"`
	Review   string         `yaml:"review"`
}

type fixtureItem struct {
	Number    int      `yaml:"number"`
	Title     string   `yaml:"title"`
	Status    string   `yaml:"status"`
	Open      *bool    `yaml:"open"`
	Labels    []string `yaml:"labels"`
	Assignees []string `yaml:"assignees"`
	Iteration int      `yaml:"iteration"`
	Failures  int      `yaml:"failures"`
}

type fixtureReq struct {
	Number  int    `yaml:"number"`
	Draft   bool   `yaml:"draft"`
	HeadRef string `yaml:"head_ref"`
	Commit  string `yaml:"commit"`
}

type fixtureTrigger struct {
	Type   string `yaml:"type"`
	Actor  string `yaml:"actor"`
	CI     string `yaml:"ci"`
	Review string `yaml:"review"`
}

// ContextFromYAML decodes a YAML fixture into a context. Fixtures keep
// scenario setups readable in tests that need more than SampleContext.
func ContextFromYAML(t *testing.T, doc string) *item.Context {
	t.Helper()

	var f fixtureDoc
	if err := yaml.Unmarshal([]byte(doc), &f); err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	c := &item.Context{
		Item: f.Item.toWorkItem(),
		Trigger: trigger.Trigger{
			Type:           trigger.Type(f.Trigger.Type),
			ItemNumber:     f.Item.Number,
			Actor:          f.Trigger.Actor,
			CIResult:       f.Trigger.CI,
			ReviewDecision: f.Trigger.Review,
		},
		CI:     item.CIResult(f.CI),
		Review: item.ReviewDecision(f.Review),
		Run:    Settings(),
	}
	c.Trigger.ItemID = c.Item.ID
	if f.Parent != nil {
		c.Parent = f.Parent.toWorkItem()
		c.Item.ParentID = c.Parent.ID
	}
	for i := range f.Children {
		child := f.Children[i].toWorkItem()
		child.ParentID = c.Item.ID
		c.Children = append(c.Children, child)
	}
	if f.Request != nil {
		c.Request = &item.ChangeRequest{
			ID:        itoa(f.Request.Number),
			Number:    f.Request.Number,
			Draft:     f.Request.Draft,
			HeadRef:   f.Request.HeadRef,
			CommitRef: f.Request.Commit,
		}
	}
	return c
}

func (f fixtureItem) toWorkItem() *item.WorkItem {
	open := true
	if f.Open != nil {
		open = *f.Open
	}
	status := item.Status(f.Status)
	if f.Status == "" {
		status = item.StatusNew
	}
	return &item.WorkItem{
		ID:        itoa(f.Number),
		Number:    f.Number,
		Title:     f.Title,
		Open:      open,
		Status:    status,
		Labels:    f.Labels,
		Assignees: f.Assignees,
		Iteration: f.Iteration,
		Failures:  f.Failures,
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
