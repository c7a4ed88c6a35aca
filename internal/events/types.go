// Package events carries run-progress notifications from the engine to
// whoever is watching (the CLI in verbose mode, tests).
package events

import "time"

// Type identifies event categories
type Type string

const (
	TypeStateChanged   Type = "state_changed"
	TypeActionExecuted Type = "action_executed"
	TypeBatchVerified  Type = "batch_verified"
	TypeError          Type = "error"
)

// Event is the base event structure
type Event struct {
	Type      Type
	Timestamp time.Time
	Data      map[string]any
}

// Eventer interface for typed events
type Eventer interface {
	ToEvent() Event
}

// StateChangedEvent when the machine moves between states
type StateChangedEvent struct {
	From      string
	To        string
	ItemID    string
	Timestamp time.Time
}

func (e StateChangedEvent) ToEvent() Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return Event{
		Type:      TypeStateChanged,
		Timestamp: e.Timestamp,
		Data: map[string]any{
			"from":    e.From,
			"to":      e.To,
			"item_id": e.ItemID,
		},
	}
}

// ActionExecutedEvent after each action runs
type ActionExecutedEvent struct {
	Action    string
	ItemID    string
	Err       string // empty on success
	Soft      bool
	Timestamp time.Time
}

func (e ActionExecutedEvent) ToEvent() Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return Event{
		Type:      TypeActionExecuted,
		Timestamp: e.Timestamp,
		Data: map[string]any{
			"action":  e.Action,
			"item_id": e.ItemID,
			"error":   e.Err,
			"soft":    e.Soft,
		},
	}
}

// BatchVerifiedEvent after each refresh+verify cycle
type BatchVerifiedEvent struct {
	Batch     int
	Matched   bool
	DiffCount int
	Timestamp time.Time
}

func (e BatchVerifiedEvent) ToEvent() Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return Event{
		Type:      TypeBatchVerified,
		Timestamp: e.Timestamp,
		Data: map[string]any{
			"batch":      e.Batch,
			"matched":    e.Matched,
			"diff_count": e.DiffCount,
		},
	}
}

// ErrorEvent for run errors
type ErrorEvent struct {
	ItemID    string
	Error     error
	Fatal     bool
	Timestamp time.Time
}

func (e ErrorEvent) ToEvent() Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	errMsg := ""
	if e.Error != nil {
		errMsg = e.Error.Error()
	}
	return Event{
		Type:      TypeError,
		Timestamp: e.Timestamp,
		Data: map[string]any{
			"item_id": e.ItemID,
			"error":   errMsg,
			"fatal":   e.Fatal,
		},
	}
}
