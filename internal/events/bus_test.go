package events

import (
	"errors"
	"testing"
)

func TestBusFanout(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(func(e Event) { got = append(got, e) })
	bus.Subscribe(func(e Event) { got = append(got, e) })

	bus.Publish(StateChangedEvent{From: "dispatching", To: "triage", ItemID: "7"})

	if len(got) != 2 {
		t.Fatalf("expected both handlers to fire, got %d events", len(got))
	}
	if got[0].Type != TypeStateChanged {
		t.Errorf("event type = %s, want %s", got[0].Type, TypeStateChanged)
	}
	if got[0].Data["from"] != "dispatching" || got[0].Data["to"] != "triage" {
		t.Errorf("event data = %v", got[0].Data)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("publish should stamp the event")
	}
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *Bus
	// Must not panic.
	bus.Publish(ActionExecutedEvent{Action: "updateStatus", ItemID: "7"})
}

func TestEventConversions(t *testing.T) {
	e := ActionExecutedEvent{Action: "updateStatus", ItemID: "7", Err: "boom", Soft: true}.ToEvent()
	if e.Type != TypeActionExecuted || e.Data["error"] != "boom" || e.Data["soft"] != true {
		t.Errorf("action event = %+v", e)
	}

	v := BatchVerifiedEvent{Batch: 2, Matched: false, DiffCount: 3}.ToEvent()
	if v.Type != TypeBatchVerified || v.Data["diff_count"] != 3 {
		t.Errorf("batch event = %+v", v)
	}

	errEv := ErrorEvent{ItemID: "7", Error: errors.New("bad"), Fatal: true}.ToEvent()
	if errEv.Type != TypeError || errEv.Data["error"] != "bad" || errEv.Data["fatal"] != true {
		t.Errorf("error event = %+v", errEv)
	}
}
