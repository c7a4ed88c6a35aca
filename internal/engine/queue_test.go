package engine

import (
	"errors"
	"testing"
)

func TestQueueValidateOK(t *testing.T) {
	reg := testRegistry(nil)
	q := Queue{note("a"), note("b"), {Type: actObserve, Payload: notePayload{Text: "x"}}}
	if err := q.Validate(reg); err != nil {
		t.Errorf("valid queue rejected: %v", err)
	}
}

func TestQueueValidateUnregistered(t *testing.T) {
	reg := testRegistry(nil)
	q := Queue{{Type: "bogus", Payload: notePayload{Text: "x"}}}
	err := q.Validate(reg)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Action != "bogus" || schemaErr.Index != 0 {
		t.Errorf("wrong error detail: %+v", schemaErr)
	}
}

func TestQueueValidateMissingPayload(t *testing.T) {
	reg := testRegistry(nil)
	q := Queue{{Type: actNote}}
	var schemaErr *SchemaError
	if !errors.As(q.Validate(reg), &schemaErr) {
		t.Fatal("nil payload should be a SchemaError")
	}
}

func TestQueueValidateInvalidPayload(t *testing.T) {
	reg := testRegistry(nil)
	q := Queue{note("ok"), note("")}
	var schemaErr *SchemaError
	err := q.Validate(reg)
	if !errors.As(err, &schemaErr) {
		t.Fatalf("invalid payload should be a SchemaError, got %v", err)
	}
	if schemaErr.Index != 1 {
		t.Errorf("error should point at the failing action, got index %d", schemaErr.Index)
	}
}

func TestQueueValidateArtifactOrdering(t *testing.T) {
	reg := testRegistry(nil)

	producer := note("p")
	producer.Produces = "triage"
	consumer := note("c")
	consumer.Consumes = "triage"

	if err := (Queue{producer, consumer}).Validate(reg); err != nil {
		t.Errorf("producer before consumer should pass: %v", err)
	}
	if err := (Queue{consumer, producer}).Validate(reg); err == nil {
		t.Error("consumer before producer should fail validation")
	}
}

func TestQueueValidateArtifactsResetAtBoundary(t *testing.T) {
	reg := testRegistry(nil)

	producer := note("p")
	producer.Produces = "triage"
	boundary := Action{Type: actObserve, Payload: notePayload{Text: "x"}}
	consumer := note("c")
	consumer.Consumes = "triage"

	// The artifact is produced in batch 0 but consumed in batch 1; the
	// refresh between batches discards it.
	err := (Queue{producer, boundary, consumer}).Validate(reg)
	if err == nil {
		t.Fatal("artifact must not survive an observe boundary")
	}

	// Consuming before the boundary is fine.
	if err := (Queue{producer, consumer, boundary}).Validate(reg); err != nil {
		t.Errorf("consumption within the batch should pass: %v", err)
	}
}

func TestQueueBatches(t *testing.T) {
	reg := testRegistry(nil)
	obs := Action{Type: actObserve, Payload: notePayload{Text: "x"}}

	q := Queue{note("a"), obs, note("b"), note("c"), obs, note("d")}
	batches := q.Batches(reg)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	want := [][]ActionType{
		{actNote, actObserve},
		{actNote, actNote, actObserve},
		{actNote},
	}
	for i, batch := range batches {
		types := batch.Types()
		if len(types) != len(want[i]) {
			t.Fatalf("batch %d: got %v, want %v", i, types, want[i])
		}
		for j := range types {
			if types[j] != want[i][j] {
				t.Errorf("batch %d action %d: got %s, want %s", i, j, types[j], want[i][j])
			}
		}
	}
}

func TestQueueBatchesEmpty(t *testing.T) {
	if batches := (Queue{}).Batches(testRegistry(nil)); len(batches) != 0 {
		t.Errorf("empty queue should yield no batches, got %d", len(batches))
	}
}

func TestRegistryRegisterErrors(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("", Behavior{Predict: identityPredict, Execute: noopExecute}); err == nil {
		t.Error("empty type should be rejected")
	}
	if err := reg.Register(actNote, Behavior{Execute: noopExecute}); err == nil {
		t.Error("missing predict should be rejected")
	}
	if err := reg.Register(actNote, Behavior{Predict: identityPredict}); err == nil {
		t.Error("missing execute should be rejected")
	}
	if err := reg.Register(actNote, Behavior{Predict: identityPredict, Execute: noopExecute}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := reg.Register(actNote, Behavior{Predict: identityPredict, Execute: noopExecute}); err == nil {
		t.Error("duplicate registration should be rejected")
	}
}

func TestRegistryTypesSorted(t *testing.T) {
	reg := testRegistry(nil)
	types := reg.Types()
	if len(types) != 3 {
		t.Fatalf("expected 3 types, got %v", types)
	}
	for i := 1; i < len(types); i++ {
		if types[i-1] >= types[i] {
			t.Errorf("types not sorted: %v", types)
		}
	}
}
