package stage

import "testing"

func TestDefaultCatalogContiguous(t *testing.T) {
	c := Default()
	if c.Len() < 2 {
		t.Fatalf("expected multi-stage catalog, got %d", c.Len())
	}

	for i, d := range c.All() {
		if d.Order != i+1 {
			t.Fatalf("stage %d has order %d", i+1, d.Order)
		}
		if d.Name == "" {
			t.Errorf("stage %d has empty name", d.Order)
		}
	}

	last, ok := c.Get(c.Len())
	if !ok {
		t.Fatal("last stage not found")
	}
	if last.Kind != KindSummary {
		t.Errorf("expected terminal summary stage, got %v", last.Kind)
	}
	if _, ok := c.Next(last.Order); ok {
		t.Error("expected no stage after the terminal summary")
	}
}

func TestGetOutOfRange(t *testing.T) {
	c := Default()
	if _, ok := c.Get(0); ok {
		t.Error("order 0 should not resolve")
	}
	if _, ok := c.Get(c.Len() + 1); ok {
		t.Error("order past the end should not resolve")
	}
}

func TestViewFor(t *testing.T) {
	tests := []struct {
		kind Kind
		view View
	}{
		{KindInformational, ViewGuidance},
		{KindTimedAssessment, ViewTimedQA},
		{KindSlotBooking, ViewSlotForm},
		{KindLiveDemo, ViewLiveDemo},
		{KindFeedbackReview, ViewReadOnly},
		{KindDocumentReview, ViewReadOnly},
		{KindSummary, ViewSummary},
	}
	for _, tt := range tests {
		if got := ViewFor(tt.kind); got != tt.view {
			t.Errorf("ViewFor(%v) = %v, want %v", tt.kind, got, tt.view)
		}
	}
}

func TestEvaluatedAndInteractiveKinds(t *testing.T) {
	for _, d := range Default().All() {
		if d.Kind == KindSlotBooking && d.Kind.Evaluated() {
			t.Error("slot booking must never be AI-evaluated")
		}
		if d.Kind.Evaluated() && !d.Kind.Interactive() {
			t.Errorf("%v evaluated but not interactive", d.Kind)
		}
	}
}

func TestReviewStagePointsAtEvaluatedStage(t *testing.T) {
	c := Default()
	for _, d := range c.All() {
		if d.Kind != KindFeedbackReview {
			continue
		}
		ref, ok := c.Get(d.ReviewStageOrder)
		if !ok {
			t.Fatalf("stage %d reviews missing stage %d", d.Order, d.ReviewStageOrder)
		}
		if !ref.Kind.Evaluated() {
			t.Errorf("stage %d reviews non-evaluated stage %d", d.Order, ref.Order)
		}
		if ref.Order >= d.Order {
			t.Errorf("review stage %d must reference a prior stage, got %d", d.Order, ref.Order)
		}
	}
}
