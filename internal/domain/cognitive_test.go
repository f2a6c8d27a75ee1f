package domain

import (
	"strings"
	"testing"
)

func TestNewCognitiveState(t *testing.T) {
	state := NewCognitiveState("diagnose checkout latency")

	if state.Confidence != InitialCognitiveConfidence {
		t.Errorf("initial confidence = %v, want %v", state.Confidence, InitialCognitiveConfidence)
	}
	if state.GoalStatement != "diagnose checkout latency" {
		t.Errorf("goal = %q", state.GoalStatement)
	}
	if state.IterationCount != 0 || state.StallCount != 0 {
		t.Errorf("counters should start at zero: %+v", state)
	}
}

func TestUpdateConfidenceClamps(t *testing.T) {
	state := NewCognitiveState("goal")

	state.UpdateConfidence(1.5)
	if state.Confidence != 1.0 {
		t.Errorf("confidence = %v, want clamped 1.0", state.Confidence)
	}

	state.UpdateConfidence(-0.5)
	if state.Confidence != 0.0 {
		t.Errorf("confidence = %v, want clamped 0.0", state.Confidence)
	}
}

func TestUncertaintiesOrderedAndDeduped(t *testing.T) {
	state := NewCognitiveState("goal")

	state.AddUncertainty("what is the goal")
	state.AddUncertainty("is the data complete")
	state.AddUncertainty("what is the goal")

	if len(state.Uncertainties) != 2 {
		t.Fatalf("uncertainties = %v, want 2 deduped entries", state.Uncertainties)
	}
	if state.Uncertainties[0] != "what is the goal" || state.Uncertainties[1] != "is the data complete" {
		t.Errorf("insertion order not preserved: %v", state.Uncertainties)
	}

	state.RemoveUncertainty("what is the goal")
	if len(state.Uncertainties) != 1 || state.Uncertainties[0] != "is the data complete" {
		t.Errorf("after removal: %v", state.Uncertainties)
	}

	// Removing an absent entry is a no-op.
	state.RemoveUncertainty("never added")
	if len(state.Uncertainties) != 1 {
		t.Errorf("after no-op removal: %v", state.Uncertainties)
	}
}

func TestStallTracking(t *testing.T) {
	state := NewCognitiveState("goal")

	state.MarkStall()
	state.MarkStall()
	if state.HasStalled(3) {
		t.Error("should not report stalled below the threshold")
	}

	state.MarkStall()
	if !state.HasStalled(3) {
		t.Error("should report stalled at the threshold")
	}

	state.MarkProgress()
	if state.StallCount != 0 {
		t.Errorf("progress should reset the stall count, got %d", state.StallCount)
	}
	if state.HasStalled(3) {
		t.Error("should not report stalled after progress")
	}
}

func TestAverageObservationConfidence(t *testing.T) {
	state := NewCognitiveState("goal")

	if state.AverageObservationConfidence() != 0 {
		t.Error("average with no observations should be zero")
	}

	state.RecordObservation(1.0)
	state.RecordObservation(0.5)
	if got := state.AverageObservationConfidence(); got != 0.75 {
		t.Errorf("average = %v, want 0.75", got)
	}
	if state.ObservationCount != 2 {
		t.Errorf("count = %d, want 2", state.ObservationCount)
	}
}

func TestContextLines(t *testing.T) {
	state := NewCognitiveState("goal")

	state.UpdateConfidence(0.2)
	state.AddUncertainty("missing latency data")
	state.MarkStall()
	state.MarkStall()

	digest := state.ContextLines()
	if !strings.Contains(digest, "confidence is low") {
		t.Errorf("digest missing low-confidence note:\n%s", digest)
	}
	if !strings.Contains(digest, "missing latency data") {
		t.Errorf("digest missing uncertainty:\n%s", digest)
	}
	if !strings.Contains(digest, "stalled") {
		t.Errorf("digest missing stall note:\n%s", digest)
	}

	// A healthy state produces an empty digest.
	healthy := NewCognitiveState("goal")
	healthy.UpdateConfidence(0.9)
	if healthy.ContextLines() != "" {
		t.Errorf("healthy digest should be empty, got %q", healthy.ContextLines())
	}
}
