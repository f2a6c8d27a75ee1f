package service

import (
	"testing"
	"time"

	"github.com/veracity-ai/veracity/internal/domain"
)

func groundedRegistry(count int, confidence float64) *Registry {
	r := NewRegistry()
	for i := 0; i < count; i++ {
		addObservation(r, confidence, nil, time.Now())
	}
	return r
}

func TestEvaluateConcludesWhenConfidentAndGrounded(t *testing.T) {
	g := NewStrategyGate()
	state := domain.NewCognitiveState("goal")
	state.UpdateConfidence(0.9)

	path := g.Evaluate(state, groundedRegistry(2, 0.9))
	if path.Decision != DecisionConclude {
		t.Errorf("decision = %s, want conclude (%s)", path.Decision, path.Reason)
	}
}

func TestEvaluateConfidentButUngrounded(t *testing.T) {
	// High confidence with an empty ledger is exactly the hallucination
	// shape: the gate demands evidence instead of concluding.
	g := NewStrategyGate()
	state := domain.NewCognitiveState("goal")
	state.UpdateConfidence(0.9)

	path := g.Evaluate(state, NewRegistry())
	if path.Decision != DecisionRequestMoreInfo {
		t.Errorf("decision = %s, want request_more_info (%s)", path.Decision, path.Reason)
	}
}

func TestEvaluateNilRegistrySkipsEvidenceRules(t *testing.T) {
	g := NewStrategyGate()
	state := domain.NewCognitiveState("goal")
	state.UpdateConfidence(0.9)

	path := g.Evaluate(state, nil)
	if path.Decision != DecisionConclude {
		t.Errorf("decision = %s, want conclude without a ledger", path.Decision)
	}
}

func TestEvaluateUncertaintyBlocksConclusion(t *testing.T) {
	g := NewStrategyGate()
	state := domain.NewCognitiveState("goal")
	state.UpdateConfidence(0.9)
	state.AddUncertainty("is the data complete")

	path := g.Evaluate(state, groundedRegistry(2, 0.9))
	if path.Decision == DecisionConclude {
		t.Error("open uncertainties must block a conclusion")
	}
}

func TestEvaluateStaleEvidence(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := int64(60)

	r := NewRegistry()
	r.SetClock(fixedClock(base.Add(2 * time.Minute)))
	addObservation(r, 1.0, &ttl, base)

	g := NewStrategyGate()
	state := domain.NewCognitiveState("goal")

	path := g.Evaluate(state, r)
	if path.Decision != DecisionRequestMoreInfo {
		t.Errorf("decision = %s, want request_more_info for stale evidence", path.Decision)
	}
}

func TestEvaluateWeakThinEvidence(t *testing.T) {
	g := NewStrategyGate()
	state := domain.NewCognitiveState("goal")

	path := g.Evaluate(state, groundedRegistry(2, 0.3))
	if path.Decision != DecisionRequestMoreInfo {
		t.Errorf("decision = %s, want request_more_info for weak evidence (%s)", path.Decision, path.Reason)
	}
}

func TestEvaluateStall(t *testing.T) {
	g := NewStrategyGate()

	t.Run("stall at low confidence degrades", func(t *testing.T) {
		state := domain.NewCognitiveState("goal")
		state.UpdateConfidence(0.2)
		for i := 0; i < 3; i++ {
			state.MarkStall()
		}

		path := g.Evaluate(state, groundedRegistry(3, 0.9))
		if path.Decision != DecisionDegrade {
			t.Errorf("decision = %s, want degrade (%s)", path.Decision, path.Reason)
		}
	})

	t.Run("stall at workable confidence pivots", func(t *testing.T) {
		state := domain.NewCognitiveState("goal")
		state.UpdateConfidence(0.5)
		for i := 0; i < 3; i++ {
			state.MarkStall()
		}

		path := g.Evaluate(state, groundedRegistry(3, 0.9))
		if path.Decision != DecisionPivot {
			t.Errorf("decision = %s, want pivot (%s)", path.Decision, path.Reason)
		}
	})
}

func TestEvaluateUncertaintyMarkers(t *testing.T) {
	g := NewStrategyGate()

	t.Run("goal clarity asks the user", func(t *testing.T) {
		state := domain.NewCognitiveState("goal")
		state.UpdateConfidence(0.5)
		state.AddUncertainty("the goal is ambiguous")

		path := g.Evaluate(state, groundedRegistry(3, 0.9))
		if path.Decision != DecisionAskUser {
			t.Errorf("decision = %s, want ask_user (%s)", path.Decision, path.Reason)
		}
	})

	t.Run("data sufficiency deepens", func(t *testing.T) {
		state := domain.NewCognitiveState("goal")
		state.UpdateConfidence(0.5)
		state.AddUncertainty("not enough data about peak traffic")

		path := g.Evaluate(state, groundedRegistry(3, 0.9))
		if path.Decision != DecisionDeepen {
			t.Errorf("decision = %s, want deepen (%s)", path.Decision, path.Reason)
		}
	})

	t.Run("goal clarity outranks data sufficiency", func(t *testing.T) {
		state := domain.NewCognitiveState("goal")
		state.UpdateConfidence(0.5)
		state.AddUncertainty("requirements are unclear")
		state.AddUncertainty("not enough data about peak traffic")

		path := g.Evaluate(state, groundedRegistry(3, 0.9))
		if path.Decision != DecisionAskUser {
			t.Errorf("decision = %s, want ask_user (%s)", path.Decision, path.Reason)
		}
	})
}

func TestEvaluateUncertaintyOverload(t *testing.T) {
	g := NewStrategyGate()
	state := domain.NewCognitiveState("goal")
	state.UpdateConfidence(0.5)
	for _, u := range []string{"one", "two", "three", "four", "five"} {
		state.AddUncertainty("unclear area " + u)
	}

	path := g.Evaluate(state, groundedRegistry(3, 0.9))
	if path.Decision != DecisionDegrade {
		t.Errorf("decision = %s, want degrade (%s)", path.Decision, path.Reason)
	}
}

func TestEvaluateDefaultContinues(t *testing.T) {
	g := NewStrategyGate()
	state := domain.NewCognitiveState("goal")
	state.UpdateConfidence(0.5)

	path := g.Evaluate(state, groundedRegistry(3, 0.9))
	if path.Decision != DecisionContinue {
		t.Errorf("decision = %s, want continue (%s)", path.Decision, path.Reason)
	}
}
