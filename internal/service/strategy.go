package service

import (
	"fmt"
	"strings"

	"github.com/veracity-ai/veracity/internal/domain"
)

// StrategyDecision is the control action chosen for the next iteration.
type StrategyDecision string

const (
	DecisionContinue        StrategyDecision = "continue"
	DecisionDeepen          StrategyDecision = "deepen"
	DecisionPivot           StrategyDecision = "pivot"
	DecisionAskUser         StrategyDecision = "ask_user"
	DecisionDegrade         StrategyDecision = "degrade"
	DecisionConclude        StrategyDecision = "conclude"
	DecisionRequestMoreInfo StrategyDecision = "request_more_info"
)

// StrategyPath is the result of one gate evaluation. Pure output value;
// nothing stores it.
type StrategyPath struct {
	Decision        StrategyDecision `json:"decision"`
	Reason          string           `json:"reason"`
	SuggestedAction string           `json:"suggested_action,omitempty"`
}

// Strategy gate constants.
const (
	DefaultConfidenceThreshold = 0.7
	DefaultStallThreshold      = 3
	DefaultUncertaintyLimit    = 5

	// DegradeConfidenceFloor: stalling below this confidence degrades
	// instead of pivoting.
	DegradeConfidenceFloor = 0.3

	// CrossValidationMinConfidence and CrossValidationMinCount drive the
	// weak-evidence rule: valid observations averaging below the
	// confidence floor, with fewer than the minimum count, ask for more
	// sources.
	CrossValidationMinConfidence = 0.5
	CrossValidationMinCount      = 3

	// GroundedObservationFloor is the confidence floor used when counting
	// observations that can ground a conclusion.
	GroundedObservationFloor = 0.5
)

// Uncertainty keyword markers.
var (
	goalClarityMarkers     = []string{"goal", "requirement"}
	dataSufficiencyMarkers = []string{"data", "information"}
)

// StrategyGate decides, each iteration, the next control action from the
// cognitive state and (optionally) the evidence ledger. A pure decision
// function: it holds configuration only, no state machine.
type StrategyGate struct {
	ConfidenceThreshold      float64
	StallThreshold           int
	UncertaintyLimit         int
	MinObservationsForAnswer int
}

func NewStrategyGate() *StrategyGate {
	return &StrategyGate{
		ConfidenceThreshold:      DefaultConfidenceThreshold,
		StallThreshold:           DefaultStallThreshold,
		UncertaintyLimit:         DefaultUncertaintyLimit,
		MinObservationsForAnswer: DefaultRequiredEvidence,
	}
}

// Evaluate walks the decision tree, first match wins:
//
//  1. confident and uncertainty-free: conclude, unless the ledger cannot
//     ground a conclusion, then request more info
//  2. ledger checks: stale-and-ungrounded or weak evidence request info
//  3. stalled: degrade at low confidence, otherwise pivot
//  4. goal-clarity uncertainty: ask the user
//  5. data-sufficiency uncertainty: deepen
//  6. too many uncertainties: degrade
//  7. otherwise: continue
//
// A nil registry skips the evidence-aware rules.
func (g *StrategyGate) Evaluate(state *domain.CognitiveState, registry *Registry) StrategyPath {
	// Rule 1: high confidence, no uncertainties.
	if state.Confidence >= g.ConfidenceThreshold && len(state.Uncertainties) == 0 {
		if registry != nil {
			grounded := len(registry.ValidObservations(GroundedObservationFloor))
			if grounded < g.MinObservationsForAnswer {
				return StrategyPath{
					Decision:        DecisionRequestMoreInfo,
					Reason:          fmt.Sprintf("confidence is high (%.0f%%) but conclusions are ungrounded: %d valid observations", state.Confidence*100, grounded),
					SuggestedAction: "gather observations before concluding",
				}
			}
		}
		return StrategyPath{
			Decision: DecisionConclude,
			Reason:   fmt.Sprintf("confidence reached %.0f%% with no open uncertainties", state.Confidence*100),
		}
	}

	// Rule 2: evidence health.
	if registry != nil {
		if path, ok := g.evaluateEvidence(registry); ok {
			return path
		}
	}

	// Rule 3: stalled.
	if state.HasStalled(g.StallThreshold) {
		if state.Confidence < DegradeConfidenceFloor {
			return StrategyPath{
				Decision:        DecisionDegrade,
				Reason:          fmt.Sprintf("stalled for %d iterations at low confidence", state.StallCount),
				SuggestedAction: "emit the current best answer with its uncertainty stated",
			}
		}
		return StrategyPath{
			Decision:        DecisionPivot,
			Reason:          fmt.Sprintf("stalled for %d iterations", state.StallCount),
			SuggestedAction: "switch method or approach",
		}
	}

	// Rule 4: goal clarity.
	if u, ok := firstMatching(state.Uncertainties, goalClarityMarkers); ok {
		return StrategyPath{
			Decision:        DecisionAskUser,
			Reason:          "the goal or requirements are not understood well enough",
			SuggestedAction: "ask the user about: " + u,
		}
	}

	// Rule 5: data sufficiency.
	if _, ok := firstMatching(state.Uncertainties, dataSufficiencyMarkers); ok {
		return StrategyPath{
			Decision:        DecisionDeepen,
			Reason:          "more data or information is needed",
			SuggestedAction: "keep exploring the current path in more depth",
		}
	}

	// Rule 6: uncertainty overload.
	if len(state.Uncertainties) >= g.UncertaintyLimit {
		return StrategyPath{
			Decision:        DecisionDegrade,
			Reason:          fmt.Sprintf("too many open uncertainties (%d)", len(state.Uncertainties)),
			SuggestedAction: "emit a partial answer and state its limits",
		}
	}

	// Rule 7: default.
	return StrategyPath{
		Decision: DecisionContinue,
		Reason:   "continuing the current strategy",
	}
}

func (g *StrategyGate) evaluateEvidence(registry *Registry) (StrategyPath, bool) {
	valid := registry.ValidObservations(0)
	expired := registry.InvalidateExpired()

	if len(expired) > 0 && len(valid) < g.MinObservationsForAnswer {
		return StrategyPath{
			Decision:        DecisionRequestMoreInfo,
			Reason:          fmt.Sprintf("%d observations have gone stale and too few remain valid", len(expired)),
			SuggestedAction: "refresh the expired evidence",
		}, true
	}

	if len(valid) > 0 && len(valid) < CrossValidationMinCount {
		var sum float64
		for _, o := range valid {
			sum += o.Confidence
		}
		if sum/float64(len(valid)) < CrossValidationMinConfidence {
			return StrategyPath{
				Decision:        DecisionRequestMoreInfo,
				Reason:          "the available evidence is weak and thin",
				SuggestedAction: "cross-validate with more sources",
			}, true
		}
	}

	return StrategyPath{}, false
}

func firstMatching(uncertainties, markers []string) (string, bool) {
	for _, u := range uncertainties {
		lower := strings.ToLower(u)
		for _, m := range markers {
			if strings.Contains(lower, m) {
				return u, true
			}
		}
	}
	return "", false
}
