package domain

import (
	"fmt"
	"strings"
)

// InitialCognitiveConfidence is the confidence a fresh problem-solving
// session starts at.
const InitialCognitiveConfidence = 0.3

// CognitiveState tracks the running counters the strategy gate branches
// on. One instance per problem-solving session, mutated only by the owning
// loop through the methods below.
type CognitiveState struct {
	Confidence     float64  `json:"confidence"`
	Uncertainties  []string `json:"uncertainties,omitempty"`
	IterationCount int      `json:"iteration_count"`
	StallCount     int      `json:"stall_count"`

	GoalStatement string `json:"goal_statement,omitempty"`

	ObservationCount         int     `json:"observation_count"`
	ObservationConfidenceSum float64 `json:"observation_confidence_sum"`
}

// NewCognitiveState returns a state at the initial confidence for the
// given goal.
func NewCognitiveState(goal string) *CognitiveState {
	return &CognitiveState{
		Confidence:    InitialCognitiveConfidence,
		GoalStatement: goal,
	}
}

// UpdateConfidence sets the overall confidence, clamped to [0,1].
func (s *CognitiveState) UpdateConfidence(c float64) {
	s.Confidence = ClampConfidence(c)
}

// AddUncertainty appends an uncertainty if not already tracked, preserving
// insertion order.
func (s *CognitiveState) AddUncertainty(u string) {
	for _, existing := range s.Uncertainties {
		if existing == u {
			return
		}
	}
	s.Uncertainties = append(s.Uncertainties, u)
}

// RemoveUncertainty drops a resolved uncertainty.
func (s *CognitiveState) RemoveUncertainty(u string) {
	for i, existing := range s.Uncertainties {
		if existing == u {
			s.Uncertainties = append(s.Uncertainties[:i], s.Uncertainties[i+1:]...)
			return
		}
	}
}

func (s *CognitiveState) IncrementIteration() {
	s.IterationCount++
}

// MarkProgress resets the stall counter.
func (s *CognitiveState) MarkProgress() {
	s.StallCount = 0
}

// MarkStall records one more iteration without progress.
func (s *CognitiveState) MarkStall() {
	s.StallCount++
}

// HasStalled reports whether the stall counter reached the threshold.
func (s *CognitiveState) HasStalled(threshold int) bool {
	return s.StallCount >= threshold
}

// RecordObservation folds one observation's confidence into the running
// average.
func (s *CognitiveState) RecordObservation(confidence float64) {
	s.ObservationCount++
	s.ObservationConfidenceSum += confidence
}

// AverageObservationConfidence returns the mean confidence of recorded
// observations, zero when none were recorded.
func (s *CognitiveState) AverageObservationConfidence() float64 {
	if s.ObservationCount == 0 {
		return 0
	}
	return s.ObservationConfidenceSum / float64(s.ObservationCount)
}

// ContextLines renders a compact cognitive digest for prompt injection.
// Kept deliberately short; empty when nothing is noteworthy.
func (s *CognitiveState) ContextLines() string {
	var lines []string

	if s.Confidence < 0.5 {
		lines = append(lines, fmt.Sprintf("current confidence is low (%.0f%%)", s.Confidence*100))
	}

	if len(s.Uncertainties) > 0 {
		shown := s.Uncertainties
		if len(shown) > 2 {
			shown = shown[:2]
		}
		lines = append(lines, "uncertain areas: "+strings.Join(shown, ", "))
	}

	if s.StallCount >= 2 {
		lines = append(lines, "progress has stalled; consider switching strategy")
	}

	if s.ObservationCount == 0 && s.IterationCount > 0 {
		lines = append(lines, "note: no observations gathered yet")
	} else if s.ObservationCount > 0 {
		if avg := s.AverageObservationConfidence(); avg < 0.6 {
			lines = append(lines, fmt.Sprintf("observation confidence is low (%.0f%%)", avg*100))
		}
	}

	return strings.Join(lines, "\n")
}
