package domain

import (
	"fmt"
	"strings"
	"time"
)

// ClaimType grades a statement by evidence strength.
type ClaimType string

const (
	ClaimFact       ClaimType = "fact"
	ClaimInference  ClaimType = "inference"
	ClaimHypothesis ClaimType = "hypothesis"
)

func ValidClaimType(t string) bool {
	switch ClaimType(t) {
	case ClaimFact, ClaimInference, ClaimHypothesis:
		return true
	}
	return false
}

// TransformOp names one kind of reasoning hop.
type TransformOp string

const (
	OpExtract   TransformOp = "extract"
	OpAggregate TransformOp = "aggregate"
	OpInfer     TransformOp = "infer"
	OpCombine   TransformOp = "combine"
)

// TransformStep records one reasoning hop from inputs to a derived
// statement, with its confidence adjustment.
type TransformStep struct {
	Operation       TransformOp `json:"operation"`
	Description     string      `json:"description"`
	InputIDs        []string    `json:"input_ids,omitempty"`
	ConfidenceDelta float64     `json:"confidence_delta"`
}

// Claim is a statement derived from one or more observations through a
// recorded chain of transforms. Confidence is derived state: it must be
// recomputed against current observations before being trusted, since
// source observations expire over time.
type Claim struct {
	ID                 string          `json:"id"`
	Statement          string          `json:"statement"`
	Type               ClaimType       `json:"claim_type"`
	SourceObservations []string        `json:"source_observations,omitempty"`
	TransformChain     []TransformStep `json:"transform_chain,omitempty"`
	Confidence         float64         `json:"confidence"`
	Scope              string          `json:"scope,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// NewClaim builds a claim with a fresh evidence ID. Confidence starts at
// zero until computed against a registry's observations.
func NewClaim(statement string, claimType ClaimType, sourceObservations []string, chain []TransformStep) Claim {
	return Claim{
		ID:                 NewEvidenceID(),
		Statement:          statement,
		Type:               claimType,
		SourceObservations: sourceObservations,
		TransformChain:     chain,
		CreatedAt:          time.Now(),
	}
}

// ComputeConfidence derives the claim's confidence from its source
// observations at the given instant: the minimum confidence of the sources
// that exist and are unexpired (weakest link), adjusted by the transform
// chain deltas, clamped to [0,1]. Missing or expired sources contribute
// nothing; no usable sources means zero.
func (c Claim) ComputeConfidence(observations map[string]Observation, now time.Time) float64 {
	if len(c.SourceObservations) == 0 {
		return 0
	}

	base := -1.0
	for _, obsID := range c.SourceObservations {
		obs, ok := observations[obsID]
		if !ok || obs.IsExpired(now) {
			continue
		}
		if base < 0 || obs.Confidence < base {
			base = obs.Confidence
		}
	}
	if base < 0 {
		return 0
	}

	for _, step := range c.TransformChain {
		base += step.ConfidenceDelta
	}

	return ClampConfidence(base)
}

// UpdateConfidence recomputes and stores the derived confidence.
func (c *Claim) UpdateConfidence(observations map[string]Observation, now time.Time) {
	c.Confidence = c.ComputeConfidence(observations, now)
}

// AuditTrail renders the human-readable derivation record for a claim.
func (c Claim) AuditTrail() string {
	var b strings.Builder
	fmt.Fprintf(&b, "claim: %s\n", c.Statement)
	fmt.Fprintf(&b, "type: %s\n", c.Type)
	fmt.Fprintf(&b, "confidence: %.0f%%\n", c.Confidence*100)

	b.WriteString("source observations:\n")
	for _, obsID := range c.SourceObservations {
		fmt.Fprintf(&b, "  - %s\n", obsID)
	}

	if len(c.TransformChain) > 0 {
		b.WriteString("derivation:\n")
		for i, step := range c.TransformChain {
			fmt.Fprintf(&b, "  %d. [%s] %s\n", i+1, step.Operation, step.Description)
			if len(step.InputIDs) > 0 {
				fmt.Fprintf(&b, "     inputs: %s\n", strings.Join(step.InputIDs, ", "))
			}
			fmt.Fprintf(&b, "     confidence delta: %+.2f\n", step.ConfidenceDelta)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
