package service

import (
	"sort"

	"github.com/veracity-ai/veracity/internal/domain"
)

// Confidence required before a tool of each risk tier may run.
const (
	SafeRiskThreshold   = 0.0
	LowRiskThreshold    = 0.3
	MediumRiskThreshold = 0.5
	HighRiskThreshold   = 0.8
)

// RatedTool pairs a tool name with its risk tier for ranking.
type RatedTool struct {
	Name string          `json:"name"`
	Risk domain.ToolRisk `json:"risk"`
}

// MinimalCommitmentPolicy prefers reversible actions while confidence is
// low: a tool may only run once confidence clears its risk tier's
// threshold.
type MinimalCommitmentPolicy struct {
	thresholds map[domain.ToolRisk]float64
}

func NewMinimalCommitmentPolicy() *MinimalCommitmentPolicy {
	return &MinimalCommitmentPolicy{
		thresholds: map[domain.ToolRisk]float64{
			domain.RiskSafe:   SafeRiskThreshold,
			domain.RiskLow:    LowRiskThreshold,
			domain.RiskMedium: MediumRiskThreshold,
			domain.RiskHigh:   HighRiskThreshold,
		},
	}
}

// ShouldProceed reports whether a tool of the given risk may run at the
// current confidence. Unknown risk tiers never proceed.
func (p *MinimalCommitmentPolicy) ShouldProceed(risk domain.ToolRisk, confidence float64) bool {
	threshold, ok := p.thresholds[risk]
	if !ok {
		return false
	}
	return confidence >= threshold
}

// RankTools filters out tools whose risk exceeds the current confidence,
// then orders the rest safest first. The sort is stable: input order is
// preserved within a tier.
func (p *MinimalCommitmentPolicy) RankTools(tools []RatedTool, confidence float64) []string {
	var allowed []RatedTool
	for _, t := range tools {
		if p.ShouldProceed(t.Risk, confidence) {
			allowed = append(allowed, t)
		}
	}

	sort.SliceStable(allowed, func(i, j int) bool {
		return allowed[i].Risk.Tier() < allowed[j].Risk.Tier()
	})

	names := make([]string, 0, len(allowed))
	for _, t := range allowed {
		names = append(names, t.Name)
	}
	return names
}
