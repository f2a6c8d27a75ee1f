package service

import (
	"reflect"
	"testing"

	"github.com/veracity-ai/veracity/internal/domain"
)

func TestShouldProceed(t *testing.T) {
	p := NewMinimalCommitmentPolicy()

	tests := []struct {
		name       string
		risk       domain.ToolRisk
		confidence float64
		want       bool
	}{
		{"safe tools always run", domain.RiskSafe, 0.0, true},
		{"low risk below threshold", domain.RiskLow, 0.2, false},
		{"low risk at threshold", domain.RiskLow, 0.3, true},
		{"medium risk below threshold", domain.RiskMedium, 0.4, false},
		{"medium risk at threshold", domain.RiskMedium, 0.5, true},
		{"high risk below threshold", domain.RiskHigh, 0.7, false},
		{"high risk at threshold", domain.RiskHigh, 0.8, true},
		{"unknown risk never proceeds", domain.ToolRisk("extreme"), 1.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ShouldProceed(tt.risk, tt.confidence); got != tt.want {
				t.Errorf("ShouldProceed(%s, %v) = %v, want %v", tt.risk, tt.confidence, got, tt.want)
			}
		})
	}
}

func TestRankTools(t *testing.T) {
	p := NewMinimalCommitmentPolicy()

	candidates := []RatedTool{
		{Name: "rollback_deploy", Risk: domain.RiskHigh},
		{Name: "scale_replicas", Risk: domain.RiskMedium},
		{Name: "read_runbook", Risk: domain.RiskSafe},
		{Name: "restart_pod", Risk: domain.RiskLow},
	}

	t.Run("mid confidence excludes high risk, safest first", func(t *testing.T) {
		got := p.RankTools(candidates, 0.5)
		want := []string{"read_runbook", "restart_pod", "scale_replicas"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ranked = %v, want %v", got, want)
		}
	})

	t.Run("full confidence admits everything", func(t *testing.T) {
		got := p.RankTools(candidates, 1.0)
		want := []string{"read_runbook", "restart_pod", "scale_replicas", "rollback_deploy"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ranked = %v, want %v", got, want)
		}
	})

	t.Run("zero confidence admits only safe tools", func(t *testing.T) {
		got := p.RankTools(candidates, 0.0)
		want := []string{"read_runbook"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ranked = %v, want %v", got, want)
		}
	})

	t.Run("stable within a tier", func(t *testing.T) {
		sameTier := []RatedTool{
			{Name: "first", Risk: domain.RiskSafe},
			{Name: "second", Risk: domain.RiskSafe},
			{Name: "third", Risk: domain.RiskSafe},
		}
		got := p.RankTools(sameTier, 0.0)
		want := []string{"first", "second", "third"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ranked = %v, want input order %v", got, want)
		}
	})
}
