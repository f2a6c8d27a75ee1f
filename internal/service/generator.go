package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/veracity-ai/veracity/internal/domain"
	"go.uber.org/zap"
)

// Answer grounding constants.
const (
	// HighConfidenceClaim and MediumConfidenceClaim bucket claims for the
	// confidence breakdown.
	HighConfidenceClaim   = 0.8
	MediumConfidenceClaim = 0.5

	// NearExpiryWindow triggers a limitation note when a valid observation
	// has less than this much TTL remaining.
	NearExpiryWindow = 30 * time.Minute

	// FewObservationsThreshold is the valid-observation count below which a
	// partial answer suggests gathering more data.
	FewObservationsThreshold = 3

	// claimExcerptLimit bounds claim statements in the breakdown buckets.
	claimExcerptLimit = 100
)

// Fixed degradation texts. The refusal text replaces the raw answer
// entirely: an unsupported answer never reaches the user verbatim.
const (
	partialDisclaimer = "\n\nNote: parts of this answer rest on limited observed evidence and may be uncertain."

	limitedInfoPreamble  = "Based on the available observations, only the following limited answer is possible:\n\n"
	limitedInfoPostamble = "\n\nMore information is needed for a complete answer."

	refusalText = "I don't have enough observed evidence to answer this question.\n\n" +
		"Rather than risk giving inaccurate information, I am not going to guess."
)

// GroundedAnswer is a degradation-annotated answer with its full
// provenance attached.
type GroundedAnswer struct {
	Content               string                  `json:"content"`
	DegradationLevel      domain.DegradationLevel `json:"degradation_level"`
	ObservationsUsed      []string                `json:"observations_used,omitempty"`
	Claims                []domain.Claim          `json:"claims,omitempty"`
	HighConfidenceParts   []string                `json:"high_confidence_parts,omitempty"`
	MediumConfidenceParts []string                `json:"medium_confidence_parts,omitempty"`
	LowConfidenceParts    []string                `json:"low_confidence_parts,omitempty"`
	Limitations           []string                `json:"limitations,omitempty"`
	SuggestedActions      []string                `json:"suggested_actions,omitempty"`
}

// FormattedOutput renders the answer for display: level header, content,
// confidence breakdown (omitted for full answers), limitations, then
// suggestions. Section order is part of the contract.
func (a GroundedAnswer) FormattedOutput() string {
	var b strings.Builder

	switch a.DegradationLevel {
	case domain.DegradationFullAnswer:
		b.WriteString("[complete answer]\n")
	case domain.DegradationPartial:
		b.WriteString("[partial answer]\nsome of this information is uncertain\n")
	case domain.DegradationRequestInfo:
		b.WriteString("[insufficient information]\nmore information is needed for a complete answer\n")
	default:
		b.WriteString("[unable to answer]\nnot enough observed evidence\n")
	}

	b.WriteString(a.Content)

	if a.DegradationLevel != domain.DegradationFullAnswer {
		b.WriteString("\n\n[confidence breakdown]")
		writeBucket(&b, "high confidence:", a.HighConfidenceParts)
		writeBucket(&b, "medium confidence:", a.MediumConfidenceParts)
		writeBucket(&b, "low confidence:", a.LowConfidenceParts)
	}

	if len(a.Limitations) > 0 {
		b.WriteString("\n\n[limitations]")
		for _, lim := range a.Limitations {
			b.WriteString("\n- " + lim)
		}
	}

	if len(a.SuggestedActions) > 0 {
		b.WriteString("\n\n[suggestions]")
		for _, action := range a.SuggestedActions {
			b.WriteString("\n- " + action)
		}
	}

	return b.String()
}

func writeBucket(b *strings.Builder, label string, parts []string) {
	if len(parts) == 0 {
		return
	}
	b.WriteString("\n" + label)
	for _, p := range parts {
		b.WriteString("\n  - " + p)
	}
}

// GroundedGenerator turns a raw answer plus registry state into a
// degradation-annotated answer. The degradation transform is the system's
// core safety contract.
type GroundedGenerator struct {
	logger *zap.Logger

	ConfidenceThresholdFull    float64
	ConfidenceThresholdPartial float64
	MinObservationsForAnswer   int
}

func NewGroundedGenerator(logger *zap.Logger) *GroundedGenerator {
	return &GroundedGenerator{
		logger:                     logger,
		ConfidenceThresholdFull:    FullAnswerConfidence,
		ConfidenceThresholdPartial: PartialAnswerConfidence,
		MinObservationsForAnswer:   DefaultRequiredEvidence,
	}
}

// DetermineDegradation delegates to the registry's ladder using the
// generator's thresholds.
func (g *GroundedGenerator) DetermineDegradation(registry *Registry) domain.DegradationLevel {
	return registry.DetermineDegradationLevel(g.MinObservationsForAnswer, g.ConfidenceThresholdPartial)
}

// Generate builds a grounded answer from rawAnswer and the current ledger.
// Claim confidences are recomputed first; the content transform depends
// only on the degradation level.
func (g *GroundedGenerator) Generate(rawAnswer string, registry *Registry, claims []domain.Claim) GroundedAnswer {
	level := g.DetermineDegradation(registry)
	now := time.Now()

	valid := registry.ValidObservations(0)
	used := make([]string, 0, len(valid))
	for _, o := range valid {
		used = append(used, o.ID)
	}

	var high, medium, low []string
	for i := range claims {
		claims[i].UpdateConfidence(registry.Observations(), now)
		excerpt := claims[i].Statement
		if len(excerpt) > claimExcerptLimit {
			excerpt = excerpt[:claimExcerptLimit]
		}
		switch {
		case claims[i].Confidence >= HighConfidenceClaim:
			high = append(high, excerpt)
		case claims[i].Confidence >= MediumConfidenceClaim:
			medium = append(medium, excerpt)
		default:
			low = append(low, excerpt)
		}
	}

	answer := GroundedAnswer{
		Content:               g.transformContent(rawAnswer, level),
		DegradationLevel:      level,
		ObservationsUsed:      used,
		Claims:                claims,
		HighConfidenceParts:   high,
		MediumConfidenceParts: medium,
		LowConfidenceParts:    low,
		Limitations:           g.limitations(registry, valid, now),
		SuggestedActions:      g.suggestions(level, len(valid)),
	}

	g.logger.Debug("generated grounded answer",
		zap.String("degradation_level", string(level)),
		zap.Int("observations_used", len(used)),
		zap.Int("claims", len(claims)))

	return answer
}

func (g *GroundedGenerator) transformContent(rawAnswer string, level domain.DegradationLevel) string {
	switch level {
	case domain.DegradationFullAnswer:
		return rawAnswer
	case domain.DegradationPartial:
		return rawAnswer + partialDisclaimer
	case domain.DegradationRequestInfo:
		return limitedInfoPreamble + rawAnswer + limitedInfoPostamble
	default:
		return refusalText
	}
}

func (g *GroundedGenerator) limitations(registry *Registry, valid []domain.Observation, now time.Time) []string {
	var limitations []string

	for _, o := range valid {
		remaining, ok := o.RemainingTTL(now)
		if ok && time.Duration(remaining)*time.Second < NearExpiryWindow {
			limitations = append(limitations,
				fmt.Sprintf("some evidence (from %s) is about to expire; consider refreshing it", o.SourceID))
			break
		}
	}

	if expired := registry.InvalidateExpired(); len(expired) > 0 {
		limitations = append(limitations, fmt.Sprintf("%d observations have expired", len(expired)))
	}

	sources := make(map[string]struct{})
	for _, o := range valid {
		sources[o.SourceID] = struct{}{}
	}
	if len(sources) == 1 {
		limitations = append(limitations, "all evidence comes from a single source; cross-validation is advised")
	}

	return limitations
}

func (g *GroundedGenerator) suggestions(level domain.DegradationLevel, validCount int) []string {
	switch level {
	case domain.DegradationRequestInfo:
		return []string{
			"search for more information on the topic",
			"provide more specific background details",
		}
	case domain.DegradationRefuse:
		return []string{
			"provide more specifics about the question",
			"break the question into smaller, searchable parts",
		}
	case domain.DegradationPartial:
		if validCount < FewObservationsThreshold {
			return []string{"gathering more relevant evidence would raise confidence in this answer"}
		}
	}
	return nil
}

// ProvenanceSummary renders a display digest of the ledger's evidence.
func (g *GroundedGenerator) ProvenanceSummary(registry *Registry) string {
	valid := registry.ValidObservations(0)
	expired := registry.InvalidateExpired()

	lines := []string{"[evidence summary]"}

	if len(valid) > 0 {
		lines = append(lines, fmt.Sprintf("valid observations: %d", len(valid)))
		shown := valid
		if len(shown) > DefaultContextObservations {
			shown = shown[:DefaultContextObservations]
		}
		for _, o := range shown {
			lines = append(lines, fmt.Sprintf("  - [%s] %s (confidence: %.0f%%)", o.ID, o.SourceID, o.Confidence*100))
		}
	} else {
		lines = append(lines, "no valid observations")
	}

	if len(expired) > 0 {
		lines = append(lines, fmt.Sprintf("expired: %d", len(expired)))
	}

	return strings.Join(lines, "\n")
}
