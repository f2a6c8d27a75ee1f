package service

import (
	"regexp"
	"strings"

	"github.com/veracity-ai/veracity/internal/domain"
)

// Claim extraction constants.
const (
	// MinClaimLength is the shortest sentence treated as a potential claim.
	MinClaimLength = 15

	// InferenceConfidenceDelta is applied when a claim is derived by
	// reasoning rather than read directly from evidence.
	InferenceConfidenceDelta = -0.1

	// HypothesisConfidenceDelta is applied to speculative claims.
	HypothesisConfidenceDelta = -0.3
)

// Confidence hints attached to extracted claims.
const (
	HintHigh   = "high"
	HintMedium = "medium"
	HintLow    = "low"
)

var (
	// RE2 has no lookbehind, so instead of splitting on terminal
	// punctuation we match sentence-like runs, keeping the terminator
	// attached (question detection needs it).
	sentenceRe = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
	obsRefRe   = regexp.MustCompile(`\[(\w{8})\]`)

	factRe = regexp.MustCompile(strings.Join([]string{
		`(?i)according to`,
		`(?i)search results show`,
		`(?i)results show`,
		`(?i)data indicates?`,
	}, "|"))

	inferenceRe = regexp.MustCompile(strings.Join([]string{
		`(?i)\btherefore\b`,
		`(?i)i infer`,
		`(?i)it follows that`,
		`(?i)we can conclude`,
		`(?i)this suggests`,
	}, "|"))

	hypothesisRe = regexp.MustCompile(strings.Join([]string{
		`(?i)\bif\b.*\bthen\b`,
		`(?i)\bassuming\b`,
		`(?i)\bpossibly\b`,
		`(?i)\bperhaps\b`,
		`(?i)\bspeculat`,
		`(?i)\bmight\b`,
	}, "|"))

	// Structural markers that disqualify a sentence from being a claim.
	structuralMarkers = []string{"---", "===", "##", "**Output", "output format"}
)

// ExtractedClaim is a candidate claim parsed out of generated text, before
// it is bound to the ledger.
type ExtractedClaim struct {
	Statement       string           `json:"statement"`
	Type            domain.ClaimType `json:"claim_type"`
	ObservationRefs []string         `json:"observation_refs,omitempty"`
	ConfidenceHint  string           `json:"confidence_hint"`
}

// ClaimExtractor parses free-form generated text into candidate claims
// bound to observation references. Pattern matching only; anything it
// cannot read defaults to the least trusted classification rather than
// failing.
type ClaimExtractor struct{}

func NewClaimExtractor() *ClaimExtractor {
	return &ClaimExtractor{}
}

// ExtractClaims splits text into sentence-like units and classifies each
// one that looks like an assertion.
func (e *ClaimExtractor) ExtractClaims(text string) []ExtractedClaim {
	var claims []ExtractedClaim
	for _, sentence := range splitSentences(text) {
		if c, ok := e.analyzeSentence(sentence); ok {
			claims = append(claims, c)
		}
	}
	return claims
}

func splitSentences(text string) []string {
	var sentences []string
	for _, p := range sentenceRe.FindAllString(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

func (e *ClaimExtractor) analyzeSentence(sentence string) (ExtractedClaim, bool) {
	if !isMeaningfulClaim(sentence) {
		return ExtractedClaim{}, false
	}

	refs := extractRefs(sentence)
	claimType := classify(sentence, refs)

	return ExtractedClaim{
		Statement:       sentence,
		Type:            claimType,
		ObservationRefs: refs,
		ConfidenceHint:  confidenceHint(claimType, refs),
	}, true
}

func isMeaningfulClaim(sentence string) bool {
	if strings.HasSuffix(sentence, "?") {
		return false
	}
	if len(sentence) < MinClaimLength {
		return false
	}
	for _, marker := range structuralMarkers {
		if strings.Contains(sentence, marker) {
			return false
		}
	}
	return true
}

func extractRefs(sentence string) []string {
	var refs []string
	for _, m := range obsRefRe.FindAllStringSubmatch(sentence, -1) {
		refs = append(refs, m[1])
	}
	return refs
}

// classify grades a sentence by evidence strength, in priority order. The
// final default is hypothesis: an unsupported, unmarked assertion must
// land in the least trusted class, never be promoted to fact.
func classify(sentence string, refs []string) domain.ClaimType {
	if len(refs) > 0 && factRe.MatchString(sentence) {
		return domain.ClaimFact
	}
	if inferenceRe.MatchString(sentence) {
		return domain.ClaimInference
	}
	if hypothesisRe.MatchString(sentence) {
		return domain.ClaimHypothesis
	}
	if len(refs) > 0 {
		return domain.ClaimFact
	}
	return domain.ClaimHypothesis
}

func confidenceHint(claimType domain.ClaimType, refs []string) string {
	switch {
	case claimType == domain.ClaimFact && len(refs) > 0:
		return HintHigh
	case claimType == domain.ClaimInference && len(refs) > 0:
		return HintMedium
	default:
		return HintLow
	}
}

// BuildClaim turns an extracted claim into a full claim bound to the given
// observations, recording its transform chain and computing confidence.
func (e *ClaimExtractor) BuildClaim(extracted ExtractedClaim, observations map[string]domain.Observation) domain.Claim {
	var chain []domain.TransformStep

	if len(extracted.ObservationRefs) > 0 {
		chain = append(chain, domain.TransformStep{
			Operation:   domain.OpExtract,
			Description: "extracted from observed evidence",
			InputIDs:    extracted.ObservationRefs,
		})
	}

	switch extracted.Type {
	case domain.ClaimInference:
		chain = append(chain, domain.TransformStep{
			Operation:       domain.OpInfer,
			Description:     "logical inference over observed evidence",
			InputIDs:        extracted.ObservationRefs,
			ConfidenceDelta: InferenceConfidenceDelta,
		})
	case domain.ClaimHypothesis:
		chain = append(chain, domain.TransformStep{
			Operation:       domain.OpInfer,
			Description:     "speculative hypothesis",
			InputIDs:        extracted.ObservationRefs,
			ConfidenceDelta: HypothesisConfidenceDelta,
		})
	}

	claim := domain.NewClaim(extracted.Statement, extracted.Type, extracted.ObservationRefs, chain)
	claim.UpdateConfidence(observations, claim.CreatedAt)
	return claim
}
