package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies the authority an observation was ingested from.
type SourceType string

const (
	SourceToolReturn  SourceType = "tool_return"
	SourceUserInput   SourceType = "user_input"
	SourceDefinedRule SourceType = "defined_rule"
)

func ValidSourceType(s string) bool {
	switch SourceType(s) {
	case SourceToolReturn, SourceUserInput, SourceDefinedRule:
		return true
	}
	return false
}

// DefaultConfidence returns the confidence assigned when the producer did
// not supply one.
func (s SourceType) DefaultConfidence() float64 {
	switch s {
	case SourceUserInput:
		return 0.8
	default:
		return 1.0
	}
}

const (
	// UserInputConfidence is forced onto user-input observations created
	// with an unset confidence.
	UserInputConfidence = 0.8

	contextContentLimit = 200
)

// NewEvidenceID returns the short identifier used for observations and
// claims. Eight characters, because extracted reference tokens are matched
// as exactly eight word characters inside brackets.
func NewEvidenceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Observation is an atomic, timestamped, confidence-scored fact ingested
// from a trusted source. Observations are append-only: once added to a
// registry they are never mutated or deleted, only excluded by validity
// filters once expired.
type Observation struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	SourceType SourceType     `json:"source_type"`
	SourceID   string         `json:"source_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Confidence float64        `json:"confidence"`
	Scope      string         `json:"scope,omitempty"`
	TTLSeconds *int64         `json:"ttl_seconds,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ObservationParams carries the optional fields for NewObservation.
type ObservationParams struct {
	Confidence *float64
	Scope      string
	TTLSeconds *int64
	Metadata   map[string]any
	Timestamp  time.Time
}

// NewObservation builds an observation with the source-type default
// confidence when none is supplied, clamped to [0,1] either way.
func NewObservation(content string, sourceType SourceType, sourceID string, params ObservationParams) Observation {
	conf := sourceType.DefaultConfidence()
	if params.Confidence != nil {
		conf = ClampConfidence(*params.Confidence)
	}

	ts := params.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return Observation{
		ID:         NewEvidenceID(),
		Content:    content,
		SourceType: sourceType,
		SourceID:   sourceID,
		Timestamp:  ts,
		Confidence: conf,
		Scope:      params.Scope,
		TTLSeconds: params.TTLSeconds,
		Metadata:   params.Metadata,
	}
}

// ClampConfidence restricts a confidence value to [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// IsExpired reports whether the observation has outlived its TTL at the
// given instant. A nil TTL never expires. Monotonic in time: once true for
// some instant, it is true for every later instant.
func (o Observation) IsExpired(now time.Time) bool {
	if o.TTLSeconds == nil {
		return false
	}
	return now.Sub(o.Timestamp) > time.Duration(*o.TTLSeconds)*time.Second
}

// RemainingTTL returns the seconds left before expiry, floored at zero.
// The second return is false when the observation never expires.
func (o Observation) RemainingTTL(now time.Time) (int64, bool) {
	if o.TTLSeconds == nil {
		return 0, false
	}
	remaining := *o.TTLSeconds - int64(now.Sub(o.Timestamp).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

func (s SourceType) label() string {
	switch s {
	case SourceToolReturn:
		return "tool return"
	case SourceUserInput:
		return "user input"
	case SourceDefinedRule:
		return "system rule"
	default:
		return "unknown source"
	}
}

// ContextLine renders the observation as a bounded digest entry for prompt
// injection.
func (o Observation) ContextLine(now time.Time) string {
	content := o.Content
	if len(content) > contextContentLimit {
		content = content[:contextContentLimit] + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] source: %s (%s)\n", o.ID, o.SourceType.label(), o.SourceID)
	fmt.Fprintf(&b, "    content: %s\n", content)
	fmt.Fprintf(&b, "    confidence: %.0f%%", o.Confidence*100)

	if remaining, ok := o.RemainingTTL(now); ok {
		fmt.Fprintf(&b, "\n    expires in: %ds", remaining)
	}

	return b.String()
}
