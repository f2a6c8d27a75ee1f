package domain

import "time"

// ToolRisk grades a tool by the reversibility of its side effects.
type ToolRisk string

const (
	RiskSafe   ToolRisk = "safe"   // read-only, no side effects
	RiskLow    ToolRisk = "low"    // reversible side effects
	RiskMedium ToolRisk = "medium" // recoverable side effects
	RiskHigh   ToolRisk = "high"   // irreversible side effects
)

// Tier returns the ordering rank of the risk, safest first.
func (r ToolRisk) Tier() int {
	switch r {
	case RiskSafe:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 4
	}
}

func ValidToolRisk(r string) bool {
	switch ToolRisk(r) {
	case RiskSafe, RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

const (
	// toolResultContentLimit bounds how much tool output is stored on the
	// observation itself; the full content travels on the result.
	toolResultContentLimit = 500

	// FailedToolConfidence is the confidence assigned to observations from
	// failed tool executions.
	FailedToolConfidence = 0.0

	// ErrorScope marks observations recording a failed execution.
	ErrorScope = "error"
)

// ToolResult is a tool return wrapped with its provenance observation.
type ToolResult struct {
	Content      string      `json:"content"`
	Observation  Observation `json:"observation"`
	Success      bool        `json:"success"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// SuccessResult builds a successful tool result and its observation.
func SuccessResult(content, toolName string, confidence float64, ttlSeconds *int64, scope string, metadata map[string]any) ToolResult {
	stored := content
	if len(stored) > toolResultContentLimit {
		stored = stored[:toolResultContentLimit]
	}

	obs := NewObservation(stored, SourceToolReturn, toolName, ObservationParams{
		Confidence: &confidence,
		Scope:      scope,
		TTLSeconds: ttlSeconds,
		Metadata:   metadata,
		Timestamp:  time.Now(),
	})
	return ToolResult{Content: content, Observation: obs, Success: true}
}

// ErrorResult builds a failed tool result carrying a zero-confidence
// observation so the failure stays on the audit ledger.
func ErrorResult(errMessage, toolName string) ToolResult {
	conf := FailedToolConfidence
	obs := NewObservation("tool execution failed: "+errMessage, SourceToolReturn, toolName, ObservationParams{
		Confidence: &conf,
		Scope:      ErrorScope,
		Metadata:   map[string]any{"error": errMessage},
	})
	return ToolResult{
		Content:      errMessage,
		Observation:  obs,
		Success:      false,
		ErrorMessage: errMessage,
	}
}

// ExecutionOutcome is the tagged variant a tool executor hands to the
// registry boundary: either plain text with no provenance, or a
// ToolResult carrying its own observation. Exactly one side is set.
type ExecutionOutcome struct {
	Plain  *string
	Result *ToolResult
}

// PlainOutcome wraps bare text output.
func PlainOutcome(text string) ExecutionOutcome {
	return ExecutionOutcome{Plain: &text}
}

// ResultOutcome wraps a provenance-carrying result.
func ResultOutcome(r ToolResult) ExecutionOutcome {
	return ExecutionOutcome{Result: &r}
}
