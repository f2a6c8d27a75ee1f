package domain

// DegradationLevel is the severity tier controlling how much an answer must
// be hedged or refused. Levels are ordered: a higher severity always wins
// when evidence weakens.
type DegradationLevel string

const (
	DegradationFullAnswer  DegradationLevel = "full_answer"
	DegradationPartial     DegradationLevel = "partial_with_uncertainty"
	DegradationRequestInfo DegradationLevel = "request_more_info"
	DegradationRefuse      DegradationLevel = "refuse"
)

// Severity returns the ordering rank of the level; higher means more
// degraded.
func (d DegradationLevel) Severity() int {
	switch d {
	case DegradationFullAnswer:
		return 0
	case DegradationPartial:
		return 1
	case DegradationRequestInfo:
		return 2
	case DegradationRefuse:
		return 3
	default:
		return 3
	}
}

func ValidDegradationLevel(d string) bool {
	switch DegradationLevel(d) {
	case DegradationFullAnswer, DegradationPartial, DegradationRequestInfo, DegradationRefuse:
		return true
	}
	return false
}
