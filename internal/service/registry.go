package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/veracity-ai/veracity/internal/domain"
)

// Degradation ladder constants.
const (
	FullAnswerConfidence       = 0.8
	PartialAnswerConfidence    = 0.5
	DefaultRequiredEvidence    = 1
	DefaultContextObservations = 5
)

// Registry is the session-scoped provenance ledger: the sole owner of all
// observations and claims for one problem-solving session. It is not safe
// for concurrent use; a hosting server must give each session its own
// registry and serialize access (see SessionService).
type Registry struct {
	observations map[string]domain.Observation
	claims       map[string]domain.Claim
	now          func() time.Time
}

// NewRegistry returns an empty ledger using wall-clock time.
func NewRegistry() *Registry {
	return &Registry{
		observations: make(map[string]domain.Observation),
		claims:       make(map[string]domain.Claim),
		now:          time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// AddObservation appends an observation to the ledger unconditionally (no
// dedup; the ledger is an audit record, not a set) and returns its ID.
func (r *Registry) AddObservation(o domain.Observation) string {
	r.observations[o.ID] = o
	return o.ID
}

// RecordOutcome resolves a tool-execution outcome at the registry
// boundary. A provenance-carrying result contributes its own observation;
// plain text becomes a fresh tool-return observation attributed to the
// named tool.
func (r *Registry) RecordOutcome(toolName string, outcome domain.ExecutionOutcome) string {
	if outcome.Result != nil {
		return r.AddObservation(outcome.Result.Observation)
	}

	text := ""
	if outcome.Plain != nil {
		text = *outcome.Plain
	}
	obs := domain.NewObservation(text, domain.SourceToolReturn, toolName, domain.ObservationParams{
		Timestamp: r.now(),
	})
	return r.AddObservation(obs)
}

// AddClaim recomputes the claim's confidence against the current ledger
// before storing it, then returns its ID.
func (r *Registry) AddClaim(c domain.Claim) string {
	c.UpdateConfidence(r.observations, r.now())
	r.claims[c.ID] = c
	return c.ID
}

// GetObservation looks up an observation by ID.
func (r *Registry) GetObservation(id string) (domain.Observation, bool) {
	o, ok := r.observations[id]
	return o, ok
}

// GetClaim looks up a claim by ID with its confidence refreshed.
func (r *Registry) GetClaim(id string) (domain.Claim, bool) {
	c, ok := r.claims[id]
	if !ok {
		return domain.Claim{}, false
	}
	c.UpdateConfidence(r.observations, r.now())
	return c, true
}

// Observations exposes the ledger map for confidence computation. Callers
// must treat it as read-only.
func (r *Registry) Observations() map[string]domain.Observation {
	return r.observations
}

// ValidObservations returns observations that are unexpired and at or
// above the confidence floor. The current instant is snapshotted once so
// every observation is judged against the same moment.
func (r *Registry) ValidObservations(minConfidence float64) []domain.Observation {
	return r.validObservationsAt(minConfidence, r.now())
}

func (r *Registry) validObservationsAt(minConfidence float64, now time.Time) []domain.Observation {
	var valid []domain.Observation
	for _, o := range r.observations {
		if !o.IsExpired(now) && o.Confidence >= minConfidence {
			valid = append(valid, o)
		}
	}
	return valid
}

// ValidClaims returns claims at or above the confidence floor, refreshed
// against the current ledger first. An empty claimType matches all types.
func (r *Registry) ValidClaims(minConfidence float64, claimType domain.ClaimType) []domain.Claim {
	now := r.now()
	var valid []domain.Claim
	for id, c := range r.claims {
		c.UpdateConfidence(r.observations, now)
		r.claims[id] = c

		if c.Confidence < minConfidence {
			continue
		}
		if claimType != "" && c.Type != claimType {
			continue
		}
		valid = append(valid, c)
	}
	return valid
}

// InvalidateExpired returns the IDs of currently expired observations.
// This is a query, not a delete: expired observations stay on the ledger
// for audit and are excluded only by validity filters.
func (r *Registry) InvalidateExpired() []string {
	now := r.now()
	var expired []string
	for id, o := range r.observations {
		if o.IsExpired(now) {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired
}

func (r *Registry) ObservationCount() int { return len(r.observations) }

func (r *Registry) ClaimCount() int { return len(r.claims) }

// ObservationsBySource returns every observation attributed to a source.
func (r *Registry) ObservationsBySource(sourceID string) []domain.Observation {
	var out []domain.Observation
	for _, o := range r.observations {
		if o.SourceID == sourceID {
			out = append(out, o)
		}
	}
	return out
}

// ObservationsByType returns every observation of a source type.
func (r *Registry) ObservationsByType(t domain.SourceType) []domain.Observation {
	var out []domain.Observation
	for _, o := range r.observations {
		if o.SourceType == t {
			out = append(out, o)
		}
	}
	return out
}

// DetermineDegradationLevel decides how much an answer built on this
// ledger must be degraded:
//
//	no valid observations                      -> refuse
//	avg >= 0.8 and enough observations         -> full answer
//	avg >= minConfidence                       -> partial with uncertainty
//	anything valid at all                      -> request more info
func (r *Registry) DetermineDegradationLevel(requiredObservations int, minConfidence float64) domain.DegradationLevel {
	valid := r.ValidObservations(0)
	if len(valid) == 0 {
		return domain.DegradationRefuse
	}

	var sum float64
	for _, o := range valid {
		sum += o.Confidence
	}
	avg := sum / float64(len(valid))

	switch {
	case avg >= FullAnswerConfidence && len(valid) >= requiredObservations:
		return domain.DegradationFullAnswer
	case avg >= minConfidence:
		return domain.DegradationPartial
	default:
		return domain.DegradationRequestInfo
	}
}

// ToContext renders the maxObservations most recent valid observations as
// a bounded digest for prompt building, with a trailing expired count.
func (r *Registry) ToContext(maxObservations int) string {
	now := r.now()
	valid := r.validObservationsAt(0, now)

	if len(valid) == 0 {
		return "[no valid observations]"
	}

	sort.Slice(valid, func(i, j int) bool {
		return valid[i].Timestamp.After(valid[j].Timestamp)
	})
	if len(valid) > maxObservations {
		valid = valid[:maxObservations]
	}

	lines := []string{"[current observations]"}
	for _, o := range valid {
		lines = append(lines, o.ContextLine(now))
	}

	if expired := len(r.InvalidateExpired()); expired > 0 {
		lines = append(lines, fmt.Sprintf("\n(expired observations: %d)", expired))
	}

	return strings.Join(lines, "\n")
}

// Clear empties the ledger. Used at session end; the audit archive, if
// configured, snapshots the ledger first.
func (r *Registry) Clear() {
	r.observations = make(map[string]domain.Observation)
	r.claims = make(map[string]domain.Claim)
}

// Snapshot is the serializable form of a ledger, used for the optional
// audit archive. Round-trips losslessly.
type Snapshot struct {
	Observations map[string]domain.Observation `json:"observations"`
	Claims       map[string]domain.Claim       `json:"claims"`
}

// Export copies the ledger into a snapshot.
func (r *Registry) Export() Snapshot {
	snap := Snapshot{
		Observations: make(map[string]domain.Observation, len(r.observations)),
		Claims:       make(map[string]domain.Claim, len(r.claims)),
	}
	for id, o := range r.observations {
		snap.Observations[id] = o
	}
	for id, c := range r.claims {
		snap.Claims[id] = c
	}
	return snap
}

// RegistryFromSnapshot rebuilds a ledger from an exported snapshot.
func RegistryFromSnapshot(snap Snapshot) *Registry {
	r := NewRegistry()
	for id, o := range snap.Observations {
		r.observations[id] = o
	}
	for id, c := range snap.Claims {
		r.claims[id] = c
	}
	return r
}
