package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/veracity-ai/veracity/internal/domain"
	"github.com/veracity-ai/veracity/internal/service"
)

type StrategyHandler struct {
	svc    *service.SessionService
	gate   *service.StrategyGate
	policy *service.MinimalCommitmentPolicy
}

func NewStrategyHandler(svc *service.SessionService, gate *service.StrategyGate, policy *service.MinimalCommitmentPolicy) *StrategyHandler {
	return &StrategyHandler{svc: svc, gate: gate, policy: policy}
}

// Evaluate runs the strategy gate against the session's cognitive state
// and evidence ledger and returns the chosen path.
func (h *StrategyHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.svc)
	if !ok {
		return
	}

	var path service.StrategyPath
	sess.With(func(reg *service.Registry, state *domain.CognitiveState) {
		path = h.gate.Evaluate(state, reg)
	})

	writeJSON(w, http.StatusOK, path)
}

type rankToolsRequest struct {
	Tools []service.RatedTool `json:"tools"`

	// Confidence overrides the session's cognitive confidence when set.
	Confidence *float64 `json:"confidence,omitempty"`
}

type rankToolsResponse struct {
	Approved   []string `json:"approved"`
	Confidence float64  `json:"confidence"`
}

// RankTools filters the candidate tools to those whose risk tier the
// current confidence clears, safest first.
func (h *StrategyHandler) RankTools(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.svc)
	if !ok {
		return
	}

	var req rankToolsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, t := range req.Tools {
		if !domain.ValidToolRisk(string(t.Risk)) {
			writeError(w, http.StatusBadRequest, "invalid tool risk: "+string(t.Risk))
			return
		}
	}

	var resp rankToolsResponse
	sess.With(func(_ *service.Registry, state *domain.CognitiveState) {
		confidence := state.Confidence
		if req.Confidence != nil {
			confidence = *req.Confidence
		}
		resp = rankToolsResponse{
			Approved:   h.policy.RankTools(req.Tools, confidence),
			Confidence: confidence,
		}
	})

	writeJSON(w, http.StatusOK, resp)
}
