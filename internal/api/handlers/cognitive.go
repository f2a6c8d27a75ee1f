package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/veracity-ai/veracity/internal/domain"
	"github.com/veracity-ai/veracity/internal/service"
)

type CognitiveHandler struct {
	svc  *service.SessionService
	gate *service.StrategyGate
}

func NewCognitiveHandler(svc *service.SessionService, gate *service.StrategyGate) *CognitiveHandler {
	return &CognitiveHandler{svc: svc, gate: gate}
}

// Cognitive event types accepted by RecordEvent.
const (
	eventIteration         = "iteration"
	eventProgress          = "progress"
	eventStall             = "stall"
	eventConfidence        = "confidence"
	eventUncertaintyAdd    = "uncertainty_add"
	eventUncertaintyRemove = "uncertainty_remove"
)

type cognitiveEventRequest struct {
	Type string `json:"type"`

	// Value carries the new confidence for confidence events.
	Value *float64 `json:"value,omitempty"`

	// Text carries the uncertainty statement for uncertainty events.
	Text string `json:"text,omitempty"`
}

type cognitiveStateResponse struct {
	State   *domain.CognitiveState `json:"state"`
	Stalled bool                   `json:"stalled"`
	Context string                 `json:"context"`
}

// RecordEvent applies one cognitive state transition and returns the
// updated state.
func (h *CognitiveHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.svc)
	if !ok {
		return
	}

	var req cognitiveEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Type {
	case eventConfidence:
		if req.Value == nil {
			writeError(w, http.StatusBadRequest, "value is required for confidence events")
			return
		}
	case eventUncertaintyAdd, eventUncertaintyRemove:
		if req.Text == "" {
			writeError(w, http.StatusBadRequest, "text is required for uncertainty events")
			return
		}
	case eventIteration, eventProgress, eventStall:
	default:
		writeError(w, http.StatusBadRequest, "unknown event type")
		return
	}

	var resp cognitiveStateResponse
	sess.With(func(_ *service.Registry, state *domain.CognitiveState) {
		switch req.Type {
		case eventIteration:
			state.IncrementIteration()
		case eventProgress:
			state.MarkProgress()
		case eventStall:
			state.MarkStall()
		case eventConfidence:
			state.UpdateConfidence(*req.Value)
		case eventUncertaintyAdd:
			state.AddUncertainty(req.Text)
		case eventUncertaintyRemove:
			state.RemoveUncertainty(req.Text)
		}
		resp = stateView(state, h.gate)
	})

	writeJSON(w, http.StatusOK, resp)
}

// GetState returns the session's cognitive state digest.
func (h *CognitiveHandler) GetState(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.svc)
	if !ok {
		return
	}

	var resp cognitiveStateResponse
	sess.With(func(_ *service.Registry, state *domain.CognitiveState) {
		resp = stateView(state, h.gate)
	})

	writeJSON(w, http.StatusOK, resp)
}

func stateView(state *domain.CognitiveState, gate *service.StrategyGate) cognitiveStateResponse {
	return cognitiveStateResponse{
		State:   state,
		Stalled: state.HasStalled(gate.StallThreshold),
		Context: state.ContextLines(),
	}
}
