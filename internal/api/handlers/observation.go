package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/veracity-ai/veracity/internal/domain"
	"github.com/veracity-ai/veracity/internal/service"
)

type ObservationHandler struct {
	svc *service.SessionService
}

func NewObservationHandler(svc *service.SessionService) *ObservationHandler {
	return &ObservationHandler{svc: svc}
}

type addObservationRequest struct {
	// Direct observation fields.
	Content    string         `json:"content"`
	SourceType string         `json:"source_type,omitempty"`
	SourceID   string         `json:"source_id,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	Scope      string         `json:"scope,omitempty"`
	TTLSeconds *int64         `json:"ttl_seconds,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	// Tool outcome fields. When tool_name is set the body is treated as a
	// tool execution outcome rather than a direct observation: a missing
	// success flag means plain text with no provenance of its own.
	ToolName     string `json:"tool_name,omitempty"`
	Success      *bool  `json:"success,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type addObservationResponse struct {
	ObservationID string             `json:"observation_id"`
	Observation   domain.Observation `json:"observation"`
}

func (h *ObservationHandler) Add(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.svc)
	if !ok {
		return
	}

	var req addObservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ToolName == "" && !domain.ValidSourceType(req.SourceType) {
		writeError(w, http.StatusBadRequest, "invalid source_type")
		return
	}

	var resp addObservationResponse
	sess.With(func(reg *service.Registry, state *domain.CognitiveState) {
		var id string
		if req.ToolName != "" {
			id = reg.RecordOutcome(req.ToolName, toolOutcome(req))
		} else {
			obs := domain.NewObservation(req.Content, domain.SourceType(req.SourceType), req.SourceID, domain.ObservationParams{
				Confidence: req.Confidence,
				Scope:      req.Scope,
				TTLSeconds: req.TTLSeconds,
				Metadata:   req.Metadata,
			})
			id = reg.AddObservation(obs)
		}

		stored, _ := reg.GetObservation(id)
		state.RecordObservation(stored.Confidence)
		resp = addObservationResponse{ObservationID: id, Observation: stored}
	})

	writeJSON(w, http.StatusCreated, resp)
}

func toolOutcome(req addObservationRequest) domain.ExecutionOutcome {
	if req.Success == nil {
		return domain.PlainOutcome(req.Content)
	}
	if !*req.Success {
		return domain.ResultOutcome(domain.ErrorResult(req.ErrorMessage, req.ToolName))
	}

	conf := domain.SourceToolReturn.DefaultConfidence()
	if req.Confidence != nil {
		conf = *req.Confidence
	}
	result := domain.SuccessResult(req.Content, req.ToolName, conf, req.TTLSeconds, req.Scope, req.Metadata)
	return domain.ResultOutcome(result)
}

type contextResponse struct {
	Context          string `json:"context"`
	ObservationCount int    `json:"observation_count"`
}

func (h *ObservationHandler) Context(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.svc)
	if !ok {
		return
	}

	max := service.DefaultContextObservations
	if raw := r.URL.Query().Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid max")
			return
		}
		max = n
	}

	var resp contextResponse
	sess.With(func(reg *service.Registry, _ *domain.CognitiveState) {
		resp = contextResponse{
			Context:          reg.ToContext(max),
			ObservationCount: reg.ObservationCount(),
		}
	})

	writeJSON(w, http.StatusOK, resp)
}

type expiredResponse struct {
	ExpiredIDs []string `json:"expired_ids"`
	Count      int      `json:"count"`
}

func (h *ObservationHandler) Expired(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.svc)
	if !ok {
		return
	}

	var resp expiredResponse
	sess.With(func(reg *service.Registry, _ *domain.CognitiveState) {
		ids := reg.InvalidateExpired()
		resp = expiredResponse{ExpiredIDs: ids, Count: len(ids)}
	})

	writeJSON(w, http.StatusOK, resp)
}
