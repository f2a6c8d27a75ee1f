package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/veracity-ai/veracity/internal/domain"
	"github.com/veracity-ai/veracity/internal/service"
)

type AnswerHandler struct {
	svc       *service.SessionService
	extractor *service.ClaimExtractor
	generator *service.GroundedGenerator
}

func NewAnswerHandler(svc *service.SessionService, extractor *service.ClaimExtractor, generator *service.GroundedGenerator) *AnswerHandler {
	return &AnswerHandler{svc: svc, extractor: extractor, generator: generator}
}

type generateAnswerRequest struct {
	RawAnswer string `json:"raw_answer"`
}

type generateAnswerResponse struct {
	Answer            service.GroundedAnswer `json:"answer"`
	Formatted         string                 `json:"formatted"`
	ProvenanceSummary string                 `json:"provenance_summary"`
}

// Generate extracts claims from the raw answer, binds them to the ledger,
// and returns the degradation-transformed answer with its provenance.
func (h *AnswerHandler) Generate(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.svc)
	if !ok {
		return
	}

	var req generateAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RawAnswer == "" {
		writeError(w, http.StatusBadRequest, "raw_answer is required")
		return
	}

	var resp generateAnswerResponse
	sess.With(func(reg *service.Registry, _ *domain.CognitiveState) {
		claims := make([]domain.Claim, 0)
		for _, extracted := range h.extractor.ExtractClaims(req.RawAnswer) {
			claim := h.extractor.BuildClaim(extracted, reg.Observations())
			id := reg.AddClaim(claim)
			stored, _ := reg.GetClaim(id)
			claims = append(claims, stored)
		}

		answer := h.generator.Generate(req.RawAnswer, reg, claims)
		resp = generateAnswerResponse{
			Answer:            answer,
			Formatted:         answer.FormattedOutput(),
			ProvenanceSummary: h.generator.ProvenanceSummary(reg),
		}
	})

	writeJSON(w, http.StatusOK, resp)
}
