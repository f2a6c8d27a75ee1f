package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/veracity-ai/veracity/internal/domain"
	"github.com/veracity-ai/veracity/internal/service"
)

type ClaimHandler struct {
	svc       *service.SessionService
	extractor *service.ClaimExtractor
}

func NewClaimHandler(svc *service.SessionService, extractor *service.ClaimExtractor) *ClaimHandler {
	return &ClaimHandler{svc: svc, extractor: extractor}
}

type extractClaimsRequest struct {
	Text string `json:"text"`
}

type extractClaimsResponse struct {
	Claims []domain.Claim `json:"claims"`
	Count  int            `json:"count"`
}

// Extract parses candidate claims from text, binds each to the session
// ledger, and stores it with its derived confidence.
func (h *ClaimHandler) Extract(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.svc)
	if !ok {
		return
	}

	var req extractClaimsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	var resp extractClaimsResponse
	sess.With(func(reg *service.Registry, _ *domain.CognitiveState) {
		claims := make([]domain.Claim, 0)
		for _, extracted := range h.extractor.ExtractClaims(req.Text) {
			claim := h.extractor.BuildClaim(extracted, reg.Observations())
			id := reg.AddClaim(claim)
			stored, _ := reg.GetClaim(id)
			claims = append(claims, stored)
		}
		resp = extractClaimsResponse{Claims: claims, Count: len(claims)}
	})

	writeJSON(w, http.StatusOK, resp)
}

type auditResponse struct {
	ClaimID    string  `json:"claim_id"`
	Confidence float64 `json:"confidence"`
	AuditTrail string  `json:"audit_trail"`
}

func (h *ClaimHandler) Audit(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.svc)
	if !ok {
		return
	}

	claimID := chi.URLParam(r, "claimID")

	var resp auditResponse
	found := false
	sess.With(func(reg *service.Registry, _ *domain.CognitiveState) {
		claim, ok := reg.GetClaim(claimID)
		if !ok {
			return
		}
		found = true
		resp = auditResponse{
			ClaimID:    claim.ID,
			Confidence: claim.Confidence,
			AuditTrail: claim.AuditTrail(),
		}
	})

	if !found {
		writeError(w, http.StatusNotFound, "claim not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
