package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/veracity-ai/veracity/internal/domain"
	"github.com/veracity-ai/veracity/internal/service"
)

type SessionHandler struct {
	svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type createSessionRequest struct {
	Goal string `json:"goal"`
}

type sessionResponse struct {
	ID               uuid.UUID              `json:"id"`
	Goal             string                 `json:"goal,omitempty"`
	State            *domain.CognitiveState `json:"state"`
	ObservationCount int                    `json:"observation_count"`
	ClaimCount       int                    `json:"claim_count"`
	CreatedAt        time.Time              `json:"created_at"`
	LastActiveAt     time.Time              `json:"last_active_at"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Goal == "" {
		writeError(w, http.StatusBadRequest, "goal is required")
		return
	}

	sess := h.svc.Create(req.Goal)
	writeJSON(w, http.StatusCreated, sessionView(sess))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.svc)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := h.svc.Close(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to close session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func sessionView(sess *service.Session) sessionResponse {
	var resp sessionResponse
	sess.With(func(reg *service.Registry, state *domain.CognitiveState) {
		resp = sessionResponse{
			ID:               sess.ID,
			Goal:             state.GoalStatement,
			State:            state,
			ObservationCount: reg.ObservationCount(),
			ClaimCount:       reg.ClaimCount(),
			CreatedAt:        sess.CreatedAt,
			LastActiveAt:     sess.LastActiveAt,
		}
	})
	return resp
}

// resolveSession parses {sessionID} and looks the session up, writing the
// error response itself on failure.
func resolveSession(w http.ResponseWriter, r *http.Request, svc *service.SessionService) (*service.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}

	sess, err := svc.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, service.ErrSessionNotFound.Error())
		return nil, false
	}
	return sess, true
}
