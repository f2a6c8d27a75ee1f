package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	app := NewApp(nil, zap.NewNop())
	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func createTestSession(t *testing.T, srv *httptest.Server) string {
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", map[string]string{
		"goal": "diagnose checkout latency",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestSessionEndpoints(t *testing.T) {
	srv := newTestServer(t)
	id := createTestSession(t, srv)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "diagnose checkout latency", body["goal"])

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGroundedAnswerFlow(t *testing.T) {
	srv := newTestServer(t)
	id := createTestSession(t, srv)
	base := srv.URL + "/v1/sessions/" + id

	// With no evidence the generator refuses.
	resp, body := doJSON(t, http.MethodPost, base+"/answer", map[string]string{
		"raw_answer": "The deploy caused the outage.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	answer := body["answer"].(map[string]any)
	assert.Equal(t, "refuse", answer["degradation_level"])

	// Record tool evidence.
	var obsIDs []string
	for i := 0; i < 3; i++ {
		resp, body = doJSON(t, http.MethodPost, base+"/observations", map[string]any{
			"tool_name":  "metrics_query",
			"content":    fmt.Sprintf("observation %d: latency spiked after the deploy", i),
			"success":    true,
			"confidence": 1.0,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		obsIDs = append(obsIDs, body["observation_id"].(string))
	}

	// Claims extracted against the ledger resolve their references.
	resp, body = doJSON(t, http.MethodPost, base+"/claims/extract", map[string]string{
		"text": fmt.Sprintf("Search results show latency spiked after the deploy [%s].", obsIDs[0]),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	claims := body["claims"].([]any)
	require.Len(t, claims, 1)
	claim := claims[0].(map[string]any)
	assert.Equal(t, "fact", claim["claim_type"])
	assert.Equal(t, 1.0, claim["confidence"])

	// The claim's audit trail is addressable.
	resp, body = doJSON(t, http.MethodGet, base+"/claims/"+claim["id"].(string)+"/audit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["audit_trail"], obsIDs[0])

	// With strong evidence the answer passes through untouched.
	resp, body = doJSON(t, http.MethodPost, base+"/answer", map[string]string{
		"raw_answer": "The deploy caused the outage.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	answer = body["answer"].(map[string]any)
	assert.Equal(t, "full_answer", answer["degradation_level"])
	assert.Equal(t, "The deploy caused the outage.", answer["content"])
}

func TestObservationContext(t *testing.T) {
	srv := newTestServer(t)
	id := createTestSession(t, srv)
	base := srv.URL + "/v1/sessions/" + id

	resp, body := doJSON(t, http.MethodGet, base+"/observations/context", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[no valid observations]", body["context"])

	resp, _ = doJSON(t, http.MethodPost, base+"/observations", map[string]any{
		"content":     "support reports timeouts",
		"source_type": "user_input",
		"source_id":   "support",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, base+"/observations/context", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["context"], "support reports timeouts")

	resp, body = doJSON(t, http.MethodGet, base+"/observations/expired", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["count"])
}

func TestObservationValidation(t *testing.T) {
	srv := newTestServer(t)
	id := createTestSession(t, srv)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/sessions/"+id+"/observations", map[string]any{
		"content":     "unattributed",
		"source_type": "llm_guess",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStrategyAndToolEndpoints(t *testing.T) {
	srv := newTestServer(t)
	id := createTestSession(t, srv)
	base := srv.URL + "/v1/sessions/" + id

	resp, body := doJSON(t, http.MethodPost, base+"/strategy", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["decision"])

	resp, body = doJSON(t, http.MethodPost, base+"/tools/rank", map[string]any{
		"confidence": 0.5,
		"tools": []map[string]string{
			{"name": "rollback_deploy", "risk": "high"},
			{"name": "scale_replicas", "risk": "medium"},
			{"name": "read_runbook", "risk": "safe"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := body["approved"].([]any)
	require.Len(t, approved, 2)
	assert.Equal(t, "read_runbook", approved[0])
	assert.Equal(t, "scale_replicas", approved[1])

	resp, _ = doJSON(t, http.MethodPost, base+"/tools/rank", map[string]any{
		"tools": []map[string]string{{"name": "x", "risk": "extreme"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCognitiveEndpoints(t *testing.T) {
	srv := newTestServer(t)
	id := createTestSession(t, srv)
	base := srv.URL + "/v1/sessions/" + id

	resp, body := doJSON(t, http.MethodPost, base+"/cognitive/events", map[string]any{
		"type": "confidence", "value": 0.6,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := body["state"].(map[string]any)
	assert.Equal(t, 0.6, state["confidence"])

	resp, body = doJSON(t, http.MethodPost, base+"/cognitive/events", map[string]any{
		"type": "uncertainty_add", "text": "missing latency data",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state = body["state"].(map[string]any)
	assert.Len(t, state["uncertainties"], 1)

	resp, body = doJSON(t, http.MethodGet, base+"/cognitive", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["context"], "missing latency data")

	resp, _ = doJSON(t, http.MethodPost, base+"/cognitive/events", map[string]any{
		"type": "unknown",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disabled", body["audit_store"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["request_count"])
}
