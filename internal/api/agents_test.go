package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"agentforge/internal/agents"
	"agentforge/internal/database"
	"agentforge/internal/monitoring"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingGenerator struct{}

func (failingGenerator) Name() string  { return "broken" }
func (failingGenerator) Model() string { return "none" }
func (failingGenerator) Generate(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func testIDs() func() string {
	var n int64
	return func() string {
		return fmt.Sprintf("agent_test_%d", atomic.AddInt64(&n, 1))
	}
}

func newTestAPI(t *testing.T, db Registry, cfg Config, opts ...agents.Option) *AgentAPI {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	opts = append([]agents.Option{agents.WithIDSource(testIDs())}, opts...)
	composer := agents.NewComposer(agents.DefaultCatalog(), opts...)
	synthesizer := agents.NewSynthesizer(agents.DefaultEndpointBase, agents.DefaultDashboardBase)
	return NewAgentAPI(composer, synthesizer, db, monitoring.NewMetricsCollector(), cfg)
}

func newTestStore(t *testing.T) *database.AgentStore {
	t.Helper()
	store, err := database.NewAgentStore("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t, nil, Config{Version: "test"})

	rec, resp := doJSON(t, a.Router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "agentforge", resp["service"])
	assert.Equal(t, "none", resp["generation_provider"])
	assert.Len(t, resp["available_templates"], 5)
	assert.NotEmpty(t, resp["uptime"])
	assert.Equal(t, false, resp["registry_enabled"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestIndex(t *testing.T) {
	a := newTestAPI(t, nil, Config{})

	rec, resp := doJSON(t, a.Router, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	endpoints := resp["endpoints"].(map[string]interface{})
	assert.Equal(t, "POST /api/ai-agents/generate", endpoints["generate"])
}

func TestListTemplates(t *testing.T) {
	a := newTestAPI(t, nil, Config{})

	rec, resp := doJSON(t, a.Router, http.MethodGet, "/api/ai-agents/templates", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), resp["total_count"])
	templates := resp["templates"].(map[string]interface{})
	assert.Contains(t, templates, agents.TypeSecurityAnalyst)
	assert.Contains(t, templates, agents.TypeComplianceOfficer)
	assert.NotEmpty(t, resp["categories"])
}

func TestGenerateAgent(t *testing.T) {
	a := newTestAPI(t, nil, Config{})

	rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/generate", gin.H{
		"type": agents.TypeAIEngineer,
		"requirements": gin.H{
			"priority_domains": []string{"LLM red teaming"},
			"specialization":   "Model supply chain security",
		},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, resp["success"])

	agent := resp["agent"].(map[string]interface{})
	assert.Equal(t, "agent_test_1", agent["id"])
	assert.Equal(t, agents.TypeAIEngineer, agent["template_type"])
	assert.Equal(t, "Model supply chain security", agent["specialization"])
	assert.Equal(t, "active", agent["status"])

	profile := agent["profile"].(map[string]interface{})
	capabilities := profile["capabilities"].([]interface{})
	assert.Equal(t, "LLM red teaming", capabilities[len(capabilities)-1])

	deployment := agent["deployment"].(map[string]interface{})
	resources := deployment["resource_requirements"].(map[string]interface{})
	assert.Equal(t, true, resources["gpu_required"])

	generated, ok := a.Monitor.GetMetric(monitoring.AgentsGenerated)
	require.True(t, ok)
	assert.Equal(t, int64(1), generated)

	last, ok := a.Monitor.GetMetric(monitoring.LastGeneratedAgent)
	require.True(t, ok)
	assert.Equal(t, agent["id"], last)
}

func TestGenerateAgent_Errors(t *testing.T) {
	a := newTestAPI(t, nil, Config{})

	tests := []struct {
		name    string
		body    interface{}
		status  int
		message string
	}{
		{"unknown type", gin.H{"type": "quantum_chef"}, http.StatusBadRequest, "unknown agent type: quantum_chef"},
		{"missing type", gin.H{}, http.StatusBadRequest, "unknown agent type: "},
		{"malformed body", "{not json", http.StatusBadRequest, "malformed request"},
		{"wrong field type", `{"type": 42}`, http.StatusBadRequest, "malformed request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/generate", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, false, resp["success"])
			assert.Contains(t, resp["error"], tt.message)
		})
	}
}

func TestGenerateAgent_DegradedGenerator(t *testing.T) {
	a := newTestAPI(t, nil, Config{}, agents.WithGenerator(failingGenerator{}, time.Second))

	rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/generate", gin.H{"type": agents.TypeIncidentResponder})

	require.Equal(t, http.StatusOK, rec.Code)
	agent := resp["agent"].(map[string]interface{})
	assert.Equal(t, "initializing", agent["status"])
	assert.Equal(t, "fallback", agent["profile"].(map[string]interface{})["generation"])

	integration := agent["api_integration"].(map[string]interface{})
	assert.Equal(t, "broken", integration["provider"])

	fallbacks, ok := a.Monitor.GetMetric(monitoring.FallbackProfiles)
	require.True(t, ok)
	assert.Equal(t, int64(1), fallbacks)
}

func TestDeployAgent(t *testing.T) {
	a := newTestAPI(t, nil, Config{})

	rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/deploy", gin.H{
		"agent": gin.H{"id": "agent_42", "name": "CyberGuard Analyst"},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Agent CyberGuard Analyst successfully deployed", resp["message"])

	deployment := resp["deployment"].(map[string]interface{})
	assert.Equal(t, "agent_42", deployment["agent_id"])
	assert.Equal(t, "deployed", deployment["deployment_status"])
	assert.Equal(t, "https://agents.agentforge.local/agent_42", deployment["endpoint_url"])

	endpoints := deployment["api_endpoints"].(map[string]interface{})
	assert.Equal(t, "/api/agents/agent_42/interact", endpoints["interact"])

	last, ok := a.Monitor.GetMetric(monitoring.LastDeployedAgent)
	require.True(t, ok)
	assert.Equal(t, "agent_42", last)
}

func TestDeployAgent_Errors(t *testing.T) {
	a := newTestAPI(t, nil, Config{})

	tests := []struct {
		name    string
		body    interface{}
		message string
	}{
		{"no agent", gin.H{}, "missing required field: agent"},
		{"null agent", `{"agent": null}`, "missing required field: agent"},
		{"agent without id", gin.H{"agent": gin.H{"name": "nameless"}}, "missing required field: id"},
		{"agent not an object", `{"agent": "agent_1"}`, "malformed request"},
		{"numeric id", `{"agent": {"id": 42, "name": "CyberGuard"}}`, "missing required field: id"},
		{"blank id", gin.H{"agent": gin.H{"id": "  "}}, "missing required field: id"},
		{"malformed body", "[", "malformed request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/deploy", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, resp["success"])
			assert.Contains(t, resp["error"], tt.message)
		})
	}
}

func TestBatchGenerate(t *testing.T) {
	a := newTestAPI(t, nil, Config{})

	rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/batch-generate", gin.H{
		"specifications": []gin.H{
			{"type": agents.TypeSecurityAnalyst},
			{"type": "unknown_type", "requirements": gin.H{"specialization": "none"}},
			{"type": agents.TypeBlockchainSpecialist},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, resp["success"])

	summary := resp["summary"].(map[string]interface{})
	assert.Equal(t, float64(3), summary["total_requested"])
	assert.Equal(t, float64(2), summary["successful"])
	assert.Equal(t, float64(1), summary["failed"])
	assert.NotEmpty(t, summary["batch_id"])

	results := resp["results"].([]interface{})
	require.Len(t, results, 3)
	assert.Equal(t, "success", results[0].(map[string]interface{})["status"])
	failed := results[1].(map[string]interface{})
	assert.Equal(t, "error", failed["status"])
	assert.Equal(t, "unknown agent type: unknown_type", failed["error"])
	assert.Equal(t, "success", results[2].(map[string]interface{})["status"])

	batches, ok := a.Monitor.GetMetric(monitoring.BatchesProcessed)
	require.True(t, ok)
	assert.Equal(t, int64(1), batches)
}

func TestDeployAgent_LooseProfileFields(t *testing.T) {
	a := newTestAPI(t, nil, Config{})

	rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/deploy",
		`{"agent": {"id": "a1", "name": 5, "profile": "free text"}}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Agent a1 successfully deployed", resp["message"])
	deployment := resp["deployment"].(map[string]interface{})
	assert.Equal(t, "a1", deployment["agent_id"])
}

func TestBatchGenerate_MalformedItems(t *testing.T) {
	a := newTestAPI(t, nil, Config{})

	rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/batch-generate",
		`{"specifications":[{"type":"security_analyst"},{"type":"ai_engineer","requirements":{"priority_domains":"cloud"}},"bogus"]}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, resp["success"])

	summary := resp["summary"].(map[string]interface{})
	assert.Equal(t, float64(3), summary["total_requested"])
	assert.Equal(t, float64(1), summary["successful"])
	assert.Equal(t, float64(2), summary["failed"])

	results := resp["results"].([]interface{})
	require.Len(t, results, 3)

	first := results[0].(map[string]interface{})
	assert.Equal(t, "success", first["status"])
	assert.Equal(t, agents.TypeSecurityAnalyst, first["agent"].(map[string]interface{})["template_type"])

	for _, item := range results[1:] {
		r := item.(map[string]interface{})
		assert.Equal(t, "error", r["status"])
		assert.Contains(t, r["error"], "malformed request")
		assert.Nil(t, r["agent"])
	}

	failures, ok := a.Monitor.GetMetric(monitoring.GenerationFailures)
	require.True(t, ok)
	assert.Equal(t, int64(2), failures)
}

func TestBatchGenerate_Errors(t *testing.T) {
	a := newTestAPI(t, nil, Config{})

	rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/batch-generate", gin.H{"specifications": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing required field: specifications", resp["error"])

	specs := make([]gin.H, maxBatchSize+1)
	for i := range specs {
		specs[i] = gin.H{"type": agents.TypeSecurityAnalyst}
	}
	rec, resp = doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/batch-generate", gin.H{"specifications": specs})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp["error"], "at most 100 specifications")
}

func TestRegistry_RoundTrip(t *testing.T) {
	a := newTestAPI(t, newTestStore(t), Config{})

	rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/generate", gin.H{"type": agents.TypeComplianceOfficer})
	require.Equal(t, http.StatusOK, rec.Code)
	id := resp["agent"].(map[string]interface{})["id"].(string)

	rec, _ = doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/deploy", gin.H{"agent": resp["agent"]})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = doJSON(t, a.Router, http.MethodGet, "/api/ai-agents/registry/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, id, resp["agent"].(map[string]interface{})["id"])
	assert.Len(t, resp["deployments"], 1)

	rec, _ = doJSON(t, a.Router, http.MethodGet, "/api/ai-agents/registry/agent_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistry_Disabled(t *testing.T) {
	a := newTestAPI(t, nil, Config{})

	rec, resp := doJSON(t, a.Router, http.MethodGet, "/api/ai-agents/registry/agent_1", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "agent registry is not enabled", resp["error"])
}

func TestDeployAgent_EnforceOrigin(t *testing.T) {
	a := newTestAPI(t, newTestStore(t), Config{EnforceOrigin: true})

	rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/deploy", gin.H{
		"agent": gin.H{"id": "agent_forged", "name": "Forged"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, resp["error"], "agent_forged")

	rec, resp = doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/generate", gin.H{"type": agents.TypeSecurityAnalyst})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/deploy", gin.H{"agent": resp["agent"]})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	a := newTestAPI(t, nil, Config{JWTSecret: secret})
	body := gin.H{"type": agents.TypeSecurityAnalyst}

	rec, resp := doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/generate", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization header required", resp["error"])

	rec, _ = doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/generate", body, "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{Subject: "ops"}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	rec, _ = doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/generate", body, "Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{Subject: "ops"}).SignedString([]byte(secret))
	require.NoError(t, err)
	rec, _ = doJSON(t, a.Router, http.MethodPost, "/api/ai-agents/generate", body, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	// read-only routes stay open
	rec, _ = doJSON(t, a.Router, http.MethodGet, "/api/ai-agents/templates", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	a := newTestAPI(t, nil, Config{AllowedOrigins: []string{"*"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/ai-agents/generate", nil)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = doJSON(t, a.Router, http.MethodGet, "/health", nil)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	a := newTestAPI(t, nil, Config{AllowedOrigins: []string{"https://console.example.com"}})

	rec, _ := doJSON(t, a.Router, http.MethodGet, "/health", nil, "Origin", "https://console.example.com")
	assert.Equal(t, "https://console.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = doJSON(t, a.Router, http.MethodGet, "/health", nil, "Origin", "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestEvents_StreamGeneratedAgents(t *testing.T) {
	a := newTestAPI(t, nil, Config{})
	server := httptest.NewServer(a.Router)
	defer server.Close()
	defer a.Events.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ai-agents/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return a.Events.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(server.URL+"/api/ai-agents/generate", "application/json",
		strings.NewReader(`{"type": "security_analyst"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, EventAgentGenerated, event.Type)
	assert.Equal(t, "agent_test_1", event.AgentID)
	assert.False(t, event.Timestamp.IsZero())
}
