package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

// ApiClient handles requests to the AgentForge API
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	Token      string
}

// NewApiClient creates a client from AGENTFORGE_API_URL and AGENTFORGE_TOKEN.
func NewApiClient() *ApiClient {
	baseURL := os.Getenv("AGENTFORGE_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &ApiClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   os.Getenv("AGENTFORGE_TOKEN"),
	}
}

// Health is the /health payload.
type Health struct {
	Status             string                 `json:"status"`
	Version            string                 `json:"version"`
	Uptime             string                 `json:"uptime"`
	GenerationProvider string                 `json:"generation_provider"`
	AvailableTemplates []string               `json:"available_templates"`
	RegistryEnabled    bool                   `json:"registry_enabled"`
	EventClients       int                    `json:"event_clients"`
	Stats              map[string]interface{} `json:"stats"`
}

// Template is one catalog entry.
type Template struct {
	Name             string   `json:"name"`
	Role             string   `json:"role"`
	Specialization   string   `json:"specialization"`
	BaseCapabilities []string `json:"base_capabilities"`
	RequiredSkills   []string `json:"required_skills"`
}

// TemplateList is the /api/ai-agents/templates payload.
type TemplateList struct {
	Templates  map[string]Template `json:"templates"`
	TotalCount int                 `json:"total_count"`
	Categories []string            `json:"categories"`
}

// Agent keeps the fields the CLI shows and the raw profile for deployment.
type Agent struct {
	ID             string `json:"id"`
	TemplateType   string `json:"template_type"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	Specialization string `json:"specialization"`
	Status         string `json:"status"`
	Profile        struct {
		Description  string   `json:"description"`
		Capabilities []string `json:"capabilities"`
		Generation   string   `json:"generation"`
	} `json:"profile"`

	Raw json.RawMessage `json:"-"`
}

// Deployment is the subset of a deployment descriptor the CLI shows.
type Deployment struct {
	AgentID             string            `json:"agent_id"`
	DeploymentStatus    string            `json:"deployment_status"`
	EndpointURL         string            `json:"endpoint_url"`
	ManagementDashboard string            `json:"management_dashboard"`
	APIEndpoints        map[string]string `json:"api_endpoints"`
}

// Requirements are the optional overrides sent with a generation request.
type Requirements struct {
	PriorityDomains []string `json:"priority_domains,omitempty"`
	Specialization  string   `json:"specialization,omitempty"`
}

// Specification requests one agent in a batch.
type Specification struct {
	Type         string        `json:"type"`
	Requirements *Requirements `json:"requirements,omitempty"`
}

// BatchResult is one item of a batch response.
type BatchResult struct {
	Status string          `json:"status"`
	Agent  json.RawMessage `json:"agent,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BatchSummary counts batch outcomes.
type BatchSummary struct {
	TotalRequested int    `json:"total_requested"`
	Successful     int    `json:"successful"`
	Failed         int    `json:"failed"`
	BatchID        string `json:"batch_id"`
}

// BatchResponse is the /api/ai-agents/batch-generate payload.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
	Summary BatchSummary  `json:"summary"`
}

// CheckHealth fetches the service health.
func (c *ApiClient) CheckHealth() (*Health, error) {
	var health Health
	if err := c.do(http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetTemplates lists the agent catalog.
func (c *ApiClient) GetTemplates() (*TemplateList, error) {
	var list TemplateList
	if err := c.do(http.MethodGet, "/api/ai-agents/templates", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GenerateAgent composes a new agent of agentType.
func (c *ApiClient) GenerateAgent(agentType string, req *Requirements) (*Agent, error) {
	var resp struct {
		Agent json.RawMessage `json:"agent"`
	}
	body := Specification{Type: agentType, Requirements: req}
	if err := c.do(http.MethodPost, "/api/ai-agents/generate", body, &resp); err != nil {
		return nil, err
	}
	return decodeAgent(resp.Agent)
}

// DeployAgent posts a previously generated profile for deployment.
func (c *ApiClient) DeployAgent(agent *Agent) (*Deployment, string, error) {
	var resp struct {
		Deployment Deployment `json:"deployment"`
		Message    string     `json:"message"`
	}
	body := map[string]json.RawMessage{"agent": agent.Raw}
	if err := c.do(http.MethodPost, "/api/ai-agents/deploy", body, &resp); err != nil {
		return nil, "", err
	}
	return &resp.Deployment, resp.Message, nil
}

// BatchGenerate composes several agents in one request.
func (c *ApiClient) BatchGenerate(specs []Specification) (*BatchResponse, error) {
	var resp BatchResponse
	body := map[string]interface{}{"specifications": specs}
	if err := c.do(http.MethodPost, "/api/ai-agents/batch-generate", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func decodeAgent(raw json.RawMessage) (*Agent, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("response has no agent")
	}
	var agent Agent
	if err := json.Unmarshal(raw, &agent); err != nil {
		return nil, err
	}
	agent.Raw = raw
	return &agent, nil
}

func (c *ApiClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed with status code: %d", resp.StatusCode)
	}

	return json.Unmarshal(data, out)
}
