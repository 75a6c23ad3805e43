package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agentforge/internal/agents"
	"agentforge/internal/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	serviceName  = "agentforge"
	maxBatchSize = 100
)

// Registry records composed profiles and deployments.
type Registry interface {
	SaveProfile(p *agents.AgentProfile) error
	GetProfile(id string) (*agents.AgentProfile, error)
	Exists(id string) (bool, error)
	SaveDeployment(d *agents.DeploymentDescriptor) error
	ListDeployments(agentID string) ([]agents.DeploymentDescriptor, error)
}

// Config holds the settings the HTTP layer needs.
type Config struct {
	Version        string
	Provider       string
	EnforceOrigin  bool
	JWTSecret      string
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// AgentAPI represents the HTTP handler for agent provisioning
type AgentAPI struct {
	Router      *gin.Engine
	Composer    *agents.Composer
	Synthesizer *agents.Synthesizer
	DB          Registry
	Events      *Hub
	Monitor     *monitoring.Monitor
	Metrics     *monitoring.MetricsCollector

	cfg       Config
	logger    zerolog.Logger
	startedAt time.Time
}

// NewAgentAPI creates a new API instance. db and metrics may be nil.
func NewAgentAPI(composer *agents.Composer, synthesizer *agents.Synthesizer, db Registry, metrics *monitoring.MetricsCollector, cfg Config) *AgentAPI {
	if cfg.Provider == "" {
		cfg.Provider = "none"
	}

	var onClients func(int)
	if metrics != nil {
		onClients = metrics.SetEventClients
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(cfg.Logger), CORS(cfg.AllowedOrigins))

	a := &AgentAPI{
		Router:      router,
		Composer:    composer,
		Synthesizer: synthesizer,
		DB:          db,
		Events:      NewHub(cfg.AllowedOrigins, cfg.Logger, onClients),
		Monitor:     monitoring.NewMonitor(),
		Metrics:     metrics,
		cfg:         cfg,
		logger:      cfg.Logger,
		startedAt:   time.Now(),
	}

	a.setupRoutes()
	return a
}

// setupRoutes configures all API endpoints
func (a *AgentAPI) setupRoutes() {
	a.Router.GET("/", a.Index)
	a.Router.GET("/health", a.Health)

	ai := a.Router.Group("/api/ai-agents")
	{
		ai.GET("/templates", a.ListTemplates)
		ai.GET("/registry/:id", a.GetRegisteredAgent)
		ai.GET("/events", a.Events.ServeWS)
	}

	mutating := ai.Group("")
	if a.cfg.JWTSecret != "" {
		mutating.Use(JWTAuth(a.cfg.JWTSecret))
	}
	{
		mutating.POST("/generate", a.GenerateAgent)
		mutating.POST("/deploy", a.DeployAgent)
		mutating.POST("/batch-generate", a.BatchGenerate)
	}
}

func (a *AgentAPI) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": a.cfg.Version,
		"endpoints": gin.H{
			"health":         "GET /health",
			"templates":      "GET /api/ai-agents/templates",
			"generate":       "POST /api/ai-agents/generate",
			"deploy":         "POST /api/ai-agents/deploy",
			"batch_generate": "POST /api/ai-agents/batch-generate",
			"registry":       "GET /api/ai-agents/registry/:id",
			"events":         "GET /api/ai-agents/events (websocket)",
		},
	})
}

func (a *AgentAPI) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "healthy",
		"service":             serviceName,
		"version":             a.cfg.Version,
		"timestamp":           time.Now().UTC(),
		"uptime":              time.Since(a.startedAt).Round(time.Second).String(),
		"generation_provider": a.cfg.Provider,
		"available_templates": a.Composer.Catalog().Types(),
		"registry_enabled":    a.DB != nil,
		"event_clients":       a.Events.Clients(),
		"stats":               a.Monitor.GetMetrics(),
	})
}

func (a *AgentAPI) ListTemplates(c *gin.Context) {
	catalog := a.Composer.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"templates":   catalog.All(),
		"total_count": catalog.Len(),
		"categories":  catalog.Categories(),
	})
}

type generateRequest struct {
	Type         string            `json:"type"`
	Requirements *agents.Overrides `json:"requirements"`
}

func (a *AgentAPI) GenerateAgent(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.respondError(c, agents.MalformedRequest(err))
		return
	}

	start := time.Now()
	profile, err := a.Composer.Compose(c.Request.Context(), req.Type, req.Requirements)
	if err != nil {
		a.recordFailure(err)
		a.respondError(c, err)
		return
	}
	a.recordGenerated(profile, time.Since(start))

	if err := a.register(profile); err != nil {
		a.respondError(c, err)
		return
	}

	a.Events.Publish(Event{
		Type:    EventAgentGenerated,
		AgentID: profile.ID,
		Data:    gin.H{"template_type": profile.TemplateType, "name": profile.Name},
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"agent":   profile,
	})
}

type deployRequest struct {
	Agent json.RawMessage `json:"agent"`
}

// agentRef is the part of a posted profile deployment needs. Other fields of
// the profile are not validated.
type agentRef struct {
	ID   string
	Name string
}

func parseAgentRef(raw json.RawMessage) (agentRef, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return agentRef{}, agents.MalformedRequest(err)
	}
	id, _ := fields["id"].(string)
	if strings.TrimSpace(id) == "" {
		return agentRef{}, &agents.MissingFieldError{Field: "id"}
	}
	name, _ := fields["name"].(string)
	return agentRef{ID: id, Name: name}, nil
}

func (a *AgentAPI) DeployAgent(c *gin.Context) {
	var req deployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.respondError(c, agents.MalformedRequest(err))
		return
	}
	if len(req.Agent) == 0 || string(req.Agent) == "null" {
		a.recordDeployment("rejected")
		a.respondError(c, &agents.MissingFieldError{Field: "agent"})
		return
	}

	ref, err := parseAgentRef(req.Agent)
	if err != nil {
		a.recordDeployment("rejected")
		a.respondError(c, err)
		return
	}

	if a.cfg.EnforceOrigin && a.DB != nil {
		ok, err := a.DB.Exists(ref.ID)
		if err != nil {
			a.respondError(c, err)
			return
		}
		if !ok {
			a.recordDeployment("rejected")
			a.respondError(c, fmt.Errorf("%w: %s", agents.ErrNotRegistered, ref.ID))
			return
		}
	}

	deployment, err := a.Synthesizer.Synthesize(&agents.AgentProfile{ID: ref.ID, Name: ref.Name})
	if err != nil {
		a.recordDeployment("rejected")
		a.respondError(c, err)
		return
	}
	a.recordDeployment("deployed")
	a.Monitor.RecordMetric(monitoring.LastDeployedAgent, deployment.AgentID)

	if a.DB != nil {
		if err := a.DB.SaveDeployment(deployment); err != nil {
			a.logger.Error().Err(err).Str("agent_id", deployment.AgentID).Msg("Failed to record deployment")
		}
	}

	a.Events.Publish(Event{
		Type:    EventAgentDeployed,
		AgentID: deployment.AgentID,
		Data:    gin.H{"endpoint_url": deployment.EndpointURL},
	})

	name := ref.Name
	if name == "" {
		name = ref.ID
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"deployment": deployment,
		"message":    fmt.Sprintf("Agent %s successfully deployed", name),
	})
}

// Items are decoded one by one so a bad item fails only its own slot.
type batchRequest struct {
	Specifications []json.RawMessage `json:"specifications"`
}

func (a *AgentAPI) BatchGenerate(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.respondError(c, agents.MalformedRequest(err))
		return
	}
	if len(req.Specifications) == 0 {
		a.respondError(c, &agents.MissingFieldError{Field: "specifications"})
		return
	}
	if len(req.Specifications) > maxBatchSize {
		a.respondError(c, agents.MalformedRequest(fmt.Errorf("at most %d specifications per batch, got %d", maxBatchSize, len(req.Specifications))))
		return
	}

	start := time.Now()
	specs := agents.DecodeSpecifications(req.Specifications)
	report := a.Composer.GenerateBatch(c.Request.Context(), specs)
	elapsed := time.Since(start)

	for _, r := range report.Results {
		if r.Status != agents.BatchStatusSuccess {
			a.recordFailure(r.Err())
			continue
		}
		a.recordGenerated(r.Agent, elapsed)
		if err := a.register(r.Agent); err != nil {
			a.logger.Error().Err(err).Str("batch_id", report.Summary.BatchID).Msg("Failed to record batch profile")
		}
	}

	a.Monitor.RecordBatchResult(report.Summary.BatchID, report.Summary.TotalRequested, report.Summary.Successful, report.Summary.Failed)
	if a.Metrics != nil {
		a.Metrics.RecordBatch(len(req.Specifications))
	}

	a.Events.Publish(Event{
		Type: EventBatchCompleted,
		Data: report.Summary,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": report.Results,
		"summary": report.Summary,
	})
}

func (a *AgentAPI) GetRegisteredAgent(c *gin.Context) {
	if a.DB == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "agent registry is not enabled"})
		return
	}

	id := c.Param("id")
	profile, err := a.DB.GetProfile(id)
	if err != nil {
		if errors.Is(err, agents.ErrNotRegistered) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
			return
		}
		a.respondError(c, err)
		return
	}

	deployments, err := a.DB.ListDeployments(id)
	if err != nil {
		a.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"agent":       profile,
		"deployments": deployments,
	})
}

// register stores the profile when a registry is configured. Failures only
// surface to the caller when deployments depend on the registry.
func (a *AgentAPI) register(p *agents.AgentProfile) error {
	if a.DB == nil {
		return nil
	}
	if err := a.DB.SaveProfile(p); err != nil {
		a.logger.Error().Err(err).Str("agent_id", p.ID).Msg("Failed to record profile")
		if a.cfg.EnforceOrigin {
			return err
		}
	}
	return nil
}

func (a *AgentAPI) recordGenerated(p *agents.AgentProfile, elapsed time.Duration) {
	a.Monitor.Increment(monitoring.AgentsGenerated, 1)
	a.Monitor.RecordMetric(monitoring.LastGeneratedAgent, p.ID)
	if p.Profile.Source == agents.SourceFallback {
		a.Monitor.Increment(monitoring.FallbackProfiles, 1)
	}
	if a.Metrics != nil {
		a.Metrics.RecordGeneration(p.TemplateType, string(p.Profile.Source), elapsed)
	}
}

func (a *AgentAPI) recordFailure(err error) {
	a.Monitor.Increment(monitoring.GenerationFailures, 1)
	if a.Metrics == nil {
		return
	}
	reason := "internal"
	switch {
	case errors.Is(err, agents.ErrTemplateNotFound):
		reason = "template_not_found"
	case errors.Is(err, agents.ErrMalformedRequest):
		reason = "malformed_request"
	}
	a.Metrics.RecordFailure(reason)
}

func (a *AgentAPI) recordDeployment(status string) {
	if status == "deployed" {
		a.Monitor.Increment(monitoring.AgentsDeployed, 1)
	}
	if a.Metrics != nil {
		a.Metrics.RecordDeployment(status)
	}
}
