package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"agentforge/internal/logging"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultGenerationTimeout = 15 * time.Second
	generationAPIVersion     = "v2"
	composedPersonality      = "Highly analytical, proactive, and adaptive cybersecurity specialist with advanced AI reasoning"
)

var enhancementCapabilities = []string{
	"Autonomous threat response",
	"Real-time learning adaptation",
	"Cross-platform integration",
	"Predictive analytics",
	"Zero-day detection",
	"Behavioral pattern recognition",
}

var basePermissions = []string{
	"read_security_logs",
	"access_threat_intelligence",
	"generate_reports",
	"update_incident_status",
}

var typePermissions = map[string][]string{
	TypeSecurityAnalyst:      {"access_siem", "correlate_threats", "investigate_incidents"},
	TypeAIEngineer:           {"train_models", "deploy_algorithms", "access_ml_pipelines"},
	TypeBlockchainSpecialist: {"audit_smart_contracts", "analyze_transactions", "validate_consensus"},
	TypeIncidentResponder:    {"emergency_actions", "coordinate_response", "manage_communications"},
	TypeComplianceOfficer:    {"audit_systems", "review_policies", "generate_compliance_reports"},
}

var commonTrainingSources = []string{
	"MITRE ATT&CK Framework",
	"CVE Database",
	"Threat Intelligence Feeds",
	"Security Event Logs",
}

var typeTrainingSources = map[string][]string{
	TypeAIEngineer:           {"ML Research Papers", "AI Security Datasets", "Model Training Data"},
	TypeBlockchainSpecialist: {"Smart Contract Repositories", "DeFi Protocol Documentation", "Blockchain Forensics Cases"},
	TypeComplianceOfficer:    {"Regulatory Guidelines", "Compliance Frameworks", "Legal Precedents"},
}

// TextGenerator produces free text for a prompt. Implementations live in the
// models package.
type TextGenerator interface {
	Name() string
	Model() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Composer builds agent profiles from a catalog of templates.
type Composer struct {
	catalog   *Catalog
	generator TextGenerator
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
	logger    zerolog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithGenerator enables the generative path. A non-positive timeout uses the
// default of 15 seconds.
func WithGenerator(g TextGenerator, timeout time.Duration) Option {
	return func(c *Composer) {
		c.generator = g
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// WithIDSource replaces the identifier generator.
func WithIDSource(newID func() string) Option {
	return func(c *Composer) { c.newID = newID }
}

// WithLogger sets the logger used for degraded generations.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Composer) { c.logger = logger }
}

// NewComposer creates a composer over catalog.
func NewComposer(catalog *Catalog, opts ...Option) *Composer {
	c := &Composer{
		catalog: catalog,
		timeout: defaultGenerationTimeout,
		now:     time.Now,
		newID:   func() string { return "agent_" + uuid.NewString() },
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the catalog the composer reads from.
func (c *Composer) Catalog() *Catalog {
	return c.catalog
}

// Generative reports whether a text generator is configured.
func (c *Composer) Generative() bool {
	return c.generator != nil
}

// Compose creates a new profile for agentType. The only error it returns is a
// *TemplateNotFoundError; generator problems degrade to fallback content.
func (c *Composer) Compose(ctx context.Context, agentType string, overrides *Overrides) (*AgentProfile, error) {
	tmpl, ok := c.catalog.Lookup(agentType)
	if !ok {
		return nil, &TemplateNotFoundError{Type: agentType}
	}

	createdAt := c.now().UTC()
	resources := resourceRequirements(agentType)

	capabilities := make([]string, 0, len(tmpl.BaseCapabilities)+len(enhancementCapabilities))
	capabilities = append(capabilities, tmpl.BaseCapabilities...)
	capabilities = append(capabilities, enhancementCapabilities...)

	specialization := tmpl.Specialization
	if overrides != nil {
		capabilities = append(capabilities, overrides.PriorityDomains...)
		if overrides.Specialization != "" {
			specialization = overrides.Specialization
		}
	}

	profile := &AgentProfile{
		ID:             c.newID(),
		TemplateType:   agentType,
		Name:           tmpl.Name,
		Role:           tmpl.Role,
		Specialization: specialization,
		CreatedAt:      createdAt,
		Status:         StatusActive,
		Version:        ProfileVersion,
		Profile: ProfileDetails{
			Description:    fmt.Sprintf("Advanced %s specialized in %s", tmpl.Role, specialization),
			Capabilities:   capabilities,
			Personality:    composedPersonality,
			TechnicalSpecs: technicalSpecs(resources),
			Source:         SourceTemplate,
		},
		Deployment: DeploymentPlan{
			Environment:          "development",
			ResourceRequirements: resources,
			SecurityClearance:    "high",
			AccessPermissions:    permissions(agentType),
		},
		Learning: Learning{
			TrainingDataSources: trainingSources(agentType),
			ContinuousLearning:  true,
			FeedbackIntegration: true,
			AdaptationRate:      0.1,
		},
	}

	if c.generator != nil {
		c.enrich(ctx, profile, tmpl, overrides)
	}

	return profile, nil
}

// enrich asks the generator for a richer description and merges whatever can
// be recovered from the answer.
func (c *Composer) enrich(ctx context.Context, profile *AgentProfile, tmpl AgentTemplate, overrides *Overrides) {
	profile.Status = StatusInitializing
	profile.APIIntegration = &APIIntegration{
		Provider:            c.generator.Name(),
		Model:               c.generator.Model(),
		GenerationTimestamp: c.now().UTC(),
		APIVersion:          generationAPIVersion,
	}

	raw, err := c.generate(ctx, buildPrompt(tmpl, overrides))
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("request_id", logging.RequestIDFromContext(ctx)).
			Str("agent_id", profile.ID).
			Str("template_type", profile.TemplateType).
			Msg("Text generation unavailable, using fallback profile")
		profile.Profile.Source = SourceFallback
		return
	}

	result := Parse(raw)
	if result.Degraded() {
		c.logger.Debug().
			Err(result.Err).
			Str("request_id", logging.RequestIDFromContext(ctx)).
			Str("agent_id", profile.ID).
			Msg("Generated text was not structured, extracted fields heuristically")
	}
	applyFragment(&profile.Profile, result)
}

func (c *Composer) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", &UpstreamError{
			Provider: c.generator.Name(),
			Timeout:  errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
			Err:      err,
		}
	}
	if strings.TrimSpace(raw) == "" {
		return "", &UpstreamError{Provider: c.generator.Name(), Err: errors.New("empty response")}
	}
	return raw, nil
}

func applyFragment(details *ProfileDetails, result ParseResult) {
	frag := result.Fragment
	if result.Degraded() {
		details.Source = SourceFallback
	} else {
		details.Source = SourceParsed
		details.GeneratedProfile = frag.Fields
	}

	if frag.Description != "" {
		details.Description = frag.Description
	}
	if frag.Personality != "" {
		details.Personality = frag.Personality
	}
	if len(frag.TechnicalSpecs) > 0 && !result.Degraded() {
		details.TechnicalSpecs = frag.TechnicalSpecs
	}
	if len(frag.Capabilities) > 0 {
		details.GeneratedCapabilities = frag.Capabilities
	}
}

func buildPrompt(tmpl AgentTemplate, overrides *Overrides) string {
	custom := []byte("{}")
	if overrides != nil {
		if b, err := json.MarshalIndent(overrides, "", "  "); err == nil {
			custom = b
		}
	}

	var b strings.Builder
	b.WriteString("Create a comprehensive AI agent profile for a cybersecurity role with the following specifications:\n\n")
	fmt.Fprintf(&b, "Role: %s\n", tmpl.Role)
	fmt.Fprintf(&b, "Specialization: %s\n", tmpl.Specialization)
	fmt.Fprintf(&b, "Base Capabilities: %s\n", strings.Join(tmpl.BaseCapabilities, ", "))
	fmt.Fprintf(&b, "Required Skills: %s\n\n", strings.Join(tmpl.RequiredSkills, ", "))
	fmt.Fprintf(&b, "Custom Requirements: %s\n\n", custom)
	b.WriteString("Generate a detailed agent profile including personality traits and working style, ")
	b.WriteString("technical capabilities beyond the base set, learning and adaptation mechanisms, ")
	b.WriteString("communication and reporting style, performance metrics, integration with security tools, ")
	b.WriteString("decision-making parameters and escalation procedures.\n\n")
	b.WriteString(`Respond with a single JSON object with the keys "description", "capabilities", "personality" and "technical_specs".`)
	return b.String()
}

func resourceRequirements(agentType string) ResourceRequirements {
	req := ResourceRequirements{
		CPUCores:         4,
		MemoryGB:         8,
		StorageGB:        100,
		NetworkBandwidth: "1Gbps",
	}

	switch agentType {
	case TypeAIEngineer:
		req.CPUCores = 8
		req.MemoryGB = 16
		req.StorageGB = 500
		req.GPURequired = true
	case TypeBlockchainSpecialist:
		req.StorageGB = 200
		req.NetworkBandwidth = "10Gbps"
		req.BlockchainNodeAccess = true
	}
	return req
}

func permissions(agentType string) []string {
	extra := typePermissions[agentType]
	out := make([]string, 0, len(basePermissions)+len(extra))
	out = append(out, basePermissions...)
	return append(out, extra...)
}

func trainingSources(agentType string) []string {
	extra := typeTrainingSources[agentType]
	out := make([]string, 0, len(commonTrainingSources)+len(extra))
	out = append(out, commonTrainingSources...)
	return append(out, extra...)
}

func technicalSpecs(req ResourceRequirements) map[string]any {
	power := "High"
	if req.CPUCores >= 8 {
		power = "Enterprise-grade"
	}
	specs := map[string]any{
		"processing_power":     power,
		"memory_requirements":  fmt.Sprintf("%dGB minimum", req.MemoryGB),
		"storage_requirements": fmt.Sprintf("%dGB", req.StorageGB),
		"network_bandwidth":    req.NetworkBandwidth,
		"security_protocols":   []string{"TLS 1.3", "AES-256", "RSA-4096"},
	}
	if req.GPURequired {
		specs["ai_frameworks"] = []string{"TensorFlow 2.x", "PyTorch", "Scikit-learn", "Transformers"}
	}
	return specs
}
