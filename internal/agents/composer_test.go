package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"agentforge/internal/logging"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGenerator is a mock implementation of TextGenerator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Name() string  { return "mock" }
func (m *MockGenerator) Model() string { return "mock-model" }

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// blockingGenerator waits for the context to end.
type blockingGenerator struct{}

func (blockingGenerator) Name() string  { return "slow" }
func (blockingGenerator) Model() string { return "" }
func (blockingGenerator) Generate(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func sequentialIDs() func() string {
	var n int64
	return func() string {
		return fmt.Sprintf("agent_%d", atomic.AddInt64(&n, 1))
	}
}

func TestCompose_SecurityAnalyst(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewComposer(DefaultCatalog(), WithClock(func() time.Time { return fixed }))

	profile, err := c.Compose(context.Background(), TypeSecurityAnalyst, nil)
	require.NoError(t, err)

	assert.Equal(t, TypeSecurityAnalyst, profile.TemplateType)
	assert.Equal(t, "Security Operations Analyst", profile.Role)
	assert.Equal(t, "CyberGuard Analyst", profile.Name)
	assert.Equal(t, StatusActive, profile.Status)
	assert.Equal(t, ProfileVersion, profile.Version)
	assert.Equal(t, fixed, profile.CreatedAt)
	assert.Nil(t, profile.APIIntegration)
	assert.Equal(t, SourceTemplate, profile.Profile.Source)
	assert.Equal(t, ResourceRequirements{
		CPUCores:         4,
		MemoryGB:         8,
		StorageGB:        100,
		NetworkBandwidth: "1Gbps",
	}, profile.Deployment.ResourceRequirements)
	assert.Equal(t, Performance{}, profile.Performance)
	assert.Contains(t, profile.Deployment.AccessPermissions, "access_siem")
	assert.Len(t, profile.Learning.TrainingDataSources, 4)
}

func TestCompose_CapabilitiesSupersetOfTemplate(t *testing.T) {
	catalog := DefaultCatalog()
	c := NewComposer(catalog)

	for _, agentType := range catalog.Types() {
		t.Run(agentType, func(t *testing.T) {
			tmpl, ok := catalog.Lookup(agentType)
			require.True(t, ok)

			profile, err := c.Compose(context.Background(), agentType, nil)
			require.NoError(t, err)

			assert.Equal(t, agentType, profile.TemplateType)
			assert.Subset(t, profile.Profile.Capabilities, tmpl.BaseCapabilities)
			assert.Subset(t, profile.Profile.Capabilities, enhancementCapabilities)
			assert.Subset(t, profile.Deployment.AccessPermissions, basePermissions)
		})
	}
}

func TestCompose_UnknownType(t *testing.T) {
	catalog := DefaultCatalog()
	before := catalog.All()
	c := NewComposer(catalog)

	profile, err := c.Compose(context.Background(), "chef", nil)
	assert.Nil(t, profile)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	var notFound *TemplateNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "chef", notFound.Type)
	assert.Equal(t, before, catalog.All())
}

func TestCompose_RepeatedCallsDifferOnlyInIdentity(t *testing.T) {
	c := NewComposer(DefaultCatalog())

	first, err := c.Compose(context.Background(), TypeBlockchainSpecialist, &Overrides{})
	require.NoError(t, err)
	second, err := c.Compose(context.Background(), TypeBlockchainSpecialist, &Overrides{})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Profile.Capabilities, second.Profile.Capabilities)
	assert.Equal(t, first.Deployment.ResourceRequirements, second.Deployment.ResourceRequirements)
	assert.Equal(t, first.Deployment.AccessPermissions, second.Deployment.AccessPermissions)
}

func TestCompose_ResourceSizing(t *testing.T) {
	c := NewComposer(DefaultCatalog())

	engineer, err := c.Compose(context.Background(), TypeAIEngineer, &Overrides{})
	require.NoError(t, err)
	analyst, err := c.Compose(context.Background(), TypeSecurityAnalyst, &Overrides{})
	require.NoError(t, err)
	chain, err := c.Compose(context.Background(), TypeBlockchainSpecialist, nil)
	require.NoError(t, err)

	assert.Greater(t, engineer.Deployment.ResourceRequirements.MemoryGB, analyst.Deployment.ResourceRequirements.MemoryGB)
	assert.Greater(t, engineer.Deployment.ResourceRequirements.CPUCores, analyst.Deployment.ResourceRequirements.CPUCores)
	assert.True(t, engineer.Deployment.ResourceRequirements.GPURequired)
	assert.False(t, analyst.Deployment.ResourceRequirements.GPURequired)

	assert.Equal(t, 200, chain.Deployment.ResourceRequirements.StorageGB)
	assert.Equal(t, "10Gbps", chain.Deployment.ResourceRequirements.NetworkBandwidth)
	assert.True(t, chain.Deployment.ResourceRequirements.BlockchainNodeAccess)
}

func TestCompose_Overrides(t *testing.T) {
	catalog := DefaultCatalog()
	c := NewComposer(catalog)

	profile, err := c.Compose(context.Background(), TypeIncidentResponder, &Overrides{
		PriorityDomains: []string{"Ransomware negotiation", "OT networks"},
		Specialization:  "Industrial incident handling",
	})
	require.NoError(t, err)

	caps := profile.Profile.Capabilities
	assert.Equal(t, []string{"Ransomware negotiation", "OT networks"}, caps[len(caps)-2:])
	assert.Equal(t, "Industrial incident handling", profile.Specialization)

	tmpl, _ := catalog.Lookup(TypeIncidentResponder)
	assert.Equal(t, "Crisis Management and Recovery", tmpl.Specialization)
	assert.NotContains(t, tmpl.BaseCapabilities, "OT networks")
}

func TestCompose_EmptySpecializationKeepsTemplate(t *testing.T) {
	c := NewComposer(DefaultCatalog())

	profile, err := c.Compose(context.Background(), TypeComplianceOfficer, &Overrides{Specialization: ""})
	require.NoError(t, err)
	assert.Equal(t, "Regulatory Compliance and Governance", profile.Specialization)
}

func TestCompose_OverridesDoNotLeakBetweenCalls(t *testing.T) {
	c := NewComposer(DefaultCatalog())

	_, err := c.Compose(context.Background(), TypeSecurityAnalyst, &Overrides{PriorityDomains: []string{"Cloud posture"}})
	require.NoError(t, err)

	plain, err := c.Compose(context.Background(), TypeSecurityAnalyst, nil)
	require.NoError(t, err)
	assert.NotContains(t, plain.Profile.Capabilities, "Cloud posture")
}

func TestCompose_InjectedIDSource(t *testing.T) {
	c := NewComposer(DefaultCatalog(), WithIDSource(sequentialIDs()))

	a, err := c.Compose(context.Background(), TypeAIEngineer, nil)
	require.NoError(t, err)
	b, err := c.Compose(context.Background(), TypeAIEngineer, nil)
	require.NoError(t, err)

	assert.Equal(t, "agent_1", a.ID)
	assert.Equal(t, "agent_2", b.ID)
}

func TestCompose_GeneratorStructuredResponse(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.AnythingOfType("string")).Return(`Sure! {"description": "Vigilant analyst", "personality": "Calm under pressure", "capabilities": ["Log triage"], "technical_specs": {"processing_power": "Medium"}}`, nil)

	c := NewComposer(DefaultCatalog(), WithGenerator(gen, time.Second))
	assert.True(t, c.Generative())

	profile, err := c.Compose(context.Background(), TypeSecurityAnalyst, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusInitializing, profile.Status)
	require.NotNil(t, profile.APIIntegration)
	assert.Equal(t, "mock", profile.APIIntegration.Provider)
	assert.Equal(t, "mock-model", profile.APIIntegration.Model)
	assert.Equal(t, SourceParsed, profile.Profile.Source)
	assert.Equal(t, "Vigilant analyst", profile.Profile.Description)
	assert.Equal(t, "Calm under pressure", profile.Profile.Personality)
	assert.Equal(t, []string{"Log triage"}, profile.Profile.GeneratedCapabilities)
	assert.Equal(t, "Medium", profile.Profile.TechnicalSpecs["processing_power"])
	assert.Subset(t, profile.Profile.Capabilities, []string{"Real-time threat monitoring"})
	gen.AssertExpectations(t)
}

func TestCompose_GeneratorFreeText(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("Core capabilities include SIEM tuning\nPersonality: methodical", nil)

	c := NewComposer(DefaultCatalog(), WithGenerator(gen, time.Second))

	profile, err := c.Compose(context.Background(), TypeSecurityAnalyst, nil)
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, profile.Profile.Source)
	assert.Equal(t, "Personality: methodical", profile.Profile.Personality)
	assert.Equal(t, []string{"Core capabilities include SIEM tuning"}, profile.Profile.GeneratedCapabilities)
	assert.Equal(t, "High", profile.Profile.TechnicalSpecs["processing_power"])
}

func TestCompose_GeneratorFailureDegrades(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("503 service unavailable"))

	c := NewComposer(DefaultCatalog(), WithGenerator(gen, time.Second))

	profile, err := c.Compose(context.Background(), TypeAIEngineer, nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, profile.Profile.Source)
	assert.Equal(t, composedPersonality, profile.Profile.Personality)
	assert.NotEmpty(t, profile.Profile.Capabilities)
}

func TestCompose_FallbackLogCarriesRequestID(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("503 service unavailable"))

	var buf bytes.Buffer
	c := NewComposer(DefaultCatalog(),
		WithGenerator(gen, time.Second),
		WithLogger(zerolog.New(&buf)),
		WithIDSource(sequentialIDs()),
	)

	ctx, _ := logging.WithRequestID(context.Background(), "req-7")
	_, err := c.Compose(ctx, TypeIncidentResponder, nil)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "agent_1", entry["agent_id"])
}

func TestComposer_GenerateTimeout(t *testing.T) {
	c := NewComposer(DefaultCatalog(), WithGenerator(blockingGenerator{}, 20*time.Millisecond))

	_, err := c.generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamTimeout))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	start := time.Now()
	profile, err := c.Compose(context.Background(), TypeSecurityAnalyst, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, SourceFallback, profile.Profile.Source)
}

func TestComposer_GenerateFailureKind(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("bad key"))
	c := NewComposer(DefaultCatalog(), WithGenerator(gen, time.Second))

	_, err := c.generate(context.Background(), "prompt")
	assert.True(t, errors.Is(err, ErrUpstreamFailure))
	assert.False(t, errors.Is(err, ErrUpstreamTimeout))
}

func TestBuildPrompt(t *testing.T) {
	tmpl, _ := DefaultCatalog().Lookup(TypeBlockchainSpecialist)
	prompt := buildPrompt(tmpl, &Overrides{PriorityDomains: []string{"Bridges"}})

	assert.Contains(t, prompt, "Role: Blockchain Security Specialist")
	assert.Contains(t, prompt, "Smart contract auditing, DeFi protocol analysis")
	assert.Contains(t, prompt, `"Bridges"`)
}
