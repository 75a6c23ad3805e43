package agents

import "time"

// ProfileVersion is stamped on every composed profile.
const ProfileVersion = "2.0.0"

// Status is the lifecycle state a profile is created in.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusActive       Status = "active"
)

// GenerationSource records where the descriptive part of a profile came from.
type GenerationSource string

const (
	SourceTemplate GenerationSource = "template"
	SourceParsed   GenerationSource = "parsed"
	SourceFallback GenerationSource = "fallback"
)

// Overrides are the caller-supplied adjustments recognised by the composer.
type Overrides struct {
	PriorityDomains []string `json:"priority_domains,omitempty"`
	Specialization  string   `json:"specialization,omitempty"`
}

// AgentProfile is a provisioned agent. Values are never mutated after Compose
// returns them.
type AgentProfile struct {
	ID             string          `json:"id"`
	TemplateType   string          `json:"template_type"`
	Name           string          `json:"name"`
	Role           string          `json:"role"`
	Specialization string          `json:"specialization"`
	CreatedAt      time.Time       `json:"created_at"`
	Status         Status          `json:"status"`
	Version        string          `json:"version"`
	APIIntegration *APIIntegration `json:"api_integration,omitempty"`
	Profile        ProfileDetails  `json:"profile"`
	Deployment     DeploymentPlan  `json:"deployment"`
	Performance    Performance     `json:"performance"`
	Learning       Learning        `json:"learning"`
}

// APIIntegration describes the text generation provider used for a profile.
type APIIntegration struct {
	Provider            string    `json:"provider"`
	Model               string    `json:"model,omitempty"`
	GenerationTimestamp time.Time `json:"generation_timestamp"`
	APIVersion          string    `json:"api_version"`
}

// ProfileDetails is the descriptive section of a profile.
type ProfileDetails struct {
	Description           string           `json:"description"`
	Capabilities          []string         `json:"capabilities"`
	Personality           string           `json:"personality"`
	TechnicalSpecs        map[string]any   `json:"technical_specs"`
	GeneratedCapabilities []string         `json:"generated_capabilities,omitempty"`
	GeneratedProfile      map[string]any   `json:"generated_profile,omitempty"`
	Source                GenerationSource `json:"generation"`
}

// DeploymentPlan holds sizing and access for a profile.
type DeploymentPlan struct {
	Environment          string               `json:"environment"`
	ResourceRequirements ResourceRequirements `json:"resource_requirements"`
	SecurityClearance    string               `json:"security_clearance"`
	AccessPermissions    []string             `json:"access_permissions"`
}

// ResourceRequirements is the compute sizing for an agent type.
type ResourceRequirements struct {
	CPUCores             int    `json:"cpu_cores"`
	MemoryGB             int    `json:"memory_gb"`
	StorageGB            int    `json:"storage_gb"`
	NetworkBandwidth     string `json:"network_bandwidth"`
	GPURequired          bool   `json:"gpu_required,omitempty"`
	BlockchainNodeAccess bool   `json:"blockchain_node_access,omitempty"`
}

// Performance counters start at zero and are only changed by runtime monitoring.
type Performance struct {
	InitializationTime float64 `json:"initialization_time"`
	TasksCompleted     int     `json:"tasks_completed"`
	SuccessRate        float64 `json:"success_rate"`
	Uptime             float64 `json:"uptime"`
	ResponseTimeAvg    float64 `json:"response_time_avg"`
}

// Learning describes the training inputs for an agent.
type Learning struct {
	TrainingDataSources []string `json:"training_data_sources"`
	ContinuousLearning  bool     `json:"continuous_learning"`
	FeedbackIntegration bool     `json:"feedback_integration"`
	AdaptationRate      float64  `json:"adaptation_rate"`
}
