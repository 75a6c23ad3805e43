package agents

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultEndpointBase  = "https://agents.agentforge.local"
	DefaultDashboardBase = "https://portal.agentforge.local/agents"

	deploymentStatusDeployed = "deployed"
)

// DeploymentDescriptor is the addressing and monitoring record for an agent.
type DeploymentDescriptor struct {
	AgentID             string             `json:"agent_id"`
	AgentName           string             `json:"agent_name,omitempty"`
	DeploymentStatus    string             `json:"deployment_status"`
	DeploymentTime      time.Time          `json:"deployment_time"`
	EndpointURL         string             `json:"endpoint_url"`
	ManagementDashboard string             `json:"management_dashboard"`
	APIEndpoints        map[string]string  `json:"api_endpoints"`
	Monitoring          MonitoringSettings `json:"monitoring"`
	Security            SecuritySettings   `json:"security"`
}

// MonitoringSettings are static defaults applied to every deployment.
type MonitoringSettings struct {
	HealthCheckInterval string `json:"health_check_interval"`
	PerformanceMetrics  bool   `json:"performance_metrics"`
	LoggingEnabled      bool   `json:"logging_enabled"`
	AlertingConfigured  bool   `json:"alerting_configured"`
	BackupEnabled       bool   `json:"backup_enabled"`
	FailoverReady       bool   `json:"failover_ready"`
}

// SecuritySettings are static defaults applied to every deployment.
type SecuritySettings struct {
	EncryptionEnabled bool   `json:"encryption_enabled"`
	AccessControl     string `json:"access_control"`
	AuditLogging      bool   `json:"audit_logging"`
	ComplianceChecks  bool   `json:"compliance_checks"`
}

var agentEndpoints = []string{"status", "interact", "performance", "update", "logs", "metrics"}

// Synthesizer turns profiles into deployment descriptors. It never contacts
// the endpoints it describes.
type Synthesizer struct {
	endpointBase  string
	dashboardBase string
	now           func() time.Time
}

// NewSynthesizer creates a synthesizer. Empty bases fall back to the defaults.
func NewSynthesizer(endpointBase, dashboardBase string) *Synthesizer {
	if endpointBase == "" {
		endpointBase = DefaultEndpointBase
	}
	if dashboardBase == "" {
		dashboardBase = DefaultDashboardBase
	}
	return &Synthesizer{
		endpointBase:  strings.TrimRight(endpointBase, "/"),
		dashboardBase: strings.TrimRight(dashboardBase, "/"),
		now:           time.Now,
	}
}

// SetClock replaces the clock used for deployment_time.
func (s *Synthesizer) SetClock(now func() time.Time) {
	s.now = now
}

// Synthesize builds the descriptor for profile. Only the id is required.
func (s *Synthesizer) Synthesize(profile *AgentProfile) (*DeploymentDescriptor, error) {
	if profile == nil || strings.TrimSpace(profile.ID) == "" {
		return nil, &MissingFieldError{Field: "id"}
	}

	id := url.PathEscape(profile.ID)
	endpoints := make(map[string]string, len(agentEndpoints))
	for _, name := range agentEndpoints {
		endpoints[name] = fmt.Sprintf("/api/agents/%s/%s", id, name)
	}

	return &DeploymentDescriptor{
		AgentID:             profile.ID,
		AgentName:           profile.Name,
		DeploymentStatus:    deploymentStatusDeployed,
		DeploymentTime:      s.now().UTC(),
		EndpointURL:         fmt.Sprintf("%s/%s", s.endpointBase, id),
		ManagementDashboard: fmt.Sprintf("%s/%s/dashboard", s.dashboardBase, id),
		APIEndpoints:        endpoints,
		Monitoring: MonitoringSettings{
			HealthCheckInterval: "15s",
			PerformanceMetrics:  true,
			LoggingEnabled:      true,
			AlertingConfigured:  true,
			BackupEnabled:       true,
			FailoverReady:       true,
		},
		Security: SecuritySettings{
			EncryptionEnabled: true,
			AccessControl:     "RBAC",
			AuditLogging:      true,
			ComplianceChecks:  true,
		},
	}, nil
}
