package agents

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Agent types shipped in the default catalog.
const (
	TypeSecurityAnalyst      = "security_analyst"
	TypeAIEngineer           = "ai_engineer"
	TypeBlockchainSpecialist = "blockchain_specialist"
	TypeIncidentResponder    = "incident_responder"
	TypeComplianceOfficer    = "compliance_officer"
)

// AgentTemplate is the static description of one kind of agent.
type AgentTemplate struct {
	Name             string   `json:"name" yaml:"name"`
	Role             string   `json:"role" yaml:"role"`
	Specialization   string   `json:"specialization" yaml:"specialization"`
	BaseCapabilities []string `json:"base_capabilities" yaml:"base_capabilities"`
	RequiredSkills   []string `json:"required_skills" yaml:"required_skills"`
}

func (t AgentTemplate) clone() AgentTemplate {
	t.BaseCapabilities = append([]string(nil), t.BaseCapabilities...)
	t.RequiredSkills = append([]string(nil), t.RequiredSkills...)
	return t
}

// Catalog is a read-only set of templates keyed by agent type. It is built once
// at startup and shared by every request; all accessors hand out copies.
type Catalog struct {
	templates map[string]AgentTemplate
	types     []string
}

// NewCatalog copies templates into a new catalog.
func NewCatalog(templates map[string]AgentTemplate) *Catalog {
	c := &Catalog{
		templates: make(map[string]AgentTemplate, len(templates)),
		types:     make([]string, 0, len(templates)),
	}
	for key, tmpl := range templates {
		c.templates[key] = tmpl.clone()
		c.types = append(c.types, key)
	}
	sort.Strings(c.types)
	return c
}

// LoadCatalogFile reads a YAML document mapping agent types to templates.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var templates map[string]AgentTemplate
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no templates", path)
	}
	for key, tmpl := range templates {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("catalog file %s contains an empty agent type", path)
		}
		if tmpl.Name == "" || tmpl.Role == "" {
			return nil, fmt.Errorf("template %q: name and role are required", key)
		}
	}

	return NewCatalog(templates), nil
}

// Lookup returns a copy of the template registered for agentType.
func (c *Catalog) Lookup(agentType string) (AgentTemplate, bool) {
	tmpl, ok := c.templates[agentType]
	if !ok {
		return AgentTemplate{}, false
	}
	return tmpl.clone(), true
}

// Types returns the registered agent types in sorted order.
func (c *Catalog) Types() []string {
	return append([]string(nil), c.types...)
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.templates)
}

// All returns a copy of every template keyed by agent type.
func (c *Catalog) All() map[string]AgentTemplate {
	out := make(map[string]AgentTemplate, len(c.templates))
	for key, tmpl := range c.templates {
		out[key] = tmpl.clone()
	}
	return out
}

// Categories returns the distinct specializations, sorted.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{}, len(c.templates))
	categories := make([]string, 0, len(c.templates))
	for _, tmpl := range c.templates {
		if _, ok := seen[tmpl.Specialization]; ok {
			continue
		}
		seen[tmpl.Specialization] = struct{}{}
		categories = append(categories, tmpl.Specialization)
	}
	sort.Strings(categories)
	return categories
}

// DefaultCatalog returns the built-in security agent templates.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[string]AgentTemplate{
		TypeSecurityAnalyst: {
			Name:           "CyberGuard Analyst",
			Role:           "Security Operations Analyst",
			Specialization: "Threat Detection and Analysis",
			BaseCapabilities: []string{
				"Real-time threat monitoring",
				"SIEM data analysis",
				"Incident investigation",
				"IOC correlation",
				"Risk assessment",
			},
			RequiredSkills: []string{
				"Network security protocols",
				"Malware analysis",
				"Digital forensics",
				"Threat intelligence",
				"Security frameworks (NIST, ISO27001)",
			},
		},
		TypeAIEngineer: {
			Name:           "SatyaAI Engineer",
			Role:           "AI/ML Security Engineer",
			Specialization: "AI-powered Security Solutions",
			BaseCapabilities: []string{
				"ML model development",
				"Anomaly detection algorithms",
				"Behavioral analysis",
				"Predictive threat modeling",
				"AI security testing",
			},
			RequiredSkills: []string{
				"Machine learning frameworks",
				"Deep learning architectures",
				"Statistical analysis",
				"Python/TensorFlow/PyTorch",
				"AI ethics and bias detection",
			},
		},
		TypeBlockchainSpecialist: {
			Name:           "BlockSec Guardian",
			Role:           "Blockchain Security Specialist",
			Specialization: "Web3 and DeFi Security",
			BaseCapabilities: []string{
				"Smart contract auditing",
				"DeFi protocol analysis",
				"Blockchain forensics",
				"Consensus mechanism security",
				"Cross-chain bridge validation",
			},
			RequiredSkills: []string{
				"Solidity programming",
				"Web3 protocols",
				"Cryptographic primitives",
				"DeFi ecosystem knowledge",
				"Smart contract testing",
			},
		},
		TypeIncidentResponder: {
			Name:           "RapidResponse Agent",
			Role:           "Incident Response Specialist",
			Specialization: "Crisis Management and Recovery",
			BaseCapabilities: []string{
				"Emergency response coordination",
				"Digital evidence collection",
				"Containment strategies",
				"Recovery planning",
				"Post-incident analysis",
			},
			RequiredSkills: []string{
				"Incident handling procedures",
				"Crisis communication",
				"Forensic tools proficiency",
				"Business continuity planning",
				"Stakeholder management",
			},
		},
		TypeComplianceOfficer: {
			Name:           "ComplianceGuard",
			Role:           "Cybersecurity Compliance Officer",
			Specialization: "Regulatory Compliance and Governance",
			BaseCapabilities: []string{
				"Regulatory framework mapping",
				"Compliance assessment",
				"Policy development",
				"Audit coordination",
				"Risk governance",
			},
			RequiredSkills: []string{
				"GDPR, HIPAA, SOX compliance",
				"ISO 27001/27002 standards",
				"Risk management frameworks",
				"Legal and regulatory knowledge",
				"Documentation and reporting",
			},
		},
	})
}
