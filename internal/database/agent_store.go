package database

import (
	"encoding/json"
	"fmt"

	"agentforge/internal/agents"
	"agentforge/internal/models"

	"github.com/jinzhu/gorm"
)

// AgentStore records composed profiles and their deployments.
type AgentStore struct {
	db *gorm.DB
}

// NewAgentStore opens the database and returns a store over it.
func NewAgentStore(driver, dsn string) (*AgentStore, error) {
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return &AgentStore{db: db}, nil
}

// SaveProfile stores a composed profile.
func (s *AgentStore) SaveProfile(p *agents.AgentProfile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile %s: %w", p.ID, err)
	}

	rec := models.AgentRecord{
		AgentID:      p.ID,
		TemplateType: p.TemplateType,
		Name:         p.Name,
		Role:         p.Role,
		Status:       string(p.Status),
		Source:       string(p.Profile.Source),
		Payload:      string(payload),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to save profile %s: %w", p.ID, err)
	}
	return nil
}

// GetProfile loads a profile by agent id. Unknown ids return
// agents.ErrNotRegistered.
func (s *AgentStore) GetProfile(id string) (*agents.AgentProfile, error) {
	var rec models.AgentRecord
	if err := s.db.Where("agent_id = ?", id).First(&rec).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", agents.ErrNotRegistered, id)
		}
		return nil, fmt.Errorf("failed to load profile %s: %w", id, err)
	}

	var p agents.AgentProfile
	if err := json.Unmarshal([]byte(rec.Payload), &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", id, err)
	}
	return &p, nil
}

// Exists reports whether a profile with id has been recorded.
func (s *AgentStore) Exists(id string) (bool, error) {
	var count int
	if err := s.db.Model(&models.AgentRecord{}).Where("agent_id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up profile %s: %w", id, err)
	}
	return count > 0, nil
}

// SaveDeployment stores a deployment descriptor.
func (s *AgentStore) SaveDeployment(d *agents.DeploymentDescriptor) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode deployment %s: %w", d.AgentID, err)
	}

	rec := models.DeploymentRecord{
		AgentID:     d.AgentID,
		EndpointURL: d.EndpointURL,
		Payload:     string(payload),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to save deployment %s: %w", d.AgentID, err)
	}
	return nil
}

// ListDeployments returns the deployments recorded for an agent, oldest first.
func (s *AgentStore) ListDeployments(agentID string) ([]agents.DeploymentDescriptor, error) {
	var recs []models.DeploymentRecord
	if err := s.db.Where("agent_id = ?", agentID).Order("id asc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list deployments for %s: %w", agentID, err)
	}

	out := make([]agents.DeploymentDescriptor, 0, len(recs))
	for _, rec := range recs {
		var d agents.DeploymentDescriptor
		if err := json.Unmarshal([]byte(rec.Payload), &d); err != nil {
			return nil, fmt.Errorf("failed to decode deployment %d: %w", rec.ID, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Close closes the database connection
func (s *AgentStore) Close() error {
	return s.db.Close()
}
