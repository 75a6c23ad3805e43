package models

import (
	"github.com/jinzhu/gorm"
)

// AgentRecord is a composed profile kept in the registry. Payload holds the
// profile as JSON.
type AgentRecord struct {
	gorm.Model
	AgentID      string `gorm:"unique_index;not null"`
	TemplateType string `gorm:"index"`
	Name         string
	Role         string
	Status       string
	Source       string
	Payload      string `gorm:"type:text"`
}

// DeploymentRecord is a synthesized deployment descriptor.
type DeploymentRecord struct {
	gorm.Model
	AgentID     string `gorm:"index;not null"`
	EndpointURL string
	Payload     string `gorm:"type:text"`
}
