package config

import (
	"fmt"

	"snippets-backend/domain/core/valueobjects"
)

// DeletePolicy controls deletion of groups that still hold items
type DeletePolicy string

const (
	// DeletePolicyAllow deletes the group record and leaves its items detached
	DeletePolicyAllow DeletePolicy = "allow"
	// DeletePolicyRejectNonEmpty refuses to delete a group that has children
	DeletePolicyRejectNonEmpty DeletePolicy = "reject_non_empty"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Namespace roots
	LocalRootID  string
	RemoteRootID string

	// Node constraints, counted in characters
	MinTitleLength int
	MaxTitleLength int
	MinBodyLength  int
	MaxBodyLength  int

	// Hierarchy walks give up past this depth
	MaxDepth int

	// Hierarchy policies
	DeletePolicy DeletePolicy
	DropDetached bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		LocalRootID:  "root",
		RemoteRootID: "0",

		MinTitleLength: 1,
		MaxTitleLength: 50,
		MinBodyLength:  1,
		MaxBodyLength:  1000,

		MaxDepth: valueobjects.DefaultMaxDepth,

		DeletePolicy: DeletePolicyAllow,
		DropDetached: false,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Hide orphaned items rather than surfacing half-synced data
	config.DropDetached = true
	config.DeletePolicy = DeletePolicyRejectNonEmpty

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	return DefaultDomainConfig()
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// LocalNamespace builds the local id namespace
func (c *DomainConfig) LocalNamespace() valueobjects.Namespace[valueobjects.LocalID] {
	return valueobjects.NewNamespace(valueobjects.LocalID(c.LocalRootID), c.MaxDepth)
}

// RemoteNamespace builds the remote id namespace
func (c *DomainConfig) RemoteNamespace() valueobjects.Namespace[valueobjects.RemoteID] {
	return valueobjects.NewNamespace(valueobjects.RemoteID(c.RemoteRootID), c.MaxDepth)
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.LocalRootID == "" || c.RemoteRootID == "" {
		return fmt.Errorf("root ids must not be empty")
	}
	if c.MinTitleLength < 0 || c.MaxTitleLength < c.MinTitleLength {
		return fmt.Errorf("invalid title length range [%d, %d]", c.MinTitleLength, c.MaxTitleLength)
	}
	if c.MinBodyLength < 0 || c.MaxBodyLength < c.MinBodyLength {
		return fmt.Errorf("invalid body length range [%d, %d]", c.MinBodyLength, c.MaxBodyLength)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive, got %d", c.MaxDepth)
	}
	switch c.DeletePolicy {
	case DeletePolicyAllow, DeletePolicyRejectNonEmpty:
	default:
		return fmt.Errorf("unknown delete policy %q", c.DeletePolicy)
	}
	return nil
}
