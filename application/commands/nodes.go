package commands

import (
	"snippets-backend/application/services"
	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/pkg/validation"
)

// SaveNodeCommand creates or updates a node in the namespace named by Provenance
type SaveNodeCommand struct {
	Provenance valueobjects.Provenance `json:"provenance" validate:"required,provenance"`
	Node       services.NodeInput      `json:"node"`
}

func (c SaveNodeCommand) Validate() error {
	return validation.Struct(c)
}

// MoveNodeCommand re-parents a node within its own namespace
type MoveNodeCommand struct {
	Provenance    valueobjects.Provenance `json:"provenance" validate:"required,provenance"`
	NodeID        string                  `json:"nodeId" validate:"required"`
	DestinationID string                  `json:"destinationId" validate:"required"`
}

func (c MoveNodeCommand) Validate() error {
	return validation.Struct(c)
}

// Ref returns the node being moved
func (c MoveNodeCommand) Ref() valueobjects.NodeRef {
	return valueobjects.NodeRef{Provenance: c.Provenance, ID: c.NodeID}
}

// DeleteNodeCommand removes a node
type DeleteNodeCommand struct {
	Provenance valueobjects.Provenance `json:"provenance" validate:"required,provenance"`
	NodeID     string                  `json:"nodeId" validate:"required"`
}

func (c DeleteNodeCommand) Validate() error {
	return validation.Struct(c)
}

// Ref returns the node being deleted
func (c DeleteNodeCommand) Ref() valueobjects.NodeRef {
	return valueobjects.NodeRef{Provenance: c.Provenance, ID: c.NodeID}
}

// ApplyChangesCommand applies a batch of writes in order, without rollback
type ApplyChangesCommand struct {
	Changes []services.Change `json:"changes" validate:"required,min=1,max=100"`
}

func (c ApplyChangesCommand) Validate() error {
	return validation.Struct(c)
}
