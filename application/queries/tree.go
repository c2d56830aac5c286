package queries

import (
	"snippets-backend/domain/core/valueobjects"
	"snippets-backend/pkg/validation"
)

// GetCombinedTreeQuery fetches both sources and merges them
type GetCombinedTreeQuery struct{}

func (q GetCombinedTreeQuery) Validate() error { return nil }

// GetNodeQuery fetches one node
type GetNodeQuery struct {
	Provenance valueobjects.Provenance `json:"provenance" validate:"required,provenance"`
	NodeID     string                  `json:"nodeId" validate:"required"`
}

func (q GetNodeQuery) Validate() error {
	return validation.Struct(q)
}

// Ref returns the requested node
func (q GetNodeQuery) Ref() valueobjects.NodeRef {
	return valueobjects.NodeRef{Provenance: q.Provenance, ID: q.NodeID}
}

// GetRelocationPlanQuery lists the legal destinations of a node
type GetRelocationPlanQuery struct {
	Provenance valueobjects.Provenance `json:"provenance" validate:"required,provenance"`
	NodeID     string                  `json:"nodeId" validate:"required"`
}

func (q GetRelocationPlanQuery) Validate() error {
	return validation.Struct(q)
}

// Ref returns the node being planned
func (q GetRelocationPlanQuery) Ref() valueobjects.NodeRef {
	return valueobjects.NodeRef{Provenance: q.Provenance, ID: q.NodeID}
}
