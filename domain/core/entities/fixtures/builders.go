// Package fixtures builds nodes for tests.
package fixtures

import (
	"time"

	"snippets-backend/domain/core/entities"
	"snippets-backend/domain/core/valueobjects"
)

// FixedTime is the creation time stamped on built nodes
var FixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// NodeBuilder helps create test nodes with default values
type NodeBuilder[K valueobjects.Key] struct {
	attrs entities.NodeAttributes[K]
}

// NewNodeBuilder starts a leaf with the given raw id
func NewNodeBuilder[K valueobjects.Key](id string) *NodeBuilder[K] {
	return &NodeBuilder[K]{attrs: entities.NodeAttributes[K]{
		ID:        K(id),
		Kind:      valueobjects.KindLeaf,
		Title:     "Test Snippet",
		Body:      "Test body",
		ColorID:   valueobjects.DefaultColorID,
		CreatedAt: FixedTime.Format(time.RFC3339Nano),
	}}
}

// Local starts a local leaf
func Local(id string) *NodeBuilder[valueobjects.LocalID] {
	return NewNodeBuilder[valueobjects.LocalID](id)
}

// Remote starts a remote leaf
func Remote(id string) *NodeBuilder[valueobjects.RemoteID] {
	return NewNodeBuilder[valueobjects.RemoteID](id)
}

// Group turns the node into a container
func (b *NodeBuilder[K]) Group() *NodeBuilder[K] {
	b.attrs.Kind = valueobjects.KindContainer
	return b
}

func (b *NodeBuilder[K]) WithKind(kind valueobjects.Kind) *NodeBuilder[K] {
	b.attrs.Kind = kind
	return b
}

func (b *NodeBuilder[K]) WithParent(parent string) *NodeBuilder[K] {
	p := K(parent)
	b.attrs.ParentID = &p
	return b
}

func (b *NodeBuilder[K]) WithTitle(title string) *NodeBuilder[K] {
	b.attrs.Title = title
	return b
}

func (b *NodeBuilder[K]) WithBody(body string) *NodeBuilder[K] {
	b.attrs.Body = body
	return b
}

func (b *NodeBuilder[K]) WithColor(color valueobjects.ColorID) *NodeBuilder[K] {
	b.attrs.ColorID = color
	return b
}

func (b *NodeBuilder[K]) WithOrder(order float64) *NodeBuilder[K] {
	b.attrs.OrderIndex = order
	return b
}

func (b *NodeBuilder[K]) WithCreatedAt(createdAt string) *NodeBuilder[K] {
	b.attrs.CreatedAt = createdAt
	return b
}

func (b *NodeBuilder[K]) WithChildren(children ...entities.Node[K]) *NodeBuilder[K] {
	b.attrs.Children = children
	return b
}

// Build returns the node
func (b *NodeBuilder[K]) Build() entities.Node[K] {
	return entities.ReconstructNode(b.attrs)
}
