package entities

import (
	"time"

	"snippets-backend/domain/core/valueobjects"
)

// Node is a snippet (leaf) or a group (container) within one provenance
// namespace. Nodes are immutable values: every With* method returns a rebuilt
// copy and never touches the receiver, so the same node can sit in a
// per-provenance list and in the combined tree without aliasing.
//
// Content fields are held raw so a node loaded from storage can be validated
// after the fact; see validators.NodeValidator.
type Node[K valueobjects.Key] struct {
	id         K
	parentID   *K
	kind       valueobjects.Kind
	title      string
	body       string
	colorID    valueobjects.ColorID
	orderIndex float64
	createdAt  string
	provenance valueobjects.Provenance
	children   []Node[K]
}

// NodeAttributes carries the persisted fields of a node
type NodeAttributes[K valueobjects.Key] struct {
	ID         K
	ParentID   *K
	Kind       valueobjects.Kind
	Title      string
	Body       string
	ColorID    valueobjects.ColorID
	OrderIndex float64
	CreatedAt  string
	Children   []Node[K]
}

// NewNode creates a node stamped with the given creation time
func NewNode[K valueobjects.Key](
	id K,
	parentID *K,
	kind valueobjects.Kind,
	title, body string,
	colorID valueobjects.ColorID,
	orderIndex float64,
	now time.Time,
) Node[K] {
	if colorID == "" {
		colorID = valueobjects.DefaultColorID
	}
	return ReconstructNode(NodeAttributes[K]{
		ID:         id,
		ParentID:   parentID,
		Kind:       kind,
		Title:      title,
		Body:       body,
		ColorID:    colorID,
		OrderIndex: orderIndex,
		CreatedAt:  now.UTC().Format(time.RFC3339Nano),
	})
}

// ReconstructNode rebuilds a node from repository data without validation.
// Provenance is never read from storage; it is stamped after fetch.
func ReconstructNode[K valueobjects.Key](attrs NodeAttributes[K]) Node[K] {
	n := Node[K]{
		id:         attrs.ID,
		kind:       attrs.Kind,
		title:      attrs.Title,
		body:       attrs.Body,
		colorID:    attrs.ColorID,
		orderIndex: attrs.OrderIndex,
		createdAt:  attrs.CreatedAt,
	}
	if attrs.ParentID != nil {
		p := *attrs.ParentID
		n.parentID = &p
	}
	if len(attrs.Children) > 0 {
		n.children = cloneNodes(attrs.Children)
	}
	return n
}

// ID returns the node's identifier
func (n Node[K]) ID() K {
	return n.id
}

// ParentID returns the containing group's id, if one is recorded
func (n Node[K]) ParentID() (K, bool) {
	if n.parentID == nil {
		var zero K
		return zero, false
	}
	return *n.parentID, true
}

// ParentOrRoot returns the parent id, normalizing an absent parent to the
// namespace root sentinel
func (n Node[K]) ParentOrRoot(ns valueobjects.Namespace[K]) K {
	if n.parentID == nil || (*n.parentID).IsZero() {
		return ns.Root()
	}
	return *n.parentID
}

func (n Node[K]) Kind() valueobjects.Kind             { return n.kind }
func (n Node[K]) IsContainer() bool                   { return n.kind == valueobjects.KindContainer }
func (n Node[K]) IsLeaf() bool                        { return n.kind == valueobjects.KindLeaf }
func (n Node[K]) Title() string                       { return n.title }
func (n Node[K]) Body() string                        { return n.body }
func (n Node[K]) ColorID() valueobjects.ColorID       { return n.colorID }
func (n Node[K]) OrderIndex() float64                 { return n.orderIndex }
func (n Node[K]) CreatedAt() string                   { return n.createdAt }
func (n Node[K]) Provenance() valueobjects.Provenance { return n.provenance }

// CreatedTime parses the creation timestamp
func (n Node[K]) CreatedTime() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, n.createdAt)
}

// Children returns a copy of the assembled children
func (n Node[K]) Children() []Node[K] {
	return cloneNodes(n.children)
}

// ChildCount returns the number of assembled children
func (n Node[K]) ChildCount() int {
	return len(n.children)
}

// Attributes returns the persisted fields of the node
func (n Node[K]) Attributes() NodeAttributes[K] {
	return NodeAttributes[K]{
		ID:         n.id,
		ParentID:   n.parentPtr(),
		Kind:       n.kind,
		Title:      n.title,
		Body:       n.body,
		ColorID:    n.colorID,
		OrderIndex: n.orderIndex,
		CreatedAt:  n.createdAt,
		Children:   n.Children(),
	}
}

// WithProvenance returns a copy stamped with the given provenance
func (n Node[K]) WithProvenance(p valueobjects.Provenance) Node[K] {
	out := n.shallow()
	out.provenance = p
	return out
}

// WithChildren returns a copy holding the given children
func (n Node[K]) WithChildren(children []Node[K]) Node[K] {
	out := n.shallow()
	out.children = cloneNodes(children)
	return out
}

// WithParent returns a copy re-parented under parentID
func (n Node[K]) WithParent(parentID K) Node[K] {
	out := n.shallow()
	out.parentID = &parentID
	return out
}

// WithOrderIndex returns a copy with a new sibling rank
func (n Node[K]) WithOrderIndex(orderIndex float64) Node[K] {
	out := n.shallow()
	out.orderIndex = orderIndex
	return out
}

// WithContent returns a copy with new title, body and color
func (n Node[K]) WithContent(title, body string, colorID valueobjects.ColorID) Node[K] {
	out := n.shallow()
	out.title = title
	out.body = body
	out.colorID = colorID
	return out
}

// WithoutChildren returns a copy stripped of assembled children, the form
// stores persist
func (n Node[K]) WithoutChildren() Node[K] {
	out := n.shallow()
	out.children = nil
	return out
}

// shallow copies the scalar fields and the parent pointer. Children are
// shared until replaced; nothing mutates a children slice in place.
func (n Node[K]) shallow() Node[K] {
	out := n
	out.parentID = n.parentPtr()
	return out
}

func (n Node[K]) parentPtr() *K {
	if n.parentID == nil {
		return nil
	}
	p := *n.parentID
	return &p
}

func cloneNodes[K valueobjects.Key](nodes []Node[K]) []Node[K] {
	if nodes == nil {
		return nil
	}
	out := make([]Node[K], len(nodes))
	copy(out, nodes)
	return out
}
