package events

import (
	"time"

	"snippets-backend/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// SourceSnippets is the event source name for changes made through this service
const SourceSnippets = "snippets.backend"

const (
	EventTypeNodeSaved   = "node.saved"
	EventTypeNodeMoved   = "node.moved"
	EventTypeNodeDeleted = "node.deleted"
)

// NodeSaved is raised when a node is created or updated
type NodeSaved struct {
	BaseEvent
	Node   valueobjects.NodeRef `json:"node"`
	Parent string               `json:"parent_id"`
	Kind   valueobjects.Kind    `json:"kind"`
	Title  string               `json:"title"`
	UserID string               `json:"user_id,omitempty"`
}

// NewNodeSaved creates a NodeSaved event
func NewNodeSaved(node valueobjects.NodeRef, parent string, kind valueobjects.Kind, title, userID string, timestamp time.Time) NodeSaved {
	return NodeSaved{
		BaseEvent: BaseEvent{
			AggregateID: node.String(),
			EventType:   EventTypeNodeSaved,
			Timestamp:   timestamp,
			Version:     1,
		},
		Node:   node,
		Parent: parent,
		Kind:   kind,
		Title:  title,
		UserID: userID,
	}
}

// NodeMoved is raised when a node is re-parented
type NodeMoved struct {
	BaseEvent
	Node      valueobjects.NodeRef `json:"node"`
	OldParent string               `json:"old_parent_id"`
	NewParent string               `json:"new_parent_id"`
	UserID    string               `json:"user_id,omitempty"`
}

// NewNodeMoved creates a NodeMoved event
func NewNodeMoved(node valueobjects.NodeRef, oldParent, newParent, userID string, timestamp time.Time) NodeMoved {
	return NodeMoved{
		BaseEvent: BaseEvent{
			AggregateID: node.String(),
			EventType:   EventTypeNodeMoved,
			Timestamp:   timestamp,
			Version:     1,
		},
		Node:      node,
		OldParent: oldParent,
		NewParent: newParent,
		UserID:    userID,
	}
}

// NodeDeleted is raised when a node is removed
type NodeDeleted struct {
	BaseEvent
	Node   valueobjects.NodeRef `json:"node"`
	UserID string               `json:"user_id,omitempty"`
}

// NewNodeDeleted creates a NodeDeleted event
func NewNodeDeleted(node valueobjects.NodeRef, userID string, timestamp time.Time) NodeDeleted {
	return NodeDeleted{
		BaseEvent: BaseEvent{
			AggregateID: node.String(),
			EventType:   EventTypeNodeDeleted,
			Timestamp:   timestamp,
			Version:     1,
		},
		Node:   node,
		UserID: userID,
	}
}
